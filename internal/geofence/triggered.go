package geofence

import (
	"sort"
	"sync"
)

// TriggeredSet is the add-only set of reminder ids that already fired.
// There is intentionally no removal method: a reminder never re-arms while
// the owning process lives.
type TriggeredSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewTriggeredSet() *TriggeredSet {
	return &TriggeredSet{ids: make(map[string]struct{})}
}

func (s *TriggeredSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// MarkIfAbsent adds id and reports whether this call added it.
func (s *TriggeredSet) MarkIfAbsent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *TriggeredSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the triggered ids in sorted order.
func (s *TriggeredSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

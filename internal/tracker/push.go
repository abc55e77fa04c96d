package tracker

import (
	"sync"

	"geo-reminder/internal/geo"
)

type watcher struct {
	onFix   func(geo.Position)
	onError func(error)
}

// PushSource is a Geolocator fed in-process, e.g. by an HTTP ingestion
// endpoint that devices report their fixes to.
type PushSource struct {
	mu       sync.Mutex
	next     WatchID
	watchers map[WatchID]watcher

	// serializes fan-out so every watcher sees pushes in the same order
	fanout sync.Mutex
}

func NewPushSource() *PushSource {
	return &PushSource{watchers: make(map[WatchID]watcher)}
}

func (p *PushSource) Watch(_ Options, onFix func(geo.Position), onError func(error)) (WatchID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	p.watchers[p.next] = watcher{onFix: onFix, onError: onError}
	return p.next, nil
}

func (p *PushSource) ClearWatch(id WatchID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.watchers, id)
}

// Watchers returns the number of active watches.
func (p *PushSource) Watchers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watchers)
}

// Push hands a fix to every active watch and returns how many received it.
func (p *PushSource) Push(pos geo.Position) int {
	p.fanout.Lock()
	defer p.fanout.Unlock()
	ws := p.snapshot()
	for _, w := range ws {
		w.onFix(pos)
	}
	return len(ws)
}

// Fail reports an acquisition error to every active watch.
func (p *PushSource) Fail(err error) int {
	p.fanout.Lock()
	defer p.fanout.Unlock()
	ws := p.snapshot()
	for _, w := range ws {
		w.onError(err)
	}
	return len(ws)
}

func (p *PushSource) snapshot() []watcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	ws := make([]watcher, 0, len(p.watchers))
	for _, w := range p.watchers {
		ws = append(ws, w)
	}
	return ws
}

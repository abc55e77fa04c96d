package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// PermissionState is the process-wide notification permission.
type PermissionState int

const (
	Unknown PermissionState = iota
	Granted
	Denied
)

func (s PermissionState) String() string {
	switch s {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	}
	return "unknown"
}

func (s PermissionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PermissionState) UnmarshalText(text []byte) error {
	state, err := ParsePermissionMode(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// ParsePermissionMode maps a configured mode to the initial permission state.
// "prompt" starts as Unknown.
func ParsePermissionMode(mode string) (PermissionState, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "granted":
		return Granted, nil
	case "denied":
		return Denied, nil
	case "prompt", "", "unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("invalid permission mode %q (must be granted, denied or prompt)", mode)
}

// Prompter asks the user for notification permission.
type Prompter interface {
	Prompt(ctx context.Context) (bool, error)
}

// PendingPrompter holds each prompt open until Answer is called. It backs the
// permission endpoint of the HTTP API.
type PendingPrompter struct {
	mu      sync.Mutex
	waiting []chan bool
}

func NewPendingPrompter() *PendingPrompter {
	return &PendingPrompter{}
}

func (p *PendingPrompter) Prompt(ctx context.Context) (bool, error) {
	ch := make(chan bool, 1)
	p.mu.Lock()
	p.waiting = append(p.waiting, ch)
	p.mu.Unlock()

	select {
	case granted := <-ch:
		return granted, nil
	case <-ctx.Done():
		p.remove(ch)
		return false, ctx.Err()
	}
}

// Pending reports whether a prompt is waiting for an answer.
func (p *PendingPrompter) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting) > 0
}

// Answer resolves every waiting prompt and returns how many there were.
func (p *PendingPrompter) Answer(granted bool) int {
	p.mu.Lock()
	waiting := p.waiting
	p.waiting = nil
	p.mu.Unlock()
	for _, ch := range waiting {
		ch <- granted
	}
	return len(waiting)
}

func (p *PendingPrompter) remove(ch chan bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.waiting {
		if w == ch {
			p.waiting = append(p.waiting[:i], p.waiting[i+1:]...)
			return
		}
	}
}

// Package tracker subscribes to a geolocation source and turns its callbacks
// into an ordered stream of fixes and acquisition errors.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"geo-reminder/internal/geo"
)

// WatchID identifies one active watch on a Geolocator.
type WatchID int64

// Options are passed through to the geolocation source.
type Options struct {
	HighAccuracy bool
	// Timeout is how long to wait for a fix before reporting a Timeout
	// error. Zero disables the watchdog.
	Timeout time.Duration
	// MaximumAge bounds how old a fix may be. Zero means cached fixes are
	// never accepted: a fix must be newer than the last one delivered.
	MaximumAge time.Duration
}

func DefaultOptions() Options {
	return Options{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 0}
}

// Geolocator is the platform's continuous position facility.
type Geolocator interface {
	Watch(opts Options, onFix func(geo.Position), onError func(error)) (WatchID, error)
	ClearWatch(id WatchID)
}

type Tracker struct {
	source Geolocator
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func New(source Geolocator, opts Options, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{source: source, opts: opts, logger: logger, now: time.Now}
}

// Start opens a single watch on the source. It fails synchronously with
// ErrCapabilityAbsent when the tracker has no source. The subscription is
// stopped when ctx is done or Stop is called.
func (t *Tracker) Start(ctx context.Context) (*Subscription, error) {
	if t.source == nil {
		return nil, ErrCapabilityAbsent
	}

	sub := &Subscription{
		source:  t.source,
		opts:    t.opts,
		logger:  t.logger,
		now:     t.now,
		updates: make(chan geo.Position, 16),
		errors:  make(chan error, 8),
		done:    make(chan struct{}),
	}

	id, err := t.source.Watch(t.opts, sub.deliver, sub.fail)
	if err != nil {
		return nil, fmt.Errorf("failed to watch position: %w", err)
	}
	sub.mu.Lock()
	sub.watchID = id
	sub.mu.Unlock()
	sub.armWatchdog()

	t.logger.Info("position tracking started",
		"watch_id", id, "high_accuracy", t.opts.HighAccuracy, "timeout", t.opts.Timeout)

	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Stop()
			case <-sub.done:
			}
		}()
	}
	return sub, nil
}

// Subscription is one active watch. Fixes arrive on Updates in platform
// order; acquisition errors on Errors. Both channels stay open after Stop;
// use Done to observe termination.
type Subscription struct {
	source Geolocator
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	updates chan geo.Position
	errors  chan error
	done    chan struct{}

	deliverMu sync.Mutex
	last      time.Time

	mu       sync.Mutex
	watchID  WatchID
	watchdog *time.Timer
	stopOnce sync.Once
}

func (s *Subscription) Updates() <-chan geo.Position { return s.updates }
func (s *Subscription) Errors() <-chan error         { return s.errors }
func (s *Subscription) Done() <-chan struct{}        { return s.done }

// Stop releases the platform watch. Safe to call more than once.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.watchdog != nil {
			s.watchdog.Stop()
		}
		id := s.watchID
		s.mu.Unlock()
		s.source.ClearWatch(id)
		s.logger.Info("position tracking stopped", "watch_id", id)
	})
}

func (s *Subscription) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Subscription) deliver(p geo.Position) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if s.stopped() {
		return
	}
	now := s.now()
	if p.Timestamp.IsZero() {
		p.Timestamp = now
	}
	if !s.last.IsZero() && !p.Timestamp.After(s.last) {
		s.logger.Debug("dropping cached fix", "timestamp", p.Timestamp, "last", s.last)
		return
	}
	if s.opts.MaximumAge > 0 && now.Sub(p.Timestamp) > s.opts.MaximumAge {
		s.logger.Debug("dropping stale fix", "age", now.Sub(p.Timestamp))
		return
	}
	s.last = p.Timestamp
	s.armWatchdog()

	select {
	case s.updates <- p:
	case <-s.done:
	}
}

func (s *Subscription) fail(err error) {
	if err == nil || s.stopped() {
		return
	}
	ae := asAcquisitionError(err)
	select {
	case s.errors <- ae:
	case <-s.done:
	default:
		s.logger.Warn("dropping acquisition error, consumer is behind", "error", ae)
	}
}

func (s *Subscription) armWatchdog() {
	if s.opts.Timeout <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchdog == nil {
		s.watchdog = time.AfterFunc(s.opts.Timeout, s.onTimeout)
		return
	}
	s.watchdog.Reset(s.opts.Timeout)
}

func (s *Subscription) onTimeout() {
	if s.stopped() {
		return
	}
	s.fail(&AcquisitionError{
		Code:    Timeout,
		Message: fmt.Sprintf("no position fix within %s", s.opts.Timeout),
	})
	s.mu.Lock()
	if !s.stopped() {
		s.watchdog.Reset(s.opts.Timeout)
	}
	s.mu.Unlock()
}

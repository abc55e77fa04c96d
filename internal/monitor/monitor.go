// Package monitor runs the geofencing loop: it follows the position
// tracker, evaluates the reminder snapshot on every fix and every refresh,
// and hands newly triggered reminders to the notification gate.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"geo-reminder/internal/events"
	"geo-reminder/internal/geo"
	"geo-reminder/internal/geofence"
	"geo-reminder/internal/idgen"
	"geo-reminder/internal/metrics"
	"geo-reminder/internal/notify"
	"geo-reminder/internal/reminder"
	"geo-reminder/internal/tracker"
)

var ErrAlreadyRunning = errors.New("monitor already running")

// ReminderLister supplies the reminder snapshot.
type ReminderLister interface {
	ListReminders(ctx context.Context, userID string) ([]*reminder.Reminder, error)
}

// TriggerRecorder stores trigger history. CreateTriggerEvent must replace an
// event with the same id.
type TriggerRecorder interface {
	CreateTriggerEvent(ctx context.Context, e *reminder.TriggerEvent) error
}

type Config struct {
	Tracker   *tracker.Tracker
	Evaluator *geofence.Evaluator
	Gate      *notify.Gate
	Reminders ReminderLister
	History   TriggerRecorder  // optional
	Publisher events.Publisher // optional
	Metrics   *metrics.Metrics // optional

	RadiusMeters float64
	UserID       string
}

// Status is what a client displays: the last fix and the last error.
type Status struct {
	Running    bool                   `json:"running"`
	Position   *geo.Position          `json:"position,omitempty"`
	LastError  string                 `json:"last_error,omitempty"`
	Reminders  int                    `json:"reminders"`
	Triggered  []string               `json:"triggered"`
	Permission notify.PermissionState `json:"permission"`
}

type Monitor struct {
	cfg     Config
	logger  *slog.Logger
	refresh chan struct{}

	mu        sync.Mutex
	running   bool
	position  *geo.Position
	lastError string
	snapshot  []*reminder.Reminder
}

func New(cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = geofence.NewEvaluator(nil, logger)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = &events.NoopPublisher{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	return &Monitor{
		cfg:     cfg,
		logger:  logger,
		refresh: make(chan struct{}, 1),
	}
}

// Run follows the tracker until ctx is done or the subscription stops.
// A tracker without a geolocation source fails immediately; the error is
// also reported by Status.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	stopped := make(chan struct{})
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		close(stopped)
	}()

	m.reload(ctx)

	sub, err := m.cfg.Tracker.Start(ctx)
	if err != nil {
		m.setError(err)
		m.logger.Error("position tracking unavailable", "error", err)
		return err
	}
	defer sub.Stop()

	m.logger.Info("geofence monitor started", "radius_meters", m.cfg.RadiusMeters, "user_id", m.cfg.UserID)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("geofence monitor stopped")
			return nil
		case <-sub.Done():
			m.logger.Info("position subscription ended")
			return nil
		case pos := <-sub.Updates():
			m.handleFix(ctx, stopped, pos)
		case err := <-sub.Errors():
			m.handleError(err)
		case <-m.refresh:
			m.reload(ctx)
			if pos := m.currentPosition(); pos != nil {
				m.evaluate(ctx, stopped, *pos)
			}
		}
	}
}

// Refresh asks a running monitor to reload the reminder snapshot and
// re-evaluate it against the last fix. Requests made while one is pending
// are merged.
func (m *Monitor) Refresh() {
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	s := Status{
		Running:   m.running,
		LastError: m.lastError,
		Reminders: len(m.snapshot),
	}
	if m.position != nil {
		p := *m.position
		s.Position = &p
	}
	m.mu.Unlock()

	s.Triggered = m.cfg.Evaluator.Triggered().IDs()
	if m.cfg.Gate != nil {
		s.Permission = m.cfg.Gate.State()
	}
	return s
}

func (m *Monitor) handleFix(ctx context.Context, stopped <-chan struct{}, pos geo.Position) {
	m.mu.Lock()
	m.position = &pos
	m.lastError = ""
	m.mu.Unlock()

	m.evaluate(ctx, stopped, pos)
	m.cfg.Metrics.Fixes.Inc()
}

func (m *Monitor) handleError(err error) {
	code := "unknown"
	var acqErr *tracker.AcquisitionError
	if errors.As(err, &acqErr) {
		code = acqErr.Code.String()
	}
	m.cfg.Metrics.AcquisitionErrors.WithLabelValues(code).Inc()
	m.setError(err)
	m.logger.Warn("position acquisition failed", "error", err, "code", code)
}

func (m *Monitor) setError(err error) {
	m.mu.Lock()
	m.lastError = err.Error()
	m.mu.Unlock()
}

func (m *Monitor) currentPosition() *geo.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// reload replaces the snapshot. On failure the previous snapshot is kept.
func (m *Monitor) reload(ctx context.Context) {
	if m.cfg.Reminders == nil {
		return
	}
	list, err := m.cfg.Reminders.ListReminders(ctx, m.cfg.UserID)
	if err != nil {
		m.setError(err)
		m.logger.Error("failed to load reminders", "error", err)
		return
	}
	m.mu.Lock()
	m.snapshot = list
	m.mu.Unlock()
	m.cfg.Metrics.Reminders.Set(float64(len(list)))
}

func (m *Monitor) evaluate(ctx context.Context, stopped <-chan struct{}, pos geo.Position) {
	m.mu.Lock()
	snapshot := m.snapshot
	m.mu.Unlock()

	start := time.Now()
	matches := m.cfg.Evaluator.Evaluate(pos, snapshot, m.cfg.RadiusMeters)
	m.cfg.Metrics.EvaluationSeconds.Observe(time.Since(start).Seconds())

	for _, match := range matches {
		m.trigger(ctx, stopped, pos, match)
	}
}

func (m *Monitor) trigger(ctx context.Context, stopped <-chan struct{}, pos geo.Position, match geofence.Match) {
	r := match.Reminder
	m.cfg.Metrics.RemindersTriggered.Inc()
	m.logger.Info("reminder triggered",
		"reminder_id", r.ID, "task", r.Task, "distance_meters", match.DistanceMeters)

	ev := &reminder.TriggerEvent{
		ReminderID:     r.ID,
		TriggeredAt:    time.Now().UTC(),
		Position:       pos,
		DistanceMeters: match.DistanceMeters,
	}
	id, err := idgen.TriggerID()
	if err != nil {
		m.logger.Error("failed to generate trigger id", "error", err)
	}
	ev.ID = id
	m.record(ctx, ev)

	err = m.cfg.Publisher.Publish(ctx, events.TopicReminderTriggered, events.ReminderTriggered{
		EventID:        ev.ID,
		ReminderID:     r.ID,
		UserID:         r.UserID,
		Task:           r.Task,
		LocationName:   r.LocationName,
		Position:       pos,
		DistanceMeters: match.DistanceMeters,
		TriggeredAt:    ev.TriggeredAt,
	})
	if err != nil {
		m.logger.Warn("failed to publish trigger event", "reminder_id", r.ID, "error", err)
	}

	if m.cfg.Gate == nil {
		m.cfg.Metrics.NotificationsSuppressed.Inc()
		return
	}
	// The prompt outlives the run context; its answer is ignored once the
	// monitor has stopped.
	detached := context.WithoutCancel(ctx)
	go m.notify(detached, stopped, r, ev)
}

func (m *Monitor) notify(ctx context.Context, stopped <-chan struct{}, r *reminder.Reminder, ev *reminder.TriggerEvent) {
	granted := m.cfg.Gate.EnsurePermission(ctx)
	select {
	case <-stopped:
		m.logger.Debug("discarding notification after stop", "reminder_id", r.ID)
		return
	default:
	}
	if !granted {
		m.cfg.Metrics.NotificationsSuppressed.Inc()
		m.logger.Info("notification suppressed", "reminder_id", r.ID, "permission", m.cfg.Gate.State())
		return
	}

	shown, err := m.cfg.Gate.Notify(ctx, r)
	switch {
	case err != nil:
		m.cfg.Metrics.NotificationErrors.Inc()
		m.logger.Error("failed to show notification", "reminder_id", r.ID, "error", err)
	case shown:
		m.cfg.Metrics.NotificationsSent.Inc()
		notified := *ev
		notified.Notified = true
		m.record(ctx, &notified)
	default:
		m.cfg.Metrics.NotificationsSuppressed.Inc()
	}
}

func (m *Monitor) record(ctx context.Context, ev *reminder.TriggerEvent) {
	if m.cfg.History == nil || ev.ID == "" {
		return
	}
	if err := m.cfg.History.CreateTriggerEvent(ctx, ev); err != nil {
		m.logger.Error("failed to record trigger event", "reminder_id", ev.ReminderID, "error", err)
	}
}

// Package geofence decides which reminders have newly entered their trigger
// radius.
package geofence

import (
	"errors"
	"log/slog"

	"geo-reminder/internal/geo"
	"geo-reminder/internal/reminder"
)

// Match is a reminder that entered its radius during an evaluation.
type Match struct {
	Reminder       *reminder.Reminder
	DistanceMeters float64
}

type Evaluator struct {
	triggered *TriggeredSet
	logger    *slog.Logger
}

func NewEvaluator(triggered *TriggeredSet, logger *slog.Logger) *Evaluator {
	if triggered == nil {
		triggered = NewTriggeredSet()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{triggered: triggered, logger: logger}
}

func (e *Evaluator) Triggered() *TriggeredSet {
	return e.triggered
}

// Evaluate scans reminders against pos and returns the ones that are within
// radiusMeters (inclusive) and have not fired before. Returned reminders are
// already marked in the triggered set, so concurrent or repeated calls never
// return the same reminder twice.
func (e *Evaluator) Evaluate(pos geo.Position, reminders []*reminder.Reminder, radiusMeters float64) []Match {
	var matches []Match
	for _, r := range reminders {
		if r == nil || !r.Geofenced() {
			continue
		}
		if e.triggered.Has(r.ID) {
			continue
		}

		distance := geo.HaversineDistanceMeters(pos.Coordinate, *r.Coordinates)
		if !(distance <= radiusMeters) {
			continue
		}

		schedule, err := r.Frequency.Schedule()
		switch {
		case errors.Is(err, reminder.ErrRecurrenceUnsupported):
			e.logger.Warn("recurring frequency not implemented, firing once",
				"reminder_id", r.ID, "frequency", r.Frequency)
		case err != nil:
			e.logger.Warn("skipping reminder with unknown frequency",
				"reminder_id", r.ID, "frequency", r.Frequency)
			continue
		}

		if !schedule.Rearms() && !e.triggered.MarkIfAbsent(r.ID) {
			continue
		}

		e.logger.Info("entered reminder radius",
			"reminder_id", r.ID, "task", r.Task, "distance_m", distance, "radius_m", radiusMeters)
		matches = append(matches, Match{Reminder: r, DistanceMeters: distance})
	}
	return matches
}

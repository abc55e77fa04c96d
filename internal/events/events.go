package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"geo-reminder/internal/geo"
)

const (
	TopicReminderTriggered = "georeminder.reminder.triggered"
	TopicNotificationShown = "georeminder.notification.shown"

	// DefaultPositionSubject is where devices publish fixes.
	DefaultPositionSubject = "georeminder.positions"
)

type ReminderTriggered struct {
	EventID        string       `json:"event_id"`
	ReminderID     string       `json:"reminder_id"`
	UserID         string       `json:"user_id,omitempty"`
	Task           string       `json:"task"`
	LocationName   string       `json:"location_name"`
	Position       geo.Position `json:"position"`
	DistanceMeters float64      `json:"distance_meters"`
	TriggeredAt    time.Time    `json:"triggered_at"`
}

type NotificationShown struct {
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	ShownAt time.Time `json:"shown_at"`
}

func NewNotificationShown(title, body string) NotificationShown {
	return NotificationShown{
		EventID: uuid.NewString(),
		Title:   title,
		Body:    body,
		ShownAt: time.Now().UTC(),
	}
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

package storage

import (
	"context"
	"errors"
	"sort"

	"geo-reminder/internal/reminder"
)

// ErrNotFound is returned (wrapped) when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the interface for persisting reminders and their trigger
// history. CreateReminder replaces an existing reminder with the same id.
type Storage interface {
	// Reminder operations
	CreateReminder(ctx context.Context, r *reminder.Reminder) error
	GetReminder(ctx context.Context, id string) (*reminder.Reminder, error)
	// ListReminders returns reminders newest first. An empty userID lists
	// every reminder.
	ListReminders(ctx context.Context, userID string) ([]*reminder.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error

	// TriggerEvent operations
	CreateTriggerEvent(ctx context.Context, e *reminder.TriggerEvent) error
	ListTriggerEvents(ctx context.Context, reminderID string) ([]*reminder.TriggerEvent, error)

	Close() error
}

func sortNewestFirst(list []*reminder.Reminder) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func sortEventsOldestFirst(list []*reminder.TriggerEvent) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].TriggeredAt.Before(list[j].TriggeredAt)
	})
}

func visibleTo(r *reminder.Reminder, userID string) bool {
	return userID == "" || r.UserID == userID
}

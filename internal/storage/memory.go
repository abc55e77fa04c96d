package storage

import (
	"context"
	"fmt"
	"sync"

	"geo-reminder/internal/reminder"
)

type MemoryStorage struct {
	reminders     map[string]*reminder.Reminder
	triggerEvents map[string]*reminder.TriggerEvent
	mu            sync.Mutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		reminders:     make(map[string]*reminder.Reminder),
		triggerEvents: make(map[string]*reminder.TriggerEvent),
	}
}

// Reminder operations
func (m *MemoryStorage) CreateReminder(_ context.Context, r *reminder.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders[r.ID] = r.Clone()
	return nil
}

func (m *MemoryStorage) GetReminder(_ context.Context, id string) (*reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	return r.Clone(), nil
}

func (m *MemoryStorage) ListReminders(_ context.Context, userID string) ([]*reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*reminder.Reminder
	for _, r := range m.reminders {
		if visibleTo(r, userID) {
			list = append(list, r.Clone())
		}
	}
	sortNewestFirst(list)
	return list, nil
}

func (m *MemoryStorage) DeleteReminder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reminders[id]; !ok {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	delete(m.reminders, id)
	return nil
}

// TriggerEvent operations
func (m *MemoryStorage) CreateTriggerEvent(_ context.Context, e *reminder.TriggerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := *e
	m.triggerEvents[e.ID] = &ev
	return nil
}

func (m *MemoryStorage) ListTriggerEvents(_ context.Context, reminderID string) ([]*reminder.TriggerEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*reminder.TriggerEvent
	for _, e := range m.triggerEvents {
		if e.ReminderID == reminderID {
			ev := *e
			list = append(list, &ev)
		}
	}
	sortEventsOldestFirst(list)
	return list, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

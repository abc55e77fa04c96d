package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"geo-reminder/internal/reminder"
)

// FileStorage keeps reminders and trigger events in two JSON files. Every
// write replaces the file atomically.
type FileStorage struct {
	reminderFile     string
	triggerEventFile string
	mu               sync.Mutex
}

func NewFileStorage(reminderFile, triggerEventFile string) *FileStorage {
	return &FileStorage{
		reminderFile:     reminderFile,
		triggerEventFile: triggerEventFile,
	}
}

// NewFileStorageInDir uses reminders.json and trigger_events.json under dir.
func NewFileStorageInDir(dir string) *FileStorage {
	return NewFileStorage(filepath.Join(dir, "reminders.json"), filepath.Join(dir, "trigger_events.json"))
}

func loadJSON[T any](path string) (map[string]*T, error) {
	items := make(map[string]*T)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return items, nil
}

func saveJSON[T any](path string, items map[string]*T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Reminder operations
func (fs *FileStorage) CreateReminder(_ context.Context, r *reminder.Reminder) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	reminders, err := loadJSON[reminder.Reminder](fs.reminderFile)
	if err != nil {
		return err
	}
	reminders[r.ID] = r
	return saveJSON(fs.reminderFile, reminders)
}

func (fs *FileStorage) GetReminder(_ context.Context, id string) (*reminder.Reminder, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	reminders, err := loadJSON[reminder.Reminder](fs.reminderFile)
	if err != nil {
		return nil, err
	}
	r, ok := reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	return r, nil
}

func (fs *FileStorage) ListReminders(_ context.Context, userID string) ([]*reminder.Reminder, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	reminders, err := loadJSON[reminder.Reminder](fs.reminderFile)
	if err != nil {
		return nil, err
	}
	var list []*reminder.Reminder
	for _, r := range reminders {
		if visibleTo(r, userID) {
			list = append(list, r)
		}
	}
	sortNewestFirst(list)
	return list, nil
}

func (fs *FileStorage) DeleteReminder(_ context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	reminders, err := loadJSON[reminder.Reminder](fs.reminderFile)
	if err != nil {
		return err
	}
	if _, ok := reminders[id]; !ok {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	delete(reminders, id)
	return saveJSON(fs.reminderFile, reminders)
}

// TriggerEvent operations
func (fs *FileStorage) CreateTriggerEvent(_ context.Context, e *reminder.TriggerEvent) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	events, err := loadJSON[reminder.TriggerEvent](fs.triggerEventFile)
	if err != nil {
		return err
	}
	events[e.ID] = e
	return saveJSON(fs.triggerEventFile, events)
}

func (fs *FileStorage) ListTriggerEvents(_ context.Context, reminderID string) ([]*reminder.TriggerEvent, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	events, err := loadJSON[reminder.TriggerEvent](fs.triggerEventFile)
	if err != nil {
		return nil, err
	}
	var list []*reminder.TriggerEvent
	for _, e := range events {
		if e.ReminderID == reminderID {
			list = append(list, e)
		}
	}
	sortEventsOldestFirst(list)
	return list, nil
}

func (fs *FileStorage) Close() error {
	return nil
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"geo-reminder/internal/geo"
	"geo-reminder/internal/reminder"
)

var baseTime = time.Date(2025, 5, 21, 10, 0, 0, 0, time.UTC)

func testReminder(id, userID, task string, created time.Time, coords *geo.Coordinate) *reminder.Reminder {
	return &reminder.Reminder{
		ID:           id,
		UserID:       userID,
		Task:         task,
		LocationName: "Padaria Central",
		Address:      "Rua Augusta, 100",
		Frequency:    reminder.Once,
		Notes:        "bring bags",
		Coordinates:  coords,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func testTriggerEvent(id, reminderID string, at time.Time) *reminder.TriggerEvent {
	return &reminder.TriggerEvent{
		ID:          id,
		ReminderID:  reminderID,
		TriggeredAt: at,
		Position: geo.Position{
			Coordinate: geo.Coordinate{Longitude: -46.6333, Latitude: -23.5505},
			Accuracy:   12.5,
			Timestamp:  at.Add(-time.Second),
		},
		DistanceMeters: 42.5,
		Notified:       true,
	}
}

func reminderIDs(list []*reminder.Reminder) []string {
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func runStorageTests(t *testing.T, store Storage) {
	ctx := context.Background()

	// Reminder CRUD
	r1 := testReminder("rem-1", "alice", "Buy bread", baseTime, &geo.Coordinate{Longitude: -46.6333, Latitude: -23.5505})
	r2 := testReminder("rem-2", "bob", "Pick up parcel", baseTime.Add(time.Hour), nil)
	for _, r := range []*reminder.Reminder{r1, r2} {
		if err := store.CreateReminder(ctx, r); err != nil {
			t.Fatalf("CreateReminder(%s) failed: %v", r.ID, err)
		}
	}

	got, err := store.GetReminder(ctx, r1.ID)
	if err != nil {
		t.Fatalf("GetReminder failed: %v", err)
	}
	if got.ID != r1.ID || got.Task != r1.Task || got.UserID != r1.UserID ||
		got.LocationName != r1.LocationName || got.Address != r1.Address ||
		got.Frequency != r1.Frequency || got.Notes != r1.Notes {
		t.Errorf("GetReminder: got %+v, want %+v", got, r1)
	}
	if got.Coordinates == nil || *got.Coordinates != *r1.Coordinates {
		t.Errorf("GetReminder coordinates: got %v, want %v", got.Coordinates, r1.Coordinates)
	}
	if !got.CreatedAt.Equal(r1.CreatedAt) {
		t.Errorf("GetReminder created_at: got %v, want %v", got.CreatedAt, r1.CreatedAt)
	}

	got2, err := store.GetReminder(ctx, r2.ID)
	if err != nil {
		t.Fatalf("GetReminder failed: %v", err)
	}
	if got2.Coordinates != nil || got2.Geofenced() {
		t.Errorf("reminder without a place came back with coordinates %v", got2.Coordinates)
	}

	if _, err := store.GetReminder(ctx, "rem-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReminder missing: got %v, want ErrNotFound", err)
	}

	all, err := store.ListReminders(ctx, "")
	if err != nil {
		t.Fatalf("ListReminders failed: %v", err)
	}
	if ids := reminderIDs(all); !equalIDs(ids, []string{"rem-2", "rem-1"}) {
		t.Errorf("ListReminders: got %v, want newest first [rem-2 rem-1]", ids)
	}

	alice, err := store.ListReminders(ctx, "alice")
	if err != nil {
		t.Fatalf("ListReminders(alice) failed: %v", err)
	}
	if ids := reminderIDs(alice); !equalIDs(ids, []string{"rem-1"}) {
		t.Errorf("ListReminders(alice): got %v, want [rem-1]", ids)
	}

	// Create with an existing id replaces.
	updated := r1.Clone()
	updated.Task = "Buy bread and milk"
	if err := store.CreateReminder(ctx, updated); err != nil {
		t.Fatalf("CreateReminder (replace) failed: %v", err)
	}
	got, err = store.GetReminder(ctx, r1.ID)
	if err != nil {
		t.Fatalf("GetReminder after replace failed: %v", err)
	}
	if got.Task != "Buy bread and milk" {
		t.Errorf("replace: got task %q", got.Task)
	}
	if all, _ := store.ListReminders(ctx, ""); len(all) != 2 {
		t.Errorf("replace created a duplicate: got %d reminders, want 2", len(all))
	}

	// TriggerEvent operations
	late := testTriggerEvent("trg-2", r1.ID, baseTime.Add(2*time.Hour))
	early := testTriggerEvent("trg-1", r1.ID, baseTime.Add(time.Hour))
	other := testTriggerEvent("trg-3", r2.ID, baseTime.Add(3*time.Hour))
	for _, e := range []*reminder.TriggerEvent{late, early, other} {
		if err := store.CreateTriggerEvent(ctx, e); err != nil {
			t.Fatalf("CreateTriggerEvent(%s) failed: %v", e.ID, err)
		}
	}
	evs, err := store.ListTriggerEvents(ctx, r1.ID)
	if err != nil {
		t.Fatalf("ListTriggerEvents failed: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("ListTriggerEvents: got %d, want 2", len(evs))
	}
	if evs[0].ID != "trg-1" || evs[1].ID != "trg-2" {
		t.Errorf("ListTriggerEvents: got [%s %s], want oldest first [trg-1 trg-2]", evs[0].ID, evs[1].ID)
	}
	ev := evs[0]
	if ev.Position.Coordinate != early.Position.Coordinate || ev.Position.Accuracy != early.Position.Accuracy {
		t.Errorf("trigger event position: got %+v, want %+v", ev.Position, early.Position)
	}
	if !ev.Position.Timestamp.Equal(early.Position.Timestamp) || !ev.TriggeredAt.Equal(early.TriggeredAt) {
		t.Errorf("trigger event times: got %v/%v, want %v/%v",
			ev.TriggeredAt, ev.Position.Timestamp, early.TriggeredAt, early.Position.Timestamp)
	}
	if ev.DistanceMeters != early.DistanceMeters || !ev.Notified {
		t.Errorf("trigger event: got %+v, want %+v", ev, early)
	}
	if evs, _ := store.ListTriggerEvents(ctx, "rem-missing"); len(evs) != 0 {
		t.Errorf("ListTriggerEvents(missing): got %d, want 0", len(evs))
	}

	if err := store.DeleteReminder(ctx, r1.ID); err != nil {
		t.Errorf("DeleteReminder failed: %v", err)
	}
	if _, err := store.GetReminder(ctx, r1.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after DeleteReminder, got %v", err)
	}
	if err := store.DeleteReminder(ctx, r1.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteReminder: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStorage(t *testing.T) {
	store := NewMemoryStorage()
	runStorageTests(t, store)
}

func TestMemoryStorageReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	r := testReminder("rem-1", "", "Buy bread", baseTime, &geo.Coordinate{Longitude: 1, Latitude: 2})
	if err := store.CreateReminder(ctx, r); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	r.Coordinates.Latitude = 50

	got, _ := store.GetReminder(ctx, "rem-1")
	got.Task = "changed"
	again, _ := store.GetReminder(ctx, "rem-1")
	if again.Task != "Buy bread" || again.Coordinates.Latitude != 2 {
		t.Errorf("stored reminder was mutated through a caller's pointer: %+v", again)
	}
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStorage(filepath.Join(dir, "reminders.json"), filepath.Join(dir, "trigger_events.json"))
	runStorageTests(t, store)
}

func TestFileStoragePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := NewFileStorageInDir(dir)
	r := testReminder("rem-1", "alice", "Buy bread", baseTime, &geo.Coordinate{Longitude: -46.6333, Latitude: -23.5505})
	if err := store.CreateReminder(ctx, r); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	if err := store.CreateTriggerEvent(ctx, testTriggerEvent("trg-1", r.ID, baseTime)); err != nil {
		t.Fatalf("CreateTriggerEvent failed: %v", err)
	}

	// Reload storage and check data is restored
	store2 := NewFileStorageInDir(dir)
	got, err := store2.GetReminder(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetReminder after reload failed: %v", err)
	}
	if got.Task != r.Task || got.Coordinates == nil || *got.Coordinates != *r.Coordinates {
		t.Errorf("reloaded reminder: got %+v, want %+v", got, r)
	}
	evs, err := store2.ListTriggerEvents(ctx, r.ID)
	if err != nil || len(evs) != 1 {
		t.Errorf("reloaded trigger events: got %d (%v), want 1", len(evs), err)
	}
}

func TestFileStorageEmptyDir(t *testing.T) {
	store := NewFileStorageInDir(t.TempDir())
	list, err := store.ListReminders(context.Background(), "")
	if err != nil {
		t.Fatalf("ListReminders on missing files failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListReminders: got %d, want 0", len(list))
	}
}

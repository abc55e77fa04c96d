package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"geo-reminder/internal/geo"
	"geo-reminder/internal/reminder"
)

type SQLiteStorage struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	s := &SQLiteStorage{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reminders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			task TEXT NOT NULL,
			location_name TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			frequency TEXT NOT NULL DEFAULT 'once',
			notes TEXT NOT NULL DEFAULT '',
			longitude REAL, -- NULL when no place was selected
			latitude REAL,
			created_at TEXT NOT NULL, -- RFC 3339
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS reminders_user_id ON reminders (user_id)`,
		`CREATE TABLE IF NOT EXISTS trigger_events (
			id TEXT PRIMARY KEY,
			reminder_id TEXT NOT NULL,
			triggered_at TEXT NOT NULL,
			longitude REAL NOT NULL,
			latitude REAL NOT NULL,
			accuracy REAL NOT NULL,
			fix_timestamp TEXT NOT NULL,
			distance_meters REAL NOT NULL,
			notified BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS trigger_events_reminder_id ON trigger_events (reminder_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}
	return nil
}

const reminderColumns = `id, user_id, task, location_name, address, frequency, notes,
	longitude, latitude, created_at, updated_at`

// Reminder operations
func (s *SQLiteStorage) CreateReminder(ctx context.Context, r *reminder.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lon, lat *float64
	if r.Coordinates != nil {
		lon, lat = &r.Coordinates.Longitude, &r.Coordinates.Latitude
	}

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO reminders (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Task, r.LocationName, r.Address, string(r.Frequency), r.Notes,
		lon, lat, formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create/update reminder: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*reminder.Reminder, error) {
	var (
		r                    reminder.Reminder
		freq                 string
		lon, lat             sql.NullFloat64
		createdAt, updatedAt string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Task, &r.LocationName, &r.Address, &freq, &r.Notes,
		&lon, &lat, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.Frequency = reminder.Frequency(freq)
	if lon.Valid && lat.Valid {
		r.Coordinates = &geo.Coordinate{Longitude: lon.Float64, Latitude: lat.Float64}
	}
	var err error
	if r.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if r.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStorage) GetReminder(ctx context.Context, id string) (*reminder.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return r, nil
}

func (s *SQLiteStorage) ListReminders(ctx context.Context, userID string) ([]*reminder.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT ` + reminderColumns + ` FROM reminders`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	// RFC 3339 strings with fractional seconds do not sort lexically.
	sortNewestFirst(reminders)
	return reminders, nil
}

func (s *SQLiteStorage) DeleteReminder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	return nil
}

// TriggerEvent operations
func (s *SQLiteStorage) CreateTriggerEvent(ctx context.Context, e *reminder.TriggerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO trigger_events
		(id, reminder_id, triggered_at, longitude, latitude, accuracy, fix_timestamp, distance_meters, notified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ReminderID, formatTime(e.TriggeredAt),
		e.Position.Longitude, e.Position.Latitude, e.Position.Accuracy, formatTime(e.Position.Timestamp),
		e.DistanceMeters, e.Notified)
	if err != nil {
		return fmt.Errorf("failed to create trigger event: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListTriggerEvents(ctx context.Context, reminderID string) ([]*reminder.TriggerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, reminder_id, triggered_at, longitude, latitude,
		accuracy, fix_timestamp, distance_meters, notified
		FROM trigger_events WHERE reminder_id = ?`, reminderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trigger events: %w", err)
	}
	defer rows.Close()

	var events []*reminder.TriggerEvent
	for rows.Next() {
		var (
			e                         reminder.TriggerEvent
			triggeredAt, fixTimestamp string
		)
		if err := rows.Scan(&e.ID, &e.ReminderID, &triggeredAt, &e.Position.Longitude, &e.Position.Latitude,
			&e.Position.Accuracy, &fixTimestamp, &e.DistanceMeters, &e.Notified); err != nil {
			return nil, fmt.Errorf("failed to scan trigger event: %w", err)
		}
		if e.TriggeredAt, err = parseTimeString(triggeredAt); err != nil {
			return nil, fmt.Errorf("failed to parse triggered_at: %w", err)
		}
		if e.Position.Timestamp, err = parseTimeString(fixTimestamp); err != nil {
			return nil, fmt.Errorf("failed to parse fix timestamp: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list trigger events: %w", err)
	}
	sortEventsOldestFirst(events)
	return events, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimeString parses a time string in ISO 8601 format
func parseTimeString(timeStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time string: %s", timeStr)
}

package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"geo-reminder/internal/geo"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid reminder")

type Reminder struct {
	ID           string          `json:"id" bson:"id" dynamodbav:"id"`
	UserID       string          `json:"user_id,omitempty" bson:"user_id,omitempty" dynamodbav:"user_id,omitempty"`
	Task         string          `json:"task" bson:"task" dynamodbav:"task"`
	LocationName string          `json:"location_name" bson:"location_name" dynamodbav:"location_name"`
	Address      string          `json:"address" bson:"address" dynamodbav:"address"`
	Frequency    Frequency       `json:"frequency" bson:"frequency" dynamodbav:"frequency"`
	Notes        string          `json:"notes" bson:"notes" dynamodbav:"notes"`
	Coordinates  *geo.Coordinate `json:"coordinates,omitempty" bson:"coordinates,omitempty" dynamodbav:"coordinates,omitempty"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" bson:"updated_at" dynamodbav:"updated_at"`
}

func NewReminder(id, userID, task, locationName, address string, freq Frequency, coords *geo.Coordinate) *Reminder {
	now := time.Now().UTC()
	if freq == "" {
		freq = Once
	}
	return &Reminder{
		ID:           id,
		UserID:       userID,
		Task:         task,
		LocationName: locationName,
		Address:      address,
		Frequency:    freq,
		Coordinates:  coords,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Geofenced reports whether the reminder carries a usable coordinate.
func (r *Reminder) Geofenced() bool {
	return r.Coordinates != nil && r.Coordinates.Valid()
}

func (r *Reminder) Validate() error {
	if strings.TrimSpace(r.Task) == "" {
		return fmt.Errorf("%w: task is required", ErrInvalid)
	}
	if !r.Frequency.Known() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalid, r.Frequency)
	}
	if r.Coordinates != nil && !r.Coordinates.Valid() {
		return fmt.Errorf("%w: coordinates %s out of range", ErrInvalid, r.Coordinates)
	}
	return nil
}

func (r *Reminder) Touch() {
	r.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so snapshots handed to the geofencing loop are
// isolated from later edits.
func (r *Reminder) Clone() *Reminder {
	c := *r
	if r.Coordinates != nil {
		coords := *r.Coordinates
		c.Coordinates = &coords
	}
	return &c
}

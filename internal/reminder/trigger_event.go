package reminder

import (
	"time"

	"geo-reminder/internal/geo"
)

// TriggerEvent records a reminder entering its geofence.
type TriggerEvent struct {
	ID             string       `json:"id" bson:"id" dynamodbav:"id"`
	ReminderID     string       `json:"reminder_id" bson:"reminder_id" dynamodbav:"reminder_id"`
	TriggeredAt    time.Time    `json:"triggered_at" bson:"triggered_at" dynamodbav:"triggered_at"`
	Position       geo.Position `json:"position" bson:"position" dynamodbav:"position"`
	DistanceMeters float64      `json:"distance_meters" bson:"distance_meters" dynamodbav:"distance_meters"`
	Notified       bool         `json:"notified" bson:"notified" dynamodbav:"notified"`
}

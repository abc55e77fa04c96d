package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"geo-reminder/internal/reminder"
)

// MongoStorage implements the Storage interface using MongoDB
type MongoStorage struct {
	client                 *mongo.Client
	database               *mongo.Database
	reminderCollection     *mongo.Collection
	triggerEventCollection *mongo.Collection
}

// NewMongoStorage creates a new MongoDB storage instance
func NewMongoStorage(connectionString, databaseName string) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Test the connection
	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(databaseName)

	ms := &MongoStorage{
		client:                 client,
		database:               database,
		reminderCollection:     database.Collection("reminders"),
		triggerEventCollection: database.Collection("trigger_events"),
	}

	if err := ms.createIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return ms, nil
}

// Close closes the MongoDB connection
func (ms *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

func (ms *MongoStorage) createIndexes(ctx context.Context) error {
	_, err := ms.reminderCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = ms.triggerEventCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reminder_id", Value: 1}, {Key: "triggered_at", Value: 1}}},
	})
	return err
}

// Reminder operations
func (ms *MongoStorage) CreateReminder(ctx context.Context, r *reminder.Reminder) error {
	filter := bson.M{"id": r.ID}
	opts := options.Replace().SetUpsert(true)
	_, err := ms.reminderCollection.ReplaceOne(ctx, filter, r, opts)
	if err != nil {
		return fmt.Errorf("failed to create/update reminder: %w", err)
	}
	return nil
}

func (ms *MongoStorage) GetReminder(ctx context.Context, id string) (*reminder.Reminder, error) {
	var r reminder.Reminder
	err := ms.reminderCollection.FindOne(ctx, bson.M{"id": id}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return &r, nil
}

func (ms *MongoStorage) ListReminders(ctx context.Context, userID string) ([]*reminder.Reminder, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: 1}})

	cursor, err := ms.reminderCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var reminders []*reminder.Reminder
	for cursor.Next(ctx) {
		var r reminder.Reminder
		if err := cursor.Decode(&r); err != nil {
			return nil, fmt.Errorf("failed to decode reminder: %w", err)
		}
		reminders = append(reminders, &r)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return reminders, nil
}

func (ms *MongoStorage) DeleteReminder(ctx context.Context, id string) error {
	res, err := ms.reminderCollection.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	return nil
}

// TriggerEvent operations
func (ms *MongoStorage) CreateTriggerEvent(ctx context.Context, e *reminder.TriggerEvent) error {
	filter := bson.M{"id": e.ID}
	opts := options.Replace().SetUpsert(true)
	_, err := ms.triggerEventCollection.ReplaceOne(ctx, filter, e, opts)
	if err != nil {
		return fmt.Errorf("failed to create trigger event: %w", err)
	}
	return nil
}

func (ms *MongoStorage) ListTriggerEvents(ctx context.Context, reminderID string) ([]*reminder.TriggerEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "triggered_at", Value: 1}})
	cursor, err := ms.triggerEventCollection.Find(ctx, bson.M{"reminder_id": reminderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list trigger events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*reminder.TriggerEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode trigger events: %w", err)
	}
	return events, nil
}

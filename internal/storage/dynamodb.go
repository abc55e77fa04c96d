package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"geo-reminder/internal/reminder"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStorage.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStorage implements Storage with two DynamoDB tables keyed on "id".
type DynamoStorage struct {
	client            DynamoAPI
	reminderTable     string
	triggerEventTable string
}

// NewDynamoStorage loads the default AWS configuration for region and
// returns a store backed by the given tables.
func NewDynamoStorage(ctx context.Context, region, reminderTable, triggerEventTable string) (*DynamoStorage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewDynamoStorageWithClient(dynamodb.NewFromConfig(cfg), reminderTable, triggerEventTable), nil
}

func NewDynamoStorageWithClient(client DynamoAPI, reminderTable, triggerEventTable string) *DynamoStorage {
	return &DynamoStorage{
		client:            client,
		reminderTable:     reminderTable,
		triggerEventTable: triggerEventTable,
	}
}

func (d *DynamoStorage) Close() error { return nil }

func idKey(id string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		"id": &dynamodbtypes.AttributeValueMemberS{Value: id},
	}
}

func (d *DynamoStorage) CreateReminder(ctx context.Context, r *reminder.Reminder) error {
	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.reminderTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save reminder to DynamoDB: %w", err)
	}
	return nil
}

func (d *DynamoStorage) GetReminder(ctx context.Context, id string) (*reminder.Reminder, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.reminderTable),
		Key:       idKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}

	var r reminder.Reminder
	if err := attributevalue.UnmarshalMap(result.Item, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reminder: %w", err)
	}
	return &r, nil
}

// scanAll pages through table, applying an optional equality filter.
func (d *DynamoStorage) scanAll(ctx context.Context, table, attr, value string) ([]map[string]dynamodbtypes.AttributeValue, error) {
	var items []map[string]dynamodbtypes.AttributeValue
	var lastEvaluatedKey map[string]dynamodbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(table),
		}
		if value != "" {
			input.FilterExpression = aws.String("#a = :v")
			input.ExpressionAttributeNames = map[string]string{"#a": attr}
			input.ExpressionAttributeValues = map[string]dynamodbtypes.AttributeValue{
				":v": &dynamodbtypes.AttributeValueMemberS{Value: value},
			}
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := d.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)

		lastEvaluatedKey = result.LastEvaluatedKey
		if len(lastEvaluatedKey) == 0 {
			return items, nil
		}
	}
}

func (d *DynamoStorage) ListReminders(ctx context.Context, userID string) ([]*reminder.Reminder, error) {
	items, err := d.scanAll(ctx, d.reminderTable, "user_id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reminders: %w", err)
	}

	var reminders []*reminder.Reminder
	if err := attributevalue.UnmarshalListOfMaps(items, &reminders); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reminders: %w", err)
	}
	sortNewestFirst(reminders)
	return reminders, nil
}

func (d *DynamoStorage) DeleteReminder(ctx context.Context, id string) error {
	result, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.reminderTable),
		Key:          idKey(id),
		ReturnValues: dynamodbtypes.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if len(result.Attributes) == 0 {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	return nil
}

func (d *DynamoStorage) CreateTriggerEvent(ctx context.Context, e *reminder.TriggerEvent) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger event: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.triggerEventTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save trigger event to DynamoDB: %w", err)
	}
	return nil
}

func (d *DynamoStorage) ListTriggerEvents(ctx context.Context, reminderID string) ([]*reminder.TriggerEvent, error) {
	if reminderID == "" {
		return nil, nil
	}
	items, err := d.scanAll(ctx, d.triggerEventTable, "reminder_id", reminderID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trigger events: %w", err)
	}

	var events []*reminder.TriggerEvent
	if err := attributevalue.UnmarshalListOfMaps(items, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger events: %w", err)
	}
	sortEventsOldestFirst(events)
	return events, nil
}

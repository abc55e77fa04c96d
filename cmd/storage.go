package main

import (
	"context"
	"fmt"

	"geo-reminder/internal/config"
	"geo-reminder/internal/storage"
)

// openStorage initializes the backend named by c.Storage.
func openStorage(ctx context.Context, c *config.Config) (storage.Storage, error) {
	switch c.Storage {
	case "memory":
		logger.Info("using memory storage")
		return storage.NewMemoryStorage(), nil
	case "file":
		logger.Info("using file storage", "dir", c.DataDir)
		return storage.NewFileStorageInDir(c.DataDir), nil
	case "sqlite":
		logger.Info("using SQLite storage", "path", c.SQLitePath)
		return storage.NewSQLiteStorage(c.SQLitePath)
	case "mongo":
		logger.Info("using MongoDB storage", "database", c.MongoDatabase)
		return storage.NewMongoStorage(c.MongoURL, c.MongoDatabase)
	case "dynamodb":
		logger.Info("using DynamoDB storage", "table", c.DynamoTable, "events_table", c.DynamoEventsTable, "region", c.AWSRegion)
		return storage.NewDynamoStorage(ctx, c.AWSRegion, c.DynamoTable, c.DynamoEventsTable)
	}
	return nil, fmt.Errorf("invalid storage type: %s. Valid options are: memory, file, sqlite, mongo, dynamodb", c.Storage)
}

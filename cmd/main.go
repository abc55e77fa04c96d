package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"geo-reminder/internal/config"
)

var (
	cfg      = mustLoadConfig()
	logLevel string
	logger   = slog.Default()
)

func mustLoadConfig() *config.Config {
	c, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return c
}

var rootCmd = &cobra.Command{
	Use:   "geo-reminder",
	Short: "Location-triggered reminders",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return cfg.Validate()
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage backend to use: memory, file, sqlite, mongo or dynamodb")
	pf.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for JSON files (used when storage=file)")
	pf.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file (used when storage=sqlite)")
	pf.StringVar(&cfg.MongoURL, "mongo-conn", cfg.MongoURL, "MongoDB connection string (used when storage=mongo)")
	pf.StringVar(&cfg.MongoDatabase, "mongo-db", cfg.MongoDatabase, "MongoDB database name (used when storage=mongo)")
	pf.StringVar(&cfg.DynamoTable, "dynamo-table", cfg.DynamoTable, "DynamoDB reminders table (used when storage=dynamodb)")
	pf.StringVar(&cfg.DynamoEventsTable, "dynamo-events-table", cfg.DynamoEventsTable, "DynamoDB trigger events table (used when storage=dynamodb)")
	pf.StringVar(&cfg.AWSRegion, "aws-region", cfg.AWSRegion, "AWS region (used when storage=dynamodb)")
	pf.StringVar(&cfg.UserID, "user", cfg.UserID, "user whose reminders are watched and synced")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

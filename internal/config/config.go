package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"geo-reminder/internal/events"
)

type Config struct {
	HTTPAddr  string // GEOREMINDER_HTTP_ADDR (default ":8080")
	TLSCert   string // GEOREMINDER_TLS_CERT (optional)
	TLSKey    string // GEOREMINDER_TLS_KEY (optional)
	StaticDir string // GEOREMINDER_STATIC_DIR (default "./static")

	// Storage
	Storage           string // GEOREMINDER_STORAGE: memory, file, sqlite, mongo, dynamodb (default "file")
	DataDir           string // GEOREMINDER_DATA_DIR (default "."), used by file storage
	SQLitePath        string // GEOREMINDER_SQLITE_PATH (default "georeminder.db")
	MongoURL          string // GEOREMINDER_MONGO_URL (default "mongodb://localhost:27017")
	MongoDatabase     string // GEOREMINDER_MONGO_DB (default "geo_reminder")
	DynamoTable       string // GEOREMINDER_DYNAMO_TABLE (default "georeminder-reminders")
	DynamoEventsTable string // GEOREMINDER_DYNAMO_EVENTS_TABLE (default "georeminder-trigger-events")
	AWSRegion         string // GEOREMINDER_AWS_REGION (default "us-east-1")

	// Geofencing
	UserID         string        // GEOREMINDER_USER_ID (optional, empty = every reminder)
	RadiusMeters   float64       // GEOREMINDER_RADIUS_METERS (default 100)
	FixTimeout     time.Duration // GEOREMINDER_FIX_TIMEOUT (default 10s)
	PositionSource string        // GEOREMINDER_POSITION_SOURCE: http, nats, none (default "http")
	PositionTopic  string        // GEOREMINDER_POSITION_SUBJECT
	Permission     string        // GEOREMINDER_NOTIFY_PERMISSION: prompt, granted, denied (default "prompt")

	NATSURL string // GEOREMINDER_NATS_URL (optional, empty = no events)
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:          envOrDefault("GEOREMINDER_HTTP_ADDR", ":8080"),
		TLSCert:           os.Getenv("GEOREMINDER_TLS_CERT"),
		TLSKey:            os.Getenv("GEOREMINDER_TLS_KEY"),
		StaticDir:         envOrDefault("GEOREMINDER_STATIC_DIR", "./static"),
		Storage:           envOrDefault("GEOREMINDER_STORAGE", "file"),
		DataDir:           envOrDefault("GEOREMINDER_DATA_DIR", "."),
		SQLitePath:        envOrDefault("GEOREMINDER_SQLITE_PATH", "georeminder.db"),
		MongoURL:          envOrDefault("GEOREMINDER_MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase:     envOrDefault("GEOREMINDER_MONGO_DB", "geo_reminder"),
		DynamoTable:       envOrDefault("GEOREMINDER_DYNAMO_TABLE", "georeminder-reminders"),
		DynamoEventsTable: envOrDefault("GEOREMINDER_DYNAMO_EVENTS_TABLE", "georeminder-trigger-events"),
		AWSRegion:         envOrDefault("GEOREMINDER_AWS_REGION", "us-east-1"),
		UserID:            os.Getenv("GEOREMINDER_USER_ID"),
		PositionSource:    envOrDefault("GEOREMINDER_POSITION_SOURCE", "http"),
		PositionTopic:     envOrDefault("GEOREMINDER_POSITION_SUBJECT", events.DefaultPositionSubject),
		Permission:        envOrDefault("GEOREMINDER_NOTIFY_PERMISSION", "prompt"),
		NATSURL:           os.Getenv("GEOREMINDER_NATS_URL"),
	}

	radius, err := strconv.ParseFloat(envOrDefault("GEOREMINDER_RADIUS_METERS", "100"), 64)
	if err != nil {
		return nil, fmt.Errorf("GEOREMINDER_RADIUS_METERS: %w", err)
	}
	c.RadiusMeters = radius

	timeout, err := time.ParseDuration(envOrDefault("GEOREMINDER_FIX_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("GEOREMINDER_FIX_TIMEOUT: %w", err)
	}
	c.FixTimeout = timeout

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values that may also come from command-line flags.
func (c *Config) Validate() error {
	if c.RadiusMeters <= 0 {
		return fmt.Errorf("radius must be positive, got %v", c.RadiusMeters)
	}
	if c.FixTimeout < 0 {
		return fmt.Errorf("fix timeout must not be negative, got %s", c.FixTimeout)
	}
	switch c.PositionSource {
	case "http", "none":
	case "nats":
		if c.NATSURL == "" {
			return fmt.Errorf("position source nats requires GEOREMINDER_NATS_URL")
		}
	default:
		return fmt.Errorf("invalid position source %q (must be http, nats or none)", c.PositionSource)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("TLS needs both certificate and key")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

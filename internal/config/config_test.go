package config

import (
	"testing"
	"time"
)

var allEnvVars = []string{
	"GEOREMINDER_HTTP_ADDR", "GEOREMINDER_TLS_CERT", "GEOREMINDER_TLS_KEY", "GEOREMINDER_STATIC_DIR",
	"GEOREMINDER_STORAGE", "GEOREMINDER_DATA_DIR", "GEOREMINDER_SQLITE_PATH", "GEOREMINDER_MONGO_URL",
	"GEOREMINDER_MONGO_DB", "GEOREMINDER_DYNAMO_TABLE", "GEOREMINDER_DYNAMO_EVENTS_TABLE",
	"GEOREMINDER_AWS_REGION", "GEOREMINDER_USER_ID", "GEOREMINDER_RADIUS_METERS",
	"GEOREMINDER_FIX_TIMEOUT", "GEOREMINDER_POSITION_SOURCE", "GEOREMINDER_POSITION_SUBJECT",
	"GEOREMINDER_NOTIFY_PERMISSION", "GEOREMINDER_NATS_URL",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAllEnv(t)
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTPAddr != ":8080" || c.Storage != "file" || c.PositionSource != "http" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.RadiusMeters != 100 {
		t.Errorf("RadiusMeters = %v, want 100", c.RadiusMeters)
	}
	if c.FixTimeout != 10*time.Second {
		t.Errorf("FixTimeout = %v, want 10s", c.FixTimeout)
	}
	if c.Permission != "prompt" {
		t.Errorf("Permission = %q, want prompt", c.Permission)
	}
	if c.PositionTopic != "georeminder.positions" {
		t.Errorf("PositionTopic = %q", c.PositionTopic)
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{name: "CustomValues", env: map[string]string{
			"GEOREMINDER_RADIUS_METERS": "250.5",
			"GEOREMINDER_FIX_TIMEOUT":   "30s",
			"GEOREMINDER_STORAGE":       "sqlite",
		}},
		{name: "BadRadius", env: map[string]string{"GEOREMINDER_RADIUS_METERS": "far"}, wantErr: true},
		{name: "NegativeRadius", env: map[string]string{"GEOREMINDER_RADIUS_METERS": "-1"}, wantErr: true},
		{name: "BadTimeout", env: map[string]string{"GEOREMINDER_FIX_TIMEOUT": "soon"}, wantErr: true},
		{name: "NATSSourceWithoutURL", env: map[string]string{"GEOREMINDER_POSITION_SOURCE": "nats"}, wantErr: true},
		{name: "NATSSource", env: map[string]string{
			"GEOREMINDER_POSITION_SOURCE": "nats",
			"GEOREMINDER_NATS_URL":        "nats://localhost:4222",
		}},
		{name: "UnknownSource", env: map[string]string{"GEOREMINDER_POSITION_SOURCE": "gps"}, wantErr: true},
		{name: "HalfTLS", env: map[string]string{"GEOREMINDER_TLS_CERT": "cert.pem"}, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			c, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.name == "CustomValues" {
				if c.RadiusMeters != 250.5 || c.FixTimeout != 30*time.Second || c.Storage != "sqlite" {
					t.Errorf("unexpected config: %+v", c)
				}
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `logging:
  level: "debug"
  format: "console"
redis:
  enabled: true
  addr: "redis:6379"
postgres:
  enabled: true
  dsn: "postgres://ride:ride@db:5432/rides"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "ride-core"
  qos: 1
metrics:
  enabled: true
  addr: ":9100"
matching:
  offer_timeout_ms: 15000
  max_attempts: 3
surge:
  max_multiplier: 2.5
prediction:
  min_trips_for_prediction: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"logging.level", cfg.Logging.Level, "debug"},
		{"logging.format", cfg.Logging.Format, "console"},
		{"redis.addr", cfg.Redis.Addr, "redis:6379"},
		{"postgres.dsn", cfg.Postgres.DSN, "postgres://ride:ride@db:5432/rides"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.client_id", cfg.MQTT.ClientID, "ride-core"},
		{"mqtt.qos", cfg.MQTT.QoS, byte(1)},
		{"metrics.addr", cfg.Metrics.Addr, ":9100"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}

	if got := cfg.Matching.Core(); got.OfferTimeout != 15*time.Second || got.MaxAttempts != 3 {
		t.Errorf("matching overrides not applied: %+v", got)
	}
	if got := cfg.Matching.Core(); got.InitialRadiusMeters != 3000 {
		t.Errorf("matching defaults not kept: %+v", got)
	}
	if got := cfg.Surge.Core(); got.MaxMultiplier != 2.5 || got.MinDriversThreshold != 3 {
		t.Errorf("surge config mismatch: %+v", got)
	}
	if got := cfg.Prediction.Core(); got.MinTripsForPrediction != 5 || got.MaxPredictions != 3 {
		t.Errorf("prediction config mismatch: %+v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults: %+v", cfg.Logging)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis default addr: %s", cfg.Redis.Addr)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("metrics default addr: %s", cfg.Metrics.Addr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"bad level", "logging:\n  level: \"loud\"\n"},
		{"postgres without dsn", "postgres:\n  enabled: true\n"},
		{"mqtt without broker", "mqtt:\n  enabled: true\n  client_id: \"x\"\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", c.data)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeConfig(t, "config.toml", "x = 1\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error")
	}
}

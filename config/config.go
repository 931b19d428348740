// Package config loads and validates the service configuration from a
// json or yaml file with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ubi-africa/ride-core/infra/notify"
)

type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Redis      RedisConfig      `json:"redis"`
	Postgres   PostgresConfig   `json:"postgres"`
	MQTT       MQTTConfig       `json:"mqtt"`
	Metrics    MetricsConfig    `json:"metrics"`
	Matching   MatchingConfig   `json:"matching"`
	Surge      SurgeConfig      `json:"surge"`
	Prediction PredictionConfig `json:"prediction"`
}

// MQTTConfig defines the notification transport settings. Disabled drops
// notifications instead of connecting to a broker.
type MQTTConfig struct {
	Enabled    bool   `json:"enabled"`
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
	QoS        byte   `json:"qos"`
	TimeoutMS  int    `json:"timeout_ms"`
}

// Transport converts to the MQTT sink's config.
func (c MQTTConfig) Transport() notify.Config {
	return notify.Config{
		Broker:     c.Broker,
		ClientID:   c.ClientID,
		Username:   c.Username,
		Password:   c.Password,
		UseTLS:     c.UseTLS,
		ClientCert: c.ClientCert,
		ClientKey:  c.ClientKey,
		CABundle:   c.CABundle,
		QoS:        c.QoS,
		TimeoutMS:  c.TimeoutMS,
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. RIDE_REDIS__ADDR.
	if err := k.Load(env.Provider("RIDE_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ride_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Logging.SetDefaults()
	cfg.Redis.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Postgres.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks mandatory fields when the transport is enabled.
func (c MQTTConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("mqtt client_id is required")
	}
	return nil
}

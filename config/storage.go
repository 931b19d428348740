package config

import "fmt"

// RedisConfig defines the connection to the real-time registry backend.
// Disabled falls back to the in-memory registry, which only suits a
// single-node deployment.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// SetDefaults applies sane defaults.
func (c *RedisConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
}

// PostgresConfig defines the durable store connection. Disabled falls
// back to in-memory stores and loses data on restart.
type PostgresConfig struct {
	Enabled bool   `json:"enabled"`
	DSN     string `json:"dsn"`
}

// Validate checks mandatory fields when the store is enabled.
func (c PostgresConfig) Validate() error {
	if c.Enabled && c.DSN == "" {
		return fmt.Errorf("postgres dsn is required")
	}
	return nil
}

// Package store provides the postgres-backed ride and driver repositories.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ubi-africa/ride-core/core/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS rides (
	id              TEXT PRIMARY KEY,
	rider_id        TEXT NOT NULL,
	driver_id       TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	requested_at    TIMESTAMPTZ NOT NULL,
	data            JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS rides_rider_idx ON rides (rider_id, requested_at DESC);
CREATE INDEX IF NOT EXISTS rides_driver_idx ON rides (driver_id, requested_at DESC);
CREATE INDEX IF NOT EXISTS rides_status_idx ON rides (status);

CREATE TABLE IF NOT EXISTS drivers (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'offline',
	current_ride_id TEXT NOT NULL DEFAULT '',
	rating          DOUBLE PRECISION NOT NULL DEFAULT 0,
	acceptance_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_lat        DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_lng        DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_seen_at    TIMESTAMPTZ,
	data            JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS drivers_status_idx ON drivers (status);
`

// Connect opens a pgx pool, verifies connectivity and bootstraps the schema.
func Connect(ctx context.Context, dsn string, log logger.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: bootstrap schema: %w", err)
	}
	log.Infof("postgres connected")
	return pool, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ubi-africa/ride-core/core/geo"
	"github.com/ubi-africa/ride-core/core/model"
)

// DriverStore implements the durable driver repository on postgres. Ride
// assignment is a conditional update so two concurrent accepts can never
// both land on the same driver.
type DriverStore struct {
	pool *pgxpool.Pool
}

// NewDriverStore wraps an existing pool.
func NewDriverStore(pool *pgxpool.Pool) (*DriverStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("store: postgres pool is required")
	}
	return &DriverStore{pool: pool}, nil
}

func (s *DriverStore) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	return s.scanDriver(s.pool.QueryRow(ctx, `SELECT data FROM drivers WHERE id = $1`, id))
}

// PutDriver inserts or replaces a driver record. Used by onboarding flows
// and test seeding.
func (s *DriverStore) PutDriver(ctx context.Context, d *model.Driver) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("store: encode driver %s: %w", d.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO drivers (id, status, current_ride_id, rating, acceptance_rate, last_lat, last_lng, last_seen_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_ride_id = EXCLUDED.current_ride_id,
			rating = EXCLUDED.rating,
			acceptance_rate = EXCLUDED.acceptance_rate,
			last_lat = EXCLUDED.last_lat,
			last_lng = EXCLUDED.last_lng,
			last_seen_at = EXCLUDED.last_seen_at,
			data = EXCLUDED.data`,
		d.ID, string(d.Status), d.CurrentRideID, d.Rating, d.AcceptanceRate,
		d.LastLat, d.LastLng, d.LastSeenAt, payload,
	)
	if err != nil {
		return fmt.Errorf("store: upsert driver %s: %w", d.ID, err)
	}
	return nil
}

func (s *DriverStore) UpdateDriverStatus(ctx context.Context, id string, status model.DriverStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE drivers SET status = $2,
			data = jsonb_set(data, '{status}', to_jsonb($2::text))
		WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("store: update status for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDriverNotFound
	}
	return nil
}

func (s *DriverStore) UpdateDriverLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE drivers SET last_lat = $2, last_lng = $3, last_seen_at = $4,
			data = data || jsonb_build_object('last_lat', $2::float8, 'last_lng', $3::float8, 'last_seen_at', to_jsonb($4::timestamptz))
		WHERE id = $1`,
		id, lat, lng, at,
	)
	if err != nil {
		return fmt.Errorf("store: update location for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDriverNotFound
	}
	return nil
}

func (s *DriverStore) AssignRide(ctx context.Context, driverID, rideID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE drivers SET current_ride_id = $2, status = 'on_ride',
			data = data || jsonb_build_object('current_ride_id', $2::text, 'status', 'on_ride')
		WHERE id = $1 AND status = 'online' AND current_ride_id = ''`,
		driverID, rideID,
	)
	if err != nil {
		return fmt.Errorf("store: assign ride to %s: %w", driverID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDriverNotAvailable
	}
	return nil
}

func (s *DriverStore) ClearRide(ctx context.Context, driverID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE drivers SET current_ride_id = '', status = 'online',
			data = data || jsonb_build_object('current_ride_id', ''::text, 'status', 'online')
		WHERE id = $1`,
		driverID,
	)
	if err != nil {
		return fmt.Errorf("store: clear ride for %s: %w", driverID, err)
	}
	return nil
}

func (s *DriverStore) GetNearby(ctx context.Context, lat, lng, radiusMeters float64, class model.VehicleClass, limit int) ([]*model.Driver, error) {
	// Coarse bounding-box prefilter; exact distance ordering happens on the
	// squared degree deltas, which is monotonic at city scale.
	minLat, minLng, maxLat, maxLng := geo.BoundingBox(lat, lng, radiusMeters)
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM drivers
		WHERE status = 'online'
		  AND last_lat BETWEEN $1 AND $3
		  AND last_lng BETWEEN $2 AND $4
		ORDER BY (last_lat - $5) * (last_lat - $5) + (last_lng - $6) * (last_lng - $6)
		LIMIT $7`,
		minLat, minLng, maxLat, maxLng, lat, lng, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: nearby drivers: %w", err)
	}
	defer rows.Close()

	drivers := make([]*model.Driver, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan driver row: %w", err)
		}
		var d model.Driver
		if err := json.Unmarshal(payload, &d); err != nil {
			return nil, fmt.Errorf("store: decode driver row: %w", err)
		}
		if class != "" && d.Vehicle.Class != class {
			continue
		}
		drivers = append(drivers, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: nearby drivers: %w", err)
	}
	return drivers, nil
}

func (s *DriverStore) scanDriver(row pgx.Row) (*model.Driver, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrDriverNotFound
		}
		return nil, fmt.Errorf("store: read driver: %w", err)
	}
	var d model.Driver
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("store: decode driver: %w", err)
	}
	return &d, nil
}

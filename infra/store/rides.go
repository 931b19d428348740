package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ubi-africa/ride-core/core/model"
)

// RideStore implements the durable ride repository on postgres. The full
// ride document lives in a JSONB column; the indexed columns exist only to
// serve lookups and pagination.
type RideStore struct {
	pool *pgxpool.Pool
}

// NewRideStore wraps an existing pool.
func NewRideStore(pool *pgxpool.Pool) (*RideStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("store: postgres pool is required")
	}
	return &RideStore{pool: pool}, nil
}

func (s *RideStore) CreateRide(ctx context.Context, ride *model.Ride) error {
	payload, err := json.Marshal(ride)
	if err != nil {
		return fmt.Errorf("store: encode ride %s: %w", ride.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO rides (id, rider_id, driver_id, status, requested_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ride.ID, ride.RiderID, ride.DriverID, string(ride.Status), ride.RequestedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("store: insert ride %s: %w", ride.ID, err)
	}
	return nil
}

func (s *RideStore) UpdateRide(ctx context.Context, ride *model.Ride) error {
	payload, err := json.Marshal(ride)
	if err != nil {
		return fmt.Errorf("store: encode ride %s: %w", ride.ID, err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE rides SET driver_id = $2, status = $3, data = $4 WHERE id = $1`,
		ride.ID, ride.DriverID, string(ride.Status), payload,
	)
	if err != nil {
		return fmt.Errorf("store: update ride %s: %w", ride.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrRideNotFound
	}
	return nil
}

func (s *RideStore) GetRide(ctx context.Context, id string) (*model.Ride, error) {
	return s.scanRide(s.pool.QueryRow(ctx, `SELECT data FROM rides WHERE id = $1`, id))
}

func (s *RideStore) GetActiveRideByRider(ctx context.Context, riderID string) (*model.Ride, error) {
	ride, err := s.scanRide(s.pool.QueryRow(ctx, `
		SELECT data FROM rides
		WHERE rider_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY requested_at DESC LIMIT 1`, riderID))
	if errors.Is(err, model.ErrRideNotFound) {
		return nil, nil
	}
	return ride, err
}

func (s *RideStore) GetActiveRideByDriver(ctx context.Context, driverID string) (*model.Ride, error) {
	ride, err := s.scanRide(s.pool.QueryRow(ctx, `
		SELECT data FROM rides
		WHERE driver_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY requested_at DESC LIMIT 1`, driverID))
	if errors.Is(err, model.ErrRideNotFound) {
		return nil, nil
	}
	return ride, err
}

func (s *RideStore) ListRides(ctx context.Context, userID string, asRider bool, limit, offset int) ([]*model.Ride, int, error) {
	column := "driver_id"
	if asRider {
		column = "rider_id"
	}

	var total int
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM rides WHERE %s = $1`, column), userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("store: count rides for %s: %w", userID, err)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT data FROM rides WHERE %s = $1
		ORDER BY requested_at DESC LIMIT $2 OFFSET $3`, column),
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list rides for %s: %w", userID, err)
	}
	defer rows.Close()

	rides := make([]*model.Ride, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, 0, fmt.Errorf("store: scan ride row: %w", err)
		}
		var ride model.Ride
		if err := json.Unmarshal(payload, &ride); err != nil {
			return nil, 0, fmt.Errorf("store: decode ride row: %w", err)
		}
		rides = append(rides, &ride)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: list rides for %s: %w", userID, err)
	}
	return rides, total, nil
}

func (s *RideStore) scanRide(row pgx.Row) (*model.Ride, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRideNotFound
		}
		return nil, fmt.Errorf("store: read ride: %w", err)
	}
	var ride model.Ride
	if err := json.Unmarshal(payload, &ride); err != nil {
		return nil, fmt.Errorf("store: decode ride: %w", err)
	}
	return &ride, nil
}

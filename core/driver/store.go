package driver

import (
	"context"
	"time"

	"github.com/ubi-africa/ride-core/core/model"
)

// Store is the durable driver repository.
type Store interface {
	// GetDriver returns model.ErrDriverNotFound when the driver is unknown.
	GetDriver(ctx context.Context, id string) (*model.Driver, error)

	UpdateDriverStatus(ctx context.Context, id string, status model.DriverStatus) error
	UpdateDriverLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error

	// AssignRide sets the driver's current ride only while the driver is
	// online with no ride assigned; it fails with model.ErrDriverNotAvailable
	// otherwise.
	AssignRide(ctx context.Context, driverID, rideID string) error

	// ClearRide drops the driver's current ride and returns them to online.
	ClearRide(ctx context.Context, driverID string) error

	// GetNearby is the coarse fallback query used when the registry is
	// unavailable, ordered by distance ascending.
	GetNearby(ctx context.Context, lat, lng, radiusMeters float64, class model.VehicleClass, limit int) ([]*model.Driver, error)
}

package ride

import (
	"context"

	"github.com/ubi-africa/ride-core/core/model"
)

// Store is the durable ride repository. Writes on this interface are
// blocking and required; callers fail when they error.
type Store interface {
	CreateRide(ctx context.Context, ride *model.Ride) error
	UpdateRide(ctx context.Context, ride *model.Ride) error

	// GetRide returns model.ErrRideNotFound when the ride does not exist.
	GetRide(ctx context.Context, id string) (*model.Ride, error)

	// GetActiveRideByRider returns the rider's non-terminal ride, or nil
	// without error when there is none.
	GetActiveRideByRider(ctx context.Context, riderID string) (*model.Ride, error)

	// GetActiveRideByDriver returns the driver's non-terminal ride, or nil
	// without error when there is none.
	GetActiveRideByDriver(ctx context.Context, driverID string) (*model.Ride, error)

	// ListRides returns a page of the user's rides ordered by request time
	// descending, plus the total count.
	ListRides(ctx context.Context, userID string, asRider bool, limit, offset int) ([]*model.Ride, int, error)
}

// Cache is the fast read path for rides. Reads miss softly (nil, nil) and
// write failures are tolerated by callers.
type Cache interface {
	GetRide(ctx context.Context, id string) (*model.Ride, error)
	SetRide(ctx context.Context, ride *model.Ride) error
	InvalidateRide(ctx context.Context, id string) error
}

// Quoter produces fare quotes. Implemented by the pricing engine.
type Quoter interface {
	CalculatePrice(ctx context.Context, class model.VehicleClass, distanceMeters float64, durationSeconds int64, currency model.Currency, cell string, promoDiscount int64) (*model.PriceQuote, error)
}

// TripRecorder learns from completed trips. Implemented by the destination
// prediction engine; failures are logged and swallowed.
type TripRecorder interface {
	RecordRide(ctx context.Context, ride *model.Ride) error
}

// NopTripRecorder ignores completed trips.
type NopTripRecorder struct{}

func (NopTripRecorder) RecordRide(context.Context, *model.Ride) error { return nil }

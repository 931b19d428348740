// Package registry defines the real-time driver index: positions, statuses
// and the short-lived offer locks that prevent double dispatch.
package registry

import (
	"context"
	"time"

	"github.com/ubi-africa/ride-core/core/model"
)

// Default retention windows. Locations go stale quickly; statuses persist
// across brief disconnects.
const (
	LocationTTL = 5 * time.Minute
	StatusTTL   = 1 * time.Hour
	LockTTL     = 60 * time.Second
)

// Registry is the fast-path index of online drivers. It is the source of
// truth for real-time status, position and lock state; the persistent
// store remains authoritative for history.
type Registry interface {
	// UpdateLocation records a driver's latest position.
	UpdateLocation(ctx context.Context, loc *model.DriverLocation) error

	// GetLocation returns the driver's last known position, or
	// model.ErrDriverNotFound when none is fresh enough.
	GetLocation(ctx context.Context, driverID string) (*model.DriverLocation, error)

	// Nearby returns fresh, online, unlocked drivers within radiusMeters of
	// the point, filtered by vehicle class when class is non-empty, ordered
	// by distance ascending and capped at limit.
	Nearby(ctx context.Context, lat, lng, radiusMeters float64, class model.VehicleClass, limit int) ([]*model.DriverLocation, error)

	// SetStatus records the driver's availability.
	SetStatus(ctx context.Context, driverID string, status model.DriverStatus) error

	// GetStatus returns the recorded availability; drivers without a fresh
	// record read as offline.
	GetStatus(ctx context.Context, driverID string) (model.DriverStatus, error)

	// Lock claims the driver for a ride offer. It succeeds when the driver
	// is unlocked or already locked for the same ride, and fails with
	// model.ErrDriverBusy when another ride holds the lock. Locks expire
	// after ttl.
	Lock(ctx context.Context, driverID, rideID string, ttl time.Duration) error

	// Unlock releases the driver's lock. A non-empty rideID releases only
	// when that ride holds the lock; an empty rideID releases any lock.
	Unlock(ctx context.Context, driverID, rideID string) error

	// LockHolder returns the ride holding the driver's lock, or "" when
	// unlocked.
	LockHolder(ctx context.Context, driverID string) (string, error)

	// CountActiveInCell returns the number of fresh online drivers whose
	// position falls in the given spatial cell, feeding surge computation.
	CountActiveInCell(ctx context.Context, cell string) (int, error)

	// Remove drops all registry state for a driver.
	Remove(ctx context.Context, driverID string) error
}

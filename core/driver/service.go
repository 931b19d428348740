// Package driver implements the driver assignment manager: offers,
// availability and location updates, with locking discipline against the
// registry.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ubi-africa/ride-core/core/logger"
	"github.com/ubi-africa/ride-core/core/metrics"
	"github.com/ubi-africa/ride-core/core/model"
	"github.com/ubi-africa/ride-core/core/registry"
)

// RideAssigner transitions a ride to accepted once the driver side of the
// assignment is committed. Implemented by the ride lifecycle manager.
type RideAssigner interface {
	AssignDriver(ctx context.Context, rideID, driverID string) (*model.Ride, error)
}

// Service handles driver-facing operations. All dependencies are required.
type Service struct {
	store   Store
	reg     registry.Registry
	rides   RideAssigner
	metrics metrics.MetricsSink
	log     logger.Logger
}

// Config carries the Service dependencies.
type Config struct {
	Store    Store
	Registry registry.Registry
	Rides    RideAssigner
	Metrics  metrics.MetricsSink
	Logger   logger.Logger
}

// NewService validates the configuration and builds the assignment manager.
func NewService(cfg Config) (*Service, error) {
	switch {
	case cfg.Store == nil:
		return nil, fmt.Errorf("driver: store is required")
	case cfg.Registry == nil:
		return nil, fmt.Errorf("driver: registry is required")
	case cfg.Rides == nil:
		return nil, fmt.Errorf("driver: ride assigner is required")
	case cfg.Metrics == nil:
		return nil, fmt.Errorf("driver: metrics sink is required")
	case cfg.Logger == nil:
		return nil, fmt.Errorf("driver: logger is required")
	}
	return &Service{
		store:   cfg.Store,
		reg:     cfg.Registry,
		rides:   cfg.Rides,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}, nil
}

// GetNearbyDrivers runs a live radius scan against the registry, falling
// back to the persistent store's coarse query when the registry errors.
func (s *Service) GetNearbyDrivers(ctx context.Context, lat, lng, radiusMeters float64, class model.VehicleClass, limit int) ([]*model.DriverLocation, error) {
	locs, err := s.reg.Nearby(ctx, lat, lng, radiusMeters, class, limit)
	if err == nil {
		return locs, nil
	}
	s.log.Warnf("registry nearby scan failed, falling back to store: %v", err)

	drivers, err := s.store.GetNearby(ctx, lat, lng, radiusMeters, class, limit)
	if err != nil {
		return nil, fmt.Errorf("driver: nearby fallback query: %w", err)
	}
	out := make([]*model.DriverLocation, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, &model.DriverLocation{
			DriverID:  d.ID,
			Lat:       d.LastLat,
			Lng:       d.LastLng,
			Status:    d.Status,
			Classes:   []model.VehicleClass{d.Vehicle.Class},
			UpdatedAt: d.LastSeenAt,
		})
	}
	return out, nil
}

// UpdateLocation writes the position to the registry and persists it
// asynchronously. Persistence failures are logged, never propagated.
func (s *Service) UpdateLocation(ctx context.Context, loc *model.DriverLocation) error {
	if err := s.reg.UpdateLocation(ctx, loc); err != nil {
		return err
	}
	snapshot := *loc
	detached := context.WithoutCancel(ctx)
	go func() {
		at := snapshot.UpdatedAt
		if at.IsZero() {
			at = time.Now()
		}
		if err := s.store.UpdateDriverLocation(detached, snapshot.DriverID, snapshot.Lat, snapshot.Lng, at); err != nil {
			s.log.Warnf("persist location for driver %s: %v", snapshot.DriverID, err)
		}
	}()
	return nil
}

// AcceptRide commits a driver to a ride. The registry lock must be held by
// this ride or acquirable; losing the race fails with model.ErrDriverBusy.
func (s *Service) AcceptRide(ctx context.Context, rideID, driverID string) (*model.Ride, error) {
	holder, err := s.reg.LockHolder(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("driver: read lock of %s: %w", driverID, err)
	}
	if holder != "" && holder != rideID {
		s.recordContention(rideID, driverID)
		return nil, model.ErrDriverBusy
	}

	status, err := s.reg.GetStatus(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("driver: read status of %s: %w", driverID, err)
	}
	if status != model.DriverOnline {
		return nil, model.ErrDriverNotAvailable
	}

	if err := s.reg.Lock(ctx, driverID, rideID, registry.LockTTL); err != nil {
		if errors.Is(err, model.ErrDriverBusy) {
			s.recordContention(rideID, driverID)
		}
		return nil, err
	}

	if err := s.store.AssignRide(ctx, driverID, rideID); err != nil {
		s.unlock(ctx, driverID, rideID)
		return nil, err
	}
	if err := s.reg.SetStatus(ctx, driverID, model.DriverOnRide); err != nil {
		s.log.Errorf("set on_ride status for driver %s: %v", driverID, err)
	}

	ride, err := s.rides.AssignDriver(ctx, rideID, driverID)
	if err != nil {
		// Roll the driver side back so the next offer can proceed.
		if clearErr := s.store.ClearRide(ctx, driverID); clearErr != nil {
			s.log.Errorf("rollback assignment of driver %s: %v", driverID, clearErr)
		}
		if statusErr := s.reg.SetStatus(ctx, driverID, model.DriverOnline); statusErr != nil {
			s.log.Errorf("rollback status of driver %s: %v", driverID, statusErr)
		}
		s.unlock(ctx, driverID, rideID)
		return nil, err
	}
	return ride, nil
}

// DeclineRide releases the driver's lock for the ride. The driver stays
// online and eligible for the next offer.
func (s *Service) DeclineRide(ctx context.Context, rideID, driverID string) error {
	return s.reg.Unlock(ctx, driverID, rideID)
}

// SetStatus writes availability to the registry first so live matching
// reflects the change immediately, then to the persistent store.
func (s *Service) SetStatus(ctx context.Context, driverID string, status model.DriverStatus) error {
	if err := s.reg.SetStatus(ctx, driverID, status); err != nil {
		return fmt.Errorf("driver: registry status write for %s: %w", driverID, err)
	}
	if err := s.store.UpdateDriverStatus(ctx, driverID, status); err != nil {
		return fmt.Errorf("driver: store status write for %s: %w", driverID, err)
	}
	return nil
}

func (s *Service) unlock(ctx context.Context, driverID, rideID string) {
	if err := s.reg.Unlock(ctx, driverID, rideID); err != nil {
		s.log.Warnf("unlock driver %s for ride %s: %v", driverID, rideID, err)
	}
}

func (s *Service) recordContention(rideID, driverID string) {
	ev := metrics.LockContentionEvent{RideID: rideID, DriverID: driverID, Time: time.Now()}
	if err := s.metrics.RecordLockContention(ev); err != nil {
		s.log.Warnf("record lock contention: %v", err)
	}
}

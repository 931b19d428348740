// Package ride implements the ride lifecycle manager: request, pricing,
// persistence, status transitions, cancellation and rating.
package ride

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ubi-africa/ride-core/core/events"
	"github.com/ubi-africa/ride-core/core/geo"
	"github.com/ubi-africa/ride-core/core/logger"
	"github.com/ubi-africa/ride-core/core/metrics"
	"github.com/ubi-africa/ride-core/core/model"
	"github.com/ubi-africa/ride-core/core/notify"
	"github.com/ubi-africa/ride-core/core/pricing"
	"github.com/ubi-africa/ride-core/core/registry"
	"github.com/ubi-africa/ride-core/internal/eventbus"
)

// Service orchestrates the ride state machine. All dependencies are
// required; pass the null implementations for capabilities that are not
// wired in a given deployment.
type Service struct {
	store   Store
	cache   Cache
	reg     registry.Registry
	quoter  Quoter
	promos  pricing.PromoSource
	sink    notify.Sink
	metrics metrics.MetricsSink
	trips   TripRecorder
	bus     eventbus.EventBus
	log     logger.Logger
	areas   []geo.ServiceArea
	now     func() time.Time
	newID   func() string
}

// Config carries the Service dependencies.
type Config struct {
	Store    Store
	Cache    Cache
	Registry registry.Registry
	Quoter   Quoter
	Promos   pricing.PromoSource
	Notifier notify.Sink
	Metrics  metrics.MetricsSink
	Trips    TripRecorder
	Bus      eventbus.EventBus
	Logger   logger.Logger
}

// NewService validates the configuration and builds the lifecycle manager.
func NewService(cfg Config) (*Service, error) {
	switch {
	case cfg.Store == nil:
		return nil, fmt.Errorf("ride: store is required")
	case cfg.Cache == nil:
		return nil, fmt.Errorf("ride: cache is required")
	case cfg.Registry == nil:
		return nil, fmt.Errorf("ride: registry is required")
	case cfg.Quoter == nil:
		return nil, fmt.Errorf("ride: quoter is required")
	case cfg.Promos == nil:
		return nil, fmt.Errorf("ride: promo source is required")
	case cfg.Notifier == nil:
		return nil, fmt.Errorf("ride: notifier is required")
	case cfg.Metrics == nil:
		return nil, fmt.Errorf("ride: metrics sink is required")
	case cfg.Trips == nil:
		return nil, fmt.Errorf("ride: trip recorder is required")
	case cfg.Bus == nil:
		return nil, fmt.Errorf("ride: event bus is required")
	case cfg.Logger == nil:
		return nil, fmt.Errorf("ride: logger is required")
	}
	return &Service{
		store:   cfg.Store,
		cache:   cfg.Cache,
		reg:     cfg.Registry,
		quoter:  cfg.Quoter,
		promos:  cfg.Promos,
		sink:    cfg.Notifier,
		metrics: cfg.Metrics,
		trips:   cfg.Trips,
		bus:     cfg.Bus,
		log:     cfg.Logger,
		areas:   geo.DefaultServiceAreas,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}, nil
}

// RequestInput describes a new ride request.
type RequestInput struct {
	RiderID      string
	Pickup       model.Location
	Dropoff      model.Location
	Stops        []model.Location
	VehicleClass model.VehicleClass
	Currency     model.Currency
	Payment      model.PaymentMethod
	PromoCode    string
}

// RequestRide creates a ride in the searching status. Pricing is
// best-effort: a quote failure is logged and the ride proceeds without one.
func (s *Service) RequestRide(ctx context.Context, in RequestInput) (*model.Ride, error) {
	points := append([]model.Location{in.Pickup}, in.Stops...)
	points = append(points, in.Dropoff)
	for _, p := range points {
		if !geo.IsValidCoordinate(p.Lat, p.Lng) {
			return nil, model.ErrInvalidLocation
		}
	}
	if _, ok := geo.IsInServiceArea(in.Pickup.Lat, in.Pickup.Lng, s.areas); !ok {
		return nil, model.ErrOutOfServiceArea
	}

	if err := s.validateRequest(ctx, in); err != nil {
		return nil, err
	}

	active, err := s.store.GetActiveRideByRider(ctx, in.RiderID)
	if err != nil {
		return nil, fmt.Errorf("ride: check active ride for rider %s: %w", in.RiderID, err)
	}
	if active != nil {
		return nil, model.ErrRideAlreadyActive
	}

	var distance float64
	for i := 1; i < len(points); i++ {
		distance += geo.Distance(points[i-1].Lat, points[i-1].Lng, points[i].Lat, points[i].Lng)
	}
	now := s.now()
	duration := geo.ApplyTrafficFactor(geo.EstimateETA(distance, in.VehicleClass), now.Hour())

	ride := &model.Ride{
		ID:           s.newID(),
		RiderID:      in.RiderID,
		Status:       model.StatusRequested,
		Pickup:       in.Pickup,
		Dropoff:      in.Dropoff,
		Stops:        in.Stops,
		Route:        model.RouteInfo{DistanceMeters: distance, DurationSeconds: duration},
		VehicleClass: in.VehicleClass,
		Currency:     in.Currency,
		Payment:      in.Payment,
		RequestedAt:  now,
	}

	cell := geo.Cell(in.Pickup.Lat, in.Pickup.Lng, geo.DefaultCellResolution)
	ride.Quote = s.quote(ctx, in, distance, duration, cell)

	if err := ride.ApplyStatus(model.StatusSearching, now); err != nil {
		return nil, err
	}
	if err := s.store.CreateRide(ctx, ride); err != nil {
		return nil, fmt.Errorf("ride: persist ride %s: %w", ride.ID, err)
	}
	if err := s.cache.SetRide(ctx, ride); err != nil {
		s.log.Warnf("cache seed failed for ride %s: %v", ride.ID, err)
	}

	s.bus.Publish(events.RideRequested{Ride: ride, Time: now})
	s.recordLifecycle(ride)
	s.pushStatusAsync(ctx, in.RiderID, ride)
	s.log.Infof("ride %s requested by rider %s, distance %.0fm", ride.ID, in.RiderID, distance)
	return ride, nil
}

// quote resolves the promo discount and prices the trip. Unsupported class
// or currency abort the request; infrastructure failures only cost the
// quote.
func (s *Service) quote(ctx context.Context, in RequestInput, distance float64, duration int64, cell string) *model.PriceQuote {
	var discount int64
	if in.PromoCode != "" {
		d, err := s.promos.Discount(ctx, in.PromoCode, in.Currency)
		if err != nil {
			s.log.Warnf("promo lookup failed for code %s: %v", in.PromoCode, err)
		} else {
			discount = d
		}
	}
	q, err := s.quoter.CalculatePrice(ctx, in.VehicleClass, distance, duration, in.Currency, cell, discount)
	if err != nil {
		s.log.Errorf("pricing failed for rider %s: %v", in.RiderID, err)
		return nil
	}
	return q
}

// validateRequest rejects unpriceable class/currency combinations before a
// ride is created.
func (s *Service) validateRequest(ctx context.Context, in RequestInput) error {
	_, err := s.quoter.CalculatePrice(ctx, in.VehicleClass, 0, 0, in.Currency, "", 0)
	if errors.Is(err, model.ErrUnsupportedVehicleClass) || errors.Is(err, model.ErrUnsupportedCurrency) {
		return err
	}
	return nil
}

// GetRide is a cache-first read-through lookup.
func (s *Service) GetRide(ctx context.Context, id string) (*model.Ride, error) {
	cached, err := s.cache.GetRide(ctx, id)
	if err != nil {
		s.log.Warnf("cache read failed for ride %s: %v", id, err)
	}
	if cached != nil {
		return cached, nil
	}
	ride, err := s.store.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetRide(ctx, ride); err != nil {
		s.log.Warnf("cache repopulate failed for ride %s: %v", id, err)
	}
	return ride, nil
}

// CancelRide cancels a non-terminal ride on behalf of its rider or
// assigned driver and releases the driver back to online.
func (s *Service) CancelRide(ctx context.Context, id, actorID, reason string) (*model.Ride, error) {
	ride, err := s.store.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != ride.RiderID && (ride.DriverID == "" || actorID != ride.DriverID) {
		return nil, model.ErrForbidden
	}
	previous := ride.Status
	if err := ride.Cancel(reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRide(ctx, ride); err != nil {
		return nil, fmt.Errorf("ride: persist cancellation of %s: %w", id, err)
	}
	s.invalidate(ctx, id)
	if ride.DriverID != "" {
		s.releaseDriver(ctx, ride)
	}

	s.bus.Publish(events.RideStatusChanged{Ride: ride, Previous: previous, Time: s.now()})
	s.recordLifecycle(ride)
	s.pushStatusAsync(ctx, ride.RiderID, ride)
	if ride.DriverID != "" {
		s.pushStatusAsync(ctx, ride.DriverID, ride)
	}
	s.log.Infof("ride %s cancelled by %s: %s", id, actorID, reason)
	return ride, nil
}

// UpdateStatus applies a table-validated status transition.
func (s *Service) UpdateStatus(ctx context.Context, id string, next model.RideStatus) (*model.Ride, error) {
	ride, err := s.store.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := ride.Status
	if err := ride.ApplyStatus(next, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRide(ctx, ride); err != nil {
		return nil, fmt.Errorf("ride: persist status %s for %s: %w", next, id, err)
	}
	s.invalidate(ctx, id)

	if next == model.StatusCompleted {
		if ride.DriverID != "" {
			s.releaseDriver(ctx, ride)
		}
		s.recordTripAsync(ctx, ride)
	}

	s.bus.Publish(events.RideStatusChanged{Ride: ride, Previous: previous, Time: s.now()})
	s.recordLifecycle(ride)
	s.pushStatusAsync(ctx, ride.RiderID, ride)
	if ride.DriverID != "" {
		s.pushStatusAsync(ctx, ride.DriverID, ride)
	}
	return ride, nil
}

// AssignDriver moves a searching ride to accepted. Called by the driver
// assignment manager once the registry lock and store assignment are held.
func (s *Service) AssignDriver(ctx context.Context, id, driverID string) (*model.Ride, error) {
	ride, err := s.store.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := ride.Status
	if err := ride.AssignDriver(driverID, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRide(ctx, ride); err != nil {
		return nil, fmt.Errorf("ride: persist assignment of %s to %s: %w", driverID, id, err)
	}
	s.invalidate(ctx, id)

	s.bus.Publish(events.RideMatched{RideID: id, DriverID: driverID, Time: s.now()})
	s.bus.Publish(events.RideStatusChanged{Ride: ride, Previous: previous, Time: s.now()})
	s.recordLifecycle(ride)
	s.pushStatusAsync(ctx, ride.RiderID, ride)
	s.log.Infof("ride %s accepted by driver %s", id, driverID)
	return ride, nil
}

// RateRide records a rating on a completed ride. The isRiderRating flag
// selects whether the rider rates the driver or the other way around.
func (s *Service) RateRide(ctx context.Context, id string, rating float64, isRiderRating bool) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("ride: rating %.1f out of range", rating)
	}
	ride, err := s.store.GetRide(ctx, id)
	if err != nil {
		return err
	}
	if ride.Status != model.StatusCompleted {
		return model.ErrRideNotActive
	}
	if isRiderRating {
		ride.DriverRating = &rating
	} else {
		ride.RiderRating = &rating
	}
	if err := s.store.UpdateRide(ctx, ride); err != nil {
		return fmt.Errorf("ride: persist rating for %s: %w", id, err)
	}
	s.invalidate(ctx, id)
	return nil
}

// GetActiveRide returns the user's current non-terminal ride.
func (s *Service) GetActiveRide(ctx context.Context, userID string, asRider bool) (*model.Ride, error) {
	var (
		ride *model.Ride
		err  error
	)
	if asRider {
		ride, err = s.store.GetActiveRideByRider(ctx, userID)
	} else {
		ride, err = s.store.GetActiveRideByDriver(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, model.ErrRideNotFound
	}
	return ride, nil
}

// GetHistory returns a page of the user's past rides and the total count.
func (s *Service) GetHistory(ctx context.Context, userID string, asRider bool, page, perPage int) ([]*model.Ride, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.store.ListRides(ctx, userID, asRider, perPage, (page-1)*perPage)
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.InvalidateRide(ctx, id); err != nil {
		s.log.Warnf("cache invalidate failed for ride %s: %v", id, err)
	}
}

// releaseDriver returns the assigned driver to the online pool. Registry
// failures here are logged; lock TTLs provide the backstop.
func (s *Service) releaseDriver(ctx context.Context, ride *model.Ride) {
	if err := s.reg.SetStatus(ctx, ride.DriverID, model.DriverOnline); err != nil {
		s.log.Errorf("release driver %s after ride %s: %v", ride.DriverID, ride.ID, err)
	}
	if err := s.reg.Unlock(ctx, ride.DriverID, ride.ID); err != nil {
		s.log.Warnf("unlock driver %s after ride %s: %v", ride.DriverID, ride.ID, err)
	}
}

func (s *Service) recordLifecycle(ride *model.Ride) {
	ev := metrics.RideLifecycleEvent{
		RideID:       ride.ID,
		RiderID:      ride.RiderID,
		DriverID:     ride.DriverID,
		Status:       ride.Status,
		VehicleClass: ride.VehicleClass,
		Currency:     ride.Currency,
		Time:         s.now(),
	}
	if err := s.metrics.RecordRideLifecycle(ev); err != nil {
		s.log.Warnf("record lifecycle metric for ride %s: %v", ride.ID, err)
	}
}

func (s *Service) pushStatusAsync(ctx context.Context, userID string, ride *model.Ride) {
	snapshot := *ride
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.sink.PushStatus(detached, userID, &snapshot); err != nil {
			s.log.Warnf("status push to %s for ride %s: %v", userID, ride.ID, err)
		}
	}()
}

func (s *Service) recordTripAsync(ctx context.Context, ride *model.Ride) {
	snapshot := *ride
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.trips.RecordRide(detached, &snapshot); err != nil {
			s.log.Warnf("record trip for ride %s: %v", ride.ID, err)
		}
	}()
}

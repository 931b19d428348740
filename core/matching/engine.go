// Package matching runs candidate selection for searching rides: radius
// expansion, driver scoring, lock-before-offer discipline and offer
// timeouts.
package matching

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ubi-africa/ride-core/core/events"
	"github.com/ubi-africa/ride-core/core/geo"
	"github.com/ubi-africa/ride-core/core/logger"
	"github.com/ubi-africa/ride-core/core/metrics"
	"github.com/ubi-africa/ride-core/core/model"
	"github.com/ubi-africa/ride-core/core/notify"
	"github.com/ubi-africa/ride-core/core/registry"
	"github.com/ubi-africa/ride-core/internal/eventbus"
)

// Scoring weights. Distance dominates; ETA breaks ties between otherwise
// comparable candidates.
const (
	weightDistance   = 0.40
	weightRating     = 0.30
	weightAcceptance = 0.20
	weightETA        = 0.10
)

// etaNormalizer caps the ETA term; anything slower scores zero on it.
const etaNormalizer = 1800.0

// DriverSource provides driver profiles for scoring.
type DriverSource interface {
	GetDriver(ctx context.Context, id string) (*model.Driver, error)
}

// Config tunes a matching session.
type Config struct {
	InitialRadiusMeters float64
	MaxRadiusMeters     float64
	RadiusStepMeters    float64
	OfferTimeout        time.Duration
	MaxAttempts         int
	CandidateLimit      int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		InitialRadiusMeters: 3000,
		MaxRadiusMeters:     15000,
		RadiusStepMeters:    2000,
		OfferTimeout:        30 * time.Second,
		MaxAttempts:         5,
		CandidateLimit:      10,
	}
}

// Engine consumes RideRequested events and drives one offer session per
// ride until a driver accepts or attempts run out.
type Engine struct {
	cfg     Config
	reg     registry.Registry
	drivers DriverSource
	sink    notify.Sink
	bus     eventbus.EventBus
	metrics metrics.MetricsSink
	log     logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]chan string
}

// Deps carries the Engine dependencies.
type Deps struct {
	Registry registry.Registry
	Drivers  DriverSource
	Notifier notify.Sink
	Bus      eventbus.EventBus
	Metrics  metrics.MetricsSink
	Logger   logger.Logger
}

// NewEngine validates dependencies and builds a matching engine.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	switch {
	case deps.Registry == nil:
		return nil, fmt.Errorf("matching: registry is required")
	case deps.Drivers == nil:
		return nil, fmt.Errorf("matching: driver source is required")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("matching: notifier is required")
	case deps.Bus == nil:
		return nil, fmt.Errorf("matching: event bus is required")
	case deps.Metrics == nil:
		return nil, fmt.Errorf("matching: metrics sink is required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("matching: logger is required")
	}
	if cfg.MaxAttempts < 1 {
		cfg = DefaultConfig()
	}
	return &Engine{
		cfg:      cfg,
		reg:      deps.Registry,
		drivers:  deps.Drivers,
		sink:     deps.Notifier,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		log:      deps.Logger,
		now:      time.Now,
		sessions: make(map[string]chan string),
	}, nil
}

// Run consumes bus events until the context is cancelled. RideRequested
// starts a session; RideMatched resolves the waiting session.
func (e *Engine) Run(ctx context.Context) {
	sub := e.bus.Subscribe()
	defer e.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			switch typed := ev.(type) {
			case events.RideRequested:
				go e.runSession(ctx, typed.Ride)
			case events.RideMatched:
				e.resolve(typed.RideID, typed.DriverID)
			}
		}
	}
}

func (e *Engine) register(rideID string) chan string {
	ch := make(chan string, 1)
	e.mu.Lock()
	e.sessions[rideID] = ch
	e.mu.Unlock()
	return ch
}

func (e *Engine) unregister(rideID string) {
	e.mu.Lock()
	delete(e.sessions, rideID)
	e.mu.Unlock()
}

func (e *Engine) resolve(rideID, driverID string) {
	e.mu.Lock()
	ch, ok := e.sessions[rideID]
	e.mu.Unlock()
	if ok {
		select {
		case ch <- driverID:
		default:
		}
	}
}

type candidate struct {
	loc      *model.DriverLocation
	distance float64
	score    float64
}

// runSession walks the expanding search radius, offering the ride to the
// best unoffered candidate each attempt.
func (e *Engine) runSession(ctx context.Context, ride *model.Ride) {
	accepted := e.register(ride.ID)
	defer e.unregister(ride.ID)

	attempts := 0
	offered := make(map[string]bool)

	for radius := e.cfg.InitialRadiusMeters; radius <= e.cfg.MaxRadiusMeters; radius += e.cfg.RadiusStepMeters {
		if ctx.Err() != nil {
			return
		}
		locs, err := e.reg.Nearby(ctx, ride.Pickup.Lat, ride.Pickup.Lng, radius, ride.VehicleClass, e.cfg.CandidateLimit)
		if err != nil {
			e.log.Errorf("nearby scan at %.0fm for ride %s: %v", radius, ride.ID, err)
			continue
		}

		for _, c := range e.score(ctx, ride, locs) {
			if offered[c.loc.DriverID] {
				continue
			}
			if attempts >= e.cfg.MaxAttempts {
				e.fail(ride, attempts)
				return
			}
			attempts++
			offered[c.loc.DriverID] = true

			if done := e.offer(ctx, ride, c, attempts, accepted); done {
				return
			}
		}
	}
	e.fail(ride, attempts)
}

// offer locks the candidate, presents the ride and waits out the offer
// window. It reports true when the session is finished.
func (e *Engine) offer(ctx context.Context, ride *model.Ride, c candidate, attempt int, accepted <-chan string) bool {
	driverID := c.loc.DriverID
	if err := e.reg.Lock(ctx, driverID, ride.ID, registry.LockTTL); err != nil {
		e.log.Debugf("driver %s locked, skipping for ride %s", driverID, ride.ID)
		return false
	}

	eta := geo.EstimateETA(c.distance, ride.VehicleClass)
	offeredAt := e.now()
	if err := e.sink.OfferRide(ctx, driverID, ride, eta); err != nil {
		e.log.Warnf("offer delivery to driver %s for ride %s: %v", driverID, ride.ID, err)
		e.unlock(ctx, driverID, ride.ID)
		return false
	}
	e.log.Infof("ride %s offered to driver %s (attempt %d, eta %ds)", ride.ID, driverID, attempt, eta)

	timer := time.NewTimer(e.cfg.OfferTimeout)
	defer timer.Stop()
	select {
	case winner := <-accepted:
		e.recordOffer(ride.ID, winner, attempt, true, e.now().Sub(offeredAt))
		if winner != driverID {
			// Another driver took the ride; free this candidate.
			e.unlock(ctx, driverID, ride.ID)
		}
		return true
	case <-timer.C:
		e.recordOffer(ride.ID, driverID, attempt, false, e.cfg.OfferTimeout)
		e.unlock(ctx, driverID, ride.ID)
		return false
	case <-ctx.Done():
		e.unlock(ctx, driverID, ride.ID)
		return true
	}
}

// score ranks candidates by blended distance, rating, acceptance rate and
// pickup ETA.
func (e *Engine) score(ctx context.Context, ride *model.Ride, locs []*model.DriverLocation) []candidate {
	out := make([]candidate, 0, len(locs))
	for _, loc := range locs {
		dist := geo.Distance(ride.Pickup.Lat, ride.Pickup.Lng, loc.Lat, loc.Lng)

		rating, acceptance := 4.0, 0.5
		if d, err := e.drivers.GetDriver(ctx, loc.DriverID); err == nil {
			rating = d.Rating
			acceptance = d.AcceptanceRate
		} else {
			e.log.Debugf("no profile for driver %s, using neutral score: %v", loc.DriverID, err)
		}

		distScore := 1.0 - dist/e.cfg.MaxRadiusMeters
		if distScore < 0 {
			distScore = 0
		}
		etaScore := 1.0 - float64(geo.EstimateETA(dist, ride.VehicleClass))/etaNormalizer
		if etaScore < 0 {
			etaScore = 0
		}

		out = append(out, candidate{
			loc:      loc,
			distance: dist,
			score: weightDistance*distScore +
				weightRating*rating/5.0 +
				weightAcceptance*acceptance +
				weightETA*etaScore,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func (e *Engine) fail(ride *model.Ride, attempts int) {
	e.log.Warnf("matching exhausted for ride %s after %d offers", ride.ID, attempts)
	e.bus.Publish(events.MatchingFailed{RideID: ride.ID, Attempts: attempts, Time: e.now()})
}

func (e *Engine) unlock(ctx context.Context, driverID, rideID string) {
	if err := e.reg.Unlock(ctx, driverID, rideID); err != nil {
		e.log.Warnf("unlock driver %s for ride %s: %v", driverID, rideID, err)
	}
}

func (e *Engine) recordOffer(rideID, driverID string, attempt int, ok bool, latency time.Duration) {
	ev := metrics.OfferEvent{
		RideID:   rideID,
		DriverID: driverID,
		Attempt:  attempt,
		Accepted: ok,
		Latency:  latency,
		Time:     e.now(),
	}
	if err := e.metrics.RecordOffer(ev); err != nil {
		e.log.Warnf("record offer metric: %v", err)
	}
}

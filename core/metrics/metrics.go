// Package metrics defines the observability contract for the ride core.
package metrics

import (
	"time"

	"github.com/ubi-africa/ride-core/core/model"
)

// RideLifecycleEvent is recorded on every ride status change.
type RideLifecycleEvent struct {
	RideID       string
	RiderID      string
	DriverID     string
	Status       model.RideStatus
	VehicleClass model.VehicleClass
	Currency     model.Currency
	Time         time.Time
}

// OfferEvent captures the outcome of a single ride offer to a driver.
type OfferEvent struct {
	RideID   string
	DriverID string
	Attempt  int
	Accepted bool
	Latency  time.Duration
	Time     time.Time
}

// LockContentionEvent is recorded when an accept attempt loses a driver
// lock race.
type LockContentionEvent struct {
	RideID   string
	DriverID string
	Time     time.Time
}

// MetricsSink records dispatch observability events.
type MetricsSink interface {
	RecordRideLifecycle(ev RideLifecycleEvent) error
	RecordOffer(ev OfferEvent) error
	RecordLockContention(ev LockContentionEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordRideLifecycle(RideLifecycleEvent) error { return nil }
func (NopSink) RecordOffer(OfferEvent) error                 { return nil }
func (NopSink) RecordLockContention(LockContentionEvent) error {
	return nil
}

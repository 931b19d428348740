// Package notify defines the outbound notification contract. Delivery is
// fire-and-forget; the core never awaits confirmation.
package notify

import (
	"context"

	"github.com/ubi-africa/ride-core/core/model"
)

// Sink delivers ride events to riders and drivers through an external
// transport.
type Sink interface {
	// OfferRide presents a ride offer to a driver with the pickup ETA.
	OfferRide(ctx context.Context, driverID string, ride *model.Ride, etaSeconds int64) error

	// PushStatus informs a rider or driver of the ride's current state.
	PushStatus(ctx context.Context, userID string, ride *model.Ride) error
}

// NopSink drops all notifications. Used offline and in tests.
type NopSink struct{}

func (NopSink) OfferRide(context.Context, string, *model.Ride, int64) error { return nil }
func (NopSink) PushStatus(context.Context, string, *model.Ride) error       { return nil }

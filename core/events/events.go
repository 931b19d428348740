// Package events defines the lifecycle events published on the internal bus.
package events

import (
	"time"

	"github.com/ubi-africa/ride-core/core/model"
)

// RideRequested is published after a ride is durably created in the
// searching status. The matching engine consumes it to start a session.
type RideRequested struct {
	Ride *model.Ride
	Time time.Time
}

// RideStatusChanged is published on every successful status transition.
type RideStatusChanged struct {
	Ride     *model.Ride
	Previous model.RideStatus
	Time     time.Time
}

// RideMatched is published when a driver accepts an offer.
type RideMatched struct {
	RideID   string
	DriverID string
	Time     time.Time
}

// MatchingFailed is published when a matching session exhausts its attempts
// without an acceptance.
type MatchingFailed struct {
	RideID   string
	Attempts int
	Time     time.Time
}

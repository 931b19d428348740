// Package model holds the domain types shared across the ride core.
package model

import "time"

// RideStatus is the lifecycle state of a ride.
type RideStatus string

const (
	StatusRequested  RideStatus = "requested"
	StatusSearching  RideStatus = "searching"
	StatusAccepted   RideStatus = "accepted"
	StatusInProgress RideStatus = "in_progress"
	StatusCompleted  RideStatus = "completed"
	StatusCancelled  RideStatus = "cancelled"
)

// rideTransitions is the authoritative state machine table. Terminal states
// have no outgoing transitions.
var rideTransitions = map[RideStatus][]RideStatus{
	StatusRequested:  {StatusSearching, StatusCancelled},
	StatusSearching:  {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s RideStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Currency is an ISO 4217 code. Amounts are always in the currency's
// minor unit (kobo, cents).
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyKES Currency = "KES"
	CurrencyGHS Currency = "GHS"
	CurrencyUSD Currency = "USD"
)

// PaymentMethod identifies how the rider intends to pay.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentWallet      PaymentMethod = "wallet"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentCard        PaymentMethod = "card"
)

// Location is a geographic point with an optional human-readable label.
type Location struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// RouteInfo summarizes the planned route.
type RouteInfo struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int64   `json:"duration_seconds"`
}

// PriceQuote is the fare breakdown attached to a ride. All monetary
// fields are in minor units. Immutable once the ride is accepted.
type PriceQuote struct {
	BaseFare        int64    `json:"base_fare"`
	DistanceFare    int64    `json:"distance_fare"`
	DurationFare    int64    `json:"duration_fare"`
	SurgeMultiplier float64  `json:"surge_multiplier"`
	PromoDiscount   int64    `json:"promo_discount"`
	DriverEarnings  int64    `json:"driver_earnings"`
	PlatformFee     int64    `json:"platform_fee"`
	Currency        Currency `json:"currency"`
	Total           int64    `json:"total"`
}

// Ride is the aggregate tracked by the lifecycle manager.
type Ride struct {
	ID           string        `json:"id"`
	RiderID      string        `json:"rider_id"`
	DriverID     string        `json:"driver_id,omitempty"`
	Status       RideStatus    `json:"status"`
	Pickup       Location      `json:"pickup"`
	Dropoff      Location      `json:"dropoff"`
	Stops        []Location    `json:"stops,omitempty"`
	Route        RouteInfo     `json:"route"`
	Quote        *PriceQuote   `json:"quote,omitempty"`
	VehicleClass VehicleClass  `json:"vehicle_class"`
	Currency     Currency      `json:"currency"`
	Payment      PaymentMethod `json:"payment_method,omitempty"`
	RiderRating  *float64      `json:"rider_rating,omitempty"`
	DriverRating *float64      `json:"driver_rating,omitempty"`
	CancelReason string        `json:"cancel_reason,omitempty"`

	RequestedAt  time.Time  `json:"requested_at"`
	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`
	PickedUpAt   *time.Time `json:"picked_up_at,omitempty"`
	DroppedOffAt *time.Time `json:"dropped_off_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// CanTransitionTo reports whether the state machine allows moving from the
// ride's current status to next.
func (r *Ride) CanTransitionTo(next RideStatus) bool {
	for _, s := range rideTransitions[r.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// ApplyStatus validates and applies a status transition, stamping the
// matching timestamp. Timestamps are set exactly once.
func (r *Ride) ApplyStatus(next RideStatus, now time.Time) error {
	if !r.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	switch next {
	case StatusAccepted:
		if r.AcceptedAt == nil {
			r.AcceptedAt = &now
		}
	case StatusInProgress:
		if r.PickedUpAt == nil {
			r.PickedUpAt = &now
		}
	case StatusCompleted:
		if r.DroppedOffAt == nil {
			r.DroppedOffAt = &now
		}
	case StatusCancelled:
		if r.CancelledAt == nil {
			r.CancelledAt = &now
		}
	}
	return nil
}

// AssignDriver moves a searching ride to accepted with the given driver.
func (r *Ride) AssignDriver(driverID string, now time.Time) error {
	if err := r.ApplyStatus(StatusAccepted, now); err != nil {
		return err
	}
	r.DriverID = driverID
	return nil
}

// Cancel applies the cancellation transition and records the reason.
func (r *Ride) Cancel(reason string, now time.Time) error {
	if r.Status.IsTerminal() {
		return ErrRideNotActive
	}
	if err := r.ApplyStatus(StatusCancelled, now); err != nil {
		return err
	}
	r.CancelReason = reason
	return nil
}

// IsActive reports whether the ride is still in a non-terminal status.
func (r *Ride) IsActive() bool {
	return !r.Status.IsTerminal()
}

// HasDriver reports whether a driver has been assigned.
func (r *Ride) HasDriver() bool {
	return r.DriverID != ""
}

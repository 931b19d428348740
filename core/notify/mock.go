package notify

import (
	"context"
	"sync"

	"github.com/ubi-africa/ride-core/core/model"
)

// Offer is a recorded OfferRide call.
type Offer struct {
	DriverID   string
	RideID     string
	ETASeconds int64
}

// StatusPush is a recorded PushStatus call.
type StatusPush struct {
	UserID string
	RideID string
	Status model.RideStatus
}

// RecorderSink captures notifications for assertions in tests.
type RecorderSink struct {
	mu       sync.Mutex
	offers   []Offer
	statuses []StatusPush

	// OfferErr, when set, is returned from OfferRide.
	OfferErr error
}

func (s *RecorderSink) OfferRide(_ context.Context, driverID string, ride *model.Ride, etaSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OfferErr != nil {
		return s.OfferErr
	}
	s.offers = append(s.offers, Offer{DriverID: driverID, RideID: ride.ID, ETASeconds: etaSeconds})
	return nil
}

func (s *RecorderSink) PushStatus(_ context.Context, userID string, ride *model.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, StatusPush{UserID: userID, RideID: ride.ID, Status: ride.Status})
	return nil
}

// Offers returns a copy of the recorded offers.
func (s *RecorderSink) Offers() []Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Offer(nil), s.offers...)
}

// Statuses returns a copy of the recorded status pushes.
func (s *RecorderSink) Statuses() []StatusPush {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatusPush(nil), s.statuses...)
}

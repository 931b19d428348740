package prediction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ride-core/core/model"
	"github.com/ubi-africa/ride-core/infra/logger"
)

func newTestService(t *testing.T) (*Service, *MemoryHistoryStore) {
	t.Helper()
	store := NewMemoryHistoryStore()
	svc, err := NewService(store, DefaultPopularPlaces, DefaultConfig(), logger.NopLogger{})
	require.NoError(t, err)
	return svc, store
}

var homePlace = Place{PlaceID: "home-p", Label: "Surulere", Lat: 6.4926, Lng: 3.3547}

// recordEveningTrips records one 19:30 weekday arrival per business day.
func recordEveningTrips(t *testing.T, svc *Service, rider string, count int) {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 8, 3, 19, 30, 0, 0, time.UTC) // a Monday
	recorded := 0
	for week := 0; recorded < count; week++ {
		for day := 0; day < 5 && recorded < count; day++ {
			at := start.AddDate(0, 0, week*7+day)
			require.NoError(t, svc.RecordTrip(ctx, rider, homePlace, at, 1500))
			recorded++
		}
	}
}

func TestPredictHomewardEveningScenario(t *testing.T) {
	svc, _ := newTestService(t)
	recordEveningTrips(t, svc, "rider-1", 15)

	// Wednesday 19:00, shortly after the recorded stretch.
	svc.now = func() time.Time { return time.Date(2026, 8, 26, 19, 0, 0, 0, time.UTC) }

	preds, err := svc.Predict(context.Background(), "rider-1", 6.4281, 3.4219)
	require.NoError(t, err)
	require.NotEmpty(t, preds)
	assert.Equal(t, "home-p", preds[0].PlaceID)
	assert.Equal(t, "Heading home?", preds[0].Label)
	assert.Greater(t, preds[0].Confidence, 0.5)
}

func TestPredictColdStartPurity(t *testing.T) {
	svc, _ := newTestService(t)
	recordEveningTrips(t, svc, "rider-1", 3)

	preds, err := svc.Predict(context.Background(), "rider-1", 6.4281, 3.4219)
	require.NoError(t, err)
	require.NotEmpty(t, preds)
	assert.LessOrEqual(t, len(preds), DefaultConfig().MaxPredictions)

	popular := make(map[string]bool)
	for _, p := range DefaultPopularPlaces {
		popular[p.PlaceID] = true
	}
	for _, p := range preds {
		assert.True(t, popular[p.PlaceID], "unexpected personalized place %s", p.PlaceID)
		assert.Equal(t, "Popular destination", p.Label)
	}
}

func TestPredictColdStartPrefersNearby(t *testing.T) {
	svc, _ := newTestService(t)

	preds, err := svc.Predict(context.Background(), "new-rider", 6.4281, 3.4219)
	require.NoError(t, err)
	require.NotEmpty(t, preds)
	// Queried from Victoria Island, the beach a few km away outranks the
	// more popular but distant airports.
	assert.Equal(t, "lagos-landmark", preds[0].PlaceID)
}

func TestPredictOptOut(t *testing.T) {
	svc, _ := newTestService(t)
	recordEveningTrips(t, svc, "rider-1", 15)
	require.NoError(t, svc.SetOptOut(context.Background(), "rider-1", true))

	preds, err := svc.Predict(context.Background(), "rider-1", 6.4281, 3.4219)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestPredictTimeMatchOrdering(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) // Monday 10:00
	svc.now = func() time.Time { return now }

	lastVisit := now.AddDate(0, 0, -2)
	require.NoError(t, store.SaveHistory(ctx, &History{
		RiderID: "rider-1",
		FrequentPlaces: []FrequentPlace{
			{Place: Place{PlaceID: "matching"}, VisitCount: 10, LastVisited: lastVisit},
			{Place: Place{PlaceID: "mismatched"}, VisitCount: 10, LastVisited: lastVisit},
		},
		Patterns: []TripPattern{
			{PlaceID: "matching", DayOfWeek: time.Monday, Hour: 10, TripCount: 10, LastTrip: lastVisit},
			{PlaceID: "mismatched", DayOfWeek: time.Saturday, Hour: 22, TripCount: 10, LastTrip: lastVisit},
		},
		TotalTrips: 20,
	}))

	preds, err := svc.Predict(ctx, "rider-1", 6.4281, 3.4219)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "matching", preds[0].PlaceID)
	assert.Greater(t, preds[0].Confidence, preds[1].Confidence)
}

func TestRecordTripMergesPatterns(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	monday := time.Date(2026, 8, 3, 19, 0, 0, 0, time.UTC)
	require.NoError(t, svc.RecordTrip(ctx, "rider-1", homePlace, monday, 1200))
	require.NoError(t, svc.RecordTrip(ctx, "rider-1", homePlace, monday.Add(time.Hour), 1800))

	history, err := store.GetHistory(ctx, "rider-1")
	require.NoError(t, err)
	require.NotNil(t, history)
	require.Len(t, history.Patterns, 1)
	assert.Equal(t, 2, history.Patterns[0].TripCount)
	assert.Equal(t, int64(1500), history.Patterns[0].AvgDurationSeconds)
	require.Len(t, history.FrequentPlaces, 1)
	assert.Equal(t, 2, history.FrequentPlaces[0].VisitCount)
	assert.Equal(t, 2, history.TotalTrips)
}

func TestRecordTripDetectsWork(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	office := Place{PlaceID: "office", Lat: 6.4550, Lng: 3.4700}

	start := time.Date(2026, 8, 3, 8, 30, 0, 0, time.UTC)
	for day := 0; day < 5; day++ {
		require.NoError(t, svc.RecordTrip(ctx, "rider-1", office, start.AddDate(0, 0, day), 2400))
	}

	history, err := store.GetHistory(ctx, "rider-1")
	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, "office", history.WorkPlaceID)
	assert.Empty(t, history.HomePlaceID)
}

func TestRecordRideAdaptsCompletedRides(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	pickedUp := time.Date(2026, 8, 3, 19, 0, 0, 0, time.UTC)
	droppedOff := pickedUp.Add(25 * time.Minute)
	ride := &model.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  model.StatusCompleted,
		Dropoff: model.Location{Lat: 6.4926, Lng: 3.3547, Label: "Surulere"},
		Route:   model.RouteInfo{DistanceMeters: 9000, DurationSeconds: 1400},
	}
	ride.PickedUpAt = &pickedUp
	ride.DroppedOffAt = &droppedOff

	require.NoError(t, svc.RecordRide(ctx, ride))

	history, err := store.GetHistory(ctx, "rider-1")
	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, 1, history.TotalTrips)
	require.Len(t, history.Patterns, 1)
	assert.Equal(t, int64(1500), history.Patterns[0].AvgDurationSeconds)

	// Rides that never completed teach nothing.
	require.NoError(t, svc.RecordRide(ctx, &model.Ride{RiderID: "rider-1", Status: model.StatusCancelled}))
	history, err = store.GetHistory(ctx, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, 1, history.TotalTrips)
}

func TestDeleteUserData(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	recordEveningTrips(t, svc, "rider-1", 15)

	require.NoError(t, svc.DeleteUserData(ctx, "rider-1"))
	history, err := store.GetHistory(ctx, "rider-1")
	require.NoError(t, err)
	assert.Nil(t, history)

	preds, err := svc.Predict(ctx, "rider-1", 6.4281, 3.4219)
	require.NoError(t, err)
	for _, p := range preds {
		assert.Equal(t, "Popular destination", p.Label)
	}
}

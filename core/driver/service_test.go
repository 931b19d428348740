package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ride-core/core/metrics"
	"github.com/ubi-africa/ride-core/core/model"
	"github.com/ubi-africa/ride-core/core/registry"
	"github.com/ubi-africa/ride-core/infra/logger"
)

type fakeAssigner struct {
	mu       sync.Mutex
	assigned map[string]string
	err      error
}

func (f *fakeAssigner) AssignDriver(_ context.Context, rideID, driverID string) (*model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.assigned == nil {
		f.assigned = make(map[string]string)
	}
	f.assigned[rideID] = driverID
	return &model.Ride{ID: rideID, DriverID: driverID, Status: model.StatusAccepted}, nil
}

type fixture struct {
	svc      *Service
	store    *MemoryStore
	reg      *registry.MemoryRegistry
	assigner *fakeAssigner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    NewMemoryStore(),
		reg:      registry.NewMemoryRegistry(),
		assigner: &fakeAssigner{},
	}
	var err error
	f.svc, err = NewService(Config{
		Store:    f.store,
		Registry: f.reg,
		Rides:    f.assigner,
		Metrics:  metrics.NopSink{},
		Logger:   logger.NopLogger{},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) seedOnlineDriver(t *testing.T, id string, lat, lng float64) {
	t.Helper()
	ctx := context.Background()
	f.store.PutDriver(model.Driver{
		ID:      id,
		UserID:  "user-" + id,
		Status:  model.DriverOnline,
		Rating:  4.8,
		Vehicle: model.Vehicle{Plate: "LAG-" + id, Class: model.ClassStandard},
		LastLat: lat,
		LastLng: lng,
	})
	require.NoError(t, f.reg.SetStatus(ctx, id, model.DriverOnline))
	require.NoError(t, f.reg.UpdateLocation(ctx, &model.DriverLocation{
		DriverID: id, Lat: lat, Lng: lng, Status: model.DriverOnline,
	}))
}

func TestAcceptRide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)

	ride, err := f.svc.AcceptRide(ctx, "ride-1", "driver-1")
	require.NoError(t, err)
	assert.Equal(t, "driver-1", ride.DriverID)

	status, err := f.reg.GetStatus(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, model.DriverOnRide, status)

	stored, err := f.store.GetDriver(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, "ride-1", stored.CurrentRideID)
}

func TestAcceptRideSecondRideIsBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)

	_, err := f.svc.AcceptRide(ctx, "ride-1", "driver-1")
	require.NoError(t, err)

	_, err = f.svc.AcceptRide(ctx, "ride-2", "driver-1")
	assert.ErrorIs(t, err, model.ErrDriverBusy)
}

func TestAcceptRideConcurrentExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.svc.AcceptRide(ctx, rideID(n), "driver-1")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t,
				errors.Is(err, model.ErrDriverBusy) || errors.Is(err, model.ErrDriverNotAvailable),
				"unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
}

func rideID(n int) string {
	return "ride-" + string(rune('a'+n))
}

func TestAcceptRideOfflineDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)
	require.NoError(t, f.reg.SetStatus(ctx, "driver-1", model.DriverOffline))

	_, err := f.svc.AcceptRide(ctx, "ride-1", "driver-1")
	assert.ErrorIs(t, err, model.ErrDriverNotAvailable)
}

func TestAcceptRideAdoptsOfferLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)

	// Matching locked the driver when presenting the offer.
	require.NoError(t, f.reg.Lock(ctx, "driver-1", "ride-1", registry.LockTTL))

	_, err := f.svc.AcceptRide(ctx, "ride-1", "driver-1")
	require.NoError(t, err)

	// A lock held for another ride blocks the accept.
	f.seedOnlineDriver(t, "driver-2", 6.4300, 3.4230)
	require.NoError(t, f.reg.Lock(ctx, "driver-2", "ride-other", registry.LockTTL))
	_, err = f.svc.AcceptRide(ctx, "ride-2", "driver-2")
	assert.ErrorIs(t, err, model.ErrDriverBusy)
}

func TestAcceptRideRollsBackOnRideFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)
	f.assigner.err = errors.New("ride already matched")

	_, err := f.svc.AcceptRide(ctx, "ride-1", "driver-1")
	require.Error(t, err)

	stored, err := f.store.GetDriver(ctx, "driver-1")
	require.NoError(t, err)
	assert.Empty(t, stored.CurrentRideID)
	assert.Equal(t, model.DriverOnline, stored.Status)

	status, err := f.reg.GetStatus(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, model.DriverOnline, status)
	holder, err := f.reg.LockHolder(ctx, "driver-1")
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestDeclineRideReleasesLockOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)
	require.NoError(t, f.reg.Lock(ctx, "driver-1", "ride-1", registry.LockTTL))

	require.NoError(t, f.svc.DeclineRide(ctx, "ride-1", "driver-1"))

	holder, err := f.reg.LockHolder(ctx, "driver-1")
	require.NoError(t, err)
	assert.Empty(t, holder)
	status, err := f.reg.GetStatus(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, model.DriverOnline, status)
}

func TestSetStatusWritesThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)

	require.NoError(t, f.svc.SetStatus(ctx, "driver-1", model.DriverOffline))

	status, err := f.reg.GetStatus(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, model.DriverOffline, status)
	stored, err := f.store.GetDriver(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, model.DriverOffline, stored.Status)
}

func TestUpdateLocationPersistsAsync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)

	require.NoError(t, f.svc.UpdateLocation(ctx, &model.DriverLocation{
		DriverID: "driver-1", Lat: 6.4300, Lng: 3.4230, Status: model.DriverOnline,
	}))

	loc, err := f.reg.GetLocation(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, 6.4300, loc.Lat)

	require.Eventually(t, func() bool {
		d, err := f.store.GetDriver(ctx, "driver-1")
		return err == nil && d.LastLat == 6.4300
	}, time.Second, 10*time.Millisecond)
}

func TestGetNearbyDriversFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOnlineDriver(t, "driver-1", 6.4290, 3.4225)

	svc, err := NewService(Config{
		Store:    f.store,
		Registry: failingRegistry{f.reg},
		Rides:    f.assigner,
		Metrics:  metrics.NopSink{},
		Logger:   logger.NopLogger{},
	})
	require.NoError(t, err)

	locs, err := svc.GetNearbyDrivers(ctx, 6.4281, 3.4219, 5000, model.ClassStandard, 10)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "driver-1", locs[0].DriverID)
}

// failingRegistry wraps a registry and fails radius scans.
type failingRegistry struct {
	registry.Registry
}

func (failingRegistry) Nearby(context.Context, float64, float64, float64, model.VehicleClass, int) ([]*model.DriverLocation, error) {
	return nil, errors.New("registry down")
}

package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ride-core/core/geo"
	"github.com/ubi-africa/ride-core/core/model"
)

func onlineDriver(t *testing.T, r *MemoryRegistry, id string, lat, lng float64, classes ...model.VehicleClass) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.SetStatus(ctx, id, model.DriverOnline))
	require.NoError(t, r.UpdateLocation(ctx, &model.DriverLocation{
		DriverID: id,
		Lat:      lat,
		Lng:      lng,
		Status:   model.DriverOnline,
		Classes:  classes,
	}))
}

func TestConcurrentLockExactlyOneWinner(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results <- r.Lock(ctx, "driver-1", fmt.Sprintf("ride-%d", n), LockTTL)
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, model.ErrDriverBusy)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestLockReentrantForSameRide(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, r.Lock(ctx, "driver-1", "ride-1", LockTTL))
	assert.NoError(t, r.Lock(ctx, "driver-1", "ride-1", LockTTL))
	assert.ErrorIs(t, r.Lock(ctx, "driver-1", "ride-2", LockTTL), model.ErrDriverBusy)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, r.Lock(ctx, "driver-1", "ride-1", LockTTL))

	r.now = func() time.Time { return time.Now().Add(2 * LockTTL) }
	holder, err := r.LockHolder(ctx, "driver-1")
	require.NoError(t, err)
	assert.Empty(t, holder)
	assert.NoError(t, r.Lock(ctx, "driver-1", "ride-2", LockTTL))
}

func TestUnlockScopedToRide(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, r.Lock(ctx, "driver-1", "ride-1", LockTTL))
	require.NoError(t, r.Unlock(ctx, "driver-1", "ride-2"))
	holder, err := r.LockHolder(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, "ride-1", holder)

	require.NoError(t, r.Unlock(ctx, "driver-1", "ride-1"))
	holder, err = r.LockHolder(ctx, "driver-1")
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestNearbyFiltersAndOrders(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	onlineDriver(t, r, "near", 6.4290, 3.4225)
	onlineDriver(t, r, "far", 6.4500, 3.4400)
	onlineDriver(t, r, "offline", 6.4282, 3.4220)
	require.NoError(t, r.SetStatus(ctx, "offline", model.DriverOffline))
	onlineDriver(t, r, "locked", 6.4283, 3.4221)
	require.NoError(t, r.Lock(ctx, "locked", "ride-x", LockTTL))
	onlineDriver(t, r, "boda-only", 6.4284, 3.4222, model.ClassBoda)
	onlineDriver(t, r, "remote", 6.6018, 3.3515)

	got, err := r.Nearby(ctx, 6.4281, 3.4219, 5000, model.ClassStandard, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].DriverID)
	assert.Equal(t, "far", got[1].DriverID)
}

func TestNearbyClassPartition(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	onlineDriver(t, r, "boda", 6.4290, 3.4225, model.ClassBoda)
	onlineDriver(t, r, "car", 6.4291, 3.4226, model.ClassStandard)

	got, err := r.Nearby(ctx, 6.4281, 3.4219, 5000, model.ClassBoda, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "boda", got[0].DriverID)
}

func TestGetLocationStaleReadsAsMissing(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	onlineDriver(t, r, "driver-1", 6.4290, 3.4225)
	r.now = func() time.Time { return time.Now().Add(LocationTTL + time.Minute) }

	_, err := r.GetLocation(ctx, "driver-1")
	assert.ErrorIs(t, err, model.ErrDriverNotFound)
}

func TestGetStatusDefaultsOffline(t *testing.T) {
	r := NewMemoryRegistry()
	status, err := r.GetStatus(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, model.DriverOffline, status)
}

func TestCountActiveInCell(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	onlineDriver(t, r, "a", 6.4281, 3.4219)
	onlineDriver(t, r, "b", 6.42811, 3.42191)
	onlineDriver(t, r, "c", 6.6018, 3.3515)

	cell := geo.Cell(6.4281, 3.4219, geo.DefaultCellResolution)
	n, err := r.CountActiveInCell(ctx, cell)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRemoveClearsAllState(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	onlineDriver(t, r, "driver-1", 6.4290, 3.4225)
	require.NoError(t, r.Lock(ctx, "driver-1", "ride-1", LockTTL))
	require.NoError(t, r.Remove(ctx, "driver-1"))

	_, err := r.GetLocation(ctx, "driver-1")
	assert.ErrorIs(t, err, model.ErrDriverNotFound)
	status, err := r.GetStatus(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, model.DriverOffline, status)
	holder, err := r.LockHolder(ctx, "driver-1")
	require.NoError(t, err)
	assert.Empty(t, holder)
}

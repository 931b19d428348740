package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ride-core/infra/logger"
)

func newTestTracker(t *testing.T) (*Tracker, *MemorySurgeStore) {
	t.Helper()
	store := NewMemorySurgeStore()
	tracker, err := NewTracker(store, DefaultSurgeConfig(), logger.NopLogger{})
	require.NoError(t, err)
	return tracker, store
}

func TestMultiplierAbsentSignal(t *testing.T) {
	tracker, _ := newTestTracker(t)
	m, err := tracker.Multiplier(context.Background(), "cell")
	require.NoError(t, err)
	assert.Equal(t, 1.0, m)
}

func TestMultiplierStaleSignal(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.UpdateSurge(ctx, "cell", 0, 10)
	require.NoError(t, err)

	// Fast-forward past the staleness window.
	tracker.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	m, err := tracker.Multiplier(ctx, "cell")
	require.NoError(t, err)
	assert.Equal(t, 1.0, m)

	data, err := store.GetSurge(ctx, "cell")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Greater(t, data.Multiplier, 1.0)
}

func TestUpdateSurgeCapped(t *testing.T) {
	tracker, _ := newTestTracker(t)
	m, err := tracker.UpdateSurge(context.Background(), "cell", 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 3.0, m)
}

func TestUpdateSurgeSmoothing(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	first, err := tracker.UpdateSurge(ctx, "cell", 0, 50)
	require.NoError(t, err)
	require.Equal(t, 3.0, first)

	// Demand collapses; the multiplier only steps down by 0.3.
	second, err := tracker.UpdateSurge(ctx, "cell", 20, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.7, second, 1e-9)
}

func TestUpdateSurgeBalancedSupply(t *testing.T) {
	tracker, _ := newTestTracker(t)
	m, err := tracker.UpdateSurge(context.Background(), "cell", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m)
}

func TestUpdateSurgeFewDrivers(t *testing.T) {
	tracker, _ := newTestTracker(t)
	m, err := tracker.UpdateSurge(context.Background(), "cell", 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, m, 1e-9)
}

package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ride-core/core/model"
	"github.com/ubi-africa/ride-core/infra/logger"
)

func newTestEngine(t *testing.T, surge SurgeReader) *Engine {
	t.Helper()
	if surge == nil {
		surge = StaticSurge{}
	}
	e, err := NewEngine(DefaultRateCards(), surge, logger.NopLogger{})
	require.NoError(t, err)
	return e
}

func TestCalculatePriceZeroTripEqualsBaseFare(t *testing.T) {
	e := newTestEngine(t, nil)
	for _, class := range model.KnownVehicleClasses {
		q, err := e.CalculatePrice(context.Background(), class, 0, 0, model.CurrencyNGN, "cell", 0)
		require.NoError(t, err)
		assert.Equal(t, q.BaseFare, q.Total, "class %s", class)
		assert.GreaterOrEqual(t, q.Total, int64(0))
	}
}

func TestCalculatePriceMonotonic(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	prev := int64(-1)
	for _, distance := range []float64{0, 1000, 5000, 20000, 100000} {
		q, err := e.CalculatePrice(ctx, model.ClassStandard, distance, 600, model.CurrencyNGN, "cell", 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, q.Total, prev, "distance %f", distance)
		prev = q.Total
	}

	prev = -1
	for _, duration := range []int64{0, 60, 600, 3600} {
		q, err := e.CalculatePrice(ctx, model.ClassStandard, 5000, duration, model.CurrencyNGN, "cell", 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, q.Total, prev, "duration %d", duration)
		prev = q.Total
	}
}

func TestCalculatePriceUnsupportedInputs(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.CalculatePrice(ctx, "hovercraft", 1000, 60, model.CurrencyNGN, "cell", 0)
	assert.ErrorIs(t, err, model.ErrUnsupportedVehicleClass)

	_, err = e.CalculatePrice(ctx, model.ClassStandard, 1000, 60, "EUR", "cell", 0)
	assert.ErrorIs(t, err, model.ErrUnsupportedCurrency)
}

func TestCalculatePriceSurgeScalesVariableOnly(t *testing.T) {
	plain := newTestEngine(t, nil)
	surged := newTestEngine(t, StaticSurge{Value: 2.0})
	ctx := context.Background()

	p, err := plain.CalculatePrice(ctx, model.ClassStandard, 10000, 1200, model.CurrencyNGN, "cell", 0)
	require.NoError(t, err)
	s, err := surged.CalculatePrice(ctx, model.ClassStandard, 10000, 1200, model.CurrencyNGN, "cell", 0)
	require.NoError(t, err)

	variable := p.DistanceFare + p.DurationFare
	assert.Equal(t, p.BaseFare+variable, p.Total)
	assert.Equal(t, s.BaseFare+2*variable, s.Total)
	assert.Equal(t, p.BaseFare, s.BaseFare)
}

func TestCalculatePricePromoFlooredAtBaseFare(t *testing.T) {
	e := newTestEngine(t, nil)
	q, err := e.CalculatePrice(context.Background(), model.ClassBoda, 2000, 300, model.CurrencyKES, "cell", 1000000)
	require.NoError(t, err)
	assert.Equal(t, q.BaseFare, q.Total)
}

func TestCalculatePriceCommissionSplit(t *testing.T) {
	e := newTestEngine(t, nil)
	q, err := e.CalculatePrice(context.Background(), model.ClassPremium, 8000, 900, model.CurrencyGHS, "cell", 0)
	require.NoError(t, err)
	assert.Equal(t, q.Total, q.DriverEarnings+q.PlatformFee)
	assert.Equal(t, int64(float64(q.Total)*0.20), q.PlatformFee)
}

type failingSurge struct{}

func (failingSurge) Multiplier(context.Context, string) (float64, error) {
	return 0, errors.New("backend down")
}

func TestCalculatePriceSurgeFailureDegradesToOne(t *testing.T) {
	e := newTestEngine(t, failingSurge{})
	q, err := e.CalculatePrice(context.Background(), model.ClassStandard, 10000, 1200, model.CurrencyNGN, "cell", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.SurgeMultiplier)
}

func TestEstimateAllCoversEveryClass(t *testing.T) {
	e := newTestEngine(t, nil)
	quotes, err := e.EstimateAll(context.Background(), 5000, 600, model.CurrencyNGN, "cell")
	require.NoError(t, err)
	assert.Len(t, quotes, len(model.KnownVehicleClasses))
}

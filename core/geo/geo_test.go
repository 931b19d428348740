package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ride-core/core/model"
)

func TestDistanceIdentity(t *testing.T) {
	assert.Equal(t, 0.0, Distance(6.4281, 3.4219, 6.4281, 3.4219))
	assert.Equal(t, 0.0, Distance(0, 0, 0, 0))
	assert.Equal(t, 0.0, Distance(-90, 180, -90, 180))
}

func TestDistanceSymmetry(t *testing.T) {
	a := Distance(6.4281, 3.4219, 6.6018, 3.3515)
	b := Distance(6.6018, 3.3515, 6.4281, 3.4219)
	assert.InDelta(t, a, b, 1e-9)
}

func TestDistanceLagos(t *testing.T) {
	// Victoria Island to Ikeja, roughly 21 km.
	d := Distance(6.4281, 3.4219, 6.6018, 3.3515)
	assert.Greater(t, d, 19000.0)
	assert.Less(t, d, 23000.0)
}

func TestDistanceAntipodal(t *testing.T) {
	d := Distance(0, 0, 0, 180)
	// Half the Earth's circumference.
	assert.InDelta(t, 20015086.0, d, 1000.0)
}

func TestBearingNormalized(t *testing.T) {
	b := Bearing(6.4281, 3.4219, 6.6018, 3.3515)
	assert.GreaterOrEqual(t, b, 0.0)
	assert.Less(t, b, 360.0)
	// Ikeja is north-northwest of Victoria Island.
	assert.Greater(t, b, 270.0)
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(6.4281, 3.4219))
	assert.True(t, IsValidCoordinate(-90, 180))
	assert.False(t, IsValidCoordinate(91, 0))
	assert.False(t, IsValidCoordinate(0, -181))
}

func TestEstimateETAFloor(t *testing.T) {
	assert.Equal(t, int64(60), EstimateETA(10, model.ClassStandard))
}

func TestEstimateETAPerClass(t *testing.T) {
	// Boda at 8 m/s should beat a tricycle at 6 m/s over the same leg.
	boda := EstimateETA(10000, model.ClassBoda)
	tricycle := EstimateETA(10000, model.ClassTricycle)
	car := EstimateETA(10000, model.ClassStandard)
	assert.Less(t, boda, tricycle)
	assert.Less(t, car, boda)
}

func TestApplyTrafficFactorBounds(t *testing.T) {
	base := int64(600)
	for hour := 0; hour < 24; hour++ {
		adjusted := ApplyTrafficFactor(base, hour)
		assert.GreaterOrEqual(t, adjusted, base, "hour %d", hour)
		assert.LessOrEqual(t, adjusted, int64(float64(base)*maxTrafficFactor), "hour %d", hour)
	}
}

func TestApplyTrafficFactorCommuteWindows(t *testing.T) {
	base := int64(600)
	assert.Equal(t, int64(900), ApplyTrafficFactor(base, 8))
	assert.Equal(t, int64(1020), ApplyTrafficFactor(base, 18))
	assert.Equal(t, int64(720), ApplyTrafficFactor(base, 13))
	assert.Equal(t, base, ApplyTrafficFactor(base, 3))
}

func TestCellDeterministic(t *testing.T) {
	a := Cell(6.4281, 3.4219, DefaultCellResolution)
	b := Cell(6.4281, 3.4219, DefaultCellResolution)
	require.Equal(t, a, b)

	// Nearby points inside the same bucket share an identifier.
	c := Cell(6.42811, 3.42191, DefaultCellResolution)
	assert.Equal(t, a, c)

	// A distant point lands in a different bucket.
	far := Cell(6.6018, 3.3515, DefaultCellResolution)
	assert.NotEqual(t, a, far)
}

func TestCellResolutionPartitions(t *testing.T) {
	coarse := Cell(6.4281, 3.4219, 5)
	fine := Cell(6.4281, 3.4219, 12)
	assert.NotEqual(t, coarse, fine)
}

func TestBoundingBoxEnclosesRadius(t *testing.T) {
	minLat, minLng, maxLat, maxLng := BoundingBox(6.4281, 3.4219, 5000)
	assert.Less(t, minLat, 6.4281)
	assert.Greater(t, maxLat, 6.4281)
	assert.Less(t, minLng, 3.4219)
	assert.Greater(t, maxLng, 3.4219)
	// The box edge due north sits exactly one radius from the center.
	assert.InDelta(t, 5000.0, Distance(6.4281, 3.4219, maxLat, 3.4219), 1.0)
}

func TestIsInServiceArea(t *testing.T) {
	name, ok := IsInServiceArea(6.4281, 3.4219, DefaultServiceAreas)
	require.True(t, ok)
	assert.Equal(t, "lagos", name)

	_, ok = IsInServiceArea(48.8566, 2.3522, DefaultServiceAreas)
	assert.False(t, ok)
}

// Package geo provides great-circle math, traffic-adjusted ETA estimation
// and spatial cell encoding for proximity bucketing.
package geo

import (
	"fmt"
	"math"

	"github.com/ubi-africa/ride-core/core/model"
)

// earthRadiusMeters is the mean Earth radius used for haversine distance.
const earthRadiusMeters = 6371000.0

// DefaultCellResolution is the grid resolution used for surge lookups and
// registry partitioning.
const DefaultCellResolution = 9

// Average speeds per vehicle class in meters per second.
const (
	speedCar      = 10.0
	speedBoda     = 8.0
	speedTricycle = 6.0
)

// etaBuffer inflates raw travel time to account for stops and routing.
const etaBuffer = 1.2

// minETASeconds is the floor applied to every estimate.
const minETASeconds = 60

// maxTrafficFactor caps congestion multipliers.
const maxTrafficFactor = 2.0

// Distance returns the haversine great-circle distance in meters between
// two coordinates. Identical points yield exactly 0.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Clamp to guard against floating point drift near antipodal points.
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Bearing returns the initial bearing in degrees from the first coordinate
// to the second, normalized to [0, 360).
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// BoundingBox returns the min/max latitude and longitude of a box that
// encloses a circle of radiusMeters around the center point.
func BoundingBox(lat, lng, radiusMeters float64) (minLat, minLng, maxLat, maxLng float64) {
	dLat := radiusMeters / earthRadiusMeters * 180 / math.Pi
	dLng := dLat / math.Cos(lat*math.Pi/180)
	return lat - dLat, lng - dLng, lat + dLat, lng + dLng
}

// IsValidCoordinate reports whether lat/lng form a real geographic point.
func IsValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// EstimateETA returns the estimated travel time in seconds for the given
// distance and vehicle class, with a routing buffer and a one-minute floor.
func EstimateETA(distanceMeters float64, class model.VehicleClass) int64 {
	speed := speedCar
	switch class {
	case model.ClassBoda:
		speed = speedBoda
	case model.ClassTricycle:
		speed = speedTricycle
	}
	seconds := int64(distanceMeters / speed * etaBuffer)
	if seconds < minETASeconds {
		seconds = minETASeconds
	}
	return seconds
}

// ApplyTrafficFactor scales a base duration by a congestion factor keyed on
// hour-of-day. The factor never drops below 1.0 and never exceeds the
// configured ceiling.
func ApplyTrafficFactor(baseSeconds int64, hourOfDay int) int64 {
	factor := trafficFactor(hourOfDay)
	return int64(float64(baseSeconds) * factor)
}

func trafficFactor(hour int) float64 {
	var factor float64
	switch {
	case hour >= 7 && hour <= 9:
		factor = 1.5
	case hour >= 17 && hour <= 20:
		factor = 1.7
	case hour >= 12 && hour <= 14:
		factor = 1.2
	default:
		factor = 1.0
	}
	if factor < 1.0 {
		factor = 1.0
	}
	if factor > maxTrafficFactor {
		factor = maxTrafficFactor
	}
	return factor
}

// Cell encodes a coordinate into a deterministic grid bucket identifier at
// the given resolution. Coordinates inside the same bucket always produce
// the same identifier. Higher resolutions yield smaller buckets.
func Cell(lat, lng float64, resolution int) string {
	if resolution < 1 {
		resolution = 1
	}
	if resolution > 15 {
		resolution = 15
	}
	// Cells shrink by half per resolution step; resolution 9 gives
	// neighborhood-sized buckets of roughly 3.5 km latitude span.
	scale := math.Pow(2, float64(resolution-4))
	latBucket := int64(math.Floor((lat + 90) * scale))
	lngBucket := int64(math.Floor((lng + 180) * scale))
	return fmt.Sprintf("%d:%d:%d", resolution, latBucket, lngBucket)
}

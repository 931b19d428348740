package model

import "time"

// DriverStatus is the real-time availability of a driver.
type DriverStatus string

const (
	DriverOffline DriverStatus = "offline"
	DriverOnline  DriverStatus = "online"
	DriverOnRide  DriverStatus = "on_ride"
)

// VehicleClass is the service tier a vehicle can serve.
type VehicleClass string

const (
	ClassStandard VehicleClass = "standard"
	ClassPremium  VehicleClass = "premium"
	ClassXL       VehicleClass = "xl"
	ClassBoda     VehicleClass = "boda"
	ClassTricycle VehicleClass = "tricycle"
)

// KnownVehicleClasses lists every class the core recognizes.
var KnownVehicleClasses = []VehicleClass{
	ClassStandard, ClassPremium, ClassXL, ClassBoda, ClassTricycle,
}

// Vehicle describes a driver's registered vehicle.
type Vehicle struct {
	Plate string       `json:"plate"`
	Make  string       `json:"make,omitempty"`
	Model string       `json:"model,omitempty"`
	Class VehicleClass `json:"class"`
}

// Driver is the durable driver record. Real-time status and position live
// in the registry; this struct is the persistent-store view.
type Driver struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	Status         DriverStatus `json:"status"`
	Rating         float64      `json:"rating"`
	AcceptanceRate float64      `json:"acceptance_rate"`
	CurrentRideID  string       `json:"current_ride_id,omitempty"`
	Vehicle        Vehicle      `json:"vehicle"`
	LastLat        float64      `json:"last_lat"`
	LastLng        float64      `json:"last_lng"`
	LastSeenAt     time.Time    `json:"last_seen_at"`
}

// DriverLocation is the registry's real-time view of a driver.
type DriverLocation struct {
	DriverID  string         `json:"driver_id"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Heading   float64        `json:"heading,omitempty"`
	SpeedKph  float64        `json:"speed_kph,omitempty"`
	Status    DriverStatus   `json:"status"`
	Classes   []VehicleClass `json:"classes,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ServesClass reports whether the driver can serve the given class. An
// empty class list means any class.
func (l *DriverLocation) ServesClass(class VehicleClass) bool {
	if class == "" || len(l.Classes) == 0 {
		return true
	}
	for _, c := range l.Classes {
		if c == class {
			return true
		}
	}
	return false
}

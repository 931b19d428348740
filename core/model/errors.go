package model

import "errors"

// Sentinel errors returned by the ride, driver and pricing services.
// Callers match them with errors.Is.
var (
	ErrRideNotFound      = errors.New("ride not found")
	ErrRideAlreadyActive = errors.New("rider already has an active ride")
	ErrRideNotActive     = errors.New("operation invalid for current ride status")
	ErrInvalidTransition = errors.New("invalid ride status transition")
	ErrForbidden         = errors.New("actor not authorized for this ride")

	ErrDriverNotFound     = errors.New("driver not found")
	ErrDriverNotAvailable = errors.New("driver not available")
	ErrDriverBusy         = errors.New("driver locked by another ride")

	ErrUnsupportedVehicleClass = errors.New("unsupported vehicle class")
	ErrUnsupportedCurrency     = errors.New("unsupported currency")
	ErrInvalidLocation         = errors.New("invalid coordinates")
	ErrOutOfServiceArea        = errors.New("pickup outside service area")
)

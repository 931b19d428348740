package registry

import "time"

// Key layout. Locations and cell indexes are short-lived; statuses survive
// brief disconnects; ride cache entries cover an average trip.
const (
	keyDriverLocation = "driver:location:"
	keyDriverStatus   = "driver:status:"
	keyDriverLock     = "driver:lock:"
	keyCellDrivers    = "cell:drivers:"
	keyActiveGeoSet   = "drivers:active"
	keyRide           = "ride:"
	keySurge          = "surge:"
	keyHistory        = "prediction:history:"
)

const (
	locationTTL  = 5 * time.Minute
	statusTTL    = 1 * time.Hour
	rideCacheTTL = 30 * time.Minute
	surgeTTL     = 5 * time.Minute
	historyTTL   = 90 * 24 * time.Hour
)

package prediction

import (
	"context"
	"time"
)

// Place is a destination a rider has visited or may visit.
type Place struct {
	PlaceID string  `json:"place_id"`
	Label   string  `json:"label,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// FrequentPlace tracks visit statistics for a place.
type FrequentPlace struct {
	Place
	VisitCount  int       `json:"visit_count"`
	LastVisited time.Time `json:"last_visited"`
}

// TripPattern aggregates trips to a place within a day-of-week and
// hour-of-day window.
type TripPattern struct {
	PlaceID            string       `json:"place_id"`
	DayOfWeek          time.Weekday `json:"day_of_week"`
	Hour               int          `json:"hour"`
	TripCount          int          `json:"trip_count"`
	AvgDurationSeconds int64        `json:"avg_duration_seconds"`
	LastTrip           time.Time    `json:"last_trip"`
}

// History is the per-rider learning state. Created lazily on the first
// recorded trip and mutated only by the prediction engine.
type History struct {
	RiderID        string          `json:"rider_id"`
	HomePlaceID    string          `json:"home_place_id,omitempty"`
	WorkPlaceID    string          `json:"work_place_id,omitempty"`
	FrequentPlaces []FrequentPlace `json:"frequent_places,omitempty"`
	Patterns       []TripPattern   `json:"patterns,omitempty"`
	TotalTrips     int             `json:"total_trips"`
	OptOut         bool            `json:"opt_out"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Prediction is a ranked destination candidate.
type Prediction struct {
	Place
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
}

// PopularPlace is a globally popular destination used for cold starts.
type PopularPlace struct {
	Place
	Popularity float64 `json:"popularity"`
}

// HistoryStore persists rider histories. GetHistory returns nil without
// error for riders with no recorded trips.
type HistoryStore interface {
	GetHistory(ctx context.Context, riderID string) (*History, error)
	SaveHistory(ctx context.Context, history *History) error
	DeleteHistory(ctx context.Context, riderID string) error
}

// Package prediction maintains per-rider trip history and produces ranked,
// time-aware destination suggestions.
package prediction

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ubi-africa/ride-core/core/geo"
	"github.com/ubi-africa/ride-core/core/logger"
	"github.com/ubi-africa/ride-core/core/model"
)

// Scoring weights for personalized predictions.
const (
	weightTime    = 0.40
	weightFreq    = 0.35
	weightRecency = 0.25
)

// Config tunes the prediction engine.
type Config struct {
	// MinTripsForPrediction is the cold-start threshold.
	MinTripsForPrediction int
	// MaxPredictions caps the returned list.
	MaxPredictions int
	// RecencyWindowDays is the linear recency decay horizon.
	RecencyWindowDays int
	// FreqSaturation is the trip count at which frequency scores max out.
	FreqSaturation int
	// HomeWorkBoost multiplies confidence during characteristic hours.
	HomeWorkBoost float64
	// MinHomeWorkScore is the arrival count needed to label home or work.
	MinHomeWorkScore int
	// PatternHourWindow merges trips within this many hours into one
	// pattern.
	PatternHourWindow int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		MinTripsForPrediction: 10,
		MaxPredictions:        3,
		RecencyWindowDays:     30,
		FreqSaturation:        20,
		HomeWorkBoost:         1.3,
		MinHomeWorkScore:      5,
		PatternHourWindow:     2,
	}
}

// Service is the destination prediction engine.
type Service struct {
	store   HistoryStore
	popular []PopularPlace
	cfg     Config
	log     logger.Logger
	now     func() time.Time
}

// NewService builds the prediction engine. The popular list backs cold
// starts and may be empty.
func NewService(store HistoryStore, popular []PopularPlace, cfg Config, log logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("prediction: history store is required")
	}
	if log == nil {
		return nil, fmt.Errorf("prediction: logger is required")
	}
	if cfg.MaxPredictions < 1 {
		cfg = DefaultConfig()
	}
	return &Service{store: store, popular: popular, cfg: cfg, log: log, now: time.Now}, nil
}

// Predict returns ranked destination candidates for the rider's current
// position and time. Opted-out riders get nothing; riders below the trip
// threshold get the popularity-ranked cold-start list.
func (s *Service) Predict(ctx context.Context, riderID string, lat, lng float64) ([]Prediction, error) {
	history, err := s.store.GetHistory(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("prediction: load history for %s: %w", riderID, err)
	}
	if history != nil && history.OptOut {
		return nil, nil
	}
	if history == nil || history.TotalTrips < s.cfg.MinTripsForPrediction {
		return s.coldStart(lat, lng), nil
	}

	now := s.now()
	out := make([]Prediction, 0, len(history.FrequentPlaces))
	for _, fp := range history.FrequentPlaces {
		confidence, label := s.scorePlace(history, fp, now)
		if confidence <= 0 {
			continue
		}
		out = append(out, Prediction{Place: fp.Place, Confidence: confidence, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > s.cfg.MaxPredictions {
		out = out[:s.cfg.MaxPredictions]
	}
	return out, nil
}

// coldStart blends global popularity with inverse distance decay from the
// rider's position.
func (s *Service) coldStart(lat, lng float64) []Prediction {
	out := make([]Prediction, 0, len(s.popular))
	for _, p := range s.popular {
		distKm := geo.Distance(lat, lng, p.Lat, p.Lng) / 1000.0
		decay := math.Max(0.3, 1.0-distKm/20.0)
		out = append(out, Prediction{
			Place:      p.Place,
			Confidence: p.Popularity * decay,
			Label:      "Popular destination",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > s.cfg.MaxPredictions {
		out = out[:s.cfg.MaxPredictions]
	}
	return out
}

// scorePlace blends time-of-day match, visit frequency and recency, with a
// home/work boost during characteristic hours.
func (s *Service) scorePlace(history *History, fp FrequentPlace, now time.Time) (float64, string) {
	timeScore := 0.0
	for _, p := range history.Patterns {
		if p.PlaceID != fp.PlaceID {
			continue
		}
		score := hourTier(now.Hour(), p.Hour)
		if p.DayOfWeek == now.Weekday() {
			score += 0.5
		} else if isWeekend(p.DayOfWeek) == isWeekend(now.Weekday()) {
			score += 0.2
		}
		if score > timeScore {
			timeScore = score
		}
	}

	freqScore := float64(fp.VisitCount) / float64(s.cfg.FreqSaturation)
	if freqScore > 1.0 {
		freqScore = 1.0
	}

	days := now.Sub(fp.LastVisited).Hours() / 24.0
	recencyScore := 1.0 - days/float64(s.cfg.RecencyWindowDays)
	if recencyScore < 0 {
		recencyScore = 0
	}

	confidence := weightTime*timeScore + weightFreq*freqScore + weightRecency*recencyScore

	label := "Frequent destination"
	switch {
	case fp.PlaceID == history.HomePlaceID && isHomewardHour(now):
		confidence *= s.cfg.HomeWorkBoost
		label = "Heading home?"
	case fp.PlaceID == history.WorkPlaceID && isWorkwardHour(now):
		confidence *= s.cfg.HomeWorkBoost
		label = "Usual morning trip"
	}
	return confidence, label
}

// hourTier gives full credit within one hour of a historical trip hour and
// partial credit out to three hours, wrapping around midnight.
func hourTier(current, historical int) float64 {
	diff := current - historical
	if diff < 0 {
		diff = -diff
	}
	if 24-diff < diff {
		diff = 24 - diff
	}
	switch {
	case diff <= 1:
		return 1.0
	case diff <= 2:
		return 0.7
	case diff <= 3:
		return 0.3
	default:
		return 0
	}
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

func isHomewardHour(now time.Time) bool {
	return isWeekend(now.Weekday()) || now.Hour() >= 18
}

func isWorkwardHour(now time.Time) bool {
	return !isWeekend(now.Weekday()) && now.Hour() >= 7 && now.Hour() <= 10
}

// RecordTrip folds a completed trip into the rider's history and re-runs
// home/work detection.
func (s *Service) RecordTrip(ctx context.Context, riderID string, dropoff Place, at time.Time, durationSeconds int64) error {
	history, err := s.store.GetHistory(ctx, riderID)
	if err != nil {
		return fmt.Errorf("prediction: load history for %s: %w", riderID, err)
	}
	if history == nil {
		history = &History{RiderID: riderID}
	}
	if history.OptOut {
		return nil
	}
	if dropoff.PlaceID == "" {
		dropoff.PlaceID = geo.Cell(dropoff.Lat, dropoff.Lng, geo.DefaultCellResolution)
	}

	s.upsertFrequentPlace(history, dropoff, at)
	s.upsertPattern(history, dropoff.PlaceID, at, durationSeconds)
	history.TotalTrips++
	history.UpdatedAt = at
	s.detectHomeWork(history)

	if err := s.store.SaveHistory(ctx, history); err != nil {
		return fmt.Errorf("prediction: save history for %s: %w", riderID, err)
	}
	return nil
}

// RecordRide adapts a completed ride into a trip learning event.
func (s *Service) RecordRide(ctx context.Context, ride *model.Ride) error {
	if ride.Status != model.StatusCompleted {
		return nil
	}
	at := s.now()
	if ride.DroppedOffAt != nil {
		at = *ride.DroppedOffAt
	}
	duration := ride.Route.DurationSeconds
	if ride.PickedUpAt != nil && ride.DroppedOffAt != nil {
		duration = int64(ride.DroppedOffAt.Sub(*ride.PickedUpAt).Seconds())
	}
	place := Place{
		Label: ride.Dropoff.Label,
		Lat:   ride.Dropoff.Lat,
		Lng:   ride.Dropoff.Lng,
	}
	return s.RecordTrip(ctx, ride.RiderID, place, at, duration)
}

func (s *Service) upsertFrequentPlace(history *History, place Place, at time.Time) {
	for i := range history.FrequentPlaces {
		if history.FrequentPlaces[i].PlaceID == place.PlaceID {
			history.FrequentPlaces[i].VisitCount++
			history.FrequentPlaces[i].LastVisited = at
			return
		}
	}
	history.FrequentPlaces = append(history.FrequentPlaces, FrequentPlace{
		Place:       place,
		VisitCount:  1,
		LastVisited: at,
	})
}

func (s *Service) upsertPattern(history *History, placeID string, at time.Time, durationSeconds int64) {
	for i := range history.Patterns {
		p := &history.Patterns[i]
		if p.PlaceID != placeID || p.DayOfWeek != at.Weekday() {
			continue
		}
		diff := at.Hour() - p.Hour
		if diff < 0 {
			diff = -diff
		}
		if diff > s.cfg.PatternHourWindow {
			continue
		}
		p.TripCount++
		p.AvgDurationSeconds += (durationSeconds - p.AvgDurationSeconds) / int64(p.TripCount)
		p.LastTrip = at
		return
	}
	history.Patterns = append(history.Patterns, TripPattern{
		PlaceID:            placeID,
		DayOfWeek:          at.Weekday(),
		Hour:               at.Hour(),
		TripCount:          1,
		AvgDurationSeconds: durationSeconds,
		LastTrip:           at,
	})
}

// detectHomeWork labels a place as home once enough evening or weekend
// arrivals accumulate, and as work on weekday-morning arrivals.
func (s *Service) detectHomeWork(history *History) {
	homeScores := make(map[string]int)
	workScores := make(map[string]int)
	for _, p := range history.Patterns {
		if isWeekend(p.DayOfWeek) || (p.Hour >= 18 && p.Hour <= 23) {
			homeScores[p.PlaceID] += p.TripCount
		}
		if !isWeekend(p.DayOfWeek) && p.Hour >= 7 && p.Hour <= 10 {
			workScores[p.PlaceID] += p.TripCount
		}
	}
	if id, score := maxScore(homeScores); score >= s.cfg.MinHomeWorkScore {
		history.HomePlaceID = id
	}
	if id, score := maxScore(workScores); score >= s.cfg.MinHomeWorkScore && id != history.HomePlaceID {
		history.WorkPlaceID = id
	}
}

func maxScore(scores map[string]int) (string, int) {
	bestID, best := "", 0
	for id, score := range scores {
		if score > best {
			bestID, best = id, score
		}
	}
	return bestID, best
}

// SetOptOut flips the rider's privacy flag. Opting out stops learning and
// predictions; existing data stays until deleted.
func (s *Service) SetOptOut(ctx context.Context, riderID string, optOut bool) error {
	history, err := s.store.GetHistory(ctx, riderID)
	if err != nil {
		return fmt.Errorf("prediction: load history for %s: %w", riderID, err)
	}
	if history == nil {
		history = &History{RiderID: riderID}
	}
	history.OptOut = optOut
	history.UpdatedAt = s.now()
	if err := s.store.SaveHistory(ctx, history); err != nil {
		return fmt.Errorf("prediction: save opt-out for %s: %w", riderID, err)
	}
	return nil
}

// DeleteUserData removes all stored history unconditionally.
func (s *Service) DeleteUserData(ctx context.Context, riderID string) error {
	if err := s.store.DeleteHistory(ctx, riderID); err != nil {
		return fmt.Errorf("prediction: delete history for %s: %w", riderID, err)
	}
	s.log.Infof("prediction history deleted for rider %s", riderID)
	return nil
}

package config

import (
	"time"

	"github.com/ubi-africa/ride-core/core/matching"
	"github.com/ubi-africa/ride-core/core/prediction"
	"github.com/ubi-africa/ride-core/core/pricing"
)

// MatchingConfig tunes the driver assignment loop. Zero values fall back
// to the production defaults.
type MatchingConfig struct {
	InitialRadiusMeters float64 `json:"initial_radius_meters"`
	MaxRadiusMeters     float64 `json:"max_radius_meters"`
	RadiusStepMeters    float64 `json:"radius_step_meters"`
	OfferTimeoutMS      int     `json:"offer_timeout_ms"`
	MaxAttempts         int     `json:"max_attempts"`
	CandidateLimit      int     `json:"candidate_limit"`
}

// Core converts to the engine's config, keeping defaults for unset fields.
func (c MatchingConfig) Core() matching.Config {
	cfg := matching.DefaultConfig()
	if c.InitialRadiusMeters > 0 {
		cfg.InitialRadiusMeters = c.InitialRadiusMeters
	}
	if c.MaxRadiusMeters > 0 {
		cfg.MaxRadiusMeters = c.MaxRadiusMeters
	}
	if c.RadiusStepMeters > 0 {
		cfg.RadiusStepMeters = c.RadiusStepMeters
	}
	if c.OfferTimeoutMS > 0 {
		cfg.OfferTimeout = time.Duration(c.OfferTimeoutMS) * time.Millisecond
	}
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	if c.CandidateLimit > 0 {
		cfg.CandidateLimit = c.CandidateLimit
	}
	return cfg
}

// SurgeConfig tunes surge pricing. Zero values fall back to the
// production defaults.
type SurgeConfig struct {
	MinDriversThreshold   int     `json:"min_drivers_threshold"`
	DemandSupplyThreshold float64 `json:"demand_supply_threshold"`
	MaxMultiplier         float64 `json:"max_multiplier"`
	StalenessMS           int     `json:"staleness_ms"`
}

// Core converts to the tracker's config, keeping defaults for unset fields.
func (c SurgeConfig) Core() pricing.SurgeConfig {
	cfg := pricing.DefaultSurgeConfig()
	if c.MinDriversThreshold > 0 {
		cfg.MinDriversThreshold = c.MinDriversThreshold
	}
	if c.DemandSupplyThreshold > 0 {
		cfg.DemandSupplyThreshold = c.DemandSupplyThreshold
	}
	if c.MaxMultiplier > 0 {
		cfg.MaxMultiplier = c.MaxMultiplier
	}
	if c.StalenessMS > 0 {
		cfg.Staleness = time.Duration(c.StalenessMS) * time.Millisecond
	}
	return cfg
}

// PredictionConfig tunes destination prediction. Zero values fall back
// to the production defaults.
type PredictionConfig struct {
	MinTripsForPrediction int `json:"min_trips_for_prediction"`
	MaxPredictions        int `json:"max_predictions"`
	RecencyWindowDays     int `json:"recency_window_days"`
}

// Core converts to the engine's config, keeping defaults for unset fields.
func (c PredictionConfig) Core() prediction.Config {
	cfg := prediction.DefaultConfig()
	if c.MinTripsForPrediction > 0 {
		cfg.MinTripsForPrediction = c.MinTripsForPrediction
	}
	if c.MaxPredictions > 0 {
		cfg.MaxPredictions = c.MaxPredictions
	}
	if c.RecencyWindowDays > 0 {
		cfg.RecencyWindowDays = c.RecencyWindowDays
	}
	return cfg
}

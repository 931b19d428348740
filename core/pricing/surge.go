package pricing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ubi-africa/ride-core/core/logger"
)

// SurgeData is the demand/supply snapshot stored per spatial cell.
type SurgeData struct {
	Cell            string    `json:"cell"`
	Multiplier      float64   `json:"multiplier"`
	ActiveDrivers   int       `json:"active_drivers"`
	PendingRequests int       `json:"pending_requests"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SurgeStore persists per-cell surge snapshots. Get returns nil without
// error when no snapshot exists for the cell.
type SurgeStore interface {
	GetSurge(ctx context.Context, cell string) (*SurgeData, error)
	SetSurge(ctx context.Context, data *SurgeData) error
}

// SurgeConfig tunes the surge computation.
type SurgeConfig struct {
	MinDriversThreshold   int
	DemandSupplyThreshold float64
	MaxMultiplier         float64
	Step                  float64
	SmoothingStep         float64
	Staleness             time.Duration
}

// DefaultSurgeConfig returns the production tuning.
func DefaultSurgeConfig() SurgeConfig {
	return SurgeConfig{
		MinDriversThreshold:   3,
		DemandSupplyThreshold: 1.5,
		MaxMultiplier:         3.0,
		Step:                  0.1,
		SmoothingStep:         0.3,
		Staleness:             5 * time.Minute,
	}
}

// Tracker derives surge multipliers from cell-level demand and supply and
// serves them as a SurgeReader. Snapshots older than the staleness window
// read as no surge.
type Tracker struct {
	store SurgeStore
	cfg   SurgeConfig
	log   logger.Logger
	now   func() time.Time
}

// NewTracker builds a surge tracker. All dependencies are required.
func NewTracker(store SurgeStore, cfg SurgeConfig, log logger.Logger) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("pricing: surge store is required")
	}
	if log == nil {
		return nil, fmt.Errorf("pricing: logger is required")
	}
	return &Tracker{store: store, cfg: cfg, log: log, now: time.Now}, nil
}

// Multiplier implements SurgeReader.
func (t *Tracker) Multiplier(ctx context.Context, cell string) (float64, error) {
	data, err := t.store.GetSurge(ctx, cell)
	if err != nil {
		return 1.0, err
	}
	if data == nil || t.now().Sub(data.UpdatedAt) > t.cfg.Staleness {
		return 1.0, nil
	}
	return data.Multiplier, nil
}

// UpdateSurge recomputes the multiplier for a cell from the current driver
// supply and pending demand, smoothing against the previous value so the
// multiplier never jumps by more than the smoothing step.
func (t *Tracker) UpdateSurge(ctx context.Context, cell string, activeDrivers, pendingRequests int) (float64, error) {
	var ratio float64
	if activeDrivers == 0 {
		ratio = float64(pendingRequests) * 2
	} else {
		ratio = float64(pendingRequests) / float64(activeDrivers)
	}

	multiplier := 1.0
	if activeDrivers < t.cfg.MinDriversThreshold {
		multiplier = 1.0 + float64(t.cfg.MinDriversThreshold-activeDrivers)*t.cfg.Step
	}
	if ratio > t.cfg.DemandSupplyThreshold {
		multiplier = math.Max(multiplier, 1.0+(ratio-t.cfg.DemandSupplyThreshold)*0.5)
	}
	if multiplier > t.cfg.MaxMultiplier {
		multiplier = t.cfg.MaxMultiplier
	}

	previous, err := t.store.GetSurge(ctx, cell)
	if err != nil {
		t.log.Warnf("surge read failed for cell %s, skipping smoothing: %v", cell, err)
		previous = nil
	}
	if previous != nil && t.now().Sub(previous.UpdatedAt) <= t.cfg.Staleness {
		diff := multiplier - previous.Multiplier
		if diff > t.cfg.SmoothingStep {
			multiplier = previous.Multiplier + t.cfg.SmoothingStep
		} else if diff < -t.cfg.SmoothingStep {
			multiplier = previous.Multiplier - t.cfg.SmoothingStep
		}
	}

	data := &SurgeData{
		Cell:            cell,
		Multiplier:      multiplier,
		ActiveDrivers:   activeDrivers,
		PendingRequests: pendingRequests,
		UpdatedAt:       t.now(),
	}
	if err := t.store.SetSurge(ctx, data); err != nil {
		return multiplier, fmt.Errorf("pricing: persist surge for cell %s: %w", cell, err)
	}
	return multiplier, nil
}

// MemorySurgeStore is a mutex-guarded in-memory SurgeStore used by tests
// and offline deployments.
type MemorySurgeStore struct {
	mu    sync.RWMutex
	cells map[string]SurgeData
}

// NewMemorySurgeStore creates an empty in-memory surge store.
func NewMemorySurgeStore() *MemorySurgeStore {
	return &MemorySurgeStore{cells: make(map[string]SurgeData)}
}

func (s *MemorySurgeStore) GetSurge(_ context.Context, cell string) (*SurgeData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.cells[cell]
	if !ok {
		return nil, nil
	}
	copied := data
	return &copied, nil
}

func (s *MemorySurgeStore) SetSurge(_ context.Context, data *SurgeData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[data.Cell] = *data
	return nil
}

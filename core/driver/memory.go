package driver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ubi-africa/ride-core/core/geo"
	"github.com/ubi-africa/ride-core/core/model"
)

// MemoryStore is a mutex-guarded in-memory Store used by tests and offline
// deployments. AssignRide has the same conditional semantics as the SQL
// implementation.
type MemoryStore struct {
	mu      sync.Mutex
	drivers map[string]model.Driver
}

// NewMemoryStore creates an empty in-memory driver store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drivers: make(map[string]model.Driver)}
}

// PutDriver seeds a driver record.
func (s *MemoryStore) PutDriver(d model.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[d.ID] = d
}

func (s *MemoryStore) GetDriver(_ context.Context, id string) (*model.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, model.ErrDriverNotFound
	}
	copied := d
	return &copied, nil
}

func (s *MemoryStore) UpdateDriverStatus(_ context.Context, id string, status model.DriverStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return model.ErrDriverNotFound
	}
	d.Status = status
	s.drivers[id] = d
	return nil
}

func (s *MemoryStore) UpdateDriverLocation(_ context.Context, id string, lat, lng float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return model.ErrDriverNotFound
	}
	d.LastLat = lat
	d.LastLng = lng
	d.LastSeenAt = at
	s.drivers[id] = d
	return nil
}

func (s *MemoryStore) AssignRide(_ context.Context, driverID, rideID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return model.ErrDriverNotFound
	}
	if d.Status != model.DriverOnline || d.CurrentRideID != "" {
		return model.ErrDriverNotAvailable
	}
	d.Status = model.DriverOnRide
	d.CurrentRideID = rideID
	s.drivers[driverID] = d
	return nil
}

func (s *MemoryStore) ClearRide(_ context.Context, driverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return model.ErrDriverNotFound
	}
	d.CurrentRideID = ""
	d.Status = model.DriverOnline
	s.drivers[driverID] = d
	return nil
}

func (s *MemoryStore) GetNearby(_ context.Context, lat, lng, radiusMeters float64, class model.VehicleClass, limit int) ([]*model.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		driver   model.Driver
		distance float64
	}
	var candidates []scored
	for _, d := range s.drivers {
		if d.Status != model.DriverOnline {
			continue
		}
		if class != "" && d.Vehicle.Class != class {
			continue
		}
		dist := geo.Distance(lat, lng, d.LastLat, d.LastLng)
		if dist > radiusMeters {
			continue
		}
		candidates = append(candidates, scored{driver: d, distance: dist})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]*model.Driver, 0, len(candidates))
	for i := range candidates {
		d := candidates[i].driver
		out = append(out, &d)
	}
	return out, nil
}

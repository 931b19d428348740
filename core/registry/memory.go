package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ubi-africa/ride-core/core/geo"
	"github.com/ubi-africa/ride-core/core/model"
)

type lockEntry struct {
	rideID    string
	expiresAt time.Time
}

type statusEntry struct {
	status    model.DriverStatus
	updatedAt time.Time
}

// MemoryRegistry is a mutex-guarded in-memory Registry with the same TTL
// semantics as the redis implementation. It backs tests and offline
// deployments.
type MemoryRegistry struct {
	mu        sync.Mutex
	locations map[string]model.DriverLocation
	statuses  map[string]statusEntry
	locks     map[string]lockEntry
	now       func() time.Time
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		locations: make(map[string]model.DriverLocation),
		statuses:  make(map[string]statusEntry),
		locks:     make(map[string]lockEntry),
		now:       time.Now,
	}
}

func (r *MemoryRegistry) UpdateLocation(_ context.Context, loc *model.DriverLocation) error {
	if !geo.IsValidCoordinate(loc.Lat, loc.Lng) {
		return model.ErrInvalidLocation
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *loc
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = r.now()
	}
	r.locations[loc.DriverID] = stored
	return nil
}

func (r *MemoryRegistry) GetLocation(_ context.Context, driverID string) (*model.DriverLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[driverID]
	if !ok || r.now().Sub(loc.UpdatedAt) > LocationTTL {
		return nil, model.ErrDriverNotFound
	}
	copied := loc
	return &copied, nil
}

func (r *MemoryRegistry) Nearby(_ context.Context, lat, lng, radiusMeters float64, class model.VehicleClass, limit int) ([]*model.DriverLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	type scored struct {
		loc      model.DriverLocation
		distance float64
	}
	var candidates []scored
	for id, loc := range r.locations {
		if now.Sub(loc.UpdatedAt) > LocationTTL {
			continue
		}
		if r.statusLocked(id, now) != model.DriverOnline {
			continue
		}
		if r.lockHolderLocked(id, now) != "" {
			continue
		}
		if !loc.ServesClass(class) {
			continue
		}
		d := geo.Distance(lat, lng, loc.Lat, loc.Lng)
		if d > radiusMeters {
			continue
		}
		candidates = append(candidates, scored{loc: loc, distance: d})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]*model.DriverLocation, len(candidates))
	for i := range candidates {
		loc := candidates[i].loc
		out[i] = &loc
	}
	return out, nil
}

func (r *MemoryRegistry) SetStatus(_ context.Context, driverID string, status model.DriverStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[driverID] = statusEntry{status: status, updatedAt: r.now()}
	return nil
}

func (r *MemoryRegistry) GetStatus(_ context.Context, driverID string) (model.DriverStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked(driverID, r.now()), nil
}

func (r *MemoryRegistry) statusLocked(driverID string, now time.Time) model.DriverStatus {
	entry, ok := r.statuses[driverID]
	if !ok || now.Sub(entry.updatedAt) > StatusTTL {
		return model.DriverOffline
	}
	return entry.status
}

func (r *MemoryRegistry) Lock(_ context.Context, driverID, rideID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	holder := r.lockHolderLocked(driverID, now)
	if holder != "" && holder != rideID {
		return model.ErrDriverBusy
	}
	r.locks[driverID] = lockEntry{rideID: rideID, expiresAt: now.Add(ttl)}
	return nil
}

func (r *MemoryRegistry) Unlock(_ context.Context, driverID, rideID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.locks[driverID]
	if !ok {
		return nil
	}
	if rideID != "" && entry.rideID != rideID {
		return nil
	}
	delete(r.locks, driverID)
	return nil
}

func (r *MemoryRegistry) LockHolder(_ context.Context, driverID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lockHolderLocked(driverID, r.now()), nil
}

func (r *MemoryRegistry) lockHolderLocked(driverID string, now time.Time) string {
	entry, ok := r.locks[driverID]
	if !ok || now.After(entry.expiresAt) {
		return ""
	}
	return entry.rideID
}

func (r *MemoryRegistry) CountActiveInCell(_ context.Context, cell string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	count := 0
	for id, loc := range r.locations {
		if now.Sub(loc.UpdatedAt) > LocationTTL {
			continue
		}
		if r.statusLocked(id, now) != model.DriverOnline {
			continue
		}
		if geo.Cell(loc.Lat, loc.Lng, geo.DefaultCellResolution) == cell {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRegistry) Remove(_ context.Context, driverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locations, driverID)
	delete(r.statuses, driverID)
	delete(r.locks, driverID)
	return nil
}

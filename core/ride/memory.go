package ride

import (
	"context"
	"sort"
	"sync"

	"github.com/ubi-africa/ride-core/core/model"
)

// MemoryStore is a mutex-guarded in-memory Store used by tests and offline
// deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]model.Ride

	// FailWrites, when set, makes every write return this error.
	FailWrites error
}

// NewMemoryStore creates an empty in-memory ride store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]model.Ride)}
}

func (s *MemoryStore) CreateRide(_ context.Context, ride *model.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.rides[ride.ID] = *ride
	return nil
}

func (s *MemoryStore) UpdateRide(_ context.Context, ride *model.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	if _, ok := s.rides[ride.ID]; !ok {
		return model.ErrRideNotFound
	}
	s.rides[ride.ID] = *ride
	return nil
}

func (s *MemoryStore) GetRide(_ context.Context, id string) (*model.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ride, ok := s.rides[id]
	if !ok {
		return nil, model.ErrRideNotFound
	}
	copied := ride
	return &copied, nil
}

func (s *MemoryStore) GetActiveRideByRider(_ context.Context, riderID string) (*model.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ride := range s.rides {
		if ride.RiderID == riderID && !ride.Status.IsTerminal() {
			copied := ride
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetActiveRideByDriver(_ context.Context, driverID string) (*model.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ride := range s.rides {
		if ride.DriverID == driverID && !ride.Status.IsTerminal() {
			copied := ride
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListRides(_ context.Context, userID string, asRider bool, limit, offset int) ([]*model.Ride, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []model.Ride
	for _, ride := range s.rides {
		if (asRider && ride.RiderID == userID) || (!asRider && ride.DriverID == userID) {
			matched = append(matched, ride)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RequestedAt.After(matched[j].RequestedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]*model.Ride, 0, end-offset)
	for i := offset; i < end; i++ {
		copied := matched[i]
		out = append(out, &copied)
	}
	return out, total, nil
}

// MemoryCache is an in-memory ride Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	rides map[string]model.Ride

	// FailReads, when set, makes GetRide return this error.
	FailReads error
}

// NewMemoryCache creates an empty in-memory ride cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{rides: make(map[string]model.Ride)}
}

func (c *MemoryCache) GetRide(_ context.Context, id string) (*model.Ride, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.FailReads != nil {
		return nil, c.FailReads
	}
	ride, ok := c.rides[id]
	if !ok {
		return nil, nil
	}
	copied := ride
	return &copied, nil
}

func (c *MemoryCache) SetRide(_ context.Context, ride *model.Ride) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rides[ride.ID] = *ride
	return nil
}

func (c *MemoryCache) InvalidateRide(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rides, id)
	return nil
}

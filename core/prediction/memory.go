package prediction

import (
	"context"
	"sync"
)

// MemoryHistoryStore is a mutex-guarded in-memory HistoryStore used by
// tests and offline deployments.
type MemoryHistoryStore struct {
	mu        sync.RWMutex
	histories map[string]History
}

// NewMemoryHistoryStore creates an empty in-memory history store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{histories: make(map[string]History)}
}

func (s *MemoryHistoryStore) GetHistory(_ context.Context, riderID string) (*History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.histories[riderID]
	if !ok {
		return nil, nil
	}
	copied := h
	copied.FrequentPlaces = append([]FrequentPlace(nil), h.FrequentPlaces...)
	copied.Patterns = append([]TripPattern(nil), h.Patterns...)
	return &copied, nil
}

func (s *MemoryHistoryStore) SaveHistory(_ context.Context, history *History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *history
	copied.FrequentPlaces = append([]FrequentPlace(nil), history.FrequentPlaces...)
	copied.Patterns = append([]TripPattern(nil), history.Patterns...)
	s.histories[history.RiderID] = copied
	return nil
}

func (s *MemoryHistoryStore) DeleteHistory(_ context.Context, riderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, riderID)
	return nil
}

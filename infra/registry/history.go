package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ubi-africa/ride-core/core/prediction"
)

// HistoryStore implements the prediction history store on redis with a
// retention TTL refreshed on every write.
type HistoryStore struct {
	client redis.UniversalClient
}

// NewHistoryStore wraps an existing redis client.
func NewHistoryStore(client redis.UniversalClient) (*HistoryStore, error) {
	if client == nil {
		return nil, fmt.Errorf("registry: redis client is required")
	}
	return &HistoryStore{client: client}, nil
}

func (s *HistoryStore) GetHistory(ctx context.Context, riderID string) (*prediction.History, error) {
	raw, err := s.client.Get(ctx, keyHistory+riderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read history for %s: %w", riderID, err)
	}
	var history prediction.History
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("registry: decode history for %s: %w", riderID, err)
	}
	return &history, nil
}

func (s *HistoryStore) SaveHistory(ctx context.Context, history *prediction.History) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("registry: encode history for %s: %w", history.RiderID, err)
	}
	if err := s.client.Set(ctx, keyHistory+history.RiderID, payload, historyTTL).Err(); err != nil {
		return fmt.Errorf("registry: store history for %s: %w", history.RiderID, err)
	}
	return nil
}

func (s *HistoryStore) DeleteHistory(ctx context.Context, riderID string) error {
	if err := s.client.Del(ctx, keyHistory+riderID).Err(); err != nil {
		return fmt.Errorf("registry: delete history for %s: %w", riderID, err)
	}
	return nil
}

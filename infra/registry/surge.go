package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ubi-africa/ride-core/core/pricing"
)

// SurgeStore implements the per-cell surge snapshot store on redis.
// Snapshots expire on their own, so stale cells read as no surge.
type SurgeStore struct {
	client redis.UniversalClient
}

// NewSurgeStore wraps an existing redis client.
func NewSurgeStore(client redis.UniversalClient) (*SurgeStore, error) {
	if client == nil {
		return nil, fmt.Errorf("registry: redis client is required")
	}
	return &SurgeStore{client: client}, nil
}

func (s *SurgeStore) GetSurge(ctx context.Context, cell string) (*pricing.SurgeData, error) {
	raw, err := s.client.Get(ctx, keySurge+cell).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read surge for cell %s: %w", cell, err)
	}
	var data pricing.SurgeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("registry: decode surge for cell %s: %w", cell, err)
	}
	return &data, nil
}

func (s *SurgeStore) SetSurge(ctx context.Context, data *pricing.SurgeData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("registry: encode surge for cell %s: %w", data.Cell, err)
	}
	if err := s.client.Set(ctx, keySurge+data.Cell, payload, surgeTTL).Err(); err != nil {
		return fmt.Errorf("registry: store surge for cell %s: %w", data.Cell, err)
	}
	return nil
}

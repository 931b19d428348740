package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ubi-africa/ride-core/core/model"
)

// RideCache implements the ride read-through cache on redis.
type RideCache struct {
	client redis.UniversalClient
}

// NewRideCache wraps an existing redis client.
func NewRideCache(client redis.UniversalClient) (*RideCache, error) {
	if client == nil {
		return nil, fmt.Errorf("registry: redis client is required")
	}
	return &RideCache{client: client}, nil
}

func (c *RideCache) GetRide(ctx context.Context, id string) (*model.Ride, error) {
	raw, err := c.client.Get(ctx, keyRide+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read cached ride %s: %w", id, err)
	}
	var ride model.Ride
	if err := json.Unmarshal(raw, &ride); err != nil {
		return nil, fmt.Errorf("registry: decode cached ride %s: %w", id, err)
	}
	return &ride, nil
}

func (c *RideCache) SetRide(ctx context.Context, ride *model.Ride) error {
	payload, err := json.Marshal(ride)
	if err != nil {
		return fmt.Errorf("registry: encode ride %s: %w", ride.ID, err)
	}
	if err := c.client.Set(ctx, keyRide+ride.ID, payload, rideCacheTTL).Err(); err != nil {
		return fmt.Errorf("registry: cache ride %s: %w", ride.ID, err)
	}
	return nil
}

func (c *RideCache) InvalidateRide(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, keyRide+id).Err(); err != nil {
		return fmt.Errorf("registry: invalidate ride %s: %w", id, err)
	}
	return nil
}

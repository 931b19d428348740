// Package registry provides the redis-backed implementations of the
// real-time driver registry, the ride cache, the surge store and the
// prediction history store.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ubi-africa/ride-core/core/geo"
	"github.com/ubi-africa/ride-core/core/logger"
	"github.com/ubi-africa/ride-core/core/model"
)

// unlockScript releases a lock only when the given ride still holds it.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisRegistry implements core/registry.Registry on go-redis. Positions
// live both as JSON values and in a GEO index so radius scans stay on the
// server.
type RedisRegistry struct {
	client redis.UniversalClient
	log    logger.Logger
	now    func() time.Time
}

// NewRedisRegistry wraps an existing redis client.
func NewRedisRegistry(client redis.UniversalClient, log logger.Logger) (*RedisRegistry, error) {
	if client == nil {
		return nil, fmt.Errorf("registry: redis client is required")
	}
	if log == nil {
		return nil, fmt.Errorf("registry: logger is required")
	}
	return &RedisRegistry{client: client, log: log, now: time.Now}, nil
}

func (r *RedisRegistry) UpdateLocation(ctx context.Context, loc *model.DriverLocation) error {
	if !geo.IsValidCoordinate(loc.Lat, loc.Lng) {
		return model.ErrInvalidLocation
	}
	stored := *loc
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = r.now()
	}
	payload, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("registry: encode location for %s: %w", loc.DriverID, err)
	}

	cell := geo.Cell(loc.Lat, loc.Lng, geo.DefaultCellResolution)
	pipe := r.client.Pipeline()
	pipe.Set(ctx, keyDriverLocation+loc.DriverID, payload, locationTTL)
	pipe.GeoAdd(ctx, keyActiveGeoSet, &redis.GeoLocation{
		Name:      loc.DriverID,
		Latitude:  loc.Lat,
		Longitude: loc.Lng,
	})
	pipe.SAdd(ctx, keyCellDrivers+cell, loc.DriverID)
	pipe.Expire(ctx, keyCellDrivers+cell, locationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("registry: store location for %s: %w", loc.DriverID, err)
	}
	return nil
}

func (r *RedisRegistry) GetLocation(ctx context.Context, driverID string) (*model.DriverLocation, error) {
	raw, err := r.client.Get(ctx, keyDriverLocation+driverID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read location for %s: %w", driverID, err)
	}
	var loc model.DriverLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("registry: decode location for %s: %w", driverID, err)
	}
	if r.now().Sub(loc.UpdatedAt) > locationTTL {
		return nil, model.ErrDriverNotFound
	}
	return &loc, nil
}

func (r *RedisRegistry) Nearby(ctx context.Context, lat, lng, radiusMeters float64, class model.VehicleClass, limit int) ([]*model.DriverLocation, error) {
	found, err := r.client.GeoSearchLocation(ctx, keyActiveGeoSet, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Latitude:   lat,
			Longitude:  lng,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("registry: geo search: %w", err)
	}

	out := make([]*model.DriverLocation, 0, len(found))
	for _, hit := range found {
		if limit > 0 && len(out) >= limit {
			break
		}
		loc, err := r.GetLocation(ctx, hit.Name)
		if err != nil {
			// Stale geo index entry; skip it.
			continue
		}
		status, err := r.GetStatus(ctx, hit.Name)
		if err != nil || status != model.DriverOnline {
			continue
		}
		holder, err := r.LockHolder(ctx, hit.Name)
		if err != nil || holder != "" {
			continue
		}
		if !loc.ServesClass(class) {
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

func (r *RedisRegistry) SetStatus(ctx context.Context, driverID string, status model.DriverStatus) error {
	if err := r.client.Set(ctx, keyDriverStatus+driverID, string(status), statusTTL).Err(); err != nil {
		return fmt.Errorf("registry: store status for %s: %w", driverID, err)
	}
	return nil
}

func (r *RedisRegistry) GetStatus(ctx context.Context, driverID string) (model.DriverStatus, error) {
	raw, err := r.client.Get(ctx, keyDriverStatus+driverID).Result()
	if errors.Is(err, redis.Nil) {
		return model.DriverOffline, nil
	}
	if err != nil {
		return model.DriverOffline, fmt.Errorf("registry: read status for %s: %w", driverID, err)
	}
	return model.DriverStatus(raw), nil
}

func (r *RedisRegistry) Lock(ctx context.Context, driverID, rideID string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, keyDriverLock+driverID, rideID, ttl).Result()
	if err != nil {
		return fmt.Errorf("registry: acquire lock for %s: %w", driverID, err)
	}
	if ok {
		return nil
	}
	holder, err := r.LockHolder(ctx, driverID)
	if err != nil {
		return err
	}
	if holder == rideID {
		// Same ride re-locking; refresh the TTL.
		if err := r.client.Set(ctx, keyDriverLock+driverID, rideID, ttl).Err(); err != nil {
			return fmt.Errorf("registry: refresh lock for %s: %w", driverID, err)
		}
		return nil
	}
	return model.ErrDriverBusy
}

func (r *RedisRegistry) Unlock(ctx context.Context, driverID, rideID string) error {
	if rideID == "" {
		if err := r.client.Del(ctx, keyDriverLock+driverID).Err(); err != nil {
			return fmt.Errorf("registry: release lock for %s: %w", driverID, err)
		}
		return nil
	}
	if err := unlockScript.Run(ctx, r.client, []string{keyDriverLock + driverID}, rideID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("registry: release lock for %s: %w", driverID, err)
	}
	return nil
}

func (r *RedisRegistry) LockHolder(ctx context.Context, driverID string) (string, error) {
	holder, err := r.client.Get(ctx, keyDriverLock+driverID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("registry: read lock for %s: %w", driverID, err)
	}
	return holder, nil
}

func (r *RedisRegistry) CountActiveInCell(ctx context.Context, cell string) (int, error) {
	members, err := r.client.SMembers(ctx, keyCellDrivers+cell).Result()
	if err != nil {
		return 0, fmt.Errorf("registry: read cell %s: %w", cell, err)
	}
	count := 0
	for _, id := range members {
		status, err := r.GetStatus(ctx, id)
		if err != nil {
			continue
		}
		if status == model.DriverOnline {
			count++
		}
	}
	return count, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, driverID string) error {
	// Drop the cell membership while the location is still readable.
	if loc, err := r.GetLocation(ctx, driverID); err == nil {
		cell := geo.Cell(loc.Lat, loc.Lng, geo.DefaultCellResolution)
		if err := r.client.SRem(ctx, keyCellDrivers+cell, driverID).Err(); err != nil {
			r.log.Warnf("remove driver %s from cell %s: %v", driverID, cell, err)
		}
	}
	pipe := r.client.Pipeline()
	pipe.Del(ctx, keyDriverLocation+driverID, keyDriverStatus+driverID, keyDriverLock+driverID)
	pipe.ZRem(ctx, keyActiveGeoSet, driverID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("registry: remove driver %s: %w", driverID, err)
	}
	return nil
}

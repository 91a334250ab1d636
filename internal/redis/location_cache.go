package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"drone-fleet/internal/drone"
	"drone-fleet/internal/fleet"
)

var _ fleet.LocationCache = (*LocationCache)(nil)

// LocationCache keeps the last reported fix of each drone with a TTL so a
// silent drone drops out of the cache.
type LocationCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func NewLocationCache(client goredis.UniversalClient, ttl time.Duration) *LocationCache {
	return &LocationCache{client: client, ttl: ttl}
}

func (c *LocationCache) Set(ctx context.Context, droneID string, fix drone.Fix) error {
	b, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("marshal drone location: %w", err)
	}
	return c.client.Set(ctx, locationKey(droneID), b, c.ttl).Err()
}

// Get returns nil, nil on a miss.
func (c *LocationCache) Get(ctx context.Context, droneID string) (*drone.Fix, error) {
	b, err := c.client.Get(ctx, locationKey(droneID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get drone location: %w", err)
	}

	var fix drone.Fix
	if err := json.Unmarshal(b, &fix); err != nil {
		return nil, fmt.Errorf("unmarshal drone location: %w", err)
	}
	return &fix, nil
}

func (c *LocationCache) Delete(ctx context.Context, droneID string) error {
	return c.client.Del(ctx, locationKey(droneID)).Err()
}

func locationKey(droneID string) string {
	return fmt.Sprintf("fleet:drone:%s:location", droneID)
}

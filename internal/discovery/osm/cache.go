package osm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 7 * 24 * time.Hour

// GeoCache stores geocode results keyed by the normalized query.
type GeoCache interface {
	Get(ctx context.Context, key string) (Geo, bool, error)
	Set(ctx context.Context, key string, geo Geo) error
}

// RedisCache is a GeoCache backed by Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache constructs a RedisCache. A non-positive ttl uses one week.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "leadfinder:geo:"
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Get implements GeoCache.
func (c *RedisCache) Get(ctx context.Context, key string) (Geo, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Geo{}, false, nil
	}
	if err != nil {
		return Geo{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var geo Geo
	if err := json.Unmarshal(val, &geo); err != nil {
		return Geo{}, false, fmt.Errorf("decode cached geo %s: %w", key, err)
	}
	return geo, true, nil
}

// Set implements GeoCache.
func (c *RedisCache) Set(ctx context.Context, key string, geo Geo) error {
	data, err := json.Marshal(geo)
	if err != nil {
		return fmt.Errorf("encode geo: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
)

// RedisCache is the L2 tier, shared across processes. Entries are
// JSON-encoded aggregate results expiring on the timeframe's TTL.
type RedisCache struct {
	client *redis.Client
	logger *observability.Logger
}

// NewRedisCache wraps an existing client as the L2 tier
func NewRedisCache(client *redis.Client, logger *observability.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

// Get retrieves a cached result. A missing key returns (nil, nil);
// corrupt entries are deleted and treated as misses.
func (c *RedisCache) Get(ctx context.Context, key Key) (*activity.AggregateResult, error) {
	data, err := c.client.Get(ctx, key.RedisKey()).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var result activity.AggregateResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.client.Del(ctx, key.RedisKey())
		if c.logger != nil {
			c.logger.WithError(err).WithField("key", key.String()).Warn("dropped corrupt cache entry")
		}
		return nil, nil
	}
	return &result, nil
}

// Set stores a result with the timeframe's TTL
func (c *RedisCache) Set(ctx context.Context, key Key, result *activity.AggregateResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregate result: %w", err)
	}
	return c.client.Set(ctx, key.RedisKey(), data, result.Timeframe.CacheTTL()).Err()
}

// Ping checks Redis connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

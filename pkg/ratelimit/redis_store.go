package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore counts windows in Redis so limits hold across instances.
// The counter key expires with the window; INCR and the expiry check
// run in one pipeline round trip.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed window store
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "hyperbeats:ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Incr counts one request against the identity's current window
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", s.prefix, key)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit incr failed: %w", err)
	}

	count := incr.Val()
	resetIn := ttl.Val()

	// First request in the window anchors it; a key without expiry
	// (fresh, or left over from a crashed EXPIRE) gets one now.
	if count == 1 || resetIn < 0 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("rate limit expire failed: %w", err)
		}
		resetIn = window
	}
	return count, resetIn, nil
}

// Reset clears an identity's window
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, fmt.Sprintf("%s:%s", s.prefix, key)).Err()
}

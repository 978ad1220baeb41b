package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
)

// MemoryConfig tunes the in-process tier
type MemoryConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// DefaultMemoryConfig sizes L1 for hot-key absorption: entries expire
// quickly so Redis stays the source of truth between processes.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		MaxEntries: 1000,
		TTL:        60 * time.Second,
	}
}

// MemoryCache is the L1 tier, an expirable LRU local to the process
type MemoryCache struct {
	cache   *lru.LRU[string, *activity.AggregateResult]
	metrics *observability.Metrics
}

// NewMemoryCache creates the L1 tier. metrics may be nil.
func NewMemoryCache(config MemoryConfig, metrics *observability.Metrics) *MemoryCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMemoryConfig().MaxEntries
	}
	if config.TTL <= 0 {
		config.TTL = DefaultMemoryConfig().TTL
	}

	mc := &MemoryCache{metrics: metrics}
	mc.cache = lru.NewLRU[string, *activity.AggregateResult](
		config.MaxEntries,
		func(key string, value *activity.AggregateResult) {
			if mc.metrics != nil {
				mc.metrics.CacheEvictionsTotal.Inc()
			}
		},
		config.TTL,
	)
	return mc
}

// Get returns the cached result, or nil on a miss
func (c *MemoryCache) Get(ctx context.Context, key Key) *activity.AggregateResult {
	result, ok := c.cache.Get(key.String())
	if !ok {
		return nil
	}
	return result
}

// Set stores a result; the tier's own TTL and capacity govern eviction
func (c *MemoryCache) Set(ctx context.Context, key Key, result *activity.AggregateResult) {
	c.cache.Add(key.String(), result)
}

// Len reports the current entry count
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}

// Purge drops every entry
func (c *MemoryCache) Purge() {
	c.cache.Purge()
}

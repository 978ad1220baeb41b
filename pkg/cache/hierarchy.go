package cache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
)

// Status reports where a lookup was served from
type Status string

const (
	StatusHitL1 Status = "HIT_L1"
	StatusHitL2 Status = "HIT_L2"
	StatusMiss  Status = "MISS"
)

// ComputeFunc produces a fresh result on a full miss
type ComputeFunc func(ctx context.Context) (*activity.AggregateResult, error)

// Hierarchy layers the L1 memory tier over the L2 Redis tier. L2 is
// optional; without it the hierarchy degrades to memory-only.
type Hierarchy struct {
	l1      *MemoryCache
	l2      *RedisCache
	group   singleflight.Group
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewHierarchy creates the two-tier cache. l2, logger, and metrics may
// each be nil.
func NewHierarchy(l1 *MemoryCache, l2 *RedisCache, logger *observability.Logger, metrics *observability.Metrics) *Hierarchy {
	return &Hierarchy{
		l1:      l1,
		l2:      l2,
		logger:  logger,
		metrics: metrics,
	}
}

// Get checks L1 then L2. An L2 hit is backfilled into L1 so repeat
// lookups stay in-process. L2 errors degrade to a miss rather than
// failing the request.
func (h *Hierarchy) Get(ctx context.Context, key Key) (*activity.AggregateResult, Status) {
	if result := h.l1.Get(ctx, key); result != nil {
		h.recordHit("l1")
		return result, StatusHitL1
	}

	if h.l2 != nil {
		result, err := h.l2.Get(ctx, key)
		if err != nil {
			if h.logger != nil {
				h.logger.WithError(err).Warn("redis cache read failed, treating as miss")
			}
		} else if result != nil {
			h.l1.Set(ctx, key, result)
			h.recordHit("l2")
			return result, StatusHitL2
		}
	}

	if h.metrics != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	return nil, StatusMiss
}

// Put writes through both tiers. A Redis write failure is logged and
// swallowed; the response was already computed and L1 has it.
func (h *Hierarchy) Put(ctx context.Context, key Key, result *activity.AggregateResult) {
	h.l1.Set(ctx, key, result)
	if h.l2 != nil {
		if err := h.l2.Set(ctx, key, result); err != nil && h.logger != nil {
			h.logger.WithError(err).Warn("redis cache write failed")
		}
	}
}

// GetOrCompute serves from cache when possible, otherwise computes.
// Concurrent misses for the same key share one compute call; callers
// that joined an in-flight computation report StatusMiss, since none
// of them was served from a cache tier.
func (h *Hierarchy) GetOrCompute(ctx context.Context, key Key, compute ComputeFunc) (*activity.AggregateResult, Status, error) {
	if result, status := h.Get(ctx, key); result != nil {
		return result, status, nil
	}

	v, err, shared := h.group.Do(key.String(), func() (interface{}, error) {
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		h.Put(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, StatusMiss, err
	}
	if shared && h.metrics != nil {
		h.metrics.SingleFlightHitsTotal.Inc()
	}
	return v.(*activity.AggregateResult), StatusMiss, nil
}

func (h *Hierarchy) recordHit(tier string) {
	if h.metrics != nil {
		h.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

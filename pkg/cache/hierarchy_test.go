package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testResult(commits int64) *activity.AggregateResult {
	return &activity.AggregateResult{
		Aggregated: activity.MetricsSnapshot{Commits: commits},
		PerRepo:    map[string]*activity.MetricsSnapshot{"octo/alpha": {Commits: commits}},
		ReposCount: 1,
		Timeframe:  activity.TimeframeWeek,
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestHierarchy_MissThenL1Hit(t *testing.T) {
	h := NewHierarchy(NewMemoryCache(DefaultMemoryConfig(), nil), NewRedisCache(setupRedis(t), nil), nil, nil)
	key := NewKey(refs("octo/alpha"), activity.TimeframeWeek, false)
	ctx := context.Background()

	result, status := h.Get(ctx, key)
	assert.Nil(t, result)
	assert.Equal(t, StatusMiss, status)

	h.Put(ctx, key, testResult(42))

	result, status = h.Get(ctx, key)
	require.NotNil(t, result)
	assert.Equal(t, StatusHitL1, status)
	assert.Equal(t, int64(42), result.Aggregated.Commits)
}

func TestHierarchy_L2HitBackfillsL1(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	key := NewKey(refs("octo/alpha"), activity.TimeframeWeek, false)

	// Seed L2 directly, as if another process populated it
	require.NoError(t, NewRedisCache(client, nil).Set(ctx, key, testResult(7)))

	h := NewHierarchy(NewMemoryCache(DefaultMemoryConfig(), nil), NewRedisCache(client, nil), nil, nil)

	result, status := h.Get(ctx, key)
	require.NotNil(t, result)
	assert.Equal(t, StatusHitL2, status)
	assert.Equal(t, int64(7), result.Aggregated.Commits)

	// Second lookup is served in-process
	result, status = h.Get(ctx, key)
	require.NotNil(t, result)
	assert.Equal(t, StatusHitL1, status)
}

func TestHierarchy_WorksWithoutRedis(t *testing.T) {
	h := NewHierarchy(NewMemoryCache(DefaultMemoryConfig(), nil), nil, nil, nil)
	key := NewKey(refs("octo/alpha"), activity.TimeframeWeek, false)
	ctx := context.Background()

	h.Put(ctx, key, testResult(1))
	result, status := h.Get(ctx, key)
	require.NotNil(t, result)
	assert.Equal(t, StatusHitL1, status)
}

func TestHierarchy_GetOrCompute_CachesResult(t *testing.T) {
	h := NewHierarchy(NewMemoryCache(DefaultMemoryConfig(), nil), NewRedisCache(setupRedis(t), nil), nil, nil)
	key := NewKey(refs("octo/alpha"), activity.TimeframeWeek, false)
	ctx := context.Background()

	var computes int32
	compute := func(ctx context.Context) (*activity.AggregateResult, error) {
		atomic.AddInt32(&computes, 1)
		return testResult(3), nil
	}

	result, status, err := h.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, status)
	assert.Equal(t, int64(3), result.Aggregated.Commits)

	result, status, err = h.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.Equal(t, StatusHitL1, status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&computes))
	_ = result
}

func TestHierarchy_GetOrCompute_ErrorNotCached(t *testing.T) {
	h := NewHierarchy(NewMemoryCache(DefaultMemoryConfig(), nil), nil, nil, nil)
	key := NewKey(refs("octo/alpha"), activity.TimeframeWeek, false)
	ctx := context.Background()

	boom := errors.New("upstream down")
	_, _, err := h.GetOrCompute(ctx, key, func(ctx context.Context) (*activity.AggregateResult, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// The failure must not have poisoned the cache
	result, status := h.Get(ctx, key)
	assert.Nil(t, result)
	assert.Equal(t, StatusMiss, status)
}

func TestHierarchy_SingleFlightCoalescesConcurrentMisses(t *testing.T) {
	h := NewHierarchy(NewMemoryCache(DefaultMemoryConfig(), nil), nil, nil, nil)
	key := NewKey(refs("octo/alpha"), activity.TimeframeWeek, false)
	ctx := context.Background()

	var computes int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (*activity.AggregateResult, error) {
		atomic.AddInt32(&computes, 1)
		<-release
		return testResult(9), nil
	}

	const callers = 10
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]*activity.AggregateResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			result, _, err := h.GetOrCompute(ctx, key, compute)
			assert.NoError(t, err)
			results[i] = result
		}()
	}
	started.Wait()
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&computes))
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, int64(9), r.Aggregated.Commits)
	}
}

func TestHierarchy_RedisFailureDegradesToMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	h := NewHierarchy(NewMemoryCache(DefaultMemoryConfig(), nil), NewRedisCache(client, nil), nil, nil)
	key := NewKey(refs("octo/alpha"), activity.TimeframeWeek, false)
	ctx := context.Background()

	mr.Close()

	result, status := h.Get(ctx, key)
	assert.Nil(t, result)
	assert.Equal(t, StatusMiss, status)

	// Writes must not fail the request either
	h.Put(ctx, key, testResult(5))
	result, status = h.Get(ctx, key)
	require.NotNil(t, result)
	assert.Equal(t, StatusHitL1, status)
}

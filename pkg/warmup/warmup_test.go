package warmup

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/cache"
)

type countingAggregator struct {
	calls int32
}

func (a *countingAggregator) Aggregate(ctx context.Context, repos []activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) (*activity.AggregateResult, error) {
	atomic.AddInt32(&a.calls, 1)
	return &activity.AggregateResult{
		PerRepo:    map[string]*activity.MetricsSnapshot{repos[0].String(): {Commits: 1}},
		ReposCount: 1,
		Timeframe:  timeframe,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func TestWarmer_RunOnce_PopulatesCache(t *testing.T) {
	agg := &countingAggregator{}
	hierarchy := cache.NewHierarchy(cache.NewMemoryCache(cache.DefaultMemoryConfig(), nil), nil, nil, nil)

	w, err := New([]string{"octo/alpha"}, agg, hierarchy, nil)
	require.NoError(t, err)

	w.RunOnce()

	// One fetch per warmed timeframe
	assert.Equal(t, int32(2), atomic.LoadInt32(&agg.calls))

	// Warmed entries serve from L1
	key := cache.NewKey([]activity.RepositoryRef{{Owner: "octo", Name: "alpha"}}, activity.TimeframeWeek, true)
	result, status := hierarchy.Get(context.Background(), key)
	require.NotNil(t, result)
	assert.Equal(t, cache.StatusHitL1, status)

	// A second sweep finds everything cached
	w.RunOnce()
	assert.Equal(t, int32(2), atomic.LoadInt32(&agg.calls))
}

func TestWarmer_RejectsInvalidRepo(t *testing.T) {
	_, err := New([]string{"not-a-repo"}, &countingAggregator{}, nil, nil)
	assert.Error(t, err)
}

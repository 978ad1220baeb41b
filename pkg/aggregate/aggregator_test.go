package aggregate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/github"
)

// fakeFetcher returns canned snapshots or errors per repository
type fakeFetcher struct {
	mu        sync.Mutex
	snapshots map[string]*activity.MetricsSnapshot
	errs      map[string]error
	calls     int32
	inFlight  int32
	maxSeen   int32
	delay     time.Duration
}

func (f *fakeFetcher) FetchActivity(ctx context.Context, repo activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) (*activity.MetricsSnapshot, error) {
	atomic.AddInt32(&f.calls, 1)
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	if current > f.maxSeen {
		f.maxSeen = current
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if err, ok := f.errs[repo.String()]; ok {
		return nil, err
	}
	if snap, ok := f.snapshots[repo.String()]; ok {
		return snap, nil
	}
	return &activity.MetricsSnapshot{}, nil
}

func repos(names ...string) []activity.RepositoryRef {
	out := make([]activity.RepositoryRef, 0, len(names))
	for _, n := range names {
		ref, _ := activity.ParseRepositoryRef(n)
		out = append(out, ref)
	}
	return out
}

func TestAggregator_SumsTotals(t *testing.T) {
	fetcher := &fakeFetcher{
		snapshots: map[string]*activity.MetricsSnapshot{
			"a/b": {Commits: 10, PRsMerged: 2, IssuesClosed: 1, Contributors: 3},
			"c/d": {Commits: 5, PRsMerged: 1, IssuesClosed: 4, Contributors: 2},
		},
	}
	agg := New(fetcher, 10, nil)

	result, err := agg.Aggregate(context.Background(), repos("a/b", "c/d"), activity.TimeframeWeek, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ReposCount)
	assert.Equal(t, int64(15), result.Aggregated.Commits)
	assert.Equal(t, int64(3), result.Aggregated.PRsMerged)
	assert.Equal(t, int64(5), result.Aggregated.IssuesClosed)
	assert.Len(t, result.PerRepo, 2)
	assert.Empty(t, result.Failed)
	assert.Equal(t, activity.TimeframeWeek, result.Timeframe)
	assert.False(t, result.Timestamp.IsZero())
}

func TestAggregator_PartialFailureIsolation(t *testing.T) {
	fetcher := &fakeFetcher{
		snapshots: map[string]*activity.MetricsSnapshot{
			"a/b": {Commits: 7},
		},
		errs: map[string]error{
			"ghost/nowhere": &github.UpstreamError{Kind: github.KindNotFound, Repo: "ghost/nowhere"},
		},
	}
	agg := New(fetcher, 10, nil)

	result, err := agg.Aggregate(context.Background(), repos("a/b", "ghost/nowhere"), activity.TimeframeWeek, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ReposCount)
	assert.Equal(t, int64(7), result.Aggregated.Commits)

	require.Contains(t, result.PerRepo, "ghost/nowhere")
	assert.Nil(t, result.PerRepo["ghost/nowhere"])
	assert.Contains(t, result.Failed["ghost/nowhere"], "not_found")

	require.Contains(t, result.PerRepo, "a/b")
	assert.Equal(t, int64(7), result.PerRepo["a/b"].Commits)
}

func TestAggregator_AllFailed(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[string]error{
			"a/b": errors.New("boom"),
			"c/d": errors.New("boom"),
		},
	}
	agg := New(fetcher, 10, nil)

	_, err := agg.Aggregate(context.Background(), repos("a/b", "c/d"), activity.TimeframeWeek, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllFailed)
}

func TestAggregator_BoundedConcurrency(t *testing.T) {
	fetcher := &fakeFetcher{delay: 20 * time.Millisecond}
	agg := New(fetcher, 2, nil)

	_, err := agg.Aggregate(context.Background(), repos("a/a", "b/b", "c/c", "d/d", "e/e", "f/f"), activity.TimeframeWeek, false)
	require.NoError(t, err)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.LessOrEqual(t, fetcher.maxSeen, int32(2))
	assert.Equal(t, int32(6), atomic.LoadInt32(&fetcher.calls))
}

func TestAggregator_SemaphoreSharedAcrossAggregations(t *testing.T) {
	fetcher := &fakeFetcher{delay: 20 * time.Millisecond}
	agg := New(fetcher, 2, nil)

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := agg.Aggregate(context.Background(), repos("a/a", "b/b"), activity.TimeframeWeek, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.LessOrEqual(t, fetcher.maxSeen, int32(2))
}

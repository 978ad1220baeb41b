// Package aggregate combines per-repository activity snapshots into a
// single result. Repositories are fetched in parallel under a shared
// concurrency bound, and a failing repository degrades the result
// instead of aborting it: its entry carries an error marker while the
// remaining repositories aggregate normally.
package aggregate

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
)

// ErrAllFailed is returned when no repository produced a snapshot
var ErrAllFailed = errors.New("all repository fetches failed")

// DefaultMaxConcurrent bounds simultaneous upstream calls across all
// in-flight aggregations, matching the per-request repository cap.
const DefaultMaxConcurrent = 10

// Fetcher retrieves one repository's activity snapshot
type Fetcher interface {
	FetchActivity(ctx context.Context, repo activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) (*activity.MetricsSnapshot, error)
}

// Aggregator fans out snapshot fetches and sums the results
type Aggregator struct {
	fetcher Fetcher
	sem     *semaphore.Weighted
	logger  *observability.Logger
}

// New creates an aggregator. The semaphore is shared by every
// aggregation this instance runs, protecting the upstream provider's
// quota from concurrent multi-repo requests.
func New(fetcher Fetcher, maxConcurrent int64, logger *observability.Logger) *Aggregator {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	return &Aggregator{
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(maxConcurrent),
		logger:  logger,
	}
}

// Aggregate fetches every repository in parallel and combines the
// snapshots. Failed repositories appear in the result with a nil
// snapshot and an error message; ErrAllFailed is returned only when no
// repository succeeded.
func (a *Aggregator) Aggregate(ctx context.Context, repos []activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) (*activity.AggregateResult, error) {
	results := make([]activity.RepoResult, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	for i, repo := range repos {
		g.Go(func() error {
			if err := a.sem.Acquire(gctx, 1); err != nil {
				results[i] = activity.RepoResult{Repo: repo, Err: err}
				return nil
			}
			defer a.sem.Release(1)

			snap, err := a.fetcher.FetchActivity(gctx, repo, timeframe, includeSeries)
			if err != nil {
				a.logger.WithError(err).WithField("repo", repo.String()).Warn("repository fetch failed")
				results[i] = activity.RepoResult{Repo: repo, Err: err}
				return nil
			}
			results[i] = activity.RepoResult{Repo: repo, Snapshot: snap}
			return nil
		})
	}
	// Workers never return errors; failures are carried per-repo
	_ = g.Wait()

	result := &activity.AggregateResult{
		PerRepo:   make(map[string]*activity.MetricsSnapshot, len(repos)),
		Timeframe: timeframe,
		Timestamp: time.Now().UTC(),
	}

	var firstErr error
	for _, r := range results {
		key := r.Repo.String()
		if r.Err != nil {
			result.PerRepo[key] = nil
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[key] = r.Err.Error()
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		result.PerRepo[key] = r.Snapshot
		result.Aggregated = result.Aggregated.Add(*r.Snapshot)
		result.ReposCount++
	}

	if result.ReposCount == 0 {
		return nil, errors.Join(ErrAllFailed, firstErr)
	}
	return result, nil
}

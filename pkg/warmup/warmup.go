// Package warmup keeps popular chart entries hot by refreshing them on
// a cron schedule, so the first viewer after a TTL expiry still gets a
// cache hit.
package warmup

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/cache"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
	"github.com/hyperionkit/hyperbeats/pkg/validation"
)

// Aggregator matches the API server's aggregation dependency
type Aggregator interface {
	Aggregate(ctx context.Context, repos []activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) (*activity.AggregateResult, error)
}

// Warmer refreshes configured repositories into the cache hierarchy
type Warmer struct {
	repos      []activity.RepositoryRef
	aggregator Aggregator
	cache      *cache.Hierarchy
	logger     *observability.Logger
	cron       *cron.Cron
}

// New parses the configured repo list and builds a warmer
func New(repoNames []string, aggregator Aggregator, hierarchy *cache.Hierarchy, logger *observability.Logger) (*Warmer, error) {
	var repos []activity.RepositoryRef
	for _, name := range repoNames {
		parsed, err := validation.ParseRepos(name)
		if err != nil {
			return nil, fmt.Errorf("invalid warmup repo %q: %w", name, err)
		}
		repos = append(repos, parsed...)
	}
	return &Warmer{
		repos:      repos,
		aggregator: aggregator,
		cache:      hierarchy,
		logger:     logger,
	}, nil
}

// Start schedules warmup runs; the first run fires immediately so a
// fresh deployment serves hits from the start.
func (w *Warmer) Start(schedule string) error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(schedule, w.RunOnce); err != nil {
		return fmt.Errorf("invalid warmup schedule %q: %w", schedule, err)
	}
	w.cron.Start()
	go w.RunOnce()
	return nil
}

// Stop halts the schedule, waiting for a running refresh to finish
func (w *Warmer) Stop(ctx context.Context) error {
	if w.cron == nil {
		return nil
	}
	select {
	case <-w.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce refreshes every configured repo for the chart timeframes.
// Each entry warms independently; one failing repo does not stop the
// sweep.
func (w *Warmer) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, repo := range w.repos {
		for _, timeframe := range []activity.Timeframe{activity.TimeframeWeek, activity.TimeframeMonth} {
			repos := []activity.RepositoryRef{repo}
			key := cache.NewKey(repos, timeframe, true)
			_, _, err := w.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*activity.AggregateResult, error) {
				return w.aggregator.Aggregate(ctx, repos, timeframe, true)
			})
			if err != nil && w.logger != nil {
				w.logger.WithError(err).WithFields(map[string]interface{}{
					"repo":      repo.String(),
					"timeframe": string(timeframe),
				}).Warn("cache warmup fetch failed")
			}
		}
	}
	if w.logger != nil {
		w.logger.WithField("repos", len(w.repos)).Debug("cache warmup sweep complete")
	}
}

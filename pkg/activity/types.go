package activity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RepositoryRef identifies a single repository by owner and name.
// Refs are normalized to lowercase so that "Microsoft/VSCode" and
// "microsoft/vscode" refer to the same aggregation unit.
type RepositoryRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ParseRepositoryRef parses an "owner/name" string into a normalized ref
func ParseRepositoryRef(s string) (RepositoryRef, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepositoryRef{}, fmt.Errorf("invalid repository format: %s. Expected 'owner/repo'", s)
	}
	return RepositoryRef{
		Owner: strings.ToLower(parts[0]),
		Name:  strings.ToLower(parts[1]),
	}, nil
}

// String returns the canonical "owner/name" form
func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// Timeframe is the lookback window for metrics aggregation
type Timeframe string

const (
	TimeframeDay     Timeframe = "1d"
	TimeframeWeek    Timeframe = "7d"
	TimeframeMonth   Timeframe = "30d"
	TimeframeQuarter Timeframe = "90d"
	TimeframeYear    Timeframe = "1y"
)

// Timeframes lists all valid timeframes in ascending order
func Timeframes() []Timeframe {
	return []Timeframe{TimeframeDay, TimeframeWeek, TimeframeMonth, TimeframeQuarter, TimeframeYear}
}

// ParseTimeframe validates and returns a timeframe value
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case TimeframeDay, TimeframeWeek, TimeframeMonth, TimeframeQuarter, TimeframeYear:
		return Timeframe(s), nil
	}
	return "", fmt.Errorf("invalid timeframe: %s. Valid options: 1d, 1y, 30d, 7d, 90d", s)
}

// Lookback returns the concrete duration covered by the timeframe
func (t Timeframe) Lookback() time.Duration {
	switch t {
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	case TimeframeQuarter:
		return 90 * 24 * time.Hour
	case TimeframeYear:
		return 365 * 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// Bucket returns the granularity of one time-series bucket.
// Short windows bucket hourly, long windows weekly, so charts stay
// readable regardless of the lookback.
func (t Timeframe) Bucket() time.Duration {
	switch t {
	case TimeframeDay:
		return time.Hour
	case TimeframeWeek, TimeframeMonth:
		return 24 * time.Hour
	case TimeframeQuarter, TimeframeYear:
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// BucketCount returns the number of buckets the lookback divides into
func (t Timeframe) BucketCount() int {
	return int(t.Lookback() / t.Bucket())
}

// CacheTTL returns the shared-cache TTL for results computed over this
// timeframe. Longer windows change more slowly relative to their span,
// so they cache longer.
func (t Timeframe) CacheTTL() time.Duration {
	switch t {
	case TimeframeDay:
		return 5 * time.Minute
	case TimeframeWeek:
		return 15 * time.Minute
	case TimeframeMonth:
		return 30 * time.Minute
	case TimeframeQuarter, TimeframeYear:
		return time.Hour
	}
	return 5 * time.Minute
}

// TimeSeriesPoint is one time-bucketed slice of repository activity
type TimeSeriesPoint struct {
	Bucket       time.Time `json:"bucket"`
	Commits      int64     `json:"commits"`
	PRsMerged    int64     `json:"prs_merged"`
	IssuesClosed int64     `json:"issues_closed"`
}

// MetricsSnapshot holds per-repository activity counts for a timeframe.
// Series is populated only when historical detail was requested.
// Snapshots are value objects: once published into a cache entry or an
// AggregateResult they are never mutated.
type MetricsSnapshot struct {
	Commits      int64             `json:"commits"`
	PRsOpened    int64             `json:"prs_opened"`
	PRsMerged    int64             `json:"prs_merged"`
	IssuesOpened int64             `json:"issues_opened"`
	IssuesClosed int64             `json:"issues_closed"`
	Contributors int64             `json:"contributors"`
	Series       []TimeSeriesPoint `json:"series,omitempty"`
}

// Add accumulates counts from another snapshot into a new snapshot.
// Series data is intentionally not merged; aggregated series are built
// by the aggregator bucket-by-bucket.
func (m MetricsSnapshot) Add(other MetricsSnapshot) MetricsSnapshot {
	return MetricsSnapshot{
		Commits:      m.Commits + other.Commits,
		PRsOpened:    m.PRsOpened + other.PRsOpened,
		PRsMerged:    m.PRsMerged + other.PRsMerged,
		IssuesOpened: m.IssuesOpened + other.IssuesOpened,
		IssuesClosed: m.IssuesClosed + other.IssuesClosed,
		Contributors: m.Contributors + other.Contributors,
	}
}

// RepoResult is the tagged per-repository outcome of an aggregation.
// Exactly one of Snapshot or Err is set.
type RepoResult struct {
	Repo     RepositoryRef
	Snapshot *MetricsSnapshot
	Err      error
}

// AggregateResult combines per-repository snapshots with summed totals.
// It is immutable once constructed; concurrent readers share it through
// the cache without copying.
type AggregateResult struct {
	Aggregated MetricsSnapshot             `json:"aggregated"`
	PerRepo    map[string]*MetricsSnapshot `json:"per_repo"`
	Failed     map[string]string           `json:"failed,omitempty"`
	ReposCount int                         `json:"repos_count"`
	Timeframe  Timeframe                   `json:"timeframe"`
	Timestamp  time.Time                   `json:"timestamp"`
}

// Succeeded reports how many repositories produced a snapshot
func (a *AggregateResult) Succeeded() int {
	return len(a.PerRepo) - len(a.Failed)
}

// ChartSeries flattens per-repo series into one aggregate series with
// one point per bucket, in chronological order. Missing buckets are
// zero-filled so the renderer always sees a fixed-length series.
func (a *AggregateResult) ChartSeries() []TimeSeriesPoint {
	buckets := make(map[time.Time]*TimeSeriesPoint)
	var order []time.Time
	for _, snap := range a.PerRepo {
		if snap == nil {
			continue
		}
		for _, p := range snap.Series {
			agg, ok := buckets[p.Bucket]
			if !ok {
				agg = &TimeSeriesPoint{Bucket: p.Bucket}
				buckets[p.Bucket] = agg
				order = append(order, p.Bucket)
			}
			agg.Commits += p.Commits
			agg.PRsMerged += p.PRsMerged
			agg.IssuesClosed += p.IssuesClosed
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	series := make([]TimeSeriesPoint, 0, len(order))
	for _, b := range order {
		series = append(series, *buckets[b])
	}
	return series
}

package api

import (
	"time"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/render"
)

// MetricsAggregateResponse is the JSON body for GET /api/v1/metrics/aggregate
type MetricsAggregateResponse struct {
	Aggregated map[string]int64            `json:"aggregated"`
	PerRepo    map[string]map[string]int64 `json:"per_repo"`
	Failed     map[string]string           `json:"failed,omitempty"`
	Historical []activity.TimeSeriesPoint  `json:"historical,omitempty"`
	Timeframe  activity.Timeframe          `json:"timeframe"`
	Timestamp  time.Time                   `json:"timestamp"`
}

// RepoMetricsResponse is the JSON body for GET /api/v1/metrics/repos/{owner}/{repo}
type RepoMetricsResponse struct {
	Repository string             `json:"repository"`
	Timeframe  activity.Timeframe `json:"timeframe"`
	Metrics    map[string]int64   `json:"metrics"`
	Timestamp  time.Time          `json:"timestamp"`
}

// ThemesResponse is the JSON body for GET /api/v1/themes
type ThemesResponse struct {
	Themes  []render.Theme `json:"themes"`
	Default string         `json:"default"`
}

func snapshotFields(s *activity.MetricsSnapshot) map[string]int64 {
	return map[string]int64{
		"commits":       s.Commits,
		"prs_opened":    s.PRsOpened,
		"prs_merged":    s.PRsMerged,
		"issues_opened": s.IssuesOpened,
		"issues_closed": s.IssuesClosed,
		"contributors":  s.Contributors,
	}
}

// filterFields keeps only the selected metric names; a nil filter
// keeps everything. repos_count survives filtering unconditionally.
func filterFields(fields map[string]int64, filter []string) map[string]int64 {
	if filter == nil {
		return fields
	}
	keep := make(map[string]struct{}, len(filter))
	for _, f := range filter {
		keep[f] = struct{}{}
	}
	out := make(map[string]int64, len(filter)+1)
	for k, v := range fields {
		if _, ok := keep[k]; ok || k == "repos_count" {
			out[k] = v
		}
	}
	return out
}

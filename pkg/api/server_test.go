package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/aggregate"
	"github.com/hyperionkit/hyperbeats/pkg/cache"
	"github.com/hyperionkit/hyperbeats/pkg/github"
	"github.com/hyperionkit/hyperbeats/pkg/ratelimit"
)

// stubAggregator returns canned results per repo set
type stubAggregator struct {
	calls    int32
	failRepo string
	failAll  bool
}

func (a *stubAggregator) Aggregate(ctx context.Context, repos []activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) (*activity.AggregateResult, error) {
	atomic.AddInt32(&a.calls, 1)

	if a.failAll {
		return nil, errors.Join(aggregate.ErrAllFailed, &github.UpstreamError{Kind: github.KindUnavailable, Repo: repos[0].String()})
	}

	result := &activity.AggregateResult{
		PerRepo:   make(map[string]*activity.MetricsSnapshot, len(repos)),
		Timeframe: timeframe,
		Timestamp: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	for _, repo := range repos {
		key := repo.String()
		if key == a.failRepo {
			result.PerRepo[key] = nil
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[key] = "upstream not_found for " + key
			continue
		}
		snap := &activity.MetricsSnapshot{
			Commits: 10, PRsOpened: 4, PRsMerged: 3, IssuesOpened: 2, IssuesClosed: 1, Contributors: 5,
		}
		if includeSeries {
			base := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
			for i := 0; i < timeframe.BucketCount(); i++ {
				snap.Series = append(snap.Series, activity.TimeSeriesPoint{
					Bucket:  base.Add(time.Duration(i) * timeframe.Bucket()),
					Commits: int64(i),
				})
			}
		}
		result.PerRepo[key] = snap
		result.Aggregated = result.Aggregated.Add(*snap)
		result.ReposCount++
	}
	if result.ReposCount == 0 {
		return nil, aggregate.ErrAllFailed
	}
	return result, nil
}

func newTestServer(agg Aggregator) *Server {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Config{}, nil, nil)
	return NewServer(Options{
		Aggregator: agg,
		Cache:      cache.NewHierarchy(cache.NewMemoryCache(cache.DefaultMemoryConfig(), nil), nil, nil, nil),
		Limiter:    limiter,
	})
}

func get(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.7:52011"
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestChartActivity_ColdMissThenL1Hit(t *testing.T) {
	agg := &stubAggregator{}
	server := newTestServer(agg)

	rec := get(t, server, "/api/v1/chart/activity?repos=octo/alpha&timeframe=7d")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "<svg")

	rec = get(t, server, "/api/v1/chart/activity?repos=octo/alpha&timeframe=7d")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT_L1", rec.Header().Get("X-Cache"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&agg.calls))
}

func TestChartActivity_PNG(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	rec := get(t, server, "/api/v1/chart/activity?repos=octo/alpha&format=png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	body := rec.Body.Bytes()
	require.Greater(t, len(body), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, body[:4])
}

func TestChartActivity_ValidationErrors(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	cases := []struct {
		name string
		path string
		want string
	}{
		{"missing repos", "/api/v1/chart/activity", "At least one repository is required"},
		{"too many repos", "/api/v1/chart/activity?repos=" + manyRepos(11), "Maximum 10 repositories allowed per request"},
		{"bad timeframe", "/api/v1/chart/activity?repos=a/b&timeframe=2w", "invalid timeframe"},
		{"bad format", "/api/v1/chart/activity?repos=a/b&format=gif", "Invalid format"},
		{"bad theme", "/api/v1/chart/activity?repos=a/b&theme=neon", "Invalid theme"},
		{"bad width", "/api/v1/chart/activity?repos=a/b&width=50", "Width must be between 200 and 2000 pixels"},
		{"bad height", "/api/v1/chart/activity?repos=a/b&height=5000", "Height must be between 100 and 1000 pixels"},
		{"traversal", "/api/v1/chart/activity?repos=../../etc/passwd", "Invalid repository"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, server, tc.path)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["detail"], tc.want)
		})
	}
}

func manyRepos(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("owner/repo%d", i)
	}
	return out
}

func TestMetricsAggregate_TwoRepos(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	rec := get(t, server, "/api/v1/metrics/aggregate?repos=octo/alpha,octo/beta&timeframe=30d")
	require.Equal(t, http.StatusOK, rec.Code)

	var body MetricsAggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Aggregated["repos_count"])
	assert.Equal(t, int64(20), body.Aggregated["commits"])
	assert.Len(t, body.PerRepo, 2)
	assert.Equal(t, activity.TimeframeMonth, body.Timeframe)
}

func TestMetricsAggregate_MetricsFilter(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	rec := get(t, server, "/api/v1/metrics/aggregate?repos=octo/alpha&metrics=commits,contributors")
	require.Equal(t, http.StatusOK, rec.Code)

	var body MetricsAggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(10), body.Aggregated["commits"])
	assert.Equal(t, int64(5), body.Aggregated["contributors"])
	assert.Equal(t, int64(1), body.Aggregated["repos_count"])
	assert.NotContains(t, body.Aggregated, "prs_merged")
	assert.NotContains(t, body.PerRepo["octo/alpha"], "issues_closed")
}

func TestMetricsAggregate_PartialFailure(t *testing.T) {
	server := newTestServer(&stubAggregator{failRepo: "ghost/nowhere"})

	rec := get(t, server, "/api/v1/metrics/aggregate?repos=octo/alpha,ghost/nowhere")
	require.Equal(t, http.StatusOK, rec.Code)

	var body MetricsAggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Aggregated["repos_count"])
	assert.Contains(t, body.Failed, "ghost/nowhere")
	assert.NotContains(t, body.PerRepo, "ghost/nowhere")
}

func TestMetricsAggregate_AllFailed(t *testing.T) {
	server := newTestServer(&stubAggregator{failAll: true})

	rec := get(t, server, "/api/v1/metrics/aggregate?repos=octo/alpha")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to fetch repository data", body["detail"])
}

func TestMetricsAggregate_Historical(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	rec := get(t, server, "/api/v1/metrics/aggregate?repos=octo/alpha&include_historical=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var body MetricsAggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Historical, activity.TimeframeWeek.BucketCount())
}

func TestRepoMetrics(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	rec := get(t, server, "/api/v1/metrics/repos/octo/alpha?timeframe=90d")
	require.Equal(t, http.StatusOK, rec.Code)

	var body RepoMetricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "octo/alpha", body.Repository)
	assert.Equal(t, activity.TimeframeQuarter, body.Timeframe)
	assert.Equal(t, int64(10), body.Metrics["commits"])
	assert.Equal(t, int64(4), body.Metrics["prs_opened"])
}

func TestRepoMetrics_NotFound(t *testing.T) {
	server := newTestServer(&stubAggregator{failRepo: "ghost/nowhere"})

	rec := get(t, server, "/api/v1/metrics/repos/ghost/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Repository not found", body["detail"])
}

func TestThemes(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	rec := get(t, server, "/api/v1/themes")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ThemesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Themes, 7)
	assert.Equal(t, "light", body.Default)
}

func TestRateLimitHeadersOnAPIRoutes(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	rec := get(t, server, "/api/v1/metrics/aggregate?repos=octo/alpha")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestHealthSkipsRateLimit(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	for i := 0; i < 150; i++ {
		rec := get(t, server, "/health")
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	server := newTestServer(&stubAggregator{})

	rec := get(t, server, "/api/v1/themes")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

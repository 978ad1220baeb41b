package api

import (
	"net/http"

	"github.com/hyperionkit/hyperbeats/pkg/httputil"
	"github.com/hyperionkit/hyperbeats/pkg/render"
	"github.com/hyperionkit/hyperbeats/pkg/validation"
)

// handleMetricsAggregate serves GET /api/v1/metrics/aggregate
func (s *Server) handleMetricsAggregate(w http.ResponseWriter, r *http.Request) {
	repos, err := validation.ParseRepos(httputil.QueryString(r, "repos", ""))
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	timeframe, err := validation.ParseTimeframe(httputil.QueryString(r, "timeframe", ""))
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	filter, err := validation.ParseMetricsFilter(httputil.QueryString(r, "metrics", ""))
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	includeHistorical := httputil.QueryBool(r, "include_historical")

	result, status, err := s.fetchAggregate(r.Context(), repos, timeframe, includeHistorical)
	if err != nil {
		s.writeAggregateError(w, err)
		return
	}

	aggregated := snapshotFields(&result.Aggregated)
	aggregated["repos_count"] = int64(result.ReposCount)

	perRepo := make(map[string]map[string]int64, len(result.PerRepo))
	for name, snap := range result.PerRepo {
		if snap == nil {
			continue
		}
		perRepo[name] = filterFields(snapshotFields(snap), filter)
	}

	resp := MetricsAggregateResponse{
		Aggregated: filterFields(aggregated, filter),
		PerRepo:    perRepo,
		Failed:     result.Failed,
		Timeframe:  result.Timeframe,
		Timestamp:  result.Timestamp,
	}
	if includeHistorical {
		resp.Historical = result.ChartSeries()
	}

	w.Header().Set("X-Cache", string(status))
	httputil.WriteSuccess(w, resp)
}

// handleRepoMetrics serves GET /api/v1/metrics/repos/{owner}/{repo}
func (s *Server) handleRepoMetrics(w http.ResponseWriter, r *http.Request) {
	owner, err := httputil.PathVar(r, "owner")
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	name, err := httputil.PathVar(r, "repo")
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	repos, err := validation.ParseRepos(owner + "/" + name)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	timeframe, err := validation.ParseTimeframe(httputil.QueryString(r, "timeframe", ""))
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	result, status, err := s.fetchAggregate(r.Context(), repos, timeframe, false)
	if err != nil {
		s.writeAggregateError(w, err)
		return
	}

	repoKey := repos[0].String()
	snap := result.PerRepo[repoKey]
	if snap == nil {
		// Single repo, failed fetch: surface the per-repo failure
		if msg, failed := result.Failed[repoKey]; failed {
			if s.logger != nil {
				s.logger.WithField("repo", repoKey).WithField("cause", msg).Warn("repository metrics unavailable")
			}
		}
		httputil.WriteNotFound(w, "Repository not found")
		return
	}

	w.Header().Set("X-Cache", string(status))
	httputil.WriteSuccess(w, RepoMetricsResponse{
		Repository: repoKey,
		Timeframe:  timeframe,
		Metrics:    snapshotFields(snap),
		Timestamp:  result.Timestamp,
	})
}

// handleThemes serves GET /api/v1/themes
func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, ThemesResponse{
		Themes:  render.Themes(),
		Default: render.DefaultTheme,
	})
}

// handleHealth is the liveness probe
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		httputil.WriteSuccess(w, map[string]string{"status": "healthy", "service": "hyperbeats"})
		return
	}
	s.health.Liveness(w, r)
}

// handleReady is the readiness probe
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		httputil.WriteSuccess(w, map[string]string{"status": "healthy"})
		return
	}
	s.health.Readiness(w, r)
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/cache"
	"github.com/hyperionkit/hyperbeats/pkg/github"
	"github.com/hyperionkit/hyperbeats/pkg/httputil"
	"github.com/hyperionkit/hyperbeats/pkg/render"
	"github.com/hyperionkit/hyperbeats/pkg/storage"
	"github.com/hyperionkit/hyperbeats/pkg/validation"
)

// handleChartActivity serves GET /api/v1/chart/activity
func (s *Server) handleChartActivity(w http.ResponseWriter, r *http.Request) {
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
	format := httputil.QueryString(r, "format", "svg")
	if err := validation.ValidateFormat(format); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	theme, err := render.ParseTheme(httputil.QueryString(r, "theme", ""))
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	width, err := httputil.QueryInt(r, "width", render.DefaultWidth)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	height, err := httputil.QueryInt(r, "height", render.DefaultHeight)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err := validation.ValidateDimensions(width, height); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	result, status, err := s.fetchAggregate(r.Context(), repos, timeframe, true)
	if err != nil {
		s.writeAggregateError(w, err)
		return
	}

	title := fmt.Sprintf("Activity - Last %s", timeframe)
	if len(repos) == 1 {
		title = fmt.Sprintf("%s - Last %s", repos[0], timeframe)
	}

	start := time.Now()
	svgData := render.ActivityChartSVG(result.ChartSeries(), render.ChartOptions{
		Width:  width,
		Height: height,
		Theme:  theme,
		Title:  title,
	})

	body := svgData
	contentType := "image/svg+xml"
	if format == "png" {
		body, err = render.ActivityChartPNG(svgData, width, height)
		if err != nil {
			if s.logger != nil {
				s.logger.WithError(err).Error("png rasterization failed")
			}
			httputil.WriteInternalError(w)
			return
		}
		contentType = "image/png"
	}
	if s.metrics != nil {
		s.metrics.RenderTotal.WithLabelValues(format).Inc()
		s.metrics.RenderDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	}

	if status == cache.StatusMiss {
		s.archiveChart(repos, timeframe, format, contentType, body)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Cache", string(status))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// archiveChart stores a freshly rendered artifact off the request path
func (s *Server) archiveChart(repos []activity.RepositoryRef, timeframe activity.Timeframe, format, contentType string, body []byte) {
	key := storage.ArtifactKey(cache.NewKey(repos, timeframe, true).String(), format)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.archive.Store(ctx, key, body, contentType); err != nil && s.logger != nil {
			s.logger.WithError(err).WithField("key", key).Warn("chart archive write failed")
		}
	}()
}

// writeAggregateError maps an aggregation failure onto the response.
// All-repos-failed is an upstream problem, not a client one.
func (s *Server) writeAggregateError(w http.ResponseWriter, err error) {
	if s.logger != nil {
		s.logger.WithError(err).Error("aggregation failed")
	}
	switch {
	case github.IsNotFound(err):
		httputil.WriteNotFound(w, "Repository not found")
	case github.IsRateLimited(err):
		httputil.WriteServiceUnavailable(w, "Upstream rate limit exhausted")
	default:
		httputil.WriteBadGateway(w, "Failed to fetch repository data")
	}
}

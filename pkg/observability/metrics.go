package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Cache metrics, labelled by tier (l1/l2)
	CacheHitsTotal        *prometheus.CounterVec
	CacheMissesTotal      prometheus.Counter
	CacheEvictionsTotal   prometheus.Counter
	SingleFlightHitsTotal prometheus.Counter

	// Upstream provider metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	UpstreamRetriesTotal    prometheus.Counter
	UpstreamQuotaRemaining  prometheus.Gauge

	// Rate limiter metrics
	RateLimitDecisionsTotal *prometheus.CounterVec

	// Renderer metrics
	RenderTotal    *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hyperbeats_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hyperbeats_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hyperbeats_cache_hits_total",
				Help: "Total cache hits by tier",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hyperbeats_cache_misses_total",
				Help: "Total cache misses across both tiers",
			},
		),
		CacheEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hyperbeats_cache_evictions_total",
				Help: "Total L1 cache evictions",
			},
		),
		SingleFlightHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hyperbeats_singleflight_shared_total",
				Help: "Requests that joined an in-flight computation instead of starting one",
			},
		),
		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hyperbeats_upstream_requests_total",
				Help: "Total upstream provider requests",
			},
			[]string{"endpoint", "status"},
		),
		UpstreamRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hyperbeats_upstream_request_duration_seconds",
				Help:    "Upstream provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		UpstreamRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hyperbeats_upstream_retries_total",
				Help: "Total upstream request retries",
			},
		),
		UpstreamQuotaRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hyperbeats_upstream_quota_remaining",
				Help: "Remaining upstream provider rate limit quota",
			},
		),
		RateLimitDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hyperbeats_ratelimit_decisions_total",
				Help: "Rate limiter admission decisions by tier",
			},
			[]string{"tier", "decision"},
		),
		RenderTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hyperbeats_render_total",
				Help: "Total chart renders by format",
			},
			[]string{"format"},
		),
		RenderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hyperbeats_render_duration_seconds",
				Help:    "Chart render duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
			},
			[]string{"format"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.SingleFlightHitsTotal,
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.UpstreamRetriesTotal,
		m.UpstreamQuotaRemaining,
		m.RateLimitDecisionsTotal,
		m.RenderTotal,
		m.RenderDuration,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveUpstreamRequest records one upstream provider call
func (m *Metrics) ObserveUpstreamRequest(endpoint, status string, duration time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/cache"
	"github.com/hyperionkit/hyperbeats/pkg/middleware"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
	"github.com/hyperionkit/hyperbeats/pkg/ratelimit"
	"github.com/hyperionkit/hyperbeats/pkg/storage"
)

// Aggregator produces combined activity metrics for a repository set
type Aggregator interface {
	Aggregate(ctx context.Context, repos []activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) (*activity.AggregateResult, error)
}

// Options wires the server's collaborators. Cache and Limiter are
// required; Archive, Logger, Metrics, and Health may be nil.
type Options struct {
	Aggregator     Aggregator
	Cache          *cache.Hierarchy
	Limiter        *ratelimit.Limiter
	KeyStore       middleware.KeyStore
	Archive        storage.Archive
	Health         *observability.HealthChecker
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	RequestTimeout time.Duration
}

// Server is the public HTTP API
type Server struct {
	router         *mux.Router
	aggregator     Aggregator
	cache          *cache.Hierarchy
	archive        storage.Archive
	health         *observability.HealthChecker
	logger         *observability.Logger
	metrics        *observability.Metrics
	requestTimeout time.Duration
}

// NewServer creates the API server and registers all routes
func NewServer(opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Archive == nil {
		opts.Archive = storage.NoopArchive{}
	}

	s := &Server{
		router:         mux.NewRouter(),
		aggregator:     opts.Aggregator,
		cache:          opts.Cache,
		archive:        opts.Archive,
		health:         opts.Health,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		requestTimeout: opts.RequestTimeout,
	}
	s.setupRoutes(opts)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Instrument(s.logger, s.metrics))

	// Health probes stay outside auth and rate limiting
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ready", s.handleReady).Methods("GET")

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(middleware.NewAuth(opts.KeyStore, s.logger).Handler)
	v1.Use(middleware.NewRateLimit(opts.Limiter).Handler)

	v1.HandleFunc("/chart/activity", s.handleChartActivity).Methods("GET")
	v1.HandleFunc("/metrics/aggregate", s.handleMetricsAggregate).Methods("GET")
	v1.HandleFunc("/metrics/repos/{owner}/{repo}", s.handleRepoMetrics).Methods("GET")
	v1.HandleFunc("/themes", s.handleThemes).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	s.router.ServeHTTP(w, r.WithContext(ctx))
}

// fetchAggregate serves the repository set from cache, computing on a
// miss. The cache status feeds the X-Cache response header.
func (s *Server) fetchAggregate(ctx context.Context, repos []activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) (*activity.AggregateResult, cache.Status, error) {
	key := cache.NewKey(repos, timeframe, includeSeries)
	return s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*activity.AggregateResult, error) {
		return s.aggregator.Aggregate(ctx, repos, timeframe, includeSeries)
	})
}

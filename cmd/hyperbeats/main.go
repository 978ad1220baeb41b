package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/hyperionkit/hyperbeats/pkg/aggregate"
	"github.com/hyperionkit/hyperbeats/pkg/api"
	"github.com/hyperionkit/hyperbeats/pkg/cache"
	"github.com/hyperionkit/hyperbeats/pkg/config"
	"github.com/hyperionkit/hyperbeats/pkg/github"
	"github.com/hyperionkit/hyperbeats/pkg/middleware"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
	"github.com/hyperionkit/hyperbeats/pkg/ratelimit"
	"github.com/hyperionkit/hyperbeats/pkg/storage"
	"github.com/hyperionkit/hyperbeats/pkg/warmup"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Infof("Starting hyperbeats %s", version)

	ctx := context.Background()

	// OpenTelemetry
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	// Redis backs the L2 cache, distributed rate limiting, and the API
	// key store; without it everything degrades to in-process.
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Error("Invalid Redis URL")
			os.Exit(1)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		if cfg.Redis.DB >= 0 {
			opts.DB = cfg.Redis.DB
		}
		opts.DialTimeout = 5 * time.Second
		opts.ReadTimeout = 3 * time.Second
		opts.WriteTimeout = 3 * time.Second
		redisClient = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup, continuing degraded")
		}
		cancel()
	} else {
		logger.Warn("No Redis configured: running with in-process cache and rate limiting only")
	}

	// Upstream client and aggregator
	ghLog := logrus.New()
	ghLog.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Observability.LogLevel == observability.DebugLevel {
		ghLog.SetLevel(logrus.DebugLevel)
	}
	githubClient := github.NewClient(cfg.GitHub, ghLog, metrics)
	aggregator := aggregate.New(githubClient, aggregate.DefaultMaxConcurrent, logger)

	// Cache hierarchy
	l1 := cache.NewMemoryCache(cache.MemoryConfig{
		MaxEntries: cfg.Cache.L1MaxEntries,
		TTL:        cfg.Cache.L1TTL,
	}, metrics)
	var l2 *cache.RedisCache
	if redisClient != nil {
		l2 = cache.NewRedisCache(redisClient, logger)
	}
	hierarchy := cache.NewHierarchy(l1, l2, logger, metrics)

	// Rate limiter
	var limiterStore ratelimit.Store
	if redisClient != nil {
		limiterStore = ratelimit.NewRedisStore(redisClient, "")
	} else {
		limiterStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.NewLimiter(limiterStore, ratelimit.Config{
		FailOpen: cfg.RateLimit.FailOpen,
	}, logger, metrics)

	// API key store: static keys from config win over Redis lookup
	var keyStore middleware.KeyStore
	if len(cfg.RateLimit.StaticKeys) > 0 {
		keyStore = middleware.NewStaticKeyStore(cfg.RateLimit.StaticKeys)
	} else if redisClient != nil {
		keyStore = middleware.NewRedisKeyStore(redisClient)
	}

	// Chart artifact archive
	var archive storage.Archive = storage.NoopArchive{}
	if cfg.Archive.Enabled {
		s3Archive, err := storage.NewS3Archive(ctx, cfg.ArchiveStorageConfig(), logger)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize chart archive")
			os.Exit(1)
		}
		archive = s3Archive
		logger.Infof("Chart archiving enabled, bucket: %s", cfg.Archive.Bucket)
	}

	health := observability.NewHealthChecker(redisClient, version)

	server := api.NewServer(api.Options{
		Aggregator:     aggregator,
		Cache:          hierarchy,
		Limiter:        limiter,
		KeyStore:       keyStore,
		Archive:        archive,
		Health:         health,
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	// Cache warmup
	if cfg.Warmup.Enabled {
		warmer, err := warmup.New(cfg.Warmup.Repos, aggregator, hierarchy, logger)
		if err != nil {
			logger.WithError(err).Error("Invalid warmup configuration")
			os.Exit(1)
		}
		if err := warmer.Start(cfg.Warmup.Schedule); err != nil {
			logger.WithError(err).Error("Failed to start cache warmup")
			os.Exit(1)
		}
		shutdown.RegisterShutdownFunc(warmer.Stop)
		logger.Infof("Cache warmup scheduled (%s) for %d repos", cfg.Warmup.Schedule, len(cfg.Warmup.Repos))
	}

	// Main API server
	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	shutdown.RegisterServer(apiServer)

	// Health and metrics on a separate port for probes and scrapers
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", health.Liveness)
	healthMux.HandleFunc("/ready", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	shutdown.RegisterServer(healthServer)

	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(otelProviders.Shutdown)
	}

	go func() {
		logger.Infof("Health/metrics server listening on :%s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		logger.Infof("API server listening on :%s", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown completed with errors")
		os.Exit(1)
	}
}

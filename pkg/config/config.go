// Package config loads application configuration from HYPERBEATS_*
// environment variables with sensible defaults for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperionkit/hyperbeats/pkg/github"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
	"github.com/hyperionkit/hyperbeats/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	GitHub        github.Config
	Redis         RedisConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
	Archive       ArchiveConfig
	Warmup        WarmupConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// RedisConfig holds the shared Redis connection settings. Redis backs
// the L2 cache, the distributed rate limiter, and the API key store;
// an empty URL disables all three in favor of in-process fallbacks.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// Enabled reports whether a Redis endpoint is configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// CacheConfig tunes the in-process cache tier
type CacheConfig struct {
	L1MaxEntries int
	L1TTL        time.Duration
}

// RateLimitConfig holds limiter settings. StaticKeys maps plaintext
// API keys to tiers for deployments without a provisioned key store.
type RateLimitConfig struct {
	FailOpen   bool
	StaticKeys map[string]string
}

// ArchiveConfig holds chart artifact archiving settings
type ArchiveConfig struct {
	Enabled      bool
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// WarmupConfig schedules background refresh of popular chart entries
type WarmupConfig struct {
	Enabled  bool
	Schedule string
	Repos    []string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("HYPERBEATS_HOST", "0.0.0.0"),
			Port:            getEnv("HYPERBEATS_PORT", "8080"),
			ReadTimeout:     getEnvDuration("HYPERBEATS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("HYPERBEATS_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("HYPERBEATS_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvDuration("HYPERBEATS_REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("HYPERBEATS_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("HYPERBEATS_HEALTH_PORT", "9090"),
		},
		GitHub: github.Config{
			BaseURL:        getEnv("HYPERBEATS_GITHUB_BASE_URL", "https://api.github.com"),
			Token:          getEnv("HYPERBEATS_GITHUB_TOKEN", ""),
			Timeout:        getEnvDuration("HYPERBEATS_GITHUB_TIMEOUT", 5*time.Second),
			MaxRetries:     getEnvInt("HYPERBEATS_GITHUB_MAX_RETRIES", 3),
			RetryBaseDelay: getEnvDuration("HYPERBEATS_GITHUB_RETRY_BASE_DELAY", 500*time.Millisecond),
			QuotaBuffer:    getEnvInt("HYPERBEATS_GITHUB_QUOTA_BUFFER", 10),
		},
		Redis: RedisConfig{
			URL:      getEnv("HYPERBEATS_REDIS_URL", ""),
			Password: getEnv("HYPERBEATS_REDIS_PASSWORD", ""),
			DB:       getEnvInt("HYPERBEATS_REDIS_DB", 0),
		},
		Cache: CacheConfig{
			L1MaxEntries: getEnvInt("HYPERBEATS_L1_CACHE_SIZE", 1000),
			L1TTL:        getEnvDuration("HYPERBEATS_L1_CACHE_TTL", 60*time.Second),
		},
		RateLimit: RateLimitConfig{
			FailOpen:   getEnvBool("HYPERBEATS_RATELIMIT_FAIL_OPEN", false),
			StaticKeys: parseStaticKeys(getEnv("HYPERBEATS_API_KEYS", "")),
		},
		Archive: ArchiveConfig{
			Enabled:      getEnvBool("HYPERBEATS_ARCHIVE_ENABLED", false),
			Bucket:       getEnv("HYPERBEATS_ARCHIVE_BUCKET", ""),
			Region:       getEnv("HYPERBEATS_ARCHIVE_REGION", "auto"),
			Endpoint:     getEnv("HYPERBEATS_ARCHIVE_ENDPOINT", ""),
			AccessKey:    getEnv("HYPERBEATS_ARCHIVE_ACCESS_KEY", ""),
			SecretKey:    getEnv("HYPERBEATS_ARCHIVE_SECRET_KEY", ""),
			UsePathStyle: getEnvBool("HYPERBEATS_ARCHIVE_USE_PATH_STYLE", false),
		},
		Warmup: WarmupConfig{
			Enabled:  getEnvBool("HYPERBEATS_WARMUP_ENABLED", false),
			Schedule: getEnv("HYPERBEATS_WARMUP_SCHEDULE", "@every 10m"),
			Repos:    splitList(getEnv("HYPERBEATS_WARMUP_REPOS", "")),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("HYPERBEATS_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("HYPERBEATS_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("HYPERBEATS_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("HYPERBEATS_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("HYPERBEATS_OTEL_SERVICE_NAME", "hyperbeats"),
			OTelServiceVersion: getEnv("HYPERBEATS_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("HYPERBEATS_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ArchiveStorageConfig converts the archive section for pkg/storage
func (c *Config) ArchiveStorageConfig() storage.Config {
	return storage.Config{
		Bucket:       c.Archive.Bucket,
		Region:       c.Archive.Region,
		Endpoint:     c.Archive.Endpoint,
		AccessKey:    c.Archive.AccessKey,
		SecretKey:    c.Archive.SecretKey,
		UsePathStyle: c.Archive.UsePathStyle,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive bucket is required when archiving is enabled")
	}
	if c.Warmup.Enabled && len(c.Warmup.Repos) == 0 {
		return fmt.Errorf("warmup repos are required when warmup is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	return nil
}

// parseStaticKeys parses "key:tier,key:tier" pairs
func parseStaticKeys(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	keys := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		keys[parts[0]] = parts[1]
	}
	if len(keys) == 0 {
		return nil
	}
	return keys
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

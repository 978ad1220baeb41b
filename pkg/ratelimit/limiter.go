package ratelimit

import (
	"context"
	"time"

	"github.com/hyperionkit/hyperbeats/pkg/observability"
)

// Window is the fixed accounting period for every tier
const Window = time.Hour

// Decision is the limiter's verdict for one request
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetIn   time.Duration
	Tier      Tier
}

// Config tunes limiter behavior
type Config struct {
	// FailOpen admits requests when the store is unreachable. Off by
	// default: an unreachable store rejects rather than letting the
	// upstream quota drain unmetered.
	FailOpen bool
}

// Limiter admits requests against per-identity fixed hourly windows
type Limiter struct {
	store   Store
	config  Config
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewLimiter creates a limiter over the given store. logger and
// metrics may be nil.
func NewLimiter(store Store, config Config, logger *observability.Logger, metrics *observability.Metrics) *Limiter {
	return &Limiter{
		store:   store,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// Check admits or rejects one request for the identity. Enterprise
// identities bypass the store entirely. Store failures follow the
// FailOpen policy; the decision carries the error's consequence, so
// callers only inspect Allowed.
func (l *Limiter) Check(ctx context.Context, id Identity) Decision {
	if id.Tier.Unbounded() {
		d := Decision{Allowed: true, Limit: 0, Remaining: -1, Tier: id.Tier}
		l.record(d)
		return d
	}

	limit := id.Tier.Limit()
	count, resetIn, err := l.store.Incr(ctx, id.Key, Window)
	if err != nil {
		if l.logger != nil {
			l.logger.WithError(err).WithField("identity", id.Key).Error("rate limit store unavailable")
		}
		d := Decision{Allowed: l.config.FailOpen, Limit: limit, Remaining: 0, ResetIn: Window, Tier: id.Tier}
		l.record(d)
		return d
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetIn:   resetIn,
		Tier:      id.Tier,
	}
	l.record(d)
	return d
}

func (l *Limiter) record(d Decision) {
	if l.metrics == nil {
		return
	}
	decision := "allowed"
	if !d.Allowed {
		decision = "rejected"
	}
	l.metrics.RateLimitDecisionsTotal.WithLabelValues(string(d.Tier), decision).Inc()
}

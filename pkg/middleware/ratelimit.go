package middleware

import (
	"net/http"
	"strconv"

	"github.com/hyperionkit/hyperbeats/pkg/httputil"
	"github.com/hyperionkit/hyperbeats/pkg/ratelimit"
)

// RateLimit enforces the caller's tier budget. Admitted requests carry
// X-RateLimit-* headers; rejected requests get the 429 body with
// Retry-After. Enterprise callers pass through without headers since
// their budget is unbounded.
type RateLimit struct {
	limiter *ratelimit.Limiter
}

// NewRateLimit creates the rate limit middleware
func NewRateLimit(limiter *ratelimit.Limiter) *RateLimit {
	return &RateLimit{limiter: limiter}
}

// Handler checks the limit before invoking the wrapped handler
func (m *RateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())

		decision := m.limiter.Check(r.Context(), identity)
		if !decision.Allowed {
			httputil.WriteRateLimited(w, int(decision.Limit), int(decision.ResetIn.Seconds()))
			return
		}

		if !identity.Tier.Unbounded() {
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(decision.ResetIn.Seconds())))
		}
		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hyperionkit/hyperbeats/pkg/observability"
)

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Instrument logs each request and records Prometheus HTTP metrics.
// The metric path label uses the mux route template so per-repo paths
// do not explode label cardinality.
func Instrument(logger *observability.Logger, metrics *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			duration := time.Since(start)
			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if template, err := route.GetPathTemplate(); err == nil {
					path = template
				}
			}

			if metrics != nil {
				metrics.ObserveHTTPRequest(r.Method, path, recorder.status, duration)
			}
			if logger != nil {
				logger.WithRequestID(RequestIDFromContext(r.Context())).WithFields(map[string]interface{}{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      recorder.status,
					"duration_ms": duration.Milliseconds(),
				}).Info("request completed")
			}
		})
	}
}

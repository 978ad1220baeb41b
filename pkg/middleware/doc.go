// Package middleware provides the HTTP request pipeline: request IDs,
// API key resolution, tiered rate limiting, structured request logging,
// and Prometheus instrumentation. Middlewares compose in mux order and
// communicate through request context values.
package middleware

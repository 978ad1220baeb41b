// Package observability provides structured logging, Prometheus metrics,
// health probes, panic recovery, OpenTelemetry initialization, and
// graceful shutdown for the hyperbeats service.
package observability

// Package api exposes the HTTP surface: activity charts, aggregated
// metrics, theme listing, and health probes. Handlers validate at the
// boundary, serve from the cache hierarchy when possible, and degrade
// per-repository rather than failing whole requests.
package api

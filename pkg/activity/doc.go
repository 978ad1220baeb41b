// Package activity defines the domain model for repository activity
// metrics: repository references, lookback timeframes with their bucket
// granularity and cache TTLs, per-repository snapshots, and aggregated
// multi-repository results.
//
// All types in this package are immutable value objects. An
// AggregateResult published into the cache is shared read-only across
// concurrent requests and must never be mutated in place.
package activity

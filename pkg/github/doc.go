// Package github implements the upstream client for repository activity
// data. It fetches commits, pull requests, and issues from the GitHub
// REST API, tracks the provider's own rate limit, and retries transient
// failures with exponential backoff and jitter.
//
// Failures are classified as NotFound (never retried), RateLimited, or
// Unavailable; a per-call timeout converts slow upstream responses into
// Unavailable so a single repository cannot stall an aggregation.
package github

// Package ratelimit admits or rejects requests per caller identity
// using a fixed hourly window. Each identity's window is anchored at
// its first request; the counter expires with the window, so quota
// refills all at once rather than sliding. Counters live in Redis when
// available so limits hold across instances, with an in-process store
// for single-node and test use.
package ratelimit

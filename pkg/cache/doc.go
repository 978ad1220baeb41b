// Package cache implements the two-tier lookup path in front of the
// aggregator: a small in-process LRU (L1) backed by Redis (L2). A hit
// reports which tier served it, an L2 hit backfills L1, and concurrent
// misses for the same key are coalesced into a single upstream compute.
package cache

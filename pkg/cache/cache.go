// Package cache provides byte-oriented caching for solver results.
//
// The layout engine memoizes external solver calls keyed by a content
// hash of the problem, so re-solving an identical sub-graph (the common
// case when only one group's collapse state changed) is a lookup instead
// of a full layout run. Entries are short-lived working data, never a
// persistence layer for layouts.
//
// Implementations:
//   - Memory: in-process map for single-instance and tests
//   - Redis: shared cache for multi-instance deployments
//   - Null: caching disabled
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by helpers that treat a miss as an error;
// [Cache.Get] itself reports misses through its bool return.
var ErrCacheMiss = errors.New("cache miss")

// TTLPlacement is how long memoized solver placements live. Placements
// are cheap to recompute, so the window only needs to cover an
// interactive session of collapse/expand toggling.
const TTLPlacement = 30 * time.Minute

// Cache stores opaque byte values by key.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// PlacementKey derives the cache key for a solver problem content hash.
func PlacementKey(problemHash string) string {
	return "placement:" + problemHash
}

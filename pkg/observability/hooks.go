// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about layout scheduling, cache
// operations, and snapshot deliveries.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces per event category
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, which keeps the core
// packages free of observability-framework imports.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetLayoutHooks(&myLayoutHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Layout().OnRequestStart(ctx, requestID, ticket, nodeCount)
//	// ... layout runs ...
//	observability.Layout().OnRequestDone(ctx, requestID, outcome, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Outcome classifies how a layout request ended.
type Outcome string

// Layout request outcomes.
const (
	OutcomeCommitted Outcome = "committed" // positions applied
	OutcomeStale     Outcome = "stale"     // superseded by a newer ticket, discarded
	OutcomeFailed    Outcome = "failed"    // solver failure with a current ticket
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout scheduler.
type LayoutHooks interface {
	// OnFingerprintSkip records a refresh that required no relayout
	// (structure unchanged, display data patched in place).
	OnFingerprintSkip(ctx context.Context, fingerprint string)

	// OnRequestStart records an asynchronous layout request starting.
	OnRequestStart(ctx context.Context, requestID string, ticket uint64, nodeCount int)

	// OnRequestDone records a layout request resolving, however it ended.
	OnRequestDone(ctx context.Context, requestID string, outcome Outcome, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Source Hooks
// =============================================================================

// SourceHooks receives events from snapshot sources.
type SourceHooks interface {
	// OnSnapshot records a snapshot delivery.
	OnSnapshot(ctx context.Context, nodeCount, edgeCount int)

	// OnSourceError records a fetch or decode failure in a source.
	OnSourceError(ctx context.Context, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnFingerprintSkip(context.Context, string)                            {}
func (NoopLayoutHooks) OnRequestStart(context.Context, string, uint64, int)                  {}
func (NoopLayoutHooks) OnRequestDone(context.Context, string, Outcome, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopSourceHooks is a no-op implementation of SourceHooks.
type NoopSourceHooks struct{}

func (NoopSourceHooks) OnSnapshot(context.Context, int, int) {}
func (NoopSourceHooks) OnSourceError(context.Context, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	layoutHooks LayoutHooks = NoopLayoutHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	sourceHooks SourceHooks = NoopSourceHooks{}
	hooksMu     sync.RWMutex
)

// SetLayoutHooks registers custom layout hooks.
// Call once at application startup before any layout operations.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// Call once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetSourceHooks registers custom source hooks.
// Call once at application startup before subscribing to any source.
func SetSourceHooks(h SourceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sourceHooks = h
	}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Source returns the registered source hooks.
func Source() SourceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sourceHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	cacheHooks = NoopCacheHooks{}
	sourceHooks = NoopSourceHooks{}
}

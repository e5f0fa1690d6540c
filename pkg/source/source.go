// Package source delivers resource graph snapshots to a view. A source
// pushes complete snapshots - never deltas - so consumers can fingerprint
// and diff structure themselves.
package source

import (
	"context"
	"sync"

	"github.com/mfeltner/lattice/pkg/graph"
)

// Source is a stream of complete resource graph snapshots.
//
// Snapshots returns a channel that yields a snapshot whenever the source
// observes a new one. The channel is closed when the source stops,
// either via Close or because its context was cancelled. Implementations
// must hand out snapshots the receiver can own outright.
type Source interface {
	Snapshots() <-chan graph.Snapshot
	Close() error
}

// Memory is an in-process source fed by Push. It is intended for tests
// and for the HTTP snapshot endpoint, where snapshots arrive over the
// wire instead of from a poller.
type Memory struct {
	ch   chan graph.Snapshot
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	pushers sync.WaitGroup
}

// NewMemory creates a Memory source with a small delivery buffer.
func NewMemory() *Memory {
	return &Memory{
		ch:   make(chan graph.Snapshot, 4),
		done: make(chan struct{}),
	}
}

// Push delivers a snapshot to the consumer. It blocks if the buffer is
// full and returns ctx.Err() if the context ends first, or an error-free
// no-op result once the source is closed.
func (m *Memory) Push(ctx context.Context, s graph.Snapshot) error {
	// Register before touching the channel so Close can wait for every
	// in-flight send. A push that races a concurrent Close exits via the
	// done case; m.ch stays open until all registered pushers return.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.pushers.Add(1)
	m.mu.Unlock()
	defer m.pushers.Done()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case m.ch <- s.Clone():
		return nil
	}
}

// Snapshots implements Source.
func (m *Memory) Snapshots() <-chan graph.Snapshot { return m.ch }

// Close implements Source. Safe to call concurrently with Push and with
// itself; later calls are no-ops.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.done)
	m.pushers.Wait()
	close(m.ch)
	return nil
}

// Package archive persists received snapshots for later inspection.
// Only inputs are archived - layouts are always recomputed, never stored
// across restarts.
package archive

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfeltner/lattice/pkg/graph"
)

// ErrNotFound is returned when no entry exists for the requested ID.
var ErrNotFound = errors.New("archive: entry not found")

// Entry is one archived snapshot with its receipt time.
type Entry struct {
	ID         string         `json:"id"`
	ReceivedAt time.Time      `json:"received_at"`
	Snapshot   graph.Snapshot `json:"snapshot"`
}

// Store archives snapshots. Implementations must be safe for concurrent
// use.
type Store interface {
	// Put archives a snapshot and returns the new entry's ID.
	Put(ctx context.Context, s graph.Snapshot) (string, error)

	// Get returns the entry with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Entry, error)

	// List returns the most recent entries, newest first, up to limit.
	List(ctx context.Context, limit int) ([]Entry, error)

	Close(ctx context.Context) error
}

// MemoryStore keeps entries in memory. Intended for tests and for
// running without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, s graph.Snapshot) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	m.entries[id] = Entry{ID: id, ReceivedAt: time.Now().UTC(), Snapshot: s.Clone()}
	m.mu.Unlock()
	return id, nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close(context.Context) error { return nil }

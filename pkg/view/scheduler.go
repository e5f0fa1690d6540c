package view

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mfeltner/lattice/pkg/graph"
	"github.com/mfeltner/lattice/pkg/layout"
	"github.com/mfeltner/lattice/pkg/observability"
)

// NodeDisplay carries the display attributes that can change without
// changing structure. Patching these in place never moves anything.
type NodeDisplay struct {
	Name   string       `json:"name"`
	Status graph.Status `json:"status"`
}

// Committed is the single authoritative layout of a view: the last
// successfully committed positions plus the current display attributes.
type Committed struct {
	Result      layout.Result          `json:"result"`
	Nodes       map[string]NodeDisplay `json:"nodes"`
	Fingerprint string                 `json:"fingerprint"`
	Version     uint64                 `json:"version"`
	Err         string                 `json:"error,omitempty"`
}

// Scheduler runs layout requests asynchronously under a monotonic
// version ticket. Every request takes a fresh ticket and a result is
// committed only while its ticket is still the newest one issued -
// anything older is discarded unconditionally, even on success, so a
// slow solver can never overwrite a newer layout. Failures follow the
// same rule: only the newest request may surface its error.
//
// Commits happen under a single mutex, so there is exactly one writer of
// the committed layout at any time.
type Scheduler struct {
	version atomic.Uint64

	mu        sync.Mutex
	committed Committed

	subMu  sync.Mutex
	subs   map[uint64]chan Committed
	nextID uint64

	logger *log.Logger
}

// NewScheduler creates a scheduler with no committed layout. A nil
// logger disables logging.
func NewScheduler(logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scheduler{
		subs:   make(map[uint64]chan Committed),
		logger: logger,
	}
}

// Committed returns the current committed layout.
func (s *Scheduler) Committed() Committed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// LastFingerprint returns the fingerprint of the committed layout, or
// the empty string before the first commit.
func (s *Scheduler) LastFingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.Fingerprint
}

// Patch replaces the display attributes of the committed layout in
// place. Positions and the fingerprint are untouched.
func (s *Scheduler) Patch(ctx context.Context, nodes map[string]NodeDisplay) {
	s.mu.Lock()
	s.committed.Nodes = nodes
	snapshot := s.committed
	s.mu.Unlock()

	observability.Layout().OnFingerprintSkip(ctx, snapshot.Fingerprint)
	s.notify(snapshot)
}

// Request starts an asynchronous layout computation under a fresh
// ticket. fn runs on its own goroutine; when it returns, the result is
// committed only if no newer request has started in the meantime.
func (s *Scheduler) Request(ctx context.Context, fingerprint string, nodes map[string]NodeDisplay, fn func(context.Context) (layout.Result, error)) {
	// The solve outlives the caller: an HTTP request context dies when the
	// handler returns, but in-flight computations finish regardless - a
	// superseded result is discarded by the ticket check, not cancelled.
	ctx = context.WithoutCancel(ctx)
	ticket := s.version.Add(1)
	requestID := uuid.NewString()
	observability.Layout().OnRequestStart(ctx, requestID, ticket, len(nodes))
	s.logger.Debug("layout request started", "request", requestID, "ticket", ticket)

	go func() {
		start := time.Now()
		result, err := fn(ctx)
		outcome := s.resolve(ticket, fingerprint, nodes, result, err)
		observability.Layout().OnRequestDone(ctx, requestID, outcome, time.Since(start), err)
		s.logger.Debug("layout request resolved",
			"request", requestID,
			"ticket", ticket,
			"outcome", outcome,
			"duration", time.Since(start),
		)
	}()
}

// resolve applies the stale-suppression rule and commits under the
// single writer lock.
func (s *Scheduler) resolve(ticket uint64, fingerprint string, nodes map[string]NodeDisplay, result layout.Result, err error) observability.Outcome {
	if s.version.Load() != ticket {
		return observability.OutcomeStale
	}

	s.mu.Lock()
	// Re-check under the lock: a newer request may have started between
	// the load and acquiring the commit lock.
	if s.version.Load() != ticket {
		s.mu.Unlock()
		return observability.OutcomeStale
	}

	if err != nil {
		// Keep the previous positions so the user still sees the last
		// good layout next to the error.
		s.committed.Err = err.Error()
		s.committed.Version = ticket
		snapshot := s.committed
		s.mu.Unlock()
		s.notify(snapshot)
		return observability.OutcomeFailed
	}

	s.committed = Committed{
		Result:      result,
		Nodes:       nodes,
		Fingerprint: fingerprint,
		Version:     ticket,
	}
	snapshot := s.committed
	s.mu.Unlock()
	s.notify(snapshot)
	return observability.OutcomeCommitted
}

// Subscribe registers for commit notifications. The channel holds the
// latest commit only: when the subscriber lags, older updates are
// replaced, never queued. The returned cancel function must be called to
// release the subscription.
func (s *Scheduler) Subscribe() (<-chan Committed, func()) {
	ch := make(chan Committed, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Scheduler) notify(c Committed) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
			// Drop the stale buffered update and replace it.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c:
			default:
			}
		}
	}
}

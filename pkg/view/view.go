package view

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mfeltner/lattice/pkg/errors"
	"github.com/mfeltner/lattice/pkg/graph"
	"github.com/mfeltner/lattice/pkg/graph/transform"
	"github.com/mfeltner/lattice/pkg/grouping"
	"github.com/mfeltner/lattice/pkg/hierarchy"
	"github.com/mfeltner/lattice/pkg/layout"
)

// View binds a snapshot stream, a state machine and a scheduler into one
// independently laid-out view of the resource graph. Every mutating
// operation re-derives the working graph, fingerprints it, and either
// patches display attributes in place or schedules a fresh layout.
type View struct {
	ID string

	mu       sync.Mutex // serializes state transitions and refresh
	state    *State
	snapshot graph.Snapshot
	hasSnap  bool

	engine *layout.Engine
	sched  *Scheduler
	logger *log.Logger
}

// New creates a view with the given grouping mode and no snapshot.
func New(engine *layout.Engine, g grouping.Mode, logger *log.Logger) *View {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &View{
		ID:     uuid.NewString(),
		state:  NewState(g),
		engine: engine,
		sched:  NewScheduler(logger),
		logger: logger,
	}
}

// ApplySnapshot replaces the view's snapshot with a validated copy and
// refreshes. A structurally identical snapshot only patches names and
// statuses; a changed one schedules a new layout.
func (v *View) ApplySnapshot(ctx context.Context, s graph.Snapshot) error {
	if err := s.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "rejecting snapshot")
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshot = s.Clone()
	v.hasSnap = true
	v.refresh(ctx)
	return nil
}

// ToggleGroup flips the collapse state of a group and reports whether it
// is now collapsed. Toggling never fails: unknown group IDs simply stop
// matching once the structure changes.
func (v *View) ToggleGroup(ctx context.Context, groupID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	collapsed := v.state.ToggleGroupCollapse(groupID)
	v.refresh(ctx)
	return collapsed
}

// ExpandAggregate materializes the members of an aggregate node.
func (v *View) ExpandAggregate(ctx context.Context, nodeID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkAggregate(nodeID); err != nil {
		return err
	}
	v.state.ExpandAggregate(nodeID)
	v.refresh(ctx)
	return nil
}

// CollapseAggregate reverses an aggregate expansion.
func (v *View) CollapseAggregate(ctx context.Context, nodeID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkAggregate(nodeID); err != nil {
		return err
	}
	v.state.CollapseAggregate(nodeID)
	v.refresh(ctx)
	return nil
}

func (v *View) checkAggregate(nodeID string) error {
	n, ok := v.snapshot.NodeByID(nodeID)
	if !ok || !n.Kind.IsAggregate() {
		return errors.New(errors.ErrCodeAggregateNotFound, "no aggregate node %q", nodeID)
	}
	return nil
}

// SetGroupingMode switches how nodes are assigned to groups.
func (v *View) SetGroupingMode(ctx context.Context, g grouping.Mode) error {
	if !g.Valid() {
		return errors.New(errors.ErrCodeInvalidMode, "unknown grouping mode %q", g)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.SetGroupingMode(g)
	v.refresh(ctx)
	return nil
}

// SetViewMode switches between the full and compact views.
func (v *View) SetViewMode(ctx context.Context, m Mode) error {
	if !m.Valid() {
		return errors.New(errors.ErrCodeInvalidMode, "unknown view mode %q", m)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.SetViewMode(m)
	v.refresh(ctx)
	return nil
}

// Retry forces a fresh layout of the current structure after a solver
// failure. Bumping the retry counter changes the fingerprint, so the
// fingerprint skip cannot swallow the attempt.
func (v *View) Retry(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.BumpRetry()
	v.refresh(ctx)
}

// Committed returns the current committed layout.
func (v *View) Committed() Committed { return v.sched.Committed() }

// Subscribe registers for commit notifications; see Scheduler.Subscribe.
func (v *View) Subscribe() (<-chan Committed, func()) { return v.sched.Subscribe() }

// GroupingMode returns the active grouping mode.
func (v *View) GroupingMode() grouping.Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.GroupingMode()
}

// ViewMode returns the active view mode.
func (v *View) ViewMode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.ViewMode()
}

// refresh derives the working graph from the snapshot and state, then
// either patches the committed layout in place (unchanged fingerprint)
// or schedules an asynchronous layout. Callers must hold v.mu.
func (v *View) refresh(ctx context.Context) {
	if !v.hasSnap {
		return
	}

	nodes, edges, dropped := transform.Working(v.snapshot, transform.Options{
		Expanded:   v.state.ExpandedSet(),
		HideConfig: v.state.ViewMode() == ModeCompact,
	})
	if dropped > 0 {
		v.logger.Debug("dropped dangling edges from working graph", "view", v.ID, "count", dropped)
	}

	fp := Fingerprint(
		graph.SortedIDs(nodes),
		v.state.CollapsedGroups(),
		v.state.ExpandedAggregates(),
		v.state.GroupingMode(),
		v.state.ViewMode(),
		v.state.Retry(),
	)

	display := make(map[string]NodeDisplay, len(nodes))
	for _, n := range nodes {
		display[n.ID] = NodeDisplay{Name: n.DisplayName(), Status: n.Status}
	}

	if fp == v.sched.LastFingerprint() {
		v.logger.Debug("structure unchanged, patching in place", "view", v.ID, "fingerprint", fp)
		v.sched.Patch(ctx, display)
		return
	}

	gmode := v.state.GroupingMode()
	collapsed := v.state.CollapsedSet()
	v.sched.Request(ctx, fp, display, func(ctx context.Context) (layout.Result, error) {
		assignment := grouping.Resolve(nodes, edges, gmode)
		hg := hierarchy.Build(nodes, edges, assignment, collapsed, gmode)
		return v.engine.Layout(ctx, hg)
	})
}

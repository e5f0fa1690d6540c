package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	latticeerr "github.com/mfeltner/lattice/pkg/errors"
	"github.com/mfeltner/lattice/pkg/graph"
	"github.com/mfeltner/lattice/pkg/grouping"
	"github.com/mfeltner/lattice/pkg/layout"
	"github.com/mfeltner/lattice/pkg/solver"
)

const waitTimeout = 2 * time.Second

// scriptedSolver stacks boxes deterministically. Each call consumes one
// step from the script, controlling its delay and error; when the script
// runs out, calls succeed immediately.
type scriptedSolver struct {
	mu     sync.Mutex
	script []solveStep
}

type solveStep struct {
	delay time.Duration
	err   error
}

func (s *scriptedSolver) push(steps ...solveStep) {
	s.mu.Lock()
	s.script = append(s.script, steps...)
	s.mu.Unlock()
}

func (s *scriptedSolver) Solve(ctx context.Context, p solver.Problem) (solver.Placement, error) {
	s.mu.Lock()
	var step solveStep
	if len(s.script) > 0 {
		step = s.script[0]
		s.script = s.script[1:]
	}
	s.mu.Unlock()

	if step.delay > 0 {
		select {
		case <-time.After(step.delay):
		case <-ctx.Done():
			return solver.Placement{}, ctx.Err()
		}
	}
	if step.err != nil {
		return solver.Placement{}, step.err
	}

	placement := solver.Placement{Positions: make(map[string]solver.Position, len(p.Boxes))}
	y := 0.0
	for _, b := range p.Boxes {
		placement.Positions[b.ID] = solver.Position{X: 0, Y: y}
		y += b.Height + p.Opts.RankSpacing
		if b.Width > placement.Width {
			placement.Width = b.Width
		}
	}
	placement.Height = y
	return placement, nil
}

func testSnapshot() graph.Snapshot {
	return graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "web", Kind: graph.KindDeployment, Name: "web", Status: graph.StatusHealthy, Namespace: "shop", Labels: map[string]string{"app": "shop"}},
			{ID: "web-svc", Kind: graph.KindService, Name: "web-svc", Status: graph.StatusHealthy, Namespace: "shop"},
			{ID: "ing", Kind: graph.KindIngress, Name: "ing", Status: graph.StatusHealthy},
			{
				ID: "web-pods", Kind: graph.KindPodGroup, Name: "web-pods", Status: graph.StatusHealthy,
				Namespace: "shop", Labels: map[string]string{"app": "shop"},
				Attrs: &graph.AggregateAttrs{Members: []graph.Member{
					{ID: "p1", Status: graph.StatusHealthy},
					{ID: "p2", Status: graph.StatusHealthy},
				}},
			},
		},
		Edges: []graph.Edge{
			{ID: "e1", Source: "web-svc", Target: "web", Relation: graph.RelationExposes},
			{ID: "e2", Source: "web", Target: "web-pods", Relation: graph.RelationManages},
			{ID: "e3", Source: "ing", Target: "web-svc", Relation: graph.RelationRoutes},
		},
	}
}

func newTestView(t *testing.T, s *scriptedSolver) (*View, <-chan Committed) {
	t.Helper()
	engine := layout.NewEngine(s, nil, nil)
	v := New(engine, grouping.ModeLabel, nil)
	updates, cancel := v.Subscribe()
	t.Cleanup(cancel)
	return v, updates
}

// waitCommit drains updates until one passes the filter or the timeout
// elapses.
func waitCommit(t *testing.T, updates <-chan Committed, ok func(Committed) bool) Committed {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case c := <-updates:
			if ok(c) {
				return c
			}
		case <-deadline:
			t.Fatal("timed out waiting for commit")
		}
	}
}

func TestApplySnapshotCommitsLayout(t *testing.T) {
	v, updates := newTestView(t, &scriptedSolver{})
	ctx := context.Background()

	if err := v.ApplySnapshot(ctx, testSnapshot()); err != nil {
		t.Fatalf("ApplySnapshot() error: %v", err)
	}
	c := waitCommit(t, updates, func(c Committed) bool { return len(c.Result.Positions) > 0 })

	gid := grouping.GroupID(grouping.ModeLabel, "shop")
	for _, id := range []string{gid, "web", "web-svc", "web-pods", "ing"} {
		if _, ok := c.Result.Positions[id]; !ok {
			t.Errorf("no position for %q", id)
		}
	}
	if c.Err != "" {
		t.Errorf("committed error = %q, want clear", c.Err)
	}
	if c.Nodes["web"].Status != graph.StatusHealthy {
		t.Errorf("display status = %q", c.Nodes["web"].Status)
	}
}

func TestApplySnapshotRejectsInvalid(t *testing.T) {
	v, _ := newTestView(t, &scriptedSolver{})

	err := v.ApplySnapshot(context.Background(), graph.Snapshot{Nodes: []graph.Node{{ID: ""}}})
	if latticeerr.GetCode(err) != latticeerr.ErrCodeInvalidSnapshot {
		t.Errorf("error code = %q, want %q", latticeerr.GetCode(err), latticeerr.ErrCodeInvalidSnapshot)
	}
}

func TestStatusChangePatchesInPlace(t *testing.T) {
	v, updates := newTestView(t, &scriptedSolver{})
	ctx := context.Background()

	if err := v.ApplySnapshot(ctx, testSnapshot()); err != nil {
		t.Fatalf("ApplySnapshot() error: %v", err)
	}
	first := waitCommit(t, updates, func(c Committed) bool { return len(c.Result.Positions) > 0 })

	// Same structure, one degraded status: no new layout, only patched
	// display attributes.
	degraded := testSnapshot()
	degraded.Nodes[0].Status = graph.StatusDegraded
	if err := v.ApplySnapshot(ctx, degraded); err != nil {
		t.Fatalf("ApplySnapshot() error: %v", err)
	}

	patched := waitCommit(t, updates, func(c Committed) bool {
		return c.Nodes["web"].Status == graph.StatusDegraded
	})
	if patched.Fingerprint != first.Fingerprint {
		t.Errorf("fingerprint changed on a pure status update")
	}
	if patched.Version != first.Version {
		t.Errorf("version bumped on patch: %d vs %d", patched.Version, first.Version)
	}
	for id, pos := range first.Result.Positions {
		if patched.Result.Positions[id] != pos {
			t.Errorf("position %q moved during patch", id)
		}
	}
}

func TestToggleGroupRoundTrip(t *testing.T) {
	v, updates := newTestView(t, &scriptedSolver{})
	ctx := context.Background()

	if err := v.ApplySnapshot(ctx, testSnapshot()); err != nil {
		t.Fatalf("ApplySnapshot() error: %v", err)
	}
	initial := waitCommit(t, updates, func(c Committed) bool { return len(c.Result.Positions) > 0 })

	gid := grouping.GroupID(grouping.ModeLabel, "shop")
	if collapsed := v.ToggleGroup(ctx, gid); !collapsed {
		t.Fatal("first toggle should collapse")
	}
	collapsedCommit := waitCommit(t, updates, func(c Committed) bool {
		return c.Result.Boxes[gid].Collapsed
	})
	if _, present := collapsedCommit.Result.Positions["web"]; present {
		t.Error("member of collapsed group still has a position")
	}

	if collapsed := v.ToggleGroup(ctx, gid); collapsed {
		t.Fatal("second toggle should expand")
	}
	restored := waitCommit(t, updates, func(c Committed) bool {
		return !c.Result.Boxes[gid].Collapsed && c.Fingerprint != collapsedCommit.Fingerprint
	})

	if restored.Fingerprint != initial.Fingerprint {
		t.Errorf("double toggle did not restore the original fingerprint")
	}
	for id, pos := range initial.Result.Positions {
		if restored.Result.Positions[id] != pos {
			t.Errorf("position %q differs after toggle round trip", id)
		}
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	s := &scriptedSolver{}
	v, updates := newTestView(t, s)
	ctx := context.Background()

	if err := v.ApplySnapshot(ctx, testSnapshot()); err != nil {
		t.Fatalf("ApplySnapshot() error: %v", err)
	}
	waitCommit(t, updates, func(c Committed) bool { return len(c.Result.Positions) > 0 })

	// The collapse request solves slowly; before it resolves, the expand
	// request (fast) supersedes it. The slow result must never surface,
	// even though it finishes last.
	gid := grouping.GroupID(grouping.ModeLabel, "shop")
	s.push(solveStep{delay: 300 * time.Millisecond})
	v.ToggleGroup(ctx, gid)
	v.ToggleGroup(ctx, gid)

	final := waitCommit(t, updates, func(c Committed) bool {
		return !c.Result.Boxes[gid].Collapsed
	})
	if final.Result.Boxes[gid].Collapsed {
		t.Fatal("expanded commit expected")
	}

	// Give the slow request time to finish, then confirm the committed
	// layout still shows the expanded group.
	time.Sleep(400 * time.Millisecond)
	if got := v.Committed(); got.Result.Boxes[gid].Collapsed {
		t.Error("stale collapse result overwrote the newer layout")
	} else if got.Version < final.Version {
		t.Errorf("committed version went backwards: %d < %d", got.Version, final.Version)
	}
}

func TestSolverFailureKeepsPreviousLayout(t *testing.T) {
	s := &scriptedSolver{}
	v, updates := newTestView(t, s)
	ctx := context.Background()

	if err := v.ApplySnapshot(ctx, testSnapshot()); err != nil {
		t.Fatalf("ApplySnapshot() error: %v", err)
	}
	good := waitCommit(t, updates, func(c Committed) bool { return len(c.Result.Positions) > 0 })

	// The next layout attempt fails in both phases' first call.
	s.push(solveStep{err: errors.New("no layout found")})
	gid := grouping.GroupID(grouping.ModeLabel, "shop")
	v.ToggleGroup(ctx, gid)

	failed := waitCommit(t, updates, func(c Committed) bool { return c.Err != "" })
	for id, pos := range good.Result.Positions {
		if failed.Result.Positions[id] != pos {
			t.Errorf("failure disturbed committed position %q", id)
		}
	}

	// Retry bumps the counter, so the identical structure is re-solved
	// rather than skipped, and the error clears on success.
	v.Retry(ctx)
	recovered := waitCommit(t, updates, func(c Committed) bool {
		return c.Err == "" && c.Result.Boxes[gid].Collapsed
	})
	if len(recovered.Result.Positions) == 0 {
		t.Error("retry produced no positions")
	}
}

func TestAggregateExpansion(t *testing.T) {
	v, updates := newTestView(t, &scriptedSolver{})
	ctx := context.Background()

	if err := v.ApplySnapshot(ctx, testSnapshot()); err != nil {
		t.Fatalf("ApplySnapshot() error: %v", err)
	}
	waitCommit(t, updates, func(c Committed) bool { return len(c.Result.Positions) > 0 })

	if err := v.ExpandAggregate(ctx, "web-pods"); err != nil {
		t.Fatalf("ExpandAggregate() error: %v", err)
	}
	expanded := waitCommit(t, updates, func(c Committed) bool {
		_, ok := c.Result.Positions["p1"]
		return ok
	})
	if _, still := expanded.Result.Positions["web-pods"]; still {
		t.Error("aggregate still positioned after expansion")
	}

	if err := v.CollapseAggregate(ctx, "web-pods"); err != nil {
		t.Fatalf("CollapseAggregate() error: %v", err)
	}
	collapsed := waitCommit(t, updates, func(c Committed) bool {
		_, ok := c.Result.Positions["web-pods"]
		return ok
	})
	if _, still := collapsed.Result.Positions["p1"]; still {
		t.Error("member still positioned after collapse")
	}
}

func TestExpandAggregateUnknown(t *testing.T) {
	v, _ := newTestView(t, &scriptedSolver{})
	ctx := context.Background()

	if err := v.ApplySnapshot(ctx, testSnapshot()); err != nil {
		t.Fatalf("ApplySnapshot() error: %v", err)
	}

	err := v.ExpandAggregate(ctx, "web") // exists, but not an aggregate
	if latticeerr.GetCode(err) != latticeerr.ErrCodeAggregateNotFound {
		t.Errorf("error code = %q, want %q", latticeerr.GetCode(err), latticeerr.ErrCodeAggregateNotFound)
	}
	if err := v.ExpandAggregate(ctx, "ghost"); err == nil {
		t.Error("ExpandAggregate() accepted an unknown node")
	}
}

func TestSetModeValidation(t *testing.T) {
	v, _ := newTestView(t, &scriptedSolver{})
	ctx := context.Background()

	if err := v.SetGroupingMode(ctx, grouping.Mode("bogus")); latticeerr.GetCode(err) != latticeerr.ErrCodeInvalidMode {
		t.Errorf("SetGroupingMode error = %v, want invalid-mode code", err)
	}
	if err := v.SetViewMode(ctx, Mode("bogus")); latticeerr.GetCode(err) != latticeerr.ErrCodeInvalidMode {
		t.Errorf("SetViewMode error = %v, want invalid-mode code", err)
	}
	if err := v.SetViewMode(ctx, ModeCompact); err != nil {
		t.Errorf("SetViewMode(compact) error: %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint([]string{"a", "b"}, nil, nil, grouping.ModeLabel, ModeFull, 0)

	if again := Fingerprint([]string{"a", "b"}, nil, nil, grouping.ModeLabel, ModeFull, 0); again != base {
		t.Error("identical inputs fingerprint differently")
	}
	if Fingerprint([]string{"a", "c"}, nil, nil, grouping.ModeLabel, ModeFull, 0) == base {
		t.Error("node set change not reflected")
	}
	if Fingerprint([]string{"a", "b"}, []string{"g"}, nil, grouping.ModeLabel, ModeFull, 0) == base {
		t.Error("collapse change not reflected")
	}
	if Fingerprint([]string{"a", "b"}, nil, nil, grouping.ModeLabel, ModeFull, 1) == base {
		t.Error("retry bump not reflected")
	}
	if Fingerprint([]string{"a", "b"}, nil, nil, grouping.ModeLabel, ModeCompact, 0) == base {
		t.Error("view mode change not reflected")
	}
}

package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mfeltner/lattice/pkg/cache"
	"github.com/mfeltner/lattice/pkg/hierarchy"
	"github.com/mfeltner/lattice/pkg/observability"
	"github.com/mfeltner/lattice/pkg/solver"
)

// Meta-graph spacing. Groups are large boxes; they get wider gutters than
// the nodes inside them.
const (
	metaNodeSpacing = 48.0
	metaRankSpacing = 84.0
)

// Engine orchestrates the two layout phases around the external solver.
//
// The engine itself is stateless and safe for concurrent use; the
// scheduler may run several Layout calls at once and discard all but the
// newest result.
type Engine struct {
	solver solver.Solver
	cache  cache.Cache
	logger *log.Logger

	// timeout bounds each individual solver call. Zero disables the
	// bound, matching the observed upstream behavior; operators opt in
	// via configuration.
	timeout time.Duration
}

// NewEngine creates an engine around a solver. If c is nil, memoization
// is disabled. If logger is nil, output is discarded.
func NewEngine(s solver.Solver, c cache.Cache, logger *log.Logger) *Engine {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{solver: s, cache: c, logger: logger}
}

// SetSolveTimeout bounds each solver call. Zero disables the bound.
func (e *Engine) SetSolveTimeout(d time.Duration) { e.timeout = d }

// Layout computes absolute positions for a hierarchical graph.
//
// Phase A solves every expanded group in isolation; a solver error in any
// phase is fatal to this attempt as a whole (the caller keeps its
// previously committed result). Phase B solves the meta-graph of opaque
// top-level boxes. Composition translates child positions by their
// group's meta position.
func (e *Engine) Layout(ctx context.Context, hg hierarchy.Graph) (Result, error) {
	result := Result{
		Positions: make(map[string]Position),
		Boxes:     make(map[string]BoxMeta),
	}
	if len(hg.Boxes) == 0 {
		return result, nil
	}

	// Phase A: intra-group sub-layouts.
	intra := make(map[string]solver.Placement)
	sized := make(map[string][2]float64, len(hg.Boxes))
	for _, b := range hg.Boxes {
		if !b.Expanded() {
			sized[b.ID] = [2]float64{b.Width, b.Height}
			continue
		}
		placement, err := e.solve(ctx, subProblem(b))
		if err != nil {
			return Result{}, fmt.Errorf("group %s: %w", b.ID, err)
		}
		w, h := intrinsicSize(b, placement)
		intra[b.ID] = placement
		sized[b.ID] = [2]float64{w, h}
	}

	// Phase B: inter-group meta-graph.
	meta := metaProblem(hg, sized)
	placement, err := e.solve(ctx, meta)
	if err != nil {
		return Result{}, fmt.Errorf("meta-graph: %w", err)
	}

	// Composition.
	for _, b := range hg.Boxes {
		pos := placement.Positions[b.ID]
		dims := sized[b.ID]
		result.Positions[b.ID] = pos
		result.Boxes[b.ID] = BoxMeta{
			Label:     b.Label,
			Kind:      b.Kind,
			Width:     dims[0],
			Height:    dims[1],
			Group:     b.Group,
			Collapsed: b.Collapsed,
		}
		if !b.Expanded() {
			continue
		}
		sub := intra[b.ID]
		offX, offY := childOffset(b, sub, dims[0])
		for _, child := range b.Children {
			rel := sub.Positions[child.ID]
			result.Positions[child.ID] = Position{
				X: pos.X + offX + rel.X,
				Y: pos.Y + offY + rel.Y,
			}
			result.Boxes[child.ID] = BoxMeta{
				Label:  child.Label,
				Kind:   child.Kind,
				Width:  child.Width,
				Height: child.Height,
				Parent: b.ID,
			}
		}
	}

	return result, nil
}

// subProblem builds the Phase A solver input for one expanded group: its
// children and only the edges internal to the group.
func subProblem(b hierarchy.Box) solver.Problem {
	p := solver.Problem{
		Boxes: make([]solver.Box, len(b.Children)),
		Edges: make([]solver.Edge, len(b.Internal)),
		Opts: solver.Options{
			NodeSpacing: b.Sub.NodeSpacing,
			RankSpacing: b.Sub.RankSpacing,
		},
	}
	for i, c := range b.Children {
		p.Boxes[i] = solver.Box{ID: c.ID, Width: c.Width, Height: c.Height}
	}
	for i, e := range b.Internal {
		p.Edges[i] = solver.Edge{Source: e.Source, Target: e.Target}
	}
	return p
}

// intrinsicSize derives a group's outer dimensions from its sub-layout:
// the solved drawing plus padding and header space, floored by the
// label-derived minimum width.
func intrinsicSize(b hierarchy.Box, sub solver.Placement) (w, h float64) {
	w = sub.Width + 2*b.Sub.Padding
	if w < b.Sub.MinWidth {
		w = b.Sub.MinWidth
	}
	h = sub.Height + b.Sub.Header + b.Sub.Padding
	return w, h
}

// childOffset positions the sub-layout inside the group box: below the
// header, horizontally centered in whatever room the label floor added.
func childOffset(b hierarchy.Box, sub solver.Placement, outerWidth float64) (x, y float64) {
	x = b.Sub.Padding + (outerWidth-2*b.Sub.Padding-sub.Width)/2
	y = b.Sub.Header
	return x, y
}

// metaProblem builds the Phase B input: every top-level box opaque at its
// resolved size, and the working edge set collapsed to owning-box pairs
// with self-pairs skipped and duplicates merged.
func metaProblem(hg hierarchy.Graph, sized map[string][2]float64) solver.Problem {
	p := solver.Problem{
		Opts: solver.Options{NodeSpacing: metaNodeSpacing, RankSpacing: metaRankSpacing},
	}
	for _, b := range hg.Boxes {
		dims := sized[b.ID]
		p.Boxes = append(p.Boxes, solver.Box{ID: b.ID, Width: dims[0], Height: dims[1]})
	}

	owner := func(id string) string {
		if gid, ok := hg.Membership[id]; ok {
			return gid
		}
		return id
	}
	seen := make(map[solver.Edge]struct{}, len(hg.Edges))
	for _, e := range hg.Edges {
		me := solver.Edge{Source: owner(e.Source), Target: owner(e.Target)}
		if me.Source == me.Target {
			continue
		}
		if _, dup := seen[me]; dup {
			continue
		}
		seen[me] = struct{}{}
		p.Edges = append(p.Edges, me)
	}
	return p
}

// solve runs one memoized solver call, bounded by the configured timeout.
// Edge-free problems never reach the solver: with nothing to rank, the
// column packer places them deterministically for free.
func (e *Engine) solve(ctx context.Context, p solver.Problem) (solver.Placement, error) {
	if len(p.Edges) == 0 {
		return packProblem(p), nil
	}

	key, cacheable := problemKey(p)
	if cacheable {
		if data, hit, err := e.cache.Get(ctx, key); err == nil && hit {
			var placement solver.Placement
			if err := json.Unmarshal(data, &placement); err == nil {
				observability.Cache().OnCacheHit(ctx, "placement")
				return placement, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "placement")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	placement, err := e.solver.Solve(ctx, p)
	if err != nil {
		return solver.Placement{}, err
	}
	e.logger.Debug("solved sub-problem",
		"boxes", len(p.Boxes),
		"edges", len(p.Edges),
		"duration", time.Since(start).Round(time.Millisecond))

	if cacheable {
		if data, err := json.Marshal(placement); err == nil {
			_ = e.cache.Set(ctx, key, data, cache.TTLPlacement)
			observability.Cache().OnCacheSet(ctx, "placement", len(data))
		}
	}
	return placement, nil
}

// problemKey derives the memoization key from the problem content. Box
// and edge order is deterministic upstream, so identical sub-graphs hash
// identically.
func problemKey(p solver.Problem) (string, bool) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", false
	}
	return cache.PlacementKey(cache.Hash(data)), true
}

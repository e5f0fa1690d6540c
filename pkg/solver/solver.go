// Package solver defines the contract with the external constraint-based
// layout engine. Lattice treats the solver as a pure function from a set
// of sized boxes and directed edges to one position per box; everything
// around the call (scheduling, caching, composition) is the layout
// engine's job.
package solver

import "context"

// Box is one opaque rectangle to place.
type Box struct {
	ID     string
	Width  float64
	Height float64
}

// Edge is a directed constraint between two boxes: the drawing style
// places sources above targets.
type Edge struct {
	Source string
	Target string
}

// Options tunes one solve call.
type Options struct {
	NodeSpacing float64 // horizontal spacing between siblings
	RankSpacing float64 // vertical spacing between ranks
}

// Problem is the input to one solve call.
type Problem struct {
	Boxes []Box
	Edges []Edge
	Opts  Options
}

// Position is a box's placement, top-left oriented, relative to the
// problem's own canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Placement is the solver output: one position per box plus the bounding
// size of the solved drawing.
type Placement struct {
	Positions map[string]Position
	Width     float64
	Height    float64
}

// Solver computes a layered, ordered drawing for a problem. Implementations
// must be safe for concurrent use: the scheduler may run several calls at
// once and discard all but the newest result.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Placement, error)
}

package layout

import (
	"github.com/mfeltner/lattice/pkg/solver"
)

// PackColumns arranges boxes into a fixed number of columns with a
// shortest-column heuristic: each box lands in whichever column is
// currently shortest. Connectivity is ignored entirely, so the engine
// only falls back to it for edge-free sub-graphs, where the ranking
// solver has nothing to order anyway.
func PackColumns(boxes []solver.Box, columns int, gutter float64) map[string]Position {
	if columns < 1 {
		columns = 1
	}

	colWidth := 0.0
	for _, b := range boxes {
		if b.Width > colWidth {
			colWidth = b.Width
		}
	}

	heights := make([]float64, columns)
	positions := make(map[string]Position, len(boxes))
	for _, b := range boxes {
		col := 0
		for i := 1; i < columns; i++ {
			if heights[i] < heights[col] {
				col = i
			}
		}
		positions[b.ID] = Position{
			X: float64(col) * (colWidth + gutter),
			Y: heights[col],
		}
		heights[col] += b.Height + gutter
	}
	return positions
}

// packProblem solves an edge-free problem with the column packer, in a
// grid as close to square as the box count allows.
func packProblem(p solver.Problem) solver.Placement {
	cols := 1
	for cols*cols < len(p.Boxes) {
		cols++
	}
	positions := PackColumns(p.Boxes, cols, p.Opts.NodeSpacing)

	placement := solver.Placement{Positions: positions}
	for _, b := range p.Boxes {
		pos := positions[b.ID]
		if right := pos.X + b.Width; right > placement.Width {
			placement.Width = right
		}
		if bottom := pos.Y + b.Height; bottom > placement.Height {
			placement.Height = bottom
		}
	}
	return placement
}

// Package layout runs the two-phase hierarchical layout: one solver call
// per expanded group for intrinsic sizes and internal positions, then one
// call on the meta-graph of opaque group and ungrouped-node boxes, and
// finally composition into absolute canvas coordinates.
package layout

import (
	"encoding/json"

	"github.com/mfeltner/lattice/pkg/graph"
	"github.com/mfeltner/lattice/pkg/solver"
)

// Position is a top-left oriented canvas coordinate.
type Position = solver.Position

// BoxMeta describes one laid-out box for the presentation layer.
type BoxMeta struct {
	Label     string     `json:"label,omitempty"`
	Kind      graph.Kind `json:"kind,omitempty"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Parent    string     `json:"parent,omitempty"` // owning group ID for grouped nodes
	Group     bool       `json:"group,omitempty"`
	Collapsed bool       `json:"collapsed,omitempty"`
}

// Result is one committed layout: absolute positions per node and group
// ID, plus box metadata. Positions are always relative to the root
// canvas; child positions were translated by their group's position
// during composition.
type Result struct {
	Positions map[string]Position `json:"positions"`
	Boxes     map[string]BoxMeta  `json:"boxes"`
}

// MarshalResult serializes a result to JSON. Map keys marshal in sorted
// order, so the output is deterministic.
func MarshalResult(r Result) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalResult deserializes a result from JSON.
func UnmarshalResult(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}

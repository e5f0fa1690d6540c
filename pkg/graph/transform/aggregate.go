// Package transform derives the working graph from a snapshot: the node
// and edge set after applying aggregate expansions and view-mode filters.
// Everything downstream (grouping, hierarchy, layout) operates on the
// working graph, never on the raw snapshot.
//
// All transformations here are pure: inputs are never mutated, outputs
// are freshly allocated.
package transform

import (
	"fmt"

	"github.com/mfeltner/lattice/pkg/graph"
)

// Options controls working-graph derivation.
type Options struct {
	// Expanded is the set of aggregate node IDs to materialize.
	Expanded map[string]struct{}

	// HideConfig drops configuration objects (configmaps, secrets) and
	// their edges. This is the compact view mode.
	HideConfig bool
}

// Working derives the working graph from a snapshot. Aggregates listed in
// opts.Expanded are replaced by their members, config objects are dropped
// when opts.HideConfig is set, and edges left dangling by either step are
// removed. The count of dropped edges is returned for logging.
func Working(s graph.Snapshot, opts Options) (nodes []graph.Node, edges []graph.Edge, dropped int) {
	nodes = make([]graph.Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if opts.HideConfig && n.Kind.IsConfig() {
			continue
		}
		nodes = append(nodes, n)
	}
	edges = append([]graph.Edge(nil), s.Edges...)

	// Expansion is order-independent: each step touches only the one
	// aggregate node and its incident edges.
	for _, n := range s.Nodes {
		if _, ok := opts.Expanded[n.ID]; !ok {
			continue
		}
		nodes, edges = ExpandAggregate(nodes, edges, n.ID)
	}

	edges, dropped = graph.DropDangling(nodes, edges)
	return nodes, edges, dropped
}

// ExpandAggregate replaces one aggregate node with its materialized
// members: the aggregate node and its edges are removed, one node per
// member is added, and every edge that touched the aggregate is cloned
// once per member, preserving direction and relation.
//
// If id is not present, not an aggregate kind, or carries no member list,
// the inputs are returned unchanged.
func ExpandAggregate(nodes []graph.Node, edges []graph.Edge, id string) ([]graph.Node, []graph.Edge) {
	var agg *graph.Node
	for i := range nodes {
		if nodes[i].ID == id {
			agg = &nodes[i]
			break
		}
	}
	if agg == nil || !agg.Kind.IsAggregate() {
		return nodes, edges
	}
	attrs := agg.Aggregate()
	if attrs == nil || len(attrs.Members) == 0 {
		return nodes, edges
	}

	outNodes := make([]graph.Node, 0, len(nodes)-1+len(attrs.Members))
	for _, n := range nodes {
		if n.ID == id {
			continue
		}
		outNodes = append(outNodes, n)
	}
	for _, m := range attrs.Members {
		outNodes = append(outNodes, memberNode(*agg, m))
	}

	outEdges := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Source != id && e.Target != id {
			outEdges = append(outEdges, e)
			continue
		}
		for _, m := range attrs.Members {
			clone := e
			clone.ID = fmt.Sprintf("%s:%s", e.ID, m.ID)
			if e.Source == id {
				clone.Source = m.ID
			}
			if e.Target == id {
				clone.Target = m.ID
			}
			outEdges = append(outEdges, clone)
		}
	}

	return outNodes, outEdges
}

// memberNode materializes one aggregate member as a pod node. Namespace
// and labels are inherited from the aggregate so grouping treats members
// exactly like the aggregate they came from.
func memberNode(agg graph.Node, m graph.Member) graph.Node {
	status := m.Status
	if status == "" {
		status = graph.StatusUnknown
	}
	return graph.Node{
		ID:        m.ID,
		Kind:      graph.KindPod,
		Name:      m.Name,
		Status:    status,
		Namespace: agg.Namespace,
		Labels:    agg.Labels,
	}
}

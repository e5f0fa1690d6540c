// Package hierarchy turns a flat working graph plus group assignments into
// the two-level structure the layout engine consumes: top-level boxes
// (groups, possibly containing child boxes, and ungrouped nodes) and the
// redirected edge set between them.
package hierarchy

import (
	"slices"

	"github.com/mfeltner/lattice/pkg/graph"
	"github.com/mfeltner/lattice/pkg/grouping"
)

// Edge is a source/target pair between boxes. Relation and multiplicity
// are not preserved across redirection - only existence matters for
// layout.
type Edge struct {
	Source string
	Target string
}

// SubOptions carries the sub-layout constants for one expanded group so
// the per-group solver calls are self-contained.
type SubOptions struct {
	Padding     float64 // inset on all sides
	Header      float64 // extra top inset reserving label space
	NodeSpacing float64 // horizontal spacing between sibling boxes
	RankSpacing float64 // vertical spacing between ranks
	MinWidth    float64 // floor derived from the group label
}

// Box is one box in the hierarchical structure. Group boxes have Group
// set; expanded groups carry their children and the edges among them.
type Box struct {
	ID        string
	Label     string
	Kind      graph.Kind // zero for group boxes
	Group     bool
	Collapsed bool
	Width     float64
	Height    float64

	Children []Box  // expanded groups only
	Internal []Edge // edges with both endpoints among Children
	Sub      SubOptions
}

// Expanded reports whether the box is a group with children to lay out.
func (b Box) Expanded() bool { return b.Group && !b.Collapsed }

// Graph is the builder output: top-level boxes, the redirected and
// deduplicated edge set, and the node-to-group membership map so
// downstream phases don't recompute it.
type Graph struct {
	Boxes      []Box
	Edges      []Edge
	Membership map[string]string // node ID -> owning group ID
}

// Box returns the top-level box with the given ID and whether it exists.
func (g Graph) Box(id string) (Box, bool) {
	for _, b := range g.Boxes {
		if b.ID == id {
			return b, true
		}
	}
	return Box{}, false
}

// Build assembles the hierarchical structure for the working graph.
// assignment maps node IDs to group keys (ungrouped nodes are absent);
// collapsed holds the group IDs currently collapsed.
//
// Group boxes are emitted in key order and children in ID order so the
// output is deterministic for identical input.
func Build(nodes []graph.Node, edges []graph.Edge, assignment map[string]string, collapsed map[string]struct{}, mode grouping.Mode) Graph {
	byID := graph.NodeIndex(nodes)

	membership := make(map[string]string, len(assignment))
	memberIDs := make(map[string][]string) // group ID -> member node IDs
	groupLabel := make(map[string]string)  // group ID -> display key
	for id, key := range assignment {
		if _, ok := byID[id]; !ok {
			continue
		}
		gid := grouping.GroupID(mode, key)
		membership[id] = gid
		memberIDs[gid] = append(memberIDs[gid], id)
		groupLabel[gid] = key
	}

	groupIDs := make([]string, 0, len(memberIDs))
	for gid := range memberIDs {
		groupIDs = append(groupIDs, gid)
	}
	slices.Sort(groupIDs)

	g := Graph{Membership: membership}
	for _, gid := range groupIDs {
		ids := memberIDs[gid]
		slices.Sort(ids)
		_, isCollapsed := collapsed[gid]
		g.Boxes = append(g.Boxes, groupBox(gid, groupLabel[gid], ids, byID, edges, isCollapsed))
	}

	for _, id := range graph.SortedIDs(nodes) {
		if _, grouped := membership[id]; grouped {
			continue
		}
		g.Boxes = append(g.Boxes, nodeBox(byID[id]))
	}

	g.Edges = redirect(edges, membership, collapsed)
	return g
}

// groupBox builds one group box. Collapsed groups carry no children and
// size from their label; expanded groups carry child boxes, internal
// edges, and self-contained sub-layout options.
func groupBox(gid, label string, ids []string, byID map[string]graph.Node, edges []graph.Edge, isCollapsed bool) Box {
	b := Box{
		ID:        gid,
		Label:     label,
		Group:     true,
		Collapsed: isCollapsed,
	}
	if isCollapsed {
		b.Width = collapsedWidth(label)
		b.Height = collapsedHeight
		return b
	}

	inside := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		inside[id] = struct{}{}
		b.Children = append(b.Children, nodeBox(byID[id]))
	}
	for _, e := range edges {
		if _, okS := inside[e.Source]; !okS {
			continue
		}
		if _, okT := inside[e.Target]; !okT {
			continue
		}
		b.Internal = append(b.Internal, Edge{Source: e.Source, Target: e.Target})
	}
	b.Sub = SubOptions{
		Padding:     groupPadding,
		Header:      groupHeader,
		NodeSpacing: nodeSpacing,
		RankSpacing: rankSpacing,
		MinWidth:    collapsedWidth(label),
	}
	return b
}

func nodeBox(n graph.Node) Box {
	w, h := Dimensions(n.Kind)
	return Box{
		ID:     n.ID,
		Label:  n.DisplayName(),
		Kind:   n.Kind,
		Width:  w,
		Height: h,
	}
}

// redirect rewrites each edge endpoint to its owning group ID when that
// group is collapsed, drops self-loops introduced by the rewrite, and
// deduplicates (source, target) pairs. Redirecting an endpoint that is
// already a group ID is a no-op, so the rewrite is idempotent.
func redirect(edges []graph.Edge, membership map[string]string, collapsed map[string]struct{}) []Edge {
	seen := make(map[Edge]struct{}, len(edges))
	var out []Edge
	for _, e := range edges {
		re := Edge{
			Source: redirectEndpoint(e.Source, membership, collapsed),
			Target: redirectEndpoint(e.Target, membership, collapsed),
		}
		if re.Source == re.Target {
			continue
		}
		if _, dup := seen[re]; dup {
			continue
		}
		seen[re] = struct{}{}
		out = append(out, re)
	}
	return out
}

func redirectEndpoint(id string, membership map[string]string, collapsed map[string]struct{}) string {
	gid, grouped := membership[id]
	if !grouped {
		return id
	}
	if _, isCollapsed := collapsed[gid]; isCollapsed {
		return gid
	}
	return id
}

// Package grouping assigns working-graph nodes to visual groups.
//
// Three modes are supported: no grouping, grouping by the namespace
// attribute, and grouping by a propagated application label. The label
// mode seeds keys from well-known labels, relaxes them across connected
// neighbors, and falls back to synthesizing a key per fully-unlabeled
// connected component.
//
// Resolution is deterministic: for identical input the assignment is
// identical regardless of map iteration order.
package grouping

import (
	"fmt"
	"slices"

	"github.com/mfeltner/lattice/pkg/graph"
)

// Mode selects the grouping strategy.
type Mode string

// Grouping modes.
const (
	ModeNone      Mode = "none"
	ModeNamespace Mode = "namespace"
	ModeLabel     Mode = "label"
)

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool {
	return m == ModeNone || m == ModeNamespace || m == ModeLabel
}

// labelKeys are the candidate application labels checked in order when
// seeding group keys; the first present label wins.
var labelKeys = []string{
	"app.kubernetes.io/part-of",
	"app.kubernetes.io/name",
	"app",
}

// maxPropagationRounds bounds the BFS relaxation so pathological cyclic or
// dense components cannot degrade resolution cost. Nodes still unlabeled
// when the cap is hit fall through to the component fallback.
const maxPropagationRounds = 10

// GroupID derives the stable group identifier for a key under a mode.
// The ID is deterministic from (mode, key) so collapse state keyed by it
// survives snapshot refreshes as long as the key persists.
func GroupID(mode Mode, key string) string {
	return fmt.Sprintf("group:%s:%s", mode, key)
}

// Resolve computes the group key for each node under the given mode.
// Nodes absent from the returned map are ungrouped. A node belongs to at
// most one group.
func Resolve(nodes []graph.Node, edges []graph.Edge, mode Mode) map[string]string {
	switch mode {
	case ModeNamespace:
		return resolveByNamespace(nodes)
	case ModeLabel:
		return resolveByLabel(nodes, edges)
	default:
		return map[string]string{}
	}
}

// resolveByNamespace is a direct attribute lookup: nodes without a
// namespace stay ungrouped.
func resolveByNamespace(nodes []graph.Node) map[string]string {
	keys := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if n.Namespace != "" {
			keys[n.ID] = n.Namespace
		}
	}
	return keys
}

func resolveByLabel(nodes []graph.Node, edges []graph.Edge) map[string]string {
	byID := graph.NodeIndex(nodes)
	adj := boundaryAdjacency(byID, edges)
	ids := graph.SortedIDs(nodes)

	// Seed from explicit labels.
	keys := make(map[string]string, len(nodes))
	for _, id := range ids {
		if key, ok := seedKey(byID[id]); ok {
			keys[id] = key
		}
	}

	propagate(ids, adj, keys)
	assignComponentKeys(ids, byID, adj, keys)
	return keys
}

// seedKey checks the candidate label keys in order; first match wins.
func seedKey(n graph.Node) (string, bool) {
	for _, lk := range labelKeys {
		if v, ok := n.Label(lk); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// boundaryAdjacency builds the undirected neighbor relation restricted to
// edges whose endpoints share a namespace. Cross-namespace edges never
// propagate a label.
func boundaryAdjacency(byID map[string]graph.Node, edges []graph.Edge) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		src, okS := byID[e.Source]
		dst, okT := byID[e.Target]
		if !okS || !okT || src.Namespace != dst.Namespace {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	for id := range adj {
		slices.Sort(adj[id])
		adj[id] = slices.Compact(adj[id])
	}
	return adj
}

// propagate relaxes keys breadth-first: an unlabeled node with exactly one
// distinct labeled neighbor key inherits it. Rounds repeat until a fixed
// point or the iteration cap.
func propagate(ids []string, adj map[string][]string, keys map[string]string) {
	for round := 0; round < maxPropagationRounds; round++ {
		next := make(map[string]string)
		for _, id := range ids {
			if _, labeled := keys[id]; labeled {
				continue
			}
			distinct := ""
			conflict := false
			for _, nb := range adj[id] {
				key, ok := keys[nb]
				if !ok {
					continue
				}
				if distinct == "" {
					distinct = key
				} else if distinct != key {
					conflict = true
					break
				}
			}
			if distinct != "" && !conflict {
				next[id] = distinct
			}
		}
		if len(next) == 0 {
			return
		}
		for id, key := range next {
			keys[id] = key
		}
	}
}

// assignComponentKeys synthesizes a key for every connected component that
// remains fully unlabeled after propagation. Singleton components stay
// ungrouped - a lone unlabeled node never becomes its own group.
func assignComponentKeys(ids []string, byID map[string]graph.Node, adj map[string][]string, keys map[string]string) {
	visited := make(map[string]struct{}, len(ids))
	for _, start := range ids {
		if _, seen := visited[start]; seen {
			continue
		}
		if _, labeled := keys[start]; labeled {
			visited[start] = struct{}{}
			continue
		}

		component, anyLabeled := unlabeledComponent(start, adj, keys, visited)
		if anyLabeled || len(component) < 2 {
			continue
		}

		key := syntheticKey(component, byID)
		for _, id := range component {
			keys[id] = key
		}
	}
}

// unlabeledComponent walks the unlabeled nodes reachable from start and
// reports whether the component touches any labeled node. The labeled
// check must look at the key map, not the visited set: labeled nodes are
// marked visited up front, and a component poisoned through one of them
// still has to be detected.
func unlabeledComponent(start string, adj map[string][]string, keys map[string]string, visited map[string]struct{}) ([]string, bool) {
	var component []string
	anyLabeled := false
	queue := []string{start}
	visited[start] = struct{}{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		component = append(component, id)
		for _, nb := range adj[id] {
			if _, labeled := keys[nb]; labeled {
				// Labeled members poison the component: their neighbors
				// had their chance during propagation.
				anyLabeled = true
				continue
			}
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			queue = append(queue, nb)
		}
	}
	slices.Sort(component)
	return component, anyLabeled
}

// kindRank orders kinds for the synthetic-key pick: higher-level
// controllers beat workloads, workloads beat networking, networking beats
// configuration objects. Lower is better.
func kindRank(k graph.Kind) int {
	switch k {
	case graph.KindDeployment, graph.KindStatefulSet, graph.KindDaemonSet, graph.KindCronJob:
		return 0
	case graph.KindJob, graph.KindPodGroup, graph.KindPod:
		return 1
	case graph.KindService, graph.KindIngress, graph.KindAutoscaler:
		return 2
	default:
		return 3
	}
}

// syntheticKey picks the naming member of a fully-unlabeled component:
// best kind rank first, node ID as the tiebreaker.
func syntheticKey(component []string, byID map[string]graph.Node) string {
	best := component[0]
	for _, id := range component[1:] {
		if kindRank(byID[id].Kind) < kindRank(byID[best].Kind) {
			best = id
		}
	}
	return byID[best].DisplayName()
}

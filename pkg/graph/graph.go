// Package graph defines the resource graph model shared by every Lattice
// component: typed nodes, directed relation edges, and the snapshot
// container delivered by upstream data sources.
//
// Nodes are value-like: identity is the ID, everything else is replaced
// wholesale whenever a new snapshot arrives. Kind-specific data lives in a
// tagged payload (see Attrs) rather than an open metadata bag, so grouping
// and sizing logic can switch exhaustively over kinds.
package graph

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Snapshot.Validate] when a node has
	// an empty ID. All nodes must carry non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Snapshot.Validate] when two nodes
	// share the same ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrInvalidEdge is returned by [Snapshot.Validate] when an edge is
	// missing a source or target.
	ErrInvalidEdge = errors.New("edge endpoints must not be empty")
)

// Kind identifies the resource type of a node. The set is closed: sizing
// tables and grouping priorities switch over it.
type Kind string

// Resource kinds.
const (
	KindDeployment  Kind = "deployment"
	KindStatefulSet Kind = "statefulset"
	KindDaemonSet   Kind = "daemonset"
	KindCronJob     Kind = "cronjob"
	KindJob         Kind = "job"
	KindPod         Kind = "pod"
	KindPodGroup    Kind = "podgroup" // aggregate standing in for many pods
	KindService     Kind = "service"
	KindIngress     Kind = "ingress"
	KindConfigMap   Kind = "configmap"
	KindSecret      Kind = "secret"
	KindAutoscaler  Kind = "autoscaler"
)

// IsAggregate reports whether the kind stands in for many underlying
// resources and can be expanded on demand.
func (k Kind) IsAggregate() bool { return k == KindPodGroup }

// IsConfig reports whether the kind is a configuration object
// (hidden in compact view mode).
func (k Kind) IsConfig() bool { return k == KindConfigMap || k == KindSecret }

// Relation classifies a directed edge. The set is closed.
type Relation string

// Edge relations.
const (
	RelationRoutes     Relation = "routes"     // ingress -> service
	RelationExposes    Relation = "exposes"    // service -> workload
	RelationManages    Relation = "manages"    // controller -> pods
	RelationConfigures Relation = "configures" // configmap/secret -> workload
	RelationScales     Relation = "scales"     // autoscaler -> workload
)

// Status is the rolled-up health of a resource as reported upstream.
type Status string

// Node statuses.
const (
	StatusHealthy     Status = "healthy"
	StatusDegraded    Status = "degraded"
	StatusProgressing Status = "progressing"
	StatusUnknown     Status = "unknown"
)

// Node is a resource in the graph. The zero value is not usable - ID and
// Kind must be set.
type Node struct {
	ID        string
	Kind      Kind
	Name      string
	Status    Status
	Namespace string            // partition boundary; empty for cluster-scoped resources
	Labels    map[string]string // resource labels, nil when absent
	Attrs     Attrs             // kind-specific payload, nil for kinds without one
}

// DisplayName returns the name if set, otherwise the ID.
func (n Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// Label returns the value of the given label key and whether it is set.
func (n Node) Label(key string) (string, bool) {
	v, ok := n.Labels[key]
	return v, ok
}

// Aggregate returns the aggregate payload, or nil if the node is not an
// aggregate or carries no member list.
func (n Node) Aggregate() *AggregateAttrs {
	a, _ := n.Attrs.(*AggregateAttrs)
	return a
}

// Edge is a directed, typed connection between two nodes. Edges reference
// nodes by ID; an edge whose endpoint is missing from the working graph is
// dropped before layout, never reported as an error.
type Edge struct {
	ID       string
	Source   string
	Target   string
	Relation Relation
}

// Snapshot is one delivery from the upstream data source: the complete
// node and edge set observed at a point in time. Lattice is passive and
// re-derives everything from scratch on each delivery.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// Validate checks structural integrity of the snapshot: non-empty unique
// node IDs and non-empty edge endpoints. Dangling edges are legal here -
// they are dropped later during working-graph derivation.
func (s Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" {
			return ErrInvalidNodeID
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for _, e := range s.Edges {
		if e.Source == "" || e.Target == "" {
			return ErrInvalidEdge
		}
	}
	return nil
}

// NodeByID returns the node with the given ID and whether it exists.
// Lookup is linear; snapshots are transient and never indexed in place.
func (s Snapshot) NodeByID(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Clone returns a deep copy of the snapshot. Label maps and attribute
// payloads are copied so mutations on the clone never leak back.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes: make([]Node, len(s.Nodes)),
		Edges: slices.Clone(s.Edges),
	}
	for i, n := range s.Nodes {
		n.Labels = cloneLabels(n.Labels)
		n.Attrs = cloneAttrs(n.Attrs)
		out.Nodes[i] = n
	}
	return out
}

// NodeIndex builds an ID-keyed lookup for the node slice.
func NodeIndex(nodes []Node) map[string]Node {
	m := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

// SortedIDs returns the node IDs in ascending order. Used wherever
// deterministic iteration is required regardless of map ordering.
func SortedIDs(nodes []Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	slices.Sort(ids)
	return ids
}

// DropDangling returns the edges whose both endpoints exist in nodes.
// The count of dropped edges is returned for logging; a dangling edge is
// not an error.
func DropDangling(nodes []Node, edges []Edge) (kept []Edge, dropped int) {
	present := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		present[n.ID] = struct{}{}
	}
	kept = make([]Edge, 0, len(edges))
	for _, e := range edges {
		if _, ok := present[e.Source]; !ok {
			dropped++
			continue
		}
		if _, ok := present[e.Target]; !ok {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}

func cloneLabels(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

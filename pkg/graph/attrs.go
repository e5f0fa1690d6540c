package graph

// Attrs is the kind-specific payload of a node. Exactly one concrete type
// applies per kind; kinds without extra data carry nil. Modeling the
// payload as a closed union instead of an open map lets grouping and
// sizing switch exhaustively.
type Attrs interface {
	attrs()
}

// WorkloadAttrs is the payload for controller kinds (deployment,
// statefulset, daemonset, cronjob, job).
type WorkloadAttrs struct {
	Replicas int // desired replica count
	Ready    int // replicas currently ready
}

func (*WorkloadAttrs) attrs() {}

// ServiceAttrs is the payload for service and ingress kinds.
type ServiceAttrs struct {
	ClusterIP string
	Ports     []int
}

func (*ServiceAttrs) attrs() {}

// Member is one constituent resource embedded in an aggregate node.
type Member struct {
	ID     string
	Name   string
	Status Status
}

// AggregateAttrs is the payload for aggregate kinds (podgroup). Expanding
// the aggregate materializes one node per member; the list survives in the
// snapshot, so collapsing again is safely reversible.
type AggregateAttrs struct {
	Members []Member
}

func (*AggregateAttrs) attrs() {}

// cloneAttrs deep-copies a payload so snapshot clones never share state.
func cloneAttrs(a Attrs) Attrs {
	switch v := a.(type) {
	case nil:
		return nil
	case *WorkloadAttrs:
		cp := *v
		return &cp
	case *ServiceAttrs:
		cp := *v
		cp.Ports = append([]int(nil), v.Ports...)
		return &cp
	case *AggregateAttrs:
		cp := AggregateAttrs{Members: append([]Member(nil), v.Members...)}
		return &cp
	default:
		return a
	}
}

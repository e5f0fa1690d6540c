package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Snapshot Serialization
// =============================================================================

// nodeJSON is the wire form of a Node. The attribute union is flattened:
// each payload field is optional and only the fields matching the node's
// kind are honored on decode.
type nodeJSON struct {
	ID        string            `json:"id" bson:"id"`
	Kind      Kind              `json:"kind" bson:"kind"`
	Name      string            `json:"name,omitempty" bson:"name,omitempty"`
	Status    Status            `json:"status,omitempty" bson:"status,omitempty"`
	Namespace string            `json:"namespace,omitempty" bson:"namespace,omitempty"`
	Labels    map[string]string `json:"labels,omitempty" bson:"labels,omitempty"`

	Replicas  *int         `json:"replicas,omitempty" bson:"replicas,omitempty"`
	Ready     *int         `json:"ready,omitempty" bson:"ready,omitempty"`
	ClusterIP string       `json:"cluster_ip,omitempty" bson:"cluster_ip,omitempty"`
	Ports     []int        `json:"ports,omitempty" bson:"ports,omitempty"`
	Members   []memberJSON `json:"members,omitempty" bson:"members,omitempty"`
}

type memberJSON struct {
	ID     string `json:"id" bson:"id"`
	Name   string `json:"name,omitempty" bson:"name,omitempty"`
	Status Status `json:"status,omitempty" bson:"status,omitempty"`
}

type edgeJSON struct {
	ID       string   `json:"id,omitempty" bson:"id,omitempty"`
	Source   string   `json:"source" bson:"source"`
	Target   string   `json:"target" bson:"target"`
	Relation Relation `json:"relation,omitempty" bson:"relation,omitempty"`
}

// snapshotJSON is the canonical serialization format for snapshots.
// Used for API ingestion, the polling source, archival, and test fixtures.
type snapshotJSON struct {
	Nodes []nodeJSON `json:"nodes" bson:"nodes"`
	Edges []edgeJSON `json:"edges" bson:"edges"`
}

// MarshalSnapshot serializes a snapshot to JSON.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(encodeSnapshot(s))
}

// MarshalJSON implements json.Marshaler using the canonical wire form, so
// snapshots embedded in other documents serialize identically to
// MarshalSnapshot.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodeSnapshot(s))
}

// UnmarshalJSON implements json.Unmarshaler. Unlike UnmarshalSnapshot it
// performs no validation; embedding documents validate where needed.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var sj snapshotJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return err
	}
	*s = decodeSnapshot(sj)
	return nil
}

// UnmarshalSnapshot deserializes JSON bytes into a Snapshot and validates
// its structure.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var sj snapshotJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return Snapshot{}, err
	}
	s := decodeSnapshot(sj)
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// ReadSnapshot reads and decodes a snapshot from r.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, err
	}
	return UnmarshalSnapshot(data)
}

// ReadSnapshotFile reads a snapshot from a JSON file.
func ReadSnapshotFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

func encodeSnapshot(s Snapshot) snapshotJSON {
	sj := snapshotJSON{
		Nodes: make([]nodeJSON, len(s.Nodes)),
		Edges: make([]edgeJSON, len(s.Edges)),
	}
	for i, n := range s.Nodes {
		sj.Nodes[i] = encodeNode(n)
	}
	for i, e := range s.Edges {
		sj.Edges[i] = edgeJSON{ID: e.ID, Source: e.Source, Target: e.Target, Relation: e.Relation}
	}
	return sj
}

func decodeSnapshot(sj snapshotJSON) Snapshot {
	s := Snapshot{
		Nodes: make([]Node, len(sj.Nodes)),
		Edges: make([]Edge, len(sj.Edges)),
	}
	for i, nj := range sj.Nodes {
		s.Nodes[i] = decodeNode(nj)
	}
	for i, ej := range sj.Edges {
		s.Edges[i] = Edge{ID: ej.ID, Source: ej.Source, Target: ej.Target, Relation: ej.Relation}
	}
	return s
}

func encodeNode(n Node) nodeJSON {
	nj := nodeJSON{
		ID:        n.ID,
		Kind:      n.Kind,
		Name:      n.Name,
		Status:    n.Status,
		Namespace: n.Namespace,
		Labels:    n.Labels,
	}
	switch a := n.Attrs.(type) {
	case *WorkloadAttrs:
		replicas, ready := a.Replicas, a.Ready
		nj.Replicas = &replicas
		nj.Ready = &ready
	case *ServiceAttrs:
		nj.ClusterIP = a.ClusterIP
		nj.Ports = a.Ports
	case *AggregateAttrs:
		nj.Members = make([]memberJSON, len(a.Members))
		for i, m := range a.Members {
			nj.Members[i] = memberJSON{ID: m.ID, Name: m.Name, Status: m.Status}
		}
	}
	return nj
}

// decodeNode rebuilds the attribute union from the flattened wire form.
// Payload fields that don't match the node's kind are ignored.
func decodeNode(nj nodeJSON) Node {
	n := Node{
		ID:        nj.ID,
		Kind:      nj.Kind,
		Name:      nj.Name,
		Status:    nj.Status,
		Namespace: nj.Namespace,
		Labels:    nj.Labels,
	}
	switch nj.Kind {
	case KindDeployment, KindStatefulSet, KindDaemonSet, KindCronJob, KindJob:
		if nj.Replicas != nil || nj.Ready != nil {
			a := &WorkloadAttrs{}
			if nj.Replicas != nil {
				a.Replicas = *nj.Replicas
			}
			if nj.Ready != nil {
				a.Ready = *nj.Ready
			}
			n.Attrs = a
		}
	case KindService, KindIngress:
		if nj.ClusterIP != "" || len(nj.Ports) > 0 {
			n.Attrs = &ServiceAttrs{ClusterIP: nj.ClusterIP, Ports: nj.Ports}
		}
	case KindPodGroup:
		members := make([]Member, len(nj.Members))
		for i, mj := range nj.Members {
			members[i] = Member{ID: mj.ID, Name: mj.Name, Status: mj.Status}
		}
		n.Attrs = &AggregateAttrs{Members: members}
	}
	return n
}

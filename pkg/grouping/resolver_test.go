package grouping

import (
	"maps"
	"testing"

	"github.com/mfeltner/lattice/pkg/graph"
)

func TestResolveByNamespace(t *testing.T) {
	nodes := []graph.Node{
		{ID: "web", Namespace: "shop"},
		{ID: "db", Namespace: "shop"},
		{ID: "node-exporter"}, // cluster-scoped
	}

	keys := Resolve(nodes, nil, ModeNamespace)
	if keys["web"] != "shop" || keys["db"] != "shop" {
		t.Errorf("namespace keys = %v", keys)
	}
	if _, grouped := keys["node-exporter"]; grouped {
		t.Error("cluster-scoped node was grouped")
	}
}

func TestResolveModeNone(t *testing.T) {
	nodes := []graph.Node{{ID: "web", Namespace: "shop", Labels: map[string]string{"app": "shop"}}}
	if keys := Resolve(nodes, nil, ModeNone); len(keys) != 0 {
		t.Errorf("mode none produced groups: %v", keys)
	}
}

func TestLabelSeedPriority(t *testing.T) {
	nodes := []graph.Node{{
		ID: "web",
		Labels: map[string]string{
			"app":                       "fallback",
			"app.kubernetes.io/part-of": "shop",
		},
	}, {
		ID:     "db",
		Labels: map[string]string{"app": "fallback"},
	}}

	keys := Resolve(nodes, nil, ModeLabel)
	if keys["web"] != "shop" {
		t.Errorf("web key = %q, want part-of label to win", keys["web"])
	}
	if keys["db"] != "fallback" {
		t.Errorf("db key = %q, want %q", keys["db"], "fallback")
	}
}

func TestLabelPropagation(t *testing.T) {
	nodes := []graph.Node{
		{ID: "web", Namespace: "shop", Kind: graph.KindDeployment, Labels: map[string]string{"app": "shop"}},
		{ID: "web-svc", Namespace: "shop", Kind: graph.KindService},
		{ID: "ing", Namespace: "shop", Kind: graph.KindIngress},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "web-svc", Target: "web", Relation: graph.RelationExposes},
		{ID: "e2", Source: "ing", Target: "web-svc", Relation: graph.RelationRoutes},
	}

	keys := Resolve(nodes, edges, ModeLabel)
	for _, id := range []string{"web", "web-svc", "ing"} {
		if keys[id] != "shop" {
			t.Errorf("key[%s] = %q, want %q", id, keys[id], "shop")
		}
	}
}

func TestLabelPropagationConflict(t *testing.T) {
	// svc sits between two differently-labeled workloads; it must not
	// pick either side.
	nodes := []graph.Node{
		{ID: "a", Namespace: "ns", Labels: map[string]string{"app": "alpha"}},
		{ID: "b", Namespace: "ns", Labels: map[string]string{"app": "beta"}},
		{ID: "svc", Namespace: "ns"},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "svc", Target: "a"},
		{ID: "e2", Source: "svc", Target: "b"},
	}

	keys := Resolve(nodes, edges, ModeLabel)
	if key, grouped := keys["svc"]; grouped {
		t.Errorf("conflicted node got key %q, want ungrouped", key)
	}
}

func TestLabelNamespaceBoundary(t *testing.T) {
	nodes := []graph.Node{
		{ID: "web", Namespace: "shop", Labels: map[string]string{"app": "shop"}},
		{ID: "dns", Namespace: "infra"},
	}
	edges := []graph.Edge{{ID: "e1", Source: "web", Target: "dns"}}

	keys := Resolve(nodes, edges, ModeLabel)
	if key, grouped := keys["dns"]; grouped {
		t.Errorf("label %q crossed the namespace boundary", key)
	}
}

func TestSyntheticComponentKey(t *testing.T) {
	// A fully-unlabeled connected component is named after its
	// highest-ranking member: the deployment beats the service.
	nodes := []graph.Node{
		{ID: "legacy-svc", Namespace: "ns", Kind: graph.KindService},
		{ID: "legacy", Name: "legacy", Namespace: "ns", Kind: graph.KindDeployment},
	}
	edges := []graph.Edge{{ID: "e1", Source: "legacy-svc", Target: "legacy"}}

	keys := Resolve(nodes, edges, ModeLabel)
	if keys["legacy"] != "legacy" || keys["legacy-svc"] != "legacy" {
		t.Errorf("component keys = %v, want both %q", keys, "legacy")
	}
}

func TestSingletonExemption(t *testing.T) {
	nodes := []graph.Node{
		{ID: "loner", Namespace: "ns", Kind: graph.KindDeployment},
		{ID: "web", Namespace: "ns", Labels: map[string]string{"app": "shop"}},
	}

	keys := Resolve(nodes, nil, ModeLabel)
	if key, grouped := keys["loner"]; grouped {
		t.Errorf("lone unlabeled node became group %q", key)
	}
}

func TestComponentTouchingLabeledStaysUngrouped(t *testing.T) {
	// The unlabeled pair is adjacent to a conflict: propagation failed, and
	// the fallback must not invent a group for nodes whose component saw a
	// labeled member.
	nodes := []graph.Node{
		{ID: "a", Namespace: "ns", Labels: map[string]string{"app": "alpha"}},
		{ID: "b", Namespace: "ns", Labels: map[string]string{"app": "beta"}},
		{ID: "mid", Namespace: "ns"},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "mid", Target: "a"},
		{ID: "e2", Source: "mid", Target: "b"},
	}

	keys := Resolve(nodes, edges, ModeLabel)
	if key, grouped := keys["mid"]; grouped {
		t.Errorf("mid got synthetic key %q, want ungrouped", key)
	}
}

func TestPoisonedComponentWithTail(t *testing.T) {
	// mid1 is conflicted between alpha and beta, and mid2 hangs off mid1.
	// The unlabeled pair forms a component of size two, but it borders
	// labeled nodes, so the fallback must leave both ungrouped instead of
	// synthesizing a key from whichever member sorts first.
	nodes := []graph.Node{
		{ID: "a", Namespace: "ns", Labels: map[string]string{"app": "alpha"}},
		{ID: "b", Namespace: "ns", Labels: map[string]string{"app": "beta"}},
		{ID: "mid1", Namespace: "ns", Kind: graph.KindService},
		{ID: "mid2", Namespace: "ns", Kind: graph.KindService},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "mid1", Target: "a"},
		{ID: "e2", Source: "mid1", Target: "b"},
		{ID: "e3", Source: "mid1", Target: "mid2"},
	}

	keys := Resolve(nodes, edges, ModeLabel)
	for _, id := range []string{"mid1", "mid2"} {
		if key, grouped := keys[id]; grouped {
			t.Errorf("%s got key %q, want ungrouped", id, key)
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	nodes := []graph.Node{
		{ID: "web", Namespace: "ns", Kind: graph.KindDeployment, Labels: map[string]string{"app": "shop"}},
		{ID: "svc", Namespace: "ns", Kind: graph.KindService},
		{ID: "x1", Namespace: "ns", Kind: graph.KindJob},
		{ID: "x2", Namespace: "ns", Kind: graph.KindJob},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "svc", Target: "web"},
		{ID: "e2", Source: "x1", Target: "x2"},
	}

	first := Resolve(nodes, edges, ModeLabel)
	for range 20 {
		if again := Resolve(nodes, edges, ModeLabel); !maps.Equal(first, again) {
			t.Fatalf("Resolve() not deterministic: %v vs %v", first, again)
		}
	}
}

func TestGroupIDStable(t *testing.T) {
	a := GroupID(ModeLabel, "shop")
	b := GroupID(ModeLabel, "shop")
	if a != b {
		t.Errorf("GroupID not stable: %q vs %q", a, b)
	}
	if a == GroupID(ModeNamespace, "shop") {
		t.Error("group IDs collide across modes")
	}
}

package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mfeltner/lattice/pkg/graph"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	snap := graph.Snapshot{Nodes: []graph.Node{{ID: "web", Kind: graph.KindDeployment}}}
	id, err := store.Put(ctx, snap)
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if id == "" {
		t.Fatal("Put() returned empty ID")
	}

	entry, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(entry.Snapshot.Nodes) != 1 || entry.Snapshot.Nodes[0].ID != "web" {
		t.Errorf("entry snapshot = %+v", entry.Snapshot)
	}
	if entry.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var ids []string
	for range 3 {
		id, err := store.Put(ctx, graph.Snapshot{})
		if err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		ids = append(ids, id)
		time.Sleep(time.Millisecond)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() = %d entries, want 3", len(entries))
	}
	if entries[0].ID != ids[2] {
		t.Errorf("List() not newest-first: got %s first, want %s", entries[0].ID, ids[2])
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2) error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) = %d entries", len(limited))
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	snap := graph.Snapshot{Nodes: []graph.Node{{ID: "web", Labels: map[string]string{"app": "shop"}}}}
	id, _ := store.Put(ctx, snap)

	snap.Nodes[0].Labels["app"] = "mutated"
	entry, _ := store.Get(ctx, id)
	if entry.Snapshot.Nodes[0].Labels["app"] != "shop" {
		t.Error("caller mutation leaked into the archived entry")
	}
}

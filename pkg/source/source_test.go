package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mfeltner/lattice/pkg/graph"
)

func TestMemoryPushAndReceive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	snap := graph.Snapshot{Nodes: []graph.Node{{ID: "web", Kind: graph.KindDeployment, Labels: map[string]string{"app": "shop"}}}}
	if err := m.Push(ctx, snap); err != nil {
		t.Fatalf("Push() error: %v", err)
	}

	select {
	case got := <-m.Snapshots():
		if len(got.Nodes) != 1 || got.Nodes[0].ID != "web" {
			t.Errorf("received %+v", got)
		}
		// Delivery is a clone; mutating it must not reach the producer's copy.
		got.Nodes[0].Labels["app"] = "other"
		if snap.Nodes[0].Labels["app"] != "shop" {
			t.Error("consumer mutation leaked back to the pushed snapshot")
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestMemoryClose(t *testing.T) {
	m := NewMemory()
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, open := <-m.Snapshots(); open {
		t.Error("channel still open after Close()")
	}
	if err := m.Push(context.Background(), graph.Snapshot{}); err != nil {
		t.Errorf("Push() after Close() = %v, want nil no-op", err)
	}
}

func TestMemoryPushAfterCloseNeverPanics(t *testing.T) {
	m := NewMemory()
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// The buffer holds 4 snapshots: without the closed check, repeated
	// pushes against an undrained closed channel eventually pick the send
	// case and panic.
	for i := 0; i < 50; i++ {
		if err := m.Push(context.Background(), graph.Snapshot{}); err != nil {
			t.Fatalf("Push() after Close() = %v, want nil no-op", err)
		}
	}
}

func TestMemoryCloseDuringPush(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if err := m.Push(ctx, graph.Snapshot{}); err != nil {
				t.Errorf("Push() error: %v", err)
				return
			}
		}
	}()

	// Drain a few deliveries, then close while the pusher is still running.
	for i := 0; i < 3; i++ {
		<-m.Snapshots()
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pusher did not finish after Close()")
	}
}

func TestRetryFetchTransient(t *testing.T) {
	calls := 0
	err := retryFetch(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return Transient(errors.New("connection reset"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryFetch() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryFetchFatal(t *testing.T) {
	fatal := errors.New("404 not found")
	calls := 0
	err := retryFetch(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("retryFetch() = %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on fatal errors)", calls)
	}
}

func TestRetryFetchBudgetExhausted(t *testing.T) {
	transient := errors.New("timeout")
	calls := 0
	err := retryFetch(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return Transient(transient)
	})
	if !errors.Is(err, transient) {
		t.Errorf("retryFetch() = %v, want last transient error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryFetchContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retryFetch(ctx, 3, time.Hour, func() error {
		return Transient(errors.New("timeout"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("retryFetch() = %v, want context.Canceled", err)
	}
}

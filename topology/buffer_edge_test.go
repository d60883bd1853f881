package topology

import (
	"context"
	"testing"
	"time"

	"github.com/routeryard/core/event"
)

func logEvent(msg string) event.Event {
	l := event.NewLog(event.Metadata{})
	l.Set("message", event.String(msg))
	return event.NewLogEvent(l)
}

func TestMemoryEdgeRoundTrip(t *testing.T) {
	e, err := NewEdge("c", BufferSpec{Kind: EdgeMemory, MaxEvents: 10, MaxBytes: 1 << 20}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEdge: %v", err)
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := e.Send(ctx, logEvent("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := e.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	gl, _ := got.Log()
	if v, _ := gl.Get("message"); v.String() != "hello" {
		t.Fatalf("message = %v", v)
	}
}

// TestMemoryEdgeDropNewestRejectsOverCapacity exercises the DropNewest
// testable property at the topology layer: once MaxEvents is reached,
// further sends fail instead of growing the queue.
func TestMemoryEdgeDropNewestRejectsOverCapacity(t *testing.T) {
	e, err := NewEdge("c", BufferSpec{Kind: EdgeMemory, MaxEvents: 2, MaxBytes: 1 << 20, WhenFull: DropNewest}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEdge: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	if err := e.Send(ctx, logEvent("a")); err != nil {
		t.Fatalf("Send 1: %v", err)
	}
	if err := e.Send(ctx, logEvent("b")); err != nil {
		t.Fatalf("Send 2: %v", err)
	}
	if err := e.Send(ctx, logEvent("c")); err != ErrEdgeFull {
		t.Fatalf("Send 3 = %v, want ErrEdgeFull", err)
	}
}

func TestMemoryEdgeBlockUnblocksOnRecv(t *testing.T) {
	e, err := NewEdge("c", BufferSpec{Kind: EdgeMemory, MaxEvents: 1, MaxBytes: 1 << 20, WhenFull: Block}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEdge: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	if err := e.Send(ctx, logEvent("a")); err != nil {
		t.Fatalf("Send 1: %v", err)
	}

	blockedDone := make(chan error, 1)
	go func() {
		blockedDone <- e.Send(ctx, logEvent("b"))
	}()

	select {
	case err := <-blockedDone:
		t.Fatalf("second Send returned early (err=%v), want it to block", err)
	case <-time.After(100 * time.Millisecond):
	}

	if _, err := e.Recv(ctx); err != nil {
		t.Fatalf("Recv: %v", err)
	}

	select {
	case err := <-blockedDone:
		if err != nil {
			t.Fatalf("second Send: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second Send still blocked after Recv freed space")
	}
}

func TestMemoryEdgeSendRespectsContextCancellation(t *testing.T) {
	e, err := NewEdge("c", BufferSpec{Kind: EdgeMemory, MaxEvents: 1, MaxBytes: 1 << 20, WhenFull: Block}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEdge: %v", err)
	}
	defer e.Close()

	if err := e.Send(context.Background(), logEvent("a")); err != nil {
		t.Fatalf("Send 1: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := e.Send(ctx, logEvent("b")); err == nil {
		t.Fatal("Send should fail once ctx deadline passes while blocked")
	}
}

func TestDiskEdgeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	e, err := NewEdge("c", BufferSpec{Kind: EdgeDisk, MaxBytes: 1 << 20, DiskDir: dir}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEdge: %v", err)
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := e.Send(ctx, logEvent("on-disk")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := e.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	gl, _ := got.Log()
	if v, _ := gl.Get("message"); v.String() != "on-disk" {
		t.Fatalf("message = %v", v)
	}
}

// TestCompositeEdgeOverflowsToDisk exercises spec.md §4.2.2's Composite
// edge: once the memory bound is reached, further sends spill to disk
// rather than blocking or dropping, and Recv observes everything — memory
// first, then the disk spillover — in send order.
func TestCompositeEdgeOverflowsToDisk(t *testing.T) {
	dir := t.TempDir()
	e, err := NewEdge("c", BufferSpec{
		Kind:      EdgeComposite,
		MaxEvents: 2,
		MaxBytes:  1 << 20,
		DiskDir:   dir,
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEdge: %v", err)
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	want := []string{"a", "b", "c", "d"}
	for _, w := range want {
		if err := e.Send(ctx, logEvent(w)); err != nil {
			t.Fatalf("Send %q: %v", w, err)
		}
	}

	for _, w := range want {
		got, err := e.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		gl, _ := got.Log()
		v, _ := gl.Get("message")
		if v.String() != w {
			t.Fatalf("Recv message = %q, want %q", v.String(), w)
		}
	}
}

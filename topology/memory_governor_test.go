package topology

import (
	"testing"
	"time"
)

func TestMemoryGovernorDisabledWithZeroLimit(t *testing.T) {
	g := NewMemoryGovernor(0)
	if g.Enabled() {
		t.Fatal("governor with limit 0 should be disabled")
	}
	g.Reserve(1 << 20)
	if g.Usage() != 0 {
		t.Fatalf("disabled governor should not track usage, got %d", g.Usage())
	}
}

func TestMemoryGovernorReserveAndFree(t *testing.T) {
	g := NewMemoryGovernor(1024)
	g.Reserve(100)
	if g.Usage() != 100 {
		t.Fatalf("Usage = %d, want 100", g.Usage())
	}
	g.Reserve(200)
	if g.Usage() != 300 {
		t.Fatalf("Usage = %d, want 300", g.Usage())
	}
	g.Free(100)
	if g.Usage() != 200 {
		t.Fatalf("Usage = %d, want 200", g.Usage())
	}
}

func TestMemoryGovernorWaitIfStalledBlocksUntilFreed(t *testing.T) {
	g := NewMemoryGovernor(100)
	g.Reserve(100)

	unblocked := make(chan struct{})
	go func() {
		g.WaitIfStalled()
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("WaitIfStalled returned before Free")
	case <-time.After(100 * time.Millisecond):
	}

	g.Free(100)

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("WaitIfStalled still blocked after Free")
	}

	if stats := g.Stats(); stats.StallEvents != 1 {
		t.Fatalf("StallEvents = %d, want 1", stats.StallEvents)
	}
}

func TestMemoryGovernorNilIsANoop(t *testing.T) {
	var g *MemoryGovernor
	g.Reserve(10)
	g.Free(10)
	g.WaitIfStalled()
	if g.Usage() != 0 {
		t.Fatalf("Usage = %d, want 0", g.Usage())
	}
}

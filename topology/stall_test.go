package topology

import (
	"context"
	"testing"
	"time"
)

func TestRecalcStallCondition(t *testing.T) {
	cases := []struct {
		bytes, maxBytes int64
		want            StallCondition
	}{
		{0, 1000, StallNormal},
		{800, 1000, StallNormal},
		{875, 1000, StallDelayed},
		{999, 1000, StallDelayed},
		{1000, 1000, StallStopped},
		{1500, 1000, StallStopped},
		{100, 0, StallNormal},
	}
	for _, c := range cases {
		if got := recalcStallCondition(c.bytes, c.maxBytes); got != c.want {
			t.Errorf("recalcStallCondition(%d, %d) = %v, want %v", c.bytes, c.maxBytes, got, c.want)
		}
	}
}

func TestDelayForScalesWithSizeAndRate(t *testing.T) {
	d := delayFor(1024, 1024) // 1024 bytes at 1024B/s => 1s
	if d != time.Second {
		t.Fatalf("delayFor = %v, want 1s", d)
	}
	if delayFor(1024, 0) != 0 {
		t.Fatal("delayFor with rate 0 should disable delay")
	}
}

func TestMemoryEdgeAppliesGraduatedDelay(t *testing.T) {
	e, err := NewEdge("c", BufferSpec{
		Kind:             EdgeMemory,
		MaxEvents:        100,
		MaxBytes:         1000,
		DelayedWriteRate: 10_000, // 10KB/s, so a ~125B event delays ~12.5ms
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEdge: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	// Fill past the 7/8 soft threshold (875 bytes) without hitting MaxBytes.
	for i := 0; i < 20; i++ {
		if err := e.Send(ctx, logEvent("x")); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
		if _, bytes := e.Usage(); bytes >= 875 {
			break
		}
	}

	start := time.Now()
	if err := e.Send(ctx, logEvent("delayed")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if elapsed := time.Since(start); elapsed <= 0 {
		t.Fatal("expected a non-zero graduated delay once past the soft threshold")
	}
}

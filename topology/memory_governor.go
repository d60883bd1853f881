package topology

import (
	"sync"
	"sync/atomic"
)

// MemoryGovernor caps the combined byte occupancy of every Memory and
// Composite edge sharing it, independent of each edge's own per-edge bound
// (spec.md §4.2.2's per-edge MaxBytes is a local limit; a process running
// many components can still be driven out of memory by their sum): reserve
// on acquire, free on release, stall writers once the shared budget is
// exhausted.
//
// A nil *MemoryGovernor is valid and imposes no shared limit; edges treat it
// as optional.
type MemoryGovernor struct {
	limit uint64

	used atomic.Uint64

	stallMu   sync.Mutex
	stallCond *sync.Cond
	stalled   atomic.Bool

	mu    sync.Mutex
	stats MemoryGovernorStats
}

// MemoryGovernorStats tracks lifetime governor activity.
type MemoryGovernorStats struct {
	TotalReserved uint64
	TotalFreed    uint64
	PeakUsage     uint64
	StallEvents   uint64
}

// NewMemoryGovernor returns a governor capping combined edge occupancy at
// limit bytes. limit == 0 disables the cap (Reserve/WaitIfStalled are no-ops).
func NewMemoryGovernor(limit uint64) *MemoryGovernor {
	g := &MemoryGovernor{limit: limit}
	g.stallCond = sync.NewCond(&g.stallMu)
	return g
}

// Enabled reports whether the governor enforces a cap.
func (g *MemoryGovernor) Enabled() bool {
	return g != nil && g.limit > 0
}

// Usage returns current combined reservation across every edge sharing g.
func (g *MemoryGovernor) Usage() uint64 {
	if g == nil {
		return 0
	}
	return g.used.Load()
}

// Reserve accounts for n additional bytes held by an edge's queue.
func (g *MemoryGovernor) Reserve(n int64) {
	if !g.Enabled() || n <= 0 {
		return
	}
	newUsed := g.used.Add(uint64(n))
	g.mu.Lock()
	g.stats.TotalReserved += uint64(n)
	if newUsed > g.stats.PeakUsage {
		g.stats.PeakUsage = newUsed
	}
	g.mu.Unlock()
}

// Free releases n bytes previously reserved, waking any writer blocked in
// WaitIfStalled once usage drops back under the soft threshold.
func (g *MemoryGovernor) Free(n int64) {
	if !g.Enabled() || n <= 0 {
		return
	}
	g.used.Add(^(uint64(n) - 1))
	g.mu.Lock()
	g.stats.TotalFreed += uint64(n)
	g.mu.Unlock()
	g.maybeEndStall()
}

// WaitIfStalled blocks the caller while the shared budget is fully
// exhausted. It returns once another caller's Free makes room.
func (g *MemoryGovernor) WaitIfStalled() {
	if !g.Enabled() {
		return
	}
	if g.used.Load() < g.limit {
		return
	}

	g.stallMu.Lock()
	defer g.stallMu.Unlock()

	g.stalled.Store(true)
	g.mu.Lock()
	g.stats.StallEvents++
	g.mu.Unlock()

	for g.used.Load() >= g.limit {
		g.stallCond.Wait()
	}
}

func (g *MemoryGovernor) maybeEndStall() {
	if g == nil || !g.stalled.Load() {
		return
	}
	threshold := g.limit * softThresholdNum / softThresholdDenom
	if g.used.Load() < threshold {
		g.stallMu.Lock()
		g.stalled.Store(false)
		g.stallCond.Broadcast()
		g.stallMu.Unlock()
	}
}

// Stats returns a snapshot of lifetime governor activity.
func (g *MemoryGovernor) Stats() MemoryGovernorStats {
	if g == nil {
		return MemoryGovernorStats{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

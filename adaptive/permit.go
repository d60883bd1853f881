// Package adaptive implements the per-service adaptive concurrency
// controller: a permit pool sized by an AIMD loop driven by observed RTT
// and back-pressure signals, converging on an in-flight request limit
// without operator input.
package adaptive

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// permitPool is a golang.org/x/sync/semaphore.Weighted sized to
// maxConcurrencyLimit, with the gap between maxConcurrencyLimit and the
// controller's current_limit held as "phantom" permits that are never
// released for acquisition. Shrinking the pool acquires more phantom
// permits (forgetting them, per spec.md §4.3.2); growing releases some
// back. This avoids rebuilding the semaphore on every resize, which would
// lose track of permits already checked out by in-flight requests.
type permitPool struct {
	sem          *semaphore.Weighted
	max          int64
	currentLimit int64

	// cancelShrink cancels a pending background acquisition of phantom
	// permits started by a shrink that could not complete synchronously.
	cancelShrink context.CancelFunc
}

func newPermitPool(max, initial int64) *permitPool {
	p := &permitPool{
		sem: semaphore.NewWeighted(max),
		max: max,
	}
	// Start with every permit held as a phantom, then release initial.
	p.sem.TryAcquire(max)
	p.currentLimit = 0
	p.resize(initial)
	return p
}

// acquire blocks until a permit is available or ctx is done.
func (p *permitPool) acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// tryAcquire attempts to acquire a permit without blocking.
func (p *permitPool) tryAcquire() bool {
	return p.sem.TryAcquire(1)
}

// release returns a permit to the pool.
func (p *permitPool) release() {
	p.sem.Release(1)
}

// resize grows or shrinks current_limit toward newLimit, clamped to
// [1, max]. Growing releases phantom permits immediately. Shrinking
// acquires additional phantom permits, synchronously where capacity is
// free and asynchronously (forgetting permits as they are released by
// in-flight work) otherwise.
func (p *permitPool) resize(newLimit int64) {
	if newLimit < 1 {
		newLimit = 1
	}
	if newLimit > p.max {
		newLimit = p.max
	}
	if p.cancelShrink != nil {
		p.cancelShrink()
		p.cancelShrink = nil
	}

	delta := newLimit - p.currentLimit
	p.currentLimit = newLimit

	switch {
	case delta > 0:
		p.sem.Release(delta)
	case delta < 0:
		need := -delta
		for need > 0 && p.sem.TryAcquire(1) {
			need--
		}
		if need > 0 {
			ctx, cancel := context.WithCancel(context.Background())
			p.cancelShrink = cancel
			go func(n int64) {
				for n > 0 {
					if err := p.sem.Acquire(ctx, 1); err != nil {
						return
					}
					n--
				}
			}(need)
		}
	}
}

// limit returns the pool's current target size.
func (p *permitPool) limit() int64 {
	return p.currentLimit
}

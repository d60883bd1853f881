package adaptive

import (
	"sync"
	"time"
)

// RateLimiter enforces the "rate limit (num, duration)" half of a sink's
// TowerRequestSettings (spec.md §6.2): a token-bucket cap on requests per
// duration, independent of the AIMD concurrency Controller above.
type RateLimiter struct {
	mu sync.Mutex

	ratePerSecond float64
	burst         float64

	available      float64
	lastRefillTime time.Time

	totalRequests int64
}

// NewRateLimiter builds a RateLimiter allowing num requests per duration,
// with burst capacity equal to one duration's worth of requests.
func NewRateLimiter(num int, duration time.Duration) *RateLimiter {
	if num <= 0 {
		num = 1
	}
	if duration <= 0 {
		duration = time.Second
	}
	rl := &RateLimiter{
		ratePerSecond:  float64(num) / duration.Seconds(),
		burst:          float64(num),
		lastRefillTime: time.Now(),
	}
	rl.available = rl.burst
	return rl
}

// Allow blocks until one request's worth of quota is available.
func (rl *RateLimiter) Allow() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	for rl.available < 1 {
		wait := time.Duration((1 - rl.available) / rl.ratePerSecond * float64(time.Second))
		rl.mu.Unlock()
		time.Sleep(wait)
		rl.mu.Lock()
		rl.refillLocked()
	}
	rl.available--
	rl.totalRequests++
}

func (rl *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefillTime)
	if elapsed <= 0 {
		return
	}
	rl.available += elapsed.Seconds() * rl.ratePerSecond
	if rl.available > rl.burst {
		rl.available = rl.burst
	}
	rl.lastRefillTime = now
}

// SetRate dynamically changes the rate limit.
func (rl *RateLimiter) SetRate(num int, duration time.Duration) {
	if num <= 0 {
		num = 1
	}
	if duration <= 0 {
		duration = time.Second
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.ratePerSecond = float64(num) / duration.Seconds()
	rl.burst = float64(num)
	if rl.available > rl.burst {
		rl.available = rl.burst
	}
}

// TotalRequests returns the count of requests that have passed Allow.
func (rl *RateLimiter) TotalRequests() int64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.totalRequests
}

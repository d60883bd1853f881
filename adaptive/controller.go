package adaptive

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/routeryard/core/internal/logging"
)

// Outcome classifies a completed request for the controller's RTT and
// back-pressure sampling.
type Outcome int

const (
	// OutcomeSuccess is a successful response; its RTT is sampled.
	OutcomeSuccess Outcome = iota
	// OutcomeBackPressure is a retriable back-pressure signal (429, timeout,
	// retriable I/O error): RTT is not sampled, had_back_pressure is set.
	OutcomeBackPressure
	// OutcomeIgnored is a non-retriable error: ignored for RTT and back-pressure.
	OutcomeIgnored
)

// Options configures a Controller.
type Options struct {
	// MaxConcurrencyLimit bounds current_limit from above.
	MaxConcurrencyLimit int64
	// InitialLimit seeds current_limit. Defaults to 1.
	InitialLimit int64
	// DecreaseRatio is applied on multiplicative decrease; must be in (0, 1).
	// Defaults to 0.9.
	DecreaseRatio float64
	// KVariance scales the standard deviation term in the decrease
	// condition (current_rtt >= past_rtt.mean + K*sqrt(variance)).
	// Defaults to 2.0.
	KVariance float64
	// FixedConcurrency, if non-zero, pins the pool to this size and
	// bypasses the AIMD loop entirely (spec.md §4.3.3 operator override).
	FixedConcurrency int64
	// EWMAAlpha is the smoothing factor for past_rtt's mean/variance.
	// Defaults to 0.2.
	EWMAAlpha float64
	// MinUpdateInterval floors the computed next_update, so bursts of very
	// fast responses do not evaluate the AIMD step every single response.
	MinUpdateInterval time.Duration
	Logger            logging.Logger
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.MaxConcurrencyLimit <= 0 {
		out.MaxConcurrencyLimit = 256
	}
	if out.InitialLimit <= 0 {
		out.InitialLimit = 1
	}
	if out.DecreaseRatio <= 0 || out.DecreaseRatio >= 1 {
		out.DecreaseRatio = 0.9
	}
	if out.KVariance <= 0 {
		out.KVariance = 2.0
	}
	if out.EWMAAlpha <= 0 || out.EWMAAlpha > 1 {
		out.EWMAAlpha = 0.2
	}
	if out.MinUpdateInterval <= 0 {
		out.MinUpdateInterval = 10 * time.Millisecond
	}
	out.Logger = logging.OrDefault(out.Logger)
	return out
}

// Controller is the per-service adaptive concurrency controller described
// in spec.md §4.3: it sizes a permit pool from observed RTT and
// back-pressure, via additive-increase/multiplicative-decrease.
type Controller struct {
	opts Options
	pool *permitPool

	mu sync.Mutex

	inFlight     int64
	reachedLimit bool

	hadBackPressure bool
	intervalSamples int64
	intervalRTTSum  time.Duration

	pastRTTMean float64 // nanoseconds
	pastRTTVar  float64 // nanoseconds^2
	haveRTT     bool

	nextUpdate time.Time

	metrics *Metrics
}

// New constructs a Controller. If opts.FixedConcurrency is set, the
// controller serves only as a permit pool (spec.md §4.3.3).
func New(opts Options, metrics *Metrics) *Controller {
	o := opts.withDefaults()

	initial := o.InitialLimit
	if o.FixedConcurrency > 0 {
		initial = o.FixedConcurrency
		if initial > o.MaxConcurrencyLimit {
			o.MaxConcurrencyLimit = initial
		}
	}

	c := &Controller{
		opts:       o,
		pool:       newPermitPool(o.MaxConcurrencyLimit, initial),
		nextUpdate: time.Now().Add(o.MinUpdateInterval),
		metrics:    metrics,
	}
	c.reportLocked()
	return c
}

// Acquire blocks until a permit is available, or ctx is done. This is the
// mechanism by which back-pressure propagates to callers (spec.md §4.3.2).
func (c *Controller) Acquire(ctx context.Context) error {
	if err := c.pool.acquire(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.inFlight++
	if c.inFlight >= c.pool.limit() {
		c.reachedLimit = true
	}
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.observeInFlight(c.InFlight())
	}
	return nil
}

// Release returns a permit and records the request's outcome and RTT
// (meaningful only for OutcomeSuccess). Call exactly once per successful
// Acquire.
func (c *Controller) Release(outcome Outcome, rtt time.Duration) {
	c.pool.release()

	c.mu.Lock()
	c.inFlight--

	if c.opts.FixedConcurrency == 0 {
		switch outcome {
		case OutcomeSuccess:
			c.intervalSamples++
			c.intervalRTTSum += rtt
		case OutcomeBackPressure:
			c.hadBackPressure = true
		}

		if time.Now().After(c.nextUpdate) {
			c.stepLocked()
		}
	}
	c.mu.Unlock()
}

// stepLocked applies the AIMD update at an interval boundary. Caller must
// hold c.mu.
func (c *Controller) stepLocked() {
	defer c.resetIntervalLocked()

	haveSamples := c.intervalSamples > 0
	var currentRTT float64
	if haveSamples {
		currentRTT = float64(c.intervalRTTSum) / float64(c.intervalSamples)
	}

	if haveSamples && !c.haveRTT {
		c.pastRTTMean = currentRTT
		c.pastRTTVar = 0
		c.haveRTT = true
		c.reportLocked()
		return
	}

	limit := c.pool.limit()
	stddev := math.Sqrt(c.pastRTTVar)

	switch {
	case limit < c.opts.MaxConcurrencyLimit && c.reachedLimit && !c.hadBackPressure &&
		haveSamples && currentRTT <= c.pastRTTMean:
		c.pool.resize(limit + 1)
	case limit > 1 && (c.hadBackPressure ||
		(haveSamples && currentRTT >= c.pastRTTMean+c.opts.KVariance*stddev)):
		newLimit := int64(math.Floor(float64(limit) * c.opts.DecreaseRatio))
		c.pool.resize(newLimit)
	}

	// Update past_rtt EWMA with this interval's mean, when we sampled any RTT.
	if haveSamples {
		delta := currentRTT - c.pastRTTMean
		c.pastRTTMean += c.opts.EWMAAlpha * delta
		c.pastRTTVar = (1 - c.opts.EWMAAlpha) * (c.pastRTTVar + c.opts.EWMAAlpha*delta*delta)
	}

	c.reportLocked()
}

func (c *Controller) resetIntervalLocked() {
	c.reachedLimit = false
	c.hadBackPressure = false
	c.intervalSamples = 0
	c.intervalRTTSum = 0

	interval := time.Duration(c.pastRTTMean)
	if interval < c.opts.MinUpdateInterval {
		interval = c.opts.MinUpdateInterval
	}
	c.nextUpdate = time.Now().Add(interval)
}

func (c *Controller) reportLocked() {
	if c.metrics == nil {
		return
	}
	c.metrics.observeLimit(c.pool.limit())
	c.metrics.observeRTT(time.Duration(c.pastRTTMean), math.Sqrt(c.pastRTTVar))
}

// Limit returns the controller's current permit pool size.
func (c *Controller) Limit() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool.limit()
}

// InFlight returns the number of currently outstanding permits.
func (c *Controller) InFlight() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

package adaptive

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports the adaptive concurrency controller's per-interval state
// (spec.md §4.3.3: "emits observability metrics per interval: limit,
// in-flight, observed and averaged RTT").
type Metrics struct {
	limit     prometheus.Gauge
	inFlight  prometheus.Gauge
	rttMean   prometheus.Gauge
	rttStddev prometheus.Gauge
}

// NewMetrics registers the controller's gauges under the given service
// name (used as the "service" label) on reg.
func NewMetrics(reg prometheus.Registerer, service string) *Metrics {
	labels := prometheus.Labels{"service": service}
	m := &Metrics{
		limit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "routeryard",
			Subsystem:   "adaptive",
			Name:        "concurrency_limit",
			Help:        "Current permit pool size for the adaptive concurrency controller.",
			ConstLabels: labels,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "routeryard",
			Subsystem:   "adaptive",
			Name:        "in_flight",
			Help:        "Number of currently outstanding requests.",
			ConstLabels: labels,
		}),
		rttMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "routeryard",
			Subsystem:   "adaptive",
			Name:        "rtt_mean_seconds",
			Help:        "EWMA of observed request RTT, in seconds.",
			ConstLabels: labels,
		}),
		rttStddev: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "routeryard",
			Subsystem:   "adaptive",
			Name:        "rtt_stddev_seconds",
			Help:        "Standard deviation of observed request RTT, in seconds.",
			ConstLabels: labels,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.limit, m.inFlight, m.rttMean, m.rttStddev)
	}
	return m
}

func (m *Metrics) observeLimit(limit int64) {
	m.limit.Set(float64(limit))
}

func (m *Metrics) observeInFlight(n int64) {
	m.inFlight.Set(float64(n))
}

func (m *Metrics) observeRTT(mean time.Duration, stddev float64) {
	m.rttMean.Set(mean.Seconds())
	m.rttStddev.Set(time.Duration(stddev).Seconds())
}

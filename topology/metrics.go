package topology

import "github.com/prometheus/client_golang/prometheus"

// EdgeMetrics exports per-edge usage handles (spec.md §4.2.2: "Counts and
// byte sizes per edge are exposed through a usage-handle registered at
// construction"), labeled by the consuming component's key.
type EdgeMetrics struct {
	events  *prometheus.GaugeVec
	bytes   *prometheus.GaugeVec
	dropped *prometheus.CounterVec
}

// NewEdgeMetrics registers the edge gauges/counter on reg. reg may be nil,
// in which case the returned *EdgeMetrics silently no-ops.
func NewEdgeMetrics(reg prometheus.Registerer) *EdgeMetrics {
	m := &EdgeMetrics{
		events: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "routeryard",
			Subsystem: "topology",
			Name:      "edge_events",
			Help:      "Number of events currently queued on a component's inbound edge.",
		}, []string{"component"}),
		bytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "routeryard",
			Subsystem: "topology",
			Name:      "edge_bytes",
			Help:      "Estimated bytes currently queued on a component's inbound edge.",
		}, []string{"component"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routeryard",
			Subsystem: "topology",
			Name:      "edge_dropped_total",
			Help:      "Events rejected by a DropNewest edge because it was full.",
		}, []string{"component"}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.bytes, m.dropped)
	}
	return m
}

func (m *EdgeMetrics) observe(component string, events, bytes int64) {
	m.events.WithLabelValues(component).Set(float64(events))
	m.bytes.WithLabelValues(component).Set(float64(bytes))
}

func (m *EdgeMetrics) observeDropped(component string) {
	m.dropped.WithLabelValues(component).Inc()
}

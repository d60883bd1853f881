package event

import "github.com/routeryard/core/ack"

// VariantKind identifies which of the three Event variants is held.
type VariantKind int

const (
	VariantLog VariantKind = iota
	VariantMetric
	VariantTrace
)

func (k VariantKind) String() string {
	switch k {
	case VariantLog:
		return "log"
	case VariantMetric:
		return "metric"
	case VariantTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// Event is the tagged sum over Log, Metric, and Trace described by spec.md
// §3.1. Components declare which variants they accept via AcceptedTypes;
// operations that are variant-specific should type-switch on Kind.
type Event struct {
	kind   VariantKind
	log    Log
	metric Metric
	trace  Trace
}

// NewLogEvent wraps l as an Event.
func NewLogEvent(l Log) Event { return Event{kind: VariantLog, log: l} }

// NewMetricEvent wraps m as an Event.
func NewMetricEvent(m Metric) Event { return Event{kind: VariantMetric, metric: m} }

// NewTraceEvent wraps t as an Event.
func NewTraceEvent(t Trace) Event { return Event{kind: VariantTrace, trace: t} }

// Kind returns which variant e holds.
func (e Event) Kind() VariantKind { return e.kind }

// Log returns e's Log payload; ok is false if e is not a Log.
func (e Event) Log() (Log, bool) {
	if e.kind != VariantLog {
		return Log{}, false
	}
	return e.log, true
}

// Metric returns e's Metric payload; ok is false if e is not a Metric.
func (e Event) Metric() (Metric, bool) {
	if e.kind != VariantMetric {
		return Metric{}, false
	}
	return e.metric, true
}

// Trace returns e's Trace payload; ok is false if e is not a Trace.
func (e Event) Trace() (Trace, bool) {
	if e.kind != VariantTrace {
		return Trace{}, false
	}
	return e.trace, true
}

// Handle returns e's acknowledgement handle regardless of variant.
func (e Event) Handle() ack.Handle {
	switch e.kind {
	case VariantLog:
		return e.log.Metadata.Handle
	case VariantMetric:
		return e.metric.Handle
	case VariantTrace:
		return e.trace.Metadata.Handle
	default:
		return ack.NoopHandle()
	}
}

// Finish reports s as e's terminal disposition and releases e's
// acknowledgement reference (spec.md §4.5).
func (e Event) Finish(s ack.Status) {
	e.Handle().Finish(s)
}

// Clone returns a copy of e with its acknowledgement handle cloned, for use
// when a transform fans e out to more than one output.
func (e Event) Clone() Event {
	switch e.kind {
	case VariantLog:
		return NewLogEvent(e.log.Clone())
	case VariantMetric:
		return NewMetricEvent(e.metric.Clone())
	case VariantTrace:
		return NewTraceEvent(e.trace.Clone())
	default:
		return e
	}
}

// AcceptedTypes describes which Event variants a component can consume or
// produce (spec.md §4.2.4).
type AcceptedTypes struct {
	Log    bool
	Metric bool
	Trace  bool
}

// Accepts reports whether k is among t's accepted variants.
func (t AcceptedTypes) Accepts(k VariantKind) bool {
	switch k {
	case VariantLog:
		return t.Log
	case VariantMetric:
		return t.Metric
	case VariantTrace:
		return t.Trace
	default:
		return false
	}
}

package metric

import (
	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/routeryard/core/event"
)

// defaultRelativeAccuracy matches the precision DDSketch-backed sinks
// typically request: 1% relative error per bucket.
const defaultRelativeAccuracy = 0.01

// ToSketch converts a Distribution or AggregatedHistogram MetricValue into
// a Sketch (spec.md §4.4.3), approximating each histogram bucket's
// contribution by its upper limit. ok is false for any other kind.
func ToSketch(v event.MetricValue) (event.MetricValue, bool) {
	sk, err := ddsketch.NewDefaultDDSketch(defaultRelativeAccuracy)
	if err != nil {
		return event.MetricValue{}, false
	}

	if samples, _, ok := v.Samples(); ok {
		for _, s := range samples {
			if s.Rate == 0 {
				continue
			}
			if err := sk.AddWithCount(s.Value, float64(s.Rate)); err != nil {
				return event.MetricValue{}, false
			}
		}
		return event.Sketch(sk), true
	}

	if buckets, _, _, ok := v.Histogram(); ok {
		for _, b := range buckets {
			if b.Count == 0 {
				continue
			}
			if err := sk.AddWithCount(b.UpperLimit, float64(b.Count)); err != nil {
				return event.MetricValue{}, false
			}
		}
		return event.Sketch(sk), true
	}

	return event.MetricValue{}, false
}

// IsEmpty reports whether a Distribution or AggregatedHistogram carries no
// observations, per the "drop if empty" step of spec.md §4.4.3's table.
func IsEmpty(v event.MetricValue) bool {
	if samples, _, ok := v.Samples(); ok {
		return len(samples) == 0
	}
	if buckets, count, _, ok := v.Histogram(); ok {
		return len(buckets) == 0 && count == 0
	}
	return false
}

// NormalizeForDatadog applies the canonical "DatadogMetrics" sink-specific
// normalizer table (spec.md §4.4.3): Counter -> incremental, Gauge ->
// absolute, Distribution/AggregatedHistogram -> incrementalize, drop if
// empty, convert to sketch, Sketch -> mark incremental, everything else ->
// incrementalize. ok is false when the metric should be dropped.
func (s *Set) NormalizeForDatadog(m event.Metric) (event.Metric, bool) {
	switch m.Value.Kind() {
	case event.MetricCounter:
		return s.MakeIncremental(m)
	case event.MetricGauge:
		return s.MakeAbsolute(m), true
	case event.MetricDistribution, event.MetricAggregatedHistogram:
		incr, ok := s.MakeIncremental(m)
		if !ok || IsEmpty(incr.Value) {
			return event.Metric{}, false
		}
		sk, ok := ToSketch(incr.Value)
		if !ok {
			return event.Metric{}, false
		}
		return incr.WithValue(sk), true
	case event.MetricSketch:
		return m.WithKind(event.Incremental), true
	default:
		return s.MakeIncremental(m)
	}
}

package metric

import "github.com/routeryard/core/event"

// MakeIncremental implements spec.md §4.4.2's make_incremental: if m is
// already Incremental, it is returned unchanged. Otherwise the delta
// against the prior Absolute baseline is computed, the baseline is updated
// to m, and the delta is returned. If no prior baseline exists, the
// baseline is stored and ok is false (nothing to emit).
func (s *Set) MakeIncremental(m event.Metric) (delta event.Metric, ok bool) {
	if m.Kind == event.Incremental {
		return m, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.SeriesKey()
	prior, had := s.get(key)
	s.set(key, m.Value)
	if !had {
		return event.Metric{}, false
	}

	d, defined := event.SubtractMetricValues(m.Value, prior)
	if !defined {
		// Sketches and other non-subtractable kinds are treated as
		// implicitly incremental (spec.md §3.1).
		return m.WithKind(event.Incremental), true
	}
	return m.WithValue(d).WithKind(event.Incremental), true
}

// MakeAbsolute implements spec.md §4.4.2's make_absolute: if m is already
// Absolute, the baseline is updated to m and m is returned. Otherwise the
// delta is added to the stored absolute (creating a zero baseline first if
// none exists), the baseline is updated, and the updated absolute is
// returned.
func (s *Set) MakeAbsolute(m event.Metric) event.Metric {
	if m.Kind == event.Absolute {
		s.mu.Lock()
		s.set(m.SeriesKey(), m.Value)
		s.mu.Unlock()
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.SeriesKey()
	baseline, had := s.get(key)
	if !had {
		baseline = zeroBaseline(m.Value)
	}
	updated, defined := event.AddMetricValues(baseline, m.Value)
	if !defined {
		updated = m.Value
	}
	s.set(key, updated)
	return m.WithValue(updated).WithKind(event.Absolute)
}

// zeroBaseline returns an additive identity of the same MetricValueKind as
// like, used as the implicit starting point for make_absolute when no
// baseline has been observed yet.
func zeroBaseline(like event.MetricValue) event.MetricValue {
	switch like.Kind() {
	case event.MetricCounter:
		return event.Counter(0)
	case event.MetricGauge:
		return event.Gauge(0)
	case event.MetricSet:
		return event.SetOf()
	case event.MetricDistribution:
		_, statistic, _ := like.Samples()
		return event.Distribution(nil, statistic)
	case event.MetricAggregatedHistogram:
		return event.AggregatedHistogram(nil, 0, 0)
	case event.MetricAggregatedSummary:
		return event.AggregatedSummary(nil, 0, 0)
	case event.MetricSketch:
		return like
	default:
		return like
	}
}

package metric

import (
	"strconv"

	"github.com/routeryard/core/event"
)

// SplitAggregatedSummary implements spec.md §4.4.4's aggregated-summary
// splitter: an AggregatedSummary cannot be additively combined across
// instances, so sinks that require single-value metrics get it split into a
// name_count counter, a name_sum counter, and one gauge per quantile
// tagged quantile=<string>. Every other MetricValueKind passes through
// unchanged as a single-element slice.
func SplitAggregatedSummary(m event.Metric) []event.Metric {
	quantiles, count, sum, ok := m.Value.Summary()
	if !ok {
		return []event.Metric{m}
	}

	out := make([]event.Metric, 0, 2+len(quantiles))

	countMetric := m
	countMetric.Name = m.Name + "_count"
	countMetric.Value = event.Counter(float64(count))
	out = append(out, countMetric)

	sumMetric := m
	sumMetric.Name = m.Name + "_sum"
	sumMetric.Value = event.Counter(sum)
	out = append(out, sumMetric)

	for _, q := range quantiles {
		tags := append(append([]event.Tag(nil), m.Tags.All()...), event.Tag{
			Key:   "quantile",
			Value: strconv.FormatFloat(q.Q, 'g', -1, 64),
		})
		qm := m
		qm.Tags = event.NewTagSet(tags...)
		qm.Value = event.Gauge(q.Value)
		out = append(out, qm)
	}

	return out
}

package event

import (
	"sort"

	"github.com/DataDog/sketches-go/ddsketch"
)

// MetricValueKind identifies which MetricValue variant is held.
type MetricValueKind int

const (
	MetricCounter MetricValueKind = iota
	MetricGauge
	MetricSet
	MetricDistribution
	MetricAggregatedHistogram
	MetricAggregatedSummary
	MetricSketch
)

// DistributionStatistic says how a Distribution's samples should be
// aggregated downstream.
type DistributionStatistic int

const (
	StatisticHistogram DistributionStatistic = iota
	StatisticSummary
)

// Sample is one (value, rate) pair of a Distribution, where rate is the
// number of observations this sample represents.
type Sample struct {
	Value float64
	Rate  uint32
}

// HistogramBucket is one (upper_limit, count) pair of an
// AggregatedHistogram.
type HistogramBucket struct {
	UpperLimit float64
	Count      uint64
}

// Quantile is one (q, value) pair of an AggregatedSummary.
type Quantile struct {
	Q     float64
	Value float64
}

// MetricValue is the tagged sum described by spec.md §3.1's MetricValue
// section.
type MetricValue struct {
	kind MetricValueKind

	counter float64
	gauge   float64
	set     map[string]struct{}

	samples   []Sample
	statistic DistributionStatistic

	buckets []HistogramBucket
	hCount  uint64
	hSum    float64

	quantiles []Quantile
	sCount    uint64
	sSum      float64

	sketch *ddsketch.DDSketch
}

func (v MetricValue) Kind() MetricValueKind { return v.kind }

// Counter constructs a Counter MetricValue.
func Counter(value float64) MetricValue {
	return MetricValue{kind: MetricCounter, counter: value}
}

// Gauge constructs a Gauge MetricValue.
func Gauge(value float64) MetricValue {
	return MetricValue{kind: MetricGauge, gauge: value}
}

// SetOf constructs a Set MetricValue from the given member strings.
func SetOf(values ...string) MetricValue {
	m := make(map[string]struct{}, len(values))
	for _, s := range values {
		m[s] = struct{}{}
	}
	return MetricValue{kind: MetricSet, set: m}
}

// Distribution constructs a Distribution MetricValue.
func Distribution(samples []Sample, statistic DistributionStatistic) MetricValue {
	return MetricValue{kind: MetricDistribution, samples: samples, statistic: statistic}
}

// AggregatedHistogram constructs an AggregatedHistogram MetricValue.
func AggregatedHistogram(buckets []HistogramBucket, count uint64, sum float64) MetricValue {
	return MetricValue{kind: MetricAggregatedHistogram, buckets: buckets, hCount: count, hSum: sum}
}

// AggregatedSummary constructs an AggregatedSummary MetricValue.
func AggregatedSummary(quantiles []Quantile, count uint64, sum float64) MetricValue {
	return MetricValue{kind: MetricAggregatedSummary, quantiles: quantiles, sCount: count, sSum: sum}
}

// Sketch constructs a Sketch MetricValue from a DDSketch.
func Sketch(s *ddsketch.DDSketch) MetricValue {
	return MetricValue{kind: MetricSketch, sketch: s}
}

// CounterValue returns v's value for MetricCounter; ok is false otherwise.
func (v MetricValue) CounterValue() (float64, bool) {
	if v.kind != MetricCounter {
		return 0, false
	}
	return v.counter, true
}

// GaugeValue returns v's value for MetricGauge; ok is false otherwise.
func (v MetricValue) GaugeValue() (float64, bool) {
	if v.kind != MetricGauge {
		return 0, false
	}
	return v.gauge, true
}

// SetMembers returns v's members, sorted, for MetricSet; ok is false
// otherwise.
func (v MetricValue) SetMembers() (members []string, ok bool) {
	if v.kind != MetricSet {
		return nil, false
	}
	out := make([]string, 0, len(v.set))
	for m := range v.set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, true
}

// Samples returns v's samples and statistic for MetricDistribution; ok is
// false otherwise.
func (v MetricValue) Samples() (samples []Sample, statistic DistributionStatistic, ok bool) {
	if v.kind != MetricDistribution {
		return nil, 0, false
	}
	return v.samples, v.statistic, true
}

// Histogram returns v's buckets/count/sum for MetricAggregatedHistogram; ok
// is false otherwise.
func (v MetricValue) Histogram() (buckets []HistogramBucket, count uint64, sum float64, ok bool) {
	if v.kind != MetricAggregatedHistogram {
		return nil, 0, 0, false
	}
	return v.buckets, v.hCount, v.hSum, true
}

// Summary returns v's quantiles/count/sum for MetricAggregatedSummary; ok is
// false otherwise.
func (v MetricValue) Summary() (quantiles []Quantile, count uint64, sum float64, ok bool) {
	if v.kind != MetricAggregatedSummary {
		return nil, 0, 0, false
	}
	return v.quantiles, v.sCount, v.sSum, true
}

// DDSketch returns v's underlying sketch for MetricSketch; ok is false
// otherwise.
func (v MetricValue) DDSketch() (*ddsketch.DDSketch, bool) {
	if v.kind != MetricSketch {
		return nil, false
	}
	return v.sketch, true
}

// AddMetricValues combines two same-kind MetricValues as an Incremental +
// Incremental merge, which spec.md §3.1 guarantees is defined for every
// variant. ok is false if a and b are different kinds.
func AddMetricValues(a, b MetricValue) (MetricValue, bool) {
	if a.kind != b.kind {
		return MetricValue{}, false
	}
	switch a.kind {
	case MetricCounter:
		return Counter(a.counter + b.counter), true
	case MetricGauge:
		return Gauge(a.gauge + b.gauge), true
	case MetricSet:
		merged := make(map[string]struct{}, len(a.set)+len(b.set))
		for m := range a.set {
			merged[m] = struct{}{}
		}
		for m := range b.set {
			merged[m] = struct{}{}
		}
		return MetricValue{kind: MetricSet, set: merged}, true
	case MetricDistribution:
		samples := make([]Sample, 0, len(a.samples)+len(b.samples))
		samples = append(samples, a.samples...)
		samples = append(samples, b.samples...)
		return Distribution(samples, a.statistic), true
	case MetricAggregatedHistogram:
		buckets := mergeBuckets(a.buckets, b.buckets)
		return AggregatedHistogram(buckets, a.hCount+b.hCount, a.hSum+b.hSum), true
	case MetricAggregatedSummary:
		// Aggregated summaries cannot be additively combined (spec.md
		// §4.4.4); treat as a replace, preferring the newer (b) value.
		return b, true
	case MetricSketch:
		if a.sketch == nil {
			return b, true
		}
		if b.sketch == nil {
			return a, true
		}
		merged := a.sketch.Copy()
		if err := merged.MergeWith(b.sketch); err != nil {
			return a, false
		}
		return Sketch(merged), true
	default:
		return MetricValue{}, false
	}
}

// SubtractMetricValues computes the Incremental delta of two Absolute
// values of the same kind (spec.md §3.1): defined for
// Counter/Gauge/Distribution/AggregatedHistogram/Set only. Sketches cannot
// be subtracted and are treated as implicitly incremental.
func SubtractMetricValues(newer, older MetricValue) (MetricValue, bool) {
	if newer.kind != older.kind {
		return MetricValue{}, false
	}
	switch newer.kind {
	case MetricCounter:
		return Counter(newer.counter - older.counter), true
	case MetricGauge:
		return Gauge(newer.gauge - older.gauge), true
	case MetricSet:
		diff := make(map[string]struct{})
		for m := range newer.set {
			if _, in := older.set[m]; !in {
				diff[m] = struct{}{}
			}
		}
		return MetricValue{kind: MetricSet, set: diff}, true
	case MetricDistribution:
		// No general inverse for raw samples; treat the newer snapshot's
		// samples as the delta, matching an append-only sample stream.
		return Distribution(newer.samples, newer.statistic), true
	case MetricAggregatedHistogram:
		buckets := make([]HistogramBucket, len(newer.buckets))
		oldByLimit := make(map[float64]uint64, len(older.buckets))
		for _, b := range older.buckets {
			oldByLimit[b.UpperLimit] = b.Count
		}
		for i, b := range newer.buckets {
			buckets[i] = HistogramBucket{UpperLimit: b.UpperLimit, Count: b.Count - oldByLimit[b.UpperLimit]}
		}
		return AggregatedHistogram(buckets, newer.hCount-older.hCount, newer.hSum-older.hSum), true
	default:
		return MetricValue{}, false
	}
}

func mergeBuckets(a, b []HistogramBucket) []HistogramBucket {
	byLimit := make(map[float64]uint64, len(a)+len(b))
	var limits []float64
	for _, bucket := range a {
		if _, ok := byLimit[bucket.UpperLimit]; !ok {
			limits = append(limits, bucket.UpperLimit)
		}
		byLimit[bucket.UpperLimit] += bucket.Count
	}
	for _, bucket := range b {
		if _, ok := byLimit[bucket.UpperLimit]; !ok {
			limits = append(limits, bucket.UpperLimit)
		}
		byLimit[bucket.UpperLimit] += bucket.Count
	}
	sort.Float64s(limits)
	out := make([]HistogramBucket, len(limits))
	for i, l := range limits {
		out[i] = HistogramBucket{UpperLimit: l, Count: byLimit[l]}
	}
	return out
}

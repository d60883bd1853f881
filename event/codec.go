package event

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/routeryard/core/ack"
)

// Marshal and Unmarshal give package buffer's Disk-backed edges a wire
// representation for an Event (spec.md §4.1 stores opaque payload bytes;
// this is the payload). Acknowledgement handles are not part of the wire
// form: a disk-buffered record can outlive the process that wrote it, and
// with it the BatchNotifier its handle referenced, so a decoded Event
// always carries a fresh ack.NoopHandle(). Callers that need delivery
// guarantees across a restart re-acknowledge at the disk buffer's own
// Ack/commit boundary (spec.md §4.1.4), not through the event's handle.
//
// ErrUnsupportedValue is returned by Marshal for a Sketch-kind MetricValue:
// sketches are produced by the Datadog normalizer immediately before
// sending, never buffered to disk, so no wire form is defined for one.
var ErrUnsupportedValue = errors.New("event: value has no wire representation")

type wireEvent struct {
	Kind   VariantKind
	Log    *wireLog
	Metric *wireMetric
	Trace  *wireTrace
}

type wireMetadata struct {
	SchemaID  string
	Timestamp time.Time
	Host      string
}

type wireLog struct {
	Fields   []wireField
	Metadata wireMetadata
}

type wireTrace struct {
	Fields     []wireField
	Metadata   wireMetadata
	TraceID    string
	SpanID     string
	StartNanos int64
	EndNanos   int64
	Attributes []wireField
}

type wireMetric struct {
	Name      string
	Namespace string
	Tags      []Tag
	HasTime   bool
	Timestamp time.Time
	Kind      MetricKind
	Value     wireMetricValue
}

type wireField struct {
	Key string
	Val wireValue
}

type wireValue struct {
	Kind  Kind
	Bytes []byte
	Int   int64
	Float float64
	Bool  bool
	Time  time.Time
	Regex string
	Array []wireValue
	// Object is nil unless Kind == KindObject; it holds Fields in order.
	Object []wireField
}

type wireMetricValue struct {
	Kind MetricValueKind

	Counter float64
	Gauge   float64
	Set     []string

	Samples   []Sample
	Statistic DistributionStatistic

	Buckets []HistogramBucket
	HCount  uint64
	HSum    float64

	Quantiles []Quantile
	SCount    uint64
	SSum      float64
}

// Marshal encodes e for storage in a Disk-backed buffer edge.
func Marshal(e Event) ([]byte, error) {
	w, err := toWireEvent(e)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, fmt.Errorf("event: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a payload previously produced by Marshal. The returned
// Event's acknowledgement handle is always ack.NoopHandle(); see Marshal's
// doc comment.
func Unmarshal(data []byte) (Event, error) {
	var w wireEvent
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return Event{}, fmt.Errorf("event: unmarshal: %w", err)
	}
	return fromWireEvent(w), nil
}

func toWireEvent(e Event) (wireEvent, error) {
	switch e.Kind() {
	case VariantLog:
		l, _ := e.Log()
		return wireEvent{Kind: VariantLog, Log: toWireLog(l)}, nil
	case VariantMetric:
		m, _ := e.Metric()
		wm, err := toWireMetric(m)
		if err != nil {
			return wireEvent{}, err
		}
		return wireEvent{Kind: VariantMetric, Metric: wm}, nil
	case VariantTrace:
		t, _ := e.Trace()
		return wireEvent{Kind: VariantTrace, Trace: toWireTrace(t)}, nil
	default:
		return wireEvent{}, fmt.Errorf("event: unknown variant %v", e.Kind())
	}
}

func fromWireEvent(w wireEvent) Event {
	switch w.Kind {
	case VariantLog:
		return NewLogEvent(fromWireLog(*w.Log))
	case VariantMetric:
		return NewMetricEvent(fromWireMetric(*w.Metric))
	case VariantTrace:
		return NewTraceEvent(fromWireTrace(*w.Trace))
	default:
		return Event{}
	}
}

func toWireLog(l Log) *wireLog {
	return &wireLog{Fields: toWireFields(l.Fields), Metadata: toWireMetadata(l.Metadata)}
}

func fromWireLog(w wireLog) Log {
	return Log{Fields: fromWireFields(w.Fields), Metadata: fromWireMetadata(w.Metadata)}
}

func toWireTrace(t Trace) *wireTrace {
	return &wireTrace{
		Fields:     toWireFields(t.Fields),
		Metadata:   toWireMetadata(t.Metadata),
		TraceID:    t.TraceID,
		SpanID:     t.SpanID,
		StartNanos: t.StartNanos,
		EndNanos:   t.EndNanos,
		Attributes: toWireFields(t.Attributes),
	}
}

func fromWireTrace(w wireTrace) Trace {
	return Trace{
		Fields:     fromWireFields(w.Fields),
		Metadata:   fromWireMetadata(w.Metadata),
		TraceID:    w.TraceID,
		SpanID:     w.SpanID,
		StartNanos: w.StartNanos,
		EndNanos:   w.EndNanos,
		Attributes: fromWireFields(w.Attributes),
	}
}

func toWireMetadata(m Metadata) wireMetadata {
	return wireMetadata{SchemaID: m.SchemaID, Timestamp: m.Timestamp, Host: m.Host}
}

func fromWireMetadata(w wireMetadata) Metadata {
	return Metadata{Handle: ack.NoopHandle(), SchemaID: w.SchemaID, Timestamp: w.Timestamp, Host: w.Host}
}

func toWireFields(o *Object) []wireField {
	if o == nil {
		return nil
	}
	out := make([]wireField, 0, o.Len())
	o.Range(func(key string, v Value) bool {
		out = append(out, wireField{Key: key, Val: toWireValue(v)})
		return true
	})
	return out
}

func fromWireFields(fields []wireField) *Object {
	o := NewObject()
	for _, f := range fields {
		o.Set(f.Key, fromWireValue(f.Val))
	}
	return o
}

func toWireValue(v Value) wireValue {
	w := wireValue{Kind: v.Kind()}
	switch v.Kind() {
	case KindBytes:
		w.Bytes, _ = v.AsBytes()
	case KindInteger:
		w.Int, _ = v.AsInteger()
	case KindFloat:
		w.Float, _ = v.AsFloat()
	case KindBoolean:
		w.Bool, _ = v.AsBoolean()
	case KindTimestamp:
		w.Time, _ = v.AsTimestamp()
	case KindRegex:
		re, _ := v.AsRegex()
		if re != nil {
			w.Regex = re.String()
		}
	case KindArray:
		arr, _ := v.AsArray()
		w.Array = make([]wireValue, len(arr))
		for i, e := range arr {
			w.Array[i] = toWireValue(e)
		}
	case KindObject:
		obj, _ := v.AsObject()
		w.Object = toWireFields(obj)
	}
	return w
}

func fromWireValue(w wireValue) Value {
	switch w.Kind {
	case KindBytes:
		return Bytes(w.Bytes)
	case KindInteger:
		return Integer(w.Int)
	case KindFloat:
		return Float(w.Float)
	case KindBoolean:
		return Boolean(w.Bool)
	case KindTimestamp:
		return Timestamp(w.Time)
	case KindRegex:
		if w.Regex == "" {
			return Regex(nil)
		}
		re, err := regexp.Compile(w.Regex)
		if err != nil {
			return Regex(nil)
		}
		return Regex(re)
	case KindArray:
		arr := make([]Value, len(w.Array))
		for i, e := range w.Array {
			arr[i] = fromWireValue(e)
		}
		return Array(arr)
	case KindObject:
		return ObjectValue(fromWireFields(w.Object))
	default:
		return Null
	}
}

func toWireMetric(m Metric) (*wireMetric, error) {
	if m.Value.Kind() == MetricSketch {
		return nil, ErrUnsupportedValue
	}
	w := &wireMetric{
		Name:      m.Name,
		Namespace: m.Namespace,
		Tags:      append([]Tag(nil), m.Tags.All()...),
		Kind:      m.Kind,
	}
	if m.Timestamp != nil {
		w.HasTime = true
		w.Timestamp = *m.Timestamp
	}
	w.Value = toWireMetricValue(m.Value)
	return w, nil
}

func fromWireMetric(w wireMetric) Metric {
	m := Metric{
		Name:      w.Name,
		Namespace: w.Namespace,
		Tags:      NewTagSet(w.Tags...),
		Kind:      w.Kind,
		Value:     fromWireMetricValue(w.Value),
		Handle:    ack.NoopHandle(),
	}
	if w.HasTime {
		t := w.Timestamp
		m.Timestamp = &t
	}
	return m
}

func toWireMetricValue(v MetricValue) wireMetricValue {
	w := wireMetricValue{Kind: v.Kind()}
	switch v.Kind() {
	case MetricCounter:
		w.Counter, _ = v.CounterValue()
	case MetricGauge:
		w.Gauge, _ = v.GaugeValue()
	case MetricSet:
		w.Set, _ = v.SetMembers()
	case MetricDistribution:
		w.Samples, w.Statistic, _ = v.Samples()
	case MetricAggregatedHistogram:
		w.Buckets, w.HCount, w.HSum, _ = v.Histogram()
	case MetricAggregatedSummary:
		w.Quantiles, w.SCount, w.SSum, _ = v.Summary()
	}
	return w
}

func fromWireMetricValue(w wireMetricValue) MetricValue {
	switch w.Kind {
	case MetricCounter:
		return Counter(w.Counter)
	case MetricGauge:
		return Gauge(w.Gauge)
	case MetricSet:
		return SetOf(w.Set...)
	case MetricDistribution:
		return Distribution(w.Samples, w.Statistic)
	case MetricAggregatedHistogram:
		return AggregatedHistogram(w.Buckets, w.HCount, w.HSum)
	case MetricAggregatedSummary:
		return AggregatedSummary(w.Quantiles, w.SCount, w.SSum)
	default:
		return MetricValue{}
	}
}

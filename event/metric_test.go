package event

import "testing"

func TestTagSetEqualIgnoresOrder(t *testing.T) {
	a := NewTagSet(Tag{Key: "host", Value: "a"}, Tag{Key: "region", Value: "us"})
	b := NewTagSet(Tag{Key: "region", Value: "us"}, Tag{Key: "host", Value: "a"})
	if !a.Equal(b) {
		t.Error("TagSets with the same multiset of tags in different order should be Equal")
	}
}

func TestTagSetAllowsDuplicateKeys(t *testing.T) {
	var ts TagSet
	ts.Add("tag", "one")
	ts.Add("tag", "two")
	values := ts.Values("tag")
	if len(values) != 2 || values[0] != "one" || values[1] != "two" {
		t.Errorf("Values(tag) = %v, want [one two]", values)
	}
}

func TestSeriesKeyIgnoresTagOrder(t *testing.T) {
	a := Metric{Name: "requests", Tags: NewTagSet(Tag{Key: "code", Value: "200"}, Tag{Key: "method", Value: "GET"})}
	b := Metric{Name: "requests", Tags: NewTagSet(Tag{Key: "method", Value: "GET"}, Tag{Key: "code", Value: "200"})}
	if a.SeriesKey() != b.SeriesKey() {
		t.Error("SeriesKey should be independent of tag insertion order")
	}
}

func TestAddMetricValuesCounter(t *testing.T) {
	sum, ok := AddMetricValues(Counter(3), Counter(4))
	if !ok {
		t.Fatal("AddMetricValues(Counter, Counter) should be defined")
	}
	v, _ := sum.CounterValue()
	if v != 7 {
		t.Errorf("sum = %v, want 7", v)
	}
}

func TestAddMetricValuesMismatchedKind(t *testing.T) {
	_, ok := AddMetricValues(Counter(1), Gauge(1))
	if ok {
		t.Error("AddMetricValues across different kinds should report ok=false")
	}
}

func TestSubtractMetricValuesGauge(t *testing.T) {
	delta, ok := SubtractMetricValues(Gauge(10), Gauge(4))
	if !ok {
		t.Fatal("SubtractMetricValues(Gauge, Gauge) should be defined")
	}
	v, _ := delta.GaugeValue()
	if v != 6 {
		t.Errorf("delta = %v, want 6", v)
	}
}

func TestSubtractMetricValuesSetIsSetMinus(t *testing.T) {
	newer := SetOf("a", "b", "c")
	older := SetOf("a", "b")
	delta, ok := SubtractMetricValues(newer, older)
	if !ok {
		t.Fatal("SubtractMetricValues(Set, Set) should be defined")
	}
	members, _ := delta.SetMembers()
	if len(members) != 1 || members[0] != "c" {
		t.Errorf("delta members = %v, want [c]", members)
	}
}

func TestSubtractMetricValuesSketchUndefined(t *testing.T) {
	_, ok := SubtractMetricValues(Sketch(nil), Sketch(nil))
	if ok {
		t.Error("Sketch values cannot be subtracted per spec.md §3.1")
	}
}

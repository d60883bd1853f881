package event

import (
	"testing"

	"github.com/routeryard/core/ack"
)

func TestEventLogRoundTrip(t *testing.T) {
	notifier := ack.New()
	l := NewLog(Metadata{Handle: notifier.NewHandle()})
	l.Set("message", String("hello"))

	e := NewLogEvent(l)
	if e.Kind() != VariantLog {
		t.Fatalf("Kind() = %v, want VariantLog", e.Kind())
	}
	got, ok := e.Log()
	if !ok {
		t.Fatal("Log() should report ok=true for a log event")
	}
	v, _ := got.Get("message")
	if s, _ := v.AsBytes(); string(s) != "hello" {
		t.Errorf("message = %q, want hello", s)
	}

	e.Finish(ack.Delivered)
	if status := <-notifier.Done(); status != ack.Delivered {
		t.Errorf("final status = %v, want Delivered", status)
	}
}

func TestEventCloneClonesHandle(t *testing.T) {
	notifier := ack.New()
	m := Metric{Name: "requests", Handle: notifier.NewHandle()}
	e := NewMetricEvent(m)

	clone := e.Clone()
	e.Finish(ack.Delivered)

	select {
	case <-notifier.Done():
		t.Fatal("Done resolved before the cloned event's handle was dropped")
	default:
	}

	clone.Finish(ack.Errored)
	if status := <-notifier.Done(); status != ack.Errored {
		t.Errorf("final status = %v, want Errored", status)
	}
}

func TestAcceptedTypesAccepts(t *testing.T) {
	at := AcceptedTypes{Log: true, Metric: false, Trace: true}
	if !at.Accepts(VariantLog) {
		t.Error("expected Log to be accepted")
	}
	if at.Accepts(VariantMetric) {
		t.Error("expected Metric to be rejected")
	}
	if !at.Accepts(VariantTrace) {
		t.Error("expected Trace to be accepted")
	}
}

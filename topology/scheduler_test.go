package topology

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/routeryard/core/ack"
)

// sourceEmitN sends n log events through out and then returns once ctx is
// done, as a real Source would after observing shutdown.
func sourceEmitN(n int) Component {
	return ComponentFunc(func(ctx context.Context, in Receiver, out Emitter) error {
		for i := 0; i < n; i++ {
			if err := out.Send(ctx, DefaultPort, logEvent("m")); err != nil {
				return err
			}
		}
		<-ctx.Done()
		return nil
	})
}

// passthrough forwards every received event to out until Recv fails.
func passthrough() Component {
	return ComponentFunc(func(ctx context.Context, in Receiver, out Emitter) error {
		for {
			e, err := in.Recv(ctx)
			if err != nil {
				return nil
			}
			if err := out.Send(ctx, DefaultPort, e); err != nil {
				return err
			}
		}
	})
}

// countingSink counts every received event into count, finishing each event
// with ack.Delivered.
func countingSink(count *int, mu *sync.Mutex, got chan<- struct{}) Component {
	return ComponentFunc(func(ctx context.Context, in Receiver, out Emitter) error {
		for {
			e, err := in.Recv(ctx)
			if err != nil {
				return nil
			}
			mu.Lock()
			*count++
			mu.Unlock()
			got <- struct{}{}
			e.Finish(ack.Delivered)
		}
	})
}

func TestSchedulerRunsSourceTransformSink(t *testing.T) {
	const n = 5

	g := NewGraph()
	g.AddNode(NodeSpec{
		Key:  "src",
		Kind: Source,
		Build: func() (Component, error) {
			return sourceEmitN(n), nil
		},
	})
	g.AddNode(NodeSpec{
		Key:    "xform",
		Kind:   Transform,
		Inputs: []Input{{From: "src"}},
		Buffer: BufferSpec{Kind: EdgeMemory, MaxEvents: 16, MaxBytes: 1 << 20},
		Build: func() (Component, error) {
			return passthrough(), nil
		},
	})

	var mu sync.Mutex
	count := 0
	got := make(chan struct{}, n)
	g.AddNode(NodeSpec{
		Key:    "sink",
		Kind:   Sink,
		Inputs: []Input{{From: "xform"}},
		Buffer: BufferSpec{Kind: EdgeMemory, MaxEvents: 16, MaxBytes: 1 << 20},
		Build: func() (Component, error) {
			return countingSink(&count, &mu, got), nil
		},
	})

	s, err := Build(g, Options{ShutdownDeadline: time.Second})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s.Start(context.Background())

	for i := 0; i < n; i++ {
		select {
		case <-got:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	statuses := s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if count != n {
		t.Fatalf("sink received %d events, want %d", count, n)
	}
	for key, want := range map[Key]TerminationStatus{"src": TerminationClean, "xform": TerminationClean, "sink": TerminationClean} {
		if got := statuses[key]; got != want {
			t.Fatalf("status[%q] = %v, want %v", key, got, want)
		}
	}
}

func TestSchedulerMarksFatalErrorOnComponentFailure(t *testing.T) {
	g := NewGraph()
	g.AddNode(NodeSpec{
		Key:  "src",
		Kind: Source,
		Build: func() (Component, error) {
			return ComponentFunc(func(ctx context.Context, in Receiver, out Emitter) error {
				return errFailingComponent
			}), nil
		},
	})

	s, err := Build(g, Options{ShutdownDeadline: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	statuses := s.Stop()

	if statuses["src"] != TerminationFatalError {
		t.Fatalf("status[src] = %v, want TerminationFatalError", statuses["src"])
	}
}

var errFailingComponent = errTest("component failure")

type errTest string

func (e errTest) Error() string { return string(e) }

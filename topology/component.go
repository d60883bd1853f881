package topology

import (
	"context"

	"github.com/routeryard/core/event"
)

// TerminationStatus is a component's terminal disposition (spec.md §4.2.4:
// "Terminated(status)").
type TerminationStatus int

const (
	// TerminationClean means the component observed its shutdown signal
	// and returned within the grace deadline.
	TerminationClean TerminationStatus = iota
	// TerminationFatalError means the component's Run returned a non-nil
	// error before any shutdown was requested.
	TerminationFatalError
	// TerminationUnclean means the component did not return within the
	// shutdown deadline (spec.md §5: "logged as UncleanShutdown").
	TerminationUnclean
)

func (s TerminationStatus) String() string {
	switch s {
	case TerminationClean:
		return "clean"
	case TerminationFatalError:
		return "fatal_error"
	case TerminationUnclean:
		return "unclean_shutdown"
	default:
		return "unknown"
	}
}

// Receiver is the read side of a component's inbound buffered edge.
type Receiver interface {
	Recv(ctx context.Context) (event.Event, error)
}

// Emitter is the write side of a component's outbound routing: Send
// delivers e to every downstream edge subscribed to port (spec.md §4.2.1's
// named multi-output routing). An event fanned out to more than one
// downstream edge is cloned per spec.md §4.5 so each copy carries its own
// acknowledgement handle reference.
type Emitter interface {
	Send(ctx context.Context, port Port, e event.Event) error
}

// Component is one node's executable behavior. A Source is given only Out;
// a Sink is given only In; a Transform is given both. Run must return once
// ctx is done, after flushing any in-flight work, honouring the shutdown
// deadline described by spec.md §4.2.4.
type Component interface {
	Run(ctx context.Context, in Receiver, out Emitter) error
}

// ComponentFunc adapts a plain function to Component.
type ComponentFunc func(ctx context.Context, in Receiver, out Emitter) error

func (f ComponentFunc) Run(ctx context.Context, in Receiver, out Emitter) error {
	return f(ctx, in, out)
}

package topology

import (
	"context"
	"sync"
	"time"

	"github.com/routeryard/core/event"
	"github.com/routeryard/core/internal/logging"
)

// DefaultShutdownDeadline is the grace window a component is given to
// observe its shutdown signal and flush in-flight work (spec.md §4.2.4).
const DefaultShutdownDeadline = 60 * time.Second

// Options configures a Scheduler build.
type Options struct {
	Logger           logging.Logger
	Metrics          *EdgeMetrics
	ShutdownDeadline time.Duration

	// MemoryGovernor, if set, caps the combined byte occupancy of every
	// Memory and Composite edge this Scheduler builds (spec.md §4.2.2's
	// per-edge bounds are local; this is the process-wide backstop). Nil
	// disables the shared cap.
	MemoryGovernor *MemoryGovernor
}

func (o Options) withDefaults() Options {
	o.Logger = logging.OrDefault(o.Logger)
	if o.ShutdownDeadline <= 0 {
		o.ShutdownDeadline = DefaultShutdownDeadline
	}
	return o
}

type target struct {
	key  Key
	edge Edge
}

// outputRouter implements Emitter for one node, fanning Send out to every
// downstream edge subscribed to a port. An event sent to more than one
// target is cloned per target beyond the first (spec.md §4.5).
type outputRouter struct {
	outs map[Port][]target
}

func (r *outputRouter) Send(ctx context.Context, port Port, e event.Event) error {
	targets := r.outs[port]
	for i, t := range targets {
		ev := e
		if i > 0 {
			ev = e.Clone()
		}
		if err := t.edge.Send(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Scheduler runs a built Graph as cooperative per-component goroutines
// (spec.md §4.2.3): each Source and Transform is one task; each Sink is a
// small fixed pool of tasks sharing one inbound edge.
type Scheduler struct {
	graph   *Graph
	opts    Options
	edges   map[Key]Edge
	routers map[Key]*outputRouter

	mu       sync.Mutex
	statuses map[Key]TerminationStatus

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Build constructs every inbound edge in graph and wires output routing,
// without starting any component task yet (spec.md §4.2.5's "build the new
// pieces in isolation" step reuses this entry point for hot reload).
func Build(graph *Graph, opts Options) (*Scheduler, error) {
	return buildWithReuse(graph, opts, nil)
}

// buildWithReuse is Build, plus an optional set of already-constructed
// edges to adopt instead of creating fresh ones. Reload uses this to carry
// a kept, unchanged component's buffered edge — and whatever events are
// still queued on it — across the swap, rather than dropping them when the
// old Scheduler is stopped.
func buildWithReuse(graph *Graph, opts Options, reuse map[Key]Edge) (*Scheduler, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	s := &Scheduler{
		graph:    graph,
		opts:     opts,
		edges:    make(map[Key]Edge),
		routers:  make(map[Key]*outputRouter),
		statuses: make(map[Key]TerminationStatus),
	}

	for key, n := range graph.Nodes {
		if n.Kind == Source {
			continue
		}
		if e, ok := reuse[key]; ok {
			s.edges[key] = e
			continue
		}
		edge, err := NewEdge(key, n.Buffer, opts.Logger, opts.Metrics, opts.MemoryGovernor)
		if err != nil {
			s.closeEdgesExcept(reuse)
			return nil, err
		}
		s.edges[key] = edge
	}

	for key, n := range graph.Nodes {
		s.routers[key] = &outputRouter{outs: make(map[Port][]target)}
		_ = n
	}
	for key, n := range graph.Nodes {
		for _, in := range n.Inputs {
			r := s.routers[in.From]
			r.outs[in.Port] = append(r.outs[in.Port], target{key: key, edge: s.edges[key]})
		}
	}

	return s, nil
}

// closeEdgesExcept closes every edge s owns except those in keep — edges
// that have been handed off to a successor Scheduler and must keep their
// queued events intact.
func (s *Scheduler) closeEdgesExcept(keep map[Key]Edge) {
	for key, e := range s.edges {
		if _, ok := keep[key]; ok {
			continue
		}
		_ = e.Close()
	}
}

// Start launches every component task. ctx's cancellation is the shutdown
// signal (spec.md §4.2.4); call Stop to cancel and wait with the
// configured deadline.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for key, n := range s.graph.Nodes {
		key, n := key, n
		router := s.routers[key]

		switch n.Kind {
		case Source:
			s.wg.Add(1)
			go s.runOnce(ctx, key, n, nil, router)
		case Transform:
			s.wg.Add(1)
			go s.runOnce(ctx, key, n, s.edges[key], router)
		case Sink:
			workers := n.Workers
			if workers < 1 {
				workers = 1
			}
			for i := 0; i < workers; i++ {
				s.wg.Add(1)
				go s.runOnce(ctx, key, n, s.edges[key], nil)
			}
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, key Key, n NodeSpec, in Receiver, out Emitter) {
	defer s.wg.Done()

	comp, err := n.Build()
	if err != nil {
		s.opts.Logger.Errorf(logging.NSTopology+"component %q failed to build: %v", key, err)
		s.setStatus(key, TerminationFatalError)
		return
	}

	runErr := comp.Run(ctx, in, out)

	status := TerminationClean
	if runErr != nil && ctx.Err() == nil {
		status = TerminationFatalError
		s.opts.Logger.Errorf(logging.NSTopology+"component %q terminated with error: %v", key, runErr)
	}
	s.setStatus(key, status)
}

func (s *Scheduler) setStatus(key Key, status TerminationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Multiple sink workers share a key; keep the worst-observed status.
	if existing, ok := s.statuses[key]; ok && existing != TerminationClean {
		return
	}
	s.statuses[key] = status
}

// Stop cancels every running task and waits up to the configured shutdown
// deadline for them to return. Tasks still running after the deadline are
// recorded as TerminationUnclean and left running in the background — Go
// has no mechanism to forcibly terminate a goroutine, so Stop can only log
// and move on (spec.md §5: "Forcible termination after grace deadline is
// permitted but logged as UncleanShutdown"). Edges are closed only if every
// task returned in time, to avoid closing storage still in use by a
// straggler.
func (s *Scheduler) Stop() map[Key]TerminationStatus {
	return s.stop(nil)
}

// stopKeepingEdges is Stop, except edges in keep are left open instead of
// closed — Reload's way of tearing down every component task on the old
// Scheduler while handing kept, unchanged edges off to the new one intact.
func (s *Scheduler) stopKeepingEdges(keep map[Key]Edge) map[Key]TerminationStatus {
	return s.stop(keep)
}

func (s *Scheduler) stop(keepEdges map[Key]Edge) map[Key]TerminationStatus {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	clean := true
	select {
	case <-done:
	case <-time.After(s.opts.ShutdownDeadline):
		clean = false
		s.opts.Logger.Warnf(logging.NSTopology + "shutdown deadline exceeded, components still running")
	}

	s.mu.Lock()
	for key, n := range s.graph.Nodes {
		if _, ok := s.statuses[key]; !ok {
			s.statuses[key] = TerminationUnclean
		}
		_ = n
	}
	out := make(map[Key]TerminationStatus, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	s.mu.Unlock()

	if clean {
		s.closeEdgesExcept(keepEdges)
	}
	return out
}

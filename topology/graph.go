// Package topology implements the event topology runtime (spec.md §4.2): a
// directed graph of source, transform, and sink components wired by
// buffered edges, executed as cooperative per-component goroutines with
// coordinated shutdown and diff-and-swap hot reload.
package topology

import (
	"fmt"

	"github.com/routeryard/core/event"
)

// Key is a component's unique id within a Graph (spec.md §4.2.1).
type Key string

// Kind is the role a component plays in the graph.
type Kind int

const (
	Source Kind = iota
	Transform
	Sink
)

func (k Kind) String() string {
	switch k {
	case Source:
		return "source"
	case Transform:
		return "transform"
	case Sink:
		return "sink"
	default:
		return "unknown"
	}
}

// Port names one of a transform's named outputs. The zero value is the
// default, anonymous port every component implicitly has (spec.md §4.2.1).
type Port string

// DefaultPort is the anonymous output port every Source and single-output
// Transform uses.
const DefaultPort Port = ""

// Input names one upstream (component, port) pair a component reads from.
type Input struct {
	From Key
	Port Port
}

// NodeSpec is one component's normalized configuration (spec.md §6.2): the
// abstract shape a config loader would build and hand to Build. It names
// the component's kind, the variant types it accepts and produces, its
// upstream inputs, its inbound buffer policy, and a factory producing a
// fresh Component instance.
type NodeSpec struct {
	Key  Key
	Kind Kind

	// AcceptedTypes declares which Event variants this component consumes.
	// Meaningless (and ignored) for Source, which produces but does not
	// consume.
	AcceptedTypes event.AcceptedTypes

	// OutputPorts lists a Transform's named outputs beyond DefaultPort.
	// Sources always expose exactly DefaultPort; Sinks expose none.
	OutputPorts []Port

	// Inputs lists every upstream (component, port) this component reads
	// from. All Inputs feed a single inbound buffered edge, so reads from
	// multiple upstreams interleave through one FIFO. Empty for Source.
	Inputs []Input

	// Buffer configures the inbound edge's backing and overflow policy.
	// Ignored for Source.
	Buffer BufferSpec

	// Workers is the fixed pool size for a Sink with per-partition service
	// state (spec.md §4.2.3); 0 means 1. Ignored for Source and Transform,
	// which always run as exactly one task.
	Workers int

	// Build constructs a fresh Component instance. Called once per Source/
	// Transform, and once per worker for a Sink's pool.
	Build func() (Component, error)
}

// Graph is the full, normalized component graph (spec.md §4.2.1): a
// NodeSpec per component key plus its declared Inputs forming the edges.
type Graph struct {
	Nodes map[Key]NodeSpec
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[Key]NodeSpec)}
}

// AddNode registers spec under spec.Key, replacing any prior node with the
// same key.
func (g *Graph) AddNode(spec NodeSpec) {
	if g.Nodes == nil {
		g.Nodes = make(map[Key]NodeSpec)
	}
	g.Nodes[spec.Key] = spec
}

// Validate checks that every Input refers to an existing upstream node and
// that Kind-specific shape constraints hold (a Source has no Inputs, a Sink
// has no OutputPorts).
func (g *Graph) Validate() error {
	for key, n := range g.Nodes {
		if n.Kind == Source && len(n.Inputs) != 0 {
			return fmt.Errorf("topology: source %q declares inputs", key)
		}
		if n.Kind != Source && len(n.Inputs) == 0 {
			return fmt.Errorf("topology: %s %q has no inputs", n.Kind, key)
		}
		if n.Kind == Sink && len(n.OutputPorts) != 0 {
			return fmt.Errorf("topology: sink %q declares output ports", key)
		}
		if n.Build == nil {
			return fmt.Errorf("topology: %q has no Build factory", key)
		}
		for _, in := range n.Inputs {
			up, ok := g.Nodes[in.From]
			if !ok {
				return fmt.Errorf("topology: %q reads from unknown component %q", key, in.From)
			}
			if up.Kind == Sink {
				return fmt.Errorf("topology: %q reads from sink %q", key, in.From)
			}
			if in.Port != DefaultPort && !containsPort(up.OutputPorts, in.Port) {
				return fmt.Errorf("topology: %q reads from undeclared port %q of %q", key, in.Port, in.From)
			}
		}
	}
	return nil
}

func containsPort(ports []Port, p Port) bool {
	for _, existing := range ports {
		if existing == p {
			return true
		}
	}
	return false
}

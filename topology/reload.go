package topology

import "context"

// Reload implements spec.md §4.2.5's diff-and-swap: given a running
// Scheduler and a new Graph, it builds the new topology in isolation first
// — if that fails, the old Scheduler is returned untouched and still
// running, satisfying "a failure to build the new topology leaves the old
// one running unchanged." Only once the new topology builds successfully
// does Reload perform the swap: stop the old Scheduler's component tasks
// (respecting its shutdown deadline) and start the new one. Stopping
// cancels every old task at once; old sources are not paused first, and old
// transforms are not drained ahead of old sinks.
//
// Every component task restarts on reload — a kept key's Component is
// rebuilt fresh, the same as an added one. What carries over is each kept
// key's inbound edge: if a key exists in both graphs with an identical
// BufferSpec, its edge (and whatever events are still queued on it) is
// handed to the new Scheduler instead of being closed, so a reload that
// only changes one sink does not drop what the untouched components had
// already buffered. A kept key whose BufferSpec changed gets a fresh edge
// like an added key, and loses its queued events — reload and a buffer
// policy change together are not lossless.
func Reload(old *Scheduler, newGraph *Graph, opts Options) (*Scheduler, error) {
	var reuse map[Key]Edge
	if old != nil {
		_, _, kept := diffKeys(old.graph, newGraph)
		reuse = make(map[Key]Edge, len(kept))
		for _, key := range kept {
			if old.graph.Nodes[key].Buffer != newGraph.Nodes[key].Buffer {
				continue
			}
			if e, ok := old.edges[key]; ok {
				reuse[key] = e
			}
		}
	}

	next, err := buildWithReuse(newGraph, opts, reuse)
	if err != nil {
		return old, err
	}

	if old != nil {
		old.stopKeepingEdges(reuse)
	}

	next.Start(context.Background())
	return next, nil
}

// diffKeys reports which component keys were added, removed, or kept
// between two graphs. Used by Reload and by the hot-reload tests.
func diffKeys(oldGraph, newGraph *Graph) (added, removed, kept []Key) {
	for key := range newGraph.Nodes {
		if _, ok := oldGraph.Nodes[key]; ok {
			kept = append(kept, key)
		} else {
			added = append(added, key)
		}
	}
	for key := range oldGraph.Nodes {
		if _, ok := newGraph.Nodes[key]; !ok {
			removed = append(removed, key)
		}
	}
	return added, removed, kept
}

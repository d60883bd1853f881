package topology

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/routeryard/core/buffer"
	"github.com/routeryard/core/event"
	"github.com/routeryard/core/internal/logging"
	"github.com/routeryard/core/internal/vfs"
)

// EdgeKind selects a buffered edge's backing store (spec.md §4.2.2).
type EdgeKind int

const (
	// EdgeMemory is a bounded in-memory channel.
	EdgeMemory EdgeKind = iota
	// EdgeDisk is backed by a DiskV2 buffer (package buffer).
	EdgeDisk
	// EdgeComposite is a Memory edge that overflows to a Disk edge once
	// the memory bound is reached.
	EdgeComposite
)

// OverflowPolicy selects what happens when an edge is full (spec.md §5's
// `when_full` enum). OverflowToDisk only applies to EdgeComposite.
type OverflowPolicy int

const (
	// Block suspends the sender until the receiver frees space.
	Block OverflowPolicy = iota
	// DropNewest fails the send with ErrEdgeFull.
	DropNewest
	// OverflowToDisk spills to the composite edge's disk backing. Valid
	// only when Kind == EdgeComposite.
	OverflowToDisk
)

// BufferSpec configures one component's inbound edge.
type BufferSpec struct {
	Kind      EdgeKind
	MaxEvents int64
	MaxBytes  int64
	WhenFull  OverflowPolicy

	// DelayedWriteRate, if non-zero, enables graduated backpressure (spec.md
	// §4.2.2): once occupancy crosses the 7/8 soft threshold, Send sleeps
	// proportionally to this bytes/sec rate before enqueueing, rather than
	// jumping straight from unthrottled to Block/DropNewest at 100%. Zero
	// disables graduated slowdown; MaxEvents/MaxBytes's hard bound still
	// applies either way.
	DelayedWriteRate int64

	// DiskDir is the DiskV2 directory for EdgeDisk and EdgeComposite.
	DiskDir string
	// DiskOptions carries buffer.Options fields beyond Dir (MaxDataFileSize,
	// MaxRecordSize, FlushInterval, ...). Dir and MaxBufferSize/WhenFull
	// are filled in from DiskDir/MaxBytes/WhenFull.
	DiskOptions buffer.Options
}

func (s BufferSpec) withDefaults() BufferSpec {
	if s.MaxEvents <= 0 {
		s.MaxEvents = 4096
	}
	if s.MaxBytes <= 0 {
		s.MaxBytes = 64 << 20
	}
	return s
}

var (
	// ErrEdgeFull is returned by Send under DropNewest when the edge is at
	// capacity.
	ErrEdgeFull = errors.New("topology: edge full")
	// ErrEdgeClosed is returned by Send/Recv after Close.
	ErrEdgeClosed = errors.New("topology: edge closed")
)

// Edge is a component's inbound buffered connection (spec.md §4.2.2).
type Edge interface {
	Send(ctx context.Context, e event.Event) error
	Recv(ctx context.Context) (event.Event, error)
	// Usage reports the edge's current depth for the metrics handle
	// registered at construction (spec.md §4.2.2).
	Usage() (events, bytes int64)
	Close() error
}

// NewEdge constructs the buffered edge for spec, under the given key (used
// only for logging/metrics labels). governor, if non-nil, caps this edge's
// memory occupancy jointly with every other edge sharing it; it is ignored
// by EdgeDisk, whose occupancy is on-disk rather than in-process memory.
func NewEdge(key Key, spec BufferSpec, log logging.Logger, metrics *EdgeMetrics, governor *MemoryGovernor) (Edge, error) {
	spec = spec.withDefaults()
	log = logging.OrDefault(log)

	switch spec.Kind {
	case EdgeMemory:
		return newMemoryEdge(key, spec, log, metrics, governor), nil
	case EdgeDisk:
		return newDiskEdge(key, spec, log, metrics)
	case EdgeComposite:
		return newCompositeEdge(key, spec, log, metrics, governor)
	default:
		return nil, errors.New("topology: unknown edge kind")
	}
}

// estimateEventBytes sizes e for accounting purposes using the same wire
// form a Disk/Composite edge would persist. A Sketch-kind metric has no
// wire form (event.ErrUnsupportedValue); accounting falls back to a fixed
// estimate rather than failing the send, since byte accounting on Memory
// edges is advisory, not a correctness requirement.
func estimateEventBytes(e event.Event) int64 {
	b, err := event.Marshal(e)
	if err != nil {
		return 512
	}
	return int64(len(b))
}

// ---------------------------------------------------------------------
// Memory edge: bounded queue + sync.Cond, with reserve/free accounting
// against an optional shared MemoryGovernor and a broadcast on every state
// transition that might unblock a waiter.
// ---------------------------------------------------------------------

type memoryEdge struct {
	key      Key
	spec     BufferSpec
	log      logging.Logger
	metrics  *EdgeMetrics
	governor *MemoryGovernor

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []event.Event
	sizes  []int64
	bytes  int64
	closed bool
}

func newMemoryEdge(key Key, spec BufferSpec, log logging.Logger, metrics *EdgeMetrics, governor *MemoryGovernor) *memoryEdge {
	m := &memoryEdge{key: key, spec: spec, log: log, metrics: metrics, governor: governor}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *memoryEdge) Send(ctx context.Context, e event.Event) error {
	sz := estimateEventBytes(e)

	m.governor.WaitIfStalled()

	m.mu.Lock()
	for !m.closed && (int64(len(m.queue)) >= m.spec.MaxEvents || m.bytes+sz > m.spec.MaxBytes) {
		switch m.spec.WhenFull {
		case DropNewest:
			m.mu.Unlock()
			m.reportDropped()
			return ErrEdgeFull
		default: // Block
			if err := m.waitLocked(ctx); err != nil {
				m.mu.Unlock()
				return err
			}
		}
	}
	if m.closed {
		m.mu.Unlock()
		return ErrEdgeClosed
	}
	if m.spec.DelayedWriteRate > 0 && recalcStallCondition(m.bytes+sz, m.spec.MaxBytes) == StallDelayed {
		m.mu.Unlock()
		time.Sleep(delayFor(sz, m.spec.DelayedWriteRate))
		m.mu.Lock()
	}
	m.queue = append(m.queue, e)
	m.sizes = append(m.sizes, sz)
	m.bytes += sz
	m.cond.Broadcast()
	events, bytes := int64(len(m.queue)), m.bytes
	m.mu.Unlock()
	m.report(events, bytes)
	m.governor.Reserve(sz)
	return nil
}

// waitLocked blocks on m.cond until space frees, the edge closes, or ctx is
// done. m.mu must be held; it is released and reacquired across the wait.
func (m *memoryEdge) waitLocked(ctx context.Context) error {
	return condWaitLocked(m.cond, &m.mu, ctx)
}

// condWaitLocked blocks on cond until signaled or ctx is done. mu must be
// held by the caller; it is released and reacquired across the wait, as
// sync.Cond.Wait requires.
func condWaitLocked(cond *sync.Cond, mu *sync.Mutex, ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		mu.Lock()
		cond.Broadcast()
		mu.Unlock()
		close(done)
	})
	defer stop()
	cond.Wait()
	select {
	case <-done:
		return ctx.Err()
	default:
		return nil
	}
}

func (m *memoryEdge) Recv(ctx context.Context) (event.Event, error) {
	m.mu.Lock()
	for len(m.queue) == 0 && !m.closed {
		if err := m.waitLocked(ctx); err != nil {
			m.mu.Unlock()
			return event.Event{}, err
		}
	}
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return event.Event{}, ErrEdgeClosed
	}
	e := m.queue[0]
	sz := m.sizes[0]
	m.queue[0] = event.Event{}
	m.queue = m.queue[1:]
	m.sizes = m.sizes[1:]
	m.bytes -= sz
	m.cond.Broadcast()
	events, bytes := int64(len(m.queue)), m.bytes
	m.mu.Unlock()
	m.report(events, bytes)
	m.governor.Free(sz)
	return e, nil
}

func (m *memoryEdge) Usage() (events, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.queue)), m.bytes
}

func (m *memoryEdge) Close() error {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
	return nil
}

func (m *memoryEdge) report(events, bytes int64) {
	if m.metrics != nil {
		m.metrics.observe(string(m.key), events, bytes)
	}
}

func (m *memoryEdge) reportDropped() {
	if m.metrics != nil {
		m.metrics.observeDropped(string(m.key))
	}
}

// ---------------------------------------------------------------------
// Disk edge: wraps package buffer, serializing events with the event
// package's wire codec.
// ---------------------------------------------------------------------

type diskEdge struct {
	key     Key
	log     logging.Logger
	metrics *EdgeMetrics
	buf     *buffer.Buffer
}

func newDiskEdge(key Key, spec BufferSpec, log logging.Logger, metrics *EdgeMetrics) (*diskEdge, error) {
	opts := spec.DiskOptions
	opts.Dir = spec.DiskDir
	opts.MaxBufferSize = spec.MaxBytes
	if spec.WhenFull == DropNewest {
		opts.WhenFull = buffer.DropNewest
	} else {
		opts.WhenFull = buffer.Block
	}
	buf, err := buffer.OpenWithFS(opts, vfs.Default(), log)
	if err != nil {
		return nil, err
	}
	return &diskEdge{key: key, log: log, metrics: metrics, buf: buf}, nil
}

func (d *diskEdge) Send(ctx context.Context, e event.Event) error {
	payload, err := event.Marshal(e)
	if err != nil {
		return err
	}
	_, err = d.buf.Write(payload)
	if err == nil {
		d.report()
	}
	if err == buffer.ErrBufferFull {
		return ErrEdgeFull
	}
	return err
}

func (d *diskEdge) Recv(ctx context.Context) (event.Event, error) {
	payload, rcpt, err := d.buf.Next(ctx)
	if err != nil {
		return event.Event{}, err
	}
	e, err := event.Unmarshal(payload)
	if err != nil {
		return event.Event{}, err
	}
	if err := d.buf.Ack(rcpt.ID); err != nil {
		return event.Event{}, err
	}
	d.report()
	return e, nil
}

func (d *diskEdge) Usage() (events, bytes int64) {
	s := d.buf.Stats()
	return int64(s.TotalRecords), int64(s.TotalBytes)
}

func (d *diskEdge) Close() error {
	return d.buf.Close()
}

func (d *diskEdge) report() {
	if d.metrics != nil {
		events, bytes := d.Usage()
		d.metrics.observe(string(d.key), events, bytes)
	}
}

// ---------------------------------------------------------------------
// Composite edge: memory first, overflowing to disk once memory is at
// capacity (spec.md §4.2.2). It keeps its own in-memory queue rather than
// delegating to a memoryEdge, because ordering across the memory/disk
// boundary requires Recv to always drain whatever is left in memory before
// it starts reading the disk spillover — those memory-held events were
// always sent before anything that overflowed, so they must be observed
// first regardless of whether the edge is currently overflowing. Only once
// memory is empty does Recv move on to disk; only once disk is empty does
// Send resume writing to memory.
// ---------------------------------------------------------------------

type compositeEdge struct {
	key      Key
	spec     BufferSpec
	log      logging.Logger
	metrics  *EdgeMetrics
	governor *MemoryGovernor
	disk     *diskEdge

	mu          sync.Mutex
	cond        *sync.Cond
	queue       []event.Event
	sizes       []int64
	bytes       int64
	overflowing bool
	closed      bool
}

func newCompositeEdge(key Key, spec BufferSpec, log logging.Logger, metrics *EdgeMetrics, governor *MemoryGovernor) (*compositeEdge, error) {
	diskSpec := spec
	diskSpec.WhenFull = Block // the disk side is the safety net; it must never itself drop.
	disk, err := newDiskEdge(key, diskSpec, log, metrics)
	if err != nil {
		return nil, err
	}
	c := &compositeEdge{key: key, spec: spec, log: log, metrics: metrics, governor: governor, disk: disk}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}

func (c *compositeEdge) Send(ctx context.Context, e event.Event) error {
	sz := estimateEventBytes(e)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrEdgeClosed
	}
	fits := !c.overflowing && int64(len(c.queue)) < c.spec.MaxEvents && c.bytes+sz <= c.spec.MaxBytes
	if fits {
		if c.spec.DelayedWriteRate > 0 && recalcStallCondition(c.bytes+sz, c.spec.MaxBytes) == StallDelayed {
			c.mu.Unlock()
			time.Sleep(delayFor(sz, c.spec.DelayedWriteRate))
			c.mu.Lock()
		}
		c.queue = append(c.queue, e)
		c.sizes = append(c.sizes, sz)
		c.bytes += sz
		c.cond.Broadcast()
		events, bytes := int64(len(c.queue)), c.bytes
		c.mu.Unlock()
		c.report(events, bytes)
		c.governor.Reserve(sz)
		return nil
	}
	c.overflowing = true
	c.mu.Unlock()

	return c.disk.Send(ctx, e)
}

func (c *compositeEdge) Recv(ctx context.Context) (event.Event, error) {
	c.mu.Lock()
	for len(c.queue) == 0 && !c.overflowing && !c.closed {
		if err := condWaitLocked(c.cond, &c.mu, ctx); err != nil {
			c.mu.Unlock()
			return event.Event{}, err
		}
	}
	if len(c.queue) > 0 {
		e := c.queue[0]
		sz := c.sizes[0]
		c.queue[0] = event.Event{}
		c.queue = c.queue[1:]
		c.sizes = c.sizes[1:]
		c.bytes -= sz
		events, bytes := int64(len(c.queue)), c.bytes
		c.mu.Unlock()
		c.report(events, bytes)
		c.governor.Free(sz)
		return e, nil
	}
	overflowing := c.overflowing
	c.mu.Unlock()

	if !overflowing {
		// Loop only exits with an empty queue when overflowing or closed;
		// overflowing is false here, so the edge must be closed.
		return event.Event{}, ErrEdgeClosed
	}

	e, err := c.disk.Recv(ctx)
	if err != nil {
		return event.Event{}, err
	}
	if events, _ := c.disk.Usage(); events == 0 {
		c.mu.Lock()
		c.overflowing = false
		c.cond.Broadcast()
		c.mu.Unlock()
	}
	return e, nil
}

func (c *compositeEdge) Usage() (events, bytes int64) {
	c.mu.Lock()
	me, mb := int64(len(c.queue)), c.bytes
	c.mu.Unlock()
	de, db := c.disk.Usage()
	return me + de, mb + db
}

func (c *compositeEdge) Close() error {
	c.mu.Lock()
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()
	return c.disk.Close()
}

func (c *compositeEdge) report(events, bytes int64) {
	if c.metrics != nil {
		c.metrics.observe(string(c.key), events, bytes)
	}
}

package buffer

import (
	"time"

	"github.com/routeryard/core/internal/compression"
)

// Policy selects DiskV2's overflow behavior when MaxBufferSize would be
// exceeded by a write (spec.md §4.1.2 step 3). OverflowToDisk is not valid
// at this layer — it is a topology-level policy over a Composite edge
// (spec.md §4.2.2).
type Policy int

const (
	// Block suspends the caller until the reader frees enough space.
	Block Policy = iota
	// DropNewest fails the write with ErrBufferFull without enqueuing or
	// advancing the ledger.
	DropNewest
)

// Options configures a Buffer.
type Options struct {
	// Dir is the buffer's directory: the ledger file plus data files live
	// here. No other process may open it concurrently (enforced via
	// internal/vfs file locking, which takes a lock on Unix only).
	Dir string

	// MaxDataFileSize closes and rolls a data file once its size would
	// reach this bound (spec.md §4.1.1: default >= 128 MiB, <= 2 GiB).
	MaxDataFileSize int64

	// MaxBufferSize caps the sum of data-file sizes.
	MaxBufferSize int64

	// MaxRecordSize caps a single payload.
	MaxRecordSize int64

	// WhenFull selects the behavior when a write would exceed
	// MaxBufferSize.
	WhenFull Policy

	// FlushInterval is the minimum time between automatic data-file fsyncs
	// and ledger commits (spec.md §4.1.2 step 4): a Write that finds at
	// least this much time passed since the last commit syncs and commits
	// before returning. Nothing runs on a timer, so later writes stay
	// unsynced until another such Write, a Flush, or Close.
	FlushInterval time.Duration

	// AckCommitInterval is the minimum time between ledger commits caused by
	// acknowledgements (spec.md §4.1.4): an Ack that advances
	// reader_last_read_id commits only if this much time passed since the
	// last commit, or if it deletes a data file. Nothing runs on a timer.
	AckCommitInterval time.Duration

	// CompressionType compresses each record's payload before framing
	// (expansion beyond spec.md §4.1: sinks forwarding to bandwidth-
	// constrained endpoints benefit from smaller on-disk frames). A buffer
	// directory never mixes compression types across a write session, so
	// this must stay fixed for the directory's lifetime once data exists.
	CompressionType compression.Type
}

func (o Options) withDefaults() Options {
	if o.MaxDataFileSize <= 0 {
		o.MaxDataFileSize = 128 << 20
	}
	if o.MaxBufferSize <= 0 {
		o.MaxBufferSize = 8 << 30
	}
	if o.MaxRecordSize <= 0 {
		o.MaxRecordSize = 16 << 20
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 500 * time.Millisecond
	}
	if o.AckCommitInterval <= 0 {
		o.AckCommitInterval = 100 * time.Millisecond
	}
	return o
}

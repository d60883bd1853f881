// Package buffer implements DiskV2 (spec.md §4.1): a single-writer,
// single-reader, crash-safe, on-disk FIFO with a ledger of read/write
// positions, multi-file segmentation, size caps, and record-level
// acknowledgement.
package buffer

import "errors"

// ErrRecordTooLarge is returned by Write when payload.Len() exceeds
// MaxRecordSize (spec.md §4.1.2 step 1).
var ErrRecordTooLarge = errors.New("buffer: record exceeds max_record_size")

// ErrBufferFull is returned by Write under the Block-less DropNewest policy
// when total_bytes would exceed MaxBufferSize (spec.md §4.1.2 step 3).
var ErrBufferFull = errors.New("buffer: buffer full")

// ErrIOFailure wraps an I/O or (de)compression error on the data-file
// path. It is returned on the first failure: the buffer does not retry the
// failed operation.
var ErrIOFailure = errors.New("buffer: io failure")

// ErrLedgerVersionMismatch is a fatal error: the ledger's magic or version
// does not match what this build expects (spec.md §4.1.5 step 1).
var ErrLedgerVersionMismatch = errors.New("buffer: ledger magic/version mismatch")

// ErrClosed is returned by operations attempted after Close.
var ErrClosed = errors.New("buffer: closed")

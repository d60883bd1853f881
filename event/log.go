package event

import (
	"time"

	"github.com/routeryard/core/ack"
)

// Metadata carries the fields attached to a Log or Trace that are not part
// of its own path/value mapping: the acknowledgement handle, schema id, and
// source-assigned fields (spec.md §3.1).
type Metadata struct {
	Handle    ack.Handle
	SchemaID  string
	Timestamp time.Time
	Host      string
}

// Clone returns a copy of m with a cloned (refcount-incremented) Handle.
func (m Metadata) Clone() Metadata {
	m.Handle = m.Handle.Clone()
	return m
}

// Log is the Log variant of Event: an ordered mapping from string path to
// Value, plus Metadata (spec.md §3.1).
type Log struct {
	Fields   *Object
	Metadata Metadata
}

// NewLog returns an empty Log with a fresh Object and the given Metadata.
func NewLog(meta Metadata) Log {
	return Log{Fields: NewObject(), Metadata: meta}
}

// Get returns the Value at path.
func (l Log) Get(path string) (Value, bool) {
	return l.Fields.Get(path)
}

// Set inserts or updates path's Value.
func (l Log) Set(path string, v Value) {
	l.Fields.Set(path, v)
}

// Clone returns a deep-enough copy of l: Fields is cloned (shallow, per
// Object.Clone) and Metadata's Handle is cloned for the copy's own
// acknowledgement lifecycle, as happens when a transform duplicates an
// event to more than one output.
func (l Log) Clone() Log {
	return Log{Fields: l.Fields.Clone(), Metadata: l.Metadata.Clone()}
}

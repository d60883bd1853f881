package event

// Trace is the Trace variant of Event: a mapping behaving like Log plus
// conventional span fields (spec.md §3.1).
type Trace struct {
	Fields   *Object
	Metadata Metadata

	TraceID    string
	SpanID     string
	StartNanos int64
	EndNanos   int64
	Attributes *Object
}

// NewTrace returns an empty Trace with fresh Object fields and the given
// Metadata.
func NewTrace(meta Metadata) Trace {
	return Trace{Fields: NewObject(), Metadata: meta, Attributes: NewObject()}
}

// Get returns the Value at path among Fields.
func (t Trace) Get(path string) (Value, bool) {
	return t.Fields.Get(path)
}

// Set inserts or updates path's Value among Fields.
func (t Trace) Set(path string, v Value) {
	t.Fields.Set(path, v)
}

// Clone returns a deep-enough copy of t, cloning Fields, Attributes, and
// Metadata's acknowledgement Handle.
func (t Trace) Clone() Trace {
	return Trace{
		Fields:     t.Fields.Clone(),
		Metadata:   t.Metadata.Clone(),
		TraceID:    t.TraceID,
		SpanID:     t.SpanID,
		StartNanos: t.StartNanos,
		EndNanos:   t.EndNanos,
		Attributes: t.Attributes.Clone(),
	}
}

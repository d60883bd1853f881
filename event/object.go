package event

import "strings"

// Object is an ordered mapping from string path to Value (spec.md §3.1).
// Insertion order is preserved across Set calls on new keys; re-setting an
// existing key updates its Value in place without moving it.
type Object struct {
	index map[string]int
	keys  []string
	vals  []Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Get returns the Value at key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Null, false
	}
	i, ok := o.index[key]
	if !ok {
		return Null, false
	}
	return o.vals[i], true
}

// Set inserts or updates key's Value. New keys are appended to the end of
// iteration order.
func (o *Object) Set(key string, v Value) {
	if i, ok := o.index[key]; ok {
		o.vals[i] = v
		return
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, v)
}

// Delete removes key, if present, shifting later entries left by one to
// preserve order.
func (o *Object) Delete(key string) {
	i, ok := o.index[key]
	if !ok {
		return
	}
	o.keys = append(o.keys[:i], o.keys[i+1:]...)
	o.vals = append(o.vals[:i], o.vals[i+1:]...)
	delete(o.index, key)
	for k, idx := range o.index {
		if idx > i {
			o.index[k] = idx - 1
		}
	}
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order. The returned slice must not be
// mutated by the caller.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Range calls fn for each entry in insertion order, stopping early if fn
// returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for i, k := range o.keys {
		if !fn(k, o.vals[i]) {
			return
		}
	}
}

// Clone returns a shallow copy of o: Values are copied by value, nested
// Objects and Arrays are shared.
func (o *Object) Clone() *Object {
	if o == nil {
		return NewObject()
	}
	c := &Object{
		index: make(map[string]int, len(o.index)),
		keys:  append([]string(nil), o.keys...),
		vals:  append([]Value(nil), o.vals...),
	}
	for k, v := range o.index {
		c.index[k] = v
	}
	return c
}

// String renders o for diagnostics; it is not a stable serialization.
func (o *Object) String() string {
	if o == nil || len(o.keys) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(o.vals[i].String())
	}
	b.WriteByte('}')
	return b.String()
}

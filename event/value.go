// Package event implements the shared log/metric/trace data model (spec.md
// §3.1): the leaf dependency every other component of the router core
// builds on.
package event

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

// Kind identifies which variant of Value is held.
type Kind int

const (
	KindNull Kind = iota
	KindBytes
	KindInteger
	KindFloat
	KindBoolean
	KindTimestamp
	KindRegex
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBytes:
		return "bytes"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	case KindRegex:
		return "regex"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the tagged sum described by spec.md §3.1: Bytes | Integer(i64) |
// Float(non-NaN f64) | Boolean | Timestamp(UTC, ns) | Regex | Array(Value) |
// Object(ordered map<string,Value>) | Null.
//
// The zero Value is Null.
type Value struct {
	kind Kind

	b    []byte
	i    int64
	f    float64
	bo   bool
	ts   time.Time
	re   *regexp.Regexp
	arr  []Value
	obj  *Object
}

// Null is the null Value.
var Null = Value{kind: KindNull}

// Bytes wraps a byte slice as a Value.
func Bytes(b []byte) Value { return Value{kind: KindBytes, b: b} }

// String wraps a string as a Bytes Value (strings are stored as bytes,
// matching spec.md §3.1: there is no distinct String variant).
func String(s string) Value { return Value{kind: KindBytes, b: []byte(s)} }

// Integer wraps an int64 as a Value.
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// Float wraps a float64 as a Value. NaN is coerced to 0.0, per spec.md
// §3.1's guarantee that Float is never NaN.
func Float(f float64) Value {
	if math.IsNaN(f) {
		f = 0.0
	}
	return Value{kind: KindFloat, f: f}
}

// Boolean wraps a bool as a Value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, bo: b} }

// Timestamp wraps a UTC time.Time as a Value.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t.UTC()} }

// Regex wraps a compiled regular expression as a Value.
func Regex(re *regexp.Regexp) Value { return Value{kind: KindRegex, re: re} }

// Array wraps a slice of Values as a Value.
func Array(vs []Value) Value { return Value{kind: KindArray, arr: vs} }

// ObjectValue wraps an *Object as a Value.
func ObjectValue(o *Object) Value { return Value{kind: KindObject, obj: o} }

// Kind returns which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// AsBytes returns v's payload for KindBytes; ok is false otherwise.
func (v Value) AsBytes() (b []byte, ok bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.b, true
}

// AsInteger returns v's payload for KindInteger; ok is false otherwise.
func (v Value) AsInteger() (i int64, ok bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns v's payload for KindFloat; ok is false otherwise.
func (v Value) AsFloat() (f float64, ok bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsBoolean returns v's payload for KindBoolean; ok is false otherwise.
func (v Value) AsBoolean() (b bool, ok bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.bo, true
}

// AsTimestamp returns v's payload for KindTimestamp; ok is false otherwise.
func (v Value) AsTimestamp() (t time.Time, ok bool) {
	if v.kind != KindTimestamp {
		return time.Time{}, false
	}
	return v.ts, true
}

// AsRegex returns v's payload for KindRegex; ok is false otherwise.
func (v Value) AsRegex() (re *regexp.Regexp, ok bool) {
	if v.kind != KindRegex {
		return nil, false
	}
	return v.re, true
}

// AsArray returns v's payload for KindArray; ok is false otherwise.
func (v Value) AsArray() (vs []Value, ok bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsObject returns v's payload for KindObject; ok is false otherwise.
func (v Value) AsObject() (o *Object, ok bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// String renders v for diagnostics; it is not a stable serialization.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBytes:
		return string(v.b)
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBoolean:
		return fmt.Sprintf("%t", v.bo)
	case KindTimestamp:
		return v.ts.Format(time.RFC3339Nano)
	case KindRegex:
		return v.re.String()
	case KindArray:
		return fmt.Sprintf("%v", v.arr)
	case KindObject:
		return v.obj.String()
	default:
		return "<invalid>"
	}
}

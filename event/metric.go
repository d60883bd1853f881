package event

import (
	"sort"
	"strings"
	"time"

	"github.com/routeryard/core/ack"
)

// MetricKind distinguishes whether a Metric's value should be combined with
// (Incremental) or replace (Absolute) the prior observation for its series
// (spec.md §3.1).
type MetricKind int

const (
	Incremental MetricKind = iota
	Absolute
)

func (k MetricKind) String() string {
	if k == Absolute {
		return "absolute"
	}
	return "incremental"
}

// Tag is one (key, value) pair in a TagSet. A TagSet may hold multiple Tags
// with the same key (spec.md §3.1: "tag multimap (ordered, multi-valued)").
type Tag struct {
	Key   string
	Value string
}

// TagSet is an ordered, multi-valued multimap of tags. Two TagSets compare
// equal by sorted multiset equality (spec.md §4.4.1), independent of
// insertion order.
type TagSet struct {
	tags []Tag
}

// NewTagSet builds a TagSet from the given tags, preserving insertion
// order.
func NewTagSet(tags ...Tag) TagSet {
	return TagSet{tags: append([]Tag(nil), tags...)}
}

// Add appends a (key, value) pair, allowing duplicate keys.
func (ts *TagSet) Add(key, value string) {
	ts.tags = append(ts.tags, Tag{Key: key, Value: value})
}

// Values returns every value associated with key, in insertion order.
func (ts TagSet) Values(key string) []string {
	var out []string
	for _, t := range ts.tags {
		if t.Key == key {
			out = append(out, t.Value)
		}
	}
	return out
}

// All returns every tag, in insertion order. The returned slice must not be
// mutated.
func (ts TagSet) All() []Tag {
	return ts.tags
}

// Len returns the number of tags, counting duplicate keys separately.
func (ts TagSet) Len() int {
	return len(ts.tags)
}

// sortedKey returns a canonical string for comparing two TagSets by sorted
// multiset equality, independent of insertion order.
func (ts TagSet) sortedKey() string {
	pairs := make([]string, len(ts.tags))
	for i, t := range ts.tags {
		pairs[i] = t.Key + "=" + t.Value
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\x1f")
}

// Equal reports whether ts and other contain the same multiset of tags,
// ignoring insertion order.
func (ts TagSet) Equal(other TagSet) bool {
	return ts.sortedKey() == other.sortedKey()
}

// SeriesKey returns a string uniquely identifying a Metric's series by
// (name, namespace, tags) per spec.md §4.4.1's MetricSet key, suitable for
// use as a map key.
func SeriesKey(name, namespace string, tags TagSet) string {
	return namespace + "\x1e" + name + "\x1e" + tags.sortedKey()
}

// Metric is the Metric variant of Event (spec.md §3.1). Handle carries the
// acknowledgement reference described by spec.md §4.5; unlike Log and
// Trace, a Metric has no schema id or host field.
type Metric struct {
	Name      string
	Namespace string
	Tags      TagSet
	Timestamp *time.Time
	Kind      MetricKind
	Value     MetricValue
	Handle    ack.Handle
}

// Clone returns a copy of m with a cloned (refcount-incremented) Handle.
func (m Metric) Clone() Metric {
	m.Handle = m.Handle.Clone()
	return m
}

// SeriesKey returns the key identifying m's series, ignoring Timestamp and
// Kind.
func (m Metric) SeriesKey() string {
	return SeriesKey(m.Name, m.Namespace, m.Tags)
}

// WithValue returns a copy of m with Value replaced.
func (m Metric) WithValue(v MetricValue) Metric {
	m.Value = v
	return m
}

// WithKind returns a copy of m with Kind replaced.
func (m Metric) WithKind(k MetricKind) Metric {
	m.Kind = k
	return m
}

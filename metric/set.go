// Package metric implements the metric normalizer and aggregated-summary
// splitter (spec.md §4.4): incremental/absolute conversion against a
// per-series baseline, plus the fan-out of AggregatedSummary values into
// single-value metrics for sinks that require them.
package metric

import (
	"sync"

	"github.com/routeryard/core/event"
	"github.com/routeryard/core/internal/checksum"
)

// Set is a keyed store mapping (name, namespace, tag_multimap) to the last
// observed Absolute value (spec.md §4.4.1). It is owned by a single task per
// sink (spec.md §5), so its internal locking exists only to make races
// detectable during tests, not for contended multi-writer use.
type Set struct {
	mu      sync.Mutex
	buckets map[uint64][]entry
}

type entry struct {
	key   string
	value event.MetricValue
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{buckets: make(map[uint64][]entry)}
}

func seriesHash(key string) uint64 {
	return checksum.KeyHashString(key)
}

// get returns the stored baseline for key, if any.
func (s *Set) get(key string) (event.MetricValue, bool) {
	h := seriesHash(key)
	for _, e := range s.buckets[h] {
		if e.key == key {
			return e.value, true
		}
	}
	return event.MetricValue{}, false
}

// set stores v as key's new baseline.
func (s *Set) set(key string, v event.MetricValue) {
	h := seriesHash(key)
	bucket := s.buckets[h]
	for i, e := range bucket {
		if e.key == key {
			bucket[i].value = v
			return
		}
	}
	s.buckets[h] = append(bucket, entry{key: key, value: v})
}

// Len returns the number of distinct series tracked.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.buckets {
		n += len(b)
	}
	return n
}

// Delete drops key's stored baseline, if any.
func (s *Set) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := seriesHash(key)
	bucket := s.buckets[h]
	for i, e := range bucket {
		if e.key == key {
			s.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

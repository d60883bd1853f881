package checksum

import "github.com/zeebo/xxh3"

// KeyHash64 hashes an arbitrary byte key (a series key, a partition key, ...)
// with XXH3. It is used where a fast, well-distributed, non-cryptographic
// hash of a variable-length key is needed — e.g. MetricSet lookups and
// sink partition routing — and is never written to disk, so it carries no
// on-disk compatibility requirement the way the CRC32C record checksum
// does.
func KeyHash64(key []byte) uint64 {
	return xxh3.Hash(key)
}

// KeyHashString is a convenience wrapper around KeyHash64 for string keys.
func KeyHashString(key string) uint64 {
	return xxh3.HashString(key)
}

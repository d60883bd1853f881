// Package checksum provides the checksum and fast-hash primitives used by
// the on-disk buffer and the in-memory keyed stores.
//
// CRC32C is used for the record- and ledger-level checksums mandated by the
// on-disk formats in buffer's external interface; it must remain bit-stable
// across versions since it is read back by future processes. XXH3 is used
// only for in-memory, never-persisted keys (series keys, partition keys)
// and carries no compatibility requirement.
package checksum

import "hash/crc32"

// crc32cTable is the Castagnoli polynomial table used for CRC32C.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Value computes the CRC32C checksum of data.
func Value(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// Extend computes the CRC32C of concat(A, data) where initCRC is the CRC32C of A.
// Used to checksum a frame's header and payload without concatenating them
// into one buffer first.
func Extend(initCRC uint32, data []byte) uint32 {
	return crc32.Update(initCRC, crc32cTable, data)
}

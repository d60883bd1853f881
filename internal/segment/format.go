// Package segment implements the DiskV2 data-file frame format (spec.md
// §3.2, §6.1): a sequence of length-prefixed, checksummed records written
// back-to-back, with no block alignment or fragmentation — each logical
// write is exactly one physical frame.
package segment

import "encoding/binary"

// HeaderSize is the size, in bytes, of a frame's record_id + payload_len
// prefix: 8 bytes big-endian record id, 4 bytes big-endian payload length.
const HeaderSize = 8 + 4

// ChecksumSize is the size, in bytes, of a frame's trailing CRC32C.
const ChecksumSize = 4

// FrameOverhead is the total non-payload size of a frame.
const FrameOverhead = HeaderSize + ChecksumSize

// byteOrder is the wire byte order for every fixed-width field in a frame,
// per spec.md §6.1.
var byteOrder = binary.BigEndian

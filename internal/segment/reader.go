package segment

import (
	"errors"
	"io"

	"github.com/routeryard/core/internal/checksum"
)

// ErrCorrupt is returned by Next when a frame's checksum does not match, or
// the frame is truncated (spec.md §4.1.3). Callers recover by either
// skipping ahead via Resync or truncating the file at the last good
// offset.
var ErrCorrupt = errors.New("segment: corrupt frame")

// randomAccessFile is the subset of vfs.RandomAccessFile the reader needs.
type randomAccessFile interface {
	io.ReaderAt
	Size() int64
}

// Reader scans a data file's frames sequentially from a starting offset
// (spec.md §4.1.3).
type Reader struct {
	f      randomAccessFile
	size   int64
	offset int64
}

// NewReader wraps f, beginning the scan at startOffset.
func NewReader(f randomAccessFile, startOffset int64) *Reader {
	return &Reader{f: f, size: f.Size(), offset: startOffset}
}

// Offset returns the reader's current position in the data file: the start
// of the next frame to be read.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next reads the frame at the reader's current offset, verifies its
// checksum, and advances past it. It returns io.EOF when the offset is
// exactly at the end of the file (clean end of stream), or ErrCorrupt when
// the remaining bytes do not form a valid frame.
func (r *Reader) Next() (recordID uint64, payload []byte, err error) {
	if r.offset == r.size {
		return 0, nil, io.EOF
	}
	if r.offset+HeaderSize+ChecksumSize > r.size {
		return 0, nil, ErrCorrupt
	}

	header := make([]byte, HeaderSize)
	if _, err := r.f.ReadAt(header, r.offset); err != nil {
		return 0, nil, ErrCorrupt
	}
	recordID = byteOrder.Uint64(header[0:8])
	payloadLen := byteOrder.Uint32(header[8:12])

	frameEnd := r.offset + int64(FrameOverhead) + int64(payloadLen)
	if frameEnd > r.size {
		return 0, nil, ErrCorrupt
	}

	payload = make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := r.f.ReadAt(payload, r.offset+HeaderSize); err != nil {
			return 0, nil, ErrCorrupt
		}
	}

	var trailer [ChecksumSize]byte
	if _, err := r.f.ReadAt(trailer[:], r.offset+HeaderSize+int64(payloadLen)); err != nil {
		return 0, nil, ErrCorrupt
	}

	want := byteOrder.Uint32(trailer[:])
	got := checksum.Value(header)
	got = checksum.Extend(got, payload)
	if got != want {
		return 0, nil, ErrCorrupt
	}

	r.offset = frameEnd
	return recordID, payload, nil
}

// Resync implements spec.md §4.1.3's best-effort framing recovery: after a
// corrupt frame, scan forward byte by byte from the reader's current
// offset looking for a position where a valid (checksum-verified) frame
// begins. It reports the offset found and whether the search succeeded
// before reaching the end of the file.
func (r *Reader) Resync() (offset int64, ok bool) {
	for probe := r.offset + 1; probe+HeaderSize+ChecksumSize <= r.size; probe++ {
		candidate := &Reader{f: r.f, size: r.size, offset: probe}
		if _, _, err := candidate.Next(); err == nil {
			r.offset = probe
			return probe, true
		}
	}
	return r.offset, false
}

package segment

import (
	"io"

	"github.com/routeryard/core/internal/checksum"
	"github.com/routeryard/core/internal/mempool"
	"github.com/routeryard/core/internal/testutil"
)

// Writer appends framed records to a data file (spec.md §4.1.2). It holds
// no buffering of its own beyond a scratch header; callers control when to
// Sync.
type Writer struct {
	dest   io.Writer
	offset int64
}

// NewWriter wraps dest, an already-positioned destination (typically a file
// opened in append mode), starting frame offsets at startOffset — the
// current size of dest, as reported by recovery's scan.
func NewWriter(dest io.Writer, startOffset int64) *Writer {
	return &Writer{dest: dest, offset: startOffset}
}

// WriteFrame appends one record_id:u64 BE, payload_len:u32 BE, payload,
// crc32c:u32 frame and returns the number of bytes written.
func (w *Writer) WriteFrame(recordID uint64, payload []byte) (int, error) {
	testutil.MaybeKill(testutil.KPBufferAppend0)

	header := mempool.GlobalPool.Get(HeaderSize)
	defer mempool.GlobalPool.Put(header)
	header = header[:HeaderSize]

	byteOrder.PutUint64(header[0:8], recordID)
	byteOrder.PutUint32(header[8:12], uint32(len(payload)))

	crc := checksum.Value(header)
	crc = checksum.Extend(crc, payload)

	var trailer [ChecksumSize]byte
	byteOrder.PutUint32(trailer[:], crc)

	n1, err := w.dest.Write(header)
	w.offset += int64(n1)
	if err != nil {
		return n1, err
	}
	n2, err := w.dest.Write(payload)
	w.offset += int64(n2)
	if err != nil {
		return n1 + n2, err
	}
	n3, err := w.dest.Write(trailer[:])
	w.offset += int64(n3)
	if err != nil {
		return n1 + n2 + n3, err
	}
	return n1 + n2 + n3, nil
}

// Offset returns the writer's current position in the data file.
func (w *Writer) Offset() int64 {
	return w.offset
}

// Sync flushes the underlying destination if it supports it.
func (w *Writer) Sync() error {
	testutil.MaybeKill(testutil.KPBufferSync0)
	if syncer, ok := w.dest.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return err
		}
	}
	testutil.MaybeKill(testutil.KPBufferSync1)
	return nil
}

// FrameSize returns the on-disk size of a frame carrying payloadLen bytes.
func FrameSize(payloadLen int) int64 {
	return int64(FrameOverhead + payloadLen)
}

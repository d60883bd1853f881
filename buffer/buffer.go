package buffer

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/routeryard/core/internal/compression"
	"github.com/routeryard/core/internal/logging"
	"github.com/routeryard/core/internal/segment"
	"github.com/routeryard/core/internal/testutil"
	"github.com/routeryard/core/internal/vfs"
)

// dataFileName returns the on-disk name of data file fileID.
func dataFileName(fileID uint16) string {
	return fmt.Sprintf("%05d.data", fileID)
}

// parseDataFileName returns the file id encoded in name, or ok=false if
// name is not a data file.
func parseDataFileName(name string) (uint16, bool) {
	const suffix = ".data"
	if !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSuffix(name, suffix), 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

// fileIDLess reports whether a precedes b in file_id's 16-bit wraparound
// sequence (spec.md §9(b)): a signed subtraction treats any difference
// within 2^15 as ordered, so ids keep comparing correctly as they wrap from
// 65535 back to 0 after 65536 rotations. A plain a < b breaks at that wrap.
func fileIDLess(a, b uint16) bool {
	return int16(b-a) > 0
}

// fileSlot tracks one data file's id and the highest record id written to
// it, used to decide when the file is fully acknowledged and safe to
// delete.
type fileSlot struct {
	id        uint16
	highestID uint64
	hasData   bool
}

// Buffer is DiskV2: a single-writer, single-reader, crash-safe on-disk FIFO
// (spec.md §4.1).
type Buffer struct {
	opts Options
	fs   vfs.FS
	log  logging.Logger

	ledger *Ledger
	lock   io.Closer

	writeMu    sync.Mutex
	writeCond  *sync.Cond
	writerFile vfs.WritableFile
	writer     *segment.Writer
	writerID   uint16
	writerSize int64
	nextRecord uint64

	readMu     sync.Mutex
	readCond   *sync.Cond
	readerFile vfs.RandomAccessFile
	reader     *segment.Reader
	readerID   uint16

	mu          sync.Mutex
	pending     State
	lastCommit  time.Time
	totalBytes  int64
	sizeByID    map[uint64]int64
	pendingAcks map[uint64]bool
	files       []fileSlot
	closed      bool
}

// Open opens (creating if necessary) the DiskV2 buffer at opts.Dir on the
// real OS filesystem.
func Open(opts Options) (*Buffer, error) {
	return OpenWithFS(opts, vfs.Default(), nil)
}

// OpenWithFS opens a buffer against a caller-supplied vfs.FS, used by tests
// to exercise fault injection and crash recovery. A nil log uses the
// package default.
func OpenWithFS(opts Options, fs vfs.FS, log logging.Logger) (*Buffer, error) {
	opts = opts.withDefaults()
	log = logging.OrDefault(log)
	if err := fs.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	lock, err := fs.Lock(filepath.Join(opts.Dir, "LOCK"))
	if err != nil {
		return nil, err
	}

	ledger, err := OpenLedger(filepath.Join(opts.Dir, "LEDGER"))
	if err != nil {
		lock.Close()
		return nil, err
	}

	b := &Buffer{
		opts:        opts,
		fs:          fs,
		log:         log,
		ledger:      ledger,
		lock:        lock,
		sizeByID:    make(map[uint64]int64),
		pendingAcks: make(map[uint64]bool),
	}
	b.writeCond = sync.NewCond(&b.writeMu)
	b.readCond = sync.NewCond(&b.readMu)

	if err := b.recover(); err != nil {
		ledger.Close()
		lock.Close()
		return nil, err
	}

	return b, nil
}

// recover loads the ledger's last known state, inventories existing data
// files on disk (spec.md §4.1.5), and opens a fresh writer file — DiskV2
// never resumes appending to a data file from a prior process, so recovery
// always rolls forward rather than reopening for append.
func (b *Buffer) recover() error {
	b.pending = b.ledger.Load()

	names, err := b.fs.ListDir(b.opts.Dir)
	if err != nil {
		return err
	}

	var ids []uint16
	for _, name := range names {
		if id, ok := parseDataFileName(name); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return fileIDLess(ids[i], ids[j]) })

	for _, id := range ids {
		slot := fileSlot{id: id}
		if highest, hasData, err := b.scanHighestID(id); err == nil {
			slot.highestID = highest
			slot.hasData = hasData
		} else {
			b.log.Warnf(logging.NSRecovery+"failed to scan data file %d during recovery: %v", id, err)
		}
		b.files = append(b.files, slot)
	}

	return b.newWriterFileLocked()
}

// scanHighestID sequentially scans data file id and returns the highest
// record id it contains, stopping at the first corrupt frame (the tail of
// a crashed write, handled separately by the read path's resync logic).
func (b *Buffer) scanHighestID(id uint16) (highest uint64, hasData bool, err error) {
	f, err := b.fs.OpenRandomAccess(filepath.Join(b.opts.Dir, dataFileName(id)))
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	r := segment.NewReader(f, 0)
	for {
		recID, _, err := r.Next()
		switch {
		case err == nil:
			highest = recID
			hasData = true
		case err == io.EOF:
			return highest, hasData, nil
		default:
			return highest, hasData, nil
		}
	}
}

// Write implements spec.md §4.1.2. It returns the assigned record id.
func (b *Buffer) Write(payload []byte) (uint64, error) {
	if int64(len(payload)) > b.opts.MaxRecordSize {
		return 0, ErrRecordTooLarge
	}

	framed, err := b.frameForCompression(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.isClosed() {
		return 0, ErrClosed
	}

	frameSize := segment.FrameSize(len(framed))

	if b.writerSize > 0 && b.writerSize+frameSize > b.opts.MaxDataFileSize {
		if err := b.rotateLocked(); err != nil {
			return 0, err
		}
	}

	for {
		b.mu.Lock()
		full := b.totalBytes+frameSize > b.opts.MaxBufferSize
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return 0, ErrClosed
		}
		if !full {
			break
		}
		switch b.opts.WhenFull {
		case DropNewest:
			return 0, ErrBufferFull
		default: // Block
			b.writeCond.Wait()
		}
	}

	id := b.nextRecord
	if _, err := b.writer.WriteFrame(id, framed); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	b.nextRecord++
	b.writerSize += frameSize

	b.mu.Lock()
	b.totalBytes += frameSize
	b.sizeByID[id] = frameSize
	b.pending.WriterNextRecordID = b.nextRecord
	b.pending.WriterFileID = b.writerID
	b.pending.TotalRecords++
	b.pending.TotalBytes = uint64(b.totalBytes)
	for i := range b.files {
		if b.files[i].id == b.writerID {
			b.files[i].highestID = id
			b.files[i].hasData = true
		}
	}
	shouldCommit := time.Since(b.lastCommit) >= b.opts.FlushInterval
	b.mu.Unlock()

	b.readCond.L.Lock()
	b.readCond.Broadcast()
	b.readCond.L.Unlock()

	if shouldCommit {
		// writeMu is already held, so sync the writer directly rather than
		// through Flush, which takes writeMu itself.
		if err := b.writer.Sync(); err != nil {
			return id, fmt.Errorf("%w: %v", ErrIOFailure, err)
		}
		if err := b.commitLedger(); err != nil {
			return id, err
		}
	}
	return id, nil
}

// frameForCompression compresses payload per b.opts.CompressionType and
// prepends the original length as a 4-byte big-endian prefix, so the reader
// can decompress without a side channel (LZ4's raw block format in
// particular needs the decompressed size up front). NoCompression returns
// payload unchanged.
func (b *Buffer) frameForCompression(payload []byte) ([]byte, error) {
	if b.opts.CompressionType == compression.NoCompression {
		return payload, nil
	}
	compressed, err := compression.Compress(b.opts.CompressionType, payload)
	if err != nil {
		return nil, err
	}
	framed := make([]byte, 4+len(compressed))
	binary.BigEndian.PutUint32(framed[:4], uint32(len(payload)))
	copy(framed[4:], compressed)
	return framed, nil
}

// unframeForCompression reverses frameForCompression, decompressing a
// record's payload after its checksum has already been verified by
// segment.Reader.Next.
func (b *Buffer) unframeForCompression(framed []byte) ([]byte, error) {
	if b.opts.CompressionType == compression.NoCompression {
		return framed, nil
	}
	if len(framed) < 4 {
		return nil, fmt.Errorf("compressed record too short: %d bytes", len(framed))
	}
	originalLen := int(binary.BigEndian.Uint32(framed[:4]))
	return compression.DecompressWithSize(b.opts.CompressionType, framed[4:], originalLen)
}

// Flush fsyncs the active data file and commits the ledger, guaranteeing
// (spec.md §4.1.2's durability contract) that every write that returned
// success before this call is durable.
func (b *Buffer) Flush() error {
	b.writeMu.Lock()
	w := b.writer
	b.writeMu.Unlock()
	if w != nil {
		if err := w.Sync(); err != nil {
			return fmt.Errorf("%w: %v", ErrIOFailure, err)
		}
	}
	return b.commitLedger()
}

func (b *Buffer) commitLedger() error {
	b.mu.Lock()
	s := b.pending
	b.lastCommit = time.Now()
	b.mu.Unlock()
	testutil.MaybeKill(testutil.KPLedgerCommit0)
	err := b.ledger.Commit(func(cur *State) { *cur = s })
	testutil.MaybeKill(testutil.KPLedgerCommit1)
	return err
}

// newWriterFileLocked opens the next data file as the active writer
// target. Caller must hold writeMu.
func (b *Buffer) newWriterFileLocked() error {
	testutil.MaybeKill(testutil.KPRotateCreate0)

	newID := b.nextWriterID()
	f, err := b.fs.Create(filepath.Join(b.opts.Dir, dataFileName(newID)))
	if err != nil {
		return err
	}
	testutil.MaybeKill(testutil.KPRotateRename0)

	b.writerFile = f
	b.writer = segment.NewWriter(f, 0)
	b.writerID = newID
	b.writerSize = 0

	b.mu.Lock()
	b.nextRecord = b.pending.WriterNextRecordID
	b.files = append(b.files, fileSlot{id: newID})
	b.pending.WriterFileID = newID
	b.mu.Unlock()

	testutil.MaybeKill(testutil.KPRotateRename1)
	return b.fs.SyncDir(b.opts.Dir)
}

func (b *Buffer) nextWriterID() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.files) == 0 {
		return 0
	}
	latest := b.files[0].id
	for _, f := range b.files[1:] {
		if fileIDLess(latest, f.id) {
			latest = f.id
		}
	}
	id := latest + 1
	// latest+1 can wrap back onto an id that is still on disk — an older
	// file not yet fully acked. Walk forward until an unused id is found.
	for b.fileIDInUseLocked(id) {
		id++
	}
	return id
}

// fileIDInUseLocked reports whether id names a file already tracked in
// b.files. Caller must hold b.mu.
func (b *Buffer) fileIDInUseLocked(id uint16) bool {
	for _, f := range b.files {
		if f.id == id {
			return true
		}
	}
	return false
}

// rotateLocked closes the current data file and opens the next one. Caller
// must hold writeMu.
func (b *Buffer) rotateLocked() error {
	if b.writerFile != nil {
		if err := b.writerFile.Sync(); err != nil {
			return err
		}
		if err := b.writerFile.Close(); err != nil {
			return err
		}
	}
	return b.newWriterFileLocked()
}

// Receipt is the delivery handle returned by Next; pass its ID to Ack once
// the record has reached a terminal disposition downstream.
type Receipt struct {
	ID uint64
}

// Next implements spec.md §4.1.3's read path: it blocks until a record is
// available or ctx is done, verifies its checksum, and returns it without
// advancing reader_last_read_id (that happens on Ack).
func (b *Buffer) Next(ctx context.Context) ([]byte, Receipt, error) {
	b.readMu.Lock()
	defer b.readMu.Unlock()

	for {
		if b.isClosed() {
			return nil, Receipt{}, ErrClosed
		}

		if b.reader == nil {
			opened, err := b.openReaderFileLocked()
			if err != nil {
				return nil, Receipt{}, err
			}
			if !opened {
				if err := b.waitForWriteLocked(ctx); err != nil {
					return nil, Receipt{}, err
				}
				continue
			}
		}

		id, payload, err := b.reader.Next()
		switch {
		case err == nil:
			decompressed, derr := b.unframeForCompression(payload)
			if derr != nil {
				return nil, Receipt{}, fmt.Errorf("%w: %v", ErrIOFailure, derr)
			}
			return decompressed, Receipt{ID: id}, nil
		case err == segment.ErrCorrupt:
			b.log.Warnf(logging.NSRecovery+"corrupt frame in file %d at offset %d, resyncing", b.readerID, b.reader.Offset())
			if _, ok := b.reader.Resync(); ok {
				continue
			}
			if err := b.advanceToNextFileLocked(); err != nil {
				return nil, Receipt{}, err
			}
			continue
		default: // io.EOF: caught up with the writer, or file exhausted.
			if b.hasNextFileLocked() {
				if err := b.advanceToNextFileLocked(); err != nil {
					return nil, Receipt{}, err
				}
				continue
			}
			if err := b.waitForWriteLocked(ctx); err != nil {
				return nil, Receipt{}, err
			}
		}
	}
}

func (b *Buffer) waitForWriteLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.readCond.L.Lock()
			b.readCond.Broadcast()
			b.readCond.L.Unlock()
		case <-done:
		}
	}()
	defer close(done)
	b.readCond.Wait()
	return ctx.Err()
}

func (b *Buffer) hasNextFileLocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readerID != b.pending.WriterFileID
}

// openReaderFileLocked opens the current reader target file. It returns
// opened=false (not an error) if the file does not exist yet, meaning the
// writer has not reached it yet.
func (b *Buffer) openReaderFileLocked() (bool, error) {
	b.mu.Lock()
	id := b.pending.ReaderFileID
	offset := int64(b.pending.ReaderFileOffset)
	b.mu.Unlock()

	path := filepath.Join(b.opts.Dir, dataFileName(id))
	if !b.fs.Exists(path) {
		return false, nil
	}

	f, err := b.fs.OpenRandomAccess(path)
	if err != nil {
		return false, err
	}
	b.readerFile = f
	b.reader = segment.NewReader(f, offset)
	b.readerID = id
	return true, nil
}

func (b *Buffer) advanceToNextFileLocked() error {
	if b.readerFile != nil {
		b.readerFile.Close()
		b.readerFile = nil
		b.reader = nil
	}
	b.mu.Lock()
	b.pending.ReaderFileID++
	b.pending.ReaderFileOffset = 0
	b.mu.Unlock()
	return nil
}

// Ack implements spec.md §4.1.4: acks arrive out of order but commit in
// order. reader_last_read_id advances past the longest contiguous
// delivered prefix; fully-consumed data files are deleted.
func (b *Buffer) Ack(id uint64) error {
	b.mu.Lock()
	b.pendingAcks[id] = true

	advanced := false
	for {
		next := b.pending.ReaderLastReadID + 1
		if !b.pendingAcks[next] {
			break
		}
		delete(b.pendingAcks, next)
		if size, ok := b.sizeByID[next]; ok {
			b.totalBytes -= size
			delete(b.sizeByID, next)
		}
		b.pending.ReaderLastReadID = next
		if b.pending.TotalRecords > 0 {
			b.pending.TotalRecords--
		}
		advanced = true
	}
	if advanced {
		b.pending.TotalBytes = uint64(b.totalBytes)
	}

	var toDelete []fileSlot
	remaining := b.files[:0]
	for _, f := range b.files {
		if f.id != b.pending.WriterFileID && f.hasData && f.highestID <= b.pending.ReaderLastReadID {
			toDelete = append(toDelete, f)
			continue
		}
		remaining = append(remaining, f)
	}
	b.files = remaining
	b.mu.Unlock()

	if advanced {
		b.writeCond.L.Lock()
		b.writeCond.Broadcast()
		b.writeCond.L.Unlock()
	}

	// Commit the ledger before deleting files: a crash between these two
	// steps leaves an already-acked, now-orphaned file on disk (harmless,
	// cleaned up by the next recovery), rather than a ledger pointing at a
	// file that no longer exists. A file deletion always forces a commit;
	// a bare advance of reader_last_read_id is throttled to
	// AckCommitInterval so acks under high throughput don't each pay an
	// fsync.
	b.mu.Lock()
	due := time.Since(b.lastCommit) >= b.opts.AckCommitInterval
	b.mu.Unlock()
	if len(toDelete) > 0 || (advanced && due) {
		if err := b.commitLedger(); err != nil {
			return err
		}
	}

	for _, f := range toDelete {
		_ = b.fs.Remove(filepath.Join(b.opts.Dir, dataFileName(f.id)))
	}
	return nil
}

// Stats reports the ledger's current totals.
func (b *Buffer) Stats() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

func (b *Buffer) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close flushes and releases the buffer's resources.
func (b *Buffer) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.writeCond.L.Lock()
	b.writeCond.Broadcast()
	b.writeCond.L.Unlock()
	b.readCond.L.Lock()
	b.readCond.Broadcast()
	b.readCond.L.Unlock()

	var err error
	if e := b.Flush(); e != nil {
		err = e
	}
	if b.writerFile != nil {
		if e := b.writerFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if b.readerFile != nil {
		if e := b.readerFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if e := b.ledger.Close(); e != nil && err == nil {
		err = e
	}
	if e := b.lock.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

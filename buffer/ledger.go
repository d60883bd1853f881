package buffer

import (
	"encoding/binary"
	"sync"

	"github.com/routeryard/core/internal/checksum"
)

// Ledger layout (spec.md §6.1): a fixed 64-byte, version-prefixed,
// memory-mapped file holding read/write positions for a DiskV2 buffer.
const (
	ledgerSize = 64

	offMagic               = 0
	offVersion             = 8
	offFlags               = 10
	offWriterFileID        = 12
	offReaderFileID        = 14
	offWriterNextRecordID  = 16
	offReaderLastReadID    = 24
	offReaderFileOffset    = 32
	offTotalRecords        = 40
	offTotalBytes          = 48
	offCRC                 = 56
	offReserved            = 60

	ledgerVersion = 2
)

var ledgerMagic = [8]byte{'V', 'E', 'C', 'T', 'O', 'R', 0, 0}

var byteOrder = binary.BigEndian

// State is a snapshot of the ledger's fields (spec.md §3.3).
type State struct {
	WriterFileID        uint16
	ReaderFileID        uint16
	WriterNextRecordID  uint64
	ReaderLastReadID    uint64
	ReaderFileOffset    uint64
	TotalRecords        uint64
	TotalBytes          uint64
}

// backing abstracts the platform-specific storage for the ledger's 64
// bytes: an mmap'd region on Unix (ledger_unix.go), a plain buffer
// synchronized by explicit pwrite on Windows (ledger_windows.go).
type backing interface {
	bytes() []byte
	sync() error
	close() error
}

// Ledger is DiskV2's shared read/write position record (spec.md §3.3). All
// updates go through Commit, which writes through and fsyncs at commit
// points; readers observe state via Load without taking the writer's lock
// for longer than a snapshot copy.
type Ledger struct {
	mu sync.Mutex
	b  backing
}

// OpenLedger loads or initializes the ledger file at path.
func OpenLedger(path string) (*Ledger, error) {
	b, created, err := openBacking(path, ledgerSize)
	if err != nil {
		return nil, err
	}
	l := &Ledger{b: b}
	if created {
		l.initLocked()
		l.storeLocked(State{})
		if err := l.commitLocked(); err != nil {
			return nil, err
		}
		return l, nil
	}
	if err := l.validateLocked(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) initLocked() {
	data := l.b.bytes()
	copy(data[offMagic:offMagic+8], ledgerMagic[:])
	byteOrder.PutUint16(data[offVersion:], ledgerVersion)
}

func (l *Ledger) validateLocked() error {
	data := l.b.bytes()
	if string(data[offMagic:offMagic+8]) != string(ledgerMagic[:]) {
		return ErrLedgerVersionMismatch
	}
	if byteOrder.Uint16(data[offVersion:]) != ledgerVersion {
		return ErrLedgerVersionMismatch
	}
	want := byteOrder.Uint32(data[offCRC:])
	got := checksum.Value(data[:offCRC])
	if got != want {
		return ErrLedgerVersionMismatch
	}
	return nil
}

// Load returns a snapshot of the ledger's current state.
func (l *Ledger) Load() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked()
}

func (l *Ledger) loadLocked() State {
	data := l.b.bytes()
	return State{
		WriterFileID:       byteOrder.Uint16(data[offWriterFileID:]),
		ReaderFileID:       byteOrder.Uint16(data[offReaderFileID:]),
		WriterNextRecordID: byteOrder.Uint64(data[offWriterNextRecordID:]),
		ReaderLastReadID:   byteOrder.Uint64(data[offReaderLastReadID:]),
		ReaderFileOffset:   byteOrder.Uint64(data[offReaderFileOffset:]),
		TotalRecords:       byteOrder.Uint64(data[offTotalRecords:]),
		TotalBytes:         byteOrder.Uint64(data[offTotalBytes:]),
	}
}

// Commit applies mutate to a copy of the current state under the ledger's
// lock, writes the result through to the backing storage, and fsyncs.
func (l *Ledger) Commit(mutate func(*State)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.loadLocked()
	mutate(&s)
	l.storeLocked(s)
	return l.commitLocked()
}

func (l *Ledger) storeLocked(s State) {
	data := l.b.bytes()
	byteOrder.PutUint16(data[offWriterFileID:], s.WriterFileID)
	byteOrder.PutUint16(data[offReaderFileID:], s.ReaderFileID)
	byteOrder.PutUint64(data[offWriterNextRecordID:], s.WriterNextRecordID)
	byteOrder.PutUint64(data[offReaderLastReadID:], s.ReaderLastReadID)
	byteOrder.PutUint64(data[offReaderFileOffset:], s.ReaderFileOffset)
	byteOrder.PutUint64(data[offTotalRecords:], s.TotalRecords)
	byteOrder.PutUint64(data[offTotalBytes:], s.TotalBytes)
	crc := checksum.Value(data[:offCRC])
	byteOrder.PutUint32(data[offCRC:], crc)
}

func (l *Ledger) commitLocked() error {
	return l.b.sync()
}

// Close releases the ledger's backing storage.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.close()
}

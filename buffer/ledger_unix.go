//go:build !windows

package buffer

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapBacking is the Unix ledger backing: the 64-byte region is
// memory-mapped shared, so readers observe the writer's updates without a
// read syscall, and Msync provides the durability point (spec.md §3.3:
// "readers observe through shared memory without locks").
type mmapBacking struct {
	f    *os.File
	data []byte
}

func openBacking(path string, size int) (backing, bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, false, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, err
	}
	created := info.Size() == 0
	if created {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, false, err
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, false, err
	}

	return &mmapBacking{f: f, data: data}, created, nil
}

func (m *mmapBacking) bytes() []byte { return m.data }

func (m *mmapBacking) sync() error {
	return unix.Msync(m.data, unix.MS_SYNC)
}

func (m *mmapBacking) close() error {
	if err := unix.Munmap(m.data); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}

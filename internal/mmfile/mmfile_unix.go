//go:build unix

// Package mmfile maps snapshot files into memory for decoding.
package mmfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map returns the contents of the file at path through a read-only shared
// mapping. Decoding never writes to the input, and a shared mapping lets the
// page cache serve it without a private copy. Snapshots are decoded front to
// back, so the kernel is told to read ahead.
//
// The cleanup func unmaps the file and may be called more than once; the
// slice must not be used after it.
func Map(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	// The mapping outlives the descriptor.
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	switch {
	case size == 0:
		return []byte{}, func() error { return nil }, nil
	case size > int64(^uint(0)>>1):
		return nil, nil, fmt.Errorf("mmfile: %s: %d bytes exceeds address space", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmfile: map %s: %w", path, err)
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	unmap := func() error {
		if data == nil {
			return nil
		}
		d := data
		data = nil
		return unix.Munmap(d)
	}
	return data, unmap, nil
}

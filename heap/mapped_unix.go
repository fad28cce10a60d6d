//go:build unix

package heap

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/tralloc/internal/buf"
)

// MappedRegion reserves address space up front and commits it page by page.
type MappedRegion struct {
	mem       []byte // full reservation
	n         int    // bytes grown
	committed int    // bytes with PROT_READ|PROT_WRITE
	pageSize  int
}

// NewMapped reserves capacity bytes (rounded up to a page) of anonymous memory.
func NewMapped(capacity int) (Region, error) {
	pageSize := unix.Getpagesize()
	capacity = alignPage(capacity, pageSize)
	mem, err := unix.Mmap(-1, 0, capacity, unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("heap: reserve %d bytes: %w", capacity, err)
	}
	return &MappedRegion{mem: mem, pageSize: pageSize}, nil
}

// Grow implements Region.
func (r *MappedRegion) Grow(n int) (int, error) {
	if r.mem == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrBadGrow
	}
	end, ok := buf.AddOverflowSafe(r.n, n)
	if !ok || end > len(r.mem) {
		return 0, ErrExhausted
	}
	if end > r.committed {
		next := min(alignPage(end, r.pageSize), len(r.mem))
		if err := unix.Mprotect(r.mem[r.committed:next], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return 0, fmt.Errorf("%w: mprotect: %w", ErrExhausted, err)
		}
		r.committed = next
	}
	off := r.n
	r.n = end
	return off, nil
}

// Bytes implements Region.
func (r *MappedRegion) Bytes() []byte { return r.mem[:r.n:r.n] }

// Len implements Region.
func (r *MappedRegion) Len() int { return r.n }

// Cap implements Region.
func (r *MappedRegion) Cap() int { return len(r.mem) }

// Close implements Region.
func (r *MappedRegion) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	r.n, r.committed = 0, 0
	return err
}

func alignPage(n, pageSize int) int {
	if n <= 0 {
		return pageSize
	}
	return (n + pageSize - 1) &^ (pageSize - 1)
}

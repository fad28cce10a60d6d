package tralloc

import (
	"errors"
	"io"
	"sync"

	"github.com/joshuapare/tralloc/heap"
	"github.com/joshuapare/tralloc/heap/alloc"
	"github.com/joshuapare/tralloc/heap/snapshot"
)

// Ptr is a payload offset inside a heap.
type Ptr = alloc.Ptr

// ErrClosed is returned by every Heap method after Close.
var ErrClosed = errors.New("tralloc: heap closed")

// Heap serializes access to one allocator and owns its region.
//
// Payload slices returned by Allocate stay valid until the pointer is
// released, and may be written without holding any lock, as long as the heap
// is backed by a mapping. With Config.ForceSlice the region is a Go slice
// that moves when it grows; re-fetch slices with Payload after any Allocate.
type Heap struct {
	mu     sync.Mutex
	region heap.Region
	a      *alloc.Allocator
}

// New creates an empty heap.
func New(cfg Config) (*Heap, error) {
	r, err := heap.New(cfg.regionConfig())
	if err != nil {
		return nil, err
	}
	a, err := alloc.New(r, cfg.allocOptions())
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return &Heap{region: r, a: a}, nil
}

// FromSnapshot creates a heap holding a copy of a snapshot's image, backed
// by the same kind of region New would pick. The heap may grow up to
// cfg.Capacity bytes.
func FromSnapshot(s *snapshot.Snapshot, cfg Config) (*Heap, error) {
	r, err := heap.New(cfg.regionConfig())
	if err != nil {
		return nil, err
	}
	a, err := s.RestoreInto(r, cfg.allocOptions())
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return &Heap{region: r, a: a}, nil
}

// Allocate reserves at least size bytes.
func (h *Heap) Allocate(size int) (Ptr, []byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.a == nil {
		return alloc.NilPtr, nil, ErrClosed
	}
	return h.a.Allocate(size)
}

// Release frees a pointer returned by Allocate.
func (h *Heap) Release(p Ptr) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.a == nil {
		return ErrClosed
	}
	return h.a.Release(p)
}

// Payload returns the current payload slice of a live pointer.
func (h *Heap) Payload(p Ptr) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.a == nil {
		return nil, ErrClosed
	}
	return h.a.Payload(p)
}

// SizeOf returns the usable size of a live pointer.
func (h *Heap) SizeOf(p Ptr) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.a == nil {
		return 0, ErrClosed
	}
	return h.a.SizeOf(p)
}

// Audit writes a dump of the heap to w.
func (h *Heap) Audit(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.a == nil {
		return ErrClosed
	}
	return h.a.Audit(w)
}

// Check verifies the heap invariants.
func (h *Heap) Check() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.a == nil {
		return ErrClosed
	}
	return h.a.Check()
}

// Stats returns allocator counters. A closed heap reports zero values.
func (h *Heap) Stats() alloc.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.a == nil {
		return alloc.Stats{}
	}
	return h.a.Stats()
}

// Snapshot captures the heap image and bookkeeping.
func (h *Heap) Snapshot(label string) (*snapshot.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.a == nil {
		return nil, ErrClosed
	}
	return snapshot.Capture(h.a, label), nil
}

// Close releases the heap memory. Outstanding payload slices become invalid.
func (h *Heap) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.a == nil {
		return nil
	}
	h.a = nil
	if h.region == nil {
		return nil
	}
	return h.region.Close()
}

package tralloc

import (
	"io"
	"sync"

	"github.com/joshuapare/tralloc/heap/alloc"
)

var (
	defaultOnce sync.Once
	defaultHeap *Heap
	defaultErr  error
)

// Default returns the process-wide heap, creating it from the environment on
// first use.
func Default() (*Heap, error) {
	defaultOnce.Do(func() {
		cfg, err := ConfigFromEnv()
		if err != nil {
			defaultErr = err
			return
		}
		defaultHeap, defaultErr = New(cfg)
	})
	return defaultHeap, defaultErr
}

// Allocate allocates from the default heap.
func Allocate(size int) (Ptr, []byte, error) {
	h, err := Default()
	if err != nil {
		return alloc.NilPtr, nil, err
	}
	return h.Allocate(size)
}

// Release frees a pointer from the default heap.
func Release(p Ptr) error {
	h, err := Default()
	if err != nil {
		return err
	}
	return h.Release(p)
}

// Audit dumps the default heap.
func Audit(w io.Writer) error {
	h, err := Default()
	if err != nil {
		return err
	}
	return h.Audit(w)
}

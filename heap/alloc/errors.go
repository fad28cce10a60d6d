package alloc

import "errors"

var (
	// ErrHeapExhausted indicates that no free chunk fits and the region could not grow.
	ErrHeapExhausted = errors.New("alloc: heap exhausted")

	// ErrSizeOverflow indicates a request whose chunk size cannot be represented.
	ErrSizeOverflow = errors.New("alloc: requested size out of range")

	// ErrBadPointer indicates a pointer that does not address a live chunk payload.
	ErrBadPointer = errors.New("alloc: bad pointer")

	// ErrDoubleFree indicates Release of a chunk that is already free.
	ErrDoubleFree = errors.New("alloc: chunk already free")

	// ErrCorrupt indicates a broken heap invariant found by Check or Restore.
	ErrCorrupt = errors.New("alloc: heap corrupt")

	// ErrRegionInUse indicates New was given a region that already holds data.
	ErrRegionInUse = errors.New("alloc: region not empty")
)

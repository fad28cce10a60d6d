// Package heap provides grow-only memory regions for the allocator.
//
// # Overview
//
// A Region is a contiguous byte range that can only grow at its end, the
// way a process break does. The allocator in heap/alloc keeps every chunk
// header, footer and free-tree node inside the region, so the region is
// the whole of the allocator's memory.
//
// # Implementations
//
// MappedRegion (unix): reserves the full capacity as PROT_NONE anonymous
// memory and commits pages with mprotect as the region grows. Slices handed
// out by Bytes() stay valid across growth because the mapping never moves.
//
// SliceRegion: a Go byte slice with a capacity limit. Growth may move the
// backing array, so payload slices taken before a Grow must be re-fetched.
// Used on platforms without mmap and for restoring snapshots.
//
// # Exhaustion
//
// Grow returns ErrExhausted once the capacity is reached or the OS refuses
// to commit more pages. The region is unchanged after a failed Grow.
package heap

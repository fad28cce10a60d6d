package alloc

import "log/slog"

// Ptr is the region offset of a chunk payload. Allocate never returns NilPtr.
type Ptr = uint64

// NilPtr is the zero Ptr.
const NilPtr Ptr = 0

// Options configures an Allocator.
type Options struct {
	// TrackLive keeps a bitmap of live payloads so Release and Payload can
	// reject pointers that were never returned by Allocate, even when their
	// bytes happen to look like a chunk header.
	TrackLive bool

	// Logger receives debug events for growth, splits and merges.
	// Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions is used when New or Restore is passed nil options.
var DefaultOptions = Options{
	TrackLive: true,
}

// Stats holds allocator counters and a census of the heap.
type Stats struct {
	AllocCalls       int   // Allocate calls that returned a chunk
	FreeCalls        int   // Release calls that freed a chunk
	FailedCalls      int   // Allocate or Release calls that returned an error
	GrowCalls        int   // Region growths (sentinel included)
	GrowBytes        int64 // Bytes added by growth
	ReuseHits        int   // Allocations served from the free tree
	SplitCount       int   // Free chunks split on allocation
	CoalesceBackward int   // Merges with a free predecessor
	CoalesceForward  int   // Merges with a free successor

	HeapBytes   int64 // Region bytes in use by the allocator (guard offset)
	Chunks      int   // Physical chunks, sentinel excluded
	InUseChunks int
	InUseBytes  int64 // Payload bytes of in-use chunks
	FreeChunks  int
	FreeBytes   int64 // Payload bytes of free chunks
	LargestFree int64
	TreeDepth   int // Longest root-to-leaf path, sentinel at depth 0
}

// ChunkInfo describes one physical chunk.
type ChunkInfo struct {
	Offset     int  // Header offset
	Size       int  // Header size field
	FooterSize int  // Footer size field
	InUse      bool
	Valid      bool // Tag word carries the chunk magic
}

// Payload returns the payload offset of the chunk.
func (c ChunkInfo) Payload() Ptr { return Ptr(c.Offset + headerPad) }

// NodeInfo describes one free-tree node.
type NodeInfo struct {
	Offset   int
	Size     int
	Parent   int // -1 when absent
	Left     int // -1 when absent
	Right    int // -1 when absent
	Depth    int
	Sentinel bool
}

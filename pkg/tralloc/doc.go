/*
Package tralloc provides a goroutine-safe heap on top of the tree allocator
in heap/alloc.

# Quick Start

Use the process-wide default heap:

	p, buf, err := tralloc.Allocate(128)
	if err != nil {
	    log.Fatal(err)
	}
	copy(buf, data)
	defer tralloc.Release(p)

Or create a private heap:

	h, err := tralloc.New(tralloc.Config{Capacity: 64 << 20})
	if err != nil {
	    log.Fatal(err)
	}
	defer h.Close()

# Pointers

Allocate returns a Ptr (the payload offset inside the heap region) and a
byte slice over the payload. On platforms with mmap the region never moves,
so the slice stays valid until the Ptr is released. Without mmap the region
is a Go slice and payload slices must be re-fetched with Payload after any
later Allocate.

# Environment

The default heap reads its configuration from the environment:

  - TRALLOC_CAPACITY: maximum heap size, e.g. "256MiB" (default 1GiB)
  - TRALLOC_LOG_ALLOC: when non-empty, log growth, splits and merges to stderr

# Diagnostics

Audit writes a full dump of chunks and the free tree, Check verifies every
structural invariant, and Stats returns counters suitable for the metrics
package.
*/
package tralloc

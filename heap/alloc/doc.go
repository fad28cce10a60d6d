// Package alloc implements a boundary-tagged heap allocator whose free chunks
// are indexed by an intrusive, size-keyed binary search tree.
//
// # Overview
//
// Every chunk in the region is laid out back to back:
//
//	+--------+--------+---------------------------+--------+
//	|  size  |  tag   |  payload (>= 24 bytes)    |  size  |
//	+--------+--------+---------------------------+--------+
//	 header (16 bytes)                             footer (8)
//
// The footer repeats the header size so release can step from any chunk to
// its physical predecessor. While a chunk is free, the first three payload
// words hold its tree links (parent, left, right) as offsets into the region.
//
// The tree is rooted at a permanent zero-size sentinel created by the first
// allocation at region offset 0. Since every request is at least one node,
// searches always descend past it and it is never handed out.
//
// # Allocation Policy
//
// Allocate walks the tree from the root, going right while the current chunk
// is too small, and takes the first chunk that fits. This is first fit along
// a single search path, not best fit: a smaller qualifying chunk in the left
// subtree is not looked for. When no chunk fits the region grows by exactly
// header + size + footer.
//
// A found chunk is split when it has at least header + footer + node bytes
// of slack; otherwise it is handed out whole.
//
// # Release and Coalescing
//
// Release merges the chunk with a free physical predecessor and then with a
// free successor before putting it back in the tree, so no two adjacent
// chunks are ever free at the same time.
//
// # Duplicate Sizes
//
// Equal sizes alternate between left and right subtrees on insertion, and
// two-child deletions alternate between predecessor and successor. Neither
// rebalances; tree depth is bounded only by the size distribution.
//
// # Usage Example
//
//	r, err := heap.New(heap.Config{Capacity: 64 << 20})
//	if err != nil {
//	    return err
//	}
//	a, err := alloc.New(r, nil)
//	if err != nil {
//	    return err
//	}
//
//	p, buf, err := a.Allocate(100)
//	if err != nil {
//	    return err
//	}
//	copy(buf, "hello")
//
//	err = a.Release(p)
//
// # Thread Safety
//
// Allocator instances are not thread-safe. The root tralloc package wraps an
// Allocator with a mutex for shared use.
package alloc

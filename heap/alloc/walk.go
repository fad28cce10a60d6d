package alloc

import (
	"fmt"

	"github.com/joshuapare/tralloc/internal/buf"
)

// Walk visits every physical chunk from the first chunk to the guard.
// It stops early when fn returns false and fails with a *CheckError when the
// chain does not land exactly on the guard.
func (a *Allocator) Walk(fn func(ChunkInfo) bool) error {
	if a.track.first == noChunk {
		return nil
	}
	m := a.img
	guard := a.track.guard
	for off := int(a.track.first); off != guard; {
		if !buf.Has(m, off, headerPad) {
			return &CheckError{Kind: "chain", Offset: off, Message: "header past guard"}
		}
		c := chunk(off)
		size := m.size(c)
		end, ok := buf.SumOverflowSafe(off, headerPad, size, footerPad)
		if !ok || size < 0 || end > guard {
			return &CheckError{Kind: "chain", Offset: off, Message: fmt.Sprintf("size %d overruns guard %#x", size, guard)}
		}
		info := ChunkInfo{
			Offset:     off,
			Size:       size,
			FooterSize: m.footerSize(c),
			InUse:      m.inUse(c),
			Valid:      validTag(m, c),
		}
		if !fn(info) {
			return nil
		}
		off = end
	}
	return nil
}

// WalkTree visits the free tree in pre-order, sentinel first.
func (a *Allocator) WalkTree(fn func(NodeInfo) bool) error {
	if a.tree.root == noChunk {
		return nil
	}
	type item struct {
		c     chunk
		depth int
	}
	m := a.img
	limit := a.maxNodes()
	stack := []item{{c: a.tree.root}}
	for visited := 0; len(stack) > 0; visited++ {
		if visited > limit {
			return &CheckError{Kind: "order", Offset: int(a.tree.root), Message: "free tree has a cycle"}
		}
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !a.nodeInBounds(it.c) {
			return &CheckError{Kind: "order", Offset: int(it.c), Message: "tree link outside heap"}
		}
		info := NodeInfo{
			Offset:   int(it.c),
			Size:     m.size(it.c),
			Parent:   int(m.parent(it.c)),
			Left:     int(m.left(it.c)),
			Right:    int(m.right(it.c)),
			Depth:    it.depth,
			Sentinel: it.c == a.tree.root,
		}
		if !fn(info) {
			return nil
		}
		if r := m.right(it.c); r != noChunk {
			stack = append(stack, item{r, it.depth + 1})
		}
		if l := m.left(it.c); l != noChunk {
			stack = append(stack, item{l, it.depth + 1})
		}
	}
	return nil
}

// Stats returns the counters plus a census of the current heap.
func (a *Allocator) Stats() Stats {
	s := a.stats
	s.HeapBytes = int64(a.track.guard)
	_ = a.Walk(func(ci ChunkInfo) bool {
		s.Chunks++
		if ci.InUse {
			s.InUseChunks++
			s.InUseBytes += int64(ci.Size)
			return true
		}
		s.FreeChunks++
		s.FreeBytes += int64(ci.Size)
		s.LargestFree = max(s.LargestFree, int64(ci.Size))
		return true
	})
	_ = a.WalkTree(func(ni NodeInfo) bool {
		s.TreeDepth = max(s.TreeDepth, ni.Depth)
		return true
	})
	return s
}

// maxNodes bounds how many tree nodes can exist in the current heap.
func (a *Allocator) maxNodes() int {
	return a.track.guard/(headerPad+nodePad) + 1
}

func (a *Allocator) nodeInBounds(c chunk) bool {
	return c >= 0 && buf.Has(a.img[:a.track.guard], int(c), headerPad+nodePad)
}

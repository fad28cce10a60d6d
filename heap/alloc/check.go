package alloc

import (
	"fmt"
	"math"

	"github.com/joshuapare/tralloc/internal/format"
)

// CheckError describes a broken heap invariant. It unwraps to ErrCorrupt.
type CheckError struct {
	Kind    string // chain, tag, boundary, adjacent, order, parent, census
	Offset  int    // chunk header offset, -1 when not tied to a chunk
	Message string
}

func (e *CheckError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("alloc: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("alloc: %s at %#x: %s", e.Kind, e.Offset, e.Message)
}

func (e *CheckError) Unwrap() error { return ErrCorrupt }

// Check verifies every structural invariant of the heap:
//   - header size equals footer size for every chunk, and the chain ends
//     exactly at the guard
//   - no two physically adjacent chunks are both free
//   - the free tree is ordered by size (left <= node <= right) and every
//     parent link points at the real parent
//   - the free tree holds exactly the free chunks of the chain
//   - the live set, when tracked, matches the in-use chunks
func (a *Allocator) Check() error {
	if a.tree.root == noChunk {
		if a.track.guard != 0 || a.track.first != noChunk {
			return &CheckError{Kind: "census", Offset: -1, Message: "heap has bytes but no sentinel"}
		}
		return nil
	}
	m := a.img
	if !a.nodeInBounds(a.tree.root) || m.size(a.tree.root) != 0 || m.parent(a.tree.root) != noChunk || m.inUse(a.tree.root) {
		return &CheckError{Kind: "order", Offset: int(a.tree.root), Message: "sentinel root damaged"}
	}

	free := make(map[int]struct{})
	inUse := 0
	prevFree := false
	var fail error
	err := a.Walk(func(ci ChunkInfo) bool {
		switch {
		case !ci.Valid:
			fail = &CheckError{Kind: "tag", Offset: ci.Offset, Message: "missing chunk magic"}
		case ci.Size != ci.FooterSize:
			fail = &CheckError{Kind: "boundary", Offset: ci.Offset, Message: fmt.Sprintf("header size %d != footer size %d", ci.Size, ci.FooterSize)}
		case ci.Size < nodePad || !format.IsWordAligned(ci.Size):
			fail = &CheckError{Kind: "boundary", Offset: ci.Offset, Message: fmt.Sprintf("bad payload size %d", ci.Size)}
		case !ci.InUse && prevFree:
			fail = &CheckError{Kind: "adjacent", Offset: ci.Offset, Message: "free chunk follows a free chunk"}
		}
		if fail != nil {
			return false
		}
		if ci.InUse {
			inUse++
		} else {
			free[ci.Offset] = struct{}{}
		}
		prevFree = !ci.InUse
		return true
	})
	if err != nil {
		return err
	}
	if fail != nil {
		return fail
	}

	nodes, err := a.checkTree(free)
	if err != nil {
		return err
	}
	if nodes != len(free) {
		return &CheckError{Kind: "census", Offset: -1, Message: fmt.Sprintf("tree holds %d chunks, chain has %d free", nodes, len(free))}
	}
	if a.live != nil && a.live.count() != uint64(inUse) {
		return &CheckError{Kind: "census", Offset: -1, Message: fmt.Sprintf("live set holds %d, chain has %d in use", a.live.count(), inUse)}
	}
	return nil
}

// checkTree walks the tree carrying the size bounds each subtree must obey.
// It returns the number of non-sentinel nodes.
func (a *Allocator) checkTree(free map[int]struct{}) (int, error) {
	type item struct {
		c      chunk
		lo, hi int
	}
	m := a.img
	seen := make(map[chunk]struct{})
	stack := []item{{c: a.tree.root, lo: 0, hi: math.MaxInt}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := it.c
		if _, dup := seen[c]; dup {
			return 0, &CheckError{Kind: "order", Offset: int(c), Message: "free tree reaches a node twice"}
		}
		seen[c] = struct{}{}
		size := m.size(c)
		if size < it.lo || size > it.hi {
			return 0, &CheckError{Kind: "order", Offset: int(c), Message: fmt.Sprintf("size %d outside [%d, %d]", size, it.lo, it.hi)}
		}
		if c != a.tree.root {
			if _, ok := free[int(c)]; !ok {
				return 0, &CheckError{Kind: "census", Offset: int(c), Message: "tree node is not a free chunk of the chain"}
			}
		}
		for _, child := range []struct {
			c      chunk
			lo, hi int
		}{
			{m.left(c), it.lo, size},
			{m.right(c), size, it.hi},
		} {
			if child.c == noChunk {
				continue
			}
			if !a.nodeInBounds(child.c) {
				return 0, &CheckError{Kind: "order", Offset: int(c), Message: fmt.Sprintf("child link %#x outside heap", int(child.c))}
			}
			if got := m.parent(child.c); got != c {
				return 0, &CheckError{Kind: "parent", Offset: int(child.c), Message: fmt.Sprintf("parent link %#x, want %#x", int(got), int(c))}
			}
			stack = append(stack, item{child.c, child.lo, child.hi})
		}
	}
	return len(seen) - 1, nil
}

func validTag(m image, c chunk) bool { return format.TagValid(m.tag(c)) }

package alloc

import "github.com/joshuapare/tralloc/internal/format"

// freeTree holds the root of the intrusive size-keyed tree and the two
// alternating flags that spread duplicates and deletions across both sides.
type freeTree struct {
	root chunk

	// equalsLeft sends the next equal-size insertion left; flips on every tie.
	equalsLeft bool
	// predecessor picks the in-order predecessor for the next two-child
	// removal; flips before every use.
	predecessor bool
}

// insert adds a free chunk below the root. Equal sizes alternate sides.
func (a *Allocator) insert(c chunk) {
	m := a.img
	m.setInUse(c, false)
	m.setLeft(c, noChunk)
	m.setRight(c, noChunk)

	size := m.size(c)
	cur := a.tree.root
	for {
		slot := format.RightOffset
		switch cs := m.size(cur); {
		case size < cs:
			slot = format.LeftOffset
		case size > cs:
		default:
			if a.tree.equalsLeft {
				slot = format.LeftOffset
			}
			a.tree.equalsLeft = !a.tree.equalsLeft
		}
		child := m.link(cur, slot)
		if child == noChunk {
			m.setLink(cur, slot, c)
			m.setParent(c, cur)
			return
		}
		cur = child
	}
}

// takeFit removes and returns the first chunk on the right spine search path
// whose size is at least size, or noChunk.
func (a *Allocator) takeFit(size int) chunk {
	m := a.img
	cur := a.tree.root
	for cur != noChunk {
		if m.size(cur) < size {
			cur = m.right(cur)
			continue
		}
		a.unlink(cur)
		return cur
	}
	return noChunk
}

// unlink removes c from the tree using its parent link. c must be in the
// tree and must not be the root.
func (a *Allocator) unlink(c chunk) {
	m := a.img
	left, right := m.left(c), m.right(c)
	if left == noChunk || right == noChunk {
		a.splice(c)
		return
	}

	parent := m.parent(c)
	slot := childSlot(m, parent, c)

	rep := a.replacement(c)
	// rep has at most one child, so splice finishes it.
	a.splice(rep)

	// Splicing rep may have rewritten c's links when rep was c's child.
	left, right = m.left(c), m.right(c)
	m.setParent(rep, parent)
	m.setLeft(rep, left)
	m.setRight(rep, right)
	m.setLink(parent, slot, rep)
	if right != noChunk {
		m.setParent(right, rep)
	}
	if left != noChunk {
		m.setParent(left, rep)
	}
}

// splice removes a node with at most one child by lifting the child into
// its slot.
func (a *Allocator) splice(c chunk) {
	m := a.img
	parent := m.parent(c)
	slot := childSlot(m, parent, c)

	child := m.left(c)
	if child == noChunk {
		child = m.right(c)
	}
	m.setLink(parent, slot, child)
	if child != noChunk {
		m.setParent(child, parent)
	}
}

// replacement alternates between the largest node of the left subtree and
// the smallest node of the right subtree. c has both children.
func (a *Allocator) replacement(c chunk) chunk {
	m := a.img
	a.tree.predecessor = !a.tree.predecessor
	if a.tree.predecessor {
		cur := m.left(c)
		for r := m.right(cur); r != noChunk; r = m.right(cur) {
			cur = r
		}
		return cur
	}
	cur := m.right(c)
	for l := m.left(cur); l != noChunk; l = m.left(cur) {
		cur = l
	}
	return cur
}

func childSlot(m image, parent, c chunk) int {
	if m.left(parent) == c {
		return format.LeftOffset
	}
	return format.RightOffset
}

package alloc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tralloc/internal/format"
)

// corruptedHeap returns an allocator holding in-use chunk a, free chunk b and
// in-use chunk c, in that physical order.
func corruptedHeap(t *testing.T) (alloc *Allocator, a, b, c Ptr) {
	t.Helper()
	alloc = newTestAllocator(t)
	a = mustAlloc(t, alloc, 32)
	b = mustAlloc(t, alloc, 32)
	c = mustAlloc(t, alloc, 32)
	mustRelease(t, alloc, b)
	return alloc, a, b, c
}

func requireCheckKind(t *testing.T, a *Allocator, kind string) *CheckError {
	t.Helper()
	err := a.Check()
	require.ErrorIs(t, err, ErrCorrupt)
	var ce *CheckError
	require.True(t, errors.As(err, &ce), "want *CheckError, got %T", err)
	assert.Equal(t, kind, ce.Kind, ce.Error())
	return ce
}

func TestCheck_EmptyHeap(t *testing.T) {
	a := newTestAllocator(t)
	require.NoError(t, a.Check())
}

func TestCheck_FooterMismatch(t *testing.T) {
	a, pa, _, _ := corruptedHeap(t)
	format.PutU64(a.Image(), int(pa)+32, 40)

	ce := requireCheckKind(t, a, "boundary")
	assert.Equal(t, hdr(pa), ce.Offset)
}

func TestCheck_MissingMagic(t *testing.T) {
	a, _, _, pc := corruptedHeap(t)
	format.PutU64(a.Image(), hdr(pc)+format.TagOffset, 1)

	ce := requireCheckKind(t, a, "tag")
	assert.Equal(t, hdr(pc), ce.Offset)
}

func TestCheck_AdjacentFree(t *testing.T) {
	a, _, _, pc := corruptedHeap(t)
	format.PutU64(a.Image(), hdr(pc)+format.TagOffset, format.Tag(false))

	requireCheckKind(t, a, "adjacent")
}

func TestCheck_BrokenParentLink(t *testing.T) {
	a, pa, pb, _ := corruptedHeap(t)
	format.PutU64(a.Image(), int(pb)+format.ParentOffset, uint64(hdr(pa)))

	ce := requireCheckKind(t, a, "parent")
	assert.Equal(t, hdr(pb), ce.Offset)
}

func TestCheck_TreeOrder(t *testing.T) {
	a := newTestAllocator(t)
	ptrs := allocSeparated(t, a, 40, 80)
	mustRelease(t, a, ptrs[1])
	mustRelease(t, a, ptrs[0])

	// Move 40 from the left of 80 to its right.
	img := a.Image()
	format.PutU64(img, int(ptrs[1])+format.LeftOffset, format.NilLink)
	format.PutU64(img, int(ptrs[1])+format.RightOffset, uint64(hdr(ptrs[0])))

	ce := requireCheckKind(t, a, "order")
	assert.Equal(t, hdr(ptrs[0]), ce.Offset)
}

func TestCheck_TreeCycle(t *testing.T) {
	a, _, pb, _ := corruptedHeap(t)
	// b's left points back at the sentinel, whose parent link is nil.
	format.PutU64(a.Image(), int(pb)+format.LeftOffset, 0)

	err := a.Check()
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestCheck_FreeChunkMissingFromTree(t *testing.T) {
	a, _, _, _ := corruptedHeap(t)
	// Detach the only free chunk from the sentinel.
	format.PutU64(a.Image(), format.HeaderSize+format.RightOffset, format.NilLink)

	ce := requireCheckKind(t, a, "census")
	assert.Equal(t, -1, ce.Offset)
}

func TestCheck_LiveSetMismatch(t *testing.T) {
	a, pa, _, _ := corruptedHeap(t)
	a.live.remove(pa)

	requireCheckKind(t, a, "census")
}

func TestCheck_ChainOverrun(t *testing.T) {
	a, _, _, pc := corruptedHeap(t)
	format.PutU64(a.Image(), hdr(pc), 1<<20)

	requireCheckKind(t, a, "chain")
}

package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tralloc/internal/format"
)

// freeChunkOf leaves exactly one free chunk of the given size followed by an
// in-use chunk, and returns its payload.
func freeChunkOf(t *testing.T, size int) (*Allocator, Ptr) {
	t.Helper()
	a := newTestAllocator(t)
	ptrs := allocSeparated(t, a, size)
	mustRelease(t, a, ptrs[0])
	return a, ptrs[0]
}

func TestSplit_BelowThresholdTakesWholeChunk(t *testing.T) {
	// 64 + 40 is the largest word-aligned size below 64 + 48.
	a, free := freeChunkOf(t, 64+40)

	p := mustAlloc(t, a, 64)
	assert.Equal(t, free, p)
	size, err := a.SizeOf(p)
	require.NoError(t, err)
	assert.Equal(t, 104, size, "whole chunk handed out")
	assert.Empty(t, freeChunks(t, a))
	assert.Zero(t, a.Stats().SplitCount)
}

func TestSplit_AtThresholdLeavesMinimalRemainder(t *testing.T) {
	a, free := freeChunkOf(t, 64+format.SplitOverhead)

	p := mustAlloc(t, a, 64)
	assert.Equal(t, free, p)
	size, err := a.SizeOf(p)
	require.NoError(t, err)
	assert.Equal(t, 64, size)

	rest := freeChunks(t, a)
	require.Len(t, rest, 1)
	assert.Equal(t, format.NodeSize, rest[0].Size, "remainder is exactly one node")
	assert.Equal(t, hdr(p)+headerPad+64+footerPad, rest[0].Offset)
	assert.Equal(t, 1, a.Stats().SplitCount)
}

func TestSplit_AboveThreshold(t *testing.T) {
	a, free := freeChunkOf(t, 64+56)

	p := mustAlloc(t, a, 64)
	assert.Equal(t, free, p)

	rest := freeChunks(t, a)
	require.Len(t, rest, 1)
	assert.Equal(t, 32, rest[0].Size, "120 - 64 - 24")

	nodes := treeNodes(t, a)
	assert.Equal(t, rest[0].Offset, nodes[0].Right)
}

func TestSplit_RemainderReusable(t *testing.T) {
	a, _ := freeChunkOf(t, 256)
	mustAlloc(t, a, 64)
	guard := a.State().Guard

	// 256 - 64 - 24 = 168 remain; a 160-byte request fits without growth.
	mustAlloc(t, a, 160)
	assert.Equal(t, guard, a.State().Guard)
}

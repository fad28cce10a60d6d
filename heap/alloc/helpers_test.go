package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tralloc/heap"
	"github.com/joshuapare/tralloc/internal/format"
)

const testCapacity = 1 << 20

// newTestAllocator creates an allocator over a slice region so offsets are
// deterministic: the sentinel occupies [0, 40) and the first chunk starts at 40.
func newTestAllocator(t testing.TB) *Allocator {
	t.Helper()
	return newTestAllocatorWithCapacity(t, testCapacity)
}

func newTestAllocatorWithCapacity(t testing.TB, capacity int) *Allocator {
	t.Helper()
	a, err := New(heap.NewSlice(capacity), nil)
	require.NoError(t, err)
	return a
}

// mustAlloc allocates and checks invariants.
func mustAlloc(t testing.TB, a *Allocator, size int) Ptr {
	t.Helper()
	p, payload, err := a.Allocate(size)
	require.NoError(t, err, "Allocate(%d)", size)
	require.NotEqual(t, NilPtr, p)
	require.GreaterOrEqual(t, len(payload), size)
	assertInvariants(t, a)
	return p
}

// mustRelease releases and checks invariants.
func mustRelease(t testing.TB, a *Allocator, p Ptr) {
	t.Helper()
	require.NoError(t, a.Release(p), "Release(%#x)", p)
	assertInvariants(t, a)
}

// assertInvariants runs the full structural check.
func assertInvariants(t testing.TB, a *Allocator) {
	t.Helper()
	require.NoError(t, a.Check())
}

// allocSeparated allocates each size followed by a minimal in-use separator,
// so releasing the sized chunks never coalesces them.
func allocSeparated(t testing.TB, a *Allocator, sizes ...int) []Ptr {
	t.Helper()
	ptrs := make([]Ptr, len(sizes))
	for i, sz := range sizes {
		ptrs[i] = mustAlloc(t, a, sz)
		mustAlloc(t, a, format.NodeSize)
	}
	return ptrs
}

// treeNodes returns the free tree keyed by header offset.
func treeNodes(t testing.TB, a *Allocator) map[int]NodeInfo {
	t.Helper()
	nodes := make(map[int]NodeInfo)
	require.NoError(t, a.WalkTree(func(ni NodeInfo) bool {
		nodes[ni.Offset] = ni
		return true
	}))
	return nodes
}

// freeChunks returns the free chunks of the physical chain.
func freeChunks(t testing.TB, a *Allocator) []ChunkInfo {
	t.Helper()
	var out []ChunkInfo
	require.NoError(t, a.Walk(func(ci ChunkInfo) bool {
		if !ci.InUse {
			out = append(out, ci)
		}
		return true
	}))
	return out
}

// hdr converts a payload pointer to its header offset.
func hdr(p Ptr) int { return int(p) - format.HeaderSize }

package alloc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tralloc/internal/format"
)

func TestAudit_Empty(t *testing.T) {
	a := newTestAllocator(t)
	var out bytes.Buffer
	require.NoError(t, a.Audit(&out))

	want := strings.Join([]string{
		"audit begin",
		"root: nil",
		"first_chunk: nil",
		"guard: 0x0",
		"header_pad: 16",
		"footer_pad: 8",
		"node_pad: 24",
		"audit end",
		"",
	}, "\n")
	assert.Equal(t, want, out.String())
}

func TestAudit_ChunksAndTree(t *testing.T) {
	a := newTestAllocator(t)
	_, payload, err := a.Allocate(24)
	require.NoError(t, err)
	format.PutU64(payload, 0, 0xdeadbeef)
	pb := mustAlloc(t, a, 24)
	mustAlloc(t, a, 24)
	mustRelease(t, a, pb)

	var out bytes.Buffer
	require.NoError(t, a.Audit(&out))
	s := out.String()

	assert.True(t, strings.HasPrefix(s, "audit begin\nroot: 0x0\nfirst_chunk: 0x28\n"))
	assert.True(t, strings.HasSuffix(s, ")\naudit end\n"))
	assert.Contains(t, s, "guard: 0xb8\n")
	assert.Contains(t, s, "    chunk: 0x28\n    chunk.size: 24\n    chunk.in_use: 1\n")
	assert.Contains(t, s, "deadbeef\n")
	assert.Contains(t, s, "    chunk: 0x58\n    chunk.size: 24\n    chunk.in_use: 0\n")
	assert.Contains(t, s, "    node.parent: 0x0\n    node.left: nil\n    node.right: nil\n")
	assert.Equal(t, 3, strings.Count(s, "footer.size: 24\n"))

	// Tree: the sentinel and one nested node.
	assert.Contains(t, s, "(chunk: 0x0,\nchunk.size: 0,\n")
	assert.Contains(t, s, "    (chunk: 0x58,\n")
	assert.Equal(t, 2, strings.Count(s, "(chunk:"))
}

func TestAudit_DoesNotMutate(t *testing.T) {
	a := newTestAllocator(t)
	ptrs := allocSeparated(t, a, 40, 80, 120, 40)
	for _, p := range ptrs {
		mustRelease(t, a, p)
	}
	img := bytes.Clone(a.Image())
	st := a.State()
	stats := a.Stats()

	var out bytes.Buffer
	require.NoError(t, a.Audit(&out))

	assert.Equal(t, img, a.Image())
	assert.Equal(t, st, a.State())
	assert.Equal(t, stats, a.Stats())
}

func TestAudit_ReportsBrokenTree(t *testing.T) {
	a := newTestAllocator(t)
	p := mustAlloc(t, a, 32)
	mustAlloc(t, a, 32)
	mustRelease(t, a, p)

	// Point the free node's right link back at itself.
	format.PutU64(a.Image(), int(p)+format.RightOffset, uint64(hdr(p)))

	var out bytes.Buffer
	require.NoError(t, a.Audit(&out))
	assert.Contains(t, out.String(), "tree error:")
	assert.True(t, strings.HasSuffix(out.String(), "audit end\n"))
}

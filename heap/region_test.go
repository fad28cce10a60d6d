package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// regionsUnderTest returns one region of each kind with the given capacity.
func regionsUnderTest(t *testing.T, capacity int) map[string]Region {
	t.Helper()
	mapped, err := NewMapped(capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mapped.Close() })
	return map[string]Region{
		"slice":  NewSlice(capacity),
		"mapped": mapped,
	}
}

func TestRegionGrowIsContiguous(t *testing.T) {
	for name, r := range regionsUnderTest(t, 1<<20) {
		t.Run(name, func(t *testing.T) {
			off, err := r.Grow(40)
			require.NoError(t, err)
			assert.Equal(t, 0, off)

			off, err = r.Grow(88)
			require.NoError(t, err)
			assert.Equal(t, 40, off, "second growth starts at previous top")
			assert.Equal(t, 128, r.Len())
			assert.Len(t, r.Bytes(), 128)

			// New bytes are writable and zeroed.
			b := r.Bytes()
			for i := 40; i < 128; i++ {
				require.Zero(t, b[i])
			}
			b[127] = 0xff
			assert.Equal(t, byte(0xff), r.Bytes()[127])
		})
	}
}

func TestRegionExhaustion(t *testing.T) {
	for name, r := range regionsUnderTest(t, 4096) {
		t.Run(name, func(t *testing.T) {
			limit := r.Cap()
			_, err := r.Grow(limit - 8)
			require.NoError(t, err)

			before := r.Len()
			_, err = r.Grow(16)
			require.ErrorIs(t, err, ErrExhausted)
			assert.Equal(t, before, r.Len(), "failed growth leaves region unchanged")

			_, err = r.Grow(8)
			require.NoError(t, err, "exactly filling the region is allowed")
		})
	}
}

func TestRegionRejectsNegativeGrow(t *testing.T) {
	for name, r := range regionsUnderTest(t, 4096) {
		t.Run(name, func(t *testing.T) {
			_, err := r.Grow(-1)
			require.ErrorIs(t, err, ErrBadGrow)
		})
	}
}

func TestRegionClosed(t *testing.T) {
	for name, r := range regionsUnderTest(t, 4096) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, r.Close())
			_, err := r.Grow(8)
			require.ErrorIs(t, err, ErrClosed)
			require.NoError(t, r.Close(), "double close is a no-op")
		})
	}
}

func TestMappedRegionBytesStableAcrossGrowth(t *testing.T) {
	r, err := NewMapped(1 << 20)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Grow(64)
	require.NoError(t, err)
	early := r.Bytes()
	early[0] = 0x5a

	_, err = r.Grow(256 << 10)
	require.NoError(t, err)
	assert.Equal(t, byte(0x5a), r.Bytes()[0])
	assert.Same(t, &early[0], &r.Bytes()[0], "mapping must not move")
}

func TestFromBytes(t *testing.T) {
	img := []byte{1, 2, 3, 4}
	r := FromBytes(img, 2)
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 4, r.Cap(), "limit raised to image length")

	r = FromBytes(img, 16)
	off, err := r.Grow(8)
	require.NoError(t, err)
	assert.Equal(t, 4, off)
	assert.Equal(t, []byte{1, 2, 3, 4}, r.Bytes()[:4])
}

func TestNewConfig(t *testing.T) {
	r, err := New(Config{Capacity: 8192, ForceSlice: true})
	require.NoError(t, err)
	_, ok := r.(*SliceRegion)
	assert.True(t, ok)
	assert.Equal(t, 8192, r.Cap())

	r, err = New(Config{ForceSlice: true})
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity, r.Cap())
}

func TestParseCapacity(t *testing.T) {
	n, err := ParseCapacity("64MiB")
	require.NoError(t, err)
	assert.Equal(t, 64<<20, n)

	n, err = ParseCapacity("4096")
	require.NoError(t, err)
	assert.Equal(t, 4096, n)

	_, err = ParseCapacity("lots")
	require.Error(t, err)
}

package tralloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		t.Setenv(EnvCapacity, "")
		t.Setenv(EnvLogAlloc, "")
		cfg, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.Zero(t, cfg.Capacity)
		assert.Nil(t, cfg.Logger)
	})
	t.Run("capacity", func(t *testing.T) {
		t.Setenv(EnvCapacity, "64MiB")
		cfg, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, 64<<20, cfg.Capacity)
	})
	t.Run("bad capacity", func(t *testing.T) {
		t.Setenv(EnvCapacity, "lots")
		_, err := ConfigFromEnv()
		require.ErrorContains(t, err, EnvCapacity)
	})
	t.Run("logging", func(t *testing.T) {
		t.Setenv(EnvLogAlloc, "1")
		cfg, err := ConfigFromEnv()
		require.NoError(t, err)
		require.NotNil(t, cfg.Logger)
	})
}

func TestConfig_SkipLiveCheck(t *testing.T) {
	assert.True(t, Config{}.allocOptions().TrackLive)
	assert.False(t, Config{SkipLiveCheck: true}.allocOptions().TrackLive)
}

func TestDefaultHeap(t *testing.T) {
	t.Setenv(EnvCapacity, "16MiB")
	t.Setenv(EnvLogAlloc, "")

	h1, err := Default()
	require.NoError(t, err)
	h2, err := Default()
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	p, buf, err := Allocate(40)
	require.NoError(t, err)
	copy(buf, "default")

	var out bytes.Buffer
	require.NoError(t, Audit(&out))
	assert.Contains(t, out.String(), "audit end")

	require.NoError(t, Release(p))
	require.NoError(t, h1.Check())
}

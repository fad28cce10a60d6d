package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWorkload = `
capacity: 4MiB
steps:
  - {op: alloc, name: a, size: 32}
  - {op: alloc, name: b, size: 32}
  - {op: alloc, name: c, size: 32}
  - {op: alloc, name: big, size: 4096}
  - {op: write, name: b, data: "tralloc!"}
  - {op: free, name: a}
  - {op: free, name: c}
  - {op: check}
`

func TestRunCommand_SnapshotAndInspect(t *testing.T) {
	wl := writeWorkload(t, "sample.yaml", sampleWorkload)
	snap := filepath.Join(t.TempDir(), "sample.trs")

	out, err := runCLI(t, "run", wl, "--snapshot", snap, "--codec", "lz4")
	require.NoError(t, err)
	assert.Contains(t, out, "check: ok")
	assert.Contains(t, out, "snapshot written to "+snap)

	out, err = runCLI(t, "verify", snap)
	require.NoError(t, err)
	assert.Equal(t, "ok: 4 chunks, 2 free\n", out)

	out, err = runCLI(t, "audit", snap)
	require.NoError(t, err)
	assert.Contains(t, out, "audit begin")
	assert.Contains(t, out, "0x21636f6c6c617274", "payload word of \"tralloc!\"")

	out, err = runCLI(t, "stats", snap, "--json")
	require.NoError(t, err)
	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.EqualValues(t, 2, st["InUseChunks"])
	assert.EqualValues(t, 2, st["FreeChunks"])
}

func TestRunCommand_ArchiveAndMetrics(t *testing.T) {
	wl := writeWorkload(t, "nightly.yaml", sampleWorkload)
	db := filepath.Join(t.TempDir(), "snaps.db")

	out, err := runCLI(t, "run", wl, "--archive", db, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, `archived as "nightly"`)
	assert.Contains(t, out, "tralloc_alloc_calls_total 4")
	assert.Contains(t, out, `tralloc_chunks{state="free"} 2`)

	out, err = runCLI(t, "archive", "ls", db)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "nightly")
	assert.Contains(t, out, "zstd")

	out, err = runCLI(t, "archive", "show", db, "nightly")
	require.NoError(t, err)
	assert.Contains(t, out, "label: nightly")

	out, err = runCLI(t, "verify", "--archive", db, "nightly")
	require.NoError(t, err)
	assert.Contains(t, out, "ok:")

	_, err = runCLI(t, "archive", "rm", db, "nightly")
	require.NoError(t, err)
	_, err = runCLI(t, "archive", "show", db, "nightly")
	require.ErrorContains(t, err, "not found")
}

func TestArchivePutCommand(t *testing.T) {
	wl := writeWorkload(t, "w.yaml", sampleWorkload)
	dir := t.TempDir()
	snap := filepath.Join(dir, "w.trs")
	db := filepath.Join(dir, "snaps.db")

	_, err := runCLI(t, "run", wl, "--snapshot", snap)
	require.NoError(t, err)
	_, err = runCLI(t, "archive", "put", db, "imported", snap, "--codec", "none")
	require.NoError(t, err)

	out, err := runCLI(t, "archive", "ls", db, "--json")
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "imported", entries[0]["Name"])
}

func TestVerifyCommand_Corrupt(t *testing.T) {
	wl := writeWorkload(t, "w.yaml", sampleWorkload)
	snap := filepath.Join(t.TempDir(), "w.trs")
	_, err := runCLI(t, "run", wl, "--snapshot", snap, "--codec", "none")
	require.NoError(t, err)

	// The last image byte is the top byte of the last footer.
	b, err := os.ReadFile(snap)
	require.NoError(t, err)
	b[len(b)-1] ^= 0xff
	require.NoError(t, os.WriteFile(snap, b, 0o644))

	_, err = runCLI(t, "verify", snap)
	require.ErrorContains(t, err, "verify")
}

func TestRootConfig_EnvAndFile(t *testing.T) {
	wl := writeWorkload(t, "w.yaml", "steps:\n  - {op: alloc, name: a, size: 8192}\n")

	// Mapped regions round capacity up to a page, so 16 bytes still cannot hold 8KiB.
	t.Setenv("TRALLOC_CAPACITY", "16")
	_, err := runCLI(t, "run", wl)
	require.ErrorContains(t, err, "exhausted")

	t.Setenv("TRALLOC_CAPACITY", "")
	cfgFile := filepath.Join(t.TempDir(), "tralloc.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("log-level: bogus\n"), 0o644))
	_, err = runCLI(t, "--config", cfgFile, "version")
	require.ErrorContains(t, err, "invalid log level")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trallocctl dev")
}

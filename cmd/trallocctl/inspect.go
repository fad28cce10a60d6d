package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tralloc/heap/alloc"
	"github.com/joshuapare/tralloc/heap/snapshot"
)

// snapshotSource names where inspect commands read snapshots from.
type snapshotSource struct {
	archive string
}

func (src *snapshotSource) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&src.archive, "archive", "", "Read the snapshot from this archive (argument is the entry name)")
}

func (src *snapshotSource) load(arg string) (*snapshot.Snapshot, error) {
	if src.archive == "" {
		return snapshot.Open(arg)
	}
	ar, err := snapshot.OpenArchive(src.archive)
	if err != nil {
		return nil, err
	}
	defer ar.Close()
	return ar.Get(arg)
}

// restore loads a snapshot and rebuilds its allocator, which runs the full
// invariant check.
func (src *snapshotSource) restore(cfg *rootConfig, arg string) (*snapshot.Snapshot, *alloc.Allocator, error) {
	s, err := src.load(arg)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.Restore(0, cfg.allocOptions())
	if err != nil {
		return s, nil, err
	}
	return s, a, nil
}

func newAuditCmd(cfg *rootConfig) *cobra.Command {
	var src snapshotSource
	cmd := &cobra.Command{
		Use:   "audit <snapshot>",
		Short: "Dump every chunk and the free tree of a snapshot",
		Long: `The audit command prints the heap globals, every physical chunk with its
tag, size, payload words or tree links, and the free tree as nested
parentheses.

Example:
  trallocctl audit heap.trs
  trallocctl audit --archive snaps.db nightly`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := src.restore(cfg, args[0])
			if err != nil {
				return err
			}
			return a.Audit(cmd.OutOrStdout())
		},
	}
	src.addFlags(cmd)
	return cmd
}

func newVerifyCmd(cfg *rootConfig) *cobra.Command {
	var src snapshotSource
	cmd := &cobra.Command{
		Use:   "verify <snapshot>",
		Short: "Check every heap invariant of a snapshot",
		Long: `The verify command restores a snapshot and checks boundary tags, chunk
adjacency, free tree ordering and parent links, and that the free tree holds
exactly the free chunks.

Example:
  trallocctl verify heap.trs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, a, err := src.restore(cfg, args[0])
			if err != nil {
				return fmt.Errorf("verify %s: %w", args[0], err)
			}
			st := a.Stats()
			if cfg.JSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"ok":     true,
					"label":  s.Meta.Label,
					"chunks": st.Chunks,
					"free":   st.FreeChunks,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d chunks, %d free\n", st.Chunks, st.FreeChunks)
			return nil
		},
	}
	src.addFlags(cmd)
	return cmd
}

func newStatsCmd(cfg *rootConfig) *cobra.Command {
	var src snapshotSource
	cmd := &cobra.Command{
		Use:   "stats <snapshot>",
		Short: "Show heap statistics of a snapshot",
		Long: `The stats command shows the chunk census of a snapshot: chunk counts,
payload bytes in use and free, the largest free chunk and the free tree depth.

Example:
  trallocctl stats heap.trs --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := src.restore(cfg, args[0])
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), a.Stats(), cfg.JSON)
		},
	}
	src.addFlags(cmd)
	return cmd
}

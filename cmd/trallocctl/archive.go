package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/tralloc/heap/snapshot"
)

func newArchiveCmd(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage a snapshot archive",
	}
	cmd.AddCommand(newArchiveLsCmd(cfg), newArchiveShowCmd(cfg), newArchivePutCmd(), newArchiveRmCmd())
	return cmd
}

func withArchive(path string, fn func(*snapshot.Archive) error) error {
	ar, err := snapshot.OpenArchive(path)
	if err != nil {
		return err
	}
	defer ar.Close()
	return fn(ar)
}

func newArchiveLsCmd(cfg *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <archive>",
		Short: "List archived snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(args[0], func(ar *snapshot.Archive) error {
				entries, err := ar.List()
				if err != nil {
					return err
				}
				if cfg.JSON {
					return printJSON(cmd.OutOrStdout(), entries)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tSIZE\tHEAP\tCODEC\tCREATED\tLABEL")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						e.Name,
						humanize.IBytes(uint64(e.Size)),
						humanize.IBytes(e.Meta.RawSize),
						e.Meta.Codec,
						humanize.Time(e.Meta.CreatedAt()),
						e.Meta.Label)
				}
				return tw.Flush()
			})
		},
	}
}

func newArchiveShowCmd(cfg *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show <archive> <name>",
		Short: "Show metadata and statistics of an archived snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(args[0], func(ar *snapshot.Archive) error {
				s, err := ar.Get(args[1])
				if err != nil {
					return err
				}
				a, err := s.Restore(0, cfg.allocOptions())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if cfg.JSON {
					return printJSON(out, map[string]any{"meta": s.Meta, "stats": a.Stats()})
				}
				fmt.Fprintf(out, "name: %s\n", args[1])
				fmt.Fprintf(out, "label: %s\n", s.Meta.Label)
				fmt.Fprintf(out, "created: %s\n", s.Meta.CreatedAt().Format("2006-01-02 15:04:05 MST"))
				fmt.Fprintf(out, "codec: %s\n", s.Meta.Codec)
				return printStats(out, a.Stats(), false)
			})
		},
	}
}

func newArchivePutCmd() *cobra.Command {
	var codecName string
	cmd := &cobra.Command{
		Use:   "put <archive> <name> <snapshot>",
		Short: "Import a snapshot file into an archive",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := snapshot.ParseCodec(codecName)
			if err != nil {
				return err
			}
			s, err := snapshot.Open(args[2])
			if err != nil {
				return err
			}
			return withArchive(args[0], func(ar *snapshot.Archive) error {
				return ar.Put(args[1], s, codec)
			})
		},
	}
	cmd.Flags().StringVar(&codecName, "codec", "zstd", "Compression: none, lz4 or zstd")
	return cmd
}

func newArchiveRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <archive> <name>",
		Short: "Delete an archived snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(args[0], func(ar *snapshot.Archive) error {
				return ar.Delete(args[1])
			})
		},
	}
}

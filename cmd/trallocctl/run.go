package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/joshuapare/tralloc/heap"
	"github.com/joshuapare/tralloc/heap/snapshot"
	"github.com/joshuapare/tralloc/metrics"
	"github.com/joshuapare/tralloc/pkg/tralloc"
)

type runFlags struct {
	snapshot string
	archive  string
	name     string
	codec    string
	metrics  bool
}

func newRunCmd(cfg *rootConfig) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <workload.yaml>",
		Short: "Replay a workload against a fresh heap",
		Long: `The run command creates an empty heap, executes every step of a YAML
workload and optionally saves the final heap as a snapshot file or archive
entry.

Example:
  trallocctl run workload.yaml
  trallocctl run workload.yaml --snapshot heap.trs --codec lz4
  trallocctl run workload.yaml --archive snaps.db --name nightly --metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload(cmd, cfg, &f, args[0])
		},
	}
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "Write the final heap to this snapshot file")
	cmd.Flags().StringVar(&f.archive, "archive", "", "Store the final heap in this snapshot archive")
	cmd.Flags().StringVar(&f.name, "name", "", "Archive entry name (default: workload file name)")
	cmd.Flags().StringVar(&f.codec, "codec", "zstd", "Snapshot compression: none, lz4 or zstd")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "Print allocator metrics after the run")
	return cmd
}

func runWorkload(cmd *cobra.Command, cfg *rootConfig, f *runFlags, path string) error {
	codec, err := snapshot.ParseCodec(f.codec)
	if err != nil {
		return err
	}
	w, err := loadWorkload(path)
	if err != nil {
		return err
	}
	capacity, err := cfg.capacity()
	if err != nil {
		return err
	}
	if w.Capacity != "" {
		if capacity, err = heap.ParseCapacity(w.Capacity); err != nil {
			return fmt.Errorf("workload capacity: %w", err)
		}
	}

	h, err := tralloc.New(tralloc.Config{Capacity: capacity, Logger: cfg.logger})
	if err != nil {
		return err
	}
	defer h.Close()

	out := cmd.OutOrStdout()
	if err := newRunner(h, out, cfg.logger, cfg.JSON).run(w); err != nil {
		return err
	}

	if f.snapshot != "" || f.archive != "" {
		name := f.name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		s, err := h.Snapshot(name)
		if err != nil {
			return err
		}
		if f.snapshot != "" {
			if err := s.Save(f.snapshot, codec); err != nil {
				return fmt.Errorf("saving snapshot: %w", err)
			}
			fmt.Fprintf(out, "snapshot written to %s\n", f.snapshot)
		}
		if f.archive != "" {
			if err := archiveSnapshot(f.archive, name, s, codec); err != nil {
				return err
			}
			fmt.Fprintf(out, "snapshot archived as %q in %s\n", name, f.archive)
		}
	}

	if f.metrics {
		return printMetrics(out, h)
	}
	return nil
}

func archiveSnapshot(path, name string, s *snapshot.Snapshot, codec snapshot.Codec) error {
	ar, err := snapshot.OpenArchive(path)
	if err != nil {
		return err
	}
	defer ar.Close()
	return ar.Put(name, s, codec)
}

// printMetrics gathers the collector on a private registry and prints one
// line per sample.
func printMetrics(w io.Writer, src metrics.Source) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(src, nil)); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			value := m.GetGauge().GetValue()
			if c := m.GetCounter(); c != nil {
				value = c.GetValue()
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(w, "%s %g\n", name, value)
		}
	}
	return nil
}

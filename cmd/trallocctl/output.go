package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/tralloc/heap/alloc"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStats(w io.Writer, st alloc.Stats, jsonOut bool) error {
	if jsonOut {
		return printJSON(w, st)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := []struct {
		name  string
		value string
	}{
		{"heap", humanize.IBytes(uint64(st.HeapBytes))},
		{"chunks", fmt.Sprintf("%d (%d in use, %d free)", st.Chunks, st.InUseChunks, st.FreeChunks)},
		{"in use", humanize.IBytes(uint64(st.InUseBytes))},
		{"free", humanize.IBytes(uint64(st.FreeBytes))},
		{"largest free", humanize.IBytes(uint64(st.LargestFree))},
		{"tree depth", fmt.Sprint(st.TreeDepth)},
		{"allocations", humanize.Comma(int64(st.AllocCalls))},
		{"releases", humanize.Comma(int64(st.FreeCalls))},
		{"failures", humanize.Comma(int64(st.FailedCalls))},
		{"growths", fmt.Sprintf("%d (%s)", st.GrowCalls, humanize.IBytes(uint64(st.GrowBytes)))},
		{"reuse hits", humanize.Comma(int64(st.ReuseHits))},
		{"splits", humanize.Comma(int64(st.SplitCount))},
		{"merges", fmt.Sprintf("%d backward, %d forward", st.CoalesceBackward, st.CoalesceForward)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r.name, r.value)
	}
	return tw.Flush()
}

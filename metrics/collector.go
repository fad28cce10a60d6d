// Package metrics exports allocator statistics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshuapare/tralloc/heap/alloc"
)

// Source provides a consistent statistics snapshot. *tralloc.Heap and
// *alloc.Allocator both satisfy it; only the former is safe to scrape while
// other goroutines allocate.
type Source interface {
	Stats() alloc.Stats
}

// Collector is a prometheus.Collector reading a Source on every scrape.
type Collector struct {
	src Source

	allocCalls  *prometheus.Desc
	freeCalls   *prometheus.Desc
	failedCalls *prometheus.Desc
	growCalls   *prometheus.Desc
	growBytes   *prometheus.Desc
	reuseHits   *prometheus.Desc
	splits      *prometheus.Desc
	coalesces   *prometheus.Desc

	heapBytes   *prometheus.Desc
	chunks      *prometheus.Desc
	chunkBytes  *prometheus.Desc
	largestFree *prometheus.Desc
	treeDepth   *prometheus.Desc
}

// NewCollector creates a collector for src. constLabels are attached to
// every metric, which lets several heaps share one registry.
func NewCollector(src Source, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("tralloc", "", name), help, labels, constLabels)
	}
	return &Collector{
		src:         src,
		allocCalls:  desc("alloc_calls_total", "Successful Allocate calls."),
		freeCalls:   desc("free_calls_total", "Successful Release calls."),
		failedCalls: desc("failed_calls_total", "Allocate or Release calls that returned an error."),
		growCalls:   desc("grow_calls_total", "Heap region growths."),
		growBytes:   desc("grow_bytes_total", "Bytes added to the heap region."),
		reuseHits:   desc("reuse_hits_total", "Allocations served from the free tree."),
		splits:      desc("splits_total", "Free chunks split on allocation."),
		coalesces:   desc("coalesce_total", "Free chunk merges on release.", "direction"),
		heapBytes:   desc("heap_bytes", "Bytes of the heap region in use."),
		chunks:      desc("chunks", "Physical chunks by state.", "state"),
		chunkBytes:  desc("chunk_payload_bytes", "Payload bytes by chunk state.", "state"),
		largestFree: desc("largest_free_bytes", "Payload size of the largest free chunk."),
		treeDepth:   desc("free_tree_depth", "Depth of the free-chunk tree."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.allocCalls, c.freeCalls, c.failedCalls, c.growCalls, c.growBytes,
		c.reuseHits, c.splits, c.coalesces,
		c.heapBytes, c.chunks, c.chunkBytes, c.largestFree, c.treeDepth,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	counter := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(c.allocCalls, float64(s.AllocCalls))
	counter(c.freeCalls, float64(s.FreeCalls))
	counter(c.failedCalls, float64(s.FailedCalls))
	counter(c.growCalls, float64(s.GrowCalls))
	counter(c.growBytes, float64(s.GrowBytes))
	counter(c.reuseHits, float64(s.ReuseHits))
	counter(c.splits, float64(s.SplitCount))
	counter(c.coalesces, float64(s.CoalesceBackward), "backward")
	counter(c.coalesces, float64(s.CoalesceForward), "forward")

	gauge(c.heapBytes, float64(s.HeapBytes))
	gauge(c.chunks, float64(s.InUseChunks), "in_use")
	gauge(c.chunks, float64(s.FreeChunks), "free")
	gauge(c.chunkBytes, float64(s.InUseBytes), "in_use")
	gauge(c.chunkBytes, float64(s.FreeBytes), "free")
	gauge(c.largestFree, float64(s.LargestFree))
	gauge(c.treeDepth, float64(s.TreeDepth))
}

// Handler returns an HTTP handler exposing src on a private registry.
func Handler(src Source) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(src, nil))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

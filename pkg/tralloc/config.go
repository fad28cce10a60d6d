package tralloc

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joshuapare/tralloc/heap"
	"github.com/joshuapare/tralloc/heap/alloc"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvCapacity = "TRALLOC_CAPACITY"
	EnvLogAlloc = "TRALLOC_LOG_ALLOC"
)

// Config controls heap creation.
type Config struct {
	// Capacity is the maximum heap size in bytes.
	// Zero means heap.DefaultCapacity.
	Capacity int

	// ForceSlice backs the heap with a Go slice instead of a mapping.
	ForceSlice bool

	// SkipLiveCheck disables the live-pointer set. Release and Payload then
	// rely on chunk tags alone to reject bad pointers.
	SkipLiveCheck bool

	// Logger receives allocator debug events. Nil discards them.
	Logger *slog.Logger
}

func (c Config) regionConfig() heap.Config {
	return heap.Config{Capacity: c.Capacity, ForceSlice: c.ForceSlice}
}

func (c Config) allocOptions() *alloc.Options {
	return &alloc.Options{TrackLive: !c.SkipLiveCheck, Logger: c.Logger}
}

// ConfigFromEnv builds a Config from TRALLOC_CAPACITY and TRALLOC_LOG_ALLOC.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if s := os.Getenv(EnvCapacity); s != "" {
		n, err := heap.ParseCapacity(s)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvCapacity, err)
		}
		cfg.Capacity = n
	}
	if os.Getenv(EnvLogAlloc) != "" {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return cfg, nil
}

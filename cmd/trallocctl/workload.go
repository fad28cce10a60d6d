package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/tralloc/pkg/tralloc"
)

// Workload is a scripted sequence of heap operations.
//
//	capacity: 16MiB
//	steps:
//	  - {op: alloc, name: a, size: 64}
//	  - {op: write, name: a, data: "hello"}
//	  - {op: free, name: a}
//	  - {op: audit}
type Workload struct {
	Capacity string `yaml:"capacity"`
	Steps    []Step `yaml:"steps"`
}

// Step is one workload operation.
type Step struct {
	Op   string `yaml:"op"`   // alloc, write, free, audit, check, stats
	Name string `yaml:"name"` // handle for alloc, write and free
	Size int    `yaml:"size"` // alloc only
	Data string `yaml:"data"` // write only
}

func loadWorkload(path string) (*Workload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeWorkload(f)
}

func decodeWorkload(r io.Reader) (*Workload, error) {
	var w Workload
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("workload is empty")
		}
		return nil, fmt.Errorf("decoding workload: %w", err)
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

func (w *Workload) validate() error {
	var errs []error
	for i, s := range w.Steps {
		switch s.Op {
		case "alloc":
			if s.Size < 0 {
				errs = append(errs, fmt.Errorf("step %d: negative size %d", i, s.Size))
			}
			fallthrough
		case "write", "free":
			if s.Name == "" {
				errs = append(errs, fmt.Errorf("step %d: %s needs a name", i, s.Op))
			}
		case "audit", "check", "stats":
		default:
			errs = append(errs, fmt.Errorf("step %d: unknown op %q", i, s.Op))
		}
	}
	return errors.Join(errs...)
}

// runner executes workload steps against one heap.
type runner struct {
	h    *tralloc.Heap
	out  io.Writer
	log  *slog.Logger
	json bool
	ptrs map[string]tralloc.Ptr
}

func newRunner(h *tralloc.Heap, out io.Writer, log *slog.Logger, jsonOut bool) *runner {
	return &runner{h: h, out: out, log: log, json: jsonOut, ptrs: make(map[string]tralloc.Ptr)}
}

func (r *runner) run(w *Workload) error {
	for i, s := range w.Steps {
		if err := r.step(s); err != nil {
			return fmt.Errorf("step %d (%s %s): %w", i, s.Op, s.Name, err)
		}
	}
	return nil
}

func (r *runner) step(s Step) error {
	switch s.Op {
	case "alloc":
		if _, dup := r.ptrs[s.Name]; dup {
			return fmt.Errorf("handle %q is still allocated", s.Name)
		}
		p, _, err := r.h.Allocate(s.Size)
		if err != nil {
			return err
		}
		r.ptrs[s.Name] = p
		r.log.Info("alloc", "name", s.Name, "size", s.Size, "ptr", p)
	case "write":
		p, err := r.handle(s.Name)
		if err != nil {
			return err
		}
		buf, err := r.h.Payload(p)
		if err != nil {
			return err
		}
		if len(s.Data) > len(buf) {
			return fmt.Errorf("%d bytes do not fit a %d byte payload", len(s.Data), len(buf))
		}
		copy(buf, s.Data)
	case "free":
		p, err := r.handle(s.Name)
		if err != nil {
			return err
		}
		if err := r.h.Release(p); err != nil {
			return err
		}
		delete(r.ptrs, s.Name)
		r.log.Info("free", "name", s.Name, "ptr", p)
	case "audit":
		return r.h.Audit(r.out)
	case "check":
		if err := r.h.Check(); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "check: ok")
	case "stats":
		return printStats(r.out, r.h.Stats(), r.json)
	}
	return nil
}

func (r *runner) handle(name string) (tralloc.Ptr, error) {
	p, ok := r.ptrs[name]
	if !ok {
		return 0, fmt.Errorf("unknown handle %q", name)
	}
	return p, nil
}

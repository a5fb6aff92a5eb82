// Package orchestrator drives the chunked generate/aggregate/append loop
// across a full run and hands the finished store to the artifact writer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quasar-qkd/quasar/internal/aggregate"
	"github.com/quasar-qkd/quasar/internal/artifact"
	"github.com/quasar-qkd/quasar/internal/metrics"
	"github.com/quasar-qkd/quasar/internal/sim"
)

// State is the lifecycle state of an orchestrated run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFinished
	StateAborted
)

// String returns a human-readable representation of the State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ConfigError indicates invalid run parameters. It is raised before any
// work starts; no store is produced.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Params are the run parameters consumed by Run. They arrive pre-validated
// from the config loader; Run re-checks them before any work starts.
type Params struct {
	// Rate is the pulse rate in Hz.
	Rate int
	// Duration is the total run duration in seconds.
	Duration float64
	// BinWidth is the aggregation bin width in seconds.
	BinWidth float64
	// ChunkWidth is the streaming chunk width in seconds. Bounds peak
	// memory: at most Rate*ChunkWidth raw samples are alive at once.
	ChunkWidth float64
	// StrictSchema makes append fail fast on schema mismatch instead of
	// null-filling.
	StrictSchema bool
}

// Validate checks the parameters, collecting every violation.
func (p Params) Validate() error {
	var errs []error
	if p.Rate <= 0 {
		errs = append(errs, &ConfigError{Field: "rate", Reason: "must be a positive integer"})
	}
	if p.Duration <= 0 {
		errs = append(errs, &ConfigError{Field: "duration", Reason: "must be positive"})
	}
	if p.BinWidth <= 0 {
		errs = append(errs, &ConfigError{Field: "bin_width", Reason: "must be positive"})
	}
	if p.ChunkWidth <= 0 {
		errs = append(errs, &ConfigError{Field: "chunk_width", Reason: "must be positive"})
	}
	return errors.Join(errs...)
}

// Orchestrator runs the streaming pipeline for one run at a time. It owns
// the store for the duration of Run and is not safe for concurrent use.
type Orchestrator struct {
	gen   sim.SliceGenerator
	log   *slog.Logger
	state State
}

// New creates an orchestrator around a slice generator. A nil logger falls
// back to slog.Default().
func New(gen sim.SliceGenerator, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{gen: gen, log: log, state: StateIdle}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes the chunk loop over [0, Duration) and returns the finished,
// time-sorted store.
//
// Any failure during a chunk aborts the whole run with no store: a
// partially generated run is not a valid sample of the system under study.
// Cancellation is cooperative and honored only at chunk boundaries.
func (o *Orchestrator) Run(ctx context.Context, p Params) (*metrics.Store, error) {
	if err := p.Validate(); err != nil {
		o.state = StateAborted
		return nil, err
	}
	o.state = StateRunning
	o.log.Info("run started",
		"rate_hz", p.Rate,
		"duration_s", p.Duration,
		"bin_s", p.BinWidth,
		"chunk_s", p.ChunkWidth)

	var store *metrics.Store
	if p.StrictSchema {
		store = metrics.NewStrictStore()
	} else {
		store = metrics.NewStore()
	}
	binner := aggregate.New(p.BinWidth)

	t0 := 0.0
	remaining := p.Duration
	chunks := 0

	for remaining > 0 {
		select {
		case <-ctx.Done():
			o.state = StateAborted
			o.log.Warn("run canceled", "chunks_done", chunks, "t0", t0)
			return nil, fmt.Errorf("run canceled at chunk boundary: %w", ctx.Err())
		default:
		}

		cur := p.ChunkWidth
		if remaining < cur {
			cur = remaining
		}

		slice, err := o.gen.GenerateSlice(t0, p.Rate, cur)
		if err != nil {
			o.state = StateAborted
			return nil, fmt.Errorf("generate chunk at t0=%v: %w", t0, err)
		}

		for _, c := range metrics.Categories() {
			binned := binner.BinTable(slice.Table(c), t0)
			if err := store.Append(c, binned); err != nil {
				o.state = StateAborted
				return nil, fmt.Errorf("append chunk at t0=%v: %w", t0, err)
			}
		}

		t0 += cur
		remaining -= cur
		chunks++
	}

	// One stable sort per category; chunks sharing a bin edge keep their
	// arrival order.
	store.SortByTime()
	o.state = StateFinished

	o.log.Info("run finished",
		"chunks", chunks,
		"rows_per_category", store.Len(metrics.CategoryPhysical))
	return store, nil
}

// Write persists the store to dir and returns the destination path. A
// persistence failure leaves the store valid; the caller may retry with a
// different destination or the overwrite flag set.
func (o *Orchestrator) Write(store *metrics.Store, dir string, format artifact.Format, overwrite bool) (string, error) {
	w, err := artifact.NewWriter(dir, format)
	if err != nil {
		return "", err
	}
	if err := w.Write(store, overwrite); err != nil {
		return "", err
	}
	o.log.Info("artifacts written", "dir", dir, "format", string(format))
	return dir, nil
}

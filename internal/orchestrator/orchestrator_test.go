package orchestrator

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/quasar-qkd/quasar/internal/artifact"
	"github.com/quasar-qkd/quasar/internal/metrics"
	"github.com/quasar-qkd/quasar/internal/sim"
)

func TestRunValidatesParams(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"zero rate", Params{Rate: 0, Duration: 1, BinWidth: 1e-3, ChunkWidth: 0.1}},
		{"negative duration", Params{Rate: 1000, Duration: -1, BinWidth: 1e-3, ChunkWidth: 0.1}},
		{"zero bin width", Params{Rate: 1000, Duration: 1, BinWidth: 0, ChunkWidth: 0.1}},
		{"zero chunk width", Params{Rate: 1000, Duration: 1, BinWidth: 1e-3, ChunkWidth: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(sim.MockGenerator{}, nil)
			store, err := o.Run(context.Background(), tt.p)
			if err == nil {
				t.Fatal("expected configuration error")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
			if store != nil {
				t.Error("no store may be produced on config error")
			}
			if o.State() != StateAborted {
				t.Errorf("state = %s, want aborted", o.State())
			}
		})
	}
}

func TestRunTwoBins(t *testing.T) {
	o := New(sim.MockGenerator{}, nil)
	store, err := o.Run(context.Background(), Params{
		Rate: 1_000_000, Duration: 0.02, BinWidth: 0.01, ChunkWidth: 0.01,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if o.State() != StateFinished {
		t.Errorf("state = %s, want finished", o.State())
	}

	for _, c := range metrics.Categories() {
		tbl := store.Table(c)
		if tbl.Len() != 2 {
			t.Fatalf("%s: %d bins, want 2", c, tbl.Len())
		}
		times := tbl.Times()
		if times[0] != 0.0 {
			t.Errorf("%s: first bin edge = %v, want 0.0", c, times[0])
		}
		if math.Abs(times[1]-0.01) > 1e-12 {
			t.Errorf("%s: second bin edge = %v, want 0.01", c, times[1])
		}
	}
}

func TestRunPartialBin(t *testing.T) {
	o := New(sim.MockGenerator{}, nil)
	store, err := o.Run(context.Background(), Params{
		Rate: 1_000_000, Duration: 0.005, BinWidth: 0.01, ChunkWidth: 0.01,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, c := range metrics.Categories() {
		if got := store.Len(c); got != 1 {
			t.Errorf("%s: %d bins, want 1 partial bin", c, got)
		}
	}
}

func TestRunTimesNonDecreasing(t *testing.T) {
	o := New(sim.MockGenerator{}, nil)
	store, err := o.Run(context.Background(), Params{
		Rate: 100_000, Duration: 0.35, BinWidth: 1e-3, ChunkWidth: 0.1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, c := range metrics.Categories() {
		times := store.Table(c).Times()
		for i := 1; i < len(times); i++ {
			if times[i] < times[i-1] {
				t.Fatalf("%s: time[%d]=%v < time[%d]=%v", c, i, times[i], i-1, times[i-1])
			}
		}
	}
}

func TestRunLastChunkTruncated(t *testing.T) {
	// Duration is 1.5 chunks; the final chunk must cover only the remaining
	// 0.05 s, so the run spans exactly [0, 0.15).
	o := New(sim.MockGenerator{}, nil)
	store, err := o.Run(context.Background(), Params{
		Rate: 10_000, Duration: 0.15, BinWidth: 0.01, ChunkWidth: 0.1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	times := store.Table(metrics.CategorySecurity).Times()
	if got := times[len(times)-1]; got >= 0.15 {
		t.Errorf("last bin edge %v beyond duration", got)
	}
	if got := len(times); got != 15 {
		t.Errorf("%d bins, want 15", got)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(sim.MockGenerator{}, nil)
	store, err := o.Run(ctx, Params{
		Rate: 1000, Duration: 1, BinWidth: 1e-3, ChunkWidth: 0.1,
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled: %v", err)
	}
	if store != nil {
		t.Error("canceled run must not return a store")
	}
	if o.State() != StateAborted {
		t.Errorf("state = %s, want aborted", o.State())
	}
}

// failingGenerator fails after a fixed number of chunks.
type failingGenerator struct {
	calls  int
	failAt int
}

func (g *failingGenerator) GenerateSlice(start float64, rate int, sliceWidth float64) (*sim.Slice, error) {
	g.calls++
	if g.calls >= g.failAt {
		return nil, errors.New("detector model diverged")
	}
	return sim.MockGenerator{}.GenerateSlice(start, rate, sliceWidth)
}

func TestRunAbortsOnChunkFailure(t *testing.T) {
	o := New(&failingGenerator{failAt: 3}, nil)
	store, err := o.Run(context.Background(), Params{
		Rate: 1000, Duration: 1, BinWidth: 1e-3, ChunkWidth: 0.1,
	})
	if err == nil {
		t.Fatal("expected chunk failure to abort the run")
	}
	if store != nil {
		t.Error("no partial store may be returned")
	}
	if o.State() != StateAborted {
		t.Errorf("state = %s, want aborted", o.State())
	}
}

func TestWriteAndRetryAfterPersistenceError(t *testing.T) {
	o := New(sim.MockGenerator{}, nil)
	store, err := o.Run(context.Background(), Params{
		Rate: 10_000, Duration: 0.02, BinWidth: 0.01, ChunkWidth: 0.01,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "run1")
	got, err := o.Write(store, dir, artifact.FormatCSV, false)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got != dir {
		t.Errorf("Write returned %q, want %q", got, dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "security.csv")); err != nil {
		t.Fatalf("security artifact missing: %v", err)
	}

	// Second write without overwrite fails, but the store stays valid and a
	// retry to a fresh destination succeeds.
	if _, err := o.Write(store, dir, artifact.FormatCSV, false); err == nil {
		t.Fatal("expected persistence error")
	} else {
		var pe *artifact.PersistenceError
		if !errors.As(err, &pe) {
			t.Fatalf("expected *PersistenceError, got %T", err)
		}
	}

	dir2 := filepath.Join(t.TempDir(), "run2")
	if _, err := o.Write(store, dir2, artifact.FormatCSV, false); err != nil {
		t.Fatalf("retry write: %v", err)
	}
}

func TestStateStrings(t *testing.T) {
	states := map[State]string{
		StateIdle:     "idle",
		StateRunning:  "running",
		StateFinished: "finished",
		StateAborted:  "aborted",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

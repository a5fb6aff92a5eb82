// Package sweep runs a grid of simulation tasks and consolidates their
// results. It sits outside the pipeline core: each task owns its own store
// and destination directory, and a failed task is recorded rather than
// retried, leaving retry policy to the operator.
package sweep

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/quasar-qkd/quasar/internal/artifact"
	"github.com/quasar-qkd/quasar/internal/logging"
	"github.com/quasar-qkd/quasar/internal/metrics"
	"github.com/quasar-qkd/quasar/internal/orchestrator"
	"github.com/quasar-qkd/quasar/internal/sim"
)

// Task is one sweep cell: a tagged set of run parameters.
type Task struct {
	Tag    string
	Params orchestrator.Params
}

// Result records the outcome of one task.
type Result struct {
	Tag            string
	Params         orchestrator.Params
	Dir            string
	Rows           int64
	SecretRateMean float64
	Err            error
}

// Grid builds the cross product of pulse rates and durations. Tags encode
// the varied parameters so run directories are self-describing.
func Grid(rates []int, durations []float64, binWidth, chunkWidth float64) []Task {
	var tasks []Task
	for _, r := range rates {
		for _, d := range durations {
			tasks = append(tasks, Task{
				Tag: fmt.Sprintf("r%d_d%g", r, d),
				Params: orchestrator.Params{
					Rate:       r,
					Duration:   d,
					BinWidth:   binWidth,
					ChunkWidth: chunkWidth,
				},
			})
		}
	}
	return tasks
}

// Driver executes sweep tasks with bounded parallelism.
type Driver struct {
	outDir  string
	format  artifact.Format
	workers int
	gen     sim.SliceGenerator
	log     *slog.Logger
}

// New creates a sweep driver writing one subdirectory per task under
// outDir. workers caps concurrent tasks; values below 1 mean sequential.
func New(outDir string, format artifact.Format, workers int, gen sim.SliceGenerator, log *slog.Logger) *Driver {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Driver{outDir: outDir, format: format, workers: workers, gen: gen, log: log}
}

// Run executes all tasks and returns one result per task, in task order.
// Individual task failures are recorded in the results, not returned;
// cancellation of ctx stops unstarted tasks.
func (d *Driver) Run(ctx context.Context, tasks []Task) ([]Result, error) {
	results := make([]Result, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = d.runTask(ctx, task)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	d.log.Info("sweep finished", "tasks", len(tasks), "failed", failed)
	return results, nil
}

func (d *Driver) runTask(ctx context.Context, task Task) Result {
	res := Result{
		Tag:            task.Tag,
		Params:         task.Params,
		Dir:            filepath.Join(d.outDir, task.Tag),
		SecretRateMean: math.NaN(),
	}

	log := logging.WithRun(d.log, task.Tag)
	o := orchestrator.New(d.gen, log)

	store, err := o.Run(ctx, task.Params)
	if err != nil {
		log.Error("sweep task failed", "error", err)
		res.Err = err
		return res
	}

	res.Rows = int64(store.Len(metrics.CategorySecurity))
	res.SecretRateMean = meanSecretRate(store)

	if _, err := o.Write(store, res.Dir, d.format, true); err != nil {
		log.Error("sweep task write failed", "error", err)
		res.Err = err
	}
	return res
}

func meanSecretRate(store *metrics.Store) float64 {
	var sum float64
	var n int64
	for _, v := range store.Table(metrics.CategorySecurity).Floats("secret_rate") {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// SummaryFileName is the consolidated sweep summary written next to the
// task directories.
const SummaryFileName = "summary.csv"

// WriteSummary writes the consolidated summary CSV under the sweep output
// directory and returns its path.
func (d *Driver) WriteSummary(results []Result) (string, error) {
	if err := os.MkdirAll(d.outDir, 0755); err != nil {
		return "", &artifact.PersistenceError{Path: d.outDir, Op: "create directory", Err: err}
	}
	path := filepath.Join(d.outDir, SummaryFileName)

	f, err := os.Create(path)
	if err != nil {
		return "", &artifact.PersistenceError{Path: path, Op: "create", Err: err}
	}

	w := csv.NewWriter(f)
	header := []string{"tag", "pulse_rate_hz", "duration_s", "output_dir", "rows", "secret_rate_mean", "error"}
	if err := w.Write(header); err != nil {
		f.Close()
		return "", &artifact.PersistenceError{Path: path, Op: "write header", Err: err}
	}

	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		mean := ""
		if !math.IsNaN(r.SecretRateMean) {
			mean = strconv.FormatFloat(r.SecretRateMean, 'g', -1, 64)
		}
		rec := []string{
			r.Tag,
			strconv.Itoa(r.Params.Rate),
			strconv.FormatFloat(r.Params.Duration, 'g', -1, 64),
			r.Dir,
			strconv.FormatInt(r.Rows, 10),
			mean,
			errText,
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return "", &artifact.PersistenceError{Path: path, Op: "write row", Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", &artifact.PersistenceError{Path: path, Op: "flush", Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &artifact.PersistenceError{Path: path, Op: "close file", Err: err}
	}
	return path, nil
}

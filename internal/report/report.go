// Package report computes post-run summaries over written artifacts.
//
// Parquet runs are summarized with DuckDB directly over the files; CSV runs
// are loaded through the artifact reader. Secret-rate quantiles use a
// DDSketch, so the pass stays streaming regardless of run length.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/DataDog/sketches-go/ddsketch"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/quasar-qkd/quasar/internal/artifact"
	"github.com/quasar-qkd/quasar/internal/metrics"
)

// CategorySummary aggregates one category artifact.
type CategorySummary struct {
	Category  metrics.Category
	Rows      int64
	TimeStart float64
	TimeEnd   float64
	// Means holds the mean of every float column except time, keyed by
	// column name. NaN cells are skipped.
	Means map[string]float64
}

// Quantiles are secret-rate quantiles over the whole run.
type Quantiles struct {
	P50 float64
	P90 float64
	P95 float64
	P99 float64
}

// Summary is the consolidated report for one run directory.
type Summary struct {
	Dir        string
	Format     artifact.Format
	Categories []CategorySummary
	// SecretRateMean is the mean secret key rate, NaN for an empty run.
	SecretRateMean float64
	// SecretRate holds quantiles, nil for an empty run.
	SecretRate *Quantiles
}

// Service computes run summaries. It owns an in-memory DuckDB handle used
// for parquet runs.
type Service struct {
	db  *sql.DB
	log *slog.Logger
}

// New creates a report service. A nil logger falls back to slog.Default().
func New(log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Service{db: db, log: log}, nil
}

// Close releases the DuckDB handle.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Summarize builds the report for a run directory in the given format.
func (s *Service) Summarize(ctx context.Context, dir string, format artifact.Format) (*Summary, error) {
	if _, err := artifact.ParseFormat(string(format)); err != nil {
		return nil, err
	}

	sum := &Summary{Dir: dir, Format: format, SecretRateMean: math.NaN()}

	for _, c := range metrics.Categories() {
		var (
			cs  CategorySummary
			err error
		)
		if format == artifact.FormatParquet {
			cs, err = s.summarizeParquet(ctx, dir, c)
		} else {
			cs, err = summarizeFromReader(dir, format, c)
		}
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", c, err)
		}
		sum.Categories = append(sum.Categories, cs)
	}

	if err := s.addSecretRateStats(dir, format, sum); err != nil {
		return nil, err
	}

	s.log.Info("run summarized",
		"dir", dir,
		"rows", sum.Categories[0].Rows,
		"secret_rate_mean", sum.SecretRateMean)
	return sum, nil
}

// summarizeParquet pushes the aggregation into DuckDB so large runs are
// never fully materialized in memory.
func (s *Service) summarizeParquet(ctx context.Context, dir string, c metrics.Category) (CategorySummary, error) {
	cs := CategorySummary{Category: c, Means: make(map[string]float64)}
	path := filepath.Join(dir, artifact.FileName(c, artifact.FormatParquet))

	// Column names are quoted: "time" is a type keyword in DuckDB.
	query := `SELECT count(*), coalesce(min("time"), 0), coalesce(max("time"), 0)`
	var floatCols []string
	for _, col := range c.Schema() {
		if col.Name == metrics.TimeColumn || col.Kind != metrics.KindFloat {
			continue
		}
		floatCols = append(floatCols, col.Name)
		query += fmt.Sprintf(`, avg("%s")`, col.Name)
	}
	query += " FROM read_parquet(?)"

	dest := []any{&cs.Rows, &cs.TimeStart, &cs.TimeEnd}
	means := make([]sql.NullFloat64, len(floatCols))
	for i := range means {
		dest = append(dest, &means[i])
	}

	if err := s.db.QueryRowContext(ctx, query, path).Scan(dest...); err != nil {
		return cs, fmt.Errorf("query %s: %w", path, err)
	}

	for i, name := range floatCols {
		if means[i].Valid {
			cs.Means[name] = means[i].Float64
		} else {
			cs.Means[name] = math.NaN()
		}
	}
	return cs, nil
}

func summarizeFromReader(dir string, format artifact.Format, c metrics.Category) (CategorySummary, error) {
	cs := CategorySummary{Category: c, Means: make(map[string]float64)}

	r, err := artifact.NewReader(dir, format)
	if err != nil {
		return cs, err
	}
	tbl, err := r.ReadCategory(c)
	if err != nil {
		return cs, err
	}

	cs.Rows = int64(tbl.Len())
	times := tbl.Times()
	if len(times) > 0 {
		cs.TimeStart = times[0]
		cs.TimeEnd = times[len(times)-1]
	}

	for _, col := range c.Schema() {
		if col.Name == metrics.TimeColumn || col.Kind != metrics.KindFloat {
			continue
		}
		var sum float64
		var n int64
		for _, v := range tbl.Floats(col.Name) {
			if math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
		if n == 0 {
			cs.Means[col.Name] = math.NaN()
		} else {
			cs.Means[col.Name] = sum / float64(n)
		}
	}
	return cs, nil
}

// addSecretRateStats streams the security artifact through a DDSketch for
// quantiles and a running mean.
func (s *Service) addSecretRateStats(dir string, format artifact.Format, sum *Summary) error {
	r, err := artifact.NewReader(dir, format)
	if err != nil {
		return err
	}
	tbl, err := r.ReadCategory(metrics.CategorySecurity)
	if err != nil {
		return err
	}
	if tbl.IsEmpty() {
		return nil
	}

	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return fmt.Errorf("create sketch: %w", err)
	}

	var total float64
	var n int64
	for _, v := range tbl.Floats("secret_rate") {
		if math.IsNaN(v) {
			continue
		}
		total += v
		n++
		if err := sketch.Add(v); err != nil {
			return fmt.Errorf("sketch add: %w", err)
		}
	}
	if n == 0 {
		return nil
	}

	sum.SecretRateMean = total / float64(n)

	p50, _ := sketch.GetValueAtQuantile(0.50)
	p90, _ := sketch.GetValueAtQuantile(0.90)
	p95, _ := sketch.GetValueAtQuantile(0.95)
	p99, _ := sketch.GetValueAtQuantile(0.99)
	sum.SecretRate = &Quantiles{P50: p50, P90: p90, P95: p95, P99: p99}
	return nil
}

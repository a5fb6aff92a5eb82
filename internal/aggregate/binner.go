// Package aggregate reduces raw per-sample tables into fixed-width time
// bins. Binning is per chunk: rows are grouped by bin edge and reduced
// column-wise, one output row per edge. Global ordering across chunks is the
// orchestrator's job, not this package's.
package aggregate

import (
	"math"

	"github.com/quasar-qkd/quasar/internal/metrics"
)

// Binner reduces raw rows into bins of a fixed width.
type Binner struct {
	width float64
}

// New creates a Binner. The width must be positive; callers validate it
// before any work starts.
func New(width float64) *Binner {
	return &Binner{width: width}
}

// Width returns the bin width in seconds.
func (b *Binner) Width() float64 {
	return b.width
}

// Edge returns the bin edge for a sample at time t in a chunk starting at t0.
func (b *Binner) Edge(t, t0 float64) float64 {
	return math.Floor((t-t0)/b.width)*b.width + t0
}

// binAcc accumulates one bin. Float columns carry running sums and non-null
// counts for the mean; text columns keep the first value seen.
type binAcc struct {
	sums   []float64
	counts []int64
	firsts []string
	seen   []bool
}

// BinTable groups tbl's rows by bin edge and reduces each column: arithmetic
// mean for float columns (nulls skipped), first value for text columns. The
// output row's time is the bin edge itself. An empty input produces an empty
// output; a chunk shorter than one bin width produces exactly one partial
// bin. Output rows appear in first-seen edge order, which is ascending for a
// monotonic time base.
func (b *Binner) BinTable(tbl *metrics.Table, t0 float64) *metrics.Table {
	schema := tbl.Schema()
	out := metrics.NewTable(schema)
	if tbl.IsEmpty() {
		return out
	}

	times := tbl.Times()
	ncols := len(schema)

	// Hoist column slices out of the per-sample loop; chunks can run to tens
	// of millions of rows.
	floatCols := make([][]float64, ncols)
	textCols := make([][]string, ncols)
	for i, col := range schema {
		switch col.Kind {
		case metrics.KindFloat:
			floatCols[i] = tbl.Floats(col.Name)
		case metrics.KindText:
			textCols[i] = tbl.Texts(col.Name)
		}
	}

	accs := make(map[float64]*binAcc)
	var edges []float64

	for row := 0; row < tbl.Len(); row++ {
		edge := b.Edge(times[row], t0)
		acc := accs[edge]
		if acc == nil {
			acc = &binAcc{
				sums:   make([]float64, ncols),
				counts: make([]int64, ncols),
				firsts: make([]string, ncols),
				seen:   make([]bool, ncols),
			}
			accs[edge] = acc
			edges = append(edges, edge)
		}
		for i, col := range schema {
			if col.Name == metrics.TimeColumn {
				continue
			}
			switch col.Kind {
			case metrics.KindFloat:
				v := floatCols[i][row]
				if !math.IsNaN(v) {
					acc.sums[i] += v
					acc.counts[i]++
				}
			case metrics.KindText:
				if !acc.seen[i] {
					acc.firsts[i] = textCols[i][row]
					acc.seen[i] = true
				}
			}
		}
	}

	for _, edge := range edges {
		acc := accs[edge]
		row := make([]any, ncols)
		for i, col := range schema {
			switch {
			case col.Name == metrics.TimeColumn:
				row[i] = edge
			case col.Kind == metrics.KindFloat:
				if acc.counts[i] == 0 {
					row[i] = math.NaN()
				} else {
					row[i] = acc.sums[i] / float64(acc.counts[i])
				}
			default:
				row[i] = acc.firsts[i]
			}
		}
		// Row matches the schema by construction.
		_ = out.AppendRow(row...)
	}
	return out
}

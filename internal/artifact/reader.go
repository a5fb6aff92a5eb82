package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/quasar-qkd/quasar/internal/metrics"
)

// Reader loads run artifacts back into memory. It is the inverse of Writer
// and is used by round-trip checks and the report command.
type Reader struct {
	dir    string
	format Format
}

// NewReader creates a reader for a run directory.
func NewReader(dir string, format Format) (*Reader, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	return &Reader{dir: dir, format: format}, nil
}

// ReadCategory loads one category table from its fixed filename.
func (r *Reader) ReadCategory(c metrics.Category) (*metrics.Table, error) {
	path := filepath.Join(r.dir, FileName(c, r.format))
	switch r.format {
	case FormatParquet:
		return readParquetCategory(path, c)
	case FormatCSV:
		return readCSVCategory(path, c)
	default:
		return nil, &PersistenceError{Path: path, Op: "read", Err: fmt.Errorf("unsupported format %q", r.format)}
	}
}

// ReadStore loads all four category tables into a fresh store.
func (r *Reader) ReadStore() (*metrics.Store, error) {
	store := metrics.NewStore()
	for _, c := range metrics.Categories() {
		tbl, err := r.ReadCategory(c)
		if err != nil {
			return nil, err
		}
		if err := store.Append(c, tbl); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func readParquetCategory(path string, c metrics.Category) (*metrics.Table, error) {
	switch c {
	case metrics.CategoryPhysical:
		rows, err := readParquetRows[physicalRow](path)
		if err != nil {
			return nil, err
		}
		return tableFromPhysical(rows), nil
	case metrics.CategoryNetwork:
		rows, err := readParquetRows[networkRow](path)
		if err != nil {
			return nil, err
		}
		return tableFromNetwork(rows), nil
	case metrics.CategoryProtocol:
		rows, err := readParquetRows[protocolRow](path)
		if err != nil {
			return nil, err
		}
		return tableFromProtocol(rows), nil
	case metrics.CategorySecurity:
		rows, err := readParquetRows[securityRow](path)
		if err != nil {
			return nil, err
		}
		return tableFromSecurity(rows), nil
	default:
		return nil, &PersistenceError{Path: path, Op: "read", Err: fmt.Errorf("unknown category %d", c)}
	}
}

func readParquetRows[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	pr := parquet.NewGenericReader[T](f)
	defer pr.Close()

	rows := make([]T, pr.NumRows())
	n, err := pr.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &PersistenceError{Path: path, Op: "read rows", Err: err}
	}
	return rows[:n], nil
}

func readCSVCategory(path string, c metrics.Category) (*metrics.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &PersistenceError{Path: path, Op: "read rows", Err: err}
	}
	if len(records) == 0 {
		return nil, &PersistenceError{Path: path, Op: "read header", Err: fmt.Errorf("missing header row")}
	}

	schema := c.Schema()
	header := records[0]
	if len(header) != len(schema) {
		return nil, &PersistenceError{Path: path, Op: "read header",
			Err: fmt.Errorf("got %d columns, want %d", len(header), len(schema))}
	}
	for i, col := range schema {
		if header[i] != col.Name {
			return nil, &PersistenceError{Path: path, Op: "read header",
				Err: fmt.Errorf("column %d is %q, want %q", i, header[i], col.Name)}
		}
	}

	tbl := metrics.NewTableWithRows(schema, len(records)-1)
	for i, rec := range records[1:] {
		for j, col := range schema {
			switch col.Kind {
			case metrics.KindFloat:
				dst := tbl.Floats(col.Name)
				if rec[j] == "" {
					dst[i] = math.NaN()
					continue
				}
				v, err := strconv.ParseFloat(rec[j], 64)
				if err != nil {
					return nil, &PersistenceError{Path: path, Op: "parse row",
						Err: fmt.Errorf("row %d column %q: %w", i+1, col.Name, err)}
				}
				dst[i] = v
			case metrics.KindText:
				tbl.Texts(col.Name)[i] = rec[j]
			}
		}
	}
	return tbl, nil
}

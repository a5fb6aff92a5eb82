package artifact

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/quasar-qkd/quasar/internal/metrics"
)

// Format selects the on-disk representation of a run artifact.
type Format string

const (
	// FormatParquet is the columnar format, preferred for performance.
	FormatParquet Format = "parquet"
	// FormatCSV is the row-oriented text format, for portability.
	FormatCSV Format = "csv"
)

// ParseFormat parses a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatParquet, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format %q (want parquet or csv)", s)
	}
}

// PersistenceError indicates a failed write or read of a run artifact. The
// in-memory store is unaffected; the caller may retry persistence without
// recomputing the run.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
)

func codecFor(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	default:
		return &parquet.Uncompressed
	}
}

// Options configures the artifact writer.
type Options struct {
	// Compression is the Parquet compression algorithm. Ignored for CSV.
	Compression CompressionType
}

// DefaultOptions returns default writer options.
func DefaultOptions() Options {
	return Options{Compression: CompressionZstd}
}

// FileName returns the fixed per-category artifact filename.
func FileName(c metrics.Category, f Format) string {
	return c.String() + "." + string(f)
}

// Writer persists a store category-by-category under fixed filenames.
//
// Writes are not atomic across the four files: a mid-sequence failure can
// leave a partial artifact set behind.
type Writer struct {
	dir    string
	format Format
	opts   Options
}

// NewWriter creates a writer for the destination directory.
func NewWriter(dir string, format Format) (*Writer, error) {
	return NewWriterWithOptions(dir, format, DefaultOptions())
}

// NewWriterWithOptions creates a writer with explicit options.
func NewWriterWithOptions(dir string, format Format, opts Options) (*Writer, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	return &Writer{dir: dir, format: format, opts: opts}, nil
}

// Dir returns the destination directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write serializes every category table of the store to its fixed filename,
// creating the destination directory if absent. With overwrite disabled an
// existing target file fails with a PersistenceError before that file is
// touched.
func (w *Writer) Write(store *metrics.Store, overwrite bool) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return &PersistenceError{Path: w.dir, Op: "create directory", Err: err}
	}

	for _, c := range metrics.Categories() {
		path := filepath.Join(w.dir, FileName(c, w.format))
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				return &PersistenceError{Path: path, Op: "create", Err: os.ErrExist}
			}
		}
		if err := w.writeCategory(path, c, store.Table(c)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeCategory(path string, c metrics.Category, tbl *metrics.Table) error {
	switch w.format {
	case FormatParquet:
		return w.writeParquet(path, c, tbl)
	case FormatCSV:
		return w.writeCSV(path, tbl)
	default:
		return &PersistenceError{Path: path, Op: "write", Err: fmt.Errorf("unsupported format %q", w.format)}
	}
}

func (w *Writer) writeParquet(path string, c metrics.Category, tbl *metrics.Table) error {
	codec := codecFor(w.opts.Compression)
	switch c {
	case metrics.CategoryPhysical:
		return writeParquetRows(path, physicalRows(tbl), codec)
	case metrics.CategoryNetwork:
		return writeParquetRows(path, networkRows(tbl), codec)
	case metrics.CategoryProtocol:
		return writeParquetRows(path, protocolRows(tbl), codec)
	case metrics.CategorySecurity:
		return writeParquetRows(path, securityRows(tbl), codec)
	default:
		return &PersistenceError{Path: path, Op: "write", Err: fmt.Errorf("unknown category %d", c)}
	}
}

func writeParquetRows[T any](path string, rows []T, codec compress.Codec) error {
	f, err := os.Create(path)
	if err != nil {
		return &PersistenceError{Path: path, Op: "create", Err: err}
	}

	pw := parquet.NewGenericWriter[T](f, parquet.Compression(codec))
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		f.Close()
		return &PersistenceError{Path: path, Op: "write rows", Err: err}
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return &PersistenceError{Path: path, Op: "close writer", Err: err}
	}
	if err := f.Close(); err != nil {
		return &PersistenceError{Path: path, Op: "close file", Err: err}
	}
	return nil
}

func (w *Writer) writeCSV(path string, tbl *metrics.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return &PersistenceError{Path: path, Op: "create", Err: err}
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(tbl.Schema().Names()); err != nil {
		f.Close()
		return &PersistenceError{Path: path, Op: "write header", Err: err}
	}

	record := make([]string, len(tbl.Schema()))
	for i := 0; i < tbl.Len(); i++ {
		for j, v := range tbl.Row(i) {
			record[j] = formatCSVValue(v)
		}
		if err := cw.Write(record); err != nil {
			f.Close()
			return &PersistenceError{Path: path, Op: "write row", Err: err}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return &PersistenceError{Path: path, Op: "flush", Err: err}
	}
	if err := f.Close(); err != nil {
		return &PersistenceError{Path: path, Op: "close file", Err: err}
	}
	return nil
}

// formatCSVValue renders a cell. NaN is written as an empty field, the CSV
// null marker.
func formatCSVValue(v any) string {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

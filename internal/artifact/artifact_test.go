package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/quasar-qkd/quasar/internal/metrics"
)

func testStore(t *testing.T) *metrics.Store {
	t.Helper()
	s := metrics.NewStore()

	phys := metrics.NewTableForCategory(metrics.CategoryPhysical)
	net := metrics.NewTableForCategory(metrics.CategoryNetwork)
	prot := metrics.NewTableForCategory(metrics.CategoryProtocol)
	sec := metrics.NewTableForCategory(metrics.CategorySecurity)
	for i := 0; i < 3; i++ {
		ts := float64(i) * 0.001
		if err := phys.AppendRow(ts, 15.0, 0.96, 1e-6); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
		if err := net.AppendRow(ts, "A->C<-B", 0.5, 1000.0); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
		if err := prot.AppendRow(ts, 0.02, 4.9e6, 4.9e5); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
		if err := sec.AppendRow(ts, 4.2e6, 1e-10); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}

	for c, tbl := range map[metrics.Category]*metrics.Table{
		metrics.CategoryPhysical: phys,
		metrics.CategoryNetwork:  net,
		metrics.CategoryProtocol: prot,
		metrics.CategorySecurity: sec,
	} {
		if err := s.Append(c, tbl); err != nil {
			t.Fatalf("Append %s: %v", c, err)
		}
	}
	return s
}

func TestWriteCreatesAllFourFiles(t *testing.T) {
	for _, format := range []Format{FormatParquet, FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "run")
			w, err := NewWriter(dir, format)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			if err := w.Write(testStore(t), false); err != nil {
				t.Fatalf("Write: %v", err)
			}

			for _, c := range metrics.Categories() {
				path := filepath.Join(dir, FileName(c, format))
				stat, err := os.Stat(path)
				if err != nil {
					t.Fatalf("%s: %v", c, err)
				}
				if stat.Size() == 0 {
					t.Errorf("%s: artifact is empty", c)
				}
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatParquet, FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			dir := t.TempDir()
			store := testStore(t)

			w, err := NewWriter(dir, format)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			if err := w.Write(store, true); err != nil {
				t.Fatalf("Write: %v", err)
			}

			r, err := NewReader(dir, format)
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			got, err := r.ReadStore()
			if err != nil {
				t.Fatalf("ReadStore: %v", err)
			}

			for _, c := range metrics.Categories() {
				if got.Len(c) != store.Len(c) {
					t.Errorf("%s: %d rows, want %d", c, got.Len(c), store.Len(c))
				}
				if !got.Table(c).Schema().Equal(c.Schema()) {
					t.Errorf("%s: schema not canonical after round trip", c)
				}
			}

			gotPaths := got.Table(metrics.CategoryNetwork).Texts("path")
			if gotPaths[0] != "A->C<-B" {
				t.Errorf("path[0] = %q after round trip", gotPaths[0])
			}
			gotRates := got.Table(metrics.CategorySecurity).Floats("secret_rate")
			if gotRates[0] != 4.2e6 {
				t.Errorf("secret_rate[0] = %v after round trip", gotRates[0])
			}
		})
	}
}

func TestParquetReadManyRows(t *testing.T) {
	dir := t.TempDir()
	s := metrics.NewStore()
	phys := metrics.NewTableForCategory(metrics.CategoryPhysical)
	const rows = 5000
	for i := 0; i < rows; i++ {
		if err := phys.AppendRow(float64(i)*1e-3, 15.0, 0.96, 1e-6); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	if err := s.Append(metrics.CategoryPhysical, phys); err != nil {
		t.Fatalf("Append: %v", err)
	}

	w, err := NewWriter(dir, FormatParquet)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(s, false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := NewReader(dir, FormatParquet)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := r.ReadCategory(metrics.CategoryPhysical)
	if err != nil {
		t.Fatalf("ReadCategory: %v", err)
	}
	if got.Len() != rows {
		t.Fatalf("read %d rows, want %d", got.Len(), rows)
	}
	times := got.Times()
	if times[rows-1] != float64(rows-1)*1e-3 {
		t.Errorf("last time = %v, want %v", times[rows-1], float64(rows-1)*1e-3)
	}
}

func TestOverwriteDisabledFails(t *testing.T) {
	dir := t.TempDir()
	store := testStore(t)

	w, err := NewWriter(dir, FormatCSV)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(store, false); err != nil {
		t.Fatalf("first write: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(dir, FileName(metrics.CategoryPhysical, FormatCSV)))
	if err != nil {
		t.Fatalf("read first artifact: %v", err)
	}

	err = w.Write(store, false)
	if err == nil {
		t.Fatal("second write with overwrite disabled should fail")
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PersistenceError, got %T", err)
	}
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("error should wrap os.ErrExist: %v", err)
	}

	// The first write's files are untouched.
	second, err := os.ReadFile(filepath.Join(dir, FileName(metrics.CategoryPhysical, FormatCSV)))
	if err != nil {
		t.Fatalf("read artifact again: %v", err)
	}
	if string(first) != string(second) {
		t.Error("failed write modified an existing artifact")
	}
}

func TestOverwriteEnabledSucceeds(t *testing.T) {
	dir := t.TempDir()
	store := testStore(t)

	w, err := NewWriter(dir, FormatParquet)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(store, false); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.Write(store, true); err != nil {
		t.Fatalf("overwrite write: %v", err)
	}
}

func TestWriteEmptyStore(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, FormatCSV)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(metrics.NewStore(), false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := NewReader(dir, FormatCSV)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := r.ReadStore()
	if err != nil {
		t.Fatalf("ReadStore: %v", err)
	}
	for _, c := range metrics.Categories() {
		if got.Len(c) != 0 {
			t.Errorf("%s: expected empty table, got %d rows", c, got.Len(c))
		}
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("parquet"); err != nil {
		t.Errorf("parquet: %v", err)
	}
	if _, err := ParseFormat("csv"); err != nil {
		t.Errorf("csv: %v", err)
	}
	if _, err := ParseFormat("hdf5"); err == nil {
		t.Error("hdf5 should be rejected")
	}
}

package metrics

import (
	"math"
	"sort"
)

// Table is an ordered sequence of rows conforming to a fixed schema.
// Storage is columnar: one slice per column, all of equal length.
//
// Missing float values are NaN, missing text values are "".
type Table struct {
	schema Schema
	floats [][]float64 // parallel to schema; nil for text columns
	texts  [][]string  // parallel to schema; nil for float columns
	rows   int
}

// NewTable creates an empty table with the given schema.
func NewTable(schema Schema) *Table {
	return newTableWithRows(schema, 0)
}

// NewTableWithRows creates a table with rows preallocated, zero-valued rows.
// Callers fill columns in place through Floats and Texts; this avoids per-row
// appends when building large sample slices.
func NewTableWithRows(schema Schema, rows int) *Table {
	return newTableWithRows(schema, rows)
}

func newTableWithRows(schema Schema, rows int) *Table {
	t := &Table{
		schema: schema,
		floats: make([][]float64, len(schema)),
		texts:  make([][]string, len(schema)),
		rows:   rows,
	}
	for i, col := range schema {
		switch col.Kind {
		case KindFloat:
			t.floats[i] = make([]float64, rows)
		case KindText:
			t.texts[i] = make([]string, rows)
		}
	}
	return t
}

// NewTableForCategory creates an empty table with the category's canonical
// schema.
func NewTableForCategory(c Category) *Table {
	return NewTable(c.Schema())
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// IsEmpty returns true if the table has no rows.
func (t *Table) IsEmpty() bool {
	return t.rows == 0
}

// Schema returns the table's schema.
func (t *Table) Schema() Schema {
	return t.schema
}

// Floats returns the backing slice of a float column, or nil if the column
// is absent or not a float column. The slice aliases table storage.
func (t *Table) Floats(name string) []float64 {
	i := t.schema.Index(name)
	if i < 0 {
		return nil
	}
	return t.floats[i]
}

// Texts returns the backing slice of a text column, or nil if the column is
// absent or not a text column. The slice aliases table storage.
func (t *Table) Texts(name string) []string {
	i := t.schema.Index(name)
	if i < 0 {
		return nil
	}
	return t.texts[i]
}

// Times returns the "time" column.
func (t *Table) Times() []float64 {
	return t.Floats(TimeColumn)
}

// AppendRow appends one row. Values must appear in schema order: float64 for
// float columns, string for text columns. A nil value records a null.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.schema) {
		return &SchemaError{Column: "", Reason: "row arity does not match schema"}
	}
	for i, col := range t.schema {
		switch col.Kind {
		case KindFloat:
			switch v := values[i].(type) {
			case float64:
				t.floats[i] = append(t.floats[i], v)
			case nil:
				t.floats[i] = append(t.floats[i], math.NaN())
			default:
				return &SchemaError{Column: col.Name, Reason: "value is not a float64"}
			}
		case KindText:
			switch v := values[i].(type) {
			case string:
				t.texts[i] = append(t.texts[i], v)
			case nil:
				t.texts[i] = append(t.texts[i], "")
			default:
				return &SchemaError{Column: col.Name, Reason: "value is not a string"}
			}
		}
	}
	t.rows++
	return nil
}

// Row returns the values of row i in schema order (float64 or string).
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.schema))
	for j, col := range t.schema {
		switch col.Kind {
		case KindFloat:
			out[j] = t.floats[j][i]
		case KindText:
			out[j] = t.texts[j][i]
		}
	}
	return out
}

// concat appends all rows of src, which must share t's schema, onto t.
// Arrival order is preserved.
func (t *Table) concat(src *Table) {
	for i, col := range t.schema {
		switch col.Kind {
		case KindFloat:
			t.floats[i] = append(t.floats[i], src.floats[i]...)
		case KindText:
			t.texts[i] = append(t.texts[i], src.texts[i]...)
		}
	}
	t.rows += src.rows
}

// Conform returns a copy of src reindexed to the target schema: columns are
// matched by name, reordered as needed, and coerced to the target kind.
// A structurally missing column is filled with nulls, never dropped silently.
// Columns of src absent from the target schema are discarded.
//
// In strict mode a missing column or a kind mismatch returns a SchemaError
// instead of null-filling.
func Conform(src *Table, schema Schema, strict bool) (*Table, error) {
	out := newTableWithRows(schema, src.rows)
	for i, col := range schema {
		j := src.schema.Index(col.Name)
		if j < 0 {
			if strict {
				return nil, &SchemaError{Column: col.Name, Reason: "column missing from incoming table"}
			}
			fillNull(out, i)
			continue
		}
		if src.schema[j].Kind != col.Kind {
			if strict {
				return nil, &SchemaError{Column: col.Name, Reason: "column kind mismatch: " +
					src.schema[j].Kind.String() + " vs " + col.Kind.String()}
			}
			fillNull(out, i)
			continue
		}
		switch col.Kind {
		case KindFloat:
			copy(out.floats[i], src.floats[j])
		case KindText:
			copy(out.texts[i], src.texts[j])
		}
	}
	return out, nil
}

func fillNull(t *Table, col int) {
	switch t.schema[col].Kind {
	case KindFloat:
		for i := range t.floats[col] {
			t.floats[col][i] = math.NaN()
		}
	case KindText:
		for i := range t.texts[col] {
			t.texts[col][i] = ""
		}
	}
}

// SortByTime stably sorts rows by the "time" column. Rows with equal times
// keep their relative order, so rows appended earlier stay first.
func (t *Table) SortByTime() {
	times := t.Times()
	if times == nil || t.rows < 2 {
		return
	}
	idx := make([]int, t.rows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return times[idx[a]] < times[idx[b]]
	})
	for i, col := range t.schema {
		switch col.Kind {
		case KindFloat:
			src := t.floats[i]
			dst := make([]float64, t.rows)
			for k, j := range idx {
				dst[k] = src[j]
			}
			t.floats[i] = dst
		case KindText:
			src := t.texts[i]
			dst := make([]string, t.rows)
			for k, j := range idx {
				dst[k] = src[j]
			}
			t.texts[i] = dst
		}
	}
}

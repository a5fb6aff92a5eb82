package metrics

import "fmt"

// SchemaError indicates that incoming data cannot be represented in a
// category's canonical schema.
type SchemaError struct {
	Category Category
	Column   string
	Reason   string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("schema error (%s): %s", e.Category, e.Reason)
	}
	return fmt.Sprintf("schema error (%s, column %q): %s", e.Category, e.Column, e.Reason)
}

// Store owns one schema-fixed table per metric category for a single run.
// It is created fully populated (with empty tables) and mutated only via
// Append; it is not safe for concurrent use.
type Store struct {
	tables map[Category]*Table
	strict bool
}

// NewStore creates an empty store with best-effort append semantics:
// missing or mismatched columns are null-filled.
func NewStore() *Store {
	return newStore(false)
}

// NewStrictStore creates an empty store that fails fast with a SchemaError
// when an appended table does not match the category schema exactly.
func NewStrictStore() *Store {
	return newStore(true)
}

func newStore(strict bool) *Store {
	s := &Store{
		tables: make(map[Category]*Table, 4),
		strict: strict,
	}
	for _, c := range Categories() {
		s.tables[c] = NewTableForCategory(c)
	}
	return s
}

// Strict reports whether the store fails fast on schema mismatch.
func (s *Store) Strict() bool {
	return s.strict
}

// Table returns the table for a category.
func (s *Store) Table(c Category) *Table {
	return s.tables[c]
}

// Len returns the row count for a category.
func (s *Store) Len(c Category) int {
	return s.tables[c].Len()
}

// Append reindexes src to the category's canonical schema and concatenates
// its rows onto the category table, preserving arrival order. Appending an
// empty table is a no-op. Existing rows are never altered. No sorting is
// performed here.
func (s *Store) Append(c Category, src *Table) error {
	if src == nil || src.IsEmpty() {
		return nil
	}
	conformed, err := Conform(src, c.Schema(), s.strict)
	if err != nil {
		if se, ok := err.(*SchemaError); ok {
			se.Category = c
		}
		return err
	}
	s.tables[c].concat(conformed)
	return nil
}

// SortByTime stably sorts every category table by its "time" column.
func (s *Store) SortByTime() {
	for _, c := range Categories() {
		s.tables[c].SortByTime()
	}
}

// Merge returns a new store built by appending every category table from
// every input store, in argument order, onto a fresh empty store. The row
// multiset per category is independent of input grouping; row order follows
// the input sequence.
func Merge(stores ...*Store) (*Store, error) {
	out := NewStore()
	for _, s := range stores {
		if s == nil {
			continue
		}
		for _, c := range Categories() {
			if err := out.Append(c, s.Table(c)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

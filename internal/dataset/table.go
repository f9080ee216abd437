package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Table is an immutable set of named float64 columns sharing one positional
// row index. Missing cells are stored as NaN and counted at construction.
type Table struct {
	name    string
	df      dataframe.DataFrame
	missing map[string]int
	notes   []string
}

// Series is a named column of values, used to build or extend a Table.
type Series struct {
	Name   string
	Values []float64
}

// New builds a Table from columns of equal length.
func New(name string, cols ...Series) (*Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("new table: %w", ErrMalformedHeader)
	}
	seen := make(map[string]struct{}, len(cols))
	n := len(cols[0].Values)
	ss := make([]series.Series, len(cols))
	missing := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("new table: column %d: %w", i+1, ErrMalformedHeader)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("new table: duplicate column %q: %w", c.Name, ErrMalformedHeader)
		}
		seen[c.Name] = struct{}{}
		if len(c.Values) != n {
			return nil, fmt.Errorf("new table: column %q has %d rows, want %d", c.Name, len(c.Values), n)
		}
		ss[i] = series.New(c.Values, series.Float, c.Name)
		missing[c.Name] = countNaN(c.Values)
	}
	df := dataframe.New(ss...)
	if df.Err != nil {
		return nil, fmt.Errorf("new table: %w", df.Err)
	}
	return &Table{name: name, df: df, missing: missing}, nil
}

// Name is the display name of the table, usually the source file's base name.
func (t *Table) Name() string { return t.name }

// Rows returns the fixed row count.
func (t *Table) Rows() int { return t.df.Nrow() }

// Columns returns the column names in order.
func (t *Table) Columns() []string { return t.df.Names() }

// Notes returns load-time remarks such as row truncation.
func (t *Table) Notes() []string { return append([]string(nil), t.notes...) }

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.missing[name]
	return ok
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]float64, error) {
	if !t.Has(name) {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	s := t.df.Col(name)
	if s.Err != nil {
		return nil, fmt.Errorf("column %q: %w", name, s.Err)
	}
	return s.Float(), nil
}

// Missing returns the number of missing cells in the named column.
func (t *Table) Missing(name string) int { return t.missing[name] }

// MissingTotal returns the number of missing cells across all columns.
func (t *Table) MissingTotal() int {
	total := 0
	for _, n := range t.missing {
		total += n
	}
	return total
}

// WithColumns returns a new Table with cols appended. The receiver is left
// untouched; existing columns are never replaced.
func (t *Table) WithColumns(cols ...Series) (*Table, error) {
	// Mutate appends to the shared column slice; copy so siblings derived
	// from the same table cannot overwrite each other.
	df := t.df.Copy()
	missing := make(map[string]int, len(t.missing)+len(cols))
	for k, v := range t.missing {
		missing[k] = v
	}
	for _, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("append column: %w", ErrMalformedHeader)
		}
		if _, exists := missing[c.Name]; exists {
			return nil, fmt.Errorf("append column %q: already exists", c.Name)
		}
		if len(c.Values) != t.Rows() {
			return nil, fmt.Errorf("append column %q: has %d rows, want %d", c.Name, len(c.Values), t.Rows())
		}
		df = df.Mutate(series.New(c.Values, series.Float, c.Name))
		if df.Err != nil {
			return nil, fmt.Errorf("append column %q: %w", c.Name, df.Err)
		}
		missing[c.Name] = countNaN(c.Values)
	}
	return &Table{name: t.name, df: df, missing: missing, notes: t.Notes()}, nil
}

// WriteCSV writes the table with a header row. Missing cells are written empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	names := t.Columns()
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cols := make([][]float64, len(names))
	for j, name := range names {
		vals, err := t.Column(name)
		if err != nil {
			return err
		}
		cols[j] = vals
	}
	rec := make([]string, len(names))
	for i := 0; i < t.Rows(); i++ {
		for j := range cols {
			v := cols[j][i]
			if math.IsNaN(v) {
				rec[j] = ""
				continue
			}
			rec[j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func countNaN(vals []float64) int {
	n := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

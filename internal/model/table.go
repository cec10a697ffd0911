package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// DateFormat is the on-disk representation of table dates.
const DateFormat = "2006-01-02"

// Table is a date-indexed set of named float64 series.
//
// Invariants:
// - Dates are strictly increasing (no duplicates).
// - Every row has exactly len(Columns) values; missing observations are NaN.
type Table struct {
	Columns []string

	dates []time.Time
	rows  [][]float64
}

// NewTable returns an empty table with the given column order.
func NewTable(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.dates) }

// Dates returns the row index. The slice must not be modified.
func (t *Table) Dates() []time.Time { return t.dates }

// Row returns the values of row i in column order. The slice must not be modified.
func (t *Table) Row(i int) []float64 { return t.rows[i] }

// Date returns the date of row i.
func (t *Table) Date(i int) time.Time { return t.dates[i] }

// LastDate returns the date of the final row, or the zero time for an empty table.
func (t *Table) LastDate() time.Time {
	if len(t.dates) == 0 {
		return time.Time{}
	}
	return t.dates[len(t.dates)-1]
}

// Append adds a row. The date must be strictly after the current last date.
func (t *Table) Append(date time.Time, values []float64) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row for %s has %d values, want %d", date.Format(DateFormat), len(values), len(t.Columns))
	}
	date = Day(date)
	if n := len(t.dates); n > 0 && !date.After(t.dates[n-1]) {
		return fmt.Errorf("date %s is not after %s", date.Format(DateFormat), t.dates[n-1].Format(DateFormat))
	}
	t.dates = append(t.dates, date)
	t.rows = append(t.rows, slices.Clone(values))
	return nil
}

// Index returns the position of a column, or -1.
func (t *Table) Index(column string) int {
	return slices.Index(t.Columns, column)
}

// Has reports whether the table carries the named column.
func (t *Table) Has(column string) bool { return t.Index(column) >= 0 }

// Column returns a copy of one series in date order.
func (t *Table) Column(name string) ([]float64, error) {
	j := t.Index(name)
	if j < 0 {
		return nil, fmt.Errorf("column %q: %w", name, ErrColumnNotFound)
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Value returns the value at (row, column name).
func (t *Table) Value(i int, column string) (float64, bool) {
	j := t.Index(column)
	if j < 0 || i < 0 || i >= len(t.rows) {
		return math.NaN(), false
	}
	return t.rows[i][j], true
}

// Select returns a new table restricted to columns, in the order given.
func (t *Table) Select(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	var missing []string
	for k, c := range columns {
		idx[k] = t.Index(c)
		if idx[k] < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("columns %v: %w", missing, ErrColumnNotFound)
	}
	out := &Table{
		Columns: slices.Clone(columns),
		dates:   slices.Clone(t.dates),
		rows:    make([][]float64, len(t.rows)),
	}
	for i, r := range t.rows {
		row := make([]float64, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out, nil
}

// DropIncomplete returns a new table without rows containing a NaN.
// Column order is preserved.
func (t *Table) DropIncomplete() *Table {
	out := &Table{Columns: slices.Clone(t.Columns)}
	for i, r := range t.rows {
		if complete(r) {
			out.dates = append(out.dates, t.dates[i])
			out.rows = append(out.rows, slices.Clone(r))
		}
	}
	return out
}

// Tail returns the last n rows as a copy. n larger than Len returns every row.
func (t *Table) Tail(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	start := len(t.rows) - n
	out := &Table{Columns: slices.Clone(t.Columns)}
	for i := start; i < len(t.rows); i++ {
		out.dates = append(out.dates, t.dates[i])
		out.rows = append(out.rows, slices.Clone(t.rows[i]))
	}
	return out
}

// Values returns a row-major copy of the table body.
func (t *Table) Values() [][]float64 {
	out := make([][]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// PctChange returns day-over-day relative changes. The first row is dropped; a change
// involving a NaN, or a zero base, is NaN.
func (t *Table) PctChange() *Table {
	out := &Table{Columns: slices.Clone(t.Columns)}
	for i := 1; i < len(t.rows); i++ {
		prev, cur := t.rows[i-1], t.rows[i]
		row := make([]float64, len(cur))
		for j := range cur {
			if prev[j] == 0 {
				row[j] = math.NaN()
				continue
			}
			row[j] = cur[j]/prev[j] - 1
		}
		out.dates = append(out.dates, t.dates[i])
		out.rows = append(out.rows, row)
	}
	return out
}

// Merge outer-joins other into t on date. Columns of other that already exist in t are
// rejected. Missing cells become NaN.
func (t *Table) Merge(other *Table) (*Table, error) {
	for _, c := range other.Columns {
		if t.Has(c) {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
	}
	cols := append(slices.Clone(t.Columns), other.Columns...)
	out := NewTable(cols...)

	i, j := 0, 0
	for i < len(t.dates) || j < len(other.dates) {
		row := nanRow(len(cols))
		var date time.Time
		switch {
		case j >= len(other.dates) || (i < len(t.dates) && t.dates[i].Before(other.dates[j])):
			date = t.dates[i]
			copy(row, t.rows[i])
			i++
		case i >= len(t.dates) || other.dates[j].Before(t.dates[i]):
			date = other.dates[j]
			copy(row[len(t.Columns):], other.rows[j])
			j++
		default:
			date = t.dates[i]
			copy(row, t.rows[i])
			copy(row[len(t.Columns):], other.rows[j])
			i++
			j++
		}
		if err := out.Append(date, row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FromSeries builds a single-column table from unordered observations.
// Duplicate dates are rejected.
func FromSeries(column string, obs map[time.Time]float64) (*Table, error) {
	dates := make([]time.Time, 0, len(obs))
	for d := range obs {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	t := NewTable(column)
	for _, d := range dates {
		if err := t.Append(d, []float64{obs[d]}); err != nil {
			return nil, err
		}
	}
	return t, nil
}

var (
	// ErrEmptyTable is returned when an operation needs at least one row.
	ErrEmptyTable     = errors.New("table is empty")
	ErrColumnNotFound = errors.New("column not found")
)

func complete(r []float64) bool {
	for _, v := range r {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

func nanRow(n int) []float64 {
	r := make([]float64, n)
	for i := range r {
		r[i] = math.NaN()
	}
	return r
}

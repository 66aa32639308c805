package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Row holds one record's cells in column order. A cell is nil (null), a
// string, an int64, a float64 or a time.Time.
type Row []any

// Clone returns a shallow copy of the row. Cell values are immutable scalars,
// so a shallow copy is independent of the original.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Table is an immutable column-named table. Every transformation returns a new
// Table and leaves the receiver untouched.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// New builds a table from column names and rows. Rows shorter than the column
// list are padded with nulls; longer rows are truncated. Inputs are copied.
func New(columns []string, rows []Row) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
		rows:    make([]Row, 0, len(rows)),
	}
	for i, c := range t.columns {
		if _, exists := t.index[c]; !exists {
			t.index[c] = i
		}
	}
	for _, r := range rows {
		t.rows = append(t.rows, fit(r, len(columns)))
	}
	return t
}

// Empty returns a table with the given columns and no rows.
func Empty(columns []string) *Table {
	return New(columns, nil)
}

func fit(r Row, width int) Row {
	out := make(Row, width)
	copy(out, r)
	return out
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// ColumnIndex returns the position of a column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	return t.rows[i].Clone()
}

// Rows returns copies of every row.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Clone()
	}
	return out
}

// Value returns the cell at row i in the named column, or nil when the column
// does not exist.
func (t *Table) Value(i int, column string) any {
	idx, ok := t.index[column]
	if !ok {
		return nil
	}
	return t.rows[i][idx]
}

// Map returns a new table whose rows are fn applied to a copy of each row.
func (t *Table) Map(fn func(Row) Row) *Table {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, fn(r.Clone()))
	}
	return New(t.columns, out)
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return New(t.columns, out)
}

// RenameColumns returns a new table with every column name passed through fn.
func (t *Table) RenameColumns(fn func(string) string) *Table {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = fn(c)
	}
	return New(cols, t.rows)
}

// Select returns a new table with exactly the given columns in the given
// order. Columns missing from the receiver are filled with nulls.
func (t *Table) Select(columns []string) *Table {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(columns))
		for j, c := range columns {
			if idx, ok := t.index[c]; ok {
				nr[j] = r[idx]
			}
		}
		out[i] = nr
	}
	return New(columns, out)
}

// DropColumns returns a new table without the named columns.
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return t.Select(keep)
}

// AddColumn returns a new table with an extra column whose values come from fn.
// If the column already exists its values are replaced in place.
func (t *Table) AddColumn(name string, fn func(Row) any) *Table {
	idx, exists := t.index[name]
	cols := t.Columns()
	if !exists {
		cols = append(cols, name)
		idx = len(cols) - 1
	}
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := fit(r, len(cols))
		nr[idx] = fn(r.Clone())
		out[i] = nr
	}
	return New(cols, out)
}

// ColumnIsNull reports whether every cell of the column is null.
func (t *Table) ColumnIsNull(name string) bool {
	idx, ok := t.index[name]
	if !ok {
		return true
	}
	for _, r := range t.rows {
		if !IsNull(r[idx]) {
			return false
		}
	}
	return true
}

// Concat appends tables that share the same column list, preserving row order.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return Empty(nil), nil
	}
	cols := tables[0].columns
	var rows []Row
	for n, t := range tables {
		if !sameColumns(cols, t.columns) {
			return nil, fmt.Errorf("table %d columns %v do not match %v", n, t.columns, cols)
		}
		rows = append(rows, t.rows...)
	}
	return New(cols, rows), nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsNull reports whether a cell is null: nil, or a string that is empty after
// trimming whitespace.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	default:
		return false
	}
}

// Text returns the string form of a cell and whether the cell holds text.
func Text(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// RowKey returns a key identifying a row by full-field equality. Cells of
// different types never collide.
func RowKey(r Row) string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		switch x := v.(type) {
		case nil:
			b.WriteString("n:")
		case string:
			b.WriteString("s:")
			b.WriteString(x)
		case int64:
			b.WriteString("i:")
			b.WriteString(strconv.FormatInt(x, 10))
		case float64:
			b.WriteString("f:")
			b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		case time.Time:
			b.WriteString("t:")
			b.WriteString(x.UTC().Format(time.RFC3339Nano))
		default:
			fmt.Fprintf(&b, "x:%v", x)
		}
	}
	return b.String()
}

// ColumnKey normalizes a header label: whitespace trimmed, lower-cased, and
// each internal whitespace run replaced by a single underscore.
func ColumnKey(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

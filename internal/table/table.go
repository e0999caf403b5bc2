package table

import (
	"strconv"
)

// Value is a single cell: string, float64, bool or nil.
type Value = any

// Row maps a column name to its cell value. All rows of a Table share the same keys.
type Row map[string]Value

// Table is the in-memory dataset loaded from a file. It is read-only after load.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Head returns up to n leading rows. The returned slice shares the underlying rows.
func (t *Table) Head(n int) []Row {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Cell formats the value of col in row for display.
func Cell(row Row, col string) string {
	return Format(row[col])
}

// Format renders a cell value as text. Floats drop trailing zeros; nil is empty.
func Format(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}

// Number returns v as a float64 when it holds a numeric value.
func Number(v Value) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

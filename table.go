package degiro

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/freelectron/degiro/date"
)

// Kind is the value type of a column.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindOf returns the Kind of a cell value. ok is false for nil and for
// unsupported Go types.
func KindOf(v any) (k Kind, ok bool) {
	switch v.(type) {
	case string:
		return KindString, true
	case float64:
		return KindFloat, true
	case time.Time:
		return KindTime, true
	default:
		return 0, false
	}
}

// Row is a single record. Time is the row's temporal key: the day the row
// was reported for, at midnight in the source timezone.
type Row struct {
	Time   time.Time
	Values map[string]any
}

func (r Row) clone() Row {
	values := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Row{Time: r.Time, Values: values}
}

// Table is an ordered sequence of rows sharing a set of columns.
//
// A missing float is stored as NaN, a missing string as nil.
// Pipeline stages never mutate the Table they receive.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: slices.Clone(t.Columns), Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		out.Rows[i] = r.clone()
	}
	return out
}

// HasColumn reports whether name is one of the table columns.
func (t *Table) HasColumn(name string) bool { return slices.Contains(t.Columns, name) }

// Column returns the values of the named column, one per row.
func (t *Table) Column(name string) []any {
	values := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r.Values[name]
	}
	return values
}

// Days returns the distinct calendar days of the index, in row order.
func (t *Table) Days() []date.Date {
	var days []date.Date
	for _, r := range t.Rows {
		if d := date.Of(r.Time); !slices.Contains(days, d) {
			days = append(days, d)
		}
	}
	return days
}

// Equal reports whether t and x hold the same columns and rows. NaN equals NaN.
func (t *Table) Equal(x *Table) bool {
	if t == nil || x == nil {
		return t == x
	}
	if !slices.Equal(t.Columns, x.Columns) || len(t.Rows) != len(x.Rows) {
		return false
	}
	for i := range t.Rows {
		a, b := t.Rows[i], x.Rows[i]
		if !a.Time.Equal(b.Time) || len(a.Values) != len(b.Values) {
			return false
		}
		for k, va := range a.Values {
			vb, ok := b.Values[k]
			if !ok || !equalValue(va, vb) {
				return false
			}
		}
	}
	return true
}

func equalValue(a, b any) bool {
	switch va := a.(type) {
	case float64:
		vb, ok := b.(float64)
		return ok && (va == vb || math.IsNaN(va) && math.IsNaN(vb))
	case time.Time:
		vb, ok := b.(time.Time)
		return ok && va.Equal(vb)
	default:
		return a == b
	}
}

// Concat appends the rows of tables in order. Columns are the union of all
// columns, in order of first appearance.
func Concat(tables ...*Table) *Table {
	out := new(Table)
	n := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !slices.Contains(out.Columns, c) {
				out.Columns = append(out.Columns, c)
			}
		}
		n += len(t.Rows)
	}
	out.Rows = make([]Row, 0, n)
	for _, t := range tables {
		if t != nil {
			out.Rows = append(out.Rows, t.Rows...)
		}
	}
	return out
}

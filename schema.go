package degiro

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Column declares one column of a Schema.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool // accept nil, and NaN for floats
}

// IndexType declares the row index: a timezone-aware timestamp.
type IndexType struct {
	Name     string // name of the index when exported, e.g. "closing_date"
	Location string // IANA timezone every index value must carry
}

// Schema is the column and index contract of a Table after the Filter stage.
type Schema struct {
	Name    string
	Columns []Column
	Index   IndexType
}

// ColumnNames returns the declared column names in order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the declared column named name.
func (s *Schema) Lookup(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// maxViolationRows bounds the row numbers kept per violation.
const maxViolationRows = 10

// Validate checks t against s and returns a *SchemaValidationError listing
// every violated column, or nil.
func (s *Schema) Validate(t *Table) error {
	var violations []Violation
	for _, c := range s.Columns {
		if !t.HasColumn(c.Name) {
			violations = append(violations, Violation{Column: c.Name, Want: c.Kind.String(), Got: "missing"})
			continue
		}
		col := newCollector(c.Name, c.Kind.String())
		for i, r := range t.Rows {
			if got, ok := s.check(c, r.Values[c.Name]); !ok {
				col.add(got, i)
			}
		}
		violations = append(violations, col.violations()...)
	}

	want := "time"
	if s.Index.Location != "" {
		want += " in " + s.Index.Location
	}
	index := newCollector(s.indexName(), want)
	for i, r := range t.Rows {
		switch {
		case r.Time.IsZero():
			index.add("zero time", i)
		case s.Index.Location != "" && r.Time.Location().String() != s.Index.Location:
			index.add("time in "+r.Time.Location().String(), i)
		case !midnight(r.Time):
			index.add("time of day "+r.Time.Format("15:04:05"), i)
		}
	}
	violations = append(violations, index.violations()...)

	if len(violations) > 0 {
		return &SchemaValidationError{Schema: s.Name, Violations: violations}
	}
	return nil
}

// check returns the observed type of v and whether it satisfies c.
func (s *Schema) check(c Column, v any) (got string, ok bool) {
	if v == nil {
		return "null", c.Nullable
	}
	k, known := KindOf(v)
	if !known {
		return fmt.Sprintf("%T", v), false
	}
	if k != c.Kind {
		return k.String(), false
	}
	if f, isFloat := v.(float64); isFloat && math.IsNaN(f) {
		return "NaN", c.Nullable
	}
	return k.String(), true
}

func (s *Schema) indexName() string {
	if s.Index.Name != "" {
		return s.Index.Name
	}
	return "index"
}

// collector groups offending rows of one column by observed type.
type collector struct {
	column, want string
	byGot        map[string]*Violation
	order        []string
}

func newCollector(column, want string) *collector {
	return &collector{column: column, want: want, byGot: make(map[string]*Violation)}
}

func (c *collector) add(got string, row int) {
	v, ok := c.byGot[got]
	if !ok {
		v = &Violation{Column: c.column, Want: c.want, Got: got}
		c.byGot[got] = v
		c.order = append(c.order, got)
	}
	v.Count++
	if len(v.Rows) < maxViolationRows {
		v.Rows = append(v.Rows, row)
	}
}

func (c *collector) violations() []Violation {
	out := make([]Violation, len(c.order))
	for i, got := range c.order {
		out[i] = *c.byGot[got]
	}
	return out
}

// Violation is one column/type pair a Table does not satisfy.
type Violation struct {
	Column string
	Want   string
	Got    string
	Count  int   // number of offending rows, zero for a missing column
	Rows   []int // first offending row numbers
}

func (v Violation) String() string {
	if v.Count == 0 {
		return fmt.Sprintf("%s: want %s, got %s", v.Column, v.Want, v.Got)
	}
	return fmt.Sprintf("%s: want %s, got %s in %d rows (first %v)", v.Column, v.Want, v.Got, v.Count, v.Rows)
}

// SchemaValidationError lists every violation found in a Table.
type SchemaValidationError struct {
	Schema     string
	Violations []Violation
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("schema %s: %d violations: %s", e.Schema, len(e.Violations), strings.Join(parts, "; "))
}

// Columns returns the violated column names, without duplicates.
func (e *SchemaValidationError) Columns() []string {
	var cols []string
	for _, v := range e.Violations {
		if len(cols) == 0 || cols[len(cols)-1] != v.Column {
			cols = append(cols, v.Column)
		}
	}
	return cols
}

// midnight reports whether t is at the start of its day.
func midnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// Package ingest reads delimited exports of an image pipeline into in-memory tables.
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the content of a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "missing"
	}
}

// Value is a single cell: a number, a string, or missing.
// Numbers keep the text they were parsed from so identifiers such as "0012" survive.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// NumberValue returns a numeric cell.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f, text: strconv.FormatFloat(f, 'g', -1, 64)}
}

// TextValue returns a string cell.
func TextValue(s string) Value { return Value{kind: KindString, text: s} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Text returns the cell as written in the source file; missing cells yield "".
func (v Value) Text() string { return v.text }

// Float converts the cell to a finite float. Strings are parsed after trimming.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		return parseFloat(v.text)
	default:
		return 0, false
	}
}

func (v Value) String() string {
	if v.kind == KindMissing {
		return "<missing>"
	}
	return v.text
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

type header struct {
	names []string
	index map[string]int
	fold  map[string]int
}

func newHeader(names []string) (*header, error) {
	h := &header{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		fold:  make(map[string]int, len(names)),
	}
	for i, n := range names {
		if _, dup := h.index[n]; dup {
			return nil, fmt.Errorf("duplicate column %q", n)
		}
		h.index[n] = i
		if _, seen := h.fold[strings.ToLower(n)]; !seen {
			h.fold[strings.ToLower(n)] = i
		}
	}
	return h, nil
}

// Row is an ordered mapping from column name to Value.
type Row struct {
	h      *header
	values []Value
}

// Get returns the value stored under column.
func (r Row) Get(column string) (Value, bool) {
	if r.h == nil {
		return Missing(), false
	}
	i, ok := r.h.index[column]
	if !ok {
		return Missing(), false
	}
	return r.values[i], true
}

// Lookup is Get with a case-insensitive fallback.
func (r Row) Lookup(column string) (Value, bool) {
	if v, ok := r.Get(column); ok || r.h == nil {
		return v, ok
	}
	i, ok := r.h.fold[strings.ToLower(column)]
	if !ok {
		return Missing(), false
	}
	return r.values[i], true
}

// Float is shorthand for Lookup followed by Value.Float.
func (r Row) Float(column string) (float64, bool) {
	v, ok := r.Lookup(column)
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	if r.h == nil {
		return nil
	}
	return append([]string(nil), r.h.names...)
}

// Values returns the cells in column order.
func (r Row) Values() []Value { return append([]Value(nil), r.values...) }

// Table is an ordered list of rows sharing one column list.
type Table struct {
	Name      string
	Encoding  string
	Separator rune
	HeaderRow int
	Warnings  []string
	Rows      []Row

	h *header
}

// NewTable builds a table from column names and records. Short records are padded
// with Missing, long records are truncated. Column names must be unique.
func NewTable(name string, columns []string, records [][]Value) (*Table, error) {
	h, err := newHeader(columns)
	if err != nil {
		return nil, err
	}
	t := &Table{Name: name, Separator: ',', h: h, Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		vals := make([]Value, len(columns))
		copy(vals, rec)
		t.Rows = append(t.Rows, Row{h: h, values: vals})
	}
	return t, nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.h.names...) }

// Len reports the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether column exists with exactly this name.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.h.index[column]
	return ok
}

// Lookup resolves column case-insensitively and returns the stored name.
// An exact match wins over a case-folded one.
func (t *Table) Lookup(column string) (string, bool) {
	if i, ok := t.h.index[column]; ok {
		return t.h.names[i], true
	}
	if i, ok := t.h.fold[strings.ToLower(column)]; ok {
		return t.h.names[i], true
	}
	return "", false
}

// Column returns every value of column in row order.
func (t *Table) Column(column string) []Value {
	i, ok := t.h.index[column]
	if !ok {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row.values[i]
	}
	return out
}

// Rename returns a table whose columns are renamed through names (old -> new).
// Rows share their value slices with t. Columns absent from names keep their name.
func (t *Table) Rename(names map[string]string) (*Table, error) {
	cols := make([]string, len(t.h.names))
	for i, n := range t.h.names {
		if nn, ok := names[n]; ok {
			cols[i] = nn
		} else {
			cols[i] = n
		}
	}
	h, err := newHeader(cols)
	if err != nil {
		return nil, fmt.Errorf("rename columns: %w", err)
	}
	out := *t
	out.h = h
	out.Warnings = append([]string(nil), t.Warnings...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = Row{h: h, values: r.values}
	}
	return &out, nil
}

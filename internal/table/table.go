// Package table holds the in-memory column-oriented catalog representation
// and its on-disk codecs.
package table

import (
	"fmt"
	"slices"

	"github.com/roman-dr/drsim/internal/model"
)

// Kind of a column payload.
type Kind int

const (
	Float64 Kind = iota
	Int64
	String
)

func (k Kind) String() string {
	switch k {
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case String:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Column is a named, typed slice of values. Exactly one of F, I, S is
// populated, matching Kind.
type Column struct {
	Name string
	Kind Kind
	F    []float64
	I    []int64
	S    []string
}

func (c Column) len() int {
	switch c.Kind {
	case Float64:
		return len(c.F)
	case Int64:
		return len(c.I)
	default:
		return len(c.S)
	}
}

// Table is an ordered set of equal-length columns. Rows represent sources.
type Table struct {
	cols   []Column
	byName map[string]int
}

func New() *Table {
	return &Table{byName: make(map[string]int)}
}

// AddFloats appends a float64 column. Panics on duplicate name or length
// mismatch with existing columns, both are programming errors here.
func (t *Table) AddFloats(name string, values []float64) *Table {
	t.add(Column{Name: name, Kind: Float64, F: values})
	return t
}

func (t *Table) AddInts(name string, values []int64) *Table {
	t.add(Column{Name: name, Kind: Int64, I: values})
	return t
}

func (t *Table) AddStrings(name string, values []string) *Table {
	t.add(Column{Name: name, Kind: String, S: values})
	return t
}

func (t *Table) add(c Column) {
	if _, ok := t.byName[c.Name]; ok {
		panic(fmt.Sprintf("table: duplicate column %q", c.Name))
	}
	if len(t.cols) > 0 && c.len() != t.Len() {
		panic(fmt.Sprintf("table: column %q has %d values, want %d", c.Name, c.len(), t.Len()))
	}
	t.byName[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].len()
}

// Names returns column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Column returns the named column, or false when absent.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// Floats returns the named float64 column or nil.
func (t *Table) Floats(name string) []float64 {
	c, ok := t.Column(name)
	if !ok || c.Kind != Float64 {
		return nil
	}
	return c.F
}

func (t *Table) Ints(name string) []int64 {
	c, ok := t.Column(name)
	if !ok || c.Kind != Int64 {
		return nil
	}
	return c.I
}

func (t *Table) Strings(name string) []string {
	c, ok := t.Column(name)
	if !ok || c.Kind != String {
		return nil
	}
	return c.S
}

// SetFloats replaces the values of an existing float64 column.
func (t *Table) SetFloats(name string, values []float64) error {
	i, ok := t.byName[name]
	if !ok {
		return fmt.Errorf("table: no column %q", name)
	}
	if t.cols[i].Kind != Float64 {
		return fmt.Errorf("table: column %q is %s, not float64", name, t.cols[i].Kind)
	}
	if len(values) != t.Len() {
		return fmt.Errorf("table: %d values for column %q, want %d", len(values), name, t.Len())
	}
	t.cols[i].F = values
	return nil
}

// Select returns a new table with only the rows at the given indices,
// in the given order.
func (t *Table) Select(indices []int) *Table {
	out := New()
	for _, c := range t.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		switch c.Kind {
		case Float64:
			nc.F = make([]float64, len(indices))
			for j, i := range indices {
				nc.F[j] = c.F[i]
			}
		case Int64:
			nc.I = make([]int64, len(indices))
			for j, i := range indices {
				nc.I[j] = c.I[i]
			}
		case String:
			nc.S = make([]string, len(indices))
			for j, i := range indices {
				nc.S[j] = c.S[i]
			}
		}
		out.add(nc)
	}
	return out
}

// Slice returns rows [from, to) as a new table sharing column storage.
func (t *Table) Slice(from, to int) *Table {
	out := New()
	for _, c := range t.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		switch c.Kind {
		case Float64:
			nc.F = c.F[from:to]
		case Int64:
			nc.I = c.I[from:to]
		case String:
			nc.S = c.S[from:to]
		}
		out.add(nc)
	}
	return out
}

// Vstack concatenates tables row-wise. Every table must carry the same
// column names, kinds and order, otherwise ErrSchemaMismatch is returned.
func Vstack(tables ...*Table) (*Table, error) {
	tables = slices.DeleteFunc(slices.Clone(tables), func(t *Table) bool {
		return t == nil
	})
	if len(tables) == 0 {
		return New(), nil
	}

	first := tables[0]
	for _, t := range tables[1:] {
		if !slices.Equal(first.Names(), t.Names()) {
			return nil, fmt.Errorf("columns %v vs %v: %w",
				first.Names(), t.Names(), model.ErrSchemaMismatch)
		}
		for i := range first.cols {
			if first.cols[i].Kind != t.cols[i].Kind {
				return nil, fmt.Errorf("column %q is %s vs %s: %w",
					first.cols[i].Name, first.cols[i].Kind, t.cols[i].Kind,
					model.ErrSchemaMismatch)
			}
		}
	}

	out := New()
	for i, c := range first.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		for _, t := range tables {
			switch c.Kind {
			case Float64:
				nc.F = append(nc.F, t.cols[i].F...)
			case Int64:
				nc.I = append(nc.I, t.cols[i].I...)
			case String:
				nc.S = append(nc.S, t.cols[i].S...)
			}
		}
		out.add(nc)
	}
	return out, nil
}

// Package dataset provides the tabular data container used throughout
// the analysis engine.
package dataset

import (
	"math"
	"time"
)

// DType identifies the semantic type of a column.
type DType string

const (
	Float    DType = "float"
	Int      DType = "int"
	Bool     DType = "bool"
	String   DType = "string"
	Category DType = "category"
	Time     DType = "time"
)

// IsNumeric reports whether the type carries numeric values.
func (t DType) IsNumeric() bool {
	return t == Float || t == Int
}

// Column is a named, typed sequence of values. Exactly one backing
// slice is active, matching Type; Valid marks which entries are
// present. For Float columns a NaN entry and Valid=false are kept in
// sync.
type Column struct {
	Name string
	Type DType

	Floats  []float64
	Ints    []int64
	Bools   []bool
	Strings []string
	Times   []time.Time

	Valid []bool

	// Levels holds the distinct values of a Category column in
	// first-seen order.
	Levels []string
}

// NewFloatColumn creates a float column. NaN inputs are recorded as
// missing. The input slice is copied, never aliased.
func NewFloatColumn(name string, values []float64) Column {
	floats := make([]float64, len(values))
	valid := make([]bool, len(values))
	for i, v := range values {
		floats[i] = v
		valid[i] = !math.IsNaN(v)
	}
	return Column{Name: name, Type: Float, Floats: floats, Valid: valid}
}

// NewIntColumn creates an integer column with every entry present.
func NewIntColumn(name string, values []int64) Column {
	ints := make([]int64, len(values))
	copy(ints, values)
	return Column{Name: name, Type: Int, Ints: ints, Valid: allValid(len(values))}
}

// NewBoolColumn creates a boolean column with every entry present.
func NewBoolColumn(name string, values []bool) Column {
	bools := make([]bool, len(values))
	copy(bools, values)
	return Column{Name: name, Type: Bool, Bools: bools, Valid: allValid(len(values))}
}

// NewStringColumn creates a string column with every entry present.
func NewStringColumn(name string, values []string) Column {
	strs := make([]string, len(values))
	copy(strs, values)
	return Column{Name: name, Type: String, Strings: strs, Valid: allValid(len(values))}
}

// NewCategoryColumn creates a categorical column; levels are collected
// in first-seen order.
func NewCategoryColumn(name string, values []string) Column {
	strs := make([]string, len(values))
	copy(strs, values)
	col := Column{Name: name, Type: Category, Strings: strs, Valid: allValid(len(values))}
	col.rebuildLevels()
	return col
}

// NewTimeColumn creates a time column; zero times are recorded as
// missing.
func NewTimeColumn(name string, values []time.Time) Column {
	times := make([]time.Time, len(values))
	valid := make([]bool, len(values))
	for i, v := range values {
		times[i] = v
		valid[i] = !v.IsZero()
	}
	return Column{Name: name, Type: Time, Times: times, Valid: valid}
}

func allValid(n int) []bool {
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = true
	}
	return valid
}

func (c *Column) rebuildLevels() {
	seen := make(map[string]bool)
	c.Levels = c.Levels[:0]
	for i, v := range c.Strings {
		if !c.Valid[i] || seen[v] {
			continue
		}
		seen[v] = true
		c.Levels = append(c.Levels, v)
	}
}

// Len returns the number of entries, present or missing.
func (c *Column) Len() int {
	return len(c.Valid)
}

// Missing returns the number of missing entries.
func (c *Column) Missing() int {
	count := 0
	for _, ok := range c.Valid {
		if !ok {
			count++
		}
	}
	return count
}

// SetMissing marks entry i as missing.
func (c *Column) SetMissing(i int) {
	c.Valid[i] = false
	if c.Type == Float {
		c.Floats[i] = math.NaN()
	}
}

// Copy creates a deep copy of the column.
func (c *Column) Copy() Column {
	out := Column{Name: c.Name, Type: c.Type}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Ints != nil {
		out.Ints = append([]int64(nil), c.Ints...)
	}
	if c.Bools != nil {
		out.Bools = append([]bool(nil), c.Bools...)
	}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	if c.Times != nil {
		out.Times = append([]time.Time(nil), c.Times...)
	}
	out.Valid = append([]bool(nil), c.Valid...)
	if c.Levels != nil {
		out.Levels = append([]string(nil), c.Levels...)
	}
	return out
}

// Numeric returns the column as float64 values with NaN at missing
// entries. ok is false for non-numeric columns.
func (c *Column) Numeric() ([]float64, bool) {
	switch c.Type {
	case Float:
		out := make([]float64, len(c.Floats))
		copy(out, c.Floats)
		return out, true
	case Int:
		out := make([]float64, len(c.Ints))
		for i, v := range c.Ints {
			if c.Valid[i] {
				out[i] = float64(v)
			} else {
				out[i] = math.NaN()
			}
		}
		return out, true
	}
	return nil, false
}

// Dropna returns the present numeric values in order. Non-numeric
// columns return nil.
func (c *Column) Dropna() []float64 {
	values, ok := c.Numeric()
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if c.Valid[i] {
			out = append(out, v)
		}
	}
	return out
}

// Value returns the boxed value at position i and whether it is
// present.
func (c *Column) Value(i int) (any, bool) {
	if !c.Valid[i] {
		return nil, false
	}
	switch c.Type {
	case Float:
		return c.Floats[i], true
	case Int:
		return c.Ints[i], true
	case Bool:
		return c.Bools[i], true
	case String, Category:
		return c.Strings[i], true
	case Time:
		return c.Times[i], true
	}
	return nil, false
}

// StringValue renders the value at position i, or "" when missing.
func (c *Column) StringValue(i int) string {
	v, ok := c.Value(i)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return formatFloat(val)
	case int64:
		return formatInt(val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case time.Time:
		return val.Format(time.RFC3339)
	}
	return ""
}

// take returns a copy of the column restricted to the given row
// indices, in index order.
func (c *Column) take(idx []int) Column {
	out := Column{Name: c.Name, Type: c.Type}
	out.Valid = make([]bool, len(idx))
	for j, i := range idx {
		out.Valid[j] = c.Valid[i]
	}
	switch c.Type {
	case Float:
		out.Floats = make([]float64, len(idx))
		for j, i := range idx {
			out.Floats[j] = c.Floats[i]
		}
	case Int:
		out.Ints = make([]int64, len(idx))
		for j, i := range idx {
			out.Ints[j] = c.Ints[i]
		}
	case Bool:
		out.Bools = make([]bool, len(idx))
		for j, i := range idx {
			out.Bools[j] = c.Bools[i]
		}
	case String, Category:
		out.Strings = make([]string, len(idx))
		for j, i := range idx {
			out.Strings[j] = c.Strings[i]
		}
	case Time:
		out.Times = make([]time.Time, len(idx))
		for j, i := range idx {
			out.Times[j] = c.Times[i]
		}
	}
	if c.Type == Category {
		out.rebuildLevels()
	}
	return out
}

package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Sentinel errors callers can branch on with errors.Is.
var (
	ErrColumnNotFound = errors.New("column not found")
	ErrTypeMismatch   = errors.New("unsupported value type")
)

// Dataset is an ordered collection of equal-length, named, typed
// columns with rows aligned by position.
type Dataset struct {
	Name        string
	Description string
	Metadata    map[string]any

	cols   []Column
	byName map[string]int
}

// New creates a dataset from prepared columns. Column lengths must
// match and names must be unique.
func New(name string, cols ...Column) (*Dataset, error) {
	ds := &Dataset{
		Name:     name,
		Metadata: make(map[string]any),
		byName:   make(map[string]int),
	}
	if err := ds.SetColumns(cols...); err != nil {
		return nil, err
	}
	return ds, nil
}

// FromMatrix creates a dataset from a 2-D numeric array. Rows must be
// rectangular; NaN cells are recorded as missing. Column names beyond
// those supplied are generated as c1..cn.
func FromMatrix(name string, rows [][]float64, columns ...string) (*Dataset, error) {
	if len(rows) == 0 {
		return New(name)
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), width)
		}
	}
	if len(columns) > width {
		return nil, fmt.Errorf("%d column names for %d columns", len(columns), width)
	}

	cols := make([]Column, width)
	for j := 0; j < width; j++ {
		values := make([]float64, len(rows))
		for i := range rows {
			values[i] = rows[i][j]
		}
		colName := "c" + strconv.Itoa(j+1)
		if j < len(columns) {
			colName = columns[j]
		}
		cols[j] = NewFloatColumn(colName, values)
	}
	return New(name, cols...)
}

// FromColumns creates a dataset from a mapping of column name to value
// slice. Supported slice element types: float64, int, int64, string,
// bool, time.Time, and any (nil entries are missing). Column order is
// sorted by name.
func FromColumns(name string, cols map[string]any) (*Dataset, error) {
	names := make([]string, 0, len(cols))
	for n := range cols {
		names = append(names, n)
	}
	sort.Strings(names)

	built := make([]Column, 0, len(names))
	for _, n := range names {
		col, err := columnFromSlice(n, cols[n])
		if err != nil {
			return nil, err
		}
		built = append(built, col)
	}
	return New(name, built...)
}

func columnFromSlice(name string, values any) (Column, error) {
	switch v := values.(type) {
	case []float64:
		return NewFloatColumn(name, v), nil
	case []int:
		ints := make([]int64, len(v))
		for i, x := range v {
			ints[i] = int64(x)
		}
		return NewIntColumn(name, ints), nil
	case []int64:
		return NewIntColumn(name, v), nil
	case []string:
		return NewStringColumn(name, v), nil
	case []bool:
		return NewBoolColumn(name, v), nil
	case []time.Time:
		return NewTimeColumn(name, v), nil
	case []any:
		return columnFromBoxed(name, v)
	}
	return Column{}, fmt.Errorf("column %q: %w: %T", name, ErrTypeMismatch, values)
}

// columnFromBoxed infers a column type from boxed values with nil as
// missing: all-int values make an Int column, any float widens to
// Float, else bool, time, or string.
func columnFromBoxed(name string, values []any) (Column, error) {
	kind := inferKind(values)
	switch kind {
	case Int:
		col := Column{Name: name, Type: Int, Ints: make([]int64, len(values)), Valid: make([]bool, len(values))}
		for i, v := range values {
			if v == nil {
				continue
			}
			col.Ints[i] = toInt64(v)
			col.Valid[i] = true
		}
		return col, nil
	case Float:
		col := Column{Name: name, Type: Float, Floats: make([]float64, len(values)), Valid: make([]bool, len(values))}
		for i, v := range values {
			f, ok := toFloat64(v)
			if v == nil || !ok || math.IsNaN(f) {
				col.Floats[i] = math.NaN()
				continue
			}
			col.Floats[i] = f
			col.Valid[i] = true
		}
		return col, nil
	case Bool:
		col := Column{Name: name, Type: Bool, Bools: make([]bool, len(values)), Valid: make([]bool, len(values))}
		for i, v := range values {
			if v == nil {
				continue
			}
			col.Bools[i] = v.(bool)
			col.Valid[i] = true
		}
		return col, nil
	case Time:
		col := Column{Name: name, Type: Time, Times: make([]time.Time, len(values)), Valid: make([]bool, len(values))}
		for i, v := range values {
			if v == nil {
				continue
			}
			col.Times[i] = v.(time.Time)
			col.Valid[i] = true
		}
		return col, nil
	case String:
		col := Column{Name: name, Type: String, Strings: make([]string, len(values)), Valid: make([]bool, len(values))}
		for i, v := range values {
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return Column{}, fmt.Errorf("column %q row %d: %w: %T", name, i, ErrTypeMismatch, v)
			}
			col.Strings[i] = s
			col.Valid[i] = true
		}
		return col, nil
	}
	return Column{}, fmt.Errorf("column %q: %w", name, ErrTypeMismatch)
}

func inferKind(values []any) DType {
	allInt := true
	allBool := true
	allTime := true
	allNumeric := true
	seen := false
	for _, v := range values {
		if v == nil {
			continue
		}
		seen = true
		switch v.(type) {
		case int, int64:
			allBool = false
			allTime = false
		case float64, float32:
			allInt = false
			allBool = false
			allTime = false
		case bool:
			allInt = false
			allTime = false
			allNumeric = false
		case time.Time:
			allInt = false
			allBool = false
			allNumeric = false
		default:
			return String
		}
	}
	if !seen {
		return String
	}
	switch {
	case allInt && allNumeric:
		return Int
	case allNumeric:
		return Float
	case allBool:
		return Bool
	case allTime:
		return Time
	}
	return String
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int64:
		return x
	}
	return 0
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// FromRecords creates a dataset from a sequence of row mappings. The
// column set is the union of keys (sorted); absent keys are missing;
// each column's type is inferred from its observed values.
func FromRecords(name string, records []map[string]any) (*Dataset, error) {
	nameSet := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			nameSet[k] = true
		}
	}
	names := make([]string, 0, len(nameSet))
	for n := range nameSet {
		names = append(names, n)
	}
	sort.Strings(names)

	cols := make([]Column, 0, len(names))
	for _, n := range names {
		boxed := make([]any, len(records))
		for i, rec := range records {
			if v, ok := rec[n]; ok {
				boxed[i] = v
			}
		}
		col, err := columnFromBoxed(n, boxed)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return New(name, cols...)
}

// SetColumns replaces the table wholesale. Lengths must match and
// names must be unique.
func (d *Dataset) SetColumns(cols ...Column) error {
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := byName[c.Name]; dup {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		if i > 0 && c.Len() != cols[0].Len() {
			return fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), cols[0].Len())
		}
		byName[c.Name] = i
	}
	d.cols = cols
	d.byName = byName
	return nil
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int {
	if len(d.cols) == 0 {
		return 0
	}
	return d.cols[0].Len()
}

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int {
	return len(d.cols)
}

// Shape returns (rows, columns).
func (d *Dataset) Shape() (int, int) {
	return d.NumRows(), d.NumCols()
}

// Columns returns the column names in positional order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.Name
	}
	return names
}

// DTypes returns the semantic type of every column.
func (d *Dataset) DTypes() map[string]DType {
	types := make(map[string]DType, len(d.cols))
	for _, c := range d.cols {
		types[c.Name] = c.Type
	}
	return types
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, error) {
	i, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return &d.cols[i], nil
}

// ColumnAt returns the column at position i.
func (d *Dataset) ColumnAt(i int) *Column {
	return &d.cols[i]
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// NumericColumns returns the names of every numeric column in order.
func (d *Dataset) NumericColumns() []string {
	var names []string
	for _, c := range d.cols {
		if c.Type.IsNumeric() {
			names = append(names, c.Name)
		}
	}
	return names
}

// CategoricalColumns returns the names of every non-numeric column in
// order.
func (d *Dataset) CategoricalColumns() []string {
	var names []string
	for _, c := range d.cols {
		if !c.Type.IsNumeric() {
			names = append(names, c.Name)
		}
	}
	return names
}

// Select returns a new dataset holding copies of the named columns in
// the order given.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, err := d.Column(n)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.Copy())
	}
	out, err := New(d.Name, cols...)
	if err != nil {
		return nil, err
	}
	out.Description = d.Description
	return out, nil
}

// SelectRows returns a new dataset holding copies of the given rows in
// index order.
func (d *Dataset) SelectRows(idx []int) *Dataset {
	cols := make([]Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.take(idx)
	}
	out, _ := New(d.Name, cols...)
	out.Description = d.Description
	out.Metadata = copyMetadata(d.Metadata)
	return out
}

// AddColumn appends a column to the table.
func (d *Dataset) AddColumn(c Column) error {
	if _, dup := d.byName[c.Name]; dup {
		return fmt.Errorf("duplicate column name %q", c.Name)
	}
	if len(d.cols) > 0 && c.Len() != d.NumRows() {
		return fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), d.NumRows())
	}
	d.byName[c.Name] = len(d.cols)
	d.cols = append(d.cols, c)
	return nil
}

// ReplaceColumn swaps the named column in place, keeping its position.
func (d *Dataset) ReplaceColumn(c Column) error {
	i, ok := d.byName[c.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, c.Name)
	}
	if c.Len() != d.NumRows() {
		return fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), d.NumRows())
	}
	d.cols[i] = c
	return nil
}

// DropColumn removes the named column.
func (d *Dataset) DropColumn(name string) error {
	i, ok := d.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	d.cols = append(d.cols[:i], d.cols[i+1:]...)
	d.byName = make(map[string]int, len(d.cols))
	for j, c := range d.cols {
		d.byName[c.Name] = j
	}
	return nil
}

// Copy creates a deep copy of the dataset.
func (d *Dataset) Copy() *Dataset {
	cols := make([]Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.Copy()
	}
	out, _ := New(d.Name, cols...)
	out.Description = d.Description
	out.Metadata = copyMetadata(d.Metadata)
	return out
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Head returns the first n rows (5 when n <= 0).
func (d *Dataset) Head(n int) *Dataset {
	if n <= 0 {
		n = 5
	}
	if n > d.NumRows() {
		n = d.NumRows()
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return d.SelectRows(idx)
}

// Tail returns the last n rows (5 when n <= 0).
func (d *Dataset) Tail(n int) *Dataset {
	if n <= 0 {
		n = 5
	}
	rows := d.NumRows()
	if n > rows {
		n = rows
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rows - n + i
	}
	return d.SelectRows(idx)
}

// Row returns row i as a name-to-value mapping with nil for missing
// entries.
func (d *Dataset) Row(i int) map[string]any {
	row := make(map[string]any, len(d.cols))
	for j := range d.cols {
		c := &d.cols[j]
		if v, ok := c.Value(i); ok {
			row[c.Name] = v
		} else {
			row[c.Name] = nil
		}
	}
	return row
}

// Records returns the table as a list of row mappings.
func (d *Dataset) Records() []map[string]any {
	rows := d.NumRows()
	out := make([]map[string]any, rows)
	for i := 0; i < rows; i++ {
		out[i] = d.Row(i)
	}
	return out
}

// ToMap returns the dataset as a plain mapping with rows serialized as
// records.
func (d *Dataset) ToMap() map[string]any {
	return map[string]any{
		"name":        d.Name,
		"description": d.Description,
		"metadata":    d.Metadata,
		"data":        d.Records(),
	}
}

// FromMap reconstructs a dataset from the ToMap shape.
func FromMap(m map[string]any) (*Dataset, error) {
	name, _ := m["name"].(string)
	rawData, ok := m["data"].([]map[string]any)
	if !ok {
		if boxed, isAny := m["data"].([]any); isAny {
			rawData = make([]map[string]any, len(boxed))
			for i, r := range boxed {
				rec, isMap := r.(map[string]any)
				if !isMap {
					return nil, fmt.Errorf("data row %d: %w: %T", i, ErrTypeMismatch, r)
				}
				rawData[i] = rec
			}
		} else if m["data"] != nil {
			return nil, fmt.Errorf("data: %w: %T", ErrTypeMismatch, m["data"])
		}
	}
	ds, err := FromRecords(name, rawData)
	if err != nil {
		return nil, err
	}
	ds.Description, _ = m["description"].(string)
	if meta, isMap := m["metadata"].(map[string]any); isMap {
		ds.Metadata = copyMetadata(meta)
	}
	return ds, nil
}

// MarshalJSON serializes the dataset through its ToMap representation.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToMap())
}

// String renders a short summary.
func (d *Dataset) String() string {
	rows, cols := d.Shape()
	return fmt.Sprintf("<Dataset(name='%s', shape=(%d, %d))>", d.Name, rows, cols)
}

// Describe returns count/mean/std/min/25%/50%/75%/max for every
// numeric column, one row per statistic.
func (d *Dataset) Describe() *Dataset {
	numeric := d.NumericColumns()
	labels := []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

	cols := make([]Column, 0, len(numeric)+1)
	cols = append(cols, NewStringColumn("statistic", labels))
	for _, name := range numeric {
		c, _ := d.Column(name)
		values := c.Dropna()
		stats := describeColumn(values)
		cols = append(cols, NewFloatColumn(name, stats))
	}
	out, _ := New(d.Name+" summary", cols...)
	return out
}

func describeColumn(values []float64) []float64 {
	if len(values) == 0 {
		nan := math.NaN()
		return []float64{0, nan, nan, nan, nan, nan, nan, nan}
	}
	return []float64{
		float64(len(values)),
		mean(values),
		sampleStd(values),
		minOf(values),
		quantile(values, 0.25),
		quantile(values, 0.5),
		quantile(values, 0.75),
		maxOf(values),
	}
}

// Local numeric helpers; the stats package depends on nothing internal
// and dataset stays a leaf below it.

func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

func sampleStd(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	m := mean(x)
	sumSq := 0.0
	for _, v := range x {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(x)-1))
}

func minOf(x []float64) float64 {
	m := x[0]
	for _, v := range x[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(x []float64) float64 {
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func quantile(x []float64, p float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

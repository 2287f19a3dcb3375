package preprocess

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sartorproj/goanalyze/dataset"
	"github.com/sartorproj/goanalyze/stats"
)

// Preprocessor applies a chain of cleaning operations to a private
// working copy of a dataset. Chainable operations return the same
// instance and become no-ops once an error is recorded; Err exposes
// the first failure and terminal getters return it alongside their
// value.
type Preprocessor struct {
	working       *dataset.Dataset
	originalRows  int
	originalCols  int
	originalTypes map[string]dataset.DType

	err      error
	warnings []string
}

// New creates a preprocessor over a deep copy of the dataset. The
// caller's table is never aliased or mutated.
func New(ds *dataset.Dataset) *Preprocessor {
	p := &Preprocessor{}
	if ds == nil {
		p.err = errors.New("nil dataset")
		return p
	}
	p.working = ds.Copy()
	p.originalRows, p.originalCols = ds.Shape()
	p.originalTypes = ds.DTypes()
	return p
}

// NewColumns creates a preprocessor directly from raw columns.
func NewColumns(name string, cols ...dataset.Column) *Preprocessor {
	ds, err := dataset.New(name, cols...)
	if err != nil {
		return &Preprocessor{err: err}
	}
	return New(ds)
}

// Err returns the first error recorded by the chain, if any.
func (p *Preprocessor) Err() error {
	return p.err
}

// Warnings returns diagnostic notes recorded when the chain silently
// narrowed or skipped inputs.
func (p *Preprocessor) Warnings() []string {
	out := make([]string, len(p.warnings))
	copy(out, p.warnings)
	return out
}

func (p *Preprocessor) warn(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *Preprocessor) fail(err error) *Preprocessor {
	if p.err == nil {
		p.err = err
	}
	return p
}

// ProcessedData returns a defensive copy of the working table.
func (p *Preprocessor) ProcessedData() (*dataset.Dataset, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.working.Copy(), nil
}

// Summary describes the state of the working table relative to the
// original input.
type Summary struct {
	OriginalShape      [2]int                   `json:"original_shape"`
	CurrentShape       [2]int                   `json:"current_shape"`
	MissingTotal       int                      `json:"missing_total"`
	DTypes             map[string]dataset.DType `json:"dtypes"`
	NumericColumns     []string                 `json:"numeric_columns"`
	CategoricalColumns []string                 `json:"categorical_columns"`
}

// Summary returns shape before/after, total missing count, and the
// numeric/categorical column split of the working table.
func (p *Preprocessor) Summary() (*Summary, error) {
	if p.err != nil {
		return nil, p.err
	}
	missing := 0
	for i := 0; i < p.working.NumCols(); i++ {
		missing += p.working.ColumnAt(i).Missing()
	}
	rows, cols := p.working.Shape()
	return &Summary{
		OriginalShape:      [2]int{p.originalRows, p.originalCols},
		CurrentShape:       [2]int{rows, cols},
		MissingTotal:       missing,
		DTypes:             p.working.DTypes(),
		NumericColumns:     p.working.NumericColumns(),
		CategoricalColumns: p.working.CategoricalColumns(),
	}, nil
}

// resolveColumns expands an empty target list to all columns and
// verifies that named columns exist.
func (p *Preprocessor) resolveColumns(columns []string) ([]string, error) {
	if len(columns) == 0 {
		return p.working.Columns(), nil
	}
	for _, name := range columns {
		if !p.working.HasColumn(name) {
			return nil, fmt.Errorf("%w: %q", dataset.ErrColumnNotFound, name)
		}
	}
	return columns, nil
}

// resolveNumeric narrows the target list to numeric columns, recording
// a warning for every dropped name.
func (p *Preprocessor) resolveNumeric(op string, columns []string) []string {
	if len(columns) == 0 {
		return p.working.NumericColumns()
	}
	var numeric []string
	for _, name := range columns {
		col, err := p.working.Column(name)
		if err != nil || !col.Type.IsNumeric() {
			p.warn("%s: dropped non-numeric column %q", op, name)
			continue
		}
		numeric = append(numeric, name)
	}
	return numeric
}

// HandleMissing applies the strategy to every targeted column that
// contains missing values. Columns without missing values are left
// untouched; the default target is all columns.
func (p *Preprocessor) HandleMissing(s Strategy, columns ...string) *Preprocessor {
	if p.err != nil {
		return p
	}
	targets, err := p.resolveColumns(columns)
	if err != nil {
		return p.fail(err)
	}

	for _, name := range targets {
		col, _ := p.working.Column(name)
		if col.Missing() == 0 {
			continue
		}
		switch strat := s.(type) {
		case Drop:
			p.dropMissingRows(name)
		case Mean:
			if err := p.fillNumeric(name, stats.Mean); err != nil {
				return p.fail(err)
			}
		case Median:
			if err := p.fillNumeric(name, stats.Median); err != nil {
				return p.fail(err)
			}
		case Mode:
			if err := p.fillMode(name); err != nil {
				return p.fail(err)
			}
		case Fill:
			if strat.Value == nil {
				return p.fail(fmt.Errorf("fill strategy for column %q requires a value", name))
			}
			if err := p.fillValue(name, strat.Value); err != nil {
				return p.fail(err)
			}
		case Interpolate:
			if err := p.interpolate(name); err != nil {
				return p.fail(err)
			}
		default:
			return p.fail(fmt.Errorf("unsupported missing value strategy %T", s))
		}
	}
	return p
}

func (p *Preprocessor) dropMissingRows(name string) {
	col, _ := p.working.Column(name)
	var keep []int
	for i := 0; i < col.Len(); i++ {
		if col.Valid[i] {
			keep = append(keep, i)
		}
	}
	p.working = p.working.SelectRows(keep)
}

func (p *Preprocessor) fillNumeric(name string, f func([]float64) float64) error {
	col, _ := p.working.Column(name)
	if !col.Type.IsNumeric() {
		return fmt.Errorf("column %q is not numeric", name)
	}
	present := col.Dropna()
	if len(present) == 0 {
		return nil
	}
	return p.setMissingTo(name, f(present))
}

func (p *Preprocessor) fillMode(name string) error {
	col, _ := p.working.Column(name)
	if col.Type.IsNumeric() {
		present := col.Dropna()
		if len(present) == 0 {
			return nil
		}
		return p.setMissingTo(name, stats.Mode(present))
	}

	// Most frequent string value, smallest on ties.
	counts := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		if col.Valid[i] {
			counts[col.Strings[i]]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	best := ""
	bestCount := -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best = v
			bestCount = c
		}
	}
	out := col.Copy()
	for i := range out.Valid {
		if !out.Valid[i] {
			out.Strings[i] = best
			out.Valid[i] = true
		}
	}
	return p.working.ReplaceColumn(out)
}

// setMissingTo fills missing entries of a numeric column with v.
func (p *Preprocessor) setMissingTo(name string, v float64) error {
	col, _ := p.working.Column(name)
	out := col.Copy()
	switch out.Type {
	case dataset.Float:
		for i := range out.Valid {
			if !out.Valid[i] {
				out.Floats[i] = v
				out.Valid[i] = true
			}
		}
	case dataset.Int:
		for i := range out.Valid {
			if !out.Valid[i] {
				out.Ints[i] = int64(math.Round(v))
				out.Valid[i] = true
			}
		}
	}
	return p.working.ReplaceColumn(out)
}

func (p *Preprocessor) fillValue(name string, value any) error {
	col, _ := p.working.Column(name)
	out := col.Copy()
	switch out.Type {
	case dataset.Float, dataset.Int:
		f, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("fill value %v is not numeric for column %q", value, name)
		}
		if out.Type == dataset.Float {
			for i := range out.Valid {
				if !out.Valid[i] {
					out.Floats[i] = f
					out.Valid[i] = true
				}
			}
		} else {
			for i := range out.Valid {
				if !out.Valid[i] {
					out.Ints[i] = int64(math.Round(f))
					out.Valid[i] = true
				}
			}
		}
	case dataset.String, dataset.Category:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("fill value %v is not a string for column %q", value, name)
		}
		for i := range out.Valid {
			if !out.Valid[i] {
				out.Strings[i] = s
				out.Valid[i] = true
			}
		}
	case dataset.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("fill value %v is not a bool for column %q", value, name)
		}
		for i := range out.Valid {
			if !out.Valid[i] {
				out.Bools[i] = b
				out.Valid[i] = true
			}
		}
	case dataset.Time:
		t, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("fill value %v is not a time for column %q", value, name)
		}
		for i := range out.Valid {
			if !out.Valid[i] {
				out.Times[i] = t
				out.Valid[i] = true
			}
		}
	}
	return p.working.ReplaceColumn(out)
}

func asFloat(v any) (float64, bool) {
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

// interpolate fills interior gaps linearly between the surrounding
// present values and carries the last present value over trailing
// gaps. Leading missing entries stay missing.
func (p *Preprocessor) interpolate(name string) error {
	col, _ := p.working.Column(name)
	values, ok := col.Numeric()
	if !ok {
		return fmt.Errorf("column %q is not numeric", name)
	}
	n := len(values)

	out := make([]float64, n)
	copy(out, values)

	prev := -1
	for i := 0; i < n; i++ {
		if col.Valid[i] {
			if prev >= 0 && i-prev > 1 {
				step := (values[i] - values[prev]) / float64(i-prev)
				for j := prev + 1; j < i; j++ {
					out[j] = values[prev] + step*float64(j-prev)
				}
			}
			prev = i
		}
	}
	if prev >= 0 {
		for j := prev + 1; j < n; j++ {
			out[j] = values[prev]
		}
	}

	filled := dataset.NewFloatColumn(name, out)
	if col.Type == dataset.Int {
		ints := make([]int64, n)
		valid := make([]bool, n)
		for i, v := range out {
			if math.IsNaN(v) {
				continue
			}
			ints[i] = int64(math.Round(v))
			valid[i] = true
		}
		filled = dataset.Column{Name: name, Type: dataset.Int, Ints: ints, Valid: valid}
	}
	return p.working.ReplaceColumn(filled)
}

// ConvertTypes casts each named column to the requested type. Cast
// failures stop the chain with an error.
func (p *Preprocessor) ConvertTypes(types map[string]dataset.DType) *Preprocessor {
	if p.err != nil {
		return p
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		col, err := p.working.Column(name)
		if err != nil {
			return p.fail(err)
		}
		converted, err := castColumn(col, types[name])
		if err != nil {
			return p.fail(err)
		}
		if err := p.working.ReplaceColumn(converted); err != nil {
			return p.fail(err)
		}
	}
	return p
}

// InferTypes re-infers String columns whose present values all parse
// cleanly as integer, float, boolean, or time.
func (p *Preprocessor) InferTypes() *Preprocessor {
	if p.err != nil {
		return p
	}
	for _, name := range p.working.Columns() {
		col, _ := p.working.Column(name)
		if col.Type != dataset.String {
			continue
		}
		target, ok := inferStringColumn(col)
		if !ok {
			continue
		}
		converted, err := castColumn(col, target)
		if err != nil {
			continue
		}
		p.working.ReplaceColumn(converted)
	}
	return p
}

func inferStringColumn(col *dataset.Column) (dataset.DType, bool) {
	allInt := true
	allFloat := true
	allBool := true
	allTime := true
	seen := false
	for i, s := range col.Strings {
		if !col.Valid[i] {
			continue
		}
		seen = true
		s = strings.TrimSpace(s)
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			allFloat = false
		}
		if _, err := strconv.ParseBool(s); err != nil {
			allBool = false
		}
		if _, err := parseTime(s); err != nil {
			allTime = false
		}
	}
	if !seen {
		return "", false
	}
	switch {
	case allInt:
		return dataset.Int, true
	case allFloat:
		return dataset.Float, true
	case allBool:
		return dataset.Bool, true
	case allTime:
		return dataset.Time, true
	}
	return "", false
}

func parseTime(s string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	var err error
	for _, layout := range layouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func castColumn(col *dataset.Column, target dataset.DType) (dataset.Column, error) {
	if col.Type == target {
		return col.Copy(), nil
	}
	n := col.Len()

	switch target {
	case dataset.Float:
		floats := make([]float64, n)
		for i := 0; i < n; i++ {
			if !col.Valid[i] {
				floats[i] = math.NaN()
				continue
			}
			f, err := cellToFloat(col, i)
			if err != nil {
				return dataset.Column{}, fmt.Errorf("column %q row %d: %w", col.Name, i, err)
			}
			floats[i] = f
		}
		return dataset.NewFloatColumn(col.Name, floats), nil

	case dataset.Int:
		ints := make([]int64, n)
		valid := make([]bool, n)
		for i := 0; i < n; i++ {
			if !col.Valid[i] {
				return dataset.Column{}, fmt.Errorf("column %q: cannot cast missing values to int", col.Name)
			}
			f, err := cellToFloat(col, i)
			if err != nil {
				return dataset.Column{}, fmt.Errorf("column %q row %d: %w", col.Name, i, err)
			}
			ints[i] = int64(f)
			valid[i] = true
		}
		return dataset.Column{Name: col.Name, Type: dataset.Int, Ints: ints, Valid: valid}, nil

	case dataset.Bool:
		bools := make([]bool, n)
		valid := make([]bool, n)
		for i := 0; i < n; i++ {
			if !col.Valid[i] {
				continue
			}
			switch col.Type {
			case dataset.Float:
				bools[i] = col.Floats[i] != 0
			case dataset.Int:
				bools[i] = col.Ints[i] != 0
			case dataset.String, dataset.Category:
				b, err := strconv.ParseBool(strings.TrimSpace(col.Strings[i]))
				if err != nil {
					return dataset.Column{}, fmt.Errorf("column %q row %d: %w", col.Name, i, err)
				}
				bools[i] = b
			default:
				return dataset.Column{}, fmt.Errorf("column %q: cannot cast %s to bool", col.Name, col.Type)
			}
			valid[i] = true
		}
		return dataset.Column{Name: col.Name, Type: dataset.Bool, Bools: bools, Valid: valid}, nil

	case dataset.String, dataset.Category:
		strs := make([]string, n)
		valid := make([]bool, n)
		for i := 0; i < n; i++ {
			if !col.Valid[i] {
				continue
			}
			strs[i] = col.StringValue(i)
			valid[i] = true
		}
		out := dataset.Column{Name: col.Name, Type: target, Strings: strs, Valid: valid}
		if target == dataset.Category {
			rebuilt := dataset.NewCategoryColumn(col.Name, strs)
			rebuilt.Valid = valid
			out = rebuilt
		}
		return out, nil

	case dataset.Time:
		times := make([]time.Time, n)
		valid := make([]bool, n)
		for i := 0; i < n; i++ {
			if !col.Valid[i] {
				continue
			}
			if col.Type != dataset.String && col.Type != dataset.Category {
				return dataset.Column{}, fmt.Errorf("column %q: cannot cast %s to time", col.Name, col.Type)
			}
			t, err := parseTime(strings.TrimSpace(col.Strings[i]))
			if err != nil {
				return dataset.Column{}, fmt.Errorf("column %q row %d: %w", col.Name, i, err)
			}
			times[i] = t
			valid[i] = true
		}
		return dataset.Column{Name: col.Name, Type: dataset.Time, Times: times, Valid: valid}, nil
	}
	return dataset.Column{}, fmt.Errorf("column %q: unsupported target type %q", col.Name, target)
}

func cellToFloat(col *dataset.Column, i int) (float64, error) {
	switch col.Type {
	case dataset.Float:
		return col.Floats[i], nil
	case dataset.Int:
		return float64(col.Ints[i]), nil
	case dataset.Bool:
		if col.Bools[i] {
			return 1, nil
		}
		return 0, nil
	case dataset.String, dataset.Category:
		return strconv.ParseFloat(strings.TrimSpace(col.Strings[i]), 64)
	}
	return 0, fmt.Errorf("cannot cast %s to numeric", col.Type)
}

// Normalize scales the targeted numeric columns in the working copy.
// Non-numeric names are dropped from the target set with a warning;
// zero-spread columns are skipped with a warning.
func (p *Preprocessor) Normalize(s Scaler, columns ...string) *Preprocessor {
	if p.err != nil {
		return p
	}
	for _, name := range p.resolveNumeric("normalize", columns) {
		col, _ := p.working.Column(name)
		scaled, ok := scaleColumn(col, s)
		if !ok {
			p.warn("normalize: skipped zero-spread column %q", name)
			continue
		}
		if err := p.working.ReplaceColumn(scaled); err != nil {
			return p.fail(err)
		}
	}
	return p
}

// Normalized returns the scaled numeric sub-table without mutating the
// working copy.
func (p *Preprocessor) Normalized(s Scaler, columns ...string) (*dataset.Dataset, error) {
	if p.err != nil {
		return nil, p.err
	}
	targets := p.resolveNumeric("normalize", columns)
	cols := make([]dataset.Column, 0, len(targets))
	for _, name := range targets {
		col, _ := p.working.Column(name)
		scaled, ok := scaleColumn(col, s)
		if !ok {
			p.warn("normalize: skipped zero-spread column %q", name)
			scaled = col.Copy()
		}
		cols = append(cols, scaled)
	}
	return dataset.New(p.working.Name, cols...)
}

// scaleColumn returns the scaled column as Float. ok is false when the
// column has no spread (or no present values) under the scaler.
func scaleColumn(col *dataset.Column, s Scaler) (dataset.Column, bool) {
	values, _ := col.Numeric()
	present := col.Dropna()
	if len(present) == 0 {
		return dataset.Column{}, false
	}

	var shift, scale float64
	switch s.(type) {
	case MinMax:
		shift = stats.Min(present)
		scale = stats.Max(present) - shift
	case Standard:
		shift = stats.Mean(present)
		scale = stats.Std(present)
	case Robust:
		shift = stats.Median(present)
		scale = stats.IQR(present)
	case MaxAbs:
		shift = 0
		for _, v := range present {
			if a := math.Abs(v); a > scale {
				scale = a
			}
		}
	}
	if scale == 0 {
		return dataset.Column{}, false
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if !col.Valid[i] {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - shift) / scale
	}
	return dataset.NewFloatColumn(col.Name, out), true
}

// DetectOutliers returns a row-aligned boolean mask, true where the
// row is an outlier in any targeted column. Zero-spread or all-missing
// columns contribute no outliers.
func (p *Preprocessor) DetectOutliers(d Detector, columns ...string) ([]bool, error) {
	if p.err != nil {
		return nil, p.err
	}
	mask := make([]bool, p.working.NumRows())
	for _, name := range p.resolveNumeric("detect outliers", columns) {
		col, _ := p.working.Column(name)

		values, _ := col.Numeric()
		var present []float64
		var rows []int
		for i := 0; i < col.Len(); i++ {
			if col.Valid[i] {
				present = append(present, values[i])
				rows = append(rows, i)
			}
		}
		if len(present) == 0 {
			p.warn("detect outliers: skipped all-missing column %q", name)
			continue
		}

		var result *stats.OutlierResult
		switch det := d.(type) {
		case ZScore:
			result = stats.OutliersZScore(present, det.Threshold)
		case IQR:
			result = stats.OutliersIQR(present, det.Multiplier)
		default:
			return nil, fmt.Errorf("unsupported outlier detector %T", d)
		}
		if result.Count == 0 && stats.Variance(present) == 0 {
			p.warn("detect outliers: skipped zero-variance column %q", name)
			continue
		}
		for _, idx := range result.Indices {
			mask[rows[idx]] = true
		}
	}
	return mask, nil
}

// RemoveOutliers drops every row flagged by DetectOutliers.
func (p *Preprocessor) RemoveOutliers(d Detector, columns ...string) *Preprocessor {
	if p.err != nil {
		return p
	}
	mask, err := p.DetectOutliers(d, columns...)
	if err != nil {
		return p.fail(err)
	}
	var keep []int
	for i, out := range mask {
		if !out {
			keep = append(keep, i)
		}
	}
	p.working = p.working.SelectRows(keep)
	return p
}

// FilterRows keeps rows satisfying a boolean expression over column
// names, e.g. "age > 30 and income > 50000". Comparisons that touch a
// missing value are false.
func (p *Preprocessor) FilterRows(expr string) *Preprocessor {
	if p.err != nil {
		return p
	}
	parsed, err := parseFilter(expr)
	if err != nil {
		return p.fail(err)
	}
	var keep []int
	for i := 0; i < p.working.NumRows(); i++ {
		ok, err := parsed.eval(p.working, i)
		if err != nil {
			return p.fail(err)
		}
		if ok {
			keep = append(keep, i)
		}
	}
	p.working = p.working.SelectRows(keep)
	return p
}

// SampleOptions selects a subset size by exact count or fraction.
// Exactly one of N and Frac must be set. A non-zero Seed makes the
// draw reproducible.
type SampleOptions struct {
	N    int
	Frac float64
	Seed int64
}

// Sample keeps a random subset of rows, drawn without replacement in
// draw order.
func (p *Preprocessor) Sample(opts SampleOptions) *Preprocessor {
	if p.err != nil {
		return p
	}
	rows := p.working.NumRows()

	var n int
	switch {
	case opts.N > 0 && opts.Frac != 0:
		return p.fail(errors.New("sample: set either n or frac, not both"))
	case opts.N > 0:
		n = opts.N
	case opts.Frac > 0:
		if opts.Frac > 1 {
			return p.fail(fmt.Errorf("sample: frac %v out of range", opts.Frac))
		}
		n = int(math.Round(float64(rows) * opts.Frac))
	default:
		return p.fail(errors.New("sample: either n or frac is required"))
	}
	if n > rows {
		return p.fail(fmt.Errorf("sample: n %d exceeds %d rows", n, rows))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(rows)[:n]

	p.working = p.working.SelectRows(idx)
	return p
}

// Package correlation implements the correlation analyzer: pairwise
// correlation matrices with significance tests, partial correlation,
// and single-pair tests with Fisher-Z confidence intervals.
package correlation

import (
	"fmt"
	"math"
	"sort"

	"github.com/sartorproj/goanalyze/analysis"
	"github.com/sartorproj/goanalyze/chart"
	"github.com/sartorproj/goanalyze/dataset"
	"github.com/sartorproj/goanalyze/stats"
)

// Method selects the correlation coefficient.
type Method string

const (
	Pearson  Method = "pearson"
	Spearman Method = "spearman"
	Kendall  Method = "kendall"
)

// Options parametrize a correlation analysis.
type Options struct {
	Columns []string
	Method  Method
	PValues bool
	Charts  bool
}

// DefaultOptions uses Pearson correlation with p-values and charts.
func DefaultOptions() Options {
	return Options{Method: Pearson, PValues: true, Charts: true}
}

// Report is the data payload of a correlation analysis result.
type Report struct {
	Columns []string    `json:"columns"`
	Matrix  [][]float64 `json:"matrix"`
	PValues [][]float64 `json:"p_values,omitempty"`
	Method  string      `json:"method"`
}

// SignificantPair is a variable pair whose correlation passes both the
// strength threshold and the significance level.
type SignificantPair struct {
	Var1        string  `json:"var1"`
	Var2        string  `json:"var2"`
	Correlation float64 `json:"correlation"`
	PValue      float64 `json:"p_value"`
}

// SignificanceOptions parametrize SignificantCorrelations.
type SignificanceOptions struct {
	Columns   []string
	Method    Method
	Threshold float64 // minimum |r|, 0.5 when zero
	Alpha     float64 // significance level, 0.05 when zero
}

// TestResult is the output of a single-pair correlation test.
type TestResult struct {
	Var1        string  `json:"var1"`
	Var2        string  `json:"var2"`
	Method      string  `json:"method"`
	Correlation float64 `json:"correlation"`
	PValue      float64 `json:"p_value"`
	N           int     `json:"n"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
	Significant bool    `json:"significant"`
}

// Analyzer computes correlation analyses for a dataset.
type Analyzer struct {
	*analysis.Base
}

// New creates a correlation analyzer over the dataset.
func New(ds *dataset.Dataset) *Analyzer {
	return &Analyzer{Base: analysis.NewBase("correlation", ds)}
}

// numericTargets narrows the requested columns to numeric ones,
// recording a warning for every dropped name, and defaults to all
// numeric columns.
func (a *Analyzer) numericTargets(columns []string) ([]string, error) {
	ds := a.Dataset()
	if len(columns) == 0 {
		columns = ds.NumericColumns()
	} else {
		var numeric []string
		for _, name := range columns {
			col, err := ds.Column(name)
			if err != nil || !col.Type.IsNumeric() {
				a.Warn("correlation: dropped non-numeric column %q", name)
				continue
			}
			numeric = append(numeric, name)
		}
		columns = numeric
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no numeric columns available for correlation analysis")
	}
	return columns, nil
}

// pairTest computes the correlation and p-value of two aligned series.
func pairTest(x, y []float64, method Method) (r, p float64, err error) {
	switch method {
	case Pearson, "":
		r, p = stats.PearsonTest(x, y)
	case Spearman:
		r, p = stats.SpearmanTest(x, y)
	case Kendall:
		r, p = stats.KendallTest(x, y)
	default:
		return 0, 0, fmt.Errorf("unsupported correlation method %q", method)
	}
	return r, p, nil
}

// pairwiseComplete returns the rows of two columns where both values
// are present.
func pairwiseComplete(a, b *dataset.Column) (x, y []float64) {
	av, _ := a.Numeric()
	bv, _ := b.Numeric()
	for i := range av {
		if a.Valid[i] && b.Valid[i] {
			x = append(x, av[i])
			y = append(y, bv[i])
		}
	}
	return x, y
}

// Analyze computes the full correlation matrix (and p-value matrix
// when requested) over the targeted numeric columns using
// pairwise-complete observations.
func (a *Analyzer) Analyze(opts Options) (*analysis.Result, error) {
	if err := a.ValidateDataset(); err != nil {
		return nil, err
	}
	if opts.Method == "" {
		opts.Method = Pearson
	}
	columns, err := a.numericTargets(opts.Columns)
	if err != nil {
		return nil, err
	}
	ds := a.Dataset()
	k := len(columns)

	matrix := make([][]float64, k)
	var pvalues [][]float64
	if opts.PValues {
		pvalues = make([][]float64, k)
	}
	for i := range matrix {
		matrix[i] = make([]float64, k)
		matrix[i][i] = 1
		if opts.PValues {
			pvalues[i] = make([]float64, k)
		}
	}

	for i := 0; i < k; i++ {
		ci, _ := ds.Column(columns[i])
		for j := i + 1; j < k; j++ {
			cj, _ := ds.Column(columns[j])
			x, y := pairwiseComplete(ci, cj)
			r, p, err := pairTest(x, y, opts.Method)
			if err != nil {
				return nil, err
			}
			matrix[i][j] = r
			matrix[j][i] = r
			if opts.PValues {
				pvalues[i][j] = p
				pvalues[j][i] = p
			}
		}
	}

	report := &Report{
		Columns: columns,
		Matrix:  matrix,
		PValues: pvalues,
		Method:  string(opts.Method),
	}

	var charts []analysis.Chart
	if opts.Charts {
		charts = append(charts, chart.NewHeatmap("Correlation Matrix ("+string(opts.Method)+")", columns, columns, matrix))
		if opts.PValues {
			charts = append(charts, chart.NewHeatmap("Correlation P-Values", columns, columns, pvalues))
		}
		charts = append(charts, a.pairScatters(columns, matrix)...)
	}

	metadata := map[string]any{
		"method":      string(opts.Method),
		"columns":     columns,
		"sample_size": ds.NumRows(),
	}
	return a.CreateResult(report, metadata, charts...), nil
}

// pairScatters builds scatter plots for the strongest correlated pairs
// by |r|, at most 10.
func (a *Analyzer) pairScatters(columns []string, matrix [][]float64) []analysis.Chart {
	type pair struct {
		i, j int
		r    float64
	}
	var pairs []pair
	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			if !math.IsNaN(matrix[i][j]) {
				pairs = append(pairs, pair{i, j, matrix[i][j]})
			}
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].r) > math.Abs(pairs[b].r)
	})
	if len(pairs) > 10 {
		pairs = pairs[:10]
	}

	ds := a.Dataset()
	var charts []analysis.Chart
	for _, p := range pairs {
		ci, _ := ds.Column(columns[p.i])
		cj, _ := ds.Column(columns[p.j])
		x, y := pairwiseComplete(ci, cj)
		title := fmt.Sprintf("%s vs %s (r=%.3f)", columns[p.i], columns[p.j], p.r)
		charts = append(charts, chart.NewScatter(title, x, y, nil, columns[p.i], columns[p.j]))
	}
	return charts
}

// SignificantCorrelations returns the upper-triangle variable pairs
// with |r| at or above the threshold and p at or below alpha, ordered
// by descending |r|.
func (a *Analyzer) SignificantCorrelations(opts SignificanceOptions) ([]SignificantPair, error) {
	if err := a.ValidateDataset(); err != nil {
		return nil, err
	}
	if opts.Method == "" {
		opts.Method = Pearson
	}
	if opts.Threshold == 0 {
		opts.Threshold = 0.5
	}
	if opts.Alpha == 0 {
		opts.Alpha = 0.05
	}
	columns, err := a.numericTargets(opts.Columns)
	if err != nil {
		return nil, err
	}

	ds := a.Dataset()
	var pairs []SignificantPair
	for i := 0; i < len(columns); i++ {
		ci, _ := ds.Column(columns[i])
		for j := i + 1; j < len(columns); j++ {
			cj, _ := ds.Column(columns[j])
			x, y := pairwiseComplete(ci, cj)
			r, p, err := pairTest(x, y, opts.Method)
			if err != nil {
				return nil, err
			}
			if math.IsNaN(r) || math.Abs(r) < opts.Threshold || p > opts.Alpha {
				continue
			}
			pairs = append(pairs, SignificantPair{
				Var1:        columns[i],
				Var2:        columns[j],
				Correlation: r,
				PValue:      p,
			})
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	return pairs, nil
}

// PartialCorrelation computes the correlation between two variables
// after removing the linear effect of the control variables.
func (a *Analyzer) PartialCorrelation(var1, var2 string, controls []string) (r, p float64, err error) {
	if err := a.ValidateDataset(); err != nil {
		return 0, 0, err
	}
	ds := a.Dataset()

	names := append([]string{var1, var2}, controls...)
	cols := make([]*dataset.Column, len(names))
	for i, name := range names {
		col, err := ds.Column(name)
		if err != nil {
			return 0, 0, err
		}
		if !col.Type.IsNumeric() {
			return 0, 0, fmt.Errorf("column %q is not numeric", name)
		}
		cols[i] = col
	}

	// Listwise deletion over every named variable.
	rows := ds.NumRows()
	values := make([][]float64, len(cols))
	for i, col := range cols {
		values[i], _ = col.Numeric()
	}
	complete := make([][]float64, len(cols))
	for row := 0; row < rows; row++ {
		ok := true
		for _, col := range cols {
			if !col.Valid[row] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for i := range cols {
			complete[i] = append(complete[i], values[i][row])
		}
	}

	return stats.PartialCorrelation(complete[0], complete[1], complete[2:])
}

// Test runs a single-pair correlation test, returning the coefficient,
// p-value, sample size, and the Fisher-Z 95% confidence interval.
func (a *Analyzer) Test(var1, var2 string, method Method) (*TestResult, error) {
	if err := a.ValidateDataset(); err != nil {
		return nil, err
	}
	if method == "" {
		method = Pearson
	}
	ds := a.Dataset()

	c1, err := ds.Column(var1)
	if err != nil {
		return nil, err
	}
	c2, err := ds.Column(var2)
	if err != nil {
		return nil, err
	}
	if !c1.Type.IsNumeric() || !c2.Type.IsNumeric() {
		return nil, fmt.Errorf("correlation test requires numeric columns")
	}

	x, y := pairwiseComplete(c1, c2)
	r, p, err := pairTest(x, y, method)
	if err != nil {
		return nil, err
	}
	lo, hi := stats.FisherCI(r, len(x), 0.95)

	return &TestResult{
		Var1:        var1,
		Var2:        var2,
		Method:      string(method),
		Correlation: r,
		PValue:      p,
		N:           len(x),
		CILower:     lo,
		CIUpper:     hi,
		Significant: p <= 0.05,
	}, nil
}

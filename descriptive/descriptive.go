// Package descriptive implements the descriptive statistics analyzer:
// per-column summary statistics, distribution shape, outlier reports,
// missing value summaries, and frequency tables.
package descriptive

import (
	"fmt"
	"sort"

	"github.com/sartorproj/goanalyze/analysis"
	"github.com/sartorproj/goanalyze/chart"
	"github.com/sartorproj/goanalyze/dataset"
	"github.com/sartorproj/goanalyze/stats"
)

// Method selects the outlier detection method. It is a closed union;
// each variant carries its own parameters.
type Method interface {
	outlierMethod()
	name() string
}

// IQR flags values outside [Q1 - m*IQR, Q3 + m*IQR] with m =
// Multiplier (1.5 when zero).
type IQR struct {
	Multiplier float64
}

// ZScore flags values with |z| above Threshold (3.0 when zero).
type ZScore struct {
	Threshold float64
}

// IsolationForest flags the most anomalous values by isolation-forest
// score; Contamination is the expected outlier fraction (0.1 when
// zero).
type IsolationForest struct {
	Contamination float64
	Seed          int64
}

func (IQR) outlierMethod()             {}
func (ZScore) outlierMethod()          {}
func (IsolationForest) outlierMethod() {}

func (IQR) name() string             { return "iqr" }
func (ZScore) name() string          { return "zscore" }
func (IsolationForest) name() string { return "isolation_forest" }

// StatSet scopes which statistic families Analyze computes.
type StatSet string

const (
	All          StatSet = "all"
	Basic        StatSet = "basic"
	Distribution StatSet = "distribution"
)

// Options parametrize a descriptive analysis.
type Options struct {
	Columns           []string
	Stats             StatSet
	BasicStats        bool
	DistributionStats bool
	Outliers          bool
	OutlierMethod     Method
	FrequencyTable    bool
	Charts            bool
}

// DefaultOptions enables every statistic family with IQR outlier
// detection and chart generation.
func DefaultOptions() Options {
	return Options{
		Stats:             All,
		BasicStats:        true,
		DistributionStats: true,
		Outliers:          true,
		OutlierMethod:     IQR{},
		Charts:            true,
	}
}

// BasicStats holds the per-column summary statistics, computed over
// non-missing values only.
type BasicStats struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Sum      float64 `json:"sum"`
	Variance float64 `json:"variance"`
}

// DistributionStats holds the per-column distribution shape. The
// normality fields are nil when fewer than 3 observations exist or the
// test numerically fails.
type DistributionStats struct {
	Skewness           float64  `json:"skewness"`
	Kurtosis           float64  `json:"kurtosis"`
	Q25                float64  `json:"q25"`
	Q50                float64  `json:"q50"`
	Q75                float64  `json:"q75"`
	IQR                float64  `json:"iqr"`
	NormalityStatistic *float64 `json:"normality_statistic"`
	NormalityPValue    *float64 `json:"normality_p_value"`
}

// OutlierReport holds the per-column outlier detection output.
type OutlierReport struct {
	Method     string    `json:"method"`
	Mask       []bool    `json:"mask"`
	Indices    []int     `json:"indices"`
	Count      int       `json:"count"`
	LowerBound *float64  `json:"lower_bound,omitempty"`
	UpperBound *float64  `json:"upper_bound,omitempty"`
	ZScores    []float64 `json:"z_scores,omitempty"`
	Scores     []float64 `json:"scores,omitempty"`
}

// MissingSummary holds the per-column missing value count and share.
type MissingSummary struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FrequencyEntry is one row of a value frequency table. Missing is
// true for the missing-value bucket.
type FrequencyEntry struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Missing    bool    `json:"missing,omitempty"`
}

// Report is the data payload of a descriptive analysis result.
type Report struct {
	Columns      []string                      `json:"columns"`
	Basic        map[string]*BasicStats        `json:"basic_stats,omitempty"`
	Distribution map[string]*DistributionStats `json:"distribution_stats,omitempty"`
	Outliers     map[string]*OutlierReport     `json:"outliers,omitempty"`
	Missing      map[string]*MissingSummary    `json:"missing_values"`
	Frequency    map[string][]FrequencyEntry   `json:"frequency_tables,omitempty"`
}

// Analyzer computes descriptive statistics for a dataset.
type Analyzer struct {
	*analysis.Base
}

// New creates a descriptive analyzer over the dataset.
func New(ds *dataset.Dataset) *Analyzer {
	return &Analyzer{Base: analysis.NewBase("descriptive", ds)}
}

// Analyze runs the analysis and returns a result whose data payload is
// a Report. With no columns given the numeric columns are used, or all
// columns when a frequency table is requested.
func (a *Analyzer) Analyze(opts Options) (*analysis.Result, error) {
	if err := a.ValidateDataset(); err != nil {
		return nil, err
	}
	ds := a.Dataset()

	if opts.Stats == "" {
		opts.Stats = All
	}
	if opts.OutlierMethod == nil {
		opts.OutlierMethod = IQR{}
	}

	columns := opts.Columns
	if len(columns) == 0 {
		if opts.FrequencyTable {
			columns = ds.Columns()
		} else {
			columns = ds.NumericColumns()
		}
	} else {
		for _, name := range columns {
			if !ds.HasColumn(name) {
				return nil, fmt.Errorf("%w: %q", dataset.ErrColumnNotFound, name)
			}
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns available for descriptive analysis")
	}

	var numeric []string
	for _, name := range columns {
		col, _ := ds.Column(name)
		if col.Type.IsNumeric() {
			numeric = append(numeric, name)
		}
	}
	if len(numeric) == 0 && !opts.FrequencyTable {
		return nil, fmt.Errorf("no numeric columns available for descriptive analysis")
	}

	report := &Report{
		Columns: columns,
		Missing: make(map[string]*MissingSummary, len(columns)),
	}

	doBasic := opts.BasicStats && opts.Stats != Distribution
	doDistribution := opts.DistributionStats && opts.Stats != Basic

	if doBasic && len(numeric) > 0 {
		report.Basic = make(map[string]*BasicStats, len(numeric))
	}
	if doDistribution && len(numeric) > 0 {
		report.Distribution = make(map[string]*DistributionStats, len(numeric))
	}
	if opts.Outliers && len(numeric) > 0 {
		report.Outliers = make(map[string]*OutlierReport, len(numeric))
	}

	for _, name := range numeric {
		col, _ := ds.Column(name)
		values := col.Dropna()

		if doBasic {
			report.Basic[name] = basicStats(values)
		}
		if doDistribution {
			report.Distribution[name] = a.distributionStats(name, values)
		}
		if opts.Outliers {
			report.Outliers[name] = outlierReport(col, opts.OutlierMethod)
		}
	}

	// Missing summary is always computed over the selected columns.
	rows := ds.NumRows()
	for _, name := range columns {
		col, _ := ds.Column(name)
		missing := col.Missing()
		report.Missing[name] = &MissingSummary{
			Count:      missing,
			Percentage: 100 * float64(missing) / float64(rows),
		}
	}

	if opts.FrequencyTable {
		report.Frequency = make(map[string][]FrequencyEntry, len(columns))
		for _, name := range columns {
			col, _ := ds.Column(name)
			report.Frequency[name] = frequencyTable(col)
		}
	}

	var charts []analysis.Chart
	if opts.Charts {
		charts = a.buildCharts(columns, numeric)
	}

	metadata := map[string]any{
		"columns":     columns,
		"stat_type":   string(opts.Stats),
		"sample_size": rows,
	}
	return a.CreateResult(report, metadata, charts...), nil
}

func basicStats(values []float64) *BasicStats {
	if len(values) == 0 {
		return &BasicStats{}
	}
	return &BasicStats{
		Count:    len(values),
		Mean:     stats.Mean(values),
		Std:      stats.Std(values),
		Min:      stats.Min(values),
		Max:      stats.Max(values),
		Median:   stats.Median(values),
		Sum:      stats.Sum(values),
		Variance: stats.Variance(values),
	}
}

func (a *Analyzer) distributionStats(name string, values []float64) *DistributionStats {
	d := &DistributionStats{
		Skewness: stats.Skewness(values),
		Kurtosis: stats.Kurtosis(values),
		Q25:      stats.Quantile(values, 0.25),
		Q50:      stats.Quantile(values, 0.5),
		Q75:      stats.Quantile(values, 0.75),
		IQR:      stats.IQR(values),
	}
	if len(values) < 3 {
		a.Warn("normality test skipped for %q: fewer than 3 observations", name)
		return d
	}
	sw, err := stats.ShapiroWilk(values)
	if err != nil {
		a.Warn("normality test skipped for %q: %v", name, err)
		return d
	}
	d.NormalityStatistic = &sw.Statistic
	d.NormalityPValue = &sw.PValue
	return d
}

// outlierReport runs the detector over the present values and maps the
// flagged positions back to original row indices.
func outlierReport(col *dataset.Column, m Method) *OutlierReport {
	values, _ := col.Numeric()
	var present []float64
	var rows []int
	for i := range values {
		if col.Valid[i] {
			present = append(present, values[i])
			rows = append(rows, i)
		}
	}

	var result *stats.OutlierResult
	switch det := m.(type) {
	case IQR:
		result = stats.OutliersIQR(present, det.Multiplier)
	case ZScore:
		result = stats.OutliersZScore(present, det.Threshold)
	case IsolationForest:
		result = stats.OutliersIsolation(present, det.Contamination, det.Seed)
	}

	report := &OutlierReport{
		Method: m.name(),
		Mask:   make([]bool, col.Len()),
	}
	for _, idx := range result.Indices {
		row := rows[idx]
		report.Mask[row] = true
		report.Indices = append(report.Indices, row)
	}
	report.Count = len(report.Indices)

	switch m.(type) {
	case IQR:
		lo, hi := result.LowerBound, result.UpperBound
		report.LowerBound = &lo
		report.UpperBound = &hi
	case ZScore:
		report.ZScores = result.ZScores
	case IsolationForest:
		report.Scores = result.Scores
	}
	return report
}

// frequencyTable counts distinct values in descending frequency order,
// ties broken by value, with an explicit missing bucket when the
// column has missing entries.
func frequencyTable(col *dataset.Column) []FrequencyEntry {
	n := col.Len()
	counts := make(map[string]int)
	for i := 0; i < n; i++ {
		if col.Valid[i] {
			counts[col.StringValue(i)]++
		}
	}

	entries := make([]FrequencyEntry, 0, len(counts)+1)
	for v, c := range counts {
		entries = append(entries, FrequencyEntry{
			Value:      v,
			Count:      c,
			Percentage: 100 * float64(c) / float64(n),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Value < entries[j].Value
	})

	if missing := col.Missing(); missing > 0 {
		entries = append(entries, FrequencyEntry{
			Count:      missing,
			Percentage: 100 * float64(missing) / float64(n),
			Missing:    true,
		})
	}
	return entries
}

func (a *Analyzer) buildCharts(columns, numeric []string) []analysis.Chart {
	ds := a.Dataset()
	var charts []analysis.Chart

	numericSet := make(map[string]bool, len(numeric))
	for _, name := range numeric {
		numericSet[name] = true
		col, _ := ds.Column(name)
		values := col.Dropna()
		charts = append(charts,
			chart.NewHistogram("Distribution of "+name, values, 10),
			chart.NewBoxPlot("Box Plot of "+name, values),
		)
	}

	for _, name := range columns {
		if numericSet[name] {
			continue
		}
		col, _ := ds.Column(name)
		table := frequencyTable(col)
		labels := make([]string, 0, len(table))
		values := make([]float64, 0, len(table))
		for _, e := range table {
			if e.Missing {
				continue
			}
			labels = append(labels, e.Value)
			values = append(values, float64(e.Count))
		}
		charts = append(charts, chart.NewBar("Value Counts of "+name, labels, values))
	}
	return charts
}

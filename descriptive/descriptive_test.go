package descriptive

import (
	"errors"
	"math"
	"testing"

	"github.com/sartorproj/goanalyze/analysis"
	"github.com/sartorproj/goanalyze/dataset"
)

func testData(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromColumns("people", map[string]any{
		"age":    []float64{25, 30, 35, 45, 22, math.NaN()},
		"income": []float64{50000, 62000, 58000, 90000, 48000, 51000},
		"city":   []string{"ny", "la", "ny", "sf", "la", "ny"},
	})
	if err != nil {
		t.Fatalf("building dataset: %v", err)
	}
	return ds
}

func TestAnalyzeBasicStats(t *testing.T) {
	a := New(testData(t))

	result, err := a.Analyze(DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report, ok := result.Data.(*Report)
	if !ok {
		t.Fatalf("unexpected payload type %T", result.Data)
	}

	// Numeric columns only when no columns are named
	if len(report.Columns) != 2 {
		t.Fatalf("expected 2 numeric columns, got %v", report.Columns)
	}

	age := report.Basic["age"]
	if age == nil {
		t.Fatal("age should carry basic statistics")
	}
	// NaN is excluded from the count
	if age.Count != 5 {
		t.Errorf("count should skip missing values, got %d", age.Count)
	}
	if math.Abs(age.Mean-31.4) > 1e-9 {
		t.Errorf("mean should be 31.4, got %f", age.Mean)
	}
	if age.Min != 22 || age.Max != 45 {
		t.Errorf("min/max should be 22/45, got %f/%f", age.Min, age.Max)
	}
	if math.Abs(age.Median-30) > 1e-9 {
		t.Errorf("median should be 30, got %f", age.Median)
	}
}

func TestAnalyzeDistributionStats(t *testing.T) {
	a := New(testData(t))

	result, err := a.Analyze(DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	dist := report.Distribution["income"]
	if dist == nil {
		t.Fatal("income should carry distribution statistics")
	}
	if dist.Q25 > dist.Q50 || dist.Q50 > dist.Q75 {
		t.Errorf("quartiles out of order: %f %f %f", dist.Q25, dist.Q50, dist.Q75)
	}
	if math.Abs(dist.IQR-(dist.Q75-dist.Q25)) > 1e-9 {
		t.Errorf("IQR should equal Q75-Q25, got %f", dist.IQR)
	}
	if dist.NormalityStatistic == nil || dist.NormalityPValue == nil {
		t.Error("6 observations should be enough for a normality test")
	}
}

func TestAnalyzeStatSetScoping(t *testing.T) {
	a := New(testData(t))

	opts := DefaultOptions()
	opts.Stats = Basic
	result, err := a.Analyze(opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)
	if report.Basic == nil {
		t.Error("basic set should compute basic statistics")
	}
	if report.Distribution != nil {
		t.Error("basic set should skip distribution statistics")
	}

	opts.Stats = Distribution
	result, err = a.Analyze(opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report = result.Data.(*Report)
	if report.Basic != nil {
		t.Error("distribution set should skip basic statistics")
	}
	if report.Distribution == nil {
		t.Error("distribution set should compute distribution statistics")
	}
}

func TestAnalyzeOutliers(t *testing.T) {
	ds, _ := dataset.FromColumns("d", map[string]any{
		"v": []float64{1, 2, 3, 4, 5, 100},
	})
	a := New(ds)

	opts := DefaultOptions()
	opts.OutlierMethod = ZScore{Threshold: 2.0}
	result, err := a.Analyze(opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	out := report.Outliers["v"]
	if out == nil {
		t.Fatal("v should carry an outlier report")
	}
	if out.Method != "zscore" {
		t.Errorf("method should be zscore, got %q", out.Method)
	}
	if out.Count != 1 || !out.Mask[5] {
		t.Errorf("only the value 100 should be flagged: count=%d mask=%v", out.Count, out.Mask)
	}
	if len(out.Mask) != ds.NumRows() {
		t.Errorf("mask should be row aligned, got %d entries", len(out.Mask))
	}
}

func TestAnalyzeOutliersIsolation(t *testing.T) {
	n := 60
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = 10 + (float64(i%10)-5)/10
	}
	v[0] = 500
	ds, _ := dataset.FromColumns("d", map[string]any{"v": v})

	opts := DefaultOptions()
	opts.OutlierMethod = IsolationForest{Contamination: 0.05, Seed: 42}
	result, err := New(ds).Analyze(opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	out := report.Outliers["v"]
	if out.Method != "isolation_forest" {
		t.Errorf("method should be isolation_forest, got %q", out.Method)
	}
	if !out.Mask[0] {
		t.Error("the extreme value should be flagged")
	}
	if len(out.Scores) != n {
		t.Errorf("scores should be row aligned, got %d", len(out.Scores))
	}
}

func TestAnalyzeMissingSummary(t *testing.T) {
	a := New(testData(t))

	result, err := a.Analyze(DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	m := report.Missing["age"]
	if m == nil {
		t.Fatal("age should carry a missing summary")
	}
	if m.Count != 1 {
		t.Errorf("age has 1 missing value, got %d", m.Count)
	}
	if math.Abs(m.Percentage-100.0/6.0) > 1e-9 {
		t.Errorf("missing percentage wrong: %f", m.Percentage)
	}
}

func TestAnalyzeFrequencyTable(t *testing.T) {
	a := New(testData(t))

	opts := DefaultOptions()
	opts.FrequencyTable = true
	opts.Columns = []string{"city"}
	result, err := a.Analyze(opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	freq := report.Frequency["city"]
	if len(freq) == 0 {
		t.Fatal("city should carry a frequency table")
	}
	// Descending count order, ny first with 3
	if freq[0].Value != "ny" || freq[0].Count != 3 {
		t.Errorf("most frequent should come first, got %+v", freq[0])
	}
	if math.Abs(freq[0].Percentage-50.0) > 1e-9 {
		t.Errorf("ny share should be 50%%, got %f", freq[0].Percentage)
	}
	for i := 1; i < len(freq); i++ {
		if freq[i].Count > freq[i-1].Count {
			t.Error("frequency table should be sorted by descending count")
		}
	}
}

func TestAnalyzeNamedColumns(t *testing.T) {
	a := New(testData(t))

	opts := DefaultOptions()
	opts.Columns = []string{"age"}
	result, err := a.Analyze(opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)
	if len(report.Columns) != 1 || report.Columns[0] != "age" {
		t.Errorf("analysis should honor the named columns, got %v", report.Columns)
	}

	opts.Columns = []string{"nope"}
	if _, err := a.Analyze(opts); !errors.Is(err, dataset.ErrColumnNotFound) {
		t.Errorf("unknown column should fail with ErrColumnNotFound, got %v", err)
	}
}

func TestAnalyzeNoNumericColumnsNamed(t *testing.T) {
	a := New(testData(t))

	// Statistics over a purely categorical selection have nothing to
	// compute and must fail loudly.
	_, err := a.Analyze(Options{Columns: []string{"city"}, BasicStats: true})
	if err == nil {
		t.Fatal("expected an error when the named columns leave nothing numeric")
	}

	// A frequency table alone is a valid categorical analysis.
	result, err := a.Analyze(Options{Columns: []string{"city"}, FrequencyTable: true})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)
	if len(report.Frequency["city"]) == 0 {
		t.Error("expected a frequency table for the city column")
	}
}

func TestAnalyzeCharts(t *testing.T) {
	a := New(testData(t))

	opts := DefaultOptions()
	opts.Columns = []string{"age", "income", "city"}
	result, err := a.Analyze(opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	// Histogram and box plot per numeric column, bar per categorical
	if result.ChartCount() != 5 {
		t.Errorf("expected 5 charts, got %d", result.ChartCount())
	}

	opts.Charts = false
	result, err = a.Analyze(opts)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.ChartCount() != 0 {
		t.Errorf("charts disabled should attach none, got %d", result.ChartCount())
	}
}

func TestAnalyzeNoDataset(t *testing.T) {
	a := New(nil)
	if _, err := a.Analyze(DefaultOptions()); !errors.Is(err, analysis.ErrNoDataset) {
		t.Errorf("expected ErrNoDataset, got %v", err)
	}
}

func TestAnalyzeEnvelope(t *testing.T) {
	a := New(testData(t))

	result, err := a.Analyze(DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Metadata["analysis_type"] != "descriptive" {
		t.Errorf("envelope type should be descriptive, got %v", result.Metadata["analysis_type"])
	}
	if result.Metadata["sample_size"] != 6 {
		t.Errorf("sample_size should be 6, got %v", result.Metadata["sample_size"])
	}
}

package correlation

import (
	"math"
	"testing"

	"github.com/sartorproj/goanalyze/dataset"
)

func corrData(t *testing.T) *dataset.Dataset {
	t.Helper()
	n := 60
	x := make([]float64, n)
	y := make([]float64, n)
	z := make([]float64, n)
	label := make([]string, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = 2*float64(i) + (float64(i%10)-5)/2
		z[i] = float64((i*13)%17) + (float64(i%7)-3)/10
		label[i] = "row"
	}
	ds, err := dataset.FromColumns("corr", map[string]any{
		"x": x, "y": y, "z": z, "label": label,
	})
	if err != nil {
		t.Fatalf("building dataset: %v", err)
	}
	return ds
}

func TestAnalyzeMatrixShape(t *testing.T) {
	for _, method := range []Method{Pearson, Spearman, Kendall} {
		a := New(corrData(t))
		result, err := a.Analyze(Options{
			Columns: []string{"x", "y", "z", "label"},
			Method:  method,
			PValues: true,
		})
		if err != nil {
			t.Fatalf("%s: Analyze failed: %v", method, err)
		}
		report := result.Data.(*Report)

		// Non-numeric columns are dropped with a warning
		if len(report.Columns) != 3 {
			t.Fatalf("%s: expected 3 numeric columns, got %v", method, report.Columns)
		}
		if len(a.Warnings()) == 0 {
			t.Errorf("%s: dropping the label column should warn", method)
		}

		k := len(report.Columns)
		for i := 0; i < k; i++ {
			// Unit diagonal
			if math.Abs(report.Matrix[i][i]-1.0) > 1e-12 {
				t.Errorf("%s: diagonal should be 1, got %f", method, report.Matrix[i][i])
			}
			if report.PValues[i][i] != 0 {
				t.Errorf("%s: diagonal p-value should be 0, got %f", method, report.PValues[i][i])
			}
			// Symmetry
			for j := 0; j < k; j++ {
				if report.Matrix[i][j] != report.Matrix[j][i] {
					t.Errorf("%s: matrix not symmetric at (%d, %d)", method, i, j)
				}
			}
		}
	}
}

func TestAnalyzeStrongPair(t *testing.T) {
	a := New(corrData(t))
	result, err := a.Analyze(Options{Columns: []string{"x", "y"}, PValues: true})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.Matrix[0][1] < 0.99 {
		t.Errorf("x and y are nearly linear, expected r near 1, got %f", report.Matrix[0][1])
	}
	if report.PValues[0][1] > 0.001 {
		t.Errorf("p-value should be tiny, got %f", report.PValues[0][1])
	}
}

func TestAnalyzePairwiseComplete(t *testing.T) {
	ds, _ := dataset.FromColumns("m", map[string]any{
		"a": []float64{1, 2, math.NaN(), 4, 5, 6, 7, 8},
		"b": []float64{2, 4, 6, 8, 10, 12, 14, math.NaN()},
	})
	a := New(ds)

	result, err := a.Analyze(Options{PValues: true})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	// Rows with a gap in either column are dropped pairwise
	if math.Abs(report.Matrix[0][1]-1.0) > 1e-9 {
		t.Errorf("remaining pairs are perfectly linear, got r=%f", report.Matrix[0][1])
	}
}

func TestSignificantCorrelations(t *testing.T) {
	a := New(corrData(t))

	pairs, err := a.SignificantCorrelations(SignificanceOptions{Threshold: 0.5})
	if err != nil {
		t.Fatalf("SignificantCorrelations failed: %v", err)
	}
	if len(pairs) == 0 {
		t.Fatal("the x-y pair should be significant")
	}

	// Sorted by descending |r|
	for i := 1; i < len(pairs); i++ {
		if math.Abs(pairs[i].Correlation) > math.Abs(pairs[i-1].Correlation) {
			t.Error("pairs should be sorted by descending strength")
		}
	}
	top := pairs[0]
	if !(top.Var1 == "x" && top.Var2 == "y") && !(top.Var1 == "y" && top.Var2 == "x") {
		t.Errorf("strongest pair should be x-y, got %s-%s", top.Var1, top.Var2)
	}
	if top.PValue > 0.05 {
		t.Errorf("reported pair should be significant, p=%f", top.PValue)
	}
}

func TestPartialCorrelationAnalyzer(t *testing.T) {
	// x and y are both driven by z
	n := 80
	z := make([]float64, n)
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		z[i] = float64(i)
		x[i] = z[i] + (float64(i%7)-3)/10
		y[i] = z[i] + (float64(i%5)-2)/10
	}
	ds, _ := dataset.FromColumns("p", map[string]any{"x": x, "y": y, "z": z})
	a := New(ds)

	r, _, err := a.PartialCorrelation("x", "y", []string{"z"})
	if err != nil {
		t.Fatalf("PartialCorrelation failed: %v", err)
	}
	if math.Abs(r) > 0.5 {
		t.Errorf("controlling for z should collapse the correlation, got %f", r)
	}
}

func TestTest(t *testing.T) {
	a := New(corrData(t))

	res, err := a.Test("x", "y", Pearson)
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if res.Correlation < 0.99 {
		t.Errorf("expected strong correlation, got %f", res.Correlation)
	}
	if !res.Significant {
		t.Error("x-y should be significant")
	}
	if res.N != 60 {
		t.Errorf("sample size should be 60, got %d", res.N)
	}
	if res.CILower >= res.Correlation || res.CIUpper <= res.Correlation {
		t.Errorf("interval [%f, %f] should bracket r=%f", res.CILower, res.CIUpper, res.Correlation)
	}

	if _, err := a.Test("x", "label", Pearson); err == nil {
		t.Error("non-numeric column should fail")
	}
	if _, err := a.Test("x", "nope", Pearson); err == nil {
		t.Error("unknown column should fail")
	}
}

func TestAnalyzeCharts(t *testing.T) {
	a := New(corrData(t))

	result, err := a.Analyze(Options{Columns: []string{"x", "y", "z"}, PValues: true, Charts: true})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	// Correlation heatmap, p-value heatmap, plus pair scatters
	if result.ChartCount() < 3 {
		t.Errorf("expected at least 3 charts, got %d", result.ChartCount())
	}
	if result.Charts()[0].Title() != "Correlation Matrix (pearson)" {
		t.Errorf("unexpected first chart title %q", result.Charts()[0].Title())
	}
}

func TestAnalyzeNoNumericColumns(t *testing.T) {
	ds, _ := dataset.FromColumns("s", map[string]any{"a": []string{"x", "y", "z"}})
	a := New(ds)

	if _, err := a.Analyze(Options{}); err == nil {
		t.Error("a dataset without numeric columns cannot be correlated")
	}
}

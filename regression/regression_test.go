package regression

import (
	"errors"
	"math"
	"testing"

	"github.com/sartorproj/goanalyze/dataset"
)

func linearData(t *testing.T) *dataset.Dataset {
	t.Helper()
	n := 50
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = 2*x[i] + 3 + (float64(i%10)-5)/10
	}
	ds, err := dataset.FromColumns("lin", map[string]any{"x": x, "y": y})
	if err != nil {
		t.Fatalf("building dataset: %v", err)
	}
	return ds
}

func TestLinearRegression(t *testing.T) {
	a := New(linearData(t))

	result, model, err := a.LinearRegression("y", "x")
	if err != nil {
		t.Fatalf("LinearRegression failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.RegressionType != "linear" {
		t.Errorf("expected linear, got %q", report.RegressionType)
	}
	if math.Abs(report.Coefficients["x"]-2.0) > 0.05 {
		t.Errorf("slope should be near 2, got %f", report.Coefficients["x"])
	}
	if math.Abs(report.Coefficients["intercept"]-3.0) > 0.2 {
		t.Errorf("intercept should be near 3, got %f", report.Coefficients["intercept"])
	}
	if report.RSquared < 0.8 {
		t.Errorf("R-squared should exceed 0.8, got %f", report.RSquared)
	}
	if len(report.Predictions) != 50 || len(report.Residuals) != 50 {
		t.Errorf("predictions and residuals should be row aligned")
	}

	// Full backend inference fields are present
	if report.StdErrors["x"] <= 0 {
		t.Errorf("slope should have a positive standard error, got %f", report.StdErrors["x"])
	}
	if report.PValues["x"] > 0.001 {
		t.Errorf("slope p-value should be tiny, got %f", report.PValues["x"])
	}
	ci := report.ConfIntervals["x"]
	if ci[0] >= 2.0 || ci[1] <= 2.0 {
		t.Errorf("interval [%f, %f] should bracket the slope", ci[0], ci[1])
	}
	if report.AIC == nil || report.BIC == nil || report.AdjRSquared == nil {
		t.Error("full backend should report AIC/BIC/adjusted R-squared")
	}

	if model == nil {
		t.Fatal("a fitted model should come back with the result")
	}
	if model.Equation != report.Equation {
		t.Error("model and report should agree on the equation")
	}
}

func TestMultipleRegression(t *testing.T) {
	n := 60
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1[i] = float64(i)
		x2[i] = float64((i * 7) % 13)
		y[i] = 1.5*x1[i] - 2*x2[i] + 5 + (float64(i%10)-5)/10
	}
	ds, _ := dataset.FromColumns("m", map[string]any{"x1": x1, "x2": x2, "y": y})
	a := New(ds)

	result, _, err := a.LinearRegression("y", "x1", "x2")
	if err != nil {
		t.Fatalf("LinearRegression failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.RegressionType != "multiple" {
		t.Errorf("two predictors should select multiple, got %q", report.RegressionType)
	}
	if math.Abs(report.Coefficients["x1"]-1.5) > 0.05 {
		t.Errorf("x1 coefficient should be near 1.5, got %f", report.Coefficients["x1"])
	}
	if math.Abs(report.Coefficients["x2"]+2.0) > 0.05 {
		t.Errorf("x2 coefficient should be near -2, got %f", report.Coefficients["x2"])
	}
	if report.FStatistic == nil || report.FPValue == nil {
		t.Error("multiple regression should report an F test")
	}
}

func TestPolynomialRegression(t *testing.T) {
	n := 40
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i) / 4
		y[i] = 1 + 2*x[i] + 0.5*x[i]*x[i] + (float64(i%10)-5)/20
	}
	ds, _ := dataset.FromColumns("p", map[string]any{"x": x, "y": y})
	a := New(ds)

	result, model, err := a.PolynomialRegression("y", "x", 2)
	if err != nil {
		t.Fatalf("PolynomialRegression failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.RegressionType != "polynomial" {
		t.Errorf("expected polynomial, got %q", report.RegressionType)
	}
	if math.Abs(report.Coefficients["x^2"]-0.5) > 0.05 {
		t.Errorf("quadratic term should be near 0.5, got %f", report.Coefficients["x^2"])
	}
	if report.RSquared < 0.99 {
		t.Errorf("polynomial fit should be near perfect, got %f", report.RSquared)
	}

	// Degree below 2 is rejected
	if _, _, err := a.PolynomialRegression("y", "x", 1); err == nil {
		t.Error("degree 1 should be rejected")
	}

	_ = model
}

func TestPredict(t *testing.T) {
	a := New(linearData(t))
	_, model, err := a.LinearRegression("y", "x")
	if err != nil {
		t.Fatalf("LinearRegression failed: %v", err)
	}

	newData, _ := dataset.FromColumns("new", map[string]any{
		"x": []float64{100, 200},
	})
	preds, err := model.Predict(newData)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if math.Abs(preds[0]-203) > 2 {
		t.Errorf("prediction at x=100 should be near 203, got %f", preds[0])
	}
	if math.Abs(preds[1]-403) > 3 {
		t.Errorf("prediction at x=200 should be near 403, got %f", preds[1])
	}

	// Missing predictor column fails
	bad, _ := dataset.FromColumns("bad", map[string]any{"z": []float64{1}})
	if _, err := model.Predict(bad); err == nil {
		t.Error("missing predictor column should fail")
	}
}

func TestPredictNotFitted(t *testing.T) {
	var model *FittedModel
	if _, err := model.Predict(nil); !errors.Is(err, ErrNotFitted) {
		t.Errorf("nil model should return ErrNotFitted, got %v", err)
	}
	if _, err := model.Diagnostics(); !errors.Is(err, ErrNotFitted) {
		t.Errorf("nil model diagnostics should return ErrNotFitted, got %v", err)
	}
}

func TestAnalyzerKeepsNoModelState(t *testing.T) {
	a := New(linearData(t))

	_, first, err := a.LinearRegression("y", "x")
	if err != nil {
		t.Fatalf("first fit failed: %v", err)
	}
	_, second, err := a.LinearRegression("x", "y")
	if err != nil {
		t.Fatalf("second fit failed: %v", err)
	}

	// Each call returns its own immutable model
	if first.Dependent != "y" || second.Dependent != "x" {
		t.Error("models from separate calls should not share state")
	}
	if len(a.Results()) != 2 {
		t.Errorf("result history should hold both runs, got %d", len(a.Results()))
	}
}

func TestLogisticRegression(t *testing.T) {
	n := 100
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i) / 10
		// Noisy threshold at x=5
		boundary := 5.0 + (float64(i%7)-3)/2
		if x[i] > boundary {
			y[i] = 1
		}
	}
	ds, _ := dataset.FromColumns("log", map[string]any{"x": x, "y": y})
	a := New(ds)

	result, model, err := a.LogisticRegression("y", "x")
	if err != nil {
		t.Fatalf("LogisticRegression failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.RegressionType != "logistic" {
		t.Errorf("expected logistic, got %q", report.RegressionType)
	}
	m := report.LogisticMetrics
	if m == nil {
		t.Fatal("logistic fit should report classification metrics")
	}
	if m.Accuracy < 0.8 {
		t.Errorf("accuracy should be high on separable-ish data, got %f", m.Accuracy)
	}
	if m.AUC == nil || *m.AUC < 0.8 {
		t.Error("AUC should be high on separable-ish data")
	}

	// Predictions are class labels
	newData, _ := dataset.FromColumns("new", map[string]any{"x": []float64{0, 10}})
	preds, err := model.Predict(newData)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if preds[0] != 0 || preds[1] != 1 {
		t.Errorf("expected labels 0 and 1, got %v", preds)
	}

	probs, err := model.PredictProbabilities(newData)
	if err != nil {
		t.Fatalf("PredictProbabilities failed: %v", err)
	}
	if probs[0] > 0.5 || probs[1] < 0.5 {
		t.Errorf("probabilities should straddle the boundary, got %v", probs)
	}
}

func TestLogisticRejectsNonBinary(t *testing.T) {
	ds, _ := dataset.FromColumns("bad", map[string]any{
		"x": []float64{1, 2, 3},
		"y": []float64{0, 1, 2},
	})
	a := New(ds)

	if _, _, err := a.LogisticRegression("y", "x"); err == nil {
		t.Error("non-binary dependent should fail")
	}
}

func TestDiagnostics(t *testing.T) {
	a := New(linearData(t))
	_, model, err := a.LinearRegression("y", "x")
	if err != nil {
		t.Fatalf("LinearRegression failed: %v", err)
	}

	diag, err := model.Diagnostics()
	if err != nil {
		t.Fatalf("Diagnostics failed: %v", err)
	}
	if diag.RSquared < 0.8 {
		t.Errorf("diagnostics R-squared should match the fit, got %f", diag.RSquared)
	}
	if math.Abs(diag.ResidualMean) > 1e-6 {
		t.Errorf("residual mean should be near 0, got %g", diag.ResidualMean)
	}

	// Full backend runs the residual test battery
	if diag.DurbinWatson == nil || diag.JarqueBera == nil || diag.BreuschPagan == nil {
		t.Error("full backend should report the residual tests")
	}
}

func TestDiagnosticsVIF(t *testing.T) {
	n := 60
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1[i] = float64(i)
		x2[i] = float64((i * 7) % 13)
		y[i] = x1[i] + x2[i] + (float64(i%10)-5)/10
	}
	ds, _ := dataset.FromColumns("v", map[string]any{"x1": x1, "x2": x2, "y": y})
	a := New(ds)

	_, model, err := a.LinearRegression("y", "x1", "x2")
	if err != nil {
		t.Fatalf("LinearRegression failed: %v", err)
	}
	diag, err := model.Diagnostics()
	if err != nil {
		t.Fatalf("Diagnostics failed: %v", err)
	}
	if len(diag.VIF) != 2 {
		t.Fatalf("expected VIF per predictor, got %v", diag.VIF)
	}
	if diag.VIF["x1"] > 5 || diag.VIF["x2"] > 5 {
		t.Errorf("independent predictors should have low VIF, got %v", diag.VIF)
	}
}

func TestBasicBackend(t *testing.T) {
	a := NewWithBackend(linearData(t), &BasicBackend{})

	result, model, err := a.LinearRegression("y", "x")
	if err != nil {
		t.Fatalf("LinearRegression failed: %v", err)
	}
	report := result.Data.(*Report)

	if math.Abs(report.Coefficients["x"]-2.0) > 0.05 {
		t.Errorf("basic backend slope should be near 2, got %f", report.Coefficients["x"])
	}
	// The reduced backend omits information criteria
	if report.AIC != nil || report.BIC != nil {
		t.Error("basic backend should not report information criteria")
	}

	// Diagnostics fall back to the reduced set
	diag, err := model.Diagnostics()
	if err != nil {
		t.Fatalf("Diagnostics failed: %v", err)
	}
	if diag.DurbinWatson != nil {
		t.Error("basic backend should not run the residual test battery")
	}
	if diag.RSquared < 0.8 {
		t.Errorf("reduced diagnostics should still report fit quality, got %f", diag.RSquared)
	}
}

func TestBackendParity(t *testing.T) {
	full := New(linearData(t))
	basic := NewWithBackend(linearData(t), &BasicBackend{})

	_, fm, err := full.LinearRegression("y", "x")
	if err != nil {
		t.Fatalf("full fit failed: %v", err)
	}
	_, bm, err := basic.LinearRegression("y", "x")
	if err != nil {
		t.Fatalf("basic fit failed: %v", err)
	}

	for i := range fm.Coefficients {
		if math.Abs(fm.Coefficients[i]-bm.Coefficients[i]) > 1e-6 {
			t.Errorf("backends disagree on coefficient %d: %f vs %f", i, fm.Coefficients[i], bm.Coefficients[i])
		}
	}
}

func TestMissingValuesDroppedListwise(t *testing.T) {
	ds, _ := dataset.FromColumns("m", map[string]any{
		"x": []float64{1, 2, math.NaN(), 4, 5, 6, 7, 8, 9, 10},
		"y": []float64{5, 7, 9, 11, math.NaN(), 15, 17, 19, 21, 23},
	})
	a := New(ds)

	result, _, err := a.LinearRegression("y", "x")
	if err != nil {
		t.Fatalf("LinearRegression failed: %v", err)
	}
	report := result.Data.(*Report)

	// 8 complete rows remain, the relation is exactly y = 2x + 3
	if len(report.Predictions) != 8 {
		t.Errorf("incomplete rows should be dropped, got %d predictions", len(report.Predictions))
	}
	if math.Abs(report.Coefficients["x"]-2.0) > 1e-6 {
		t.Errorf("slope should be exactly 2, got %f", report.Coefficients["x"])
	}
}

func TestValidation(t *testing.T) {
	a := New(linearData(t))

	if _, _, err := a.LinearRegression("nope", "x"); err == nil {
		t.Error("unknown dependent should fail")
	}
	if _, _, err := a.LinearRegression("y"); err == nil {
		t.Error("no predictors should fail")
	}
	if _, _, err := a.Analyze("y", []string{"x", "x2"}, Polynomial{Degree: 2}, Options{}); err == nil {
		t.Error("polynomial variant requires exactly one predictor")
	}
}

func TestEquationFormat(t *testing.T) {
	n := 30
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = 2*x[i] + 3
	}
	ds, _ := dataset.FromColumns("eq", map[string]any{"x": x, "y": y})
	a := New(ds)

	result, _, err := a.LinearRegression("y", "x")
	if err != nil {
		t.Fatalf("LinearRegression failed: %v", err)
	}
	report := result.Data.(*Report)

	want := "y = 3.0000 + 2.0000*x"
	if report.Equation != want {
		t.Errorf("equation should be %q, got %q", want, report.Equation)
	}
}

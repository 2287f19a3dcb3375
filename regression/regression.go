package regression

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sartorproj/goanalyze/analysis"
	"github.com/sartorproj/goanalyze/chart"
	"github.com/sartorproj/goanalyze/dataset"
	"github.com/sartorproj/goanalyze/stats"
)

// ErrNotFitted is returned by Predict and Diagnostics on a nil fitted
// model.
var ErrNotFitted = errors.New("model not trained")

// Variant selects the regression family. It is a closed union; each
// variant carries its own parameters.
type Variant interface {
	variant()
	tag() string
}

// Linear is simple linear regression with a single predictor.
type Linear struct{}

// Polynomial is single-predictor polynomial regression of the given
// degree (at least 2).
type Polynomial struct {
	Degree int
}

// Multiple is linear regression with two or more predictors.
type Multiple struct{}

// Logistic is binary logistic regression.
type Logistic struct{}

func (Linear) variant()     {}
func (Polynomial) variant() {}
func (Multiple) variant()   {}
func (Logistic) variant()   {}

func (Linear) tag() string     { return "linear" }
func (Polynomial) tag() string { return "polynomial" }
func (Multiple) tag() string   { return "multiple" }
func (Logistic) tag() string   { return "logistic" }

// Options parametrize Analyze beyond the variant itself.
type Options struct {
	Charts bool
}

// Diagnostics holds model diagnostic output. The test fields are
// populated only when the backend implements Diagnoser; otherwise the
// reduced metric set is returned alone.
type Diagnostics struct {
	MSE          float64 `json:"mse"`
	MAE          float64 `json:"mae"`
	RSquared     float64 `json:"r_squared"`
	ResidualMean float64 `json:"residual_mean"`
	ResidualStd  float64 `json:"residual_std"`

	BreuschPagan *stats.BreuschPaganResult `json:"breusch_pagan,omitempty"`
	LjungBox     *stats.LjungBoxResult     `json:"ljung_box,omitempty"`
	DurbinWatson *stats.DurbinWatsonResult `json:"durbin_watson,omitempty"`
	JarqueBera   *stats.JarqueBeraResult   `json:"jarque_bera,omitempty"`
	VIF          map[string]float64        `json:"vif,omitempty"`
}

// FittedModel is the immutable output of a successful fit. It carries
// everything Predict and Diagnostics need; the analyzer itself keeps
// no model state.
type FittedModel struct {
	Variant      Variant
	Dependent    string
	Independents []string
	TermNames    []string // intercept first
	Coefficients []float64
	Equation     string

	Fit      *OLSFit
	Logistic *LogisticFit

	backend Backend
	design  [][]float64
	y       []float64
}

// Report is the data payload of a regression analysis result.
// Inference fields are present only when the backend provides them.
type Report struct {
	RegressionType string             `json:"regression_type"`
	Dependent      string             `json:"dependent_var"`
	Independents   []string           `json:"independent_vars"`
	Coefficients   map[string]float64 `json:"coefficients"`
	Equation       string             `json:"equation"`
	Predictions    []float64          `json:"predictions"`
	Residuals      []float64          `json:"residuals,omitempty"`
	RSquared       float64            `json:"r_squared"`
	MSE            float64            `json:"mse"`

	StdErrors     map[string]float64    `json:"std_errors,omitempty"`
	TValues       map[string]float64    `json:"t_values,omitempty"`
	PValues       map[string]float64    `json:"p_values,omitempty"`
	ConfIntervals map[string][2]float64 `json:"conf_intervals,omitempty"`
	AdjRSquared   *float64              `json:"adj_r_squared,omitempty"`
	FStatistic    *float64              `json:"f_statistic,omitempty"`
	FPValue       *float64              `json:"f_p_value,omitempty"`
	AIC           *float64              `json:"aic,omitempty"`
	BIC           *float64              `json:"bic,omitempty"`
	VIF           map[string]float64    `json:"vif,omitempty"`

	LogisticMetrics *LogisticMetrics `json:"logistic_metrics,omitempty"`
}

// Analyzer fits regression models over dataset columns.
type Analyzer struct {
	*analysis.Base
	backend Backend
}

// New creates a regression analyzer with the full inference backend.
func New(ds *dataset.Dataset) *Analyzer {
	return NewWithBackend(ds, FullBackend{})
}

// NewWithBackend creates a regression analyzer with an injected
// estimation backend.
func NewWithBackend(ds *dataset.Dataset, b Backend) *Analyzer {
	return &Analyzer{Base: analysis.NewBase("regression", ds), backend: b}
}

// Backend returns the estimation backend in use.
func (a *Analyzer) Backend() Backend {
	return a.backend
}

// LinearRegression fits a linear model, selecting the simple or
// multiple variant by predictor count.
func (a *Analyzer) LinearRegression(dependent string, independents ...string) (*analysis.Result, *FittedModel, error) {
	var v Variant = Linear{}
	if len(independents) > 1 {
		v = Multiple{}
	}
	return a.Analyze(dependent, independents, v, Options{Charts: true})
}

// PolynomialRegression fits a polynomial model of the given degree on
// a single predictor.
func (a *Analyzer) PolynomialRegression(dependent, independent string, degree int) (*analysis.Result, *FittedModel, error) {
	return a.Analyze(dependent, []string{independent}, Polynomial{Degree: degree}, Options{Charts: true})
}

// LogisticRegression fits a binary logistic model.
func (a *Analyzer) LogisticRegression(dependent string, independents ...string) (*analysis.Result, *FittedModel, error) {
	return a.Analyze(dependent, independents, Logistic{}, Options{Charts: true})
}

// Analyze fits the requested variant and returns both the result and
// the immutable fitted model for later prediction and diagnostics.
func (a *Analyzer) Analyze(dependent string, independents []string, v Variant, opts Options) (*analysis.Result, *FittedModel, error) {
	if err := a.ValidateDataset(); err != nil {
		return nil, nil, err
	}
	if err := validateArity(v, independents); err != nil {
		return nil, nil, err
	}

	y, predictors, err := a.alignedValues(dependent, independents)
	if err != nil {
		return nil, nil, err
	}

	if _, isLogistic := v.(Logistic); isLogistic {
		return a.analyzeLogistic(dependent, independents, y, predictors, opts)
	}

	termNames, design := buildDesign(v, independents, predictors)

	fit, err := a.backend.FitOLS(design, y)
	if err != nil {
		return nil, nil, err
	}

	model := &FittedModel{
		Variant:      v,
		Dependent:    dependent,
		Independents: append([]string(nil), independents...),
		TermNames:    termNames,
		Coefficients: fit.Coefficients,
		Equation:     equation(dependent, termNames, fit.Coefficients, false),
		Fit:          fit,
		backend:      a.backend,
		design:       design,
		y:            y,
	}

	report := olsReport(model, v)

	var charts []analysis.Chart
	if opts.Charts {
		charts = olsCharts(dependent, independents, predictors, y, fit)
	}

	metadata := map[string]any{
		"regression_type": v.tag(),
		"dependent_var":   dependent,
		"independent_vars": append([]string(nil),
			independents...),
		"backend":     a.backend.Name(),
		"sample_size": fit.N,
	}
	if poly, ok := v.(Polynomial); ok {
		metadata["polynomial_degree"] = poly.Degree
	}

	return a.CreateResult(report, metadata, charts...), model, nil
}

func validateArity(v Variant, independents []string) error {
	switch variant := v.(type) {
	case Linear:
		if len(independents) != 1 {
			return fmt.Errorf("linear regression requires exactly one predictor, got %d", len(independents))
		}
	case Polynomial:
		if len(independents) != 1 {
			return fmt.Errorf("polynomial regression requires exactly one predictor, got %d", len(independents))
		}
		if variant.Degree < 2 {
			return fmt.Errorf("polynomial degree must be at least 2, got %d", variant.Degree)
		}
	case Multiple:
		if len(independents) < 2 {
			return fmt.Errorf("multiple regression requires at least two predictors, got %d", len(independents))
		}
	case Logistic:
		if len(independents) == 0 {
			return errors.New("logistic regression requires at least one predictor")
		}
	default:
		return fmt.Errorf("unsupported regression variant %T", v)
	}
	return nil
}

// alignedValues validates the named variables and returns their values
// after listwise deletion of rows with a missing value in any of them.
func (a *Analyzer) alignedValues(dependent string, independents []string) (y []float64, predictors [][]float64, err error) {
	ds := a.Dataset()
	names := append([]string{dependent}, independents...)
	cols := make([]*dataset.Column, len(names))
	for i, name := range names {
		col, err := ds.Column(name)
		if err != nil {
			return nil, nil, err
		}
		if !col.Type.IsNumeric() {
			return nil, nil, fmt.Errorf("column %q is not numeric", name)
		}
		cols[i] = col
	}

	values := make([][]float64, len(cols))
	for i, col := range cols {
		values[i], _ = col.Numeric()
	}

	keep := make([][]float64, len(cols))
	for row := 0; row < ds.NumRows(); row++ {
		complete := true
		for _, col := range cols {
			if !col.Valid[row] {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for i := range cols {
			keep[i] = append(keep[i], values[i][row])
		}
	}
	if len(keep[0]) == 0 {
		return nil, nil, errors.New("no complete observations after dropping missing values")
	}
	return keep[0], keep[1:], nil
}

// buildDesign constructs the term names and the design matrix with the
// intercept column first.
func buildDesign(v Variant, independents []string, predictors [][]float64) ([]string, [][]float64) {
	n := len(predictors[0])

	if poly, ok := v.(Polynomial); ok {
		termNames := make([]string, poly.Degree+1)
		termNames[0] = "intercept"
		for d := 1; d <= poly.Degree; d++ {
			if d == 1 {
				termNames[d] = independents[0]
			} else {
				termNames[d] = fmt.Sprintf("%s^%d", independents[0], d)
			}
		}
		design := make([][]float64, n)
		for i := 0; i < n; i++ {
			row := make([]float64, poly.Degree+1)
			row[0] = 1
			x := predictors[0][i]
			pow := 1.0
			for d := 1; d <= poly.Degree; d++ {
				pow *= x
				row[d] = pow
			}
			design[i] = row
		}
		return termNames, design
	}

	termNames := make([]string, len(independents)+1)
	termNames[0] = "intercept"
	copy(termNames[1:], independents)
	design := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(independents)+1)
		row[0] = 1
		for j := range independents {
			row[j+1] = predictors[j][i]
		}
		design[i] = row
	}
	return termNames, design
}

// equation renders the fitted model as a human-readable formula with
// 4-decimal coefficients and sign-aware joining.
func equation(dependent string, termNames []string, coeffs []float64, logistic bool) string {
	var sb strings.Builder
	if logistic {
		sb.WriteString("log(p/(1-p)) = ")
	} else {
		sb.WriteString(dependent + " = ")
	}
	sb.WriteString(fmt.Sprintf("%.4f", coeffs[0]))
	for i := 1; i < len(coeffs); i++ {
		c := coeffs[i]
		if c < 0 {
			sb.WriteString(fmt.Sprintf(" - %.4f*%s", -c, termNames[i]))
		} else {
			sb.WriteString(fmt.Sprintf(" + %.4f*%s", c, termNames[i]))
		}
	}
	return sb.String()
}

func olsReport(m *FittedModel, v Variant) *Report {
	fit := m.Fit
	report := &Report{
		RegressionType: v.tag(),
		Dependent:      m.Dependent,
		Independents:   m.Independents,
		Coefficients:   termMap(m.TermNames, fit.Coefficients),
		Equation:       m.Equation,
		Predictions:    fit.Fitted,
		Residuals:      fit.Residuals,
		RSquared:       fit.RSquared,
		MSE:            fit.MSE,
	}

	if fit.StdErrors != nil {
		report.StdErrors = termMap(m.TermNames, fit.StdErrors)
		report.TValues = termMap(m.TermNames, fit.TValues)
		report.PValues = termMap(m.TermNames, fit.PValues)
	}
	if fit.ConfInt != nil {
		report.ConfIntervals = make(map[string][2]float64, len(fit.ConfInt))
		for i, name := range m.TermNames {
			report.ConfIntervals[name] = fit.ConfInt[i]
		}
	}
	if !math.IsNaN(fit.AdjRSquared) {
		report.AdjRSquared = &fit.AdjRSquared
	}
	if !math.IsNaN(fit.FStatistic) {
		report.FStatistic = &fit.FStatistic
		report.FPValue = &fit.FPValue
	}
	if !math.IsNaN(fit.AIC) {
		report.AIC = &fit.AIC
		report.BIC = &fit.BIC
	}

	// VIF accompanies multiple regression when the backend can run
	// diagnostics.
	if _, isMultiple := v.(Multiple); isMultiple {
		if diagnoser, ok := m.backend.(Diagnoser); ok {
			if d, err := diagnoser.Diagnose(m); err == nil {
				report.VIF = d.VIF
			}
		}
	}
	return report
}

func termMap(names []string, values []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = values[i]
	}
	return out
}

func olsCharts(dependent string, independents []string, predictors [][]float64, y []float64, fit *OLSFit) []analysis.Chart {
	charts := []analysis.Chart{
		chart.NewScatter("Predicted vs Actual "+dependent, fit.Fitted, y, nil, "predicted", "actual"),
		chart.NewScatter("Residuals vs Fitted", fit.Fitted, fit.Residuals, nil, "fitted", "residual"),
		chart.NewHistogram("Residual Distribution", fit.Residuals, 10),
	}
	if len(independents) == 1 {
		charts = append(charts, chart.NewScatter(
			fmt.Sprintf("%s vs %s", dependent, independents[0]),
			predictors[0], y, nil, independents[0], dependent))
	}
	return charts
}

// Predict applies the stored preprocessing (polynomial expansion,
// intercept term) to new rows and returns predictions. Logistic models
// return class labels. A nil model returns ErrNotFitted.
func (m *FittedModel) Predict(newData *dataset.Dataset) ([]float64, error) {
	if m == nil {
		return nil, ErrNotFitted
	}
	if newData == nil {
		return nil, errors.New("nil dataset")
	}

	rows := newData.NumRows()
	predictors := make([][]float64, len(m.Independents))
	for j, name := range m.Independents {
		col, err := newData.Column(name)
		if err != nil {
			return nil, err
		}
		if !col.Type.IsNumeric() {
			return nil, fmt.Errorf("column %q is not numeric", name)
		}
		if col.Missing() > 0 {
			return nil, fmt.Errorf("column %q has missing values", name)
		}
		predictors[j], _ = col.Numeric()
	}

	_, design := buildDesign(m.Variant, m.Independents, predictors)

	out := make([]float64, rows)
	for i, row := range design {
		z := 0.0
		for j, c := range m.Coefficients {
			z += c * row[j]
		}
		if _, isLogistic := m.Variant.(Logistic); isLogistic {
			if sigmoid(z) >= 0.5 {
				out[i] = 1
			} else {
				out[i] = 0
			}
		} else {
			out[i] = z
		}
	}
	return out, nil
}

// PredictProbabilities returns class-1 probabilities for a logistic
// model.
func (m *FittedModel) PredictProbabilities(newData *dataset.Dataset) ([]float64, error) {
	if m == nil {
		return nil, ErrNotFitted
	}
	if _, isLogistic := m.Variant.(Logistic); !isLogistic {
		return nil, errors.New("probabilities are defined for logistic models only")
	}
	if newData == nil {
		return nil, errors.New("nil dataset")
	}
	predictors := make([][]float64, len(m.Independents))
	for j, name := range m.Independents {
		col, err := newData.Column(name)
		if err != nil {
			return nil, err
		}
		if !col.Type.IsNumeric() {
			return nil, fmt.Errorf("column %q is not numeric", name)
		}
		if col.Missing() > 0 {
			return nil, fmt.Errorf("column %q has missing values", name)
		}
		predictors[j], _ = col.Numeric()
	}
	_, design := buildDesign(m.Variant, m.Independents, predictors)
	out := make([]float64, len(design))
	for i, row := range design {
		z := 0.0
		for j, c := range m.Coefficients {
			z += c * row[j]
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}

// Diagnostics runs the diagnostic battery on the fitted model. When
// the backend implements Diagnoser the full test set is returned;
// otherwise the reduced metrics alone. A nil model returns
// ErrNotFitted.
func (m *FittedModel) Diagnostics() (*Diagnostics, error) {
	if m == nil {
		return nil, ErrNotFitted
	}
	if m.Fit == nil {
		return nil, errors.New("diagnostics are defined for least-squares models only")
	}
	if diagnoser, ok := m.backend.(Diagnoser); ok {
		return diagnoser.Diagnose(m)
	}
	return reducedDiagnostics(m.Fit.Residuals, m.y, m.Fit.Fitted), nil
}

func reducedDiagnostics(residuals, y, fitted []float64) *Diagnostics {
	sse := 0.0
	sae := 0.0
	for _, r := range residuals {
		sse += r * r
		sae += math.Abs(r)
	}
	n := float64(len(residuals))
	return &Diagnostics{
		MSE:          sse / n,
		MAE:          sae / n,
		RSquared:     stats.RSquared(y, fitted),
		ResidualMean: stats.Mean(residuals),
		ResidualStd:  stats.Std(residuals),
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

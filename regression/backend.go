// Package regression implements the regression analyzer: linear,
// polynomial, multiple, and logistic regression over dataset columns,
// with an exchangeable estimation backend and immutable fitted models.
package regression

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/goanalyze/stats"
)

// OLSFit holds the output of a least-squares fit. The design matrix
// includes the intercept column; coefficients are ordered to match it.
// Inference fields beyond TValues/PValues are populated only by
// backends that compute them and are NaN or nil otherwise.
type OLSFit struct {
	Coefficients []float64
	StdErrors    []float64
	TValues      []float64
	PValues      []float64
	ConfInt      [][2]float64

	Fitted    []float64
	Residuals []float64

	RSquared    float64
	AdjRSquared float64
	MSE         float64
	FStatistic  float64
	FPValue     float64
	LogLik      float64
	AIC         float64
	BIC         float64

	N, K int
}

// Backend estimates least-squares fits. Implementations may differ in
// how much inference they provide; FullBackend additionally implements
// Diagnoser.
type Backend interface {
	Name() string
	FitOLS(design [][]float64, y []float64) (*OLSFit, error)
}

// Diagnoser is the optional capability of backends able to run the
// full residual-diagnostic battery. It is discovered by type
// assertion.
type Diagnoser interface {
	Diagnose(m *FittedModel) (*Diagnostics, error)
}

// BasicBackend fits by normal equations and derives standard errors,
// t statistics, and p-values manually from the residual variance. It
// provides no confidence intervals, F test, or information criteria.
type BasicBackend struct{}

func (BasicBackend) Name() string { return "basic" }

func (BasicBackend) FitOLS(design [][]float64, y []float64) (*OLSFit, error) {
	n := len(y)
	if n == 0 || len(design) != n {
		return nil, errors.New("empty or misaligned design matrix")
	}
	k := len(design[0])
	if n <= k {
		return nil, errors.New("not enough observations for the number of terms")
	}

	coeffs, stdErrors := stats.OLS(design, y)
	if coeffs == nil {
		return nil, errors.New("design matrix is singular")
	}

	fitted := stats.Fitted(design, coeffs)
	residuals := stats.Residuals(design, y, coeffs)

	sse := 0.0
	for _, r := range residuals {
		sse += r * r
	}

	fit := &OLSFit{
		Coefficients: coeffs,
		StdErrors:    stdErrors,
		Fitted:       fitted,
		Residuals:    residuals,
		RSquared:     stats.RSquared(y, fitted),
		AdjRSquared:  math.NaN(),
		MSE:          sse / float64(n),
		FStatistic:   math.NaN(),
		FPValue:      math.NaN(),
		LogLik:       math.NaN(),
		AIC:          math.NaN(),
		BIC:          math.NaN(),
		N:            n,
		K:            k,
	}

	// Two-sided p-values from the t distribution with n-k degrees of
	// freedom.
	if stdErrors != nil {
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - k)}
		fit.TValues = make([]float64, k)
		fit.PValues = make([]float64, k)
		for i := range coeffs {
			if stdErrors[i] == 0 {
				fit.TValues[i] = math.Inf(1)
				fit.PValues[i] = 0
				continue
			}
			fit.TValues[i] = coeffs[i] / stdErrors[i]
			fit.PValues[i] = 2 * dist.Survival(math.Abs(fit.TValues[i]))
		}
	}

	return fit, nil
}

// FullBackend fits by QR decomposition and provides the complete
// inference set: confidence intervals, F test, adjusted R², and
// information criteria. It also implements Diagnoser.
type FullBackend struct {
	// Confidence sets the coefficient interval level; 0.95 when zero.
	Confidence float64
}

func (FullBackend) Name() string { return "full" }

func (b FullBackend) FitOLS(design [][]float64, y []float64) (*OLSFit, error) {
	n := len(y)
	if n == 0 || len(design) != n {
		return nil, errors.New("empty or misaligned design matrix")
	}
	k := len(design[0])
	if n <= k {
		return nil, errors.New("not enough observations for the number of terms")
	}

	x := mat.NewDense(n, k, nil)
	for i, row := range design {
		x.SetRow(i, row)
	}
	yVec := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(x)
	beta := mat.NewVecDense(k, nil)
	if err := qr.SolveVecTo(beta, false, yVec); err != nil {
		return nil, errors.New("design matrix is singular")
	}

	coeffs := make([]float64, k)
	for i := range coeffs {
		coeffs[i] = beta.AtVec(i)
	}

	fitted := stats.Fitted(design, coeffs)
	residuals := stats.Residuals(design, y, coeffs)

	sse := 0.0
	for _, r := range residuals {
		sse += r * r
	}

	// (X'X)^-1 for coefficient standard errors.
	var xtx, xtxInv mat.Dense
	xtx.Mul(x.T(), x)
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, errors.New("design matrix is singular")
	}

	sigma2 := sse / float64(n-k)
	dof := float64(n - k)
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}

	confidence := b.Confidence
	if confidence == 0 {
		confidence = 0.95
	}
	tCrit := tDist.Quantile(0.5 + confidence/2)

	stdErrors := make([]float64, k)
	tValues := make([]float64, k)
	pValues := make([]float64, k)
	confInt := make([][2]float64, k)
	for i := 0; i < k; i++ {
		stdErrors[i] = math.Sqrt(sigma2 * xtxInv.At(i, i))
		if stdErrors[i] == 0 {
			tValues[i] = math.Inf(1)
			pValues[i] = 0
			confInt[i] = [2]float64{coeffs[i], coeffs[i]}
			continue
		}
		tValues[i] = coeffs[i] / stdErrors[i]
		pValues[i] = 2 * tDist.Survival(math.Abs(tValues[i]))
		confInt[i] = [2]float64{coeffs[i] - tCrit*stdErrors[i], coeffs[i] + tCrit*stdErrors[i]}
	}

	r2 := stats.RSquared(y, fitted)
	adjR2 := 1 - (1-r2)*float64(n-1)/dof

	fStat := math.NaN()
	fP := math.NaN()
	if k > 1 && r2 < 1 {
		fStat = (r2 / float64(k-1)) / ((1 - r2) / dof)
		fDist := distuv.F{D1: float64(k - 1), D2: dof}
		fP = fDist.Survival(fStat)
	}

	// Gaussian log-likelihood with the MLE variance sse/n.
	nf := float64(n)
	logLik := math.Inf(-1)
	if sse > 0 {
		mle := sse / nf
		logLik = -nf/2*math.Log(2*math.Pi) - nf/2*math.Log(mle) - nf/2
	}
	kf := float64(k + 1) // coefficients plus the error variance
	aic := -2*logLik + 2*kf
	bic := -2*logLik + kf*math.Log(nf)

	return &OLSFit{
		Coefficients: coeffs,
		StdErrors:    stdErrors,
		TValues:      tValues,
		PValues:      pValues,
		ConfInt:      confInt,
		Fitted:       fitted,
		Residuals:    residuals,
		RSquared:     r2,
		AdjRSquared:  adjR2,
		MSE:          sse / nf,
		FStatistic:   fStat,
		FPValue:      fP,
		LogLik:       logLik,
		AIC:          aic,
		BIC:          bic,
		N:            n,
		K:            k,
	}, nil
}

// Diagnose runs the full residual-diagnostic battery on a fitted
// least-squares model.
func (FullBackend) Diagnose(m *FittedModel) (*Diagnostics, error) {
	if m == nil || m.Fit == nil {
		return nil, ErrNotFitted
	}
	d := reducedDiagnostics(m.Fit.Residuals, m.y, m.Fit.Fitted)

	d.BreuschPagan = stats.BreuschPagan(m.Fit.Residuals, m.design)
	d.LjungBox = stats.LjungBox(m.Fit.Residuals, 1, 0)
	d.DurbinWatson = stats.DurbinWatson(m.Fit.Residuals)
	d.JarqueBera = stats.JarqueBera(m.Fit.Residuals)

	// VIF only makes sense with more than one predictor.
	if len(m.Independents) > 1 {
		predictors := make([][]float64, len(m.Independents))
		for j := range m.Independents {
			col := make([]float64, len(m.design))
			for i, row := range m.design {
				col[i] = row[j+1] // skip the intercept column
			}
			predictors[j] = col
		}
		vifs := stats.VIF(predictors)
		d.VIF = make(map[string]float64, len(vifs))
		for j, name := range m.Independents {
			d.VIF[name] = vifs[j]
		}
	}
	return d, nil
}

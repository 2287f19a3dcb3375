package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Autocorrelation calculates the sample autocorrelation of x at the
// given lag.
func Autocorrelation(x []float64, lag int) float64 {
	n := len(x)
	if lag < 0 || lag >= n {
		return math.NaN()
	}
	if lag == 0 {
		return 1
	}

	mean := Mean(x)
	var num, den float64
	for i := 0; i < n; i++ {
		d := x[i] - mean
		den += d * d
	}
	if den == 0 {
		return math.NaN()
	}
	for i := lag; i < n; i++ {
		num += (x[i] - mean) * (x[i-lag] - mean)
	}
	return num / den
}

// ACF calculates the autocorrelation function up to maxLag.
// The returned slice has maxLag+1 entries with acf[0] = 1.
func ACF(x []float64, maxLag int) []float64 {
	n := len(x)
	if n < 2 || maxLag < 1 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		acf[k] = Autocorrelation(x, k)
	}
	return acf
}

// LjungBoxResult represents the result of a Ljung-Box test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int // Degrees of freedom
}

// LjungBox performs the Ljung-Box test for autocorrelation in residuals.
// The null hypothesis is that there is no autocorrelation up to lag h.
// If p-value < 0.05, we reject the null and conclude there is significant autocorrelation.
// fitdf is the number of parameters estimated in the model that produced
// the residuals.
func LjungBox(residuals []float64, lags, fitdf int) *LjungBoxResult {
	n := len(residuals)
	if n < 3 || lags < 1 {
		return nil
	}

	if lags >= n {
		lags = n - 1
	}

	acf := ACF(residuals, lags)
	if acf == nil {
		return nil
	}

	// Ljung-Box Q statistic
	q := 0.0
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi2 := distuv.ChiSquared{K: float64(dof)}

	return &LjungBoxResult{
		Statistic: q,
		PValue:    chi2.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// BoxPierceResult represents the result of a Box-Pierce test.
type BoxPierceResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// BoxPierce performs the Box-Pierce test for autocorrelation.
// Similar to Ljung-Box but with a simpler formula.
func BoxPierce(residuals []float64, lags, fitdf int) *BoxPierceResult {
	n := len(residuals)
	if n < 3 || lags < 1 {
		return nil
	}

	if lags >= n {
		lags = n - 1
	}

	acf := ACF(residuals, lags)
	if acf == nil {
		return nil
	}

	// Box-Pierce Q statistic
	q := 0.0
	for k := 1; k <= lags; k++ {
		q += acf[k] * acf[k]
	}
	q *= float64(n)

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi2 := distuv.ChiSquared{K: float64(dof)}

	return &BoxPierceResult{
		Statistic: q,
		PValue:    chi2.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// DurbinWatsonResult represents the result of a Durbin-Watson test.
type DurbinWatsonResult struct {
	Statistic float64
	// d ≈ 2: no autocorrelation
	// d < 2: positive autocorrelation
	// d > 2: negative autocorrelation
}

// DurbinWatson calculates the Durbin-Watson statistic for first-order autocorrelation.
func DurbinWatson(residuals []float64) *DurbinWatsonResult {
	n := len(residuals)
	if n < 2 {
		return nil
	}

	numerator := 0.0
	denominator := 0.0

	for i := 1; i < n; i++ {
		diff := residuals[i] - residuals[i-1]
		numerator += diff * diff
	}

	for _, r := range residuals {
		denominator += r * r
	}

	if denominator == 0 {
		return nil
	}

	return &DurbinWatsonResult{
		Statistic: numerator / denominator,
	}
}

// BreuschPaganResult represents the result of a Breusch-Pagan test for
// heteroscedasticity.
type BreuschPaganResult struct {
	Statistic  float64 // Lagrange multiplier statistic
	PValue     float64
	FStatistic float64
	FPValue    float64
}

// BreuschPagan performs the Breusch-Pagan test for heteroscedasticity.
// The squared residuals are regressed on the design matrix (rows must
// include a constant column); under the null of homoscedasticity the
// LM statistic n*R² follows a chi-squared distribution with k-1 degrees
// of freedom.
func BreuschPagan(residuals []float64, design [][]float64) *BreuschPaganResult {
	n := len(residuals)
	if n < 3 || len(design) != n || len(design[0]) < 2 {
		return nil
	}
	k := len(design[0])

	sq := make([]float64, n)
	for i, r := range residuals {
		sq[i] = r * r
	}

	coeffs, _ := OLS(design, sq)
	if coeffs == nil {
		return nil
	}
	fitted := Fitted(design, coeffs)
	r2 := RSquared(sq, fitted)

	lm := float64(n) * r2
	dof := float64(k - 1)
	chi2 := distuv.ChiSquared{K: dof}

	result := &BreuschPaganResult{
		Statistic: lm,
		PValue:    chi2.Survival(lm),
	}

	if r2 < 1 && n > k {
		result.FStatistic = (r2 / dof) / ((1 - r2) / float64(n-k))
		f := distuv.F{D1: dof, D2: float64(n - k)}
		result.FPValue = f.Survival(result.FStatistic)
	} else {
		result.FStatistic = math.Inf(1)
		result.FPValue = 0
	}

	return result
}

// VIF calculates the variance inflation factor for each predictor column.
// Each column is regressed on all the others (with a constant); the
// factor for a column is 1/(1-R²) of that regression. Columns that are a
// perfect linear combination of the others report +Inf.
func VIF(columns [][]float64) []float64 {
	k := len(columns)
	if k < 2 {
		return nil
	}
	n := len(columns[0])

	vifs := make([]float64, k)
	for target := 0; target < k; target++ {
		design := make([][]float64, n)
		for i := 0; i < n; i++ {
			row := make([]float64, k)
			row[0] = 1
			pos := 1
			for j := 0; j < k; j++ {
				if j == target {
					continue
				}
				row[pos] = columns[j][i]
				pos++
			}
			design[i] = row
		}

		coeffs, _ := OLS(design, columns[target])
		if coeffs == nil {
			vifs[target] = math.Inf(1)
			continue
		}
		r2 := RSquared(columns[target], Fitted(design, coeffs))
		if r2 >= 1 {
			vifs[target] = math.Inf(1)
		} else {
			vifs[target] = 1 / (1 - r2)
		}
	}
	return vifs
}

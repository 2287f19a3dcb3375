package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ShapiroResult represents the result of a Shapiro-Wilk normality test.
type ShapiroResult struct {
	Statistic float64
	PValue    float64
	N         int
}

// ShapiroWilk performs the Shapiro-Wilk test for normality using the
// Royston (1995) AS R94 approximation. The null hypothesis is that the
// sample comes from a normal distribution.
// Valid for sample sizes between 3 and 5000.
func ShapiroWilk(x []float64) (*ShapiroResult, error) {
	n := len(x)
	if n < 3 {
		return nil, errors.New("shapiro-wilk requires at least 3 observations")
	}
	if n > 5000 {
		return nil, errors.New("shapiro-wilk is unreliable above 5000 observations")
	}

	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)

	if sorted[n-1] == sorted[0] {
		return nil, errors.New("all observations are identical")
	}

	// Expected normal order statistics (Blom scores)
	m := make([]float64, n)
	ssqM := 0.0
	for i := 0; i < n; i++ {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
		ssqM += m[i] * m[i]
	}

	a := make([]float64, n)
	rsn := 1 / math.Sqrt(float64(n))

	switch {
	case n == 3:
		a[0] = math.Sqrt(0.5)
		a[2] = -a[0]
	case n <= 5:
		an := polyval([]float64{-2.706056, 4.434685, -2.071190, -0.147981, 0.221157, 0}, rsn) +
			m[n-1]/math.Sqrt(ssqM)
		phi := (ssqM - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
		a[n-1] = an
		a[0] = -an
		for i := 1; i < n-1; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
	default:
		an := polyval([]float64{-2.706056, 4.434685, -2.071190, -0.147981, 0.221157, 0}, rsn) +
			m[n-1]/math.Sqrt(ssqM)
		an1 := polyval([]float64{-3.582633, 5.682633, -1.752461, -0.293762, 0.042981, 0}, rsn) +
			m[n-2]/math.Sqrt(ssqM)
		phi := (ssqM - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) /
			(1 - 2*an*an - 2*an1*an1)
		a[n-1] = an
		a[n-2] = an1
		a[0] = -an
		a[1] = -an1
		for i := 2; i < n-2; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
	}

	mean := Mean(sorted)
	num := 0.0
	den := 0.0
	for i := 0; i < n; i++ {
		num += a[i] * sorted[i]
		d := sorted[i] - mean
		den += d * d
	}
	w := num * num / den
	if w > 1 {
		w = 1
	}

	var p float64
	switch {
	case n == 3:
		p = 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
	case n <= 11:
		nf := float64(n)
		g := -2.273 + 0.459*nf
		mu := 0.5440 - 0.39978*nf + 0.025054*nf*nf - 0.0006714*nf*nf*nf
		sigma := math.Exp(1.3822 - 0.77857*nf + 0.062767*nf*nf - 0.0020322*nf*nf*nf)
		if 1-w <= 0 {
			p = 1
		} else {
			z := (-math.Log(g-math.Log(1-w)) - mu) / sigma
			p = distuv.UnitNormal.Survival(z)
		}
	default:
		u := math.Log(float64(n))
		mu := -1.5861 - 0.31082*u - 0.083751*u*u + 0.0038915*u*u*u
		sigma := math.Exp(-0.4803 - 0.082676*u + 0.0030302*u*u)
		if 1-w <= 0 {
			p = 1
		} else {
			z := (math.Log(1-w) - mu) / sigma
			p = distuv.UnitNormal.Survival(z)
		}
	}

	return &ShapiroResult{Statistic: w, PValue: p, N: n}, nil
}

// polyval evaluates a polynomial with coefficients ordered from the
// highest power down to the constant term.
func polyval(coeffs []float64, x float64) float64 {
	result := 0.0
	for _, c := range coeffs {
		result = result*x + c
	}
	return result
}

// JarqueBeraResult represents the result of a Jarque-Bera normality test.
type JarqueBeraResult struct {
	Statistic float64
	PValue    float64
}

// JarqueBera performs the Jarque-Bera test for normality on residuals or
// raw observations. The statistic combines the population skewness and
// excess kurtosis and follows a chi-squared distribution with 2 degrees
// of freedom under the null.
func JarqueBera(x []float64) *JarqueBeraResult {
	n := len(x)
	if n < 2 {
		return nil
	}

	mean := Mean(x)
	var m2, m3, m4 float64
	for _, v := range x {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	nf := float64(n)
	m2 /= nf
	m3 /= nf
	m4 /= nf

	if m2 == 0 {
		return nil
	}

	skew := m3 / math.Pow(m2, 1.5)
	kurt := m4/(m2*m2) - 3

	jb := nf / 6 * (skew*skew + kurt*kurt/4)
	chi2 := distuv.ChiSquared{K: 2}

	return &JarqueBeraResult{
		Statistic: jb,
		PValue:    chi2.Survival(jb),
	}
}

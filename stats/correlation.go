package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pearson calculates the Pearson product-moment correlation coefficient.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// PearsonTest calculates the Pearson correlation and its two-sided p-value
// from the t distribution with n-2 degrees of freedom.
func PearsonTest(x, y []float64) (r, p float64) {
	r = Pearson(x, y)
	p = correlationPValue(r, len(x))
	return r, p
}

// Spearman calculates the Spearman rank correlation coefficient.
// Ties receive their average rank.
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(Ranks(x), Ranks(y), nil)
}

// SpearmanTest calculates the Spearman correlation and its two-sided
// p-value using the t approximation on the rank correlation.
func SpearmanTest(x, y []float64) (r, p float64) {
	r = Spearman(x, y)
	p = correlationPValue(r, len(x))
	return r, p
}

// correlationPValue converts a correlation into a two-sided p-value via
// t = r*sqrt((n-2)/(1-r^2)).
func correlationPValue(r float64, n int) float64 {
	if math.IsNaN(r) || n < 3 {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * dist.Survival(math.Abs(t))
}

// Ranks returns the 1-based ranks of the values, assigning tied values
// their average rank.
func Ranks(x []float64) []float64 {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		// Average rank for the tie run [i, j]
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// KendallTest calculates Kendall's tau-b and its two-sided p-value using
// the normal approximation with tie correction.
func KendallTest(x, y []float64) (tau, p float64) {
	n := len(x)
	if len(y) != n || n < 2 {
		return math.NaN(), math.NaN()
	}

	var concordant, discordant float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := x[j] - x[i]
			dy := y[j] - y[i]
			prod := dx * dy
			if prod > 0 {
				concordant++
			} else if prod < 0 {
				discordant++
			}
		}
	}

	tiesX := tieGroups(x)
	tiesY := tieGroups(y)

	nf := float64(n)
	n0 := nf * (nf - 1) / 2
	n1 := tieSum(tiesX, func(t float64) float64 { return t * (t - 1) / 2 })
	n2 := tieSum(tiesY, func(t float64) float64 { return t * (t - 1) / 2 })

	denom := math.Sqrt((n0 - n1) * (n0 - n2))
	if denom == 0 {
		return math.NaN(), math.NaN()
	}
	tau = (concordant - discordant) / denom

	// Variance of C-D with tie corrections
	v0 := nf * (nf - 1) * (2*nf + 5)
	vt := tieSum(tiesX, func(t float64) float64 { return t * (t - 1) * (2*t + 5) })
	vu := tieSum(tiesY, func(t float64) float64 { return t * (t - 1) * (2*t + 5) })
	v1 := tieSum(tiesX, func(t float64) float64 { return t * (t - 1) }) *
		tieSum(tiesY, func(t float64) float64 { return t * (t - 1) }) / (2 * nf * (nf - 1))
	v2 := 0.0
	if n > 2 {
		v2 = tieSum(tiesX, func(t float64) float64 { return t * (t - 1) * (t - 2) }) *
			tieSum(tiesY, func(t float64) float64 { return t * (t - 1) * (t - 2) }) /
			(9 * nf * (nf - 1) * (nf - 2))
	}

	variance := (v0-vt-vu)/18 + v1 + v2
	if variance <= 0 {
		return tau, math.NaN()
	}

	z := (concordant - discordant) / math.Sqrt(variance)
	p = 2 * distuv.UnitNormal.Survival(math.Abs(z))
	return tau, p
}

// tieGroups returns the size of each group of tied values.
func tieGroups(x []float64) []float64 {
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	var groups []float64
	i := 0
	for i < len(sorted) {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[i] {
			j++
		}
		if j > i {
			groups = append(groups, float64(j-i+1))
		}
		i = j + 1
	}
	return groups
}

func tieSum(groups []float64, f func(float64) float64) float64 {
	sum := 0.0
	for _, g := range groups {
		sum += f(g)
	}
	return sum
}

// FisherCI calculates a confidence interval for a correlation coefficient
// using the Fisher Z transform: z = atanh(r), se = 1/sqrt(n-3), interval
// back-transformed with tanh.
func FisherCI(r float64, n int, confidence float64) (lo, hi float64) {
	if n < 4 || math.Abs(r) >= 1 {
		return math.NaN(), math.NaN()
	}
	z := math.Atanh(r)
	se := 1 / math.Sqrt(float64(n-3))
	zCrit := distuv.UnitNormal.Quantile(0.5 + confidence/2)
	return math.Tanh(z - zCrit*se), math.Tanh(z + zCrit*se)
}

// PartialCorrelation calculates the correlation between x and y after
// removing the linear effect of the control variables: both series are
// regressed on the controls (with constant) and the residuals correlated.
func PartialCorrelation(x, y []float64, controls [][]float64) (r, p float64, err error) {
	n := len(x)
	if len(y) != n {
		return 0, 0, errors.New("variables must have the same length")
	}
	if n < len(controls)+3 {
		return 0, 0, errors.New("not enough observations for partial correlation")
	}
	for _, c := range controls {
		if len(c) != n {
			return 0, 0, errors.New("control variables must have the same length")
		}
	}

	design := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(controls)+1)
		row[0] = 1
		for j, c := range controls {
			row[j+1] = c[i]
		}
		design[i] = row
	}

	cx, _ := OLS(design, x)
	cy, _ := OLS(design, y)
	if cx == nil || cy == nil {
		return 0, 0, errors.New("control design matrix is singular")
	}

	rx := Residuals(design, x, cx)
	ry := Residuals(design, y, cy)

	r, p = PearsonTest(rx, ry)
	return r, p, nil
}

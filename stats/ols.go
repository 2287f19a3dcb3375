package stats

import "math"

// OLS performs ordinary least squares regression of y on the rows of x.
// Each row of x holds the regressor values for one observation, including
// any constant term the caller wants fitted.
// Returns coefficients and their standard errors, or nils when the system
// is degenerate (empty input, singular design, or too few observations
// for standard errors).
func OLS(x [][]float64, y []float64) (coeffs, stdErrors []float64) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, nil
	}

	k := len(x[0]) // number of regressors

	// Build X'X and X'y
	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}

	xty := make([]float64, k)

	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			xty[j] += x[i][j] * y[i]
			for l := 0; l < k; l++ {
				xtx[j][l] += x[i][j] * x[i][l]
			}
		}
	}

	xtxInv := invertMatrix(xtx)
	if xtxInv == nil {
		return nil, nil
	}

	// beta = (X'X)^-1 X'y
	coeffs = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coeffs[i] += xtxInv[i][j] * xty[j]
		}
	}

	// Residual sum of squares
	sse := 0.0
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < k; j++ {
			pred += coeffs[j] * x[i][j]
		}
		residual := y[i] - pred
		sse += residual * residual
	}

	if n <= k {
		return coeffs, nil
	}

	s2 := sse / float64(n-k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		stdErrors[i] = math.Sqrt(s2 * xtxInv[i][i])
	}

	return coeffs, stdErrors
}

// Fitted returns the fitted values X*beta.
func Fitted(x [][]float64, coeffs []float64) []float64 {
	fitted := make([]float64, len(x))
	for i, row := range x {
		pred := 0.0
		for j, c := range coeffs {
			pred += c * row[j]
		}
		fitted[i] = pred
	}
	return fitted
}

// Residuals returns y - X*beta.
func Residuals(x [][]float64, y, coeffs []float64) []float64 {
	fitted := Fitted(x, coeffs)
	resid := make([]float64, len(y))
	for i := range y {
		resid[i] = y[i] - fitted[i]
	}
	return resid
}

// RSquared returns the coefficient of determination of fitted against y.
func RSquared(y, fitted []float64) float64 {
	n := len(y)
	if n == 0 || len(fitted) != n {
		return 0
	}
	mean := Mean(y)
	ssTot := 0.0
	ssRes := 0.0
	for i := range y {
		d := y[i] - mean
		ssTot += d * d
		e := y[i] - fitted[i]
		ssRes += e * e
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// invertMatrix inverts a square matrix using Gauss-Jordan elimination.
// Returns nil if the matrix is singular.
func invertMatrix(m [][]float64) [][]float64 {
	n := len(m)
	if n == 0 {
		return nil
	}

	// Augment with identity
	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		// Find pivot
		pivot := col
		maxVal := math.Abs(aug[col][col])
		for row := col + 1; row < n; row++ {
			if math.Abs(aug[row][col]) > maxVal {
				maxVal = math.Abs(aug[row][col])
				pivot = row
			}
		}

		if maxVal < 1e-12 {
			return nil // singular
		}

		aug[col], aug[pivot] = aug[pivot], aug[col]

		// Normalize pivot row
		pivotVal := aug[col][col]
		for j := 0; j < 2*n; j++ {
			aug[col][j] /= pivotVal
		}

		// Eliminate column
		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := aug[row][col]
			for j := 0; j < 2*n; j++ {
				aug[row][j] -= factor * aug[col][j]
			}
		}
	}

	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = make([]float64, n)
		copy(inv[i], aug[i][n:])
	}

	return inv
}

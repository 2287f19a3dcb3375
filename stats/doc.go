// Package stats provides the shared numeric primitives of the
// analysis engine: descriptive moments and quantiles, correlation
// coefficients with significance tests, normality tests, residual
// diagnostics, and outlier scoring.
//
// # Descriptive Statistics
//
// Summaries over plain float64 slices, empty-safe:
//
//	mean := stats.Mean(values)
//	sd := stats.Std(values)          // sample, denominator n-1
//	q3 := stats.Quantile(values, 0.75)
//	skew := stats.Skewness(values)
//
// # Correlation
//
// Coefficients with two-sided p-values:
//
//	r, p := stats.PearsonTest(x, y)
//	rho, p := stats.SpearmanTest(x, y)
//	tau, p := stats.KendallTest(x, y)
//
//	// 95% confidence interval via the Fisher Z transform
//	lo, hi := stats.FisherCI(r, len(x), 0.95)
//
//	// correlation with control variables partialled out
//	r, p, err := stats.PartialCorrelation(x, y, controls)
//
// # Normality Tests
//
// Test whether a sample is normally distributed:
//
//	// Shapiro-Wilk, valid for 3 to 5000 observations
//	sw, err := stats.ShapiroWilk(values)
//
//	// Jarque-Bera on residuals
//	jb := stats.JarqueBera(residuals)
//
// # Residual Diagnostics
//
// Tests for regression residuals:
//
//	// Ljung-Box test for autocorrelation
//	lb := stats.LjungBox(residuals, 10, fitdf)
//	if lb.PValue > 0.05 {
//	    // Residuals are white noise (good)
//	}
//
//	dw := stats.DurbinWatson(residuals)
//	bp := stats.BreuschPagan(residuals, design)
//	vifs := stats.VIF(predictorColumns)
//
// # Outlier Scoring
//
// Per-column detectors shared by the preprocessor and the descriptive
// analyzer:
//
//	iqr := stats.OutliersIQR(values, 1.5)
//	z := stats.OutliersZScore(values, 3.0)
//	iso := stats.OutliersIsolation(values, 0.1, 42)
package stats

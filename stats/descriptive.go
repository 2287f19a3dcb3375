package stats

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of the values.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Variance calculates the sample variance (denominator n-1).
func Variance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.Variance(x, nil)
}

// Std calculates the sample standard deviation.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// PopulationStd calculates the population standard deviation (denominator n).
func PopulationStd(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	mean := stat.Mean(x, nil)
	sumSq := 0.0
	for _, v := range x {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// Min returns the minimum value.
func Min(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return floats.Min(x)
}

// Max returns the maximum value.
func Max(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return floats.Max(x)
}

// Sum returns the sum of the values.
func Sum(x []float64) float64 {
	return floats.Sum(x)
}

// Median returns the median value.
func Median(x []float64) float64 {
	return Quantile(x, 0.5)
}

// Quantile returns the p-th quantile (0 <= p <= 1) using linear
// interpolation between order statistics, the convention spreadsheet
// and dataframe libraries use for describe/quantile output.
func Quantile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 || p < 0 || p > 1 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)

	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// Mode returns the first mode: the smallest of the most frequent values.
// When every value is unique the minimum is returned.
func Mode(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	modes, err := mstats.Mode(x)
	if err != nil || len(modes) == 0 {
		return floats.Min(x)
	}
	return floats.Min(modes)
}

// Skewness calculates the adjusted Fisher-Pearson sample skewness.
func Skewness(x []float64) float64 {
	if len(x) < 3 {
		return 0
	}
	if Variance(x) == 0 {
		return 0
	}
	return stat.Skew(x, nil)
}

// Kurtosis calculates the bias-corrected excess kurtosis.
func Kurtosis(x []float64) float64 {
	if len(x) < 4 {
		return 0
	}
	if Variance(x) == 0 {
		return 0
	}
	return stat.ExKurtosis(x, nil)
}

// IQR returns the interquartile range Q3 - Q1.
func IQR(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return Quantile(x, 0.75) - Quantile(x, 0.25)
}

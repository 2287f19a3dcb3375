package stats

import (
	"math"
	"math/rand"
	"sort"
)

// OutlierResult represents per-value outlier detection output for a
// single column of data.
type OutlierResult struct {
	Mask       []bool  // true where the value is an outlier
	Indices    []int   // positions of the outliers, in order
	Count      int     // number of outliers
	LowerBound float64 // lower fence (IQR method, NaN otherwise)
	UpperBound float64 // upper fence (IQR method, NaN otherwise)
	ZScores    []float64
	Scores     []float64 // anomaly scores (isolation method)
}

// OutliersIQR flags values outside [Q1 - m*IQR, Q3 + m*IQR].
// A non-positive multiplier defaults to 1.5. Columns with zero spread
// produce an all-false mask.
func OutliersIQR(x []float64, multiplier float64) *OutlierResult {
	if multiplier <= 0 {
		multiplier = 1.5
	}
	n := len(x)
	result := &OutlierResult{
		Mask:       make([]bool, n),
		LowerBound: math.NaN(),
		UpperBound: math.NaN(),
	}
	if n == 0 {
		return result
	}

	q1 := Quantile(x, 0.25)
	q3 := Quantile(x, 0.75)
	iqr := q3 - q1
	if iqr == 0 {
		return result
	}

	result.LowerBound = q1 - multiplier*iqr
	result.UpperBound = q3 + multiplier*iqr

	for i, v := range x {
		if v < result.LowerBound || v > result.UpperBound {
			result.Mask[i] = true
			result.Indices = append(result.Indices, i)
		}
	}
	result.Count = len(result.Indices)
	return result
}

// OutliersZScore flags values whose absolute z-score exceeds the
// threshold. A non-positive threshold defaults to 3.0. Columns with
// zero variance produce an all-false mask.
func OutliersZScore(x []float64, threshold float64) *OutlierResult {
	if threshold <= 0 {
		threshold = 3.0
	}
	n := len(x)
	result := &OutlierResult{
		Mask:       make([]bool, n),
		ZScores:    make([]float64, n),
		LowerBound: math.NaN(),
		UpperBound: math.NaN(),
	}
	if n == 0 {
		return result
	}

	mean := Mean(x)
	std := Std(x)
	if std == 0 {
		return result
	}

	for i, v := range x {
		z := (v - mean) / std
		result.ZScores[i] = z
		if math.Abs(z) > threshold {
			result.Mask[i] = true
			result.Indices = append(result.Indices, i)
		}
	}
	result.Count = len(result.Indices)
	return result
}

// isolationNode is a node of a single isolation tree over one variable.
type isolationNode struct {
	split       float64
	left, right *isolationNode
	size        int
}

// IsolationScores calculates univariate isolation-forest anomaly scores
// in [0, 1]; higher means more anomalous. trees and sampleSize default
// to 100 and 256 when non-positive.
func IsolationScores(x []float64, trees, sampleSize int, seed int64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	if trees <= 0 {
		trees = 100
	}
	if sampleSize <= 0 || sampleSize > n {
		sampleSize = 256
		if sampleSize > n {
			sampleSize = n
		}
	}

	rng := rand.New(rand.NewSource(seed))
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	depthSums := make([]float64, n)
	for t := 0; t < trees; t++ {
		sample := make([]float64, sampleSize)
		for i := range sample {
			sample[i] = x[rng.Intn(n)]
		}
		root := buildIsolationTree(sample, 0, maxDepth, rng)
		for i, v := range x {
			depthSums[i] += pathLength(root, v, 0)
		}
	}

	c := averagePathLength(float64(sampleSize))
	scores := make([]float64, n)
	for i := range scores {
		avg := depthSums[i] / float64(trees)
		scores[i] = math.Pow(2, -avg/c)
	}
	return scores
}

func buildIsolationTree(sample []float64, depth, maxDepth int, rng *rand.Rand) *isolationNode {
	node := &isolationNode{size: len(sample)}
	if depth >= maxDepth || len(sample) <= 1 {
		return node
	}

	lo := Min(sample)
	hi := Max(sample)
	if lo == hi {
		return node
	}

	node.split = lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range sample {
		if v < node.split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	node.left = buildIsolationTree(left, depth+1, maxDepth, rng)
	node.right = buildIsolationTree(right, depth+1, maxDepth, rng)
	return node
}

func pathLength(node *isolationNode, v float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + averagePathLength(float64(node.size))
	}
	if v < node.split {
		return pathLength(node.left, v, depth+1)
	}
	return pathLength(node.right, v, depth+1)
}

// averagePathLength is the expected path length of an unsuccessful BST
// search over n values, the isolation forest normalization constant.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}

// OutliersIsolation flags the most anomalous values by isolation-forest
// score. contamination is the expected outlier fraction and sets the
// score cutoff quantile; values outside (0, 0.5] default to 0.1.
func OutliersIsolation(x []float64, contamination float64, seed int64) *OutlierResult {
	if contamination <= 0 || contamination > 0.5 {
		contamination = 0.1
	}
	n := len(x)
	result := &OutlierResult{
		Mask:       make([]bool, n),
		LowerBound: math.NaN(),
		UpperBound: math.NaN(),
	}
	if n == 0 {
		return result
	}

	scores := IsolationScores(x, 100, 256, seed)
	result.Scores = scores

	sorted := make([]float64, n)
	copy(sorted, scores)
	sort.Float64s(sorted)
	cutoff := Quantile(sorted, 1-contamination)

	for i, s := range scores {
		if s > cutoff {
			result.Mask[i] = true
			result.Indices = append(result.Indices, i)
		}
	}
	result.Count = len(result.Indices)
	return result
}

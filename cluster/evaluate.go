package cluster

import (
	"errors"
	"fmt"

	"github.com/sartorproj/goanalyze/analysis"
	"github.com/sartorproj/goanalyze/chart"
)

// Evaluation holds the per-cluster-count metrics of an optimal cluster
// search. Metric slices align with ClusterCounts; method-specific
// slices are nil for other methods.
type Evaluation struct {
	Method        string    `json:"method"`
	Features      []string  `json:"features"`
	ClusterCounts []int     `json:"cluster_counts"`
	Silhouettes   []float64 `json:"silhouettes"`

	Inertias      []float64   `json:"inertias,omitempty"`
	BICs          []float64   `json:"bics,omitempty"`
	AICs          []float64   `json:"aics,omitempty"`
	LinkageMatrix [][]float64 `json:"linkage_matrix,omitempty"`

	Charts []analysis.Chart `json:"-"`
}

// EvaluateOptimalClusters sweeps cluster counts from 2 to maxClusters
// and reports the fit metrics for each, sharing the method's other
// parameters. DBSCAN discovers its own cluster count and is not
// supported.
func (a *Analyzer) EvaluateOptimalClusters(features []string, maxClusters int, m Method, standardize bool) (*Evaluation, error) {
	if err := a.ValidateDataset(); err != nil {
		return nil, err
	}
	if _, isDBSCAN := m.(DBSCAN); isDBSCAN {
		return nil, errors.New("cluster count evaluation is not defined for dbscan")
	}
	if maxClusters < 2 {
		maxClusters = 10
	}
	m = withDefaults(m)

	points, _, err := a.featureMatrix(features)
	if err != nil {
		return nil, err
	}
	if maxClusters >= len(points) {
		maxClusters = len(points) - 1
	}
	if maxClusters < 2 {
		return nil, errors.New("not enough observations to evaluate cluster counts")
	}

	var sc *scaler
	if standardize {
		sc = fitScaler(points)
	}
	scaled := sc.transform(points)

	eval := &Evaluation{
		Method:   m.tag(),
		Features: append([]string(nil), features...),
	}

	for k := 2; k <= maxClusters; k++ {
		switch method := m.(type) {
		case KMeans:
			method.K = k
			fit, err := fitKMeans(scaled, method)
			if err != nil {
				return nil, err
			}
			eval.Inertias = append(eval.Inertias, fit.inertia)
			eval.Silhouettes = append(eval.Silhouettes, silhouetteScore(scaled, fit.labels))
		case Hierarchical:
			method.K = k
			fit, err := fitHierarchical(scaled, method)
			if err != nil {
				return nil, err
			}
			if eval.LinkageMatrix == nil {
				eval.LinkageMatrix = fit.linkage
			}
			eval.Silhouettes = append(eval.Silhouettes, silhouetteScore(scaled, fit.labels))
		case GaussianMixture:
			method.K = k
			fit, err := fitGMM(scaled, method)
			if err != nil {
				return nil, err
			}
			eval.BICs = append(eval.BICs, fit.bic)
			eval.AICs = append(eval.AICs, fit.aic)
			eval.Silhouettes = append(eval.Silhouettes, silhouetteScore(scaled, fit.labels))
		default:
			return nil, fmt.Errorf("unsupported clustering method %T", m)
		}
		eval.ClusterCounts = append(eval.ClusterCounts, k)
	}

	counts := make([]float64, len(eval.ClusterCounts))
	for i, k := range eval.ClusterCounts {
		counts[i] = float64(k)
	}
	if eval.Inertias != nil {
		eval.Charts = append(eval.Charts, chart.NewLine("Elbow Curve", counts, eval.Inertias, "clusters", "inertia"))
	}
	eval.Charts = append(eval.Charts, chart.NewLine("Silhouette Scores", counts, eval.Silhouettes, "clusters", "silhouette"))

	return eval, nil
}

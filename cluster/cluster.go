// Package cluster implements the clustering analyzer: k-means,
// agglomerative hierarchical clustering, DBSCAN, and Gaussian mixture
// models over dataset feature columns, with out-of-sample prediction
// and cluster-count evaluation sweeps.
package cluster

import (
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/goanalyze/analysis"
	"github.com/sartorproj/goanalyze/chart"
	"github.com/sartorproj/goanalyze/dataset"
	"github.com/sartorproj/goanalyze/stats"
)

// ErrNotFitted is returned by Predict on a nil fitted model.
var ErrNotFitted = errors.New("model not trained")

// Noise is the label DBSCAN assigns to unclustered points.
const Noise = -1

// Method selects the clustering algorithm. It is a closed union; each
// variant carries its own parameters, defaulted when zero.
type Method interface {
	clusterMethod()
	tag() string
}

// KMeans is Lloyd's algorithm with k-means++ initialization, keeping
// the best of NInit runs by inertia. Non-positive fields default to
// K=3, MaxIter=300, NInit=10; a zero Seed becomes 42.
type KMeans struct {
	K       int
	MaxIter int
	NInit   int
	Seed    int64
}

// Linkage selects the hierarchical merge criterion.
type Linkage string

const (
	Ward     Linkage = "ward"
	Complete Linkage = "complete"
	Average  Linkage = "average"
	Single   Linkage = "single"
)

// Hierarchical is agglomerative clustering cut at K clusters. A
// non-positive K defaults to 3 and an empty Linkage to Ward.
type Hierarchical struct {
	K       int
	Linkage Linkage
}

// DBSCAN is density-based clustering; label -1 marks noise.
// Non-positive fields default to Eps=0.5 and MinSamples=5.
type DBSCAN struct {
	Eps        float64
	MinSamples int
}

// GaussianMixture is an EM-fitted mixture of full-covariance
// Gaussians. Non-positive fields default to K=3, MaxIter=100; a zero
// Seed becomes 42.
type GaussianMixture struct {
	K       int
	MaxIter int
	Seed    int64
}

func (KMeans) clusterMethod()          {}
func (Hierarchical) clusterMethod()    {}
func (DBSCAN) clusterMethod()          {}
func (GaussianMixture) clusterMethod() {}

func (KMeans) tag() string          { return "kmeans" }
func (Hierarchical) tag() string    { return "hierarchical" }
func (DBSCAN) tag() string          { return "dbscan" }
func (GaussianMixture) tag() string { return "gaussian_mixture" }

func withDefaults(m Method) Method {
	switch v := m.(type) {
	case KMeans:
		if v.K <= 0 {
			v.K = 3
		}
		if v.MaxIter <= 0 {
			v.MaxIter = 300
		}
		if v.NInit <= 0 {
			v.NInit = 10
		}
		if v.Seed == 0 {
			v.Seed = 42
		}
		return v
	case Hierarchical:
		if v.K <= 0 {
			v.K = 3
		}
		if v.Linkage == "" {
			v.Linkage = Ward
		}
		return v
	case DBSCAN:
		if v.Eps <= 0 {
			v.Eps = 0.5
		}
		if v.MinSamples <= 0 {
			v.MinSamples = 5
		}
		return v
	case GaussianMixture:
		if v.K <= 0 {
			v.K = 3
		}
		if v.MaxIter <= 0 {
			v.MaxIter = 100
		}
		if v.Seed == 0 {
			v.Seed = 42
		}
		return v
	}
	return m
}

// Options parametrize Analyze beyond the method itself.
type Options struct {
	Standardize bool
	Charts      bool
}

// DefaultOptions standardizes features and generates charts.
func DefaultOptions() Options {
	return Options{Standardize: true, Charts: true}
}

// Report is the data payload of a clustering analysis result.
// Method-specific fields are nil for other methods.
type Report struct {
	Method        string            `json:"method"`
	Features      []string          `json:"features"`
	NClusters     int               `json:"n_clusters"`
	Labels        []int             `json:"labels"`
	Silhouette    float64           `json:"silhouette_score"`
	ClusterCounts map[int]int       `json:"cluster_counts"`
	Centroids     map[int][]float64 `json:"centroids"`
	MeanDistances map[int]float64   `json:"mean_distances"`

	Inertia       *float64    `json:"inertia,omitempty"`
	LinkageMatrix [][]float64 `json:"linkage_matrix,omitempty"`
	NoisePoints   *int        `json:"noise_points,omitempty"`
	Weights       []float64   `json:"weights,omitempty"`
	BIC           *float64    `json:"bic,omitempty"`
	AIC           *float64    `json:"aic,omitempty"`
	LogLikelihood []float64   `json:"log_likelihood,omitempty"`

	Labeled *dataset.Dataset `json:"labeled_data"`
}

// scaler is the z-score transform fitted on the training features
// (population standard deviation).
type scaler struct {
	means []float64
	stds  []float64
}

func fitScaler(points [][]float64) *scaler {
	if len(points) == 0 {
		return nil
	}
	d := len(points[0])
	s := &scaler{means: make([]float64, d), stds: make([]float64, d)}
	for j := 0; j < d; j++ {
		col := make([]float64, len(points))
		for i := range points {
			col[i] = points[i][j]
		}
		s.means[j] = stats.Mean(col)
		s.stds[j] = stats.PopulationStd(col)
		if s.stds[j] == 0 {
			s.stds[j] = 1
		}
	}
	return s
}

func (s *scaler) transform(points [][]float64) [][]float64 {
	if s == nil {
		return points
	}
	out := make([][]float64, len(points))
	for i, p := range points {
		row := make([]float64, len(p))
		for j, v := range p {
			row[j] = (v - s.means[j]) / s.stds[j]
		}
		out[i] = row
	}
	return out
}

// FittedClusters is the immutable output of a successful fit,
// carrying everything Predict needs. The analyzer itself keeps no
// model state.
type FittedClusters struct {
	Method    Method
	Features  []string
	Labels    []int
	Centroids map[int][]float64

	scaler *scaler
	gmm    *gmmModel
}

// Analyzer fits clustering models over dataset feature columns.
type Analyzer struct {
	*analysis.Base
}

// New creates a clustering analyzer over the dataset.
func New(ds *dataset.Dataset) *Analyzer {
	return &Analyzer{Base: analysis.NewBase("clustering", ds)}
}

// featureMatrix validates the features and returns their values after
// listwise deletion, plus the surviving row indices.
func (a *Analyzer) featureMatrix(features []string) ([][]float64, []int, error) {
	if len(features) == 0 {
		return nil, nil, errors.New("at least one feature is required")
	}
	ds := a.Dataset()
	cols := make([]*dataset.Column, len(features))
	values := make([][]float64, len(features))
	for i, name := range features {
		col, err := ds.Column(name)
		if err != nil {
			return nil, nil, err
		}
		if !col.Type.IsNumeric() {
			return nil, nil, fmt.Errorf("column %q is not numeric", name)
		}
		cols[i] = col
		values[i], _ = col.Numeric()
	}

	var points [][]float64
	var rows []int
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
		p := make([]float64, len(features))
		for j := range features {
			p[j] = values[j][row]
		}
		points = append(points, p)
		rows = append(rows, row)
	}
	if len(points) == 0 {
		return nil, nil, errors.New("no complete observations after dropping missing values")
	}
	return points, rows, nil
}

// Analyze fits the requested method and returns both the result and
// the immutable fitted model for out-of-sample prediction.
func (a *Analyzer) Analyze(features []string, m Method, opts Options) (*analysis.Result, *FittedClusters, error) {
	if err := a.ValidateDataset(); err != nil {
		return nil, nil, err
	}
	m = withDefaults(m)

	points, rows, err := a.featureMatrix(features)
	if err != nil {
		return nil, nil, err
	}

	var sc *scaler
	if opts.Standardize {
		sc = fitScaler(points)
	}
	scaled := sc.transform(points)

	report := &Report{
		Method:   m.tag(),
		Features: append([]string(nil), features...),
	}
	model := &FittedClusters{
		Method:   m,
		Features: append([]string(nil), features...),
		scaler:   sc,
	}

	var labels []int
	switch method := m.(type) {
	case KMeans:
		km, err := fitKMeans(scaled, method)
		if err != nil {
			return nil, nil, err
		}
		labels = km.labels
		report.Inertia = &km.inertia
		report.NClusters = method.K
	case Hierarchical:
		h, err := fitHierarchical(scaled, method)
		if err != nil {
			return nil, nil, err
		}
		labels = h.labels
		report.LinkageMatrix = h.linkage
		report.NClusters = method.K
	case DBSCAN:
		labels = fitDBSCAN(scaled, method.Eps, method.MinSamples)
		noise := 0
		clusters := make(map[int]bool)
		for _, l := range labels {
			if l == Noise {
				noise++
			} else {
				clusters[l] = true
			}
		}
		report.NoisePoints = &noise
		report.NClusters = len(clusters)
	case GaussianMixture:
		g, err := fitGMM(scaled, method)
		if err != nil {
			return nil, nil, err
		}
		labels = g.labels
		report.Weights = g.weights
		report.BIC = &g.bic
		report.AIC = &g.aic
		report.LogLikelihood = g.sampleLogLik
		report.NClusters = method.K
		model.gmm = g
	default:
		return nil, nil, fmt.Errorf("unsupported clustering method %T", m)
	}

	model.Labels = labels
	model.Centroids = centroids(scaled, labels)

	report.Labels = labels
	report.Centroids = model.Centroids
	report.ClusterCounts = clusterCounts(labels)
	report.MeanDistances = meanDistances(scaled, labels, model.Centroids)
	report.Silhouette = silhouetteScore(scaled, labels)

	report.Labeled = a.labeledTable(rows, labels)

	var charts []analysis.Chart
	if opts.Charts {
		charts = a.buildCharts(features, points, labels, model.Centroids, sc, report.LinkageMatrix)
	}

	metadata := map[string]any{
		"clustering_method": m.tag(),
		"features":          report.Features,
		"n_clusters":        report.NClusters,
		"standardize":       opts.Standardize,
		"sample_size":       len(points),
	}
	return a.CreateResult(report, metadata, charts...), model, nil
}

// labeledTable is the fitted rows with a cluster label column
// appended.
func (a *Analyzer) labeledTable(rows, labels []int) *dataset.Dataset {
	out := a.Dataset().SelectRows(rows)
	ints := make([]int64, len(labels))
	for i, l := range labels {
		ints[i] = int64(l)
	}
	col := dataset.NewIntColumn("cluster", ints)
	if err := out.AddColumn(col); err != nil {
		out.ReplaceColumn(col)
		a.Warn("overwrote existing %q column in labeled data", "cluster")
	}
	return out
}

// centroids computes per-cluster mean points. Noise is excluded.
func centroids(points [][]float64, labels []int) map[int][]float64 {
	if len(points) == 0 {
		return nil
	}
	d := len(points[0])
	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for i, l := range labels {
		if l == Noise {
			continue
		}
		if sums[l] == nil {
			sums[l] = make([]float64, d)
		}
		for j, v := range points[i] {
			sums[l][j] += v
		}
		counts[l]++
	}
	out := make(map[int][]float64, len(sums))
	for l, sum := range sums {
		c := make([]float64, d)
		for j := range sum {
			c[j] = sum[j] / float64(counts[l])
		}
		out[l] = c
	}
	return out
}

func clusterCounts(labels []int) map[int]int {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

// meanDistances computes the per-cluster mean Euclidean distance to
// the cluster centroid. Noise is excluded.
func meanDistances(points [][]float64, labels []int, cents map[int][]float64) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i, l := range labels {
		if l == Noise {
			continue
		}
		sums[l] += euclidean(points[i], cents[l])
		counts[l]++
	}
	out := make(map[int]float64, len(sums))
	for l, sum := range sums {
		out[l] = sum / float64(counts[l])
	}
	return out
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// silhouetteScore computes the mean silhouette coefficient. It is 0
// when fewer than 2 distinct clusters exist or any noise is present.
func silhouetteScore(points [][]float64, labels []int) float64 {
	clusters := make(map[int][]int)
	for i, l := range labels {
		if l == Noise {
			return 0
		}
		clusters[l] = append(clusters[l], i)
	}
	if len(clusters) < 2 {
		return 0
	}

	n := len(points)
	total := 0.0
	for i := 0; i < n; i++ {
		own := labels[i]
		if len(clusters[own]) == 1 {
			continue // silhouette of a singleton is 0
		}

		a := 0.0
		for _, j := range clusters[own] {
			if j != i {
				a += euclidean(points[i], points[j])
			}
		}
		a /= float64(len(clusters[own]) - 1)

		b := math.Inf(1)
		for l, members := range clusters {
			if l == own {
				continue
			}
			sum := 0.0
			for _, j := range members {
				sum += euclidean(points[i], points[j])
			}
			if avg := sum / float64(len(members)); avg < b {
				b = avg
			}
		}

		if max := math.Max(a, b); max > 0 {
			total += (b - a) / max
		}
	}
	return total / float64(n)
}

// Predict assigns new rows to clusters. KMeans and Gaussian mixtures
// predict natively; hierarchical uses the nearest computed centroid;
// DBSCAN uses the nearest centroid within Eps and labels farther
// points noise. A nil model returns ErrNotFitted.
func (f *FittedClusters) Predict(newData *dataset.Dataset) ([]int, error) {
	if f == nil {
		return nil, ErrNotFitted
	}
	if newData == nil {
		return nil, errors.New("nil dataset")
	}

	predictors := make([][]float64, len(f.Features))
	for j, name := range f.Features {
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

	rows := newData.NumRows()
	points := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		p := make([]float64, len(f.Features))
		for j := range f.Features {
			p[j] = predictors[j][i]
		}
		points[i] = p
	}
	scaled := f.scaler.transform(points)

	labels := make([]int, rows)
	switch m := f.Method.(type) {
	case GaussianMixture:
		for i, p := range scaled {
			labels[i] = f.gmm.predict(p)
		}
	case DBSCAN:
		for i, p := range scaled {
			l, dist := nearestCentroid(p, f.Centroids)
			if l == Noise || dist > m.Eps {
				labels[i] = Noise
			} else {
				labels[i] = l
			}
		}
	default: // KMeans and Hierarchical assign by nearest centroid
		for i, p := range scaled {
			l, _ := nearestCentroid(p, f.Centroids)
			labels[i] = l
		}
	}
	return labels, nil
}

// nearestCentroid returns the closest centroid label, or Noise when no
// centroids exist.
func nearestCentroid(p []float64, cents map[int][]float64) (int, float64) {
	best := Noise
	bestDist := math.Inf(1)
	for l, c := range cents {
		if d := euclidean(p, c); d < bestDist {
			best = l
			bestDist = d
		}
	}
	return best, bestDist
}

func (a *Analyzer) buildCharts(features []string, points [][]float64, labels []int, cents map[int][]float64, sc *scaler, linkage [][]float64) []analysis.Chart {
	var charts []analysis.Chart

	// Scatter of points colored by label, only for 2 or 3 features.
	if len(features) == 2 || len(features) == 3 {
		x := make([]float64, len(points))
		y := make([]float64, len(points))
		for i, p := range points {
			x[i] = p[0]
			y[i] = p[1]
		}
		scatter := chart.NewScatter("Clusters by "+features[0]+" and "+features[1], x, y, labels, features[0], features[1])
		if len(features) == 3 {
			z := make([]float64, len(points))
			for i, p := range points {
				z[i] = p[2]
			}
			scatter.Z = z
		}
		charts = append(charts, scatter)

		// Centroid overlay in original feature units.
		cx := make([]float64, 0, len(cents))
		cy := make([]float64, 0, len(cents))
		cl := make([]int, 0, len(cents))
		for l, c := range cents {
			orig := c
			if sc != nil {
				orig = make([]float64, len(c))
				for j, v := range c {
					orig[j] = v*sc.stds[j] + sc.means[j]
				}
			}
			cx = append(cx, orig[0])
			cy = append(cy, orig[1])
			cl = append(cl, l)
		}
		charts = append(charts, chart.NewScatter("Cluster Centroids", cx, cy, cl, features[0], features[1]))
	}

	// Per-cluster feature mean heatmap.
	if len(features) > 1 {
		labelSet := make(map[int][]int)
		for i, l := range labels {
			if l != Noise {
				labelSet[l] = append(labelSet[l], i)
			}
		}
		var rowNames []string
		var matrix [][]float64
		for l := 0; l < len(labelSet)+1; l++ {
			members, ok := labelSet[l]
			if !ok {
				continue
			}
			means := make([]float64, len(features))
			for _, i := range members {
				for j, v := range points[i] {
					means[j] += v
				}
			}
			for j := range means {
				means[j] /= float64(len(members))
			}
			rowNames = append(rowNames, fmt.Sprintf("cluster %d", l))
			matrix = append(matrix, means)
		}
		charts = append(charts, chart.NewHeatmap("Cluster Feature Means", rowNames, features, matrix))
	}

	if linkage != nil {
		charts = append(charts, chart.NewDendrogram("Hierarchical Clustering Dendrogram", linkage))
	}
	return charts
}

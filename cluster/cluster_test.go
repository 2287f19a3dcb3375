package cluster

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/sartorproj/goanalyze/dataset"
)

// blobs builds three well-separated groups of 30 points each.
func blobs(t *testing.T) *dataset.Dataset {
	t.Helper()
	centers := [][2]float64{{0, 0}, {10, 10}, {-10, 10}}
	n := 90
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		c := centers[i/30]
		x[i] = c[0] + (float64(i%10)-5)/10
		y[i] = c[1] + (float64(i%7)-3)/10
	}
	ds, err := dataset.FromColumns("blobs", map[string]any{"x": x, "y": y})
	if err != nil {
		t.Fatalf("building dataset: %v", err)
	}
	return ds
}

func TestKMeans(t *testing.T) {
	a := New(blobs(t))

	result, model, err := a.Analyze([]string{"x", "y"}, KMeans{K: 3}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.NClusters != 3 {
		t.Fatalf("expected 3 clusters, got %d", report.NClusters)
	}
	if report.Silhouette < 0.5 {
		t.Errorf("well-separated blobs should have silhouette above 0.5, got %f", report.Silhouette)
	}
	if len(report.Labels) != 90 {
		t.Fatalf("labels should cover every row, got %d", len(report.Labels))
	}

	// Each blob lands in one cluster
	for blob := 0; blob < 3; blob++ {
		first := report.Labels[blob*30]
		for i := blob * 30; i < (blob+1)*30; i++ {
			if report.Labels[i] != first {
				t.Errorf("blob %d split across clusters at row %d", blob, i)
				break
			}
		}
	}

	if report.Inertia == nil || *report.Inertia <= 0 {
		t.Error("k-means should report a positive inertia")
	}
	if len(report.ClusterCounts) != 3 {
		t.Errorf("expected 3 cluster counts, got %v", report.ClusterCounts)
	}
	for l, count := range report.ClusterCounts {
		if count != 30 {
			t.Errorf("cluster %d should hold 30 points, got %d", l, count)
		}
	}
	if model == nil {
		t.Fatal("a fitted model should come back with the result")
	}
}

func TestKMeansDeterministic(t *testing.T) {
	ds := blobs(t)

	_, m1, err := New(ds).Analyze([]string{"x", "y"}, KMeans{K: 3, Seed: 7}, DefaultOptions())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	_, m2, err := New(ds).Analyze([]string{"x", "y"}, KMeans{K: 3, Seed: 7}, DefaultOptions())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	for i := range m1.Labels {
		if m1.Labels[i] != m2.Labels[i] {
			t.Fatal("same seed should reproduce the same labels")
		}
	}
}

func TestHierarchical(t *testing.T) {
	a := New(blobs(t))

	for _, linkage := range []Linkage{Ward, Complete, Average, Single} {
		result, _, err := a.Analyze([]string{"x", "y"}, Hierarchical{K: 3, Linkage: linkage}, DefaultOptions())
		if err != nil {
			t.Fatalf("%s: Analyze failed: %v", linkage, err)
		}
		report := result.Data.(*Report)

		if report.NClusters != 3 {
			t.Errorf("%s: expected 3 clusters, got %d", linkage, report.NClusters)
		}
		if report.Silhouette < 0.5 {
			t.Errorf("%s: silhouette should be above 0.5, got %f", linkage, report.Silhouette)
		}
		// n-1 merges for n points
		if len(report.LinkageMatrix) != 89 {
			t.Errorf("%s: linkage matrix should have 89 rows, got %d", linkage, len(report.LinkageMatrix))
		}
		for _, row := range report.LinkageMatrix {
			if len(row) != 4 {
				t.Fatalf("%s: linkage rows should be [a, b, dist, size], got %v", linkage, row)
			}
		}
	}
}

func TestHierarchicalMergeDistancesGrowWard(t *testing.T) {
	a := New(blobs(t))

	result, _, err := a.Analyze([]string{"x", "y"}, Hierarchical{K: 3}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	for i := 1; i < len(report.LinkageMatrix); i++ {
		if report.LinkageMatrix[i][2] < report.LinkageMatrix[i-1][2]-1e-9 {
			t.Errorf("ward merge distances should not decrease, row %d", i)
			break
		}
	}
}

func TestDBSCAN(t *testing.T) {
	a := New(blobs(t))

	// Standardized blobs are tight; generous eps keeps them whole
	result, _, err := a.Analyze([]string{"x", "y"}, DBSCAN{Eps: 0.5, MinSamples: 5}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.NClusters != 3 {
		t.Errorf("expected 3 dense clusters, got %d", report.NClusters)
	}
	if report.NoisePoints == nil {
		t.Fatal("dbscan should report a noise count")
	}
	if *report.NoisePoints != 0 {
		t.Errorf("tight blobs should have no noise, got %d", *report.NoisePoints)
	}
}

func TestDBSCANNoise(t *testing.T) {
	// A lone far-away point becomes noise
	x := []float64{0, 0.1, 0.2, 0.05, 0.15, 100}
	y := []float64{0, 0.1, 0.05, 0.2, 0.15, 100}
	ds, _ := dataset.FromColumns("n", map[string]any{"x": x, "y": y})
	a := New(ds)

	result, _, err := a.Analyze([]string{"x", "y"}, DBSCAN{Eps: 0.5, MinSamples: 3}, Options{Standardize: false})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.Labels[5] != Noise {
		t.Errorf("the isolated point should be noise, got %d", report.Labels[5])
	}
	if *report.NoisePoints != 1 {
		t.Errorf("expected 1 noise point, got %d", *report.NoisePoints)
	}
	// Any noise forces the silhouette to 0
	if report.Silhouette != 0 {
		t.Errorf("silhouette should be 0 with noise present, got %f", report.Silhouette)
	}
}

func TestGaussianMixture(t *testing.T) {
	a := New(blobs(t))

	result, model, err := a.Analyze([]string{"x", "y"}, GaussianMixture{K: 3}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.NClusters != 3 {
		t.Errorf("expected 3 components, got %d", report.NClusters)
	}
	if len(report.Weights) != 3 {
		t.Fatalf("expected 3 component weights, got %v", report.Weights)
	}
	sum := 0.0
	for _, w := range report.Weights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("weights should sum to 1, got %f", sum)
	}
	if report.BIC == nil || report.AIC == nil {
		t.Error("gaussian mixture should report BIC and AIC")
	}
	if len(report.LogLikelihood) != 90 {
		t.Errorf("per-sample log-likelihood should be row aligned, got %d", len(report.LogLikelihood))
	}
	if report.Silhouette < 0.5 {
		t.Errorf("separated blobs should have silhouette above 0.5, got %f", report.Silhouette)
	}
	if model == nil || model.gmm == nil {
		t.Fatal("the fitted model should carry the mixture parameters")
	}
}

func TestPredict(t *testing.T) {
	a := New(blobs(t))
	_, model, err := a.Analyze([]string{"x", "y"}, KMeans{K: 3}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	newData, _ := dataset.FromColumns("new", map[string]any{
		"x": []float64{0.2, 9.8, -10.1},
		"y": []float64{-0.1, 10.2, 9.9},
	})
	labels, err := model.Predict(newData)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	// Each new point lands in the cluster of its blob
	for i, want := range []int{model.Labels[0], model.Labels[30], model.Labels[60]} {
		if labels[i] != want {
			t.Errorf("point %d should join cluster %d, got %d", i, want, labels[i])
		}
	}
}

func TestPredictDBSCANNoise(t *testing.T) {
	a := New(blobs(t))
	_, model, err := a.Analyze([]string{"x", "y"}, DBSCAN{Eps: 0.5, MinSamples: 5}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	newData, _ := dataset.FromColumns("new", map[string]any{
		"x": []float64{0, 1000},
		"y": []float64{0, 1000},
	})
	labels, err := model.Predict(newData)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if labels[0] == Noise {
		t.Error("a point inside a blob should join its cluster")
	}
	if labels[1] != Noise {
		t.Errorf("a far-away point should be noise, got %d", labels[1])
	}
}

func TestPredictNotFitted(t *testing.T) {
	var model *FittedClusters
	if _, err := model.Predict(nil); !errors.Is(err, ErrNotFitted) {
		t.Errorf("nil model should return ErrNotFitted, got %v", err)
	}
}

func TestLabeledTable(t *testing.T) {
	a := New(blobs(t))
	result, _, err := a.Analyze([]string{"x", "y"}, KMeans{K: 3}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	if report.Labeled == nil {
		t.Fatal("the report should carry a labeled table")
	}
	if !report.Labeled.HasColumn("cluster") {
		t.Fatal("the labeled table should have a cluster column")
	}
	col, _ := report.Labeled.Column("cluster")
	if col.Type != dataset.Int {
		t.Errorf("cluster labels should be an int column, got %s", col.Type)
	}
	if report.Labeled.NumRows() != 90 {
		t.Errorf("labeled table should keep the fitted rows, got %d", report.Labeled.NumRows())
	}
}

func TestLabeledTableExistingClusterColumn(t *testing.T) {
	ds := blobs(t)
	stale := make([]int64, ds.NumRows())
	for i := range stale {
		stale[i] = -7
	}
	if err := ds.AddColumn(dataset.NewIntColumn("cluster", stale)); err != nil {
		t.Fatalf("adding column: %v", err)
	}
	a := New(ds)

	result, _, err := a.Analyze([]string{"x", "y"}, KMeans{K: 3}, Options{})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	col, err := report.Labeled.Column("cluster")
	if err != nil {
		t.Fatalf("labeled table should still carry a cluster column: %v", err)
	}
	for i, l := range col.Ints {
		if l != int64(report.Labels[i]) {
			t.Fatalf("stale cluster column should be overwritten at row %d: got %d, want %d", i, l, report.Labels[i])
		}
	}

	warned := false
	for _, w := range a.Warnings() {
		if strings.Contains(w, "cluster") {
			warned = true
		}
	}
	if !warned {
		t.Error("overwriting an existing cluster column should record a warning")
	}
}

func TestMissingRowsDropped(t *testing.T) {
	x := []float64{0, 0.1, math.NaN(), 10, 10.1, 10.2}
	y := []float64{0, 0.1, 0.2, 10, math.NaN(), 10.2}
	ds, _ := dataset.FromColumns("m", map[string]any{"x": x, "y": y})
	a := New(ds)

	result, _, err := a.Analyze([]string{"x", "y"}, KMeans{K: 2}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)

	if len(report.Labels) != 4 {
		t.Errorf("incomplete rows should be dropped listwise, got %d labels", len(report.Labels))
	}
	if report.Labeled.NumRows() != 4 {
		t.Errorf("labeled table should hold complete rows only, got %d", report.Labeled.NumRows())
	}
}

func TestValidation(t *testing.T) {
	a := New(blobs(t))

	if _, _, err := a.Analyze([]string{"x", "nope"}, KMeans{}, DefaultOptions()); err == nil {
		t.Error("unknown feature should fail")
	}
	if _, _, err := a.Analyze(nil, KMeans{}, DefaultOptions()); err == nil {
		t.Error("no features should fail")
	}

	empty := New(nil)
	if _, _, err := empty.Analyze([]string{"x"}, KMeans{}, DefaultOptions()); err == nil {
		t.Error("nil dataset should fail")
	}
}

func TestNegativeParametersFallBack(t *testing.T) {
	a := New(blobs(t))

	// Negative counts are treated like unset fields, not honored.
	result, model, err := a.Analyze([]string{"x", "y"}, KMeans{K: 2, NInit: -1, MaxIter: -5}, Options{})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if model == nil {
		t.Fatal("expected a fitted model")
	}
	if result.Data.(*Report).NClusters != 2 {
		t.Errorf("expected 2 clusters, got %d", result.Data.(*Report).NClusters)
	}

	if _, _, err := a.Analyze([]string{"x", "y"}, GaussianMixture{K: 2, MaxIter: -1}, Options{}); err != nil {
		t.Errorf("negative MaxIter should fall back to the default: %v", err)
	}
	if _, _, err := a.Analyze([]string{"x", "y"}, Hierarchical{K: -2}, Options{}); err != nil {
		t.Errorf("negative K should fall back to the default: %v", err)
	}
}

func TestEvaluateOptimalClusters(t *testing.T) {
	a := New(blobs(t))

	eval, err := a.EvaluateOptimalClusters([]string{"x", "y"}, 6, KMeans{}, true)
	if err != nil {
		t.Fatalf("EvaluateOptimalClusters failed: %v", err)
	}

	// Sweep covers k = 2..6
	if len(eval.ClusterCounts) != 5 {
		t.Fatalf("expected 5 cluster counts, got %v", eval.ClusterCounts)
	}
	if eval.ClusterCounts[0] != 2 || eval.ClusterCounts[4] != 6 {
		t.Errorf("sweep should run from 2 to 6, got %v", eval.ClusterCounts)
	}
	if len(eval.Silhouettes) != 5 || len(eval.Inertias) != 5 {
		t.Fatal("silhouette and inertia tracks should match the sweep")
	}

	// The true structure has 3 clusters
	best := 0
	for i, s := range eval.Silhouettes {
		if s > eval.Silhouettes[best] {
			best = i
		}
	}
	if eval.ClusterCounts[best] != 3 {
		t.Errorf("silhouette should peak at k=3, got k=%d", eval.ClusterCounts[best])
	}

	// Inertia decreases with k
	for i := 1; i < len(eval.Inertias); i++ {
		if eval.Inertias[i] > eval.Inertias[i-1]+1e-9 {
			t.Errorf("inertia should not grow with k: %v", eval.Inertias)
			break
		}
	}

	if len(eval.Charts) == 0 {
		t.Error("the sweep should produce elbow and silhouette charts")
	}
}

func TestEvaluateRejectsDBSCAN(t *testing.T) {
	a := New(blobs(t))

	if _, err := a.EvaluateOptimalClusters([]string{"x", "y"}, 5, DBSCAN{}, true); err == nil {
		t.Error("dbscan has no cluster count to sweep and should be rejected")
	}
}

func TestSilhouetteSingleCluster(t *testing.T) {
	ds, _ := dataset.FromColumns("one", map[string]any{
		"x": []float64{0, 0.1, 0.2, 0.3, 0.05, 0.15},
	})
	a := New(ds)

	result, _, err := a.Analyze([]string{"x"}, KMeans{K: 1, NInit: 1}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	report := result.Data.(*Report)
	if report.Silhouette != 0 {
		t.Errorf("a single cluster has silhouette 0, got %f", report.Silhouette)
	}
}

// Package main demonstrates the preprocessing and analysis pipeline:
// cleaning a synthetic table, then running the descriptive,
// correlation, regression, and clustering analyzers over it.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/sartorproj/goanalyze/cluster"
	"github.com/sartorproj/goanalyze/correlation"
	"github.com/sartorproj/goanalyze/dataset"
	"github.com/sartorproj/goanalyze/descriptive"
	"github.com/sartorproj/goanalyze/preprocess"
	"github.com/sartorproj/goanalyze/regression"
)

func main() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("GoAnalyze Demonstration - Preprocessing / Descriptive / Correlation / Regression / Clustering")
	fmt.Println(strings.Repeat("=", 80))

	ds := buildDataset()
	fmt.Printf("\nDataset: %v\n", ds)

	clean := runPreprocessing(ds)
	runDescriptive(clean)
	runCorrelation(clean)
	runRegression(clean)
	runClustering(clean)
}

// buildDataset creates a synthetic customer table with three latent
// segments and some injected missing values.
func buildDataset() *dataset.Dataset {
	rng := rand.New(rand.NewSource(7))
	n := 150

	age := make([]float64, n)
	income := make([]float64, n)
	spending := make([]float64, n)
	churned := make([]float64, n)
	segment := make([]string, n)

	segments := []struct {
		name       string
		age, inc   float64
		spendShare float64
	}{
		{"budget", 28, 32000, 0.30},
		{"family", 42, 61000, 0.45},
		{"premium", 57, 98000, 0.70},
	}

	for i := 0; i < n; i++ {
		s := segments[i%3]
		age[i] = s.age + rng.NormFloat64()*4
		income[i] = s.inc + rng.NormFloat64()*5000
		spending[i] = income[i]*s.spendShare/12 + rng.NormFloat64()*300
		if spending[i] < income[i]*0.02 {
			churned[i] = 1
		}
		segment[i] = s.name

		// Inject some missing values.
		if i%17 == 0 {
			age[i] = math.NaN()
		}
		if i%23 == 0 {
			income[i] = math.NaN()
		}
	}

	ds, err := dataset.FromColumns("customers", map[string]any{
		"age":      age,
		"income":   income,
		"spending": spending,
		"churned":  churned,
		"segment":  segment,
	})
	if err != nil {
		panic(err)
	}
	ds.Description = "Synthetic customer segments"
	return ds
}

func runPreprocessing(ds *dataset.Dataset) *dataset.Dataset {
	section("Preprocessing")

	p := preprocess.New(ds).
		HandleMissing(preprocess.Median{}, "age").
		HandleMissing(preprocess.Mean{}, "income").
		RemoveOutliers(preprocess.ZScore{Threshold: 3.5}, "spending").
		FilterRows("age > 21 and income > 20000")

	// A standardized copy for inspection; the pipeline itself keeps
	// original units.
	scaled, err := p.Normalized(preprocess.Standard{}, "age", "income", "spending")
	if err != nil {
		panic(err)
	}
	fmt.Printf("standardized copy: %v\n", scaled)

	summary, err := p.Summary()
	if err != nil {
		panic(err)
	}
	printJSON("summary", summary)

	for _, w := range p.Warnings() {
		fmt.Println("warning:", w)
	}

	sampled, err := preprocess.New(ds).Sample(preprocess.SampleOptions{N: 20, Seed: 42}).ProcessedData()
	if err != nil {
		panic(err)
	}
	fmt.Printf("random sample: %v\n", sampled)

	clean, err := p.ProcessedData()
	if err != nil {
		panic(err)
	}
	return clean
}

func runDescriptive(ds *dataset.Dataset) {
	section("Descriptive Statistics")

	a := descriptive.New(ds)
	opts := descriptive.DefaultOptions()
	opts.Columns = []string{"age", "income", "spending"}
	opts.OutlierMethod = descriptive.IQR{Multiplier: 1.5}

	result, err := a.Analyze(opts)
	if err != nil {
		panic(err)
	}
	report := result.Data.(*descriptive.Report)
	for _, name := range report.Columns {
		b := report.Basic[name]
		fmt.Printf("%-10s mean=%10.2f std=%10.2f min=%10.2f max=%10.2f outliers=%d\n",
			name, b.Mean, b.Std, b.Min, b.Max, report.Outliers[name].Count)
	}
	fmt.Printf("charts attached: %d\n", result.ChartCount())
}

func runCorrelation(ds *dataset.Dataset) {
	section("Correlation")

	a := correlation.New(ds)
	result, err := a.Analyze(correlation.Options{
		Columns: []string{"age", "income", "spending"},
		Method:  correlation.Pearson,
		PValues: true,
	})
	if err != nil {
		panic(err)
	}
	report := result.Data.(*correlation.Report)
	fmt.Printf("%-10s", "")
	for _, c := range report.Columns {
		fmt.Printf("%10s", c)
	}
	fmt.Println()
	for i, row := range report.Matrix {
		fmt.Printf("%-10s", report.Columns[i])
		for _, v := range row {
			fmt.Printf("%10.3f", v)
		}
		fmt.Println()
	}

	pairs, err := a.SignificantCorrelations(correlation.SignificanceOptions{Threshold: 0.3})
	if err != nil {
		panic(err)
	}
	for _, pair := range pairs {
		fmt.Printf("significant: %s ~ %s  r=%.3f  p=%.4f\n", pair.Var1, pair.Var2, pair.Correlation, pair.PValue)
	}
}

func runRegression(ds *dataset.Dataset) {
	section("Regression")

	a := regression.New(ds)
	result, model, err := a.LinearRegression("spending", "income", "age")
	if err != nil {
		panic(err)
	}
	report := result.Data.(*regression.Report)
	fmt.Println("equation:", report.Equation)
	fmt.Printf("r-squared: %.4f\n", report.RSquared)
	if report.AIC != nil {
		fmt.Printf("aic: %.2f  bic: %.2f\n", *report.AIC, *report.BIC)
	}

	diag, err := model.Diagnostics()
	if err != nil {
		panic(err)
	}
	fmt.Printf("durbin-watson: %.3f\n", diag.DurbinWatson.Statistic)
	if diag.JarqueBera != nil {
		fmt.Printf("jarque-bera p: %.4f\n", diag.JarqueBera.PValue)
	}
	for name, vif := range diag.VIF {
		fmt.Printf("vif %s: %.2f\n", name, vif)
	}

	// Logistic churn model.
	result, _, err = a.LogisticRegression("churned", "income", "spending")
	if err != nil {
		panic(err)
	}
	report = result.Data.(*regression.Report)
	if m := report.LogisticMetrics; m != nil {
		fmt.Printf("churn model accuracy=%.3f precision=%.3f recall=%.3f\n", m.Accuracy, m.Precision, m.Recall)
	}
}

func runClustering(ds *dataset.Dataset) {
	section("Clustering")

	a := cluster.New(ds)
	features := []string{"age", "income", "spending"}

	result, model, err := a.Analyze(features, cluster.KMeans{K: 3}, cluster.DefaultOptions())
	if err != nil {
		panic(err)
	}
	report := result.Data.(*cluster.Report)
	fmt.Printf("kmeans: %d clusters, silhouette %.3f, inertia %.1f\n",
		report.NClusters, report.Silhouette, *report.Inertia)
	for l, count := range report.ClusterCounts {
		fmt.Printf("  cluster %d: %d points, mean distance %.3f\n", l, count, report.MeanDistances[l])
	}

	// Assign a new customer.
	newRow, err := dataset.FromColumns("new", map[string]any{
		"age":      []float64{35},
		"income":   []float64{55000},
		"spending": []float64{2100},
	})
	if err != nil {
		panic(err)
	}
	labels, err := model.Predict(newRow)
	if err != nil {
		panic(err)
	}
	fmt.Printf("new customer assigned to cluster %d\n", labels[0])

	eval, err := a.EvaluateOptimalClusters(features, 6, cluster.KMeans{}, true)
	if err != nil {
		panic(err)
	}
	fmt.Println("elbow sweep:")
	for i, k := range eval.ClusterCounts {
		fmt.Printf("  k=%d  inertia=%10.1f  silhouette=%.3f\n", k, eval.Inertias[i], eval.Silhouettes[i])
	}
}

func section(title string) {
	fmt.Println()
	fmt.Println(strings.Repeat("-", 80))
	fmt.Println(title)
	fmt.Println(strings.Repeat("-", 80))
}

func printJSON(label string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	fmt.Printf("%s: %s\n", label, data)
}

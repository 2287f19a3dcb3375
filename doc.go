// Package goanalyze provides tabular data preprocessing and
// statistical analysis.
//
// GoAnalyze is a Go package for cleaning in-memory tables and running
// parametrized statistical analyses over them: descriptive statistics,
// correlation, regression, and clustering, each producing structured
// serializable results with optional chart artifacts.
//
// # Features
//
//   - Typed tabular container with missing-value tracking
//   - Chainable preprocessing: missing values, type conversion,
//     normalization, outlier removal, row filtering, sampling
//   - Descriptive statistics with distribution shape, normality tests,
//     outlier reports, and frequency tables
//   - Correlation matrices (Pearson, Spearman, Kendall) with p-values,
//     partial correlation, and Fisher-Z confidence intervals
//   - Linear, polynomial, multiple, and logistic regression with
//     exchangeable estimation backends and residual diagnostics
//   - K-means, hierarchical, DBSCAN, and Gaussian mixture clustering
//     with out-of-sample prediction and cluster-count evaluation
//
// # Quick Start
//
// Clean a table and run an analysis:
//
//	ds, _ := dataset.FromColumns("people", map[string]any{
//	    "age":    []float64{25, 30, math.NaN(), 45, 22},
//	    "income": []float64{50000, 75000, 80000, math.NaN(), 30000},
//	})
//
//	p := preprocess.New(ds).
//	    HandleMissing(preprocess.Median{}, "age").
//	    HandleMissing(preprocess.Mean{}, "income")
//	clean, _ := p.ProcessedData()
//
//	result, _ := descriptive.New(clean).Analyze(descriptive.DefaultOptions())
//	out, _ := result.ToJSON()
//
// Fit a model and predict on new rows:
//
//	_, model, _ := regression.New(clean).LinearRegression("income", "age")
//	predictions, _ := model.Predict(newRows)
//
// # Packages
//
// The library is organized into the following packages:
//
//   - dataset: tabular container and constructors
//   - preprocess: chainable cleaning pipeline
//   - stats: shared numeric primitives and tests
//   - analysis: analyzer contract and result container
//   - chart: data-carrying chart artifacts
//   - descriptive, correlation, regression, cluster: the analyzers
package goanalyze

package regression

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/goanalyze/analysis"
	"github.com/sartorproj/goanalyze/chart"
)

// LogisticFit holds the output of a logistic regression fit.
type LogisticFit struct {
	Coefficients  []float64
	Probabilities []float64
	Predictions   []float64 // class labels at the 0.5 threshold
	Iterations    int
	Converged     bool
}

// LogisticMetrics holds classification quality measures. AUC is nil
// when undefined, e.g. a single-class target.
type LogisticMetrics struct {
	Accuracy        float64   `json:"accuracy"`
	Precision       float64   `json:"precision"`
	Recall          float64   `json:"recall"`
	F1              float64   `json:"f1"`
	ConfusionMatrix [2][2]int `json:"confusion_matrix"` // [actual][predicted]
	AUC             *float64  `json:"auc"`
}

func (a *Analyzer) analyzeLogistic(dependent string, independents []string, y []float64, predictors [][]float64, opts Options) (*analysis.Result, *FittedModel, error) {
	for _, v := range y {
		if v != 0 && v != 1 {
			return nil, nil, fmt.Errorf("logistic regression requires a binary 0/1 dependent variable, got %v", v)
		}
	}

	termNames, design := buildDesign(Logistic{}, independents, predictors)

	fit, err := fitLogisticIRLS(design, y, 100, 1e-8)
	if err != nil {
		return nil, nil, err
	}

	model := &FittedModel{
		Variant:      Logistic{},
		Dependent:    dependent,
		Independents: append([]string(nil), independents...),
		TermNames:    termNames,
		Coefficients: fit.Coefficients,
		Equation:     equation(dependent, termNames, fit.Coefficients, true),
		Logistic:     fit,
		backend:      a.backend,
		design:       design,
		y:            y,
	}

	metrics := classificationMetrics(y, fit.Predictions, fit.Probabilities)
	if metrics.AUC == nil {
		a.Warn("logistic regression: AUC undefined for single-class target")
	}

	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - fit.Probabilities[i]
	}

	report := &Report{
		RegressionType:  "logistic",
		Dependent:       dependent,
		Independents:    model.Independents,
		Coefficients:    termMap(termNames, fit.Coefficients),
		Equation:        model.Equation,
		Predictions:     fit.Predictions,
		Residuals:       residuals,
		LogisticMetrics: metrics,
	}

	var charts []analysis.Chart
	if opts.Charts {
		charts = append(charts,
			chart.NewHistogram("Predicted Probabilities", fit.Probabilities, 10),
			chart.NewScatter("Probability vs Actual "+dependent, fit.Probabilities, y, nil, "probability", "actual"),
		)
	}

	metadata := map[string]any{
		"regression_type":  "logistic",
		"dependent_var":    dependent,
		"independent_vars": model.Independents,
		"backend":          a.backend.Name(),
		"sample_size":      len(y),
	}
	return a.CreateResult(report, metadata, charts...), model, nil
}

// fitLogisticIRLS fits logistic regression by iteratively reweighted
// least squares: each step solves (X'WX) beta = X'Wz for the working
// response z.
func fitLogisticIRLS(design [][]float64, y []float64, maxIter int, tol float64) (*LogisticFit, error) {
	n := len(y)
	if n == 0 || len(design) != n {
		return nil, errors.New("empty or misaligned design matrix")
	}
	k := len(design[0])
	if n <= k {
		return nil, errors.New("not enough observations for the number of terms")
	}

	x := mat.NewDense(n, k, nil)
	for i, row := range design {
		x.SetRow(i, row)
	}

	beta := make([]float64, k)
	fit := &LogisticFit{}

	for iter := 0; iter < maxIter; iter++ {
		fit.Iterations = iter + 1

		// Working weights and response at the current coefficients.
		w := make([]float64, n)
		z := make([]float64, n)
		for i := 0; i < n; i++ {
			eta := 0.0
			for j := 0; j < k; j++ {
				eta += beta[j] * design[i][j]
			}
			p := sigmoid(eta)
			// Clamp weights away from zero to keep the system
			// well-conditioned near separation.
			wi := p * (1 - p)
			if wi < 1e-10 {
				wi = 1e-10
			}
			w[i] = wi
			z[i] = eta + (y[i]-p)/wi
		}

		// X'WX and X'Wz.
		xtwx := mat.NewDense(k, k, nil)
		xtwz := mat.NewVecDense(k, nil)
		for j := 0; j < k; j++ {
			for l := 0; l < k; l++ {
				sum := 0.0
				for i := 0; i < n; i++ {
					sum += design[i][j] * w[i] * design[i][l]
				}
				xtwx.Set(j, l, sum)
			}
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += design[i][j] * w[i] * z[i]
			}
			xtwz.SetVec(j, sum)
		}

		next := mat.NewVecDense(k, nil)
		if err := next.SolveVec(xtwx, xtwz); err != nil {
			return nil, errors.New("weighted design matrix is singular")
		}

		delta := 0.0
		for j := 0; j < k; j++ {
			delta += math.Abs(next.AtVec(j) - beta[j])
			beta[j] = next.AtVec(j)
		}
		if delta < tol {
			fit.Converged = true
			break
		}
	}

	fit.Coefficients = beta
	fit.Probabilities = make([]float64, n)
	fit.Predictions = make([]float64, n)
	for i := 0; i < n; i++ {
		eta := 0.0
		for j := 0; j < k; j++ {
			eta += beta[j] * design[i][j]
		}
		fit.Probabilities[i] = sigmoid(eta)
		if fit.Probabilities[i] >= 0.5 {
			fit.Predictions[i] = 1
		}
	}
	return fit, nil
}

func classificationMetrics(actual, predicted, probabilities []float64) *LogisticMetrics {
	m := &LogisticMetrics{}
	for i := range actual {
		a := int(actual[i])
		p := int(predicted[i])
		m.ConfusionMatrix[a][p]++
	}

	tn := m.ConfusionMatrix[0][0]
	fp := m.ConfusionMatrix[0][1]
	fn := m.ConfusionMatrix[1][0]
	tp := m.ConfusionMatrix[1][1]
	total := tn + fp + fn + tp

	if total > 0 {
		m.Accuracy = float64(tp+tn) / float64(total)
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		f1 := 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		m.F1 = f1
	}

	if auc, ok := rocAUC(actual, probabilities); ok {
		m.AUC = &auc
	}
	return m
}

// rocAUC computes the area under the ROC curve via the rank statistic.
// ok is false when the target has a single class.
func rocAUC(actual, scores []float64) (float64, bool) {
	n := len(actual)
	pos := 0
	for _, a := range actual {
		if a == 1 {
			pos++
		}
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		return 0, false
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	// Average ranks over score ties.
	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	rankSum := 0.0
	for i, a := range actual {
		if a == 1 {
			rankSum += ranks[i]
		}
	}
	auc := (rankSum - float64(pos)*float64(pos+1)/2) / (float64(pos) * float64(neg))
	return auc, true
}

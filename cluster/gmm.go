package cluster

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// gmmModel is a fitted mixture of full-covariance Gaussians.
type gmmModel struct {
	weights      []float64
	means        [][]float64
	normals      []*distmv.Normal
	labels       []int
	sampleLogLik []float64
	bic          float64
	aic          float64
}

const (
	gmmTol = 1e-3
	gmmReg = 1e-6 // covariance diagonal regularization
)

// fitGMM runs expectation-maximization with full covariance matrices,
// initialized from a k-means fit.
func fitGMM(points [][]float64, m GaussianMixture) (*gmmModel, error) {
	n := len(points)
	if m.K < 1 {
		return nil, errors.New("gaussian mixture requires at least one component")
	}
	if n < m.K {
		return nil, errors.New("fewer observations than components")
	}
	d := len(points[0])

	km, err := fitKMeans(points, KMeans{K: m.K, MaxIter: 50, NInit: 1, Seed: m.Seed})
	if err != nil {
		return nil, err
	}

	weights := make([]float64, m.K)
	means := make([][]float64, m.K)
	covs := make([]*mat.SymDense, m.K)
	for c := 0; c < m.K; c++ {
		means[c] = append([]float64(nil), km.centers[c]...)
		covs[c] = identityCov(d)
	}
	for _, l := range km.labels {
		weights[l] += 1 / float64(n)
	}
	for c := range weights {
		if weights[c] == 0 {
			weights[c] = 1e-6
		}
	}

	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, m.K)
	}

	var normals []*distmv.Normal
	prevLogLik := math.Inf(-1)
	logLik := 0.0

	for iter := 0; iter < m.MaxIter; iter++ {
		normals = make([]*distmv.Normal, m.K)
		for c := 0; c < m.K; c++ {
			normal, ok := distmv.NewNormal(means[c], covs[c], nil)
			if !ok {
				return nil, errors.New("covariance matrix is not positive definite")
			}
			normals[c] = normal
		}

		// E-step: responsibilities via log-sum-exp.
		logLik = 0
		for i, p := range points {
			logs := make([]float64, m.K)
			maxLog := math.Inf(-1)
			for c := 0; c < m.K; c++ {
				logs[c] = math.Log(weights[c]) + normals[c].LogProb(p)
				if logs[c] > maxLog {
					maxLog = logs[c]
				}
			}
			sum := 0.0
			for c := range logs {
				sum += math.Exp(logs[c] - maxLog)
			}
			lse := maxLog + math.Log(sum)
			logLik += lse
			for c := range logs {
				resp[i][c] = math.Exp(logs[c] - lse)
			}
		}

		if math.Abs(logLik-prevLogLik) < gmmTol {
			break
		}
		prevLogLik = logLik

		// M-step.
		for c := 0; c < m.K; c++ {
			nc := 0.0
			for i := range points {
				nc += resp[i][c]
			}
			if nc == 0 {
				nc = 1e-10
			}
			weights[c] = nc / float64(n)

			mu := make([]float64, d)
			for i, p := range points {
				for j, v := range p {
					mu[j] += resp[i][c] * v
				}
			}
			for j := range mu {
				mu[j] /= nc
			}
			means[c] = mu

			cov := mat.NewSymDense(d, nil)
			for i, p := range points {
				for j := 0; j < d; j++ {
					for l := j; l < d; l++ {
						cov.SetSym(j, l, cov.At(j, l)+resp[i][c]*(p[j]-mu[j])*(p[l]-mu[l]))
					}
				}
			}
			for j := 0; j < d; j++ {
				for l := j; l < d; l++ {
					v := cov.At(j, l) / nc
					if j == l {
						v += gmmReg
					}
					cov.SetSym(j, l, v)
				}
			}
			covs[c] = cov
		}
	}

	model := &gmmModel{
		weights:      weights,
		means:        means,
		normals:      normals,
		labels:       make([]int, n),
		sampleLogLik: make([]float64, n),
	}
	for i, p := range points {
		best := 0
		bestLog := math.Inf(-1)
		total := math.Inf(-1)
		for c := 0; c < m.K; c++ {
			l := math.Log(weights[c]) + normals[c].LogProb(p)
			if l > bestLog {
				best = c
				bestLog = l
			}
			total = logAdd(total, l)
		}
		model.labels[i] = best
		model.sampleLogLik[i] = total
	}

	// free parameters: k-1 weights, k*d means, k*d*(d+1)/2 covariances
	params := float64(m.K-1) + float64(m.K*d) + float64(m.K*d*(d+1)/2)
	model.bic = -2*logLik + params*math.Log(float64(n))
	model.aic = -2*logLik + 2*params
	return model, nil
}

func (g *gmmModel) predict(p []float64) int {
	best := 0
	bestLog := math.Inf(-1)
	for c := range g.normals {
		if l := math.Log(g.weights[c]) + g.normals[c].LogProb(p); l > bestLog {
			best = c
			bestLog = l
		}
	}
	return best
}

func identityCov(d int) *mat.SymDense {
	cov := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		cov.SetSym(i, i, 1)
	}
	return cov
}

func logAdd(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

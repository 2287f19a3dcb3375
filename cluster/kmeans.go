package cluster

import (
	"errors"
	"math"
	"math/rand"
)

type kmeansFit struct {
	labels  []int
	centers [][]float64
	inertia float64
}

// fitKMeans runs Lloyd's algorithm with k-means++ seeding, keeping the
// best of NInit runs by inertia.
func fitKMeans(points [][]float64, m KMeans) (*kmeansFit, error) {
	n := len(points)
	if m.K < 1 {
		return nil, errors.New("kmeans requires at least one cluster")
	}
	if n < m.K {
		return nil, errors.New("fewer observations than clusters")
	}

	rng := rand.New(rand.NewSource(m.Seed))
	var best *kmeansFit
	for run := 0; run < m.NInit; run++ {
		fit := kmeansOnce(points, m.K, m.MaxIter, rng)
		if best == nil || fit.inertia < best.inertia {
			best = fit
		}
	}
	return best, nil
}

func kmeansOnce(points [][]float64, k, maxIter int, rng *rand.Rand) *kmeansFit {
	centers := kmeansPlusPlus(points, k, rng)
	n := len(points)
	labels := make([]int, n)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := 0
			bestDist := math.Inf(1)
			for c, center := range centers {
				if d := euclidean(p, center); d < bestDist {
					best = c
					bestDist = d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		// Recompute centers; empty clusters keep their previous
		// position.
		d := len(points[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, d)
		}
		for i, p := range points {
			c := labels[i]
			counts[c]++
			for j, v := range p {
				sums[c][j] += v
			}
		}
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			for j := range centers[c] {
				centers[c][j] = sums[c][j] / float64(counts[c])
			}
		}

		if !changed {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		d := euclidean(p, centers[labels[i]])
		inertia += d * d
	}
	return &kmeansFit{labels: labels, centers: centers, inertia: inertia}
}

// kmeansPlusPlus seeds centers proportionally to squared distance from
// the nearest existing center.
func kmeansPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), points[rng.Intn(n)]...))

	dists := make([]float64, n)
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			min := math.Inf(1)
			for _, c := range centers {
				if d := euclidean(p, c); d < min {
					min = d
				}
			}
			dists[i] = min * min
			total += dists[i]
		}

		if total == 0 {
			// All points coincide with existing centers.
			centers = append(centers, append([]float64(nil), points[rng.Intn(n)]...))
			continue
		}

		target := rng.Float64() * total
		acc := 0.0
		pick := n - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				pick = i
				break
			}
		}
		centers = append(centers, append([]float64(nil), points[pick]...))
	}
	return centers
}

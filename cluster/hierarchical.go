package cluster

import (
	"errors"
	"fmt"
	"math"
)

type hierarchicalFit struct {
	labels  []int
	linkage [][]float64
}

// fitHierarchical runs agglomerative clustering with Lance-Williams
// distance updates, records the full linkage matrix (rows of
// [cluster a, cluster b, distance, size] with merged clusters numbered
// n, n+1, ...), and cuts the tree at K clusters.
func fitHierarchical(points [][]float64, m Hierarchical) (*hierarchicalFit, error) {
	n := len(points)
	if m.K < 1 {
		return nil, errors.New("hierarchical clustering requires at least one cluster")
	}
	if n < m.K {
		return nil, errors.New("fewer observations than clusters")
	}

	linkage, merges, err := agglomerate(points, m.Linkage)
	if err != nil {
		return nil, err
	}
	return &hierarchicalFit{
		labels:  cutTree(n, merges, m.K),
		linkage: linkage,
	}, nil
}

// merge records one agglomeration step in chronological order.
type merge struct {
	a, b int // cluster ids being merged (original points are 0..n-1)
}

func agglomerate(points [][]float64, linkage Linkage) ([][]float64, []merge, error) {
	n := len(points)

	// Pairwise distance matrix between active clusters, indexed by
	// slot. Slots start as the original points.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			dist[i][j] = euclidean(points[i], points[j])
		}
	}

	active := make([]bool, n)
	ids := make([]int, n)   // current cluster id per slot
	sizes := make([]int, n) // cluster size per slot
	for i := range active {
		active[i] = true
		ids[i] = i
		sizes[i] = 1
	}

	var rows [][]float64
	var merges []merge
	nextID := n

	for step := 0; step < n-1; step++ {
		// Find the closest active pair.
		bi, bj := -1, -1
		bd := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if dist[i][j] < bd {
					bd = dist[i][j]
					bi, bj = i, j
				}
			}
		}

		rows = append(rows, []float64{
			float64(ids[bi]), float64(ids[bj]), bd, float64(sizes[bi] + sizes[bj]),
		})
		merges = append(merges, merge{a: ids[bi], b: ids[bj]})

		// Merge bj into bi and update the distances of the new cluster
		// to every other active cluster.
		ni := float64(sizes[bi])
		nj := float64(sizes[bj])
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			dik := dist[bi][k]
			djk := dist[bj][k]
			var d float64
			switch linkage {
			case Single:
				d = math.Min(dik, djk)
			case Complete:
				d = math.Max(dik, djk)
			case Average:
				d = (ni*dik + nj*djk) / (ni + nj)
			case Ward:
				nk := float64(sizes[k])
				d = math.Sqrt(((ni+nk)*dik*dik + (nj+nk)*djk*djk - nk*bd*bd) / (ni + nj + nk))
			default:
				return nil, nil, fmt.Errorf("unsupported linkage %q", linkage)
			}
			dist[bi][k] = d
			dist[k][bi] = d
		}

		active[bj] = false
		sizes[bi] += sizes[bj]
		ids[bi] = nextID
		nextID++
	}

	return rows, merges, nil
}

// cutTree applies the first n-k merges and relabels the resulting
// clusters 0..k-1 in order of first appearance.
func cutTree(n int, merges []merge, k int) []int {
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	for step := 0; step < n-k; step++ {
		merged := n + step
		parent[find(merges[step].a)] = merged
		parent[find(merges[step].b)] = merged
	}

	labels := make([]int, n)
	next := 0
	seen := make(map[int]int)
	for i := 0; i < n; i++ {
		root := find(i)
		if _, ok := seen[root]; !ok {
			seen[root] = next
			next++
		}
		labels[i] = seen[root]
	}
	return labels
}

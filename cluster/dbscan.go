package cluster

// fitDBSCAN runs density-based clustering. Core points have at least
// minSamples neighbors (themselves included) within eps; clusters grow
// from core points; everything unreachable is labeled Noise.
func fitDBSCAN(points [][]float64, eps float64, minSamples int) []int {
	n := len(points)
	const unvisited = -2

	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = Noise
			continue
		}

		labels[i] = cluster
		// Expand the cluster over the reachable set; the queue grows as
		// new core points are found.
		queue := append([]int(nil), neighbors...)
		for pos := 0; pos < len(queue); pos++ {
			j := queue[pos]
			if labels[j] == Noise {
				labels[j] = cluster // border point
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			jNeighbors := regionQuery(points, j, eps)
			if len(jNeighbors) >= minSamples {
				queue = append(queue, jNeighbors...)
			}
		}
		cluster++
	}
	return labels
}

func regionQuery(points [][]float64, i int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if euclidean(points[i], points[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

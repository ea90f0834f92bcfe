package manifold

import (
	"math"

	"github.com/viterin/vek"
)

// unassignedCluster marks a point not yet assigned to any cluster.
const unassignedCluster = -1

// defaultKMeansIterations bounds the clustering sweeps used during landmark
// refinement. Convergence usually takes far fewer.
const defaultKMeansIterations = 20

// kMeans partitions points into k clusters by Lloyd iteration under
// Euclidean distance, returning the learned centroids and a per-point
// cluster assignment.
//
// Initialization is uniform spacing (every n/k-th point), which is
// deterministic and good enough for the landmark-spreading use here. The
// loop runs until assignments stop changing or maxIter sweeps elapse.
func kMeans(points [][]float64, k, maxIter int) (centroids [][]float64, assignments []int) {
	if len(points) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(points) {
		k = len(points)
	}
	if maxIter <= 0 {
		maxIter = defaultKMeansIterations
	}

	dim := len(points[0])

	centroids = make([][]float64, k)
	step := len(points) / k
	if step == 0 {
		step = 1
	}
	for c := 0; c < k; c++ {
		src := c * step
		if src >= len(points) {
			src = len(points) - 1
		}
		centroids[c] = make([]float64, dim)
		copy(centroids[c], points[src])
	}

	assignments = make([]int, len(points))
	for i := range assignments {
		assignments[i] = unassignedCluster
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := 0
			bestDist := math.Inf(1)
			for c, centroid := range centroids {
				d := vek.Distance(p, centroid)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			c := assignments[i]
			vek.Add_Inplace(sums[c], p)
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Empty cluster: keep the old centroid, it may attract points
				// on the next sweep.
				continue
			}
			inv := 1 / float64(counts[c])
			for j := 0; j < dim; j++ {
				centroids[c][j] = sums[c][j] * inv
			}
		}
	}

	return centroids, assignments
}

package manifold

import "testing"

// TestKMeansSeparatesClusters tests basic clustering of two obvious groups
func TestKMeansSeparatesClusters(t *testing.T) {
	points := [][]float64{
		{0, 0}, {1, 1}, {0.5, 0.5},
		{10, 10}, {11, 11}, {10.5, 10.5},
	}

	centroids, assignments := kMeans(points, 2, 0)

	if len(centroids) != 2 {
		t.Fatalf("got %d centroids, want 2", len(centroids))
	}
	if len(assignments) != len(points) {
		t.Fatalf("got %d assignments, want %d", len(assignments), len(points))
	}
	for i, a := range assignments {
		if a < 0 || a >= 2 {
			t.Errorf("assignments[%d] = %d, want value in [0,1]", i, a)
		}
	}

	if assignments[0] != assignments[1] || assignments[1] != assignments[2] {
		t.Errorf("first group split across clusters: %v", assignments[:3])
	}
	if assignments[3] != assignments[4] || assignments[4] != assignments[5] {
		t.Errorf("second group split across clusters: %v", assignments[3:])
	}
	if assignments[0] == assignments[3] {
		t.Errorf("both groups landed in cluster %d", assignments[0])
	}
}

// TestKMeansDegenerateInputs tests the empty and invalid-k cases
func TestKMeansDegenerateInputs(t *testing.T) {
	if c, a := kMeans(nil, 2, 10); c != nil || a != nil {
		t.Errorf("kMeans(nil) = %v, %v, want nil, nil", c, a)
	}
	if c, a := kMeans([][]float64{{1}}, 0, 10); c != nil || a != nil {
		t.Errorf("kMeans(k=0) = %v, %v, want nil, nil", c, a)
	}
}

// TestKMeansMorePointsThanClusters tests k is clamped to the point count
func TestKMeansMorePointsThanClusters(t *testing.T) {
	points := [][]float64{{0, 0}, {5, 5}}
	centroids, assignments := kMeans(points, 10, 10)

	if len(centroids) != 2 {
		t.Errorf("got %d centroids, want 2 (clamped)", len(centroids))
	}
	if assignments[0] == assignments[1] {
		t.Errorf("distinct points share a cluster with k >= n")
	}
}

package manifold

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/viterin/vek"
)

// randomTestPoints generates a deterministic point cloud for neighbor tests.
func randomTestPoints(n, dim int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	pts := make([][]float64, n)
	for i := range pts {
		pts[i] = make([]float64, dim)
		for j := range pts[i] {
			pts[i][j] = rng.NormFloat64()
		}
	}
	return pts
}

func euclideanOf(pts [][]float64) func(i, j int) float64 {
	return func(i, j int) float64 { return vek.Distance(pts[i], pts[j]) }
}

// TestComputeNeighborsInvalidK tests the k bounds checks
func TestComputeNeighborsInvalidK(t *testing.T) {
	pts := randomTestPoints(10, 3, 1)
	dist := euclideanOf(pts)

	if _, err := computeNeighbors(10, 0, dist, BruteForceNeighbors); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("computeNeighbors(k=0) error = %v, want ErrInsufficientData", err)
	}
	if _, err := computeNeighbors(10, 10, dist, BruteForceNeighbors); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("computeNeighbors(k=n) error = %v, want ErrInsufficientData", err)
	}
	if _, err := computeNeighbors(10, 3, dist, NeighborsKind("kd_tree")); !errors.Is(err, ErrUnknownNeighborsKind) {
		t.Errorf("computeNeighbors(kd_tree) error = %v, want ErrUnknownNeighborsKind", err)
	}
}

// TestBruteForceNeighborsProperties tests the structural guarantees of the
// neighbor lists: length k, no self, unique entries, ascending distance
func TestBruteForceNeighborsProperties(t *testing.T) {
	pts := randomTestPoints(60, 4, 2)
	dist := euclideanOf(pts)
	k := 7

	nbrs, err := computeNeighbors(len(pts), k, dist, BruteForceNeighbors)
	if err != nil {
		t.Fatalf("computeNeighbors() error = %v, want nil", err)
	}
	if len(nbrs) != len(pts) {
		t.Fatalf("got %d neighbor lists, want %d", len(nbrs), len(pts))
	}

	for i, list := range nbrs {
		if len(list) != k {
			t.Fatalf("list %d has %d entries, want %d", i, len(list), k)
		}
		seen := make(map[int]bool, k)
		prev := -1.0
		for _, j := range list {
			if j == i {
				t.Errorf("list %d contains its own index", i)
			}
			if seen[j] {
				t.Errorf("list %d contains duplicate index %d", i, j)
			}
			seen[j] = true
			d := dist(i, j)
			if d < prev {
				t.Errorf("list %d not sorted by distance: %v after %v", i, d, prev)
			}
			prev = d
		}
	}
}

// TestCoverTreeMatchesBruteForce tests that the cover tree backend returns
// exactly the brute-force neighbor lists
func TestCoverTreeMatchesBruteForce(t *testing.T) {
	pts := randomTestPoints(120, 3, 3)
	dist := euclideanOf(pts)
	k := 9

	want, err := computeNeighbors(len(pts), k, dist, BruteForceNeighbors)
	if err != nil {
		t.Fatalf("brute force error = %v", err)
	}
	got, err := computeNeighbors(len(pts), k, dist, CoverTreeNeighbors)
	if err != nil {
		t.Fatalf("cover tree error = %v", err)
	}

	for i := range want {
		for p := range want[i] {
			if got[i][p] != want[i][p] {
				t.Fatalf("list %d position %d: cover tree = %d, brute force = %d",
					i, p, got[i][p], want[i][p])
			}
		}
	}
}

// TestCoverTreeDegenerateData tests the exhaustive fallback on data where
// every pairwise distance is zero
func TestCoverTreeDegenerateData(t *testing.T) {
	// Coincident points chain straight down; past the depth floor the build
	// flags itself degenerate and queries go through the exhaustive path.
	n, k := 70, 3
	dist := func(i, j int) float64 { return 0 }

	nbrs, err := computeNeighbors(n, k, dist, CoverTreeNeighbors)
	if err != nil {
		t.Fatalf("computeNeighbors() error = %v, want nil", err)
	}

	// All distances tie, so ties break by index: list i holds the k lowest
	// indices excluding i.
	for i, list := range nbrs {
		want := make([]int, 0, k)
		for j := 0; len(want) < k; j++ {
			if j != i {
				want = append(want, j)
			}
		}
		for p := range want {
			if list[p] != want[p] {
				t.Errorf("list %d = %v, want %v", i, list, want)
				break
			}
		}
	}
}

// TestBoundedMaxHeapKeepsBest tests the candidate heap retains the k closest
func TestBoundedMaxHeapKeepsBest(t *testing.T) {
	h := &boundedMaxHeap{k: 3}
	for i, d := range []float64{5, 1, 4, 2, 8, 3} {
		h.offer(neighborCandidate{index: i, dist: d})
	}

	got := h.sorted()
	wantDists := []float64{1, 2, 3}
	if len(got) != 3 {
		t.Fatalf("sorted() returned %d candidates, want 3", len(got))
	}
	for p, c := range got {
		if c.dist != wantDists[p] {
			t.Errorf("sorted()[%d].dist = %v, want %v", p, c.dist, wantDists[p])
		}
	}
}

package manifold

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/viterin/vek"
)

// planarTestData generates points on a 2D plane embedded in 3D with small
// index-seeded jitter, an easy manifold every method should handle.
func planarTestData(n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		u, v := rng.Float64()*10, rng.Float64()*10
		rows[i] = []float64{u, v, 0.5*u + 0.25*v}
	}
	return rows
}

// noisyTestData generates full-rank 3D points near a plane, for the linear
// methods whose generalized right-hand operator needs full feature rank.
func noisyTestData(n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := planarTestData(n, seed)
	for i := range rows {
		for j := range rows[i] {
			rows[i][j] += 0.01 * rng.NormFloat64()
		}
	}
	return rows
}

// rolledTestData generates points on a rolled-up sheet, the standard
// nonlinear benchmark surface.
func rolledTestData(n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		t := 1.5*math.Pi*(1+2*rng.Float64())
		h := rng.Float64() * 10
		rows[i] = []float64{t * math.Cos(t), h, t * math.Sin(t)}
	}
	return rows
}

// swissRollData samples a swiss roll densely enough that no neighbor edge
// shortcuts between coils, and returns the 3D ambient rows together with each
// point's coordinates in the flat (arclength, height) chart of the surface.
func swissRollData(n int, seed int64) (rows, chart [][]float64) {
	rng := rand.New(rand.NewSource(seed))
	rows = make([][]float64, n)
	chart = make([][]float64, n)
	for i := range rows {
		t := 1.5 * math.Pi * (1 + 2*rng.Float64())
		h := 15 * rng.Float64()
		rows[i] = []float64{t * math.Cos(t), h, t * math.Sin(t)}
		s := (t*math.Sqrt(t*t+1) + math.Asinh(t)) / 2
		chart[i] = []float64{s, h}
	}
	return rows, chart
}

// ranksOf maps each sample to its rank in ascending order.
func ranksOf(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	r := make([]float64, len(x))
	for rank, i := range idx {
		r[i] = float64(rank)
	}
	return r
}

// spearman computes the Spearman rank correlation of two paired samples.
func spearman(a, b []float64) float64 {
	ra, rb := ranksOf(a), ranksOf(b)
	mean := float64(len(ra)-1) / 2
	var cov, va, vb float64
	for i := range ra {
		da, db := ra[i]-mean, rb[i]-mean
		cov += da * db
		va += da * da
		vb += db * db
	}
	return cov / math.Sqrt(va*vb)
}

// standardize rescales each column to zero mean and unit variance in place.
func standardize(rows [][]float64) {
	dim := len(rows[0])
	n := float64(len(rows))
	for c := 0; c < dim; c++ {
		var mean float64
		for _, r := range rows {
			mean += r[c]
		}
		mean /= n
		var variance float64
		for _, r := range rows {
			d := r[c] - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / n)
		if sd == 0 {
			continue
		}
		for _, r := range rows {
			r[c] = (r[c] - mean) / sd
		}
	}
}

// nearestSet returns the index set of the k rows nearest to row i.
func nearestSet(rows [][]float64, i, k int) map[int]bool {
	h := &boundedMaxHeap{k: k, items: make([]neighborCandidate, 0, k)}
	for j := range rows {
		if j == i {
			continue
		}
		h.offer(neighborCandidate{index: j, dist: vek.Distance(rows[i], rows[j])})
	}
	set := make(map[int]bool, k)
	for _, c := range h.sorted() {
		set[c.index] = true
	}
	return set
}

// TestEmbedRequiresMethod tests an empty registry fails fast
func TestEmbedRequiresMethod(t *testing.T) {
	_, _, err := EmbedDataset(planarTestData(20, 1), NewParameters())
	if !errors.Is(err, ErrMissingParameter) {
		t.Errorf("Embed() error = %v, want ErrMissingParameter", err)
	}
}

// TestEmbedRequiresTargetDimension tests target dimension never defaults
func TestEmbedRequiresTargetDimension(t *testing.T) {
	p := NewParameters().WithMethod(PCA)
	_, _, err := EmbedDataset(planarTestData(20, 1), p)
	if !errors.Is(err, ErrMissingParameter) {
		t.Errorf("Embed() error = %v, want ErrMissingParameter", err)
	}
}

// TestEmbedMissingCallback tests capability checking happens before any work
func TestEmbedMissingCallback(t *testing.T) {
	// Distance-only set cannot run PCA, which needs features.
	s := ObjectSet{Len: 20, Distance: indexDistance{20}}
	p := NewParameters().
		WithMethod(PCA).
		WithInt(TargetDimension, 1)

	_, _, err := Embed(s, p)
	if !errors.Is(err, ErrMissingCallback) {
		t.Errorf("Embed() error = %v, want ErrMissingCallback", err)
	}
}

// TestEmbedTooFewObjects tests the neighbor count bound surfaces as a typed
// error
func TestEmbedTooFewObjects(t *testing.T) {
	p := NewParameters().
		WithMethod(KernelLocallyLinearEmbedding).
		WithInt(NumNeighbors, 30).
		WithInt(TargetDimension, 2)

	_, _, err := EmbedDataset(planarTestData(10, 1), p)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Embed() error = %v, want ErrInsufficientData", err)
	}
}

// TestEmbedHessianNeighborFloor tests the HLLE-specific neighbor requirement
func TestEmbedHessianNeighborFloor(t *testing.T) {
	p := NewParameters().
		WithMethod(HessianLocallyLinearEmbedding).
		WithInt(NumNeighbors, 3). // below d(d+3)/2 = 5 for d = 2
		WithInt(TargetDimension, 2)

	_, _, err := EmbedDataset(planarTestData(40, 1), p)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Embed() error = %v, want ErrInsufficientData", err)
	}
}

// TestEmbedUnknownMethod tests the closed enumeration at the pipeline level
func TestEmbedUnknownMethod(t *testing.T) {
	p := NewParameters().WithMethod(Method("umap")).WithInt(TargetDimension, 2)
	_, _, err := EmbedDataset(planarTestData(20, 1), p)
	if !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Embed() error = %v, want ErrUnknownMethod", err)
	}
}

// TestPCADegenerateRank tests asking PCA for more components than the data's
// intrinsic rank
func TestPCADegenerateRank(t *testing.T) {
	// Points on a 1D line in 3D: covariance rank 1.
	rows := make([][]float64, 30)
	for i := range rows {
		v := float64(i)
		rows[i] = []float64{v, 2 * v, -v}
	}
	p := NewParameters().WithMethod(PCA).WithInt(TargetDimension, 2)

	_, _, err := EmbedDataset(rows, p)
	if !errors.Is(err, ErrDegenerateSpectrum) {
		t.Errorf("Embed() error = %v, want ErrDegenerateSpectrum", err)
	}
}

// TestPCARecoversPlane tests PCA in its exact regime: planar data embeds into
// 2D with pairwise distances preserved
func TestPCARecoversPlane(t *testing.T) {
	rows := planarTestData(50, 3)
	p := NewParameters().WithMethod(PCA).WithInt(TargetDimension, 2)

	emb, proj, err := EmbedDataset(rows, p)
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}

	n, d := emb.Dims()
	if n != 50 || d != 2 {
		t.Fatalf("Dims() = (%d, %d), want (50, 2)", n, d)
	}

	// The data lies exactly on a plane, so a 2D linear projection preserves
	// every pairwise distance.
	a, b := make([]float64, 2), make([]float64, 2)
	for i := 0; i < n; i += 7 {
		for j := i + 1; j < n; j += 7 {
			emb.rowOfEmbedding(i, a)
			emb.rowOfEmbedding(j, b)
			got := vek.Distance(a, b)
			want := vek.Distance(rows[i], rows[j])
			if math.Abs(got-want) > 1e-8*want {
				t.Errorf("embedded distance (%d,%d) = %v, want %v", i, j, got, want)
			}
		}
	}

	// Projecting a training row must reproduce its embedding coordinates.
	for i := 0; i < n; i += 11 {
		got, err := proj.Project(rows[i])
		if err != nil {
			t.Fatalf("Project() error = %v, want nil", err)
		}
		emb.rowOfEmbedding(i, a)
		for c := range got {
			if math.Abs(got[c]-a[c]) > 1e-8 {
				t.Errorf("Project(row %d)[%d] = %v, embedding has %v", i, c, got[c], a[c])
			}
		}
	}
}

// TestMDSPreservesDistances tests classic scaling reproduces Euclidean
// distances of intrinsically 2D data
func TestMDSPreservesDistances(t *testing.T) {
	rows := planarTestData(40, 5)
	p := NewParameters().WithMethod(MultidimensionalScaling).WithInt(TargetDimension, 2)

	emb, _, err := EmbedDataset(rows, p)
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}

	a, b := make([]float64, 2), make([]float64, 2)
	for i := 0; i < 40; i += 5 {
		for j := i + 1; j < 40; j += 5 {
			emb.rowOfEmbedding(i, a)
			emb.rowOfEmbedding(j, b)
			got := vek.Distance(a, b)
			want := vek.Distance(rows[i], rows[j])
			if math.Abs(got-want) > 1e-6*want {
				t.Errorf("embedded distance (%d,%d) = %v, want %v", i, j, got, want)
			}
		}
	}
}

// TestIsomapUnrollsArc tests geodesic scaling recovers the ordering of points
// along a curved 1D manifold
func TestIsomapUnrollsArc(t *testing.T) {
	// Points along a quarter circle, in parameter order.
	n := 40
	rows := make([][]float64, n)
	for i := range rows {
		theta := float64(i) / float64(n-1) * math.Pi / 2
		rows[i] = []float64{5 * math.Cos(theta), 5 * math.Sin(theta)}
	}

	p := NewParameters().
		WithMethod(Isomap).
		WithInt(NumNeighbors, 4).
		WithInt(TargetDimension, 1)

	emb, _, err := EmbedDataset(rows, p)
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}

	// The single embedded coordinate must be monotone along the arc (up to
	// global sign).
	sign := 1.0
	if emb.Coordinates.At(n-1, 0) < emb.Coordinates.At(0, 0) {
		sign = -1
	}
	for i := 1; i < n; i++ {
		prev := sign * emb.Coordinates.At(i-1, 0)
		cur := sign * emb.Coordinates.At(i, 0)
		if cur <= prev {
			t.Errorf("embedded coordinate not monotone at %d: %v then %v", i, prev, cur)
		}
	}
}

// TestEmbedAllMethods is the cross-method smoke test: every method runs on a
// suitable dataset, produces the requested shape, finite coordinates, and a
// non-nil projector
func TestEmbedAllMethods(t *testing.T) {
	planar := planarTestData(60, 7)
	noisy := noisyTestData(60, 7)
	rolled := rolledTestData(60, 7)

	cases := []struct {
		method Method
		rows   [][]float64
	}{
		{KernelLocallyLinearEmbedding, rolled},
		{NeighborhoodPreservingEmbedding, noisy},
		{KernelLocalTangentSpaceAlignment, rolled},
		{LinearLocalTangentSpaceAlignment, noisy},
		{HessianLocallyLinearEmbedding, rolled},
		{LaplacianEigenmaps, rolled},
		{LocalityPreservingProjections, noisy},
		{DiffusionMap, rolled},
		{Isomap, rolled},
		{LandmarkIsomap, rolled},
		{MultidimensionalScaling, planar},
		{LandmarkMultidimensionalScaling, planar},
		{StochasticProximityEmbedding, planar},
		{PCA, planar},
		{KernelPCA, planar},
	}

	for _, tc := range cases {
		t.Run(string(tc.method), func(t *testing.T) {
			p := NewParameters().
				WithMethod(tc.method).
				WithInt(NumNeighbors, 12).
				WithInt(TargetDimension, 2).
				WithFloat(GaussianKernelWidth, 50).
				WithInt64(RandomSeed, 3)

			emb, proj, err := EmbedDataset(tc.rows, p)
			if err != nil {
				t.Fatalf("Embed(%s) error = %v, want nil", tc.method, err)
			}

			n, d := emb.Dims()
			if n != len(tc.rows) || d != 2 {
				t.Fatalf("Dims() = (%d, %d), want (%d, 2)", n, d, len(tc.rows))
			}
			for i := 0; i < n; i++ {
				for c := 0; c < d; c++ {
					v := emb.Coordinates.At(i, c)
					if math.IsNaN(v) || math.IsInf(v, 0) {
						t.Fatalf("coordinate (%d,%d) = %v", i, c, v)
					}
				}
			}
			if len(emb.Eigenvalues) != 2 {
				t.Errorf("got %d eigenvalues, want 2", len(emb.Eigenvalues))
			}
			if proj == nil {
				t.Fatalf("Embed(%s) returned nil projector", tc.method)
			}
			if _, err := proj.Project(tc.rows[0]); err != nil {
				t.Errorf("Project() error = %v, want nil", err)
			}
		})
	}
}

// TestEmbedBackendsAgree tests dense and iterative backends produce matching
// eigenvalues on the same problem
func TestEmbedBackendsAgree(t *testing.T) {
	rows := rolledTestData(50, 9)

	run := func(kind EigenKind) *Embedding {
		p := NewParameters().
			WithMethod(LaplacianEigenmaps).
			WithInt(NumNeighbors, 10).
			WithInt(TargetDimension, 2).
			WithFloat(GaussianKernelWidth, 25).
			WithEigenBackend(kind).
			WithInt(MaxIterations, 20000)
		emb, _, err := EmbedDataset(rows, p)
		if err != nil {
			t.Fatalf("Embed(%s) error = %v, want nil", kind, err)
		}
		return emb
	}

	dense := run(EigenDense)
	iter := run(EigenIterative)

	for c := range dense.Eigenvalues {
		if math.Abs(dense.Eigenvalues[c]-iter.Eigenvalues[c]) > 1e-6 {
			t.Errorf("eigenvalue %d: dense = %v, iterative = %v",
				c, dense.Eigenvalues[c], iter.Eigenvalues[c])
		}
	}
}

// TestEmbedNeighborBackendsAgree tests the two neighbor backends yield the
// same embedding
func TestEmbedNeighborBackendsAgree(t *testing.T) {
	rows := rolledTestData(50, 11)

	run := func(kind NeighborsKind) *Embedding {
		p := NewParameters().
			WithMethod(KernelLocallyLinearEmbedding).
			WithInt(NumNeighbors, 8).
			WithInt(TargetDimension, 2).
			WithNeighborsBackend(kind)
		emb, _, err := EmbedDataset(rows, p)
		if err != nil {
			t.Fatalf("Embed(%s) error = %v, want nil", kind, err)
		}
		return emb
	}

	brute := run(BruteForceNeighbors)
	cover := run(CoverTreeNeighbors)

	for i := 0; i < 50; i++ {
		for c := 0; c < 2; c++ {
			a, b := brute.Coordinates.At(i, c), cover.Coordinates.At(i, c)
			if math.Abs(a-b) > 1e-9 {
				t.Fatalf("coordinate (%d,%d): brute = %v, cover tree = %v", i, c, a, b)
			}
		}
	}
}

// TestKernelPCAProjectorConsistent tests the kernel expansion reproduces the
// training embedding
func TestKernelPCAProjectorConsistent(t *testing.T) {
	rows := planarTestData(30, 13)
	p := NewParameters().WithMethod(KernelPCA).WithInt(TargetDimension, 2)

	emb, proj, err := EmbedDataset(rows, p)
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}

	want := make([]float64, 2)
	for i := 0; i < 30; i += 7 {
		got, err := proj.Project(rows[i])
		if err != nil {
			t.Fatalf("Project() error = %v, want nil", err)
		}
		emb.rowOfEmbedding(i, want)
		for c := range got {
			if math.Abs(got[c]-want[c]) > 1e-6*(math.Abs(want[c])+1) {
				t.Errorf("Project(row %d)[%d] = %v, embedding has %v", i, c, got[c], want[c])
			}
		}
	}
}

// TestFeaturelessEmbeddingHasStubProjector tests a distance-only set still
// embeds but cannot project
func TestFeaturelessEmbeddingHasStubProjector(t *testing.T) {
	s := ObjectSet{Len: 30, Distance: indexDistance{30}}
	p := NewParameters().WithMethod(MultidimensionalScaling).WithInt(TargetDimension, 1)

	emb, proj, err := Embed(s, p)
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}
	if n, d := emb.Dims(); n != 30 || d != 1 {
		t.Fatalf("Dims() = (%d, %d), want (30, 1)", n, d)
	}
	if _, err := proj.Project([]float64{1}); !errors.Is(err, ErrProjectionUnsupported) {
		t.Errorf("Project() error = %v, want ErrProjectionUnsupported", err)
	}
}

// TestEmbedIllTypedParameterFails tests an ill-typed optional parameter stops
// the run at validation instead of silently falling back to the default
func TestEmbedIllTypedParameterFails(t *testing.T) {
	rows := rolledTestData(40, 1)
	p := NewParameters().
		WithMethod(LaplacianEigenmaps).
		WithInt(NumNeighbors, 8).
		WithInt(TargetDimension, 2).
		WithInt(GaussianKernelWidth, 7) // documented type is float

	_, _, err := EmbedDataset(rows, p)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Embed() error = %v, want ErrTypeMismatch", err)
	}
}

// TestEmbedEigenvalueOrderPerMethod tests the spectral order a method
// declares is what its embedding reports: minimization methods return
// ascending eigenvalues, variance-maximizing methods descending
func TestEmbedEigenvalueOrderPerMethod(t *testing.T) {
	rolled := rolledTestData(50, 19)

	asc, _, err := EmbedDataset(rolled, NewParameters().
		WithMethod(LaplacianEigenmaps).
		WithInt(NumNeighbors, 10).
		WithInt(TargetDimension, 2).
		WithFloat(GaussianKernelWidth, 25))
	if err != nil {
		t.Fatalf("Embed(laplacian) error = %v, want nil", err)
	}
	if asc.Eigenvalues[0] > asc.Eigenvalues[1] {
		t.Errorf("laplacian eigenvalues = %v, want ascending", asc.Eigenvalues)
	}

	desc, _, err := EmbedDataset(rolled, NewParameters().
		WithMethod(MultidimensionalScaling).
		WithInt(TargetDimension, 2))
	if err != nil {
		t.Fatalf("Embed(mds) error = %v, want nil", err)
	}
	if desc.Eigenvalues[0] < desc.Eigenvalues[1] {
		t.Errorf("mds eigenvalues = %v, want descending", desc.Eigenvalues)
	}
}

// TestIsomapUnrollsSwissRoll tests end-to-end recovery of the swiss roll's
// flat chart: distances in the 2D embedding must rank-correlate with
// distances in the true (arclength, height) chart
func TestIsomapUnrollsSwissRoll(t *testing.T) {
	rows, chart := swissRollData(600, 7)
	p := NewParameters().
		WithMethod(Isomap).
		WithInt(NumNeighbors, 8).
		WithInt(TargetDimension, 2)

	emb, _, err := EmbedDataset(rows, p)
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}

	n := len(rows)
	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = make([]float64, 2)
		emb.rowOfEmbedding(i, coords[i])
	}
	dChart := make([]float64, 0, n*(n-1)/2)
	dEmb := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dChart = append(dChart, vek.Distance(chart[i], chart[j]))
			dEmb = append(dEmb, vek.Distance(coords[i], coords[j]))
		}
	}

	if rho := spearman(dChart, dEmb); rho < 0.95 {
		t.Errorf("rank correlation with the flat chart = %v, want >= 0.95", rho)
	}
}

// TestLLEPreservesSwissRollNeighborhoods tests the locally linear embedding
// keeps swiss-roll chart neighborhoods together: each point's nearest
// embedded neighbors must overlap its nearest chart neighbors far beyond
// chance
func TestLLEPreservesSwissRollNeighborhoods(t *testing.T) {
	rows, chart := swissRollData(600, 7)
	p := NewParameters().
		WithMethod(KernelLocallyLinearEmbedding).
		WithInt(NumNeighbors, 10).
		WithInt(TargetDimension, 2).
		WithFloat(EigenShift, 1e-3)

	emb, _, err := EmbedDataset(rows, p)
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}

	n := len(rows)
	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = make([]float64, 2)
		emb.rowOfEmbedding(i, coords[i])
	}
	// Compare neighborhoods after per-column standardization so an axis-wise
	// rescaling of either chart cannot skew them.
	standardize(chart)
	standardize(coords)

	const k = 10
	var overlap float64
	for i := 0; i < n; i++ {
		inChart := nearestSet(chart, i, k)
		common := 0
		for j := range nearestSet(coords, i, k) {
			if inChart[j] {
				common++
			}
		}
		overlap += float64(common) / k
	}
	overlap /= float64(n)

	// Chance overlap at this size is k/(n-1), about 0.017.
	if overlap < 0.3 {
		t.Errorf("mean neighborhood overlap = %v, want >= 0.3", overlap)
	}
}

// TestEmbedDeterministic tests a fixed configuration reproduces its output
func TestEmbedDeterministic(t *testing.T) {
	rows := rolledTestData(40, 17)
	p := NewParameters().
		WithMethod(StochasticProximityEmbedding).
		WithInt(TargetDimension, 2).
		WithInt(MaxIterations, 200).
		WithInt64(RandomSeed, 5)

	first, _, err := EmbedDataset(rows, p)
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}
	second, _, err := EmbedDataset(rows, p)
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}

	for i := 0; i < 40; i++ {
		for c := 0; c < 2; c++ {
			if first.Coordinates.At(i, c) != second.Coordinates.At(i, c) {
				t.Fatalf("run differs at (%d,%d)", i, c)
			}
		}
	}
}

package manifold

import (
	"errors"
	"fmt"
	"math"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

// ErrProjectionUnsupported is returned by Project when the pipeline could not
// bind an out-of-sample projector, which happens only when the object set
// exposes no feature vectors to relate a new input to the training data.
var ErrProjectionUnsupported = errors.New("out-of-sample projection needs a feature callback")

// Projector maps a previously-unseen input vector into an already-computed
// embedding space without rerunning the pipeline. Implementations capture
// everything they need at construction time and hold no mutable state, so
// repeated and concurrent Project calls are safe and return identical output
// for identical input.
type Projector interface {
	// Project maps one input vector to its low-dimensional coordinates.
	Project(v []float64) ([]float64, error)
}

// Compile-time checks for the projector implementations.
var (
	_ Projector = (*linearProjector)(nil)
	_ Projector = (*kernelProjector)(nil)
	_ Projector = (*localProjector)(nil)
	_ Projector = (*unsupportedProjector)(nil)
)

// ============================================================================
// LINEAR PROJECTOR
// ============================================================================

// linearProjector projects by centered basis expansion: the linear methods
// (PCA, LPP, NPE, linear LTSA) all end with an explicit basis in feature
// space, so projecting is subtract-mean then dot.
type linearProjector struct {
	mean  []float64   // feature-space mean, len dim
	basis [][]float64 // one basis vector per output dimension, each len dim
}

func (p *linearProjector) Project(v []float64) ([]float64, error) {
	if len(v) != len(p.mean) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), len(p.mean))
	}
	centered := make([]float64, len(v))
	for i := range v {
		centered[i] = v[i] - p.mean[i]
	}
	out := make([]float64, len(p.basis))
	for c, b := range p.basis {
		out[c] = vek.Dot(b, centered)
	}
	return out, nil
}

// newLinearProjector captures the feature mean and the basis columns of a
// linear method's eigenvector matrix (dim x target).
func newLinearProjector(mean []float64, basis *mat.Dense) *linearProjector {
	dim, target := basis.Dims()
	cols := make([][]float64, target)
	for c := 0; c < target; c++ {
		col := make([]float64, dim)
		for i := 0; i < dim; i++ {
			col[i] = basis.At(i, c)
		}
		cols[c] = col
	}
	m := make([]float64, len(mean))
	copy(m, mean)
	return &linearProjector{mean: m, basis: cols}
}

// ============================================================================
// KERNEL PROJECTOR
// ============================================================================

// kernelProjector projects by centered kernel expansion against the training
// points, the Kernel PCA out-of-sample formula. It evaluates the linear
// kernel on raw feature vectors; training used the same kernel through the
// dataset callback, so projected training points reproduce their embedding
// coordinates up to roundoff.
type kernelProjector struct {
	train     [][]float64 // training feature rows
	coeffs    [][]float64 // per output dimension: v_c / sqrt(lambda_c), len n
	rowMeans  []float64   // row means of the training kernel matrix
	totalMean float64     // grand mean of the training kernel matrix
}

func (p *kernelProjector) Project(v []float64) ([]float64, error) {
	if len(p.train) == 0 {
		return nil, ErrProjectionUnsupported
	}
	if len(v) != len(p.train[0]) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), len(p.train[0]))
	}

	n := len(p.train)
	k := make([]float64, n)
	var kMean float64
	for i, row := range p.train {
		k[i] = vek.Dot(v, row)
		kMean += k[i]
	}
	kMean /= float64(n)

	// Center against the training kernel statistics.
	for i := range k {
		k[i] += p.totalMean - kMean - p.rowMeans[i]
	}

	out := make([]float64, len(p.coeffs))
	for c, coeff := range p.coeffs {
		out[c] = vek.Dot(coeff, k)
	}
	return out, nil
}

// ============================================================================
// LOCAL PROJECTOR
// ============================================================================

// localProjector handles every nonlinear method: it reconstructs the new
// point from its k nearest training points in feature space, then carries
// the reconstruction weights over to the embedded coordinates. This is the
// standard locally-linear out-of-sample extension and needs nothing from the
// method beyond the final embedding.
type localProjector struct {
	train     [][]float64 // training feature rows
	embedding [][]float64 // embedded coordinate rows
	k         int
	shift     float64 // Gram regularization for degenerate neighborhoods
}

func (p *localProjector) Project(v []float64) ([]float64, error) {
	if len(p.train) == 0 {
		return nil, ErrProjectionUnsupported
	}
	if len(v) != len(p.train[0]) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), len(p.train[0]))
	}

	h := &boundedMaxHeap{k: p.k, items: make([]neighborCandidate, 0, p.k)}
	for i, row := range p.train {
		h.offer(neighborCandidate{index: i, dist: vek.Distance(v, row)})
	}
	nbrs := h.sorted()

	w := reconstructionWeights(v, p.train, nbrs, p.shift)

	target := len(p.embedding[0])
	out := make([]float64, target)
	for a, nb := range nbrs {
		y := p.embedding[nb.index]
		for c := 0; c < target; c++ {
			out[c] += w[a] * y[c]
		}
	}
	return out, nil
}

// reconstructionWeights solves the constrained least-squares problem for the
// weights reconstructing v from its neighbors: G w = 1 with the local Gram
// matrix G of centered neighbor differences, regularized by shift * trace,
// then normalized to sum one.
func reconstructionWeights(v []float64, train [][]float64, nbrs []neighborCandidate, shift float64) []float64 {
	k := len(nbrs)
	dim := len(v)

	diffs := make([][]float64, k)
	for a, nb := range nbrs {
		d := make([]float64, dim)
		row := train[nb.index]
		for i := 0; i < dim; i++ {
			d[i] = v[i] - row[i]
		}
		diffs[a] = d
	}

	g := mat.NewSymDense(k, nil)
	var trace float64
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			val := vek.Dot(diffs[a], diffs[b])
			g.SetSym(a, b, val)
			if a == b {
				trace += val
			}
		}
	}
	reg := shift * trace
	if reg <= 0 {
		reg = shift
	}
	for a := 0; a < k; a++ {
		g.SetSym(a, a, g.At(a, a)+reg)
	}

	ones := mat.NewVecDense(k, nil)
	for a := 0; a < k; a++ {
		ones.SetVec(a, 1)
	}
	var w mat.VecDense
	if err := w.SolveVec(g, ones); err != nil {
		// Fully degenerate neighborhood: fall back to uniform weights.
		out := make([]float64, k)
		for a := range out {
			out[a] = 1 / float64(k)
		}
		return out
	}

	out := make([]float64, k)
	var sum float64
	for a := 0; a < k; a++ {
		out[a] = w.AtVec(a)
		sum += out[a]
	}
	if math.Abs(sum) < 1e-15 {
		for a := range out {
			out[a] = 1 / float64(k)
		}
		return out
	}
	for a := range out {
		out[a] /= sum
	}
	return out
}

// ============================================================================
// UNSUPPORTED PROJECTOR
// ============================================================================

// unsupportedProjector is bound when the object set has no feature callback:
// the embedding is still produced, but new points cannot be related to the
// training data, so every Project call reports that explicitly.
type unsupportedProjector struct{}

func (unsupportedProjector) Project([]float64) ([]float64, error) {
	return nil, ErrProjectionUnsupported
}

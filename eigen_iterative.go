package manifold

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

// iterativeConvergenceTol is the relative residual threshold below which a
// Ritz pair counts as converged.
const iterativeConvergenceTol = 1e-9

// scaledOperator folds a diagonal right-hand operator into the left one:
// it applies D^-1/2 A D^-1/2 without materializing anything. The scratch
// buffer is allocated once so Apply stays allocation-free.
type scaledOperator struct {
	inner   linearOperator
	invSqrt []float64
	tmp     []float64
}

var _ linearOperator = (*scaledOperator)(nil)

func newScaledOperator(inner linearOperator, diag []float64) *scaledOperator {
	n := inner.Dim()
	invSqrt := make([]float64, n)
	for i, d := range diag {
		if d > 0 {
			invSqrt[i] = 1 / math.Sqrt(d)
		} else {
			invSqrt[i] = 1
		}
	}
	return &scaledOperator{inner: inner, invSqrt: invSqrt, tmp: make([]float64, n)}
}

func (s *scaledOperator) Dim() int { return s.inner.Dim() }

func (s *scaledOperator) Apply(dst, x []float64) {
	guard := beginNoAlloc()
	for i := range x {
		s.tmp[i] = x[i] * s.invSqrt[i]
	}
	guard.end()
	s.inner.Apply(dst, s.tmp)
	guard = beginNoAlloc()
	for i := range dst {
		dst[i] *= s.invSqrt[i]
	}
	guard.end()
}

func (s *scaledOperator) ToSym() *mat.SymDense {
	n := s.inner.Dim()
	a := s.inner.ToSym()
	c := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c.SetSym(i, j, a.At(i, j)*s.invSqrt[i]*s.invSqrt[j])
		}
	}
	return c
}

// NormBound is the Gershgorin bound over the scaled entries. Materializing
// the operator keeps the bound tight when the diagonal scales vary by orders
// of magnitude; it runs once per solve, outside the iteration loop.
func (s *scaledOperator) NormBound() float64 {
	n := s.inner.Dim()
	a := s.inner.ToSym()
	var bound float64
	for i := 0; i < n; i++ {
		var row float64
		for j := 0; j < n; j++ {
			row += abs(a.At(i, j) * s.invSqrt[i] * s.invSqrt[j])
		}
		if row > bound {
			bound = row
		}
	}
	return bound
}

// backTransform undoes the D^-1/2 folding on converged eigenvectors.
func (s *scaledOperator) backTransform(y *mat.Dense) (*mat.Dense, error) {
	r, c := y.Dims()
	v := mat.NewDense(r, c, nil)
	for col := 0; col < c; col++ {
		for row := 0; row < r; row++ {
			v.Set(row, col, y.At(row, col)*s.invSqrt[row])
		}
	}
	return v, nil
}

// iterativeEigen computes extremal eigenpairs by block subspace iteration
// with Rayleigh-Ritz extraction. Each sweep multiplies the block by the
// operator, orthonormalizes, and extracts Ritz pairs; smallest-end requests
// iterate on the spectrum flip cI - A with c the Gershgorin bound, so only
// matrix-vector products are ever needed. Fails with ErrNoConvergence after
// maxIter sweeps.
func iterativeEigen(prob eigenProblem, want int, largest bool, maxIter int, seed int64) (eigenPairs, error) {
	op := prob.a
	var back func(*mat.Dense) (*mat.Dense, error)

	switch {
	case prob.bDiag != nil:
		sc := newScaledOperator(op, prob.bDiag)
		op, back = sc, sc.backTransform
	case prob.b != nil:
		n := op.Dim()
		c, bt, err := foldCholesky(op.ToSym(), n, prob.b)
		if err != nil {
			return eigenPairs{}, err
		}
		op, back = newDenseOperator(n, c), bt
	}

	n := op.Dim()
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	// Flip the spectrum for smallest-end requests: the largest eigenvalues of
	// cI - A are the smallest of A, and c >= lambda_max keeps the flip PSD.
	shift := 0.0
	if !largest {
		shift = op.NormBound()
	}
	apply := func(dst, x []float64) {
		op.Apply(dst, x)
		if !largest {
			guard := beginNoAlloc()
			for i := range dst {
				dst[i] = shift*x[i] - dst[i]
			}
			guard.end()
		}
	}

	block := want + 4
	if block > n {
		block = n
	}

	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, block)
	ax := make([][]float64, block)
	for c := range x {
		x[c] = make([]float64, n)
		ax[c] = make([]float64, n)
		for i := range x[c] {
			x[c][i] = rng.NormFloat64()
		}
	}
	orthonormalizeColumns(x, rng)

	for iter := 0; iter < maxIter; iter++ {
		for c := range x {
			apply(ax[c], x[c])
		}

		// Rayleigh-Ritz on the current block: T = X^T (op) X.
		t := mat.NewSymDense(block, nil)
		for i := 0; i < block; i++ {
			for j := i; j < block; j++ {
				t.SetSym(i, j, 0.5*(vek.Dot(x[i], ax[j])+vek.Dot(x[j], ax[i])))
			}
		}
		var es mat.EigenSym
		if !es.Factorize(t, true) {
			return eigenPairs{}, fmt.Errorf("%w: Rayleigh-Ritz factorization failed", ErrNoConvergence)
		}
		theta := es.Values(nil)
		var u mat.Dense
		es.VectorsTo(&u)

		// Rotate the block into Ritz vectors, keeping the operator images in
		// sync so residuals come for free.
		rx := rotateColumns(x, &u)
		rax := rotateColumns(ax, &u)

		// The wanted Ritz pairs sit at the top of the (flipped) spectrum.
		converged := true
		for c := block - want; c < block; c++ {
			res := 0.0
			for i := 0; i < n; i++ {
				d := rax[c][i] - theta[c]*rx[c][i]
				res += d * d
			}
			scale := math.Abs(theta[c])
			if scale < 1 {
				scale = 1
			}
			if math.Sqrt(res) > iterativeConvergenceTol*scale {
				converged = false
				break
			}
		}

		if converged {
			return assembleRitzPairs(rx, theta, n, block, want, largest, shift, back)
		}

		// Power step: advance the subspace with the operator images.
		for c := range x {
			copy(x[c], rax[c])
		}
		orthonormalizeColumns(x, rng)
	}

	return eigenPairs{}, fmt.Errorf("%w: %d subspace sweeps", ErrNoConvergence, maxIter)
}

// assembleRitzPairs maps converged Ritz pairs of the (possibly flipped)
// operator back to eigenpairs of A, sorted ascending by eigenvalue.
func assembleRitzPairs(rx [][]float64, theta []float64, n, block, want int, largest bool, shift float64, back func(*mat.Dense) (*mat.Dense, error)) (eigenPairs, error) {
	type pair struct {
		value float64
		col   int
	}
	pairs := make([]pair, 0, want)
	for c := block - want; c < block; c++ {
		v := theta[c]
		if !largest {
			v = shift - v
		}
		pairs = append(pairs, pair{value: v, col: c})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })

	values := make([]float64, want)
	vectors := mat.NewDense(n, want, nil)
	for idx, p := range pairs {
		values[idx] = p.value
		for i := 0; i < n; i++ {
			vectors.Set(i, idx, rx[p.col][i])
		}
	}

	if back != nil {
		restored, err := back(vectors)
		if err != nil {
			return eigenPairs{}, err
		}
		vectors = restored
	}
	return eigenPairs{values: values, vectors: vectors}, nil
}

// rotateColumns returns X * U for column-slice X and dense U.
func rotateColumns(x [][]float64, u *mat.Dense) [][]float64 {
	block := len(x)
	n := len(x[0])
	out := make([][]float64, block)
	for c := 0; c < block; c++ {
		col := make([]float64, n)
		for s := 0; s < block; s++ {
			w := u.At(s, c)
			if w == 0 {
				continue
			}
			src := x[s]
			for i := 0; i < n; i++ {
				col[i] += w * src[i]
			}
		}
		out[c] = col
	}
	return out
}

// orthonormalizeColumns runs modified Gram-Schmidt over the column slice in
// place. Columns that collapse numerically are refilled from the RNG and
// re-orthogonalized so the block always keeps full rank.
func orthonormalizeColumns(x [][]float64, rng *rand.Rand) {
	for c := 0; c < len(x); c++ {
		for attempt := 0; ; attempt++ {
			for p := 0; p < c; p++ {
				proj := vek.Dot(x[p], x[c])
				for i := range x[c] {
					x[c][i] -= proj * x[p][i]
				}
			}
			norm := math.Sqrt(vek.Dot(x[c], x[c]))
			if norm > 1e-12 {
				inv := 1 / norm
				for i := range x[c] {
					x[c][i] *= inv
				}
				break
			}
			if attempt > 3 {
				// Degenerate beyond repair; leave a unit basis vector.
				for i := range x[c] {
					x[c][i] = 0
				}
				x[c][c%len(x[c])] = 1
				break
			}
			for i := range x[c] {
				x[c][i] = rng.NormFloat64()
			}
		}
	}
}

package manifold

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrUnsupportedProblem is returned when a backend cannot handle the problem
// shape it was given (e.g. the randomized backend on a generalized problem).
var ErrUnsupportedProblem = errors.New("eigensolver backend does not support this problem")

// ErrNoConvergence is returned when an iterative backend exhausts its
// iteration budget before the requested eigenpairs converge.
var ErrNoConvergence = errors.New("eigensolver did not converge within the iteration budget")

// eigenProblem describes a symmetric eigenproblem A v = lambda v, or the
// generalized form A v = lambda B v when b or bDiag is set. bDiag is the
// common special case of a diagonal B (the degree matrix of a Laplacian),
// which every backend can fold into the operator cheaply.
type eigenProblem struct {
	a     linearOperator
	b     *mat.SymDense // dense right-hand operator, nil for standard problems
	bDiag []float64     // diagonal right-hand operator, nil if unused
}

// generalized reports whether the problem has a right-hand operator.
func (p eigenProblem) generalized() bool {
	return p.b != nil || p.bDiag != nil
}

// eigenPairs is raw backend output: len(values) eigenvalues in ascending
// order with vectors as the matching columns. Backends return the requested
// extremal pairs only; the embedding assembler applies the method's final
// ordering so backends stay interchangeable.
type eigenPairs struct {
	values  []float64
	vectors *mat.Dense
}

// solveEigen computes the `want` extremal eigenpairs of the problem at the
// chosen end of the spectrum using the selected backend. seed makes the
// stochastic backends reproducible; maxIter bounds the iterative one.
func solveEigen(prob eigenProblem, want int, largest bool, kind EigenKind, maxIter int, seed int64) (eigenPairs, error) {
	n := prob.a.Dim()
	if want < 1 || want > n {
		return eigenPairs{}, fmt.Errorf("%w: %d eigenpairs requested from a %d-dimensional operator", ErrInsufficientData, want, n)
	}

	switch kind {
	case EigenDense:
		return denseEigen(prob, want, largest)
	case EigenIterative:
		return iterativeEigen(prob, want, largest, maxIter, seed)
	case EigenRandomized:
		if prob.generalized() {
			return eigenPairs{}, fmt.Errorf("%w: randomized backend cannot solve generalized problems", ErrUnsupportedProblem)
		}
		return randomizedEigen(prob.a, want, largest, seed)
	default:
		return eigenPairs{}, fmt.Errorf("%w: %q", ErrUnknownEigenKind, kind)
	}
}

// ============================================================================
// DENSE SELF-ADJOINT BACKEND
// ============================================================================

// denseEigen materializes the operator and computes the full spectrum with
// gonum's self-adjoint solver, then slices out the requested extremal pairs.
// Exact and allocation-heavy; the reference backend.
func denseEigen(prob eigenProblem, want int, largest bool) (eigenPairs, error) {
	a := prob.a.ToSym()
	n := prob.a.Dim()

	var back func(vecs *mat.Dense) (*mat.Dense, error)
	switch {
	case prob.bDiag != nil:
		a, back = foldDiagonal(a, n, prob.bDiag)
	case prob.b != nil:
		var err error
		a, back, err = foldCholesky(a, n, prob.b)
		if err != nil {
			return eigenPairs{}, err
		}
	}

	var es mat.EigenSym
	if !es.Factorize(a, true) {
		return eigenPairs{}, fmt.Errorf("%w: dense factorization failed", ErrNoConvergence)
	}
	all := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	lo := 0
	if largest {
		lo = n - want
	}

	values := make([]float64, want)
	copy(values, all[lo:lo+want])
	picked := mat.NewDense(n, want, nil)
	for c := 0; c < want; c++ {
		for r := 0; r < n; r++ {
			picked.Set(r, c, vecs.At(r, lo+c))
		}
	}

	if back != nil {
		restored, err := back(picked)
		if err != nil {
			return eigenPairs{}, err
		}
		picked = restored
	}
	return eigenPairs{values: values, vectors: picked}, nil
}

// foldDiagonal reduces A v = lambda D v with diagonal D to the standard
// problem C y = lambda y with C = D^-1/2 A D^-1/2, returning C and the
// back-transform v = D^-1/2 y. Zero degrees (isolated graph nodes) are
// treated as unit entries so the reduction stays defined.
func foldDiagonal(a *mat.SymDense, n int, diag []float64) (*mat.SymDense, func(*mat.Dense) (*mat.Dense, error)) {
	invSqrt := make([]float64, n)
	for i, d := range diag {
		if d > 0 {
			invSqrt[i] = 1 / math.Sqrt(d)
		} else {
			invSqrt[i] = 1
		}
	}

	c := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c.SetSym(i, j, a.At(i, j)*invSqrt[i]*invSqrt[j])
		}
	}

	back := func(y *mat.Dense) (*mat.Dense, error) {
		_, cols := y.Dims()
		v := mat.NewDense(n, cols, nil)
		for col := 0; col < cols; col++ {
			for r := 0; r < n; r++ {
				v.Set(r, col, y.At(r, col)*invSqrt[r])
			}
		}
		return v, nil
	}
	return c, back
}

// foldCholesky reduces A v = lambda B v with dense SPD B to the standard
// problem C y = lambda y with C = L^-1 A L^-T where B = L L^T, returning C
// and the back-transform solving L^T v = y. A non-positive-definite B is
// retried once with diagonal jitter before being rejected.
func foldCholesky(a *mat.SymDense, n int, b *mat.SymDense) (*mat.SymDense, func(*mat.Dense) (*mat.Dense, error), error) {
	var ch mat.Cholesky
	if !ch.Factorize(b) {
		jittered := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				jittered.SetSym(i, j, b.At(i, j))
			}
			jittered.SetSym(i, i, b.At(i, i)+1e-9)
		}
		if !ch.Factorize(jittered) {
			return nil, nil, fmt.Errorf("%w: generalized right-hand operator is not positive definite", ErrUnsupportedProblem)
		}
	}

	var l mat.TriDense
	ch.LTo(&l)

	var ad mat.Dense
	ad.CloneFrom(a)

	// X = L^-1 A, then C = (L^-1 X^T)^T = L^-1 A L^-T.
	var x mat.Dense
	if err := x.Solve(&l, &ad); err != nil {
		return nil, nil, fmt.Errorf("%w: triangular solve failed: %v", ErrUnsupportedProblem, err)
	}
	var z mat.Dense
	if err := z.Solve(&l, x.T()); err != nil {
		return nil, nil, fmt.Errorf("%w: triangular solve failed: %v", ErrUnsupportedProblem, err)
	}

	c := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			// Symmetrize against roundoff from the two solves.
			c.SetSym(i, j, 0.5*(z.At(i, j)+z.At(j, i)))
		}
	}

	back := func(y *mat.Dense) (*mat.Dense, error) {
		var v mat.Dense
		if err := v.Solve(l.T(), y); err != nil {
			return nil, fmt.Errorf("%w: back-transform solve failed: %v", ErrUnsupportedProblem, err)
		}
		out := mat.NewDense(n, colsOf(&v), nil)
		out.Copy(&v)
		return out, nil
	}
	return c, back, nil
}

func colsOf(m mat.Matrix) int {
	_, c := m.Dims()
	return c
}

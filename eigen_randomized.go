package manifold

import (
	"fmt"
	"math/rand"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

// randomizedOversampling is how many extra random probe columns the range
// finder carries beyond the requested eigenpair count.
const randomizedOversampling = 8

// randomizedPowerPasses is the number of subspace power passes applied to
// the probe block. Two passes sharpen the captured range considerably for
// slowly decaying spectra at modest cost.
const randomizedPowerPasses = 2

// randomizedEigen approximates extremal eigenpairs by randomized range
// finding: probe the operator with a Gaussian block, power-iterate it into
// the dominant range, then solve the small projected problem exactly.
// Standard symmetric problems only; callers reject generalized problems
// before getting here. Smallest-end requests run on the spectrum flip
// cI - A, same as the iterative backend.
func randomizedEigen(op linearOperator, want int, largest bool, seed int64) (eigenPairs, error) {
	n := op.Dim()
	block := want + randomizedOversampling
	if block > n {
		block = n
	}

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

	rng := rand.New(rand.NewSource(seed))
	y := make([][]float64, block)
	tmp := make([][]float64, block)
	for c := range y {
		y[c] = make([]float64, n)
		tmp[c] = make([]float64, n)
		for i := range y[c] {
			y[c][i] = rng.NormFloat64()
		}
	}
	orthonormalizeColumns(y, rng)

	for pass := 0; pass < randomizedPowerPasses; pass++ {
		for c := range y {
			apply(tmp[c], y[c])
		}
		y, tmp = tmp, y
		orthonormalizeColumns(y, rng)
	}

	// Projected problem T = Q^T (op) Q on the captured range.
	for c := range y {
		apply(tmp[c], y[c])
	}
	t := mat.NewSymDense(block, nil)
	for i := 0; i < block; i++ {
		for j := i; j < block; j++ {
			t.SetSym(i, j, 0.5*(vek.Dot(y[i], tmp[j])+vek.Dot(y[j], tmp[i])))
		}
	}

	var es mat.EigenSym
	if !es.Factorize(t, true) {
		return eigenPairs{}, fmt.Errorf("%w: projected factorization failed", ErrNoConvergence)
	}
	theta := es.Values(nil)
	var u mat.Dense
	es.VectorsTo(&u)

	ry := rotateColumns(y, &u)
	return assembleRitzPairs(ry, theta, n, block, want, largest, shift, nil)
}

package manifold

import (
	"fmt"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

// quadraticForm computes X^T M X for centered feature columns and a symmetric
// operator given by apply (dst = M x). Passing nil for apply computes X^T X.
// This is the contraction every linear method variant (NPE, LPP, linear LTSA)
// uses to pull its n x n graph operator down to feature space.
func quadraticForm(cols [][]float64, apply func(dst, x []float64)) *mat.SymDense {
	dim := len(cols)
	n := len(cols[0])

	a := mat.NewSymDense(dim, nil)
	tmp := make([]float64, n)
	for p := 0; p < dim; p++ {
		if apply != nil {
			apply(tmp, cols[p])
		} else {
			copy(tmp, cols[p])
		}
		for q := p; q < dim; q++ {
			a.SetSym(p, q, vek.Dot(cols[q], tmp))
		}
	}
	return a
}

// diagonalForm computes X^T diag(d) X for centered feature columns.
func diagonalForm(cols [][]float64, d []float64) *mat.SymDense {
	dim := len(cols)
	n := len(cols[0])

	a := mat.NewSymDense(dim, nil)
	tmp := make([]float64, n)
	for p := 0; p < dim; p++ {
		for i := 0; i < n; i++ {
			tmp[i] = cols[p][i] * d[i]
		}
		for q := p; q < dim; q++ {
			a.SetSym(p, q, vek.Dot(cols[q], tmp))
		}
	}
	return a
}

// solveLinearMethod handles the shared tail of every linear method: solve the
// feature-space generalized problem A a = lambda B a at the end of the
// spectrum the method's requirements row declares, run the result through the
// embedding assembler (whose rows are basis components here, not object
// coordinates), then map the centered features through the selected basis.
// Returns the embedding and the linear projector bound to the same basis.
func solveLinearMethod(a, b *mat.SymDense, rows [][]float64, mean []float64, cfg runConfig) (*Embedding, Projector, error) {
	dim := len(mean)
	if cfg.target > dim {
		return nil, nil, fmt.Errorf("%w: target dimension %d exceeds feature dimension %d", ErrInsufficientData, cfg.target, dim)
	}

	prob := eigenProblem{a: newDenseOperator(dim, a), b: b}
	pairs, err := solveEigen(prob, cfg.target+cfg.traits.skipTrivial, cfg.traits.wantsLargest(), cfg.eigenKind, cfg.maxIter, cfg.seed)
	if err != nil {
		return nil, nil, err
	}

	basisEmb, err := assembleEmbedding(pairs, cfg.target, cfg.traits.skipTrivial, cfg.traits.order, nil)
	if err != nil {
		return nil, nil, err
	}

	proj := newLinearProjector(mean, basisEmb.Coordinates)

	n := len(rows)
	coords := mat.NewDense(n, cfg.target, nil)
	centered := make([]float64, dim)
	for i, r := range rows {
		for p := 0; p < dim; p++ {
			centered[p] = r[p] - mean[p]
		}
		for c := range proj.basis {
			coords.Set(i, c, vek.Dot(proj.basis[c], centered))
		}
	}

	emb := &Embedding{Coordinates: coords, Eigenvalues: basisEmb.Eigenvalues}
	return emb, proj, nil
}

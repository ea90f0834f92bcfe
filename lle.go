package manifold

import (
	"gonum.org/v1/gonum/mat"
)

// buildReconstructionMatrix assembles the sparse LLE alignment operator
// M = (I - W)^T (I - W), where row i of W holds the weights reconstructing
// object i from its neighbors in kernel space.
//
// The weights solve the local Gram system G w = 1 with
//
//	G_ab = k(n_a, n_b) - k(i, n_a) - k(i, n_b) + k(i, i)
//
// regularized by shift * trace(G) against collinear neighborhoods, then
// normalized to sum one. Each object contributes the rank-one expansion of
// (e_i - w)(e_i - w)^T as triplets; compaction sums overlaps.
func buildReconstructionMatrix(s ObjectSet, nbrs Neighbors, shift float64) *CSRMatrix {
	n := s.Len
	kern := s.Kernel

	var ts []Triplet
	for i, list := range nbrs {
		k := len(list)
		g := mat.NewSymDense(k, nil)
		kii := kern.Kernel(i, i)
		var trace float64
		for a := 0; a < k; a++ {
			kia := kern.Kernel(i, list[a])
			for b := a; b < k; b++ {
				val := kern.Kernel(list[a], list[b]) - kia - kern.Kernel(i, list[b]) + kii
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

		w := solveUnitRowSum(g, k)

		ts = append(ts, Triplet{Row: i, Col: i, Value: 1})
		for a := 0; a < k; a++ {
			ts = append(ts,
				Triplet{Row: i, Col: list[a], Value: -w[a]},
				Triplet{Row: list[a], Col: i, Value: -w[a]},
			)
			for b := 0; b < k; b++ {
				ts = append(ts, Triplet{Row: list[a], Col: list[b], Value: w[a] * w[b]})
			}
		}
	}

	return compactTriplets(n, ts)
}

// solveUnitRowSum solves G w = 1 and normalizes w to sum one, falling back to
// uniform weights when the system is singular beyond the regularization.
func solveUnitRowSum(g *mat.SymDense, k int) []float64 {
	ones := mat.NewVecDense(k, nil)
	for a := 0; a < k; a++ {
		ones.SetVec(a, 1)
	}

	w := make([]float64, k)
	var sol mat.VecDense
	if err := sol.SolveVec(g, ones); err != nil {
		for a := range w {
			w[a] = 1 / float64(k)
		}
		return w
	}

	var sum float64
	for a := 0; a < k; a++ {
		w[a] = sol.AtVec(a)
		sum += w[a]
	}
	if sum == 0 {
		for a := range w {
			w[a] = 1 / float64(k)
		}
		return w
	}
	for a := range w {
		w[a] /= sum
	}
	return w
}

// embedKLLE runs (kernel) Locally Linear Embedding: smallest eigenvectors of
// the reconstruction operator, discarding the constant null vector.
func embedKLLE(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	m := buildReconstructionMatrix(s, nbrs, cfg.shift)

	pairs, err := solveEigen(eigenProblem{a: m}, cfg.target+cfg.traits.skipTrivial, cfg.traits.wantsLargest(), cfg.eigenKind, cfg.maxIter, cfg.seed)
	if err != nil {
		return nil, nil, err
	}
	emb, err := assembleEmbedding(pairs, cfg.target, cfg.traits.skipTrivial, cfg.traits.order, nil)
	if err != nil {
		return nil, nil, err
	}
	return emb, nil, nil
}

// embedNPE runs Neighborhood Preserving Embedding, the linear variant of
// LLE: the reconstruction operator is contracted to feature space and solved
// as the generalized problem X^T M X a = lambda X^T X a.
func embedNPE(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	m := buildReconstructionMatrix(s, nbrs, cfg.shift)

	rows := featureRows(s.Features, s.Len)
	mean := meanVector(rows)
	cols := columnsOf(centeredRows(rows, mean))

	a := quadraticForm(cols, m.Apply)
	b := quadraticForm(cols, nil)
	return solveLinearMethod(a, b, rows, mean, cfg)
}

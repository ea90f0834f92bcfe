package manifold

import (
	"math"
)

// hessianMinNeighbors returns the smallest neighborhood that can support the
// Hessian estimator for a given target dimension: the constant term, d
// linear terms and d(d+1)/2 quadratic terms must all fit.
func hessianMinNeighbors(d int) int {
	return d * (d + 3) / 2
}

// buildHessianMatrix assembles the Hessian LLE operator. Per neighborhood:
// tangent coordinates from the centered local Gram, a design matrix of
// [constant | linear | quadratic] terms in those coordinates, Gram-Schmidt
// orthonormalization, and the quadratic block's outer product accumulated
// into the global operator. Minimizing against it favors embeddings with
// vanishing local Hessian, i.e. locally flat coordinates.
func buildHessianMatrix(s ObjectSet, nbrs Neighbors, d int) *CSRMatrix {
	n := s.Len
	nq := d * (d + 1) / 2

	var ts []Triplet
	for _, list := range nbrs {
		k := len(list)
		basis, values := localTangentBasis(s, list, d)
		if basis == nil {
			continue
		}

		// Tangent coordinates: eigenvectors scaled by sqrt(eigenvalue).
		coords := make([][]float64, k)
		for a := 0; a < k; a++ {
			row := make([]float64, d)
			for c := 0; c < d; c++ {
				scale := values[c]
				if scale < 0 {
					scale = 0
				}
				row[c] = basis.At(a, c) * math.Sqrt(scale)
			}
			coords[a] = row
		}

		// Design matrix columns: 1, the d coordinates, then the d(d+1)/2
		// products coord_p * coord_q for p <= q.
		ncols := 1 + d + nq
		design := make([][]float64, ncols)
		for c := range design {
			design[c] = make([]float64, k)
		}
		for a := 0; a < k; a++ {
			design[0][a] = 1
			for c := 0; c < d; c++ {
				design[1+c][a] = coords[a][c]
			}
			idx := 1 + d
			for p := 0; p < d; p++ {
				for q := p; q < d; q++ {
					design[idx][a] = coords[a][p] * coords[a][q]
					idx++
				}
			}
		}

		gramSchmidt(design)

		// The orthonormalized quadratic block, transposed, is the local
		// Hessian estimator; accumulate its Gram.
		for a := 0; a < k; a++ {
			for b := 0; b < k; b++ {
				var val float64
				for c := 1 + d; c < ncols; c++ {
					val += design[c][a] * design[c][b]
				}
				ts = append(ts, Triplet{Row: list[a], Col: list[b], Value: val})
			}
		}
	}

	return compactTriplets(n, ts)
}

// gramSchmidt orthonormalizes the column vectors in place, zeroing columns
// that collapse numerically.
func gramSchmidt(cols [][]float64) {
	for c := range cols {
		for p := 0; p < c; p++ {
			var proj float64
			for i := range cols[c] {
				proj += cols[p][i] * cols[c][i]
			}
			for i := range cols[c] {
				cols[c][i] -= proj * cols[p][i]
			}
		}
		var norm float64
		for _, v := range cols[c] {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm < 1e-12 {
			for i := range cols[c] {
				cols[c][i] = 0
			}
			continue
		}
		inv := 1 / norm
		for i := range cols[c] {
			cols[c][i] *= inv
		}
	}
}

// embedHLLE runs Hessian Locally Linear Embedding: smallest eigenvectors of
// the Hessian operator, discarding the constant null vector.
func embedHLLE(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	m := buildHessianMatrix(s, nbrs, cfg.target)

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

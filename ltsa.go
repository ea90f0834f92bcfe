package manifold

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// localTangentBasis eigendecomposes the double-centered kernel Gram of one
// neighborhood and returns the top d eigenvectors (k x d, descending), which
// span the neighborhood's tangent space. The eigenvalues come along for
// callers that need tangent coordinates rather than directions.
func localTangentBasis(s ObjectSet, list []int, d int) (*mat.Dense, []float64) {
	k := len(list)
	kern := s.Kernel

	// Raw neighborhood Gram.
	raw := make([][]float64, k)
	for a := 0; a < k; a++ {
		raw[a] = make([]float64, k)
	}
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			v := kern.Kernel(list[a], list[b])
			raw[a][b] = v
			raw[b][a] = v
		}
	}

	// Double centering: Gc = H G H with H = I - 11^T/k.
	rowMean := make([]float64, k)
	var total float64
	for a := 0; a < k; a++ {
		for b := 0; b < k; b++ {
			rowMean[a] += raw[a][b]
		}
		rowMean[a] /= float64(k)
		total += rowMean[a]
	}
	total /= float64(k)

	g := mat.NewSymDense(k, nil)
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			g.SetSym(a, b, raw[a][b]-rowMean[a]-rowMean[b]+total)
		}
	}

	var es mat.EigenSym
	if !es.Factorize(g, true) {
		return nil, nil
	}
	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	basis := mat.NewDense(k, d, nil)
	top := make([]float64, d)
	for c := 0; c < d; c++ {
		src := k - 1 - c
		top[c] = values[src]
		for a := 0; a < k; a++ {
			basis.Set(a, c, vecs.At(a, src))
		}
	}
	return basis, top
}

// buildAlignmentMatrix assembles the LTSA alignment operator: every
// neighborhood contributes I - Q Q^T over its index block, where Q spans the
// constant vector plus the local tangent basis. Minimizing against this
// operator aligns the per-neighborhood tangent coordinates into one global
// embedding.
func buildAlignmentMatrix(s ObjectSet, nbrs Neighbors, d int) *CSRMatrix {
	n := s.Len

	var ts []Triplet
	for _, list := range nbrs {
		k := len(list)
		basis, _ := localTangentBasis(s, list, d)
		if basis == nil {
			continue
		}

		// Q = [1/sqrt(k) | tangent basis], k x (d+1).
		w := 1 / math.Sqrt(float64(k))
		for a := 0; a < k; a++ {
			for b := 0; b < k; b++ {
				val := -w * w
				for c := 0; c < d; c++ {
					val -= basis.At(a, c) * basis.At(b, c)
				}
				if a == b {
					val += 1
				}
				ts = append(ts, Triplet{Row: list[a], Col: list[b], Value: val})
			}
		}
	}

	return compactTriplets(n, ts)
}

// embedKLTSA runs (kernel) Local Tangent Space Alignment: smallest
// eigenvectors of the alignment operator, discarding the constant null
// vector.
func embedKLTSA(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	m := buildAlignmentMatrix(s, nbrs, cfg.target)

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

// embedLLTSA runs Linear Local Tangent Space Alignment: the alignment
// operator contracted to feature space, solved as a generalized problem.
func embedLLTSA(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	m := buildAlignmentMatrix(s, nbrs, cfg.target)

	rows := featureRows(s.Features, s.Len)
	mean := meanVector(rows)
	cols := columnsOf(centeredRows(rows, mean))

	a := quadraticForm(cols, m.Apply)
	b := quadraticForm(cols, nil)
	return solveLinearMethod(a, b, rows, mean, cfg)
}

package manifold

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// embedDiffusionMap embeds with the top eigenvectors of the diffusion
// operator built from a dense Gaussian kernel:
//
//  1. W_ij = exp(-d(i,j)^2 / width) over all pairs;
//  2. density normalization A = D^-1 W D^-1 removes sampling bias;
//  3. the symmetric conjugate S = Q^-1/2 A Q^-1/2 of the Markov operator is
//     decomposed, so a self-adjoint solver applies;
//  4. eigenvectors are conjugated back by Q^-1/2 and damped by lambda^t,
//     with the stationary top pair discarded.
func embedDiffusionMap(s ObjectSet, cfg runConfig) (*Embedding, Projector, error) {
	n := s.Len
	dist := s.pairwiseDistance()

	w := make([][]float64, n)
	for i := 0; i < n; i++ {
		w[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		w[i][i] = 1
		for j := i + 1; j < n; j++ {
			v := heatWeight(dist(i, j), cfg.width)
			w[i][j] = v
			w[j][i] = v
		}
	}

	// Density normalization.
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d[i] += w[i][j]
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			w[i][j] /= d[i] * d[j]
		}
	}

	// Symmetric conjugate of the Markov operator.
	q := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			q[i] += w[i][j]
		}
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, w[i][j]/math.Sqrt(q[i]*q[j]))
		}
	}

	pairs, err := solveEigen(eigenProblem{a: newDenseOperator(n, sym)}, cfg.target+cfg.traits.skipTrivial, cfg.traits.wantsLargest(), cfg.eigenKind, cfg.maxIter, cfg.seed)
	if err != nil {
		return nil, nil, err
	}

	t := float64(cfg.timesteps)
	emb, err := assembleEmbedding(pairs, cfg.target, cfg.traits.skipTrivial, cfg.traits.order, func(value float64, col []float64) {
		damp := math.Pow(math.Abs(value), t)
		for i := range col {
			col[i] *= damp / math.Sqrt(q[i])
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return emb, nil, nil
}

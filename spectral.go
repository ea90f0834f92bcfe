package manifold

import (
	"math"
)

// heatWeight returns the Gaussian heat-kernel edge weight exp(-d^2 / width).
func heatWeight(d, width float64) float64 {
	return math.Exp(-d * d / width)
}

// embedLaplacianEigenmaps solves the generalized problem L y = lambda D y
// over the heat-weighted neighbor graph, keeping the smallest nontrivial
// eigenvectors. The constant vector with eigenvalue zero is discarded.
func embedLaplacianEigenmaps(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	dist := s.pairwiseDistance()
	lap := assembleLaplacian(s.Len, nbrs, func(i, j int) float64 {
		return heatWeight(dist(i, j), cfg.width)
	})

	prob := eigenProblem{a: lap.L, bDiag: lap.Degrees}
	pairs, err := solveEigen(prob, cfg.target+cfg.traits.skipTrivial, cfg.traits.wantsLargest(), cfg.eigenKind, cfg.maxIter, cfg.seed)
	if err != nil {
		return nil, nil, err
	}
	emb, err := assembleEmbedding(pairs, cfg.target, cfg.traits.skipTrivial, cfg.traits.order, nil)
	if err != nil {
		return nil, nil, err
	}
	return emb, nil, nil
}

// embedLPP runs Locality Preserving Projections, the linear variant of
// Laplacian Eigenmaps: X^T L X a = lambda X^T D X a in feature space.
func embedLPP(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	dist := s.pairwiseDistance()
	lap := assembleLaplacian(s.Len, nbrs, func(i, j int) float64 {
		return heatWeight(dist(i, j), cfg.width)
	})

	rows := featureRows(s.Features, s.Len)
	mean := meanVector(rows)
	cols := columnsOf(centeredRows(rows, mean))

	a := quadraticForm(cols, lap.L.Apply)
	b := diagonalForm(cols, lap.Degrees)
	return solveLinearMethod(a, b, rows, mean, cfg)
}

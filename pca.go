package manifold

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// embedPCA projects onto the leading eigenvectors of the feature covariance.
// A rank-deficient covariance that cannot supply target components surfaces
// as ErrDegenerateSpectrum from the assembler.
func embedPCA(s ObjectSet, cfg runConfig) (*Embedding, Projector, error) {
	rows := featureRows(s.Features, s.Len)
	mean := meanVector(rows)
	centered := centeredRows(rows, mean)

	cov := quadraticForm(columnsOf(centered), nil)
	inv := 1 / float64(s.Len)
	dim := len(mean)
	for p := 0; p < dim; p++ {
		for q := p; q < dim; q++ {
			cov.SetSym(p, q, cov.At(p, q)*inv)
		}
	}

	return solveLinearMethod(cov, nil, rows, mean, cfg)
}

// embedKernelPCA embeds via the leading eigenvectors of the double-centered
// kernel matrix, with coordinates scaled by sqrt of the eigenvalue. When the
// object set also exposes features, the returned projector extends the
// embedding to new points by centered kernel expansion.
func embedKernelPCA(s ObjectSet, cfg runConfig) (*Embedding, Projector, error) {
	n := s.Len

	kernel := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			kernel.SetSym(i, j, s.Kernel.Kernel(i, j))
		}
	}

	rowMeans := make([]float64, n)
	var totalMean float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rowMeans[i] += kernel.At(i, j)
		}
		rowMeans[i] /= float64(n)
		totalMean += rowMeans[i]
	}
	totalMean /= float64(n)

	centered := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			centered.SetSym(i, j, kernel.At(i, j)-rowMeans[i]-rowMeans[j]+totalMean)
		}
	}

	prob := eigenProblem{a: newDenseOperator(n, centered)}
	pairs, err := solveEigen(prob, cfg.target+cfg.traits.skipTrivial, cfg.traits.wantsLargest(), cfg.eigenKind, cfg.maxIter, cfg.seed)
	if err != nil {
		return nil, nil, err
	}

	emb, err := assembleEmbedding(pairs, cfg.target, cfg.traits.skipTrivial, cfg.traits.order, func(value float64, col []float64) {
		scale := math.Sqrt(value)
		for i := range col {
			col[i] *= scale
		}
	})
	if err != nil {
		return nil, nil, err
	}

	if s.Features == nil {
		return emb, nil, nil
	}

	// Column c holds v_c * sqrt(lambda_c); the expansion coefficients are
	// v_c / sqrt(lambda_c) = column / lambda_c.
	coeffs := make([][]float64, cfg.target)
	for c := 0; c < cfg.target; c++ {
		coeff := make([]float64, n)
		for i := 0; i < n; i++ {
			coeff[i] = emb.Coordinates.At(i, c) / emb.Eigenvalues[c]
		}
		coeffs[c] = coeff
	}

	proj := &kernelProjector{
		train:     featureRows(s.Features, n),
		coeffs:    coeffs,
		rowMeans:  rowMeans,
		totalMean: totalMean,
	}
	return emb, proj, nil
}

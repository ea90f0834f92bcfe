package manifold

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/mat"
)

// classicScale performs Torgerson scaling of a full squared-distance matrix:
// double-center into the Gram matrix B = -1/2 H D2 H, take the top
// eigenpairs, scale eigenvectors by sqrt(eigenvalue). Shared by MDS and
// Isomap, which differ only in where the distances come from.
func classicScale(d2 [][]float64, cfg runConfig) (*Embedding, error) {
	n := len(d2)

	rowMean := make([]float64, n)
	var total float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rowMean[i] += d2[i][j]
		}
		rowMean[i] /= float64(n)
		total += rowMean[i]
	}
	total /= float64(n)

	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			b.SetSym(i, j, -0.5*(d2[i][j]-rowMean[i]-rowMean[j]+total))
		}
	}

	pairs, err := solveEigen(eigenProblem{a: newDenseOperator(n, b)}, cfg.target+cfg.traits.skipTrivial, cfg.traits.wantsLargest(), cfg.eigenKind, cfg.maxIter, cfg.seed)
	if err != nil {
		return nil, err
	}
	return assembleEmbedding(pairs, cfg.target, cfg.traits.skipTrivial, cfg.traits.order, func(value float64, col []float64) {
		scale := math.Sqrt(math.Abs(value))
		for i := range col {
			col[i] *= scale
		}
	})
}

// embedMDS runs classic metric multidimensional scaling on the full pairwise
// distance matrix.
func embedMDS(s ObjectSet, cfg runConfig) (*Embedding, Projector, error) {
	n := s.Len
	dist := s.pairwiseDistance()

	d2 := make([][]float64, n)
	for i := 0; i < n; i++ {
		d2[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist(i, j)
			d2[i][j] = d * d
			d2[j][i] = d * d
		}
	}

	emb, err := classicScale(d2, cfg)
	if err != nil {
		return nil, nil, err
	}
	return emb, nil, nil
}

// landmarkScale positions every object against a scaled landmark subset.
// d2l is the landmarks' squared-distance matrix, d2all[l][i] the squared
// distance from landmark l to object i. Landmarks get their MDS coordinates
// directly; the rest are triangulated by the Nystrom formula
//
//	y_c(i) = -1 / (2 sqrt(lambda_c)) * sum_l v_lc (d2all[l][i] - rowMean_l)
//
// which reproduces the landmark coordinates exactly on the landmarks
// themselves. A roaring bitmap keeps the landmark membership test cheap.
func landmarkScale(landmarks []int, d2l, d2all [][]float64, n int, cfg runConfig) (*Embedding, error) {
	nl := len(landmarks)
	if nl <= cfg.target {
		return nil, fmt.Errorf("%w: %d landmarks cannot span %d dimensions", ErrInsufficientData, nl, cfg.target)
	}

	emb, err := classicScale(d2l, cfg)
	if err != nil {
		return nil, err
	}

	rowMean := make([]float64, nl)
	for l := 0; l < nl; l++ {
		for m := 0; m < nl; m++ {
			rowMean[l] += d2l[l][m]
		}
		rowMean[l] /= float64(nl)
	}

	// Recover the landmark eigenvectors from the scaled coordinates:
	// v_lc = y_lc / sqrt(lambda_c).
	member := roaring.New()
	for _, l := range landmarks {
		member.Add(uint32(l))
	}

	coords := mat.NewDense(n, cfg.target, nil)
	for pos, l := range landmarks {
		for c := 0; c < cfg.target; c++ {
			coords.Set(l, c, emb.Coordinates.At(pos, c))
		}
	}

	for i := 0; i < n; i++ {
		if member.Contains(uint32(i)) {
			continue
		}
		for c := 0; c < cfg.target; c++ {
			lambda := emb.Eigenvalues[c]
			if lambda <= 0 {
				continue
			}
			var sum float64
			for l := 0; l < nl; l++ {
				v := emb.Coordinates.At(l, c) / math.Sqrt(lambda)
				sum += v * (d2all[l][i] - rowMean[l])
			}
			coords.Set(i, c, -0.5*sum/math.Sqrt(lambda))
		}
	}

	return &Embedding{Coordinates: coords, Eigenvalues: emb.Eigenvalues}, nil
}

// embedLandmarkMDS runs MDS on a landmark subset and triangulates the
// remaining objects against it.
func embedLandmarkMDS(s ObjectSet, cfg runConfig) (*Embedding, Projector, error) {
	n := s.Len
	dist := s.pairwiseDistance()

	landmarks, err := selectLandmarks(s, cfg.ratio, cfg.seed)
	if err != nil {
		return nil, nil, err
	}
	nl := len(landmarks)

	d2l := make([][]float64, nl)
	d2all := make([][]float64, nl)
	for l := 0; l < nl; l++ {
		d2l[l] = make([]float64, nl)
		d2all[l] = make([]float64, n)
	}
	for a, la := range landmarks {
		for b := a + 1; b < nl; b++ {
			d := dist(la, landmarks[b])
			d2l[a][b] = d * d
			d2l[b][a] = d * d
		}
		for i := 0; i < n; i++ {
			if i == la {
				continue
			}
			d := dist(la, i)
			d2all[a][i] = d * d
		}
	}

	emb, err := landmarkScale(landmarks, d2l, d2all, n, cfg)
	if err != nil {
		return nil, nil, err
	}
	return emb, nil, nil
}

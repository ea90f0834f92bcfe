package manifold

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// speInitialRate is the starting learning rate of the stochastic updates.
// It decays linearly to speFinalRate over the configured iterations.
const (
	speInitialRate = 1.0
	speFinalRate   = 0.01
)

// embedSPE runs stochastic proximity embedding: random low-dimensional
// coordinates are nudged pair by pair until embedded distances track the
// input distances. The global strategy samples arbitrary pairs; the local
// strategy restricts updates to neighbor-graph pairs.
func embedSPE(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	n := s.Len
	dist := s.pairwiseDistance()
	rng := rand.New(rand.NewSource(cfg.seed))

	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = make([]float64, cfg.target)
		for c := range coords[i] {
			coords[i][c] = rng.Float64()
		}
	}

	updates := cfg.numUpdates
	if updates < 1 {
		updates = 1
	}

	diff := make([]float64, cfg.target)
	rate := speInitialRate
	decay := (speInitialRate - speFinalRate) / float64(cfg.maxIter)
	for iter := 0; iter < cfg.maxIter; iter++ {
		for u := 0; u < updates; u++ {
			i := rng.Intn(n)
			var j int
			if cfg.globalStrategy {
				j = rng.Intn(n - 1)
				if j >= i {
					j++
				}
			} else {
				list := nbrs[i]
				j = list[rng.Intn(len(list))]
			}

			r := dist(i, j)
			d := 0.0
			for c := 0; c < cfg.target; c++ {
				diff[c] = coords[i][c] - coords[j][c]
				d += diff[c] * diff[c]
			}
			d = math.Sqrt(d)
			if math.Abs(d-r) <= cfg.tolerance {
				continue
			}

			step := rate / 2 * (r - d) / (d + cfg.tolerance)
			for c := 0; c < cfg.target; c++ {
				coords[i][c] += step * diff[c]
				coords[j][c] -= step * diff[c]
			}
		}
		rate -= decay
	}

	out := mat.NewDense(n, cfg.target, nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, coords[i])
	}
	return &Embedding{
		Coordinates: out,
		Eigenvalues: make([]float64, cfg.target),
	}, nil, nil
}

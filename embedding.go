package manifold

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateSpectrum is returned when the solver produced fewer usable
// eigenpairs than the requested target dimension, e.g. PCA asked for more
// components than the data has intrinsic dimensions.
var ErrDegenerateSpectrum = errors.New("fewer usable eigenpairs than the target dimension")

// degenerateRelTol is the relative threshold below which an eigenvalue of a
// variance-maximizing method counts as numerically zero, hence unusable.
const degenerateRelTol = 1e-9

// Embedding is the final low-dimensional coordinate assignment: one row per
// input object, one column per target dimension, with the eigenvalue that
// produced each column in the same order. Immutable once returned.
type Embedding struct {
	// Coordinates is the n x targetDimension coordinate matrix.
	Coordinates *mat.Dense

	// Eigenvalues holds the eigenvalue behind each coordinate column, in the
	// method's declared spectral order.
	Eigenvalues []float64
}

// Dims returns (number of objects, target dimension).
func (e *Embedding) Dims() (int, int) {
	return e.Coordinates.Dims()
}

// assembleEmbedding turns raw solver output into the final embedding. It is
// the single place the spectral-order contract is enforced, so the solver
// backends stay interchangeable:
//
//   - pairs arrive ascending from every backend;
//   - smallestFirst methods keep ascending order, largestFirst methods get
//     the reversal;
//   - the first skip pairs in method order are discarded as trivial (the
//     constant null vector of a Laplacian, the stationary diffusion vector);
//   - largestFirst methods additionally drop eigenvalues at or below the
//     degeneracy threshold, since a variance-maximizing direction with zero
//     variance carries no coordinates;
//   - scale, when non-nil, post-processes each kept column in place given
//     its eigenvalue (degree normalization, sqrt-eigenvalue scaling, ...).
//
// Fails with ErrDegenerateSpectrum when fewer than target usable pairs
// remain.
func assembleEmbedding(pairs eigenPairs, target, skip int, order spectrumOrder, scale func(value float64, col []float64)) (*Embedding, error) {
	n, got := pairs.vectors.Dims()
	if got != len(pairs.values) {
		return nil, fmt.Errorf("solver returned %d vectors for %d values", got, len(pairs.values))
	}

	// Column visit order per the method's declared spectral order.
	colOrder := make([]int, got)
	for i := range colOrder {
		if order == largestFirst {
			colOrder[i] = got - 1 - i
		} else {
			colOrder[i] = i
		}
	}

	// Degeneracy threshold for variance-maximizing methods.
	var cutoff float64
	if order == largestFirst && got > 0 {
		top := abs(pairs.values[colOrder[0]])
		if top < 1 {
			top = 1
		}
		cutoff = degenerateRelTol * top
	}

	values := make([]float64, 0, target)
	cols := make([][]float64, 0, target)
	skipped := 0
	for _, c := range colOrder {
		v := pairs.values[c]
		if skipped < skip {
			skipped++
			continue
		}
		if order == largestFirst && v <= cutoff {
			// Ascending-sorted input guarantees nothing usable follows.
			break
		}
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = pairs.vectors.At(i, c)
		}
		if scale != nil {
			scale(v, col)
		}
		values = append(values, v)
		cols = append(cols, col)
		if len(cols) == target {
			break
		}
	}

	if len(cols) < target {
		return nil, fmt.Errorf("%w: %d usable of %d requested", ErrDegenerateSpectrum, len(cols), target)
	}

	coords := mat.NewDense(n, target, nil)
	for c, col := range cols {
		for i := 0; i < n; i++ {
			coords.Set(i, c, col[i])
		}
	}
	return &Embedding{Coordinates: coords, Eigenvalues: values}, nil
}

// rowOfEmbedding copies embedding row i into dst.
func (e *Embedding) rowOfEmbedding(i int, dst []float64) {
	_, d := e.Coordinates.Dims()
	for c := 0; c < d; c++ {
		dst[c] = e.Coordinates.At(i, c)
	}
}

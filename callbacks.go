package manifold

import (
	"errors"
	"fmt"
	"math"

	"github.com/viterin/vek"
)

// ErrMissingCallback is returned at composition time when the selected method
// requires a callback capability the supplied object set does not provide.
var ErrMissingCallback = errors.New("method requires a callback the object set does not provide")

// ErrDimensionMismatch is returned when a vector's length disagrees with the
// dimensionality the object set or projector was built for.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// KernelCallback evaluates a Mercer kernel between two objects by index.
type KernelCallback interface {
	// Kernel returns k(i, j). Must be symmetric in its arguments.
	Kernel(i, j int) float64
}

// DistanceCallback evaluates a distance between two objects by index.
type DistanceCallback interface {
	// Distance returns d(i, j) >= 0 with d(i, i) == 0 and d(i, j) == d(j, i).
	Distance(i, j int) float64
}

// FeatureCallback exposes a dense feature vector per object. Linear methods
// and out-of-sample projection require it; purely kernel/distance methods
// do not.
type FeatureCallback interface {
	// Feature copies the feature vector of object i into dst.
	// len(dst) must equal Dimension.
	Feature(i int, dst []float64)

	// Dimension returns the feature-space dimensionality.
	Dimension() int
}

// ObjectSet bundles the callbacks available for one input collection. Any of
// the capability fields may be nil; a method requiring a nil capability is
// rejected with ErrMissingCallback before any computation runs. The set is
// treated as immutable for the duration of a pipeline invocation.
type ObjectSet struct {
	// Len is the number of objects.
	Len int

	Kernel   KernelCallback
	Distance DistanceCallback
	Features FeatureCallback
}

// checkCapabilities verifies the object set provides every capability the
// method's requirements row declares. Runs at composition time so malformed
// pairings fail before neighbor search or assembly work starts.
func (s ObjectSet) checkCapabilities(m Method, t methodTraits) error {
	if t.needsKernel && s.Kernel == nil {
		return fmt.Errorf("%w: %s needs a kernel callback", ErrMissingCallback, m)
	}
	if t.needsDistance && s.Distance == nil && s.Kernel == nil {
		return fmt.Errorf("%w: %s needs a distance callback", ErrMissingCallback, m)
	}
	if t.needsFeatures && s.Features == nil {
		return fmt.Errorf("%w: %s needs a feature callback", ErrMissingCallback, m)
	}
	return nil
}

// pairwiseDistance returns a distance function over object indices, deriving
// one from the kernel when no distance callback exists:
//
//	d(i, j)^2 = k(i,i) + k(j,j) - 2 k(i,j)
//
// which is the kernel-space Euclidean distance for any Mercer kernel.
func (s ObjectSet) pairwiseDistance() func(i, j int) float64 {
	if s.Distance != nil {
		return s.Distance.Distance
	}
	if s.Kernel != nil {
		k := s.Kernel
		return func(i, j int) float64 {
			d2 := k.Kernel(i, i) + k.Kernel(j, j) - 2*k.Kernel(i, j)
			if d2 < 0 {
				d2 = 0
			}
			return math.Sqrt(d2)
		}
	}
	return nil
}

// ============================================================================
// DENSE DATASET
// ============================================================================

// Dataset is a dense in-memory object set: one row per object. It implements
// all three callback capabilities (linear kernel, Euclidean distance, row
// access), so every method accepts it.
type Dataset struct {
	rows [][]float64
	dim  int
}

// Compile-time checks that Dataset provides every capability.
var (
	_ KernelCallback   = (*Dataset)(nil)
	_ DistanceCallback = (*Dataset)(nil)
	_ FeatureCallback  = (*Dataset)(nil)
)

// NewDataset wraps rows as a dense object set. All rows must share one
// dimensionality. The rows are not copied; the caller must not mutate them
// while a pipeline runs.
func NewDataset(rows [][]float64) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty dataset", ErrInsufficientData)
	}
	dim := len(rows[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimensional rows", ErrDimensionMismatch)
	}
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(r), dim)
		}
	}
	return &Dataset{rows: rows, dim: dim}, nil
}

// Objects returns the ObjectSet view of the dataset.
func (d *Dataset) Objects() ObjectSet {
	return ObjectSet{Len: len(d.rows), Kernel: d, Distance: d, Features: d}
}

// Kernel returns the linear kernel <x_i, x_j>.
func (d *Dataset) Kernel(i, j int) float64 {
	return vek.Dot(d.rows[i], d.rows[j])
}

// Distance returns the Euclidean distance between rows i and j.
func (d *Dataset) Distance(i, j int) float64 {
	return vek.Distance(d.rows[i], d.rows[j])
}

// Feature copies row i into dst.
func (d *Dataset) Feature(i int, dst []float64) {
	copy(dst, d.rows[i])
}

// Dimension returns the row dimensionality.
func (d *Dataset) Dimension() int {
	return d.dim
}

// Row returns a read-only view of row i.
func (d *Dataset) Row(i int) []float64 {
	return d.rows[i]
}

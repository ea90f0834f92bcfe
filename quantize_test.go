package manifold

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestCompactExpandRoundTrip tests the half-precision round trip stays within
// float16 rounding error
func TestCompactExpandRoundTrip(t *testing.T) {
	coords := mat.NewDense(3, 2, []float64{
		0.125, -1.5,
		2.25, 0,
		-0.75, 3.5,
	})
	emb := &Embedding{Coordinates: coords, Eigenvalues: []float64{0.9, 0.4}}

	restored, err := emb.Compact().Expand()
	if err != nil {
		t.Fatalf("Expand() error = %v, want nil", err)
	}

	n, d := restored.Dims()
	if n != 3 || d != 2 {
		t.Fatalf("Dims() = (%d, %d), want (3, 2)", n, d)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			got, want := restored.Coordinates.At(i, j), coords.At(i, j)
			// These values are exactly representable in half precision.
			if got != want {
				t.Errorf("coordinate (%d,%d) = %v, want %v", i, j, got, want)
			}
		}
	}
	for c, v := range emb.Eigenvalues {
		if restored.Eigenvalues[c] != v {
			t.Errorf("Eigenvalues[%d] = %v, want %v (full precision)", c, restored.Eigenvalues[c], v)
		}
	}
}

// TestCompactRoundingError tests a value outside the exact float16 grid comes
// back close but not necessarily equal
func TestCompactRoundingError(t *testing.T) {
	coords := mat.NewDense(1, 1, []float64{math.Pi})
	emb := &Embedding{Coordinates: coords, Eigenvalues: []float64{1}}

	restored, err := emb.Compact().Expand()
	if err != nil {
		t.Fatalf("Expand() error = %v, want nil", err)
	}
	if got := restored.Coordinates.At(0, 0); math.Abs(got-math.Pi) > 1e-2 {
		t.Errorf("round-tripped pi = %v, want within 1e-2", got)
	}
}

// TestExpandValidation tests the compact-form shape checks
func TestExpandValidation(t *testing.T) {
	empty := &CompactEmbedding{}
	if _, err := empty.Expand(); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expand(empty) error = %v, want ErrInsufficientData", err)
	}

	ragged := &CompactEmbedding{Rows: [][]uint16{{1, 2}, {3}}}
	if _, err := ragged.Expand(); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expand(ragged) error = %v, want ErrDimensionMismatch", err)
	}
}

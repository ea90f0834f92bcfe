package manifold

import (
	"fmt"

	"github.com/x448/float16"
	"gonum.org/v1/gonum/mat"
)

// CompactEmbedding is a half-precision copy of an embedding's coordinate
// matrix for cheap persistence or shipping into an ANN index: 2 bytes per
// coordinate instead of 8, at IEEE 754 half-precision accuracy. Eigenvalues
// stay in full precision since there are only targetDimension of them.
type CompactEmbedding struct {
	// Rows holds the float16 bit patterns of each coordinate row.
	Rows [][]uint16

	// Eigenvalues is carried over unchanged from the source embedding.
	Eigenvalues []float64
}

// Compact converts the embedding's coordinates to half precision.
func (e *Embedding) Compact() *CompactEmbedding {
	n, d := e.Coordinates.Dims()
	rows := make([][]uint16, n)
	for i := 0; i < n; i++ {
		row := make([]uint16, d)
		for j := 0; j < d; j++ {
			row[j] = float16.Fromfloat32(float32(e.Coordinates.At(i, j))).Bits()
		}
		rows[i] = row
	}
	values := make([]float64, len(e.Eigenvalues))
	copy(values, e.Eigenvalues)
	return &CompactEmbedding{Rows: rows, Eigenvalues: values}
}

// Expand converts the compact form back to a full-precision embedding.
// Coordinates round-trip through float16, so Expand(Compact(e)) differs from
// e by at most half-precision rounding.
func (c *CompactEmbedding) Expand() (*Embedding, error) {
	n := len(c.Rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty compact embedding", ErrInsufficientData)
	}
	d := len(c.Rows[0])
	coords := mat.NewDense(n, d, nil)
	for i, row := range c.Rows {
		if len(row) != d {
			return nil, fmt.Errorf("%w: row %d has %d coordinates, want %d", ErrDimensionMismatch, i, len(row), d)
		}
		for j, bits := range row {
			coords.Set(i, j, float64(float16.Frombits(bits).Float32()))
		}
	}
	values := make([]float64, len(c.Eigenvalues))
	copy(values, c.Eigenvalues)
	return &Embedding{Coordinates: coords, Eigenvalues: values}, nil
}

package manifold

import (
	"bytes"
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestEmbeddingSerializationRoundTrip tests WriteTo followed by ReadFrom
// reproduces the embedding exactly
func TestEmbeddingSerializationRoundTrip(t *testing.T) {
	emb := &Embedding{
		Coordinates: mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}),
		Eigenvalues: []float64{0.5, 0.25},
	}

	var buf bytes.Buffer
	written, err := emb.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo() error = %v, want nil", err)
	}
	if written != int64(buf.Len()) {
		t.Errorf("WriteTo() reported %d bytes, buffer has %d", written, buf.Len())
	}

	var restored Embedding
	read, err := restored.ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v, want nil", err)
	}
	if read != written {
		t.Errorf("ReadFrom() reported %d bytes, want %d", read, written)
	}

	n, d := restored.Dims()
	if n != 3 || d != 2 {
		t.Fatalf("Dims() = (%d, %d), want (3, 2)", n, d)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			if restored.Coordinates.At(i, j) != emb.Coordinates.At(i, j) {
				t.Errorf("coordinate (%d,%d) = %v, want %v",
					i, j, restored.Coordinates.At(i, j), emb.Coordinates.At(i, j))
			}
		}
	}
	for c, v := range emb.Eigenvalues {
		if restored.Eigenvalues[c] != v {
			t.Errorf("Eigenvalues[%d] = %v, want %v", c, restored.Eigenvalues[c], v)
		}
	}
}

// TestCompactSerializationRoundTrip tests the half-precision stream round
// trips bit-exactly
func TestCompactSerializationRoundTrip(t *testing.T) {
	c := &CompactEmbedding{
		Rows:        [][]uint16{{1, 2}, {3, 4}},
		Eigenvalues: []float64{8},
	}

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v, want nil", err)
	}

	var restored CompactEmbedding
	if _, err := restored.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom() error = %v, want nil", err)
	}

	if len(restored.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(restored.Rows))
	}
	for i, row := range c.Rows {
		for j, v := range row {
			if restored.Rows[i][j] != v {
				t.Errorf("Rows[%d][%d] = %v, want %v", i, j, restored.Rows[i][j], v)
			}
		}
	}
	if restored.Eigenvalues[0] != 8 {
		t.Errorf("Eigenvalues[0] = %v, want 8", restored.Eigenvalues[0])
	}
}

// TestReadFromBadMagic tests streams of the wrong kind are rejected with a
// typed error
func TestReadFromBadMagic(t *testing.T) {
	var emb Embedding
	if _, err := emb.ReadFrom(bytes.NewReader([]byte("XXXXCCCC"))); !errors.Is(err, ErrBadFormat) {
		t.Errorf("ReadFrom(bad magic) error = %v, want ErrBadFormat", err)
	}

	// A compact stream is not a full-precision stream.
	c := &CompactEmbedding{Rows: [][]uint16{{1}}}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if _, err := emb.ReadFrom(&buf); !errors.Is(err, ErrBadFormat) {
		t.Errorf("ReadFrom(compact stream) error = %v, want ErrBadFormat", err)
	}
}

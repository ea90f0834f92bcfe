package manifold

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// ErrBadFormat is returned by ReadFrom when the stream is not a serialized
// embedding, or was produced by an incompatible format version.
var ErrBadFormat = errors.New("unrecognized serialization format")

// Serialization magic numbers. "MEMB" marks a full-precision embedding,
// "CEMB" a compact half-precision one.
var (
	embeddingMagic = [4]byte{'M', 'E', 'M', 'B'}
	compactMagic   = [4]byte{'C', 'E', 'M', 'B'}
)

const serializationVersion = uint32(1)

// ============================================================================
// EMBEDDING SERIALIZATION
// ============================================================================

// WriteTo serializes the embedding to an io.Writer.
//
// The serialization format is:
// 1. Magic number (4 bytes) - "MEMB" identifier for validation
// 2. Version (4 bytes) - Format version for backward compatibility
// 3. Number of rows (4 bytes)
// 4. Number of columns (4 bytes)
// 5. Coordinates, row-major (rows * cols * 8 bytes as float64)
// 6. Eigenvalue count (4 bytes) + eigenvalues (8 bytes each)
//
// Returns:
//   - int64: Number of bytes written
//   - error: Returns error if write fails
func (e *Embedding) WriteTo(w io.Writer) (int64, error) {
	var bytesWritten int64
	write := func(data any) error {
		err := binary.Write(w, binary.LittleEndian, data)
		if err == nil {
			bytesWritten += int64(binary.Size(data))
		}
		return err
	}

	if _, err := w.Write(embeddingMagic[:]); err != nil {
		return bytesWritten, fmt.Errorf("failed to write magic number: %w", err)
	}
	bytesWritten += 4

	if err := write(serializationVersion); err != nil {
		return bytesWritten, fmt.Errorf("failed to write version: %w", err)
	}

	rows, cols := e.Dims()
	if err := write(uint32(rows)); err != nil {
		return bytesWritten, fmt.Errorf("failed to write row count: %w", err)
	}
	if err := write(uint32(cols)); err != nil {
		return bytesWritten, fmt.Errorf("failed to write column count: %w", err)
	}

	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		e.rowOfEmbedding(i, row)
		if err := write(row); err != nil {
			return bytesWritten, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := write(uint32(len(e.Eigenvalues))); err != nil {
		return bytesWritten, fmt.Errorf("failed to write eigenvalue count: %w", err)
	}
	if len(e.Eigenvalues) > 0 {
		if err := write(e.Eigenvalues); err != nil {
			return bytesWritten, fmt.Errorf("failed to write eigenvalues: %w", err)
		}
	}

	return bytesWritten, nil
}

// ReadFrom deserializes an embedding from an io.Reader, replacing the
// receiver's contents with the stream produced by WriteTo.
func (e *Embedding) ReadFrom(r io.Reader) (int64, error) {
	var bytesRead int64
	read := func(data any) error {
		err := binary.Read(r, binary.LittleEndian, data)
		if err == nil {
			bytesRead += int64(binary.Size(data))
		}
		return err
	}

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return bytesRead, fmt.Errorf("failed to read magic number: %w", err)
	}
	bytesRead += 4
	if magic != embeddingMagic {
		return bytesRead, fmt.Errorf("%w: bad magic %q", ErrBadFormat, magic[:])
	}

	var version uint32
	if err := read(&version); err != nil {
		return bytesRead, fmt.Errorf("failed to read version: %w", err)
	}
	if version != serializationVersion {
		return bytesRead, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, version)
	}

	var rows, cols uint32
	if err := read(&rows); err != nil {
		return bytesRead, fmt.Errorf("failed to read row count: %w", err)
	}
	if err := read(&cols); err != nil {
		return bytesRead, fmt.Errorf("failed to read column count: %w", err)
	}

	coords := mat.NewDense(int(rows), int(cols), nil)
	row := make([]float64, cols)
	for i := 0; i < int(rows); i++ {
		if err := read(row); err != nil {
			return bytesRead, fmt.Errorf("failed to read row %d: %w", i, err)
		}
		coords.SetRow(i, row)
	}

	var nvals uint32
	if err := read(&nvals); err != nil {
		return bytesRead, fmt.Errorf("failed to read eigenvalue count: %w", err)
	}
	values := make([]float64, nvals)
	if nvals > 0 {
		if err := read(values); err != nil {
			return bytesRead, fmt.Errorf("failed to read eigenvalues: %w", err)
		}
	}

	e.Coordinates = coords
	e.Eigenvalues = values
	return bytesRead, nil
}

// ============================================================================
// COMPACT EMBEDDING SERIALIZATION
// ============================================================================

// WriteTo serializes the compact embedding. Same layout as Embedding.WriteTo
// under the "CEMB" magic, with half-precision coordinate rows (2 bytes per
// value) and full-precision eigenvalues.
func (c *CompactEmbedding) WriteTo(w io.Writer) (int64, error) {
	var bytesWritten int64
	write := func(data any) error {
		err := binary.Write(w, binary.LittleEndian, data)
		if err == nil {
			bytesWritten += int64(binary.Size(data))
		}
		return err
	}

	if _, err := w.Write(compactMagic[:]); err != nil {
		return bytesWritten, fmt.Errorf("failed to write magic number: %w", err)
	}
	bytesWritten += 4

	if err := write(serializationVersion); err != nil {
		return bytesWritten, fmt.Errorf("failed to write version: %w", err)
	}

	cols := 0
	if len(c.Rows) > 0 {
		cols = len(c.Rows[0])
	}
	if err := write(uint32(len(c.Rows))); err != nil {
		return bytesWritten, fmt.Errorf("failed to write row count: %w", err)
	}
	if err := write(uint32(cols)); err != nil {
		return bytesWritten, fmt.Errorf("failed to write column count: %w", err)
	}
	for i, row := range c.Rows {
		if err := write(row); err != nil {
			return bytesWritten, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := write(uint32(len(c.Eigenvalues))); err != nil {
		return bytesWritten, fmt.Errorf("failed to write eigenvalue count: %w", err)
	}
	if len(c.Eigenvalues) > 0 {
		if err := write(c.Eigenvalues); err != nil {
			return bytesWritten, fmt.Errorf("failed to write eigenvalues: %w", err)
		}
	}

	return bytesWritten, nil
}

// ReadFrom deserializes a compact embedding produced by WriteTo.
func (c *CompactEmbedding) ReadFrom(r io.Reader) (int64, error) {
	var bytesRead int64
	read := func(data any) error {
		err := binary.Read(r, binary.LittleEndian, data)
		if err == nil {
			bytesRead += int64(binary.Size(data))
		}
		return err
	}

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return bytesRead, fmt.Errorf("failed to read magic number: %w", err)
	}
	bytesRead += 4
	if magic != compactMagic {
		return bytesRead, fmt.Errorf("%w: bad magic %q", ErrBadFormat, magic[:])
	}

	var version uint32
	if err := read(&version); err != nil {
		return bytesRead, fmt.Errorf("failed to read version: %w", err)
	}
	if version != serializationVersion {
		return bytesRead, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, version)
	}

	var rows, cols uint32
	if err := read(&rows); err != nil {
		return bytesRead, fmt.Errorf("failed to read row count: %w", err)
	}
	if err := read(&cols); err != nil {
		return bytesRead, fmt.Errorf("failed to read column count: %w", err)
	}

	out := make([][]uint16, rows)
	for i := range out {
		out[i] = make([]uint16, cols)
		if err := read(out[i]); err != nil {
			return bytesRead, fmt.Errorf("failed to read row %d: %w", i, err)
		}
	}

	var nvals uint32
	if err := read(&nvals); err != nil {
		return bytesRead, fmt.Errorf("failed to read eigenvalue count: %w", err)
	}
	values := make([]float64, nvals)
	if nvals > 0 {
		if err := read(values); err != nil {
			return bytesRead, fmt.Errorf("failed to read eigenvalues: %w", err)
		}
	}

	c.Rows = out
	c.Eigenvalues = values
	return bytesRead, nil
}

package manifold

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Triplet is one (row, col, value) entry accumulated during graph assembly.
// Duplicate coordinates are legal; compaction sums them.
type Triplet struct {
	Row, Col int
	Value    float64
}

// linearOperator is a symmetric operator the eigensolver backends consume.
// Apply must not allocate: it runs under the allocation guard inside solver
// inner loops.
type linearOperator interface {
	// Dim returns the operator's (square) dimension.
	Dim() int

	// Apply computes dst = A x. len(dst) == len(x) == Dim.
	Apply(dst, x []float64)

	// ToSym materializes the operator densely for the dense backend.
	ToSym() *mat.SymDense

	// NormBound returns an upper bound on the largest absolute eigenvalue
	// (Gershgorin), used by the iterative backend to flip the spectrum.
	NormBound() float64
}

// CSRMatrix is a compressed-sparse-row square matrix. Built once by
// compactTriplets and read-only afterwards, so concurrent Apply calls are
// safe.
type CSRMatrix struct {
	n      int
	rowPtr []int
	colIdx []int
	values []float64
}

// Compile-time check that CSRMatrix is a linearOperator.
var _ linearOperator = (*CSRMatrix)(nil)

// compactTriplets builds an n x n CSR matrix from accumulated triplets.
// Triplets sharing a coordinate are summed, never overwritten, so assembly
// code can emit contributions in any order. Rows no triplet touches stay
// empty: isolated graph nodes yield zero rows, not errors.
func compactTriplets(n int, ts []Triplet) *CSRMatrix {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Row != ts[j].Row {
			return ts[i].Row < ts[j].Row
		}
		return ts[i].Col < ts[j].Col
	})

	m := &CSRMatrix{
		n:      n,
		rowPtr: make([]int, n+1),
		colIdx: make([]int, 0, len(ts)),
		values: make([]float64, 0, len(ts)),
	}

	counts := make([]int, n)
	lastRow, lastCol := -1, -1
	for _, t := range ts {
		if t.Row == lastRow && t.Col == lastCol {
			m.values[len(m.values)-1] += t.Value
			continue
		}
		m.colIdx = append(m.colIdx, t.Col)
		m.values = append(m.values, t.Value)
		counts[t.Row]++
		lastRow, lastCol = t.Row, t.Col
	}

	for i := 0; i < n; i++ {
		m.rowPtr[i+1] = m.rowPtr[i] + counts[i]
	}
	return m
}

// Dim returns the matrix dimension.
func (m *CSRMatrix) Dim() int { return m.n }

// Apply computes dst = A x without allocating.
func (m *CSRMatrix) Apply(dst, x []float64) {
	guard := beginNoAlloc()
	for i := 0; i < m.n; i++ {
		var sum float64
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			sum += m.values[p] * x[m.colIdx[p]]
		}
		dst[i] = sum
	}
	guard.end()
}

// At returns entry (i, j) by scanning row i. Intended for tests and dense
// materialization, not hot loops.
func (m *CSRMatrix) At(i, j int) float64 {
	for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
		if m.colIdx[p] == j {
			return m.values[p]
		}
	}
	return 0
}

// NNZ returns the number of stored entries.
func (m *CSRMatrix) NNZ() int { return len(m.values) }

// ToSym materializes the matrix as a dense symmetric matrix.
func (m *CSRMatrix) ToSym() *mat.SymDense {
	s := mat.NewSymDense(m.n, nil)
	for i := 0; i < m.n; i++ {
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			j := m.colIdx[p]
			if j >= i {
				s.SetSym(i, j, m.values[p])
			}
		}
	}
	return s
}

// NormBound returns the Gershgorin bound max_i sum_j |a_ij|.
func (m *CSRMatrix) NormBound() float64 {
	var bound float64
	for i := 0; i < m.n; i++ {
		var row float64
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			row += abs(m.values[p])
		}
		if row > bound {
			bound = row
		}
	}
	return bound
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// denseOperator adapts a dense symmetric matrix to the linearOperator
// contract for methods that assemble densely (MDS, diffusion maps, PCA).
type denseOperator struct {
	n int
	m *mat.SymDense
}

var _ linearOperator = (*denseOperator)(nil)

func newDenseOperator(n int, m *mat.SymDense) *denseOperator {
	return &denseOperator{n: n, m: m}
}

func (d *denseOperator) Dim() int { return d.n }

func (d *denseOperator) Apply(dst, x []float64) {
	guard := beginNoAlloc()
	for i := 0; i < d.n; i++ {
		var sum float64
		for j := 0; j < d.n; j++ {
			sum += d.m.At(i, j) * x[j]
		}
		dst[i] = sum
	}
	guard.end()
}

func (d *denseOperator) ToSym() *mat.SymDense { return d.m }

func (d *denseOperator) NormBound() float64 {
	var bound float64
	for i := 0; i < d.n; i++ {
		var row float64
		for j := 0; j < d.n; j++ {
			row += abs(d.m.At(i, j))
		}
		if row > bound {
			bound = row
		}
	}
	return bound
}

// Laplacian pairs the sparse graph Laplacian L = D - W with its diagonal
// degree matrix, as required by the generalized problem L y = lambda D y.
type Laplacian struct {
	L       *CSRMatrix
	Degrees []float64
}

// assembleLaplacian builds the weighted graph Laplacian over the neighbor
// graph. weight(i, j) gives the symmetric edge weight; every edge (i, j) in
// the neighbor lists contributes to W_ij, W_ji and both degrees. Duplicate
// contributions from mutual neighbor pairs are summed by compaction, which
// only rescales the corresponding rows of both L and D consistently.
func assembleLaplacian(n int, nbrs Neighbors, weight func(i, j int) float64) *Laplacian {
	ts := make([]Triplet, 0, 4*n*maxLen(nbrs))
	degrees := make([]float64, n)

	for i, list := range nbrs {
		for _, j := range list {
			w := weight(i, j)
			ts = append(ts,
				Triplet{Row: i, Col: j, Value: -w},
				Triplet{Row: j, Col: i, Value: -w},
				Triplet{Row: i, Col: i, Value: w},
				Triplet{Row: j, Col: j, Value: w},
			)
			degrees[i] += w
			degrees[j] += w
		}
	}

	return &Laplacian{L: compactTriplets(n, ts), Degrees: degrees}
}

func maxLen(nbrs Neighbors) int {
	m := 0
	for _, l := range nbrs {
		if len(l) > m {
			m = len(l)
		}
	}
	return m
}

// Package sparse provides the compressed sparse row matrices and the
// natural-ordering Cholesky factorization used by the difference-operator
// densities. CSR implements gonum's mat.Matrix so it composes with dense code.
package sparse

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
)

// Triplet is one (row, col, value) entry used to assemble a matrix.
type Triplet struct {
	Row   int
	Col   int
	Value float64
}

// CSR is an immutable compressed sparse row matrix.
type CSR struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

var _ mat.Matrix = (*CSR)(nil)

// NewCSR assembles a rows×cols matrix from triplets. Duplicate coordinates are
// summed and explicit zeros dropped.
func NewCSR(rows, cols int, entries []Triplet) (*CSR, error) {
	if rows < 0 || cols < 0 {
		return nil, core.NewInvalidConfigError("shape", fmt.Sprintf("%dx%d", rows, cols), "dimensions must be non-negative")
	}
	perRow := make([]map[int]float64, rows)
	for _, e := range entries {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			return nil, fmt.Errorf("%w: entry (%d,%d) outside %dx%d", core.ErrDimensionMismatch, e.Row, e.Col, rows, cols)
		}
		if perRow[e.Row] == nil {
			perRow[e.Row] = make(map[int]float64)
		}
		perRow[e.Row][e.Col] += e.Value
	}

	m := &CSR{rows: rows, cols: cols, indptr: make([]int, rows+1)}
	for i, row := range perRow {
		colsInRow := make([]int, 0, len(row))
		for j, v := range row {
			if v != 0 {
				colsInRow = append(colsInRow, j)
			}
		}
		sort.Ints(colsInRow)
		for _, j := range colsInRow {
			m.indices = append(m.indices, j)
			m.data = append(m.data, row[j])
		}
		m.indptr[i+1] = len(m.indices)
	}
	return m, nil
}

// mustCSR is for internal constructions whose triplets are in range by construction.
func mustCSR(rows, cols int, entries []Triplet) *CSR {
	m, err := NewCSR(rows, cols, entries)
	if err != nil {
		panic(err)
	}
	return m
}

// Identity returns the n×n identity.
func Identity(n int) *CSR {
	entries := make([]Triplet, n)
	for i := range entries {
		entries[i] = Triplet{Row: i, Col: i, Value: 1}
	}
	return mustCSR(n, n, entries)
}

// Dims returns the matrix shape.
func (m *CSR) Dims() (int, int) { return m.rows, m.cols }

// At returns the (i, j) element.
func (m *CSR) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := m.indptr[i], m.indptr[i+1]
	k := sort.SearchInts(m.indices[lo:hi], j)
	if lo+k < hi && m.indices[lo+k] == j {
		return m.data[lo+k]
	}
	return 0
}

// T returns an implicit transpose for use with gonum routines.
func (m *CSR) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int { return len(m.data) }

// Triplets returns the stored entries in row-major order.
func (m *CSR) Triplets() []Triplet {
	out := make([]Triplet, 0, len(m.data))
	for i := 0; i < m.rows; i++ {
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			out = append(out, Triplet{Row: i, Col: m.indices[k], Value: m.data[k]})
		}
	}
	return out
}

// RowNonZeros calls fn for every stored entry of row i in column order.
func (m *CSR) RowNonZeros(i int, fn func(j int, v float64)) {
	for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
		fn(m.indices[k], m.data[k])
	}
}

// Diagonal returns the main diagonal.
func (m *CSR) Diagonal() []float64 {
	n := min(m.rows, m.cols)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = m.At(i, i)
	}
	return d
}

// Dense materializes the matrix.
func (m *CSR) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			d.Set(i, m.indices[k], m.data[k])
		}
	}
	return d
}

// SymDense materializes a square matrix as symmetric. Only the upper triangle is read.
func (m *CSR) SymDense() (*mat.SymDense, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("%w: %dx%d matrix is not square", core.ErrDimensionMismatch, m.rows, m.cols)
	}
	s := mat.NewSymDense(m.rows, nil)
	for i := 0; i < m.rows; i++ {
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			if j := m.indices[k]; j >= i {
				s.SetSym(i, j, m.data[k])
			}
		}
	}
	return s, nil
}

// IsSymmetric reports whether |a_ij - a_ji| <= tol for all stored entries.
func (m *CSR) IsSymmetric(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			j := m.indices[k]
			d := m.data[k] - m.At(j, i)
			if d > tol || d < -tol {
				return false
			}
		}
	}
	return true
}

package sparse

import (
	"fmt"

	"gouq/domain/core"
)

// MulVec returns m·x.
func (m *CSR) MulVec(x []float64) ([]float64, error) {
	if len(x) != m.cols {
		return nil, core.NewDimensionError("sparse MulVec", m.cols, len(x))
	}
	y := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		var s float64
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			s += m.data[k] * x[m.indices[k]]
		}
		y[i] = s
	}
	return y, nil
}

// MulTransVec returns mᵀ·x without forming the transpose.
func (m *CSR) MulTransVec(x []float64) ([]float64, error) {
	if len(x) != m.rows {
		return nil, core.NewDimensionError("sparse MulTransVec", m.rows, len(x))
	}
	y := make([]float64, m.cols)
	for i := 0; i < m.rows; i++ {
		xi := x[i]
		if xi == 0 {
			continue
		}
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			y[m.indices[k]] += m.data[k] * xi
		}
	}
	return y, nil
}

// QuadForm returns xᵀ·m·x for square m.
func (m *CSR) QuadForm(x []float64) (float64, error) {
	mx, err := m.MulVec(x)
	if err != nil {
		return 0, err
	}
	if len(mx) != len(x) {
		return 0, core.NewDimensionError("sparse QuadForm", len(mx), len(x))
	}
	var s float64
	for i := range x {
		s += x[i] * mx[i]
	}
	return s, nil
}

// Transpose returns mᵀ as a new CSR matrix.
func (m *CSR) Transpose() *CSR {
	entries := m.Triplets()
	for i := range entries {
		entries[i].Row, entries[i].Col = entries[i].Col, entries[i].Row
	}
	return mustCSR(m.cols, m.rows, entries)
}

// Mul returns the sparse product a·b.
func Mul(a, b *CSR) (*CSR, error) {
	if a.cols != b.rows {
		return nil, fmt.Errorf("%w: cannot multiply %dx%d by %dx%d", core.ErrDimensionMismatch, a.rows, a.cols, b.rows, b.cols)
	}
	var entries []Triplet
	for i := 0; i < a.rows; i++ {
		acc := make(map[int]float64)
		for k := a.indptr[i]; k < a.indptr[i+1]; k++ {
			av, row := a.data[k], a.indices[k]
			for kk := b.indptr[row]; kk < b.indptr[row+1]; kk++ {
				acc[b.indices[kk]] += av * b.data[kk]
			}
		}
		for j, v := range acc {
			entries = append(entries, Triplet{Row: i, Col: j, Value: v})
		}
	}
	return NewCSR(a.rows, b.cols, entries)
}

// Gram returns mᵀ·m.
func (m *CSR) Gram() *CSR {
	g, err := Mul(m.Transpose(), m)
	if err != nil {
		panic(err) // shapes agree by construction
	}
	return g
}

// Add returns a + b.
func Add(a, b *CSR) (*CSR, error) {
	if a.rows != b.rows || a.cols != b.cols {
		return nil, fmt.Errorf("%w: cannot add %dx%d and %dx%d", core.ErrDimensionMismatch, a.rows, a.cols, b.rows, b.cols)
	}
	return NewCSR(a.rows, a.cols, append(a.Triplets(), b.Triplets()...))
}

// AddDiag returns m + shift·I for square m.
func (m *CSR) AddDiag(shift float64) (*CSR, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("%w: %dx%d matrix is not square", core.ErrDimensionMismatch, m.rows, m.cols)
	}
	entries := m.Triplets()
	for i := 0; i < m.rows; i++ {
		entries = append(entries, Triplet{Row: i, Col: i, Value: shift})
	}
	return NewCSR(m.rows, m.cols, entries)
}

// Kron returns the Kronecker product a⊗b.
func Kron(a, b *CSR) *CSR {
	br, bc := b.Dims()
	ae, be := a.Triplets(), b.Triplets()
	entries := make([]Triplet, 0, len(ae)*len(be))
	for _, x := range ae {
		for _, y := range be {
			entries = append(entries, Triplet{
				Row:   x.Row*br + y.Row,
				Col:   x.Col*bc + y.Col,
				Value: x.Value * y.Value,
			})
		}
	}
	return mustCSR(a.rows*br, a.cols*bc, entries)
}

// VStack stacks a on top of b.
func VStack(a, b *CSR) (*CSR, error) {
	if a.cols != b.cols {
		return nil, fmt.Errorf("%w: cannot stack %d and %d columns", core.ErrDimensionMismatch, a.cols, b.cols)
	}
	entries := a.Triplets()
	for _, e := range b.Triplets() {
		e.Row += a.rows
		entries = append(entries, e)
	}
	return NewCSR(a.rows+b.rows, a.cols, entries)
}

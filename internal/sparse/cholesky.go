package sparse

import (
	"fmt"
	"math"

	"gouq/domain/core"
)

var eps = math.Nextafter(1, 2) - 1

const (
	// symmetryTol is the absolute tolerance used to accept a matrix as symmetric.
	symmetryTol = 1e-10
	// Pivots at or below pivotScale·n·eps·|aᵢᵢ| count as zero.
	pivotScale = 16
)

// Cholesky is a lower-triangular factor A = L·Lᵀ computed in natural ordering.
// L is stored by rows over the envelope of A: row i keeps columns first[i]..i.
// Fill-in never leaves the envelope, so banded and arrow-shaped structure
// matrices factor without densifying.
type Cholesky struct {
	n     int
	first []int
	rows  [][]float64
}

// Factorize computes the Cholesky factor of a symmetric positive definite
// matrix. A non-positive pivot yields core.ErrNotPositiveDefinite.
func Factorize(a *CSR) (*Cholesky, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d matrix is not square", core.ErrDimensionMismatch, r, c)
	}
	if !a.IsSymmetric(symmetryTol) {
		return nil, fmt.Errorf("%w: matrix is not symmetric", core.ErrNotPositiveDefinite)
	}

	n := r
	ch := &Cholesky{n: n, first: make([]int, n), rows: make([][]float64, n)}
	for i := 0; i < n; i++ {
		fi := i
		a.RowNonZeros(i, func(j int, _ float64) {
			if j < fi {
				fi = j
			}
		})
		ch.first[i] = fi
		li := make([]float64, i-fi+1)
		a.RowNonZeros(i, func(j int, v float64) {
			if j <= i {
				li[j-fi] = v
			}
		})

		for j := fi; j < i; j++ {
			fj := ch.first[j]
			lj := ch.rows[j]
			s := li[j-fi]
			for k := max(fi, fj); k < j; k++ {
				s -= li[k-fi] * lj[k-fj]
			}
			li[j-fi] = s / lj[j-fj]
		}

		aii := li[i-fi]
		d := aii
		for k := fi; k < i; k++ {
			d -= li[k-fi] * li[k-fi]
		}
		if !(d > pivotScale*float64(n)*eps*math.Abs(aii)) {
			return nil, fmt.Errorf("%w: non-positive pivot %g at row %d", core.ErrNotPositiveDefinite, d, i)
		}
		li[i-fi] = math.Sqrt(d)
		ch.rows[i] = li
	}
	return ch, nil
}

// Size returns the matrix order.
func (ch *Cholesky) Size() int { return ch.n }

// Diagonal returns the diagonal of L.
func (ch *Cholesky) Diagonal() []float64 {
	d := make([]float64, ch.n)
	for i, row := range ch.rows {
		d[i] = row[len(row)-1]
	}
	return d
}

// LogDet returns log det(A) = 2·Σ log Lᵢᵢ.
func (ch *Cholesky) LogDet() float64 {
	var s float64
	for _, v := range ch.Diagonal() {
		s += math.Log(v)
	}
	return 2 * s
}

// Lower returns L as a CSR matrix.
func (ch *Cholesky) Lower() *CSR {
	var entries []Triplet
	for i, row := range ch.rows {
		for k, v := range row {
			entries = append(entries, Triplet{Row: i, Col: ch.first[i] + k, Value: v})
		}
	}
	return mustCSR(ch.n, ch.n, entries)
}

// SolveL solves L·y = b.
func (ch *Cholesky) SolveL(b []float64) ([]float64, error) {
	if len(b) != ch.n {
		return nil, core.NewDimensionError("cholesky SolveL", ch.n, len(b))
	}
	y := make([]float64, ch.n)
	for i, row := range ch.rows {
		fi := ch.first[i]
		s := b[i]
		for k := fi; k < i; k++ {
			s -= row[k-fi] * y[k]
		}
		y[i] = s / row[i-fi]
	}
	return y, nil
}

// SolveLT solves Lᵀ·x = b.
func (ch *Cholesky) SolveLT(b []float64) ([]float64, error) {
	if len(b) != ch.n {
		return nil, core.NewDimensionError("cholesky SolveLT", ch.n, len(b))
	}
	x := make([]float64, ch.n)
	copy(x, b)
	for i := ch.n - 1; i >= 0; i-- {
		row, fi := ch.rows[i], ch.first[i]
		x[i] /= row[i-fi]
		for k := fi; k < i; k++ {
			x[k] -= row[k-fi] * x[i]
		}
	}
	return x, nil
}

// Solve solves A·x = b.
func (ch *Cholesky) Solve(b []float64) ([]float64, error) {
	y, err := ch.SolveL(b)
	if err != nil {
		return nil, err
	}
	return ch.SolveLT(y)
}

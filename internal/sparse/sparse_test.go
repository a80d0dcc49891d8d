package sparse

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
)

// ============================================================================
// helpers
// ============================================================================

// laplacian1D returns tridiag(-1, 2, -1) of order n.
func laplacian1D(t *testing.T, n int) *CSR {
	t.Helper()
	var entries []Triplet
	for i := 0; i < n; i++ {
		entries = append(entries, Triplet{i, i, 2})
		if i > 0 {
			entries = append(entries, Triplet{i, i - 1, -1}, Triplet{i - 1, i, -1})
		}
	}
	m, err := NewCSR(n, n, entries)
	require.NoError(t, err)
	return m
}

// periodicShifted returns the periodic Laplacian plus shift·I; its corners make
// the envelope an arrow.
func periodicShifted(t *testing.T, n int, shift float64) *CSR {
	t.Helper()
	var entries []Triplet
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		entries = append(entries,
			Triplet{i, i, 1}, Triplet{j, j, 1},
			Triplet{i, j, -1}, Triplet{j, i, -1})
	}
	m, err := NewCSR(n, n, entries)
	require.NoError(t, err)
	m, err = m.AddDiag(shift)
	require.NoError(t, err)
	return m
}

// ============================================================================
// CSR
// ============================================================================

func TestNewCSR_SumsDuplicatesAndDropsZeros(t *testing.T) {
	m, err := NewCSR(2, 3, []Triplet{{0, 1, 2}, {0, 1, 3}, {1, 2, 1}, {1, 2, -1}, {1, 0, 4}})
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 5.0, m.At(0, 1))
	assert.Equal(t, 0.0, m.At(1, 2))
	assert.Equal(t, 4.0, m.At(1, 0))
	assert.Equal(t, 2, m.NNZ())
}

func TestNewCSR_OutOfRange(t *testing.T) {
	_, err := NewCSR(2, 2, []Triplet{{2, 0, 1}})
	assert.True(t, errors.Is(err, core.ErrDimensionMismatch))
}

func TestCSR_ProductsAgreeWithDense(t *testing.T) {
	a, err := NewCSR(3, 2, []Triplet{{0, 0, 1}, {1, 0, -1}, {1, 1, 1}, {2, 1, -1}})
	require.NoError(t, err)
	x := []float64{2, 5}

	y, err := a.MulVec(x)
	require.NoError(t, err)
	var want mat.VecDense
	want.MulVec(a.Dense(), mat.NewVecDense(2, x))
	assert.InDeltaSlice(t, want.RawVector().Data, y, 1e-14)

	z := []float64{1, 2, 3}
	yt, err := a.MulTransVec(z)
	require.NoError(t, err)
	yt2, err := a.Transpose().MulVec(z)
	require.NoError(t, err)
	assert.InDeltaSlice(t, yt2, yt, 1e-14)

	var gram mat.Dense
	gram.Mul(a.Dense().T(), a.Dense())
	assert.True(t, mat.EqualApprox(&gram, a.Gram().Dense(), 1e-14))

	_, err = a.MulVec([]float64{1})
	assert.True(t, errors.Is(err, core.ErrDimensionMismatch))
}

func TestKronAndVStack(t *testing.T) {
	d, err := NewCSR(2, 2, []Triplet{{0, 0, 1}, {1, 0, -1}, {1, 1, 1}})
	require.NoError(t, err)
	i2 := Identity(2)

	k := Kron(i2, d)
	r, c := k.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, -1.0, k.At(3, 2))
	assert.Equal(t, 0.0, k.At(2, 1))

	kt := Kron(d, i2)
	assert.Equal(t, -1.0, kt.At(2, 0))

	s, err := VStack(k, kt)
	require.NoError(t, err)
	r, c = s.Dims()
	assert.Equal(t, 8, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, -1.0, s.At(6, 0))
}

func TestCSR_SymDenseAndSymmetry(t *testing.T) {
	l := laplacian1D(t, 4)
	assert.True(t, l.IsSymmetric(0))
	sym, err := l.SymDense()
	require.NoError(t, err)
	assert.Equal(t, -1.0, sym.At(2, 1))

	asym, err := NewCSR(2, 2, []Triplet{{0, 1, 1}})
	require.NoError(t, err)
	assert.False(t, asym.IsSymmetric(1e-12))
}

// ============================================================================
// Cholesky
// ============================================================================

func TestFactorize_MatchesDenseCholesky(t *testing.T) {
	for _, tc := range []struct {
		name string
		a    func(t *testing.T) *CSR
	}{
		{"tridiagonal", func(t *testing.T) *CSR { return laplacian1D(t, 12) }},
		{"periodic-arrow", func(t *testing.T) *CSR { return periodicShifted(t, 9, 1e-3) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := tc.a(t)
			ch, err := Factorize(a)
			require.NoError(t, err)

			sym, err := a.SymDense()
			require.NoError(t, err)
			var dense mat.Cholesky
			require.True(t, dense.Factorize(sym))

			var lower mat.TriDense
			dense.LTo(&lower)
			assert.True(t, mat.EqualApprox(&lower, ch.Lower().Dense(), 1e-10))
			assert.InDelta(t, dense.LogDet(), ch.LogDet(), 1e-9)

			var rebuilt mat.Dense
			l := ch.Lower().Dense()
			rebuilt.Mul(l, l.T())
			assert.True(t, mat.EqualApprox(&rebuilt, a.Dense(), 1e-10))
		})
	}
}

func TestCholesky_Solves(t *testing.T) {
	a := periodicShifted(t, 7, 0.5)
	ch, err := Factorize(a)
	require.NoError(t, err)

	b := []float64{1, -2, 0.5, 3, 0, -1, 2}
	x, err := ch.Solve(b)
	require.NoError(t, err)
	ax, err := a.MulVec(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, b, ax, 1e-10)

	// L·(L⁻¹b) = b and Lᵀ·(L⁻ᵀb) = b
	y, err := ch.SolveL(b)
	require.NoError(t, err)
	ly, err := ch.Lower().MulVec(y)
	require.NoError(t, err)
	assert.InDeltaSlice(t, b, ly, 1e-10)

	z, err := ch.SolveLT(b)
	require.NoError(t, err)
	ltz, err := ch.Lower().MulTransVec(z)
	require.NoError(t, err)
	assert.InDeltaSlice(t, b, ltz, 1e-10)
}

func TestFactorize_RejectsSingularAndIndefinite(t *testing.T) {
	// Periodic Laplacian without a shift has the constant vector in its null space.
	singular := periodicShifted(t, 6, 0)
	_, err := Factorize(singular)
	assert.True(t, errors.Is(err, core.ErrNotPositiveDefinite), "got %v", err)
	assert.True(t, core.IsNumericalError(err))

	indefinite, err := NewCSR(2, 2, []Triplet{{0, 0, 1}, {0, 1, 2}, {1, 0, 2}, {1, 1, 1}})
	require.NoError(t, err)
	_, err = Factorize(indefinite)
	assert.True(t, errors.Is(err, core.ErrNotPositiveDefinite))
}

func TestCholesky_DiagonalLogDet(t *testing.T) {
	ch, err := Factorize(laplacian1D(t, 5))
	require.NoError(t, err)
	// det(tridiag(-1,2,-1)) of order n is n+1
	assert.InDelta(t, math.Log(6), ch.LogDet(), 1e-12)
	assert.Len(t, ch.Diagonal(), 5)
	assert.Equal(t, 5, ch.Size())
}

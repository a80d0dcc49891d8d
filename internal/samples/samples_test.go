package samples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
	"gouq/domain/geometry"
)

// ramp returns two parameters over 10 draws: 0..9 and its negation.
func ramp(t *testing.T) *Samples {
	t.Helper()
	chain := mat.NewDense(2, 10, nil)
	for j := 0; j < 10; j++ {
		chain.Set(0, j, float64(j))
		chain.Set(1, j, -float64(j))
	}
	s, err := New(chain, nil)
	require.NoError(t, err)
	return s
}

func TestSamples_Moments(t *testing.T) {
	s := ramp(t)
	assert.Equal(t, 2, s.Dim())
	assert.Equal(t, 10, s.Len())

	mean, err := s.Mean()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4.5, -4.5}, mean, 1e-12)

	median, err := s.Median()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4.5, -4.5}, median, 1e-12)

	std, err := s.Std()
	require.NoError(t, err)
	assert.InDelta(t, 3.0276503540974917, std[0], 1e-12)

	cov := s.Covariance()
	assert.InDelta(t, -cov.At(0, 0), cov.At(0, 1), 1e-12)
}

func TestSamples_BurnThin(t *testing.T) {
	s := ramp(t)
	bt, err := s.BurnThin(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5, 8}, bt.Parameter(0))

	_, err = s.BurnThin(10, 1)
	assert.True(t, core.IsInvalidConfigError(err))
	_, err = s.BurnThin(0, 0)
	assert.True(t, core.IsInvalidConfigError(err))
}

func TestSamples_SummaryUsesGeometryLabels(t *testing.T) {
	chain := mat.NewDense(2, 200, nil)
	for j := 0; j < 200; j++ {
		chain.Set(0, j, float64(j%100))
		chain.Set(1, j, 1)
	}
	geom, err := geometry.NewDiscrete([]string{"alpha", "beta"})
	require.NoError(t, err)
	s, err := New(chain, geom)
	require.NoError(t, err)

	summary, err := s.Summarize(90)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "alpha", summary[0].Label)
	assert.Less(t, summary[0].Lower, summary[0].Median)
	assert.Greater(t, summary[0].Upper, summary[0].Median)
	assert.Equal(t, 1.0, summary[1].Lower)
	assert.Equal(t, 1.0, summary[1].Upper)
	assert.Equal(t, 0.0, summary[1].Std)
	assert.Equal(t, 1.0, summary[1].ESS)
	assert.Positive(t, summary[0].ESS)

	_, _, err = s.CredibleInterval(100)
	assert.True(t, core.IsInvalidConfigError(err))
}

func TestSamples_SummarizeShortChains(t *testing.T) {
	for _, n := range []int{1, 2, 3, 10, 19} {
		chain := mat.NewDense(1, n, nil)
		for j := 0; j < n; j++ {
			chain.Set(0, j, float64(j))
		}
		s, err := New(chain, nil)
		require.NoError(t, err)

		summary, err := s.Summarize(90)
		require.NoError(t, err, "n=%d", n)
		require.Len(t, summary, 1)
		assert.Equal(t, 0.0, summary[0].Lower, "n=%d", n)
		assert.Equal(t, float64(n-1), summary[0].Upper, "n=%d", n)
		assert.Positive(t, summary[0].ESS, "n=%d", n)
	}
}

func TestNew_RejectsMismatchedGeometry(t *testing.T) {
	geom, _ := geometry.NewDefault(3)
	_, err := New(mat.NewDense(2, 4, nil), geom)
	assert.True(t, core.IsInvalidConfigError(err))

	fun, err := ramp(t).FunctionValues(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, -3}, fun)
}

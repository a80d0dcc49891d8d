package testproblem

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gouq/internal"
	"gouq/internal/distribution"
	"gouq/internal/problem"
)

func TestNewDeblur_Shapes(t *testing.T) {
	d, err := NewDeblur(rand.New(rand.NewPCG(1, 1)), DefaultDeblurConfig())
	require.NoError(t, err)
	assert.Equal(t, 128, d.Dim())
	assert.Len(t, d.Data, 128)

	a, err := d.Model.Matrix()
	require.NoError(t, err)
	// the kernel is symmetric and each interior row integrates to about one
	assert.InDelta(t, a.At(3, 10), a.At(10, 3), 1e-15)
	var rowSum float64
	for j := 0; j < 128; j++ {
		rowSum += a.At(64, j)
	}
	assert.InDelta(t, 1, rowSum, 0.05)
}

func TestNewDeblur_SameSeedSameData(t *testing.T) {
	a, err := NewDeblur(rand.New(rand.NewPCG(7, 7)), DefaultDeblurConfig())
	require.NoError(t, err)
	b, err := NewDeblur(rand.New(rand.NewPCG(7, 7)), DefaultDeblurConfig())
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestDeblur_GaussianMAPRecoversSignal(t *testing.T) {
	cfg := DefaultDeblurConfig()
	cfg.N = 64
	d, err := NewDeblur(rand.New(rand.NewPCG(2, 3)), cfg)
	require.NoError(t, err)

	prior, err := distribution.IsotropicGaussian(distribution.ZeroMean(d.Dim()), 0.5, d.Dim())
	require.NoError(t, err)
	opts := problem.DefaultOptions()
	opts.Logger = internal.NewLogger(internal.LogLevelError)
	bm, err := d.Posterior(prior, opts)
	require.NoError(t, err)

	xMAP, err := bm.MAP()
	require.NoError(t, err)
	relErr, err := d.RelativeError(xMAP)
	require.NoError(t, err)
	assert.Less(t, relErr, 0.75)

	zeroErr, err := d.RelativeError(make([]float64, d.Dim()))
	require.NoError(t, err)
	assert.InDelta(t, 1, zeroErr, 1e-12)
}

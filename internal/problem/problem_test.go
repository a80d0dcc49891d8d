package problem

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
	"gouq/domain/geometry"
	"gouq/internal"
	"gouq/internal/distribution"
	"gouq/internal/model"
)

// ============================================================================
// Dispatch
// ============================================================================

func TestSelect_SamplingRuleOrder(t *testing.T) {
	const (
		gauss   = distribution.KindGaussian
		gmrf    = distribution.KindGMRF
		cauchy  = distribution.KindCauchyDiff
		laplace = distribution.KindLaplaceDiff
	)
	tests := []struct {
		name string
		k    Kinds
		want Strategy
	}{
		{"linear gaussian pair", Kinds{gauss, gauss, model.KindLinear}, StrategyGaussianExact},
		{"cauchy prior", Kinds{gauss, cauchy, model.KindLinear}, StrategyCWMH},
		{"laplace prior nonlinear", Kinds{gauss, laplace, model.KindNonlinear}, StrategyCWMH},
		{"gmrf prior linear", Kinds{gauss, gmrf, model.KindLinear}, StrategyPCN},
		{"gaussian prior nonlinear", Kinds{gauss, gauss, model.KindNonlinear}, StrategyPCN},
		{"gaussian prior without model", Kinds{gauss, gauss, model.KindNone}, StrategyPCN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select("posterior sampling", SamplingRules, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_NoStrategyNamesKinds(t *testing.T) {
	_, err := Select("posterior sampling", SamplingRules,
		Kinds{distribution.KindNormal, distribution.KindGamma, model.KindLinear})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoStrategy))
	for _, name := range []string{"Normal", "Gamma", "LinearModel"} {
		assert.Contains(t, err.Error(), name)
	}

	_, err = Select("MAP", MAPRules, Kinds{distribution.KindGaussian, distribution.KindGMRF, model.KindLinear})
	assert.True(t, errors.Is(err, core.ErrNoStrategy))
	assert.Contains(t, err.Error(), "GMRF")
}

// ============================================================================
// Linear-Gaussian problem
// ============================================================================

type linearGaussian struct {
	a     *mat.Dense
	data  []float64
	noise float64
	prior *distribution.Gaussian
	bm    *BayesianModel
}

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Logger = internal.NewLogger(internal.LogLevelError)
	return opts
}

func newLinearGaussian(t *testing.T, prior distribution.Density) *linearGaussian {
	t.Helper()
	a := mat.NewDense(3, 2, []float64{
		1, 0,
		0.5, 1,
		1, -1,
	})
	m, err := model.NewLinearModelFromMatrix(a, nil, nil)
	require.NoError(t, err)
	const noise = 0.3
	lik, err := GaussianLikelihood(m, []float64{noise, noise, noise}, mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
	require.NoError(t, err)

	p := &linearGaussian{a: a, data: []float64{0.9, 1.1, -0.2}, noise: noise}
	if prior == nil {
		p.prior, err = distribution.NewGaussian(distribution.FixedMean([]float64{0.2, 0.4}),
			[]float64{1, 0.8}, mat.NewSymDense(2, []float64{1, 0.3, 0.3, 1}))
		require.NoError(t, err)
		prior = p.prior
	}
	p.bm, err = NewBayesianModel(lik, prior, m, p.data, quietOptions())
	require.NoError(t, err)
	return p
}

// closedForm returns the posterior mean and covariance through the precision form
// (AᵀCe⁻¹A + Cx⁻¹)⁻¹(AᵀCe⁻¹b + Cx⁻¹x₀).
func (p *linearGaussian) closedForm(t *testing.T) (*mat.VecDense, *mat.Dense) {
	t.Helper()
	var priorPrec mat.SymDense
	require.NoError(t, p.prior.PrecisionTo(&priorPrec))

	var prec mat.Dense
	prec.Mul(p.a.T(), p.a)
	prec.Scale(1/(p.noise*p.noise), &prec)
	prec.Add(&prec, &priorPrec)
	var cov mat.Dense
	require.NoError(t, cov.Inverse(&prec))

	var rhs, fromPrior mat.VecDense
	rhs.MulVec(p.a.T(), mat.NewVecDense(3, p.data))
	rhs.ScaleVec(1/(p.noise*p.noise), &rhs)
	fromPrior.MulVec(&priorPrec, mat.NewVecDense(2, p.prior.MeanVector()))
	rhs.AddVec(&rhs, &fromPrior)
	var mean mat.VecDense
	mean.MulVec(&cov, &rhs)
	return &mean, &cov
}

func TestMAP_MatchesPrecisionForm(t *testing.T) {
	p := newLinearGaussian(t, nil)
	want, _ := p.closedForm(t)

	got, err := p.bm.MAP()
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.RawVector().Data, got, 1e-10)
}

func TestMAP_RejectsGMRFPrior(t *testing.T) {
	gmrf, err := distribution.NewGMRF(make([]float64, 2), 1, 2, 1, distribution.BCZero)
	require.NoError(t, err)
	p := newLinearGaussian(t, gmrf)

	_, err = p.bm.MAP()
	assert.True(t, core.IsUnsupportedError(err))
	assert.Contains(t, err.Error(), "GMRF")
}

func TestSamplePosterior_ExactGaussian(t *testing.T) {
	p := newLinearGaussian(t, nil)
	wantMean, wantCov := p.closedForm(t)

	post, err := p.bm.SamplePosterior(rand.New(rand.NewPCG(1, 2)), 30000)
	require.NoError(t, err)
	assert.Equal(t, StrategyGaussianExact, post.Strategy)
	assert.Equal(t, 30000, post.Samples.Len())

	mean, err := post.Samples.Mean()
	require.NoError(t, err)
	assert.InDeltaSlice(t, wantMean.RawVector().Data, mean, 0.01)
	assert.True(t, mat.EqualApprox(post.Samples.Covariance(), wantCov, 0.005),
		"covariance\n%v\nwant\n%v", mat.Formatted(post.Samples.Covariance()), mat.Formatted(wantCov))
}

func TestSamplePosterior_LaplacePriorUsesCWMH(t *testing.T) {
	prior, err := distribution.NewLaplaceDiff(make([]float64, 2), 0.5, distribution.BCZero)
	require.NoError(t, err)
	p := newLinearGaussian(t, prior)

	post, err := p.bm.SamplePosterior(rand.New(rand.NewPCG(3, 4)), 500)
	require.NoError(t, err)
	assert.Equal(t, StrategyCWMH, post.Strategy)
	assert.Equal(t, 100, post.Result.BurnIn)
	assert.Equal(t, 600, post.Result.Iterations)
	assert.Equal(t, 500, post.Samples.Len())
	assert.Len(t, post.Result.AcceptanceRate, 2)
}

func TestSamplePosterior_GMRFPriorUsesPCN(t *testing.T) {
	prior, err := distribution.NewGMRF(make([]float64, 2), 1, 2, 1, distribution.BCZero)
	require.NoError(t, err)
	p := newLinearGaussian(t, prior)

	post, err := p.bm.SamplePosterior(rand.New(rand.NewPCG(5, 6)), 200)
	require.NoError(t, err)
	assert.Equal(t, StrategyPCN, post.Strategy)
	assert.Equal(t, 0, post.Result.BurnIn)
	assert.Equal(t, []float64{0, 0}, post.Samples.Sample(0))
	assert.Equal(t, []float64{0.02}, post.Result.Scale)
}

func TestSamplePosterior_PropagatesForwardErrors(t *testing.T) {
	boom := errors.New("PDE solver did not converge")
	geom, err := geometry.NewDefault(2)
	require.NoError(t, err)
	m, err := model.NewModel(func([]float64) ([]float64, error) { return nil, boom }, geom, geom)
	require.NoError(t, err)
	lik, err := GaussianLikelihood(m, []float64{1, 1}, mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	require.NoError(t, err)
	prior, err := distribution.IsotropicGaussian(distribution.ZeroMean(2), 1, 2)
	require.NoError(t, err)

	bm, err := NewBayesianModel(lik, prior, m, []float64{0, 0}, quietOptions())
	require.NoError(t, err)
	_, err = bm.SamplePosterior(rand.New(rand.NewPCG(1, 1)), 10)
	assert.ErrorIs(t, err, boom)

	_, err = bm.MAP()
	assert.True(t, errors.Is(err, core.ErrNoStrategy))
}

func TestNewBayesianModel_DimensionChecks(t *testing.T) {
	p := newLinearGaussian(t, nil)
	m, err := model.NewLinearModelFromMatrix(p.a, nil, nil)
	require.NoError(t, err)
	lik, err := GaussianLikelihood(m, []float64{1, 1, 1}, mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
	require.NoError(t, err)

	_, err = NewBayesianModel(lik, p.prior, m, []float64{1, 2}, quietOptions())
	assert.True(t, core.IsInvalidConfigError(err))

	wide, err := distribution.IsotropicGaussian(distribution.ZeroMean(3), 1, 3)
	require.NoError(t, err)
	_, err = NewBayesianModel(lik, wide, m, p.data, quietOptions())
	assert.True(t, core.IsInvalidConfigError(err))
}

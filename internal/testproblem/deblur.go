// Package testproblem provides ready-made inverse problems for exercising
// priors and samplers end to end.
package testproblem

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
	"gouq/domain/geometry"
	"gouq/internal/distribution"
	"gouq/internal/model"
	"gouq/internal/problem"
)

// DeblurConfig parametrizes the 1-D deconvolution problem.
type DeblurConfig struct {
	N        int
	Kernel   float64
	NoiseStd float64
}

// DefaultDeblurConfig is 128 cells on [0, 1], kernel sharpness 48 and noise 0.05.
func DefaultDeblurConfig() DeblurConfig {
	return DeblurConfig{N: 128, Kernel: 48, NoiseStd: 0.05}
}

// Deblur is b = A·x + e on a uniform grid with the blurring kernel
// A_ij = h·(a/2)·exp(−a|tᵢ − tⱼ|) and e ~ N(0, σ²I).
type Deblur struct {
	Config     DeblurConfig
	Grid       *geometry.Continuous1D
	Model      *model.LinearModel
	Likelihood *distribution.Gaussian
	Truth      []float64
	Exact      []float64
	Data       []float64
}

// NewDeblur draws the observation noise from rng.
func NewDeblur(rng *rand.Rand, cfg DeblurConfig) (*Deblur, error) {
	if cfg.N < 2 {
		return nil, core.NewInvalidConfigError("N", cfg.N, "must be at least 2")
	}
	if !(cfg.Kernel > 0) || !(cfg.NoiseStd > 0) {
		return nil, core.NewInvalidConfigError("kernel/noise", cfg.Kernel, "must be positive")
	}
	grid, err := geometry.UniformGrid(0, 1, cfg.N)
	if err != nil {
		return nil, err
	}
	t := grid.Points()
	h := 1 / float64(cfg.N)

	a := mat.NewDense(cfg.N, cfg.N, nil)
	a.Apply(func(i, j int, _ float64) float64 {
		return h * cfg.Kernel / 2 * math.Exp(-cfg.Kernel*math.Abs(t[i]-t[j]))
	}, a)
	m, err := model.NewLinearModelFromMatrix(a, grid, grid)
	if err != nil {
		return nil, err
	}

	truth := make([]float64, cfg.N)
	for i, ti := range t {
		truth[i] = PiecewiseConstant(ti)
	}
	exact, err := m.Forward(truth)
	if err != nil {
		return nil, err
	}
	data := make([]float64, cfg.N)
	for i := range data {
		data[i] = exact[i] + cfg.NoiseStd*rng.NormFloat64()
	}

	std := make([]float64, cfg.N)
	corr := mat.NewSymDense(cfg.N, nil)
	for i := range std {
		std[i] = cfg.NoiseStd
		corr.SetSym(i, i, 1)
	}
	lik, err := problem.GaussianLikelihood(m, std, corr)
	if err != nil {
		return nil, err
	}

	return &Deblur{
		Config:     cfg,
		Grid:       grid,
		Model:      m,
		Likelihood: lik,
		Truth:      truth,
		Exact:      exact,
		Data:       data,
	}, nil
}

// PiecewiseConstant is the ground-truth signal: three plateaus of heights
// 1, 0.5 and 1.5 on [0.15, 0.35), [0.45, 0.6) and [0.7, 0.85).
func PiecewiseConstant(t float64) float64 {
	switch {
	case t >= 0.15 && t < 0.35:
		return 1
	case t >= 0.45 && t < 0.6:
		return 0.5
	case t >= 0.7 && t < 0.85:
		return 1.5
	}
	return 0
}

// Dim is the number of unknowns.
func (d *Deblur) Dim() int { return d.Config.N }

// Posterior composes the problem with a prior.
func (d *Deblur) Posterior(prior distribution.Density, opts problem.Options) (*problem.BayesianModel, error) {
	return problem.NewBayesianModel(d.Likelihood, prior, d.Model, d.Data, opts)
}

// RelativeError returns ‖x − truth‖ / ‖truth‖.
func (d *Deblur) RelativeError(x []float64) (float64, error) {
	if len(x) != len(d.Truth) {
		return 0, core.NewDimensionError("estimate", len(d.Truth), len(x))
	}
	var num, den float64
	for i := range x {
		diff := x[i] - d.Truth[i]
		num += diff * diff
		den += d.Truth[i] * d.Truth[i]
	}
	return math.Sqrt(num / den), nil
}

// Package samples holds posterior draws together with the geometry that
// gives them meaning, and computes the summaries reported for a run.
package samples

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	gstat "gonum.org/v1/gonum/stat"

	"gouq/domain/core"
	"gouq/domain/geometry"
	"gouq/domain/run"
	"gouq/internal/profiling"
)

// Samples is an immutable parameter_dim × num_samples chain.
type Samples struct {
	chain *mat.Dense
	geom  geometry.Geometry
}

// New copies the chain. A nil geometry selects geometry.Default.
func New(chain mat.Matrix, geom geometry.Geometry) (*Samples, error) {
	if chain == nil {
		return nil, core.NewInvalidConfigError("chain", nil, "must be provided")
	}
	dim, n := chain.Dims()
	if dim == 0 || n == 0 {
		return nil, core.NewInvalidConfigError("chain", fmt.Sprintf("%dx%d", dim, n), "must not be empty")
	}
	if geom == nil {
		var err error
		if geom, err = geometry.NewDefault(dim); err != nil {
			return nil, err
		}
	}
	if geom.ParDim() != dim {
		return nil, core.NewDimensionError("geometry", dim, geom.ParDim())
	}
	return &Samples{chain: mat.DenseCopyOf(chain), geom: geom}, nil
}

// Dim returns the parameter dimension.
func (s *Samples) Dim() int {
	r, _ := s.chain.Dims()
	return r
}

// Len returns the number of draws.
func (s *Samples) Len() int {
	_, c := s.chain.Dims()
	return c
}

func (s *Samples) Geometry() geometry.Geometry { return s.geom }

// Chain returns a copy of the underlying matrix.
func (s *Samples) Chain() *mat.Dense { return mat.DenseCopyOf(s.chain) }

// Sample returns draw j.
func (s *Samples) Sample(j int) []float64 { return mat.Col(nil, j, s.chain) }

// Parameter returns the trace of parameter i.
func (s *Samples) Parameter(i int) []float64 { return mat.Row(nil, i, s.chain) }

// FunctionValues maps draw j through the geometry.
func (s *Samples) FunctionValues(j int) ([]float64, error) {
	return s.geom.Par2Fun(s.Sample(j))
}

// BurnThin drops the first nb draws and keeps every nt-th of the rest.
func (s *Samples) BurnThin(nb, nt int) (*Samples, error) {
	if nb < 0 || nb >= s.Len() {
		return nil, core.NewInvalidConfigError("burn-in", nb, fmt.Sprintf("must be in [0, %d)", s.Len()))
	}
	if nt < 1 {
		return nil, core.NewInvalidConfigError("thinning", nt, "must be positive")
	}
	kept := (s.Len() - nb + nt - 1) / nt
	out := mat.NewDense(s.Dim(), kept, nil)
	for k := 0; k < kept; k++ {
		out.SetCol(k, s.Sample(nb+k*nt))
	}
	return &Samples{chain: out, geom: s.geom}, nil
}

func (s *Samples) perParameter(f func(stats.Float64Data) (float64, error)) ([]float64, error) {
	out := make([]float64, s.Dim())
	for i := range out {
		v, err := f(s.Parameter(i))
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (s *Samples) Mean() ([]float64, error)   { return s.perParameter(stats.Mean) }
func (s *Samples) Median() ([]float64, error) { return s.perParameter(stats.Median) }

// Std is the sample standard deviation; a single draw has zero spread.
func (s *Samples) Std() ([]float64, error) {
	if s.Len() < 2 {
		return make([]float64, s.Dim()), nil
	}
	return s.perParameter(stats.StandardDeviationSample)
}

// CredibleInterval returns the equal-tailed interval holding percent% of
// the draws of each parameter.
func (s *Samples) CredibleInterval(percent float64) (lower, upper []float64, err error) {
	if !(percent > 0 && percent < 100) {
		return nil, nil, core.NewInvalidConfigError("percent", percent, "must be in (0, 100)")
	}
	tail := (100 - percent) / 200
	if lower, err = s.perParameter(func(d stats.Float64Data) (float64, error) { return quantile(d, tail), nil }); err != nil {
		return nil, nil, err
	}
	if upper, err = s.perParameter(func(d stats.Float64Data) (float64, error) { return quantile(d, 1-tail), nil }); err != nil {
		return nil, nil, err
	}
	return lower, upper, nil
}

// quantile is the empirical p-quantile, defined for any non-empty trace.
func quantile(data []float64, p float64) float64 {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return gstat.Quantile(p, gstat.Empirical, sorted, nil)
}

// Covariance returns the sample covariance between parameters.
func (s *Samples) Covariance() *mat.SymDense {
	var cov mat.SymDense
	gstat.CovarianceMatrix(&cov, s.chain.T(), nil)
	return &cov
}

// Profile computes the mixing and shape diagnostics of every parameter trace.
func (s *Samples) Profile() ([]profiling.TraceProfile, error) {
	return profiling.NewChainProfiler().ProfileChain(s.chain)
}

// ESS returns the effective sample size of every parameter.
func (s *Samples) ESS() ([]float64, error) {
	profiles, err := s.Profile()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(profiles))
	for i, p := range profiles {
		out[i] = p.ESS
	}
	return out, nil
}

// Summarize computes the per-parameter summary with a percent% credible interval.
func (s *Samples) Summarize(percent float64) (run.Summaries, error) {
	mean, err := s.Mean()
	if err != nil {
		return nil, err
	}
	std, err := s.Std()
	if err != nil {
		return nil, err
	}
	median, err := s.Median()
	if err != nil {
		return nil, err
	}
	lower, upper, err := s.CredibleInterval(percent)
	if err != nil {
		return nil, err
	}
	ess, err := s.ESS()
	if err != nil {
		return nil, err
	}
	labels := s.geom.Labels()
	out := make(run.Summaries, s.Dim())
	for i := range out {
		out[i] = run.ParameterSummary{
			Index:  i,
			Label:  labels[i],
			Mean:   mean[i],
			Std:    std[i],
			Median: median[i],
			Lower:  lower[i],
			Upper:  upper[i],
			ESS:    ess[i],
		}
	}
	return out, nil
}

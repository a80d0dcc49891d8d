package distribution

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
)

// Mean is either a fixed vector or a function of a conditioning input.
// Likelihoods use the function form with the forward model as the mean.
type Mean struct {
	fixed []float64
	fn    func(cond []float64) ([]float64, error)
}

func FixedMean(v []float64) Mean {
	return Mean{fixed: append([]float64(nil), v...)}
}

func MeanFunc(fn func(cond []float64) ([]float64, error)) Mean {
	return Mean{fn: fn}
}

// ZeroMean returns a fixed zero mean of length n.
func ZeroMean(n int) Mean { return Mean{fixed: make([]float64, n)} }

func (m Mean) IsFunc() bool { return m.fn != nil }

// Vector returns the fixed mean, or nil for a function mean.
func (m Mean) Vector() []float64 {
	if m.fn != nil {
		return nil
	}
	return append([]float64(nil), m.fixed...)
}

// Evaluate returns the mean at cond; a fixed mean ignores cond.
func (m Mean) Evaluate(cond []float64) ([]float64, error) {
	if m.fn == nil {
		return m.fixed, nil
	}
	return m.fn(cond)
}

// Gaussian is a multivariate normal with covariance diag(std)·R·diag(std).
// The Cholesky factor of the covariance, its inverse and the log-determinant
// are computed once at construction.
type Gaussian struct {
	mean         Mean
	std          []float64
	corr         *mat.SymDense
	cov          *mat.SymDense
	chol         mat.Cholesky
	lower        *mat.TriDense
	lowerInv     *mat.TriDense
	logDet       float64
	uncorrelated bool
}

// NewGaussian validates shapes and factorizes the covariance. A covariance
// that is not positive definite yields a numerical error naming it.
func NewGaussian(mean Mean, std []float64, corr *mat.SymDense) (*Gaussian, error) {
	n := len(std)
	if n == 0 {
		return nil, core.NewInvalidConfigError("std", "[]", "must not be empty")
	}
	if corr == nil {
		return nil, core.NewInvalidConfigError("correlation", nil, "must be provided")
	}
	if corr.SymmetricDim() != n {
		return nil, core.NewDimensionError("correlation", n, corr.SymmetricDim())
	}
	if !mean.IsFunc() {
		if err := checkLen("mean", mean.fixed, n); err != nil {
			return nil, err
		}
	}
	for _, s := range std {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, core.NewInvalidConfigError("std", s, "entries must be positive and finite")
		}
	}

	g := &Gaussian{
		mean:         mean,
		std:          append([]float64(nil), std...),
		corr:         mat.NewSymDense(n, nil),
		cov:          mat.NewSymDense(n, nil),
		uncorrelated: true,
	}
	g.corr.CopySym(corr)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := corr.At(i, j)
			if i != j && r != 0 {
				g.uncorrelated = false
			}
			g.cov.SetSym(i, j, std[i]*r*std[j])
		}
	}

	if ok := g.chol.Factorize(g.cov); !ok {
		return nil, core.NewNumericalError("covariance", core.ErrNotPositiveDefinite)
	}
	g.lower = mat.NewTriDense(n, mat.Lower, nil)
	g.chol.LTo(g.lower)
	g.lowerInv = mat.NewTriDense(n, mat.Lower, nil)
	if err := g.lowerInv.InverseTri(g.lower); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, core.NewNumericalError("covariance", err)
		}
	}

	if g.uncorrelated {
		for _, s := range std {
			g.logDet += 2 * math.Log(s)
		}
	} else {
		g.logDet = g.chol.LogDet()
	}
	return g, nil
}

// IsotropicGaussian is N(mean, std²·I).
func IsotropicGaussian(mean Mean, std float64, dim int) (*Gaussian, error) {
	if dim < 1 {
		return nil, core.NewInvalidConfigError("dimension", dim, "must be positive")
	}
	stds := make([]float64, dim)
	for i := range stds {
		stds[i] = std
	}
	return NewGaussian(mean, stds, identitySym(dim))
}

func identitySym(n int) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, 1)
	}
	return s
}

func (g *Gaussian) Kind() Kind            { return KindGaussian }
func (g *Gaussian) Dim() int              { return len(g.std) }
func (g *Gaussian) Mean() Mean            { return g.mean }
func (g *Gaussian) LogDet() float64       { return g.logDet }
func (g *Gaussian) Uncorrelated() bool    { return g.uncorrelated }
func (g *Gaussian) Std() []float64        { return append([]float64(nil), g.std...) }
func (g *Gaussian) MeanVector() []float64 { return g.mean.Vector() }

// Covariance returns a copy of diag(std)·R·diag(std).
func (g *Gaussian) Covariance() *mat.SymDense {
	c := mat.NewSymDense(g.Dim(), nil)
	c.CopySym(g.cov)
	return c
}

// CholeskyLower returns a copy of the lower factor L with LLᵀ = Σ.
func (g *Gaussian) CholeskyLower() *mat.TriDense {
	l := mat.NewTriDense(g.Dim(), mat.Lower, nil)
	g.chol.LTo(l)
	return l
}

// PrecisionTo stores Σ⁻¹ in dst.
func (g *Gaussian) PrecisionTo(dst *mat.SymDense) error {
	if err := g.chol.InverseTo(dst); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return core.NewNumericalError("covariance", err)
		}
	}
	return nil
}

// LogPDF evaluates the density for a fixed-mean Gaussian.
func (g *Gaussian) LogPDF(x []float64) (float64, error) {
	if g.mean.IsFunc() {
		return 0, core.NewUnsupportedError("unconditioned LogPDF", "Gaussian with input-dependent mean")
	}
	return g.logPDFAt(x, g.mean.fixed)
}

// LogPDFGiven evaluates log p(x | cond), computing the mean from cond.
func (g *Gaussian) LogPDFGiven(x, cond []float64) (float64, error) {
	mu, err := g.mean.Evaluate(cond)
	if err != nil {
		return 0, err
	}
	return g.logPDFAt(x, mu)
}

// LogPDFBatch evaluates one point per row of xs.
func (g *Gaussian) LogPDFBatch(xs mat.Matrix) ([]float64, error) {
	if g.mean.IsFunc() {
		return nil, core.NewUnsupportedError("unconditioned LogPDF", "Gaussian with input-dependent mean")
	}
	r, c := xs.Dims()
	if c != g.Dim() {
		return nil, core.NewDimensionError("batch columns", g.Dim(), c)
	}
	out := make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, xs)
		lp, err := g.logPDFAt(row, g.mean.fixed)
		if err != nil {
			return nil, err
		}
		out[i] = lp
	}
	return out, nil
}

// logPDFAt returns −½(n·log 2π + log|Σ| + ‖L⁻¹(x−μ)‖²).
func (g *Gaussian) logPDFAt(x, mu []float64) (float64, error) {
	n := g.Dim()
	if err := checkLen("x", x, n); err != nil {
		return 0, err
	}
	if err := checkLen("mean", mu, n); err != nil {
		return 0, err
	}
	diff := mat.NewVecDense(n, nil)
	for i := range x {
		diff.SetVec(i, x[i]-mu[i])
	}
	var z mat.VecDense
	z.MulVec(g.lowerInv, diff)
	quad := mat.Dot(&z, &z)
	return -0.5 * (float64(n)*log2Pi + g.logDet + quad), nil
}

func (g *Gaussian) PDF(x []float64) (float64, error) { return pdfFromLog(g.LogPDF, x) }

// Sample draws μ + L·ξ column by column.
func (g *Gaussian) Sample(rng *rand.Rand, count int) (*mat.Dense, error) {
	if g.mean.IsFunc() {
		return nil, core.NewUnsupportedError("direct sampling", "Gaussian with input-dependent mean")
	}
	if err := checkSampleCount(count); err != nil {
		return nil, err
	}
	n := g.Dim()
	xi := mat.NewDense(n, count, nil)
	for j := 0; j < count; j++ {
		for i := 0; i < n; i++ {
			xi.Set(i, j, rng.NormFloat64())
		}
	}
	out := mat.NewDense(n, count, nil)
	out.Mul(g.lower, xi)
	for i := 0; i < n; i++ {
		for j := 0; j < count; j++ {
			out.Set(i, j, out.At(i, j)+g.mean.fixed[i])
		}
	}
	return out, nil
}

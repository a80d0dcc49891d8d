package distribution

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
	"gouq/internal/sparse"
)

// differencePenalty holds what CauchyDiff and LaplaceDiff share: a location,
// a scale and the difference operator applied to x − location.
type differencePenalty struct {
	location []float64
	scale    float64
	bc       BoundaryCondition
	d        *sparse.CSR
}

func newDifferencePenalty(location []float64, scale float64, bc BoundaryCondition) (differencePenalty, error) {
	if len(location) == 0 {
		return differencePenalty{}, core.NewInvalidConfigError("location", "[]", "must not be empty")
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return differencePenalty{}, core.NewInvalidConfigError("scale", scale, "must be positive and finite")
	}
	d, err := DifferenceOperator(bc, len(location))
	if err != nil {
		return differencePenalty{}, err
	}
	loc := make([]float64, len(location))
	copy(loc, location)
	return differencePenalty{location: loc, scale: scale, bc: bc, d: d}, nil
}

func (p differencePenalty) Dim() int                             { return len(p.location) }
func (p differencePenalty) Scale() float64                       { return p.scale }
func (p differencePenalty) BoundaryCondition() BoundaryCondition { return p.bc }
func (p differencePenalty) DifferenceOperator() *sparse.CSR      { return p.d }

func (p differencePenalty) Location() []float64 {
	out := make([]float64, len(p.location))
	copy(out, p.location)
	return out
}

// differences returns D(x − location).
func (p differencePenalty) differences(x []float64) ([]float64, error) {
	if err := checkLen("x", x, len(p.location)); err != nil {
		return nil, err
	}
	centered := make([]float64, len(x))
	for i := range x {
		centered[i] = x[i] - p.location[i]
	}
	return p.d.MulVec(centered)
}

// ============================================================================
// Cauchy
// ============================================================================

// CauchyDiff places independent Cauchy densities on the differences of x.
// It favours piecewise constant fields with sharp jumps.
type CauchyDiff struct {
	differencePenalty
}

// NewCauchyDiff builds the density; an unknown boundary condition is an
// invalid configuration.
func NewCauchyDiff(location []float64, scale float64, bc BoundaryCondition) (*CauchyDiff, error) {
	p, err := newDifferencePenalty(location, scale, bc)
	if err != nil {
		return nil, err
	}
	return &CauchyDiff{differencePenalty: p}, nil
}

func (c *CauchyDiff) Kind() Kind { return KindCauchyDiff }

// LogPDF returns −m·log π + Σᵢ [log γ − log(Dxᵢ² + γ²)] with m = rows(D).
func (c *CauchyDiff) LogPDF(x []float64) (float64, error) {
	dx, err := c.differences(x)
	if err != nil {
		return 0, err
	}
	logScale := math.Log(c.scale)
	s2 := c.scale * c.scale
	lp := -float64(len(dx)) * math.Log(math.Pi)
	for _, v := range dx {
		lp += logScale - math.Log(v*v+s2)
	}
	return lp, nil
}

func (c *CauchyDiff) PDF(x []float64) (float64, error) { return pdfFromLog(c.LogPDF, x) }

// Sample is not available in closed form; use an MCMC sampler.
func (c *CauchyDiff) Sample(*rand.Rand, int) (*mat.Dense, error) {
	return nil, core.NewUnsupportedError("direct sampling", "CauchyDiff")
}

// ============================================================================
// Laplace
// ============================================================================

// LaplaceDiff places independent Laplace densities on the differences of x,
// the discrete total-variation prior.
type LaplaceDiff struct {
	differencePenalty
}

func NewLaplaceDiff(location []float64, scale float64, bc BoundaryCondition) (*LaplaceDiff, error) {
	p, err := newDifferencePenalty(location, scale, bc)
	if err != nil {
		return nil, err
	}
	return &LaplaceDiff{differencePenalty: p}, nil
}

func (l *LaplaceDiff) Kind() Kind { return KindLaplaceDiff }

// LogPDF returns −m·(log 2 + log b) − ‖Dx‖₁/b.
func (l *LaplaceDiff) LogPDF(x []float64) (float64, error) {
	dx, err := l.differences(x)
	if err != nil {
		return 0, err
	}
	var l1 float64
	for _, v := range dx {
		l1 += math.Abs(v)
	}
	return -float64(len(dx))*(math.Ln2+math.Log(l.scale)) - l1/l.scale, nil
}

func (l *LaplaceDiff) PDF(x []float64) (float64, error) { return pdfFromLog(l.LogPDF, x) }

func (l *LaplaceDiff) Sample(*rand.Rand, int) (*mat.Dense, error) {
	return nil, core.NewUnsupportedError("direct sampling", "LaplaceDiff")
}

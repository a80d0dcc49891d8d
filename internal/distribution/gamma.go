package distribution

import (
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"gouq/domain/core"
)

// Gamma is a vector of independent Gamma(shape, rate) variables, typically
// used as a hyperprior on precisions.
type Gamma struct {
	shape []float64
	rate  []float64
}

func NewGamma(shape, rate []float64) (*Gamma, error) {
	if len(shape) == 0 {
		return nil, core.NewInvalidConfigError("shape", "[]", "must not be empty")
	}
	if err := checkLen("rate", rate, len(shape)); err != nil {
		return nil, err
	}
	for i := range shape {
		if !(shape[i] > 0) || !(rate[i] > 0) {
			return nil, core.NewInvalidConfigError("shape/rate", strconv.Itoa(i), "must be positive")
		}
	}
	return &Gamma{shape: append([]float64(nil), shape...), rate: append([]float64(nil), rate...)}, nil
}

func (g *Gamma) Kind() Kind { return KindGamma }
func (g *Gamma) Dim() int   { return len(g.shape) }

// MeanVector returns shape/rate.
func (g *Gamma) MeanVector() []float64 {
	out := make([]float64, len(g.shape))
	for i := range out {
		out[i] = g.shape[i] / g.rate[i]
	}
	return out
}

// LogPDF is −∞ outside the positive orthant.
func (g *Gamma) LogPDF(x []float64) (float64, error) {
	if err := checkLen("x", x, g.Dim()); err != nil {
		return 0, err
	}
	var lp float64
	for i, v := range x {
		if v <= 0 {
			return math.Inf(-1), nil
		}
		a, b := g.shape[i], g.rate[i]
		lg, _ := math.Lgamma(a)
		lp += a*math.Log(b) - lg + (a-1)*math.Log(v) - b*v
	}
	return lp, nil
}

func (g *Gamma) PDF(x []float64) (float64, error) { return pdfFromLog(g.LogPDF, x) }

// CDF returns the regularized lower incomplete gamma function per component.
func (g *Gamma) CDF(x []float64) ([]float64, error) {
	if err := checkLen("x", x, g.Dim()); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		if v > 0 {
			out[i] = mathext.GammaIncReg(g.shape[i], g.rate[i]*v)
		}
	}
	return out, nil
}

func (g *Gamma) Sample(rng *rand.Rand, count int) (*mat.Dense, error) {
	if err := checkSampleCount(count); err != nil {
		return nil, err
	}
	out := mat.NewDense(g.Dim(), count, nil)
	for i := range g.shape {
		d := distuv.Gamma{Alpha: g.shape[i], Beta: g.rate[i], Src: rng}
		for j := 0; j < count; j++ {
			out.Set(i, j, d.Rand())
		}
	}
	return out, nil
}

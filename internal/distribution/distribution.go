// Package distribution implements the probability densities used as priors
// and likelihoods: difference-penalized Cauchy and Laplace fields, iid Normal,
// Gamma, general-covariance Gaussian and Gaussian Markov random fields.
//
// Every constructor performs its factorizations eagerly and returns an
// immutable value. Sampling takes an explicit *rand.Rand so that draws are
// reproducible; samples are returned column-wise as a dim × n matrix.
package distribution

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
)

// Kind tags the concrete distribution family. Dispatch in the problem layer
// matches on kinds instead of concrete Go types.
type Kind string

const (
	KindGaussian    Kind = "Gaussian"
	KindGMRF        Kind = "GMRF"
	KindCauchyDiff  Kind = "CauchyDiff"
	KindLaplaceDiff Kind = "LaplaceDiff"
	KindNormal      Kind = "Normal"
	KindGamma       Kind = "Gamma"
)

func (k Kind) String() string { return string(k) }

// Density is the evaluation capability shared by all distributions.
type Density interface {
	Kind() Kind
	Dim() int
	LogPDF(x []float64) (float64, error)
	PDF(x []float64) (float64, error)
}

// Distribution adds sampling. Families without a closed-form sampler return
// an error wrapping core.ErrUnsupported.
type Distribution interface {
	Density
	Sample(rng *rand.Rand, n int) (*mat.Dense, error)
}

// Centered is implemented by distributions with a fixed mean vector.
type Centered interface {
	MeanVector() []float64
}

var log2Pi = math.Log(2 * math.Pi)

func checkLen(what string, x []float64, want int) error {
	if len(x) != want {
		return core.NewDimensionError(what, want, len(x))
	}
	return nil
}

func checkSampleCount(n int) error {
	if n < 1 {
		return core.NewInvalidConfigError("n", n, "sample count must be positive")
	}
	return nil
}

func pdfFromLog(logpdf func([]float64) (float64, error), x []float64) (float64, error) {
	lp, err := logpdf(x)
	if err != nil {
		return 0, err
	}
	return math.Exp(lp), nil
}

package distribution

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"gouq/domain/core"
)

// Normal is a vector of independent univariate normals.
type Normal struct {
	mean []float64
	std  []float64
}

func NewNormal(mean, std []float64) (*Normal, error) {
	if len(mean) == 0 {
		return nil, core.NewInvalidConfigError("mean", "[]", "must not be empty")
	}
	if err := checkLen("std", std, len(mean)); err != nil {
		return nil, err
	}
	for i, s := range std {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, core.NewInvalidConfigError("std", s, fmt.Sprintf("entry %d must be positive and finite", i))
		}
	}
	return &Normal{mean: append([]float64(nil), mean...), std: append([]float64(nil), std...)}, nil
}

func (n *Normal) Kind() Kind            { return KindNormal }
func (n *Normal) Dim() int              { return len(n.mean) }
func (n *Normal) MeanVector() []float64 { return append([]float64(nil), n.mean...) }
func (n *Normal) Std() []float64        { return append([]float64(nil), n.std...) }

func (n *Normal) component(i int, src rand.Source) distuv.Normal {
	return distuv.Normal{Mu: n.mean[i], Sigma: n.std[i], Src: src}
}

func (n *Normal) LogPDF(x []float64) (float64, error) {
	if err := checkLen("x", x, n.Dim()); err != nil {
		return 0, err
	}
	var lp float64
	for i, v := range x {
		lp += n.component(i, nil).LogProb(v)
	}
	return lp, nil
}

func (n *Normal) PDF(x []float64) (float64, error) { return pdfFromLog(n.LogPDF, x) }

// CDF returns the componentwise cumulative probabilities.
func (n *Normal) CDF(x []float64) ([]float64, error) {
	if err := checkLen("x", x, n.Dim()); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = n.component(i, nil).CDF(v)
	}
	return out, nil
}

func (n *Normal) Sample(rng *rand.Rand, count int) (*mat.Dense, error) {
	if err := checkSampleCount(count); err != nil {
		return nil, err
	}
	out := mat.NewDense(n.Dim(), count, nil)
	for i := range n.mean {
		d := n.component(i, rng)
		for j := 0; j < count; j++ {
			out.Set(i, j, d.Rand())
		}
	}
	return out, nil
}

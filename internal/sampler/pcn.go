package sampler

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
)

// Prior is the Gaussian reference measure pCN proposes from.
type Prior interface {
	Dim() int
	Sample(rng *rand.Rand, n int) (*mat.Dense, error)
}

// PCN is the preconditioned Crank–Nicolson sampler. Proposals
//
//	x' = μ + √(1−β²)(x − μ) + β(ξ − μ),  ξ ~ prior
//
// leave the prior invariant, so the acceptance ratio involves the
// likelihood only.
type PCN struct {
	target Target
	prior  Prior
	mean   []float64
	beta   float64
	x0     []float64
	opts   options
}

// NewPCN takes the log-likelihood as target. The prior mean is read from a
// MeanVector method when the prior has one and is zero otherwise.
func NewPCN(target Target, prior Prior, beta float64, x0 []float64, opts ...Option) (*PCN, error) {
	if target == nil || prior == nil {
		return nil, core.NewInvalidConfigError("target/prior", nil, "must be provided")
	}
	if !(beta > 0) || beta > 1 {
		return nil, core.NewInvalidConfigError("beta", beta, "must be in (0, 1]")
	}
	dim := prior.Dim()
	if x0 == nil {
		x0 = make([]float64, dim)
	}
	if len(x0) != dim {
		return nil, core.NewDimensionError("x0", dim, len(x0))
	}
	mean := make([]float64, dim)
	if c, ok := prior.(interface{ MeanVector() []float64 }); ok {
		if m := c.MeanVector(); len(m) == dim {
			copy(mean, m)
		}
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PCN{
		target: target,
		prior:  prior,
		mean:   mean,
		beta:   beta,
		x0:     append([]float64(nil), x0...),
		opts:   o,
	}, nil
}

// Sample runs Ns+Nb iterations and returns the last Ns states.
func (p *PCN) Sample(rng *rand.Rand, ns, nb int) (*Result, error) {
	if err := checkRun(ns, nb); err != nil {
		return nil, err
	}
	start := time.Now()
	dim, total := len(p.x0), ns+nb
	x := append([]float64(nil), p.x0...)
	tx, err := p.target(x)
	if err != nil {
		return nil, err
	}
	c := newChain(dim, total)
	c.record(0, x, tx)

	keep := math.Sqrt(1 - p.beta*p.beta)
	proposal := make([]float64, dim)
	xi := make([]float64, dim)
	accepted, postAccepted := 0, 0

	for it := 1; it < total; it++ {
		draw, err := p.prior.Sample(rng, 1)
		if err != nil {
			return nil, err
		}
		mat.Col(xi, 0, draw)
		for i := range proposal {
			proposal[i] = p.mean[i] + keep*(x[i]-p.mean[i]) + p.beta*(xi[i]-p.mean[i])
		}
		tp, err := p.target(proposal)
		if err != nil {
			return nil, err
		}
		if accept(rng, tp-tx) {
			copy(x, proposal)
			tx = tp
			accepted++
			if it >= nb {
				postAccepted++
			}
		}
		c.record(it, x, tx)
		p.opts.report(it+1, total)
	}

	chainOut, targetOut := c.emit(nb)
	rate := 0.0
	if n := postBurnIn(ns, nb); n > 0 {
		rate = float64(postAccepted) / float64(n)
	}
	return &Result{
		Chain:          chainOut,
		TargetEval:     targetOut,
		Accepted:       []int{accepted},
		AcceptanceRate: []float64{rate},
		Scale:          []float64{p.beta},
		BurnIn:         nb,
		Iterations:     total,
		Elapsed:        time.Since(start),
	}, nil
}

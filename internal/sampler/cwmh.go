package sampler

import (
	"math"
	"math/rand/v2"
	"time"

	"gouq/domain/core"
)

// Acceptance band targeted while adapting CWMH scales.
const (
	AcceptanceLow  = 0.20
	AcceptanceHigh = 0.50
)

// CWMH is an adaptive component-wise Metropolis–Hastings sampler. Each sweep
// proposes every coordinate in turn from Normal(xᵢ, scaleᵢ) and accepts it
// with probability min(1, exp(Δ)).
type CWMH struct {
	target Target
	x0     []float64
	scale  []float64
	opts   options
}

// NewCWMH copies x0 and the initial per-coordinate scales.
func NewCWMH(target Target, x0, scale []float64, opts ...Option) (*CWMH, error) {
	if target == nil {
		return nil, core.NewInvalidConfigError("target", nil, "must be provided")
	}
	if len(x0) == 0 {
		return nil, core.NewInvalidConfigError("x0", "[]", "must not be empty")
	}
	if len(scale) != len(x0) {
		return nil, core.NewDimensionError("scale", len(x0), len(scale))
	}
	for _, s := range scale {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, core.NewInvalidConfigError("scale", s, "must be positive and finite")
		}
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &CWMH{
		target: target,
		x0:     append([]float64(nil), x0...),
		scale:  append([]float64(nil), scale...),
		opts:   o,
	}, nil
}

// Constant fills a vector of length n with v, for uniform x0 and scales.
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// AdaptationWindow is the number of sweeps between scale updates for a
// burn-in of nb iterations.
func AdaptationWindow(nb int) int {
	return max(1, min(100, nb/10))
}

// adaptScale moves a scale toward the acceptance band; it is unchanged
// inside the band.
func adaptScale(scale, rate float64) float64 {
	switch {
	case rate > AcceptanceHigh:
		return scale * math.Exp(rate-AcceptanceHigh)
	case rate < AcceptanceLow:
		return scale * math.Exp(rate-AcceptanceLow)
	}
	return scale
}

// Sample runs Ns+Nb iterations and returns the last Ns states. Scales adapt
// only during the first Nb iterations.
func (s *CWMH) Sample(rng *rand.Rand, ns, nb int) (*Result, error) {
	if err := checkRun(ns, nb); err != nil {
		return nil, err
	}
	start := time.Now()
	dim, total := len(s.x0), ns+nb
	x := append([]float64(nil), s.x0...)
	scale := append([]float64(nil), s.scale...)

	tx, err := s.target(x)
	if err != nil {
		return nil, err
	}
	c := newChain(dim, total)
	c.record(0, x, tx)

	accepted := make([]int, dim)
	postAccepted := make([]int, dim)
	window := AdaptationWindow(nb)
	windowAccepted := make([]int, dim)
	sweeps := 0

	for it := 1; it < total; it++ {
		for i := 0; i < dim; i++ {
			old := x[i]
			x[i] = old + scale[i]*rng.NormFloat64()
			tp, err := s.target(x)
			if err != nil {
				return nil, err
			}
			if accept(rng, tp-tx) {
				tx = tp
				accepted[i]++
				windowAccepted[i]++
				if it >= nb {
					postAccepted[i]++
				}
			} else {
				x[i] = old
			}
		}
		c.record(it, x, tx)

		if it < nb {
			sweeps++
			if sweeps == window {
				for i := range scale {
					scale[i] = adaptScale(scale[i], float64(windowAccepted[i])/float64(window))
					windowAccepted[i] = 0
				}
				sweeps = 0
			}
		}
		s.opts.report(it+1, total)
	}

	chainOut, targetOut := c.emit(nb)
	rates := make([]float64, dim)
	if n := postBurnIn(ns, nb); n > 0 {
		for i := range rates {
			rates[i] = float64(postAccepted[i]) / float64(n)
		}
	}
	return &Result{
		Chain:          chainOut,
		TargetEval:     targetOut,
		Accepted:       accepted,
		AcceptanceRate: rates,
		Scale:          scale,
		BurnIn:         nb,
		Iterations:     total,
		Elapsed:        time.Since(start),
	}, nil
}

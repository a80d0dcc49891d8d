// Package sampler implements the Markov chain Monte Carlo samplers used for
// posteriors without closed-form draws: adaptive component-wise
// Metropolis–Hastings and preconditioned Crank–Nicolson.
//
// A sampler run keeps x₀ as column 0 of a chain of Ns+Nb states and returns
// the last Ns. Samplers are single-threaded and draw all randomness from the
// *rand.Rand they are given.
package sampler

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
)

// DefaultProgressInterval is the number of iterations between progress reports.
const DefaultProgressInterval = 500

// Target is an unnormalized log-density. Errors abort the run unchanged.
type Target func(x []float64) (float64, error)

// ProgressFunc receives the number of completed iterations out of total.
type ProgressFunc func(done, total int)

// Result is what survives a sampler run.
type Result struct {
	// Chain holds one post burn-in state per column.
	Chain *mat.Dense
	// TargetEval is the target log-density of each emitted state.
	TargetEval []float64
	// Accepted counts accepted proposals over the whole run, per coordinate
	// for CWMH and as a single entry for pCN.
	Accepted []int
	// AcceptanceRate is the post burn-in acceptance rate, shaped like Accepted.
	AcceptanceRate []float64
	// Scale holds the proposal scales in force at the end of the run.
	Scale      []float64
	BurnIn     int
	Iterations int
	Elapsed    time.Duration
}

// Dim returns the parameter dimension of the chain.
func (r *Result) Dim() int {
	d, _ := r.Chain.Dims()
	return d
}

// Samples returns the number of emitted states.
func (r *Result) Samples() int {
	_, n := r.Chain.Dims()
	return n
}

// Option configures a sampler.
type Option func(*options)

type options struct {
	progress ProgressFunc
	every    int
}

func defaultOptions() options {
	return options{every: DefaultProgressInterval}
}

// WithProgress reports progress every `every` iterations; every < 1 selects
// DefaultProgressInterval.
func WithProgress(fn ProgressFunc, every int) Option {
	return func(o *options) {
		o.progress = fn
		if every > 0 {
			o.every = every
		}
	}
}

func (o options) report(done, total int) {
	if o.progress != nil && (done%o.every == 0 || done == total) {
		o.progress(done, total)
	}
}

// chain accumulates states and target values for a run of Ns+Nb columns.
type chain struct {
	states *mat.Dense
	target []float64
}

func newChain(dim, total int) *chain {
	return &chain{states: mat.NewDense(dim, total, nil), target: make([]float64, total)}
}

func (c *chain) record(s int, x []float64, t float64) {
	c.states.SetCol(s, x)
	c.target[s] = t
}

// emit drops the first nb columns.
func (c *chain) emit(nb int) (*mat.Dense, []float64) {
	dim, total := c.states.Dims()
	out := mat.NewDense(dim, total-nb, nil)
	out.Copy(c.states.Slice(0, dim, nb, total))
	return out, append([]float64(nil), c.target[nb:]...)
}

func checkRun(ns, nb int) error {
	if ns < 1 {
		return core.NewInvalidConfigError("Ns", ns, "number of samples must be positive")
	}
	if nb < 0 {
		return core.NewInvalidConfigError("Nb", nb, "burn-in must be non-negative")
	}
	return nil
}

// accept is the Metropolis test log u ≤ Δ with a fresh uniform draw.
func accept(rng *rand.Rand, delta float64) bool {
	return math.Log(rng.Float64()) <= delta
}

// postBurnIn is the number of transitions that produced emitted states.
func postBurnIn(ns, nb int) int {
	if nb == 0 {
		return ns - 1
	}
	return ns
}

package problem

import (
	"gouq/domain/core"
	"gouq/internal/distribution"
	"gouq/internal/model"
)

// Kinds is the (likelihood, prior, model) tuple that dispatch matches on.
type Kinds struct {
	Likelihood distribution.Kind
	Prior      distribution.Kind
	Model      model.Kind
}

// Strategy names a way of computing the MAP or drawing posterior samples.
type Strategy string

const (
	StrategyGaussianMAP   Strategy = "gaussian-map"
	StrategyGaussianExact Strategy = "gaussian-exact"
	StrategyCWMH          Strategy = "cwmh"
	StrategyPCN           Strategy = "pcn"
)

// Rule maps a kind pattern to a strategy.
type Rule struct {
	Strategy Strategy
	Matches  func(Kinds) bool
}

// MAPRules lists the closed-form MAP estimators.
var MAPRules = []Rule{
	{StrategyGaussianMAP, func(k Kinds) bool {
		return k.Likelihood == distribution.KindGaussian &&
			k.Prior == distribution.KindGaussian &&
			k.Model == model.KindLinear
	}},
}

// SamplingRules are evaluated in order and the first match wins. A GMRF
// prior has its own kind, so a Gaussian/GMRF/linear problem falls through
// the exact rule to pCN.
var SamplingRules = []Rule{
	{StrategyGaussianExact, func(k Kinds) bool {
		return k.Likelihood == distribution.KindGaussian &&
			k.Prior == distribution.KindGaussian &&
			k.Model == model.KindLinear
	}},
	{StrategyCWMH, func(k Kinds) bool {
		return k.Likelihood == distribution.KindGaussian &&
			(k.Prior == distribution.KindCauchyDiff || k.Prior == distribution.KindLaplaceDiff)
	}},
	{StrategyPCN, func(k Kinds) bool {
		return k.Likelihood == distribution.KindGaussian &&
			(k.Prior == distribution.KindGaussian || k.Prior == distribution.KindGMRF)
	}},
}

// Select returns the strategy of the first matching rule, or a no-strategy
// error naming all three kinds.
func Select(operation string, rules []Rule, k Kinds) (Strategy, error) {
	for _, r := range rules {
		if r.Matches(k) {
			return r.Strategy, nil
		}
	}
	return "", core.NewNoStrategyError(operation, string(k.Likelihood), string(k.Prior), string(k.Model))
}

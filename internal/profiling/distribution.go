// Package profiling characterizes the marginal traces of a Markov chain:
// autocorrelation, effective sample size and the shape of each marginal.
package profiling

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// normalityAlpha is the Jarque-Bera significance level for IsNormal.
const normalityAlpha = 0.05

// TraceProfile summarizes one parameter's trace.
type TraceProfile struct {
	ESS        float64 `json:"ess"`
	IAT        float64 `json:"iat"`
	Skewness   float64 `json:"skewness"`
	Kurtosis   float64 `json:"kurtosis"`
	NormalityP float64 `json:"normality_p"`
	IsNormal   bool    `json:"is_normal"`
	Outliers   int     `json:"outliers"`
}

// ChainProfiler profiles every row of a parameters × samples chain
type ChainProfiler struct{}

// NewChainProfiler creates a new chain profiler
func NewChainProfiler() *ChainProfiler {
	return &ChainProfiler{}
}

// ProfileChain profiles each parameter trace of chain.
func (cp *ChainProfiler) ProfileChain(chain mat.Matrix) ([]TraceProfile, error) {
	dim, n := chain.Dims()
	if dim == 0 || n == 0 {
		return nil, fmt.Errorf("cannot profile an empty %dx%d chain", dim, n)
	}
	out := make([]TraceProfile, dim)
	for i := range out {
		p, err := cp.ProfileTrace(mat.Row(nil, i, chain))
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// ProfileTrace computes the mixing and shape statistics of one trace.
func (cp *ChainProfiler) ProfileTrace(data []float64) (TraceProfile, error) {
	var profile TraceProfile

	mean, err := stats.Mean(data)
	if err != nil {
		return profile, err
	}
	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return profile, err
	}

	// A frozen trace carries the information of a single draw.
	if stdDev == 0 {
		profile.IAT = float64(len(data))
		profile.ESS = 1
		return profile, nil
	}
	profile.IAT = IntegratedAutocorrelationTime(data)
	profile.ESS = float64(len(data)) / profile.IAT

	profile.Skewness = calculateSkewness(data, mean, stdDev)
	profile.Kurtosis = calculateKurtosis(data, mean, stdDev)
	profile.NormalityP = jarqueBera(len(data), profile.Skewness, profile.Kurtosis)
	profile.IsNormal = profile.NormalityP > normalityAlpha

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	q25 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q75 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	profile.Outliers = detectOutliers(data, q25, q75)
	return profile, nil
}

// calculateSkewness computes the moment skewness of data
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 {
		return 0
	}
	var sum float64
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	return sum / float64(len(data))
}

// calculateKurtosis computes the moment excess kurtosis of data
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 {
		return 0
	}
	var sum float64
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}
	return sum/float64(len(data)) - 3
}

// jarqueBera returns the asymptotic p-value of the Jarque-Bera statistic
// n/6·(S² + K²/4), which is χ² with two degrees of freedom under normality.
func jarqueBera(n int, skewness, excessKurtosis float64) float64 {
	if n < 4 {
		return 1
	}
	jb := float64(n) / 6 * (skewness*skewness + excessKurtosis*excessKurtosis/4)
	return 1 - distuv.ChiSquared{K: 2}.CDF(jb)
}

// detectOutliers counts points outside the 1.5·IQR fences
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}

// clampIAT keeps ESS below n·log₁₀(n) for antithetic chains.
func clampIAT(tau float64, n int) float64 {
	if n < 10 {
		return math.Max(tau, 1)
	}
	return math.Max(tau, 1/math.Log10(float64(n)))
}

package profiling

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Autocorrelation returns the normalized autocorrelation of data at lags
// 0..maxLag, computed with a zero-padded FFT. A constant trace has ρ₀ = 1 and
// every other lag zero.
func Autocorrelation(data []float64, maxLag int) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	if maxLag < 0 || maxLag > n-1 {
		maxLag = n - 1
	}

	var mean float64
	for _, x := range data {
		mean += x
	}
	mean /= float64(n)

	m := 1
	for m < 2*n {
		m <<= 1
	}
	seq := make([]float64, m)
	for i, x := range data {
		seq[i] = x - mean
	}

	fft := fourier.NewFFT(m)
	coeff := fft.Coefficients(nil, seq)
	for i, c := range coeff {
		a := cmplx.Abs(c)
		coeff[i] = complex(a*a, 0)
	}
	acov := fft.Sequence(nil, coeff)

	rho := make([]float64, maxLag+1)
	rho[0] = 1
	if acov[0] <= 0 {
		return rho
	}
	for k := 1; k <= maxLag; k++ {
		rho[k] = acov[k] / acov[0]
	}
	return rho
}

// IntegratedAutocorrelationTime estimates τ = 1 + 2·Σρₖ with Geyer's initial
// monotone sequence: lag pairs are summed while positive and forced to be
// non-increasing. The effective sample size is n/τ.
func IntegratedAutocorrelationTime(data []float64) float64 {
	n := len(data)
	if n < 4 {
		return 1
	}
	rho := Autocorrelation(data, n-1)

	var sum float64
	prev := rho[0] + rho[1]
	if prev <= 0 {
		return clampIAT(2*prev-1, n)
	}
	sum = prev
	for k := 2; k+1 < n; k += 2 {
		pair := rho[k] + rho[k+1]
		if pair <= 0 {
			break
		}
		if pair > prev {
			pair = prev
		}
		sum += pair
		prev = pair
	}
	return clampIAT(2*sum-1, n)
}

package distribution

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
	"gouq/internal/sparse"
)

// LogDetEigenThreshold is the largest dimension for which the log
// pseudo-determinant of a rank-deficient structure matrix is computed exactly
// from its eigenvalues. Above it the regularized Cholesky diagonal is used.
const LogDetEigenThreshold = 5000

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)

// GMRF is a Gaussian Markov random field on a regular 1-D or 2-D grid with
// precision prec·L, where L = DᵀD is built from first-order differences.
type GMRF struct {
	mean   []float64
	prec   float64
	n      int
	domain int
	bc     BoundaryCondition

	d         *sparse.CSR
	structure *sparse.CSR
	chol      *sparse.Cholesky
	rank      int
	logDet    float64

	// spectrum holds the eigenvalues of L in Fourier order; periodic only.
	spectrum []float64
}

// NewGMRF builds the field on n points per axis, so len(mean) must be n for
// domain 1 and n² for domain 2. The backward boundary is not a valid GMRF
// boundary condition.
func NewGMRF(mean []float64, prec float64, n, domain int, bc BoundaryCondition) (*GMRF, error) {
	if !(prec > 0) || math.IsInf(prec, 0) {
		return nil, core.NewInvalidConfigError("prec", prec, "must be positive and finite")
	}
	if n < 2 {
		return nil, core.NewInvalidConfigError("partition size", n, "must be at least 2")
	}
	if domain != 1 && domain != 2 {
		return nil, core.NewInvalidConfigError("domain", domain, "must be 1 or 2")
	}
	switch bc {
	case BCZero, BCPeriodic, BCNeumann, BCNone:
	default:
		return nil, core.NewInvalidConfigError("boundary condition", string(bc),
			"GMRF supports zero, periodic, neumann or none")
	}
	dim := n
	if domain == 2 {
		dim = n * n
	}
	if err := checkLen("mean", mean, dim); err != nil {
		return nil, err
	}

	g := &GMRF{
		mean:   append([]float64(nil), mean...),
		prec:   prec,
		n:      n,
		domain: domain,
		bc:     bc,
	}
	d1, err := DifferenceOperator(bc, n)
	if err != nil {
		return nil, err
	}
	// In 2-D both axes are stacked for every boundary, so none gives L = 2I.
	if domain == 1 {
		g.d = d1
	} else {
		id := sparse.Identity(n)
		if g.d, err = sparse.VStack(sparse.Kron(id, d1), sparse.Kron(d1, id)); err != nil {
			return nil, err
		}
	}
	g.structure = g.d.Gram()

	if err := g.factorize(); err != nil {
		return nil, err
	}
	if bc == BCPeriodic {
		g.spectrum = periodicSpectrum(d1, n, domain)
	}
	return g, nil
}

// factorize computes the rank, the Cholesky factor and the log-determinant.
func (g *GMRF) factorize() error {
	dim := g.Dim()
	g.rank = dim
	target := g.structure
	if g.bc == BCPeriodic || g.bc == BCNeumann {
		g.rank = dim - 1
		reg, err := g.structure.AddDiag(sqrtEps)
		if err != nil {
			return err
		}
		target = reg
	}

	chol, err := sparse.Factorize(target)
	if err != nil {
		return core.NewNumericalError("GMRF structure matrix", err)
	}
	g.chol = chol

	if g.rank == dim || dim > LogDetEigenThreshold {
		g.logDet = chol.LogDet()
		return nil
	}
	logDet, err := pseudoLogDet(g.structure, g.rank)
	if err != nil {
		return err
	}
	g.logDet = logDet
	return nil
}

// pseudoLogDet sums the logs of the rank largest eigenvalues of a.
func pseudoLogDet(a *sparse.CSR, rank int) (float64, error) {
	sym, err := a.SymDense()
	if err != nil {
		return 0, err
	}
	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return 0, core.NewNumericalError("GMRF structure matrix", core.ErrSingular)
	}
	vals := es.Values(nil)
	var s float64
	for _, v := range vals[len(vals)-rank:] {
		if !(v > 0) {
			return 0, core.NewNumericalError("GMRF structure matrix", core.ErrNotPositiveDefinite)
		}
		s += math.Log(v)
	}
	return s, nil
}

// periodicSpectrum diagonalizes the circulant structure matrix with the FFT of
// its first column. In 2-D the eigenvalue of mode (k₁, k₂) is μ_{k₁} + μ_{k₂}.
// The zero DC eigenvalue is replaced by the largest one.
func periodicSpectrum(d1 *sparse.CSR, n, domain int) []float64 {
	l1 := d1.Gram()
	kernel := make([]complex128, n)
	for i := range kernel {
		kernel[i] = complex(l1.At(i, 0), 0)
	}
	coeff := fourier.NewCmplxFFT(n).Coefficients(nil, kernel)
	mu := make([]float64, n)
	for k, c := range coeff {
		mu[k] = real(c)
	}

	lam := mu
	if domain == 2 {
		lam = make([]float64, n*n)
		for k1 := 0; k1 < n; k1++ {
			for k2 := 0; k2 < n; k2++ {
				lam[k1*n+k2] = mu[k1] + mu[k2]
			}
		}
	}
	largest := lam[0]
	for _, v := range lam[1:] {
		largest = max(largest, v)
	}
	lam[0] = largest
	return lam
}

func (g *GMRF) Kind() Kind                           { return KindGMRF }
func (g *GMRF) Dim() int                             { return len(g.mean) }
func (g *GMRF) Rank() int                            { return g.rank }
func (g *GMRF) LogDet() float64                      { return g.logDet }
func (g *GMRF) Precision() float64                   { return g.prec }
func (g *GMRF) PartitionSize() int                   { return g.n }
func (g *GMRF) Domain() int                          { return g.domain }
func (g *GMRF) BoundaryCondition() BoundaryCondition { return g.bc }
func (g *GMRF) StructureMatrix() *sparse.CSR         { return g.structure }
func (g *GMRF) DifferenceOperator() *sparse.CSR      { return g.d }
func (g *GMRF) MeanVector() []float64                { return append([]float64(nil), g.mean...) }

// Spectrum returns the Fourier-ordered eigenvalues used for periodic sampling,
// or nil for other boundary conditions.
func (g *GMRF) Spectrum() []float64 {
	if g.spectrum == nil {
		return nil
	}
	return append([]float64(nil), g.spectrum...)
}

// LogPDF returns ½(rank·(log prec − log 2π) + logdet) − ½·prec·(x−μ)ᵀL(x−μ).
func (g *GMRF) LogPDF(x []float64) (float64, error) {
	if err := checkLen("x", x, g.Dim()); err != nil {
		return 0, err
	}
	diff := make([]float64, len(x))
	for i := range x {
		diff[i] = x[i] - g.mean[i]
	}
	quad, err := g.structure.QuadForm(diff)
	if err != nil {
		return 0, err
	}
	c := 0.5 * (float64(g.rank)*(math.Log(g.prec)-log2Pi) + g.logDet)
	return c - 0.5*g.prec*quad, nil
}

// LogPDFColumns evaluates LogPDF for each column of xs.
func (g *GMRF) LogPDFColumns(xs mat.Matrix) ([]float64, error) {
	r, c := xs.Dims()
	if r != g.Dim() {
		return nil, core.NewDimensionError("column length", g.Dim(), r)
	}
	out := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, xs)
		lp, err := g.LogPDF(col)
		if err != nil {
			return nil, err
		}
		out[j] = lp
	}
	return out, nil
}

func (g *GMRF) PDF(x []float64) (float64, error) { return pdfFromLog(g.LogPDF, x) }

// Sample draws count fields as the columns of a dim × count matrix.
func (g *GMRF) Sample(rng *rand.Rand, count int) (*mat.Dense, error) {
	if err := checkSampleCount(count); err != nil {
		return nil, err
	}
	var draw func(*rand.Rand) ([]float64, error)
	switch g.bc {
	case BCZero:
		draw = g.drawZero
	case BCPeriodic:
		fft := fourier.NewCmplxFFT(g.n)
		draw = func(rng *rand.Rand) ([]float64, error) { return g.drawPeriodic(rng, fft), nil }
	case BCNeumann:
		draw = g.drawNeumann
	default:
		return nil, core.NewInvalidConfigError("boundary condition", string(g.bc), "GMRF sampling is not supported")
	}

	out := mat.NewDense(g.Dim(), count, nil)
	scale := 1 / math.Sqrt(g.prec)
	for j := 0; j < count; j++ {
		z, err := draw(rng)
		if err != nil {
			return nil, err
		}
		for i, v := range z {
			out.Set(i, j, g.mean[i]+scale*v)
		}
	}
	return out, nil
}

func standardNormals(rng *rand.Rand, n int) []float64 {
	xi := make([]float64, n)
	for i := range xi {
		xi[i] = rng.NormFloat64()
	}
	return xi
}

// drawZero solves Lᵀz = ξ with the Cholesky factor of the structure matrix.
func (g *GMRF) drawZero(rng *rand.Rand) ([]float64, error) {
	return g.chol.SolveLT(standardNormals(rng, g.Dim()))
}

// drawNeumann maps ξ through Q⁻¹Dᵀ, where Q is the regularized structure matrix.
func (g *GMRF) drawNeumann(rng *rand.Rand) ([]float64, error) {
	rows, _ := g.d.Dims()
	v, err := g.d.MulTransVec(standardNormals(rng, rows))
	if err != nil {
		return nil, err
	}
	return g.chol.Solve(v)
}

// drawPeriodic returns Re(F*·Λ^{-1/2}·ξ) for complex standard normal ξ, with
// F the unitary DFT applied along each grid axis.
func (g *GMRF) drawPeriodic(rng *rand.Rand, fft *fourier.CmplxFFT) []float64 {
	dim, n := g.Dim(), g.n
	y := make([]complex128, dim)
	for k := range y {
		s := 1 / math.Sqrt(g.spectrum[k])
		y[k] = complex(s*rng.NormFloat64(), s*rng.NormFloat64())
	}

	if g.domain == 1 {
		y = fft.Sequence(nil, y)
	} else {
		buf := make([]complex128, n)
		for r := 0; r < n; r++ {
			fft.Sequence(buf, y[r*n:(r+1)*n])
			copy(y[r*n:(r+1)*n], buf)
		}
		col := make([]complex128, n)
		for c := 0; c < n; c++ {
			for r := 0; r < n; r++ {
				col[r] = y[r*n+c]
			}
			fft.Sequence(buf, col)
			for r := 0; r < n; r++ {
				y[r*n+c] = buf[r]
			}
		}
	}

	norm := 1 / math.Sqrt(float64(dim))
	z := make([]float64, dim)
	for i, v := range y {
		z[i] = real(v) * norm
	}
	return z
}

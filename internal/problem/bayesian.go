// Package problem composes a likelihood, a prior, a forward model and data
// into a posterior, and dispatches MAP estimation and posterior sampling to
// the strategy that fits the combination.
package problem

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
	"gouq/domain/geometry"
	"gouq/internal"
	"gouq/internal/distribution"
	"gouq/internal/model"
	"gouq/internal/sampler"
	"gouq/internal/samples"
)

// Likelihood is a data density whose mean depends on the parameters.
type Likelihood interface {
	distribution.Density
	LogPDFGiven(data, x []float64) (float64, error)
}

// Options holds the sampler settings used by the dispatch strategies.
type Options struct {
	CWMHScale        float64
	CWMHInitial      float64
	BurnInFraction   float64
	PCNScale         float64
	ProgressInterval int
	Logger           *internal.Logger
	// OnProgress, when set, is called alongside the progress log line.
	OnProgress       func(done, total int)
}

// DefaultOptions returns scale 0.05 and start 0.5 for CWMH with a 20%
// burn-in, and β = 0.02 for pCN.
func DefaultOptions() Options {
	return Options{
		CWMHScale:        0.05,
		CWMHInitial:      0.5,
		BurnInFraction:   0.2,
		PCNScale:         0.02,
		ProgressInterval: sampler.DefaultProgressInterval,
		Logger:           internal.DefaultLogger,
	}
}

// BayesianModel references its parts without owning or changing them.
type BayesianModel struct {
	likelihood Likelihood
	prior      distribution.Density
	model      model.Model
	data       []float64
	opts       Options
}

// Posterior is the outcome of SamplePosterior.
type Posterior struct {
	Strategy Strategy
	Samples  *samples.Samples
	Result   *sampler.Result
}

// NewBayesianModel checks that data, likelihood, prior and model agree on
// dimensions. The model may be nil.
func NewBayesianModel(likelihood Likelihood, prior distribution.Density, m model.Model, data []float64, opts Options) (*BayesianModel, error) {
	if likelihood == nil || prior == nil {
		return nil, core.NewInvalidConfigError("likelihood/prior", nil, "must be provided")
	}
	if len(data) != likelihood.Dim() {
		return nil, core.NewDimensionError("data", likelihood.Dim(), len(data))
	}
	if m != nil {
		if d := m.DomainGeometry().ParDim(); d != prior.Dim() {
			return nil, core.NewDimensionError("prior", d, prior.Dim())
		}
		if r := m.RangeGeometry().ParDim(); r != likelihood.Dim() {
			return nil, core.NewDimensionError("likelihood", r, likelihood.Dim())
		}
	}
	if opts.Logger == nil {
		opts.Logger = internal.DefaultLogger
	}
	return &BayesianModel{
		likelihood: likelihood,
		prior:      prior,
		model:      m,
		data:       append([]float64(nil), data...),
		opts:       opts,
	}, nil
}

// GaussianLikelihood is N(m.Forward(x), diag(std)·R·diag(std)) as a
// density over the data.
func GaussianLikelihood(m model.Model, std []float64, corr *mat.SymDense) (*distribution.Gaussian, error) {
	if m == nil {
		return nil, core.NewInvalidConfigError("model", nil, "must be provided")
	}
	return distribution.NewGaussian(distribution.MeanFunc(m.Forward), std, corr)
}

// Kinds returns the dispatch key of the model.
func (b *BayesianModel) Kinds() Kinds {
	return Kinds{
		Likelihood: b.likelihood.Kind(),
		Prior:      b.prior.Kind(),
		Model:      model.KindOf(b.model),
	}
}

func (b *BayesianModel) Dim() int { return b.prior.Dim() }

// LogLikelihood returns log p(data | x).
func (b *BayesianModel) LogLikelihood(x []float64) (float64, error) {
	return b.likelihood.LogPDFGiven(b.data, x)
}

// LogPosterior returns the unnormalized log p(x | data).
func (b *BayesianModel) LogPosterior(x []float64) (float64, error) {
	ll, err := b.LogLikelihood(x)
	if err != nil {
		return 0, err
	}
	lp, err := b.prior.LogPDF(x)
	if err != nil {
		return 0, err
	}
	return ll + lp, nil
}

// gaussianParts unpacks the linear-Gaussian problem shared by the MAP and
// exact sampling strategies.
type gaussianParts struct {
	lik   *distribution.Gaussian
	prior *distribution.Gaussian
	a     *mat.Dense
	x0    *mat.VecDense
}

func (b *BayesianModel) linearGaussian(operation string) (*gaussianParts, error) {
	k := b.Kinds()
	lik, ok1 := b.likelihood.(*distribution.Gaussian)
	prior, ok2 := b.prior.(*distribution.Gaussian)
	lin, ok3 := b.model.(model.Linear)
	if !ok1 || !ok2 || !ok3 {
		return nil, core.NewNoStrategyError(operation, fmt.Sprintf("%T", b.likelihood), fmt.Sprintf("%T", b.prior), string(k.Model))
	}
	x0 := prior.MeanVector()
	if x0 == nil {
		return nil, core.NewUnsupportedError(operation, "Gaussian prior with input-dependent mean")
	}
	a, err := lin.Matrix()
	if err != nil {
		return nil, err
	}
	return &gaussianParts{lik: lik, prior: prior, a: a, x0: mat.NewVecDense(len(x0), x0)}, nil
}

// MAP returns x₀ + Cₓ·Aᵀ·(A·Cₓ·Aᵀ + Cₑ)⁻¹·(b − A·x₀). It exists only for a
// Gaussian likelihood and prior with a linear model.
func (b *BayesianModel) MAP() ([]float64, error) {
	if _, err := Select("MAP", MAPRules, b.Kinds()); err != nil {
		return nil, err
	}
	p, err := b.linearGaussian("MAP")
	if err != nil {
		return nil, err
	}
	return p.mapEstimate(b.data)
}

func (p *gaussianParts) mapEstimate(data []float64) ([]float64, error) {
	m, n := p.a.Dims()
	cx := p.prior.Covariance()

	var cxAt mat.Dense
	cxAt.Mul(cx, p.a.T())
	var k mat.Dense
	k.Mul(p.a, &cxAt)
	k.Add(&k, p.lik.Covariance())
	kSym := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			kSym.SetSym(i, j, 0.5*(k.At(i, j)+k.At(j, i)))
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(kSym) {
		return nil, core.NewNumericalError("A·Cx·Aᵀ + Ce", core.ErrNotPositiveDefinite)
	}

	residual := mat.NewVecDense(m, append([]float64(nil), data...))
	var ax mat.VecDense
	ax.MulVec(p.a, p.x0)
	residual.SubVec(residual, &ax)

	var z mat.VecDense
	if err := chol.SolveVecTo(&z, residual); err != nil && !isCondition(err) {
		return nil, core.NewNumericalError("A·Cx·Aᵀ + Ce", err)
	}
	x := mat.NewVecDense(n, nil)
	x.MulVec(&cxAt, &z)
	x.AddVec(x, p.x0)
	return x.RawVector().Data, nil
}

// SamplePosterior draws ns posterior samples with the first matching
// sampling strategy.
func (b *BayesianModel) SamplePosterior(rng *rand.Rand, ns int) (*Posterior, error) {
	if ns < 1 {
		return nil, core.NewInvalidConfigError("Ns", ns, "number of samples must be positive")
	}
	strategy, err := Select("posterior sampling", SamplingRules, b.Kinds())
	if err != nil {
		return nil, err
	}

	var res *sampler.Result
	switch strategy {
	case StrategyGaussianExact:
		res, err = b.sampleExact(rng, ns)
	case StrategyCWMH:
		res, err = b.sampleCWMH(rng, ns)
	case StrategyPCN:
		res, err = b.samplePCN(rng, ns)
	}
	if err != nil {
		return nil, err
	}

	s, err := samples.New(res.Chain, b.parameterGeometry())
	if err != nil {
		return nil, err
	}
	return &Posterior{Strategy: strategy, Samples: s, Result: res}, nil
}

func (b *BayesianModel) parameterGeometry() geometry.Geometry {
	if b.model != nil {
		return b.model.DomainGeometry()
	}
	return nil
}

func (b *BayesianModel) progress(name string) sampler.Option {
	return sampler.WithProgress(b.reporter(name), b.opts.ProgressInterval)
}

func (b *BayesianModel) reporter(name string) sampler.ProgressFunc {
	log := b.opts.Logger.With(name)
	notify := b.opts.OnProgress
	return func(done, total int) {
		log.Info("sample %d / %d", done, total)
		if notify != nil {
			notify(done, total)
		}
	}
}

// sampleExact draws MAP + U⁻¹ξ where UᵀU = AᵀCₑ⁻¹A + Cₓ⁻¹, so the draws have
// the exact posterior covariance.
func (b *BayesianModel) sampleExact(rng *rand.Rand, ns int) (*sampler.Result, error) {
	start := time.Now()
	log := b.opts.Logger.With("GaussianPosterior")
	p, err := b.linearGaussian("posterior sampling")
	if err != nil {
		return nil, err
	}
	xMAP, err := p.mapEstimate(b.data)
	if err != nil {
		return nil, err
	}

	n := len(xMAP)
	var likPrec, priorPrec mat.SymDense
	if err := p.lik.PrecisionTo(&likPrec); err != nil {
		return nil, err
	}
	if err := p.prior.PrecisionTo(&priorPrec); err != nil {
		return nil, err
	}
	var tmp, post mat.Dense
	tmp.Mul(&likPrec, p.a)
	post.Mul(p.a.T(), &tmp)
	post.Add(&post, &priorPrec)
	postSym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			postSym.SetSym(i, j, 0.5*(post.At(i, j)+post.At(j, i)))
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(postSym) {
		return nil, core.NewNumericalError("posterior precision", core.ErrNotPositiveDefinite)
	}
	var u mat.TriDense
	chol.UTo(&u)

	chain := mat.NewDense(n, ns, nil)
	targets := make([]float64, ns)
	xi := mat.NewVecDense(n, nil)
	var x mat.VecDense
	every := max(1, b.opts.ProgressInterval)
	report := b.reporter("GaussianPosterior")
	for j := 0; j < ns; j++ {
		for i := 0; i < n; i++ {
			xi.SetVec(i, rng.NormFloat64())
		}
		if err := x.SolveVec(&u, xi); err != nil && !isCondition(err) {
			return nil, core.NewNumericalError("posterior precision", err)
		}
		for i := 0; i < n; i++ {
			x.SetVec(i, x.AtVec(i)+xMAP[i])
		}
		chain.SetCol(j, x.RawVector().Data)
		if targets[j], err = b.LogPosterior(x.RawVector().Data); err != nil {
			return nil, err
		}
		if (j+1)%every == 0 || j+1 == ns {
			report(j+1, ns)
		}
	}
	elapsed := time.Since(start)
	log.Info("drew %d exact samples in %s", ns, elapsed)

	return &sampler.Result{
		Chain:          chain,
		TargetEval:     targets,
		Accepted:       []int{ns},
		AcceptanceRate: []float64{1},
		Iterations:     ns,
		Elapsed:        elapsed,
	}, nil
}

// sampleCWMH targets the full posterior from x = 0.5 with a 20% burn-in.
func (b *BayesianModel) sampleCWMH(rng *rand.Rand, ns int) (*sampler.Result, error) {
	dim := b.Dim()
	s, err := sampler.NewCWMH(b.LogPosterior,
		sampler.Constant(dim, b.opts.CWMHInitial),
		sampler.Constant(dim, b.opts.CWMHScale),
		b.progress("CWMH"))
	if err != nil {
		return nil, err
	}
	nb := int(b.opts.BurnInFraction * float64(ns))
	res, err := s.Sample(rng, ns, nb)
	if err != nil {
		return nil, err
	}
	b.opts.Logger.With("CWMH").Info("finished %d iterations in %s, mean acceptance %.3f",
		res.Iterations, res.Elapsed, floats.Sum(res.AcceptanceRate)/float64(len(res.AcceptanceRate)))
	return res, nil
}

// samplePCN targets the likelihood only; the prior enters through the proposal.
func (b *BayesianModel) samplePCN(rng *rand.Rand, ns int) (*sampler.Result, error) {
	prior, ok := b.prior.(sampler.Prior)
	if !ok {
		return nil, core.NewUnsupportedError("pCN proposals", fmt.Sprintf("%T prior without sampling", b.prior))
	}
	s, err := sampler.NewPCN(b.LogLikelihood, prior, b.opts.PCNScale, nil, b.progress("pCN"))
	if err != nil {
		return nil, err
	}
	res, err := s.Sample(rng, ns, 0)
	if err != nil {
		return nil, err
	}
	b.opts.Logger.With("pCN").Info("finished %d iterations in %s, acceptance %.3f",
		res.Iterations, res.Elapsed, res.AcceptanceRate[0])
	return res, nil
}

func isCondition(err error) bool {
	var c mat.Condition
	return errors.As(err, &c)
}

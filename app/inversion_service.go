package app

import (
	"context"
	"time"

	"gouq/domain/core"
	"gouq/domain/run"
	"gouq/internal"
	"gouq/internal/config"
	"gouq/internal/distribution"
	"gouq/internal/errors"
	"gouq/internal/problem"
	"gouq/internal/testproblem"
	"gouq/ports"
)

// CredibleLevel is the percent credible interval reported for every parameter
const CredibleLevel = 90

// RNG stream names. Synthetic data and the sampler draw from separate
// streams so a run's data depends only on its seed.
const (
	streamData    = "data"
	streamSampler = "sampler"
)

// InversionService runs MAP estimation and posterior sampling on the
// deblurring problem and records each run
type InversionService struct {
	repo     ports.RunRepository
	exporter ports.SampleExporter
	rng      ports.RNGPort
	events   ports.RunEvents
	cfg      config.SamplingConfig
	logger   *internal.Logger
}

// NewInversionService wires the service. exporter may be nil to skip file export.
func NewInversionService(repo ports.RunRepository, exporter ports.SampleExporter, rng ports.RNGPort, cfg config.SamplingConfig, logger *internal.Logger) *InversionService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &InversionService{
		repo:     repo,
		exporter: exporter,
		rng:      rng,
		cfg:      cfg,
		logger:   logger.With("InversionService"),
	}
}

// WithEvents installs a listener for run progress and completion
func (s *InversionService) WithEvents(events ports.RunEvents) *InversionService {
	s.events = events
	return s
}

// MAPResult is the outcome of a MAP request
type MAPResult struct {
	Request       run.Request `json:"request"`
	Grid          []float64   `json:"grid"`
	Estimate      []float64   `json:"estimate"`
	Truth         []float64   `json:"truth"`
	RelativeError float64     `json:"relative_error"`
}

// Prepare normalizes and validates a request against the configured limits
func (s *InversionService) Prepare(req run.Request) (run.Request, error) {
	req = req.Normalize(run.Defaults{
		Samples:    s.cfg.DefaultSamples,
		MaxSamples: s.cfg.MaxSamples,
		N:          testproblem.DefaultDeblurConfig().N,
		NoiseStd:   testproblem.DefaultDeblurConfig().NoiseStd,
	})
	if err := req.Validate(s.cfg.MaxSamples); err != nil {
		return req, errors.Wrap(err, "invalid run request")
	}
	if _, err := distribution.ParseBoundaryCondition(req.Boundary); err != nil {
		return req, errors.Wrap(err, "invalid run request")
	}
	return req, nil
}

// Submit validates the request and stores a pending run
func (s *InversionService) Submit(ctx context.Context, req run.Request) (*run.Run, error) {
	req, err := s.Prepare(req)
	if err != nil {
		return nil, err
	}
	r := run.NewRun(req)
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, errors.DatabaseError("failed to save run", err)
	}
	s.logger.Info("submitted run %s (prior=%s, boundary=%s, samples=%d, seed=%d)",
		r.ID, req.Prior, req.Boundary, req.Samples, req.Seed)
	return r, nil
}

// Execute samples the posterior of a submitted run and stores the outcome.
// A failed run is persisted with its error before the error is returned.
func (s *InversionService) Execute(ctx context.Context, r *run.Run) error {
	start := time.Now()
	r.Status = run.StatusRunning
	if err := s.repo.UpdateStatus(ctx, r.ID, run.StatusRunning); err != nil {
		return errors.DatabaseError("failed to mark run as running", err)
	}

	if err := s.execute(ctx, r); err != nil {
		s.logger.Error("run %s failed: %v", r.ID, err)
		r.ElapsedMS = time.Since(start).Milliseconds()
		r.Fail(err)
		if saveErr := s.repo.Save(ctx, r); saveErr != nil {
			s.logger.Error("failed to record failure of run %s: %v", r.ID, saveErr)
		}
		s.finished(r)
		return err
	}

	r.ElapsedMS = time.Since(start).Milliseconds()
	r.Complete()
	if err := s.repo.Save(ctx, r); err != nil {
		return errors.DatabaseError("failed to save run", err)
	}
	s.finished(r)
	s.logger.Info("run %s completed with %s in %dms (relative error %.4f)", r.ID, r.Strategy, r.ElapsedMS, r.RelativeError)
	return nil
}

func (s *InversionService) finished(r *run.Run) {
	if s.events != nil {
		s.events.RunFinished(r)
	}
}

func (s *InversionService) execute(ctx context.Context, r *run.Run) error {
	opts := s.options()
	if s.events != nil {
		id := r.ID
		opts.OnProgress = func(done, total int) { s.events.RunProgress(id, done, total) }
	}
	deblur, posterior, err := s.build(ctx, r.Request, opts)
	if err != nil {
		return err
	}
	rng, err := s.rng.Stream(ctx, "", streamSampler, r.Request.Seed)
	if err != nil {
		return errors.Wrap(err, "failed to open sampler stream")
	}

	post, err := posterior.SamplePosterior(rng, r.Request.Samples)
	if err != nil {
		if core.IsUnsupportedError(err) || core.IsInvalidConfigError(err) {
			return errors.Wrap(err, "posterior sampling is not available")
		}
		return errors.SamplingFailed(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.Strategy = string(post.Strategy)
	r.AcceptanceRate = post.Result.AcceptanceRate
	if r.Summary, err = post.Samples.Summarize(CredibleLevel); err != nil {
		return errors.Wrap(err, "failed to summarize samples")
	}
	mean, err := post.Samples.Mean()
	if err != nil {
		return errors.Wrap(err, "failed to compute posterior mean")
	}
	if r.RelativeError, err = deblur.RelativeError(mean); err != nil {
		return err
	}

	if s.exporter != nil {
		path, err := s.exporter.Export(ctx, r, post.Samples)
		if err != nil {
			return errors.ExportFailed("xlsx", err)
		}
		r.ExportPath = path
	}
	return nil
}

// Sample submits and executes a run synchronously
func (s *InversionService) Sample(ctx context.Context, req run.Request) (*run.Run, error) {
	r, err := s.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Execute(ctx, r); err != nil {
		return r, err
	}
	return r, nil
}

// MAP computes the maximum a posteriori estimate. Only Gaussian priors have
// a MAP strategy; other priors report ErrNoStrategy.
func (s *InversionService) MAP(ctx context.Context, req run.Request) (*MAPResult, error) {
	req, err := s.Prepare(req)
	if err != nil {
		return nil, err
	}
	deblur, posterior, err := s.build(ctx, req, s.options())
	if err != nil {
		return nil, err
	}
	estimate, err := posterior.MAP()
	if err != nil {
		return nil, errors.Wrap(err, "MAP estimation failed")
	}
	relErr, err := deblur.RelativeError(estimate)
	if err != nil {
		return nil, err
	}
	s.logger.Info("MAP for prior=%s: relative error %.4f", req.Prior, relErr)
	return &MAPResult{
		Request:       req,
		Grid:          deblur.Grid.Points(),
		Estimate:      estimate,
		Truth:         deblur.Truth,
		RelativeError: relErr,
	}, nil
}

// Get returns a stored run
func (s *InversionService) Get(ctx context.Context, id core.RunID) (*run.Run, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		if core.IsNotFoundError(err) {
			return nil, errors.Wrap(err, "run not found")
		}
		return nil, errors.DatabaseError("failed to load run", err)
	}
	return r, nil
}

// List returns the most recent runs
func (s *InversionService) List(ctx context.Context, limit int) ([]*run.Run, error) {
	runs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	return runs, nil
}

// Report renders a stored run as markdown
func (s *InversionService) Report(ctx context.Context, id core.RunID) (string, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return RenderReport(r), nil
}

func (s *InversionService) build(ctx context.Context, req run.Request, opts problem.Options) (*testproblem.Deblur, *problem.BayesianModel, error) {
	dataRNG, err := s.rng.Stream(ctx, "", streamData, req.Seed)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open data stream")
	}
	cfg := testproblem.DefaultDeblurConfig()
	cfg.N = req.N
	cfg.NoiseStd = req.NoiseStd
	deblur, err := testproblem.NewDeblur(dataRNG, cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build deblurring problem")
	}

	prior, err := BuildPrior(req)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build prior")
	}
	posterior, err := deblur.Posterior(prior, opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to compose posterior")
	}
	return deblur, posterior, nil
}

func (s *InversionService) options() problem.Options {
	opts := problem.DefaultOptions()
	opts.CWMHScale = s.cfg.CWMHScale
	opts.CWMHInitial = s.cfg.CWMHInitial
	opts.BurnInFraction = s.cfg.BurnInFraction
	opts.PCNScale = s.cfg.PCNScale
	if s.cfg.ProgressInterval > 0 {
		opts.ProgressInterval = s.cfg.ProgressInterval
	}
	opts.Logger = s.logger
	return opts
}

// BuildPrior constructs the zero-centered prior named by a normalized request
func BuildPrior(req run.Request) (distribution.Density, error) {
	bc, err := distribution.ParseBoundaryCondition(req.Boundary)
	if err != nil {
		return nil, err
	}
	zeros := make([]float64, req.N)
	var prior distribution.Density
	switch req.Prior {
	case run.PriorGaussian:
		prior, err = distribution.IsotropicGaussian(distribution.ZeroMean(req.N), req.Scale, req.N)
	case run.PriorGMRF:
		prior, err = distribution.NewGMRF(zeros, req.Precision, req.N, 1, bc)
	case run.PriorCauchy:
		prior, err = distribution.NewCauchyDiff(zeros, req.Scale, bc)
	case run.PriorLaplace:
		prior, err = distribution.NewLaplaceDiff(zeros, req.Scale, bc)
	default:
		return nil, core.NewInvalidConfigError("prior", req.Prior, "unknown prior")
	}
	if err != nil {
		return nil, err
	}
	return prior, nil
}

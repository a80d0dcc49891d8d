package app

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gouq/adapters/memory"
	"gouq/adapters/rng"
	"gouq/domain/core"
	"gouq/domain/run"
	"gouq/internal"
	"gouq/internal/config"
	"gouq/internal/errors"
	"gouq/internal/problem"
	"gouq/internal/samples"
)

// Mock implementations for testing
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Save(ctx context.Context, r *run.Run) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRunRepository) Get(ctx context.Context, id core.RunID) (*run.Run, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*run.Run)
	return r, args.Error(1)
}

func (m *MockRunRepository) List(ctx context.Context, limit int) ([]*run.Run, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*run.Run), args.Error(1)
}

func (m *MockRunRepository) UpdateStatus(ctx context.Context, id core.RunID, status run.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockSampleExporter struct {
	mock.Mock
}

func (m *MockSampleExporter) Export(ctx context.Context, r *run.Run, s *samples.Samples) (string, error) {
	args := m.Called(ctx, r, s)
	return args.String(0), args.Error(1)
}

func testConfig() config.SamplingConfig {
	cfg := config.Default().Sampling
	cfg.ProgressInterval = 1 << 30
	return cfg
}

func quietLogger() *internal.Logger {
	return internal.NewLogger(internal.LogLevelError)
}

func newService(repo *MockRunRepository, exporter *MockSampleExporter) *InversionService {
	if exporter == nil {
		return NewInversionService(repo, nil, rng.NewStreams(), testConfig(), quietLogger())
	}
	return NewInversionService(repo, exporter, rng.NewStreams(), testConfig(), quietLogger())
}

// Scenario: a Gaussian prior on the linear deblurring model is sampled exactly,
// summarized, exported and persisted as completed.
func TestInversionService_SampleGaussian(t *testing.T) {
	repo := new(MockRunRepository)
	exporter := new(MockSampleExporter)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*run.Run")).Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.Anything, run.StatusRunning).Return(nil)
	exporter.On("Export", mock.Anything, mock.AnythingOfType("*run.Run"), mock.AnythingOfType("*samples.Samples")).
		Return("exports/run.xlsx", nil)

	r, err := newService(repo, exporter).Sample(context.Background(), run.Request{
		Prior: "gaussian", Scale: 0.5, Samples: 200, N: 16, Seed: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, run.StatusCompleted, r.Status)
	assert.Equal(t, string(problem.StrategyGaussianExact), r.Strategy)
	assert.Len(t, r.Summary, 16)
	assert.Equal(t, "exports/run.xlsx", r.ExportPath)
	assert.NotNil(t, r.CompletedAt)
	assert.True(t, r.RelativeError > 0 && r.RelativeError < 1, "relative error %g", r.RelativeError)
	for _, p := range r.Summary {
		assert.LessOrEqual(t, p.Lower, p.Median)
		assert.LessOrEqual(t, p.Median, p.Upper)
	}
	repo.AssertExpectations(t)
	exporter.AssertExpectations(t)
}

// Scenario: a Laplace difference prior dispatches to CWMH.
func TestInversionService_SampleLaplaceUsesCWMH(t *testing.T) {
	svc := NewInversionService(memory.NewRunRepository(), nil, rng.NewStreams(), testConfig(), quietLogger())
	r, err := svc.Sample(context.Background(), run.Request{
		Prior: "laplace", Boundary: "neumann", Samples: 50, N: 8, Seed: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, string(problem.StrategyCWMH), r.Strategy)
	assert.Len(t, r.AcceptanceRate, 8)

	stored, err := svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, stored.Status)
}

// Scenario: identical requests replay to identical summaries.
func TestInversionService_Deterministic(t *testing.T) {
	svc := NewInversionService(memory.NewRunRepository(), nil, rng.NewStreams(), testConfig(), quietLogger())
	req := run.Request{Prior: "gmrf", Boundary: "zero", Precision: 50, Samples: 40, N: 8, Seed: 21}

	a, err := svc.Sample(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Sample(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Fingerprint.Fingerprint, b.Fingerprint.Fingerprint)
	assert.Equal(t, a.Summary, b.Summary)
	assert.Equal(t, string(problem.StrategyPCN), a.Strategy)
}

func TestInversionService_MAP(t *testing.T) {
	svc := newService(new(MockRunRepository), nil)

	res, err := svc.MAP(context.Background(), run.Request{Prior: "gaussian", N: 32, Seed: 5})
	require.NoError(t, err)
	assert.Len(t, res.Estimate, 32)
	assert.Len(t, res.Grid, 32)
	assert.Less(t, res.RelativeError, 0.9)

	// Non-Gaussian priors have no MAP strategy.
	_, err = svc.MAP(context.Background(), run.Request{Prior: "cauchy", N: 16})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, core.ErrNoStrategy))
	assert.Equal(t, errors.CodeUnsupported, errors.GetCode(err))
}

func TestInversionService_InvalidRequests(t *testing.T) {
	repo := new(MockRunRepository)
	svc := newService(repo, nil)

	for _, req := range []run.Request{
		{Prior: "horseshoe"},
		{Prior: "gaussian", Samples: 10_000_000},
		{Prior: "cauchy", Boundary: "reflective"},
		{Prior: "gmrf", N: 1},
	} {
		_, err := svc.Submit(context.Background(), req)
		require.Error(t, err, "%+v", req)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err), "%+v", req)
	}
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// Scenario: an unsupported configuration is persisted as a failed run.
func TestInversionService_FailureIsRecorded(t *testing.T) {
	repo := new(MockRunRepository)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*run.Run")).Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.Anything, run.StatusRunning).Return(nil)

	// GMRF priors reject the backward boundary condition at construction.
	r, err := newService(repo, nil).Sample(context.Background(), run.Request{
		Prior: "gmrf", Boundary: "backward", Samples: 10, N: 8,
	})
	require.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, run.StatusFailed, r.Status)
	assert.NotEmpty(t, r.Error)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	repo.AssertNumberOfCalls(t, "Save", 2)
}

func TestInversionService_RepositoryErrors(t *testing.T) {
	repo := new(MockRunRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(stderrors.New("connection refused"))
	repo.On("Get", mock.Anything, mock.Anything).Return(nil, core.NewNotFoundError("run", "x"))
	svc := newService(repo, nil)

	_, err := svc.Submit(context.Background(), run.Request{Prior: "gaussian"})
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))

	_, err = svc.Report(context.Background(), core.NewRunID())
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestRenderReport(t *testing.T) {
	r := run.NewRun(run.Request{Prior: "cauchy", Boundary: "zero", Scale: 0.01, Samples: 10, N: 2, NoiseStd: 0.05})
	r.Strategy = "cwmh"
	r.AcceptanceRate = run.Floats{0.25, 0.35}
	r.Summary = run.Summaries{
		{Index: 0, Label: "x=0.25", Mean: 0.1, Std: 0.01, Median: 0.1, Lower: 0.08, Upper: 0.12},
		{Index: 1, Label: "x=0.75", Mean: 1.1, Std: 0.02, Median: 1.1, Lower: 1.07, Upper: 1.13, ESS: 8.4},
	}
	r.Complete()

	md := RenderReport(r)
	assert.True(t, strings.HasPrefix(md, "# Run "+r.ID.String()))
	assert.Contains(t, md, "| Strategy | cwmh |")
	assert.Contains(t, md, "Mean acceptance rate: 0.300 (min 0.250, max 0.350)")
	assert.Contains(t, md, "| 1 | x=0.75 | 1.1000 | 0.0200 | 1.1000 | 1.0700 | 1.1300 | 8 |")

	failed := run.NewRun(r.Request)
	failed.Fail(stderrors.New("covariance: not positive definite"))
	md = RenderReport(failed)
	assert.Contains(t, md, "**Error:** covariance: not positive definite")
	assert.NotContains(t, md, "Posterior summary")
}

type recordingEvents struct {
	progress []int
	finished []run.Status
}

func (e *recordingEvents) RunProgress(_ core.RunID, done, _ int) { e.progress = append(e.progress, done) }
func (e *recordingEvents) RunFinished(r *run.Run)                { e.finished = append(e.finished, r.Status) }

func TestInversionService_Events(t *testing.T) {
	cfg := testConfig()
	cfg.ProgressInterval = 50
	events := &recordingEvents{}
	svc := NewInversionService(memory.NewRunRepository(), nil, rng.NewStreams(), cfg, quietLogger()).WithEvents(events)

	_, err := svc.Sample(context.Background(), run.Request{Prior: "gaussian", Samples: 100, N: 8})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 100}, events.progress)
	assert.Equal(t, []run.Status{run.StatusCompleted}, events.finished)
}

func TestMarkdownToHTML(t *testing.T) {
	out := string(MarkdownToHTML("# Run x\n\n| Field | Value |\n|---|---|\n| Prior | gmrf |\n"))
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>gmrf</td>")
}

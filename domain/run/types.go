package run

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"gouq/domain/core"
)

// Status tracks a sampling run through its lifecycle
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Prior names accepted in a Request
const (
	PriorGaussian = "gaussian"
	PriorGMRF     = "gmrf"
	PriorCauchy   = "cauchy"
	PriorLaplace  = "laplace"
)

// CodeVersion is folded into every fingerprint so results from different
// releases never compare equal.
const CodeVersion = "gouq/1"

// Request describes a posterior sampling run on the deblurring problem
type Request struct {
	Prior     string  `json:"prior"`
	Boundary  string  `json:"boundary,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
	Precision float64 `json:"precision,omitempty"`
	Samples   int     `json:"samples,omitempty"`
	Seed      uint64  `json:"seed"`
	N         int     `json:"n,omitempty"`
	NoiseStd  float64 `json:"noise_std,omitempty"`
}

// Defaults supplies the values a Request falls back to
type Defaults struct {
	Samples    int
	MaxSamples int
	N          int
	NoiseStd   float64
}

// Normalize lower-cases names and fills unset fields. Scale is the prior
// standard deviation for gaussian and the difference scale for cauchy and
// laplace; Precision applies to gmrf.
func (r Request) Normalize(d Defaults) Request {
	r.Prior = strings.ToLower(strings.TrimSpace(r.Prior))
	r.Boundary = strings.ToLower(strings.TrimSpace(r.Boundary))
	if r.Boundary == "" {
		r.Boundary = "zero"
	}
	if r.Samples == 0 {
		r.Samples = d.Samples
	}
	if r.N == 0 {
		r.N = d.N
	}
	if r.NoiseStd == 0 {
		r.NoiseStd = d.NoiseStd
	}
	if r.Scale == 0 {
		switch r.Prior {
		case PriorGaussian:
			r.Scale = 0.5
		case PriorCauchy, PriorLaplace:
			r.Scale = 0.01
		}
	}
	if r.Precision == 0 && r.Prior == PriorGMRF {
		r.Precision = 50
	}
	return r
}

// Validate checks ranges of a normalized request
func (r Request) Validate(maxSamples int) error {
	switch r.Prior {
	case PriorGaussian, PriorGMRF, PriorCauchy, PriorLaplace:
	default:
		return core.NewInvalidConfigError("prior", r.Prior, "choose from gaussian, gmrf, cauchy or laplace")
	}
	if r.Samples < 1 || (maxSamples > 0 && r.Samples > maxSamples) {
		return core.NewInvalidConfigError("samples", r.Samples, fmt.Sprintf("must be in [1, %d]", maxSamples))
	}
	if r.N < 2 {
		return core.NewInvalidConfigError("n", r.N, "must be at least 2")
	}
	if r.NoiseStd <= 0 || r.Scale < 0 || r.Precision < 0 {
		return core.NewInvalidConfigError("noise_std/scale/precision", r.NoiseStd, "must be positive")
	}
	return nil
}

// Run is the persisted record of one posterior sampling run
type Run struct {
	ID             core.RunID      `json:"id"`
	Request        Request         `json:"request"`
	Fingerprint    RunFingerprint  `json:"fingerprint"`
	Status         Status          `json:"status"`
	Strategy       string          `json:"strategy,omitempty"`
	Summary        Summaries       `json:"summary,omitempty"`
	MAP            Floats          `json:"map,omitempty"`
	AcceptanceRate Floats          `json:"acceptance_rate,omitempty"`
	RelativeError  float64         `json:"relative_error"`
	ElapsedMS      int64           `json:"elapsed_ms"`
	Error          string          `json:"error,omitempty"`
	ExportPath     string          `json:"export_path,omitempty"`
	CreatedAt      core.Timestamp  `json:"created_at"`
	CompletedAt    *core.Timestamp `json:"completed_at,omitempty"`
}

// NewRun creates a pending run for a normalized request
func NewRun(req Request) *Run {
	return &Run{
		ID:          core.NewRunID(),
		Request:     req,
		Fingerprint: NewRunFingerprint(req, CodeVersion),
		Status:      StatusPending,
		CreatedAt:   core.Now(),
	}
}

// Complete marks the run finished
func (r *Run) Complete() {
	now := core.Now()
	r.Status = StatusCompleted
	r.CompletedAt = &now
}

// Fail marks the run failed with err
func (r *Run) Fail(err error) {
	now := core.Now()
	r.Status = StatusFailed
	r.Error = err.Error()
	r.CompletedAt = &now
}

// RunFingerprint ensures deterministic replay
type RunFingerprint struct {
	Seed        uint64    `json:"seed"`
	CodeVersion string    `json:"code_version"`
	Fingerprint core.Hash `json:"fingerprint"` // Hash of the request and version
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(req Request, codeVersion string) RunFingerprint {
	return RunFingerprint{
		Seed:        req.Seed,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(req, codeVersion),
	}
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(req Request, codeVersion string) core.Hash {
	data := fmt.Sprintf("prior:%s|boundary:%s|scale:%g|precision:%g|samples:%d|seed:%d|n:%d|noise:%g|code:%s",
		req.Prior, req.Boundary, req.Scale, req.Precision, req.Samples, req.Seed, req.N, req.NoiseStd, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

package run

import (
	"errors"
	"testing"

	"gouq/domain/core"
)

func defaults() Defaults {
	return Defaults{Samples: 1000, MaxSamples: 5000, N: 128, NoiseStd: 0.05}
}

func TestRunFingerprint_Deterministic(t *testing.T) {
	req := Request{Prior: "Cauchy", Seed: 42}.Normalize(defaults())

	fp1 := NewRunFingerprint(req, CodeVersion)
	fp2 := NewRunFingerprint(req, CodeVersion)
	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.Seed != 42 || fp1.CodeVersion != CodeVersion {
		t.Errorf("unexpected fingerprint fields: %+v", fp1)
	}
}

func TestRunFingerprint_Unique(t *testing.T) {
	base := Request{Prior: "gmrf", Seed: 1}.Normalize(defaults())
	variants := []Request{
		{Prior: "gmrf", Seed: 2},
		{Prior: "gmrf", Seed: 1, Boundary: "periodic"},
		{Prior: "gmrf", Seed: 1, Samples: 2000},
		{Prior: "gaussian", Seed: 1},
	}
	baseFP := NewRunFingerprint(base, CodeVersion).Fingerprint
	for _, v := range variants {
		fp := NewRunFingerprint(v.Normalize(defaults()), CodeVersion).Fingerprint
		if fp == baseFP {
			t.Errorf("variant %+v shares fingerprint with base", v)
		}
	}
	if NewRunFingerprint(base, "gouq/2").Fingerprint == baseFP {
		t.Error("code version should change the fingerprint")
	}
}

func TestRequest_NormalizeAndValidate(t *testing.T) {
	req := Request{Prior: " Laplace "}.Normalize(defaults())
	if req.Prior != PriorLaplace || req.Boundary != "zero" || req.Scale != 0.01 || req.Samples != 1000 || req.N != 128 {
		t.Fatalf("unexpected normalization: %+v", req)
	}
	if err := req.Validate(5000); err != nil {
		t.Errorf("Validate: %v", err)
	}

	gmrf := Request{Prior: "gmrf"}.Normalize(defaults())
	if gmrf.Precision != 50 || gmrf.Scale != 0 {
		t.Errorf("gmrf defaults: %+v", gmrf)
	}

	bad := Request{Prior: "horseshoe"}.Normalize(defaults())
	if err := bad.Validate(5000); !core.IsInvalidConfigError(err) {
		t.Errorf("unknown prior: %v", err)
	}
	big := Request{Prior: "gaussian", Samples: 10000}.Normalize(defaults())
	if err := big.Validate(5000); !core.IsInvalidConfigError(err) {
		t.Errorf("too many samples: %v", err)
	}
}

func TestRun_Lifecycle(t *testing.T) {
	r := NewRun(Request{Prior: "gaussian"}.Normalize(defaults()))
	if r.Status != StatusPending || r.CompletedAt != nil || r.ID.String() == "" {
		t.Fatalf("unexpected new run: %+v", r)
	}
	r.Fail(errors.New("covariance: not positive definite"))
	if r.Status != StatusFailed || r.CompletedAt == nil || r.Error == "" {
		t.Errorf("unexpected failed run: %+v", r)
	}
}

func TestSummaries_ValueScan(t *testing.T) {
	in := Summaries{{Index: 0, Label: "x=0.5", Mean: 1, Lower: 0.5, Upper: 1.5}}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var out Summaries
	if err := out.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(out) != 1 || out[0].Label != "x=0.5" || out[0].Upper != 1.5 {
		t.Errorf("round trip = %+v", out)
	}

	var f Floats
	if err := f.Scan("[1,2.5]"); err != nil || len(f) != 2 || f[1] != 2.5 {
		t.Errorf("Floats.Scan = %v, %v", f, err)
	}
	if err := f.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

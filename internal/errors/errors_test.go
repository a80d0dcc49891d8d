package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"gouq/domain/core"
)

func TestGetCode_DomainErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{core.NewInvalidConfigError("scale", -1, "must be positive"), CodeInvalidInput},
		{core.NewDimensionError("x", 3, 2), CodeInvalidInput},
		{core.NewNumericalError("covariance", core.ErrNotPositiveDefinite), CodeNumerical},
		{core.NewNoStrategyError("MAP", "Gaussian", "CauchyDiff", "LinearModel"), CodeUnsupported},
		{core.NewNotFoundError("run", "abc"), CodeNotFound},
		{fmt.Errorf("disk on fire"), CodeInternalError},
		{ConfigInvalid("PORT is required"), CodeConfigInvalid},
	}
	for _, tt := range tests {
		if got := GetCode(tt.err); got != tt.want {
			t.Errorf("GetCode(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestWrap_PreservesCodeAndCause(t *testing.T) {
	base := core.NewNumericalError("GMRF structure matrix", core.ErrNotPositiveDefinite)
	wrapped := Wrapf(base, "building prior for run %s", "r1")

	if GetCode(wrapped) != CodeNumerical {
		t.Errorf("code = %s", GetCode(wrapped))
	}
	if !stderrors.Is(wrapped, core.ErrNumerical) {
		t.Error("wrapped error lost its cause")
	}
	if Wrap(nil, "nothing") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	recoded := WithCode(CodeSamplingFailed, wrapped)
	if GetCode(recoded) != CodeSamplingFailed || !IsAppError(recoded) {
		t.Errorf("WithCode = %v", recoded)
	}
}

func TestHTTPStatus(t *testing.T) {
	if HTTPStatus(CodeInvalidInput) != http.StatusBadRequest {
		t.Error("invalid input should map to 400")
	}
	if HTTPStatus(CodeNotFound) != http.StatusNotFound {
		t.Error("not found should map to 404")
	}
	if HTTPStatus(CodeUnsupported) != http.StatusUnprocessableEntity {
		t.Error("unsupported should map to 422")
	}
	if HTTPStatus("whatever") != http.StatusInternalServerError {
		t.Error("unknown codes should map to 500")
	}
}

package model

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
	"gouq/domain/geometry"
)

func testMatrix() *mat.Dense {
	return mat.NewDense(2, 3, []float64{
		1, 2, 0,
		0, -1, 3,
	})
}

func TestLinearModel_FromMatrix(t *testing.T) {
	m, err := NewLinearModelFromMatrix(testMatrix(), nil, nil)
	if err != nil {
		t.Fatalf("NewLinearModelFromMatrix: %v", err)
	}
	if m.Kind() != KindLinear || m.DomainGeometry().ParDim() != 3 || m.RangeGeometry().ParDim() != 2 {
		t.Fatalf("unexpected model shape")
	}

	y, err := m.Forward([]float64{1, 1, 1})
	if err != nil || y[0] != 3 || y[1] != 2 {
		t.Errorf("Forward = %v, %v", y, err)
	}
	x, err := m.Adjoint([]float64{1, 2})
	if err != nil || x[0] != 1 || x[1] != 0 || x[2] != 6 {
		t.Errorf("Adjoint = %v, %v", x, err)
	}
	if _, err := m.Forward([]float64{1}); !core.IsInvalidConfigError(err) {
		t.Errorf("short input: %v", err)
	}
}

func TestLinearModel_MaterializesFunctionForm(t *testing.T) {
	a := testMatrix()
	forward := func(x []float64) ([]float64, error) {
		var y mat.VecDense
		y.MulVec(a, mat.NewVecDense(3, x))
		return y.RawVector().Data, nil
	}
	dom, _ := geometry.NewDefault(3)
	rng, _ := geometry.NewDefault(2)

	m, err := NewLinearModel(forward, nil, dom, rng)
	if err != nil {
		t.Fatalf("NewLinearModel: %v", err)
	}
	got, err := m.Matrix()
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if !mat.Equal(got, a) {
		t.Errorf("materialized matrix\n%v\nwant\n%v", mat.Formatted(got), mat.Formatted(a))
	}

	// adjoint falls back to the materialized matrix
	x, err := m.Adjoint([]float64{1, 2})
	if err != nil || x[2] != 6 {
		t.Errorf("Adjoint = %v, %v", x, err)
	}
}

func TestModel_PropagatesForwardErrors(t *testing.T) {
	boom := errors.New("solver diverged")
	dom, _ := geometry.NewDefault(2)
	m, err := NewModel(func([]float64) ([]float64, error) { return nil, boom }, dom, dom)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if _, err := m.Forward([]float64{0, 0}); !errors.Is(err, boom) {
		t.Errorf("Forward error = %v, want %v", err, boom)
	}
	if KindOf(m) != KindNonlinear || KindOf(nil) != KindNone {
		t.Error("unexpected kinds")
	}
}

func TestModel_RejectsWrongOutputLength(t *testing.T) {
	dom, _ := geometry.NewDefault(2)
	rng, _ := geometry.NewDefault(3)
	m, _ := NewModel(func(x []float64) ([]float64, error) { return x, nil }, dom, rng)
	if _, err := m.Forward([]float64{1, 2}); !errors.Is(err, core.ErrDimensionMismatch) {
		t.Errorf("got %v", err)
	}
}

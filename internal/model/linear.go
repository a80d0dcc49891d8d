package model

import (
	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
	"gouq/domain/geometry"
)

// LinearModel is y = A·x, given either as a matrix or as a forward/adjoint
// function pair.
type LinearModel struct {
	a       *mat.Dense
	forward Func
	adjoint Func
	domain  geometry.Geometry
	rng     geometry.Geometry
}

// NewLinearModelFromMatrix uses Default geometries when none are given.
func NewLinearModelFromMatrix(a mat.Matrix, domain, rng geometry.Geometry) (*LinearModel, error) {
	if a == nil {
		return nil, core.NewInvalidConfigError("matrix", nil, "must be provided")
	}
	r, c := a.Dims()
	var err error
	if domain == nil {
		if domain, err = geometry.NewDefault(c); err != nil {
			return nil, err
		}
	}
	if rng == nil {
		if rng, err = geometry.NewDefault(r); err != nil {
			return nil, err
		}
	}
	if domain.ParDim() != c {
		return nil, core.NewDimensionError("domain geometry", c, domain.ParDim())
	}
	if rng.ParDim() != r {
		return nil, core.NewDimensionError("range geometry", r, rng.ParDim())
	}
	return &LinearModel{a: mat.DenseCopyOf(a), domain: domain, rng: rng}, nil
}

// NewLinearModel builds a matrix-free model. A nil adjoint is computed from
// the materialized matrix on first use.
func NewLinearModel(forward, adjoint Func, domain, rng geometry.Geometry) (*LinearModel, error) {
	if forward == nil {
		return nil, core.NewInvalidConfigError("forward", nil, "must be provided")
	}
	if domain == nil || rng == nil {
		return nil, core.NewInvalidConfigError("geometry", nil, "domain and range geometries are required")
	}
	return &LinearModel{forward: forward, adjoint: adjoint, domain: domain, rng: rng}, nil
}

func (m *LinearModel) Kind() Kind                        { return KindLinear }
func (m *LinearModel) DomainGeometry() geometry.Geometry { return m.domain }
func (m *LinearModel) RangeGeometry() geometry.Geometry  { return m.rng }

func (m *LinearModel) Forward(x []float64) ([]float64, error) {
	if m.a != nil {
		return mulVec(m.a, x, m.domain.ParDim())
	}
	return checkedApply(m.forward, x, m.domain.ParDim(), m.rng.ParDim())
}

// Adjoint returns Aᵀ·y.
func (m *LinearModel) Adjoint(y []float64) ([]float64, error) {
	if m.a != nil {
		return mulVec(m.a.T(), y, m.rng.ParDim())
	}
	if m.adjoint != nil {
		return checkedApply(m.adjoint, y, m.rng.ParDim(), m.domain.ParDim())
	}
	a, err := m.Matrix()
	if err != nil {
		return nil, err
	}
	return mulVec(a.T(), y, m.rng.ParDim())
}

// Matrix returns a copy of A, materializing it column by column from the
// forward function when the model is matrix-free.
func (m *LinearModel) Matrix() (*mat.Dense, error) {
	if m.a != nil {
		return mat.DenseCopyOf(m.a), nil
	}
	n, r := m.domain.ParDim(), m.rng.ParDim()
	a := mat.NewDense(r, n, nil)
	e := make([]float64, n)
	for j := 0; j < n; j++ {
		e[j] = 1
		col, err := checkedApply(m.forward, e, n, r)
		if err != nil {
			return nil, err
		}
		a.SetCol(j, col)
		e[j] = 0
	}
	return a, nil
}

func mulVec(a mat.Matrix, x []float64, want int) ([]float64, error) {
	if len(x) != want {
		return nil, core.NewDimensionError("model input", want, len(x))
	}
	r, _ := a.Dims()
	y := mat.NewVecDense(r, nil)
	y.MulVec(a, mat.NewVecDense(len(x), append([]float64(nil), x...)))
	return y.RawVector().Data, nil
}

// Package model holds forward models: maps from parameters to predicted data.
package model

import (
	"gonum.org/v1/gonum/mat"

	"gouq/domain/core"
	"gouq/domain/geometry"
)

// Kind tags a model for posterior dispatch.
type Kind string

const (
	KindNone      Kind = "none"
	KindLinear    Kind = "LinearModel"
	KindNonlinear Kind = "Model"
)

// Func is a forward or adjoint map.
type Func func(x []float64) ([]float64, error)

// Model evaluates the forward map between two geometries.
type Model interface {
	Kind() Kind
	Forward(x []float64) ([]float64, error)
	DomainGeometry() geometry.Geometry
	RangeGeometry() geometry.Geometry
}

// Linear is a model with an adjoint and a matrix representation.
type Linear interface {
	Model
	Adjoint(y []float64) ([]float64, error)
	Matrix() (*mat.Dense, error)
}

// KindOf returns KindNone for a nil model.
func KindOf(m Model) Kind {
	if m == nil {
		return KindNone
	}
	return m.Kind()
}

// NonlinearModel wraps an arbitrary forward function.
type NonlinearModel struct {
	forward Func
	domain  geometry.Geometry
	rng     geometry.Geometry
}

func NewModel(forward Func, domain, rng geometry.Geometry) (*NonlinearModel, error) {
	if forward == nil {
		return nil, core.NewInvalidConfigError("forward", nil, "must be provided")
	}
	if domain == nil || rng == nil {
		return nil, core.NewInvalidConfigError("geometry", nil, "domain and range geometries are required")
	}
	return &NonlinearModel{forward: forward, domain: domain, rng: rng}, nil
}

func (m *NonlinearModel) Kind() Kind                        { return KindNonlinear }
func (m *NonlinearModel) DomainGeometry() geometry.Geometry { return m.domain }
func (m *NonlinearModel) RangeGeometry() geometry.Geometry  { return m.rng }

func (m *NonlinearModel) Forward(x []float64) ([]float64, error) {
	return checkedApply(m.forward, x, m.domain.ParDim(), m.rng.ParDim())
}

func checkedApply(f Func, x []float64, in, out int) ([]float64, error) {
	if len(x) != in {
		return nil, core.NewDimensionError("model input", in, len(x))
	}
	y, err := f(x)
	if err != nil {
		return nil, err
	}
	if len(y) != out {
		return nil, core.NewDimensionError("model output", out, len(y))
	}
	return y, nil
}

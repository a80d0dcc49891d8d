// Package geometry describes the spaces that parameters and data live in:
// how many values there are and what grid or labels they sit on.
package geometry

import (
	"fmt"

	"gouq/domain/core"
)

// Geometry maps between the parameter vector a sampler works with and the
// function values a user interprets. All geometries here are identity maps
// on the values and differ in how they describe the points.
type Geometry interface {
	Kind() string
	ParDim() int
	FunDim() int
	Par2Fun(par []float64) ([]float64, error)
	Fun2Par(fun []float64) ([]float64, error)
	// Points returns the coordinate of each value (grid nodes or indices).
	Points() []float64
	// Labels returns a display name for each value.
	Labels() []string
}

// identity implements the shared value mapping.
type identity struct{ n int }

func (g identity) ParDim() int { return g.n }
func (g identity) FunDim() int { return g.n }

func (g identity) Par2Fun(par []float64) ([]float64, error) {
	if len(par) != g.n {
		return nil, core.NewDimensionError("parameter", g.n, len(par))
	}
	return append([]float64(nil), par...), nil
}

func (g identity) Fun2Par(fun []float64) ([]float64, error) {
	if len(fun) != g.n {
		return nil, core.NewDimensionError("function", g.n, len(fun))
	}
	return append([]float64(nil), fun...), nil
}

// Default is an unstructured vector of n values indexed 0..n−1.
type Default struct{ identity }

func NewDefault(n int) (*Default, error) {
	if n < 1 {
		return nil, core.NewInvalidConfigError("geometry dimension", n, "must be positive")
	}
	return &Default{identity{n}}, nil
}

func (g *Default) Kind() string { return "default" }

func (g *Default) Points() []float64 {
	pts := make([]float64, g.n)
	for i := range pts {
		pts[i] = float64(i)
	}
	return pts
}

func (g *Default) Labels() []string {
	labels := make([]string, g.n)
	for i := range labels {
		labels[i] = fmt.Sprintf("v%d", i)
	}
	return labels
}

// Continuous1D is a function sampled on an explicit 1-D grid.
type Continuous1D struct {
	identity
	grid []float64
}

// NewContinuous1D accepts a strictly increasing grid.
func NewContinuous1D(grid []float64) (*Continuous1D, error) {
	if len(grid) == 0 {
		return nil, core.NewInvalidConfigError("grid", "[]", "must not be empty")
	}
	for i := 1; i < len(grid); i++ {
		if !(grid[i] > grid[i-1]) {
			return nil, core.NewInvalidConfigError("grid", grid[i], "must be strictly increasing")
		}
	}
	return &Continuous1D{identity: identity{len(grid)}, grid: append([]float64(nil), grid...)}, nil
}

// UniformGrid places n cell midpoints on [a, b].
func UniformGrid(a, b float64, n int) (*Continuous1D, error) {
	if n < 1 || !(b > a) {
		return nil, core.NewInvalidConfigError("grid", fmt.Sprintf("[%g, %g] n=%d", a, b, n), "need b > a and n ≥ 1")
	}
	h := (b - a) / float64(n)
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = a + h*(float64(i)+0.5)
	}
	return NewContinuous1D(grid)
}

func (g *Continuous1D) Kind() string      { return "continuous1d" }
func (g *Continuous1D) Points() []float64 { return append([]float64(nil), g.grid...) }

func (g *Continuous1D) Labels() []string {
	labels := make([]string, len(g.grid))
	for i, x := range g.grid {
		labels[i] = fmt.Sprintf("x=%.4g", x)
	}
	return labels
}

// Discrete names each value explicitly.
type Discrete struct {
	identity
	labels []string
}

func NewDiscrete(labels []string) (*Discrete, error) {
	if len(labels) == 0 {
		return nil, core.NewInvalidConfigError("labels", "[]", "must not be empty")
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			return nil, core.NewInvalidConfigError("labels", l, "must be unique")
		}
		seen[l] = true
	}
	return &Discrete{identity: identity{len(labels)}, labels: append([]string(nil), labels...)}, nil
}

func (g *Discrete) Kind() string     { return "discrete" }
func (g *Discrete) Labels() []string { return append([]string(nil), g.labels...) }

func (g *Discrete) Points() []float64 {
	pts := make([]float64, len(g.labels))
	for i := range pts {
		pts[i] = float64(i)
	}
	return pts
}

package distribution

import (
	"strings"

	"gouq/domain/core"
	"gouq/internal/sparse"
)

// BoundaryCondition selects how the first-order difference operator treats the
// ends of the discretized domain.
type BoundaryCondition string

const (
	BCZero     BoundaryCondition = "zero"
	BCPeriodic BoundaryCondition = "periodic"
	BCNeumann  BoundaryCondition = "neumann"
	BCBackward BoundaryCondition = "backward"
	BCNone     BoundaryCondition = "none"
)

// ParseBoundaryCondition validates a user supplied boundary name.
func ParseBoundaryCondition(s string) (BoundaryCondition, error) {
	bc := BoundaryCondition(strings.ToLower(strings.TrimSpace(s)))
	switch bc {
	case BCZero, BCPeriodic, BCNeumann, BCBackward, BCNone:
		return bc, nil
	}
	return "", core.NewInvalidConfigError("boundary condition", s,
		"choose from zero, periodic, neumann, backward or none")
}

// DifferenceOperator builds the first-order difference matrix on n points.
//
//	zero      (n+1)×n  rows x₀, x₁−x₀, …, x_{n−1}−x_{n−2}, −x_{n−1}
//	periodic  n×n      rows xᵢ − x_{i−1 mod n}
//	neumann   (n−1)×n  rows x_{i+1} − xᵢ
//	backward  n×n      rows x₀, x₁−x₀, …
//	none      n×n      identity
func DifferenceOperator(bc BoundaryCondition, n int) (*sparse.CSR, error) {
	if n < 1 {
		return nil, core.NewInvalidConfigError("dimension", n, "must be positive")
	}
	var entries []sparse.Triplet
	rows := n
	switch bc {
	case BCZero:
		rows = n + 1
		for i := 0; i < n; i++ {
			entries = append(entries,
				sparse.Triplet{Row: i, Col: i, Value: 1},
				sparse.Triplet{Row: i + 1, Col: i, Value: -1})
		}
	case BCPeriodic:
		for i := 0; i < n; i++ {
			entries = append(entries,
				sparse.Triplet{Row: i, Col: i, Value: 1},
				sparse.Triplet{Row: i, Col: (i - 1 + n) % n, Value: -1})
		}
	case BCNeumann:
		if n < 2 {
			return nil, core.NewInvalidConfigError("dimension", n, "neumann differences need at least 2 points")
		}
		rows = n - 1
		for i := 0; i < n-1; i++ {
			entries = append(entries,
				sparse.Triplet{Row: i, Col: i, Value: -1},
				sparse.Triplet{Row: i, Col: i + 1, Value: 1})
		}
	case BCBackward:
		entries = append(entries, sparse.Triplet{Row: 0, Col: 0, Value: 1})
		for i := 1; i < n; i++ {
			entries = append(entries,
				sparse.Triplet{Row: i, Col: i, Value: 1},
				sparse.Triplet{Row: i, Col: i - 1, Value: -1})
		}
	case BCNone:
		return sparse.Identity(n), nil
	default:
		return nil, core.NewInvalidConfigError("boundary condition", string(bc),
			"choose from zero, periodic, neumann, backward or none")
	}
	return sparse.NewCSR(rows, n, entries)
}

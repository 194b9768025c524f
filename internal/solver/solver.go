// Package solver defines the binary integer programs the optimizer builds
// and the capability that solves them.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidModel is returned when a model is malformed
	ErrInvalidModel = errors.New("invalid model")

	// ErrSolverFailure is the cause attached to StatusFailed results
	ErrSolverFailure = errors.New("solver failure")
)

// Sense is the direction of optimization
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Constraint bounds a linear expression over the variables: Lower <= Coeffs·x <= Upper.
// Lower == Upper makes it an equality. Use math.Inf for a missing side.
type Constraint struct {
	Name   string
	Coeffs []float64
	Lower  float64
	Upper  float64
}

// IsEquality reports whether both sides coincide
func (c Constraint) IsEquality() bool {
	return c.Lower == c.Upper
}

// Model is a binary integer program: every variable is restricted to {0, 1}.
type Model struct {
	Variables   []string
	Sense       Sense
	Objective   []float64
	Constraints []Constraint
}

// NumVariables returns the number of binary variables
func (m *Model) NumVariables() int {
	return len(m.Variables)
}

// Validate checks dimensions and numeric sanity
func (m *Model) Validate() error {
	n := len(m.Variables)
	if n == 0 {
		return fmt.Errorf("%w: no variables", ErrInvalidModel)
	}
	if len(m.Objective) != n {
		return fmt.Errorf("%w: objective has %d coefficients, want %d", ErrInvalidModel, len(m.Objective), n)
	}
	for j, v := range m.Objective {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: objective coefficient of %s is %v", ErrInvalidModel, m.Variables[j], v)
		}
	}
	for _, c := range m.Constraints {
		if len(c.Coeffs) != n {
			return fmt.Errorf("%w: constraint %s has %d coefficients, want %d", ErrInvalidModel, c.Name, len(c.Coeffs), n)
		}
		for _, v := range c.Coeffs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: constraint %s has coefficient %v", ErrInvalidModel, c.Name, v)
			}
		}
		if math.IsNaN(c.Lower) || math.IsNaN(c.Upper) || c.Lower > c.Upper {
			return fmt.Errorf("%w: constraint %s has bounds [%v, %v]", ErrInvalidModel, c.Name, c.Lower, c.Upper)
		}
	}
	return nil
}

// Evaluate returns the objective value of an assignment
func (m *Model) Evaluate(x []float64) float64 {
	var v float64
	for j, c := range m.Objective {
		v += c * x[j]
	}
	return v
}

// Feasible reports whether an assignment satisfies every constraint within tol
func (m *Model) Feasible(x []float64, tol float64) bool {
	for _, c := range m.Constraints {
		var v float64
		for j, a := range c.Coeffs {
			v += a * x[j]
		}
		if v < c.Lower-tol || v > c.Upper+tol {
			return false
		}
	}
	return true
}

// Status is the outcome of a solve
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusTimeout
	StatusCanceled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimeout:
		return "timeout"
	case StatusCanceled:
		return "canceled"
	default:
		return "failed"
	}
}

// Result reports a solve. X and Objective are set only when Status is StatusOptimal.
type Result struct {
	Status    Status
	X         []float64
	Objective float64
	Nodes     int
	Err       error
}

// Selected reports whether variable j is set in an optimal assignment
func (r *Result) Selected(j int) bool {
	return r.X != nil && r.X[j] > 0.5
}

// Solver solves binary integer programs. Implementations must honour ctx
// cancellation and deadlines by returning StatusCanceled or StatusTimeout.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Result, error)
}

// contextStatus maps a finished context onto a result
func contextStatus(ctx context.Context, nodes int) *Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Result{Status: StatusTimeout, Nodes: nodes, Err: ctx.Err()}
	}
	return &Result{Status: StatusCanceled, Nodes: nodes, Err: ctx.Err()}
}

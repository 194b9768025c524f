package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	// DefaultIntegralityTolerance is how far from 0 or 1 a relaxed value may be
	// and still count as integral.
	DefaultIntegralityTolerance = 1e-6

	simplexTolerance = 1e-9
	feasTolerance    = 1e-7
)

// errNodeInfeasible marks a subproblem without a feasible relaxation
var errNodeInfeasible = errors.New("node infeasible")

// free marks a variable not fixed by branching
const free int8 = -1

// BranchAndBound solves binary programs by depth-first branch and bound over
// LP relaxations solved with gonum's simplex.
type BranchAndBound struct {
	// Tolerance is the integrality tolerance
	Tolerance float64
	// MaxNodes caps the number of explored nodes; zero means unlimited
	MaxNodes int
}

// NewBranchAndBound creates a solver with default tolerances
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{Tolerance: DefaultIntegralityTolerance}
}

// Solve implements Solver
func (b *BranchAndBound) Solve(ctx context.Context, m *Model) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	tol := b.Tolerance
	if tol <= 0 {
		tol = DefaultIntegralityTolerance
	}

	// Work in minimization form.
	n := m.NumVariables()
	cost := make([]float64, n)
	for j, v := range m.Objective {
		if m.Sense == Maximize {
			cost[j] = -v
		} else {
			cost[j] = v
		}
	}

	root := make([]int8, n)
	for j := range root {
		root[j] = free
	}
	presolve(m, root)

	var (
		best  = math.Inf(1)
		bestX []float64
		nodes int
		stack = [][]int8{root}
	)
	for len(stack) > 0 {
		if ctx.Err() != nil {
			return contextStatus(ctx, nodes), nil
		}
		if b.MaxNodes > 0 && nodes >= b.MaxNodes {
			return &Result{
				Status: StatusFailed,
				Nodes:  nodes,
				Err:    fmt.Errorf("%w: node limit %d reached", ErrSolverFailure, b.MaxNodes),
			}, nil
		}

		fix := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		bound, x, err := relax(m, cost, fix)
		if errors.Is(err, errNodeInfeasible) {
			continue
		}
		if err != nil {
			return &Result{Status: StatusFailed, Nodes: nodes, Err: fmt.Errorf("%w: %w", ErrSolverFailure, err)}, nil
		}
		if bound >= best-1e-9*math.Max(1, math.Abs(best)) {
			continue
		}

		j := branchVariable(x, fix, tol)
		if j < 0 {
			best = bound
			bestX = make([]float64, n)
			for i, v := range x {
				bestX[i] = math.Round(v)
			}
			continue
		}

		down := append([]int8(nil), fix...)
		down[j] = 0
		up := append([]int8(nil), fix...)
		up[j] = 1
		// The side nearer the relaxed value is explored first.
		if x[j] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if bestX == nil {
		return &Result{Status: StatusInfeasible, Nodes: nodes}, nil
	}
	return &Result{
		Status:    StatusOptimal,
		X:         bestX,
		Objective: m.Evaluate(bestX),
		Nodes:     nodes,
	}, nil
}

// presolve fixes to zero every variable with a positive coefficient in an
// equality row whose coefficients are non-negative and whose right-hand side is zero.
func presolve(m *Model, fix []int8) {
	for _, c := range m.Constraints {
		if !c.IsEquality() || c.Lower != 0 {
			continue
		}
		nonNegative := true
		for _, a := range c.Coeffs {
			if a < 0 {
				nonNegative = false
				break
			}
		}
		if !nonNegative {
			continue
		}
		for j, a := range c.Coeffs {
			if a > 0 {
				fix[j] = 0
			}
		}
	}
}

// branchVariable returns the most fractional free variable, or -1 when x is integral
func branchVariable(x []float64, fix []int8, tol float64) int {
	best, bestFrac := -1, tol
	for j, v := range x {
		if fix[j] != free {
			continue
		}
		frac := math.Min(v-math.Floor(v), math.Ceil(v)-v)
		if frac > bestFrac {
			best, bestFrac = j, frac
		}
	}
	return best
}

// relax solves the LP relaxation of m with the given variables fixed.
// Fixed variables are substituted out so the standard-form matrix stays full rank.
func relax(m *Model, cost []float64, fix []int8) (float64, []float64, error) {
	n := len(fix)
	x := make([]float64, n)
	var freeVars []int
	var offset float64
	for j, f := range fix {
		if f == free {
			freeVars = append(freeVars, j)
			continue
		}
		x[j] = float64(f)
		offset += cost[j] * x[j]
	}
	nf := len(freeVars)

	type row struct {
		coeffs []float64 // over free variables
		slack  float64   // coefficient of this row's slack, 0 for none
		rhs    float64
	}
	var rows []row
	equalities := 0

	for _, c := range m.Constraints {
		coeffs := make([]float64, nf)
		var fixedSum, minAct, maxAct float64
		for j, a := range c.Coeffs {
			if fix[j] != free {
				fixedSum += a * x[j]
			}
		}
		for k, j := range freeVars {
			a := c.Coeffs[j]
			coeffs[k] = a
			minAct += math.Min(0, a)
			maxAct += math.Max(0, a)
		}
		lo, hi := c.Lower-fixedSum, c.Upper-fixedSum
		if lo > maxAct+feasTolerance || hi < minAct-feasTolerance {
			return 0, nil, errNodeInfeasible
		}
		if minAct == 0 && maxAct == 0 {
			continue
		}
		if c.IsEquality() {
			rows = append(rows, row{coeffs: coeffs, rhs: lo})
			equalities++
			continue
		}
		if !math.IsInf(lo, -1) && lo > minAct+feasTolerance {
			rows = append(rows, row{coeffs: coeffs, slack: -1, rhs: lo})
		}
		if !math.IsInf(hi, 1) && hi < maxAct-feasTolerance {
			rows = append(rows, row{coeffs: coeffs, slack: 1, rhs: hi})
		}
	}

	if nf == 0 {
		return offset, x, nil
	}
	if equalities > nf {
		return 0, nil, fmt.Errorf("%d equality rows over %d free variables", equalities, nf)
	}

	// x_j + u_j = 1 for every free variable
	for k := range freeVars {
		coeffs := make([]float64, nf)
		coeffs[k] = 1
		rows = append(rows, row{coeffs: coeffs, slack: 1, rhs: 1})
	}

	slacks := 0
	for _, r := range rows {
		if r.slack != 0 {
			slacks++
		}
	}
	cols := nf + slacks
	A := mat.NewDense(len(rows), cols, nil)
	bvec := make([]float64, len(rows))
	s := nf
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for k, a := range r.coeffs {
			A.Set(i, k, sign*a)
		}
		if r.slack != 0 {
			A.Set(i, s, sign*r.slack)
			s++
		}
		bvec[i] = sign * r.rhs
	}

	c := make([]float64, cols)
	for k, j := range freeVars {
		c[k] = cost[j]
	}

	_, xs, err := lp.Simplex(c, A, bvec, simplexTolerance, nil)
	if errors.Is(err, lp.ErrInfeasible) {
		return 0, nil, errNodeInfeasible
	}
	if err != nil {
		return 0, nil, err
	}

	obj := offset
	for k, j := range freeVars {
		v := math.Min(1, math.Max(0, xs[k]))
		x[j] = v
		obj += cost[j] * v
	}
	return obj, x, nil
}

// Package optimizer composes pizzas from the catalog by solving binary
// programs over nutrient bounds and category counts.
package optimizer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"maestro/internal/catalog"
	"maestro/internal/models"
	"maestro/internal/solver"
)

// Outcome labels reported to observers
const (
	OutcomeOptimal    = "optimal"
	OutcomeInvalid    = "invalid"
	OutcomeInfeasible = "infeasible"
	OutcomeTimeout    = "timeout"
	OutcomeCanceled   = "canceled"
	OutcomeFailed     = "failed"
)

// Observer is notified after every optimization attempt
type Observer interface {
	ObserveOptimization(objective Objective, outcome string, duration time.Duration, nodes int)
}

// Observers notifies each of its members in turn
type Observers []Observer

// ObserveOptimization implements Observer
func (os Observers) ObserveOptimization(objective Objective, outcome string, duration time.Duration, nodes int) {
	for _, o := range os {
		o.ObserveOptimization(objective, outcome, duration, nodes)
	}
}

// Request describes one optimization
type Request struct {
	Objective Objective      `json:"objective"`
	Bounds    NutrientBounds `json:"bounds"`
	Counts    CategoryCounts `json:"counts"`
	Lambda    float64        `json:"lambda"`
	// Timeout overrides the optimizer's default budget when positive
	Timeout time.Duration `json:"-"`
}

// Optimizer finds optimal pizzas over a catalog. It is safe for concurrent use.
type Optimizer struct {
	catalog  *catalog.Catalog
	sampler  *models.Sampler
	solver   solver.Solver
	logger   *zap.Logger
	observer Observer
	timeout  time.Duration
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithSolver replaces the default branch-and-bound solver
func WithSolver(s solver.Solver) Option {
	return func(o *Optimizer) { o.solver = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Optimizer) { o.logger = l }
}

// WithObserver registers an observer for optimization outcomes
func WithObserver(obs Observer) Option {
	return func(o *Optimizer) { o.observer = obs }
}

// WithTimeout sets the default time budget of a solve; zero means none
func WithTimeout(d time.Duration) Option {
	return func(o *Optimizer) { o.timeout = d }
}

// New creates an optimizer over cat that assembles results with sampler
func New(cat *catalog.Catalog, sampler *models.Sampler, opts ...Option) *Optimizer {
	o := &Optimizer{
		catalog: cat,
		sampler: sampler,
		solver:  solver.NewBranchAndBound(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MinimizePrice returns the cheapest pizza satisfying bounds and counts
func (o *Optimizer) MinimizePrice(ctx context.Context, bounds NutrientBounds, counts CategoryCounts) (*models.Pizza, error) {
	return o.Optimize(ctx, Request{Objective: ObjectivePrice, Bounds: bounds, Counts: counts})
}

// MaximizeTasteMinusPrice returns the pizza maximizing expected taste minus lambda times price
func (o *Optimizer) MaximizeTasteMinusPrice(ctx context.Context, bounds NutrientBounds, counts CategoryCounts, lambda float64) (*models.Pizza, error) {
	return o.Optimize(ctx, Request{Objective: ObjectiveTaste, Bounds: bounds, Counts: counts, Lambda: lambda})
}

// Optimize runs a request end to end: validation, model build, solve and assembly
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*models.Pizza, error) {
	start := time.Now()
	ingredients := o.catalog.All()

	model, err := BuildModel(ingredients, req.Bounds, req.Counts, req.Objective, req.Lambda)
	if err != nil {
		o.observe(req.Objective, OutcomeInvalid, start, 0)
		return nil, err
	}

	timeout := o.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := o.solver.Solve(ctx, model)
	if err != nil {
		o.observe(req.Objective, OutcomeFailed, start, 0)
		return nil, fmt.Errorf("%w: %w", ErrInfeasibleModel, err)
	}

	log := o.logger.With(
		zap.String("objective", string(req.Objective)),
		zap.String("status", res.Status.String()),
		zap.Int("nodes", res.Nodes),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch res.Status {
	case solver.StatusOptimal:
	case solver.StatusTimeout:
		o.observe(req.Objective, OutcomeTimeout, start, res.Nodes)
		log.Warn("Solver ran out of time")
		return nil, fmt.Errorf("%w after %s", ErrSolverTimeout, timeout)
	case solver.StatusCanceled:
		o.observe(req.Objective, OutcomeCanceled, start, res.Nodes)
		return nil, fmt.Errorf("%w: %w", ErrInfeasibleModel, res.Err)
	case solver.StatusInfeasible:
		o.observe(req.Objective, OutcomeInfeasible, start, res.Nodes)
		log.Info("No pizza satisfies the constraints")
		return nil, ErrInfeasibleModel
	default:
		o.observe(req.Objective, OutcomeFailed, start, res.Nodes)
		log.Error("Solver failed", zap.Error(res.Err))
		cause := res.Err
		if cause == nil {
			cause = solver.ErrSolverFailure
		}
		return nil, fmt.Errorf("%w: %w", ErrInfeasibleModel, cause)
	}

	sel, err := reconstruct(ingredients, res, req.Counts)
	if err != nil {
		o.observe(req.Objective, OutcomeFailed, start, res.Nodes)
		return nil, fmt.Errorf("%w: %w", ErrInfeasibleModel, err)
	}
	pizza, err := models.NewPizza(sel, o.sampler)
	if err != nil {
		o.observe(req.Objective, OutcomeFailed, start, res.Nodes)
		return nil, err
	}

	o.observe(req.Objective, OutcomeOptimal, start, res.Nodes)
	log.Debug("Pizza optimized",
		zap.String("pizza_id", pizza.ID()),
		zap.Strings("ingredients", pizza.IngredientNames()),
		zap.Float64("objective_value", res.Objective),
	)
	return pizza, nil
}

// reconstruct collects the selected ingredients per category in catalog order
func reconstruct(ingredients []models.Ingredient, res *solver.Result, counts CategoryCounts) (models.Selection, error) {
	var selected []models.Ingredient
	for j, ing := range ingredients {
		if res.Selected(j) {
			selected = append(selected, ing)
		}
	}
	sel, err := models.SelectionOf(selected)
	if err != nil {
		return models.Selection{}, err
	}
	for _, c := range models.Categories {
		if got, want := sel.Count(c), counts.For(c); got != want {
			return models.Selection{}, fmt.Errorf("%w: solution has %d %s, want %d", solver.ErrSolverFailure, got, c, want)
		}
	}
	return sel, nil
}

func (o *Optimizer) observe(objective Objective, outcome string, start time.Time, nodes int) {
	if o.observer != nil {
		o.observer.ObserveOptimization(objective, outcome, time.Since(start), nodes)
	}
}

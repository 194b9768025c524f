// Package evaluation runs named optimization scenarios and derives
// menu-level statistics and metrics from their results.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"maestro/internal/optimizer"
	"maestro/internal/risk"
)

// ErrScenarioNotFound is returned for unknown scenario ids
var ErrScenarioNotFound = errors.New("scenario not found")

// Evaluator runs the built-in scenarios against an optimizer.
type Evaluator struct {
	scenarios map[string]*Scenario
	optimizer *optimizer.Optimizer
	logger    *zap.Logger
}

// NewEvaluator creates an evaluator with the predefined scenarios
func NewEvaluator(opt *optimizer.Optimizer, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{
		scenarios: make(map[string]*Scenario),
		optimizer: opt,
		logger:    logger,
	}
	e.loadScenarios()
	return e
}

// loadScenarios populates the evaluator with the built-in presets
func (e *Evaluator) loadScenarios() {
	budget := optimizer.DefaultNutrientBounds()
	e.scenarios["budget"] = &Scenario{
		ID:          "budget",
		Name:        "Budget",
		Description: "Cheapest pizza with one cheese and one vegetable.",
		Objective:   optimizer.ObjectivePrice,
		Bounds:      budget,
		Counts:      optimizer.CategoryCounts{Dough: 1, Sauce: 1, Cheese: 1, Vegetables: 1},
		Quantile:    risk.DefaultQuantile,
	}

	protein := optimizer.DefaultNutrientBounds()
	protein.Protein = optimizer.AtLeast(40)
	e.scenarios["protein_rich"] = &Scenario{
		ID:          "protein_rich",
		Name:        "Protein Rich",
		Description: "Cheapest pizza with at least 40g of protein.",
		Objective:   optimizer.ObjectivePrice,
		Bounds:      protein,
		Counts:      optimizer.CategoryCounts{Dough: 1, Sauce: 1, Cheese: 1, Meat: 1},
		Quantile:    risk.DefaultQuantile,
	}

	light := optimizer.DefaultNutrientBounds()
	light.Calories = optimizer.AtMost(450)
	light.Fat = optimizer.AtMost(15)
	e.scenarios["light"] = &Scenario{
		ID:          "light",
		Name:        "Light",
		Description: "Tastiest pizza under 450 kcal and 15g of expected fat.",
		Objective:   optimizer.ObjectiveTaste,
		Bounds:      light,
		Counts:      optimizer.CategoryCounts{Dough: 1, Sauce: 1, Vegetables: 2},
		Lambda:      0.5,
		Quantile:    risk.DefaultQuantile,
	}

	e.scenarios["gourmet"] = &Scenario{
		ID:          "gourmet",
		Name:        "Gourmet",
		Description: "Two cheeses, meat and a vegetable with little regard for price.",
		Objective:   optimizer.ObjectiveTaste,
		Bounds:      optimizer.DefaultNutrientBounds(),
		Counts:      optimizer.CategoryCounts{Dough: 1, Sauce: 1, Cheese: 2, Meat: 1, Vegetables: 1},
		Lambda:      0.1,
		Quantile:    0.01,
	}

	e.scenarios["fruity"] = &Scenario{
		ID:          "fruity",
		Name:        "Fruity",
		Description: "A cheese pizza topped with two fruits.",
		Objective:   optimizer.ObjectiveTaste,
		Bounds:      optimizer.DefaultNutrientBounds(),
		Counts:      optimizer.CategoryCounts{Dough: 1, Sauce: 1, Cheese: 1, Fruits: 2},
		Lambda:      0.3,
		Quantile:    risk.DefaultQuantile,
	}
}

// HasScenario checks if a scenario exists
func (e *Evaluator) HasScenario(id string) bool {
	_, exists := e.scenarios[id]
	return exists
}

// GetScenarios returns all scenarios ordered by id
func (e *Evaluator) GetScenarios() []*Scenario {
	scenarios := make([]*Scenario, 0, len(e.scenarios))
	for _, s := range e.scenarios {
		scenarios = append(scenarios, s)
	}
	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].ID < scenarios[j].ID })
	return scenarios
}

// EvaluateScenario optimizes the scenario's pizza and measures its tail risk
func (e *Evaluator) EvaluateScenario(ctx context.Context, id string) (*EvaluationResult, error) {
	scenario, exists := e.scenarios[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, id)
	}

	start := time.Now()
	e.logger.Info("Evaluating scenario", zap.String("scenario", id))

	pizza, err := e.optimizer.Optimize(ctx, scenario.Request())
	if err != nil {
		e.logger.Warn("Scenario optimization failed", zap.String("scenario", id), zap.Error(err))
		return nil, fmt.Errorf("scenario %s: %w", id, err)
	}

	measures, err := risk.Measure(pizza.Taste(), scenario.Quantile)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", id, err)
	}

	return &EvaluationResult{
		Scenario: id,
		Pizza:    pizza,
		Risk:     measures,
		Metrics: map[string]float64{
			"price":                     pizza.Price().InexactFloat64(),
			"protein":                   pizza.Protein().InexactFloat64(),
			"carbohydrates":             pizza.Carbohydrates().InexactFloat64(),
			"calories":                  pizza.Calories().InexactFloat64(),
			"average_fat":               pizza.AverageFat(),
			"expected_taste":            measures.Expected,
			"taste_at_risk":             measures.TaR,
			"conditional_taste_at_risk": measures.CTaR,
		},
		Duration:  time.Since(start),
		Evaluated: time.Now().UTC(),
	}, nil
}

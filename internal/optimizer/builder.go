package optimizer

import (
	"fmt"
	"math"

	"maestro/internal/models"
	"maestro/internal/solver"
)

// Objective selects the optimization goal
type Objective string

const (
	// ObjectivePrice minimizes the total price
	ObjectivePrice Objective = "price"
	// ObjectiveTaste maximizes expected taste minus lambda times price
	ObjectiveTaste Objective = "taste"
)

// ParseObjective converts a string into an Objective
func ParseObjective(s string) (Objective, error) {
	switch o := Objective(s); o {
	case ObjectivePrice, ObjectiveTaste:
		return o, nil
	}
	return "", fmt.Errorf("unknown objective %q", s)
}

// BuildModel translates bounds and counts into a binary program with one
// variable per ingredient, in the order given.
//
// Fat is random, so its row bounds the expected fat Σ x·mean(fat). This is an
// approximation: a realised pizza may exceed the fat range.
func BuildModel(ingredients []models.Ingredient, bounds NutrientBounds, counts CategoryCounts, objective Objective, lambda float64) (*solver.Model, error) {
	if err := validate(bounds, counts, objective, lambda); err != nil {
		return nil, err
	}

	n := len(ingredients)
	m := &solver.Model{
		Variables: make([]string, n),
		Objective: make([]float64, n),
	}

	price := make([]float64, n)
	protein := make([]float64, n)
	fat := make([]float64, n)
	carbs := make([]float64, n)
	calories := make([]float64, n)
	for j, ing := range ingredients {
		m.Variables[j] = ing.Name
		price[j] = ing.Price.InexactFloat64()
		protein[j] = ing.Protein.InexactFloat64()
		fat[j] = ing.Fat.Mean()
		carbs[j] = ing.Carbohydrates.InexactFloat64()
		calories[j] = ing.Calories.InexactFloat64()
	}

	switch objective {
	case ObjectivePrice:
		m.Sense = solver.Minimize
		copy(m.Objective, price)
	case ObjectiveTaste:
		m.Sense = solver.Maximize
		for j, ing := range ingredients {
			m.Objective[j] = ing.ExpectedTaste() - lambda*price[j]
		}
	}

	m.Constraints = append(m.Constraints,
		row("protein", protein, bounds.Protein),
		row("fat", fat, bounds.Fat),
		row("carbohydrates", carbs, bounds.Carbohydrates),
		row("calories", calories, bounds.Calories),
		row("price", price, bounds.Price),
	)

	for _, c := range models.Categories {
		coeffs := make([]float64, n)
		for j, ing := range ingredients {
			if ing.Category == c {
				coeffs[j] = 1
			}
		}
		want := float64(counts.For(c))
		m.Constraints = append(m.Constraints, solver.Constraint{
			Name:   "count_" + string(c),
			Coeffs: coeffs,
			Lower:  want,
			Upper:  want,
		})
	}
	return m, nil
}

func row(name string, coeffs []float64, b Bounds) solver.Constraint {
	return solver.Constraint{Name: name, Coeffs: coeffs, Lower: b.Min, Upper: b.Max}
}

func validate(bounds NutrientBounds, counts CategoryCounts, objective Objective, lambda float64) error {
	if err := bounds.Validate(); err != nil {
		return err
	}
	if err := counts.Validate(); err != nil {
		return err
	}
	switch objective {
	case ObjectivePrice:
	case ObjectiveTaste:
		if math.IsNaN(lambda) || math.IsInf(lambda, 0) || lambda < 0 {
			return fmt.Errorf("%w: lambda %v must be a non-negative number", ErrInvalidConstraintBounds, lambda)
		}
	default:
		return fmt.Errorf("%w: unknown objective %q", ErrInvalidConstraintBounds, objective)
	}
	return nil
}

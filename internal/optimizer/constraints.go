package optimizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"maestro/internal/models"
)

var (
	// ErrInvalidConstraintBounds is returned for malformed bounds, counts or lambda, before any solve
	ErrInvalidConstraintBounds = errors.New("invalid constraint bounds")

	// ErrInfeasibleModel is returned when the solve ends without a proven optimum
	ErrInfeasibleModel = errors.New("infeasible model")

	// ErrSolverTimeout is returned when the solve exceeds its time budget
	ErrSolverTimeout = errors.New("solver timeout")
)

// Bounds is a feasible range for the aggregate value of a nutrient
type Bounds struct {
	Min float64
	Max float64
}

// Unbounded returns the default range [0, +Inf)
func Unbounded() Bounds {
	return Bounds{Min: 0, Max: math.Inf(1)}
}

// Between returns the range [min, max]
func Between(min, max float64) Bounds {
	return Bounds{Min: min, Max: max}
}

// AtLeast returns the range [min, +Inf)
func AtLeast(min float64) Bounds {
	return Bounds{Min: min, Max: math.Inf(1)}
}

// AtMost returns the range [0, max]
func AtMost(max float64) Bounds {
	return Bounds{Min: 0, Max: max}
}

// Contains reports whether v lies in the range
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

func (b Bounds) validate(name string) error {
	switch {
	case math.IsNaN(b.Min) || math.IsNaN(b.Max):
		return fmt.Errorf("%w: %s bound is NaN", ErrInvalidConstraintBounds, name)
	case math.IsInf(b.Min, 0):
		return fmt.Errorf("%w: %s min is infinite", ErrInvalidConstraintBounds, name)
	case b.Min < 0:
		return fmt.Errorf("%w: %s min %v is negative", ErrInvalidConstraintBounds, name, b.Min)
	case b.Min > b.Max:
		return fmt.Errorf("%w: %s min %v exceeds max %v", ErrInvalidConstraintBounds, name, b.Min, b.Max)
	}
	return nil
}

type boundsJSON struct {
	Min float64  `json:"min"`
	Max *float64 `json:"max,omitempty"`
}

// MarshalJSON omits an infinite max
func (b Bounds) MarshalJSON() ([]byte, error) {
	out := boundsJSON{Min: b.Min}
	if !math.IsInf(b.Max, 1) {
		out.Max = &b.Max
	}
	return json.Marshal(out)
}

// UnmarshalJSON treats a missing max as unbounded
func (b *Bounds) UnmarshalJSON(data []byte) error {
	var in boundsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.Min = in.Min
	b.Max = math.Inf(1)
	if in.Max != nil {
		b.Max = *in.Max
	}
	return nil
}

// NutrientBounds holds a range per tracked nutrient. Fat is bounded on its expectation.
type NutrientBounds struct {
	Price         Bounds `json:"price"`
	Protein       Bounds `json:"protein"`
	Fat           Bounds `json:"fat"`
	Carbohydrates Bounds `json:"carbohydrates"`
	Calories      Bounds `json:"calories"`
}

// DefaultNutrientBounds leaves every nutrient unbounded
func DefaultNutrientBounds() NutrientBounds {
	return NutrientBounds{
		Price:         Unbounded(),
		Protein:       Unbounded(),
		Fat:           Unbounded(),
		Carbohydrates: Unbounded(),
		Calories:      Unbounded(),
	}
}

// UnmarshalJSON fills nutrients missing from the document with the default range
func (nb *NutrientBounds) UnmarshalJSON(data []byte) error {
	type plain NutrientBounds
	out := plain(DefaultNutrientBounds())
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*nb = NutrientBounds(out)
	return nil
}

// Validate checks every range
func (nb NutrientBounds) Validate() error {
	for _, nbound := range []struct {
		name string
		b    Bounds
	}{
		{"price", nb.Price},
		{"protein", nb.Protein},
		{"fat", nb.Fat},
		{"carbohydrates", nb.Carbohydrates},
		{"calories", nb.Calories},
	} {
		if err := nbound.b.validate(nbound.name); err != nil {
			return err
		}
	}
	return nil
}

// CategoryCounts is the exact number of ingredients required per category
type CategoryCounts struct {
	Dough      int `json:"dough"`
	Sauce      int `json:"sauce"`
	Cheese     int `json:"cheese"`
	Meat       int `json:"meat"`
	Vegetables int `json:"vegetable"`
	Fruits     int `json:"fruit"`
}

// DefaultCategoryCounts requires one dough and one sauce
func DefaultCategoryCounts() CategoryCounts {
	return CategoryCounts{Dough: 1, Sauce: 1}
}

// UnmarshalJSON fills categories missing from the document with their default
func (cc *CategoryCounts) UnmarshalJSON(data []byte) error {
	type plain CategoryCounts
	out := plain(DefaultCategoryCounts())
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*cc = CategoryCounts(out)
	return nil
}

// For returns the count required for a category
func (cc CategoryCounts) For(c models.IngredientCategory) int {
	switch c {
	case models.CategoryDough:
		return cc.Dough
	case models.CategorySauce:
		return cc.Sauce
	case models.CategoryCheese:
		return cc.Cheese
	case models.CategoryMeat:
		return cc.Meat
	case models.CategoryVegetable:
		return cc.Vegetables
	case models.CategoryFruit:
		return cc.Fruits
	}
	return 0
}

// Validate rejects negative counts
func (cc CategoryCounts) Validate() error {
	for _, c := range models.Categories {
		if n := cc.For(c); n < 0 {
			return fmt.Errorf("%w: %s count %d is negative", ErrInvalidConstraintBounds, c, n)
		}
	}
	return nil
}

package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/internal/catalog"
	"maestro/internal/models"
	"maestro/internal/solver"
)

func ingredient(name string, c models.IngredientCategory, price, protein, fatMean float64) models.Ingredient {
	return models.Ingredient{
		Name:          name,
		Category:      c,
		Price:         decimal.NewFromFloat(price),
		Protein:       decimal.NewFromFloat(protein),
		Carbohydrates: decimal.NewFromFloat(10),
		Calories:      decimal.NewFromFloat(100),
		Fat:           models.NormalFat(fatMean, 0.1),
	}
}

func smallCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]models.Ingredient{
		ingredient("thin", models.CategoryDough, 1.0, 5, 2),
		ingredient("thick", models.CategoryDough, 2.0, 3, 1),
		ingredient("spelt", models.CategoryDough, 1.5, 7, 3),
		ingredient("red", models.CategorySauce, 0.5, 1, 0.5),
		ingredient("white", models.CategorySauce, 0.8, 4, 9),
		ingredient("mozzarella", models.CategoryCheese, 1.2, 11, 10),
		ingredient("feta", models.CategoryCheese, 0.9, 6, 8),
	})
	require.NoError(t, err)
	return cat
}

func newTestOptimizer(cat *catalog.Catalog, opts ...Option) *Optimizer {
	return New(cat, models.NewSampler(32, 1), opts...)
}

// cheapest enumerates every dough/sauce/cheese triple and returns the lowest
// price satisfying the protein range.
func cheapest(cat *catalog.Catalog, protein Bounds) (float64, bool) {
	best, found := math.Inf(1), false
	for _, d := range cat.ByCategory(models.CategoryDough) {
		for _, s := range cat.ByCategory(models.CategorySauce) {
			for _, c := range cat.ByCategory(models.CategoryCheese) {
				p := d.Protein.Add(s.Protein).Add(c.Protein).InexactFloat64()
				if !protein.Contains(p) {
					continue
				}
				price := d.Price.Add(s.Price).Add(c.Price).InexactFloat64()
				if price < best {
					best = price
				}
				found = true
			}
		}
	}
	return best, found
}

func TestMinimizePrice_MatchesEnumeration(t *testing.T) {
	cat := smallCatalog(t)
	opt := newTestOptimizer(cat)
	counts := CategoryCounts{Dough: 1, Sauce: 1, Cheese: 1}

	for _, protein := range []Bounds{Unbounded(), AtLeast(14), Between(18, 20), AtLeast(20), Between(0, 12)} {
		bounds := DefaultNutrientBounds()
		bounds.Protein = protein

		want, feasible := cheapest(cat, protein)
		pizza, err := opt.MinimizePrice(context.Background(), bounds, counts)
		if !feasible {
			assert.ErrorIs(t, err, ErrInfeasibleModel, "protein %+v", protein)
			continue
		}
		require.NoError(t, err, "protein %+v", protein)
		assert.InDelta(t, want, pizza.Price().InexactFloat64(), 1e-9, "protein %+v", protein)
		assert.True(t, protein.Contains(pizza.Protein().InexactFloat64()))
	}
}

func TestMinimizePrice_TwoDoughScenario(t *testing.T) {
	cat, err := catalog.New([]models.Ingredient{
		ingredient("cheap_dough", models.CategoryDough, 1, 5, 2),
		ingredient("dear_dough", models.CategoryDough, 2, 3, 1),
		ingredient("cheap_sauce", models.CategorySauce, 1, 5, 2),
		ingredient("dear_sauce", models.CategorySauce, 2, 3, 1),
	})
	require.NoError(t, err)

	bounds := DefaultNutrientBounds()
	bounds.Protein = Between(4, 20)

	pizza, err := newTestOptimizer(cat).MinimizePrice(context.Background(), bounds, DefaultCategoryCounts())
	require.NoError(t, err)
	assert.Equal(t, []string{"cheap_dough", "cheap_sauce"}, pizza.IngredientNames())
	assert.True(t, pizza.Price().Equal(decimal.NewFromInt(2)))
}

func TestOptimize_CountExactness(t *testing.T) {
	opt := newTestOptimizer(catalog.Default())
	counts := CategoryCounts{Dough: 2, Sauce: 1, Cheese: 2, Meat: 1, Vegetables: 3, Fruits: 1}

	price, err := opt.MinimizePrice(context.Background(), DefaultNutrientBounds(), counts)
	require.NoError(t, err)
	taste, err := opt.MaximizeTasteMinusPrice(context.Background(), DefaultNutrientBounds(), counts, 0.5)
	require.NoError(t, err)

	for _, pizza := range []*models.Pizza{price, taste} {
		sel := pizza.Selection()
		for _, c := range models.Categories {
			assert.Equal(t, counts.For(c), sel.Count(c), "category %s", c)
		}
	}
}

func TestMinimizePrice_DefaultCatalog(t *testing.T) {
	pizza, err := newTestOptimizer(catalog.Default()).MinimizePrice(context.Background(), DefaultNutrientBounds(), DefaultCategoryCounts())
	require.NoError(t, err)
	assert.Equal(t, []string{"classic_dough", "tomato_sauce"}, pizza.IngredientNames())
	assert.True(t, pizza.Price().Equal(decimal.RequireFromString("2.00")))
}

func TestMaximizeTasteMinusPrice(t *testing.T) {
	cat := smallCatalog(t)
	opt := newTestOptimizer(cat)
	counts := CategoryCounts{Dough: 1, Sauce: 1, Cheese: 1}

	// Without a price penalty the fattest combination wins.
	pizza, err := opt.MaximizeTasteMinusPrice(context.Background(), DefaultNutrientBounds(), counts, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"spelt", "white", "mozzarella"}, pizza.IngredientNames())

	// A steep penalty turns it into a price minimisation.
	pizza, err = opt.MaximizeTasteMinusPrice(context.Background(), DefaultNutrientBounds(), counts, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"thin", "red", "feta"}, pizza.IngredientNames())
}

func TestOptimize_Infeasible(t *testing.T) {
	cat := smallCatalog(t)
	opt := newTestOptimizer(cat)

	var total float64
	for _, ing := range cat.All() {
		total += ing.Protein.InexactFloat64()
	}
	bounds := DefaultNutrientBounds()
	bounds.Protein = AtLeast(total + 1)

	_, err := opt.MinimizePrice(context.Background(), bounds, DefaultCategoryCounts())
	assert.ErrorIs(t, err, ErrInfeasibleModel)
	_, err = opt.MaximizeTasteMinusPrice(context.Background(), bounds, DefaultCategoryCounts(), 1)
	assert.ErrorIs(t, err, ErrInfeasibleModel)

	// more cheeses than the catalog holds
	_, err = opt.MinimizePrice(context.Background(), DefaultNutrientBounds(), CategoryCounts{Dough: 1, Sauce: 1, Cheese: 3})
	assert.ErrorIs(t, err, ErrInfeasibleModel)
}

func TestOptimize_InvalidBounds(t *testing.T) {
	opt := newTestOptimizer(smallCatalog(t))

	tests := []struct {
		name   string
		bounds func(*NutrientBounds)
		counts CategoryCounts
		lambda float64
	}{
		{"min above max", func(b *NutrientBounds) { b.Protein = Between(10, 5) }, DefaultCategoryCounts(), 0},
		{"negative min", func(b *NutrientBounds) { b.Calories = Between(-1, 5) }, DefaultCategoryCounts(), 0},
		{"nan", func(b *NutrientBounds) { b.Fat = Between(math.NaN(), 5) }, DefaultCategoryCounts(), 0},
		{"negative count", func(*NutrientBounds) {}, CategoryCounts{Dough: 1, Sauce: -1}, 0},
		{"negative lambda", func(*NutrientBounds) {}, DefaultCategoryCounts(), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bounds := DefaultNutrientBounds()
			tt.bounds(&bounds)
			_, err := opt.MaximizeTasteMinusPrice(context.Background(), bounds, tt.counts, tt.lambda)
			assert.ErrorIs(t, err, ErrInvalidConstraintBounds)
			assert.NotErrorIs(t, err, ErrInfeasibleModel)
		})
	}
}

type stubSolver struct {
	result *solver.Result
}

func (s stubSolver) Solve(ctx context.Context, m *solver.Model) (*solver.Result, error) {
	return s.result, nil
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) ObserveOptimization(_ Objective, outcome string, _ time.Duration, _ int) {
	r.outcomes = append(r.outcomes, outcome)
}

func TestOptimize_SolverOutcomes(t *testing.T) {
	cat := smallCatalog(t)

	t.Run("timeout", func(t *testing.T) {
		obs := &recordingObserver{}
		opt := newTestOptimizer(cat, WithSolver(stubSolver{&solver.Result{Status: solver.StatusTimeout}}), WithObserver(obs))
		_, err := opt.MinimizePrice(context.Background(), DefaultNutrientBounds(), DefaultCategoryCounts())
		assert.ErrorIs(t, err, ErrSolverTimeout)
		assert.NotErrorIs(t, err, ErrInfeasibleModel)
		assert.Equal(t, []string{OutcomeTimeout}, obs.outcomes)
	})

	t.Run("failure", func(t *testing.T) {
		opt := newTestOptimizer(cat, WithSolver(stubSolver{&solver.Result{
			Status: solver.StatusFailed,
			Err:    errors.Join(solver.ErrSolverFailure, errors.New("numerical trouble")),
		}}))
		_, err := opt.MinimizePrice(context.Background(), DefaultNutrientBounds(), DefaultCategoryCounts())
		assert.ErrorIs(t, err, ErrInfeasibleModel)
		assert.ErrorIs(t, err, solver.ErrSolverFailure)
	})

	t.Run("wrong count in assignment", func(t *testing.T) {
		x := make([]float64, cat.Len())
		x[0], x[1] = 1, 1 // two doughs, no sauce
		opt := newTestOptimizer(cat, WithSolver(stubSolver{&solver.Result{Status: solver.StatusOptimal, X: x}}))
		_, err := opt.MinimizePrice(context.Background(), DefaultNutrientBounds(), DefaultCategoryCounts())
		assert.ErrorIs(t, err, ErrInfeasibleModel)
	})
}

func TestOptimize_DeadlineExceeded(t *testing.T) {
	obs := &recordingObserver{}
	opt := newTestOptimizer(catalog.Default(), WithTimeout(time.Minute), WithObserver(obs))
	counts := CategoryCounts{Dough: 1, Sauce: 1, Cheese: 2, Meat: 2, Vegetables: 2, Fruits: 1}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := opt.MaximizeTasteMinusPrice(ctx, DefaultNutrientBounds(), counts, 0.3)
	assert.ErrorIs(t, err, ErrSolverTimeout)
	assert.NotErrorIs(t, err, ErrInfeasibleModel)
	assert.Equal(t, []string{OutcomeTimeout}, obs.outcomes)
}

func TestBounds_JSON(t *testing.T) {
	var req Request
	err := json.Unmarshal([]byte(`{"objective":"taste","bounds":{"protein":{"min":4,"max":20},"fat":{"min":1}},"counts":{"cheese":1},"lambda":0.2}`), &req)
	require.NoError(t, err)

	assert.Equal(t, ObjectiveTaste, req.Objective)
	assert.Equal(t, Between(4, 20), req.Bounds.Protein)
	assert.Equal(t, AtLeast(1), req.Bounds.Fat)
	assert.Equal(t, Unbounded(), req.Bounds.Price)
	assert.Equal(t, CategoryCounts{Dough: 1, Sauce: 1, Cheese: 1}, req.Counts)

	data, err := json.Marshal(Unbounded())
	require.NoError(t, err)
	assert.JSONEq(t, `{"min":0}`, string(data))
}

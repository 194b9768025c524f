package evaluation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/internal/models"
)

func pizzaWith(t *testing.T, price, protein, carbs int64, fat float64) *models.Pizza {
	t.Helper()
	p, err := models.NewPizza(models.Selection{
		Dough: []models.Ingredient{{
			Name:          "dough",
			Category:      models.CategoryDough,
			Price:         decimal.NewFromInt(price),
			Protein:       decimal.NewFromInt(protein),
			Carbohydrates: decimal.NewFromInt(carbs),
			Fat:           models.NormalFat(fat, 0),
		}},
	}, models.NewSampler(10, 1))
	require.NoError(t, err)
	return p
}

func TestPriceSensitivities(t *testing.T) {
	// price = 2 * protein + 1; carbs fall as price rises; fat = price / 4
	pizzas := []*models.Pizza{
		pizzaWith(t, 3, 1, 30, 0.75),
		pizzaWith(t, 5, 2, 20, 1.25),
		pizzaWith(t, 9, 4, 0, 2.25),
	}

	s, err := PriceSensitivities(pizzas)
	require.NoError(t, err)
	assert.InDelta(t, 2, s.Protein, 1e-9)
	assert.InDelta(t, -0.2, s.Carbohydrates, 1e-9)
	assert.InDelta(t, 4, s.Fat, 1e-9)
	assert.Equal(t, 3, s.Pizzas)
}

func TestPriceSensitivities_InsufficientData(t *testing.T) {
	_, err := PriceSensitivities(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = PriceSensitivities([]*models.Pizza{pizzaWith(t, 1, 1, 1, 1)})
	assert.ErrorIs(t, err, ErrInsufficientData)

	// identical protein everywhere
	_, err = PriceSensitivities([]*models.Pizza{
		pizzaWith(t, 1, 5, 1, 1),
		pizzaWith(t, 2, 5, 2, 2),
	})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

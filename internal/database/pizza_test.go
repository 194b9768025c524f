package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/internal/catalog"
	"maestro/internal/models"
)

func newTestRepository(t *testing.T) *MenuRepository {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMenuRepository(db, catalog.Default())
}

func newTestPizza(t *testing.T, names ...string) *models.Pizza {
	t.Helper()
	ingredients, err := catalog.Default().Resolve(names)
	require.NoError(t, err)
	sel, err := models.SelectionOf(ingredients)
	require.NoError(t, err)
	p, err := models.NewPizza(sel, models.NewSampler(64, 1))
	require.NoError(t, err)
	return p
}

func TestMenuRepository_RoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p := newTestPizza(t, "classic_dough", "tomato_sauce", "mozzarella", "parmesan", "ham", "fig")
	require.NoError(t, repo.Add(ctx, p))

	got, err := repo.Get(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, p.ID(), got.ID())
	assert.Equal(t, p.IngredientNames(), got.IngredientNames())
	assert.Equal(t, p.Taste(), got.Taste())
	assert.Equal(t, p.AverageFat(), got.AverageFat())
	assert.True(t, p.Price().Equal(got.Price()))
	assert.WithinDuration(t, p.CreatedAt(), got.CreatedAt(), time.Second)

	var rec PizzaRecord
	require.NoError(t, repo.db.Where("id = ?", p.ID()).First(&rec).Error)
	assert.Equal(t, StringSlice{"mozzarella", "parmesan"}, rec.Cheese)
	assert.True(t, rec.Price.Equal(p.Price()))
}

func TestMenuRepository_ListKeepsOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := newTestPizza(t, "wholewheat_dough", "pesto_sauce")
	second := newTestPizza(t, "classic_dough", "tomato_sauce")
	third := newTestPizza(t, "gluten_free_dough", "bbq_sauce", "chicken")
	for _, p := range []*models.Pizza{first, second, third} {
		require.NoError(t, repo.Add(ctx, p))
	}
	assert.ErrorIs(t, repo.Add(ctx, second), models.ErrDuplicatePizza)

	pizzas, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, pizzas, 3)
	assert.Equal(t, []string{first.ID(), second.ID(), third.ID()},
		[]string{pizzas[0].ID(), pizzas[1].ID(), pizzas[2].ID()})
}

func TestMenuRepository_Remove(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p := newTestPizza(t, "classic_dough", "tomato_sauce")
	require.NoError(t, repo.Add(ctx, p))
	require.NoError(t, repo.Remove(ctx, p.ID()))

	assert.ErrorIs(t, repo.Remove(ctx, p.ID()), models.ErrPizzaNotFound)
	_, err := repo.Get(ctx, p.ID())
	assert.ErrorIs(t, err, models.ErrPizzaNotFound)

	pizzas, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, pizzas)
}

func TestMenuRepository_CanceledContext(t *testing.T) {
	repo := newTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.Error(t, err)
}

func TestTasteEncoding(t *testing.T) {
	samples := []float64{0, -1.5, 3.25, 1e-300}
	got, err := decodeTaste(encodeTaste(samples))
	require.NoError(t, err)
	assert.Equal(t, samples, got)

	_, err = decodeTaste([]byte{1, 2, 3})
	assert.Error(t, err)
}

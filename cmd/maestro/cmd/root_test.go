package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/internal/api"
	"maestro/internal/catalog"
	"maestro/internal/models"
	"maestro/internal/optimizer"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MAESTRO_SAMPLE_SIZE", "500")
	t.Setenv("MAESTRO_SAMPLE_SEED", "3")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "maestro version "+Version)
}

func TestIngredients(t *testing.T) {
	out, err := execute(t, "ingredients", "--category", "cheese")
	require.NoError(t, err)
	assert.Contains(t, out, "mozzarella")
	assert.Contains(t, out, "gorgonzola")
	assert.NotContains(t, out, "pepperoni")

	_, err = execute(t, "ingredients", "--category", "dessert")
	assert.Error(t, err)
}

func TestOptimizeJSON(t *testing.T) {
	out, err := execute(t, "optimize", "price", "--json")
	require.NoError(t, err)

	var result struct {
		Pizza struct {
			Ingredients map[string][]string `json:"ingredients"`
			Price       decimal.Decimal     `json:"price"`
			Samples     int                 `json:"samples"`
		} `json:"pizza"`
		Risk struct {
			Quantile float64 `json:"quantile"`
		} `json:"risk"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.True(t, result.Pizza.Price.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, []string{"classic_dough"}, result.Pizza.Ingredients["dough"])
	assert.Equal(t, 500, result.Pizza.Samples)
}

func TestOptimizeSummary(t *testing.T) {
	out, err := execute(t, "optimize", "taste", "--cheese", "1", "--lambda", "0.1", "--calories-max", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "Pizza ")
	assert.Contains(t, out, "Cheese")
	assert.Contains(t, out, "TaR 0.05")
}

func TestOptimizeErrors(t *testing.T) {
	_, err := execute(t, "optimize", "price", "--protein-min", "10000")
	assert.ErrorIs(t, err, optimizer.ErrInfeasibleModel)

	_, err = execute(t, "optimize", "price", "--price-min", "-1")
	assert.ErrorIs(t, err, optimizer.ErrInvalidConstraintBounds)

	_, err = execute(t, "optimize", "cheapest")
	assert.Error(t, err)

	_, err = execute(t, "optimize")
	assert.Error(t, err)
}

func TestNutrientFlags(t *testing.T) {
	fs := pflag.NewFlagSet("optimize", pflag.ContinueOnError)
	nf := newNutrientFlags(fs)
	require.NoError(t, fs.Parse([]string{"--protein-min", "20", "--fat-max", "15"}))

	nb := nf.bounds()
	assert.Equal(t, optimizer.AtLeast(20), nb.Protein)
	assert.Equal(t, optimizer.AtMost(15), nb.Fat)
	assert.Equal(t, optimizer.Unbounded(), nb.Price)
}

func newRemoteServer(t *testing.T) (*httptest.Server, *models.Pizza) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat := catalog.Default()
	sampler := models.NewSampler(200, 5)
	store := api.NewMemoryStore(nil)

	ingredients, err := cat.Resolve([]string{"classic_dough", "tomato_sauce", "mozzarella"})
	require.NoError(t, err)
	sel, err := models.SelectionOf(ingredients)
	require.NoError(t, err)
	pizza, err := models.NewPizza(sel, sampler)
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), pizza))

	srv := api.NewServer(api.Dependencies{
		Catalog:   cat,
		Optimizer: optimizer.New(cat, sampler),
		Sampler:   sampler,
		Store:     store,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts, pizza
}

func TestMenuCommands(t *testing.T) {
	ts, pizza := newRemoteServer(t)

	out, err := execute(t, "menu", "list", "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, pizza.ID())
	assert.Contains(t, out, "mozzarella")

	out, err = execute(t, "menu", "risk", "--server", ts.URL, "--quantile", "0.1")
	require.NoError(t, err)
	assert.Contains(t, out, "Menu of 1 pizzas")

	_, err = execute(t, "menu", "list", "--server", ts.URL, "--sort", "weight")
	assert.Error(t, err)

	out, err = execute(t, "menu", "remove", pizza.ID(), "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "removed "+pizza.ID())

	_, err = execute(t, "menu", "remove", pizza.ID(), "--server", ts.URL)
	assert.ErrorContains(t, err, "404")
}

func TestScenarioCommands(t *testing.T) {
	ts, _ := newRemoteServer(t)

	out, err := execute(t, "scenario", "list", "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "budget")
	assert.Contains(t, out, "protein_rich")

	out, err = execute(t, "scenario", "run", "budget", "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "taste_at_risk")

	_, err = execute(t, "scenario", "run", "banquet", "--server", ts.URL)
	assert.Error(t, err)
}

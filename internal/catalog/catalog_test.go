package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/internal/models"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NotNil(t, c)
	assert.Same(t, c, Default())

	for _, category := range models.Categories {
		assert.NotEmpty(t, c.ByCategory(category), "category %s", category)
	}

	dough, ok := c.Lookup("classic_dough")
	require.True(t, ok)
	assert.Equal(t, models.CategoryDough, dough.Category)
	assert.True(t, dough.Price.Equal(decimal.RequireFromString("1.50")))

	bacon, ok := c.Lookup("bacon")
	require.True(t, ok)
	assert.Equal(t, models.FatLogNormal, bacon.Fat.Kind)
}

func TestCatalog_AllIsACopy(t *testing.T) {
	c := Default()
	all := c.All()
	require.Equal(t, c.Len(), len(all))
	first := all[0].Name

	all[0].Name = "changed"
	assert.Equal(t, first, c.All()[0].Name)
}

func TestCatalog_Resolve(t *testing.T) {
	c := Default()
	got, err := c.Resolve([]string{"tomato_sauce", "classic_dough"})
	require.NoError(t, err)
	assert.Equal(t, "tomato_sauce", got[0].Name)

	_, err = c.Resolve([]string{"classic_dough", "anchovy_ice_cream"})
	assert.ErrorIs(t, err, ErrUnknownIngredient)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "ingredients: [\n"},
		{"unknown category", "ingredients:\n  - {name: x, category: dessert, price: 1, fat: {kind: normal, mu: 1, sigma: 0}}\n"},
		{"negative price", "ingredients:\n  - {name: x, category: dough, price: -1, fat: {kind: normal, mu: 1, sigma: 0}}\n"},
		{"bad fat", "ingredients:\n  - {name: x, category: dough, price: 1, fat: {kind: gamma, mu: 1, sigma: 1}}\n"},
		{"duplicate", "ingredients:\n  - {name: x, category: dough, price: 1, fat: {kind: normal, mu: 1, sigma: 0}}\n  - {name: x, category: sauce, price: 1, fat: {kind: normal, mu: 1, sigma: 0}}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := "ingredients:\n  - {name: base, category: dough, price: 0.75, protein: 3, fat: {kind: normal, mu: 1, sigma: 0.1}}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Len(t, c.ByCategory(models.CategorySauce), 0)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

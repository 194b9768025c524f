// Package catalog holds the fixed, read-only table of pizza ingredients.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"maestro/internal/models"
)

// ErrUnknownIngredient is returned when a name is not in the catalog
var ErrUnknownIngredient = errors.New("unknown ingredient")

//go:embed ingredients.yaml
var defaultTable []byte

// Catalog is an immutable ingredient table. It is safe for concurrent use.
type Catalog struct {
	ingredients []models.Ingredient
	byName      map[string]int
}

// record is the on-disk form of an ingredient
type record struct {
	Name          string                 `yaml:"name"`
	Category      string                 `yaml:"category"`
	Price         float64                `yaml:"price"`
	Protein       float64                `yaml:"protein"`
	Carbohydrates float64                `yaml:"carbohydrates"`
	Calories      float64                `yaml:"calories"`
	Fat           models.FatDistribution `yaml:"fat"`
}

type table struct {
	Ingredients []record `yaml:"ingredients"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog built from the embedded table.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultTable)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded table is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load reads a catalog from a YAML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML
func Parse(data []byte) (*Catalog, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	ingredients := make([]models.Ingredient, 0, len(t.Ingredients))
	for _, r := range t.Ingredients {
		category, err := models.ParseCategory(r.Category)
		if err != nil {
			return nil, fmt.Errorf("ingredient %s: %w", r.Name, err)
		}
		ingredients = append(ingredients, models.Ingredient{
			Name:          r.Name,
			Category:      category,
			Price:         decimal.NewFromFloat(r.Price),
			Protein:       decimal.NewFromFloat(r.Protein),
			Carbohydrates: decimal.NewFromFloat(r.Carbohydrates),
			Calories:      decimal.NewFromFloat(r.Calories),
			Fat:           r.Fat,
		})
	}
	return New(ingredients)
}

// New builds a catalog from ingredient records. Names must be unique.
func New(ingredients []models.Ingredient) (*Catalog, error) {
	c := &Catalog{
		ingredients: make([]models.Ingredient, len(ingredients)),
		byName:      make(map[string]int, len(ingredients)),
	}
	for i, ing := range ingredients {
		if err := ing.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[ing.Name]; dup {
			return nil, fmt.Errorf("duplicate ingredient %q", ing.Name)
		}
		c.ingredients[i] = ing
		c.byName[ing.Name] = i
	}
	return c, nil
}

// All returns every ingredient in catalog order
func (c *Catalog) All() []models.Ingredient {
	return append([]models.Ingredient(nil), c.ingredients...)
}

// ByCategory returns the ingredients of one category in catalog order
func (c *Catalog) ByCategory(category models.IngredientCategory) []models.Ingredient {
	var out []models.Ingredient
	for _, ing := range c.ingredients {
		if ing.Category == category {
			out = append(out, ing)
		}
	}
	return out
}

// Lookup returns the ingredient with the given name
func (c *Catalog) Lookup(name string) (models.Ingredient, bool) {
	i, ok := c.byName[name]
	if !ok {
		return models.Ingredient{}, false
	}
	return c.ingredients[i], true
}

// Len returns the number of ingredients
func (c *Catalog) Len() int {
	return len(c.ingredients)
}

// Resolve looks up a list of names, failing on the first unknown one
func (c *Catalog) Resolve(names []string) ([]models.Ingredient, error) {
	out := make([]models.Ingredient, 0, len(names))
	for _, name := range names {
		ing, ok := c.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownIngredient, name)
		}
		out = append(out, ing)
	}
	return out, nil
}

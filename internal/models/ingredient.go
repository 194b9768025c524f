package models

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"
)

// IngredientCategory represents the slot an ingredient fills on a pizza
type IngredientCategory string

const (
	// Ingredient categories
	CategoryDough     IngredientCategory = "dough"
	CategorySauce     IngredientCategory = "sauce"
	CategoryCheese    IngredientCategory = "cheese"
	CategoryMeat      IngredientCategory = "meat"
	CategoryVegetable IngredientCategory = "vegetable"
	CategoryFruit     IngredientCategory = "fruit"
)

// Categories lists every ingredient category in menu order.
var Categories = []IngredientCategory{
	CategoryDough,
	CategorySauce,
	CategoryCheese,
	CategoryMeat,
	CategoryVegetable,
	CategoryFruit,
}

// tasteWeights maps each category to the share of its fat that ends up as taste.
var tasteWeights = map[IngredientCategory]float64{
	CategoryDough:     0.05,
	CategorySauce:     0.20,
	CategoryCheese:    0.30,
	CategoryFruit:     0.10,
	CategoryMeat:      0.05,
	CategoryVegetable: 0.05,
}

// Valid reports whether c is one of the known categories
func (c IngredientCategory) Valid() bool {
	_, ok := tasteWeights[c]
	return ok
}

// TasteWeight returns the per-category fat-to-taste coefficient
func (c IngredientCategory) TasteWeight() float64 {
	return tasteWeights[c]
}

// ParseCategory converts a string into an IngredientCategory
func ParseCategory(s string) (IngredientCategory, error) {
	c := IngredientCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown ingredient category %q", s)
	}
	return c, nil
}

// FatKind identifies the family of a fat distribution
type FatKind string

const (
	FatNormal    FatKind = "normal"
	FatLogNormal FatKind = "lognormal"
)

// FatDistribution describes the random fat content of one portion of an ingredient.
// For FatNormal, Mu and Sigma are the mean and standard deviation in grams.
// For FatLogNormal they are the parameters of the underlying normal.
type FatDistribution struct {
	Kind  FatKind `json:"kind" yaml:"kind"`
	Mu    float64 `json:"mu" yaml:"mu"`
	Sigma float64 `json:"sigma" yaml:"sigma"`
}

// NormalFat returns a normally distributed fat content
func NormalFat(mean, stddev float64) FatDistribution {
	return FatDistribution{Kind: FatNormal, Mu: mean, Sigma: stddev}
}

// LogNormalFat returns a log-normally distributed fat content
func LogNormalFat(mu, sigma float64) FatDistribution {
	return FatDistribution{Kind: FatLogNormal, Mu: mu, Sigma: sigma}
}

// Validate checks the distribution parameters
func (f FatDistribution) Validate() error {
	if math.IsNaN(f.Mu) || math.IsInf(f.Mu, 0) {
		return fmt.Errorf("fat mu must be finite, got %v", f.Mu)
	}
	if math.IsNaN(f.Sigma) || math.IsInf(f.Sigma, 0) || f.Sigma < 0 {
		return fmt.Errorf("fat sigma must be finite and non-negative, got %v", f.Sigma)
	}
	switch f.Kind {
	case FatNormal:
		if f.Mu < 0 {
			return fmt.Errorf("fat mean must be non-negative, got %v", f.Mu)
		}
	case FatLogNormal:
	default:
		return fmt.Errorf("unknown fat distribution %q", f.Kind)
	}
	return nil
}

// Mean returns the expected fat content
func (f FatDistribution) Mean() float64 {
	switch f.Kind {
	case FatLogNormal:
		return distuv.LogNormal{Mu: f.Mu, Sigma: f.Sigma}.Mean()
	default:
		return f.Mu
	}
}

// StdDev returns the standard deviation of the fat content
func (f FatDistribution) StdDev() float64 {
	switch f.Kind {
	case FatLogNormal:
		return distuv.LogNormal{Mu: f.Mu, Sigma: f.Sigma}.StdDev()
	default:
		return f.Sigma
	}
}

// rander returns a sampler for the distribution drawing from src
func (f FatDistribution) rander(src rand.Source) distuv.Rander {
	switch f.Kind {
	case FatLogNormal:
		return distuv.LogNormal{Mu: f.Mu, Sigma: f.Sigma, Src: src}
	default:
		return distuv.Normal{Mu: f.Mu, Sigma: f.Sigma, Src: src}
	}
}

// Ingredient is an immutable catalog record
type Ingredient struct {
	Name          string             `json:"name"`
	Category      IngredientCategory `json:"category"`
	Price         decimal.Decimal    `json:"price"`
	Protein       decimal.Decimal    `json:"protein"`
	Carbohydrates decimal.Decimal    `json:"carbohydrates"`
	Calories      decimal.Decimal    `json:"calories"`
	Fat           FatDistribution    `json:"fat"`
}

// ExpectedTaste returns the taste contribution of the ingredient at its mean fat
func (i Ingredient) ExpectedTaste() float64 {
	return i.Category.TasteWeight() * i.Fat.Mean()
}

// Validate checks that the record is usable in a catalog
func (i Ingredient) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("ingredient name is required")
	}
	if !i.Category.Valid() {
		return fmt.Errorf("ingredient %s: unknown category %q", i.Name, i.Category)
	}
	for field, v := range map[string]decimal.Decimal{
		"price":         i.Price,
		"protein":       i.Protein,
		"carbohydrates": i.Carbohydrates,
		"calories":      i.Calories,
	} {
		if v.IsNegative() {
			return fmt.Errorf("ingredient %s: %s must be non-negative", i.Name, field)
		}
	}
	if err := i.Fat.Validate(); err != nil {
		return fmt.Errorf("ingredient %s: %w", i.Name, err)
	}
	return nil
}

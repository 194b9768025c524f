package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrCategoryMismatch is returned when an ingredient is placed in a slot of another category.
var ErrCategoryMismatch = errors.New("ingredient category mismatch")

// Selection is the set of ingredients a pizza is assembled from, by slot.
// Each slot is a list so that the requested count per category can be any number.
type Selection struct {
	Dough      []Ingredient
	Sauce      []Ingredient
	Cheese     []Ingredient
	Meat       []Ingredient
	Vegetables []Ingredient
	Fruits     []Ingredient
}

// slots returns the selection grouped by the category every member must have
func (s Selection) slots() []struct {
	category IngredientCategory
	items    []Ingredient
} {
	return []struct {
		category IngredientCategory
		items    []Ingredient
	}{
		{CategoryDough, s.Dough},
		{CategorySauce, s.Sauce},
		{CategoryCheese, s.Cheese},
		{CategoryMeat, s.Meat},
		{CategoryVegetable, s.Vegetables},
		{CategoryFruit, s.Fruits},
	}
}

// Validate checks that every ingredient sits in the slot of its own category
func (s Selection) Validate() error {
	for _, slot := range s.slots() {
		for _, ing := range slot.items {
			if ing.Category != slot.category {
				return fmt.Errorf("%w: %s is %s, cannot be used as %s",
					ErrCategoryMismatch, ing.Name, ing.Category, slot.category)
			}
		}
	}
	return nil
}

// Ingredients flattens the selection in slot order
func (s Selection) Ingredients() []Ingredient {
	var all []Ingredient
	for _, slot := range s.slots() {
		all = append(all, slot.items...)
	}
	return all
}

// Count returns the number of selected ingredients of a category
func (s Selection) Count(c IngredientCategory) int {
	for _, slot := range s.slots() {
		if slot.category == c {
			return len(slot.items)
		}
	}
	return 0
}

// SelectionOf groups ingredients into slots by their own category
func SelectionOf(ingredients []Ingredient) (Selection, error) {
	var sel Selection
	for _, ing := range ingredients {
		switch ing.Category {
		case CategoryDough:
			sel.Dough = append(sel.Dough, ing)
		case CategorySauce:
			sel.Sauce = append(sel.Sauce, ing)
		case CategoryCheese:
			sel.Cheese = append(sel.Cheese, ing)
		case CategoryMeat:
			sel.Meat = append(sel.Meat, ing)
		case CategoryVegetable:
			sel.Vegetables = append(sel.Vegetables, ing)
		case CategoryFruit:
			sel.Fruits = append(sel.Fruits, ing)
		default:
			return Selection{}, fmt.Errorf("%w: %s has unknown category %q", ErrCategoryMismatch, ing.Name, ing.Category)
		}
	}
	return sel, nil
}

// Pizza is an immutable composition of catalog ingredients together with
// its sampled taste distribution.
type Pizza struct {
	id        string
	selection Selection
	createdAt time.Time

	price         decimal.Decimal
	protein       decimal.Decimal
	carbohydrates decimal.Decimal
	calories      decimal.Decimal

	taste      []float64
	averageFat float64
}

// NewPizza assembles a pizza and draws its taste samples from sampler
func NewPizza(sel Selection, sampler *Sampler) (*Pizza, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if sampler == nil {
		return nil, errors.New("pizza sampler is required")
	}
	p := newPizza(uuid.NewString(), sel, time.Now().UTC())

	ingredients := sel.Ingredients()
	draws := sampler.draw(ingredients)
	p.taste = make([]float64, sampler.Size())

	var fatSum float64
	for i, ing := range ingredients {
		w := ing.Category.TasteWeight()
		for k, fat := range draws[i] {
			p.taste[k] += w * fat
			fatSum += fat
		}
	}
	if n := len(ingredients) * sampler.Size(); n > 0 {
		p.averageFat = fatSum / float64(n)
	}
	return p, nil
}

// RestorePizza rebuilds a previously assembled pizza, keeping its identifier
// and taste samples.
func RestorePizza(id string, sel Selection, taste []float64, averageFat float64, createdAt time.Time) (*Pizza, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid pizza id %q: %w", id, err)
	}
	p := newPizza(id, sel, createdAt)
	p.taste = append([]float64(nil), taste...)
	p.averageFat = averageFat
	return p, nil
}

func newPizza(id string, sel Selection, createdAt time.Time) *Pizza {
	p := &Pizza{
		id:        id,
		createdAt: createdAt,
		selection: Selection{
			Dough:      append([]Ingredient(nil), sel.Dough...),
			Sauce:      append([]Ingredient(nil), sel.Sauce...),
			Cheese:     append([]Ingredient(nil), sel.Cheese...),
			Meat:       append([]Ingredient(nil), sel.Meat...),
			Vegetables: append([]Ingredient(nil), sel.Vegetables...),
			Fruits:     append([]Ingredient(nil), sel.Fruits...),
		},
	}
	for _, ing := range sel.Ingredients() {
		p.price = p.price.Add(ing.Price)
		p.protein = p.protein.Add(ing.Protein)
		p.carbohydrates = p.carbohydrates.Add(ing.Carbohydrates)
		p.calories = p.calories.Add(ing.Calories)
	}
	return p
}

// ID returns the unique identifier of the pizza
func (p *Pizza) ID() string { return p.id }

// CreatedAt returns when the pizza was assembled
func (p *Pizza) CreatedAt() time.Time { return p.createdAt }

// Selection returns a copy of the selected ingredients by slot
func (p *Pizza) Selection() Selection {
	s := p.selection
	return Selection{
		Dough:      append([]Ingredient(nil), s.Dough...),
		Sauce:      append([]Ingredient(nil), s.Sauce...),
		Cheese:     append([]Ingredient(nil), s.Cheese...),
		Meat:       append([]Ingredient(nil), s.Meat...),
		Vegetables: append([]Ingredient(nil), s.Vegetables...),
		Fruits:     append([]Ingredient(nil), s.Fruits...),
	}
}

// Ingredients returns every selected ingredient in slot order
func (p *Pizza) Ingredients() []Ingredient { return p.selection.Ingredients() }

// Price returns the exact total price
func (p *Pizza) Price() decimal.Decimal { return p.price }

// Protein returns the exact total protein
func (p *Pizza) Protein() decimal.Decimal { return p.protein }

// Carbohydrates returns the exact total carbohydrates
func (p *Pizza) Carbohydrates() decimal.Decimal { return p.carbohydrates }

// Calories returns the exact total calories
func (p *Pizza) Calories() decimal.Decimal { return p.calories }

// AverageFat returns the mean of every fat draw taken for the pizza
func (p *Pizza) AverageFat() float64 { return p.averageFat }

// Taste returns a copy of the taste samples
func (p *Pizza) Taste() []float64 {
	return append([]float64(nil), p.taste...)
}

// SampleCount returns the number of taste samples
func (p *Pizza) SampleCount() int { return len(p.taste) }

// ExpectedTaste returns the mean of the taste samples
func (p *Pizza) ExpectedTaste() float64 {
	if len(p.taste) == 0 {
		return 0
	}
	var sum float64
	for _, t := range p.taste {
		sum += t
	}
	return sum / float64(len(p.taste))
}

// IngredientNames returns the names of the selected ingredients in slot order
func (p *Pizza) IngredientNames() []string {
	ingredients := p.Ingredients()
	names := make([]string, len(ingredients))
	for i, ing := range ingredients {
		names[i] = ing.Name
	}
	return names
}

// pizzaJSON is the wire form of a pizza; taste samples are summarised
type pizzaJSON struct {
	ID            string                          `json:"id"`
	CreatedAt     time.Time                       `json:"created_at"`
	Ingredients   map[IngredientCategory][]string `json:"ingredients"`
	Price         decimal.Decimal                 `json:"price"`
	Protein       decimal.Decimal                 `json:"protein"`
	Carbohydrates decimal.Decimal                 `json:"carbohydrates"`
	Calories      decimal.Decimal                 `json:"calories"`
	AverageFat    float64                         `json:"average_fat"`
	ExpectedTaste float64                         `json:"expected_taste"`
	Samples       int                             `json:"samples"`
}

// MarshalJSON implements json.Marshaler
func (p *Pizza) MarshalJSON() ([]byte, error) {
	byCategory := make(map[IngredientCategory][]string)
	for _, slot := range p.selection.slots() {
		for _, ing := range slot.items {
			byCategory[slot.category] = append(byCategory[slot.category], ing.Name)
		}
	}
	return json.Marshal(pizzaJSON{
		ID:            p.id,
		CreatedAt:     p.createdAt,
		Ingredients:   byCategory,
		Price:         p.price,
		Protein:       p.protein,
		Carbohydrates: p.carbohydrates,
		Calories:      p.calories,
		AverageFat:    p.averageFat,
		ExpectedTaste: p.ExpectedTaste(),
		Samples:       len(p.taste),
	})
}

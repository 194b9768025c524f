package models

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrPizzaNotFound is returned when a menu does not hold the requested pizza
	ErrPizzaNotFound = errors.New("pizza not found")

	// ErrDuplicatePizza is returned when a pizza is already on the menu
	ErrDuplicatePizza = errors.New("pizza already on the menu")
)

// SortKey represents the attribute a menu is ordered by
type SortKey string

const (
	// Menu sort keys
	SortByPrice         SortKey = "price"
	SortByProtein       SortKey = "protein"
	SortByCarbohydrates SortKey = "carbohydrates"
	SortByCalories      SortKey = "calories"
	SortByTaste         SortKey = "taste"
	SortByAverageFat    SortKey = "average_fat"
)

// PizzaMenu is an ordered collection of pizzas
type PizzaMenu struct {
	mu     sync.RWMutex
	pizzas []*Pizza
}

// NewPizzaMenu creates a menu holding the given pizzas in order
func NewPizzaMenu(pizzas ...*Pizza) *PizzaMenu {
	return &PizzaMenu{pizzas: append([]*Pizza(nil), pizzas...)}
}

// Add appends a pizza to the menu
func (m *PizzaMenu) Add(p *Pizza) error {
	if p == nil {
		return errors.New("cannot add nil pizza")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.pizzas {
		if existing.ID() == p.ID() {
			return fmt.Errorf("%w: %s", ErrDuplicatePizza, p.ID())
		}
	}
	m.pizzas = append(m.pizzas, p)
	return nil
}

// Remove deletes the pizza with the given id
func (m *PizzaMenu) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pizzas {
		if p.ID() == id {
			m.pizzas = append(m.pizzas[:i], m.pizzas[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPizzaNotFound, id)
}

// Get returns the pizza with the given id
func (m *PizzaMenu) Get(id string) (*Pizza, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pizzas {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPizzaNotFound, id)
}

// Pizzas returns the pizzas in menu order
func (m *PizzaMenu) Pizzas() []*Pizza {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Pizza(nil), m.pizzas...)
}

// Len returns the number of pizzas on the menu
func (m *PizzaMenu) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pizzas)
}

// SortBy reorders the menu by the given attribute. The sort is stable.
func (m *PizzaMenu) SortBy(key SortKey, descending bool) error {
	value, err := sortValue(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sort.SliceStable(m.pizzas, func(i, j int) bool {
		if descending {
			return value(m.pizzas[i]) > value(m.pizzas[j])
		}
		return value(m.pizzas[i]) < value(m.pizzas[j])
	})
	return nil
}

func sortValue(key SortKey) (func(*Pizza) float64, error) {
	switch key {
	case SortByPrice:
		return func(p *Pizza) float64 { return p.Price().InexactFloat64() }, nil
	case SortByProtein:
		return func(p *Pizza) float64 { return p.Protein().InexactFloat64() }, nil
	case SortByCarbohydrates:
		return func(p *Pizza) float64 { return p.Carbohydrates().InexactFloat64() }, nil
	case SortByCalories:
		return func(p *Pizza) float64 { return p.Calories().InexactFloat64() }, nil
	case SortByTaste:
		return func(p *Pizza) float64 { return p.ExpectedTaste() }, nil
	case SortByAverageFat:
		return func(p *Pizza) float64 { return p.AverageFat() }, nil
	default:
		return nil, fmt.Errorf("unknown sort key %q", key)
	}
}

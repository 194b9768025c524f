package api

import (
	"context"

	"maestro/internal/models"
)

// MenuStore represents where the served menu lives
type MenuStore interface {
	Add(ctx context.Context, p *models.Pizza) error
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Pizza, error)
	List(ctx context.Context) ([]*models.Pizza, error)
}

// MemoryStore keeps the menu in process memory
type MemoryStore struct {
	menu *models.PizzaMenu
}

// NewMemoryStore wraps menu, or a fresh one when menu is nil
func NewMemoryStore(menu *models.PizzaMenu) *MemoryStore {
	if menu == nil {
		menu = models.NewPizzaMenu()
	}
	return &MemoryStore{menu: menu}
}

func (s *MemoryStore) Add(ctx context.Context, p *models.Pizza) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.menu.Add(p)
}

func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.menu.Remove(id)
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Pizza, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.menu.Get(id)
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Pizza, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.menu.Pizzas(), nil
}

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"

	"maestro/internal/catalog"
	"maestro/internal/models"
)

// StringSlice represents a slice of strings that can be stored in the database
type StringSlice []string

// Value converts the slice to a JSON string for storage
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan converts the database value back to a slice
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for StringSlice")
	}
}

// PizzaRecord is the stored form of a pizza on the menu
type PizzaRecord struct {
	ID            string          `gorm:"primary_key;type:varchar(36)"`
	Position      int64           `gorm:"index"`
	Dough         StringSlice     `gorm:"type:text"`
	Sauce         StringSlice     `gorm:"type:text"`
	Cheese        StringSlice     `gorm:"type:text"`
	Meat          StringSlice     `gorm:"type:text"`
	Vegetables    StringSlice     `gorm:"type:text"`
	Fruits        StringSlice     `gorm:"type:text"`
	Price         decimal.Decimal `gorm:"type:varchar(32)"`
	Protein       decimal.Decimal `gorm:"type:varchar(32)"`
	Carbohydrates decimal.Decimal `gorm:"type:varchar(32)"`
	Calories      decimal.Decimal `gorm:"type:varchar(32)"`
	AverageFat    float64
	Taste         []byte
	CreatedAt     time.Time
}

// TableName overrides the gorm table name
func (PizzaRecord) TableName() string {
	return "pizzas"
}

func names(ingredients []models.Ingredient) StringSlice {
	out := make(StringSlice, len(ingredients))
	for i, ing := range ingredients {
		out[i] = ing.Name
	}
	return out
}

// encodeTaste packs samples as little-endian float64s
func encodeTaste(samples []float64) []byte {
	buf := make([]byte, 8*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeTaste(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("taste blob has %d bytes, not a multiple of 8", len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}

// NewPizzaRecord converts a pizza into its stored form
func NewPizzaRecord(p *models.Pizza) *PizzaRecord {
	sel := p.Selection()
	return &PizzaRecord{
		ID:            p.ID(),
		Dough:         names(sel.Dough),
		Sauce:         names(sel.Sauce),
		Cheese:        names(sel.Cheese),
		Meat:          names(sel.Meat),
		Vegetables:    names(sel.Vegetables),
		Fruits:        names(sel.Fruits),
		Price:         p.Price(),
		Protein:       p.Protein(),
		Carbohydrates: p.Carbohydrates(),
		Calories:      p.Calories(),
		AverageFat:    p.AverageFat(),
		Taste:         encodeTaste(p.Taste()),
		CreatedAt:     p.CreatedAt(),
	}
}

// Pizza rebuilds the pizza, resolving ingredient names against cat
func (r *PizzaRecord) Pizza(cat *catalog.Catalog) (*models.Pizza, error) {
	var sel models.Selection
	for _, slot := range []struct {
		dst   *[]models.Ingredient
		names StringSlice
	}{
		{&sel.Dough, r.Dough},
		{&sel.Sauce, r.Sauce},
		{&sel.Cheese, r.Cheese},
		{&sel.Meat, r.Meat},
		{&sel.Vegetables, r.Vegetables},
		{&sel.Fruits, r.Fruits},
	} {
		ingredients, err := cat.Resolve(slot.names)
		if err != nil {
			return nil, fmt.Errorf("pizza %s: %w", r.ID, err)
		}
		*slot.dst = ingredients
	}

	taste, err := decodeTaste(r.Taste)
	if err != nil {
		return nil, fmt.Errorf("pizza %s: %w", r.ID, err)
	}
	return models.RestorePizza(r.ID, sel, taste, r.AverageFat, r.CreatedAt)
}

// MenuRepository stores the menu in a database, in insertion order.
type MenuRepository struct {
	db      *gorm.DB
	catalog *catalog.Catalog
}

// NewMenuRepository creates a repository over an opened database
func NewMenuRepository(db *gorm.DB, cat *catalog.Catalog) *MenuRepository {
	return &MenuRepository{db: db, catalog: cat}
}

// Add stores a pizza at the end of the menu
func (r *MenuRepository) Add(ctx context.Context, p *models.Pizza) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&PizzaRecord{}).Where("id = ?", p.ID()).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", models.ErrDuplicatePizza, p.ID())
		}

		var last sql.NullInt64
		if err := tx.Model(&PizzaRecord{}).Select("MAX(position)").Row().Scan(&last); err != nil {
			return err
		}
		rec := NewPizzaRecord(p)
		if last.Valid {
			rec.Position = last.Int64 + 1
		}
		return tx.Create(rec).Error
	})
}

// Remove deletes a pizza from the menu
func (r *MenuRepository) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := r.db.Where("id = ?", id).Delete(&PizzaRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrPizzaNotFound, id)
	}
	return nil
}

// Get loads one pizza
func (r *MenuRepository) Get(ctx context.Context, id string) (*models.Pizza, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec PizzaRecord
	if err := r.db.Where("id = ?", id).First(&rec).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrPizzaNotFound, id)
		}
		return nil, err
	}
	return rec.Pizza(r.catalog)
}

// List loads the whole menu in insertion order
func (r *MenuRepository) List(ctx context.Context) ([]*models.Pizza, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var recs []PizzaRecord
	if err := r.db.Order("position asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	pizzas := make([]*models.Pizza, 0, len(recs))
	for i := range recs {
		p, err := recs[i].Pizza(r.catalog)
		if err != nil {
			return nil, err
		}
		pizzas = append(pizzas, p)
	}
	return pizzas, nil
}

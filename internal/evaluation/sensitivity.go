package evaluation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"maestro/internal/models"
)

// ErrInsufficientData is returned when a menu cannot support a regression
var ErrInsufficientData = errors.New("insufficient data for regression")

// Sensitivities are the slopes of simple least-squares fits of pizza price
// against one attribute at a time, across a menu.
type Sensitivities struct {
	Protein       float64 `json:"protein"`
	Carbohydrates float64 `json:"carbohydrates"`
	Fat           float64 `json:"fat"`
	Pizzas        int     `json:"pizzas"`
}

// PriceSensitivities fits price on protein, carbohydrates and average fat
func PriceSensitivities(pizzas []*models.Pizza) (*Sensitivities, error) {
	if len(pizzas) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 pizzas, got %d", ErrInsufficientData, len(pizzas))
	}

	price := make([]float64, len(pizzas))
	protein := make([]float64, len(pizzas))
	carbs := make([]float64, len(pizzas))
	fat := make([]float64, len(pizzas))
	for i, p := range pizzas {
		price[i] = p.Price().InexactFloat64()
		protein[i] = p.Protein().InexactFloat64()
		carbs[i] = p.Carbohydrates().InexactFloat64()
		fat[i] = p.AverageFat()
	}

	s := &Sensitivities{Pizzas: len(pizzas)}
	var err error
	if s.Protein, err = slope("protein", protein, price); err != nil {
		return nil, err
	}
	if s.Carbohydrates, err = slope("carbohydrates", carbs, price); err != nil {
		return nil, err
	}
	if s.Fat, err = slope("fat", fat, price); err != nil {
		return nil, err
	}
	return s, nil
}

func slope(name string, x, y []float64) (float64, error) {
	if stat.Variance(x, nil) == 0 {
		return 0, fmt.Errorf("%w: %s is constant across the menu", ErrInsufficientData, name)
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0, fmt.Errorf("%w: %s slope is undefined", ErrInsufficientData, name)
	}
	return beta, nil
}

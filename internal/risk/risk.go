// Package risk measures how bad the lower tail of a taste distribution is.
//
// The quantile estimator is the inverse of the empirical CDF: for sorted
// samples x_1 <= ... <= x_N the value at probability p is x_k with
// k = max(1, ceil(p*N)). The rank is computed with a 1e-9 slack so that a
// product p*N that should be whole is not pushed up a rank by rounding.
// Both measures use it.
package risk

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"maestro/internal/models"
)

var (
	// ErrInvalidQuantile is returned for quantiles outside [0, 1]
	ErrInvalidQuantile = errors.New("invalid quantile")

	// ErrDegenerateTailRisk is returned when the tail holds no samples
	ErrDegenerateTailRisk = errors.New("degenerate tail risk")

	// ErrInvalidSamples is returned when samples contain NaN
	ErrInvalidSamples = errors.New("invalid taste samples")

	// ErrSampleLengthMismatch is returned when menu pizzas carry different sample counts
	ErrSampleLengthMismatch = errors.New("taste sample length mismatch")
)

// DefaultQuantile is the tail probability used when none is given
const DefaultQuantile = 0.05

// mirror folds q onto the lower tail. The result is snapped to 1e-12 so that
// q and 1-q land on the same float64.
func mirror(q float64) (float64, error) {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuantile, q)
	}
	p := math.Min(q, 1-q)
	return math.Round(p*1e12) / 1e12, nil
}

// TasteAtRisk returns the taste at the lower-tail quantile q of samples.
// q and 1-q give the same result.
func TasteAtRisk(samples []float64, q float64) (float64, error) {
	p, x, err := prepare(samples, q)
	if err != nil {
		return 0, err
	}
	return quantile(x, p), nil
}

// prepare validates the inputs and returns the mirrored quantile with a
// sorted copy of samples
func prepare(samples []float64, q float64) (float64, []float64, error) {
	p, err := mirror(q)
	if err != nil {
		return 0, nil, err
	}
	if len(samples) == 0 {
		return 0, nil, fmt.Errorf("%w: no samples", ErrDegenerateTailRisk)
	}
	if floats.HasNaN(samples) {
		return 0, nil, fmt.Errorf("%w: NaN sample", ErrInvalidSamples)
	}
	return p, sorted(samples), nil
}

// quantile returns x_k, k = max(1, ceil(p*N)), of sorted x
func quantile(x []float64, p float64) float64 {
	k := int(math.Ceil(p*float64(len(x)) - 1e-9))
	if k < 1 {
		k = 1
	}
	return x[k-1]
}

// ConditionalTasteAtRisk returns the mean of every sample at or below the
// taste at risk for q.
func ConditionalTasteAtRisk(samples []float64, q float64) (float64, error) {
	m, err := Measure(samples, q)
	if err != nil {
		return 0, err
	}
	return m.CTaR, nil
}

// Result holds both measures for one distribution
type Result struct {
	Quantile  float64 `json:"quantile"`
	TaR       float64 `json:"taste_at_risk"`
	CTaR      float64 `json:"conditional_taste_at_risk"`
	Expected  float64 `json:"expected_taste"`
	Samples   int     `json:"samples"`
	TailCount int     `json:"tail_samples"`
}

// Measure computes TaR and CTaR over samples with a single sort
func Measure(samples []float64, q float64) (*Result, error) {
	p, x, err := prepare(samples, q)
	if err != nil {
		return nil, err
	}
	tar := quantile(x, p)

	// x is sorted, so the tail is a prefix
	n := sort.Search(len(x), func(i int) bool { return x[i] > tar })
	if n == 0 {
		return nil, fmt.Errorf("%w: no samples at or below %v", ErrDegenerateTailRisk, tar)
	}

	return &Result{
		Quantile:  p,
		TaR:       tar,
		CTaR:      stat.Mean(x[:n], nil),
		Expected:  stat.Mean(x, nil),
		Samples:   len(x),
		TailCount: n,
	}, nil
}

// PizzaTasteAtRisk applies TasteAtRisk to a pizza's samples
func PizzaTasteAtRisk(p *models.Pizza, q float64) (float64, error) {
	return TasteAtRisk(p.Taste(), q)
}

// PizzaConditionalTasteAtRisk applies ConditionalTasteAtRisk to a pizza's samples
func PizzaConditionalTasteAtRisk(p *models.Pizza, q float64) (float64, error) {
	return ConditionalTasteAtRisk(p.Taste(), q)
}

// MenuTaste returns the element-wise sum of every pizza's taste samples
func MenuTaste(pizzas []*models.Pizza) ([]float64, error) {
	if len(pizzas) == 0 {
		return nil, fmt.Errorf("%w: empty menu", ErrDegenerateTailRisk)
	}
	total := pizzas[0].Taste()
	for _, p := range pizzas[1:] {
		taste := p.Taste()
		if len(taste) != len(total) {
			return nil, fmt.Errorf("%w: pizza %s has %d samples, want %d",
				ErrSampleLengthMismatch, p.ID(), len(taste), len(total))
		}
		floats.Add(total, taste)
	}
	return total, nil
}

// MenuTasteAtRisk applies TasteAtRisk to the combined taste of a menu
func MenuTasteAtRisk(pizzas []*models.Pizza, q float64) (float64, error) {
	total, err := MenuTaste(pizzas)
	if err != nil {
		return 0, err
	}
	return TasteAtRisk(total, q)
}

// MenuConditionalTasteAtRisk applies ConditionalTasteAtRisk to the combined taste of a menu
func MenuConditionalTasteAtRisk(pizzas []*models.Pizza, q float64) (float64, error) {
	total, err := MenuTaste(pizzas)
	if err != nil {
		return 0, err
	}
	return ConditionalTasteAtRisk(total, q)
}

func sorted(samples []float64) []float64 {
	x := append([]float64(nil), samples...)
	sort.Float64s(x)
	return x
}

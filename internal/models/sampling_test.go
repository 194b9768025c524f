package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func lookupIn(ingredients ...Ingredient) func(string) (Ingredient, bool) {
	return func(name string) (Ingredient, bool) {
		for _, ing := range ingredients {
			if ing.Name == name {
				return ing, true
			}
		}
		return Ingredient{}, false
	}
}

func TestSampler_Deterministic(t *testing.T) {
	ings := []Ingredient{dough, sauce, ham}
	a := NewSampler(100, 9).draw(ings)
	b := NewSampler(100, 9).draw(ings)
	assert.Equal(t, a, b)

	c := NewSampler(100, 10).draw(ings)
	assert.NotEqual(t, a, c)

	assert.Equal(t, DefaultSampleSize, NewSampler(0, 1).Size())
}

func TestSampler_LogNormalMean(t *testing.T) {
	draws := NewSampler(50000, 3).draw([]Ingredient{ham})
	assert.InDelta(t, ham.Fat.Mean(), stat.Mean(draws[0], nil), 0.05)
}

func TestSampler_WithCorrelation(t *testing.T) {
	s := NewSampler(20000, 11)
	err := s.WithCorrelation(FatCorrelation{
		Ingredients: []string{"cheese", "cheese2"},
		Matrix:      [][]float64{{1, 0.8}, {0.8, 1}},
	}, lookupIn(cheese, cheese2))
	require.NoError(t, err)
	assert.True(t, s.Correlated())

	draws := s.draw([]Ingredient{dough, cheese, cheese2, cheese})
	assert.InDelta(t, 0.8, stat.Correlation(draws[1], draws[2], nil), 0.03)
	assert.InDelta(t, 0, stat.Correlation(draws[0], draws[1], nil), 0.03)
	assert.InDelta(t, 10, stat.Mean(draws[1], nil), 0.05)
	assert.InDelta(t, 1, stat.StdDev(draws[2], nil), 0.05)
	// a repeated correlated ingredient shares its draws
	assert.Equal(t, draws[1], draws[3])
}

func TestSampler_WithCorrelationRejects(t *testing.T) {
	lookup := lookupIn(cheese, cheese2, ham)
	tests := []struct {
		name string
		corr FatCorrelation
	}{
		{"empty", FatCorrelation{}},
		{"unknown", FatCorrelation{Ingredients: []string{"cheese", "truffle"}, Matrix: [][]float64{{1, 0}, {0, 1}}}},
		{"lognormal", FatCorrelation{Ingredients: []string{"cheese", "ham"}, Matrix: [][]float64{{1, 0}, {0, 1}}}},
		{"duplicate", FatCorrelation{Ingredients: []string{"cheese", "cheese"}, Matrix: [][]float64{{1, 0}, {0, 1}}}},
		{"ragged", FatCorrelation{Ingredients: []string{"cheese", "cheese2"}, Matrix: [][]float64{{1}, {0, 1}}}},
		{"asymmetric", FatCorrelation{Ingredients: []string{"cheese", "cheese2"}, Matrix: [][]float64{{1, 0.2}, {0.3, 1}}}},
		{"diagonal", FatCorrelation{Ingredients: []string{"cheese", "cheese2"}, Matrix: [][]float64{{2, 0}, {0, 1}}}},
		{"out of range", FatCorrelation{Ingredients: []string{"cheese", "cheese2"}, Matrix: [][]float64{{1, 1.5}, {1.5, 1}}}},
		{"not positive definite", FatCorrelation{Ingredients: []string{"cheese", "cheese2"}, Matrix: [][]float64{{1, 1}, {1, 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(10, 1)
			err := s.WithCorrelation(tt.corr, lookup)
			assert.ErrorIs(t, err, ErrInvalidCorrelation)
			assert.False(t, s.Correlated())
		})
	}
}

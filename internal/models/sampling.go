package models

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// DefaultSampleSize is the number of taste samples drawn for every pizza.
// All pizzas share it so their taste distributions can be summed element-wise.
const DefaultSampleSize = 10000

// ErrInvalidCorrelation is returned when a fat correlation matrix cannot be used.
var ErrInvalidCorrelation = errors.New("invalid fat correlation")

// FatCorrelation is a correlation matrix over named ingredients.
type FatCorrelation struct {
	Ingredients []string    `json:"ingredients" yaml:"ingredients"`
	Matrix      [][]float64 `json:"matrix" yaml:"matrix"`
}

// Sampler draws fat samples for pizzas. It is safe for concurrent use.
type Sampler struct {
	size int

	mu  sync.Mutex
	src rand.Source

	// correlated ingredients: name -> index into rho
	corrIndex map[string]int
	rho       *mat.SymDense
}

// NewSampler creates a sampler drawing size samples per ingredient.
// A zero seed picks a random one.
func NewSampler(size int, seed uint64) *Sampler {
	if size <= 0 {
		size = DefaultSampleSize
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Sampler{
		size: size,
		src:  rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
}

// Size returns the number of samples drawn per ingredient
func (s *Sampler) Size() int {
	return s.size
}

// Correlated reports whether a correlation matrix is configured
func (s *Sampler) Correlated() bool {
	return s.rho != nil
}

// WithCorrelation configures joint sampling for the listed ingredients.
// lookup resolves ingredient names; every listed ingredient must have normal fat.
func (s *Sampler) WithCorrelation(corr FatCorrelation, lookup func(string) (Ingredient, bool)) error {
	n := len(corr.Ingredients)
	if n == 0 {
		return fmt.Errorf("%w: no ingredients", ErrInvalidCorrelation)
	}
	if len(corr.Matrix) != n {
		return fmt.Errorf("%w: matrix has %d rows, want %d", ErrInvalidCorrelation, len(corr.Matrix), n)
	}

	index := make(map[string]int, n)
	for i, name := range corr.Ingredients {
		ing, ok := lookup(name)
		if !ok {
			return fmt.Errorf("%w: unknown ingredient %q", ErrInvalidCorrelation, name)
		}
		if ing.Fat.Kind != FatNormal {
			return fmt.Errorf("%w: %s does not have normally distributed fat", ErrInvalidCorrelation, name)
		}
		if _, dup := index[name]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidCorrelation, name)
		}
		index[name] = i
	}

	for i, row := range corr.Matrix {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidCorrelation, i, len(row), n)
		}
	}

	rho := mat.NewSymDense(n, nil)
	for i, row := range corr.Matrix {
		for j, v := range row {
			if math.Abs(v-corr.Matrix[j][i]) > 1e-12 {
				return fmt.Errorf("%w: matrix is not symmetric at (%d,%d)", ErrInvalidCorrelation, i, j)
			}
			if i == j && v != 1 {
				return fmt.Errorf("%w: diagonal entry %d is %v, want 1", ErrInvalidCorrelation, i, v)
			}
			if v < -1 || v > 1 {
				return fmt.Errorf("%w: entry (%d,%d) out of [-1,1]", ErrInvalidCorrelation, i, j)
			}
			if j >= i {
				rho.SetSym(i, j, v)
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(rho); !ok {
		return fmt.Errorf("%w: matrix is not positive definite", ErrInvalidCorrelation)
	}

	s.corrIndex = index
	s.rho = rho
	return nil
}

// draw produces the fat samples for each occurrence in ingredients,
// returning one row of s.size draws per occurrence.
func (s *Sampler) draw(ingredients []Ingredient) [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	draws := make([][]float64, len(ingredients))

	// Correlated members are drawn once per distinct ingredient and shared by duplicates.
	var joint []int
	jointSlot := make(map[string]int)
	for i, ing := range ingredients {
		if _, ok := s.corrIndex[ing.Name]; !ok {
			continue
		}
		if _, seen := jointSlot[ing.Name]; !seen {
			jointSlot[ing.Name] = len(joint)
			joint = append(joint, i)
		}
	}

	if len(joint) > 0 {
		cols := s.drawJoint(ingredients, joint)
		for i, ing := range ingredients {
			if slot, ok := jointSlot[ing.Name]; ok {
				draws[i] = cols[slot]
			}
		}
	}

	for i, ing := range ingredients {
		if draws[i] != nil {
			continue
		}
		r := ing.Fat.rander(s.src)
		row := make([]float64, s.size)
		for k := range row {
			row[k] = r.Rand()
		}
		draws[i] = row
	}
	return draws
}

// drawJoint samples the correlated subset from a multivariate normal.
func (s *Sampler) drawJoint(ingredients []Ingredient, members []int) [][]float64 {
	k := len(members)
	mu := make([]float64, k)
	cov := mat.NewSymDense(k, nil)
	for a, ia := range members {
		fa := ingredients[ia].Fat
		mu[a] = fa.Mean()
		for b := a; b < k; b++ {
			fb := ingredients[members[b]].Fat
			r := s.rho.At(s.corrIndex[ingredients[ia].Name], s.corrIndex[ingredients[members[b]].Name])
			cov.SetSym(a, b, r*fa.StdDev()*fb.StdDev())
		}
	}

	cols := make([][]float64, k)
	for a := range cols {
		cols[a] = make([]float64, s.size)
	}

	dist, ok := distmv.NewNormal(mu, cov, s.src)
	if !ok {
		// Zero-variance members make the covariance singular; fall back to independent draws.
		for a := range cols {
			r := ingredients[members[a]].Fat.rander(s.src)
			for n := range cols[a] {
				cols[a][n] = r.Rand()
			}
		}
		return cols
	}

	x := make([]float64, k)
	for n := 0; n < s.size; n++ {
		dist.Rand(x)
		for a := range cols {
			cols[a][n] = x[a]
		}
	}
	return cols
}

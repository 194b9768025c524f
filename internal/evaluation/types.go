package evaluation

import (
	"time"

	"maestro/internal/models"
	"maestro/internal/optimizer"
	"maestro/internal/risk"
)

// Scenario is a named optimization preset
type Scenario struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Objective   optimizer.Objective      `json:"objective"`
	Bounds      optimizer.NutrientBounds `json:"bounds"`
	Counts      optimizer.CategoryCounts `json:"counts"`
	Lambda      float64                  `json:"lambda"`
	Quantile    float64                  `json:"quantile"`
}

// Request converts the scenario into an optimization request
func (s *Scenario) Request() optimizer.Request {
	return optimizer.Request{
		Objective: s.Objective,
		Bounds:    s.Bounds,
		Counts:    s.Counts,
		Lambda:    s.Lambda,
	}
}

// EvaluationResult is the outcome of running one scenario
type EvaluationResult struct {
	Scenario  string             `json:"scenario"`
	Pizza     *models.Pizza      `json:"pizza"`
	Risk      *risk.Result       `json:"risk"`
	Metrics   map[string]float64 `json:"metrics"`
	Duration  time.Duration      `json:"duration_ns"`
	Evaluated time.Time          `json:"evaluated_at"`
}

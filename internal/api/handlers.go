package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maestro/internal/evaluation"
	"maestro/internal/models"
	"maestro/internal/optimizer"
	"maestro/internal/risk"
)

// OptimizeRequest is the body of the optimize endpoints. Missing bounds and
// counts take their defaults.
type OptimizeRequest struct {
	Bounds    *optimizer.NutrientBounds `json:"bounds"`
	Counts    *optimizer.CategoryCounts `json:"counts"`
	Lambda    float64                   `json:"lambda"`
	TimeoutMS int64                     `json:"timeout_ms"`
	Save      bool                      `json:"save"`
}

// CreatePizzaRequest names the ingredients of each slot
type CreatePizzaRequest struct {
	Dough      []string `json:"dough"`
	Sauce      []string `json:"sauce"`
	Cheese     []string `json:"cheese"`
	Meat       []string `json:"meat"`
	Vegetables []string `json:"vegetables"`
	Fruits     []string `json:"fruits"`
	Save       bool     `json:"save"`
}

// PizzaResponse carries a pizza with its default tail risk
type PizzaResponse struct {
	Pizza *models.Pizza `json:"pizza"`
	Risk  *risk.Result  `json:"risk"`
	Saved bool          `json:"saved"`
}

// bindOptional decodes a JSON body, accepting an empty one
func bindOptional(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func quantileParam(c *gin.Context) (float64, error) {
	raw := c.Query("quantile")
	if raw == "" {
		return risk.DefaultQuantile, nil
	}
	q, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", risk.ErrInvalidQuantile, raw)
	}
	return q, nil
}

func (s *Server) handleListIngredients(c *gin.Context) {
	raw := c.Query("category")
	if raw == "" {
		c.JSON(http.StatusOK, s.catalog.All())
		return
	}
	category, err := models.ParseCategory(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.catalog.ByCategory(category))
}

func (s *Server) handleOptimize(objective optimizer.Objective) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body OptimizeRequest
		if err := bindOptional(c, &body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if body.TimeoutMS < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "timeout_ms must not be negative"})
			return
		}

		req := optimizer.Request{
			Objective: objective,
			Bounds:    optimizer.DefaultNutrientBounds(),
			Counts:    optimizer.DefaultCategoryCounts(),
			Lambda:    body.Lambda,
			Timeout:   time.Duration(body.TimeoutMS) * time.Millisecond,
		}
		if body.Bounds != nil {
			req.Bounds = *body.Bounds
		}
		if body.Counts != nil {
			req.Counts = *body.Counts
		}

		pizza, err := s.optimizer.Optimize(c.Request.Context(), req)
		if err != nil {
			s.fail(c, err)
			return
		}
		s.respondPizza(c, pizza, body.Save)
	}
}

func (s *Server) handleCreatePizza(c *gin.Context) {
	var body CreatePizzaRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sel models.Selection
	for _, slot := range []struct {
		dst   *[]models.Ingredient
		names []string
	}{
		{&sel.Dough, body.Dough},
		{&sel.Sauce, body.Sauce},
		{&sel.Cheese, body.Cheese},
		{&sel.Meat, body.Meat},
		{&sel.Vegetables, body.Vegetables},
		{&sel.Fruits, body.Fruits},
	} {
		ingredients, err := s.catalog.Resolve(slot.names)
		if err != nil {
			s.fail(c, err)
			return
		}
		*slot.dst = ingredients
	}

	pizza, err := models.NewPizza(sel, s.sampler)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondPizza(c, pizza, body.Save)
}

// respondPizza optionally stores the pizza, then writes it with its risk at the default quantile
func (s *Server) respondPizza(c *gin.Context, pizza *models.Pizza, save bool) {
	measures, err := risk.Measure(pizza.Taste(), risk.DefaultQuantile)
	if err != nil {
		s.fail(c, err)
		return
	}

	status := http.StatusOK
	if save {
		if err := s.store.Add(c.Request.Context(), pizza); err != nil {
			s.fail(c, err)
			return
		}
		s.menuChanged(c, EventPizzaAdded, pizza.ID(), pizza)
		status = http.StatusCreated
	}
	c.JSON(status, PizzaResponse{Pizza: pizza, Risk: measures, Saved: save})
}

// menuChanged refreshes menu gauges and notifies websocket clients
func (s *Server) menuChanged(c *gin.Context, kind, id string, pizza *models.Pizza) {
	pizzas, err := s.store.List(c.Request.Context())
	if err != nil {
		s.logger.Warn("Failed to list menu after change", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordMenuSize(len(pizzas))
	}
	s.monitor.RecordMetric("menu_pizzas", len(pizzas))
	s.hub.Broadcast(Event{
		Type:     kind,
		PizzaID:  id,
		Pizza:    pizza,
		MenuSize: len(pizzas),
		Time:     time.Now().UTC(),
	})
}

func (s *Server) handleListMenu(c *gin.Context) {
	pizzas, err := s.store.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	if key := c.Query("sort"); key != "" {
		menu := models.NewPizzaMenu(pizzas...)
		if err := menu.SortBy(models.SortKey(key), c.Query("desc") == "true"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pizzas = menu.Pizzas()
	}
	c.JSON(http.StatusOK, pizzas)
}

func (s *Server) handleGetPizza(c *gin.Context) {
	pizza, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pizza)
}

func (s *Server) handleDeletePizza(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.Remove(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.menuChanged(c, EventPizzaRemoved, id, nil)
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePizzaRisk(c *gin.Context) {
	q, err := quantileParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	pizza, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	measures, err := risk.Measure(pizza.Taste(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, measures)
}

func (s *Server) handleMenuRisk(c *gin.Context) {
	q, err := quantileParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	pizzas, err := s.store.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	total, err := risk.MenuTaste(pizzas)
	if err != nil {
		s.fail(c, err)
		return
	}
	measures, err := risk.Measure(total, q)
	if err != nil {
		s.fail(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordMenuRisk(measures)
	}
	c.JSON(http.StatusOK, gin.H{"pizzas": len(pizzas), "risk": measures})
}

func (s *Server) handleSensitivity(c *gin.Context) {
	pizzas, err := s.store.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	sens, err := evaluation.PriceSensitivities(pizzas)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sens)
}

func (s *Server) handleListScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, s.evaluator.GetScenarios())
}

func (s *Server) handleEvaluateScenario(c *gin.Context) {
	id := c.Param("id")
	result, err := s.evaluator.EvaluateScenario(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.monitor.RecordEvaluationResult(id, result.Metrics)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.GetMetrics())
}

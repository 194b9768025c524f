// Package api exposes the optimizer, the menu and its risk analytics over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maestro/internal/catalog"
	"maestro/internal/evaluation"
	"maestro/internal/models"
	"maestro/internal/monitoring"
	"maestro/internal/optimizer"
	"maestro/internal/risk"
)

// Dependencies wires the server to the rest of the system. Catalog,
// Optimizer and Store are required.
type Dependencies struct {
	Catalog   *catalog.Catalog
	Optimizer *optimizer.Optimizer
	Sampler   *models.Sampler
	Store     MenuStore
	Monitor   *monitoring.Monitor
	Metrics   *evaluation.MetricsCollector
	Logger    *zap.Logger
	// JWTSecret enables bearer authentication on mutating routes when set
	JWTSecret string
}

// Server handles the pizza API
type Server struct {
	router    *gin.Engine
	catalog   *catalog.Catalog
	optimizer *optimizer.Optimizer
	sampler   *models.Sampler
	evaluator *evaluation.Evaluator
	store     MenuStore
	monitor   *monitoring.Monitor
	metrics   *evaluation.MetricsCollector
	hub       *Hub
	logger    *zap.Logger
	secret    []byte
}

// NewServer creates a new server instance with its routes registered
func NewServer(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sampler := deps.Sampler
	if sampler == nil {
		sampler = models.NewSampler(models.DefaultSampleSize, 0)
	}
	monitor := deps.Monitor
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router:    router,
		catalog:   deps.Catalog,
		optimizer: deps.Optimizer,
		sampler:   sampler,
		evaluator: evaluation.NewEvaluator(deps.Optimizer, logger),
		store:     deps.Store,
		monitor:   monitor,
		metrics:   deps.Metrics,
		hub:       NewHub(logger),
		logger:    logger,
	}
	if deps.JWTSecret != "" {
		s.secret = []byte(deps.JWTSecret)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ingredients": s.catalog.Len()})
	})
	s.router.GET("/ws", s.hub.ServeWS)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/ingredients", s.handleListIngredients)
		v1.GET("/scenarios", s.handleListScenarios)
		v1.GET("/metrics", s.handleMetrics)

		v1.GET("/menu", s.handleListMenu)
		v1.GET("/menu/risk", s.handleMenuRisk)
		v1.GET("/menu/sensitivity", s.handleSensitivity)
		v1.GET("/menu/export", s.handleExport)
		v1.GET("/menu/:id", s.handleGetPizza)
		v1.GET("/menu/:id/risk", s.handlePizzaRisk)
	}

	mutating := s.router.Group("/api/v1")
	if s.secret != nil {
		mutating.Use(AuthMiddleware(s.secret))
	}
	{
		mutating.POST("/optimize/price", s.handleOptimize(optimizer.ObjectivePrice))
		mutating.POST("/optimize/taste", s.handleOptimize(optimizer.ObjectiveTaste))
		mutating.POST("/pizzas", s.handleCreatePizza)
		mutating.DELETE("/menu/:id", s.handleDeletePizza)
		mutating.POST("/scenarios/:id/evaluate", s.handleEvaluateScenario)
	}
}

// Router returns the Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Hub returns the websocket hub carrying menu events
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close disconnects websocket clients
func (s *Server) Close() {
	s.hub.Close()
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("Request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrPizzaNotFound),
		errors.Is(err, evaluation.ErrScenarioNotFound):
		return http.StatusNotFound
	case errors.Is(err, optimizer.ErrInvalidConstraintBounds),
		errors.Is(err, models.ErrCategoryMismatch),
		errors.Is(err, catalog.ErrUnknownIngredient),
		errors.Is(err, risk.ErrInvalidQuantile),
		errors.Is(err, risk.ErrInvalidSamples):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDuplicatePizza):
		return http.StatusConflict
	case errors.Is(err, optimizer.ErrSolverTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, optimizer.ErrInfeasibleModel),
		errors.Is(err, risk.ErrDegenerateTailRisk),
		errors.Is(err, risk.ErrSampleLengthMismatch),
		errors.Is(err, evaluation.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		s.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maestro/internal/api"
	"maestro/internal/catalog"
	"maestro/internal/config"
	"maestro/internal/database"
	"maestro/internal/evaluation"
	"maestro/internal/logging"
	"maestro/internal/monitoring"
	"maestro/internal/optimizer"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile     = flag.String("env", ".env", "Path to an optional .env file")
)

func main() {
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Metrics.Port = *metricsPort
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := cfg.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	sampler, err := cfg.NewSampler(cat)
	if err != nil {
		return fmt.Errorf("failed to configure sampling: %w", err)
	}

	metricsCollector := evaluation.NewMetricsCollector()
	monitor := monitoring.NewMonitor()
	opt := optimizer.New(cat, sampler,
		optimizer.WithSolver(cfg.NewSolver()),
		optimizer.WithLogger(logger.Named("optimizer")),
		optimizer.WithObserver(optimizer.Observers{metricsCollector, monitor}),
		optimizer.WithTimeout(cfg.Optimizer.Timeout),
	)

	store, closeStore, err := initializeStore(cfg, cat)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.NewServer(api.Dependencies{
		Catalog:   cat,
		Optimizer: opt,
		Sampler:   sampler,
		Store:     store,
		Monitor:   monitor,
		Metrics:   metricsCollector,
		Logger:    logger.Named("api"),
		JWTSecret: cfg.Auth.JWTSecret,
	})
	defer srv.Close()

	servers := []*http.Server{{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}}
	if cfg.Metrics.Enabled {
		servers = append(servers, metricsServer(cfg.Metrics, metricsCollector))
	}

	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *http.Server) {
			logger.Info("Starting server", zap.String("addr", s.Addr))
			if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(s)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down servers...")
	case err = <-errCh:
		logger.Error("Server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	for _, s := range servers {
		if serr := s.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("Server shutdown error", zap.String("addr", s.Addr), zap.Error(serr))
		}
	}
	return err
}

// initializeStore opens the configured menu store and returns its closer
func initializeStore(cfg *config.Config, cat *catalog.Catalog) (api.MenuStore, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		return api.NewMemoryStore(nil), func() {}, nil
	}
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	return database.NewMenuRepository(db, cat), func() { db.Close() }, nil
}

func metricsServer(cfg config.MetricsConfig, collector *evaluation.MetricsCollector) *http.Server {
	router := gin.New()
	router.GET(cfg.Path, gin.WrapH(collector.Handler()))
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}
}

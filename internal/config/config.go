// Package config loads the service configuration from YAML, .env files and
// MAESTRO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"maestro/internal/catalog"
	"maestro/internal/database"
	"maestro/internal/logging"
	"maestro/internal/models"
	"maestro/internal/solver"
)

// DriverMemory keeps the menu in process memory
const DriverMemory = "memory"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   logging.Config  `yaml:"logging"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Auth      AuthConfig      `yaml:"auth"`
}

// ServerConfig contains API server settings
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// DatabaseConfig selects where the menu is stored
type DatabaseConfig struct {
	// Driver is memory, sqlite3 or postgres
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// OptimizerConfig bounds the solver
type OptimizerConfig struct {
	// Timeout is the default budget of one solve; zero means none
	Timeout   time.Duration `yaml:"timeout"`
	MaxNodes  int           `yaml:"max_nodes"`
	Tolerance float64       `yaml:"tolerance"`
}

// SamplingConfig controls taste sampling
type SamplingConfig struct {
	Size int `yaml:"size"`
	// Seed fixes the random stream; zero picks a random seed
	Seed        uint64                 `yaml:"seed"`
	Correlation *models.FatCorrelation `yaml:"correlation"`
}

// CatalogConfig points at an ingredient table; empty uses the built-in one
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// JWTSecret enables HS256 bearer tokens on mutating routes when set
	JWTSecret string `yaml:"jwt_secret"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Database: DatabaseConfig{
			Driver: DriverMemory,
		},
		Logging: logging.DefaultConfig(),
		Optimizer: OptimizerConfig{
			Timeout:   5 * time.Second,
			Tolerance: solver.DefaultIntegralityTolerance,
		},
		Sampling: SamplingConfig{
			Size: models.DefaultSampleSize,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the environment without
// overriding ones already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnv overrides settings from MAESTRO_* variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("MAESTRO_DATABASE_DRIVER", &c.Database.Driver)
	str("MAESTRO_DATABASE_DSN", &c.Database.DSN)
	str("MAESTRO_LOG_LEVEL", &c.Logging.Level)
	str("MAESTRO_LOG_FORMAT", &c.Logging.Format)
	str("MAESTRO_CATALOG_PATH", &c.Catalog.Path)
	str("MAESTRO_JWT_SECRET", &c.Auth.JWTSecret)

	if err := num("MAESTRO_PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := num("MAESTRO_METRICS_PORT", &c.Metrics.Port); err != nil {
		return err
	}
	if err := num("MAESTRO_SAMPLE_SIZE", &c.Sampling.Size); err != nil {
		return err
	}
	if err := num("MAESTRO_MAX_NODES", &c.Optimizer.MaxNodes); err != nil {
		return err
	}

	if v, ok := lookup("MAESTRO_SOLVER_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MAESTRO_SOLVER_TIMEOUT: %w", err)
		}
		c.Optimizer.Timeout = d
	}
	if v, ok := lookup("MAESTRO_SAMPLE_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAESTRO_SAMPLE_SEED: %w", err)
		}
		c.Sampling.Seed = seed
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port %d", c.Metrics.Port)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case database.DriverSQLite, database.DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database driver %s needs a dsn", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Optimizer.Timeout < 0 {
		return fmt.Errorf("optimizer timeout %s is negative", c.Optimizer.Timeout)
	}
	if c.Optimizer.MaxNodes < 0 {
		return fmt.Errorf("optimizer max_nodes %d is negative", c.Optimizer.MaxNodes)
	}
	if c.Optimizer.Tolerance <= 0 || c.Optimizer.Tolerance >= 0.5 {
		return fmt.Errorf("optimizer tolerance %g must be in (0, 0.5)", c.Optimizer.Tolerance)
	}
	if c.Sampling.Size <= 0 {
		return fmt.Errorf("sampling size %d must be positive", c.Sampling.Size)
	}
	return nil
}

// LoadCatalog returns the configured ingredient table
func (c *Config) LoadCatalog() (*catalog.Catalog, error) {
	if c.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(c.Catalog.Path)
}

// NewSampler builds the taste sampler, with joint draws when a correlation is configured
func (c *Config) NewSampler(cat *catalog.Catalog) (*models.Sampler, error) {
	sampler := models.NewSampler(c.Sampling.Size, c.Sampling.Seed)
	if c.Sampling.Correlation != nil {
		if err := sampler.WithCorrelation(*c.Sampling.Correlation, cat.Lookup); err != nil {
			return nil, err
		}
	}
	return sampler, nil
}

// NewSolver builds the branch-and-bound solver
func (c *Config) NewSolver() *solver.BranchAndBound {
	s := solver.NewBranchAndBound()
	s.Tolerance = c.Optimizer.Tolerance
	s.MaxNodes = c.Optimizer.MaxNodes
	return s
}

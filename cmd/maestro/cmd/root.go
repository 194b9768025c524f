// Package cmd provides the CLI commands for maestro.
package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"maestro/internal/config"
	"maestro/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Bold(true).Width(16)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)
)

// app carries state shared by subcommands
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the maestro command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "maestro",
		Short: "Compose pizzas and measure their taste risk",
		Long: `maestro composes pizzas from a fixed ingredient catalog by solving
binary programs over nutrient bounds and category counts, and reports
Taste-at-Risk for the results.

Examples:
  maestro ingredients --category cheese
  maestro optimize price --protein-min 30 --cheese 1
  maestro optimize taste --lambda 0.2 --quantile 0.01
  maestro menu risk --server http://localhost:8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (defaults and MAESTRO_* variables when empty)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newIngredientsCommand(a),
		newOptimizeCommand(a),
		newMenuCommand(),
		newScenarioCommand(),
		newVersionCommand(),
	)
	return root
}

func (a *app) init() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	} else {
		cfg.Logging.Level = "warn"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("error initializing logging: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "maestro version %s\n", Version)
		},
	}
}

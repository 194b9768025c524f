package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"maestro/internal/risk"
)

// remoteFlags are shared by the commands that talk to a server
type remoteFlags struct {
	server string
	token  string
}

func (rf *remoteFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&rf.server, "server", "", "server URL (default $MAESTRO_API_URL or "+defaultServer+")")
	cmd.PersistentFlags().StringVar(&rf.token, "token", os.Getenv("MAESTRO_API_TOKEN"), "bearer token for mutating requests")
}

func (rf *remoteFlags) client() *apiClient {
	return newAPIClient(rf.server, rf.token)
}

func newMenuCommand() *cobra.Command {
	rf := &remoteFlags{}
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Inspect the menu of a running server",
	}
	rf.register(cmd)

	var (
		sortKey  string
		desc     bool
		quantile float64
	)

	list := &cobra.Command{
		Use:   "list",
		Short: "List the pizzas on the menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pizzas, err := rf.client().Menu(cmd.Context(), sortKey, desc)
			if err != nil {
				return err
			}
			rows := make([][]string, len(pizzas))
			for i, p := range pizzas {
				var names []string
				for _, category := range []string{"dough", "sauce", "cheese", "meat", "vegetable", "fruit"} {
					names = append(names, p.Ingredients[category]...)
				}
				rows[i] = []string{
					p.ID,
					strings.Join(names, ", "),
					p.Price,
					p.Protein,
					p.Calories,
					fmt.Sprintf("%.4f", p.ExpectedTaste),
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "INGREDIENTS", "PRICE", "PROTEIN", "CALORIES", "TASTE").
				Rows(rows...).
				Render())
			return nil
		},
	}
	list.Flags().StringVar(&sortKey, "sort", "", "sort key (price, protein, carbohydrates, calories, taste, average_fat)")
	list.Flags().BoolVar(&desc, "desc", false, "sort descending")

	riskCmd := &cobra.Command{
		Use:   "risk",
		Short: "Measure the Taste-at-Risk of the whole menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := rf.client().MenuRisk(cmd.Context(), quantile)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Menu of %d pizzas", out.Pizzas)))
			fmt.Fprintln(w, labelStyle.Render("Expected taste")+fmt.Sprintf("%.4f", out.Risk.Expected))
			fmt.Fprintln(w, labelStyle.Render(fmt.Sprintf("TaR %g", out.Risk.Quantile))+fmt.Sprintf("%.4f", out.Risk.TaR))
			fmt.Fprintln(w, labelStyle.Render(fmt.Sprintf("CTaR %g", out.Risk.Quantile))+fmt.Sprintf("%.4f", out.Risk.CTaR))
			return nil
		},
	}
	riskCmd.Flags().Float64Var(&quantile, "quantile", risk.DefaultQuantile, "tail quantile")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a pizza from the menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rf.client().Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, riskCmd, remove)
	return cmd
}

func newScenarioCommand() *cobra.Command {
	rf := &remoteFlags{}
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run the built-in optimization scenarios on a server",
	}
	rf.register(cmd)

	list := &cobra.Command{
		Use:   "list",
		Short: "List scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := rf.client().Scenarios(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range scenarios {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-6s %s\n", s.ID, s.Objective, s.Description)
			}
			return nil
		},
	}

	run := &cobra.Command{
		Use:   "run <id>",
		Short: "Evaluate a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics, err := rf.client().EvaluateScenario(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render("Scenario "+args[0]))
			keys := make([]string, 0, len(metrics))
			for k := range metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "%-28s %.4f\n", k, metrics[k])
			}
			return nil
		},
	}

	cmd.AddCommand(list, run)
	return cmd
}

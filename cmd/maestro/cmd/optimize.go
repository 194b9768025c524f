package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"maestro/internal/models"
	"maestro/internal/optimizer"
	"maestro/internal/risk"
)

// nutrientFlags registers --<nutrient>-min/--<nutrient>-max pairs
type nutrientFlags struct {
	flags  *pflag.FlagSet
	values map[string]*[2]float64
}

var nutrients = []string{"price", "protein", "fat", "carbohydrates", "calories"}

func newNutrientFlags(fs *pflag.FlagSet) *nutrientFlags {
	nf := &nutrientFlags{flags: fs, values: make(map[string]*[2]float64)}
	for _, n := range nutrients {
		v := new([2]float64)
		fs.Float64Var(&v[0], n+"-min", 0, "minimum total "+n)
		fs.Float64Var(&v[1], n+"-max", 0, "maximum total "+n+" (unbounded when unset)")
		nf.values[n] = v
	}
	return nf
}

func (nf *nutrientFlags) bounds() optimizer.NutrientBounds {
	nb := optimizer.DefaultNutrientBounds()
	targets := map[string]*optimizer.Bounds{
		"price":         &nb.Price,
		"protein":       &nb.Protein,
		"fat":           &nb.Fat,
		"carbohydrates": &nb.Carbohydrates,
		"calories":      &nb.Calories,
	}
	for _, n := range nutrients {
		v := nf.values[n]
		b := targets[n]
		if nf.flags.Changed(n + "-min") {
			b.Min = v[0]
		}
		if nf.flags.Changed(n + "-max") {
			b.Max = v[1]
		}
	}
	return nb
}

func newOptimizeCommand(a *app) *cobra.Command {
	var (
		counts   = optimizer.DefaultCategoryCounts()
		lambda   float64
		quantile float64
		timeout  time.Duration
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:       "optimize price|taste",
		Short:     "Find the optimal pizza for an objective",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(optimizer.ObjectivePrice), string(optimizer.ObjectiveTaste)},
	}
	nf := newNutrientFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		objective, err := optimizer.ParseObjective(args[0])
		if err != nil {
			return err
		}
		cat, err := a.cfg.LoadCatalog()
		if err != nil {
			return err
		}
		sampler, err := a.cfg.NewSampler(cat)
		if err != nil {
			return err
		}

		if timeout == 0 {
			timeout = a.cfg.Optimizer.Timeout
		}
		opt := optimizer.New(cat, sampler,
			optimizer.WithSolver(a.cfg.NewSolver()),
			optimizer.WithLogger(a.logger),
			optimizer.WithTimeout(timeout),
		)

		pizza, err := opt.Optimize(cmd.Context(), optimizer.Request{
			Objective: objective,
			Bounds:    nf.bounds(),
			Counts:    counts,
			Lambda:    lambda,
		})
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("no pizza"))
			return err
		}

		measures, err := risk.Measure(pizza.Taste(), quantile)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Pizza *models.Pizza `json:"pizza"`
				Risk  *risk.Result  `json:"risk"`
			}{pizza, measures})
		}
		printPizza(cmd.OutOrStdout(), pizza, measures)
		return nil
	}

	fs := cmd.Flags()
	fs.IntVar(&counts.Dough, "dough", counts.Dough, "number of doughs")
	fs.IntVar(&counts.Sauce, "sauce", counts.Sauce, "number of sauces")
	fs.IntVar(&counts.Cheese, "cheese", counts.Cheese, "number of cheeses")
	fs.IntVar(&counts.Meat, "meat", counts.Meat, "number of meats")
	fs.IntVar(&counts.Vegetables, "vegetables", counts.Vegetables, "number of vegetables")
	fs.IntVar(&counts.Fruits, "fruits", counts.Fruits, "number of fruits")
	fs.Float64Var(&lambda, "lambda", 0, "price penalty of the taste objective")
	fs.Float64Var(&quantile, "quantile", risk.DefaultQuantile, "tail quantile for Taste-at-Risk")
	fs.DurationVar(&timeout, "timeout", 0, "solver time budget (config default when zero)")
	fs.BoolVar(&asJSON, "json", false, "print JSON instead of a summary")
	return cmd
}

func printPizza(w io.Writer, p *models.Pizza, r *risk.Result) {
	fmt.Fprintln(w, titleStyle.Render("Pizza "+p.ID()))

	sel := p.Selection()
	for _, slot := range []struct {
		label       string
		ingredients []models.Ingredient
	}{
		{"Dough", sel.Dough},
		{"Sauce", sel.Sauce},
		{"Cheese", sel.Cheese},
		{"Meat", sel.Meat},
		{"Vegetables", sel.Vegetables},
		{"Fruits", sel.Fruits},
	} {
		if len(slot.ingredients) == 0 {
			continue
		}
		names := make([]string, len(slot.ingredients))
		for i, ing := range slot.ingredients {
			names[i] = ing.Name
		}
		fmt.Fprintln(w, labelStyle.Render(slot.label)+strings.Join(names, ", "))
	}

	line := func(label, value string) {
		fmt.Fprintln(w, labelStyle.Render(label)+value)
	}
	line("Price", p.Price().StringFixed(2))
	line("Protein", p.Protein().String())
	line("Carbohydrates", p.Carbohydrates().String())
	line("Calories", p.Calories().String())
	line("Average fat", fmt.Sprintf("%.3f", p.AverageFat()))
	line("Expected taste", fmt.Sprintf("%.4f", r.Expected))
	line(fmt.Sprintf("TaR %g", r.Quantile), fmt.Sprintf("%.4f", r.TaR))
	line(fmt.Sprintf("CTaR %g", r.Quantile), fmt.Sprintf("%.4f", r.CTaR))
}

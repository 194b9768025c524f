package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"maestro/internal/models"
)

func newIngredientsCommand(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "ingredients",
		Short: "List the ingredient catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.cfg.LoadCatalog()
			if err != nil {
				return err
			}

			ingredients := cat.All()
			if category != "" {
				c, err := models.ParseCategory(category)
				if err != nil {
					return err
				}
				ingredients = cat.ByCategory(c)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderIngredients(ingredients))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only list one category (dough, sauce, cheese, meat, vegetable, fruit)")
	return cmd
}

func renderIngredients(ingredients []models.Ingredient) string {
	rows := make([][]string, len(ingredients))
	for i, ing := range ingredients {
		rows[i] = []string{
			ing.Name,
			string(ing.Category),
			ing.Price.StringFixed(2),
			ing.Protein.String(),
			ing.Carbohydrates.String(),
			ing.Calories.String(),
			fmt.Sprintf("%s(%g, %g)", ing.Fat.Kind, ing.Fat.Mu, ing.Fat.Sigma),
			strconv.FormatFloat(ing.ExpectedTaste(), 'f', 3, 64),
		}
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("NAME", "CATEGORY", "PRICE", "PROTEIN", "CARBS", "CALORIES", "FAT", "TASTE").
		Rows(rows...).
		Render()
}

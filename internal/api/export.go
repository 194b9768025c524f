package api

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maestro/internal/models"
	"maestro/internal/risk"
)

var exportHeader = []string{
	"id", "dough", "sauce", "cheese", "meat", "vegetables", "fruits",
	"price", "protein", "carbohydrates", "calories",
	"average_fat", "expected_taste", "taste_at_risk_5",
}

// exportRow flattens a pizza into one CSV record; multiple ingredients of a slot are joined with ';'
func exportRow(p *models.Pizza) ([]string, error) {
	tar, err := risk.TasteAtRisk(p.Taste(), risk.DefaultQuantile)
	if err != nil {
		return nil, err
	}
	sel := p.Selection()
	join := func(ingredients []models.Ingredient) string {
		names := make([]string, len(ingredients))
		for i, ing := range ingredients {
			names[i] = ing.Name
		}
		return strings.Join(names, ";")
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

	return []string{
		p.ID(),
		join(sel.Dough),
		join(sel.Sauce),
		join(sel.Cheese),
		join(sel.Meat),
		join(sel.Vegetables),
		join(sel.Fruits),
		p.Price().String(),
		p.Protein().String(),
		p.Carbohydrates().String(),
		p.Calories().String(),
		format(p.AverageFat()),
		format(p.ExpectedTaste()),
		format(tar),
	}, nil
}

func (s *Server) handleExport(c *gin.Context) {
	pizzas, err := s.store.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	rows := make([][]string, 0, len(pizzas)+1)
	rows = append(rows, exportHeader)
	for _, p := range pizzas {
		row, err := exportRow(p)
		if err != nil {
			s.fail(c, err)
			return
		}
		rows = append(rows, row)
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="menu.csv"`)
	w := csv.NewWriter(c.Writer)
	if err := w.WriteAll(rows); err != nil {
		s.logger.Warn("Failed to write menu export", zap.Error(err))
	}
}

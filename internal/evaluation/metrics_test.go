package evaluation

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/internal/optimizer"
	"maestro/internal/risk"
)

func TestMetricsCollector_ObserveOptimization(t *testing.T) {
	mc := NewMetricsCollector()
	mc.ObserveOptimization(optimizer.ObjectivePrice, optimizer.OutcomeOptimal, 20*time.Millisecond, 7)
	mc.ObserveOptimization(optimizer.ObjectivePrice, optimizer.OutcomeOptimal, 10*time.Millisecond, 3)
	mc.ObserveOptimization(optimizer.ObjectiveTaste, optimizer.OutcomeInfeasible, time.Millisecond, 1)

	counter := mc.metrics["optimizations"].(*prometheus.CounterVec)
	assert.Equal(t, 2.0, testutil.ToFloat64(counter.WithLabelValues("price", "optimal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues("taste", "infeasible")))
	assert.Equal(t, 2, testutil.CollectAndCount(mc.metrics["duration"]))
}

func TestMetricsCollector_Handler(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordMenuSize(3)
	mc.RecordMenuRisk(&risk.Result{TaR: 1.5, CTaR: 1.2, Expected: 2})

	rec := httptest.NewRecorder()
	mc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "maestro_menu_pizzas 3"), body)
	assert.Contains(t, body, `maestro_menu_taste_at_risk{measure="ctar"} 1.2`)
}

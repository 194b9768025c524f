package evaluation

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"maestro/internal/optimizer"
	"maestro/internal/risk"
)

// MetricsCollector handles metrics collection and reporting
type MetricsCollector struct {
	registry *prometheus.Registry
	metrics  map[string]prometheus.Collector
}

// NewMetricsCollector creates a new metrics collector with its own registry
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	optimizations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_optimizations_total",
			Help: "Optimization attempts by objective and outcome",
		},
		[]string{"objective", "outcome"},
	)

	solveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maestro_optimization_duration_seconds",
			Help:    "Time taken to build, solve and assemble a pizza",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"objective"},
	)

	solverNodes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maestro_solver_nodes",
			Help:    "Branch-and-bound nodes explored per solve",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"objective"},
	)

	menuSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "maestro_menu_pizzas",
			Help: "Number of pizzas on the menu",
		},
	)

	tailRisk := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "maestro_menu_taste_at_risk",
			Help: "Latest menu taste risk measures",
		},
		[]string{"measure"},
	)

	metrics := map[string]prometheus.Collector{
		"optimizations": optimizations,
		"duration":      solveDuration,
		"nodes":         solverNodes,
		"menu_size":     menuSize,
		"tail_risk":     tailRisk,
	}

	for _, metric := range metrics {
		registry.MustRegister(metric)
	}

	return &MetricsCollector{
		registry: registry,
		metrics:  metrics,
	}
}

// ObserveOptimization implements optimizer.Observer
func (mc *MetricsCollector) ObserveOptimization(objective optimizer.Objective, outcome string, duration time.Duration, nodes int) {
	if counter, ok := mc.metrics["optimizations"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(string(objective), outcome).Inc()
	}
	if histogram, ok := mc.metrics["duration"].(*prometheus.HistogramVec); ok {
		histogram.WithLabelValues(string(objective)).Observe(duration.Seconds())
	}
	if nodes > 0 {
		if histogram, ok := mc.metrics["nodes"].(*prometheus.HistogramVec); ok {
			histogram.WithLabelValues(string(objective)).Observe(float64(nodes))
		}
	}
}

// RecordMenuSize records the number of pizzas on the menu
func (mc *MetricsCollector) RecordMenuSize(n int) {
	if gauge, ok := mc.metrics["menu_size"].(prometheus.Gauge); ok {
		gauge.Set(float64(n))
	}
}

// RecordMenuRisk records the latest menu risk measures
func (mc *MetricsCollector) RecordMenuRisk(r *risk.Result) {
	if gauge, ok := mc.metrics["tail_risk"].(*prometheus.GaugeVec); ok {
		gauge.WithLabelValues("tar").Set(r.TaR)
		gauge.WithLabelValues("ctar").Set(r.CTaR)
		gauge.WithLabelValues("expected").Set(r.Expected)
	}
}

// Registry returns the registry the collectors are registered with
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the collected metrics in the Prometheus exposition format
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

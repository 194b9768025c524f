// Package monitoring keeps an in-memory snapshot of service metrics for the
// JSON metrics endpoint.
package monitoring

import (
	"sync"
	"time"

	"maestro/internal/optimizer"
)

// Monitor collects and provides metrics for the API
type Monitor struct {
	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
	}
}

// RecordMetric records a metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// GetMetric returns a specific metric value
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()
	value, exists := m.metrics[name]
	return value, exists
}

// GetMetrics returns all current metrics
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()

	metrics := make(map[string]interface{}, len(m.metrics)+1)
	for k, v := range m.metrics {
		metrics[k] = v
	}

	metrics["uptime_seconds"] = time.Since(m.startTime).Seconds()

	return metrics
}

// Reset clears all metrics
func (m *Monitor) Reset() {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics = make(map[string]interface{})
}

// ObserveOptimization implements optimizer.Observer. It counts attempts per
// objective and outcome and keeps the latest duration.
func (m *Monitor) ObserveOptimization(objective optimizer.Objective, outcome string, duration time.Duration, nodes int) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()

	key := "optimizations_" + string(objective) + "_" + outcome
	count, _ := m.metrics[key].(int)
	m.metrics[key] = count + 1

	prefix := "last_" + string(objective) + "_"
	m.metrics[prefix+"duration_ms"] = float64(duration.Microseconds()) / 1000
	m.metrics[prefix+"nodes"] = nodes
	m.metrics[prefix+"outcome"] = outcome
}

// RecordEvaluationResult records metrics from a scenario evaluation
func (m *Monitor) RecordEvaluationResult(scenario string, metrics map[string]float64) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()

	prefix := "scenario_" + scenario + "_"

	for k, v := range metrics {
		m.metrics[prefix+k] = v
	}

	m.metrics[prefix+"last_evaluated"] = time.Now().Format(time.RFC3339)
}

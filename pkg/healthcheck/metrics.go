package healthcheck

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricsNamespace = "cluster_probe"

// Metrics exposes probe results as Prometheus metrics for the harness
type Metrics struct {
	registry *prometheus.Registry
	success  *prometheus.GaugeVec
	duration *prometheus.GaugeVec
	passed   prometheus.Gauge
}

// NewMetrics creates the probe metrics on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "success",
			Help:      "Whether the probe passed (1) or failed (0).",
		}, []string{"probe", "category"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "duration_seconds",
			Help:      "How long the probe took to run.",
		}, []string{"probe"}),
		passed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cluster_probes_passed",
			Help: "Whether every enabled probe passed (1) or not (0).",
		}),
	}
	m.registry.MustRegister(m.success, m.duration, m.passed)
	return m
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records the runner's results
func (m *Metrics) Observe(runner *Runner) {
	results := runner.GetResults()
	for _, check := range runner.GetChecks() {
		result, exists := results[check.ID()]
		if !exists {
			continue
		}
		m.success.WithLabelValues(check.ID(), string(check.Category())).Set(boolToFloat(result.Passed()))
		m.duration.WithLabelValues(check.ID()).Set(result.ExecutionTime.Seconds())
	}
	m.passed.Set(boolToFloat(runner.Passed()))
}

// WriteTextfile writes the metrics in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Push sends the metrics to a Pushgateway under the given job name
func (m *Metrics) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

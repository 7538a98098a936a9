// Package middleware provides cross-cutting concerns for the evaluation engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-tripcheck/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks queries per stage, rule violations, program and phase latency
// and the latest batch scores.
type PrometheusMetrics struct {
	queries          *prometheus.CounterVec
	ruleViolations   *prometheus.CounterVec
	scores           *prometheus.GaugeVec
	programLatency   *prometheus.HistogramVec
	executionLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// programBuckets cover runs from tens of microseconds to the step limit.
var programBuckets = prometheus.ExponentialBuckets(0.00001, 4, 10)

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all required metrics with reg. A nil reg uses the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &PrometheusMetrics{
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcheck_queries_total",
				Help: "Queries evaluated, by stage and pass or fail status.",
			},
			[]string{"stage", "status"},
		),
		ruleViolations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcheck_rule_violations_total",
				Help: "Violated matrix cells, by rule family and rule.",
			},
			[]string{"family", "rule"},
		),
		scores: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tripcheck_score",
				Help: "Latest value of each key of the scores record.",
			},
			[]string{"key"},
		),
		programLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripcheck_program_duration_seconds",
				Help:    "Execution time of constraint and preference programs.",
				Buckets: programBuckets,
			},
			[]string{"family", "status"},
		),

		// General execution metrics for comprehensive observability.
		executionLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripcheck_operation_duration_seconds",
				Help:    "Execution time of engine phases and checks.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "name"},
		),
		operationCounter: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcheck_operations_total",
				Help: "Total number of other operations reported by the engine.",
			},
			[]string{"operation", "status"},
		),
		systemGauges: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tripcheck_system_state",
				Help: "Current values of other gauges reported by the engine.",
			},
			[]string{"metric"},
		),
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface. Program runs go
// to their own histogram; phases and checks are keyed by their name label.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	switch operation {
	case ports.OpProgram:
		pm.programLatency.WithLabelValues(label(labels, "family"), label(labels, "status")).Observe(duration.Seconds())
	case ports.OpPhase:
		pm.executionLatency.WithLabelValues(operation, label(labels, "phase")).Observe(duration.Seconds())
	case ports.OpCheck:
		pm.executionLatency.WithLabelValues(operation, label(labels, "check")).Observe(duration.Seconds())
	default:
		pm.executionLatency.WithLabelValues(operation, "unknown").Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricQueries:
		pm.queries.WithLabelValues(label(labels, "stage"), label(labels, "status")).Add(value)
	case ports.MetricRuleViolations:
		pm.ruleViolations.WithLabelValues(label(labels, "family"), label(labels, "rule")).Add(value)
	default:
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricScore:
		pm.scores.WithLabelValues(label(labels, "key")).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram. Values are routed to the general
// execution histogram under the metric name.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(metric, label(labels, "name")).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

package ports

import "time"

// Metric and operation names the engine reports through MetricsCollector.
const (
	// MetricQueries counts queries per stage and status.
	MetricQueries = "queries_total"
	// MetricRuleViolations counts violated cells per family and rule.
	MetricRuleViolations = "rule_violations_total"
	// MetricScore is a gauge holding the latest value of one score key.
	MetricScore = "score"

	// OpProgram times a single constraint or preference program run.
	OpProgram = "program"
	// OpCheck times a single commonsense check.
	OpCheck = "check"
	// OpPhase times one engine phase over a whole batch.
	OpPhase = "phase"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// Used for queries per stage and status and for rule violations.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// Used for the latest batch scores.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// NopMetrics is a MetricsCollector that discards everything. It is the
// default when the engine is used as a library.
type NopMetrics struct{}

// RecordLatency implements MetricsCollector.
func (NopMetrics) RecordLatency(string, time.Duration, map[string]string) {}

// RecordCounter implements MetricsCollector.
func (NopMetrics) RecordCounter(string, float64, map[string]string) {}

// RecordGauge implements MetricsCollector.
func (NopMetrics) RecordGauge(string, float64, map[string]string) {}

// RecordHistogram implements MetricsCollector.
func (NopMetrics) RecordHistogram(string, float64, map[string]string) {}

var _ MetricsCollector = NopMetrics{}

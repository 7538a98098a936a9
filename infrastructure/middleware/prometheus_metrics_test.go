package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tripcheck/internal/ports"
)

// newTestMetrics registers a fresh collector set on a private registry so
// tests do not collide on the default one.
func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestNewPrometheusMetrics(t *testing.T) {
	pm, _ := newTestMetrics(t)

	assert.NotNil(t, pm.queries)
	assert.NotNil(t, pm.ruleViolations)
	assert.NotNil(t, pm.scores)
	assert.NotNil(t, pm.programLatency)
	assert.NotNil(t, pm.executionLatency)
	assert.NotNil(t, pm.operationCounter)
	assert.NotNil(t, pm.systemGauges)

	var _ ports.MetricsCollector = pm
}

func TestNewPrometheusMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics(reg)
	assert.Panics(t, func() { NewPrometheusMetrics(reg) })
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordCounter(ports.MetricQueries, 1, map[string]string{"stage": "schema", "status": "pass"})
	pm.RecordCounter(ports.MetricQueries, 2, map[string]string{"stage": "schema", "status": "pass"})
	pm.RecordCounter(ports.MetricQueries, 1, map[string]string{"stage": "schema", "status": "fail"})
	pm.RecordCounter(ports.MetricRuleViolations, 3, map[string]string{"family": "commonsense", "rule": "time_overlap"})
	pm.RecordCounter(ports.MetricRuleViolations, 1, map[string]string{"family": "hard"})
	pm.RecordCounter("kb_imports", 1, nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(pm.queries.WithLabelValues("schema", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.queries.WithLabelValues("schema", "fail")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.ruleViolations.WithLabelValues("commonsense", "time_overlap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.ruleViolations.WithLabelValues("hard", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.operationCounter.WithLabelValues("kb_imports", "success")))
}

func TestPrometheusMetrics_RecordGauge(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordGauge(ports.MetricScore, 42.5, map[string]string{"key": "overall"})
	pm.RecordGauge(ports.MetricScore, 50, map[string]string{"key": "overall"})
	pm.RecordGauge("kb_cities", 2, nil)

	assert.Equal(t, 50.0, testutil.ToFloat64(pm.scores.WithLabelValues("overall")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.systemGauges.WithLabelValues("kb_cities")))
}

func TestPrometheusMetrics_RecordLatency(t *testing.T) {
	pm, reg := newTestMetrics(t)

	tests := []struct {
		name      string
		operation string
		labels    map[string]string
	}{
		{name: "program", operation: ports.OpProgram, labels: map[string]string{"family": "hard", "status": "ok"}},
		{name: "program without labels", operation: ports.OpProgram},
		{name: "phase", operation: ports.OpPhase, labels: map[string]string{"phase": "schema"}},
		{name: "check", operation: ports.OpCheck, labels: map[string]string{"check": "time"}},
		{name: "other", operation: "load"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				pm.RecordLatency(tt.operation, 25*time.Millisecond, tt.labels)
			})
		})
	}
	pm.RecordHistogram("batch_size", 12, nil)

	assert.Equal(t, 2, testutil.CollectAndCount(pm.programLatency))
	assert.Equal(t, 4, testutil.CollectAndCount(pm.executionLatency))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "tripcheck_program_duration_seconds")
	assert.Contains(t, names, "tripcheck_operation_duration_seconds")
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tripcheck/internal/testutils"
)

type fixture struct {
	dataset string
	queries string
	plans   string
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// newFixture writes a knowledge base, two queries and one plan. Query q2
// has no plan file.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dataset: filepath.Join(dir, "cities.json"),
		queries: filepath.Join(dir, "queries.jsonl"),
		plans:   filepath.Join(dir, "plans"),
	}
	writeJSON(t, f.dataset, testutils.TripDataset())

	var lines bytes.Buffer
	for _, uid := range []string{"q1", "q2"} {
		q := testutils.TripQuery(uid)
		q.HardLogicPy = []string{"result = day_count(plan) == 2"}
		data, err := json.Marshal(q)
		require.NoError(t, err)
		lines.Write(data)
		lines.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(f.queries, lines.Bytes(), 0o644))

	require.NoError(t, os.MkdirAll(f.plans, 0o755))
	writeJSON(t, filepath.Join(f.plans, "q1.json"), testutils.ValidPlan())
	return f
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

type reportView struct {
	RunID       string             `json:"run_id"`
	FullPassIDs []string           `json:"full_pass_ids"`
	SchemaIDs   []string           `json:"schema_pass_ids"`
	Scores      map[string]float64 `json:"scores"`
}

func TestEvaluate_MemoryKnowledgeBase(t *testing.T) {
	f := newFixture(t)

	stdout, stderr, err := run(t, "evaluate",
		"--queries", f.queries,
		"--plans", f.plans,
		"--kb", f.dataset,
		"--oracle",
		"--concurrency", "2",
	)
	require.NoError(t, err, stderr)

	var rep reportView
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, []string{"q1"}, rep.SchemaIDs)
	assert.Equal(t, []string{"q1"}, rep.FullPassIDs)
	assert.InDelta(t, 50.0, rep.Scores["FPR"], 1e-9)
	assert.Contains(t, stderr, "batch loaded")
	assert.Contains(t, stderr, "scores")
}

func TestEvaluate_OutputAndMetricsFiles(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	metricsPath := filepath.Join(dir, "metrics.prom")

	stdout, stderr, err := run(t, "evaluate",
		"--queries", f.queries,
		"--plans", f.plans,
		"--kb", f.dataset,
		"--ids", "q1",
		"--oracle",
		"--output", reportPath,
		"--metrics-file", metricsPath,
	)
	require.NoError(t, err, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var rep reportView
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, []string{"q1"}, rep.FullPassIDs)
	assert.InDelta(t, 100.0, rep.Scores["FPR"], 1e-9)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "tripcheck_queries_total")
	assert.Contains(t, string(metrics), "tripcheck_operation_duration_seconds")
}

func TestEvaluate_SQLiteKnowledgeBase(t *testing.T) {
	f := newFixture(t)
	db := filepath.Join(t.TempDir(), "kb.db")

	_, stderr, err := run(t, "kb", "import", f.dataset, "--db", db)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "knowledge base imported")

	stdout, stderr, err := run(t, "evaluate",
		"--queries", f.queries,
		"--plans", f.plans,
		"--kb", db,
		"--kb-driver", "sqlite",
		"--oracle",
	)
	require.NoError(t, err, stderr)

	var rep reportView
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, []string{"q1"}, rep.FullPassIDs)
}

func TestEvaluate_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing required flags", args: []string{"evaluate"}},
		{name: "no knowledge base", args: []string{"evaluate", "--queries", f.queries, "--plans", f.plans}},
		{name: "bad driver", args: []string{"evaluate", "--queries", f.queries, "--plans", f.plans, "--kb", f.dataset, "--kb-driver", "postgres"}},
		{name: "unknown id", args: []string{"evaluate", "--queries", f.queries, "--plans", f.plans, "--kb", f.dataset, "--ids", "q9"}},
		{name: "missing config", args: []string{"evaluate", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "--queries", f.queries, "--plans", f.plans}},
		{name: "bad log level", args: []string{"--log-level", "chatty", "config"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1.2.0\nengine:\n  concurrency: 3\n"), 0o644))

	stdout, stderr, err := run(t, "config", "--config", path)
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "version: 1.2.0")
	assert.Contains(t, stdout, "concurrency: 3")
	assert.Contains(t, stdout, "driver: memory")
}

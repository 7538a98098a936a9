package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Console: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("evaluation finished", zap.Int("queries", 3))
	require.NoError(t, closeFn())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "evaluation finished")
	assert.Contains(t, out, `"queries": 3`)
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Console: &buf, Level: "warn"})
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")
	require.NoError(t, closeFn())

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}

func TestNew_File(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, closeFn, err := New(Options{Console: &buf, File: path})
	require.NoError(t, err)

	logger.Debug("file only", zap.String("query", "q1"))
	logger.Info("both")
	require.NoError(t, closeFn())

	assert.NotContains(t, buf.String(), "file only")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "file only", entry["msg"])
	assert.Equal(t, "q1", entry["query"])
	assert.Contains(t, entry, "timestamp")
}

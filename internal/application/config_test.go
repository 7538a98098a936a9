package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.GreaterOrEqual(t, cfg.Engine.Concurrency, 1)
	assert.False(t, cfg.Engine.Oracle)
	assert.Equal(t, "memory", cfg.KnowledgeBase.Driver)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
version: "1.2.0"
engine:
  concurrency: 3
  oracle: true
  query_preferences: true
limits:
  max_steps: 5000
commonsense:
  slack_minutes: 10
knowledge_base:
  driver: sqlite
  path: kb.db
`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.Concurrency)
	assert.True(t, cfg.Engine.Oracle)
	assert.True(t, cfg.Engine.QueryPreferences)
	assert.Equal(t, int64(5000), cfg.Limits.MaxSteps)
	assert.Equal(t, DefaultConfig().Limits.MaxCollection, cfg.Limits.MaxCollection, "unset fields keep defaults")
	assert.Equal(t, 10, cfg.Commonsense.SlackMinutes)
	assert.Equal(t, DefaultConfig().Commonsense.TaxiSpeedKmh, cfg.Commonsense.TaxiSpeedKmh)
	assert.Equal(t, "sqlite", cfg.KnowledgeBase.Driver)
}

func TestParseConfig_EmptyDocumentUsesDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown field", yaml: "engine:\n  workers: 3\n"},
		{name: "bad version", yaml: "version: one\n"},
		{name: "pre-release version", yaml: "version: 1.0.0-beta\n"},
		{name: "zero concurrency", yaml: "engine:\n  concurrency: 0\n"},
		{name: "unknown driver", yaml: "knowledge_base:\n  driver: postgres\n"},
		{name: "sqlite without path", yaml: "knowledge_base:\n  driver: sqlite\n"},
		{name: "negative speed", yaml: "commonsense:\n  walk_speed_kmh: -1\n"},
		{name: "bad step limit", yaml: "limits:\n  max_steps: 0\n"},
		{name: "not yaml", yaml: "engine: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			var cfgErr *ports.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tripcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  concurrency: 2\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Engine.Concurrency)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)

	cfg, err = LoadConfigFromReader(strings.NewReader("engine:\n  oracle: true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Engine.Oracle)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, NewValidator().Validate(cfg))

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, 30*time.Minute, cfg.Queue.StaleAfter)
	assert.Equal(t, "memory", cfg.Progress.Backend)
	assert.Equal(t, 3, cfg.Tools.BypassThreshold)
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	loader := NewConfigLoader(NewValidator())

	cfg, err := loader.LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Queue.Workers, cfg.Queue.Workers)
}

func TestLoadPartialFileInheritsDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: ollama
  model: llama3
queue:
  workers: 8
`)
	loader := NewConfigLoader(NewValidator())

	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 8, cfg.Queue.Workers)
	// Untouched sections keep defaults.
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadInterpolatesEnvVars(t *testing.T) {
	t.Setenv("AIGO_TEST_API_KEY", "sk-test-123")

	path := writeConfig(t, `
llm:
  provider: openai
  api_key: ${AIGO_TEST_API_KEY}
`)
	loader := NewConfigLoader(NewValidator())

	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.LLM.APIKey)
}

func TestLoadUnsetEnvVarKeepsPlaceholder(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: ${AIGO_DEFINITELY_UNSET_VAR}
`)
	loader := NewConfigLoader(NewValidator())

	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${AIGO_DEFINITELY_UNSET_VAR}", cfg.LLM.APIKey)
}

func TestLoadRejectsInvalidProvider(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: bard
`)
	loader := NewConfigLoader(NewValidator())

	_, err := loader.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")
}

func TestValidateRedisBackendRequiresAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Progress.Backend = "redis"
	cfg.Progress.RedisAddr = ""

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "progress.redis_addr")
}

func TestValidateMetricsPortRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 80

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.port")
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpilot/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.Default().LLM.Provider, cfg.LLM.Provider)
}

func TestLoadReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yml := `llm:
  provider: anthropic
  api_key: sk-test
  model: claude-sonnet-4
temperatures:
  feedback: 0.1
  planning: 0.7
workers:
  count: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taskpilot.yml"), []byte(yml), 0o644))
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4", cfg.LLM.Model)
	assert.Equal(t, 0.7, cfg.Temperatures.Planning)
	assert.Equal(t, 2, cfg.Workers.Count)
	// Unset fields keep defaults.
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1500, cfg.LLM.MaxTokens)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsPlanningColderThanFeedback(t *testing.T) {
	cfg := config.Default()
	cfg.Temperatures.Feedback = 0.8
	cfg.Temperatures.Planning = 0.2
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadRetryDelays(t *testing.T) {
	cfg := config.Default()
	cfg.Retry.BaseDelaySecond = 20
	cfg.Retry.MaxDelaySecond = 10
	assert.Error(t, cfg.Validate())
}

func TestGenerateDefaultParses(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault()))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

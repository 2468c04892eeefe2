package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/config"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("RESONANCE_SECRETS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ModeLocal, cfg.Mode)
	assert.Equal(t, config.ProviderMock, cfg.LLMProvider)
	assert.Equal(t, config.BackendFile, cfg.HistoryBackend)
	assert.Equal(t, 90*time.Second, cfg.CallTimeout)
	assert.Equal(t, 3, cfg.MaxConcurrency)
	assert.Empty(t, cfg.Models)
}

func TestLoadParsesLists(t *testing.T) {
	isolate(t)
	t.Setenv("RESONANCE_MODELS", "claude-sonnet-4-5, claude-3-5-haiku-latest ,")
	t.Setenv("RESONANCE_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-sonnet-4-5", "claude-3-5-haiku-latest"}, cfg.Models)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadCollectsAllErrors(t *testing.T) {
	isolate(t)
	t.Setenv("RESONANCE_CALL_TIMEOUT", "soon")
	t.Setenv("RESONANCE_LLM_PROVIDER", "oracle")
	t.Setenv("RESONANCE_HISTORY_BACKEND", "s3")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESONANCE_CALL_TIMEOUT")
	assert.Contains(t, err.Error(), "oracle")
	assert.Contains(t, err.Error(), "RESONANCE_S3_BUCKET")
}

func TestGCPModeRequiresProject(t *testing.T) {
	isolate(t)
	t.Setenv("RESONANCE_MODE", "gcp")
	t.Setenv("RESONANCE_GCP_PROJECT", "")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("RESONANCE_GCP_PROJECT", "demo")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.ProviderVertex, cfg.LLMProvider)
	assert.Equal(t, config.BackendFirestore, cfg.HistoryBackend)
}

func TestAPIKeyPrefersSecretsFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ANTHROPIC_API_KEY: from-file\n"), 0o600))
	t.Setenv("RESONANCE_SECRETS_FILE", path)
	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	t.Setenv("GEMINI_API_KEY", "gemini-env")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.APIKey(config.ProviderAnthropic))
	assert.Equal(t, "gemini-env", cfg.APIKey(config.ProviderGemini))
	assert.Empty(t, cfg.APIKey(config.ProviderMock))
}

func TestMalformedSecretsFileFails(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))
	t.Setenv("RESONANCE_SECRETS_FILE", path)

	_, err := config.Load()
	require.Error(t, err)
}

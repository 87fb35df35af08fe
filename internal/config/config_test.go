package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("LLM_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLMBaseURL)
	assert.Equal(t, 3, cfg.LLMMaxRetries)
	assert.Equal(t, "google/gemini-2.0-flash-001", cfg.VisionModel)
	assert.Equal(t, 30*time.Second, cfg.DownloadTimeout)
	assert.False(t, cfg.S3Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("LLM_MAX_RETRIES", "7")
	t.Setenv("S3_ENABLED", "true")
	t.Setenv("MAX_DOWNLOAD_BYTES", "1024")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 7, cfg.LLMMaxRetries)
	assert.True(t, cfg.S3Enabled)
	assert.Equal(t, int64(1024), cfg.MaxDownloadBytes)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("LLM_PROVIDER", ProviderOpenAI)

	_, err := Load()
	assert.ErrorContains(t, err, "OPENROUTER_API_KEY")
}

func TestLoad_VertexNeedsProject(t *testing.T) {
	t.Setenv("LLM_PROVIDER", ProviderVertex)
	t.Setenv("VERTEX_PROJECT", "")

	_, err := Load()
	assert.ErrorContains(t, err, "VERTEX_PROJECT")

	t.Setenv("VERTEX_PROJECT", "my-project")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "us-central1", cfg.VertexRegion)
	assert.Equal(t, "gemini-2.0-flash-001", cfg.TextModel)
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "llamafile")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown LLM_PROVIDER")
}

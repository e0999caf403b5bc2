package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dataagent-cli/internal/ai"
)

func clearKeyEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENROUTER_API_KEY", "DATAAGENT_API_KEY", "DATAAGENT_DEFAULT_PROVIDER", "DATAAGENT_MAX_TOKENS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearKeyEnv(t)
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderGemini, c.DefaultProvider)
	assert.Equal(t, "gemini-2.5-flash", c.DefaultModel)
	assert.Equal(t, 2048, c.MaxTokens)
	assert.Equal(t, 5, c.SampleRows)
	assert.Equal(t, 10, c.ContextRows)
	assert.Equal(t, 100, c.PreviewRows)
	assert.Equal(t, 2, c.RetryMaxAttempts)
	assert.Equal(t, "127.0.0.1:8080", c.ServerAddr)
	assert.Equal(t, 90*time.Second, c.AnalysisTimeout())
}

func TestSaveThenLoad(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("default_provider", "local"))
	require.NoError(t, c.Set("default_model", "qwen2.5:7b"))
	require.NoError(t, c.Set("context_rows", "25"))
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOllama, got.DefaultProvider)
	assert.Equal(t, "qwen2.5:7b", got.DefaultModel)
	assert.Equal(t, 25, got.ContextRows)
}

func TestEnvOverridesFile(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_tokens: 100\n"), 0o600))
	t.Setenv("DATAAGENT_MAX_TOKENS", "300")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 300, c.MaxTokens)
}

func TestProviderModelDefault(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("DATAAGENT_DEFAULT_PROVIDER", "openai")
	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOpenRouter, c.DefaultProvider)
	assert.Equal(t, "google/gemini-2.5-flash", c.DefaultModel)
}

func TestAPIKeyEnvFallback(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GOOGLE_API_KEY", "g-key")
	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "g-key", c.APIKey)

	t.Setenv("OPENROUTER_API_KEY", "or-key")
	rc := c.RuntimeConfig("openrouter")
	assert.Equal(t, "or-key", rc.APIKey)
	assert.Equal(t, ai.DefaultOpenRouterBaseURL, rc.BaseURL)
}

func TestRuntimeConfigOllama(t *testing.T) {
	c := &Global{HTTPTimeoutSec: 60, OllamaTimeoutSec: 120, OllamaHost: "http://box:11434", RetryMaxAttempts: 3, RetryBaseDelayMs: 100}
	rc := c.RuntimeConfig("ollama")
	assert.Equal(t, "http://box:11434", rc.Host)
	assert.Equal(t, 120*time.Second, rc.HTTPTimeout)
	assert.Equal(t, 3, rc.RetryMax)
	assert.Equal(t, 100*time.Millisecond, rc.BaseDelay)
}

func TestSetValidation(t *testing.T) {
	c := &Global{}
	cases := []struct {
		key, val string
		ok       bool
	}{
		{"temperature", "0.7", true},
		{"temperature", "3", false},
		{"temperature", "warm", false},
		{"max_tokens", "-1", false},
		{"retry_max_attempts", "4", true},
		{"default_provider", "bedrock", false},
		{"log_level", "DEBUG", true},
		{"log_level", "trace", false},
		{"server_rate_per_sec", "2.5", true},
		{"nope", "1", false},
	}
	for _, tc := range cases {
		err := c.Set(tc.key, tc.val)
		if tc.ok {
			assert.NoError(t, err, "%s=%s", tc.key, tc.val)
		} else {
			assert.Error(t, err, "%s=%s", tc.key, tc.val)
		}
	}
	assert.Equal(t, 0.7, c.Temperature)
	assert.Equal(t, 4, c.RetryMaxAttempts)

	c.DefaultModel = "gemini-2.5-pro"
	require.NoError(t, c.Set("default_provider", "ollama"))
	assert.Equal(t, "llama3.1:8b", c.DefaultModel)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 2.5, c.ServerRatePerSec)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "******", Mask("abc"))
	assert.Equal(t, "sk-****xyz", Mask("sk-1234567xyz"))
}

func TestSaveOmitsEnvKey(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", c.APIKey)
	require.NoError(t, Save(c, path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "from-env")

	require.NoError(t, c.Set("api_key", "typed"))
	require.NoError(t, Save(c, path))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "api_key: typed")
}

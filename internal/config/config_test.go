package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withCleanViper isolates each test from the global viper state and from any
// .env or config.yaml in the working directory.
func withCleanViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Cleanup(viper.Reset)
}

func TestLoadConfig_Defaults(t *testing.T) {
	withCleanViper(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.AppPort)
	assert.Equal(t, "json", cfg.StorageBackend)
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, "llama3.1", cfg.LLMModel)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.InDelta(t, 0.7, cfg.LLMTemperature, 0.0001)
	assert.Equal(t, "sqlite", cfg.FeedbackSink)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	withCleanViper(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("LLM_TEMPERATURE", "0.2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.AppPort)
	assert.Equal(t, "redis", cfg.StorageBackend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.InDelta(t, 0.2, cfg.LLMTemperature, 0.0001)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"Unknown backend", map[string]string{"STORAGE_BACKEND": "postgres"}},
		{"Unknown provider", map[string]string{"LLM_PROVIDER": "llamafile"}},
		{"Gemini without key", map[string]string{"LLM_PROVIDER": "gemini"}},
		{"Temperature out of range", map[string]string{"LLM_TEMPERATURE": "3"}},
		{"Bad base url", map[string]string{"LLM_BASE_URL": "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withCleanViper(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Merge.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Merge.Timeout())
	assert.Equal(t, time.Second, cfg.Merge.BackoffBase())
	assert.Equal(t, 30*time.Second, cfg.Merge.BackoffMax())
	assert.Equal(t, "memory", cfg.Merge.Locker)
	assert.Contains(t, cfg.Prompts.Merge, PlaceholderRecipes)
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[llm]
provider = "claude"
model = "claude-3-5-sonnet-latest"

[merge]
threshold = 0.85
max_attempts = 5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	for _, k := range []string{"LLM_PROVIDER", "LLM_MODEL", "DATABASE_DRIVER"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.LLM.Model)
	assert.Equal(t, 0.85, cfg.Merge.Threshold)
	assert.Equal(t, 5, cfg.Merge.MaxAttempts)
	// untouched keys keep their defaults
	assert.Equal(t, 90, cfg.Merge.TimeoutSeconds)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[merge\nworkers = "), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(envMap(map[string]string{
		"LLM_PROVIDER":    "ollama",
		"LLM_BASE_URL":    "http://localhost:11434",
		"DATABASE_DRIVER": "postgres",
		"DATABASE_DSN":    "postgres://u:p@localhost/recipes",
		"REDIS_ADDR":      "localhost:6379",
		"PORT":            "9090",
		"LOG_MODE":        "  ",
	}))

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/recipes", cfg.Database.DSN)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "dev", cfg.Log.Mode)
}

func TestApplyEnv_ProviderKeyFallback(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(envMap(map[string]string{"OPENAI_API_KEY": "sk-test"}))
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)

	cfg = Default()
	cfg.ApplyEnv(envMap(map[string]string{"LLM_API_KEY": "explicit", "OPENAI_API_KEY": "sk-test"}))
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Merge.Locker = "redis"
	assert.Error(t, cfg.Validate())
	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Merge.MaxAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Prompts.Merge = "Merge at 100% confidence: %s"
	assert.ErrorContains(t, cfg.Validate(), "{{recipes}}")
	cfg.Prompts.Merge = "Merge at 100% confidence:\n{{recipes}}"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExampleFile(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "DATABASE_DRIVER", "REDIS_ADDR", "LOG_MODE"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join("..", "..", "config.example.toml"))
	require.NoError(t, err)

	assert.Equal(t, Default().Merge, cfg.Merge)
	assert.Equal(t, DefaultMergePrompt, cfg.Prompts.Merge)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultModel, cfg.Provider.Model)
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
	assert.Equal(t, 120, cfg.Provider.Timeout)
	assert.Equal(t, 1, cfg.Research.MaxIterations)
	assert.Equal(t, 2, cfg.Research.NumVariants)
	assert.False(t, cfg.Research.LegacyRetrieval)
	assert.True(t, cfg.Report.Structured)
	assert.Equal(t, 300, cfg.Report.Quality.MinWordCount)
	assert.Equal(t, 350, cfg.Report.Quality.TargetWordCount)
	assert.InDelta(t, 0.70, cfg.Report.Quality.MaxRedundancy, 1e-9)
	assert.Equal(t, 150, cfg.Report.Quality.WordsPerCitation)
	assert.Equal(t, 2, cfg.Report.Quality.MaxAttempts)
	assert.Equal(t, 5, cfg.Report.Context.WindowSize)
	assert.Equal(t, 8000, cfg.Report.Context.TokenBudget)
	assert.Equal(t, 500, cfg.Research.Chunk.MaxTokens)
	assert.Equal(t, 50, cfg.Research.Chunk.Overlap)
}

func TestLoad(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("yaml overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
server:
  port: 9090
provider:
  model: gemini-1.5-pro
research:
  max_iterations: 3
  legacy_retrieval: true
report:
  quality:
    min_word_count: 250
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "gemini-1.5-pro", cfg.Provider.Model)
		assert.Equal(t, 3, cfg.Research.MaxIterations)
		assert.True(t, cfg.Research.LegacyRetrieval)
		assert.Equal(t, 250, cfg.Report.Quality.MinWordCount)
		// Untouched values keep defaults
		assert.Equal(t, 350, cfg.Report.Quality.TargetWordCount)
	})

	t.Run("invalid yaml returns error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("provider:\n  api_key: from-file\n  model: from-file-model\n"), 0644))

		t.Setenv("GEMINI_API_KEY", "from-env")
		t.Setenv("GEMINI_MODEL", "from-env-model")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Provider.APIKey)
		assert.Equal(t, "from-env-model", cfg.Provider.Model)
	})
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_VAR", "expanded")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple variable", "key: ${TEST_EXPAND_VAR}", "key: expanded"},
		{"missing variable", "key: ${TEST_MISSING_VAR}", "key: "},
		{"default value used", "key: ${TEST_MISSING_VAR:-fallback}", "key: fallback"},
		{"default value ignored when set", "key: ${TEST_EXPAND_VAR:-fallback}", "key: expanded"},
		{"plain dollar untouched", "key: $100", "key: $100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestServerAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
}

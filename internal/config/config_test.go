package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.Detection.TemporalWindow())
	assert.Equal(t, 3, cfg.Detection.MinTemporalOccurrences)
	assert.Equal(t, 0.1, cfg.Detection.ScoreSimilarityThreshold)
	assert.Equal(t, 4, cfg.Detection.MinScoreSimilarityCount)
	assert.Equal(t, 0.7, cfg.Detection.CommunityEdgeThreshold)
	assert.Equal(t, 3, cfg.Detection.MinCommunitySize)
	assert.Equal(t, 0.8, cfg.Detection.SemanticSimilarityThreshold)
	assert.Equal(t, 10, cfg.Detection.MinNoteLength)
	assert.Equal(t, 20.0, cfg.Risk.MaxFlagsForNormalization)
	assert.Equal(t, 128, cfg.Cache.CommunityEntries)
	assert.Equal(t, 10*time.Second, cfg.LLM.EmbedTimeout())
}

func TestLoad_TOMLKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, "config.toml", `
[detection]
temporal_window_minutes = 2.5
min_score_similarity_count = 6

[llm]
provider = "openai"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 150*time.Second, cfg.Detection.TemporalWindow())
	assert.Equal(t, 6, cfg.Detection.MinScoreSimilarityCount)
	assert.Equal(t, 3, cfg.Detection.MinTemporalOccurrences)
	assert.Equal(t, 0.4, cfg.Risk.TemporalWeight)
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
detection:
  semantic_similarity_threshold: 0.9
  community_algorithm: label_propagation
risk:
  max_flags_for_normalization: 10
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Detection.SemanticSimilarityThreshold)
	assert.Equal(t, AlgorithmLabelPropagation, cfg.Detection.CommunityAlgorithm)
	assert.Equal(t, 10.0, cfg.Risk.MaxFlagsForNormalization)
	assert.Equal(t, 0.1, cfg.Detection.MinEdgeWeight)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "[detection\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOML")

	_, err = Load(writeFile(t, "invalid.toml", "[detection]\nmin_community_size = 1\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative window", func(c *Config) { c.Detection.TemporalWindowMinutes = -1 }},
		{"zero occurrences", func(c *Config) { c.Detection.MinTemporalOccurrences = 0 }},
		{"score threshold above one", func(c *Config) { c.Detection.ScoreSimilarityThreshold = 1.5 }},
		{"edge threshold below zero", func(c *Config) { c.Detection.CommunityEdgeThreshold = -0.1 }},
		{"unknown algorithm", func(c *Config) { c.Detection.CommunityAlgorithm = "louvain" }},
		{"negative weight", func(c *Config) { c.Risk.SemanticWeight = -0.2 }},
		{"zero normalization cap", func(c *Config) { c.Risk.MaxFlagsForNormalization = 0 }},
		{"negative workers", func(c *Config) { c.Concurrency.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("MEMGRAPH_URI", "bolt://db:7687")
	t.Setenv("MEMGRAPH_ENABLED", "true")
	t.Setenv("PORT", "9090")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.Equal(t, "bolt://db:7687", cfg.Memgraph.URI)
	assert.True(t, cfg.Memgraph.Enabled)
	assert.Equal(t, "9090", cfg.Server.Port)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Community detection algorithms.
const (
	AlgorithmComponents       = "components"
	AlgorithmLabelPropagation = "label_propagation"
)

type DetectionConfig struct {
	TemporalWindowMinutes       float64 `toml:"temporal_window_minutes" yaml:"temporal_window_minutes"`
	MinTemporalOccurrences      int     `toml:"min_temporal_occurrences" yaml:"min_temporal_occurrences"`
	ScoreSimilarityThreshold    float64 `toml:"score_similarity_threshold" yaml:"score_similarity_threshold"`
	MinScoreSimilarityCount     int     `toml:"min_score_similarity_count" yaml:"min_score_similarity_count"`
	MinEdgeWeight               float64 `toml:"min_edge_weight" yaml:"min_edge_weight"`
	CommunityEdgeThreshold      float64 `toml:"community_edge_threshold" yaml:"community_edge_threshold"`
	MinCommunitySize            int     `toml:"min_community_size" yaml:"min_community_size"`
	CommunityAlgorithm          string  `toml:"community_algorithm" yaml:"community_algorithm"`
	SemanticSimilarityThreshold float64 `toml:"semantic_similarity_threshold" yaml:"semantic_similarity_threshold"`
	MinNoteLength               int     `toml:"min_note_length" yaml:"min_note_length"`
}

// TemporalWindow returns the temporal window as a duration.
func (d DetectionConfig) TemporalWindow() time.Duration {
	return time.Duration(d.TemporalWindowMinutes * float64(time.Minute))
}

type RiskConfig struct {
	TemporalWeight           float64 `toml:"temporal_weight" yaml:"temporal_weight"`
	ScoreWeight              float64 `toml:"score_weight" yaml:"score_weight"`
	SemanticWeight           float64 `toml:"semantic_weight" yaml:"semantic_weight"`
	MaxFlagsForNormalization float64 `toml:"max_flags_for_normalization" yaml:"max_flags_for_normalization"`
}

type CacheConfig struct {
	CommunityEntries int `toml:"community_entries" yaml:"community_entries"`
	RiskEntries      int `toml:"risk_entries" yaml:"risk_entries"`
	EmbeddingEntries int `toml:"embedding_entries" yaml:"embedding_entries"`
}

type ConcurrencyConfig struct {
	// Workers bounds the goroutines used by each pairwise detector.
	// Zero means one per CPU.
	Workers int `toml:"workers" yaml:"workers"`
	// AnalysisTimeoutSeconds caps a whole analysis. Zero disables the cap.
	AnalysisTimeoutSeconds float64 `toml:"analysis_timeout_seconds" yaml:"analysis_timeout_seconds"`
}

type LLMConfig struct {
	Provider            string  `toml:"provider" yaml:"provider"`
	EmbeddingModel      string  `toml:"embedding_model" yaml:"embedding_model"`
	APIKey              string  `toml:"api_key" yaml:"api_key"`
	BaseURL             string  `toml:"base_url" yaml:"base_url"`
	EmbedTimeoutSeconds float64 `toml:"embed_timeout_seconds" yaml:"embed_timeout_seconds"`
}

// EmbedTimeout returns the per-invocation embedding deadline.
func (c LLMConfig) EmbedTimeout() time.Duration {
	return time.Duration(c.EmbedTimeoutSeconds * float64(time.Second))
}

type MemgraphConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	URI      string `toml:"uri" yaml:"uri"`
	User     string `toml:"user" yaml:"user"`
	Password string `toml:"password" yaml:"password"`
}

type ServerConfig struct {
	Port string `toml:"port" yaml:"port"`
}

type Config struct {
	Detection   DetectionConfig   `toml:"detection" yaml:"detection"`
	Risk        RiskConfig        `toml:"risk" yaml:"risk"`
	Cache       CacheConfig       `toml:"cache" yaml:"cache"`
	Concurrency ConcurrencyConfig `toml:"concurrency" yaml:"concurrency"`
	LLM         LLMConfig         `toml:"llm" yaml:"llm"`
	Memgraph    MemgraphConfig    `toml:"memgraph" yaml:"memgraph"`
	Server      ServerConfig      `toml:"server" yaml:"server"`
}

// Default returns a configuration with every threshold at its standard value.
func Default() *Config {
	return &Config{
		Detection: DetectionConfig{
			TemporalWindowMinutes:       5,
			MinTemporalOccurrences:      3,
			ScoreSimilarityThreshold:    0.1,
			MinScoreSimilarityCount:     4,
			MinEdgeWeight:               0.1,
			CommunityEdgeThreshold:      0.7,
			MinCommunitySize:            3,
			CommunityAlgorithm:          AlgorithmComponents,
			SemanticSimilarityThreshold: 0.8,
			MinNoteLength:               10,
		},
		Risk: RiskConfig{
			TemporalWeight:           0.4,
			ScoreWeight:              0.4,
			SemanticWeight:           0.2,
			MaxFlagsForNormalization: 20,
		},
		Cache: CacheConfig{
			CommunityEntries: 128,
			RiskEntries:      256,
			EmbeddingEntries: 32,
		},
		LLM: LLMConfig{
			EmbedTimeoutSeconds: 10,
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load reads a TOML (or, by extension, YAML) file on top of Default.
// Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	override := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override("LLM_PROVIDER", &c.LLM.Provider)
	override("LLM_EMBEDDING_MODEL", &c.LLM.EmbeddingModel)
	override("LLM_API_KEY", &c.LLM.APIKey)
	override("LLM_BASE_URL", &c.LLM.BaseURL)
	override("MEMGRAPH_URI", &c.Memgraph.URI)
	override("MEMGRAPH_USER", &c.Memgraph.User)
	override("MEMGRAPH_PASSWORD", &c.Memgraph.Password)
	override("PORT", &c.Server.Port)

	if v := strings.ToLower(os.Getenv("MEMGRAPH_ENABLED")); v == "1" || v == "true" {
		c.Memgraph.Enabled = true
	}
}

// Validate rejects thresholds that would make the detectors meaningless.
func (c *Config) Validate() error {
	d := c.Detection
	var problems []string

	if d.TemporalWindowMinutes < 0 {
		problems = append(problems, "detection.temporal_window_minutes must be >= 0")
	}
	if d.MinTemporalOccurrences < 1 {
		problems = append(problems, "detection.min_temporal_occurrences must be >= 1")
	}
	if d.ScoreSimilarityThreshold < 0 || d.ScoreSimilarityThreshold > 1 {
		problems = append(problems, "detection.score_similarity_threshold must be in [0,1]")
	}
	if d.MinScoreSimilarityCount < 1 {
		problems = append(problems, "detection.min_score_similarity_count must be >= 1")
	}
	if d.MinEdgeWeight < 0 || d.MinEdgeWeight > 1 {
		problems = append(problems, "detection.min_edge_weight must be in [0,1]")
	}
	if d.CommunityEdgeThreshold < 0 || d.CommunityEdgeThreshold > 1 {
		problems = append(problems, "detection.community_edge_threshold must be in [0,1]")
	}
	if d.MinCommunitySize < 2 {
		problems = append(problems, "detection.min_community_size must be >= 2")
	}
	switch d.CommunityAlgorithm {
	case AlgorithmComponents, AlgorithmLabelPropagation:
	default:
		problems = append(problems, fmt.Sprintf("detection.community_algorithm %q is not supported", d.CommunityAlgorithm))
	}
	if d.SemanticSimilarityThreshold < -1 || d.SemanticSimilarityThreshold > 1 {
		problems = append(problems, "detection.semantic_similarity_threshold must be in [-1,1]")
	}
	if d.MinNoteLength < 0 {
		problems = append(problems, "detection.min_note_length must be >= 0")
	}

	r := c.Risk
	if r.TemporalWeight < 0 || r.ScoreWeight < 0 || r.SemanticWeight < 0 {
		problems = append(problems, "risk weights must be >= 0")
	}
	if r.MaxFlagsForNormalization <= 0 {
		problems = append(problems, "risk.max_flags_for_normalization must be > 0")
	}
	if c.Concurrency.Workers < 0 {
		problems = append(problems, "concurrency.workers must be >= 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

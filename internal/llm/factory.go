package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agenthands/sentinel/internal/config"
)

// NewEmbedder builds the embedding client for the configured provider.
// Providers without embeddings ("claude", "none" or empty) return a nil
// client and no error; callers treat that as "tier 1 unavailable".
func NewEmbedder(ctx context.Context, cfg config.LLMConfig) (EmbedderClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.EmbeddingModel, cfg.BaseURL), nil

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		return c, nil

	case "ollama":
		// Ollama serves an OpenAI-compatible API under /v1.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // ignored by Ollama, required by the client
		}
		model := cfg.EmbeddingModel
		if model == "" {
			model = "nomic-embed-text"
		}
		slog.Info("using ollama embeddings", "base_url", baseURL, "model", model)
		return NewOpenAIClient(apiKey, model, baseURL), nil

	case "claude", "none", "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

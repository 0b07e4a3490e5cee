// Package vectorize turns validator notes into vectors for similarity
// comparison. Three strategies are tried in order: an external embedding
// model, TF-IDF weighting over the note corpus, and plain token counts.
package vectorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrEmptyVocabulary = errors.New("empty vocabulary")
	ErrNoVectorizer    = errors.New("no vectorizer succeeded")
)

// TextVectorizer maps each text to a vector. All vectors returned by one call
// have the same dimension and must be treated as read-only.
type TextVectorizer interface {
	Name() string
	Vectorize(ctx context.Context, texts []string) ([][]float64, error)
}

// Chain tries each vectorizer in order and returns the first success.
type Chain struct {
	tiers  []TextVectorizer
	logger *slog.Logger
}

// NewChain builds a fallback chain. Nil entries are skipped so callers can
// pass an optional embedding tier unconditionally.
func NewChain(logger *slog.Logger, tiers ...TextVectorizer) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{logger: logger}
	for _, t := range tiers {
		if t != nil {
			c.tiers = append(c.tiers, t)
		}
	}
	return c
}

// Default returns the standard chain: embeddings when available, then TF-IDF,
// then token counts.
func Default(logger *slog.Logger, embedding *EmbeddingVectorizer) *Chain {
	var first TextVectorizer
	if embedding != nil {
		first = embedding
	}
	return NewChain(logger, first, NewFrequencyVectorizer(), NewOverlapVectorizer())
}

func (c *Chain) Name() string {
	return "chain"
}

func (c *Chain) Vectorize(ctx context.Context, texts []string) ([][]float64, error) {
	vectors, _, err := c.VectorizeWithTier(ctx, texts)
	return vectors, err
}

// VectorizeWithTier also reports which tier produced the vectors. Each failed
// tier is logged once per call.
func (c *Chain) VectorizeWithTier(ctx context.Context, texts []string) ([][]float64, string, error) {
	var errs []error
	for _, t := range c.tiers {
		vectors, err := t.Vectorize(ctx, texts)
		if err == nil {
			if len(errs) > 0 {
				c.logger.Info("vectorizer fallback in use", "tier", t.Name(), "failed_tiers", len(errs))
			}
			return vectors, t.Name(), nil
		}
		c.logger.Warn("vectorizer unavailable, falling back", "tier", t.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
	}
	return nil, "", fmt.Errorf("%w: %w", ErrNoVectorizer, errors.Join(errs...))
}

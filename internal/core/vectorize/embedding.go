package vectorize

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/agenthands/sentinel/internal/core/common"
	"github.com/agenthands/sentinel/internal/llm"
)

// DefaultEmbedTimeout bounds one Vectorize call against the embedding provider.
const DefaultEmbedTimeout = 10 * time.Second

// EmbeddingVectorizer delegates to an embedding model. Results are cached by
// the exact, ordered list of input texts.
type EmbeddingVectorizer struct {
	client  llm.EmbedderClient
	timeout time.Duration
	cache   *common.LRUCache[string, [][]float64]
}

func NewEmbeddingVectorizer(client llm.EmbedderClient, timeout time.Duration, cacheSize int) *EmbeddingVectorizer {
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}
	return &EmbeddingVectorizer{
		client:  client,
		timeout: timeout,
		cache:   common.NewLRUCache[string, [][]float64](cacheSize),
	}
}

func (v *EmbeddingVectorizer) Name() string {
	return "embedding"
}

func (v *EmbeddingVectorizer) Vectorize(ctx context.Context, texts []string) ([][]float64, error) {
	if v.client == nil {
		return nil, llm.ErrEmbeddingsUnsupported
	}
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	key := textsKey(texts)
	if cached, ok := v.cache.Get(key); ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	raw, err := v.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(raw))
	dim := -1
	for i, r := range raw {
		if len(r) == 0 {
			return nil, fmt.Errorf("empty embedding for text %d", i)
		}
		if dim >= 0 && len(r) != dim {
			return nil, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(r), dim)
		}
		dim = len(r)
		vec := make([]float64, len(r))
		for j, x := range r {
			vec[j] = float64(x)
		}
		vectors[i] = vec
	}

	v.cache.Set(key, vectors)
	return vectors, nil
}

func (v *EmbeddingVectorizer) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if batch, ok := v.client.(llm.BatchEmbedder); ok {
		raw, err := batch.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(raw) != len(texts) {
			return nil, fmt.Errorf("got %d embeddings for %d texts", len(raw), len(texts))
		}
		return raw, nil
	}

	raw := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := v.client.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		raw[i] = vec
	}
	return raw, nil
}

// textsKey digests texts with length prefixes so that different splits of
// the same characters never collide.
func textsKey(texts []string) string {
	h := sha256.New()
	var buf [8]byte
	for _, t := range texts {
		binary.BigEndian.PutUint64(buf[:], uint64(len(t)))
		h.Write(buf[:])
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}

package vectorize

import (
	"context"
	"sort"
	"strings"
)

// OverlapVectorizer counts whitespace-separated tokens over the shared
// vocabulary of the batch. It needs nothing beyond arithmetic and always
// succeeds, so it is the last tier of the chain. Cosine similarity over these
// counts is high exactly when two notes share most of their words.
type OverlapVectorizer struct{}

func NewOverlapVectorizer() *OverlapVectorizer {
	return &OverlapVectorizer{}
}

func (v *OverlapVectorizer) Name() string {
	return "token_overlap"
}

func (v *OverlapVectorizer) Vectorize(_ context.Context, texts []string) ([][]float64, error) {
	docs := make([][]string, len(texts))
	index := make(map[string]int)
	for i, t := range texts {
		docs[i] = strings.Fields(strings.ToLower(t))
		for _, tok := range docs[i] {
			index[tok] = 0
		}
	}

	vocab := make([]string, 0, len(index))
	for tok := range index {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)
	for i, tok := range vocab {
		index[tok] = i
	}

	vectors := make([][]float64, len(texts))
	for i, tokens := range docs {
		vec := make([]float64, len(vocab))
		for _, tok := range tokens {
			vec[index[tok]]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

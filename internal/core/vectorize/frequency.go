package vectorize

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// wordPattern matches runs of two or more letters, digits or underscores.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// FrequencyVectorizer weights term counts by smoothed inverse document
// frequency, idf = ln((1+n)/(1+df)) + 1, and L2-normalizes each vector.
type FrequencyVectorizer struct{}

func NewFrequencyVectorizer() *FrequencyVectorizer {
	return &FrequencyVectorizer{}
}

func (v *FrequencyVectorizer) Name() string {
	return "tfidf"
}

func (v *FrequencyVectorizer) Vectorize(_ context.Context, texts []string) ([][]float64, error) {
	docs := make([][]string, len(texts))
	df := make(map[string]int)
	for i, t := range texts {
		docs[i] = wordPattern.FindAllString(strings.ToLower(t), -1)
		seen := make(map[string]bool, len(docs[i]))
		for _, tok := range docs[i] {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := make([]string, 0, len(df))
	for tok := range df {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)
	index := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	n := float64(len(texts))
	for i, tok := range vocab {
		index[tok] = i
		idf[i] = math.Log((1+n)/(1+float64(df[tok]))) + 1
	}

	vectors := make([][]float64, len(texts))
	for i, tokens := range docs {
		vec := make([]float64, len(vocab))
		for _, tok := range tokens {
			vec[index[tok]]++
		}
		floats.Mul(vec, idf)
		if norm := floats.Norm(vec, 2); norm > 0 {
			floats.Scale(1/norm, vec)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

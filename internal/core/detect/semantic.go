package detect

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agenthands/sentinel/internal/core/common"
	"github.com/agenthands/sentinel/internal/core/model"
	"github.com/agenthands/sentinel/internal/core/vectorize"
)

const (
	DefaultSemanticSimilarityThreshold = 0.8
	DefaultMinNoteLength               = 10
)

type SemanticResult struct {
	Clusters []model.SemanticCluster
	Flags    []string
	// Tier names the vectorizer that produced the vectors, empty when no
	// comparison took place.
	Tier string
}

// SemanticDetector flags validator pairs whose notes read alike.
type SemanticDetector struct {
	Vectorizer    vectorize.TextVectorizer
	Threshold     float64
	MinNoteLength int
	Logger        *slog.Logger
}

func NewSemanticDetector(v vectorize.TextVectorizer, threshold float64, minNoteLength int, logger *slog.Logger) *SemanticDetector {
	if logger == nil {
		logger = slog.Default()
	}
	if v == nil {
		v = vectorize.Default(logger, nil)
	}
	return &SemanticDetector{Vectorizer: v, Threshold: threshold, MinNoteLength: minNoteLength, Logger: logger}
}

type tieredVectorizer interface {
	VectorizeWithTier(ctx context.Context, texts []string) ([][]float64, string, error)
}

// Detect averages each validator's note vectors and compares every pair by
// cosine similarity. Vectorization failures are logged and yield an empty
// result; only a cancelled context is returned as an error.
func (d *SemanticDetector) Detect(ctx context.Context, records []model.ValidationRecord) (SemanticResult, error) {
	ctx, span := tracer.Start(ctx, "detect.Semantic")
	defer span.End()

	result := SemanticResult{Clusters: []model.SemanticCluster{}, Flags: []string{}}

	notes := make(map[string][]string)
	for _, r := range records {
		if r.ValidatorID == "" {
			continue
		}
		note := strings.ToLower(strings.TrimSpace(r.Note))
		if utf8.RuneCountInString(note) <= d.MinNoteLength {
			continue
		}
		notes[r.ValidatorID] = append(notes[r.ValidatorID], note)
	}
	validators := common.SortedKeys(notes)
	for _, v := range validators {
		slices.Sort(notes[v])
	}
	if len(validators) < 2 {
		span.SetStatus(codes.Ok, "")
		return result, nil
	}

	var texts []string
	for _, v := range validators {
		texts = append(texts, notes[v]...)
	}

	vectors, tier, err := d.vectorize(ctx, texts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.RecordError(ctxErr)
			span.SetStatus(codes.Error, ctxErr.Error())
			return SemanticResult{}, ctxErr
		}
		d.Logger.Warn("semantic comparison skipped", slog.String("error", err.Error()))
		span.SetAttributes(attribute.Bool("skipped", true))
		return result, nil
	}
	if len(vectors) != len(texts) {
		d.Logger.Warn("semantic comparison skipped",
			slog.Int("texts", len(texts)),
			slog.Int("vectors", len(vectors)),
		)
		span.SetAttributes(attribute.Bool("skipped", true))
		return result, nil
	}
	result.Tier = tier

	means := make([][]float64, len(validators))
	idx := 0
	for i, v := range validators {
		n := len(notes[v])
		means[i] = vectorize.Mean(vectors[idx : idx+n])
		idx += n
	}

	for i := 0; i < len(validators); i++ {
		for j := i + 1; j < len(validators); j++ {
			sim := vectorize.Cosine(means[i], means[j])
			if sim < d.Threshold {
				continue
			}
			p := model.Pair{A: validators[i], B: validators[j]}
			result.Clusters = append(result.Clusters, model.SemanticCluster{
				Validators:             p.Validators(),
				SimilarityScore:        common.Round(sim, 3),
				CoordinationLikelihood: min(1.0, sim),
			})
			result.Flags = append(result.Flags, model.PairFlag(model.SemanticFlagPrefix, p))
		}
	}

	span.SetAttributes(
		attribute.Int("validators", len(validators)),
		attribute.Int("notes", len(texts)),
		attribute.String("tier", tier),
		attribute.Int("flags", len(result.Flags)),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (d *SemanticDetector) vectorize(ctx context.Context, texts []string) ([][]float64, string, error) {
	if tv, ok := d.Vectorizer.(tieredVectorizer); ok {
		return tv.VectorizeWithTier(ctx, texts)
	}
	vectors, err := d.Vectorizer.Vectorize(ctx, texts)
	return vectors, d.Vectorizer.Name(), err
}

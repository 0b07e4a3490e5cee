package detect

import (
	"context"
	"log/slog"
	"math"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agenthands/sentinel/internal/core/common"
	"github.com/agenthands/sentinel/internal/core/model"
)

const (
	DefaultScoreSimilarityThreshold = 0.1
	DefaultMinScoreSimilarityCount  = 4

	// scoreTolerance absorbs float error so that 0.8 and 0.7 count as 0.1 apart.
	scoreTolerance = 1e-9
)

type ScoreResult struct {
	Clusters []model.ScoreCluster
	Flags    []string
}

// ScoreDetector flags validator pairs that keep giving near-identical scores
// to the same hypotheses.
type ScoreDetector struct {
	Threshold float64
	MinCount  int
	Workers   int
	Logger    *slog.Logger
}

func NewScoreDetector(threshold float64, minCount, workers int, logger *slog.Logger) *ScoreDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreDetector{Threshold: threshold, MinCount: minCount, Workers: workers, Logger: logger}
}

type scoreMatch struct {
	hypothesisID string
	s1, s2       float64
}

type pairMatches struct {
	pair    model.Pair
	matches []scoreMatch
}

type scoreChunk struct {
	clusters []model.ScoreCluster
	flags    []string
}

// Detect accumulates, per validator pair, the hypotheses both scored within
// Threshold of each other. If a validator scores the same hypothesis more
// than once, the last score in input order is used.
func (d *ScoreDetector) Detect(ctx context.Context, records []model.ValidationRecord) (ScoreResult, error) {
	ctx, span := tracer.Start(ctx, "detect.Score")
	defer span.End()

	byHypothesis := make(map[string]map[string]float64)
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		if r.Score == nil {
			if r.ScoreRaw != "" {
				d.Logger.Warn("skipping non-numeric score",
					slog.String("validator_id", r.ValidatorID),
					slog.String("hypothesis_id", r.HypothesisID),
					slog.String("score", r.ScoreRaw),
				)
			}
			continue
		}
		if math.IsNaN(*r.Score) || math.IsInf(*r.Score, 0) {
			continue
		}
		scores, ok := byHypothesis[r.HypothesisID]
		if !ok {
			scores = make(map[string]float64)
			byHypothesis[r.HypothesisID] = scores
		}
		scores[r.ValidatorID] = *r.Score
	}

	accumulated := make(map[model.Pair][]scoreMatch)
	for _, hypothesisID := range common.SortedKeys(byHypothesis) {
		scores := byHypothesis[hypothesisID]
		validators := common.SortedKeys(scores)
		for i := 0; i < len(validators); i++ {
			for j := i + 1; j < len(validators); j++ {
				s1, s2 := scores[validators[i]], scores[validators[j]]
				if math.Abs(s1-s2) > d.Threshold+scoreTolerance {
					continue
				}
				p := model.Pair{A: validators[i], B: validators[j]}
				accumulated[p] = append(accumulated[p], scoreMatch{hypothesisID: hypothesisID, s1: s1, s2: s2})
			}
		}
	}

	items := make([]pairMatches, 0, len(accumulated))
	for p, m := range accumulated {
		items = append(items, pairMatches{pair: p, matches: m})
	}
	slices.SortFunc(items, func(a, b pairMatches) int {
		switch {
		case a.pair.Less(b.pair):
			return -1
		case b.pair.Less(a.pair):
			return 1
		}
		return 0
	})

	chunks, err := common.RunChunks(ctx, items, d.Workers, func(ctx context.Context, chunk []pairMatches) (scoreChunk, error) {
		var out scoreChunk
		for _, item := range chunk {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			n := len(item.matches)
			if n < d.MinCount {
				continue
			}
			total := 0.0
			for _, m := range item.matches {
				total += math.Abs(m.s1 - m.s2)
			}
			out.clusters = append(out.clusters, model.ScoreCluster{
				Validators:             item.pair.Validators(),
				SimilarScoreCount:      n,
				AvgScoreDifference:     common.Round(total/float64(n), 3),
				CoordinationLikelihood: likelihood(n),
			})
			out.flags = append(out.flags, model.PairFlag(model.ScoreFlagPrefix, item.pair))
		}
		return out, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScoreResult{}, err
	}

	result := ScoreResult{Clusters: []model.ScoreCluster{}, Flags: []string{}}
	for _, c := range chunks {
		result.Clusters = append(result.Clusters, c.clusters...)
		result.Flags = append(result.Flags, c.flags...)
	}

	span.SetAttributes(
		attribute.Int("hypotheses", len(byHypothesis)),
		attribute.Int("candidate_pairs", len(items)),
		attribute.Int("flags", len(result.Flags)),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

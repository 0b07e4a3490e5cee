package detect

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agenthands/sentinel/internal/core/common"
	"github.com/agenthands/sentinel/internal/core/model"
)

const (
	DefaultTemporalWindow         = 5 * time.Minute
	DefaultMinTemporalOccurrences = 3
)

type TemporalResult struct {
	Clusters []model.TemporalCluster
	Flags    []string
}

// TemporalDetector flags validator pairs that repeatedly submit within Window
// of each other.
type TemporalDetector struct {
	Window         time.Duration
	MinOccurrences int
	// Workers bounds the goroutines used over the pair list. Zero means one
	// per CPU.
	Workers int
	Logger  *slog.Logger
}

func NewTemporalDetector(window time.Duration, minOccurrences, workers int, logger *slog.Logger) *TemporalDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemporalDetector{Window: window, MinOccurrences: minOccurrences, Workers: workers, Logger: logger}
}

type timedPair struct {
	pair model.Pair
	ts1  []time.Time
	ts2  []time.Time
}

type temporalChunk struct {
	clusters []model.TemporalCluster
	flags    []string
}

// Detect counts, for every pair of validators with at least one readable
// timestamp, the cross pairs of submissions no more than Window apart.
// Records whose timestamp is missing or unreadable are skipped with a warning.
func (d *TemporalDetector) Detect(ctx context.Context, records []model.ValidationRecord) (TemporalResult, error) {
	ctx, span := tracer.Start(ctx, "detect.Temporal")
	defer span.End()

	byValidator := make(map[string][]time.Time)
	skipped := 0
	for _, r := range records {
		if r.ValidatorID == "" || r.Timestamp == "" {
			continue
		}
		ts, err := ParseTimestamp(r.Timestamp)
		if err != nil {
			skipped++
			d.Logger.Warn("skipping validation with invalid timestamp",
				slog.String("validator_id", r.ValidatorID),
				slog.String("hypothesis_id", r.HypothesisID),
				slog.String("error", err.Error()),
			)
			continue
		}
		byValidator[r.ValidatorID] = append(byValidator[r.ValidatorID], ts)
	}
	for _, ts := range byValidator {
		slices.SortFunc(ts, func(a, b time.Time) int { return a.Compare(b) })
	}

	validators := common.SortedKeys(byValidator)
	var pairs []timedPair
	for i := 0; i < len(validators); i++ {
		for j := i + 1; j < len(validators); j++ {
			v1, v2 := validators[i], validators[j]
			pairs = append(pairs, timedPair{
				pair: model.Pair{A: v1, B: v2},
				ts1:  byValidator[v1],
				ts2:  byValidator[v2],
			})
		}
	}

	chunks, err := common.RunChunks(ctx, pairs, d.Workers, func(ctx context.Context, chunk []timedPair) (temporalChunk, error) {
		var out temporalChunk
		for _, p := range chunk {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			n := closeSubmissions(p.ts1, p.ts2, d.Window)
			if n < d.MinOccurrences {
				continue
			}
			out.clusters = append(out.clusters, model.TemporalCluster{
				Validators:             p.pair.Validators(),
				CloseSubmissions:       n,
				CoordinationLikelihood: likelihood(n),
			})
			out.flags = append(out.flags, model.PairFlag(model.TemporalFlagPrefix, p.pair))
		}
		return out, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TemporalResult{}, err
	}

	result := TemporalResult{Clusters: []model.TemporalCluster{}, Flags: []string{}}
	for _, c := range chunks {
		result.Clusters = append(result.Clusters, c.clusters...)
		result.Flags = append(result.Flags, c.flags...)
	}

	span.SetAttributes(
		attribute.Int("validators", len(validators)),
		attribute.Int("pairs", len(pairs)),
		attribute.Int("skipped_records", skipped),
		attribute.Int("flags", len(result.Flags)),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// closeSubmissions counts (t1, t2) with |t1 - t2| <= window. Both slices must
// be sorted ascending.
func closeSubmissions(ts1, ts2 []time.Time, window time.Duration) int {
	count := 0
	for _, t := range ts1 {
		lo := sort.Search(len(ts2), func(i int) bool { return !ts2[i].Before(t.Add(-window)) })
		hi := sort.Search(len(ts2), func(i int) bool { return ts2[i].After(t.Add(window)) })
		count += hi - lo
	}
	return count
}

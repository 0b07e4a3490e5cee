// Package core runs a full coordination analysis over a batch of validation
// records: the co-validation graph, its communities, the three coincidence
// detectors and the composite risk score.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/sentinel/internal/config"
	"github.com/agenthands/sentinel/internal/core/common"
	"github.com/agenthands/sentinel/internal/core/community"
	"github.com/agenthands/sentinel/internal/core/detect"
	"github.com/agenthands/sentinel/internal/core/graph"
	"github.com/agenthands/sentinel/internal/core/model"
	"github.com/agenthands/sentinel/internal/core/risk"
	"github.com/agenthands/sentinel/internal/core/vectorize"
	"github.com/agenthands/sentinel/internal/llm"
)

var tracer = otel.Tracer("sentinel.core")

// Sentinel is safe for concurrent use. The community, risk and embedding
// caches are shared across calls; everything else is built per call.
type Sentinel struct {
	Builder     *graph.Builder
	Communities *community.CachedDetector
	Temporal    *detect.TemporalDetector
	Score       *detect.ScoreDetector
	Semantic    *detect.SemanticDetector
	Scorer      *risk.Scorer

	logger  *slog.Logger
	timeout time.Duration
}

// NewSentinel wires every component from cfg. A nil embedder disables the
// embedding tier of the semantic detector.
func NewSentinel(cfg *config.Config, embedder llm.EmbedderClient, logger *slog.Logger) *Sentinel {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := cfg.Detection

	var inner community.CommunityDetector
	switch d.CommunityAlgorithm {
	case config.AlgorithmLabelPropagation:
		inner = community.NewLabelPropagationDetector(d.CommunityEdgeThreshold, d.MinCommunitySize)
	default:
		inner = community.NewComponentDetector(d.CommunityEdgeThreshold, d.MinCommunitySize)
	}

	var embedding *vectorize.EmbeddingVectorizer
	if embedder != nil {
		embedding = vectorize.NewEmbeddingVectorizer(embedder, cfg.LLM.EmbedTimeout(), cfg.Cache.EmbeddingEntries)
	}

	weights := risk.Weights{
		Temporal:                 cfg.Risk.TemporalWeight,
		Score:                    cfg.Risk.ScoreWeight,
		Semantic:                 cfg.Risk.SemanticWeight,
		MaxFlagsForNormalization: cfg.Risk.MaxFlagsForNormalization,
	}

	workers := cfg.Concurrency.Workers
	return &Sentinel{
		Builder:     graph.NewBuilder(d.MinEdgeWeight),
		Communities: community.NewCachedDetector(inner, cfg.Cache.CommunityEntries),
		Temporal:    detect.NewTemporalDetector(d.TemporalWindow(), d.MinTemporalOccurrences, workers, logger),
		Score:       detect.NewScoreDetector(d.ScoreSimilarityThreshold, d.MinScoreSimilarityCount, workers, logger),
		Semantic: detect.NewSemanticDetector(
			vectorize.Default(logger, embedding),
			d.SemanticSimilarityThreshold,
			d.MinNoteLength,
			logger,
		),
		Scorer:  risk.NewScorer(weights, cfg.Cache.RiskEntries),
		logger:  logger,
		timeout: time.Duration(cfg.Concurrency.AnalysisTimeoutSeconds * float64(time.Second)),
	}
}

// Analyze never fails. Empty input yields a zero report flagged
// "no_validations"; any internal fault, panic or exceeded deadline yields a
// zero report flagged "coordination_analysis_failed".
func (s *Sentinel) Analyze(ctx context.Context, records []model.ValidationRecord) (report *model.Report) {
	ctx, span := tracer.Start(ctx, "Sentinel.Analyze",
		trace.WithAttributes(attribute.Int("records", len(records))),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("coordination analysis panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			span.SetStatus(codes.Error, fmt.Sprint(r))
			report = model.ZeroReport(model.FlagAnalysisFailed)
		}
	}()

	if len(records) == 0 {
		span.SetStatus(codes.Ok, "")
		return model.ZeroReport(model.FlagNoValidations)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.analyze(ctx, records)
	if err != nil {
		s.logger.Error("coordination analysis failed",
			slog.Int("records", len(records)),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.ZeroReport(model.FlagAnalysisFailed)
	}

	span.SetAttributes(
		attribute.Int("validators", len(report.Graph.Nodes)),
		attribute.Int("communities", len(report.Graph.Communities)),
		attribute.Int("flags", len(report.Flags)),
		attribute.Float64("risk", report.OverallRiskScore),
	)
	span.SetStatus(codes.Ok, "")
	return report
}

func (s *Sentinel) analyze(ctx context.Context, records []model.ValidationRecord) (*model.Report, error) {
	g := s.Builder.Build(records)

	communities, err := s.Communities.Detect(g.Edges, g.Nodes)
	if err != nil {
		return nil, fmt.Errorf("community detection: %w", err)
	}
	if communities == nil {
		communities = [][]string{}
	}
	g.Communities = communities
	g.CommunityProfiles = graph.Profiles(records, communities)

	var (
		temporal detect.TemporalResult
		scores   detect.ScoreResult
	)
	eg, egCtx := errgroup.WithContext(ctx)
	common.Go(eg, func() error {
		var err error
		temporal, err = s.Temporal.Detect(egCtx, records)
		if err != nil {
			return fmt.Errorf("temporal detection: %w", err)
		}
		return nil
	})
	common.Go(eg, func() error {
		var err error
		scores, err = s.Score.Detect(egCtx, records)
		if err != nil {
			return fmt.Errorf("score detection: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	semantic, err := s.Semantic.Detect(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("semantic detection: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flags := make([]string, 0, len(temporal.Flags)+len(scores.Flags)+len(semantic.Flags))
	flags = append(flags, temporal.Flags...)
	flags = append(flags, scores.Flags...)
	flags = append(flags, semantic.Flags...)

	breakdown := model.RiskBreakdown{
		Temporal: len(temporal.Flags),
		Score:    len(scores.Flags),
		Semantic: len(semantic.Flags),
	}
	score := s.Scorer.Score(risk.Input{
		TemporalFlags:   breakdown.Temporal,
		ScoreFlags:      breakdown.Score,
		SemanticFlags:   breakdown.Semantic,
		TotalValidators: len(g.Nodes),
	})

	s.logger.Info("coordination analysis",
		slog.Int("flags", len(flags)),
		slog.Int("temporal", breakdown.Temporal),
		slog.Int("score", breakdown.Score),
		slog.Int("semantic", breakdown.Semantic),
		slog.Float64("risk", score),
	)

	return &model.Report{
		OverallRiskScore: common.Round(score, 3),
		CoordinationClusters: model.CoordinationClusters{
			Temporal: temporal.Clusters,
			Score:    scores.Clusters,
			Semantic: semantic.Clusters,
		},
		Flags:         flags,
		Graph:         g,
		RiskBreakdown: breakdown,
	}, nil
}

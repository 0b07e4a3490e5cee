// Package store persists coordination reports to Memgraph as a graph of
// validators, co-validation edges and communities.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/sentinel/internal/core/model"
	"github.com/agenthands/sentinel/internal/driver"
	"github.com/agenthands/sentinel/internal/events"
)

var ErrReportNotFound = errors.New("report not found")

// DefaultGroupID is used when a caller does not name a group.
const DefaultGroupID = "default"

type ReportStore struct {
	Driver driver.GraphDriver
	logger *slog.Logger
}

func NewReportStore(d driver.GraphDriver, logger *slog.Logger) *ReportStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportStore{Driver: d, logger: logger}
}

// StoredReport is the summary kept on a Report node.
type StoredReport struct {
	UUID             string
	GroupID          string
	OverallRiskScore float64
	Flags            []string
	Edges            []model.Edge
	Communities      [][]string
}

// Save writes report under groupID and returns the new report UUID.
func (s *ReportStore) Save(ctx context.Context, groupID string, report *model.Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("nil report")
	}
	if groupID == "" {
		groupID = DefaultGroupID
	}
	id := uuid.NewString()
	now := time.Now().UTC()

	flags := report.Flags
	if flags == nil {
		flags = []string{}
	}
	_, err := s.Driver.ExecuteQuery(ctx, driver.SaveReportQuery, map[string]any{
		"uuid":               id,
		"group_id":           groupID,
		"created_at":         now,
		"overall_risk_score": report.OverallRiskScore,
		"flags":              flags,
		"temporal_flags":     int64(report.RiskBreakdown.Temporal),
		"score_flags":        int64(report.RiskBreakdown.Score),
		"semantic_flags":     int64(report.RiskBreakdown.Semantic),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	g := report.Graph
	if len(g.Nodes) > 0 {
		_, err := s.Driver.ExecuteQuery(ctx, driver.SaveValidatorsQuery, map[string]any{
			"report_uuid": id,
			"group_id":    groupID,
			"created_at":  now,
			"validators":  g.Nodes,
		})
		if err != nil {
			return "", s.discard(ctx, id, fmt.Errorf("failed to save validators: %w", err))
		}
	}

	if len(g.Edges) > 0 {
		edges := make([]map[string]any, len(g.Edges))
		for i, e := range g.Edges {
			edges[i] = map[string]any{"source": e.Source, "target": e.Target, "weight": e.Weight}
		}
		_, err := s.Driver.ExecuteQuery(ctx, driver.SaveCoValidatedEdgesQuery, map[string]any{
			"report_uuid": id,
			"group_id":    groupID,
			"created_at":  now,
			"edges":       edges,
		})
		if err != nil {
			return "", s.discard(ctx, id, fmt.Errorf("failed to save edges: %w", err))
		}
	}

	for _, p := range profiles(g) {
		_, err := s.Driver.ExecuteQuery(ctx, driver.SaveCommunityQuery, map[string]any{
			"uuid":               uuid.NewString(),
			"report_uuid":        id,
			"group_id":           groupID,
			"created_at":         now,
			"members":            p.Members,
			"shared_affiliation": p.SharedAffiliation,
			"shared_specialty":   p.SharedSpecialty,
		})
		if err != nil {
			return "", s.discard(ctx, id, fmt.Errorf("failed to save community: %w", err))
		}
	}

	s.logger.Info("report saved",
		slog.String("uuid", id),
		slog.String("group_id", groupID),
		slog.Int("validators", len(g.Nodes)),
		slog.Int("communities", len(g.Communities)),
	)
	return id, nil
}

// discard removes a partially written report so lookups never see a report
// without its graph. Removal runs even when ctx is already cancelled.
func (s *ReportStore) discard(ctx context.Context, id string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.Driver.ExecuteQuery(ctx, driver.DeleteReportQuery, map[string]any{"uuid": id}); err != nil {
		s.logger.Error("failed to remove partial report",
			slog.String("uuid", id),
			slog.String("error", err.Error()),
		)
		return errors.Join(cause, err)
	}
	return cause
}

// profiles falls back to bare member lists when a graph carries communities
// without profiles.
func profiles(g model.Graph) []model.CommunityProfile {
	if len(g.CommunityProfiles) == len(g.Communities) {
		return g.CommunityProfiles
	}
	out := make([]model.CommunityProfile, len(g.Communities))
	for i, members := range g.Communities {
		out[i] = model.CommunityProfile{Members: members}
	}
	return out
}

// Get loads a saved report summary with its edges and communities.
func (s *ReportStore) Get(ctx context.Context, id string) (*StoredReport, error) {
	params := map[string]any{"uuid": id}
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetReportQuery, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}

	rec := res.Records[0]
	out := &StoredReport{UUID: id}
	if out.GroupID, _, err = neo4j.GetRecordValue[string](rec, "group_id"); err != nil {
		return nil, err
	}
	if out.OverallRiskScore, _, err = neo4j.GetRecordValue[float64](rec, "overall_risk_score"); err != nil {
		return nil, err
	}
	rawFlags, _, err := neo4j.GetRecordValue[[]any](rec, "flags")
	if err != nil {
		return nil, err
	}
	out.Flags = toStrings(rawFlags)

	res, err = s.Driver.ExecuteQuery(ctx, driver.GetReportEdgesQuery, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	out.Edges = make([]model.Edge, 0, len(res.Records))
	for _, r := range res.Records {
		source, _, err := neo4j.GetRecordValue[string](r, "source")
		if err != nil {
			return nil, err
		}
		target, _, err := neo4j.GetRecordValue[string](r, "target")
		if err != nil {
			return nil, err
		}
		weight, _, err := neo4j.GetRecordValue[float64](r, "weight")
		if err != nil {
			return nil, err
		}
		out.Edges = append(out.Edges, model.Edge{Source: source, Target: target, Weight: weight})
	}

	res, err = s.Driver.ExecuteQuery(ctx, driver.GetReportCommunitiesQuery, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load communities: %w", err)
	}
	out.Communities = make([][]string, 0, len(res.Records))
	for _, r := range res.Records {
		members, _, err := neo4j.GetRecordValue[[]any](r, "members")
		if err != nil {
			return nil, err
		}
		out.Communities = append(out.Communities, toStrings(members))
	}
	return out, nil
}

// Handle persists reports published through the hook manager. Failed
// analyses are not stored.
func (s *ReportStore) Handle(ctx context.Context, e events.Event) error {
	if e.Report == nil || e.Report.Failed() {
		return nil
	}
	_, err := s.Save(ctx, e.GroupID, e.Report)
	return err
}

func toStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

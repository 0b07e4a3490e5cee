package model

// Report-level flags.
const (
	FlagNoValidations  = "no_validations"
	FlagAnalysisFailed = "coordination_analysis_failed"
)

// Flag prefixes, one per detector. A pair flag is "<prefix>_<a>_<b>".
const (
	TemporalFlagPrefix = "temporal_coordination"
	ScoreFlagPrefix    = "score_coordination"
	SemanticFlagPrefix = "semantic_coordination"
)

// PairFlag formats a detector flag for a validator pair.
func PairFlag(prefix string, p Pair) string {
	return prefix + "_" + p.A + "_" + p.B
}

type TemporalCluster struct {
	Validators             []string `json:"validators"`
	CloseSubmissions       int      `json:"close_submissions"`
	CoordinationLikelihood float64  `json:"coordination_likelihood"`
}

type ScoreCluster struct {
	Validators             []string `json:"validators"`
	SimilarScoreCount      int      `json:"similar_score_count"`
	AvgScoreDifference     float64  `json:"avg_score_difference"`
	CoordinationLikelihood float64  `json:"coordination_likelihood"`
}

type SemanticCluster struct {
	Validators             []string `json:"validators"`
	SimilarityScore        float64  `json:"similarity_score"`
	CoordinationLikelihood float64  `json:"coordination_likelihood"`
}

type CoordinationClusters struct {
	Temporal []TemporalCluster `json:"temporal"`
	Score    []ScoreCluster    `json:"score"`
	Semantic []SemanticCluster `json:"semantic"`
}

type RiskBreakdown struct {
	Temporal int `json:"temporal"`
	Score    int `json:"score"`
	Semantic int `json:"semantic"`
}

// Report is the result of one coordination analysis. It is built fresh for
// every call and owned by the caller once returned.
type Report struct {
	OverallRiskScore     float64              `json:"overall_risk_score"`
	CoordinationClusters CoordinationClusters `json:"coordination_clusters"`
	Flags                []string             `json:"flags"`
	Graph                Graph                `json:"graph"`
	RiskBreakdown        RiskBreakdown        `json:"risk_breakdown"`
}

// ZeroReport returns a report with no findings carrying the given flags.
func ZeroReport(flags ...string) *Report {
	if flags == nil {
		flags = []string{}
	}
	return &Report{
		CoordinationClusters: CoordinationClusters{
			Temporal: []TemporalCluster{},
			Score:    []ScoreCluster{},
			Semantic: []SemanticCluster{},
		},
		Flags: flags,
		Graph: EmptyGraph(),
	}
}

// Minimal is the reduced payload published to UI observers.
type Minimal struct {
	OverallRiskScore float64 `json:"overall_risk_score"`
	Graph            Graph   `json:"graph"`
}

// Minimal returns the score and graph only.
func (r *Report) Minimal() Minimal {
	return Minimal{OverallRiskScore: r.OverallRiskScore, Graph: r.Graph}
}

// Failed reports whether the analysis degraded to the safe default.
func (r *Report) Failed() bool {
	for _, f := range r.Flags {
		if f == FlagAnalysisFailed {
			return true
		}
	}
	return false
}

// Package risk turns detector flag counts into a single composite score.
package risk

import (
	"math"

	"github.com/agenthands/sentinel/internal/core/common"
)

// Default weights for the composite score. The flag weights sum to 1.0.
const (
	DefaultTemporalWeight           = 0.4
	DefaultScoreWeight              = 0.4
	DefaultSemanticWeight           = 0.2
	DefaultMaxFlagsForNormalization = 20.0

	// squashSteepness controls how quickly the score saturates.
	squashSteepness = 4.0
)

type Weights struct {
	Temporal                 float64
	Score                    float64
	Semantic                 float64
	MaxFlagsForNormalization float64
}

func DefaultWeights() Weights {
	return Weights{
		Temporal:                 DefaultTemporalWeight,
		Score:                    DefaultScoreWeight,
		Semantic:                 DefaultSemanticWeight,
		MaxFlagsForNormalization: DefaultMaxFlagsForNormalization,
	}
}

// Input identifies one scoring request and doubles as the memo key.
type Input struct {
	TemporalFlags   int
	ScoreFlags      int
	SemanticFlags   int
	TotalValidators int
}

// Scorer computes the composite risk score and memoizes results.
// It is safe for concurrent use.
type Scorer struct {
	weights Weights
	cache   *common.LRUCache[Input, float64]
}

func NewScorer(weights Weights, cacheSize int) *Scorer {
	return &Scorer{
		weights: weights,
		cache:   common.NewLRUCache[Input, float64](cacheSize),
	}
}

// Score returns the composite risk in [0,1].
//
//	factor     = log10(max(2, validators))
//	weighted   = wT*temporal + wS*score + wM*semantic
//	x          = weighted / (factor * maxFlags)
//	risk       = clamp(2/(1+e^(-4x)) - 1, 0, 1)
//
// Zero validators always yields 0. Larger validator pools dampen the impact
// of the same number of flags.
func (s *Scorer) Score(in Input) float64 {
	return s.cache.GetOrCompute(in, func() float64 {
		return Compute(s.weights, in)
	})
}

// Compute is the uncached scoring formula.
func Compute(w Weights, in Input) float64 {
	if in.TotalValidators <= 0 {
		return 0
	}

	validatorFactor := math.Log(math.Max(2, float64(in.TotalValidators))) / math.Log(10)
	weighted := w.Temporal*float64(in.TemporalFlags) +
		w.Score*float64(in.ScoreFlags) +
		w.Semantic*float64(in.SemanticFlags)

	denominator := validatorFactor * w.MaxFlagsForNormalization
	if denominator <= 0 {
		return 0
	}
	normalized := weighted / denominator

	risk := 2/(1+math.Exp(-squashSteepness*normalized)) - 1
	return math.Max(0, math.Min(1, risk))
}

// Stats exposes the memo cache counters.
func (s *Scorer) Stats() (hits, misses, evictions int64) {
	return s.cache.Stats()
}

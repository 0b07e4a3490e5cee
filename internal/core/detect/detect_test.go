package detect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/sentinel/internal/core/model"
)

const foxNote = "the quick brown fox jumps over the lazy dog"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rec(validator, hypothesis string, score float64, ts, note string) model.ValidationRecord {
	return model.ValidationRecord{
		ValidatorID:  validator,
		HypothesisID: hypothesis,
		Score:        model.Float(score),
		Timestamp:    ts,
		Note:         note,
	}
}

// pairScenario has two validators reviewing four hypotheses at the same
// minutes with identical scores and notes.
func pairScenario() []model.ValidationRecord {
	var records []model.ValidationRecord
	for i := 0; i < 4; i++ {
		ts := fmt.Sprintf("2024-01-01T00:0%d:00Z", i)
		h := fmt.Sprintf("h%d", i)
		records = append(records,
			rec("v1", h, 0.8, ts, foxNote),
			rec("v2", h, 0.8, ts, foxNote),
		)
	}
	return records
}

// crowd builds n validators that all submit at the same minutes with the same
// score on the same hypotheses.
func crowd(n int) []model.ValidationRecord {
	var records []model.ValidationRecord
	for v := 0; v < n; v++ {
		for h := 0; h < 4; h++ {
			records = append(records, rec(
				fmt.Sprintf("v%02d", v),
				fmt.Sprintf("h%d", h),
				0.5+0.01*float64(v%3),
				fmt.Sprintf("2024-01-01T00:%02d:00Z", h*2),
				"",
			))
		}
	}
	return records
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-01-01T12:30:00Z",
		"2024-01-01T12:30:00+00:00",
		"2024-01-01T14:30:00+02:00",
		"2024-01-01T12:30:00",
		"2024-01-01T12:30:00.000",
		"2024-01-01 12:30:00",
		"2024-01-01T12:30",
		"2024-01-01T12:30Z",
		"2024-01-01T13:30+01:00",
		"2024-01-01T12:30:00+0000",
		"2024-01-01T07:30:00.000-0500",
		"2024-01-01 12:30",
		"2024-01-01 12:30:00+0000",
	} {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	for _, s := range []string{"", "not-a-time", "2024-13-45T99:00:00Z"} {
		_, err := ParseTimestamp(s)
		assert.Error(t, err, s)
	}
}

func TestTemporalDetector(t *testing.T) {
	d := NewTemporalDetector(DefaultTemporalWindow, DefaultMinTemporalOccurrences, 0, quietLogger())

	res, err := d.Detect(context.Background(), pairScenario())
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, []string{"v1", "v2"}, res.Clusters[0].Validators)
	assert.Equal(t, 16, res.Clusters[0].CloseSubmissions)
	assert.Equal(t, 1.0, res.Clusters[0].CoordinationLikelihood)
	assert.Equal(t, []string{"temporal_coordination_v1_v2"}, res.Flags)
}

func TestTemporalDetector_WindowBoundary(t *testing.T) {
	d := NewTemporalDetector(5*time.Minute, 3, 0, quietLogger())
	records := []model.ValidationRecord{
		rec("a", "h1", 0, "2024-01-01T00:00:00Z", ""),
		rec("a", "h2", 0, "2024-01-01T01:00:00Z", ""),
		rec("a", "h3", 0, "2024-01-01T02:00:00Z", ""),
		rec("b", "h1", 0, "2024-01-01T00:05:00Z", ""), // exactly on the window
		rec("b", "h2", 0, "2024-01-01T01:04:59Z", ""),
		rec("b", "h3", 0, "2024-01-01T02:05:01Z", ""), // just outside
	}

	res, err := d.Detect(context.Background(), records)
	require.NoError(t, err)
	assert.Empty(t, res.Clusters)

	d.MinOccurrences = 2
	res, err = d.Detect(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, 2, res.Clusters[0].CloseSubmissions)
	assert.InDelta(t, 0.2, res.Clusters[0].CoordinationLikelihood, 1e-9)
}

func TestTemporalDetector_InvalidTimestampSkipped(t *testing.T) {
	records := append(pairScenario(), rec("v3", "h0", 0.8, "yesterday-ish", foxNote))
	d := NewTemporalDetector(DefaultTemporalWindow, DefaultMinTemporalOccurrences, 0, quietLogger())

	res, err := d.Detect(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, []string{"temporal_coordination_v1_v2"}, res.Flags)
}

func TestTemporalDetector_ChunkingDoesNotChangeResult(t *testing.T) {
	records := crowd(12)
	var baseline TemporalResult
	for i, workers := range []int{1, 2, 5, 64} {
		d := NewTemporalDetector(DefaultTemporalWindow, DefaultMinTemporalOccurrences, workers, quietLogger())
		res, err := d.Detect(context.Background(), records)
		require.NoError(t, err)
		if i == 0 {
			baseline = res
			assert.Len(t, res.Flags, 12*11/2)
			continue
		}
		assert.Equal(t, baseline, res, "workers=%d", workers)
	}
	assertUniqueFlags(t, baseline.Flags)
}

func TestTemporalDetector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewTemporalDetector(DefaultTemporalWindow, DefaultMinTemporalOccurrences, 0, quietLogger())
	_, err := d.Detect(ctx, crowd(4))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScoreDetector(t *testing.T) {
	d := NewScoreDetector(DefaultScoreSimilarityThreshold, DefaultMinScoreSimilarityCount, 0, quietLogger())

	res, err := d.Detect(context.Background(), pairScenario())
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	c := res.Clusters[0]
	assert.Equal(t, []string{"v1", "v2"}, c.Validators)
	assert.Equal(t, 4, c.SimilarScoreCount)
	assert.Equal(t, 0.0, c.AvgScoreDifference)
	assert.InDelta(t, 0.4, c.CoordinationLikelihood, 1e-9)
	assert.Equal(t, []string{"score_coordination_v1_v2"}, res.Flags)
}

func TestScoreDetector_DifferenceAndThreshold(t *testing.T) {
	records := []model.ValidationRecord{
		rec("b", "h1", 0.7, "", ""), rec("a", "h1", 0.8, "", ""),
		rec("b", "h2", 0.55, "", ""), rec("a", "h2", 0.5, "", ""),
		rec("b", "h3", 0.9, "", ""), rec("a", "h3", 0.9, "", ""),
		rec("b", "h4", 0.31, "", ""), rec("a", "h4", 0.3, "", ""),
		rec("b", "h5", 0.1, "", ""), rec("a", "h5", 0.9, "", ""),
	}
	d := NewScoreDetector(0.1, 4, 0, quietLogger())

	res, err := d.Detect(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	c := res.Clusters[0]
	assert.Equal(t, []string{"a", "b"}, c.Validators, "pair is canonical regardless of input order")
	assert.Equal(t, 4, c.SimilarScoreCount)
	assert.Equal(t, 0.04, c.AvgScoreDifference)
}

func TestScoreDetector_SkipsMissingAndLastScoreWins(t *testing.T) {
	records := pairScenario()
	records = append(records,
		model.ValidationRecord{ValidatorID: "v1", HypothesisID: "h0", ScoreRaw: "high"},
		model.ValidationRecord{ValidatorID: "v2", HypothesisID: "h1"},
	)
	d := NewScoreDetector(DefaultScoreSimilarityThreshold, DefaultMinScoreSimilarityCount, 0, quietLogger())

	res, err := d.Detect(context.Background(), records)
	require.NoError(t, err)
	assert.Len(t, res.Clusters, 1)

	records = append(records, rec("v2", "h3", 0.1, "", ""))
	res, err = d.Detect(context.Background(), records)
	require.NoError(t, err)
	assert.Empty(t, res.Clusters, "a later score replaces the earlier one")
}

func TestScoreDetector_ChunkingDoesNotChangeResult(t *testing.T) {
	records := crowd(10)
	var baseline ScoreResult
	for i, workers := range []int{1, 3, 7, 100} {
		d := NewScoreDetector(DefaultScoreSimilarityThreshold, DefaultMinScoreSimilarityCount, workers, quietLogger())
		res, err := d.Detect(context.Background(), records)
		require.NoError(t, err)
		if i == 0 {
			baseline = res
			assert.Len(t, res.Flags, 10*9/2)
			continue
		}
		assert.Equal(t, baseline, res, "workers=%d", workers)
	}
	assertUniqueFlags(t, baseline.Flags)
}

func TestScoreDetector_InvalidTimestampStillScored(t *testing.T) {
	records := pairScenario()
	for i := range records {
		records[i].Timestamp = "garbage"
	}
	d := NewScoreDetector(DefaultScoreSimilarityThreshold, DefaultMinScoreSimilarityCount, 0, quietLogger())
	res, err := d.Detect(context.Background(), records)
	require.NoError(t, err)
	assert.Len(t, res.Flags, 1)
}

func assertUniqueFlags(t *testing.T, flags []string) {
	t.Helper()
	seen := make(map[string]bool, len(flags))
	for _, f := range flags {
		assert.False(t, seen[f], "duplicate flag %s", f)
		seen[f] = true
	}
}

package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValidationRecord is a single validator's judgment of a hypothesis.
// Score and Timestamp are optional; a nil Score means the score was absent
// or could not be read as a number.
type ValidationRecord struct {
	ValidatorID  string   `json:"validator_id"`
	HypothesisID string   `json:"hypothesis_id"`
	Score        *float64 `json:"score,omitempty"`
	Timestamp    string   `json:"timestamp,omitempty"`
	Note         string   `json:"note,omitempty"`
	Specialty    string   `json:"specialty,omitempty"`
	Affiliation  string   `json:"affiliation,omitempty"`

	// ScoreRaw keeps a score payload that was present but not numeric so the
	// score detector can report it. It is never serialized.
	ScoreRaw string `json:"-"`
}

// Valid reports whether the record carries both identities.
func (v ValidationRecord) Valid() bool {
	return v.ValidatorID != "" && v.HypothesisID != ""
}

// UnmarshalJSON accepts a score given as a JSON number or a numeric string.
// Anything else leaves Score nil and stores the raw value in ScoreRaw.
func (v *ValidationRecord) UnmarshalJSON(data []byte) error {
	type plain ValidationRecord
	aux := struct {
		*plain
		Score json.RawMessage `json:"score,omitempty"`
	}{plain: (*plain)(v)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v.Score = nil
	v.ScoreRaw = ""

	raw := strings.TrimSpace(string(aux.Score))
	if raw == "" || raw == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(aux.Score, &f); err == nil {
		v.Score = &f
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.Score, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			v.Score = &parsed
			return nil
		}
		v.ScoreRaw = s
		return nil
	}

	v.ScoreRaw = raw
	return nil
}

// Float returns a pointer to f, for building records in code.
func Float(f float64) *float64 {
	return &f
}

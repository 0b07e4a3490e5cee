// Package graph builds the co-validation graph: validators are nodes and an
// edge joins two validators who reviewed the same hypotheses.
package graph

import (
	"sort"

	"github.com/agenthands/sentinel/internal/core/common"
	"github.com/agenthands/sentinel/internal/core/model"
)

// DefaultMinEdgeWeight drops edges weaker than a tenth of the strongest edge.
const DefaultMinEdgeWeight = 0.1

type Builder struct {
	MinEdgeWeight float64
}

func NewBuilder(minEdgeWeight float64) *Builder {
	return &Builder{MinEdgeWeight: minEdgeWeight}
}

// Build aggregates shared-hypothesis counts per validator pair, normalizes them
// by the strongest pair and keeps edges at or above MinEdgeWeight. Every
// validator with a record is a node, including isolated ones. The returned
// graph has no communities yet.
func (b *Builder) Build(records []model.ValidationRecord) model.Graph {
	g := model.EmptyGraph()
	g.HypothesisCoverage = make(map[string][]string)

	reviewers := make(map[string]map[string]struct{})
	nodes := make(map[string]struct{})

	for _, r := range records {
		if !r.Valid() {
			continue
		}
		nodes[r.ValidatorID] = struct{}{}
		set, ok := reviewers[r.HypothesisID]
		if !ok {
			set = make(map[string]struct{})
			reviewers[r.HypothesisID] = set
		}
		set[r.ValidatorID] = struct{}{}
	}

	raw := make(map[model.Pair]float64)
	for hypothesisID, set := range reviewers {
		validators := common.SortedKeys(set)
		g.HypothesisCoverage[hypothesisID] = validators
		if len(validators) < 2 {
			continue
		}
		for i := 0; i < len(validators); i++ {
			for j := i + 1; j < len(validators); j++ {
				raw[model.NewPair(validators[i], validators[j])]++
			}
		}
	}

	g.Nodes = common.SortedKeys(nodes)
	if len(raw) == 0 {
		return g
	}

	maxWeight := 0.0
	for _, w := range raw {
		if w > maxWeight {
			maxWeight = w
		}
	}

	for pair, w := range raw {
		normalized := w / maxWeight
		if normalized < b.MinEdgeWeight {
			continue
		}
		g.Edges = append(g.Edges, model.Edge{Source: pair.A, Target: pair.B, Weight: normalized})
	}
	SortEdges(g.Edges)

	return g
}

// SortEdges orders edges by their canonical endpoint pair.
func SortEdges(edges []model.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Pair().Less(edges[j].Pair())
	})
}

// Profiles reports the affiliation and specialty shared by all members of each
// community. A member with several records contributes each of them.
func Profiles(records []model.ValidationRecord, communities [][]string) []model.CommunityProfile {
	if len(communities) == 0 {
		return nil
	}

	affiliations := make(map[string]map[string]struct{})
	specialties := make(map[string]map[string]struct{})
	add := func(dst map[string]map[string]struct{}, id, value string) {
		set, ok := dst[id]
		if !ok {
			set = make(map[string]struct{})
			dst[id] = set
		}
		set[value] = struct{}{}
	}
	for _, r := range records {
		if r.ValidatorID == "" {
			continue
		}
		add(affiliations, r.ValidatorID, r.Affiliation)
		add(specialties, r.ValidatorID, r.Specialty)
	}

	profiles := make([]model.CommunityProfile, 0, len(communities))
	for _, members := range communities {
		profiles = append(profiles, model.CommunityProfile{
			Members:           members,
			SharedAffiliation: shared(members, affiliations),
			SharedSpecialty:   shared(members, specialties),
		})
	}
	return profiles
}

func shared(members []string, values map[string]map[string]struct{}) string {
	value := ""
	for i, m := range members {
		set := values[m]
		if len(set) != 1 {
			return ""
		}
		var v string
		for only := range set {
			v = only
		}
		if v == "" {
			return ""
		}
		if i == 0 {
			value = v
		} else if v != value {
			return ""
		}
	}
	return value
}

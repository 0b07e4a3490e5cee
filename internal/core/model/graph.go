package model

// CommunityProfile describes what the members of a community have in common.
// SharedAffiliation and SharedSpecialty are empty unless every member reported
// the same non-empty value.
type CommunityProfile struct {
	Members           []string `json:"members"`
	SharedAffiliation string   `json:"shared_affiliation,omitempty"`
	SharedSpecialty   string   `json:"shared_specialty,omitempty"`
}

// Graph is the co-validation graph over validator IDs.
type Graph struct {
	Edges              []Edge              `json:"edges"`
	Nodes              []string            `json:"nodes"`
	Communities        [][]string          `json:"communities"`
	CommunityProfiles  []CommunityProfile  `json:"community_profiles,omitempty"`
	HypothesisCoverage map[string][]string `json:"hypothesis_coverage,omitempty"`
}

// EmptyGraph returns a graph with non-nil, empty collections so it serializes
// as empty lists instead of null.
func EmptyGraph() Graph {
	return Graph{
		Edges:       []Edge{},
		Nodes:       []string{},
		Communities: [][]string{},
	}
}

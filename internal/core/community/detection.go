package community

import (
	"sort"

	"github.com/agenthands/sentinel/internal/core/model"
)

// Defaults for strong-edge clustering.
const (
	DefaultEdgeThreshold = 0.7
	DefaultMinSize       = 3
)

// CommunityDetector groups validators that are tightly connected in the
// co-validation graph. Each community is a sorted list of validator IDs and
// communities are ordered by their first member.
type CommunityDetector interface {
	Detect(edges []model.Edge, nodes []string) ([][]string, error)
}

// ComponentDetector finds connected components over edges whose weight is at
// least EdgeThreshold and keeps components with at least MinSize members.
type ComponentDetector struct {
	EdgeThreshold float64
	MinSize       int
}

func NewComponentDetector(edgeThreshold float64, minSize int) *ComponentDetector {
	return &ComponentDetector{EdgeThreshold: edgeThreshold, MinSize: minSize}
}

func (d *ComponentDetector) Detect(edges []model.Edge, nodes []string) ([][]string, error) {
	adj := strongAdjacency(edges, nodes, d.EdgeThreshold)

	visited := make(map[string]bool, len(adj))
	var communities [][]string

	for _, start := range sortedNodes(nodes) {
		if visited[start] {
			continue
		}
		if _, ok := adj[start]; !ok {
			continue
		}

		// Explicit stack; pool sizes are unbounded so recursion depth must not be.
		component := []string{}
		stack := []string{start}
		visited[start] = true
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, u)
			for v := range adj[u] {
				if !visited[v] {
					visited[v] = true
					stack = append(stack, v)
				}
			}
		}

		if len(component) >= d.MinSize {
			sort.Strings(component)
			communities = append(communities, component)
		}
	}

	sortCommunities(communities)
	return communities, nil
}

// strongAdjacency keeps edges at or above threshold whose endpoints are both
// known nodes.
func strongAdjacency(edges []model.Edge, nodes []string, threshold float64) map[string]map[string]float64 {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n] = true
	}

	adj := make(map[string]map[string]float64)
	link := func(u, v string, w float64) {
		if adj[u] == nil {
			adj[u] = make(map[string]float64)
		}
		adj[u][v] += w
	}
	for _, e := range edges {
		if e.Weight < threshold || e.Source == e.Target {
			continue
		}
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		link(e.Source, e.Target, e.Weight)
		link(e.Target, e.Source, e.Weight)
	}
	return adj
}

func sortedNodes(nodes []string) []string {
	out := append([]string(nil), nodes...)
	sort.Strings(out)
	return out
}

func sortCommunities(communities [][]string) {
	sort.Slice(communities, func(i, j int) bool {
		return communities[i][0] < communities[j][0]
	})
}

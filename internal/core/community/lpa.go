package community

import (
	"sort"

	"github.com/agenthands/sentinel/internal/core/model"
)

// LabelPropagationDetector implements community detection using the Label
// Propagation Algorithm over strong edges, weighted by normalized edge weight.
// Unlike ComponentDetector it can split a chain of strong edges into several
// communities when a bridge is weaker than the groups it joins.
type LabelPropagationDetector struct {
	EdgeThreshold float64
	MinSize       int
	MaxIterations int
}

func NewLabelPropagationDetector(edgeThreshold float64, minSize int) *LabelPropagationDetector {
	return &LabelPropagationDetector{
		EdgeThreshold: edgeThreshold,
		MinSize:       minSize,
		MaxIterations: 20,
	}
}

func (d *LabelPropagationDetector) Detect(edges []model.Edge, nodes []string) ([][]string, error) {
	adj := strongAdjacency(edges, nodes, d.EdgeThreshold)
	if len(adj) == 0 {
		return nil, nil
	}

	// Each node starts with its own label. Processing order is fixed so the
	// result is deterministic.
	order := make([]string, 0, len(adj))
	for _, n := range sortedNodes(nodes) {
		if _, ok := adj[n]; ok {
			order = append(order, n)
		}
	}
	labels := make(map[string]string, len(order))
	for _, n := range order {
		labels[n] = n
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changeCount := 0

		for _, u := range order {
			weights := make(map[string]float64)
			maxWeight := 0.0
			for v, w := range adj[u] {
				label := labels[v]
				weights[label] += w
				if weights[label] > maxWeight {
					maxWeight = weights[label]
				}
			}

			var candidates []string
			for label, w := range weights {
				if w == maxWeight {
					candidates = append(candidates, label)
				}
			}
			// Ties go to the lexicographically largest label for stability.
			sort.Strings(candidates)
			best := candidates[len(candidates)-1]

			if labels[u] != best {
				labels[u] = best
				changeCount++
			}
		}

		if changeCount == 0 {
			break
		}
	}

	clusters := make(map[string][]string)
	for _, n := range order {
		clusters[labels[n]] = append(clusters[labels[n]], n)
	}

	var communities [][]string
	for _, members := range clusters {
		if len(members) >= d.MinSize {
			sort.Strings(members)
			communities = append(communities, members)
		}
	}
	sortCommunities(communities)
	return communities, nil
}

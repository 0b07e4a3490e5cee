package community

import (
	"testing"

	"github.com/agenthands/sentinel/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLPA_DisconnectedComponents(t *testing.T) {
	// Graph: [1-2-3-1] (Triangle A) ... [4-5-6-4] (Triangle B)
	nodes := []string{"1", "2", "3", "4", "5", "6"}
	edges := []model.Edge{
		edge("1", "2", 1), edge("2", "3", 1), edge("3", "1", 1),
		edge("4", "5", 1), edge("5", "6", 1), edge("6", "4", 1),
	}

	communities, err := NewLabelPropagationDetector(DefaultEdgeThreshold, DefaultMinSize).Detect(edges, nodes)
	assert.NoError(t, err)
	require.Len(t, communities, 2)
	assert.Equal(t, []string{"1", "2", "3"}, communities[0])
	assert.Equal(t, []string{"4", "5", "6"}, communities[1])
}

func TestLPA_BridgeNode(t *testing.T) {
	// Two triangles joined by the strong edge 3-4. Components would merge
	// them; label propagation keeps them apart.
	nodes := []string{"1", "2", "3", "4", "5", "6"}
	edges := []model.Edge{
		edge("1", "2", 1), edge("2", "3", 1), edge("3", "1", 1),
		edge("3", "4", 0.75),
		edge("4", "5", 1), edge("5", "6", 1), edge("6", "4", 1),
	}

	communities, err := NewLabelPropagationDetector(DefaultEdgeThreshold, DefaultMinSize).Detect(edges, nodes)
	assert.NoError(t, err)
	assert.Len(t, communities, 2)

	merged, err := NewComponentDetector(DefaultEdgeThreshold, DefaultMinSize).Detect(edges, nodes)
	assert.NoError(t, err)
	assert.Len(t, merged, 1)
}

func TestLPA_LargeClique(t *testing.T) {
	nodes := []string{"1", "2", "3", "4", "5"}
	var edges []model.Edge
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			edges = append(edges, edge(nodes[i], nodes[j], 1))
		}
	}

	communities, err := NewLabelPropagationDetector(DefaultEdgeThreshold, DefaultMinSize).Detect(edges, nodes)
	assert.NoError(t, err)
	require.Len(t, communities, 1)
	assert.Len(t, communities[0], 5)
}

func TestLPA_NoStrongEdges(t *testing.T) {
	communities, err := NewLabelPropagationDetector(DefaultEdgeThreshold, DefaultMinSize).Detect(
		[]model.Edge{edge("a", "b", 0.2)}, []string{"a", "b"})
	assert.NoError(t, err)
	assert.Empty(t, communities)
}

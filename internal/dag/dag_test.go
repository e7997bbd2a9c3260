package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", "node A")
	g.AddNode("b", "node B")
	g.AddNode("a", "node A2")

	assert.Equal(t, 2, g.NodeCount())
	node, ok := g.GetNode("a")
	require.True(t, ok)
	assert.Equal(t, "node A2", node.Data)

	require.NoError(t, g.AddEdge("a", "b"))
	assert.Equal(t, []string{"b"}, g.GetChildren("a"))
	assert.Equal(t, []string{"a"}, g.GetParents("b"))
}

func TestGraph_AddEdge_Errors(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	assert.Error(t, g.AddEdge("a", "missing"))
	assert.Error(t, g.AddEdge("missing", "a"))
	assert.Error(t, g.AddEdge("a", "a"))
}

func TestGraph_DuplicateEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "b"))
	assert.Len(t, g.GetChildren("a"), 1)
	assert.Len(t, g.GetParents("b"), 1)
}

func TestGraph_HasCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	has, _ := g.HasCycle()
	assert.False(t, has)

	require.NoError(t, g.AddEdge("c", "a"))
	has, path := g.HasCycle()
	assert.True(t, has)
	assert.NotEmpty(t, path)

	_, err := g.TopologicalSort()
	assert.ErrorContains(t, err, "cycle detected")
}

func TestGraph_TopologicalSort_PreservesInsertionOrder(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{
			name:  "independent nodes",
			nodes: []string{"z", "a", "m"},
			want:  []string{"z", "a", "m"},
		},
		{
			name:  "synapses declared before their groups",
			nodes: []string{"S", "exc", "inh"},
			edges: [][2]string{{"exc", "S"}, {"inh", "S"}},
			want:  []string{"exc", "inh", "S"},
		},
		{
			name:  "mixed",
			nodes: []string{"P", "S1", "Q", "S2"},
			edges: [][2]string{{"P", "S1"}, {"Q", "S1"}, {"Q", "S2"}},
			want:  []string{"P", "Q", "S1", "S2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph()
			for _, n := range tt.nodes {
				g.AddNode(n, nil)
			}
			for _, e := range tt.edges {
				require.NoError(t, g.AddEdge(e[0], e[1]))
			}
			sorted, err := g.TopologicalSort()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(sorted))
		})
	}
}

func TestGraph_GetRoots(t *testing.T) {
	g := NewGraph()
	g.AddNode("S", nil)
	g.AddNode("G", nil)
	g.AddNode("H", nil)
	require.NoError(t, g.AddEdge("G", "S"))

	assert.Equal(t, []string{"G", "H"}, g.GetRoots())
}

package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := NewGraph()
	for _, n := range nodes {
		g.AddNode(n, nil)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph()
	g.AddNode("vendors", "v1")
	g.AddNode("products", nil)
	g.AddNode("vendors", "v2")

	assert.Equal(t, 2, g.NodeCount())
	node, ok := g.GetNode("vendors")
	require.True(t, ok)
	assert.Equal(t, "v2", node.Data)
	assert.Equal(t, []string{"vendors", "products"}, ids(g.GetAllNodes()))
}

func TestGraph_AddEdge(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, nil)

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "b"))
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []string{"a"}, g.GetParents("b"))
	assert.Equal(t, []string{"b"}, g.GetChildren("a"))

	assert.Error(t, g.AddEdge("missing", "b"))
	assert.Error(t, g.AddEdge("a", "missing"))
}

func TestGraph_TopologicalSort(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{
			name:  "no edges keeps insertion order",
			nodes: []string{"c", "a", "b"},
			want:  []string{"c", "a", "b"},
		},
		{
			name:  "linear chain",
			nodes: []string{"a", "b", "c"},
			edges: [][2]string{{"a", "b"}, {"b", "c"}},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "dependency declared after dependent",
			nodes: []string{"products", "vendors"},
			edges: [][2]string{{"vendors", "products"}},
			want:  []string{"vendors", "products"},
		},
		{
			name:  "diamond",
			nodes: []string{"a", "b", "c", "d"},
			edges: [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
			want:  []string{"a", "b", "c", "d"},
		},
		{
			name:  "ready nodes are taken in declaration order",
			nodes: []string{"x", "y", "z"},
			edges: [][2]string{{"z", "x"}},
			want:  []string{"y", "z", "x"},
		},
		{
			name: "domain sources",
			nodes: []string{
				"customers", "products", "transactions", "vendors",
				"invoices", "reviews", "support_tickets", "call_transcripts",
			},
			edges: [][2]string{
				{"vendors", "products"},
				{"customers", "transactions"}, {"products", "transactions"},
				{"vendors", "invoices"},
				{"products", "reviews"}, {"customers", "reviews"},
				{"customers", "support_tickets"}, {"products", "support_tickets"},
				{"customers", "call_transcripts"}, {"support_tickets", "call_transcripts"},
			},
			want: []string{
				"customers", "vendors", "products", "transactions",
				"invoices", "reviews", "support_tickets", "call_transcripts",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, tt.nodes, tt.edges)
			sorted, err := g.TopologicalSort()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(sorted))
		})
	}
}

func TestGraph_TopologicalSort_Deterministic(t *testing.T) {
	nodes := []string{"e", "d", "c", "b", "a"}
	edges := [][2]string{{"a", "c"}, {"b", "c"}, {"c", "e"}}

	first, err := buildGraph(t, nodes, edges).TopologicalSort()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := buildGraph(t, nodes, edges).TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(again))
	}
}

func TestGraph_HasCycle(t *testing.T) {
	tests := []struct {
		name      string
		nodes     []string
		edges     [][2]string
		wantCycle bool
		wantPath  []string
	}{
		{
			name:  "acyclic",
			nodes: []string{"a", "b", "c"},
			edges: [][2]string{{"a", "b"}, {"b", "c"}},
		},
		{
			name:      "two node cycle",
			nodes:     []string{"a", "b"},
			edges:     [][2]string{{"a", "b"}, {"b", "a"}},
			wantCycle: true,
			wantPath:  []string{"a", "b", "a"},
		},
		{
			name:      "three node cycle",
			nodes:     []string{"a", "b", "c"},
			edges:     [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}},
			wantCycle: true,
			wantPath:  []string{"a", "b", "c", "a"},
		},
		{
			name:      "self loop",
			nodes:     []string{"a"},
			edges:     [][2]string{{"a", "a"}},
			wantCycle: true,
			wantPath:  []string{"a", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, tt.nodes, tt.edges)
			hasCycle, path := g.HasCycle()
			assert.Equal(t, tt.wantCycle, hasCycle)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestGraph_TopologicalSort_WithCycle(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "b"}})

	_, err := g.TopologicalSort()
	require.Error(t, err)

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"b", "c", "b"}, cycleErr.Path)
}

func TestGraph_GetExecutionLevels(t *testing.T) {
	g := buildGraph(t,
		[]string{"raw1", "raw2", "staging1", "staging2", "mart"},
		[][2]string{{"raw1", "staging1"}, {"raw2", "staging2"}, {"staging1", "mart"}, {"staging2", "mart"}},
	)

	levels, err := g.GetExecutionLevels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"raw1", "raw2"},
		{"staging1", "staging2"},
		{"mart"},
	}, levels)
}

func TestGraph_GetAffectedNodes(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "c"}})

	assert.Equal(t, []string{"a", "b", "c"}, g.GetAffectedNodes([]string{"a"}))
	assert.Equal(t, []string{"d"}, g.GetAffectedNodes([]string{"d", "missing"}))
}

func TestGraph_GetUpstreamNodes(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c", "d"}, [][2]string{{"a", "c"}, {"b", "c"}, {"c", "d"}})

	assert.Equal(t, []string{"a", "b", "c"}, g.GetUpstreamNodes("d"))
	assert.Empty(t, g.GetUpstreamNodes("a"))
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, [][2]string{{"a", "c"}, {"b", "c"}})

	assert.Equal(t, []string{"a", "b"}, g.GetRoots())
	assert.Equal(t, []string{"c"}, g.GetLeaves())
}

func TestGraph_Subgraph(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", "A")
	g.AddNode("b", "B")
	g.AddNode("c", "C")
	g.AddNode("d", "D")
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("c", "d"))

	sub := g.Subgraph([]string{"c", "b"})

	assert.Equal(t, 2, sub.NodeCount())
	assert.Equal(t, 1, sub.EdgeCount())
	assert.Equal(t, []string{"c"}, sub.GetChildren("b"))
	assert.Equal(t, []string{"b", "c"}, ids(sub.GetAllNodes()))

	node, ok := sub.GetNode("b")
	require.True(t, ok)
	assert.Equal(t, "B", node.Data)
}

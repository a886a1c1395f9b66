package partition

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdg-curator/pkg/graph"
	"github.com/pdg-curator/pkg/louvain"
	"github.com/pdg-curator/pkg/pdg"
)

func chainGraph() *graph.Graph {
	doc := &pdg.Document{
		Nodes: []pdg.Node{
			{ID: 0, AstSize: 1, Snippet: "a"},
			{ID: 1, AstSize: 1, Snippet: "b"},
			{ID: 2, AstSize: 1, Snippet: "c"},
			{ID: 3, AstSize: 1, Snippet: "d"},
		},
		Edges: []pdg.Edge{
			pdg.NewEdge(0, 1, pdg.Control),
			pdg.NewEdge(1, 2, pdg.Data),
			pdg.NewEdge(2, 3, pdg.Data),
		},
	}
	return graph.Build(doc, graph.DefaultWeights())
}

func newPartitioner(threshold, depth int) *Partitioner {
	return NewPartitioner(threshold, depth, louvain.NewDetector(louvain.DefaultOptions()))
}

func nodeLists(parts []Part) [][]int {
	out := make([][]int, len(parts))
	for i, p := range parts {
		out[i] = p.Nodes
	}
	return out
}

func TestControlEdgeBindsPair(t *testing.T) {
	parts, err := newPartitioner(2, DefaultMaxDepth).Partition(context.Background(), chainGraph())
	require.NoError(t, err)

	require.Equal(t, [][]int{{0, 1}, {2, 3}}, nodeLists(parts))
	for i, p := range parts {
		assert.Equal(t, i, p.ID)
		assert.Equal(t, 2, p.AstSize)
		assert.Equal(t, WithinBudget, p.Reason)
		assert.Equal(t, 1, p.Depth)
	}
	assert.Equal(t, "a ; b", parts[0].Snippet)
	assert.Equal(t, "c ; d", parts[1].Snippet)
}

func TestSingleNodeIgnoresThreshold(t *testing.T) {
	g := graph.NewGraph()
	g.AddNode(pdg.Node{ID: 7, AstSize: 500})

	for _, threshold := range []int{0, 1, 120, 1000} {
		parts, err := newPartitioner(threshold, DefaultMaxDepth).Partition(context.Background(), g)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, []int{7}, parts[0].Nodes)
		assert.Equal(t, 500, parts[0].AstSize)
	}
}

func TestWithinBudgetIsNeverSplit(t *testing.T) {
	parts, err := newPartitioner(4, DefaultMaxDepth).Partition(context.Background(), chainGraph())
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 1, 2, 3}}, nodeLists(parts))
	assert.Equal(t, WithinBudget, parts[0].Reason)
}

func TestDepthZeroReturnsComponents(t *testing.T) {
	g := chainGraph()
	g.AddNode(pdg.Node{ID: 10, AstSize: 3})

	parts, err := newPartitioner(1, 0).Partition(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 1, 2, 3}, {10}}, nodeLists(parts))
	assert.Equal(t, DepthLimit, parts[0].Reason)
}

func TestEmptyGraph(t *testing.T) {
	parts, err := newPartitioner(1, DefaultMaxDepth).Partition(context.Background(), graph.NewGraph())
	require.NoError(t, err)
	assert.Empty(t, parts)
}

type oneCommunity struct{}

func (oneCommunity) Communities(g *graph.Graph) []*roaring.Bitmap {
	return []*roaring.Bitmap{g.NodeSet()}
}

func TestIndivisible(t *testing.T) {
	p := NewPartitioner(1, DefaultMaxDepth, oneCommunity{})

	parts, err := p.Partition(context.Background(), chainGraph())
	require.NoError(t, err)

	require.Len(t, parts, 1)
	assert.Equal(t, Indivisible, parts[0].Reason)
	assert.Equal(t, 4, parts[0].AstSize)
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPartitioner(1, DefaultMaxDepth).Partition(ctx, chainGraph())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnippetCap(t *testing.T) {
	g := graph.NewGraph()
	g.AddNode(pdg.Node{ID: 1, AstSize: 1, Snippet: strings.Repeat("x", 300)})
	g.AddNode(pdg.Node{ID: 2, AstSize: 1, Snippet: strings.Repeat("é", 130)})
	g.AddEdge(graph.NewEdge(1, 2, 1))

	parts, err := newPartitioner(10, DefaultMaxDepth).Partition(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, parts, 1)

	pieces := strings.Split(parts[0].Snippet, " ; ")
	require.Len(t, pieces, 2)
	assert.Equal(t, strings.Repeat("x", SnippetCap), pieces[0])
	assert.Equal(t, strings.Repeat("é", SnippetCap), pieces[1])
}

func randomGraph(rng *rand.Rand, n int) *graph.Graph {
	g := graph.NewGraph()
	for i := 0; i < n; i++ {
		g.AddNode(pdg.Node{ID: i, AstSize: 1 + rng.IntN(20)})
	}
	for i := 0; i < n*2; i++ {
		u, v := rng.IntN(n), rng.IntN(n)
		w := 1.0
		if rng.IntN(3) == 0 {
			w = 3.0
		}
		g.AddEdge(graph.NewEdge(u, v, w))
	}
	return g
}

func TestPartitionInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 20; round++ {
		g := randomGraph(rng, 20+rng.IntN(80))
		threshold := 10 + rng.IntN(60)
		maxDepth := 1 + rng.IntN(6)

		parts, err := newPartitioner(threshold, maxDepth).Partition(context.Background(), g)
		require.NoError(t, err)

		union := roaring.New()
		total := 0
		for i, part := range parts {
			require.NotEmpty(t, part.Nodes)
			assert.Equal(t, i, part.ID)
			assert.LessOrEqual(t, part.Depth, maxDepth)

			set := roaring.New()
			for _, id := range part.Nodes {
				set.Add(uint32(id))
			}
			assert.False(t, union.Intersects(set), "parts overlap")
			union.Or(set)
			total += len(part.Nodes)

			if len(part.Nodes) > 1 && part.Reason != DepthLimit && part.Reason != Indivisible {
				assert.LessOrEqual(t, part.AstSize, threshold)
			}
		}
		assert.True(t, union.Equals(g.NodeSet()), "union must cover every node")
		assert.Equal(t, g.NumNodes(), total)
	}
}

func TestStopReasonString(t *testing.T) {
	assert.Equal(t, "within_budget", WithinBudget.String())
	assert.Equal(t, "indivisible", Indivisible.String())
	assert.Equal(t, "unknown", StopReason(99).String())
}

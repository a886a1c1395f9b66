package graph

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/pdg-curator/pkg/pdg"
)

type Edge struct {
	U int
	V int
	W float64
}

func NewEdge(u, v int, w float64) Edge {
	return Edge{U: u, V: v, W: w}
}

type Neighbor struct {
	NodeID int
	Weight float64
}

// Graph is an undirected weighted graph whose nodes carry their PDG
// attributes. Parallel edges are merged by summing their weights.
type Graph struct {
	Nodes  map[int]pdg.Node
	Adj    map[int]map[int]float64
	Degree map[int]float64
}

func NewGraph() *Graph {
	return &Graph{
		Nodes:  make(map[int]pdg.Node),
		Adj:    make(map[int]map[int]float64),
		Degree: make(map[int]float64),
	}
}

func (g *Graph) AddNode(n pdg.Node) {
	g.Nodes[n.ID] = n
	if _, ok := g.Adj[n.ID]; !ok {
		g.Adj[n.ID] = make(map[int]float64)
	}
}

func (g *Graph) HasNode(id int) bool {
	_, ok := g.Nodes[id]
	return ok
}

// AddEdge accumulates w onto the edge {U,V}. Self-loops and edges with an
// endpoint outside the graph are ignored.
func (g *Graph) AddEdge(edge Edge) {
	if edge.U == edge.V || !g.HasNode(edge.U) || !g.HasNode(edge.V) {
		return
	}

	g.Adj[edge.U][edge.V] += edge.W
	g.Adj[edge.V][edge.U] += edge.W

	g.Degree[edge.U] += edge.W
	g.Degree[edge.V] += edge.W
}

func (g *Graph) AddEdges(edges []Edge) {
	for _, edge := range edges {
		g.AddEdge(edge)
	}
}

func (g *Graph) GetWeight(nodeU, nodeV int) float64 {
	return g.Adj[nodeU][nodeV]
}

// Neighbors returns the neighbors of a node ordered by node id.
func (g *Graph) Neighbors(nodeID int) []Neighbor {
	adj := g.Adj[nodeID]
	out := make([]Neighbor, 0, len(adj))
	for id, w := range adj {
		out = append(out, Neighbor{NodeID: id, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

func (g *Graph) NumNodes() int {
	return len(g.Nodes)
}

func (g *Graph) NumEdges() int {
	n := 0
	for _, adj := range g.Adj {
		n += len(adj)
	}
	return n / 2
}

// TotalWeight is the sum of all edge weights, each edge counted once.
func (g *Graph) TotalWeight() float64 {
	total := 0.0
	for _, d := range g.Degree {
		total += d
	}
	return total / 2
}

// NodeSet returns the ids of all nodes.
func (g *Graph) NodeSet() *roaring.Bitmap {
	set := roaring.New()
	for id := range g.Nodes {
		set.Add(uint32(id))
	}
	return set
}

// NodeIDs returns all node ids in ascending order.
func (g *Graph) NodeIDs() []int {
	ids := make([]int, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AstSize sums ast_size over every node of the graph.
func (g *Graph) AstSize() int {
	total := 0
	for _, n := range g.Nodes {
		total += n.AstSize
	}
	return total
}

// Subgraph returns the subgraph induced by nodes. Ids not present in g are
// skipped.
func (g *Graph) Subgraph(nodes *roaring.Bitmap) *Graph {
	sub := NewGraph()
	it := nodes.Iterator()
	for it.HasNext() {
		id := int(it.Next())
		if n, ok := g.Nodes[id]; ok {
			sub.AddNode(n)
		}
	}
	for u := range sub.Nodes {
		for v, w := range g.Adj[u] {
			if u < v && sub.HasNode(v) {
				sub.AddEdge(NewEdge(u, v, w))
			}
		}
	}
	return sub
}

// ConnectedComponents returns the node sets of the connected components,
// ordered by their smallest node id.
func (g *Graph) ConnectedComponents() []*roaring.Bitmap {
	visited := roaring.New()
	var components []*roaring.Bitmap

	for _, start := range g.NodeIDs() {
		if visited.Contains(uint32(start)) {
			continue
		}
		component := roaring.New()
		stack := []int{start}
		visited.Add(uint32(start))
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component.Add(uint32(u))
			for v := range g.Adj[u] {
				if visited.CheckedAdd(uint32(v)) {
					stack = append(stack, v)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

package graph

import (
	"math"

	"github.com/pdg-curator/pkg/logger"
	"github.com/pdg-curator/pkg/pdg"
)

// Weights are the per-kind multipliers applied to PDG edges.
type Weights struct {
	Control float64
	Data    float64
}

func DefaultWeights() Weights {
	return Weights{Control: 3.0, Data: 1.0}
}

func (w Weights) For(kind pdg.EdgeKind) float64 {
	if kind == pdg.Control {
		return w.Control
	}
	return w.Data
}

// Build turns a PDG into an undirected weighted graph. Edges with a missing
// or unknown endpoint, self-loops and edges whose weight is not a positive
// finite number are dropped.
func Build(doc *pdg.Document, weights Weights) *Graph {
	g, _ := BuildWithStats(doc, weights)
	return g
}

// BuildWithStats is Build that also reports how many edges were dropped.
func BuildWithStats(doc *pdg.Document, weights Weights) (*Graph, int) {
	g := NewGraph()
	for _, n := range doc.Nodes {
		g.AddNode(n)
	}

	dropped := 0
	for _, e := range doc.Edges {
		src, dst, ok := e.Endpoints()
		if !ok || !g.HasNode(src) || !g.HasNode(dst) || src == dst {
			dropped++
			continue
		}
		w := weights.For(e.Kind())
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			dropped++
			continue
		}
		g.AddEdge(NewEdge(src, dst, w))
	}

	logger.Debug("[Graph] Built weighted graph",
		"nodes", g.NumNodes(), "edges", g.NumEdges(), "dropped_edges", dropped)
	return g, dropped
}

// Package partition decomposes a weighted PDG into node-disjoint parts whose
// total ast_size stays within a budget.
package partition

import (
	"context"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/pdg-curator/pkg/graph"
	"github.com/pdg-curator/pkg/logger"
)

const (
	DefaultSizeThreshold = 120
	DefaultMaxDepth      = 20
	// SnippetCap bounds how many characters of each node's snippet end up in
	// a part's snippet.
	SnippetCap       = 120
	snippetSeparator = " ; "
)

// CommunityDetector splits a graph into communities. Implementations must be
// deterministic for a given configuration.
type CommunityDetector interface {
	Communities(g *graph.Graph) []*roaring.Bitmap
}

type StopReason int

const (
	WithinBudget StopReason = iota
	Singleton
	DepthLimit
	Indivisible
)

func (r StopReason) String() string {
	switch r {
	case WithinBudget:
		return "within_budget"
	case Singleton:
		return "singleton"
	case DepthLimit:
		return "depth_limit"
	case Indivisible:
		return "indivisible"
	default:
		return "unknown"
	}
}

type Part struct {
	ID      int    `json:"part_id"`
	Nodes   []int  `json:"nodes"`
	AstSize int    `json:"ast_size"`
	Snippet string `json:"snippet"`

	Reason StopReason `json:"-"`
	Depth  int        `json:"-"`
}

type Partitioner struct {
	SizeThreshold int
	MaxDepth      int
	Detector      CommunityDetector
}

func NewPartitioner(sizeThreshold, maxDepth int, detector CommunityDetector) *Partitioner {
	return &Partitioner{
		SizeThreshold: sizeThreshold,
		MaxDepth:      maxDepth,
		Detector:      detector,
	}
}

// Partition splits every connected component of g recursively and returns
// the concatenated parts. The only error is the context's.
func (p *Partitioner) Partition(ctx context.Context, g *graph.Graph) ([]Part, error) {
	var parts []Part
	for _, component := range g.ConnectedComponents() {
		sub := g.Subgraph(component)
		out, err := p.split(ctx, sub, 0)
		if err != nil {
			return nil, err
		}
		parts = append(parts, out...)
	}

	for i := range parts {
		parts[i].ID = i
	}
	logSummary(parts)
	return parts, nil
}

func (p *Partitioner) split(ctx context.Context, g *graph.Graph, depth int) ([]Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if depth >= p.MaxDepth {
		return []Part{newPart(g, DepthLimit, depth)}, nil
	}
	if g.NumNodes() <= 1 {
		return []Part{newPart(g, Singleton, depth)}, nil
	}
	if g.AstSize() <= p.SizeThreshold {
		return []Part{newPart(g, WithinBudget, depth)}, nil
	}

	communities := p.Detector.Communities(g)
	if len(communities) <= 1 {
		return []Part{newPart(g, Indivisible, depth)}, nil
	}

	var parts []Part
	for _, community := range communities {
		out, err := p.split(ctx, g.Subgraph(community), depth+1)
		if err != nil {
			return nil, err
		}
		parts = append(parts, out...)
	}
	return parts, nil
}

func newPart(g *graph.Graph, reason StopReason, depth int) Part {
	ids := g.NodeIDs()
	snippets := make([]string, len(ids))
	for i, id := range ids {
		snippets[i] = truncate(g.Nodes[id].Snippet, SnippetCap)
	}
	return Part{
		Nodes:   ids,
		AstSize: g.AstSize(),
		Snippet: strings.Join(snippets, snippetSeparator),
		Reason:  reason,
		Depth:   depth,
	}
}

func truncate(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func logSummary(parts []Part) {
	reasons := make(map[StopReason]int)
	maxDepth := 0
	for _, part := range parts {
		reasons[part.Reason]++
		if part.Depth > maxDepth {
			maxDepth = part.Depth
		}
	}
	logger.Debug("[Partition] Partitioning complete",
		"parts", len(parts),
		"within_budget", reasons[WithinBudget],
		"singleton", reasons[Singleton],
		"indivisible", reasons[Indivisible],
		"depth_limit", reasons[DepthLimit],
		"max_depth", maxDepth)
}

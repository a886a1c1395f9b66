// Package pipeline runs the two batch jobs end to end: PDG partitioning and
// near-duplicate-aware corpus selection. Output files are only written once a
// run has completed; an interrupted run leaves no artifacts behind.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pdg-curator/pkg/config"
	"github.com/pdg-curator/pkg/corpus"
	"github.com/pdg-curator/pkg/graph"
	"github.com/pdg-curator/pkg/graphio"
	"github.com/pdg-curator/pkg/logger"
	"github.com/pdg-curator/pkg/louvain"
	"github.com/pdg-curator/pkg/metrics"
	"github.com/pdg-curator/pkg/minhash"
	"github.com/pdg-curator/pkg/partition"
	"github.com/pdg-curator/pkg/pdg"
	"github.com/pdg-curator/pkg/scoring"
	"github.com/pdg-curator/pkg/selector"
)

type PartitionResult struct {
	RunID        string
	Nodes        int
	Edges        int
	DroppedEdges int
	Parts        []partition.Part
}

// RunPartition loads the PDG at inPath, partitions it and writes the parts
// as JSON to outPath.
func RunPartition(ctx context.Context, cfg *config.Config, inPath, outPath string, m *metrics.Metrics) (*PartitionResult, error) {
	runID := uuid.NewString()
	logger.Info("[Pipeline] Partition run started", "run_id", runID, "input", inPath)

	doc, err := pdg.Load(inPath)
	if err != nil {
		return nil, err
	}

	pc := cfg.Partition
	g, dropped := graph.BuildWithStats(doc, graph.Weights{Control: pc.WControl, Data: pc.WData})
	m.GraphLoaded(g.NumNodes(), dropped)

	detector := louvain.NewDetector(louvain.Options{Resolution: pc.Resolution, Seed: pc.Seed})
	parts, err := partition.NewPartitioner(pc.SizeThreshold, pc.MaxDepth, detector).Partition(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("partitioning aborted: %w", err)
	}
	for _, p := range parts {
		m.PartEmitted(p.Reason.String(), p.Depth)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("partitioning aborted: %w", err)
	}
	// An empty list still encodes as [] rather than null.
	if parts == nil {
		parts = []partition.Part{}
	}
	if err := graphio.WriteJSON(outPath, parts); err != nil {
		return nil, fmt.Errorf("failed to write parts: %w", err)
	}

	logger.Info("[Pipeline] Partition run complete",
		"run_id", runID, "nodes", g.NumNodes(), "edges", g.NumEdges(), "dropped_edges", dropped,
		"parts", len(parts), "output", outPath)
	return &PartitionResult{
		RunID:        runID,
		Nodes:        g.NumNodes(),
		Edges:        g.NumEdges(),
		DroppedEdges: dropped,
		Parts:        parts,
	}, nil
}

type SelectResult struct {
	RunID    string
	Stats    corpus.Stats
	Selected []selector.Selected
}

// RunSelect signs every corpus file below root, scores redundancy and writes
// the K least redundant paths to outPath. When scoresOut is set, the full
// ranking is also written there as CSV.
func RunSelect(ctx context.Context, cfg *config.Config, root, outPath, scoresOut string, m *metrics.Metrics) (*SelectResult, error) {
	runID := uuid.NewString()
	sc := cfg.Selection
	logger.Info("[Pipeline] Selection run started", "run_id", runID, "root", root, "k", sc.K)

	paths, err := corpus.Discover(root, sc.Extensions)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no %s files below %s", corpus.ErrEmpty, strings.Join(sc.Extensions, ", "), root)
	}

	builder := &corpus.Builder{
		Perms:   minhash.NewPermutations(sc.NumPerm, sc.Seed),
		Workers: sc.Workers,
		ReadCap: sc.ReadCap,
	}
	items, err := builder.Build(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("signature build aborted: %w", err)
	}
	for _, it := range items {
		m.SignatureBuilt(it.Unreadable)
	}

	stats := corpus.Summarize(items)
	logger.Info("[Pipeline] Corpus signed",
		"run_id", runID,
		"files", stats.Files,
		"empty_files", stats.EmptyFiles,
		"unreadable", stats.Unreadable,
		"avg_tokens", fmt.Sprintf("%.1f", stats.AverageTokens))

	scorer := scoring.NewScorer(sc.BlockSize, sc.Workers)
	scorer.Metrics = m
	scores, err := scorer.Score(ctx, corpus.Signatures(items))
	if err != nil {
		return nil, fmt.Errorf("scoring aborted: %w", err)
	}

	ranked, err := selector.Rank(scores, corpus.Paths(items))
	if err != nil {
		return nil, err
	}
	selected := selector.Top(ranked, sc.K)
	m.Selected(len(selected))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("selection aborted: %w", err)
	}
	if scoresOut != "" {
		if err := graphio.WriteCSV(scoresOut, []string{"path", "score", "tokens"}, scoreRows(ranked, items)); err != nil {
			return nil, fmt.Errorf("failed to write scores: %w", err)
		}
	}
	if err := graphio.WriteLines(outPath, selector.Paths(selected)); err != nil {
		// The scores report is only valid next to its selection.
		if scoresOut != "" {
			os.Remove(scoresOut)
		}
		return nil, fmt.Errorf("failed to write selection: %w", err)
	}

	logger.Info("[Pipeline] Selection run complete",
		"run_id", runID, "selected", len(selected), "of", len(items), "output", outPath)
	return &SelectResult{RunID: runID, Stats: stats, Selected: selected}, nil
}

func scoreRows(ranked []selector.Selected, items []corpus.Item) [][]string {
	tokens := make(map[string]int, len(items))
	for _, it := range items {
		tokens[it.Path] = it.Tokens
	}
	rows := make([][]string, len(ranked))
	for i, r := range ranked {
		rows[i] = []string{
			r.Path,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			strconv.Itoa(tokens[r.Path]),
		}
	}
	return rows
}

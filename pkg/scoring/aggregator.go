package scoring

import (
	"github.com/pdg-curator/pkg/logger"
)

// BlockResult holds the matching-slot totals of one job. Row holds the
// totals for [I0, I1); Col holds the totals for [J0, J1) and is nil on
// diagonal jobs, where both indices of a pair fall into Row.
type BlockResult struct {
	Job       BlockJob
	Row       []int64
	Col       []int64
	Processed int64
}

// Aggregator folds block results into per-item matching-slot totals. It is
// owned by a single goroutine.
type Aggregator struct {
	matches   []int64
	numPerm   int
	processed int64
	blocks    int
	total     int
}

func NewAggregator(n, totalBlocks, numPerm int) *Aggregator {
	return &Aggregator{
		matches: make([]int64, n),
		numPerm: numPerm,
		total:   totalBlocks,
	}
}

func (a *Aggregator) Add(r BlockResult) {
	for off, v := range r.Row {
		a.matches[r.Job.I0+off] += v
	}
	for off, v := range r.Col {
		a.matches[r.Job.J0+off] += v
	}
	a.processed += r.Processed
	a.blocks++

	logger.Debug("[Aggregator] Merged block",
		"i0", r.Job.I0, "j0", r.Job.J0, "pairs", r.Processed,
		"blocks_done", a.blocks, "blocks_total", a.total)
}

// Scores converts the totals into redundancy scores, the sum of estimated
// similarities of each item to every other item.
func (a *Aggregator) Scores() []float64 {
	scores := make([]float64, len(a.matches))
	if a.numPerm == 0 {
		return scores
	}
	for i, m := range a.matches {
		scores[i] = float64(m) / float64(a.numPerm)
	}
	return scores
}

func (a *Aggregator) Processed() int64 {
	return a.processed
}

func (a *Aggregator) Blocks() int {
	return a.blocks
}

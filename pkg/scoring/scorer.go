// Package scoring computes redundancy scores: for every signature, the sum
// of its estimated similarity to every other signature.
//
// The quadratic workload is cut into block-pair jobs (see Plan). Jobs run on
// a bounded worker pool and each returns partial counts of matching
// signature slots; a single aggregator goroutine folds the partials and
// divides by the slot count once at the end. Integer sums are exact, so the
// scores are bitwise identical for any block size, worker count or job
// completion order.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/pdg-curator/pkg/logger"
	"github.com/pdg-curator/pkg/metrics"
	"github.com/pdg-curator/pkg/minhash"
)

const DefaultBlockSize = 4096

var ErrPairCountMismatch = errors.New("processed pair count does not match n(n-1)/2")

type Scorer struct {
	BlockSize int
	Workers   int
	Metrics   *metrics.Metrics
}

func NewScorer(blockSize, workers int) *Scorer {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scorer{BlockSize: blockSize, Workers: workers}
}

// Score returns the redundancy score of every signature. Any job failure or
// cancellation aborts the run and no scores are returned.
func (s *Scorer) Score(ctx context.Context, sigs []*minhash.Signature) ([]float64, error) {
	n := len(sigs)
	jobs := Plan(n, s.BlockSize)
	expected := ExpectedPairs(n)
	logger.Info("[Scorer] Scoring pairs",
		"items", n, "blocks", len(jobs), "expected_pairs", expected, "workers", s.Workers)

	numPerm := 0
	if n > 0 {
		numPerm = sigs[0].NumPerm()
	}
	agg := NewAggregator(n, len(jobs), numPerm)
	results := make(chan BlockResult, s.Workers)
	merged := make(chan struct{})
	go func() {
		defer close(merged)
		for r := range results {
			agg.Add(r)
			s.Metrics.BlockScored(r.Processed)
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Workers, 1))
	for _, job := range jobs {
		g.Go(func() error {
			r, err := scoreBlock(gCtx, job, sigs)
			if err != nil {
				return err
			}
			select {
			case results <- r:
				return nil
			case <-gCtx.Done():
				return gCtx.Err()
			}
		})
	}
	err := g.Wait()
	close(results)
	<-merged
	if err != nil {
		return nil, err
	}

	if agg.Processed() != expected {
		return nil, fmt.Errorf("%w: processed %d, expected %d", ErrPairCountMismatch, agg.Processed(), expected)
	}
	logger.Info("[Scorer] Scoring complete", "processed_pairs", agg.Processed())
	return agg.Scores(), nil
}

func scoreBlock(ctx context.Context, job BlockJob, sigs []*minhash.Signature) (BlockResult, error) {
	r := BlockResult{Job: job, Row: make([]int64, job.I1-job.I0)}
	if !job.Diagonal() {
		r.Col = make([]int64, job.J1-job.J0)
	}

	for ii := range r.Row {
		if err := ctx.Err(); err != nil {
			return BlockResult{}, err
		}
		i := job.I0 + ii
		start := job.J0
		if job.Diagonal() {
			start = i + 1
		}
		for j := start; j < job.J1; j++ {
			matches, err := sigs[i].Matches(sigs[j])
			if err != nil {
				return BlockResult{}, fmt.Errorf("pair (%d, %d): %w", i, j, err)
			}
			m := int64(matches)
			r.Row[ii] += m
			if job.Diagonal() {
				r.Row[j-job.I0] += m
			} else {
				r.Col[j-job.J0] += m
			}
			r.Processed++
		}
	}
	return r, nil
}

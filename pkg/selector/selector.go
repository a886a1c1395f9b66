// Package selector picks the least redundant items of a scored corpus.
package selector

import (
	"errors"
	"fmt"
	"sort"
)

var ErrLengthMismatch = errors.New("scores and paths differ in length")

type Selected struct {
	Path  string
	Score float64
}

// Rank orders every item by ascending score, breaking ties by path.
func Rank(scores []float64, paths []string) ([]Selected, error) {
	if len(scores) != len(paths) {
		return nil, fmt.Errorf("%w: %d scores, %d paths", ErrLengthMismatch, len(scores), len(paths))
	}
	ranked := make([]Selected, len(scores))
	for i := range scores {
		ranked[i] = Selected{Path: paths[i], Score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Path < ranked[j].Path
	})
	return ranked, nil
}

// Select returns the first min(k, n) items of Rank.
func Select(scores []float64, paths []string, k int) ([]Selected, error) {
	ranked, err := Rank(scores, paths)
	if err != nil {
		return nil, err
	}
	return Top(ranked, k), nil
}

// Top returns the first min(k, n) entries of an already ranked list.
func Top(ranked []Selected, k int) []Selected {
	return ranked[:max(0, min(k, len(ranked)))]
}

func Paths(items []Selected) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Path
	}
	return out
}

// Package louvain implements seeded, weight-aware Louvain community detection.
//
// The algorithm alternates two phases until modularity stops improving:
// local moving, where nodes are visited in a seeded random order and moved to
// the neighboring community with the largest modularity gain, and
// aggregation, where every community collapses into a single node. The
// returned partition is the one reached at the last improving level.
package louvain

import (
	"math/rand/v2"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/pdg-curator/pkg/graph"
)

// minModularityGain stops both phases once an iteration improves modularity
// by less than this amount.
const minModularityGain = 1e-7

type Options struct {
	Resolution float64
	Seed       uint64
}

func DefaultOptions() Options {
	return Options{Resolution: 1.0, Seed: 0}
}

// Detector splits a graph into communities. A fresh random source is derived
// from the seed on every call, so equal inputs give equal outputs.
type Detector struct {
	opts Options
}

func NewDetector(opts Options) *Detector {
	if opts.Resolution <= 0 {
		opts.Resolution = 1.0
	}
	return &Detector{opts: opts}
}

// Communities returns the node sets of the detected communities, ordered by
// their smallest node id.
func (d *Detector) Communities(g *graph.Graph) []*roaring.Bitmap {
	ids := g.NodeIDs()
	if len(ids) == 0 {
		return nil
	}

	membership := d.BestPartition(g)

	byCommunity := make(map[int]*roaring.Bitmap)
	var order []int
	for _, id := range ids {
		c := membership[id]
		set, ok := byCommunity[c]
		if !ok {
			set = roaring.New()
			byCommunity[c] = set
			order = append(order, c)
		}
		set.Add(uint32(id))
	}

	out := make([]*roaring.Bitmap, len(order))
	for i, c := range order {
		out[i] = byCommunity[c]
	}
	return out
}

// BestPartition maps every node id to a community number.
func (d *Detector) BestPartition(g *graph.Graph) map[int]int {
	ids := g.NodeIDs()
	result := make(map[int]int, len(ids))

	current := newDenseGraph(g, ids)
	if current.total == 0 {
		for i, id := range ids {
			result[id] = i
		}
		return result
	}

	rng := rand.New(rand.NewPCG(d.opts.Seed, d.opts.Seed^0x9e3779b97f4a7c15))
	res := d.opts.Resolution

	// membership[i] is the current-level node that input node i belongs to.
	membership := make([]int, len(ids))
	for i := range membership {
		membership[i] = i
	}

	st := newStatus(current)
	st.oneLevel(current, res, rng)
	partition, k := st.renumber()
	mod := st.modularity(current, res)
	apply(membership, partition)
	current = current.induce(partition, k)

	for {
		st = newStatus(current)
		st.oneLevel(current, res, rng)
		newMod := st.modularity(current, res)
		if newMod-mod < minModularityGain {
			break
		}
		partition, k = st.renumber()
		apply(membership, partition)
		mod = newMod
		current = current.induce(partition, k)
	}

	for i, id := range ids {
		result[id] = membership[i]
	}
	return result
}

func apply(membership, partition []int) {
	for i, m := range membership {
		membership[i] = partition[m]
	}
}

type arc struct {
	to int
	w  float64
}

// denseGraph is one level of the aggregation hierarchy, indexed 0..n-1.
type denseGraph struct {
	adj    [][]arc
	loops  []float64
	degree []float64
	total  float64
}

func newDenseGraph(g *graph.Graph, ids []int) *denseGraph {
	index := make(map[int]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	dg := &denseGraph{
		adj:    make([][]arc, len(ids)),
		loops:  make([]float64, len(ids)),
		degree: make([]float64, len(ids)),
	}
	for i, id := range ids {
		for _, nb := range g.Neighbors(id) {
			dg.adj[i] = append(dg.adj[i], arc{to: index[nb.NodeID], w: nb.Weight})
			dg.degree[i] += nb.Weight
		}
	}
	dg.total = g.TotalWeight()
	return dg
}

func (dg *denseGraph) size() int {
	return len(dg.adj)
}

// induce collapses every community of partition into a single node. Edges
// inside a community become a self-loop on that node.
func (dg *denseGraph) induce(partition []int, k int) *denseGraph {
	next := &denseGraph{
		adj:    make([][]arc, k),
		loops:  make([]float64, k),
		degree: make([]float64, k),
		total:  dg.total,
	}

	weights := make(map[[2]int]float64)
	for u := range dg.adj {
		cu := partition[u]
		next.loops[cu] += dg.loops[u]
		for _, a := range dg.adj[u] {
			if u >= a.to {
				continue
			}
			cv := partition[a.to]
			switch {
			case cu == cv:
				next.loops[cu] += a.w
			case cu < cv:
				weights[[2]int{cu, cv}] += a.w
			default:
				weights[[2]int{cv, cu}] += a.w
			}
		}
	}

	keys := make([][2]int, 0, len(weights))
	for key := range weights {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, key := range keys {
		w := weights[key]
		next.adj[key[0]] = append(next.adj[key[0]], arc{to: key[1], w: w})
		next.adj[key[1]] = append(next.adj[key[1]], arc{to: key[0], w: w})
		next.degree[key[0]] += w
		next.degree[key[1]] += w
	}
	for c := range next.adj {
		sort.Slice(next.adj[c], func(i, j int) bool { return next.adj[c][i].to < next.adj[c][j].to })
		next.degree[c] += 2 * next.loops[c]
	}
	return next
}

// status tracks community membership and the per-community degree totals
// (tot) and internal weights (in) needed to evaluate modularity gains.
type status struct {
	node2com []int
	tot      []float64
	in       []float64
}

func newStatus(dg *denseGraph) *status {
	n := dg.size()
	st := &status{
		node2com: make([]int, n),
		tot:      make([]float64, n),
		in:       make([]float64, n),
	}
	for i := 0; i < n; i++ {
		st.node2com[i] = i
		st.tot[i] = dg.degree[i]
		st.in[i] = dg.loops[i]
	}
	return st
}

func (st *status) modularity(dg *denseGraph, res float64) float64 {
	m := dg.total
	if m == 0 {
		return 0
	}
	q := 0.0
	for c := range st.tot {
		if st.tot[c] == 0 && st.in[c] == 0 {
			continue
		}
		share := st.tot[c] / (2 * m)
		q += st.in[c]/m - res*share*share
	}
	return q
}

// neighborCommunities returns the communities adjacent to node, in order of
// first appearance, and the total edge weight from node into each of them.
func (st *status) neighborCommunities(dg *denseGraph, node int) ([]int, map[int]float64) {
	weights := make(map[int]float64)
	var order []int
	for _, a := range dg.adj[node] {
		c := st.node2com[a.to]
		if _, ok := weights[c]; !ok {
			order = append(order, c)
		}
		weights[c] += a.w
	}
	return order, weights
}

func (st *status) remove(dg *denseGraph, node, com int, weight float64) {
	st.tot[com] -= dg.degree[node]
	st.in[com] -= weight + dg.loops[node]
	st.node2com[node] = -1
}

func (st *status) insert(dg *denseGraph, node, com int, weight float64) {
	st.node2com[node] = com
	st.tot[com] += dg.degree[node]
	st.in[com] += weight + dg.loops[node]
}

// oneLevel runs local moving passes until no node changes community or the
// modularity gain of a pass drops below minModularityGain.
func (st *status) oneLevel(dg *denseGraph, res float64, rng *rand.Rand) {
	m2 := 2 * dg.total
	curMod := st.modularity(dg, res)

	for {
		modified := false
		for _, node := range rng.Perm(dg.size()) {
			com := st.node2com[node]
			degcTotw := dg.degree[node] / m2
			order, weights := st.neighborCommunities(dg, node)
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

			removeCost := -weights[com] + res*(st.tot[com]-dg.degree[node])*degcTotw
			st.remove(dg, node, com, weights[com])

			best, bestGain := com, 0.0
			for _, c := range order {
				gain := removeCost + weights[c] - res*st.tot[c]*degcTotw
				if gain > bestGain {
					best, bestGain = c, gain
				}
			}
			st.insert(dg, node, best, weights[best])
			if best != com {
				modified = true
			}
		}

		newMod := st.modularity(dg, res)
		if !modified || newMod-curMod < minModularityGain {
			return
		}
		curMod = newMod
	}
}

// renumber compacts community ids to 0..k-1 in order of first appearance.
func (st *status) renumber() ([]int, int) {
	mapping := make(map[int]int)
	out := make([]int, len(st.node2com))
	for i, c := range st.node2com {
		id, ok := mapping[c]
		if !ok {
			id = len(mapping)
			mapping[c] = id
		}
		out[i] = id
	}
	return out, len(mapping)
}

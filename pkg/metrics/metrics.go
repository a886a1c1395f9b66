// Package metrics collects per-run counters and exports them in the
// Prometheus text format. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "curator"

type Metrics struct {
	registry *prometheus.Registry

	pdgNodes      prometheus.Counter
	droppedEdges  prometheus.Counter
	parts         *prometheus.CounterVec
	partDepth     prometheus.Histogram
	signatures    prometheus.Counter
	unreadable    prometheus.Counter
	blocksScored  prometheus.Counter
	pairsScored   prometheus.Counter
	selectedFiles prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pdgNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "partition", Name: "nodes_total",
			Help: "PDG nodes loaded for partitioning.",
		}),
		droppedEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "partition", Name: "dropped_edges_total",
			Help: "PDG edges dropped by the graph builder.",
		}),
		parts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "partition", Name: "parts_total",
			Help: "Parts produced, by the reason recursion stopped.",
		}, []string{"reason"}),
		partDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "partition", Name: "part_depth",
			Help:    "Recursion depth at which parts were emitted.",
			Buckets: prometheus.LinearBuckets(0, 1, 21),
		}),
		signatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "select", Name: "signatures_total",
			Help: "MinHash signatures built.",
		}),
		unreadable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "select", Name: "unreadable_files_total",
			Help: "Corpus files that could not be read and were scored as empty.",
		}),
		blocksScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "select", Name: "blocks_scored_total",
			Help: "Block-pair jobs merged by the aggregator.",
		}),
		pairsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "select", Name: "pairs_scored_total",
			Help: "Unordered signature pairs compared.",
		}),
		selectedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "select", Name: "selected_files",
			Help: "Files in the selected subset.",
		}),
	}
	m.registry.MustRegister(
		m.pdgNodes, m.droppedEdges, m.parts, m.partDepth,
		m.signatures, m.unreadable, m.blocksScored, m.pairsScored, m.selectedFiles,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) GraphLoaded(nodes, droppedEdges int) {
	if m == nil {
		return
	}
	m.pdgNodes.Add(float64(nodes))
	m.droppedEdges.Add(float64(droppedEdges))
}

func (m *Metrics) PartEmitted(reason string, depth int) {
	if m == nil {
		return
	}
	m.parts.WithLabelValues(reason).Inc()
	m.partDepth.Observe(float64(depth))
}

func (m *Metrics) SignatureBuilt(unreadable bool) {
	if m == nil {
		return
	}
	m.signatures.Inc()
	if unreadable {
		m.unreadable.Inc()
	}
}

func (m *Metrics) BlockScored(pairs int64) {
	if m == nil {
		return
	}
	m.blocksScored.Inc()
	m.pairsScored.Add(float64(pairs))
}

func (m *Metrics) Selected(n int) {
	if m == nil {
		return
	}
	m.selectedFiles.Set(float64(n))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

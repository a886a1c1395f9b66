package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.GraphLoaded(10, 2)
	m.PartEmitted("within_budget", 1)
	m.PartEmitted("within_budget", 2)
	m.PartEmitted("indivisible", 3)
	m.SignatureBuilt(false)
	m.SignatureBuilt(true)
	m.BlockScored(6)
	m.BlockScored(4)
	m.Selected(3)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.pdgNodes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.droppedEdges))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.parts.WithLabelValues("within_budget")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parts.WithLabelValues("indivisible")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.signatures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unreadable))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.blocksScored))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.pairsScored))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.selectedFiles))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.GraphLoaded(1, 1)
	m.PartEmitted("singleton", 0)
	m.SignatureBuilt(true)
	m.BlockScored(1)
	m.Selected(1)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "never.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.BlockScored(3)

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "curator_select_pairs_scored_total 3")
}

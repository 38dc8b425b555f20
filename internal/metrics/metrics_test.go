package metrics

import (
	"testing"
	"time"

	"github.com/born-ml/hetero/internal/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.EdgeResolved(graph.DirectCompatibility)
	p.EdgeResolved(graph.DirectCompatibility)
	p.EdgeResolved(graph.CopyToTarget)
	p.ResolutionWarning()
	p.ResolutionError()
	p.BridgeInserted(graph.MemCopy)
	p.PassCompleted("select", 2*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.edges.WithLabelValues("DirectCompatibility")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.edges.WithLabelValues("CopyToTarget")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.errors))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.warnings))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.bridges.WithLabelValues("MemCopy")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.duration))
}

func TestNewPrometheus_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheus(reg)
	require.NoError(t, err)
	second, err := NewPrometheus(reg)
	require.NoError(t, err)

	first.ResolutionError()
	second.ResolutionError()
	assert.Equal(t, 2.0, testutil.ToFloat64(first.errors))
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NotPanics(t, func() {
		r.EdgeResolved(graph.ExportToTarget)
		r.BridgeInserted(graph.MemImport)
		r.PassCompleted("insert", time.Second)
	})
}

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/vk/watchgraph/internal/graph"
	"github.com/vk/watchgraph/internal/scheduler"
)

type target uint64

func (t target) TargetID() uint64 { return uint64(t) }

func newGraph(t *testing.T) (*graph.Graph, *scheduler.Manual, *Collector) {
	t.Helper()
	c := New()
	require.NoError(t, c.Register(prometheus.NewRegistry()))
	m := scheduler.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	g := graph.New(ctxlog.Discard(context.Background()), graph.WithScheduler(m), graph.WithObserver(c))
	return g, m, c
}

func TestCollectorRecordsFlushes(t *testing.T) {
	g, m, c := newGraph(t)
	a := g.NewVertex("a")
	b := g.NewVertex("b")
	_, err := g.AddEdge(a, b, graph.NewEdge())
	require.NoError(t, err)
	_, err = g.AddEdge(b, g.Vortex(), graph.NewEdge())
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, g.Push(a, graph.Value{Target: target(1), Data: i}, true))
		m.RunPending()
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(c.flushesTotal))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.edgesTraversedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sortsTotal.WithLabelValues("ok")), "the order is memoized between flushes")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sortedEdges))
	assert.Zero(t, testutil.ToFloat64(c.edgeFailuresTotal))
	assert.Zero(t, testutil.ToFloat64(c.deferredPushesTotal))
	assert.Zero(t, testutil.ToFloat64(c.cyclicFlushesTotal))
}

func TestCollectorRecordsCycles(t *testing.T) {
	g, m, c := newGraph(t)
	a := g.NewVertex("a")
	b := g.NewVertex("b")
	_, err := g.AddEdge(a, b, graph.NewEdge())
	require.NoError(t, err)
	_, err = g.AddEdge(b, a, graph.NewEdge())
	require.NoError(t, err)

	assert.ErrorIs(t, g.Sort(), graph.ErrCycle)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sortsTotal.WithLabelValues("cycle")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cycleVertices))

	require.NoError(t, g.Push(a, graph.Value{Target: target(1), Data: 1}, true))
	m.RunPending()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.flushesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cyclicFlushesTotal), "a flush over a cycle is counted")
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, New().Register(reg))
	assert.Error(t, New().Register(reg))
}

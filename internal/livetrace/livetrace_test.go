package livetrace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/vk/watchgraph/internal/graph"
	"github.com/vk/watchgraph/internal/scheduler"
)

type emitted struct {
	event   string
	payload map[string]any
}

type recorder struct {
	events []emitted
	err    error
}

func (r *recorder) Emit(ev string, args ...any) error {
	r.events = append(r.events, emitted{event: ev, payload: args[0].(map[string]any)})
	return r.err
}

type target uint64

func (t target) TargetID() uint64 { return uint64(t) }

func TestTracerPublishesSortsAndFlushes(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	rec := &recorder{}
	tr := New(ctx, rec)
	m := scheduler.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	g := graph.New(ctx, graph.WithScheduler(m), graph.WithObserver(tr))
	tr.Attach(g)

	a := g.NewVertex("a")
	_, err := g.AddEdge(a, g.Vortex(), graph.NewEdge())
	require.NoError(t, err)
	require.NoError(t, g.Push(a, graph.Value{Target: target(1), Data: "x"}, true))
	m.RunPending()

	require.Len(t, rec.events, 2)
	assert.Equal(t, EventGraph, rec.events[0].event)
	assert.Equal(t, 1, rec.events[0].payload["edges"])
	dump, ok := rec.events[0].payload["dump"].(graph.Dump)
	require.True(t, ok)
	assert.True(t, dump.Sorted)
	assert.Len(t, dump.Edges, 1)

	assert.Equal(t, EventFlush, rec.events[1].event)
	assert.Equal(t, uint64(1), rec.events[1].payload["seq"])
	assert.Equal(t, 1, rec.events[1].payload["traversed"])
	assert.Equal(t, false, rec.events[1].payload["cyclic"])
}

func TestTracerWithoutGraph(t *testing.T) {
	rec := &recorder{err: errors.New("offline")}
	tr := New(ctxlog.Discard(context.Background()), rec)
	tr.Sorted(graph.SortStats{Edges: 3, Duration: 1500 * time.Microsecond})

	require.Len(t, rec.events, 1)
	assert.NotContains(t, rec.events[0].payload, "dump")
	assert.InDelta(t, 1.5, rec.events[0].payload["duration_ms"], 1e-9)

	tr.Flushed(graph.FlushStats{Seq: 4, Cyclic: true})
	require.Len(t, rec.events, 2)
	assert.Equal(t, EventFlush, rec.events[1].event)
	assert.Equal(t, true, rec.events[1].payload["cyclic"])
}

func TestDialRejectsRelativeURL(t *testing.T) {
	_, err := Dial(ctxlog.Discard(context.Background()), "/trace", DialOptions{})
	assert.ErrorContains(t, err, "must be absolute")

	_, err = Dial(ctxlog.Discard(context.Background()), "http://[::1", DialOptions{})
	assert.ErrorContains(t, err, "failed to parse URL")
}

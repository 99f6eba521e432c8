package component

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/vk/watchgraph/internal/graph"
	"github.com/vk/watchgraph/internal/scheduler"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	env  *Environment
	g    *graph.Graph
	m    *scheduler.Manual
	logs *bytes.Buffer
	obs  *observer
}

// observer records the stats of every flush pass.
type observer struct {
	flushes []graph.FlushStats
}

func (o *observer) Sorted(graph.SortStats)     {}
func (o *observer) Flushed(s graph.FlushStats) { o.flushes = append(o.flushes, s) }

func (o *observer) failures() int {
	n := 0
	for _, s := range o.flushes {
		n += s.Failures
	}
	return n
}

func newFixture(t *testing.T, opts ...EnvOption) *fixture {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	m := scheduler.NewManual(epoch)
	obs := &observer{}
	g := graph.New(ctx, graph.WithScheduler(m), graph.WithObserver(obs))
	return &fixture{env: NewEnvironment(ctx, g, opts...), g: g, m: m, logs: logs, obs: obs}
}

func (f *fixture) component(t *testing.T, name string) *Component {
	t.Helper()
	c, err := f.env.NewComponent(name)
	require.NoError(t, err)
	return c
}

func (f *fixture) element(t *testing.T, c *Component, name string) *Element {
	t.Helper()
	el, err := c.Element(name, "div")
	require.NoError(t, err)
	return el
}

// watch builds a watch from gets and sets and adds it to c.
func (f *fixture) watch(t *testing.T, c *Component, gets []*Adapter, sets ...*Adapter) *Watch {
	t.Helper()
	w := NewWatch()
	for _, a := range gets {
		require.NoError(t, w.Get(a))
	}
	for _, a := range sets {
		require.NoError(t, w.Set(a))
	}
	require.NoError(t, c.Watch(w))
	return w
}

func (f *fixture) render(t *testing.T, c *Component) *Instance {
	t.Helper()
	inst, err := f.env.Render(c)
	require.NoError(t, err)
	return inst
}

func attr(t *testing.T, inst *Instance, element, name string) (string, bool) {
	t.Helper()
	n, ok := inst.Node(element)
	require.True(t, ok, "node %s", element)
	return n.Attr(name)
}

func gets(a ...*Adapter) []*Adapter { return a }

// mirrored declares a component with property x and a watch copying x into
// the data-x attribute of its root element.
func mirrored(t *testing.T, f *fixture, name string, opts ...AdapterOption) (*Component, *Element) {
	t.Helper()
	c := f.component(t, name)
	root := f.element(t, c, "root")
	require.NoError(t, c.Property("x", opts...))
	f.watch(t, c, gets(GetProperty(c, "x")), SetAttribute(root, "data-x"))
	return c, root
}

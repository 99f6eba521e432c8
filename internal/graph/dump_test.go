package graph

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func dumpFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	owner := &testOwner{id: 1, name: "C"}
	x := f.g.PropertyVertex(NewTable(nil), "x", owner)
	w := f.g.NewWatchVertex(&testOwner{name: "watch#1"})
	f.edge(t, x, w, NewAdapterEdge(newAdapter("get x")))
	slow := newAdapter("set data-x")
	slow.delay = 50 * time.Millisecond
	f.edge(t, w, NoVertex, NewAdapterEdge(slow))
	require.NoError(t, f.g.Sort())
	return f
}

func TestDump(t *testing.T) {
	f := dumpFixture(t)

	want := Dump{
		Sorted: true,
		Vertices: []VertexInfo{
			{ID: 0, Kind: "vortex", Label: "vortex"},
			{ID: 1, Kind: "property", Label: "C`x"},
			{ID: 2, Kind: "watch", Label: "watch#1"},
		},
		Edges: []EdgeInfo{
			{ID: 0, Index: 1, Kind: "adapter", Label: "get x", Source: 1, Dest: 2, Priority: PriorityAdapter},
			{ID: 1, Index: 2, Kind: "adapter", Label: "set data-x", Source: 2, Dest: 0, Priority: PriorityAdapter, Delay: "50ms"},
		},
	}
	if diff := cmp.Diff(want, f.g.Dump()); diff != "" {
		t.Errorf("Dump() mismatch (-want +got):\n%s", diff)
	}

	t.Run("unsorted edges are listed after sorted ones", func(t *testing.T) {
		f := dumpFixture(t)
		id := f.edge(t, 1, NoVertex, NewInertEdge())
		d := f.g.Dump()
		assert.False(t, d.Sorted)
		last := d.Edges[len(d.Edges)-1]
		assert.Equal(t, id, last.ID)
		assert.Zero(t, last.Index)
	})
}

func TestDumpGraphviz(t *testing.T) {
	out := dumpFixture(t).g.Dump().Graphviz()

	assert.Contains(t, out, "digraph watchgraph {")
	assert.Contains(t, out, "  v0 [label=\"\",shape=doublecircle];")
	assert.Contains(t, out, "  v1 [label=\"C`x/1\"];")
	assert.Contains(t, out, "  v2 [label=\"2\",shape=square,fixedsize=true,width=0.3,tooltip=\"watch#1\"];")
	assert.Contains(t, out, "  v1 -> v2 [label=\"1\"];")
	assert.Contains(t, out, "  v2 -> v0 [label=\"2\",style=dashed];")

	t.Run("unused vortex is commented out", func(t *testing.T) {
		f := newFixture(t)
		assert.Contains(t, f.g.Dump().Graphviz(), "// v0 [label=\"\",shape=doublecircle];")
	})
}

func TestDumpEncodings(t *testing.T) {
	d := dumpFixture(t).g.Dump()

	y, err := d.YAML()
	require.NoError(t, err)
	var fromYAML Dump
	require.NoError(t, yaml.Unmarshal(y, &fromYAML))
	assert.Empty(t, cmp.Diff(d, fromYAML))
	assert.Contains(t, string(y), "delay: 50ms")

	j, err := d.JSON()
	require.NoError(t, err)
	var fromJSON Dump
	require.NoError(t, json.Unmarshal(j, &fromJSON))
	assert.Empty(t, cmp.Diff(d, fromJSON))
}

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	f := newFixture(t)

	vs := f.g.Vertices()
	require.Len(t, vs, 1)
	assert.Equal(t, f.g.Vortex(), vs[0].ID())
	assert.Equal(t, "vortex", vs[0].Kind())
	assert.True(t, f.g.Unsorted())
}

func TestAddEdge(t *testing.T) {
	t.Run("missing destination goes to the vortex", func(t *testing.T) {
		f := newFixture(t)
		a := f.g.NewVertex("a")

		id := f.edge(t, a, NoVertex, NewEdge())
		e, ok := f.g.Edge(id)
		require.True(t, ok)
		assert.Equal(t, a, e.Source())
		assert.Equal(t, f.g.Vortex(), e.Dest())

		va, _ := f.g.Vertex(a)
		vortex, _ := f.g.Vertex(f.g.Vortex())
		assert.Equal(t, []EdgeID{id}, va.Outgoing())
		assert.Equal(t, []EdgeID{id}, vortex.Incoming())
	})

	t.Run("error cases", func(t *testing.T) {
		f := newFixture(t)
		a := f.g.NewVertex("a")

		_, err := f.g.AddEdge(f.g.Vortex(), a, NewEdge())
		assert.ErrorIs(t, err, ErrVortexSource)

		_, err = f.g.AddEdge(42, a, NewEdge())
		assert.ErrorIs(t, err, ErrUnknownVertex)

		_, err = f.g.AddEdge(a, 42, NewEdge())
		assert.ErrorIs(t, err, ErrUnknownVertex)

		e := NewEdge()
		f.edge(t, a, NoVertex, e)
		_, err = f.g.AddEdge(a, NoVertex, e)
		assert.ErrorIs(t, err, ErrEdgeInUse)
	})

	t.Run("adding an edge invalidates the sort", func(t *testing.T) {
		f := newFixture(t)
		a := f.g.NewVertex("a")
		b := f.g.NewVertex("b")
		require.NoError(t, f.g.Sort())
		assert.False(t, f.g.Unsorted())

		f.edge(t, a, b, NewEdge())
		assert.True(t, f.g.Unsorted())
	})
}

func TestVortexIsNeverASource(t *testing.T) {
	f := newFixture(t)
	var ids []VertexID
	for range 5 {
		ids = append(ids, f.g.NewVertex(""))
	}
	for i, src := range ids {
		f.edge(t, src, NoVertex, NewEdge())
		for _, dst := range ids[i+1:] {
			f.edge(t, src, dst, NewEdge())
		}
		_, err := f.g.AddEdge(f.g.Vortex(), src, NewEdge())
		assert.ErrorIs(t, err, ErrVortexSource)
	}
	require.NoError(t, f.g.Sort())

	for _, id := range f.g.Edges() {
		e, _ := f.g.Edge(id)
		assert.NotEqual(t, f.g.Vortex(), e.Source())
	}
	vortex, _ := f.g.Vertex(f.g.Vortex())
	assert.Empty(t, vortex.Outgoing())
}

func TestLastWriteWins(t *testing.T) {
	f := newFixture(t)
	src := f.g.NewVertex("src")
	dst := f.g.NewVertex("dst")
	a := newAdapter("a")
	f.edge(t, src, dst, NewAdapterEdge(a))

	require.NoError(t, f.g.Push(src, Value{Target: tgt(1), Data: "first"}, false))
	require.NoError(t, f.g.Push(src, Value{Target: tgt(2), Data: "other"}, false))
	require.NoError(t, f.g.Push(src, Value{Target: tgt(1), Data: "second"}, false))

	v, _ := f.g.Vertex(src)
	require.Len(t, v.Values(), 2)
	assert.Equal(t, Value{Target: tgt(1), Data: "second"}, v.Values()[0])
	assert.True(t, v.HasValue(2))

	f.g.Flush()
	f.m.RunPending()
	assert.Equal(t, []any{"second", "other"}, a.data())
	assert.Empty(t, v.Values())
}

func TestPushToVortexIsDropped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.g.Push(f.g.Vortex(), Value{Target: tgt(1), Data: 1}, false))
	vortex, _ := f.g.Vertex(f.g.Vortex())
	assert.Empty(t, vortex.Values())

	assert.ErrorIs(t, f.g.Push(99, Value{Target: tgt(1)}, false), ErrUnknownVertex)
}

func TestAdapterVertexInheritance(t *testing.T) {
	f := newFixture(t)
	base := &testOwner{id: 100, name: "A"}
	derived := &testOwner{id: 200, name: "B", members: map[uint64]bool{2: true}}
	baseTable := NewTable(nil)
	derivedTable := NewTable(baseTable)

	ax := f.g.PropertyVertex(baseTable, "x", base)
	assert.Equal(t, ax, f.g.PropertyVertex(baseTable, "x", base), "one vertex per (owner, name)")

	watch := f.g.NewVertex("watch")
	get := newAdapter("get x")
	f.edge(t, ax, watch, NewAdapterEdge(get))
	f.edge(t, ax, NoVertex, NewInitEdge(newAdapter("init")))

	looked, ok := derivedTable.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, ax, looked, "derived table falls through to the base vertex")

	bx := f.g.PropertyVertex(derivedTable, "x", derived)
	require.NotEqual(t, ax, bx)
	own, ok := derivedTable.Own("x")
	require.True(t, ok)
	assert.Equal(t, bx, own)

	vb, _ := f.g.Vertex(bx)
	require.Len(t, vb.Incoming(), 1)
	inherit, _ := f.g.Edge(vb.Incoming()[0])
	assert.Equal(t, "inherit", inherit.Kind())
	assert.Equal(t, ax, inherit.Source())
	assert.Equal(t, PriorityInherit, inherit.Priority())

	require.Len(t, vb.Outgoing(), 1, "only zero-priority edges are cloned")
	cloned, _ := f.g.Edge(vb.Outgoing()[0])
	assert.Equal(t, "adapter", cloned.Kind())
	assert.Equal(t, watch, cloned.Dest())
	assert.Equal(t, PriorityCloned, cloned.Priority())
	assert.Equal(t, "get x", cloned.Label())

	t.Run("inherit edge filters by conformance", func(t *testing.T) {
		require.NoError(t, f.g.Push(ax, Value{Target: tgt(1), Data: "unrelated"}, false))
		require.NoError(t, f.g.Push(ax, Value{Target: tgt(2), Data: "member"}, false))

		f.edge(t, bx, NoVertex, NewEdge())
		f.g.Flush()
		f.m.RunPending()

		// get x runs on both the base edge and the cloned edge; the cloned
		// edge only sees the conforming value.
		assert.ElementsMatch(t, []any{"unrelated", "member", "member"}, get.data())
	})
}

func TestRemoveVertex(t *testing.T) {
	f := newFixture(t)
	owner := &testOwner{id: 1, name: "C"}
	table := NewTable(nil)
	x := f.g.PropertyVertex(table, "x", owner)
	y := f.g.PropertyVertex(table, "y", owner)
	w := f.g.NewWatchVertex(&testOwner{name: "watch"})
	e1 := f.edge(t, x, w, NewAdapterEdge(newAdapter("get")))
	e2 := f.edge(t, w, y, NewAdapterEdge(newAdapter("set")))
	f.edge(t, y, NoVertex, NewEdge())
	require.NoError(t, f.g.Sort())

	require.NoError(t, f.g.RemoveVertex(w))

	_, ok := f.g.Edge(e1)
	assert.False(t, ok)
	_, ok = f.g.Edge(e2)
	assert.False(t, ok)
	_, ok = f.g.Vertex(x)
	assert.False(t, ok, "isolated adapter vertex is removed")
	_, ok = table.Own("x")
	assert.False(t, ok, "and forgotten by its table")
	_, ok = f.g.Vertex(y)
	assert.True(t, ok, "y still has an edge to the vortex")
	assert.Len(t, f.g.Edges(), 1)

	assert.ErrorIs(t, f.g.RemoveVertex(f.g.Vortex()), ErrUnknownVertex)
	assert.ErrorIs(t, f.g.RemoveEdge(e1), ErrUnknownEdge)
}

func TestPrune(t *testing.T) {
	f := newFixture(t)
	base := &testOwner{id: 100, name: "A"}
	derived := &testOwner{id: 200, name: "B"}
	baseTable := NewTable(nil)
	derivedTable := NewTable(baseTable)

	ax := f.g.PropertyVertex(baseTable, "x", base)
	watch := f.g.NewWatchVertex(&testOwner{name: "watch"})
	f.edge(t, ax, watch, NewAdapterEdge(newAdapter("get x")))
	f.edge(t, watch, NoVertex, NewEdge())

	bx := f.g.PropertyVertex(derivedTable, "x", derived)
	by := f.g.PropertyVertex(derivedTable, "y", derived)
	f.edge(t, by, NoVertex, NewEdge())

	assert.Equal(t, 0, f.g.Prune(baseTable), "the base vertex has its own edges")
	assert.Equal(t, 1, f.g.Prune(derivedTable))

	_, ok := f.g.Vertex(bx)
	assert.False(t, ok, "inherit and cloned edges alone do not keep a vertex")
	_, ok = derivedTable.Own("x")
	assert.False(t, ok)
	_, ok = f.g.Vertex(by)
	assert.True(t, ok)

	vb := f.g.PropertyVertex(derivedTable, "x", derived)
	v, _ := f.g.Vertex(vb)
	assert.Len(t, v.Incoming(), 1, "a new vertex inherits again")
	assert.Len(t, v.Outgoing(), 1, "and clones the base edges again")
}

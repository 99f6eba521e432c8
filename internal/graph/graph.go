package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/vk/watchgraph/internal/scheduler"
)

// Graph owns the vertices and edges of one watch graph.
type Graph struct {
	logger    *slog.Logger
	sched     scheduler.Scheduler
	observers []Observer

	vertices   map[VertexID]Vertex
	order      []VertexID
	nextVertex VertexID
	vortex     VertexID

	edges    map[EdgeID]Edge
	nextEdge EdgeID

	sorted   []EdgeID
	position map[EdgeID]int
	unsorted bool
	sortErr  error

	scheduled bool
	flushing  bool
	preflush  []func()
	deferred  []deferredPush
	later     *redblacktree.Tree
	flushSeq  uint64
	counters  flushCounters
}

type deferredPush struct {
	vertex VertexID
	value  Value
}

type flushCounters struct {
	traversed int
	values    int
	failures  int
}

// Option configures a Graph.
type Option func(*Graph)

// WithScheduler sets the scheduler that runs flushes and delayed edges.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(g *Graph) { g.sched = s }
}

// WithObserver registers an observer for sort and flush passes.
func WithObserver(o Observer) Option {
	return func(g *Graph) { g.observers = append(g.observers, o) }
}

// New creates an empty graph holding only its vortex. The logger is taken
// from ctx. Without WithScheduler the graph uses a scheduler.Loop that the
// caller must run; see Scheduler.
func New(ctx context.Context, opts ...Option) *Graph {
	g := &Graph{
		logger:   ctxlog.FromContext(ctx).With("component", "watchgraph"),
		vertices: make(map[VertexID]Vertex),
		edges:    make(map[EdgeID]Edge),
		position: make(map[EdgeID]int),
		later:    redblacktree.NewWith(utils.Int64Comparator),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.sched == nil {
		g.sched = scheduler.NewLoop()
	}
	g.vortex = g.add(&Vortex{})
	g.logger.Debug("Watch graph created.")
	return g
}

// Scheduler returns the scheduler the graph runs on.
func (g *Graph) Scheduler() scheduler.Scheduler {
	return g.sched
}

// Vortex returns the id of the graph's sink.
func (g *Graph) Vortex() VertexID {
	return g.vortex
}

// Vertex returns the vertex with the given id.
func (g *Graph) Vertex(id VertexID) (Vertex, bool) {
	v, ok := g.vertices[id]
	return v, ok
}

// Vertices returns all live vertices in creation order.
func (g *Graph) Vertices() []Vertex {
	out := make([]Vertex, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.vertices[id])
	}
	return out
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id EdgeID) (Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Edges returns the edge order computed by the last Sort.
func (g *Graph) Edges() []EdgeID {
	return slices.Clone(g.sorted)
}

// Unsorted reports whether vertices or edges were added since the last Sort.
func (g *Graph) Unsorted() bool {
	return g.unsorted
}

func (g *Graph) add(v Vertex) VertexID {
	b := v.base()
	b.id = g.nextVertex
	g.nextVertex++
	g.vertices[b.id] = v
	g.order = append(g.order, b.id)
	g.unsorted = true
	return b.id
}

// NewVertex adds a plain vertex. The name is only used in dumps.
func (g *Graph) NewVertex(name string) VertexID {
	return g.add(&PlainVertex{name: name})
}

// NewWatchVertex adds the vertex of one watch.
func (g *Graph) NewWatchVertex(w Labeler) VertexID {
	return g.add(&WatchVertex{watch: w})
}

// PropertyVertex returns the property vertex registered for name in t,
// creating it if t has none of its own. See adapterVertex.
func (g *Graph) PropertyVertex(t *Table, name string, owner Owner) VertexID {
	return g.adapterVertex(t, name, func() Vertex {
		return &PropertyVertex{adapterVertex{owner: owner, name: name, table: t}}
	})
}

// EventVertex is PropertyVertex for events.
func (g *Graph) EventVertex(t *Table, name string, owner Owner) VertexID {
	return g.adapterVertex(t, name, func() Vertex {
		return &EventVertex{adapterVertex{owner: owner, name: name, table: t}}
	})
}

// adapterVertex looks up or creates the vertex for name in t. A new vertex is
// linked to the nearest vertex of the same name in the parent tables: an
// InheritEdge runs from the inherited vertex to the new one, and every
// zero-priority outgoing edge of the inherited vertex is cloned onto the new
// vertex with PriorityCloned.
func (g *Graph) adapterVertex(t *Table, name string, create func() Vertex) VertexID {
	if id, ok := t.Own(name); ok {
		return id
	}
	id := g.add(create())
	t.own[name] = id

	if t.parent == nil {
		return id
	}
	protoID, ok := t.parent.Lookup(name)
	if !ok {
		return id
	}
	proto := g.vertices[protoID]
	if _, err := g.AddEdge(protoID, id, NewInheritEdge()); err != nil {
		g.logger.Error("Could not inherit vertex.", "vertex", name, "error", err)
		return id
	}
	for _, eid := range proto.Outgoing() {
		e := g.edges[eid]
		if e.Priority() != PriorityAdapter {
			continue
		}
		c := e.clone()
		if c == nil {
			continue
		}
		c.base().priority = PriorityCloned
		if _, err := g.AddEdge(id, e.Dest(), c); err != nil {
			g.logger.Error("Could not clone inherited edge.", "vertex", name, "edge", eid, "error", err)
		}
	}
	g.logger.Debug("Vertex inherited.", "vertex", g.vertices[id].Label(), "from", proto.Label())
	return id
}

// AddEdge attaches e from src to dst and returns its id. A dst of NoVertex
// attaches the edge to the vortex. Adding an edge invalidates the sort.
func (g *Graph) AddEdge(src, dst VertexID, e Edge) (EdgeID, error) {
	if e.base().attached {
		return 0, ErrEdgeInUse
	}
	source, ok := g.vertices[src]
	if !ok {
		return 0, fmt.Errorf("source %d: %w", src, ErrUnknownVertex)
	}
	if dst == NoVertex {
		dst = g.vortex
	}
	dest, ok := g.vertices[dst]
	if !ok {
		return 0, fmt.Errorf("destination %d: %w", dst, ErrUnknownVertex)
	}
	if !source.acceptsOutgoing() {
		return 0, ErrVortexSource
	}

	b := e.base()
	b.id = g.nextEdge
	g.nextEdge++
	b.source = src
	b.dest = dst
	b.attached = true
	g.edges[b.id] = e
	source.base().outgoing = append(source.base().outgoing, b.id)
	dest.base().incoming = append(dest.base().incoming, b.id)
	g.unsorted = true
	return b.id, nil
}

// RemoveEdge detaches an edge. A vertex other than the vortex that is left
// without any edge is removed as well.
func (g *Graph) RemoveEdge(id EdgeID) error {
	e, ok := g.edges[id]
	if !ok {
		return fmt.Errorf("edge %d: %w", id, ErrUnknownEdge)
	}
	delete(g.edges, id)
	e.base().attached = false
	if i, ok := g.position[id]; ok {
		g.sorted = slices.Delete(g.sorted, i, i+1)
		g.reindex()
	}
	for _, vid := range []VertexID{e.Source(), e.Dest()} {
		v, ok := g.vertices[vid]
		if !ok {
			continue
		}
		b := v.base()
		b.removeEdge(id)
		if vid != g.vortex && len(b.incoming) == 0 && len(b.outgoing) == 0 {
			g.dropVertex(v)
		}
	}
	return nil
}

// RemoveVertex removes a vertex together with all of its edges. The vortex
// cannot be removed.
func (g *Graph) RemoveVertex(id VertexID) error {
	v, ok := g.vertices[id]
	if !ok || id == g.vortex {
		return fmt.Errorf("vertex %d: %w", id, ErrUnknownVertex)
	}
	b := v.base()
	for _, eid := range append(slices.Clone(b.incoming), b.outgoing...) {
		if _, ok := g.edges[eid]; ok {
			if err := g.RemoveEdge(eid); err != nil {
				return err
			}
		}
	}
	if _, ok := g.vertices[id]; ok {
		g.dropVertex(v)
	}
	return nil
}

// Prune removes the vertices registered in t whose remaining edges only tie
// them to their base vertices: InheritEdges and cloned edges. It returns the
// number of vertices removed. Owners call it once nothing of theirs is
// rendered, so a later rendering inherits afresh.
func (g *Graph) Prune(t *Table) int {
	n := 0
	for _, name := range t.Names() {
		id, _ := t.Own(name)
		v, ok := g.vertices[id]
		if !ok || !g.inheritedOnly(v) {
			continue
		}
		if err := g.RemoveVertex(id); err != nil {
			g.logger.Error("Could not prune vertex.", "vertex", v.Label(), "error", err)
			continue
		}
		n++
	}
	return n
}

func (g *Graph) inheritedOnly(v Vertex) bool {
	b := v.base()
	for _, eid := range append(slices.Clone(b.incoming), b.outgoing...) {
		e, ok := g.edges[eid]
		if !ok {
			continue
		}
		if _, inherit := e.(*InheritEdge); !inherit && e.Priority() != PriorityCloned {
			return false
		}
	}
	return true
}

func (g *Graph) dropVertex(v Vertex) {
	id := v.ID()
	delete(g.vertices, id)
	g.order = slices.DeleteFunc(g.order, func(o VertexID) bool { return o == id })
	switch av := v.(type) {
	case *PropertyVertex:
		av.table.forget(av.name, id)
	case *EventVertex:
		av.table.forget(av.name, id)
	}
	g.logger.Debug("Vertex removed.", "vertex", v.Label())
}

func (g *Graph) reindex() {
	clear(g.position)
	for i, id := range g.sorted {
		g.position[id] = i
	}
}

// edgeIndex returns the 1-based position of an edge in the sorted order, or
// 0 if the edge has not been sorted yet.
func (g *Graph) edgeIndex(id EdgeID) int {
	if i, ok := g.position[id]; ok {
		return i + 1
	}
	return 0
}

// Push sets a pending value on a vertex, replacing any pending value for the
// same target. With flush set the write is user-driven and a flush is
// requested; a user-driven write that arrives while a flush pass is running
// is held back until the pass has cleared its values.
func (g *Graph) Push(id VertexID, v Value, flush bool) error {
	vertex, ok := g.vertices[id]
	if !ok {
		return fmt.Errorf("vertex %d: %w", id, ErrUnknownVertex)
	}
	if flush && g.flushing {
		g.deferred = append(g.deferred, deferredPush{vertex: id, value: v})
		return nil
	}
	vertex.push(v)
	if flush {
		g.Flush()
	}
	return nil
}

// guard runs f and turns a panic into an error.
func (g *Graph) guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}

func (g *Graph) failed(e Edge, w Value, err error) {
	if errors.Is(err, ErrCancel) {
		return
	}
	g.counters.failures++
	g.logger.Warn("Edge traversal failed.", "edge", g.edgeIndex(e.ID()), "kind", e.Kind(), "label", e.Label(), "target", w.Target.TargetID(), "error", err)
}

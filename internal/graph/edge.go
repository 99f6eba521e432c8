package graph

import (
	"fmt"
	"time"
)

// EdgeID addresses an edge in its graph. IDs follow creation order and are
// never reused.
type EdgeID int

// Edge is a directed connection between two vertices. The set of
// implementations is closed; create edges with the New*Edge constructors and
// attach them with Graph.AddEdge.
type Edge interface {
	ID() EdgeID
	Kind() string
	Label() string
	Source() VertexID
	Dest() VertexID
	Priority() Priority

	// Delay returns the adapter delay of a delayed edge, or NoDelay.
	Delay() time.Duration

	base() *edgeBase
	traverse(g *Graph, src, dst Vertex)
	clone() Edge
}

type edgeBase struct {
	id       EdgeID
	source   VertexID
	dest     VertexID
	priority Priority
	attached bool
}

func (e *edgeBase) ID() EdgeID           { return e.id }
func (e *edgeBase) Source() VertexID     { return e.source }
func (e *edgeBase) Dest() VertexID       { return e.dest }
func (e *edgeBase) Priority() Priority   { return e.priority }
func (e *edgeBase) Delay() time.Duration { return NoDelay }
func (e *edgeBase) base() *edgeBase      { return e }

func delayed(e Edge) bool {
	return e.Delay() >= 0
}

// PlainEdge forwards every pending value unchanged.
type PlainEdge struct {
	edgeBase
}

// NewEdge returns a plain forwarding edge.
func NewEdge() *PlainEdge {
	return &PlainEdge{edgeBase{priority: PriorityAdapter}}
}

func (e *PlainEdge) Kind() string  { return "edge" }
func (e *PlainEdge) Label() string { return "" }

func (e *PlainEdge) traverse(g *Graph, src, dst Vertex) {
	for _, w := range src.Values() {
		dst.push(w)
	}
}

func (e *PlainEdge) clone() Edge {
	c := *e
	c.edgeBase = edgeBase{priority: e.priority}
	return &c
}

// InertEdge takes part in sorting but carries nothing.
type InertEdge struct {
	edgeBase
}

// NewInertEdge returns an edge that only constrains the sort order.
func NewInertEdge() *InertEdge {
	return &InertEdge{edgeBase{priority: PriorityAdapter}}
}

func (e *InertEdge) Kind() string                  { return "inert" }
func (e *InertEdge) Label() string                 { return "" }
func (e *InertEdge) traverse(*Graph, Vertex, Vertex) {}
func (e *InertEdge) clone() Edge                   { return nil }

// InheritEdge links the vertex of a base owner to the vertex of the same name
// on a derived owner. It forwards only the values whose target conforms to
// the owner of its destination.
type InheritEdge struct {
	edgeBase
}

// NewInheritEdge returns an edge for Graph.AddEdge between a base vertex and
// a derived owned vertex.
func NewInheritEdge() *InheritEdge {
	return &InheritEdge{edgeBase{priority: PriorityInherit}}
}

func (e *InheritEdge) Kind() string  { return "inherit" }
func (e *InheritEdge) Label() string { return "" }
func (e *InheritEdge) clone() Edge   { return nil }

func (e *InheritEdge) traverse(g *Graph, src, dst Vertex) {
	owned, ok := dst.(OwnedVertex)
	if !ok {
		return
	}
	owner := owned.Owner()
	for _, w := range src.Values() {
		if owner.Conforms(w.Target) {
			dst.push(w)
		} else {
			g.logger.Debug("Inherited value filtered out.", "edge", g.edgeIndex(e.id), "target", w.Target.TargetID(), "owner", owner.Label())
		}
	}
}

// AdapterEdge runs the scope, match, value, delay and apply steps of its
// adapter for every value pending on its source.
type AdapterEdge struct {
	edgeBase
	adapter Adapter

	// staged holds the generation of the latest delayed application per
	// input target; older generations are skipped when their timer fires.
	staged map[uint64]uint64
	gen    uint64
}

// NewAdapterEdge returns an edge driven by a.
func NewAdapterEdge(a Adapter) *AdapterEdge {
	return &AdapterEdge{edgeBase: edgeBase{priority: PriorityAdapter}, adapter: a}
}

func (e *AdapterEdge) Kind() string         { return "adapter" }
func (e *AdapterEdge) Label() string        { return e.adapter.Label() }
func (e *AdapterEdge) Adapter() Adapter     { return e.adapter }
func (e *AdapterEdge) Delay() time.Duration { return e.adapter.Delay() }

func (e *AdapterEdge) clone() Edge {
	return &AdapterEdge{edgeBase: edgeBase{priority: e.priority}, adapter: e.adapter}
}

func (e *AdapterEdge) traverse(g *Graph, src, dst Vertex) {
	for _, w := range src.Values() {
		e.follow(g, src, dst, w)
	}
}

func (e *AdapterEdge) follow(g *Graph, src, dst Vertex, w Value) {
	var apply func()
	err := g.guard(func() error {
		scope, err := e.adapter.EnterScope(w.Target)
		if err != nil {
			return fmt.Errorf("enter scope: %w", err)
		}
		ok, err := e.adapter.Match(scope, w.Data)
		if err != nil {
			return fmt.Errorf("match: %w", err)
		}
		if !ok {
			g.logger.Debug("Value did not match.", "edge", g.edgeIndex(e.id), "adapter", e.adapter.Label(), "target", w.Target.TargetID())
			return nil
		}
		apply = e.applier(g, src, dst, scope, w)
		return nil
	})
	if err != nil {
		g.failed(e, w, err)
		return
	}
	if apply == nil {
		return
	}

	d := e.adapter.Delay()
	if d < 0 {
		apply()
		return
	}
	key := w.Target.TargetID()
	gen := e.stage(key)
	g.FlushLater(func() {
		if e.staged[key] != gen {
			g.logger.Debug("Delayed value superseded.", "edge", e.id, "target", key)
			return
		}
		delete(e.staged, key)
		apply()
	}, d)
}

func (e *AdapterEdge) stage(key uint64) uint64 {
	if e.staged == nil {
		e.staged = make(map[uint64]uint64)
	}
	e.gen++
	e.staged[key] = e.gen
	return e.gen
}

// applier returns the value and apply steps for one matched input. Concretes
// that already have their own pending value on the source are skipped when
// fanning out; the set is captured now so a delayed application sees the
// values of the cycle that triggered it.
func (e *AdapterEdge) applier(g *Graph, src, dst Vertex, scope Scope, w Value) func() {
	if scope.Concrete() {
		return func() {
			e.deliver(g, dst, scope, w, func(s Scope) (any, error) { return e.adapter.Value(s, w.Data) })
		}
	}
	own := src.base().ownIDs()
	concretes := scope.Concretes()
	return func() {
		var shared any
		var sharedErr error
		if e.adapter.Static() {
			sharedErr = g.guard(func() error {
				v, err := e.adapter.Value(scope, w.Data)
				shared = v
				return err
			})
			if sharedErr != nil {
				g.failed(e, w, fmt.Errorf("value: %w", sharedErr))
				return
			}
		}
		for _, c := range concretes {
			if _, has := own[c.TargetID()]; has {
				continue
			}
			var cs Scope
			err := g.guard(func() error {
				var err error
				cs, err = e.adapter.EnterScope(c)
				return err
			})
			if err != nil {
				g.failed(e, Value{Target: c, Data: w.Data}, fmt.Errorf("enter scope: %w", err))
				continue
			}
			if e.adapter.Static() {
				e.deliver(g, dst, cs, w, func(Scope) (any, error) { return shared, nil })
			} else {
				e.deliver(g, dst, cs, w, func(s Scope) (any, error) { return e.adapter.Value(s, w.Data) })
			}
		}
	}
}

func (e *AdapterEdge) deliver(g *Graph, dst Vertex, scope Scope, w Value, value func(Scope) (any, error)) {
	err := g.guard(func() error {
		v, err := value(scope)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		g.logger.Debug("Edge delivered value.", "edge", g.edgeIndex(e.id), "adapter", e.adapter.Label(), "input", w.Target.TargetID(), "target", scope.Target().TargetID(), "value", v)
		dst.push(Value{Target: scope.Target(), Data: v})
		g.counters.values++
		if err := e.adapter.Apply(scope, v); err != nil {
			return fmt.Errorf("apply: %w", err)
		}
		return nil
	})
	if err != nil {
		g.failed(e, w, err)
	}
}

// InitEdge is an AdapterEdge leaving an init watch. Its lower priority lets
// explicit bindings into the same vertex sort ahead of it.
type InitEdge struct {
	AdapterEdge
}

// NewInitEdge returns an init edge driven by a.
func NewInitEdge(a Adapter) *InitEdge {
	return &InitEdge{AdapterEdge{edgeBase: edgeBase{priority: PriorityInit}, adapter: a}}
}

func (e *InitEdge) Kind() string { return "init" }
func (e *InitEdge) clone() Edge  { return nil }

var (
	_ Edge = (*PlainEdge)(nil)
	_ Edge = (*InertEdge)(nil)
	_ Edge = (*InheritEdge)(nil)
	_ Edge = (*AdapterEdge)(nil)
	_ Edge = (*InitEdge)(nil)
)

package graph

import (
	"fmt"
	"slices"
)

// VertexID addresses a vertex in its graph. IDs follow creation order and are
// never reused.
type VertexID int

// NoVertex is the zero destination; edges added with it go to the vortex.
const NoVertex VertexID = -1

// Vertex is a node of the watch graph. The set of implementations is closed.
type Vertex interface {
	ID() VertexID
	Kind() string
	Label() string
	Incoming() []EdgeID
	Outgoing() []EdgeID

	// Values returns the pending values in the order their targets were
	// first written during the current cycle.
	Values() []Value

	// HasValue reports whether a value is pending for the target id.
	HasValue(id uint64) bool

	base() *vertexBase
	push(v Value)
	acceptsOutgoing() bool
}

type vertexBase struct {
	id       VertexID
	incoming []EdgeID
	outgoing []EdgeID
	values   []Value
	index    map[uint64]int
}

func (v *vertexBase) ID() VertexID         { return v.id }
func (v *vertexBase) Incoming() []EdgeID   { return slices.Clone(v.incoming) }
func (v *vertexBase) Outgoing() []EdgeID   { return slices.Clone(v.outgoing) }
func (v *vertexBase) Values() []Value      { return slices.Clone(v.values) }
func (v *vertexBase) base() *vertexBase    { return v }
func (v *vertexBase) acceptsOutgoing() bool { return true }

func (v *vertexBase) HasValue(id uint64) bool {
	_, ok := v.index[id]
	return ok
}

// push stores a value, overwriting any pending value of the same target in
// place.
func (v *vertexBase) push(val Value) {
	id := val.Target.TargetID()
	if i, ok := v.index[id]; ok {
		v.values[i] = val
		return
	}
	if v.index == nil {
		v.index = make(map[uint64]int)
	}
	v.index[id] = len(v.values)
	v.values = append(v.values, val)
}

func (v *vertexBase) clearValues() {
	v.values = nil
	v.index = nil
}

func (v *vertexBase) ownIDs() map[uint64]struct{} {
	ids := make(map[uint64]struct{}, len(v.index))
	for id := range v.index {
		ids[id] = struct{}{}
	}
	return ids
}

func (v *vertexBase) removeEdge(id EdgeID) {
	v.incoming = slices.DeleteFunc(v.incoming, func(e EdgeID) bool { return e == id })
	v.outgoing = slices.DeleteFunc(v.outgoing, func(e EdgeID) bool { return e == id })
}

// PlainVertex is a vertex with no binding of its own.
type PlainVertex struct {
	vertexBase
	name string
}

func (v *PlainVertex) Kind() string { return "vertex" }

func (v *PlainVertex) Label() string {
	if v.name != "" {
		return v.name
	}
	return fmt.Sprintf("v%d", v.id)
}

// Vortex is the sink of the graph. It never has outgoing edges and drops the
// values pushed onto it.
type Vortex struct {
	vertexBase
}

func (v *Vortex) Kind() string          { return "vortex" }
func (v *Vortex) Label() string         { return "vortex" }
func (v *Vortex) push(Value)            {}
func (v *Vortex) acceptsOutgoing() bool { return false }

// WatchVertex gathers the inputs of one watch and fans out to its outputs.
type WatchVertex struct {
	vertexBase
	watch Labeler
}

func (v *WatchVertex) Kind() string   { return "watch" }
func (v *WatchVertex) Label() string  { return v.watch.Label() }
func (v *WatchVertex) Watch() Labeler { return v.watch }

// adapterVertex is the shared part of property and event vertices: one vertex
// per (owner, name) pair, registered in the owner's table.
type adapterVertex struct {
	vertexBase
	owner Owner
	name  string
	table *Table
}

func (v *adapterVertex) Owner() Owner { return v.owner }
func (v *adapterVertex) Name() string { return v.name }

// PropertyVertex carries the changes of one property of one owner.
type PropertyVertex struct {
	adapterVertex
}

func (v *PropertyVertex) Kind() string  { return "property" }
func (v *PropertyVertex) Label() string { return fmt.Sprintf("%s`%s", v.owner.Label(), v.name) }

// EventVertex carries the notifications of one event type of one owner.
type EventVertex struct {
	adapterVertex
}

func (v *EventVertex) Kind() string  { return "event" }
func (v *EventVertex) Label() string { return fmt.Sprintf("%s!%s", v.owner.Label(), v.name) }

// OwnedVertex is implemented by property and event vertices.
type OwnedVertex interface {
	Vertex
	Owner() Owner
	Name() string
}

var (
	_ OwnedVertex = (*PropertyVertex)(nil)
	_ OwnedVertex = (*EventVertex)(nil)
)

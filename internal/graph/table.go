package graph

import (
	"maps"
	"slices"
)

// Table maps names to the adapter vertices of one owner. A table may be
// linked to the table of the owner's base declaration: lookups fall through
// to the parent, so a derived owner reuses inherited vertices until it
// creates its own.
type Table struct {
	parent *Table
	own    map[string]VertexID
}

// NewTable creates an empty table linked to parent, which may be nil.
func NewTable(parent *Table) *Table {
	return &Table{parent: parent, own: make(map[string]VertexID)}
}

// Parent returns the table this one falls through to.
func (t *Table) Parent() *Table {
	return t.parent
}

// Own returns the vertex registered for name in this table only.
func (t *Table) Own(name string) (VertexID, bool) {
	id, ok := t.own[name]
	return id, ok
}

// Lookup returns the nearest vertex registered for name in this table or
// one of its ancestors.
func (t *Table) Lookup(name string) (VertexID, bool) {
	for p := t; p != nil; p = p.parent {
		if id, ok := p.own[name]; ok {
			return id, true
		}
	}
	return NoVertex, false
}

// Names returns the names registered in this table, sorted.
func (t *Table) Names() []string {
	return slices.Sorted(maps.Keys(t.own))
}

func (t *Table) forget(name string, id VertexID) {
	if cur, ok := t.own[name]; ok && cur == id {
		delete(t.own, name)
	}
}

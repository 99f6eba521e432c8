package component

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vk/watchgraph/internal/graph"
)

// Element is a static view element of a component. Every instance of the
// component renders its own Node for it.
type Element struct {
	id        uint64
	name      string
	tag       string
	component *Component
	attrs     map[string]string
	events    *graph.Table
	concretes []*Node
}

// TargetID implements graph.Target.
func (el *Element) TargetID() uint64 { return el.id }

func (el *Element) Name() string { return el.name }
func (el *Element) Tag() string  { return el.tag }

// Component returns the component whose view declares el.
func (el *Element) Component() *Component { return el.component }

// Label implements graph.Owner.
func (el *Element) Label() string {
	return fmt.Sprintf("%s@%s", el.component.Label(), el.name)
}

// SetAttr sets a static attribute copied onto every node rendered afterwards.
func (el *Element) SetAttr(name, value string) {
	el.attrs[name] = value
}

// Attrs returns a copy of the static attributes.
func (el *Element) Attrs() map[string]string {
	return maps.Clone(el.attrs)
}

// Concretes returns the live nodes rendered for el.
func (el *Element) Concretes() []*Node { return slices.Clone(el.concretes) }

// Conforms implements graph.Owner.
func (el *Element) Conforms(t graph.Target) bool {
	switch x := t.(type) {
	case *Element:
		return x == el
	case *Node:
		return x.element == el
	}
	return false
}

func (el *Element) instantiate(inst *Instance) *Node {
	n := &Node{
		id:       el.component.env.id(),
		element:  el,
		instance: inst,
		attrs:    maps.Clone(el.attrs),
		props:    make(map[string]any),
	}
	el.concretes = append(el.concretes, n)
	return n
}

// Node is the rendering of an element within one instance.
type Node struct {
	id       uint64
	element  *Element
	instance *Instance
	attrs    map[string]string
	props    map[string]any
}

// TargetID implements graph.Target.
func (n *Node) TargetID() uint64 { return n.id }

// Label names the node in logs.
func (n *Node) Label() string {
	return fmt.Sprintf("%s:%d", n.element.Label(), n.id)
}

func (n *Node) Element() *Element   { return n.element }
func (n *Node) Instance() *Instance { return n.instance }

// Attr returns the value of attribute name.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Attrs returns a copy of the node attributes.
func (n *Node) Attrs() map[string]string {
	return maps.Clone(n.attrs)
}

func (n *Node) SetAttr(name, value string) {
	n.attrs[name] = value
}

func (n *Node) RemoveAttr(name string) {
	delete(n.attrs, name)
}

// Property returns a node property written by a SetNodeProperty adapter.
func (n *Node) Property(name string) (any, bool) {
	v, ok := n.props[name]
	return v, ok
}

func (n *Node) SetProperty(name string, v any) {
	n.props[name] = v
}

// Dispatch pushes an event of type typ sourced at n and requests a flush.
// Events nobody watches are dropped.
func (n *Node) Dispatch(typ string, data any) error {
	if !n.instance.rendered {
		return ErrNotRendered
	}
	id, ok := n.element.events.Own(typ)
	if !ok {
		return nil
	}
	ev := Event{Type: typ, Source: n, Data: data}
	return n.element.component.env.graph.Push(id, graph.Value{Target: n, Data: ev}, true)
}

var _ graph.Owner = (*Element)(nil)

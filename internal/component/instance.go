package component

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vk/watchgraph/internal/graph"
)

// runtimeScope maps static declarations to the runtime objects that render
// them in one instance. Lookups fall back to the scope of the parent
// instance.
type runtimeScope struct {
	objects map[uint64]graph.Target
	parent  *runtimeScope
}

func (s *runtimeScope) bind(id uint64, t graph.Target) {
	if _, ok := s.objects[id]; !ok {
		s.objects[id] = t
	}
}

func (s *runtimeScope) lookup(id uint64) (graph.Target, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if t, ok := sc.objects[id]; ok {
			return t, true
		}
	}
	return nil, false
}

// Instance is one concrete rendering of a component.
type Instance struct {
	id        uint64
	component *Component
	parent    *Instance
	scope     *runtimeScope
	values    map[string]any
	nodes     []*Node
	children  []*Instance
	rendered  bool
}

// TargetID implements graph.Target.
func (i *Instance) TargetID() uint64 { return i.id }

// Label names the instance in logs.
func (i *Instance) Label() string {
	return fmt.Sprintf("%s:%d", i.component.Label(), i.id)
}

// Component returns the component i renders.
func (i *Instance) Component() *Component { return i.component }

// Parent returns the instance whose view contains i, if any.
func (i *Instance) Parent() *Instance { return i.parent }

// Children returns the instances of the child components.
func (i *Instance) Children() []*Instance { return slices.Clone(i.children) }

// Nodes returns the nodes of i, base views first.
func (i *Instance) Nodes() []*Node { return slices.Clone(i.nodes) }

// Rendered reports whether i is still live.
func (i *Instance) Rendered() bool { return i.rendered }

// Node returns the node rendered for the element called name. An element of
// a derived component hides a base element of the same name.
func (i *Instance) Node(name string) (*Node, bool) {
	for _, n := range slices.Backward(i.nodes) {
		if n.element.name == name {
			return n, true
		}
	}
	return nil, false
}

// Child returns the instance rendered for child component c.
func (i *Instance) Child(c *Component) (*Instance, bool) {
	for _, ch := range i.children {
		if ch.component == c {
			return ch, true
		}
	}
	return nil, false
}

// Get returns the value of property name, falling back to the static value
// of the component.
func (i *Instance) Get(name string) (any, bool) {
	if v, ok := i.values[name]; ok {
		return v, true
	}
	return i.component.Default(name)
}

// Values returns a copy of the values set on i.
func (i *Instance) Values() map[string]any {
	return maps.Clone(i.values)
}

// Set writes a property and requests a flush so that the watches observing
// it run.
func (i *Instance) Set(name string, v any) error {
	if !i.rendered {
		return ErrNotRendered
	}
	if !i.component.Declares(name) {
		return fmt.Errorf("%s`%s: %w", i.Label(), name, ErrUnknownProperty)
	}
	i.values[name] = v
	id, ok := i.component.properties.Lookup(name)
	if !ok {
		return nil
	}
	return i.component.env.graph.Push(id, graph.Value{Target: i, Data: v}, true)
}

func (i *Instance) setSilent(name string, v any) {
	i.values[name] = v
}

// Notify pushes an event of type typ sourced at i and requests a flush.
// Events nobody watches are dropped.
func (i *Instance) Notify(typ string, data any) error {
	if !i.rendered {
		return ErrNotRendered
	}
	id, ok := i.component.events.Lookup(typ)
	if !ok {
		return nil
	}
	ev := Event{Type: typ, Source: i, Data: data}
	return i.component.env.graph.Push(id, graph.Value{Target: i, Data: ev}, true)
}

// pushInit marks i on the init watch of every component of its prototype
// chain, then does the same for its children.
func (i *Instance) pushInit() {
	env := i.component.env
	for p := i.component; p != nil; p = p.prototype {
		if p.init.vertex == graph.NoVertex {
			continue
		}
		if err := env.graph.Push(p.init.vertex, graph.Value{Target: i, Data: i}, false); err != nil {
			env.logger.Error("Could not push init marker.", "instance", i.Label(), "watch", p.init.Label(), "error", err)
		}
	}
	for _, ch := range i.children {
		ch.pushInit()
	}
}

func (i *Instance) ready() {
	if err := i.Notify("ready", nil); err != nil {
		i.component.env.logger.Warn("Could not notify ready.", "instance", i.Label(), "error", err)
	}
	for _, ch := range i.children {
		ch.ready()
	}
}

// release removes i, its nodes and its children from the concrete lists.
func (i *Instance) release() {
	for _, ch := range i.children {
		ch.release()
	}
	for p := i.component; p != nil; p = p.prototype {
		p.concretes = slices.DeleteFunc(p.concretes, func(x *Instance) bool { return x == i })
	}
	for _, n := range i.nodes {
		n.element.concretes = slices.DeleteFunc(n.element.concretes, func(x *Node) bool { return x == n })
	}
	i.rendered = false
}

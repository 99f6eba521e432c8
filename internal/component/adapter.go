package component

import (
	"fmt"
	"time"

	"github.com/vk/watchgraph/internal/graph"
)

// ValueFunc computes the value an adapter pushes downstream.
type ValueFunc func(s *Scope, in any) (any, error)

// MatchFunc decides whether an adapter lets an input through.
type MatchFunc func(s *Scope, in any) (bool, error)

type adapterKind int

const (
	getProperty adapterKind = iota
	getEvent
	setProperty
	setEvent
	setAttribute
	setNodeProperty
)

var kindNames = map[adapterKind]string{
	getProperty:     "get property",
	getEvent:        "get event",
	setProperty:     "set property",
	setEvent:        "set event",
	setAttribute:    "set attribute",
	setNodeProperty: "set node property",
}

// Event is the payload carried by event vertices.
type Event struct {
	Type   string
	Source graph.Target
	Data   any
}

// Adapter is a Get or a Set of a watch. It names a target (a component or a
// view element) and the property, event or attribute it reads or writes, and
// carries the match, value, delay and static settings of its edge.
type Adapter struct {
	kind      adapterKind
	name      string
	component *Component
	element   *Element
	watch     *Watch

	value    ValueFunc
	valueSrc string
	match    MatchFunc
	matchSrc string
	delay    time.Duration
	static   bool
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithValue sets the value function. The default passes the input through.
func WithValue(f ValueFunc) AdapterOption {
	return func(a *Adapter) { a.value = f }
}

// WithConst makes the adapter push v whatever the input.
func WithConst(v any) AdapterOption {
	return WithValue(func(*Scope, any) (any, error) { return v, nil })
}

// WithMatch sets the match predicate. The default matches everything.
func WithMatch(f MatchFunc) AdapterOption {
	return func(a *Adapter) { a.match = f }
}

// WithValueExpr sets the value function from expression source, compiled by
// the environment's Evaluator when the adapter joins a component.
func WithValueExpr(src string) AdapterOption {
	return func(a *Adapter) { a.valueSrc = src }
}

// WithMatchExpr is WithValueExpr for the match predicate.
func WithMatchExpr(src string) AdapterOption {
	return func(a *Adapter) { a.matchSrc = src }
}

// WithDelay turns the adapter's edge into a delayed edge. A negative d
// removes the delay.
func WithDelay(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d < 0 {
			d = graph.NoDelay
		}
		a.delay = d
	}
}

// AsStatic shares one computed value among all concretes of a static input.
func AsStatic() AdapterOption {
	return func(a *Adapter) { a.static = true }
}

func newAdapter(kind adapterKind, name string, c *Component, el *Element, opts []AdapterOption) *Adapter {
	a := &Adapter{kind: kind, name: name, component: c, element: el, delay: graph.NoDelay}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetProperty observes property name of target.
func GetProperty(target *Component, name string, opts ...AdapterOption) *Adapter {
	return newAdapter(getProperty, name, target, nil, opts)
}

// GetEvent observes events of type typ notified by target.
func GetEvent(target *Component, typ string, opts ...AdapterOption) *Adapter {
	return newAdapter(getEvent, typ, target, nil, opts)
}

// GetNodeEvent observes events of type typ dispatched on the nodes rendered
// for target.
func GetNodeEvent(target *Element, typ string, opts ...AdapterOption) *Adapter {
	return newAdapter(getEvent, typ, nil, target, opts)
}

// SetProperty silently writes property name of target.
func SetProperty(target *Component, name string, opts ...AdapterOption) *Adapter {
	return newAdapter(setProperty, name, target, nil, opts)
}

// SetEvent notifies an event of type typ on target.
func SetEvent(target *Component, typ string, opts ...AdapterOption) *Adapter {
	return newAdapter(setEvent, typ, target, nil, opts)
}

// SetAttribute writes attribute name on the nodes rendered for target. A nil
// value removes the attribute.
func SetAttribute(target *Element, name string, opts ...AdapterOption) *Adapter {
	return newAdapter(setAttribute, name, nil, target, opts)
}

// SetNodeProperty writes property name on the nodes rendered for target.
func SetNodeProperty(target *Element, name string, opts ...AdapterOption) *Adapter {
	return newAdapter(setNodeProperty, name, nil, target, opts)
}

// IsGet reports whether the adapter is an input of its watch.
func (a *Adapter) IsGet() bool {
	return a.kind == getProperty || a.kind == getEvent
}

// Name returns the property, event type or attribute name.
func (a *Adapter) Name() string { return a.name }

// Watch returns the watch the adapter belongs to, if any.
func (a *Adapter) Watch() *Watch { return a.watch }

// target returns the static target, or nil when it was left unresolved.
func (a *Adapter) target() graph.Target {
	switch {
	case a.element != nil:
		return a.element
	case a.component != nil:
		return a.component
	}
	return nil
}

func (a *Adapter) targetLabel() string {
	switch {
	case a.element != nil:
		return a.element.Label()
	case a.component != nil:
		return a.component.Label()
	}
	return "?"
}

// Label implements graph.Adapter.
func (a *Adapter) Label() string {
	return fmt.Sprintf("%s %s@%s", kindNames[a.kind], a.name, a.targetLabel())
}

// Static implements graph.Adapter.
func (a *Adapter) Static() bool { return a.static }

// Delay implements graph.Adapter.
func (a *Adapter) Delay() time.Duration { return a.delay }

// vertex returns the vertex the adapter reads from or writes to. Sets that
// have no vertex of their own write to the vortex. The boolean is false when
// the target is unresolved.
func (a *Adapter) vertex(g *graph.Graph) (graph.VertexID, bool) {
	switch a.kind {
	case getProperty, setProperty:
		if a.component == nil {
			return g.Vortex(), false
		}
		return g.PropertyVertex(a.component.properties, a.name, a.component), true
	case getEvent, setEvent:
		if a.element != nil {
			return g.EventVertex(a.element.events, a.name, a.element), true
		}
		if a.component != nil {
			return g.EventVertex(a.component.events, a.name, a.component), true
		}
		return g.Vortex(), false
	default:
		return g.Vortex(), a.element != nil
	}
}

// EnterScope implements graph.Adapter. A static input (a component) enters a
// static scope over the component's concrete instances. A runtime input (an
// instance or a node) is resolved through its scope chain: the runtime
// target of the adapter keys the pushed value for sets, while gets exit to
// the runtime of the watch's component.
func (a *Adapter) EnterScope(in graph.Target) (graph.Scope, error) {
	target := a.target()
	if target == nil {
		// Reported once when the watch is rendered.
		return nil, graph.ErrCancel
	}
	comp := a.watch.component

	var rs *runtimeScope
	switch x := in.(type) {
	case *Component:
		return &Scope{adapter: a, static: x, runtime: target, key: x, concretes: x.concreteTargets()}, nil
	case *Instance:
		rs = x.scope
	case *Node:
		rs = x.instance.scope
	default:
		return nil, fmt.Errorf("%s: unsupported input %T", a.Label(), in)
	}

	rt, ok := rs.lookup(target.TargetID())
	if !ok {
		return nil, fmt.Errorf("%s from %v: %w", a.Label(), in.TargetID(), ErrTargetNotInScope)
	}
	s := &Scope{adapter: a, runtime: rt, key: rt, concrete: true}
	if cr, ok := rs.lookup(comp.id); ok {
		s.this, _ = cr.(*Instance)
		if a.IsGet() {
			s.key = cr
		}
	}
	if a.watch.init && a.kind == setProperty && a.component == comp {
		if inst, ok := rt.(*Instance); ok && inst.component.initOwner(a.name) != comp {
			return nil, graph.ErrCancel
		}
	}
	return s, nil
}

// Match implements graph.Adapter.
func (a *Adapter) Match(s graph.Scope, in any) (bool, error) {
	if a.match == nil {
		return true, nil
	}
	return a.match(s.(*Scope), in)
}

// Value implements graph.Adapter. Set event adapters wrap the computed value
// in an Event sourced at their runtime target.
func (a *Adapter) Value(s graph.Scope, in any) (any, error) {
	sc := s.(*Scope)
	v := in
	if a.value != nil {
		var err error
		if v, err = a.value(sc, in); err != nil {
			return nil, err
		}
	}
	if a.kind == setEvent {
		return Event{Type: a.name, Source: sc.runtime, Data: v}, nil
	}
	return v, nil
}

// Apply implements graph.Adapter.
func (a *Adapter) Apply(s graph.Scope, v any) error {
	sc := s.(*Scope)
	switch a.kind {
	case setProperty:
		inst, ok := sc.runtime.(*Instance)
		if !ok {
			return fmt.Errorf("%s: runtime target %T is not an instance", a.Label(), sc.runtime)
		}
		inst.setSilent(a.name, v)
	case setAttribute, setNodeProperty:
		n, ok := sc.runtime.(*Node)
		if !ok {
			return fmt.Errorf("%s: runtime target %T is not a node", a.Label(), sc.runtime)
		}
		if a.kind == setNodeProperty {
			n.SetProperty(a.name, v)
		} else if v == nil {
			n.RemoveAttr(a.name)
		} else {
			n.SetAttr(a.name, fmt.Sprint(v))
		}
	}
	return nil
}

var _ graph.Adapter = (*Adapter)(nil)

// Scope is the runtime context handed to value and match functions.
type Scope struct {
	adapter   *Adapter
	this      *Instance
	static    *Component
	runtime   graph.Target
	key       graph.Target
	concrete  bool
	concretes []graph.Target
}

// Target implements graph.Scope: the target the pushed value is keyed by.
func (s *Scope) Target() graph.Target { return s.key }

// Concrete implements graph.Scope.
func (s *Scope) Concrete() bool { return s.concrete }

// Concretes implements graph.Scope.
func (s *Scope) Concretes() []graph.Target { return s.concretes }

// This returns the instance of the watch's component, or nil in a static
// scope.
func (s *Scope) This() *Instance { return s.this }

// Component returns the component that declared the watch.
func (s *Scope) Component() *Component { return s.adapter.watch.component }

// Runtime returns the object the adapter acts on in this scope.
func (s *Scope) Runtime() graph.Target { return s.runtime }

// Prop reads a property of This, or the static value of the watch's
// component in a static scope.
func (s *Scope) Prop(name string) any {
	if s.this != nil {
		v, _ := s.this.Get(name)
		return v
	}
	v, _ := s.Component().Default(name)
	return v
}

package component

import (
	"fmt"
	"slices"

	"github.com/vk/watchgraph/internal/graph"
)

type propertyDecl struct {
	name string
	init *Adapter
}

// Component is a static declaration: its properties, watches, view elements
// and child components. Components are created by an Environment.
type Component struct {
	env       *Environment
	id        uint64
	name      string
	prototype *Component
	parent    *Component

	props     map[string]*propertyDecl
	propOrder []string
	statics   map[string]any

	properties *graph.Table
	events     *graph.Table

	init     *Watch
	watches  []*Watch
	elements []*Element
	children []*Component

	concretes []*Instance
	rendered  int
}

// TargetID implements graph.Target.
func (c *Component) TargetID() uint64 { return c.id }

// Name returns the registered name, which may be empty.
func (c *Component) Name() string { return c.name }

// Label names the component in logs and dumps.
func (c *Component) Label() string {
	if c.name != "" {
		return c.name
	}
	return fmt.Sprintf("#%d", c.id)
}

// Prototype returns the base component, if any.
func (c *Component) Prototype() *Component { return c.prototype }

// Parent returns the component that embeds c as a child, if any.
func (c *Component) Parent() *Component { return c.parent }

// Children returns the child components in declaration order.
func (c *Component) Children() []*Component { return slices.Clone(c.children) }

// Elements returns the view elements declared by c itself.
func (c *Component) Elements() []*Element { return slices.Clone(c.elements) }

// Watches returns the watches declared by c, not counting the init watch.
func (c *Component) Watches() []*Watch { return slices.Clone(c.watches) }

// InitWatch returns the watch that sets the initial values declared by c.
func (c *Component) InitWatch() *Watch { return c.init }

// Properties returns the names of the properties declared by c itself.
func (c *Component) Properties() []string { return slices.Clone(c.propOrder) }

// Rendered reports whether the subgraph of c is in the graph.
func (c *Component) Rendered() bool { return c.rendered > 0 }

// Concretes returns the live instances of c and of the components derived
// from it.
func (c *Component) Concretes() []*Instance { return slices.Clone(c.concretes) }

func (c *Component) concreteTargets() []graph.Target {
	out := make([]graph.Target, len(c.concretes))
	for i, inst := range c.concretes {
		out[i] = inst
	}
	return out
}

// Conforms implements graph.Owner. A component conforms to itself and to its
// bases; instances and nodes conform through their component.
func (c *Component) Conforms(t graph.Target) bool {
	switch x := t.(type) {
	case *Component:
		for p := x; p != nil; p = p.prototype {
			if p == c {
				return true
			}
		}
	case *Instance:
		return c.Conforms(x.component)
	case *Node:
		return c.Conforms(x.instance.component)
	}
	return false
}

// Declares reports whether c or one of its bases declares property name.
func (c *Component) Declares(name string) bool {
	for p := c; p != nil; p = p.prototype {
		if _, ok := p.props[name]; ok {
			return true
		}
	}
	return false
}

// Default returns the static value of property name, as set by Component.Set
// on c or one of its bases.
func (c *Component) Default(name string) (any, bool) {
	for p := c; p != nil; p = p.prototype {
		if v, ok := p.statics[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Property declares a property. With a value option (WithValue, WithConst or
// WithValueExpr) the initial value is set through the init watch of c, which
// shadows any initial value declared by a base.
func (c *Component) Property(name string, opts ...AdapterOption) error {
	if name == "" {
		return fmt.Errorf("declare property on %s: empty name", c.Label())
	}
	if c.rendered > 0 {
		return fmt.Errorf("declare property %s on %s: component already rendered", name, c.Label())
	}
	if _, dup := c.props[name]; dup {
		c.env.logger.Error("Property redefined.", "component", c.Label(), "property", name)
		return fmt.Errorf("%s`%s: %w", c.Label(), name, ErrPropertyRedefined)
	}
	decl := &propertyDecl{name: name}
	a := SetProperty(c, name, opts...)
	if a.value != nil || a.valueSrc != "" {
		if err := c.init.Set(a); err != nil {
			return err
		}
		decl.init = a
	}
	c.props[name] = decl
	c.propOrder = append(c.propOrder, name)
	return nil
}

// initOwner returns the nearest component in the prototype chain that
// declares an initial value for name.
func (c *Component) initOwner(name string) *Component {
	for p := c; p != nil; p = p.prototype {
		if d, ok := p.props[name]; ok && d.init != nil {
			return p
		}
	}
	return nil
}

// Set writes the static value of a property and propagates it to every
// concrete of c that has no value of its own pending.
func (c *Component) Set(name string, v any) error {
	if !c.Declares(name) {
		return fmt.Errorf("%s`%s: %w", c.Label(), name, ErrUnknownProperty)
	}
	c.statics[name] = v
	id, ok := c.properties.Lookup(name)
	if !ok {
		return nil
	}
	return c.env.graph.Push(id, graph.Value{Target: c, Data: v}, true)
}

// Watch adds w to c. Expression options of its adapters are compiled now. If
// c is already rendered the watch subgraph is added right away and takes
// part in the next flush.
func (c *Component) Watch(w *Watch) error {
	if w.component != nil {
		c.env.logger.Error("Watch added twice.", "component", c.Label(), "watch", w.Label())
		return ErrWatchOwned
	}
	for _, a := range append(slices.Clone(w.gets), w.sets...) {
		if err := c.env.compile(a); err != nil {
			return fmt.Errorf("watch on %s: %w", c.Label(), err)
		}
	}
	w.component = c
	w.label = fmt.Sprintf("%s/watch%d", c.Label(), len(c.watches)+1)
	c.watches = append(c.watches, w)
	if c.rendered > 0 {
		w.renderSubgraph()
	}
	return nil
}

// Unwatch removes w from c and from the graph.
func (c *Component) Unwatch(w *Watch) error {
	i := slices.Index(c.watches, w)
	if i < 0 {
		return fmt.Errorf("unwatch %s: not a watch of %s", w.Label(), c.Label())
	}
	w.unrenderSubgraph()
	c.watches = slices.Delete(c.watches, i, i+1)
	w.component = nil
	return nil
}

// Element declares a view element. Element names are unique per component.
func (c *Component) Element(name, tag string) (*Element, error) {
	if c.rendered > 0 {
		return nil, fmt.Errorf("declare element %s on %s: component already rendered", name, c.Label())
	}
	for _, el := range c.elements {
		if el.name == name {
			return nil, fmt.Errorf("element %s@%s already defined", name, c.Label())
		}
	}
	el := &Element{
		id:        c.env.id(),
		name:      name,
		tag:       tag,
		component: c,
		attrs:     make(map[string]string),
		events:    graph.NewTable(nil),
	}
	c.elements = append(c.elements, el)
	return el, nil
}

// FindElement looks name up in the view of c and then in the views of its
// bases.
func (c *Component) FindElement(name string) (*Element, bool) {
	for p := c; p != nil; p = p.prototype {
		for _, el := range p.elements {
			if el.name == name {
				return el, true
			}
		}
	}
	return nil, false
}

// AddChild embeds ch in the view of c. Every instance of c renders its own
// instance of ch.
func (c *Component) AddChild(ch *Component) error {
	if ch.env != c.env {
		return fmt.Errorf("add child %s to %s: different environments", ch.Label(), c.Label())
	}
	if ch.parent != nil {
		return fmt.Errorf("add child %s to %s: %w", ch.Label(), c.Label(), ErrChildOwned)
	}
	for p := c; p != nil; p = p.parent {
		if p == ch {
			return fmt.Errorf("add child %s to %s: component would contain itself", ch.Label(), c.Label())
		}
	}
	if c.rendered > 0 || ch.rendered > 0 {
		return fmt.Errorf("add child %s to %s: component already rendered", ch.Label(), c.Label())
	}
	ch.parent = c
	c.children = append(c.children, ch)
	return nil
}

// renderSubgraph adds the vertices and edges of c to the graph on the first
// rendering. Bases render first so that derived vertices can clone the edges
// of the vertices they inherit.
func (c *Component) renderSubgraph() {
	c.rendered++
	if c.rendered > 1 {
		return
	}
	if c.prototype != nil {
		c.prototype.renderSubgraph()
	}
	for _, ch := range c.children {
		ch.renderSubgraph()
	}
	c.init.renderSubgraph()
	for _, w := range c.watches {
		w.renderSubgraph()
	}
	c.env.logger.Debug("Component subgraph rendered.", "component", c.Label())
}

func (c *Component) unrenderSubgraph() {
	if c.rendered == 0 {
		return
	}
	c.rendered--
	if c.rendered > 0 {
		return
	}
	for _, w := range c.watches {
		w.unrenderSubgraph()
	}
	c.init.unrenderSubgraph()
	for _, ch := range c.children {
		ch.unrenderSubgraph()
	}
	// Vertices kept alive only by their links to the base go before the
	// base itself, otherwise the next rendering would reuse them without
	// cloning the base edges again.
	pruned := c.env.graph.Prune(c.properties) + c.env.graph.Prune(c.events)
	if c.prototype != nil {
		c.prototype.unrenderSubgraph()
	}
	c.env.logger.Debug("Component subgraph removed.", "component", c.Label(), "pruned", pruned)
}

// instantiate creates a concrete instance of c under parent. The instance
// scope binds every component of the prototype chain to the instance, every
// element of their views to a fresh node, and every child component to its
// own new instance.
func (c *Component) instantiate(parent *Instance) *Instance {
	inst := &Instance{
		id:        c.env.id(),
		component: c,
		parent:    parent,
		values:    make(map[string]any),
		rendered:  true,
		scope:     &runtimeScope{objects: make(map[uint64]graph.Target)},
	}
	if parent != nil {
		inst.scope.parent = parent.scope
	}
	var chain []*Component
	for p := c; p != nil; p = p.prototype {
		inst.scope.bind(p.id, inst)
		p.concretes = append(p.concretes, inst)
		chain = append(chain, p)
	}
	slices.Reverse(chain)
	for _, p := range chain {
		for _, el := range p.elements {
			n := el.instantiate(inst)
			inst.scope.bind(el.id, n)
			inst.nodes = append(inst.nodes, n)
		}
		for _, ch := range p.children {
			ci := ch.instantiate(inst)
			inst.scope.bind(ch.id, ci)
			inst.children = append(inst.children, ci)
		}
	}
	return inst
}

func (env *Environment) compile(a *Adapter) error {
	if a.valueSrc != "" && a.value == nil {
		if env.eval == nil {
			return fmt.Errorf("%s: %w", a.Label(), ErrNoEvaluator)
		}
		f, err := env.eval.CompileValue(a.valueSrc)
		if err != nil {
			return fmt.Errorf("%s: value: %w", a.Label(), err)
		}
		a.value = f
	}
	if a.matchSrc != "" && a.match == nil {
		if env.eval == nil {
			return fmt.Errorf("%s: %w", a.Label(), ErrNoEvaluator)
		}
		f, err := env.eval.CompileMatch(a.matchSrc)
		if err != nil {
			return fmt.Errorf("%s: match: %w", a.Label(), err)
		}
		a.match = f
	}
	return nil
}

var _ graph.Owner = (*Component)(nil)

package component

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/vk/watchgraph/internal/graph"
)

// Evaluator compiles expression source into adapter callbacks. It keeps the
// component layer independent of any particular expression language.
type Evaluator interface {
	CompileValue(src string) (ValueFunc, error)
	CompileMatch(src string) (MatchFunc, error)
}

// Environment owns the graph shared by a family of components and hands out
// the identities that graph values are keyed by.
type Environment struct {
	logger *slog.Logger
	graph  *graph.Graph
	eval   Evaluator

	nextID     uint64
	components []*Component
	byName     map[string]*Component
}

// EnvOption configures an Environment.
type EnvOption func(*Environment)

// WithEvaluator enables ValueExpr and MatchExpr adapter options.
func WithEvaluator(e Evaluator) EnvOption {
	return func(env *Environment) { env.eval = e }
}

// NewEnvironment creates an environment around g. The logger is taken from ctx.
func NewEnvironment(ctx context.Context, g *graph.Graph, opts ...EnvOption) *Environment {
	env := &Environment{
		logger: ctxlog.FromContext(ctx).With("component", "environment"),
		graph:  g,
		byName: make(map[string]*Component),
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// Graph returns the environment's watch graph.
func (env *Environment) Graph() *graph.Graph {
	return env.graph
}

func (env *Environment) id() uint64 {
	env.nextID++
	return env.nextID
}

// Components returns every component created in the environment, in
// creation order.
func (env *Environment) Components() []*Component {
	return append([]*Component(nil), env.components...)
}

// Lookup returns the component registered under name.
func (env *Environment) Lookup(name string) (*Component, bool) {
	c, ok := env.byName[name]
	return c, ok
}

// NewComponent creates a component with no base. An empty name is allowed;
// a duplicate name is an error.
func (env *Environment) NewComponent(name string) (*Component, error) {
	return env.newComponent(name, nil)
}

// Derive creates a component derived from base. The derived component
// inherits the properties, watches and view of base; its vertex tables are
// linked to those of base so inherited vertices are reused until the derived
// component needs its own.
func (env *Environment) Derive(base *Component, name string) (*Component, error) {
	if base == nil || base.env != env {
		return nil, fmt.Errorf("derive %q: base component is not part of this environment", name)
	}
	return env.newComponent(name, base)
}

func (env *Environment) newComponent(name string, base *Component) (*Component, error) {
	if name != "" {
		if _, dup := env.byName[name]; dup {
			env.logger.Error("Component redefined.", "name", name)
			return nil, fmt.Errorf("component %q already defined", name)
		}
	}
	c := &Component{
		env:       env,
		id:        env.id(),
		name:      name,
		prototype: base,
		props:     make(map[string]*propertyDecl),
		statics:   make(map[string]any),
	}
	var propParent, eventParent *graph.Table
	if base != nil {
		propParent, eventParent = base.properties, base.events
	}
	c.properties = graph.NewTable(propParent)
	c.events = graph.NewTable(eventParent)
	c.init = &Watch{component: c, init: true, vertex: graph.NoVertex, label: c.Label() + "/init"}

	env.components = append(env.components, c)
	if name != "" {
		env.byName[name] = c
	}
	env.logger.Debug("Component created.", "component", c.Label(), "base", baseLabel(base))
	return c, nil
}

func baseLabel(c *Component) string {
	if c == nil {
		return ""
	}
	return c.Label()
}

// Render renders c and returns its new concrete instance. The component
// subgraph is built on the first render, the graph is sorted, and a flush is
// requested so initial values propagate once the scheduler runs. A ready
// event is notified on the instance and then on its children.
func (env *Environment) Render(c *Component) (*Instance, error) {
	if c.env != env {
		return nil, fmt.Errorf("render %s: component is not part of this environment", c.Label())
	}
	if c.parent != nil {
		return nil, fmt.Errorf("render %s: child components are rendered by their parent", c.Label())
	}
	c.renderSubgraph()
	if err := env.graph.Sort(); err != nil {
		env.logger.Error("Rendered a component with a cyclic watch graph.", "component", c.Label(), "error", err)
	}
	inst := c.instantiate(nil)
	inst.pushInit()
	env.graph.Flush()
	inst.ready()
	env.logger.Debug("Component rendered.", "component", c.Label(), "instance", inst.Label())
	return inst, nil
}

// Unrender removes a root instance and releases its component's subgraph
// once no rendering needs it anymore.
func (env *Environment) Unrender(inst *Instance) error {
	if !inst.rendered {
		return ErrNotRendered
	}
	if inst.parent != nil {
		return fmt.Errorf("unrender %s: child instances are unrendered by their parent", inst.Label())
	}
	inst.release()
	inst.component.unrenderSubgraph()
	env.logger.Debug("Instance unrendered.", "instance", inst.Label())
	return nil
}

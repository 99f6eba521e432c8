package decl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/watchgraph/internal/component"
	"github.com/vk/watchgraph/internal/ctxlog"
)

// Build creates the components of d in env and returns them in declaration
// order. Bases are created before the components extending them, wherever
// they are declared.
func (d *Document) Build(ctx context.Context, env *component.Environment) ([]*component.Component, error) {
	logger := ctxlog.FromContext(ctx)

	blocks := make(map[string]*componentBlock, len(d.components))
	for _, b := range d.components {
		if _, dup := blocks[b.Name]; dup {
			return nil, fmt.Errorf("%s: component %q declared twice", b.DeclRange, b.Name)
		}
		blocks[b.Name] = b
	}

	built := make(map[string]*component.Component, len(blocks))
	var order []*componentBlock
	visiting := make(map[string]bool)
	var create func(b *componentBlock) (*component.Component, error)
	create = func(b *componentBlock) (*component.Component, error) {
		if c, ok := built[b.Name]; ok {
			return c, nil
		}
		if visiting[b.Name] {
			return nil, fmt.Errorf("%s: component %q extends itself", b.DeclRange, b.Name)
		}
		visiting[b.Name] = true
		defer delete(visiting, b.Name)

		var c *component.Component
		var err error
		if b.Extends == nil {
			c, err = env.NewComponent(b.Name)
		} else {
			baseBlock, ok := blocks[*b.Extends]
			if !ok {
				return nil, fmt.Errorf("%s: component %q extends unknown component %q", b.DeclRange, b.Name, *b.Extends)
			}
			var base *component.Component
			if base, err = create(baseBlock); err != nil {
				return nil, err
			}
			c, err = env.Derive(base, b.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.DeclRange, err)
		}
		built[b.Name] = c
		order = append(order, b)
		return c, nil
	}

	out := make([]*component.Component, 0, len(d.components))
	for _, b := range d.components {
		c, err := create(b)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	for _, b := range d.components {
		c := built[b.Name]
		for _, name := range b.Children {
			child, ok := built[name]
			if !ok {
				return nil, fmt.Errorf("%s: component %q embeds unknown component %q", b.DeclRange, b.Name, name)
			}
			if err := c.AddChild(child); err != nil {
				return nil, fmt.Errorf("%s: %w", b.DeclRange, err)
			}
		}
	}

	for _, b := range order {
		bl := &builder{
			logger: logger.With("component", b.Name),
			block:  b,
			self:   built[b.Name],
			byName: built,
		}
		if err := bl.build(ctx); err != nil {
			return nil, err
		}
	}
	logger.Debug("Components built.", "count", len(out))
	return out, nil
}

// builder fills in one component: elements first so watches can target
// them, then properties and watches.
type builder struct {
	logger *slog.Logger
	block  *componentBlock
	self   *component.Component
	byName map[string]*component.Component
}

func (b *builder) build(ctx context.Context) error {
	for _, e := range b.block.Elements {
		tag := "div"
		if e.Tag != nil {
			tag = *e.Tag
		}
		el, err := b.self.Element(e.Name, tag)
		if err != nil {
			return fmt.Errorf("%s: %w", b.block.DeclRange, err)
		}
		for k, v := range e.Attrs {
			el.SetAttr(k, v)
		}
	}

	for _, p := range b.block.Properties {
		var opts []component.AdapterOption
		if isExprDefined(ctx, p.Value, "value") {
			opt, err := b.valueOption(p.Value, p.Type)
			if err != nil {
				return fmt.Errorf("property %q of %s: %w", p.Name, b.self.Label(), err)
			}
			opts = append(opts, opt)
		}
		if err := b.self.Property(p.Name, opts...); err != nil {
			return err
		}
	}

	for i, wb := range b.block.Watches {
		w := component.NewWatch()
		for _, ab := range wb.Gets {
			a, err := b.adapter(ctx, ab, true)
			if err != nil {
				return err
			}
			if err := w.Get(a); err != nil {
				return err
			}
		}
		for _, ab := range wb.Sets {
			a, err := b.adapter(ctx, ab, false)
			if err != nil {
				return err
			}
			if err := w.Set(a); err != nil {
				return err
			}
		}
		if err := b.self.Watch(w); err != nil {
			return fmt.Errorf("watch %d of %s: %w", i+1, b.self.Label(), err)
		}
	}
	return nil
}

func (b *builder) adapter(ctx context.Context, ab *adapterBlock, get bool) (*component.Adapter, error) {
	var opts []component.AdapterOption
	if isExprDefined(ctx, ab.Value, "value") {
		opt, err := b.valueOption(ab.Value, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ab.DeclRange, err)
		}
		opts = append(opts, opt)
	}
	if isExprDefined(ctx, ab.Match, "match") {
		opts = append(opts, component.WithMatchExpr(exprSource(ab.Match, b.block.src)))
	}
	if ab.Delay != nil {
		d, err := time.ParseDuration(*ab.Delay)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid delay: %w", ab.DeclRange, err)
		}
		opts = append(opts, component.WithDelay(d))
	}
	if ab.Static != nil && *ab.Static {
		opts = append(opts, component.AsStatic())
	}

	switch {
	case get && ab.Kind == "property":
		return component.GetProperty(b.component(ab), ab.Name, opts...), nil
	case get && ab.Kind == "event":
		return component.GetEvent(b.component(ab), ab.Name, opts...), nil
	case get && ab.Kind == "node_event":
		return component.GetNodeEvent(b.element(ab), ab.Name, opts...), nil
	case !get && ab.Kind == "property":
		return component.SetProperty(b.component(ab), ab.Name, opts...), nil
	case !get && ab.Kind == "event":
		return component.SetEvent(b.component(ab), ab.Name, opts...), nil
	case !get && ab.Kind == "attribute":
		return component.SetAttribute(b.element(ab), ab.Name, opts...), nil
	case !get && ab.Kind == "node_property":
		return component.SetNodeProperty(b.element(ab), ab.Name, opts...), nil
	}
	dir := "set"
	if get {
		dir = "get"
	}
	return nil, fmt.Errorf("%s: unsupported %s kind %q", ab.DeclRange, dir, ab.Kind)
}

// component resolves the component an adapter targets. Unknown names are
// logged and resolve to nil.
func (b *builder) component(ab *adapterBlock) *component.Component {
	if ab.Target == nil {
		return b.self
	}
	if c, ok := b.byName[*ab.Target]; ok {
		return c
	}
	b.logger.Warn("Unresolved watch target.", "target", *ab.Target, "kind", ab.Kind, "name", ab.Name, "range", ab.DeclRange.String())
	return nil
}

// element resolves the element an adapter targets in the view of the
// declaring component and its bases.
func (b *builder) element(ab *adapterBlock) *component.Element {
	if ab.Target == nil {
		b.logger.Warn("Watch target element missing.", "kind", ab.Kind, "name", ab.Name, "range", ab.DeclRange.String())
		return nil
	}
	if el, ok := b.self.FindElement(*ab.Target); ok {
		return el
	}
	b.logger.Warn("Unresolved watch target.", "target", *ab.Target, "kind", ab.Kind, "name", ab.Name, "range", ab.DeclRange.String())
	return nil
}

// valueOption decodes literal expressions once and defers everything else to
// the evaluator.
func (b *builder) valueOption(x hcl.Expression, typeExpr hcl.Expression) (component.AdapterOption, error) {
	v, ok, err := literalValue(x, typeExpr)
	if err != nil {
		return nil, err
	}
	if ok {
		return component.WithConst(v), nil
	}
	return component.WithValueExpr(exprSource(x, b.block.src)), nil
}

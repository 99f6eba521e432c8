package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/vk/watchgraph/internal/component"
	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/vk/watchgraph/internal/decl"
	"github.com/vk/watchgraph/internal/expr"
	"github.com/vk/watchgraph/internal/graph"
	"github.com/vk/watchgraph/internal/livetrace"
	"github.com/vk/watchgraph/internal/scheduler"
)

// Run loads the component files, renders the requested components, applies
// the configured writes and prints the resulting graph. All graph work
// happens on one scheduler loop; Run returns once that loop is idle and the
// configured wait has elapsed.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	writes, err := a.config.Writes()
	if err != nil {
		return err
	}

	doc, err := decl.NewLoader().Load(ctx, a.config.ComponentPaths...)
	if err != nil {
		return fmt.Errorf("failed to load components: %w", err)
	}
	a.logger.Info("Component files loaded.", "components", len(doc.Names()))

	if err := a.setup(ctx); err != nil {
		return err
	}
	defer a.closeTrace()

	loopCtx, stop := context.WithCancel(ctx)
	loopDone := make(chan error, 1)
	go func() { loopDone <- a.loop.Run(loopCtx) }()
	defer func() {
		stop()
		<-loopDone
	}()

	a.inspectServer()
	defer a.closeInspectServer(ctx)

	var renderErr error
	if err := a.loop.Do(ctx, func() { renderErr = a.render(ctx, doc) }); err != nil {
		return err
	}
	if renderErr != nil {
		return renderErr
	}
	if err := a.loop.Drain(ctx); err != nil {
		return err
	}
	a.logger.Info("Components rendered.", "instances", len(a.instances))

	if len(writes) > 0 {
		var writeErr error
		if err := a.loop.Do(ctx, func() { writeErr = a.apply(writes) }); err != nil {
			return err
		}
		if writeErr != nil {
			return writeErr
		}
		if err := a.loop.Drain(ctx); err != nil {
			return err
		}
		a.logger.Info("Writes applied.", "count", len(writes))
	}

	if a.config.Wait > 0 {
		a.logger.Info("Waiting before reporting.", "wait", a.config.Wait)
		select {
		case <-time.After(a.config.Wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := a.loop.Drain(ctx); err != nil {
			return err
		}
	}

	if err := a.loop.Do(ctx, a.report); err != nil {
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// setup creates the scheduler loop, the graph with its observers and the
// component environment.
func (a *App) setup(ctx context.Context) error {
	a.loop = scheduler.NewLoop()
	opts := []graph.Option{
		graph.WithScheduler(a.loop),
		graph.WithObserver(a.metrics),
	}

	var tracer *livetrace.Tracer
	if a.config.LivetraceURL != "" {
		sock, err := livetrace.Dial(ctx, a.config.LivetraceURL, livetrace.DialOptions{})
		if err != nil {
			return fmt.Errorf("failed to connect live trace: %w", err)
		}
		a.trace = sock
		tracer = livetrace.New(ctx, sock)
		opts = append(opts, graph.WithObserver(tracer))
	}

	a.graph = graph.New(ctx, opts...)
	if tracer != nil {
		tracer.Attach(a.graph)
	}
	a.env = component.NewEnvironment(ctx, a.graph, component.WithEvaluator(expr.New(ctx)))
	return nil
}

func (a *App) closeTrace() {
	if a.trace == nil {
		return
	}
	a.logger.Debug("Disconnecting live trace.")
	a.trace.Disconnect()
}

// render builds the declared components and renders the configured ones,
// or every top-level component when none is named.
func (a *App) render(ctx context.Context, doc *decl.Document) error {
	components, err := doc.Build(ctx, a.env)
	if err != nil {
		return fmt.Errorf("failed to build components: %w", err)
	}

	var targets []*component.Component
	if len(a.config.Render) == 0 {
		for _, c := range components {
			if c.Parent() == nil {
				targets = append(targets, c)
			}
		}
	} else {
		for _, name := range a.config.Render {
			c, ok := a.env.Lookup(name)
			if !ok {
				return fmt.Errorf("cannot render unknown component %q", name)
			}
			targets = append(targets, c)
		}
	}

	for _, c := range targets {
		inst, err := a.env.Render(c)
		if err != nil {
			return err
		}
		a.instances = append(a.instances, inst)
	}
	return nil
}

// apply performs the configured writes as static writes, so they reach
// every rendered instance of the component and of components derived from
// it.
func (a *App) apply(writes []Write) error {
	var errs []error
	for _, w := range writes {
		c, ok := a.env.Lookup(w.Component)
		if !ok {
			errs = append(errs, fmt.Errorf("write %s.%s: unknown component %q", w.Component, w.Property, w.Component))
			continue
		}
		if err := c.Set(w.Property, w.Value); err != nil {
			errs = append(errs, fmt.Errorf("write %s.%s: %w", w.Component, w.Property, err))
			continue
		}
		a.logger.Debug("Write applied.", "component", w.Component, "property", w.Property, "value", w.Value)
	}
	return errors.Join(errs...)
}

// report logs the settled state of every instance and prints the graph in
// the configured dump format.
func (a *App) report() {
	for _, inst := range a.instances {
		a.logInstance(inst)
	}
	if err := writeDump(a.outW, a.graph.Dump(), a.config.DumpFormat); err != nil {
		a.logger.Error("Failed to write graph dump.", "error", err)
	}
}

func (a *App) logInstance(inst *component.Instance) {
	values := inst.Values()
	attrs := []any{"instance", inst.Label()}
	for _, name := range slices.Sorted(maps.Keys(values)) {
		attrs = append(attrs, name, values[name])
	}
	for _, n := range inst.Nodes() {
		nodeAttrs := n.Attrs()
		for _, k := range slices.Sorted(maps.Keys(nodeAttrs)) {
			attrs = append(attrs, n.Element().Name()+"."+k, nodeAttrs[k])
		}
	}
	a.logger.Info("Instance settled.", attrs...)
	for _, child := range inst.Children() {
		a.logInstance(child)
	}
}

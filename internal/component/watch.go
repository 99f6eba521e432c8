package component

import (
	"fmt"
	"slices"

	"github.com/vk/watchgraph/internal/graph"
)

// Watch binds Get adapters to Set adapters. Whenever one of its inputs
// changes, every Set runs with the value of the changed input.
type Watch struct {
	component *Component
	gets      []*Adapter
	sets      []*Adapter
	vertex    graph.VertexID
	init      bool
	label     string
}

// NewWatch returns an empty watch. Add adapters with Get and Set, then add
// the watch to a component.
func NewWatch() *Watch {
	return &Watch{vertex: graph.NoVertex}
}

// Label implements graph.Labeler.
func (w *Watch) Label() string {
	if w.label == "" {
		return "watch"
	}
	return w.label
}

// Component returns the component the watch belongs to, if any.
func (w *Watch) Component() *Component { return w.component }

// Gets returns the input adapters.
func (w *Watch) Gets() []*Adapter { return slices.Clone(w.gets) }

// Sets returns the output adapters.
func (w *Watch) Sets() []*Adapter { return slices.Clone(w.sets) }

// Vertex returns the watch vertex, or graph.NoVertex while the watch is not
// rendered.
func (w *Watch) Vertex() graph.VertexID { return w.vertex }

// Get adds an input adapter.
func (w *Watch) Get(a *Adapter) error {
	if !a.IsGet() {
		return fmt.Errorf("%s is not a get adapter", a.Label())
	}
	if err := w.own(a); err != nil {
		return err
	}
	w.gets = append(w.gets, a)
	return nil
}

// Set adds an output adapter.
func (w *Watch) Set(a *Adapter) error {
	if a.IsGet() {
		return fmt.Errorf("%s is not a set adapter", a.Label())
	}
	if err := w.own(a); err != nil {
		return err
	}
	w.sets = append(w.sets, a)
	return nil
}

func (w *Watch) own(a *Adapter) error {
	if a.watch != nil {
		return fmt.Errorf("%s: %w", a.Label(), ErrAdapterOwned)
	}
	if w.vertex != graph.NoVertex {
		return fmt.Errorf("%s: watch %s is already rendered", a.Label(), w.Label())
	}
	if w.init && a.kind != setProperty {
		return fmt.Errorf("%s: init watches only set properties", a.Label())
	}
	if w.component != nil {
		if err := w.component.env.compile(a); err != nil {
			return err
		}
	}
	a.watch = w
	return nil
}

// renderSubgraph adds the watch vertex and its adapter edges. A regular watch
// without gets never fires and is left out. The init watch is fed by a static
// marker valued with the component, so its sets fan out to every concrete
// rendered before the next flush.
func (w *Watch) renderSubgraph() {
	env := w.component.env
	g := env.graph
	if w.init {
		if len(w.sets) == 0 {
			return
		}
		w.vertex = g.NewWatchVertex(w)
		c := w.component
		if err := g.Push(w.vertex, graph.Value{Target: c, Data: c}, false); err != nil {
			env.logger.Error("Could not push init marker.", "watch", w.Label(), "error", err)
		}
		for _, a := range w.sets {
			dst, _ := a.vertex(g)
			if _, err := g.AddEdge(w.vertex, dst, graph.NewInitEdge(a)); err != nil {
				env.logger.Error("Could not add init edge.", "watch", w.Label(), "adapter", a.Label(), "error", err)
			}
		}
		return
	}
	if len(w.gets) == 0 {
		env.logger.Debug("Watch without inputs skipped.", "watch", w.Label())
		return
	}
	w.vertex = g.NewWatchVertex(w)
	for _, a := range w.gets {
		src, ok := a.vertex(g)
		if !ok {
			env.logger.Warn("Watch input has no target.", "watch", w.Label(), "adapter", a.Label())
			continue
		}
		if _, err := g.AddEdge(src, w.vertex, graph.NewAdapterEdge(a)); err != nil {
			env.logger.Error("Could not add watch input.", "watch", w.Label(), "adapter", a.Label(), "error", err)
		}
	}
	for _, a := range w.sets {
		dst, ok := a.vertex(g)
		if !ok {
			env.logger.Warn("Watch output has no target.", "watch", w.Label(), "adapter", a.Label())
		}
		if _, err := g.AddEdge(w.vertex, dst, graph.NewAdapterEdge(a)); err != nil {
			env.logger.Error("Could not add watch output.", "watch", w.Label(), "adapter", a.Label(), "error", err)
		}
	}
}

func (w *Watch) unrenderSubgraph() {
	if w.vertex == graph.NoVertex {
		return
	}
	if err := w.component.env.graph.RemoveVertex(w.vertex); err != nil {
		w.component.env.logger.Error("Could not remove watch vertex.", "watch", w.Label(), "error", err)
	}
	w.vertex = graph.NoVertex
}

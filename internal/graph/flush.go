package graph

import (
	"slices"
	"time"
)

// laterBatch collects the callbacks of every FlushLater request that shares
// one deadline.
type laterBatch struct {
	deadline time.Time
	thunks   []func()
}

// Flush requests a flush pass. Requests coalesce: while a pass is scheduled
// and has not started, further requests only append their callbacks, which
// run at the start of that pass before any edge is traversed.
func (g *Graph) Flush(queue ...func()) {
	g.preflush = append(g.preflush, queue...)
	if g.scheduled {
		return
	}
	g.scheduled = true
	g.sched.Asap(g.run)
}

// FlushLater runs f at the start of a flush pass once delay has elapsed.
// Requests that fall on the same deadline share one timer and one pass.
func (g *Graph) FlushLater(f func(), delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	deadline := g.sched.Now().Add(delay)
	key := deadline.UnixNano()
	if found, ok := g.later.Get(key); ok {
		b := found.(*laterBatch)
		b.thunks = append(b.thunks, f)
		return
	}
	b := &laterBatch{deadline: deadline, thunks: []func(){f}}
	g.later.Put(key, b)
	fire := func() {
		g.later.Remove(key)
		g.logger.Debug("Delayed batch due.", "deadline", b.deadline, "callbacks", len(b.thunks))
		g.Flush(b.thunks...)
	}
	if delay == 0 {
		g.sched.Asap(fire)
	} else {
		g.sched.After(delay, fire)
	}
}

// PendingLater returns the deadlines of the delayed batches that have not
// fired yet, earliest first.
func (g *Graph) PendingLater() []time.Time {
	out := make([]time.Time, 0, g.later.Size())
	it := g.later.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*laterBatch).deadline)
	}
	return out
}

// Flushing reports whether a flush pass is running.
func (g *Graph) Flushing() bool {
	return g.flushing
}

func (g *Graph) run() {
	g.scheduled = false
	g.flushing = true
	g.flushSeq++
	g.counters = flushCounters{}
	start := time.Now()

	queue := g.preflush
	g.preflush = nil
	for _, f := range queue {
		if err := g.guard(func() error { f(); return nil }); err != nil {
			g.counters.failures++
			g.logger.Warn("Pre-flush callback failed.", "error", err)
		}
	}

	// A cyclic graph still flushes the edges the sort could order.
	sortErr := g.Sort()

	for _, id := range slices.Clone(g.sorted) {
		e, ok := g.edges[id]
		if !ok {
			continue
		}
		src, ok := g.vertices[e.Source()]
		if !ok || len(src.base().values) == 0 {
			continue
		}
		dst, ok := g.vertices[e.Dest()]
		if !ok {
			continue
		}
		g.counters.traversed++
		e.traverse(g, src, dst)
	}

	for _, id := range g.order {
		g.vertices[id].base().clearValues()
	}
	g.flushing = false

	deferred := g.deferred
	g.deferred = nil
	for _, d := range deferred {
		if v, ok := g.vertices[d.vertex]; ok {
			v.push(d.value)
		}
	}
	if len(deferred) > 0 {
		g.Flush()
	}

	stats := FlushStats{
		Seq:       g.flushSeq,
		Callbacks: len(queue),
		Traversed: g.counters.traversed,
		Values:    g.counters.values,
		Failures:  g.counters.failures,
		Deferred:  len(deferred),
		Cyclic:    sortErr != nil,
		Duration:  time.Since(start),
	}
	g.logger.Debug("Watch graph flushed.", "seq", stats.Seq, "callbacks", stats.Callbacks, "traversed", stats.Traversed, "values", stats.Values, "failures", stats.Failures, "cyclic", stats.Cyclic)
	for _, o := range g.observers {
		o.Flushed(stats)
	}
}

package graph

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/vk/watchgraph/internal/scheduler"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type tgt uint64

func (t tgt) TargetID() uint64 { return uint64(t) }

// testOwner conforms to itself and to the targets listed in members.
type testOwner struct {
	id      uint64
	name    string
	members map[uint64]bool
}

func (o *testOwner) TargetID() uint64 { return o.id }
func (o *testOwner) Label() string    { return o.name }
func (o *testOwner) Conforms(t Target) bool {
	return t.TargetID() == o.id || o.members[t.TargetID()]
}

type testScope struct {
	target    Target
	concretes []Target
}

func (s *testScope) Target() Target      { return s.target }
func (s *testScope) Concrete() bool      { return s.concretes == nil }
func (s *testScope) Concretes() []Target { return s.concretes }

// testAdapter records every application. Inputs whose id is a key of
// fanout enter a static scope over the listed concretes.
type testAdapter struct {
	label  string
	sched  scheduler.Scheduler
	match  func(in any) (bool, error)
	value  func(s Scope, in any) (any, error)
	apply  func(s Scope, v any) error
	fanout map[uint64][]Target
	static bool
	delay  time.Duration

	applied   []Value
	appliedAt []time.Time
	computed  int
}

func newAdapter(label string) *testAdapter {
	return &testAdapter{label: label, delay: NoDelay}
}

func (a *testAdapter) Label() string        { return a.label }
func (a *testAdapter) Static() bool         { return a.static }
func (a *testAdapter) Delay() time.Duration { return a.delay }

func (a *testAdapter) EnterScope(in Target) (Scope, error) {
	if cs, ok := a.fanout[in.TargetID()]; ok {
		return &testScope{target: in, concretes: cs}, nil
	}
	return &testScope{target: in}, nil
}

func (a *testAdapter) Match(_ Scope, in any) (bool, error) {
	if a.match == nil {
		return true, nil
	}
	return a.match(in)
}

func (a *testAdapter) Value(s Scope, in any) (any, error) {
	a.computed++
	if a.value == nil {
		return in, nil
	}
	return a.value(s, in)
}

func (a *testAdapter) Apply(s Scope, v any) error {
	a.applied = append(a.applied, Value{Target: s.Target(), Data: v})
	if a.sched != nil {
		a.appliedAt = append(a.appliedAt, a.sched.Now())
	}
	if a.apply != nil {
		return a.apply(s, v)
	}
	return nil
}

func (a *testAdapter) data() []any {
	out := make([]any, 0, len(a.applied))
	for _, v := range a.applied {
		out = append(out, v.Data)
	}
	return out
}

type recorder struct {
	sorts   []SortStats
	flushes []FlushStats
}

func (r *recorder) Sorted(s SortStats)   { r.sorts = append(r.sorts, s) }
func (r *recorder) Flushed(s FlushStats) { r.flushes = append(r.flushes, s) }

type fixture struct {
	g    *Graph
	m    *scheduler.Manual
	rec  *recorder
	logs *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	m := scheduler.NewManual(epoch)
	rec := &recorder{}
	g := New(ctx, WithScheduler(m), WithObserver(rec))
	return &fixture{g: g, m: m, rec: rec, logs: logs}
}

func (f *fixture) edge(t *testing.T, src, dst VertexID, e Edge) EdgeID {
	t.Helper()
	id, err := f.g.AddEdge(src, dst, e)
	if err != nil {
		t.Fatalf("AddEdge(%d, %d): %v", src, dst, err)
	}
	return id
}

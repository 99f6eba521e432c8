package graph

import "time"

// Target is anything a pending value can be attributed to: a component, one
// of its concrete instances, a view element. Values on a vertex are keyed by
// TargetID, so two targets with the same id are the same target.
type Target interface {
	TargetID() uint64
}

// Value is one pending (target, data) pair on a vertex.
type Value struct {
	Target Target
	Data   any
}

// Owner is the static declaration that a property or event vertex belongs to.
type Owner interface {
	Target

	// Conforms reports whether t is the owner itself, a declaration derived
	// from it, or a concrete rendering of either.
	Conforms(t Target) bool

	// Label names the owner in dumps and logs.
	Label() string
}

// Scope is the runtime resolution of an adapter for one propagated input.
//
// A concrete scope resolves to exactly one runtime target. A static scope was
// entered from a declaration rather than from a rendering, and fans out over
// the concrete renderings listed by Concretes.
type Scope interface {
	// Target keys the value pushed onto the edge's destination.
	Target() Target

	// Concrete reports whether Target is a concrete runtime object.
	Concrete() bool

	// Concretes lists the renderings a static scope fans out to.
	Concretes() []Target
}

// Adapter supplies the behavior of an AdapterEdge. Any method may return
// ErrCancel to drop the current value without logging.
type Adapter interface {
	Label() string

	// EnterScope resolves the runtime scope for an input target.
	EnterScope(in Target) (Scope, error)

	// Match filters the input before any value is computed.
	Match(s Scope, in any) (bool, error)

	// Value transforms the input into the value pushed downstream.
	Value(s Scope, in any) (any, error)

	// Apply performs the side effect for a delivered value. It must not
	// request a flush.
	Apply(s Scope, v any) error

	// Static reports whether a value computed for a static scope is shared
	// by all of its concretes.
	Static() bool

	// Delay returns a non-negative delay for a delayed edge, or NoDelay.
	Delay() time.Duration
}

// Labeler is implemented by declarations that appear in dumps.
type Labeler interface {
	Label() string
}

// Observer is notified after each sort and each flush pass. Observers run on
// the graph's thread and must not mutate the graph.
type Observer interface {
	Sorted(SortStats)
	Flushed(FlushStats)
}

// SortStats describes one Sort run that actually recomputed the order.
type SortStats struct {
	Edges     int
	Delayed   int
	Remaining int
	Duration  time.Duration
}

// FlushStats describes one completed flush pass. Cyclic is set when the pass
// ran over a partial order because the graph holds a cycle.
type FlushStats struct {
	Seq       uint64
	Callbacks int
	Traversed int
	Values    int
	Failures  int
	Deferred  int
	Cyclic    bool
	Duration  time.Duration
}

// Priority orders edges entering the same vertex. Only the relative order of
// the predefined priorities is meaningful.
type Priority int

const (
	PriorityInherit Priority = -2
	PriorityInit    Priority = -1
	PriorityAdapter Priority = 0
	PriorityCloned  Priority = 1
)

// NoDelay marks an edge that applies its values synchronously.
const NoDelay time.Duration = -1

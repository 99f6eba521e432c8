// Package graph implements the watch graph: the reactive dependency engine
// that moves property and event changes from where they happen to every
// binding that observes them.
//
// # Model
//
// The Graph owns every Vertex and Edge in arenas addressed by VertexID and
// EdgeID. A vertex holds pending values keyed by target identity; an edge
// knows how to carry those values to its destination.
//
//	  PropertyVertex ──AdapterEdge(get)──▶ WatchVertex ──AdapterEdge(set)──▶ PropertyVertex
//	        │                                                                      ▲
//	        └──────────────InheritEdge (base vertex to derived vertex)─────────────┘
//
// Every edge has a destination. An edge created without one is attached to
// the Vortex, the graph's sink, which drops whatever it receives.
//
// # Sorting
//
// Sort orders all edges from sources towards sinks (a reverse Kahn walk that
// starts at the sinks). Edges that enter the same vertex are ordered by
// descending Priority, so cloned bindings of a derived owner run before the
// plain bindings of its base, which run before init edges and inherit edges.
// Delayed edges are placed last: their effect is driven by timers rather than
// by position. A cycle is reported as ErrCycle and the resolved prefix is kept.
//
// # Flushing
//
// Flush requests coalesce into one pass per scheduler tick. A pass runs any
// queued pre-flush callbacks, sorts if the topology changed, traverses every
// edge once in sorted order and finally clears the values of every vertex.
// Vertices and edges created during a pass only take part in the next one.
//
// Adapter callbacks never abort a pass. An error or a panic stops the value
// that caused it and is logged as a warning; ErrCancel stops it silently.
//
// # Threading
//
// A Graph is not safe for concurrent use. All calls, including the callbacks
// run by its scheduler.Scheduler, must happen on one logical thread.
package graph

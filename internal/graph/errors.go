package graph

import "errors"

var (
	// ErrCycle is returned by Sort when some vertices could not be ordered.
	ErrCycle = errors.New("watch graph has a cycle")

	// ErrCancel can be returned by adapter callbacks to drop a value silently.
	ErrCancel = errors.New("propagation cancelled")

	ErrUnknownVertex = errors.New("unknown vertex")
	ErrUnknownEdge   = errors.New("unknown edge")
	ErrVortexSource  = errors.New("the vortex cannot be the source of an edge")
	ErrEdgeInUse     = errors.New("edge is already in a graph")
)

// Package component is the domain layer on top of the watch graph: components
// and their concrete instances, the view elements they render, and the
// watches that bind them together.
//
// A Component is a static declaration. It declares properties, owns watches
// and view elements, may embed child components and may be derived from a
// base component. Rendering a component creates an Instance: a concrete
// rendering with its own property values and its own clones (Nodes) of every
// element in the view of the component and of its bases.
//
// Each Watch lists Get adapters (inputs) and Set adapters (outputs). Rendering
// a watch adds a WatchVertex to the graph with one AdapterEdge per adapter.
// Every component also owns an init watch that sets declared initial property
// values through the graph, exactly like a runtime change would.
//
// Writes made through Instance.Set are user-driven and request a flush.
// Writes made by SetProperty adapters during a flush are silent and never
// re-enter the graph.
package component

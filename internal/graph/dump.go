package graph

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// VertexInfo describes one vertex in a Dump.
type VertexInfo struct {
	ID     VertexID `json:"id" yaml:"id"`
	Kind   string   `json:"kind" yaml:"kind"`
	Label  string   `json:"label" yaml:"label"`
	Values int      `json:"values,omitempty" yaml:"values,omitempty"`
}

// EdgeInfo describes one edge in a Dump. Index is the 1-based position in
// the sorted order, or 0 if the edge was added after the last sort.
type EdgeInfo struct {
	ID       EdgeID   `json:"id" yaml:"id"`
	Index    int      `json:"index" yaml:"index"`
	Kind     string   `json:"kind" yaml:"kind"`
	Label    string   `json:"label,omitempty" yaml:"label,omitempty"`
	Source   VertexID `json:"source" yaml:"source"`
	Dest     VertexID `json:"dest" yaml:"dest"`
	Priority Priority `json:"priority" yaml:"priority"`
	Delay    string   `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// Dump is a structured snapshot of a graph, used for inspection and tests.
type Dump struct {
	Sorted   bool         `json:"sorted" yaml:"sorted"`
	Vertices []VertexInfo `json:"vertices" yaml:"vertices"`
	Edges    []EdgeInfo   `json:"edges" yaml:"edges"`
}

// Dump snapshots the graph. Vertices are listed in creation order. Edges are
// listed in sorted order, followed by any edge added since the last sort in
// creation order.
func (g *Graph) Dump() Dump {
	d := Dump{Sorted: !g.unsorted}
	for _, v := range g.Vertices() {
		d.Vertices = append(d.Vertices, VertexInfo{
			ID:     v.ID(),
			Kind:   v.Kind(),
			Label:  v.Label(),
			Values: len(v.base().values),
		})
	}

	var rest []EdgeID
	for id := range g.edges {
		if _, ok := g.position[id]; !ok {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	for _, id := range append(slices.Clone(g.sorted), rest...) {
		e := g.edges[id]
		info := EdgeInfo{
			ID:       id,
			Index:    g.edgeIndex(id),
			Kind:     e.Kind(),
			Label:    e.Label(),
			Source:   e.Source(),
			Dest:     e.Dest(),
			Priority: e.Priority(),
		}
		if delayed(e) {
			info.Delay = e.Delay().String()
		}
		d.Edges = append(d.Edges, info)
	}
	return d
}

// Graphviz renders the dump in the dot language. Vertices are named v<id>;
// watch vertices are squares and the vortex a double circle, commented out
// when nothing flows into it. Edge labels are sort indices.
func (d Dump) Graphviz() string {
	var b strings.Builder
	b.WriteString("digraph watchgraph {\n")
	b.WriteString("  node [fontname=\"Inconsolata\"];\n")
	b.WriteString("  edge [fontname=\"Inconsolata\"];\n")

	into := make(map[VertexID]int)
	for _, e := range d.Edges {
		into[e.Dest]++
	}
	for _, v := range d.Vertices {
		name := fmt.Sprintf("v%d", v.ID)
		switch v.Kind {
		case "vortex":
			comment := ""
			if into[v.ID] == 0 {
				comment = "// "
			}
			fmt.Fprintf(&b, "  %s%s [label=\"\",shape=doublecircle];\n", comment, name)
		case "watch":
			fmt.Fprintf(&b, "  %s [label=\"%d\",shape=square,fixedsize=true,width=0.3,tooltip=%q];\n", name, v.ID, v.Label)
		case "event":
			fmt.Fprintf(&b, "  %s [label=%q,shape=septagon];\n", name, fmt.Sprintf("%s/%d", v.Label, v.ID))
		default:
			fmt.Fprintf(&b, "  %s [label=%q];\n", name, fmt.Sprintf("%s/%d", v.Label, v.ID))
		}
	}
	for _, e := range d.Edges {
		attrs := []string{fmt.Sprintf("label=\"%d\"", e.Index)}
		switch {
		case e.Delay != "":
			attrs = append(attrs, "style=dashed")
		case e.Kind == "inherit":
			attrs = append(attrs, "style=dotted")
		case e.Kind == "inert":
			attrs = append(attrs, "color=gray")
		}
		fmt.Fprintf(&b, "  v%d -> v%d [%s];\n", e.Source, e.Dest, strings.Join(attrs, ","))
	}
	b.WriteString("}\n")
	return b.String()
}

// YAML renders the dump as YAML.
func (d Dump) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// JSON renders the dump as indented JSON.
func (d Dump) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

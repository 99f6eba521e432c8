package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sort computes the traversal order of the edges if the topology changed
// since the last call. Delayed edges seed the result and end up last; every
// other edge is discovered from the sinks backwards, one vertex at a time,
// with the incoming edges of a vertex ordered by descending priority and the
// whole group prepended to the result.
//
// If some vertices are left with unresolved outgoing edges the graph has a
// cycle: Sort logs the remaining vertices, keeps the resolved order and
// returns an error wrapping ErrCycle. The result is memoized either way.
func (g *Graph) Sort() error {
	if !g.unsorted {
		return g.sortErr
	}
	g.unsorted = false
	start := time.Now()

	var delayedEdges []EdgeID
	out := make(map[VertexID]int, len(g.order))
	var queue []VertexID
	for _, vid := range g.order {
		n := 0
		for _, eid := range g.vertices[vid].base().outgoing {
			if delayed(g.edges[eid]) {
				delayedEdges = append(delayedEdges, eid)
			} else {
				n++
			}
		}
		out[vid] = n
		if n == 0 {
			queue = append(queue, vid)
		}
	}

	result := delayedEdges
	for len(queue) > 0 {
		vid := queue[0]
		queue = queue[1:]
		var group []Edge
		for _, eid := range g.vertices[vid].base().incoming {
			e := g.edges[eid]
			if delayed(e) {
				continue
			}
			group = append(group, e)
			out[e.Source()]--
			if out[e.Source()] == 0 {
				queue = append(queue, e.Source())
			}
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Priority() > group[j].Priority()
		})
		ids := make([]EdgeID, 0, len(group)+len(result))
		for _, e := range group {
			ids = append(ids, e.ID())
		}
		result = append(ids, result...)
	}

	var remaining []string
	for _, vid := range g.order {
		if out[vid] != 0 {
			remaining = append(remaining, g.vertices[vid].Label())
		}
	}

	g.sorted = result
	g.reindex()
	g.sortErr = nil
	if len(remaining) > 0 {
		g.sortErr = fmt.Errorf("%w: remaining vertices %s", ErrCycle, strings.Join(remaining, ", "))
		g.logger.Error("Could not sort the watch graph.", "remaining", remaining, "sorted_edges", len(result), "edges", len(g.edges))
	}

	stats := SortStats{
		Edges:     len(result),
		Delayed:   len(delayedEdges),
		Remaining: len(remaining),
		Duration:  time.Since(start),
	}
	g.logger.Debug("Watch graph sorted.", "edges", stats.Edges, "delayed", stats.Delayed, "duration", stats.Duration)
	for _, o := range g.observers {
		o.Sorted(stats)
	}
	return g.sortErr
}

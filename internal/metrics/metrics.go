// Package metrics exports watch graph activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/watchgraph/internal/graph"
)

// Collector implements graph.Observer and records every sort and flush.
type Collector struct {
	flushesTotal         prometheus.Counter
	flushDurationSeconds prometheus.Histogram
	edgesTraversedTotal  prometheus.Counter
	valuesDeliveredTotal prometheus.Counter
	edgeFailuresTotal    prometheus.Counter
	deferredPushesTotal  prometheus.Counter
	flushCallbacksTotal  prometheus.Counter
	cyclicFlushesTotal   prometheus.Counter
	sortsTotal           *prometheus.CounterVec
	sortDurationSeconds  prometheus.Histogram
	sortedEdges          prometheus.Gauge
	delayedEdges         prometheus.Gauge
	cycleVertices        prometheus.Gauge
}

// New creates a collector. Register it before use.
func New() *Collector {
	return &Collector{
		flushesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watchgraph_flushes_total",
				Help: "Total number of completed flush passes",
			},
		),
		flushDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "watchgraph_flush_duration_seconds",
				Help:    "Duration of flush passes in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		edgesTraversedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watchgraph_edges_traversed_total",
				Help: "Total number of edge traversals across flush passes",
			},
		),
		valuesDeliveredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watchgraph_values_delivered_total",
				Help: "Total number of values delivered by adapter edges",
			},
		),
		edgeFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watchgraph_edge_failures_total",
				Help: "Total number of contained traversal failures",
			},
		),
		deferredPushesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watchgraph_deferred_pushes_total",
				Help: "Total number of user writes deferred to the next flush",
			},
		),
		flushCallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watchgraph_flush_callbacks_total",
				Help: "Total number of pre-flush callbacks run, delayed edge batches included",
			},
		),
		cyclicFlushesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watchgraph_cyclic_flushes_total",
				Help: "Total number of flush passes run over a graph holding a cycle",
			},
		),
		sortsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchgraph_sorts_total",
				Help: "Total number of graph sorts per result",
			},
			[]string{"result"},
		),
		sortDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "watchgraph_sort_duration_seconds",
				Help:    "Duration of graph sorts in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		sortedEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "watchgraph_sorted_edges",
				Help: "Number of edges in the last sorted order",
			},
		),
		delayedEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "watchgraph_delayed_edges",
				Help: "Number of delayed edges in the last sorted order",
			},
		),
		cycleVertices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "watchgraph_cycle_vertices",
				Help: "Number of vertices left on a cycle by the last sort",
			},
		),
	}
}

// Register registers every metric of c with reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.flushesTotal,
		c.flushDurationSeconds,
		c.edgesTraversedTotal,
		c.valuesDeliveredTotal,
		c.edgeFailuresTotal,
		c.deferredPushesTotal,
		c.flushCallbacksTotal,
		c.cyclicFlushesTotal,
		c.sortsTotal,
		c.sortDurationSeconds,
		c.sortedEdges,
		c.delayedEdges,
		c.cycleVertices,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Sorted implements graph.Observer.
func (c *Collector) Sorted(s graph.SortStats) {
	result := "ok"
	if s.Remaining > 0 {
		result = "cycle"
	}
	c.sortsTotal.WithLabelValues(result).Inc()
	c.sortDurationSeconds.Observe(s.Duration.Seconds())
	c.sortedEdges.Set(float64(s.Edges))
	c.delayedEdges.Set(float64(s.Delayed))
	c.cycleVertices.Set(float64(s.Remaining))
}

// Flushed implements graph.Observer.
func (c *Collector) Flushed(s graph.FlushStats) {
	c.flushesTotal.Inc()
	c.flushDurationSeconds.Observe(s.Duration.Seconds())
	c.edgesTraversedTotal.Add(float64(s.Traversed))
	c.valuesDeliveredTotal.Add(float64(s.Values))
	c.edgeFailuresTotal.Add(float64(s.Failures))
	c.deferredPushesTotal.Add(float64(s.Deferred))
	c.flushCallbacksTotal.Add(float64(s.Callbacks))
	if s.Cyclic {
		c.cyclicFlushesTotal.Inc()
	}
}

var _ graph.Observer = (*Collector)(nil)

package tracer

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const workerLabel = "worker"

var (
	queriesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sunray_queries_completed",
		Help: "The number of ray queries traced to completion.",
	})

	queryForwards = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sunray_query_forwards",
		Help: "The number of queries a worker suspended and forwarded to the owner of a mesh.",
	}, []string{
		workerLabel,
	})

	queryHops = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sunray_query_hops",
		Help:    "The number of times a query moved between workers before completing.",
		Buckets: prometheus.LinearBuckets(0, 1, 10),
	})

	queryNodeTests = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sunray_query_node_tests",
		Help:    "The number of scene index node tests performed by a completed query.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	traceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sunray_trace_latency",
		Help: "The time to trace a batch of rays.",
	})
)

func instrumentQueryDone(q *Query) {
	queriesCompleted.Inc()
	queryHops.Observe(float64(q.Hops))
	queryNodeTests.Observe(float64(q.Cursor.NodeTests))
}

func instrumentForward(worker uint32) {
	queryForwards.With(prometheus.Labels{
		workerLabel: strconv.FormatUint(uint64(worker), 10),
	}).Inc()
}

func instrumentTraceLatency(start time.Time) {
	traceLatency.Observe(time.Since(start).Seconds())
}

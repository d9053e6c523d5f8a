package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	IndexBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "packsense_index_build_seconds",
		Help:    "Time spent building a pack symbol index.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	IndexBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packsense_index_builds_total",
		Help: "Total number of pack index builds by outcome.",
	}, []string{"result"})

	IndexCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packsense_index_cache_requests_total",
		Help: "Pack index lookups by cache outcome (hit, miss, shared, stale).",
	}, []string{"outcome"})

	IndexSymbols = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "packsense_index_symbols",
		Help: "Distinct symbol names in the most recent index of a scope.",
	}, []string{"scope"})

	IndexInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packsense_index_invalidations_total",
		Help: "Pack index invalidations by trigger.",
	}, []string{"trigger"})

	PackFilesScannedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packsense_pack_files_scanned_total",
		Help: "Pack files scanned during index builds, by source (disk, store).",
	}, []string{"source"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "packsense_query_seconds",
		Help:    "Latency of symbol queries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	QueryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packsense_query_failures_total",
		Help: "Symbol queries that fell back to an empty result.",
	}, []string{"query"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packsense_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ToolRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packsense_tool_requests_total",
		Help: "Tool server requests by operation and status.",
	}, []string{"operation", "status"})
)

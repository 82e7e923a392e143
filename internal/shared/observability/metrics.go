package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	TagsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xplore_tags_loaded",
		Help: "Number of tags in the current tag store snapshot.",
	})

	TagFeedDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xplore_tag_feed_dropped_lines_total",
		Help: "Total number of malformed tag feed lines skipped while loading.",
	})

	TagLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xplore_tag_load_seconds",
		Help:    "Time spent parsing and indexing a tag feed.",
		Buckets: prometheus.DefBuckets,
	})

	TagLoadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xplore_tag_load_failures_total",
		Help: "Total number of tag feed loads that failed before a snapshot was built.",
	})

	TreeFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xplore_tree_files",
		Help: "Number of files in the current file tree snapshot.",
	})

	NavigationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xplore_navigation_requests_total",
		Help: "Navigation requests by operation and outcome status.",
	}, []string{"operation", "status"})

	NavigationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xplore_navigation_seconds",
		Help:    "Time spent answering a navigation request.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	ReferenceSearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xplore_reference_search_seconds",
		Help:    "Time spent scanning files for symbol references.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})

	ContentFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xplore_content_fetches_total",
		Help: "File content fetches by source and result.",
	}, []string{"source", "result"})

	ContentCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xplore_content_cache_hits_total",
		Help: "Total number of file content requests served from cache.",
	})

	StaleResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xplore_stale_results_total",
		Help: "Async completions discarded because a newer request superseded them.",
	}, []string{"operation"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xplore_watcher_events_total",
		Help: "Total number of file system events received by watchers.",
	})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xplore_http_rate_limited_total",
		Help: "Total number of API requests rejected by the per-client limiter.",
	})

	HistoryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xplore_history_queue_depth",
		Help: "Session history writes waiting to be flushed.",
	})

	HistoryWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xplore_history_writes_total",
		Help: "Session history writes by result: saved, coalesced, superseded, direct or failed.",
	}, []string{"result"})
)

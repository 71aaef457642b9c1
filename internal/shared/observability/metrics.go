package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pyshape_parse_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyshape_pass_seconds",
		Help:    "Time spent in one rewrite pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pass"})

	PassOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyshape_pass_outcomes_total",
		Help: "Pass results by outcome: changed, unchanged, skipped or discarded.",
	}, []string{"pass", "outcome"})

	FilesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyshape_files_total",
		Help: "Files handled by the driver, by result.",
	}, []string{"result"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyshape_cache_hits_total",
		Help: "Files skipped because the clean-file cache matched.",
	})

	ExternalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyshape_external_seconds",
		Help:    "Wall time of external formatter invocations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyshape_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// Pass outcome labels.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
	OutcomeDiscarded = "discarded"
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Queries
	QueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseprep_queries_total",
		Help: "Total number of nearest-neighbor queries received",
	})

	EmptyResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseprep_query_empty_results_total",
		Help: "Queries whose scope had no matching candidates",
	})

	QueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseprep_query_errors_total",
		Help: "Failed queries by error kind",
	}, []string{"kind"})

	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "caseprep_query_duration_seconds",
		Help:    "Time taken to embed, search and filter one query",
		Buckets: prometheus.DefBuckets,
	})

	// Resource loading
	ResourceLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseprep_resource_loads_total",
		Help: "Lazy resource initializations by resource and outcome",
	}, []string{"resource", "outcome"})

	ResourceLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caseprep_resource_load_duration_seconds",
		Help:    "Time taken to read, decrypt and decode a resource",
		Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30},
	}, []string{"resource"})

	// State
	CorpusVectors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "caseprep_corpus_vectors",
		Help: "Number of vectors in the loaded corpus",
	})
)

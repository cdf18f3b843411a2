package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	datasetQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datapeek_dataset_queries_total",
			Help: "Total number of dataset read operations by kind.",
		},
		[]string{"operation"},
	)
	datasetQueryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datapeek_dataset_query_duration_seconds",
			Help:    "Dataset read latency by operation.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
	mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datapeek_mutations_total",
			Help: "Total number of persisted dataset rewrites by operation and file format.",
		},
		[]string{"operation", "format"},
	)
	softDeleteMarksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datapeek_soft_delete_marks_total",
			Help: "Total number of rows marked deleted for the session.",
		},
	)
	softDeleteClearsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datapeek_soft_delete_clears_total",
			Help: "Total number of times the session delete registry was cleared.",
		},
	)
	profileReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datapeek_profile_reports_total",
			Help: "Total number of profiling report requests by outcome.",
		},
		[]string{"outcome"},
	)
	profileBuildDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datapeek_profile_build_duration_seconds",
			Help:    "Wall time spent building profiling reports, cache hits excluded.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	translateRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datapeek_translate_requests_total",
			Help: "Total number of natural-language translation requests by outcome.",
		},
		[]string{"outcome"},
	)
	trackedFiles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datapeek_tracked_files",
			Help: "Current count of browsable dataset files under the data root.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		datasetQueriesTotal,
		datasetQueryDurationSeconds,
		mutationsTotal,
		softDeleteMarksTotal,
		softDeleteClearsTotal,
		profileReportsTotal,
		profileBuildDurationSeconds,
		translateRequestsTotal,
		trackedFiles,
	)
}

func ObserveDatasetQuery(operation string, elapsed time.Duration) {
	datasetQueriesTotal.WithLabelValues(operation).Inc()
	datasetQueryDurationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func ObserveMutation(operation, format string) {
	mutationsTotal.WithLabelValues(operation, format).Inc()
}

func IncrementSoftDeleteMark() {
	softDeleteMarksTotal.Inc()
}

func IncrementSoftDeleteClear() {
	softDeleteClearsTotal.Inc()
}

func ObserveProfileReport(cached bool, elapsed time.Duration) {
	if cached {
		profileReportsTotal.WithLabelValues("cached").Inc()
		return
	}
	profileReportsTotal.WithLabelValues("built").Inc()
	profileBuildDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveTranslate(ok bool) {
	if ok {
		translateRequestsTotal.WithLabelValues("ok").Inc()
	} else {
		translateRequestsTotal.WithLabelValues("error").Inc()
	}
}

func SetTrackedFiles(count int) {
	if count < 0 {
		count = 0
	}
	trackedFiles.Set(float64(count))
}

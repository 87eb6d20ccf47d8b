// Package metrics exposes Prometheus collectors for the dubbing pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dubber_jobs_submitted_total",
		Help: "Jobs accepted for processing, by kind (short, long)",
	}, []string{"kind"})

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dubber_jobs_finished_total",
		Help: "Jobs that reached a terminal state, by status",
	}, []string{"status"})

	jobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dubber_jobs_active",
		Help: "Jobs currently processing",
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dubber_stage_duration_seconds",
		Help:    "Pipeline stage duration",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"stage"})

	stageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dubber_stage_errors_total",
		Help: "Pipeline stage failures",
	}, []string{"stage"})

	chunksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dubber_chunks_processed_total",
		Help: "Chunks run through the pipeline, by result",
	}, []string{"result"})

	translationFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dubber_translation_fallback_total",
		Help: "Translations served by the secondary backend after the primary failed",
	}, []string{"secondary"})

	janitorErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dubber_janitor_errors_total",
		Help: "Artifact deletions that failed",
	})

	jobsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dubber_jobs_swept_total",
		Help: "Expired job records removed by the retention sweep",
	})
)

func IncJobSubmitted(kind string) { jobsSubmitted.WithLabelValues(kind).Inc() }

func IncJobFinished(status string) { jobsFinished.WithLabelValues(status).Inc() }

func IncActiveJobs() { jobsActive.Inc() }

func DecActiveJobs() { jobsActive.Dec() }

// ObserveStage records the duration of a pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func IncStageError(stage string) { stageErrors.WithLabelValues(stage).Inc() }

func IncChunk(result string) { chunksProcessed.WithLabelValues(result).Inc() }

func IncTranslationFallback(secondary string) {
	translationFallbacks.WithLabelValues(secondary).Inc()
}

func IncJanitorError() { janitorErrors.Inc() }

func AddJobsSwept(n int) { jobsSwept.Add(float64(n)) }

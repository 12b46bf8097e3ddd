// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_attempts_total",
			Help: "Total number of transport attempts made by the pipeline",
		},
		[]string{"task_type"},
	)

	PipelineOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_outcomes_total",
			Help: "Total number of pipeline runs by terminal outcome",
		},
		[]string{"task_type", "status"},
	)

	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_failures_total",
			Help: "Total number of failed pipeline runs by failure kind",
		},
		[]string{"task_type", "failure_kind"},
	)

	PipelineDegradedFields = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_degraded_fields_total",
			Help: "Total number of result fields filled from default generators",
		},
		[]string{"task_type"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_run_duration_seconds",
			Help: "Duration of complete pipeline runs in seconds",
		},
		[]string{"task_type"},
	)

	PipelineActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_runs_active",
			Help: "Number of pipeline runs currently in flight",
		},
		[]string{"task_type"},
	)
)

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline and case store metrics.
var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by mode and terminal status",
		},
		[]string{"mode", "status"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode", "stage"},
	)

	PipelineActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_active",
			Help:      "Pipeline runs currently in flight",
		},
	)

	CaseStoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "casestore_operations_total",
			Help:      "Case store operations by outcome",
		},
		[]string{"op", "status"},
	)
)

func pipelineCollectors() []prometheus.Collector {
	return []prometheus.Collector{PipelineRunsTotal, PipelineStageDuration, PipelineActive, CaseStoreOperationsTotal}
}

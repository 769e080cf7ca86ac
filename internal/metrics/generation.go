package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation backend metrics, labelled by registry tag (openai, deepseek, local, ollama).
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests by outcome",
		},
		[]string{"model_type", "status"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generation request duration in seconds, retries included",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"model_type"},
	)

	GenerationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Individual backend attempts, including retried ones",
		},
		[]string{"model_type", "outcome"},
	)
)

func generationCollectors() []prometheus.Collector {
	return []prometheus.Collector{GenerationRequestsTotal, GenerationDuration, GenerationAttemptsTotal}
}

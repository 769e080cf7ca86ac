package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register registers every collector with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		all := []prometheus.Collector{httpRequestDuration, httpRequestsTotal}
		all = append(all, embeddingCollectors()...)
		all = append(all, generationCollectors()...)
		all = append(all, pipelineCollectors()...)
		prometheus.MustRegister(all...)
	})
}

package health

import (
	"context"

	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	genuc "github.com/kailas-cloud/medscribe/internal/usecase/generation"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// ModelLister describes every generation backend.
type ModelLister interface {
	ListAvailable(ctx context.Context) map[generation.ModelType]genuc.Availability
}

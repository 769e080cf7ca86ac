package generation

import (
	"context"

	"github.com/kailas-cloud/medscribe/internal/domain/generation"
)

// Backend is one text-generation variant.
// Describe returns whatever info it can gather even when err is non-nil.
type Backend interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
	Describe(ctx context.Context) (generation.Info, error)
}

// Describer lists per-backend availability. Implemented by Service.
type Describer interface {
	ListAvailable(ctx context.Context) map[generation.ModelType]Availability
}

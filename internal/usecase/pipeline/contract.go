package pipeline

import (
	"context"

	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
)

// Searcher retrieves similar case documents.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, filters map[string]string) ([]result.Result, error)
}

// Generator is the generation gateway.
type Generator interface {
	Check(t generation.ModelType) error
	Generate(ctx context.Context, t generation.ModelType, req generation.Request) (generation.Result, error)
}

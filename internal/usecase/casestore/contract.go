package casestore

import (
	"context"
	"time"

	"github.com/kailas-cloud/medscribe/internal/domain"
	domdoc "github.com/kailas-cloud/medscribe/internal/domain/document"
	"github.com/kailas-cloud/medscribe/internal/domain/search/filter"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
)

// Repository defines the storage contract for case documents.
type Repository interface {
	Insert(ctx context.Context, doc *domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Document, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Searcher runs nearest-neighbour queries over stored embeddings.
type Searcher interface {
	SearchKNN(ctx context.Context, vector []float32, filters filter.Expression, topK int) ([]result.Result, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// IDGenerator hands out document IDs together with the insertion timestamp.
type IDGenerator interface {
	Next() (string, time.Time)
}

package casestore

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/medscribe/internal/domain"
	domdoc "github.com/kailas-cloud/medscribe/internal/domain/document"
	"github.com/kailas-cloud/medscribe/internal/domain/search/filter"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
)

type mockRepo struct {
	insertFn func(ctx context.Context, doc *domdoc.Document) error
	getFn    func(ctx context.Context, id string) (domdoc.Document, error)
	listFn   func(ctx context.Context) ([]domdoc.Document, error)
	deleteFn func(ctx context.Context, id string) (bool, error)
	inserted []domdoc.Document
}

func (m *mockRepo) Insert(ctx context.Context, doc *domdoc.Document) error {
	if m.insertFn != nil {
		if err := m.insertFn(ctx, doc); err != nil {
			return err
		}
	}
	m.inserted = append(m.inserted, *doc)
	return nil
}

func (m *mockRepo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockRepo) List(ctx context.Context) ([]domdoc.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return m.inserted, nil
}

func (m *mockRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return false, nil
}

type mockSearcher struct {
	searchFn func(ctx context.Context, vector []float32, filters filter.Expression, topK int) ([]result.Result, error)
	calls    int
}

func (m *mockSearcher) SearchKNN(
	ctx context.Context, vector []float32, filters filter.Expression, topK int,
) ([]result.Result, error) {
	m.calls++
	if m.searchFn != nil {
		return m.searchFn(ctx, vector, filters, topK)
	}
	return []result.Result{}, nil
}

type mockEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector}, nil
}

// seqIDs yields doc_1, doc_2, ... with a fixed timestamp.
type seqIDs struct{ n int }

func (g *seqIDs) Next() (string, time.Time) {
	g.n++
	return fmt.Sprintf("doc_%d", g.n), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func newTestService(dim int) (*Service, *mockRepo, *mockSearcher, *mockEmbedder) {
	repo := &mockRepo{}
	searcher := &mockSearcher{}
	emb := &mockEmbedder{vector: make([]float32, dim)}
	for i := range emb.vector {
		emb.vector[i] = 0.1
	}
	svc := New(repo, searcher, emb, Options{
		Dimensions:     dim,
		FilterableKeys: []string{"specialty", "document_type", "date", "diagnoses", "tags"},
	}).WithIDGenerator(&seqIDs{})
	return svc, repo, searcher, emb
}

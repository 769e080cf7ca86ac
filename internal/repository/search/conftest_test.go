package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/medscribe/internal/db"
	docrepo "github.com/kailas-cloud/medscribe/internal/repository/document"
)

type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, docrepo.Layout{
		Prefix:     "medscribe:",
		IndexName:  "medscribe:docs:idx",
		Filterable: []string{"specialty"},
	}), ms
}

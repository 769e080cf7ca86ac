package document

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/medscribe/internal/db"
	domdoc "github.com/kailas-cloud/medscribe/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) (bool, error)
	existsFn       func(ctx context.Context, key string) (bool, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, key string) (bool, error) {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func testLayout() Layout {
	return Layout{
		Prefix:     "medscribe:",
		IndexName:  "medscribe:docs:idx",
		Filterable: []string{"specialty", "diagnoses"},
	}
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testLayout()), ms
}

func testDocument(t *testing.T, id string, addedAt time.Time) domdoc.Document {
	t.Helper()
	md, err := domdoc.NormalizeMetadata(map[string]any{
		"specialty": "Кардиология",
		"diagnoses": []any{"I20.0", "I10"},
		"age":       float64(57),
	})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := domdoc.New(id, "Пациент 57 лет, боль за грудиной", md, addedAt)
	if err != nil {
		t.Fatal(err)
	}
	return doc.WithVector([]float32{0.1, 0.2, 0.3})
}

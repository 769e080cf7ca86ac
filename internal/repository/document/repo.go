package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/medscribe/internal/db"
	"github.com/kailas-cloud/medscribe/internal/domain"
	domdoc "github.com/kailas-cloud/medscribe/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// HNSWConfig holds HNSW index tuning parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements usecase/casestore.Repository on hashes.
type Repo struct {
	store  store
	layout Layout

	// mu serializes existence checks with writes within this process.
	mu sync.Mutex
}

// New creates a document repository.
func New(s store, layout Layout) *Repo {
	return &Repo{store: s, layout: layout}
}

// Layout returns the key and field layout used by the repository.
func (r *Repo) Layout() Layout { return r.layout }

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, dim int, hnsw HNSWConfig) error {
	def, err := r.layout.BuildIndex(dim, hnsw.M, hnsw.EFConstruct)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Insert stores a new document. An existing ID yields domain.ErrAlreadyExists.
func (r *Repo) Insert(ctx context.Context, doc *domdoc.Document) error {
	key := r.layout.Key(doc.ID())
	fields, err := r.layout.EncodeHash(doc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := r.layout.Key(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return r.layout.DecodeHash(id, m)
}

// List returns every stored document ordered by insertion time, then ID.
func (r *Repo) List(ctx context.Context) ([]domdoc.Document, error) {
	keys, err := r.store.Scan(ctx, r.layout.Pattern())
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	if len(keys) == 0 {
		return []domdoc.Document{}, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(keys))
	for i, m := range hashes {
		if len(m) == 0 {
			continue // deleted between SCAN and fetch
		}
		doc, err := r.layout.DecodeHash(r.layout.IDFromKey(keys[i]), m)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(a, b int) bool {
		ta, tb := docs[a].AddedAt(), docs[b].AddedAt()
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return docs[a].ID() < docs[b].ID()
	})
	return docs, nil
}

// Delete removes a document and reports whether it existed.
func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	key := r.layout.Key(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed, err := r.store.Del(ctx, key)
	if err != nil {
		return false, fmt.Errorf("del %s: %w", key, err)
	}
	return removed, nil
}

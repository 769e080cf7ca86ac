package casestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/medscribe/internal/domain"
	domdoc "github.com/kailas-cloud/medscribe/internal/domain/document"
	"github.com/kailas-cloud/medscribe/internal/domain/search/filter"
	"github.com/kailas-cloud/medscribe/internal/domain/search/request"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
	"github.com/kailas-cloud/medscribe/internal/metrics"
)

// maxIDAttempts bounds retries when a generated ID is already taken.
const maxIDAttempts = 3

// Options configures the case store.
type Options struct {
	// Dimensions is the expected embedding size; 0 disables the check.
	Dimensions int
	// FilterableKeys lists metadata keys accepted in search filters.
	FilterableKeys []string
}

// Service is the document store: it embeds content on write and queries on search.
type Service struct {
	repo     Repository
	searcher Searcher
	embed    Embedder
	ids      IDGenerator
	opts     Options
}

// New creates a case store service.
func New(repo Repository, searcher Searcher, embed Embedder, opts Options) *Service {
	return &Service{
		repo:     repo,
		searcher: searcher,
		embed:    embed,
		ids:      domdoc.NewIDGenerator(),
		opts:     opts,
	}
}

// WithIDGenerator replaces the ID source.
func (s *Service) WithIDGenerator(g IDGenerator) *Service {
	s.ids = g
	return s
}

// Add embeds and stores a document, returning it with its assigned ID.
// The ID is only returned after the write succeeded.
func (s *Service) Add(ctx context.Context, content string, rawMetadata map[string]any) (domdoc.Document, error) {
	doc, err := s.add(ctx, content, rawMetadata)
	observe("add", err)
	return doc, err
}

func (s *Service) add(ctx context.Context, content string, rawMetadata map[string]any) (domdoc.Document, error) {
	if strings.TrimSpace(content) == "" {
		return domdoc.Document{}, fmt.Errorf("content is required: %w", domain.ErrInvalidRequest)
	}
	if len(content) > domdoc.MaxContentSize {
		return domdoc.Document{}, fmt.Errorf(
			"content too large (max %d bytes): %w", domdoc.MaxContentSize, domain.ErrInvalidRequest,
		)
	}

	md, err := domdoc.NormalizeMetadata(rawMetadata)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	vector, err := s.vectorize(ctx, content)
	if err != nil {
		return domdoc.Document{}, err
	}

	for range maxIDAttempts {
		id, addedAt := s.ids.Next()
		doc, err := domdoc.New(id, content, md, addedAt)
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		doc = doc.WithVector(vector)

		err = s.repo.Insert(ctx, &doc)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return domdoc.Document{}, fmt.Errorf("insert document: %w: %w", domain.ErrStoreWrite, err)
		}
	}

	return domdoc.Document{}, fmt.Errorf(
		"no free document id after %d attempts: %w", maxIDAttempts, domain.ErrStoreWrite,
	)
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns every stored document in insertion order.
func (s *Service) List(ctx context.Context) ([]domdoc.Document, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w: %w", domain.ErrRetrieval, err)
	}
	return docs, nil
}

// Delete removes a document. Unknown IDs yield false, not an error.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.repo.Delete(ctx, id)
	observe("delete", err)
	if err != nil {
		return false, fmt.Errorf("delete document: %w: %w", domain.ErrStoreWrite, err)
	}
	return removed, nil
}

// Search embeds query and returns up to topK documents matching every filter entry,
// most similar first. Parameters are validated before anything is embedded.
func (s *Service) Search(
	ctx context.Context, query string, topK int, filters map[string]string,
) ([]result.Result, error) {
	res, err := s.search(ctx, query, topK, filters)
	observe("search", err)
	return res, err
}

func (s *Service) search(
	ctx context.Context, query string, topK int, filters map[string]string,
) ([]result.Result, error) {
	expr, err := s.buildFilter(filters)
	if err != nil {
		return nil, err
	}

	req, err := request.New(query, topK, expr)
	if err != nil {
		return nil, err
	}

	vector, err := s.vectorize(ctx, req.Query())
	if err != nil {
		return nil, err
	}

	results, err := s.searcher.SearchKNN(ctx, vector, req.Filters(), req.TopK())
	if err != nil {
		return nil, fmt.Errorf("search documents: %w: %w", domain.ErrRetrieval, err)
	}
	return results, nil
}

func (s *Service) buildFilter(filters map[string]string) (filter.Expression, error) {
	for k := range filters {
		if !s.isFilterable(k) {
			return filter.Expression{}, fmt.Errorf(
				"metadata key %q is not filterable (allowed: %s): %w",
				k, strings.Join(s.opts.FilterableKeys, ", "), domain.ErrInvalidRequest,
			)
		}
	}
	expr, err := filter.FromMap(filters)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return expr, nil
}

func (s *Service) isFilterable(key string) bool {
	for _, k := range s.opts.FilterableKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (s *Service) vectorize(ctx context.Context, text string) ([]float32, error) {
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrEmbedding) {
			return nil, fmt.Errorf("vectorize: %w", err)
		}
		return nil, fmt.Errorf("vectorize: %w: %w", domain.ErrEmbedding, err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding: %w", domain.ErrEmbedding)
	}
	if s.opts.Dimensions > 0 && len(res.Embedding) != s.opts.Dimensions {
		return nil, fmt.Errorf(
			"vector dimension mismatch: got %d, want %d: %w",
			len(res.Embedding), s.opts.Dimensions, domain.ErrEmbedding,
		)
	}
	return res.Embedding, nil
}

func observe(op string, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidRequest):
		status = "invalid"
	default:
		status = "error"
	}
	metrics.CaseStoreOperationsTotal.WithLabelValues(op, status).Inc()
}

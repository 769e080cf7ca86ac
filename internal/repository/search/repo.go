package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/medscribe/internal/db"
	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/search/filter"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
	docrepo "github.com/kailas-cloud/medscribe/internal/repository/document"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

var returnFields = []string{docrepo.FieldContent, docrepo.FieldMetadata, docrepo.FieldAddedAt}

// Repo implements usecase/casestore.Searcher.
type Repo struct {
	store  store
	layout docrepo.Layout
}

// New creates a search repository over the same layout the document repository writes.
func New(s store, layout docrepo.Layout) *Repo {
	return &Repo{store: s, layout: layout}
}

// SearchKNN returns the topK nearest documents. Filter keys are metadata keys; they are
// translated to their indexed tag fields here. A key without a tag field is rejected
// before the store is queried.
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, filters filter.Expression, topK int,
) ([]result.Result, error) {
	tagFilters, err := r.tagFilters(filters)
	if err != nil {
		return nil, err
	}

	q := &db.KNNQuery{
		IndexName:    r.layout.IndexName,
		Filters:      tagFilters,
		Vector:       vector,
		K:            topK,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.layout.IndexName, err)
	}

	return r.parseKNNResults(sr)
}

func (r *Repo) tagFilters(filters filter.Expression) (filter.Expression, error) {
	if filters.IsEmpty() {
		return filters, nil
	}
	conds := make([]filter.Condition, 0, len(filters.Must()))
	for _, c := range filters.Must() {
		if !r.layout.IsFilterable(c.Key()) {
			return filter.Expression{}, fmt.Errorf("metadata key %q has no tag field: %w", c.Key(), domain.ErrInvalidRequest)
		}
		tc, err := filter.NewMatch(r.layout.TagField(c.Key()), c.Match())
		if err != nil {
			return filter.Expression{}, err
		}
		conds = append(conds, tc)
	}
	return filter.NewExpression(conds)
}

func (r *Repo) parseKNNResults(sr *db.SearchResult) ([]result.Result, error) {
	if sr == nil || len(sr.Entries) == 0 {
		return []result.Result{}, nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc, err := r.layout.DecodeHash(r.layout.IDFromKey(entry.Key), entry.Fields)
		if err != nil {
			return nil, err
		}
		results = append(results, result.New(doc, entry.Score))
	}
	return results, nil
}

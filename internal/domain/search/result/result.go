package result

import "github.com/kailas-cloud/medscribe/internal/domain/document"

// Result is a single search hit. Similarity is in [0, 1], higher is closer.
type Result struct {
	doc        document.Document
	similarity float64
}

// New creates a search result.
func New(doc document.Document, similarity float64) Result {
	return Result{doc: doc, similarity: similarity}
}

// Document returns the matched case document.
func (r *Result) Document() document.Document { return r.doc }

// Similarity returns 1 - cosine distance, clamped to [0, 1].
func (r *Result) Similarity() float64 { return r.similarity }

package db

import "github.com/kailas-cloud/medscribe/internal/domain/search/filter"

// DefaultVectorField is the attribute name KNN queries target when VectorField is empty.
const DefaultVectorField = "vector"

// KNNQuery is the input for vector similarity search.
// Filters are TAG pre-filters applied before ranking.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
// Entries are ordered by Score descending.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is cosine similarity: max(0, 1 - distance).
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// ScoreFromDistance converts a COSINE distance into the similarity reported to callers.
func ScoreFromDistance(d float64) float64 {
	return max(0, 1.0-d)
}

package request

import (
	"fmt"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 163840
	DefaultTopK    = 3
	MinTopK        = 1
	MaxTopK        = 10
)

// Request is a validated similarity search query.
type Request struct {
	query   string
	filters filter.Expression
	topK    int
}

// New validates search parameters. top_k outside [MinTopK, MaxTopK] is rejected, not clamped.
func New(query string, topK int, filters filter.Expression) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d bytes): %w", MaxQueryLength, domain.ErrInvalidRequest)
	}
	if err := ValidateTopK(topK); err != nil {
		return Request{}, err
	}
	return Request{query: query, filters: filters, topK: topK}, nil
}

// ValidateTopK reports whether topK is within the accepted bounds.
func ValidateTopK(topK int) error {
	if topK < MinTopK || topK > MaxTopK {
		return fmt.Errorf("top_k must be between %d and %d, got %d: %w", MinTopK, MaxTopK, topK, domain.ErrInvalidRequest)
	}
	return nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// TopK returns the number of nearest neighbours to retrieve.
func (r *Request) TopK() int { return r.topK }

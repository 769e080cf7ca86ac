package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/medscribe/internal/domain"
)

// HashingModel is the model name reported for the hashing embedder.
const HashingModel = "xxhash-trigram"

const (
	wordWeight    = 1.0
	trigramWeight = 0.5
)

// HashingEmbedder is an offline embedder: signed feature hashing of lowercased words and
// their character trigrams, L2-normalized. Texts sharing vocabulary land close under COSINE.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a hashing embedder producing dim-sized vectors.
func NewHashingEmbedder(dim int) (*HashingEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dim)
	}
	return &HashingEmbedder{dim: dim}, nil
}

// Embed implements domain.Embedder.
func (h *HashingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("hashing embed: %w", err)
	}

	words := tokenize(text)
	if len(words) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("text has no word tokens: %w", domain.ErrEmbedding)
	}

	acc := make([]float64, h.dim)
	for _, w := range words {
		h.add(acc, "w:"+w, wordWeight)

		padded := []rune("^" + w + "$")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(acc, "t:"+string(padded[i:i+3]), trigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, h.dim)
	if norm > 0 {
		for i, v := range acc {
			vec[i] = float32(v / norm)
		}
	}

	return domain.EmbeddingResult{Embedding: vec, PromptTokens: len(words), TotalTokens: len(words)}, nil
}

func (h *HashingEmbedder) add(acc []float64, feature string, weight float64) {
	sum := xxhash.Sum64String(feature)
	idx := sum % uint64(h.dim)
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

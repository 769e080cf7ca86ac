package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/metrics"
)

// Embedder is an embedding provider using the OpenAI-compatible embeddings API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. Token usage and error types are recorded here.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		label, cause := classifyEmbedError(err)
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), label).Inc()
		return domain.EmbeddingResult{}, cause
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbedding)
	}
	vec := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "dimension_mismatch").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf(
			"model %s returned %d dimensions, want %d: %w", e.model, len(vec), e.dimensions, domain.ErrEmbedding,
		)
	}

	usage := resp.Usage
	if usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").Add(float64(usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").Add(float64(usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: usage.PromptTokens,
		TotalTokens:  usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classifyEmbedError returns the metric label and err wrapped with domain.ErrEmbedding.
// Context errors stay matchable with errors.Is so callers can tell a deadline from a bad reply.
func classifyEmbedError(err error) (string, error) {
	if errors.Is(err, context.Canceled) {
		return "canceled", fmt.Errorf("embedding request canceled: %w: %w", domain.ErrEmbedding, err)
	}
	if IsTimeout(err) {
		return "timeout", fmt.Errorf("embedding request timed out: %w: %w", domain.ErrEmbedding, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return "api_error", fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, domain.ErrEmbedding)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return "api_error", fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbedding)
	}

	return "transport", fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrEmbedding)
}

// extractDetail extracts the "detail" field from a JSON error body (some OpenAI-compatible gateways use it).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

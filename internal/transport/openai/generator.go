package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
)

// GeneratorConfig holds one hosted chat-completions backend.
type GeneratorConfig struct {
	Type       generation.ModelType
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Generator serves the hosted OpenAI-compatible variants (openai, deepseek).
// It fails fast on the first error.
type Generator struct {
	client  *openai.Client
	typ     generation.ModelType
	model   string
	baseURL string
}

// NewGenerator creates a hosted chat backend.
func NewGenerator(cfg GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	return &Generator{
		client:  openai.NewClientWithConfig(clientCfg),
		typ:     cfg.Type,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
	}
}

// Generate sends one non-streaming chat completion.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, ChatRequest(g.model, req))
	if err != nil {
		return "", ClassifyChatError(string(g.typ), err)
	}
	return ChatContent(string(g.typ), resp)
}

// Describe reports static backend info. Hosted variants are not probed.
func (g *Generator) Describe(context.Context) (generation.Info, error) {
	info := generation.Info{
		Name:    g.model,
		Type:    g.typ,
		IsLocal: false,
		Model:   g.model,
	}
	if g.typ != generation.OpenAI {
		info.APIBase = g.baseURL
	}
	return info, nil
}

// ChatRequest maps a generation request onto a chat completion.
// Only the well-known parameters are forwarded. go-openai omits zero-valued sampling
// fields, so an explicit zero is sent as math.SmallestNonzeroFloat32.
func ChatRequest(model string, req generation.Request) openai.ChatCompletionRequest {
	var msgs []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	out := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
	}

	p := req.Parameters
	if v, ok := p.Float(generation.ParamTemperature); ok {
		out.Temperature = sampling(v)
	}
	if v, ok := p.Int(generation.ParamMaxTokens); ok {
		out.MaxTokens = v
	}
	if v, ok := p.Float(generation.ParamTopP); ok {
		out.TopP = sampling(v)
	}
	if v, ok := p.Float(generation.ParamPresencePenalty); ok {
		out.PresencePenalty = sampling(v)
	}
	if v, ok := p.Float(generation.ParamFrequencyPenalty); ok {
		out.FrequencyPenalty = sampling(v)
	}
	if v, ok := p.Strings(generation.ParamStop); ok {
		out.Stop = v
	}
	if v, ok := p.Int(generation.ParamSeed); ok {
		out.Seed = &v
	}
	if v, ok := p.Int(generation.ParamN); ok {
		out.N = v
	}
	if v, ok := logitBias(p[generation.ParamLogitBias]); ok {
		out.LogitBias = v
	}
	if v, ok := p[generation.ParamUser].(string); ok {
		out.User = v
	}
	return out
}

func sampling(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

// logitBias accepts a token-id to bias map with whole-number values.
func logitBias(raw any) (map[string]int, bool) {
	switch m := raw.(type) {
	case map[string]int:
		return m, len(m) > 0
	case map[string]any:
		out := make(map[string]int, len(m))
		for tok, v := range m {
			n, ok := generation.Parameters{"v": v}.Int("v")
			if !ok {
				return nil, false
			}
			out[tok] = n
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}

// ChatContent extracts the first choice's text. Missing or blank content is ErrGeneration.
func ChatContent(backend string, resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices: %w", backend, domain.ErrGeneration)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s: empty message content: %w", backend, domain.ErrGeneration)
	}
	return content, nil
}

// ClassifyChatError wraps a chat completion failure as ErrGenerationTimeout or ErrGeneration.
// Caller cancellation passes through unchanged.
func ClassifyChatError(backend string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if IsTimeout(err) {
		return fmt.Errorf("%s: %v: %w", backend, err, domain.ErrGenerationTimeout)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w", backend, reqErr.HTTPStatusCode, detail, domain.ErrGeneration)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", backend, apiErr.HTTPStatusCode, apiErr.Message, domain.ErrGeneration)
	}

	return fmt.Errorf("%s request failed: %v: %w", backend, err, domain.ErrGeneration)
}

// IsTimeout reports deadline and network timeout errors.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// StatusCode returns the HTTP status carried by a go-openai error, or 0.
func StatusCode(err error) int {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

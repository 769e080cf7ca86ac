// Package ollama is the generation backend for a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	oaitransport "github.com/kailas-cloud/medscribe/internal/transport/openai"
)

// Config holds the Ollama endpoint and model.
type Config struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Generator calls Ollama's chat endpoint without streaming. It does not retry.
type Generator struct {
	client  *api.Client
	model   string
	baseURL string
}

// New creates an Ollama backend.
func New(cfg Config) (*Generator, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", cfg.BaseURL, err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Generator{
		client:  api.NewClient(u, httpClient),
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
	}, nil
}

// Generate checks the server heartbeat, then runs one chat turn.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (string, error) {
	if err := g.client.Heartbeat(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ollama at %s: %v: %w", g.baseURL, err, domain.ErrBackendUnavailable)
	}

	var msgs []api.Message
	if req.SystemPrompt != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: req.Prompt})

	stream := false
	chatReq := &api.ChatRequest{
		Model:    g.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  options(req.Parameters),
	}

	var b strings.Builder
	err := g.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", classify(err)
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ollama: empty message content: %w", domain.ErrGeneration)
	}
	return text, nil
}

// Describe lists locally pulled models.
func (g *Generator) Describe(ctx context.Context) (generation.Info, error) {
	info := generation.Info{
		Name:    g.model,
		Type:    generation.Ollama,
		IsLocal: true,
		Model:   g.model,
		APIBase: g.baseURL,
	}
	list, err := g.client.List(ctx)
	if err != nil {
		info.Error = err.Error()
		return info, fmt.Errorf("ollama list: %v: %w", err, domain.ErrBackendUnavailable)
	}
	for _, m := range list.Models {
		info.AvailableModels = append(info.AvailableModels, m.Name)
	}
	return info, nil
}

// options maps parameters to Ollama options. max_tokens becomes num_predict;
// every other key is forwarded unchanged.
func options(p generation.Parameters) map[string]any {
	if len(p) == 0 {
		return nil
	}
	opts := make(map[string]any, len(p))
	for k, v := range p {
		switch k {
		case generation.ParamMaxTokens:
			if n, ok := p.Int(k); ok {
				opts["num_predict"] = n
			}
		case generation.ParamStop:
			if list, ok := p.Strings(k); ok {
				opts["stop"] = list
			}
		default:
			opts[k] = v
		}
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if oaitransport.IsTimeout(err) {
		return fmt.Errorf("ollama: %v: %w", err, domain.ErrGenerationTimeout)
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("ollama API error %d: %s: %w", statusErr.StatusCode, statusErr.ErrorMessage, domain.ErrGeneration)
	}
	return fmt.Errorf("ollama request failed: %v: %w", err, domain.ErrGeneration)
}

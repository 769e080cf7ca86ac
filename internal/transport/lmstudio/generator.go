// Package lmstudio is the locally-hosted generation backend for an LM Studio server.
// Every call is preceded by a liveness probe; transient failures are retried with backoff.
package lmstudio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	"github.com/kailas-cloud/medscribe/internal/metrics"
	oaitransport "github.com/kailas-cloud/medscribe/internal/transport/openai"
)

// Name is the backend name reported by Describe.
const Name = "lm_studio_model"

// Config holds LM Studio connection and retry settings.
type Config struct {
	BaseURL        string
	Model          string
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
	MaxAttempts    int
	Backoff        time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Generator talks to LM Studio's OpenAI-compatible API.
type Generator struct {
	client *openai.Client
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

// New creates an LM Studio backend. Zero durations and attempts take the defaults.
func New(cfg Config) *Generator {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// LM Studio ignores the key but the client requires one.
	clientCfg := openai.DefaultConfig("lm-studio")
	clientCfg.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		sleep:  sleepCtx,
		logger: logger,
	}
}

// WithSleep replaces the backoff wait.
func (g *Generator) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Generator {
	g.sleep = fn
	return g
}

// Generate probes the server, then sends the chat completion, retrying timeouts and 5xx.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (string, error) {
	if _, err := g.probe(ctx); err != nil {
		return "", err
	}

	chatReq := oaitransport.ChatRequest(g.cfg.Model, req)
	delay := g.cfg.Backoff

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		content, err := g.attempt(ctx, chatReq)
		if err == nil {
			g.observeAttempt("success")
			return content, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			g.observeAttempt("canceled")
			return "", ctx.Err()
		}
		if errors.Is(err, domain.ErrGeneration) {
			g.observeAttempt("error")
			return "", err
		}
		if !retryable(err) {
			g.observeAttempt("error")
			return "", oaitransport.ClassifyChatError(string(generation.Local), err)
		}
		g.observeAttempt("retryable")

		if attempt == g.cfg.MaxAttempts {
			break
		}
		g.logger.Warn("local generation attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := g.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}

	return "", fmt.Errorf("after %d attempts: %w",
		g.cfg.MaxAttempts, oaitransport.ClassifyChatError(string(generation.Local), lastErr))
}

func (g *Generator) attempt(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	actx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(actx, req)
	if err != nil {
		return "", err
	}
	return oaitransport.ChatContent(string(generation.Local), resp)
}

// Describe lists the models the server has loaded. A failed probe is reported in Info.Error.
func (g *Generator) Describe(ctx context.Context) (generation.Info, error) {
	info := generation.Info{
		Name:    Name,
		Type:    generation.Local,
		IsLocal: true,
		Model:   g.cfg.Model,
		APIBase: g.cfg.BaseURL,
	}
	models, err := g.probe(ctx)
	if err != nil {
		info.Error = err.Error()
		return info, err
	}
	info.AvailableModels = models
	return info, nil
}

// probe lists models under its own bound. Any failure is ErrBackendUnavailable.
func (g *Generator) probe(ctx context.Context) ([]string, error) {
	pctx, cancel := context.WithTimeout(ctx, g.cfg.ProbeTimeout)
	defer cancel()

	list, err := g.client.ListModels(pctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("local server at %s: %v: %w", g.cfg.BaseURL, err, domain.ErrBackendUnavailable)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (g *Generator) observeAttempt(outcome string) {
	metrics.GenerationAttemptsTotal.WithLabelValues(string(generation.Local), outcome).Inc()
}

// retryable covers timeouts and HTTP 5xx. Empty or malformed responses are not retried.
func retryable(err error) bool {
	if oaitransport.IsTimeout(err) {
		return true
	}
	return oaitransport.StatusCode(err) >= http.StatusInternalServerError
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

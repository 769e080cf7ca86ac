// Package client is a thin HTTP client for the medscribe API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	api "github.com/kailas-cloud/medscribe/internal/transport/chi"
)

// DefaultBaseURL is used when no base URL is given.
const DefaultBaseURL = "http://localhost:8000"

// maxLineSize bounds one NDJSON record; completed records carry the full generated text.
const maxLineSize = 8 << 20

// APIError is a non-2xx reply.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("medscribe: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("medscribe: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client calls the medscribe API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Streaming calls need one without a short Timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("medscribe: invalid base url %q: %w", baseURL, err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// AddDocument stores a case document.
func (c *Client) AddDocument(ctx context.Context, content string, metadata map[string]any) (api.DocumentResponse, error) {
	var out api.DocumentResponse
	err := c.doJSON(ctx, http.MethodPost, "/documents", api.AddDocumentRequest{Content: content, Metadata: metadata}, &out)
	return out, err
}

// ListDocuments returns every stored document.
func (c *Client) ListDocuments(ctx context.Context) ([]api.DocumentResponse, error) {
	var out []api.DocumentResponse
	err := c.doJSON(ctx, http.MethodGet, "/documents", nil, &out)
	return out, err
}

// DeleteDocument removes a document. A missing ID is an *APIError with status 404.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, nil)
}

// Search runs a similarity query.
func (c *Client) Search(ctx context.Context, req api.SearchRequest) ([]api.SearchResultItem, error) {
	var out []api.SearchResultItem
	err := c.doJSON(ctx, http.MethodPost, "/search", req, &out)
	return out, err
}

// Models lists configured generation backends.
func (c *Client) Models(ctx context.Context) (map[string]api.ModelInfo, error) {
	var out map[string]api.ModelInfo
	err := c.doJSON(ctx, http.MethodGet, "/available_models", nil, &out)
	return out, err
}

// Health returns the health report. A degraded service still decodes.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	resp, err := c.send(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("medscribe: decode health: %w", err)
	}
	return out, nil
}

// Analyze streams an analysis run, calling fn for every record in order.
func (c *Client) Analyze(ctx context.Context, req api.AnalyzeRequest, fn func(api.StreamEvent) error) error {
	return c.stream(ctx, "/analyze", req, fn)
}

// ProcessTranscript streams a transcript run.
func (c *Client) ProcessTranscript(ctx context.Context, req api.TranscriptRequest, fn func(api.StreamEvent) error) error {
	return c.stream(ctx, "/process_transcript", req, fn)
}

func (c *Client) stream(ctx context.Context, path string, body any, fn func(api.StreamEvent) error) error {
	resp, err := c.send(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev api.StreamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("medscribe: decode stream record: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("medscribe: read stream: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("medscribe: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("medscribe: encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("medscribe: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("medscribe: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body api.ErrorResponse
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Code: string(body.Code), Message: body.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}

package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medscribe/internal/domain"
	domdoc "github.com/kailas-cloud/medscribe/internal/domain/document"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	dompipe "github.com/kailas-cloud/medscribe/internal/domain/pipeline"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
	genuc "github.com/kailas-cloud/medscribe/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/medscribe/internal/usecase/health"
	pipeuc "github.com/kailas-cloud/medscribe/internal/usecase/pipeline"
)

type mockCaseStore struct {
	addFn    func(ctx context.Context, content string, md map[string]any) (domdoc.Document, error)
	getFn    func(ctx context.Context, id string) (domdoc.Document, error)
	listFn   func(ctx context.Context) ([]domdoc.Document, error)
	deleteFn func(ctx context.Context, id string) (bool, error)
	searchFn func(ctx context.Context, query string, topK int, filters map[string]string) ([]result.Result, error)
}

func (m *mockCaseStore) Add(ctx context.Context, content string, md map[string]any) (domdoc.Document, error) {
	if m.addFn != nil {
		return m.addFn(ctx, content, md)
	}
	return domdoc.Document{}, nil
}

func (m *mockCaseStore) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockCaseStore) List(ctx context.Context) ([]domdoc.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []domdoc.Document{}, nil
}

func (m *mockCaseStore) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return false, nil
}

func (m *mockCaseStore) Search(
	ctx context.Context, query string, topK int, filters map[string]string,
) ([]result.Result, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, topK, filters)
	}
	return []result.Result{}, nil
}

type mockOrchestrator struct {
	analyzeFn    func(ctx context.Context, req pipeuc.AnalyzeRequest) (<-chan dompipe.Event, error)
	transcriptFn func(ctx context.Context, req pipeuc.TranscriptRequest) (<-chan dompipe.Event, error)
}

func (m *mockOrchestrator) Analyze(ctx context.Context, req pipeuc.AnalyzeRequest) (<-chan dompipe.Event, error) {
	return m.analyzeFn(ctx, req)
}

func (m *mockOrchestrator) ProcessTranscript(
	ctx context.Context, req pipeuc.TranscriptRequest,
) (<-chan dompipe.Event, error) {
	return m.transcriptFn(ctx, req)
}

type mockGateway struct {
	generateFn func(ctx context.Context, t generation.ModelType, req generation.Request) (generation.Result, error)
	models     map[generation.ModelType]genuc.Availability
}

func (m *mockGateway) Generate(
	ctx context.Context, t generation.ModelType, req generation.Request,
) (generation.Result, error) {
	return m.generateFn(ctx, t, req)
}

func (m *mockGateway) ListAvailable(context.Context) map[generation.ModelType]genuc.Availability {
	return m.models
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type deps struct {
	docs     *mockCaseStore
	pipeline *mockOrchestrator
	gateway  *mockGateway
	health   *mockHealth
}

func newTestServer(t *testing.T, d deps) *httptest.Server {
	t.Helper()
	if d.docs == nil {
		d.docs = &mockCaseStore{}
	}
	if d.pipeline == nil {
		d.pipeline = &mockOrchestrator{}
	}
	if d.gateway == nil {
		d.gateway = &mockGateway{}
	}
	if d.health == nil {
		d.health = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	s := NewServer(d.docs, d.pipeline, d.gateway, d.health, zap.NewNop())
	srv := httptest.NewServer(NewRouter(s, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

// eventsChan returns a closed, pre-filled event channel.
func eventsChan(events ...dompipe.Event) <-chan dompipe.Event {
	ch := make(chan dompipe.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func testDocument(id string) domdoc.Document {
	return domdoc.Reconstruct(id, "Пациент жалуется на боль в груди",
		domdoc.Metadata{"specialty": "Кардиология"}, nil, time.Unix(1700000000, 0))
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	dompipe "github.com/kailas-cloud/medscribe/internal/domain/pipeline"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
)

type mockSearcher struct {
	searchFn func(ctx context.Context, query string, topK int, filters map[string]string) ([]result.Result, error)
	calls    atomic.Int32
}

func (m *mockSearcher) Search(
	ctx context.Context, query string, topK int, filters map[string]string,
) ([]result.Result, error) {
	m.calls.Add(1)
	if m.searchFn != nil {
		return m.searchFn(ctx, query, topK, filters)
	}
	return []result.Result{}, nil
}

type mockGenerator struct {
	checkFn    func(t generation.ModelType) error
	generateFn func(ctx context.Context, t generation.ModelType, req generation.Request) (generation.Result, error)
	calls      atomic.Int32
	lastReq    generation.Request
}

func (m *mockGenerator) Check(t generation.ModelType) error {
	if m.checkFn != nil {
		return m.checkFn(t)
	}
	return nil
}

func (m *mockGenerator) Generate(
	ctx context.Context, t generation.ModelType, req generation.Request,
) (generation.Result, error) {
	m.calls.Add(1)
	m.lastReq = req
	if m.generateFn != nil {
		return m.generateFn(ctx, t, req)
	}
	return generation.Result{Text: "ok", Info: generation.Info{Name: "mock", Type: t}}, nil
}

// collect drains the channel.
func collect(ch <-chan dompipe.Event) []dompipe.Event {
	var out []dompipe.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func statuses(events []dompipe.Event) []dompipe.Status {
	out := make([]dompipe.Status, len(events))
	for i, ev := range events {
		out[i] = ev.Status
	}
	return out
}

func intPtr(v int) *int { return &v }

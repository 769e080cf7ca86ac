package generation

import (
	"context"
	"sync/atomic"

	"github.com/kailas-cloud/medscribe/internal/domain/generation"
)

type mockBackend struct {
	generateFn func(ctx context.Context, req generation.Request) (string, error)
	describeFn func(ctx context.Context) (generation.Info, error)
	calls      atomic.Int32
	lastReq    generation.Request
}

func (m *mockBackend) Generate(ctx context.Context, req generation.Request) (string, error) {
	m.calls.Add(1)
	m.lastReq = req
	if m.generateFn != nil {
		return m.generateFn(ctx, req)
	}
	return "ok", nil
}

func (m *mockBackend) Describe(ctx context.Context) (generation.Info, error) {
	if m.describeFn != nil {
		return m.describeFn(ctx)
	}
	return generation.Info{Name: "mock", Type: generation.OpenAI}, nil
}

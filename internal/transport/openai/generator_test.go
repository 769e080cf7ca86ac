package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
)

type chatBody struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopP        float32 `json:"top_p"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	}
}

func TestGenerator_Generate(t *testing.T) {
	var got chatBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply("Рекомендации по лечению"))
	}))
	defer server.Close()

	g := NewGenerator(GeneratorConfig{Type: generation.DeepSeek, APIKey: "sk-test", BaseURL: server.URL, Model: "deepseek-chat"})

	text, err := g.Generate(context.Background(), generation.Request{
		Prompt:       "Проанализируйте случай",
		SystemPrompt: "Вы - опытный врач",
		Parameters: generation.Parameters{
			generation.ParamTemperature: 0.3,
			generation.ParamMaxTokens:   4000,
			generation.ParamTopP:        0.95,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Рекомендации по лечению" {
		t.Errorf("text = %q", text)
	}

	if got.Model != "deepseek-chat" {
		t.Errorf("model = %q", got.Model)
	}
	if got.MaxTokens != 4000 {
		t.Errorf("max_tokens = %d", got.MaxTokens)
	}
	if got.Temperature < 0.29 || got.Temperature > 0.31 {
		t.Errorf("temperature = %v", got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestGenerator_NoSystemPrompt(t *testing.T) {
	req := ChatRequest("m", generation.Request{Prompt: "p"})
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", req.Messages)
	}
	if req.MaxTokens != 0 || req.Temperature != 0 {
		t.Error("absent parameters must not be set")
	}
}

func TestGenerator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
			want: domain.ErrGeneration,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id":"x","choices":[]}`))
			},
			want: domain.ErrGeneration,
		},
		{
			name: "blank content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(chatReply("   "))
			},
			want: domain.ErrGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				tt.handler(w, r)
			}))
			defer server.Close()

			g := NewGenerator(GeneratorConfig{Type: generation.OpenAI, APIKey: "k", BaseURL: server.URL, Model: "gpt"})
			_, err := g.Generate(context.Background(), generation.Request{Prompt: "p"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if calls != 1 {
				t.Errorf("calls = %d, hosted backends must not retry", calls)
			}
		})
	}
}

func TestGenerator_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	g := NewGenerator(GeneratorConfig{Type: generation.OpenAI, APIKey: "k", BaseURL: server.URL, Model: "gpt"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.Generate(ctx, generation.Request{Prompt: "p"})
	if !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
}

func TestGenerator_CanceledPassesThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(GeneratorConfig{Type: generation.OpenAI, APIKey: "k", BaseURL: "http://127.0.0.1:1", Model: "gpt"})
	_, err := g.Generate(ctx, generation.Request{Prompt: "p"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerator_Describe(t *testing.T) {
	openaiGen := NewGenerator(GeneratorConfig{Type: generation.OpenAI, APIKey: "k", Model: "gpt-4o-2024-11-20"})
	info, err := openaiGen.Describe(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "gpt-4o-2024-11-20" || info.Type != generation.OpenAI || info.IsLocal || info.APIBase != "" {
		t.Errorf("openai info = %+v", info)
	}

	ds := NewGenerator(GeneratorConfig{
		Type: generation.DeepSeek, APIKey: "k", BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat",
	})
	info, _ = ds.Describe(context.Background())
	if info.APIBase != "https://api.deepseek.com/v1" || info.Type != generation.DeepSeek {
		t.Errorf("deepseek info = %+v", info)
	}
}

func TestGenerator_ForwardsZeroAndExtraParameters(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply("ok"))
	}))
	defer server.Close()

	g := NewGenerator(GeneratorConfig{Type: generation.OpenAI, APIKey: "k", BaseURL: server.URL, Model: "gpt"})
	_, err := g.Generate(context.Background(), generation.Request{
		Prompt: "p",
		Parameters: generation.Parameters{
			generation.ParamTemperature:     0.0,
			generation.ParamPresencePenalty: 0,
			generation.ParamSeed:            42,
			generation.ParamN:               1,
			generation.ParamLogitBias:       map[string]any{"50256": float64(-100)},
			generation.ParamUser:            "case-17",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	temp, ok := got["temperature"].(float64)
	if !ok || temp < 0 || temp > 1e-6 {
		t.Errorf("temperature = %v, want near-zero on the wire", got["temperature"])
	}
	if _, ok := got["presence_penalty"]; !ok {
		t.Error("explicit zero presence_penalty dropped")
	}
	if got["seed"] != float64(42) {
		t.Errorf("seed = %v", got["seed"])
	}
	if got["n"] != float64(1) {
		t.Errorf("n = %v", got["n"])
	}
	bias, _ := got["logit_bias"].(map[string]any)
	if bias["50256"] != float64(-100) {
		t.Errorf("logit_bias = %v", got["logit_bias"])
	}
	if got["user"] != "case-17" {
		t.Errorf("user = %v", got["user"])
	}
}

func TestChatRequest_IgnoresMalformedLogitBias(t *testing.T) {
	req := ChatRequest("m", generation.Request{
		Prompt:     "p",
		Parameters: generation.Parameters{generation.ParamLogitBias: map[string]any{"1": "high"}},
	})
	if req.LogitBias != nil {
		t.Errorf("logit_bias = %v, want nil", req.LogitBias)
	}
}

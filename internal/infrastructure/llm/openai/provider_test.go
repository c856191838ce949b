package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	llm "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := llm.ProviderConfig{Name: "openai", Type: "openai", BaseURL: srv.URL, APIKey: "sk-test"}
	return New(cfg, zap.NewNop()).WithRetryPolicy(2, time.Millisecond)
}

func TestGenerate(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("auth = %q", auth)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "hello" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.Stream {
			t.Error("stream should be false for Generate")
		}
		json.NewEncoder(w).Encode(Response{
			Model: "gpt-4o-mini",
			Choices: []Choice{{
				Message:      Message{Role: "assistant", Content: "hi there"},
				FinishReason: "stop",
			}},
		})
	}))

	resp, err := p.Generate(context.Background(), &llm.GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "hi there" || resp.Model != "gpt-4o-mini" || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGenerateRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Response{
			Model:   "gpt-4o-mini",
			Choices: []Choice{{Message: Message{Content: "retry success"}, FinishReason: "stop"}},
		})
	}))

	resp, err := p.Generate(context.Background(), &llm.GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "retry success" {
		t.Errorf("content = %q", resp.Content)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGenerateAuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))

	_, err := p.Generate(context.Background(), &llm.GenerateRequest{Prompt: "hello"})
	if llm.KindOf(err) != llm.KindHTTPStatus {
		t.Fatalf("err = %v", err)
	}
	pe := err.(*llm.ProviderError)
	if pe.Status != 401 || pe.Message != "invalid api key" {
		t.Errorf("error = %+v", pe)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestGenerateStream(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("stream should be true for GenerateStream")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"model":"gpt-4o-mini","choices":[{"delta":{"content":"Hel"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"model":"gpt-4o-mini","choices":[{"delta":{"content":"lo"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))

	deltaCh := make(chan llm.StreamChunk, 8)
	if err := p.GenerateStream(context.Background(), &llm.GenerateRequest{Prompt: "hello"}, deltaCh); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	close(deltaCh)

	var got []llm.StreamChunk
	for chunk := range deltaCh {
		got = append(got, chunk)
	}
	want := []llm.StreamChunk{llm.Delta("Hel"), llm.Delta("lo"), llm.Done()}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestGenerateStreamFinishReasonEnds(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"only"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n\n")
		// Anything after finish_reason must not be forwarded.
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"late"}}]}`+"\n\n")
	}))

	deltaCh := make(chan llm.StreamChunk, 8)
	if err := p.GenerateStream(context.Background(), &llm.GenerateRequest{Prompt: "hello"}, deltaCh); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	close(deltaCh)

	var got []llm.StreamChunk
	for chunk := range deltaCh {
		got = append(got, chunk)
	}
	if len(got) != 2 || got[0] != llm.Delta("only") || got[1] != llm.Done() {
		t.Errorf("chunks = %v", got)
	}
}

func TestGenerateStreamMalformedChunk(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {not valid json}\n\n")
	}))

	deltaCh := make(chan llm.StreamChunk, 8)
	err := p.GenerateStream(context.Background(), &llm.GenerateRequest{Prompt: "hello"}, deltaCh)
	if llm.KindOf(err) != llm.KindDecode {
		t.Errorf("err = %v, want decode", err)
	}
}

func TestGenerateStreamHTTPError(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))

	deltaCh := make(chan llm.StreamChunk, 8)
	err := p.GenerateStream(context.Background(), &llm.GenerateRequest{Prompt: "hello"}, deltaCh)
	pe, ok := err.(*llm.ProviderError)
	if !ok || pe.Kind != llm.KindHTTPStatus || pe.Status != 429 {
		t.Errorf("err = %v, want 429 http_status", err)
	}
}

func TestIsAvailable(t *testing.T) {
	withKey := New(llm.ProviderConfig{APIKey: "sk-x"}, zap.NewNop())
	if !withKey.IsAvailable(context.Background()) {
		t.Error("provider with key should be available")
	}
	without := New(llm.ProviderConfig{}, zap.NewNop())
	if without.IsAvailable(context.Background()) {
		t.Error("provider without key should be unavailable")
	}
}

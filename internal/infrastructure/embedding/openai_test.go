package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	llm "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm"
	"go.uber.org/zap"
)

func newTestOpenAI(t *testing.T, model string, handler http.Handler) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: model}
	return NewOpenAIProvider(cfg, zap.NewNop()).WithRetryPolicy(2, time.Millisecond)
}

func TestModelDimensions(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"something-unknown", 1536},
		{"", 1536},
	}
	for _, tt := range tests {
		p := NewOpenAIProvider(OpenAIConfig{Model: tt.model}, zap.NewNop())
		if got := p.Dimension(); got != tt.want {
			t.Errorf("Dimension(%q) = %d, want %d", tt.model, got, tt.want)
		}
	}
}

func TestEmbedBatchPreservesInputOrder(t *testing.T) {
	p := newTestOpenAI(t, "text-embedding-3-small", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req apiEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) != 3 {
			t.Fatalf("input = %v", req.Input)
		}
		// Entries deliberately out of order, index is authoritative.
		json.NewEncoder(w).Encode(map[string]any{
			"model": "text-embedding-3-small",
			"data": []map[string]any{
				{"index": 2, "embedding": []float32{3}},
				{"index": 0, "embedding": []float32{1}},
				{"index": 1, "embedding": []float32{2}},
			},
			"usage": map[string]int{"prompt_tokens": 9, "total_tokens": 9},
		})
	}))

	resp, err := p.EmbedBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	for i, want := range []float32{1, 2, 3} {
		if resp.Vectors[i][0] != want {
			t.Errorf("vector[%d] = %v, want leading %v", i, resp.Vectors[i], want)
		}
	}
	if resp.Usage.TotalTokens != 9 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestEmbedRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	p := newTestOpenAI(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": "text-embedding-3-small",
			"data":  []map[string]any{{"index": 0, "embedding": []float32{0.5, 0.5}}},
			"usage": map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))

	resp, err := p.Embed(context.Background(), EmbeddingRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(resp.Vector) != 2 {
		t.Errorf("vector = %v", resp.Vector)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	p := newTestOpenAI(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"model": "text-embedding-3-small",
			"data":  []map[string]any{},
		})
	}))

	_, err := p.Embed(context.Background(), EmbeddingRequest{Text: "hello"})
	if llm.KindOf(err) != llm.KindMessage {
		t.Errorf("err = %v, want message kind", err)
	}
}

func TestMockProviderConstantVector(t *testing.T) {
	mock := NewMockProvider(4)
	resp, err := mock.Embed(context.Background(), EmbeddingRequest{Text: "anything"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(resp.Vector) != 4 {
		t.Fatalf("vector = %v", resp.Vector)
	}
	for i, v := range resp.Vector {
		if v != 0.1 {
			t.Errorf("vector[%d] = %v, want 0.1", i, v)
		}
	}
}

func TestMockProviderQueuedVectorOverrides(t *testing.T) {
	mock := NewMockProvider(3)
	mock.EnqueueVector([]float32{1, 0, 0})

	first, _ := mock.Embed(context.Background(), EmbeddingRequest{Text: "a"})
	if first.Vector[0] != 1 {
		t.Errorf("first vector = %v, want the queued one", first.Vector)
	}
	second, _ := mock.Embed(context.Background(), EmbeddingRequest{Text: "b"})
	if second.Vector[0] != 0.1 {
		t.Errorf("second vector = %v, want the constant fill", second.Vector)
	}
}

func TestMockProviderBatchUsage(t *testing.T) {
	mock := NewMockProvider(2)
	resp, err := mock.EmbedBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(resp.Vectors) != 3 {
		t.Errorf("vectors = %v", resp.Vectors)
	}
	if resp.Usage.PromptTokens != 30 || resp.Usage.TotalTokens != 30 {
		t.Errorf("usage = %+v, want 10 per text", resp.Usage)
	}
}

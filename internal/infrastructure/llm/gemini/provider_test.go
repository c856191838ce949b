package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
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
	cfg := llm.ProviderConfig{Name: "gemini", Type: "gemini", BaseURL: srv.URL, APIKey: "gk-test"}
	return New(cfg, zap.NewNop()).WithRetryPolicy(2, time.Millisecond)
}

func TestGenerate(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if key := r.URL.Query().Get("key"); key != "gk-test" {
			t.Errorf("key = %q, want it in the query string", key)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("contents = %+v", req.Contents)
		}
		json.NewEncoder(w).Encode(Response{
			ModelVersion: "gemini-2.0-flash",
			Candidates: []Candidate{{
				Content:      Content{Role: "model", Parts: []Part{{Text: "part one "}, {Text: "part two"}}},
				FinishReason: "STOP",
			}},
		})
	}))

	resp, err := p.Generate(context.Background(), &llm.GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "part one part two" {
		t.Errorf("content = %q, parts should concatenate", resp.Content)
	}
	if resp.FinishReason != "STOP" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
}

func TestGenerateRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"internal"}}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Response{
			Candidates: []Candidate{{
				Content:      Content{Parts: []Part{{Text: "retry success"}}},
				FinishReason: "STOP",
			}},
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

func TestGenerateStream(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if alt := r.URL.Query().Get("alt"); alt != "sse" {
			t.Errorf("alt = %q, want sse", alt)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"parts":[{"text":"Hel"}]}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"parts":[{"text":"lo"}]},"finishReason":"STOP"}]}`+"\n\n")
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

func TestGenerateStreamMalformedChunk(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: nonsense\n\n")
	}))

	deltaCh := make(chan llm.StreamChunk, 8)
	err := p.GenerateStream(context.Background(), &llm.GenerateRequest{Prompt: "hello"}, deltaCh)
	if llm.KindOf(err) != llm.KindDecode {
		t.Errorf("err = %v, want decode", err)
	}
}

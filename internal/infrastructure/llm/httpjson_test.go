package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger { return zap.NewNop() }

func newTestHTTPJSON(t *testing.T, handler http.Handler) (*HTTPJSONProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewHTTPJSONProvider(ProviderConfig{Name: "ctl", Type: "http-json", BaseURL: srv.URL, APIKey: "test-key"}, testLogger()).
		WithRetryPolicy(2, time.Millisecond)
	return p, srv
}

func TestHTTPJSONGenerate(t *testing.T) {
	p, _ := newTestHTTPJSON(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth = %q", auth)
		}
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Prompt != "hello" {
			t.Errorf("prompt = %q", req.Prompt)
		}
		json.NewEncoder(w).Encode(GenerateResponse{Content: "world", Model: "ctl-1", FinishReason: "stop"})
	}))

	resp, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "world" || resp.Model != "ctl-1" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHTTPJSONGenerateRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	p, _ := newTestHTTPJSON(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"try again"}}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(GenerateResponse{Content: "retry success", Model: "ctl-1"})
	}))

	resp, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "hello"})
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

func TestHTTPJSONGenerateClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	p, _ := newTestHTTPJSON(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"bad prompt"}}`, http.StatusBadRequest)
	}))

	_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: ""})
	if KindOf(err) != KindHTTPStatus {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	pe := err.(*ProviderError)
	if pe.Status != 400 || pe.Message != "bad prompt" {
		t.Errorf("error = %+v", pe)
	}
}

func TestHTTPJSONStream(t *testing.T) {
	p, _ := newTestHTTPJSON(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate_stream" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]StreamChunk{Delta("Hel"), Delta("lo"), Done()})
	}))

	deltaCh := make(chan StreamChunk, 8)
	if err := p.GenerateStream(context.Background(), &GenerateRequest{Prompt: "hello"}, deltaCh); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	close(deltaCh)

	got := drainChunks(deltaCh)
	want := []StreamChunk{Delta("Hel"), Delta("lo"), Done()}
	assertChunks(t, got, want)
}

func TestHTTPJSONStreamFallsBackToGenerate(t *testing.T) {
	p, _ := newTestHTTPJSON(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/generate_stream":
			http.NotFound(w, r)
		case "/v1/generate":
			json.NewEncoder(w).Encode(GenerateResponse{Content: "whole answer", Model: "ctl-1"})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))

	deltaCh := make(chan StreamChunk, 8)
	if err := p.GenerateStream(context.Background(), &GenerateRequest{Prompt: "hello"}, deltaCh); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	close(deltaCh)

	got := drainChunks(deltaCh)
	want := []StreamChunk{Delta("whole answer"), Done()}
	assertChunks(t, got, want)
}

func TestHTTPJSONStreamDecodeError(t *testing.T) {
	p, _ := newTestHTTPJSON(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))

	deltaCh := make(chan StreamChunk, 8)
	err := p.GenerateStream(context.Background(), &GenerateRequest{Prompt: "hello"}, deltaCh)
	if KindOf(err) != KindDecode {
		t.Errorf("err = %v, want decode", err)
	}
}

func drainChunks(ch chan StreamChunk) []StreamChunk {
	var out []StreamChunk
	for chunk := range ch {
		out = append(out, chunk)
	}
	return out
}

func assertChunks(t *testing.T, got, want []StreamChunk) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d chunks %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

func init() {
	RegisterFactory("http-json", func(cfg ProviderConfig, logger *zap.Logger) Provider {
		return NewHTTPJSONProvider(cfg, logger)
	})
}

// HTTPJSONProvider talks to a control-plane style JSON API: POST
// /v1/generate for completions and POST /v1/generate_stream for a
// pre-chunked stream. Upstreams that lack the stream endpoint (404) fall
// back to a single generate call replayed as one delta plus done.
type HTTPJSONProvider struct {
	baseURL    string
	apiKey     string
	maxRetries int
	baseDelay  time.Duration
	client     *http.Client
	logger     *zap.Logger
}

// NewHTTPJSONProvider creates the generic JSON provider.
func NewHTTPJSONProvider(cfg ProviderConfig, logger *zap.Logger) *HTTPJSONProvider {
	return &HTTPJSONProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultRetryBaseDelay,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(zap.String("provider", "http-json")),
	}
}

var _ Provider = (*HTTPJSONProvider)(nil)

func (p *HTTPJSONProvider) Name() string { return "http-json" }

func (p *HTTPJSONProvider) IsAvailable(ctx context.Context) bool {
	return p.baseURL != ""
}

// WithRetryPolicy overrides the retry bounds, chiefly for tests.
func (p *HTTPJSONProvider) WithRetryPolicy(maxRetries int, baseDelay time.Duration) *HTTPJSONProvider {
	p.maxRetries = maxRetries
	p.baseDelay = baseDelay
	return p
}

func (p *HTTPJSONProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	return postJSONWithRetry[*GenerateResponse](ctx, p, "/v1/generate", req)
}

func (p *HTTPJSONProvider) GenerateStream(ctx context.Context, req *GenerateRequest, deltaCh chan<- StreamChunk) error {
	chunks, err := postJSONWithRetry[[]StreamChunk](ctx, p, "/v1/generate_stream", req)
	if err != nil {
		// Older control planes only expose /v1/generate.
		if pe, ok := err.(*ProviderError); ok && pe.Kind == KindHTTPStatus && pe.Status == http.StatusNotFound {
			resp, genErr := p.Generate(ctx, req)
			if genErr != nil {
				return genErr
			}
			chunks = []StreamChunk{Delta(resp.Content), Done()}
		} else {
			return err
		}
	}

	doneSent := false
	for _, chunk := range chunks {
		select {
		case deltaCh <- chunk:
		case <-ctx.Done():
			return NewTransportError(ctx.Err())
		}
		if chunk.Type == ChunkDone {
			doneSent = true
			break
		}
	}
	if !doneSent {
		select {
		case deltaCh <- Done():
		case <-ctx.Done():
			return NewTransportError(ctx.Err())
		}
	}
	return nil
}

func postJSONWithRetry[T any](ctx context.Context, p *HTTPJSONProvider, path string, payload any) (T, error) {
	return WithRetry(ctx, p.maxRetries, p.baseDelay, func() (T, error) {
		return tryPostJSON[T](ctx, p, path, payload)
	})
}

func tryPostJSON[T any](ctx context.Context, p *HTTPJSONProvider, path string, payload any) (T, error) {
	var zero T

	body, err := json.Marshal(payload)
	if err != nil {
		return zero, NewDecodeError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return zero, NewTransportError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return zero, NewTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, NewTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return zero, NewHTTPStatusError(resp.StatusCode, ExtractErrorMessage(respBody))
	}

	var out T
	if err := json.Unmarshal(respBody, &out); err != nil {
		return zero, NewDecodeError(err)
	}
	return out, nil
}

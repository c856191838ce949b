package gemini

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	llm "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm"
	"go.uber.org/zap"
)

func init() {
	llm.RegisterFactory("gemini", func(cfg llm.ProviderConfig, logger *zap.Logger) llm.Provider {
		return New(cfg, logger)
	})
}

const defaultModel = "gemini-2.0-flash"

// Provider is the Google Gemini dialect adapter. The API key travels in the
// query string rather than a header.
type Provider struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	baseDelay  time.Duration
	client     *http.Client
	logger     *zap.Logger
}

// New creates a Gemini dialect provider.
func New(cfg llm.ProviderConfig, logger *zap.Logger) *Provider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 300 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Provider{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		maxRetries: llm.DefaultMaxRetries,
		baseDelay:  llm.DefaultRetryBaseDelay,
		client:     &http.Client{Transport: transport},
		logger:     logger.With(zap.String("provider", "gemini")),
	}
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}

// WithRetryPolicy overrides the retry bounds, chiefly for tests.
func (p *Provider) WithRetryPolicy(maxRetries int, baseDelay time.Duration) *Provider {
	p.maxRetries = maxRetries
	p.baseDelay = baseDelay
	return p
}

// Generate performs a non-streaming completion with retry on transient
// failures.
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return llm.WithRetry(ctx, p.maxRetries, p.baseDelay, func() (*llm.GenerateResponse, error) {
		return p.tryGenerate(ctx, req)
	})
}

func (p *Provider) tryGenerate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, p.modelFor(req), p.apiKey)
	resp, err := p.post(ctx, url, p.buildAPIRequest(req), false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewTransportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, llm.NewHTTPStatusError(resp.StatusCode, llm.ExtractErrorMessage(respBody))
	}

	var apiResp Response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, llm.NewDecodeError(err)
	}
	if len(apiResp.Candidates) == 0 {
		return nil, llm.NewMessageError("empty response: no candidates")
	}

	candidate := apiResp.Candidates[0]
	var content strings.Builder
	for _, part := range candidate.Content.Parts {
		content.WriteString(part.Text)
	}

	model := apiResp.ModelVersion
	if model == "" {
		model = p.modelFor(req)
	}
	return &llm.GenerateResponse{
		Content:      content.String(),
		Model:        model,
		FinishReason: candidate.FinishReason,
	}, nil
}

// GenerateStream performs an SSE streaming completion. Deltas go to deltaCh
// followed by exactly one done chunk on success.
func (p *Provider) GenerateStream(ctx context.Context, req *llm.GenerateRequest, deltaCh chan<- llm.StreamChunk) error {
	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s", p.baseURL, p.modelFor(req), p.apiKey)
	resp, err := p.post(ctx, url, p.buildAPIRequest(req), true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return llm.NewHTTPStatusError(resp.StatusCode, llm.ExtractErrorMessage(respBody))
	}

	streamDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.logger.Info("Context cancelled, force-closing SSE stream", zap.Error(ctx.Err()))
			resp.Body.Close()
		case <-streamDone:
		}
	}()

	err = ParseSSEStream(ctx, resp.Body, deltaCh)
	close(streamDone)
	return err
}

func (p *Provider) post(ctx context.Context, url string, apiReq *Request, stream bool) (*http.Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, llm.NewDecodeError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewTransportError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.NewTransportError(err)
	}
	return resp, nil
}

func (p *Provider) modelFor(req *llm.GenerateRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}

func (p *Provider) buildAPIRequest(req *llm.GenerateRequest) *Request {
	apiReq := &Request{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: req.Prompt}}}},
	}
	if req.Temperature != 0 || req.MaxTokens != 0 {
		apiReq.GenerationConfig = &GenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}
	return apiReq
}

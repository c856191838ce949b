package anthropic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	llm "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm"
	"go.uber.org/zap"
)

func init() {
	llm.RegisterFactory("anthropic", func(cfg llm.ProviderConfig, logger *zap.Logger) llm.Provider {
		return New(cfg, logger)
	})
}

const (
	apiVersion      = "2023-06-01"
	defaultModel    = "claude-3-5-haiku-latest"
	defaultMaxToken = 1024
)

// Provider is the Anthropic messages API dialect adapter.
type Provider struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	baseDelay  time.Duration
	client     *http.Client
	logger     *zap.Logger
}

// New creates an Anthropic dialect provider.
func New(cfg llm.ProviderConfig, logger *zap.Logger) *Provider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
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
		logger:     logger.With(zap.String("provider", "anthropic")),
	}
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return "anthropic" }

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
	resp, err := p.post(ctx, p.buildAPIRequest(req, false), false)
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

	var content strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &llm.GenerateResponse{
		Content:      content.String(),
		Model:        apiResp.Model,
		FinishReason: apiResp.StopReason,
	}, nil
}

// GenerateStream performs an SSE streaming completion. Deltas go to deltaCh
// followed by exactly one done chunk on success.
func (p *Provider) GenerateStream(ctx context.Context, req *llm.GenerateRequest, deltaCh chan<- llm.StreamChunk) error {
	resp, err := p.post(ctx, p.buildAPIRequest(req, true), true)
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

func (p *Provider) post(ctx context.Context, apiReq *Request, stream bool) (*http.Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, llm.NewDecodeError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewTransportError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.NewTransportError(err)
	}
	return resp, nil
}

func (p *Provider) buildAPIRequest(req *llm.GenerateRequest, stream bool) *Request {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxToken
	}
	return &Request{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	llm "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm"
	"go.uber.org/zap"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// modelDimensions maps known OpenAI embedding models to their vector width.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider calls the OpenAI embeddings endpoint. It shares the retry
// classification of the generation runtime, so transient upstream failures
// are retried with exponential backoff.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	maxRetries int
	baseDelay  time.Duration
	client     *http.Client
	logger     *zap.Logger
}

// OpenAIConfig configures the embeddings client.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewOpenAIProvider creates an OpenAI embeddings client. Unknown models fall
// back to the small-model dimension.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = defaultEmbeddingModel
	}
	dimension, ok := modelDimensions[model]
	if !ok {
		dimension = modelDimensions[defaultEmbeddingModel]
	}

	return &OpenAIProvider{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		dimension:  dimension,
		maxRetries: llm.DefaultMaxRetries,
		baseDelay:  llm.DefaultRetryBaseDelay,
		client:     &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With(zap.String("embedder", "openai")),
	}
}

var _ Provider = (*OpenAIProvider)(nil)

func (p *OpenAIProvider) Name() string { return "openai-embedding" }

func (p *OpenAIProvider) Dimension() int { return p.dimension }

// WithRetryPolicy overrides the retry bounds, chiefly for tests.
func (p *OpenAIProvider) WithRetryPolicy(maxRetries int, baseDelay time.Duration) *OpenAIProvider {
	p.maxRetries = maxRetries
	p.baseDelay = baseDelay
	return p
}

func (p *OpenAIProvider) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	batch, err := p.EmbedBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}, Model: req.Model})
	if err != nil {
		return nil, err
	}
	return &EmbeddingResponse{
		Vector: batch.Vectors[0],
		Model:  batch.Model,
		Usage:  batch.Usage,
	}, nil
}

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	return llm.WithRetry(ctx, p.maxRetries, p.baseDelay, func() (*BatchEmbeddingResponse, error) {
		return p.tryEmbedBatch(ctx, req.Texts, model)
	})
}

// apiEmbeddingRequest is the OpenAI embeddings payload.
type apiEmbeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type apiEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) tryEmbedBatch(ctx context.Context, texts []string, model string) (*BatchEmbeddingResponse, error) {
	body, err := json.Marshal(apiEmbeddingRequest{Input: texts, Model: model})
	if err != nil {
		return nil, llm.NewDecodeError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewTransportError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.NewTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewTransportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, llm.NewHTTPStatusError(resp.StatusCode, llm.ExtractErrorMessage(respBody))
	}

	var apiResp apiEmbeddingResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, llm.NewDecodeError(err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, llm.NewMessageError("embedding count does not match input count")
	}

	// The API may return entries out of order; the index field is
	// authoritative.
	sort.Slice(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	vectors := make([][]float32, len(apiResp.Data))
	for i, d := range apiResp.Data {
		vectors[i] = d.Embedding
	}

	respModel := apiResp.Model
	if respModel == "" {
		respModel = model
	}
	return &BatchEmbeddingResponse{
		Vectors: vectors,
		Model:   respModel,
		Usage: Usage{
			PromptTokens: apiResp.Usage.PromptTokens,
			TotalTokens:  apiResp.Usage.TotalTokens,
		},
	}, nil
}

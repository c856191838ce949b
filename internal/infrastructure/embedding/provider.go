package embedding

import (
	"context"
)

// Provider turns text into fixed-dimension vectors for indexing and search.
type Provider interface {
	// Name identifies the provider implementation.
	Name() string

	// Dimension is the vector width every response carries.
	Dimension() int

	// Embed embeds a single text.
	Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)

	// EmbedBatch embeds several texts in one upstream call. The returned
	// vectors are in input order.
	EmbedBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)
}

// EmbeddingRequest is a single-text embedding call.
type EmbeddingRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// EmbeddingResponse carries one vector.
type EmbeddingResponse struct {
	Vector []float32 `json:"vector"`
	Model  string    `json:"model"`
	Usage  Usage     `json:"usage"`
}

// BatchEmbeddingRequest embeds several texts at once.
type BatchEmbeddingRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model,omitempty"`
}

// BatchEmbeddingResponse carries vectors in input order.
type BatchEmbeddingResponse struct {
	Vectors [][]float32 `json:"vectors"`
	Model   string      `json:"model"`
	Usage   Usage       `json:"usage"`
}

// Usage is the upstream token accounting.
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

package embedding

import (
	"context"
	"sync"
)

const (
	mockName  = "mock-embedding"
	mockModel = "mock-embedding-model"
)

// MockProvider emits deterministic constant vectors for tests and offline
// runs. Queued vectors, when present, override the constant fill in FIFO
// order.
type MockProvider struct {
	mu        sync.Mutex
	dimension int
	queued    [][]float32
}

// NewMockProvider creates a mock embedder of the given dimension.
func NewMockProvider(dimension int) *MockProvider {
	return &MockProvider{dimension: dimension}
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) Name() string { return mockName }

func (m *MockProvider) Dimension() int { return m.dimension }

// EnqueueVector queues a vector returned ahead of the constant fill.
func (m *MockProvider) EnqueueVector(vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, vec)
}

func (m *MockProvider) next() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queued) > 0 {
		vec := m.queued[0]
		m.queued = m.queued[1:]
		return vec
	}
	vec := make([]float32, m.dimension)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}

func (m *MockProvider) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	return &EmbeddingResponse{
		Vector: m.next(),
		Model:  mockModel,
		Usage:  Usage{PromptTokens: 10, TotalTokens: 10},
	}, nil
}

func (m *MockProvider) EmbedBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	vectors := make([][]float32, len(req.Texts))
	for i := range req.Texts {
		vectors[i] = m.next()
	}
	count := len(req.Texts)
	return &BatchEmbeddingResponse{
		Vectors: vectors,
		Model:   mockModel,
		Usage:   Usage{PromptTokens: count * 10, TotalTokens: count * 10},
	}, nil
}

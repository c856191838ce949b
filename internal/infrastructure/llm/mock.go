package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

func init() {
	RegisterFactory("mock", func(cfg ProviderConfig, logger *zap.Logger) Provider {
		return NewMockProvider()
	})
}

// MockProvider serves queued responses for tests and offline runs.
// Generate and GenerateStream pop from their own queues; an empty queue
// yields ErrMockQueueEmpty.
type MockProvider struct {
	mu        sync.Mutex
	responses []mockResult
	streams   [][]StreamChunk
}

type mockResult struct {
	resp *GenerateResponse
	err  error
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) IsAvailable(ctx context.Context) bool { return true }

// EnqueueResponse queues a successful Generate result.
func (m *MockProvider) EnqueueResponse(resp *GenerateResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResult{resp: resp})
}

// EnqueueError queues a Generate failure.
func (m *MockProvider) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResult{err: err})
}

// EnqueueStream queues one stream's chunks. A missing done chunk is
// appended on delivery so the stream contract holds.
func (m *MockProvider) EnqueueStream(chunks ...StreamChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, chunks)
}

func (m *MockProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return nil, ErrMockQueueEmpty
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.resp, nil
}

func (m *MockProvider) GenerateStream(ctx context.Context, req *GenerateRequest, deltaCh chan<- StreamChunk) error {
	m.mu.Lock()
	if len(m.streams) == 0 {
		m.mu.Unlock()
		return ErrMockQueueEmpty
	}
	chunks := m.streams[0]
	m.streams = m.streams[1:]
	m.mu.Unlock()

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

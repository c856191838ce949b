package indexing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/embedding"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/vectorstore"
	"go.uber.org/zap"
)

// EmbedError marks a failure in the embedding stage. The queue requeues
// tasks failing here; failures in any later stage are terminal.
type EmbedError struct {
	Err error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embed: %v", e.Err)
}

func (e *EmbedError) Unwrap() error { return e.Err }

// Service embeds messages and writes them to the vector store.
type Service struct {
	embedder embedding.Provider
	store    vectorstore.VectorStore
	policy   RetryPolicy
	logger   *zap.Logger
}

// NewService wires an embedder and a vector store into an indexing service.
func NewService(embedder embedding.Provider, store vectorstore.VectorStore, policy RetryPolicy, logger *zap.Logger) *Service {
	return &Service{
		embedder: embedder,
		store:    store,
		policy:   policy,
		logger:   logger.With(zap.String("component", "indexing")),
	}
}

// IndexMessage embeds the task content, retrying transient embedder
// failures per the policy, then upserts the document keyed by message id.
func (s *Service) IndexMessage(ctx context.Context, task *IndexTask) error {
	var vector []float32
	err := s.policy.WithRetry(ctx, func() error {
		resp, embedErr := s.embedder.Embed(ctx, embedding.EmbeddingRequest{Text: task.Content})
		if embedErr != nil {
			return embedErr
		}
		vector = resp.Vector
		return nil
	})
	if err != nil {
		return &EmbedError{Err: err}
	}

	doc := &vectorstore.Document{
		ID:      task.MessageID,
		Content: task.Content,
		Vector:  vectorstore.NewVector(vector),
		Metadata: vectorstore.DocumentMetadata{
			RoomID:    task.RoomID,
			UserID:    task.Sender,
			MessageID: task.MessageID,
			Extra:     customExtra(task.Metadata),
		},
		CreatedAt: task.CreatedAt,
	}
	if err := s.store.Upsert(ctx, doc); err != nil {
		return err
	}

	s.logger.Debug("Message indexed",
		zap.String("message_id", task.MessageID),
		zap.String("room_id", task.RoomID),
	)
	return nil
}

// customExtra nests caller metadata under the "custom" key, JSON-encoded.
func customExtra(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	return map[string]string{"custom": string(encoded)}
}

// Search embeds the query text and runs a similarity search.
func (s *Service) Search(ctx context.Context, text string, limit int, minScore float64) ([]vectorstore.SearchResult, error) {
	return s.SearchInRoom(ctx, text, "", limit, minScore)
}

// SearchInRoom is Search restricted to one room. An empty roomID searches
// every room.
func (s *Service) SearchInRoom(ctx context.Context, text, roomID string, limit int, minScore float64) ([]vectorstore.SearchResult, error) {
	resp, err := s.embedder.Embed(ctx, embedding.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, err
	}

	query := vectorstore.NewSearchQuery(vectorstore.NewVector(resp.Vector))
	if limit > 0 {
		query.Limit = limit
	}
	query.MinScore = minScore
	if roomID != "" {
		query.Filter = &vectorstore.SearchFilter{RoomID: roomID}
	}

	start := time.Now()
	results, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Similarity search complete",
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

package search

import (
	"context"
	"strings"

	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/embedding"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/vectorstore"
	"github.com/nexis-chat/nexis/gateway/pkg/errors"
	"go.uber.org/zap"
)

// DefaultLimit applies when a request carries no limit.
const DefaultLimit = 10

// Request is one semantic search over indexed messages.
type Request struct {
	Query    string  `json:"query"`
	Limit    int     `json:"limit,omitempty"`
	MinScore float64 `json:"min_score,omitempty"`
	RoomID   string  `json:"room_id,omitempty"`
	// IncludeContent defaults to true when absent.
	IncludeContent *bool `json:"include_content,omitempty"`
}

// Result is one matched message.
type Result struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Content  string            `json:"content,omitempty"`
	RoomID   string            `json:"room_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Response carries the ranked matches. Truncated flags a result set that
// filled the limit, so more matches may exist.
type Response struct {
	Query     string   `json:"query"`
	Results   []Result `json:"results"`
	Total     int      `json:"total"`
	Truncated bool     `json:"truncated"`
}

// Service answers semantic queries by embedding the query text and
// delegating to the vector store.
type Service struct {
	embedder embedding.Provider
	store    vectorstore.VectorStore
	logger   *zap.Logger
}

// NewService wires an embedder and vector store into a search service.
func NewService(embedder embedding.Provider, store vectorstore.VectorStore, logger *zap.Logger) *Service {
	return &Service{
		embedder: embedder,
		store:    store,
		logger:   logger.With(zap.String("component", "search")),
	}
}

// Search runs one query. A blank query is rejected before any upstream
// call.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.NewInvalidInputError("search query must not be empty")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	embedResp, err := s.embedder.Embed(ctx, embedding.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, err
	}

	includeContent := req.IncludeContent == nil || *req.IncludeContent

	// Content is always requested from the store; on opt-out the service
	// still needs it to drop content-less matches before shaping.
	query := vectorstore.NewSearchQuery(vectorstore.NewVector(embedResp.Vector))
	query.Limit = limit
	query.MinScore = req.MinScore
	if req.RoomID != "" {
		query.Filter = &vectorstore.SearchFilter{RoomID: req.RoomID}
	}

	matches, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if !includeContent && m.Document.Content == "" {
			continue
		}
		result := Result{
			ID:       m.Document.ID,
			Score:    m.Score,
			RoomID:   m.Document.Metadata.RoomID,
			Metadata: m.Document.Metadata.Extra,
		}
		if includeContent {
			result.Content = m.Document.Content
		}
		results = append(results, result)
	}

	s.logger.Debug("Search complete",
		zap.String("query", req.Query),
		zap.Int("results", len(results)),
	)
	return &Response{
		Query:     req.Query,
		Results:   results,
		Total:     len(results),
		Truncated: len(results) >= limit,
	}, nil
}

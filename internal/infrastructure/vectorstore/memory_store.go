package vectorstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the in-process VectorStore. It is the default backend and
// the reference for search ordering semantics.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string]*Document
}

// NewMemoryStore creates an empty in-memory store of the given dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		docs:      make(map[string]*Document),
	}
}

var _ VectorStore = (*MemoryStore)(nil)

func (s *MemoryStore) Dimension() int { return s.dimension }

func (s *MemoryStore) BackendName() string { return "memory" }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Upsert(ctx context.Context, doc *Document) error {
	if len(doc.Vector.Data) != s.dimension {
		return &InvalidDimensionError{Expected: s.dimension, Actual: len(doc.Vector.Data)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *doc
	if existing, ok := s.docs[doc.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.docs[doc.ID] = &stored
	return nil
}

func (s *MemoryStore) UpsertBatch(ctx context.Context, docs []*Document) (*BatchResult, error) {
	result := &BatchResult{}
	for _, doc := range docs {
		if err := s.Upsert(ctx, doc); err != nil {
			result.Failed = append(result.Failed, BatchFailure{ID: doc.ID, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, doc.ID)
	}
	return result, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	copied := *doc
	return &copied, nil
}

func (s *MemoryStore) GetBatch(ctx context.Context, ids []string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			copied := *doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) DeleteBatch(ctx context.Context, ids []string) (*BatchResult, error) {
	result := &BatchResult{}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			result.Failed = append(result.Failed, BatchFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

func (s *MemoryStore) Search(ctx context.Context, query SearchQuery) ([]SearchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if len(query.Vector.Data) != s.dimension {
		return nil, &InvalidDimensionError{Expected: s.dimension, Actual: len(query.Vector.Data)}
	}

	s.mu.RLock()
	candidates := make([]SearchResult, 0, len(s.docs))
	for _, doc := range s.docs {
		if !query.Filter.Matches(doc) {
			continue
		}
		score := CosineSimilarity(query.Vector, doc.Vector)
		if score < query.MinScore {
			continue
		}
		copied := *doc
		candidates = append(candidates, SearchResult{Document: copied, Score: score})
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if !candidates[i].Document.CreatedAt.Equal(candidates[j].Document.CreatedAt) {
			return candidates[i].Document.CreatedAt.After(candidates[j].Document.CreatedAt)
		}
		return candidates[i].Document.ID < candidates[j].Document.ID
	})

	// Pagination applies to the sorted result set.
	if query.Offset >= len(candidates) {
		return []SearchResult{}, nil
	}
	candidates = candidates[query.Offset:]
	if len(candidates) > query.Limit {
		candidates = candidates[:query.Limit]
	}

	for i := range candidates {
		if !query.IncludeContent {
			candidates[i].Document.Content = ""
		}
		if !query.IncludeMetadata {
			candidates[i].Document.Metadata = DocumentMetadata{}
		}
	}
	return candidates, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[id]
	return ok, nil
}

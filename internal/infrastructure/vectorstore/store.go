package vectorstore

import "context"

// VectorStore persists documents and answers similarity queries. Results
// are ordered by score descending, with creation time (newest first) and
// then id as tie breakers.
type VectorStore interface {
	// Upsert inserts or replaces a document. A vector whose width does
	// not match the store dimension yields InvalidDimensionError.
	Upsert(ctx context.Context, doc *Document) error

	// UpsertBatch applies Upsert per document and partitions the outcome.
	UpsertBatch(ctx context.Context, docs []*Document) (*BatchResult, error)

	// Get returns a document by id or NotFoundError.
	Get(ctx context.Context, id string) (*Document, error)

	// GetBatch returns the documents that exist, skipping missing ids.
	GetBatch(ctx context.Context, ids []string) ([]*Document, error)

	// Delete removes a document or returns NotFoundError.
	Delete(ctx context.Context, id string) error

	// DeleteBatch applies Delete per id and partitions the outcome.
	DeleteBatch(ctx context.Context, ids []string) (*BatchResult, error)

	// Search runs a similarity query.
	Search(ctx context.Context, query SearchQuery) ([]SearchResult, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Exists reports whether a document id is present.
	Exists(ctx context.Context, id string) (bool, error)

	// Dimension is the vector width this store accepts.
	Dimension() int

	// BackendName identifies the implementation.
	BackendName() string

	// Close releases backend resources.
	Close() error
}

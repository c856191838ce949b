package vectorstore

import (
	"fmt"
	"math"
	"time"
)

// Vector is a fixed-dimension embedding. Dimensions must equal len(Data).
type Vector struct {
	Dimensions int       `json:"dimensions"`
	Data       []float32 `json:"data"`
}

// NewVector builds a vector whose declared dimension matches its data.
func NewVector(data []float32) Vector {
	return Vector{Dimensions: len(data), Data: data}
}

// Validate checks the declared dimension against the payload.
func (v Vector) Validate() error {
	if v.Dimensions != len(v.Data) {
		return &InvalidDimensionError{Expected: v.Dimensions, Actual: len(v.Data)}
	}
	return nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// A zero-magnitude operand yields 0 rather than NaN.
func CosineSimilarity(a, b Vector) float64 {
	if len(a.Data) != len(b.Data) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a.Data {
		dot += float64(a.Data[i]) * float64(b.Data[i])
		magA += float64(a.Data[i]) * float64(a.Data[i])
		magB += float64(b.Data[i]) * float64(b.Data[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// DocumentMetadata carries the chat-domain attributes of an indexed document.
type DocumentMetadata struct {
	RoomID    string            `json:"roomId,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	MessageID string            `json:"messageId,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Document is one stored entry: content plus its embedding and metadata.
type Document struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	Vector    Vector           `json:"vector"`
	Metadata  DocumentMetadata `json:"metadata"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// TimeRange bounds document creation time, inclusive at both ends.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SearchFilter restricts search candidates. All set fields must match;
// Tags matches when the document carries any of the listed tags.
type SearchFilter struct {
	RoomID    string     `json:"roomId,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	TimeRange *TimeRange `json:"timeRange,omitempty"`
}

// Matches reports whether the document satisfies every set constraint.
func (f *SearchFilter) Matches(doc *Document) bool {
	if f == nil {
		return true
	}
	if f.RoomID != "" && doc.Metadata.RoomID != f.RoomID {
		return false
	}
	if f.UserID != "" && doc.Metadata.UserID != f.UserID {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
		for _, want := range f.Tags {
			for _, have := range doc.Metadata.Tags {
				if want == have {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TimeRange != nil {
		if doc.CreatedAt.Before(f.TimeRange.Start) || doc.CreatedAt.After(f.TimeRange.End) {
			return false
		}
	}
	return true
}

// SearchQuery is one similarity search. Limit defaults to 10 and MinScore
// must stay within [0, 1].
type SearchQuery struct {
	Vector          Vector        `json:"vector"`
	Limit           int           `json:"limit"`
	Offset          int           `json:"offset"`
	MinScore        float64       `json:"minScore"`
	Filter          *SearchFilter `json:"filter,omitempty"`
	IncludeContent  bool          `json:"includeContent"`
	IncludeMetadata bool          `json:"includeMetadata"`
}

// NewSearchQuery builds a query with the default limit and both include
// flags on.
func NewSearchQuery(vector Vector) SearchQuery {
	return SearchQuery{
		Vector:          vector,
		Limit:           10,
		IncludeContent:  true,
		IncludeMetadata: true,
	}
}

// Validate normalizes and bounds-checks the query in place.
func (q *SearchQuery) Validate() error {
	if len(q.Vector.Data) == 0 {
		return fmt.Errorf("query vector must not be empty")
	}
	if err := q.Vector.Validate(); err != nil {
		return err
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", q.Offset)
	}
	if q.MinScore < 0 || q.MinScore > 1 {
		return fmt.Errorf("min score must be within [0, 1], got %v", q.MinScore)
	}
	return nil
}

// SearchResult pairs a matched document with its similarity score.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// BatchFailure records why one entry of a batch operation failed.
type BatchFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult partitions a batch operation into successes and failures.
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// InvalidDimensionError reports a vector whose width does not match the
// store.
type InvalidDimensionError struct {
	Expected int
	Actual   int
}

func (e *InvalidDimensionError) Error() string {
	return fmt.Sprintf("invalid vector dimension: expected %d, got %d", e.Expected, e.Actual)
}

// NotFoundError reports a missing document.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %q not found", e.ID)
}

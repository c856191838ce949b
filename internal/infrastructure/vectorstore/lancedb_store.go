package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	arrowmem "github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/lancedb/lancedb-go/pkg/contracts"
	"github.com/lancedb/lancedb-go/pkg/lancedb"
	"go.uber.org/zap"
)

const tableName = "documents"

// LanceDBStore is the persistent VectorStore backend. Room and user filters
// are pushed into LanceDB SQL; score, tag and time-range constraints are
// applied after the ANN pass.
type LanceDBStore struct {
	conn      contracts.IConnection
	table     contracts.ITable
	schema    *arrow.Schema
	dimension int
	logger    *zap.Logger
}

// NewLanceDBStore opens or creates a LanceDB table under storePath.
func NewLanceDBStore(storePath string, dimension int, logger *zap.Logger) (*LanceDBStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absPath, err := expandPath(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand store path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	ctx := context.Background()
	conn, err := lancedb.Connect(ctx, absPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LanceDB at %s: %w", absPath, err)
	}

	fields := []arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "content", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "vector", Type: arrow.FixedSizeListOf(int32(dimension), arrow.PrimitiveTypes.Float32), Nullable: false},
		{Name: "metadata", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "room_id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "user_id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "created_at", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "updated_at", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
	}
	arrowSchema := arrow.NewSchema(fields, nil)

	table, err := openOrCreateTable(ctx, conn, arrowSchema, logger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open/create table: %w", err)
	}

	logger.Info("LanceDB vector store initialized",
		zap.String("path", absPath),
		zap.Int("dimension", dimension),
	)

	return &LanceDBStore{
		conn:      conn,
		table:     table,
		schema:    arrowSchema,
		dimension: dimension,
		logger:    logger,
	}, nil
}

func openOrCreateTable(ctx context.Context, conn contracts.IConnection, arrowSchema *arrow.Schema, logger *zap.Logger) (contracts.ITable, error) {
	table, err := conn.OpenTable(ctx, tableName)
	if err == nil {
		logger.Info("Opened existing LanceDB table", zap.String("table", tableName))
		return table, nil
	}

	logger.Info("Creating new LanceDB table", zap.String("table", tableName))
	schema, err := lancedb.NewSchema(arrowSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to create LanceDB schema: %w", err)
	}
	return conn.CreateTable(ctx, tableName, schema)
}

var _ VectorStore = (*LanceDBStore)(nil)

func (s *LanceDBStore) Dimension() int { return s.dimension }

func (s *LanceDBStore) BackendName() string { return "lancedb" }

func (s *LanceDBStore) Upsert(ctx context.Context, doc *Document) error {
	if len(doc.Vector.Data) != s.dimension {
		return &InvalidDimensionError{Expected: s.dimension, Actual: len(doc.Vector.Data)}
	}

	// LanceDB has no native upsert; delete-then-add keeps ids unique.
	_ = s.table.Delete(ctx, idFilter(doc.ID))

	now := time.Now().UTC()
	stored := *doc
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	record, err := s.docToRecord(&stored)
	if err != nil {
		return fmt.Errorf("failed to build Arrow record: %w", err)
	}
	defer record.Release()

	if err := s.table.Add(ctx, record, nil); err != nil {
		return fmt.Errorf("LanceDB insert failed: %w", err)
	}
	s.logger.Debug("Document upserted", zap.String("id", doc.ID))
	return nil
}

func (s *LanceDBStore) UpsertBatch(ctx context.Context, docs []*Document) (*BatchResult, error) {
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

func (s *LanceDBStore) Get(ctx context.Context, id string) (*Document, error) {
	rows, err := s.table.SelectWithFilter(ctx, idFilter(id))
	if err != nil {
		return nil, fmt.Errorf("LanceDB select failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{ID: id}
	}
	doc, _ := rowToDocument(rows[0])
	if doc == nil {
		return nil, &NotFoundError{ID: id}
	}
	return doc, nil
}

func (s *LanceDBStore) GetBatch(ctx context.Context, ids []string) ([]*Document, error) {
	out := make([]*Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *LanceDBStore) Delete(ctx context.Context, id string) error {
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{ID: id}
	}
	if err := s.table.Delete(ctx, idFilter(id)); err != nil {
		return fmt.Errorf("LanceDB delete failed: %w", err)
	}
	return nil
}

func (s *LanceDBStore) DeleteBatch(ctx context.Context, ids []string) (*BatchResult, error) {
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

func (s *LanceDBStore) Search(ctx context.Context, query SearchQuery) ([]SearchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if len(query.Vector.Data) != s.dimension {
		return nil, &InvalidDimensionError{Expected: s.dimension, Actual: len(query.Vector.Data)}
	}

	// Over-fetch so post-filters and pagination still have enough rows.
	topK := (query.Offset + query.Limit) * 4
	if topK < 64 {
		topK = 64
	}

	filterExpr := buildFilterExpr(query.Filter)
	var rows []map[string]interface{}
	var err error
	if filterExpr != "" {
		rows, err = s.table.VectorSearchWithFilter(ctx, "vector", query.Vector.Data, topK, filterExpr)
	} else {
		rows, err = s.table.VectorSearch(ctx, "vector", query.Vector.Data, topK)
	}
	if err != nil {
		return nil, fmt.Errorf("LanceDB vector search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		doc, _ := rowToDocument(row)
		if doc == nil {
			continue
		}
		if !query.Filter.Matches(doc) {
			continue
		}
		// Cosine keeps the memory backend and this one score-compatible.
		score := CosineSimilarity(query.Vector, doc.Vector)
		if score < query.MinScore {
			continue
		}
		results = append(results, SearchResult{Document: *doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Document.CreatedAt.Equal(results[j].Document.CreatedAt) {
			return results[i].Document.CreatedAt.After(results[j].Document.CreatedAt)
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	if query.Offset >= len(results) {
		return []SearchResult{}, nil
	}
	results = results[query.Offset:]
	if len(results) > query.Limit {
		results = results[:query.Limit]
	}

	for i := range results {
		if !query.IncludeContent {
			results[i].Document.Content = ""
		}
		if !query.IncludeMetadata {
			results[i].Document.Metadata = DocumentMetadata{}
		}
	}
	return results, nil
}

func (s *LanceDBStore) Count(ctx context.Context) (int, error) {
	rows, err := s.table.SelectWithFilter(ctx, "id IS NOT NULL")
	if err != nil {
		return 0, fmt.Errorf("LanceDB count failed: %w", err)
	}
	return len(rows), nil
}

func (s *LanceDBStore) Exists(ctx context.Context, id string) (bool, error) {
	rows, err := s.table.SelectWithFilter(ctx, idFilter(id))
	if err != nil {
		return false, fmt.Errorf("LanceDB select failed: %w", err)
	}
	return len(rows) > 0, nil
}

func (s *LanceDBStore) Close() error {
	if s.table != nil {
		s.table.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

// ============ internal helpers ============

func idFilter(id string) string {
	return fmt.Sprintf("id = '%s'", strings.ReplaceAll(id, "'", "''"))
}

func (s *LanceDBStore) docToRecord(doc *Document) (arrow.Record, error) {
	pool := arrowmem.NewGoAllocator()

	idB := array.NewStringBuilder(pool)
	idB.Append(doc.ID)
	idArr := idB.NewArray()
	defer idArr.Release()

	contentB := array.NewStringBuilder(pool)
	contentB.Append(doc.Content)
	contentArr := contentB.NewArray()
	defer contentArr.Release()

	vectorArr, err := buildVectorArray(pool, doc.Vector.Data, s.dimension)
	if err != nil {
		return nil, err
	}
	defer vectorArr.Release()

	metaJSON, _ := json.Marshal(doc.Metadata)
	metaB := array.NewStringBuilder(pool)
	metaB.Append(string(metaJSON))
	metaArr := metaB.NewArray()
	defer metaArr.Release()

	roomB := array.NewStringBuilder(pool)
	roomB.Append(doc.Metadata.RoomID)
	roomArr := roomB.NewArray()
	defer roomArr.Release()

	userB := array.NewStringBuilder(pool)
	userB.Append(doc.Metadata.UserID)
	userArr := userB.NewArray()
	defer userArr.Release()

	createdB := array.NewInt64Builder(pool)
	createdB.Append(doc.CreatedAt.Unix())
	createdArr := createdB.NewArray()
	defer createdArr.Release()

	updatedB := array.NewInt64Builder(pool)
	updatedB.Append(doc.UpdatedAt.Unix())
	updatedArr := updatedB.NewArray()
	defer updatedArr.Release()

	cols := []arrow.Array{idArr, contentArr, vectorArr, metaArr, roomArr, userArr, createdArr, updatedArr}
	return array.NewRecord(s.schema, cols, 1), nil
}

func buildVectorArray(pool arrowmem.Allocator, vec []float32, dim int) (arrow.Array, error) {
	if len(vec) != dim {
		return nil, &InvalidDimensionError{Expected: dim, Actual: len(vec)}
	}

	floatB := array.NewFloat32Builder(pool)
	floatB.AppendValues(vec, nil)
	floatArr := floatB.NewArray()
	defer floatArr.Release()

	listType := arrow.FixedSizeListOf(int32(dim), arrow.PrimitiveTypes.Float32)
	listData := array.NewData(listType, 1, []*arrowmem.Buffer{nil},
		[]arrow.ArrayData{floatArr.Data()}, 0, 0)
	return array.NewFixedSizeListData(listData), nil
}

func buildFilterExpr(filter *SearchFilter) string {
	if filter == nil {
		return ""
	}
	var parts []string
	if filter.RoomID != "" {
		parts = append(parts, fmt.Sprintf("room_id = '%s'", strings.ReplaceAll(filter.RoomID, "'", "''")))
	}
	if filter.UserID != "" {
		parts = append(parts, fmt.Sprintf("user_id = '%s'", strings.ReplaceAll(filter.UserID, "'", "''")))
	}
	return strings.Join(parts, " AND ")
}

func rowToDocument(row map[string]interface{}) (*Document, error) {
	doc := &Document{}

	if v, ok := row["id"].(string); ok {
		doc.ID = v
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("row missing id")
	}
	if v, ok := row["content"].(string); ok {
		doc.Content = v
	}
	if v, ok := row["metadata"].(string); ok && v != "" {
		_ = json.Unmarshal([]byte(v), &doc.Metadata)
	}
	if v, ok := row["vector"].([]float32); ok {
		doc.Vector = NewVector(v)
	} else if v, ok := row["vector"].([]interface{}); ok {
		data := make([]float32, 0, len(v))
		for _, f := range v {
			if fv, ok := toFloat32(f); ok {
				data = append(data, fv)
			}
		}
		doc.Vector = NewVector(data)
	}
	if v, ok := toInt64(row["created_at"]); ok {
		doc.CreatedAt = time.Unix(v, 0).UTC()
	}
	if v, ok := toInt64(row["updated_at"]); ok {
		doc.UpdatedAt = time.Unix(v, 0).UTC()
	}
	return doc, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	}
	return 0, false
}

func toFloat32(v interface{}) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	}
	return 0, false
}

func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

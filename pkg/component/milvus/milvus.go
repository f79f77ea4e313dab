// Package milvus wraps the Milvus v2 client for chunk vector storage.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/nyx/pkg/options/milvus"
)

// 集合字段名。
const (
	FieldChunkID    = "chunk_id"
	FieldDocumentID = "document_id"
	FieldTenantID   = "tenant_id"
	FieldEmbedding  = "embedding"
)

// idMaxLen ULID 长度留余量。
const idMaxLen = 64

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// Collection returns the configured collection name.
func (c *Client) Collection() string {
	return c.opts.Collection
}

// EnsureCollection creates the chunk collection with a COSINE IVF_FLAT index
// when it does not exist yet, then loads it.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	name := c.opts.Collection
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(name).
			WithDescription("knowledge base chunk vectors").
			WithField(entity.NewField().
				WithName(FieldChunkID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(idMaxLen).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName(FieldDocumentID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(idMaxLen)).
			WithField(entity.NewField().
				WithName(FieldTenantID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(256)).
			WithField(entity.NewField().
				WithName(FieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(dimension)))

		if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx := index.NewIvfFlatIndex(entity.COSINE, 128)
		task, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, FieldEmbedding, idx))
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		if err := task.Await(ctx); err != nil {
			return fmt.Errorf("failed to wait for index creation: %w", err)
		}
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// Row is one chunk vector.
type Row struct {
	ChunkID    string
	DocumentID string
	TenantID   string
	Embedding  []float32
}

// Insert writes rows and flushes so they are searchable immediately.
func (c *Client) Insert(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(rows))
	documentIDs := make([]string, len(rows))
	tenantIDs := make([]string, len(rows))
	vectors := make([][]float32, len(rows))
	for i, r := range rows {
		chunkIDs[i] = r.ChunkID
		documentIDs[i] = r.DocumentID
		tenantIDs[i] = r.TenantID
		vectors[i] = r.Embedding
	}

	name := c.opts.Collection
	_, err := c.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(name,
		column.NewColumnVarChar(FieldChunkID, chunkIDs),
		column.NewColumnVarChar(FieldDocumentID, documentIDs),
		column.NewColumnVarChar(FieldTenantID, tenantIDs),
		column.NewColumnFloatVector(FieldEmbedding, len(vectors[0]), vectors),
	))
	if err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(name))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// SearchResult represents a single search hit. Score is the cosine similarity.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Score      float32
}

// Search returns the topK nearest chunks that satisfy the filter expression.
func (c *Client) Search(ctx context.Context, vector []float32, topK int, filter string) ([]SearchResult, error) {
	opt := milvusclient.NewSearchOption(
		c.opts.Collection,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(FieldEmbedding).
		WithSearchParam("nprobe", "16").
		WithOutputFields(FieldDocumentID)
	if filter != "" {
		opt = opt.WithFilter(filter)
	}

	results, err := c.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	rs := results[0]
	out := make([]SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := SearchResult{Score: rs.Scores[i]}
		if idCol, ok := rs.IDs.(*column.ColumnVarChar); ok {
			hit.ChunkID = idCol.Data()[i]
		}
		for _, field := range rs.Fields {
			if col, ok := field.(*column.ColumnVarChar); ok && col.Name() == FieldDocumentID {
				hit.DocumentID = col.Data()[i]
			}
		}
		out = append(out, hit)
	}
	return out, nil
}

// DeleteByExpr deletes every entity matching the boolean expression.
func (c *Client) DeleteByExpr(ctx context.Context, expr string) error {
	if _, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(c.opts.Collection).WithExpr(expr)); err != nil {
		return fmt.Errorf("failed to delete by expr: %w", err)
	}
	return nil
}

// Count returns the number of entities in the collection.
func (c *Client) Count(ctx context.Context) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(c.opts.Collection))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}

// StringEq builds a `field == "value"` expression with the value escaped.
func StringEq(field, value string) string {
	return fmt.Sprintf("%s == %s", field, strconv.Quote(value))
}

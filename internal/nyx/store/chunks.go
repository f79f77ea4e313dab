package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kart-io/nyx/internal/model"
)

// insertBatchSize 单条 INSERT 的最大行数。
const insertBatchSize = 100

type chunks struct {
	db    *gorm.DB
	index VectorIndex
}

func newChunks(db *gorm.DB, index VectorIndex) *chunks {
	return &chunks{db: db, index: index}
}

// CreateBatch inserts all chunks in one transaction, then writes the
// embedded ones to the vector index.
func (c *chunks) CreateBatch(ctx context.Context, items []*model.Chunk) error {
	if len(items) == 0 {
		return nil
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(items, insertBatchSize).Error
	})
	if err != nil {
		return err
	}

	embedded := make([]*model.Chunk, 0, len(items))
	for _, ch := range items {
		if ch.HasEmbedding() {
			embedded = append(embedded, ch)
		}
	}
	if len(embedded) == 0 {
		return nil
	}
	if err := c.index.Insert(ctx, embedded); err != nil {
		return fmt.Errorf("%s index insert: %w", c.index.Name(), err)
	}
	return nil
}

// ListByDocument returns a document's chunks in index order.
func (c *chunks) ListByDocument(ctx context.Context, documentID string) ([]*model.Chunk, error) {
	out := make([]*model.Chunk, 0)
	err := c.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountByDocument counts a document's chunks.
func (c *chunks) CountByDocument(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return count, err
}

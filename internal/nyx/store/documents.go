package store

import (
	"context"
	"errors"

	"github.com/kart-io/logger"
	"gorm.io/gorm"

	"github.com/kart-io/nyx/internal/model"
)

type documents struct {
	db    *gorm.DB
	index VectorIndex
}

func newDocuments(db *gorm.DB, index VectorIndex) *documents {
	return &documents{db: db, index: index}
}

// Create creates a new document and fills in its id and created_at.
func (d *documents) Create(ctx context.Context, doc *model.Document) error {
	return d.db.WithContext(ctx).Create(doc).Error
}

// Get retrieves a document by id.
func (d *documents) Get(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListByTenant lists a tenant's documents, most recent first. ULIDs break
// ties between documents created within the same clock tick.
func (d *documents) ListByTenant(ctx context.Context, tenantID string) ([]*model.Document, error) {
	docs := make([]*model.Document, 0)
	err := d.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes the document's chunks and then the document in one
// transaction, then drops its vectors from the index.
func (d *documents) Delete(ctx context.Context, id string) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Document{}).Error
	})
	if err != nil {
		return err
	}

	if err := d.index.DeleteByDocument(ctx, id); err != nil {
		// 分块行已删除，残留向量在检索时会因找不到分块而被丢弃
		logger.Warnw("failed to delete document vectors",
			"document_id", id,
			"index", d.index.Name(),
			"error", err.Error(),
		)
	}
	return nil
}

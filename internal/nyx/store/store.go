// Package store 是知识库的持久化层：文档、分块与向量索引。
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/nyx/internal/model"
)

// ErrDocumentNotFound is returned when a document id does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// Factory defines the factory interface for creating stores.
type Factory interface {
	Documents() DocumentStore
	Chunks() ChunkStore
	Searcher() Searcher
	AutoMigrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// DocumentStore defines the document storage interface.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, id string) (*model.Document, error)
	// ListByTenant 按 created_at 倒序返回租户的全部文档。
	ListByTenant(ctx context.Context, tenantID string) ([]*model.Document, error)
	// Delete 删除文档及其分块。未知 id 不报错。
	Delete(ctx context.Context, id string) error
}

// ChunkStore defines the chunk storage interface.
type ChunkStore interface {
	// CreateBatch 在一个事务内写入全部分块，随后写入向量索引。
	CreateBatch(ctx context.Context, chunks []*model.Chunk) error
	ListByDocument(ctx context.Context, documentID string) ([]*model.Chunk, error)
	CountByDocument(ctx context.Context, documentID string) (int64, error)
}

// Match is one similarity search hit.
type Match struct {
	ChunkID    string  `json:"chunkId"`
	DocumentID string  `json:"documentId"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Searcher ranks a tenant's chunks against a query embedding.
type Searcher interface {
	// SimilaritySearch returns at most limit matches with cosine similarity
	// >= threshold, most similar first.
	SimilaritySearch(ctx context.Context, tenantID string, query []float32, threshold float64, limit int) ([]Match, error)
}

// VectorIndex stores chunk embeddings for similarity search. The chunk row
// stays the source of truth; indexes are written after it and cleaned up
// with its document.
type VectorIndex interface {
	Searcher
	Name() string
	Insert(ctx context.Context, chunks []*model.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
}

// migrator is implemented by indexes that own schema.
type migrator interface {
	Migrate(ctx context.Context) error
}

// datastore implements the Factory interface.
type datastore struct {
	db    *gorm.DB
	index VectorIndex
}

var _ Factory = (*datastore)(nil)

// NewFactory returns a gorm-backed Factory. A nil index selects the
// in-process SQL index.
func NewFactory(db *gorm.DB, index VectorIndex) Factory {
	if index == nil {
		index = NewSQLIndex(db)
	}
	return &datastore{db: db, index: index}
}

// Documents returns the document store.
func (ds *datastore) Documents() DocumentStore {
	return newDocuments(ds.db, ds.index)
}

// Chunks returns the chunk store.
func (ds *datastore) Chunks() ChunkStore {
	return newChunks(ds.db, ds.index)
}

// Searcher returns the configured vector index.
func (ds *datastore) Searcher() Searcher {
	return ds.index
}

// AutoMigrate migrates the database schema.
func (ds *datastore) AutoMigrate(ctx context.Context) error {
	if err := ds.db.WithContext(ctx).AutoMigrate(&model.Document{}, &model.Chunk{}); err != nil {
		return err
	}
	if m, ok := ds.index.(migrator); ok {
		return m.Migrate(ctx)
	}
	return nil
}

// Ping verifies the database connection.
func (ds *datastore) Ping(ctx context.Context) error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the factory. The connection is owned by the caller.
func (ds *datastore) Close() error {
	return nil
}

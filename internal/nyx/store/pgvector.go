package store

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/kart-io/nyx/internal/model"
)

// chunkVector is a row of the pgvector side table.
type chunkVector struct {
	ChunkID    string          `gorm:"column:chunk_id;primaryKey"`
	DocumentID string          `gorm:"column:document_id"`
	TenantID   string          `gorm:"column:tenant_id"`
	Embedding  pgvector.Vector `gorm:"column:embedding"`
}

func (chunkVector) TableName() string {
	return "nyx_chunk_vectors"
}

// pgvectorIndex keeps embeddings in a postgres vector column and lets the
// database rank them with the <=> cosine distance operator.
type pgvectorIndex struct {
	db        *gorm.DB
	dimension int
}

// NewPGVectorIndex returns an index backed by the pgvector extension.
func NewPGVectorIndex(db *gorm.DB, dimension int) VectorIndex {
	return &pgvectorIndex{db: db, dimension: dimension}
}

func (p *pgvectorIndex) Name() string { return "pgvector" }

// Migrate creates the extension, the side table and an HNSW cosine index.
func (p *pgvectorIndex) Migrate(ctx context.Context) error {
	db := p.db.WithContext(ctx)
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS nyx_chunk_vectors (
	chunk_id varchar(26) PRIMARY KEY,
	document_id varchar(26) NOT NULL,
	tenant_id varchar(64) NOT NULL,
	embedding vector(%d) NOT NULL
)`, p.dimension),
		"CREATE INDEX IF NOT EXISTS idx_chunk_vectors_tenant ON nyx_chunk_vectors (tenant_id)",
		"CREATE INDEX IF NOT EXISTS idx_chunk_vectors_document ON nyx_chunk_vectors (document_id)",
		"CREATE INDEX IF NOT EXISTS idx_chunk_vectors_embedding ON nyx_chunk_vectors USING hnsw (embedding vector_cosine_ops)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("pgvector migrate: %w", err)
		}
	}
	return nil
}

func (p *pgvectorIndex) Insert(ctx context.Context, chunks []*model.Chunk) error {
	rows := make([]chunkVector, 0, len(chunks))
	for _, ch := range chunks {
		rows = append(rows, chunkVector{
			ChunkID:    ch.ID,
			DocumentID: ch.DocumentID,
			TenantID:   ch.TenantID,
			Embedding:  pgvector.NewVector(ch.Embedding),
		})
	}
	return p.db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error
}

func (p *pgvectorIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	return p.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&chunkVector{}).Error
}

const pgvectorSearchSQL = `SELECT c.id AS chunk_id, c.document_id, c.content, 1 - (v.embedding <=> ?) AS similarity
FROM nyx_chunk_vectors v
JOIN nyx_chunks c ON c.id = v.chunk_id
WHERE v.tenant_id = ? AND 1 - (v.embedding <=> ?) >= ?
ORDER BY v.embedding <=> ?
LIMIT ?`

func (p *pgvectorIndex) SimilaritySearch(ctx context.Context, tenantID string, query []float32, threshold float64, limit int) ([]Match, error) {
	if limit <= 0 || len(query) == 0 {
		return []Match{}, nil
	}

	vec := pgvector.NewVector(query)
	matches := make([]Match, 0, limit)
	err := p.db.WithContext(ctx).
		Raw(pgvectorSearchSQL, vec, tenantID, vec, threshold, vec, limit).
		Scan(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

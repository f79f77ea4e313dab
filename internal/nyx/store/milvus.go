package store

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/kart-io/nyx/internal/model"
	"github.com/kart-io/nyx/pkg/component/milvus"
)

// milvusClient is the subset of the Milvus wrapper the index uses.
type milvusClient interface {
	Insert(ctx context.Context, rows []milvus.Row) error
	Search(ctx context.Context, vector []float32, topK int, filter string) ([]milvus.SearchResult, error)
	DeleteByExpr(ctx context.Context, expr string) error
}

// milvusIndex stores vectors in a Milvus collection filtered by tenant.
// Content is read back from the chunk rows.
type milvusIndex struct {
	db     *gorm.DB
	client milvusClient
}

// NewMilvusIndex returns an index backed by a Milvus collection. The
// collection must already exist (see milvus.Client.EnsureCollection).
func NewMilvusIndex(db *gorm.DB, client milvusClient) VectorIndex {
	return &milvusIndex{db: db, client: client}
}

func (m *milvusIndex) Name() string { return "milvus" }

func (m *milvusIndex) Insert(ctx context.Context, chunks []*model.Chunk) error {
	rows := make([]milvus.Row, 0, len(chunks))
	for _, ch := range chunks {
		rows = append(rows, milvus.Row{
			ChunkID:    ch.ID,
			DocumentID: ch.DocumentID,
			TenantID:   ch.TenantID,
			Embedding:  ch.Embedding,
		})
	}
	return m.client.Insert(ctx, rows)
}

func (m *milvusIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	return m.client.DeleteByExpr(ctx, milvus.StringEq(milvus.FieldDocumentID, documentID))
}

func (m *milvusIndex) SimilaritySearch(ctx context.Context, tenantID string, query []float32, threshold float64, limit int) ([]Match, error) {
	if limit <= 0 || len(query) == 0 {
		return []Match{}, nil
	}

	hits, err := m.client.Search(ctx, query, limit, milvus.StringEq(milvus.FieldTenantID, tenantID))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hits))
	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		// COSINE 度量下 score 即相似度
		if float64(h.Score) < threshold {
			continue
		}
		ids = append(ids, h.ChunkID)
		scores[h.ChunkID] = float64(h.Score)
	}
	if len(ids) == 0 {
		return []Match{}, nil
	}

	var rows []*model.Chunk
	err = m.db.WithContext(ctx).
		Select("id", "document_id", "content").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// 向量存在但分块已删除的命中直接丢弃
	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, Match{
			ChunkID:    row.ID,
			DocumentID: row.DocumentID,
			Content:    row.Content,
			Similarity: scores[row.ID],
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches, nil
}

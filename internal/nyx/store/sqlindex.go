package store

import (
	"context"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/kart-io/nyx/internal/model"
)

// sqlIndex scores the embeddings stored on chunk rows in process.
type sqlIndex struct {
	db *gorm.DB
}

// NewSQLIndex returns the default index, which needs no extra storage.
func NewSQLIndex(db *gorm.DB) VectorIndex {
	return &sqlIndex{db: db}
}

func (s *sqlIndex) Name() string { return "sql" }

// Insert is a no-op: the embedding already lives on the chunk row.
func (s *sqlIndex) Insert(context.Context, []*model.Chunk) error { return nil }

// DeleteByDocument is a no-op: vectors go away with the chunk rows.
func (s *sqlIndex) DeleteByDocument(context.Context, string) error { return nil }

// SimilaritySearch loads the tenant's embedded chunks and ranks them by
// cosine similarity.
func (s *sqlIndex) SimilaritySearch(ctx context.Context, tenantID string, query []float32, threshold float64, limit int) ([]Match, error) {
	if limit <= 0 || len(query) == 0 {
		return []Match{}, nil
	}

	var rows []*model.Chunk
	err := s.db.WithContext(ctx).
		Select("id", "document_id", "content", "embedding").
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, limit)
	for _, row := range rows {
		// 未嵌入的分块存储为 JSON null，长度为 0
		if len(row.Embedding) != len(query) {
			continue
		}
		sim := CosineSimilarity(query, row.Embedding)
		if sim < threshold {
			continue
		}
		matches = append(matches, Match{
			ChunkID:    row.ID,
			DocumentID: row.DocumentID,
			Content:    row.Content,
			Similarity: sim,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either vector has
// zero length or the dimensions differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

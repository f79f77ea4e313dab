package store

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/nyx/internal/model"
	"github.com/kart-io/nyx/pkg/component/milvus"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestFactory(t *testing.T, index func(db *gorm.DB) VectorIndex) (Factory, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	var idx VectorIndex
	if index != nil {
		idx = index(db)
	}
	f := NewFactory(db, idx)
	require.NoError(t, f.AutoMigrate(context.Background()))
	return f, db
}

func createDoc(t *testing.T, f Factory, tenant, name string) *model.Document {
	t.Helper()
	doc := &model.Document{TenantID: tenant, Name: name, Content: name + " body", SourceType: model.SourceText}
	require.NoError(t, f.Documents().Create(context.Background(), doc))
	return doc
}

func chunksFor(doc *model.Document, embeddings ...[]float32) []*model.Chunk {
	out := make([]*model.Chunk, 0, len(embeddings))
	for i, e := range embeddings {
		out = append(out, &model.Chunk{
			DocumentID: doc.ID,
			TenantID:   doc.TenantID,
			Content:    doc.Name + " chunk",
			Index:      i,
			Embedding:  e,
		})
	}
	return out
}

func TestDocuments_CreateGet(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	doc := createDoc(t, f, "bot-1", "faq")
	assert.Len(t, doc.ID, 26)
	assert.False(t, doc.CreatedAt.IsZero())
	assert.JSONEq(t, "{}", string(doc.Metadata))

	got, err := f.Documents().Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "faq", got.Name)
	assert.Equal(t, model.SourceText, got.SourceType)

	_, err = f.Documents().Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDocuments_ListByTenant(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	first := createDoc(t, f, "bot-1", "first")
	second := createDoc(t, f, "bot-1", "second")
	createDoc(t, f, "bot-2", "other")

	docs, err := f.Documents().ListByTenant(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second.ID, docs[0].ID)
	assert.Equal(t, first.ID, docs[1].ID)

	docs, err = f.Documents().ListByTenant(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestDocuments_DeleteCascades(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	doc := createDoc(t, f, "bot-1", "faq")
	keep := createDoc(t, f, "bot-1", "keep")
	require.NoError(t, f.Chunks().CreateBatch(ctx, chunksFor(doc, nil, nil, nil)))
	require.NoError(t, f.Chunks().CreateBatch(ctx, chunksFor(keep, nil)))

	require.NoError(t, f.Documents().Delete(ctx, doc.ID))

	_, err := f.Documents().Get(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	n, err := f.Chunks().CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = f.Chunks().CountByDocument(ctx, keep.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// 未知 id 不报错
	assert.NoError(t, f.Documents().Delete(ctx, "unknown"))
}

func TestChunks_ForeignKeyCascade(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := NewFactory(db, nil)
	ctx := context.Background()
	require.NoError(t, f.AutoMigrate(ctx))

	doc := createDoc(t, f, "bot-1", "faq")
	require.NoError(t, f.Chunks().CreateBatch(ctx, chunksFor(doc, nil, nil)))

	// 没有父文档的分块被约束拒绝
	orphan := chunksFor(&model.Document{ID: "missing", TenantID: "bot-1", Name: "x"}, nil)
	assert.Error(t, f.Chunks().CreateBatch(ctx, orphan))

	// 绕过 store 直接删除文档，分块由数据库级联删除
	require.NoError(t, db.Exec("DELETE FROM nyx_documents WHERE id = ?", doc.ID).Error)
	n, err := f.Chunks().CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChunks_CreateBatchAndList(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	doc := createDoc(t, f, "bot-1", "faq")
	items := chunksFor(doc, []float32{1, 0}, nil, []float32{0, 1})
	// 乱序写入，读取按 index 升序
	items[0], items[2] = items[2], items[0]
	require.NoError(t, f.Chunks().CreateBatch(ctx, items))

	got, err := f.Chunks().ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, ch := range got {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "bot-1", ch.TenantID)
	}
	assert.True(t, got[0].HasEmbedding())
	assert.False(t, got[1].HasEmbedding())
	assert.Equal(t, []float32{0, 1}, []float32(got[2].Embedding))

	assert.NoError(t, f.Chunks().CreateBatch(ctx, nil))
}

func TestChunks_CreateBatchDuplicateIndexRollsBack(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	doc := createDoc(t, f, "bot-1", "faq")
	items := chunksFor(doc, nil, nil)
	items[1].Index = 0

	assert.Error(t, f.Chunks().CreateBatch(ctx, items))
	n, err := f.Chunks().CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLIndex_SimilaritySearch(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	ctx := context.Background()

	doc := createDoc(t, f, "bot-1", "faq")
	items := chunksFor(doc,
		[]float32{1, 0},    // 1.0
		[]float32{1, 1},    // ~0.707
		[]float32{0, 1},    // 0.0
		nil,                // 未嵌入
		[]float32{1, 0, 0}, // 维度不一致
	)
	for i, ch := range items {
		ch.Content = []string{"exact", "diagonal", "orthogonal", "plain", "wrong-dim"}[i]
	}
	require.NoError(t, f.Chunks().CreateBatch(ctx, items))
	other := createDoc(t, f, "bot-2", "other")
	require.NoError(t, f.Chunks().CreateBatch(ctx, chunksFor(other, []float32{1, 0})))

	matches, err := f.Searcher().SimilaritySearch(ctx, "bot-1", []float32{1, 0}, 0.5, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].Content)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, "diagonal", matches[1].Content)
	assert.InDelta(t, 0.7071, matches[1].Similarity, 1e-3)
	assert.Equal(t, doc.ID, matches[0].DocumentID)

	matches, err = f.Searcher().SimilaritySearch(ctx, "bot-1", []float32{1, 0}, 0.5, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "exact", matches[0].Content)

	matches, err = f.Searcher().SimilaritySearch(ctx, "bot-3", []float32{1, 0}, 0.5, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

type fakeMilvus struct {
	rows    []milvus.Row
	hits    []milvus.SearchResult
	filters []string
	deletes []string
	err     error
}

func (f *fakeMilvus) Insert(_ context.Context, rows []milvus.Row) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeMilvus) Search(_ context.Context, _ []float32, _ int, filter string) ([]milvus.SearchResult, error) {
	f.filters = append(f.filters, filter)
	return f.hits, f.err
}

func (f *fakeMilvus) DeleteByExpr(_ context.Context, expr string) error {
	f.deletes = append(f.deletes, expr)
	return f.err
}

func TestMilvusIndex(t *testing.T) {
	fake := &fakeMilvus{}
	f, _ := newTestFactory(t, func(db *gorm.DB) VectorIndex { return NewMilvusIndex(db, fake) })
	ctx := context.Background()

	doc := createDoc(t, f, "bot-1", "faq")
	items := chunksFor(doc, []float32{1, 0}, nil, []float32{0, 1})
	require.NoError(t, f.Chunks().CreateBatch(ctx, items))

	// 只有带向量的分块写入索引
	require.Len(t, fake.rows, 2)
	assert.Equal(t, items[0].ID, fake.rows[0].ChunkID)
	assert.Equal(t, "bot-1", fake.rows[0].TenantID)

	fake.hits = []milvus.SearchResult{
		{ChunkID: items[2].ID, Score: 0.6},
		{ChunkID: items[0].ID, Score: 0.9},
		{ChunkID: "deleted-chunk", Score: 0.95},
		{ChunkID: items[1].ID, Score: 0.2},
	}
	matches, err := f.Searcher().SimilaritySearch(ctx, "bot-1", []float32{1, 0}, 0.5, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, items[0].ID, matches[0].ChunkID)
	assert.InDelta(t, 0.9, matches[0].Similarity, 1e-6)
	assert.Equal(t, items[2].ID, matches[1].ChunkID)
	assert.Equal(t, []string{`tenant_id == "bot-1"`}, fake.filters)

	require.NoError(t, f.Documents().Delete(ctx, doc.ID))
	assert.Equal(t, []string{`document_id == "` + doc.ID + `"`}, fake.deletes)
}

func TestMilvusIndex_InsertFailure(t *testing.T) {
	fake := &fakeMilvus{err: errors.New("milvus down")}
	f, _ := newTestFactory(t, func(db *gorm.DB) VectorIndex { return NewMilvusIndex(db, fake) })
	ctx := context.Background()

	doc := createDoc(t, f, "bot-1", "faq")
	err := f.Chunks().CreateBatch(ctx, chunksFor(doc, []float32{1, 0}))
	assert.ErrorContains(t, err, "milvus index insert")

	// 索引清理失败不影响删除
	assert.NoError(t, f.Documents().Delete(ctx, doc.ID))
}

func TestFactory_Ping(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	assert.NoError(t, f.Ping(context.Background()))
	assert.NoError(t, f.Close())
}

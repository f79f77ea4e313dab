package biz

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"
	"gorm.io/datatypes"

	"github.com/kart-io/nyx/internal/model"
	"github.com/kart-io/nyx/internal/nyx/metrics"
	"github.com/kart-io/nyx/internal/nyx/store"
	"github.com/kart-io/nyx/pkg/infra/tracing"
	"github.com/kart-io/nyx/pkg/utils/json"

	errno "github.com/kart-io/nyx/pkg/errors"
)

// IngestInput 入库请求。
type IngestInput struct {
	TenantID   string
	Name       string
	Content    string
	SourceType model.SourceType
	SourceURL  string
	Metadata   map[string]any
}

// IngestResult 入库结果。
type IngestResult struct {
	Document            *model.Document `json:"document"`
	ChunksCreated       int             `json:"chunksCreated"`
	EmbeddingsGenerated int             `json:"embeddingsGenerated"`
}

// IngestService 文档入库与管理。
type IngestService struct {
	store    store.Factory
	chunker  *Chunker
	embedder *EmbeddingService
	cache    *QueryCache
	metrics  *metrics.Metrics
}

// NewIngestService 创建入库服务。factory 为 nil 时所有操作返回 ErrStoreNotConfigured。
func NewIngestService(factory store.Factory, chunker *Chunker, embedder *EmbeddingService, cache *QueryCache) *IngestService {
	if chunker == nil {
		chunker = NewChunker(DefaultMaxTokens, DefaultOverlapWords)
	}
	return &IngestService{
		store:    factory,
		chunker:  chunker,
		embedder: embedder,
		cache:    cache,
		metrics:  metrics.Get(),
	}
}

func (in *IngestInput) validate() error {
	if in.TenantID == "" || in.Name == "" || in.Content == "" {
		return errno.ErrMissingParam.WithMessage("tenantId, name, and content required")
	}
	if in.SourceType == "" {
		in.SourceType = model.SourceText
	}
	if !in.SourceType.Valid() {
		return errno.ErrInvalidSourceType
	}
	return nil
}

// Ingest 校验 -> 创建文档 -> 分块 -> 逐块向量化 -> 批量写入分块。
// 分块写入或向量化失败时删除刚创建的文档（补偿，非事务）。
func (s *IngestService) Ingest(ctx context.Context, in *IngestInput) (*IngestResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errno.ErrStoreNotConfigured
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "IngestService.Ingest")
	defer span.End()
	span.SetAttributes(
		tracing.String(tracing.AttrTenantID, in.TenantID),
		tracing.String(tracing.AttrSourceType, string(in.SourceType)),
	)

	doc := &model.Document{
		TenantID:   in.TenantID,
		Name:       in.Name,
		Content:    in.Content,
		SourceType: in.SourceType,
	}
	if in.SourceURL != "" {
		doc.SourceURL = &in.SourceURL
	}
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, errno.ErrInvalidParam.WithMessage("metadata must be a JSON object")
		}
		doc.Metadata = datatypes.JSON(raw)
	}

	if err := s.store.Documents().Create(ctx, doc); err != nil {
		logger.Errorw("failed to create document", "tenant_id", in.TenantID, "error", err.Error())
		s.metrics.RecordIngest(0, 0, err)
		return nil, errno.ErrDocumentCreate.WithCause(err)
	}

	result, err := s.ingestChunks(ctx, doc)
	if err != nil {
		s.compensate(ctx, doc)
		s.metrics.RecordIngest(0, 0, err)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	s.cache.Invalidate(ctx, doc.TenantID)
	s.metrics.RecordIngest(result.ChunksCreated, result.EmbeddingsGenerated, nil)
	span.SetAttributes(
		tracing.Int(tracing.AttrChunks, result.ChunksCreated),
		tracing.Int(tracing.AttrEmbeddings, result.EmbeddingsGenerated),
	)
	logger.Infow("document ingested",
		"document_id", doc.ID,
		"tenant_id", doc.TenantID,
		"chunks", result.ChunksCreated,
		"embeddings", result.EmbeddingsGenerated,
	)
	return result, nil
}

func (s *IngestService) ingestChunks(ctx context.Context, doc *model.Document) (*IngestResult, error) {
	texts := s.chunker.Chunk(doc.Content)
	chunks := make([]*model.Chunk, 0, len(texts))
	embedded := 0

	// 按顺序逐块向量化，不并发
	for i, text := range texts {
		chunk := &model.Chunk{
			DocumentID: doc.ID,
			TenantID:   doc.TenantID,
			Content:    text,
			Index:      i,
		}

		vec, err := s.embedder.Embed(ctx, text)
		switch {
		case err == nil:
			chunk.Embedding = vec
			embedded++
		case errors.Is(err, ErrEmbeddingFailed):
			return nil, errno.ErrEmbeddingFailed.WithCause(fmt.Errorf("chunk %d: %w", i, err))
		case errors.Is(err, ErrEmbeddingUnavailable):
			// 未配置供应商，分块不带向量
		default:
			return nil, errno.ErrEmbeddingFailed.WithCause(err)
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) > 0 {
		if err := s.store.Chunks().CreateBatch(ctx, chunks); err != nil {
			return nil, errno.ErrChunkCreate.WithCause(err)
		}
	}

	return &IngestResult{
		Document:            doc,
		ChunksCreated:       len(chunks),
		EmbeddingsGenerated: embedded,
	}, nil
}

// compensate 删除入库失败的文档。与创建不在一个事务内，
// 两步之间的并发读取可能看到没有分块的文档。
func (s *IngestService) compensate(ctx context.Context, doc *model.Document) {
	// 原请求可能已取消，补偿删除不受其影响
	ctx = context.WithoutCancel(ctx)
	if err := s.store.Documents().Delete(ctx, doc.ID); err != nil {
		logger.Errorw("compensating delete failed",
			"document_id", doc.ID,
			"tenant_id", doc.TenantID,
			"error", err.Error(),
		)
		return
	}
	logger.Warnw("ingestion failed, document removed", "document_id", doc.ID, "tenant_id", doc.TenantID)
}

// List 返回租户的文档，最新的在前。
func (s *IngestService) List(ctx context.Context, tenantID string) ([]*model.Document, error) {
	if tenantID == "" {
		return nil, errno.ErrMissingParam.WithMessage("tenantId required")
	}
	if s.store == nil {
		return nil, errno.ErrStoreNotConfigured
	}

	docs, err := s.store.Documents().ListByTenant(ctx, tenantID)
	if err != nil {
		logger.Errorw("failed to list documents", "tenant_id", tenantID, "error", err.Error())
		return nil, errno.ErrDocumentList.WithCause(err)
	}
	return docs, nil
}

// Delete 删除文档及其分块，未知 id 视为成功。
func (s *IngestService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errno.ErrMissingParam.WithMessage("Document id required")
	}
	if s.store == nil {
		return errno.ErrStoreNotConfigured
	}

	doc, err := s.store.Documents().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil
		}
		return errno.ErrDocumentDelete.WithCause(err)
	}

	if err := s.store.Documents().Delete(ctx, id); err != nil {
		logger.Errorw("failed to delete document", "document_id", id, "error", err.Error())
		return errno.ErrDocumentDelete.WithCause(err)
	}

	s.cache.Invalidate(ctx, doc.TenantID)
	s.metrics.RecordDelete()
	logger.Infow("document deleted", "document_id", id, "tenant_id", doc.TenantID)
	return nil
}

// Chunks 按序号返回文档的分块。
func (s *IngestService) Chunks(ctx context.Context, documentID string) ([]*model.Chunk, error) {
	if s.store == nil {
		return nil, errno.ErrStoreNotConfigured
	}

	if _, err := s.store.Documents().Get(ctx, documentID); err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, errno.ErrDocumentNotFound
		}
		return nil, errno.ErrDatabase.WithCause(err)
	}

	chunks, err := s.store.Chunks().ListByDocument(ctx, documentID)
	if err != nil {
		return nil, errno.ErrDatabase.WithCause(err)
	}
	return chunks, nil
}

package biz

import (
	"context"
	"errors"

	"github.com/kart-io/logger"

	"github.com/kart-io/nyx/internal/nyx/metrics"
	"github.com/kart-io/nyx/internal/nyx/store"
	"github.com/kart-io/nyx/pkg/infra/tracing"
)

const tracerName = "nyx/biz"

var errStoreNotConfigured = errors.New("knowledge store not configured")

// RetrieverConfig 检索配置。
type RetrieverConfig struct {
	// Threshold 最低余弦相似度。
	Threshold float64
	// Limit 默认返回的段落数。
	Limit int
}

// DefaultRetrieverConfig 返回默认检索配置。
func DefaultRetrieverConfig() *RetrieverConfig {
	return &RetrieverConfig{Threshold: 0.5, Limit: 5}
}

// Retriever 为租户检索知识库段落。
type Retriever struct {
	searcher store.Searcher
	embedder *EmbeddingService
	cache    *QueryCache
	config   *RetrieverConfig
	metrics  *metrics.Metrics
}

// NewRetriever 创建检索器。searcher 为 nil 表示未配置存储，cache 可为 nil。
func NewRetriever(searcher store.Searcher, embedder *EmbeddingService, cache *QueryCache, config *RetrieverConfig) *Retriever {
	if config == nil {
		config = DefaultRetrieverConfig()
	}
	return &Retriever{
		searcher: searcher,
		embedder: embedder,
		cache:    cache,
		config:   config,
		metrics:  metrics.Get(),
	}
}

// Retrieve 返回与 query 最相关的段落，按相似度降序。
// 任何失败都只记录日志并返回空切片。
func (r *Retriever) Retrieve(ctx context.Context, tenantID, query string, limit int) []string {
	if limit <= 0 {
		limit = r.config.Limit
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "Retriever.Retrieve")
	defer span.End()
	span.SetAttributes(
		tracing.String(tracing.AttrTenantID, tenantID),
		tracing.Int(tracing.AttrLimit, limit),
	)

	if cached, ok := r.cache.Get(ctx, tenantID, query, limit); ok {
		r.metrics.RecordRetrieval(len(cached), true, nil)
		span.SetAttributes(tracing.Bool(tracing.AttrCacheHit, true))
		return cached
	}

	passages, err := r.search(ctx, tenantID, query, limit)
	r.metrics.RecordRetrieval(len(passages), false, err)
	if err != nil {
		logger.Warnw("retrieval skipped",
			"tenant_id", tenantID,
			"error", err.Error(),
		)
		span.SetAttributes(tracing.String(tracing.AttrSkipped, err.Error()))
		return []string{}
	}

	span.SetAttributes(tracing.Int(tracing.AttrPassages, len(passages)))
	r.cache.Set(ctx, tenantID, query, limit, passages)
	return passages
}

func (r *Retriever) search(ctx context.Context, tenantID, query string, limit int) ([]string, error) {
	if r.searcher == nil {
		return nil, errStoreNotConfigured
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := r.searcher.SimilaritySearch(ctx, tenantID, vec, r.config.Threshold, limit)
	if err != nil {
		return nil, err
	}

	passages := make([]string, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, m.Content)
	}
	return passages, nil
}

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/nyx/pkg/utils/json"
)

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig 返回默认的 Embedding 缓存配置。
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       24 * time.Hour, // 同一文本的向量不会变化
		KeyPrefix: "nyx:emb:",
	}
}

// CachedEmbeddingProvider 提供 Embedding 缓存功能的包装器。
// Redis 故障只记录日志，不影响向量生成。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    goredis.UniversalClient
	config   *EmbeddingCacheConfig
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

// NewCachedEmbeddingProvider 创建带缓存的 Embedding Provider。
func NewCachedEmbeddingProvider(
	provider EmbeddingProvider,
	redis goredis.UniversalClient,
	config *EmbeddingCacheConfig,
) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		config:   config,
	}
}

// CacheKey 基于模型名与文本生成缓存键（SHA256）。
func (c *CachedEmbeddingProvider) CacheKey(text string) string {
	hash := sha256.Sum256([]byte(c.provider.Name() + "\x00" + text))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Embed 生成单个文本的 Embedding（带缓存）。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.config.Enabled || c.redis == nil {
		return c.provider.Embed(ctx, text)
	}

	cacheKey := c.CacheKey(text)

	// 1. 尝试从缓存获取
	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var embedding []float32
		if err := json.Unmarshal(data, &embedding); err == nil && len(embedding) > 0 {
			logger.Debugw("embedding cache hit", "text_length", len(text), "key", cacheKey)
			return embedding, nil
		}
		logger.Warnw("corrupted cached embedding, deleting", "key", cacheKey)
		_ = c.redis.Del(ctx, cacheKey).Err()
	case !errors.Is(err, goredis.Nil):
		logger.Warnw("redis get error, falling back to provider", "error", err.Error())
	}

	// 2. 缓存未命中，调用底层 provider
	logger.Debugw("embedding cache miss", "text_length", len(text), "key", cacheKey)
	embedding, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// 3. 回写缓存
	data, err = json.Marshal(embedding)
	if err != nil {
		logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
		return embedding, nil
	}
	if err := c.redis.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "error", err.Error(), "key", cacheKey)
	}

	return embedding, nil
}

// Dimension 返回底层 provider 的向量维度。
func (c *CachedEmbeddingProvider) Dimension() int {
	return c.provider.Dimension()
}

// Name 返回底层 provider 的名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name()
}

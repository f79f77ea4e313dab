package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/nyx/pkg/utils/json"
)

// QueryCacheConfig 检索缓存配置。
type QueryCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// DefaultQueryCacheConfig 返回默认配置（禁用）。
func DefaultQueryCacheConfig() *QueryCacheConfig {
	return &QueryCacheConfig{
		Enabled:   false,
		TTL:       10 * time.Minute,
		KeyPrefix: "nyx:retrieval:",
	}
}

// QueryCache 缓存租户检索结果。
// 键为 prefix + tenantID + ":" + sha256(limit, query)，按租户失效。
type QueryCache struct {
	redis  goredis.UniversalClient
	config *QueryCacheConfig
}

// NewQueryCache 创建检索缓存实例。
func NewQueryCache(redis goredis.UniversalClient, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = DefaultQueryCacheConfig()
	}
	return &QueryCache{
		redis:  redis,
		config: config,
	}
}

func (c *QueryCache) enabled() bool {
	return c != nil && c.config.Enabled && c.redis != nil
}

func (c *QueryCache) tenantPrefix(tenantID string) string {
	return c.config.KeyPrefix + tenantID + ":"
}

// generateCacheKey 基于租户与问题生成缓存键（使用 SHA256 哈希）。
func (c *QueryCache) generateCacheKey(tenantID, query string, limit int) string {
	hash := sha256.Sum256([]byte(strconv.Itoa(limit) + "\x00" + query))
	return c.tenantPrefix(tenantID) + hex.EncodeToString(hash[:])
}

// Get 读取缓存，未命中时 ok 为 false。
func (c *QueryCache) Get(ctx context.Context, tenantID, query string, limit int) (passages []string, ok bool) {
	if !c.enabled() {
		return nil, false
	}

	cacheKey := c.generateCacheKey(tenantID, query, limit)
	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.Warnw("failed to get from cache", "error", err.Error(), "key", cacheKey)
		}
		return nil, false
	}

	if err := json.Unmarshal(data, &passages); err != nil {
		logger.Warnw("failed to unmarshal cached passages", "error", err.Error(), "key", cacheKey)
		// 删除损坏的缓存
		_ = c.redis.Del(ctx, cacheKey).Err()
		return nil, false
	}

	logger.Debugw("retrieval cache hit", "tenant_id", tenantID, "key", cacheKey, "passages", len(passages))
	return passages, true
}

// Set 写入缓存，失败只记录日志。
func (c *QueryCache) Set(ctx context.Context, tenantID, query string, limit int, passages []string) {
	if !c.enabled() {
		return
	}

	data, err := json.Marshal(passages)
	if err != nil {
		logger.Warnw("failed to marshal passages for caching", "error", err.Error())
		return
	}

	cacheKey := c.generateCacheKey(tenantID, query, limit)
	if err := c.redis.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set cache", "error", err.Error(), "key", cacheKey)
	}
}

// Invalidate 清除租户的全部检索缓存，在入库与删除文档后调用。
func (c *QueryCache) Invalidate(ctx context.Context, tenantID string) {
	if !c.enabled() {
		return
	}

	pattern := c.tenantPrefix(tenantID) + "*"
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			logger.Warnw("failed to scan cache keys", "error", err.Error(), "pattern", pattern)
			return
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				logger.Warnw("failed to delete cache keys", "error", err.Error())
				return
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if deleted > 0 {
		logger.Debugw("retrieval cache invalidated", "tenant_id", tenantID, "keys", deleted)
	}
}

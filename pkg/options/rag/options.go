// Package rag provides knowledge base configuration options: chunking,
// vector index, retrieval, caching and content extraction.
package rag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/nyx/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// 支持的向量索引后端。
const (
	IndexSQL      = "sql"
	IndexPGVector = "pgvector"
	IndexMilvus   = "milvus"
)

// Options contains knowledge base configuration.
type Options struct {
	// MaxTokens 单个 chunk 的 token 上限（按 4 字符 ≈ 1 token 估算）。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	// ChunkOverlap 相邻 chunk 之间重叠的单词数，负数表示不重叠。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// Threshold 检索的最小余弦相似度。
	Threshold float64 `json:"threshold" mapstructure:"threshold"`

	// TopK 单次检索返回的最大段落数。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Index 向量索引后端（sql, pgvector, milvus）。
	Index string `json:"index" mapstructure:"index"`

	// Cache 检索结果缓存。
	Cache *CacheOptions `json:"cache" mapstructure:"cache"`

	// Scrape 网页正文抽取。
	Scrape *ScrapeOptions `json:"scrape" mapstructure:"scrape"`
}

// CacheOptions 检索与 Embedding 缓存配置，需要 Redis。
type CacheOptions struct {
	// Enabled 是否缓存检索结果。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 检索结果缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 检索结果缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// EmbeddingTTL Embedding 向量缓存过期时间，0 表示不缓存向量。
	EmbeddingTTL time.Duration `json:"embedding-ttl" mapstructure:"embedding-ttl"`

	// EmbeddingKeyPrefix Embedding 缓存键前缀。
	EmbeddingKeyPrefix string `json:"embedding-key-prefix" mapstructure:"embedding-key-prefix"`
}

// ScrapeOptions 网页抓取配置。
type ScrapeOptions struct {
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max-retries" mapstructure:"max-retries"`
	MaxBytes   int64         `json:"max-bytes" mapstructure:"max-bytes"`
}

// NewCacheOptions 创建默认缓存配置。
func NewCacheOptions() *CacheOptions {
	return &CacheOptions{
		Enabled:            true,
		TTL:                10 * time.Minute,
		KeyPrefix:          "nyx:retrieval:",
		EmbeddingTTL:       24 * time.Hour,
		EmbeddingKeyPrefix: "nyx:emb:",
	}
}

// NewScrapeOptions 创建默认抓取配置。
func NewScrapeOptions() *ScrapeOptions {
	return &ScrapeOptions{
		Timeout:    15 * time.Second,
		MaxRetries: 1,
		MaxBytes:   5 << 20,
	}
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		MaxTokens:    500,
		ChunkOverlap: 20,
		Threshold:    0.5,
		TopK:         5,
		Index:        IndexSQL,
		Cache:        NewCacheOptions(),
		Scrape:       NewScrapeOptions(),
	}
}

// AddFlags adds flags for knowledge base options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "rag."
	fs.IntVar(&o.MaxTokens, p+"max-tokens", o.MaxTokens, "Approximate token budget of one chunk.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Words carried over between adjacent chunks; negative disables overlap.")
	fs.Float64Var(&o.Threshold, p+"threshold", o.Threshold, "Minimum cosine similarity of a retrieved passage.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Maximum passages injected into a prompt.")
	fs.StringVar(&o.Index, p+"index", o.Index, "Vector index backend (sql, pgvector, milvus).")

	if o.Cache == nil {
		o.Cache = NewCacheOptions()
	}
	fs.BoolVar(&o.Cache.Enabled, p+"cache.enabled", o.Cache.Enabled, "Cache retrieval results in Redis.")
	fs.DurationVar(&o.Cache.TTL, p+"cache.ttl", o.Cache.TTL, "Retrieval cache TTL.")
	fs.StringVar(&o.Cache.KeyPrefix, p+"cache.key-prefix", o.Cache.KeyPrefix, "Retrieval cache key prefix.")
	fs.DurationVar(&o.Cache.EmbeddingTTL, p+"cache.embedding-ttl", o.Cache.EmbeddingTTL, "Embedding cache TTL, 0 disables it.")
	fs.StringVar(&o.Cache.EmbeddingKeyPrefix, p+"cache.embedding-key-prefix", o.Cache.EmbeddingKeyPrefix, "Embedding cache key prefix.")

	if o.Scrape == nil {
		o.Scrape = NewScrapeOptions()
	}
	fs.DurationVar(&o.Scrape.Timeout, p+"scrape.timeout", o.Scrape.Timeout, "Page fetch timeout.")
	fs.IntVar(&o.Scrape.MaxRetries, p+"scrape.max-retries", o.Scrape.MaxRetries, "Retries when the page answers 5xx.")
	fs.Int64Var(&o.Scrape.MaxBytes, p+"scrape.max-bytes", o.Scrape.MaxBytes, "Maximum page size read.")
}

// Validate validates the knowledge base options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("rag.max-tokens must be positive"))
	}
	if o.Threshold < -1 || o.Threshold > 1 {
		errs = append(errs, fmt.Errorf("rag.threshold must be within [-1, 1]"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top-k must be positive"))
	}
	switch o.Index {
	case IndexSQL, IndexPGVector, IndexMilvus:
	default:
		errs = append(errs, fmt.Errorf("unsupported rag.index %q", o.Index))
	}
	if o.Cache != nil && o.Cache.Enabled && o.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("rag.cache.ttl must be positive"))
	}
	if o.Scrape != nil {
		if o.Scrape.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("rag.scrape.timeout must be positive"))
		}
		if o.Scrape.MaxBytes <= 0 {
			errs = append(errs, fmt.Errorf("rag.scrape.max-bytes must be positive"))
		}
	}
	return errs
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	if o.Cache == nil {
		o.Cache = NewCacheOptions()
	}
	if o.Scrape == nil {
		o.Scrape = NewScrapeOptions()
	}
	return nil
}

// Package nyx provides the Nyx chat gateway server implementation.
package nyx

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/nyx/internal/nyx/biz"
	"github.com/kart-io/nyx/internal/nyx/handler"
	"github.com/kart-io/nyx/internal/nyx/router"
	"github.com/kart-io/nyx/internal/nyx/store"
	"github.com/kart-io/nyx/pkg/component/database"
	"github.com/kart-io/nyx/pkg/component/milvus"
	"github.com/kart-io/nyx/pkg/component/redis"
	"github.com/kart-io/nyx/pkg/infra/app"
	"github.com/kart-io/nyx/pkg/infra/tracing"
	"github.com/kart-io/nyx/pkg/llm"
	"github.com/kart-io/nyx/pkg/llm/resilience"
	dbopts "github.com/kart-io/nyx/pkg/options/database"
	httpopts "github.com/kart-io/nyx/pkg/options/http"
	llmopts "github.com/kart-io/nyx/pkg/options/llm"
	logopts "github.com/kart-io/nyx/pkg/options/logger"
	milvusopts "github.com/kart-io/nyx/pkg/options/milvus"
	ragopts "github.com/kart-io/nyx/pkg/options/rag"
	redisopts "github.com/kart-io/nyx/pkg/options/redis"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/nyx/pkg/llm/anthropic"
	_ "github.com/kart-io/nyx/pkg/llm/gemini"
	_ "github.com/kart-io/nyx/pkg/llm/openai"
)

// Name is the name of the application.
const Name = "nyx"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions     *httpopts.Options
	LogOptions      *logopts.Options
	DatabaseOptions *dbopts.Options
	RedisOptions    *redisopts.Options
	MilvusOptions   *milvusopts.Options
	LLMOptions      *llmopts.Options
	RAGOptions      *ragopts.Options
	TracingOptions  *tracing.Options
}

// Server represents the Nyx gateway server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	// closers 按注册的逆序执行。
	closers []func(ctx context.Context)
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	s := &Server{shutdownTimeout: cfg.HTTPOptions.ShutdownTimeout}

	// 1. 初始化日志
	if err := cfg.LogOptions.Init(map[string]any{
		"service.name":    Name,
		"service.version": app.GetVersion(),
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting Nyx gateway...")

	// 2. 初始化链路追踪
	if cfg.TracingOptions.ServiceVersion == "" {
		cfg.TracingOptions.ServiceVersion = app.GetVersion()
	}
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.onClose(func(ctx context.Context) { _ = tp.Shutdown(ctx) })
	if cfg.TracingOptions.Enabled {
		logger.Infow("Tracing initialized", "exporter", cfg.TracingOptions.ExporterType)
	}

	// 3. 初始化数据库
	db, err := database.NewWithContext(ctx, cfg.DatabaseOptions)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	s.onClose(func(context.Context) { _ = db.Close() })
	logger.Infow("Database initialized", "driver", cfg.DatabaseOptions.Driver)

	// 4. 初始化向量索引
	dimension := cfg.LLMOptions.Embedding.Dimension
	var index store.VectorIndex
	switch cfg.RAGOptions.Index {
	case ragopts.IndexPGVector:
		index = store.NewPGVectorIndex(db.DB(), dimension)
	case ragopts.IndexMilvus:
		mc, err := milvus.New(ctx, cfg.MilvusOptions)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		s.onClose(func(ctx context.Context) { _ = mc.Close(ctx) })
		if err := mc.EnsureCollection(ctx, dimension); err != nil {
			s.close()
			return nil, fmt.Errorf("failed to prepare milvus collection: %w", err)
		}
		index = store.NewMilvusIndex(db.DB(), mc)
	default:
		index = store.NewSQLIndex(db.DB())
	}
	logger.Infow("Vector index initialized", "index", index.Name(), "dimension", dimension)

	// 5. 初始化 Store 层
	factory := store.NewFactory(db.DB(), index)
	if cfg.DatabaseOptions.AutoMigrate {
		if err := factory.AutoMigrate(ctx); err != nil {
			s.close()
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		logger.Info("Schema migrated")
	}

	// 6. 初始化 Redis 客户端（用于缓存），失败时关闭缓存继续运行
	var rdb *redis.Client
	if cfg.RedisOptions.Enabled {
		rdb, err = redis.NewWithContext(ctx, cfg.RedisOptions)
		if err != nil {
			logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
			rdb = nil
		} else {
			client := rdb
			s.onClose(func(context.Context) { _ = client.Close() })
			logger.Infow("Redis cache initialized", "addr", cfg.RedisOptions.Addr())
		}
	} else {
		logger.Info("Cache is disabled")
	}

	// 7. 初始化 Embedding 供应商
	embedder, err := cfg.newEmbeddingProvider(rdb)
	if err != nil {
		s.close()
		return nil, err
	}

	// 8. 初始化 Chat 供应商
	chatRouter, err := cfg.newChatRouter()
	if err != nil {
		s.close()
		return nil, err
	}

	// 9. 初始化 Biz 层
	var queryCache *biz.QueryCache
	if rdb != nil && cfg.RAGOptions.Cache.Enabled {
		queryCache = biz.NewQueryCache(rdb.Client(), &biz.QueryCacheConfig{
			Enabled:   true,
			TTL:       cfg.RAGOptions.Cache.TTL,
			KeyPrefix: cfg.RAGOptions.Cache.KeyPrefix,
		})
	}
	embeddings := biz.NewEmbeddingService(embedder)
	retriever := biz.NewRetriever(factory.Searcher(), embeddings, queryCache, &biz.RetrieverConfig{
		Threshold: cfg.RAGOptions.Threshold,
		Limit:     cfg.RAGOptions.TopK,
	})
	gateway := biz.NewGateway(chatRouter, retriever, biz.NewSessions())
	ingest := biz.NewIngestService(factory, biz.NewChunker(cfg.RAGOptions.MaxTokens, cfg.RAGOptions.ChunkOverlap), embeddings, queryCache)
	scraper := biz.NewScraper(&biz.ScrapeConfig{
		Timeout:    cfg.RAGOptions.Scrape.Timeout,
		MaxRetries: cfg.RAGOptions.Scrape.MaxRetries,
		MaxBytes:   cfg.RAGOptions.Scrape.MaxBytes,
	})
	logger.Infow("Biz layer initialized",
		"embedding.available", embeddings.Available(),
		"retrieval.cache", queryCache != nil,
		"retrieval.threshold", cfg.RAGOptions.Threshold,
	)

	// 10. 初始化 Handler 层与路由
	checks := map[string]handler.Pinger{"database": factory}
	if rdb != nil {
		checks["redis"] = rdb
	}
	engine := router.New(cfg.HTTPOptions, &router.Handlers{
		Chat:     handler.NewChatHandler(gateway),
		Document: handler.NewDocumentHandler(ingest),
		Scrape:   handler.NewScrapeHandler(scraper, ingest),
		Health:   handler.NewHealthHandler(checks),
	})

	// 11. 初始化 HTTP 服务器
	s.httpServer = &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("Nyx gateway is ready")
	return s, nil
}

// newEmbeddingProvider 构建 Embedding 供应商：熔断重试在内，缓存在外。
// 未配置密钥时返回 nil，入库跳过向量化，检索为空。
func (cfg *Config) newEmbeddingProvider(rdb *redis.Client) (llm.EmbeddingProvider, error) {
	opts := cfg.LLMOptions.Embedding
	provider, err := llm.NewEmbeddingProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		if stderrors.Is(err, llm.ErrUnavailable) {
			logger.Warnw("embedding provider unavailable, knowledge base retrieval is disabled",
				"provider", opts.Provider,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	var wrapped llm.EmbeddingProvider = resilience.NewResilientEmbeddingProvider(provider, nil, cfg.breakerConfig("embedding:"+provider.Name()))
	if rdb != nil && cfg.RAGOptions.Cache.EmbeddingTTL > 0 {
		wrapped = llm.NewCachedEmbeddingProvider(wrapped, rdb.Client(), &llm.EmbeddingCacheConfig{
			Enabled:   true,
			TTL:       cfg.RAGOptions.Cache.EmbeddingTTL,
			KeyPrefix: cfg.RAGOptions.Cache.EmbeddingKeyPrefix,
		})
	}
	logger.Infow("Embedding provider initialized",
		"provider", opts.Provider,
		"model", opts.Model,
		"dimension", opts.Dimension,
	)
	return wrapped, nil
}

// newChatRouter 启动时构建全部 Chat 供应商。没有默认密钥的供应商同样注册，
// 请求可以自带密钥。
func (cfg *Config) newChatRouter() (*llm.Router, error) {
	providers := make([]llm.ChatProvider, 0, 3)
	for _, opts := range cfg.LLMOptions.Chat() {
		p, err := llm.NewChatProvider(opts.Provider, opts.ToConfigMap())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize chat provider %s: %w", opts.Provider, err)
		}
		providers = append(providers, resilience.NewBreakerChatProvider(p, cfg.breakerConfig("chat:"+p.Name())))
		logger.Infow("Chat provider initialized",
			"provider", opts.Provider,
			"default_key", opts.APIKey != "",
		)
	}
	return llm.NewRouter(providers...), nil
}

func (cfg *Config) breakerConfig(name string) *resilience.CircuitBreakerConfig {
	cb := resilience.DefaultCircuitBreakerConfig()
	cb.Name = name
	if b := cfg.LLMOptions.Breaker; b != nil {
		cb.MaxFailures = b.MaxFailures
		cb.Timeout = b.OpenTimeout
	}
	return cb
}

func (s *Server) onClose(fn func(ctx context.Context)) {
	s.closers = append(s.closers, fn)
}

func (s *Server) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
	s.closers = nil
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down Nyx gateway...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Nyx gateway stopped")
	return nil
}

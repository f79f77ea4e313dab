// Package router provides Nyx gateway routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	docs "github.com/kart-io/nyx/api/swagger/nyx"
	"github.com/kart-io/nyx/internal/nyx/handler"
	"github.com/kart-io/nyx/internal/pkg/httputils"
	"github.com/kart-io/nyx/pkg/errors"
	"github.com/kart-io/nyx/pkg/infra/middleware"
	httpopts "github.com/kart-io/nyx/pkg/options/http"
)

// Handlers 路由依赖的处理器。
type Handlers struct {
	Chat     *handler.ChatHandler
	Document *handler.DocumentHandler
	Scrape   *handler.ScrapeHandler
	Health   *handler.HealthHandler
}

// New 构建 gin 引擎并注册全部路由。
func New(opts *httpopts.Options, h *Handlers) *gin.Engine {
	gin.SetMode(opts.Mode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.LoggerWithConfig(middleware.LoggerConfig{SkipPaths: opts.LogSkipPaths}),
		middleware.Tracing(opts.LogSkipPaths...),
		middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: opts.CORSAllowOrigins}),
		middleware.BodyLimit(opts.MaxBodyBytes),
	)

	engine.NoRoute(func(c *gin.Context) {
		httputils.WriteError(c, errors.ErrRouteNotFound)
	})
	engine.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, httputils.ErrorResponse{Error: "Method not allowed"})
	})

	Register(engine, h)

	if opts.EnableSwagger {
		registerSwagger(engine)
	}
	return engine
}

// Register registers the gateway routes.
func Register(r gin.IRouter, h *Handlers) {
	logger.Info("Registering Nyx routes...")

	r.GET("/healthz", h.Health.Healthz)
	r.GET("/readyz", h.Health.Readyz)
	r.GET("/metrics", h.Health.Metrics)
	r.GET("/version", middleware.Version(false))

	api := r.Group("/api")
	{
		api.POST("/chat", h.Chat.Chat)

		documents := api.Group("/documents")
		{
			documents.POST("", h.Document.Create)
			documents.GET("", h.Document.List)
			documents.DELETE("", h.Document.Delete)
			documents.GET("/:id/chunks", h.Document.Chunks)
		}

		api.POST("/scrape", h.Scrape.Scrape)
	}

	logger.Info("HTTP routes registered")
}

// registerSwagger 访问地址: /swagger/index.html
func registerSwagger(r *gin.Engine) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.InstanceName(docs.SwaggerInfonyx.InstanceName())))
	logger.Info("Swagger UI available at /swagger/index.html")
}

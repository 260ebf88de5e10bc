// Package router HTTP路由注册
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/interface/http/handler"
	"github.com/xiebiao/bookshelf/internal/interface/http/middleware"
	"github.com/xiebiao/bookshelf/pkg/response"
)

// New 创建Gin引擎并注册路由
// 中间件顺序：Logger -> Recovery -> Metrics -> 路由匹配 -> Auth -> Handler
func New(
	cfg *config.Config,
	importHandler *handler.ImportHandler,
	bookHandler *handler.BookHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// 生产环境不开放Swagger
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	{
		imports := v1.Group("/imports")
		{
			imports.POST("", importHandler.Import)
			imports.GET("/:id", importHandler.GetStatus)
		}

		books := v1.Group("/books")
		{
			books.GET("", bookHandler.ListBooks)
			books.POST("", bookHandler.CreateBook)
			books.GET("/export", importHandler.Export)
			books.GET("/:id", bookHandler.GetBook)
		}
	}

	return r
}

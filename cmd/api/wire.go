//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 修改本文件后运行 `wire gen ./cmd/api` 重新生成wire_gen.go
//
// 依赖链：
// *gin.Engine 需要 → *handler.ImportHandler
// *handler.ImportHandler 需要 → *appimport.ImportBooksUseCase
// *appimport.ImportBooksUseCase 需要 → book.Service、bookimport.JobRepository、Enricher、Notifier
// 仓储 需要 → *gorm.DB 需要 → *config.Config

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/infrastructure/provider"
	"github.com/xiebiao/bookshelf/internal/interface/http/handler"
	"github.com/xiebiao/bookshelf/internal/interface/http/middleware"
	"github.com/xiebiao/bookshelf/internal/interface/http/router"
)

// httpSet HTTP接口层依赖
var httpSet = wire.NewSet(
	provideTokenChecker,
	middleware.NewAuthMiddleware,
	handler.NewImportHandler,
	handler.NewBookHandler,
	router.New,
)

// InitializeApp 初始化整个应用
// cleanup按创建的逆序关闭MQ、Redis、数据库连接
func InitializeApp(cfg *config.Config) (*gin.Engine, func(), error) {
	wire.Build(
		provider.InfrastructureSet,
		provider.RepositorySet,
		provider.ApplicationSet,
		httpSet,
	)
	return nil, nil, nil
}

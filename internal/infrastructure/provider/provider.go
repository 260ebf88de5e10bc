// Package provider 基础设施Provider，cmd/api与cmd/bookshelfctl的wire注入共用
//
// 可选依赖(Redis、RabbitMQ、OpenLibrary)未启用时返回nil接口或Nop实现，
// 上层代码不需要判断配置
package provider

import (
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appbook "github.com/xiebiao/bookshelf/internal/application/book"
	appimport "github.com/xiebiao/bookshelf/internal/application/bookimport"
	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/infrastructure/enrichment"
	"github.com/xiebiao/bookshelf/internal/infrastructure/events"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookshelf/pkg/jwt"
	"github.com/xiebiao/bookshelf/pkg/mq"
)

// InfrastructureSet 连接类依赖(带cleanup)
var InfrastructureSet = wire.NewSet(
	ProvideDB,
	ProvideRedisClient,
	ProvideNotifier,
	ProvideEnricher,
	ProvideJWTManager,
)

// RepositorySet 仓储与事务
var RepositorySet = wire.NewSet(
	mysql.NewBookRepository,
	mysql.NewGenreRepository,
	mysql.NewImportJobRepository,
	mysql.NewTxManager,
	wire.Bind(new(appimport.TxRunner), new(*mysql.TxManager)),
	wire.Bind(new(appbook.TxRunner), new(*mysql.TxManager)),
	ProvideJobCache,
	ProvideTokenBlacklist,
)

// ApplicationSet 领域服务与用例
var ApplicationSet = wire.NewSet(
	book.NewService,
	appimport.NewParser,
	ProvideImportSettings,
	appimport.NewImportBooksUseCase,
	appimport.NewGetImportStatusUseCase,
	appimport.NewExportBooksUseCase,
	appbook.NewCreateBookUseCase,
	appbook.NewGetBookUseCase,
	appbook.NewListBooksUseCase,
)

// ProvideDB 数据库连接，cleanup关闭连接池
func ProvideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// ProvideRedisClient 未启用Redis时返回nil
func ProvideRedisClient(cfg *config.Config) (*goredis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideTokenBlacklist 返回可以为nil的具体类型，CLI吊销Token时使用
func ProvideTokenBlacklist(client *goredis.Client) *redis.TokenBlacklist {
	if client == nil {
		return nil
	}
	return redis.NewTokenBlacklist(client)
}

// ProvideJobCache 未启用Redis时不缓存
func ProvideJobCache(cfg *config.Config, client *goredis.Client) appimport.JobCache {
	if client == nil {
		return nil
	}
	return redis.NewJobCache(client, cfg.Redis.JobCacheTTL)
}

// ProvideNotifier 启用MQ时发布任务结束事件，否则使用NopNotifier
func ProvideNotifier(cfg *config.Config) (appimport.Notifier, func(), error) {
	if !cfg.MQ.Enabled {
		return events.NopNotifier{}, func() {}, nil
	}
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType)
	if err != nil {
		return nil, nil, err
	}
	zap.L().Info("mq publisher ready", zap.String("exchange", cfg.MQ.Exchange))
	return events.NewMQNotifier(publisher), func() { _ = publisher.Close() }, nil
}

// ProvideEnricher 元数据补全，未启用时为nil
func ProvideEnricher(cfg *config.Config) bookimport.Enricher {
	return enrichment.New(cfg.Enrichment)
}

// ProvideJWTManager 从配置创建JWT管理器
func ProvideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
}

// ProvideImportSettings 导入默认参数
func ProvideImportSettings(cfg *config.Config) (appimport.Settings, error) {
	return appimport.NewSettings(
		cfg.Import.DuplicateHandling,
		cfg.Import.BatchSize,
		cfg.Import.BatchDelay,
		cfg.Import.FinalizeTimeout,
	)
}

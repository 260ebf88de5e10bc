package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/infrastructure/logger"
	"github.com/xiebiao/bookshelf/pkg/metrics"
	"github.com/xiebiao/bookshelf/pkg/tracing"
)

// @title           Bookshelf API
// @version         1.0
// @description     个人图书管理：CSV批量导入、导出、查询
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization

// main 服务启动入口
//
// 启动顺序：配置 → 日志 → 追踪/指标 → Wire组装依赖 → HTTP服务器 → 优雅关闭
func main() {
	// 步骤1: 加载配置(CONFIG_PATH为空时查找config/config.yaml)
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 步骤2: 初始化日志
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// 步骤3: 链路追踪与指标
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(context.Background(), tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
			Insecure:    true,
		})
		if err != nil {
			zap.L().Fatal("初始化链路追踪失败", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				zap.L().Warn("关闭链路追踪失败", zap.Error(err))
			}
		}()
	}
	if cfg.Metrics.Enabled {
		metrics.InitMetrics()
	}

	// 步骤4: 依赖注入
	engine, cleanup, err := InitializeApp(cfg)
	if err != nil {
		zap.L().Fatal("初始化应用失败", zap.Error(err))
	}
	defer cleanup()

	// 步骤5: 启动HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zap.L().Info("server started",
			zap.String("addr", srv.Addr),
			zap.String("mode", cfg.Server.Mode),
			zap.String("database", cfg.Database.Driver),
			zap.Bool("redis", cfg.Redis.Enabled),
			zap.Bool("mq", cfg.MQ.Enabled),
			zap.Bool("enrichment", cfg.Enrichment.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 步骤6: 优雅关闭
	// 正在执行的导入在超时内继续完成，任务终态写入不受请求取消影响
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("服务器强制关闭", zap.Error(err))
	}
	zap.L().Info("server exited")
}

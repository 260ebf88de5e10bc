// Package logger 基于zap的结构化日志
//
// 使用方式:
//
//	log, err := logger.New(cfg.Log)
//	defer log.Sync()
//
//	zap.L().Info("import finished", zap.String("job_id", job.ID))
//
// New会替换zap全局Logger,业务代码统一通过zap.L()获取
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
)

// New 根据配置创建Logger并替换全局Logger
// format=console使用开发配置(彩色、可读),其余使用生产配置(JSON)
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level := "info"
	if cfg.Level != "" {
		level = cfg.Level
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("解析日志级别失败: %w", err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}
	zapCfg.DisableCaller = !cfg.EnableCaller

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("创建日志失败: %w", err)
	}

	zap.ReplaceGlobals(log)
	return log, nil
}

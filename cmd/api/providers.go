package main

import (
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookshelf/internal/interface/http/middleware"
)

// provideTokenChecker 未启用Redis时不检查黑名单
// 返回无类型nil，避免接口内包着nil指针
func provideTokenChecker(blacklist *redis.TokenBlacklist) middleware.TokenChecker {
	if blacklist == nil {
		return nil
	}
	return blacklist
}

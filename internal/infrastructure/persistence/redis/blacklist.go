package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// TokenBlacklist Token黑名单
// 设计说明：
// 1. JWT是无状态的，服务端通过黑名单让Token提前失效
// 2. Key设计：blacklist:{sha256(token)}，不把完整Token写进Redis
// 3. 过期时间 = Token剩余有效期，过期后自动清理
type TokenBlacklist struct {
	client *redis.Client
}

// NewTokenBlacklist 创建Token黑名单
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

// Revoke 将Token加入黑名单，ttl<=0时不需要处理（Token已过期）
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistKey(token), "revoked", ttl).Err(); err != nil {
		return apperrors.ErrRedisError.WithCause(err)
	}
	return nil
}

// IsRevoked 检查Token是否在黑名单中
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, apperrors.ErrRedisError.WithCause(err)
	}
	return exists > 0, nil
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "blacklist:" + hex.EncodeToString(sum[:])
}

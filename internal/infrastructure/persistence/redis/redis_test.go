package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
)

// setupClient 连接本地Redis，不可用时跳过
// 启动：docker run -d -p 6379:6379 redis:7
func setupClient(t *testing.T) *redis.Client {
	t.Helper()
	cfg := config.Default()
	cfg.Redis.DB = 15
	cfg.Redis.DialTimeout = 500 * time.Millisecond

	client, err := NewClient(cfg)
	if err != nil {
		t.Skipf("Redis不可用，跳过: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "import_job:abc", jobKey("abc"))

	key := blacklistKey("header.payload.signature")
	assert.Len(t, key, len("blacklist:")+64)
	assert.NotContains(t, key, "payload", "不保存原始Token")
}

func TestTokenBlacklist(t *testing.T) {
	client := setupClient(t)
	bl := NewTokenBlacklist(client)
	ctx := context.Background()

	revoked, err := bl.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "token-1", time.Minute))
	revoked, err = bl.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// 已过期的Token不写入
	require.NoError(t, bl.Revoke(ctx, "token-2", 0))
	revoked, err = bl.IsRevoked(ctx, "token-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestJobCache(t *testing.T) {
	client := setupClient(t)
	cache := NewJobCache(client, time.Minute)
	ctx := context.Background()

	job := bookimport.NewJob(1, "books.csv", time.Now())

	// 进行中的任务不缓存
	require.NoError(t, cache.Set(ctx, job))
	got, err := cache.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, job.RecordParse(1, 0, bookimport.NewErrorSummary()))
	require.NoError(t, job.Complete(time.Now()))
	require.NoError(t, cache.Set(ctx, job))

	got, err = cache.Get(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bookimport.StatusCompleted, got.Status)
	assert.Equal(t, job.OwnerID, got.OwnerID)
}

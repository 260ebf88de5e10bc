package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// JobCache 导入任务缓存
// 只缓存终态任务：终态不会再变，轮询请求不必每次查库
// Key设计：import_job:{id}
type JobCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewJobCache 创建任务缓存
func NewJobCache(client *redis.Client, ttl time.Duration) *JobCache {
	return &JobCache{client: client, ttl: ttl}
}

// Get 读取缓存，未命中返回(nil, nil)
func (c *JobCache) Get(ctx context.Context, id string) (*bookimport.Job, error) {
	data, err := c.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.ErrRedisError.WithCause(err)
	}

	var job bookimport.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, apperrors.Wrap(err, "解析任务缓存失败")
	}
	return &job, nil
}

// Set 写入缓存，非终态任务直接忽略
func (c *JobCache) Set(ctx context.Context, job *bookimport.Job) error {
	if !job.Status.IsTerminal() {
		return nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return apperrors.Wrap(err, "序列化任务缓存失败")
	}
	if err := c.client.Set(ctx, jobKey(job.ID), data, c.ttl).Err(); err != nil {
		return apperrors.ErrRedisError.WithCause(err)
	}
	return nil
}

func jobKey(id string) string {
	return "import_job:" + id
}

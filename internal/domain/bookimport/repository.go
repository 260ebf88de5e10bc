package bookimport

import (
	"context"
)

// JobRepository 导入任务仓储接口
type JobRepository interface {
	// Create 保存新任务
	Create(ctx context.Context, job *Job) error

	// Update 保存任务当前状态
	// 只更新数据库中仍为InProgress的记录,已是终态时返回ErrJobFinalized
	Update(ctx context.Context, job *Job) error

	// FindByID 查询任务,不存在或不属于ownerID时返回ErrJobNotFound
	FindByID(ctx context.Context, ownerID uint, id string) (*Job, error)
}

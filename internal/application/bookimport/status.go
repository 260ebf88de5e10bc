package bookimport

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
)

// GetImportStatusUseCase 查询导入任务状态(只读)
// 先查缓存(只有终态任务会被缓存)，未命中再查库
type GetImportStatusUseCase struct {
	jobs  bookimport.JobRepository
	cache JobCache
}

// NewGetImportStatusUseCase 创建查询用例，cache可以为nil
func NewGetImportStatusUseCase(jobs bookimport.JobRepository, cache JobCache) *GetImportStatusUseCase {
	return &GetImportStatusUseCase{jobs: jobs, cache: cache}
}

// GetImportStatusRequest 查询请求DTO
type GetImportStatusRequest struct {
	OwnerID uint
	JobID   string
}

// Execute 查询任务，不存在或不属于当前用户返回ErrJobNotFound
func (uc *GetImportStatusUseCase) Execute(ctx context.Context, req GetImportStatusRequest) (*JobResponse, error) {
	if req.JobID == "" {
		return nil, bookimport.ErrJobNotFound
	}

	if uc.cache != nil {
		job, err := uc.cache.Get(ctx, req.JobID)
		if err != nil {
			zap.L().Warn("job cache unavailable", zap.String("job_id", req.JobID), zap.Error(err))
		}
		if job != nil {
			if !job.IsOwnedBy(req.OwnerID) {
				return nil, bookimport.ErrJobNotFound
			}
			return NewJobResponse(job), nil
		}
	}

	job, err := uc.jobs.FindByID(ctx, req.OwnerID, req.JobID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil && job.Status.IsTerminal() {
		if err := uc.cache.Set(ctx, job); err != nil {
			zap.L().Warn("failed to cache job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return NewJobResponse(job), nil
}

package mysql

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// importJobRepository 导入任务仓储实现
type importJobRepository struct {
	db *gorm.DB
}

// NewImportJobRepository 创建导入任务仓储
func NewImportJobRepository(db *gorm.DB) bookimport.JobRepository {
	return &importJobRepository{db: db}
}

// Create 保存新任务
func (r *importJobRepository) Create(ctx context.Context, job *bookimport.Job) error {
	model, err := toJobModel(job)
	if err != nil {
		return err
	}
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建导入任务失败")
	}
	return nil
}

// Update 条件更新:只更新仍为InProgress的记录
// 教学要点:
// 1. WHERE status = 'InProgress' 保证终态只写入一次,即使内存中的实体被误用
// 2. 使用map更新,零值字段(如error_rows=0)也会写入
func (r *importJobRepository) Update(ctx context.Context, job *bookimport.Job) error {
	model, err := toJobModel(job)
	if err != nil {
		return err
	}

	db := dbFrom(ctx, r.db)
	result := db.Model(&ImportJobModel{}).
		Where("id = ? AND status = ?", job.ID, string(bookimport.StatusInProgress)).
		Updates(map[string]interface{}{
			"status":         model.Status,
			"total_rows":     model.TotalRows,
			"valid_rows":     model.ValidRows,
			"error_rows":     model.ErrorRows,
			"processed_rows": model.ProcessedRows,
			"error_summary":  model.ErrorSummary,
			"completed_at":   model.CompletedAt,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新导入任务失败")
	}

	// MySQL默认只统计实际变化的行，值未变的更新也会是0
	if result.RowsAffected == 0 {
		var current ImportJobModel
		err := db.Select("status").Where("id = ?", job.ID).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return bookimport.ErrJobNotFound
		}
		if err != nil {
			return apperrors.Wrap(err, "查询导入任务失败")
		}
		if current.Status != string(bookimport.StatusInProgress) {
			return bookimport.ErrJobFinalized
		}
	}

	return nil
}

// FindByID 查询任务(只读)
func (r *importJobRepository) FindByID(ctx context.Context, ownerID uint, id string) (*bookimport.Job, error) {
	var model ImportJobModel
	err := dbFrom(ctx, r.db).Where("id = ? AND owner_id = ?", id, ownerID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookimport.ErrJobNotFound
		}
		return nil, apperrors.Wrap(err, "查询导入任务失败")
	}
	return toJobEntity(&model)
}

func toJobModel(job *bookimport.Job) (*ImportJobModel, error) {
	summary, err := json.Marshal(job.Errors)
	if err != nil {
		return nil, apperrors.Wrap(err, "序列化错误汇总失败")
	}
	return &ImportJobModel{
		ID:            job.ID,
		OwnerID:       job.OwnerID,
		Filename:      job.Filename,
		Status:        string(job.Status),
		TotalRows:     job.TotalRows,
		ValidRows:     job.ValidRows,
		ErrorRows:     job.ErrorRows,
		ProcessedRows: job.ProcessedRows,
		ErrorSummary:  string(summary),
		CreatedAt:     job.CreatedAt,
		CompletedAt:   job.CompletedAt,
	}, nil
}

func toJobEntity(model *ImportJobModel) (*bookimport.Job, error) {
	var summary bookimport.ErrorSummary
	if model.ErrorSummary != "" {
		if err := json.Unmarshal([]byte(model.ErrorSummary), &summary); err != nil {
			return nil, apperrors.Wrap(err, "解析错误汇总失败")
		}
	}
	return &bookimport.Job{
		ID:            model.ID,
		OwnerID:       model.OwnerID,
		Filename:      model.Filename,
		Status:        bookimport.Status(model.Status),
		TotalRows:     model.TotalRows,
		ValidRows:     model.ValidRows,
		ErrorRows:     model.ErrorRows,
		ProcessedRows: model.ProcessedRows,
		Errors:        summary,
		CreatedAt:     model.CreatedAt,
		CompletedAt:   model.CompletedAt,
	}, nil
}

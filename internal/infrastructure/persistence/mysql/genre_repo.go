package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// genreRepository 类型仓储实现
type genreRepository struct {
	db *gorm.DB
}

// NewGenreRepository 创建类型仓储
func NewGenreRepository(db *gorm.DB) book.GenreRepository {
	return &genreRepository{db: db}
}

// FindByNames 按规范化名称一次查询
func (r *genreRepository) FindByNames(ctx context.Context, names []string) ([]*book.Genre, error) {
	if len(names) == 0 {
		return nil, nil
	}

	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = book.NormalizeKey(n)
	}

	var models []GenreModel
	if err := dbFrom(ctx, r.db).Where("name_key IN ?", keys).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询类型失败")
	}

	genres := make([]*book.Genre, len(models))
	for i, m := range models {
		genres[i] = &book.Genre{ID: m.ID, Name: m.Name}
	}
	return genres, nil
}

// CreateBatch 一次批量插入并回填ID
// 并发导入同时创建同一类型时,后提交的一方因唯一索引失败并整体回滚
func (r *genreRepository) CreateBatch(ctx context.Context, genres []*book.Genre) error {
	if len(genres) == 0 {
		return nil
	}

	models := make([]GenreModel, len(genres))
	for i, g := range genres {
		models[i] = GenreModel{Name: g.Name, NameKey: g.Key()}
	}

	if err := dbFrom(ctx, r.db).CreateInBatches(&models, createBatchSize*2).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.New(apperrors.ErrCodeDuplicateEntry, "类型已存在,请重试").WithCause(err)
		}
		return apperrors.Wrap(err, "批量创建类型失败")
	}

	for i := range genres {
		genres[i].ID = models[i].ID
	}
	return nil
}

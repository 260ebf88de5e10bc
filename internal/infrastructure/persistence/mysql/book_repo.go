package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

const (
	// createBatchSize 单条INSERT的最大行数
	// books每行16列,200行约3200个占位符,低于SQLite和MySQL的上限
	createBatchSize = 200

	// maxKeyFilter 查重时title_key IN (...)的最大个数,超过后只按owner_id过滤
	maxKeyFilter = 1000
)

// bookRepository 图书仓储实现
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

// CreateBatch 批量写入图书和关联
// 教学要点:
// 1. 关联行单独批量插入,不让GORM逐个upsert类型
// 2. 必须在事务中调用,否则图书和关联可能只写入一半
func (r *bookRepository) CreateBatch(ctx context.Context, books []*book.Book, genres []*book.Genre) error {
	if len(books) == 0 {
		return nil
	}

	genreIDs := make(map[string]uint, len(genres))
	for _, g := range genres {
		genreIDs[g.Key()] = g.ID
	}

	models := make([]*BookModel, len(books))
	var links []BookGenreModel
	for i, b := range books {
		models[i] = toBookModel(b)
		for _, name := range b.Genres {
			id, ok := genreIDs[book.NormalizeKey(name)]
			if !ok {
				return apperrors.Wrapf(errors.New("genre not persisted"), "类型%q未保存", name)
			}
			links = append(links, BookGenreModel{BookID: b.ID, GenreID: id})
		}
	}

	db := dbFrom(ctx, r.db)
	if err := db.Omit(clause.Associations).CreateInBatches(models, createBatchSize).Error; err != nil {
		if isDuplicateError(err) {
			return book.ErrBookExists
		}
		return apperrors.Wrap(err, "批量创建图书失败")
	}

	if len(links) > 0 {
		if err := db.CreateInBatches(links, createBatchSize*2).Error; err != nil {
			return apperrors.Wrap(err, "创建图书类型关联失败")
		}
	}

	return nil
}

// FindByID 根据ID查找图书
func (r *bookRepository) FindByID(ctx context.Context, ownerID uint, id string) (*book.Book, error) {
	var model BookModel
	err := dbFrom(ctx, r.db).
		Preload("Genres").
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}

	return toBookEntity(&model), nil
}

// List 分页查询图书列表
func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	db := dbFrom(ctx, r.db)
	query := db.Model(&BookModel{}).Where("owner_id = ?", params.OwnerID)

	if params.Keyword != "" {
		keyword := "%" + book.NormalizeKey(params.Keyword) + "%"
		query = query.Where("(title_key LIKE ? OR author_key LIKE ?)", keyword, keyword)
	}

	if params.Genre != "" {
		sub := db.Table("book_genres").
			Select("book_genres.book_id").
			Joins("JOIN genres ON genres.id = book_genres.genre_id").
			Where("genres.name_key = ?", book.NormalizeKey(params.Genre))
		query = query.Where("id IN (?)", sub)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书总数失败")
	}

	switch params.SortBy {
	case "title_asc":
		query = query.Order("title_key ASC")
	case "rating_desc":
		query = query.Order("rating DESC").Order("created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	offset := (params.Page - 1) * params.PageSize
	var models []BookModel
	if err := query.Preload("Genres").Limit(params.PageSize).Offset(offset).Find(&models).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书列表失败")
	}

	return toBookEntities(models), total, nil
}

// ListAll 查询所有者的全部图书(导出用)
func (r *bookRepository) ListAll(ctx context.Context, ownerID uint) ([]*book.Book, error) {
	var models []BookModel
	err := dbFrom(ctx, r.db).
		Preload("Genres").
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询图书失败")
	}
	return toBookEntities(models), nil
}

// FindExistingKeys 一次查询返回已存在的查重键
// 教学要点:
// 1. 只查(title_key, author_key)两列,走idx_owner_key索引
// 2. 数据库按title_key粗筛,(title, author)组合在内存中精确匹配
func (r *bookRepository) FindExistingKeys(ctx context.Context, ownerID uint, keys []book.TitleAuthor) ([]book.TitleAuthor, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	want := make(map[book.TitleAuthor]bool, len(keys))
	titleSet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = true
		titleSet[k.Title] = struct{}{}
	}

	query := dbFrom(ctx, r.db).
		Model(&BookModel{}).
		Select("title_key", "author_key").
		Where("owner_id = ?", ownerID)
	if len(titleSet) <= maxKeyFilter {
		titles := make([]string, 0, len(titleSet))
		for t := range titleSet {
			titles = append(titles, t)
		}
		query = query.Where("title_key IN ?", titles)
	}

	var rows []struct {
		TitleKey  string
		AuthorKey string
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询重复图书失败")
	}

	var existing []book.TitleAuthor
	seen := make(map[book.TitleAuthor]bool)
	for _, row := range rows {
		k := book.TitleAuthor{Title: row.TitleKey, Author: row.AuthorKey}
		if want[k] && !seen[k] {
			seen[k] = true
			existing = append(existing, k)
		}
	}
	return existing, nil
}

// =========================================
// 辅助函数
// =========================================

func toBookModel(b *book.Book) *BookModel {
	key := b.Key()
	return &BookModel{
		ID:            b.ID,
		OwnerID:       b.OwnerID,
		Title:         b.Title,
		TitleKey:      key.Title,
		Author:        b.Author,
		AuthorKey:     key.Author,
		PublishedDate: b.PublishedDate,
		Rating:        b.Rating,
		Edition:       b.Edition,
		ISBN:          b.ISBN,
		ExternalID:    b.ExternalID,
		CoverURL:      b.CoverURL,
		Description:   b.Description,
		PageCount:     b.PageCount,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toBookEntity(model *BookModel) *book.Book {
	genres := make([]string, len(model.Genres))
	for i, g := range model.Genres {
		genres[i] = g.Name
	}
	return &book.Book{
		ID:            model.ID,
		OwnerID:       model.OwnerID,
		Title:         model.Title,
		Author:        model.Author,
		Genres:        genres,
		PublishedDate: model.PublishedDate,
		Rating:        model.Rating,
		Edition:       model.Edition,
		ISBN:          model.ISBN,
		ExternalID:    model.ExternalID,
		CoverURL:      model.CoverURL,
		Description:   model.Description,
		PageCount:     model.PageCount,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toBookEntities(models []BookModel) []*book.Book {
	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books
}

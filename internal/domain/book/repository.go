package book

import (
	"context"
)

// Repository 图书仓储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现
// 2. 所有方法都按OwnerID隔离,不存在跨用户查询
// 3. 在TxManager.Transaction内调用时自动加入事务
type Repository interface {
	// CreateBatch 批量创建图书及类型关联,一次批量写入
	// genres是已持久化的类型(含ID),按Key与Book.Genres关联
	CreateBatch(ctx context.Context, books []*Book, genres []*Genre) error

	// FindByID 根据ID查找图书,不属于ownerID时返回ErrBookNotFound
	FindByID(ctx context.Context, ownerID uint, id string) (*Book, error)

	// List 分页查询
	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// ListAll 查询所有者的全部图书(导出用),按创建时间排序
	ListAll(ctx context.Context, ownerID uint) ([]*Book, error)

	// FindExistingKeys 一次查询返回keys中已存在的查重键
	// 不允许按候选逐条查询
	FindExistingKeys(ctx context.Context, ownerID uint, keys []TitleAuthor) ([]TitleAuthor, error)
}

// GenreRepository 类型仓储接口
type GenreRepository interface {
	// FindByNames 按规范化名称一次查询已存在的类型
	FindByNames(ctx context.Context, names []string) ([]*Genre, error)

	// CreateBatch 批量创建类型,成功后回填ID
	CreateBatch(ctx context.Context, genres []*Genre) error
}

// ListParams 列表查询参数
type ListParams struct {
	OwnerID  uint
	Page     int    // 页码(从1开始)
	PageSize int    // 每页数量
	Keyword  string // 搜索关键词(搜索书名、作者)
	Genre    string // 按类型过滤(忽略大小写)
	SortBy   string // 排序方式(created_at_desc, title_asc, rating_desc)
}

package book

import (
	"context"

	"github.com/xiebiao/bookshelf/internal/domain/book"
)

// ListBooksUseCase 图书列表查询用例
// 设计说明:
// 1. 支持分页、关键词搜索、类型过滤、排序
// 2. 只返回当前用户的图书
type ListBooksUseCase struct {
	bookService book.Service
}

// NewListBooksUseCase 创建列表查询用例
func NewListBooksUseCase(bookService book.Service) *ListBooksUseCase {
	return &ListBooksUseCase{
		bookService: bookService,
	}
}

// ListBooksRequest 列表查询请求DTO
type ListBooksRequest struct {
	OwnerID  uint
	Page     int    // 页码(从1开始)
	PageSize int    // 每页数量
	Keyword  string // 搜索关键词(书名、作者)
	Genre    string // 类型过滤
	SortBy   string // 排序方式(created_at_desc, title_asc, rating_desc)
}

// BookListItem 列表项DTO(不含description)
type BookListItem struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Genres        []string `json:"genres"`
	PublishedDate string   `json:"published_date"`
	Rating        int      `json:"rating"`
	CoverURL      string   `json:"cover_url,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// ListBooksResponse 列表查询响应DTO
type ListBooksResponse struct {
	List       []BookListItem `json:"list"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// Execute 执行列表查询用例
func (uc *ListBooksUseCase) Execute(ctx context.Context, req ListBooksRequest) (*ListBooksResponse, error) {
	// 1. 参数默认值与范围限制
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	books, total, err := uc.bookService.ListBooks(ctx, book.ListParams{
		OwnerID:  req.OwnerID,
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
		Genre:    req.Genre,
		SortBy:   req.SortBy,
	})
	if err != nil {
		return nil, err
	}

	// 2. 转换为DTO
	list := make([]BookListItem, len(books))
	for i, b := range books {
		genres := b.Genres
		if genres == nil {
			genres = []string{}
		}
		list[i] = BookListItem{
			ID:            b.ID,
			Title:         b.Title,
			Author:        b.Author,
			Genres:        genres,
			PublishedDate: b.PublishedDate,
			Rating:        b.Rating,
			CoverURL:      b.CoverURL,
			CreatedAt:     b.CreatedAt.Format("2006-01-02 15:04:05"),
		}
	}

	// 3. 计算总页数
	totalPages := int(total) / req.PageSize
	if int(total)%req.PageSize != 0 {
		totalPages++
	}

	return &ListBooksResponse{
		List:       list,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

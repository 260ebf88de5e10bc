package book

import (
	"context"

	"github.com/xiebiao/bookshelf/internal/domain/book"
)

// TxRunner 事务执行器
type TxRunner interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateBookUseCase 单本创建用例
// 设计说明:
// 1. 与批量导入共用同一套校验规则(book.ValidateInput)
// 2. 类型补齐和图书写入在同一个事务里,失败时新建的类型一起回滚
type CreateBookUseCase struct {
	txManager   TxRunner
	bookService book.Service
}

// NewCreateBookUseCase 创建用例
func NewCreateBookUseCase(txManager TxRunner, bookService book.Service) *CreateBookUseCase {
	return &CreateBookUseCase{
		txManager:   txManager,
		bookService: bookService,
	}
}

// CreateBookRequest 创建请求DTO
type CreateBookRequest struct {
	OwnerID       uint // 所有者ID(从认证中间件获取)
	Title         string
	Author        string
	Genres        []string
	PublishedDate string
	Rating        int
	Edition       string
	ISBN          string
}

// Execute 执行创建
// 校验失败返回ErrInvalidBook,(书名,作者)已存在返回ErrBookExists
func (uc *CreateBookUseCase) Execute(ctx context.Context, req CreateBookRequest) (*BookResponse, error) {
	var created *book.Book
	err := uc.txManager.Transaction(ctx, func(ctx context.Context) error {
		b, err := uc.bookService.CreateBook(ctx, req.OwnerID, book.Input{
			Title:         req.Title,
			Author:        req.Author,
			Genres:        req.Genres,
			PublishedDate: req.PublishedDate,
			Rating:        req.Rating,
			Edition:       req.Edition,
			ISBN:          req.ISBN,
		})
		if err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewBookResponse(created), nil
}

package book

import (
	"context"

	"github.com/xiebiao/bookshelf/internal/domain/book"
)

// GetBookUseCase 图书详情
type GetBookUseCase struct {
	bookService book.Service
}

// NewGetBookUseCase 创建详情用例
func NewGetBookUseCase(bookService book.Service) *GetBookUseCase {
	return &GetBookUseCase{bookService: bookService}
}

// Execute 查询图书,不属于当前用户时返回ErrBookNotFound
func (uc *GetBookUseCase) Execute(ctx context.Context, ownerID uint, id string) (*BookResponse, error) {
	b, err := uc.bookService.GetBook(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return NewBookResponse(b), nil
}

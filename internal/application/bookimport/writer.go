package bookimport

import (
	"context"
	"time"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
)

// TxRunner 事务执行器(mysql.TxManager实现)
type TxRunner interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Write 在一个事务内补齐类型并批量写入图书
// 任何失败整体回滚(包括新建的类型)，返回写入数量
func Write(ctx context.Context, tx TxRunner, books book.Service, ownerID uint, candidates []*bookimport.Candidate, now time.Time) PhaseResult[int] {
	if len(candidates) == 0 {
		return Continue(0, bookimport.ErrorSummary{})
	}

	records := make([]*book.Book, 0, len(candidates))
	for _, c := range candidates {
		records = append(records, c.ToBook(ownerID, now))
	}

	var written int
	err := tx.Transaction(ctx, func(ctx context.Context) error {
		n, err := books.SaveAll(ctx, records)
		if err != nil {
			return err
		}
		written = n
		return nil
	})
	if err != nil {
		return Abort[int](err)
	}
	return Continue(written, bookimport.ErrorSummary{})
}

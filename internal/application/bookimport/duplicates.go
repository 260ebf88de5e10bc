package bookimport

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
)

// ResolveDuplicates 按重复策略过滤候选
//
//	skip:  去掉已存在的(书名,作者)，记录数量后继续
//	fail:  发现任意一条已存在即Abort(ErrDuplicateConflict)
//	allow: 不查询，原样返回
//
// 所有候选只发一次批量查询
func ResolveDuplicates(ctx context.Context, books book.Service, ownerID uint, candidates []*bookimport.Candidate, policy bookimport.DuplicatePolicy) PhaseResult[[]*bookimport.Candidate] {
	if policy == bookimport.DuplicateAllow || len(candidates) == 0 {
		return Continue(candidates, bookimport.ErrorSummary{})
	}

	keys := make([]book.TitleAuthor, 0, len(candidates))
	for _, c := range candidates {
		keys = append(keys, c.Key())
	}

	existing, err := books.FindExisting(ctx, ownerID, keys)
	if err != nil {
		return Abort[[]*bookimport.Candidate](err)
	}
	if len(existing) == 0 {
		return Continue(candidates, bookimport.ErrorSummary{})
	}

	if policy == bookimport.DuplicateFail {
		for _, c := range candidates {
			if existing[c.Key()] {
				return Abort[[]*bookimport.Candidate](bookimport.ErrDuplicateConflict.WithCause(
					fmt.Errorf("row %d: %q by %q already exists", c.Row, c.Title, c.Author)))
			}
		}
	}

	kept := make([]*bookimport.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !existing[c.Key()] {
			kept = append(kept, c)
		}
	}
	zap.L().Info("skipped existing books",
		zap.Uint("owner_id", ownerID),
		zap.Int("skipped", len(candidates)-len(kept)),
	)
	return Continue(kept, bookimport.ErrorSummary{})
}

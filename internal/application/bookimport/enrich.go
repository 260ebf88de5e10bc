package bookimport

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	"github.com/xiebiao/bookshelf/pkg/batch"
)

// Enrich 按批补全外部元数据
// 单个候选失败只记录日志，不进入错误汇总，也不会让阶段失败
// 只有ctx被取消时返回Abort
func Enrich(ctx context.Context, enricher bookimport.Enricher, candidates []*bookimport.Candidate, opts bookimport.Options) PhaseResult[[]*bookimport.Candidate] {
	if enricher == nil || len(candidates) == 0 {
		return Continue(candidates, bookimport.ErrorSummary{})
	}

	_, err := batch.Map(ctx, candidates, batch.Options{Size: opts.BatchSize, Delay: opts.BatchDelay},
		func(ctx context.Context, c *bookimport.Candidate) (struct{}, error) {
			meta, err := enricher.Lookup(ctx, c.Query())
			switch {
			case err == nil && meta != nil:
				c.Apply(*meta)
			case errors.Is(err, bookimport.ErrNoMatch):
				zap.L().Debug("no metadata found",
					zap.Int("row", c.Row),
					zap.String("title", c.Title),
				)
			case err != nil && ctx.Err() == nil:
				zap.L().Warn("enrichment failed",
					zap.Int("row", c.Row),
					zap.String("title", c.Title),
					zap.Error(err),
				)
			}
			return struct{}{}, nil
		})
	if err != nil {
		return Abort[[]*bookimport.Candidate](err)
	}
	if err := ctx.Err(); err != nil {
		return Abort[[]*bookimport.Candidate](err)
	}
	return Continue(candidates, bookimport.ErrorSummary{})
}

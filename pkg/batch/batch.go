// Package batch 提供"有界并发 + 批间延迟"的批量映射原语
//
// 使用场景：调用有频率限制的外部服务（如图书元数据接口）
// 1. 输入按固定大小切成若干批
// 2. 同一批内的元素并发处理，并发数不超过批大小
// 3. 整批完成后等待Delay再开始下一批，限制对外部服务的突发流量
// 4. 批与批之间检查ctx，取消后立即返回
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options 批处理参数
type Options struct {
	Size  int           // 每批数量（同时也是批内最大并发数），<=0时视为1
	Delay time.Duration // 两批之间的等待时间，<=0表示不等待
}

// Map 按批并发执行fn，结果顺序与输入一致
//
// 错误语义：
//   - fn返回错误时，当前批内其他任务的ctx被取消，Map返回该错误
//   - 需要"单个失败不影响整体"的调用方应在fn内部吞掉错误
//   - ctx被取消时返回ctx.Err()，已完成批次的结果保留在返回切片中
func Map[T, R any](ctx context.Context, items []T, opts Options, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	size := opts.Size
	if size <= 0 {
		size = 1
	}

	out := make([]R, len(items))
	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		// 非首批：先等待批间延迟
		if start > 0 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return out, err
			}
		}

		end := min(start+size, len(items))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(size)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				r, err := fn(gctx, items[i])
				if err != nil {
					return err
				}
				out[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return out, err
		}
	}

	return out, nil
}

// Batches 返回按size切分后的批次数
func Batches(n, size int) int {
	if n <= 0 {
		return 0
	}
	if size <= 0 {
		size = 1
	}
	return (n + size - 1) / size
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package bookimport

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	"github.com/xiebiao/bookshelf/pkg/metrics"
	"github.com/xiebiao/bookshelf/pkg/tracing"
)

const tracerName = "bookshelf/import"

// JobCache 终态任务缓存(redis.JobCache实现)
type JobCache interface {
	Get(ctx context.Context, id string) (*bookimport.Job, error)
	Set(ctx context.Context, job *bookimport.Job) error
}

// Notifier 任务结束通知(events.MQNotifier实现)
type Notifier interface {
	JobFinished(ctx context.Context, job *bookimport.Job) error
}

// Settings 导入默认参数
type Settings struct {
	Defaults        bookimport.Options
	FinalizeTimeout time.Duration // 写入终态使用的独立超时
}

// ImportBooksUseCase 批量导入用例
// 设计说明：
// 1. 阶段严格串行：解析 -> 补全 -> 查重 -> 写入 -> 结束任务
// 2. 每个阶段返回PhaseResult，由这里决定继续还是失败，错误汇总由这里合并
// 3. 阶段失败只在这里处理一次：追加General错误、置为Failed、保存，然后把错误返回给调用方
// 4. 无论成功失败都返回任务信息，客户端可以继续轮询
type ImportBooksUseCase struct {
	parser   *Parser
	enricher bookimport.Enricher
	books    book.Service
	jobs     bookimport.JobRepository
	tx       TxRunner
	cache    JobCache
	notifier Notifier
	settings Settings
	now      func() time.Time
}

// NewImportBooksUseCase 创建导入用例
// cache和notifier可以为nil
func NewImportBooksUseCase(
	parser *Parser,
	enricher bookimport.Enricher,
	books book.Service,
	jobs bookimport.JobRepository,
	tx TxRunner,
	cache JobCache,
	notifier Notifier,
	settings Settings,
) *ImportBooksUseCase {
	if settings.FinalizeTimeout <= 0 {
		settings.FinalizeTimeout = 10 * time.Second
	}
	return &ImportBooksUseCase{
		parser:   parser,
		enricher: enricher,
		books:    books,
		jobs:     jobs,
		tx:       tx,
		cache:    cache,
		notifier: notifier,
		settings: settings,
		now:      time.Now,
	}
}

// Execute 执行导入
// 返回值：
//   - 任务创建失败：(nil, err)
//   - 其余情况总会返回任务；任务为Failed时同时返回导致失败的错误
//   - 文件结构错误返回ErrInvalidImportFile
func (uc *ImportBooksUseCase) Execute(ctx context.Context, req ImportRequest) (*JobResponse, error) {
	opts := req.Options.WithDefaults(uc.settings.Defaults)
	if uc.enricher == nil {
		opts.Enrich = false
	}

	start := uc.now()
	job := bookimport.NewJob(req.OwnerID, req.Filename, start)
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	defer metrics.TrackImport()()

	ctx, span := tracing.StartSpan(ctx, tracerName, "import.run",
		attribute.String("job.id", job.ID),
		attribute.Int64("owner.id", int64(req.OwnerID)),
		attribute.String("duplicates", string(opts.Duplicates)),
		attribute.Bool("enrich", opts.Enrich),
	)
	log := zap.L().With(zap.String("job_id", job.ID), zap.Uint("owner_id", req.OwnerID))
	log.Info("import started", zap.String("filename", req.Filename))

	err := uc.run(ctx, job, req, opts, log)
	tracing.EndSpan(span, err)

	if err != nil {
		log.Warn("import failed", zap.Error(err), zap.Duration("duration", uc.now().Sub(start)))
	} else {
		log.Info("import finished",
			zap.String("status", string(job.Status)),
			zap.Int("total", job.TotalRows),
			zap.Int("valid", job.ValidRows),
			zap.Int("errors", job.ErrorRows),
			zap.Int("persisted", job.ProcessedRows),
			zap.Duration("duration", uc.now().Sub(start)),
		)
	}
	metrics.RecordImportJob(string(job.Status), uc.now().Sub(start))
	return NewJobResponse(job), err
}

func (uc *ImportBooksUseCase) run(ctx context.Context, job *bookimport.Job, req ImportRequest, opts bookimport.Options, log *zap.Logger) error {
	// 1. 解析+校验
	pctx, span := tracing.StartSpan(ctx, tracerName, "import.parse")
	parsed := uc.parser.Parse(pctx, req.File)
	tracing.EndSpan(span, parsed.Err)
	if parsed.Aborted() {
		var structural *StructuralError
		if errors.As(parsed.Err, &structural) {
			return uc.abortStructural(ctx, job, structural)
		}
		return uc.fail(ctx, job, bookimport.NewErrorSummary(), parsed.Err)
	}

	valid, invalid := parsed.Data.Counts()
	summary := parsed.Errors
	if err := job.RecordParse(valid, invalid, summary); err != nil {
		return err
	}
	metrics.RecordImportRows(metrics.RowOutcomeValid, valid)
	metrics.RecordImportRows(metrics.RowOutcomeInvalid, invalid)
	log.Debug("parse finished", zap.Int("valid", valid), zap.Int("invalid", invalid))

	if err := uc.jobs.Update(ctx, job); err != nil {
		return uc.fail(ctx, job, summary, err)
	}

	candidates := parsed.Data.Valid()

	// 2. 补全
	if opts.Enrich && len(candidates) > 0 {
		ectx, span := tracing.StartSpan(ctx, tracerName, "import.enrich",
			attribute.Int("candidates", len(candidates)),
			attribute.Int("batch_size", opts.BatchSize),
		)
		enriched := Enrich(ectx, uc.enricher, candidates, opts)
		tracing.EndSpan(span, enriched.Err)
		if enriched.Aborted() {
			return uc.fail(ctx, job, summary, enriched.Err)
		}
		summary = summary.Merge(enriched.Errors)
		candidates = enriched.Data
	}

	// 3. 查重
	dctx, span := tracing.StartSpan(ctx, tracerName, "import.dedupe")
	resolved := ResolveDuplicates(dctx, uc.books, job.OwnerID, candidates, opts.Duplicates)
	tracing.EndSpan(span, resolved.Err)
	if resolved.Aborted() {
		return uc.fail(ctx, job, summary, resolved.Err)
	}
	summary = summary.Merge(resolved.Errors)
	metrics.RecordImportRows(metrics.RowOutcomeDuplicate, len(candidates)-len(resolved.Data))
	candidates = resolved.Data

	// 4. 写入
	wctx, span := tracing.StartSpan(ctx, tracerName, "import.write", attribute.Int("books", len(candidates)))
	written := Write(wctx, uc.tx, uc.books, job.OwnerID, candidates, uc.now())
	tracing.EndSpan(span, written.Err)
	if written.Aborted() {
		return uc.fail(ctx, job, summary, written.Err)
	}
	summary = summary.Merge(written.Errors)
	metrics.RecordImportRows(metrics.RowOutcomePersisted, written.Data)

	// 5. 结束任务
	if err := job.RecordProcessed(written.Data); err != nil {
		return err
	}
	job.Errors = summary
	if err := job.Complete(uc.now()); err != nil {
		return err
	}
	return uc.finalize(ctx, job)
}

// abortStructural 文件结构错误：唯一的一条错误就是结构错误本身
func (uc *ImportBooksUseCase) abortStructural(ctx context.Context, job *bookimport.Job, structural *StructuralError) error {
	if err := job.Fail(bookimport.NewErrorSummary(structural.Detail), uc.now()); err != nil {
		return err
	}
	if err := uc.finalize(ctx, job); err != nil {
		return err
	}
	return bookimport.ErrInvalidImportFile.WithCause(structural)
}

// fail 阶段失败：追加一条General错误，置为Failed并保存，返回原始错误
func (uc *ImportBooksUseCase) fail(ctx context.Context, job *bookimport.Job, summary bookimport.ErrorSummary, cause error) error {
	if err := job.Fail(summary.Append(bookimport.GeneralError(cause)), uc.now()); err != nil {
		return err
	}
	if err := uc.finalize(ctx, job); err != nil {
		zap.L().Error("failed to persist failed job",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
	return cause
}

// finalize 保存终态
// 使用与请求取消无关的ctx：请求被取消后任务仍然要落到终态
// 缓存和事件是尽力而为的，失败只记日志
func (uc *ImportBooksUseCase) finalize(ctx context.Context, job *bookimport.Job) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.settings.FinalizeTimeout)
	defer cancel()

	if err := uc.jobs.Update(fctx, job); err != nil {
		return err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(fctx, job); err != nil {
			zap.L().Warn("failed to cache job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if uc.notifier != nil {
		if err := uc.notifier.JobFinished(fctx, job); err != nil {
			zap.L().Warn("failed to publish job event", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return nil
}

// NewSettings 由配置值构造默认参数
func NewSettings(duplicates string, batchSize int, batchDelay, finalizeTimeout time.Duration) (Settings, error) {
	policy, err := bookimport.ParseDuplicatePolicy(duplicates)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Defaults: bookimport.Options{
			Duplicates: policy,
			BatchSize:  batchSize,
			BatchDelay: batchDelay,
		},
		FinalizeTimeout: finalizeTimeout,
	}, nil
}

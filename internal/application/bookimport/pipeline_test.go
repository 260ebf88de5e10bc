package bookimport

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/infrastructure/enrichment"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/mysql"
)

const duneCSV = "title,author,genres,publisheddate,rating\n" +
	`"Dune","Frank Herbert","Science Fiction","1965-08-01",5` + "\n"

type enricherFunc func(ctx context.Context, q bookimport.LookupQuery) (*bookimport.Metadata, error)

func (f enricherFunc) Lookup(ctx context.Context, q bookimport.LookupQuery) (*bookimport.Metadata, error) {
	return f(ctx, q)
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []*bookimport.Job
}

func (n *recordingNotifier) JobFinished(_ context.Context, job *bookimport.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job)
	return nil
}

type memJobCache struct {
	mu   sync.Mutex
	jobs map[string]*bookimport.Job
	gets int
}

func newMemJobCache() *memJobCache {
	return &memJobCache{jobs: make(map[string]*bookimport.Job)}
}

func (c *memJobCache) Get(_ context.Context, id string) (*bookimport.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.jobs[id], nil
}

func (c *memJobCache) Set(_ context.Context, job *bookimport.Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if job.Status.IsTerminal() {
		c.jobs[job.ID] = job
	}
	return nil
}

type testEnv struct {
	db       *gorm.DB
	books    book.Service
	jobs     bookimport.JobRepository
	notifier *recordingNotifier
	cache    *memJobCache
	importer *ImportBooksUseCase
}

func setup(t *testing.T, enricher bookimport.Enricher) *testEnv {
	t.Helper()
	db, err := mysql.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	env := &testEnv{
		db:       db,
		books:    book.NewService(mysql.NewBookRepository(db), mysql.NewGenreRepository(db)),
		jobs:     mysql.NewImportJobRepository(db),
		notifier: &recordingNotifier{},
		cache:    newMemJobCache(),
	}
	parser := &Parser{now: func() time.Time { return fixedNow }}
	env.importer = NewImportBooksUseCase(parser, enricher, env.books, env.jobs, mysql.NewTxManager(db),
		env.cache, env.notifier, Settings{
			Defaults:        bookimport.Options{Duplicates: bookimport.DuplicateSkip, BatchSize: 2},
			FinalizeTimeout: time.Second,
		})
	return env
}

func (env *testEnv) run(t *testing.T, ctx context.Context, owner uint, content string, opts bookimport.Options) (*JobResponse, error) {
	t.Helper()
	return env.importer.Execute(ctx, ImportRequest{
		OwnerID:  owner,
		Filename: "books.csv",
		File:     strings.NewReader(content),
		Options:  opts,
	})
}

func (env *testEnv) countBooks(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&mysql.BookModel{}).Count(&n).Error)
	return n
}

func (env *testEnv) storedJob(t *testing.T, owner uint, id string) *bookimport.Job {
	t.Helper()
	job, err := env.jobs.FindByID(context.Background(), owner, id)
	require.NoError(t, err)
	return job
}

func TestImport_Dune(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()

	resp, err := env.run(t, ctx, 1, duneCSV, bookimport.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Completed", resp.Status)
	assert.Equal(t, 1, resp.TotalRows)
	assert.Equal(t, 1, resp.ValidRows)
	assert.Equal(t, 0, resp.ErrorRows)
	assert.Equal(t, 1, resp.ProcessedRows)
	assert.Empty(t, resp.ErrorSummary)

	books, err := env.books.ListAll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, []string{"Science Fiction"}, books[0].Genres)

	stored := env.storedJob(t, 1, resp.JobID)
	assert.Equal(t, bookimport.StatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	require.Len(t, env.notifier.jobs, 1)
	assert.Equal(t, resp.JobID, env.notifier.jobs[0].ID)
}

func TestImport_EmptyTitle(t *testing.T) {
	env := setup(t, nil)

	resp, err := env.run(t, context.Background(), 1, "title,author,genres,publisheddate,rating\n"+
		`"","Frank Herbert","Science Fiction","1965-08-01",5`+"\n", bookimport.Options{})
	require.NoError(t, err)
	assert.Equal(t, "CompletedWithErrors", resp.Status)
	assert.Equal(t, 1, resp.TotalRows)
	assert.Equal(t, 0, resp.ValidRows)
	assert.Equal(t, 1, resp.ErrorRows)
	require.Len(t, resp.ErrorSummary, 1)
	assert.Equal(t, "Title", resp.ErrorSummary[0].Field)
	assert.Equal(t, int64(0), env.countBooks(t))
}

func TestImport_AllValidCounts(t *testing.T) {
	env := setup(t, nil)

	var sb strings.Builder
	sb.WriteString("Book Title,Writer,Category,Year,Stars\n")
	titles := []string{"A", "B", "C", "D", "E"}
	for _, title := range titles {
		sb.WriteString(title + ",Author " + title + ",Fiction,2001,3\n")
	}

	resp, err := env.run(t, context.Background(), 1, sb.String(), bookimport.Options{})
	require.NoError(t, err)
	assert.Equal(t, len(titles), resp.TotalRows)
	assert.Equal(t, len(titles), resp.ValidRows)
	assert.Equal(t, 0, resp.ErrorRows)
	assert.Equal(t, int64(len(titles)), env.countBooks(t))

	var genres int64
	require.NoError(t, env.db.Model(&mysql.GenreModel{}).Count(&genres).Error)
	assert.Equal(t, int64(1), genres)
}

func TestImport_MissingHeader(t *testing.T) {
	env := setup(t, nil)

	resp, err := env.run(t, context.Background(), 1, "title,author\nDune,Frank Herbert\n", bookimport.Options{})
	assert.ErrorIs(t, err, bookimport.ErrInvalidImportFile)
	require.NotNil(t, resp, "结构错误也要返回任务")
	assert.Equal(t, "Failed", resp.Status)
	assert.Equal(t, 0, resp.TotalRows)
	require.Len(t, resp.ErrorSummary, 1)
	assert.Equal(t, bookimport.FieldHeader, resp.ErrorSummary[0].Field)
	assert.Equal(t, int64(0), env.countBooks(t))

	stored := env.storedJob(t, 1, resp.JobID)
	assert.Equal(t, bookimport.StatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Errors.Len())
}

func TestImport_SkipIdempotent(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()
	content := duneCSV + "Emma,Jane Austen,Romance,1815,4\n"

	first, err := env.run(t, ctx, 1, content, bookimport.Options{Duplicates: bookimport.DuplicateSkip})
	require.NoError(t, err)
	assert.Equal(t, 2, first.ProcessedRows)

	// 大小写和首尾空白不同也算同一本
	second, err := env.run(t, ctx, 1, strings.Replace(content, `"Dune"`, `"  dune "`, 1), bookimport.Options{Duplicates: bookimport.DuplicateSkip})
	require.NoError(t, err)
	assert.Equal(t, "Completed", second.Status)
	assert.Equal(t, 2, second.ValidRows)
	assert.Equal(t, 0, second.ProcessedRows)
	assert.Equal(t, int64(2), env.countBooks(t))

	// 其他用户不受影响
	other, err := env.run(t, ctx, 2, content, bookimport.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, other.ProcessedRows)
}

func TestImport_FailPolicy(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()

	_, err := env.run(t, ctx, 1, duneCSV, bookimport.Options{})
	require.NoError(t, err)

	content := duneCSV + "Emma,Jane Austen,Romance,1815,4\n"
	resp, err := env.run(t, ctx, 1, content, bookimport.Options{Duplicates: bookimport.DuplicateFail})
	assert.ErrorIs(t, err, bookimport.ErrDuplicateConflict)
	require.NotNil(t, resp)
	assert.Equal(t, "Failed", resp.Status)
	assert.Equal(t, 0, resp.ProcessedRows)
	require.Len(t, resp.ErrorSummary, 1)
	assert.Equal(t, bookimport.FieldGeneral, resp.ErrorSummary[0].Field)
	assert.Contains(t, resp.ErrorSummary[0].Message, "Dune")
	assert.Equal(t, int64(1), env.countBooks(t), "Emma不能被写入")

	assert.Equal(t, bookimport.StatusFailed, env.storedJob(t, 1, resp.JobID).Status)
}

func TestImport_AllowPolicy(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()

	_, err := env.run(t, ctx, 1, duneCSV, bookimport.Options{})
	require.NoError(t, err)
	resp, err := env.run(t, ctx, 1, duneCSV, bookimport.Options{Duplicates: bookimport.DuplicateAllow})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProcessedRows)
	assert.Equal(t, int64(2), env.countBooks(t))
}

func TestImport_ExportRoundTrip(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()

	content := "title,author,genres,publisheddate,rating,edition,isbn\n" +
		`Dune,Frank Herbert,"Science Fiction, Classics",1965-08-01,5,1st,9780441013593` + "\n" +
		`"The ""Hobbit""",J.R.R. Tolkien,Fantasy,1937,4,,` + "\n" +
		"Emma,Jane Austen,Romance;Classics,1815,3,,\n" +
		"#Girlboss,Sophia Amoruso,Memoir,2014-05-06,4,,\n" +
		`"#Quoted",Someone,Essays,2001,2,,` + "\n"
	resp, err := env.run(t, ctx, 1, content, bookimport.Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.ProcessedRows, "表头之后#开头的行是数据")

	var out strings.Builder
	n, err := NewExportBooksUseCase(env.books).Execute(ctx, 1, &out)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Contains(t, out.String(), "\n\"#Girlboss\",Sophia Amoruso,Memoir,2014-05-06,4,,\n")
	assert.Contains(t, out.String(), "\n\"#Quoted\",Someone,Essays,2001,2,,\n")

	resp, err = env.run(t, ctx, 2, out.String(), bookimport.Options{Duplicates: bookimport.DuplicateAllow})
	require.NoError(t, err)
	assert.Equal(t, "Completed", resp.Status)
	assert.Equal(t, 5, resp.TotalRows)
	assert.Equal(t, 5, resp.ProcessedRows)

	original, err := env.books.ListAll(ctx, 1)
	require.NoError(t, err)
	reimported, err := env.books.ListAll(ctx, 2)
	require.NoError(t, err)

	index := func(books []*book.Book) map[book.TitleAuthor]*book.Book {
		m := make(map[book.TitleAuthor]*book.Book)
		for _, b := range books {
			m[b.Key()] = b
		}
		return m
	}
	want, got := index(original), index(reimported)
	require.Len(t, got, len(want))
	for key, w := range want {
		g, ok := got[key]
		require.True(t, ok, key.Title)
		assert.Equal(t, w.Title, g.Title)
		assert.Equal(t, w.Author, g.Author)
		assert.Equal(t, w.Rating, g.Rating)
		assert.ElementsMatch(t, w.Genres, g.Genres)
	}
}

func TestImport_WriteFailureRollsBack(t *testing.T) {
	env := setup(t, nil)
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:fail_books", func(tx *gorm.DB) {
		if tx.Statement.Table == (mysql.BookModel{}).TableName() {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	resp, err := env.run(t, context.Background(), 1, duneCSV, bookimport.Options{})
	require.Error(t, err)
	assert.Equal(t, "Failed", resp.Status)
	require.Len(t, resp.ErrorSummary, 1)
	assert.Equal(t, bookimport.FieldGeneral, resp.ErrorSummary[0].Field)
	assert.NotContains(t, resp.ErrorSummary[0].Message, "disk full")

	var genres int64
	require.NoError(t, env.db.Model(&mysql.GenreModel{}).Count(&genres).Error)
	assert.Equal(t, int64(0), genres, "新建的类型一起回滚")
	assert.Equal(t, int64(0), env.countBooks(t))
	assert.Equal(t, bookimport.StatusFailed, env.storedJob(t, 1, resp.JobID).Status)
}

func TestImport_Enrichment(t *testing.T) {
	var calls int
	var mu sync.Mutex
	enricher := enricherFunc(func(_ context.Context, q bookimport.LookupQuery) (*bookimport.Metadata, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		switch q.Title {
		case "Dune":
			return &bookimport.Metadata{ExternalID: "/works/OL1W", PageCount: 604, ISBN: "9780441013593"}, nil
		case "Emma":
			return nil, errors.New("upstream timeout")
		default:
			return nil, bookimport.ErrNoMatch
		}
	})
	env := setup(t, enricher)
	ctx := context.Background()

	content := duneCSV + "Emma,Jane Austen,Romance,1815,4\nUnknown,Nobody,Drama,2001,2\n"
	resp, err := env.run(t, ctx, 1, content, bookimport.Options{Enrich: true, BatchSize: 2, BatchDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "Completed", resp.Status, "补全失败不进入错误汇总")
	assert.Empty(t, resp.ErrorSummary)
	assert.Equal(t, 3, resp.ProcessedRows)
	assert.Equal(t, 3, calls)

	books, err := env.books.ListAll(ctx, 1)
	require.NoError(t, err)
	for _, b := range books {
		if b.Title == "Dune" {
			assert.Equal(t, "/works/OL1W", b.ExternalID)
			assert.Equal(t, 604, b.PageCount)
			assert.Equal(t, "9780441013593", b.ISBN)
		}
	}
}

func TestImport_EnrichDisabled(t *testing.T) {
	enricher := enricherFunc(func(context.Context, bookimport.LookupQuery) (*bookimport.Metadata, error) {
		t.Fatal("enrich=false时不应调用")
		return nil, nil
	})
	env := setup(t, enricher)

	_, err := env.run(t, context.Background(), 1, duneCSV, bookimport.Options{Enrich: false})
	require.NoError(t, err)
}

func TestImport_CancelledStillFinalized(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enricher := enricherFunc(func(context.Context, bookimport.LookupQuery) (*bookimport.Metadata, error) {
		cancel()
		return nil, context.Canceled
	})
	env := setup(t, enricher)

	resp, err := env.run(t, ctx, 1, duneCSV, bookimport.Options{Enrich: true})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, resp)
	assert.Equal(t, "Failed", resp.Status)

	stored := env.storedJob(t, 1, resp.JobID)
	assert.Equal(t, bookimport.StatusFailed, stored.Status, "请求取消后任务仍落到终态")
	assert.Equal(t, int64(0), env.countBooks(t))
}

func TestGetImportStatus(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()

	resp, err := env.run(t, ctx, 1, duneCSV, bookimport.Options{})
	require.NoError(t, err)

	status := NewGetImportStatusUseCase(env.jobs, env.cache)
	got, err := status.Execute(ctx, GetImportStatusRequest{OwnerID: 1, JobID: resp.JobID})
	require.NoError(t, err)
	assert.Equal(t, resp.JobID, got.JobID)
	assert.Equal(t, "Completed", got.Status)
	assert.Equal(t, 1, got.TotalRows)

	_, err = status.Execute(ctx, GetImportStatusRequest{OwnerID: 2, JobID: resp.JobID})
	assert.ErrorIs(t, err, bookimport.ErrJobNotFound)

	_, err = status.Execute(ctx, GetImportStatusRequest{OwnerID: 1, JobID: "missing"})
	assert.ErrorIs(t, err, bookimport.ErrJobNotFound)
}

func TestGetImportStatus_NoCache(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()

	resp, err := env.run(t, ctx, 1, "title,author,genres,publisheddate,rating\n,,,,\nDune,,SF,1965,5\n", bookimport.Options{})
	require.NoError(t, err)

	got, err := NewGetImportStatusUseCase(env.jobs, nil).Execute(ctx, GetImportStatusRequest{OwnerID: 1, JobID: resp.JobID})
	require.NoError(t, err)
	assert.Equal(t, "CompletedWithErrors", got.Status)
	assert.Equal(t, 1, got.ErrorRows)
	require.Len(t, got.ErrorSummary, 1)
	assert.Equal(t, 2, got.ErrorSummary[0].Row, "空行不计入行号")
}

func TestImport_DisabledEnrichmentSkipsBatchDelay(t *testing.T) {
	env := setup(t, enrichment.New(config.EnrichmentConfig{Enabled: false}))

	content := "title,author,genres,publisheddate,rating\n"
	for _, title := range []string{"A", "B", "C", "D", "E", "F"} {
		content += title + ",Someone,Fantasy,2001,3\n"
	}

	start := time.Now()
	resp, err := env.run(t, context.Background(), 1, content, bookimport.Options{
		Enrich:     true,
		BatchSize:  1,
		BatchDelay: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, "Completed", resp.Status)
	assert.Equal(t, 6, resp.ProcessedRows)
	// 未启用补全时不应按批等待
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

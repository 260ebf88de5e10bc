package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newBook(owner uint, title, author string, genres ...string) *book.Book {
	return book.NewBook(owner, book.Input{
		Title:         title,
		Author:        author,
		Genres:        genres,
		PublishedDate: "1965-08-01",
		Rating:        5,
	}, testNow)
}

func saveBooks(t *testing.T, db *gorm.DB, books ...*book.Book) {
	t.Helper()
	svc := book.NewService(NewBookRepository(db), NewGenreRepository(db))
	_, err := svc.SaveAll(context.Background(), books)
	require.NoError(t, err)
}

func TestBookRepository_CreateBatchAndFind(t *testing.T) {
	db := setupDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	dune := newBook(1, "Dune", "Frank Herbert", "Science Fiction", "Classic")
	emma := newBook(1, "Emma", "Jane Austen", "classic")
	saveBooks(t, db, dune, emma)

	got, err := repo.FindByID(ctx, 1, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.ElementsMatch(t, []string{"Science Fiction", "Classic"}, got.Genres)

	// 类型忽略大小写复用
	var genreCount int64
	require.NoError(t, db.Model(&GenreModel{}).Count(&genreCount).Error)
	assert.Equal(t, int64(2), genreCount)

	// 其他用户看不到
	_, err = repo.FindByID(ctx, 2, dune.ID)
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestBookRepository_CreateBatch_UnresolvedGenre(t *testing.T) {
	db := setupDB(t)
	repo := NewBookRepository(db)

	err := repo.CreateBatch(context.Background(), []*book.Book{newBook(1, "Dune", "Frank Herbert", "Sci-Fi")}, nil)
	assert.Error(t, err)
}

func TestBookRepository_FindExistingKeys(t *testing.T) {
	db := setupDB(t)
	repo := NewBookRepository(db)
	saveBooks(t, db,
		newBook(1, "Dune", "Frank Herbert", "Science Fiction"),
		newBook(1, "Dune", "Someone Else", "Science Fiction"),
		newBook(2, "Emma", "Jane Austen", "Classic"),
	)

	keys := []book.TitleAuthor{
		book.NewTitleAuthor(" DUNE", "frank herbert"),
		book.NewTitleAuthor("Dune", "Brian Herbert"),
		book.NewTitleAuthor("Emma", "Jane Austen"), // 属于用户2
	}

	existing, err := repo.FindExistingKeys(context.Background(), 1, keys)
	require.NoError(t, err)
	assert.Equal(t, []book.TitleAuthor{book.NewTitleAuthor("Dune", "Frank Herbert")}, existing)
}

func TestBookRepository_List(t *testing.T) {
	db := setupDB(t)
	repo := NewBookRepository(db)

	b1 := newBook(1, "Dune", "Frank Herbert", "Science Fiction")
	b2 := newBook(1, "Emma", "Jane Austen", "Classic")
	b3 := newBook(1, "Hyperion", "Dan Simmons", "science fiction")
	b2.CreatedAt = testNow.Add(time.Minute)
	b3.CreatedAt = testNow.Add(2 * time.Minute)
	saveBooks(t, db, b1, b2, b3, newBook(2, "Other", "Owner", "Classic"))

	books, total, err := repo.List(context.Background(), book.ListParams{OwnerID: 1, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, books, 2)
	assert.Equal(t, "Hyperion", books[0].Title, "默认按创建时间倒序")

	books, total, err = repo.List(context.Background(), book.ListParams{OwnerID: 1, Page: 1, PageSize: 10, Genre: "SCIENCE FICTION"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, books, 2)

	books, _, err = repo.List(context.Background(), book.ListParams{OwnerID: 1, Page: 1, PageSize: 10, Keyword: "austen"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Emma", books[0].Title)
}

func TestBookRepository_ListAll(t *testing.T) {
	db := setupDB(t)
	repo := NewBookRepository(db)
	saveBooks(t, db, newBook(1, "Dune", "Frank Herbert", "Science Fiction"), newBook(2, "Emma", "Jane Austen", "Classic"))

	books, err := repo.ListAll(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, []string{"Science Fiction"}, books[0].Genres)
}

func TestTxManager_Rollback(t *testing.T) {
	db := setupDB(t)
	tx := NewTxManager(db)
	svc := book.NewService(NewBookRepository(db), NewGenreRepository(db))

	err := tx.Transaction(context.Background(), func(ctx context.Context) error {
		if _, err := svc.EnsureGenres(ctx, []string{"Fantasy"}); err != nil {
			return err
		}
		return errors.New("write failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&GenreModel{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "事务失败后类型也要回滚")
}

func TestTxManager_CancelledBeforeCommit(t *testing.T) {
	db := setupDB(t)
	tx := NewTxManager(db)
	svc := book.NewService(NewBookRepository(db), NewGenreRepository(db))

	ctx, cancel := context.WithCancel(context.Background())
	err := tx.Transaction(ctx, func(txCtx context.Context) error {
		_, err := svc.SaveAll(txCtx, []*book.Book{newBook(1, "Dune", "Frank Herbert", "Science Fiction")})
		cancel()
		return err
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&BookModel{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestImportJobRepository_Lifecycle(t *testing.T) {
	db := setupDB(t)
	repo := NewImportJobRepository(db)
	ctx := context.Background()

	job := bookimport.NewJob(1, "books.csv", testNow)
	require.NoError(t, repo.Create(ctx, job))

	summary := bookimport.NewErrorSummary(bookimport.ValidationError{Row: 3, Field: "Title", Message: "书名不能为空"})
	require.NoError(t, job.RecordParse(2, 1, summary))
	require.NoError(t, repo.Update(ctx, job))

	require.NoError(t, job.RecordProcessed(2))
	require.NoError(t, job.Complete(testNow.Add(time.Second)))
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.FindByID(ctx, 1, job.ID)
	require.NoError(t, err)
	assert.Equal(t, bookimport.StatusCompletedWithErrors, got.Status)
	assert.Equal(t, 3, got.TotalRows)
	assert.Equal(t, 2, got.ProcessedRows)
	assert.Equal(t, summary.Items(), got.Errors.Items())
	require.NotNil(t, got.CompletedAt)

	// 终态之后的更新被拒绝(即使内存实体被篡改)
	got.Status = bookimport.StatusInProgress
	require.NoError(t, got.Fail(bookimport.NewErrorSummary(), testNow))
	assert.ErrorIs(t, repo.Update(ctx, got), bookimport.ErrJobFinalized)

	_, err = repo.FindByID(ctx, 2, job.ID)
	assert.ErrorIs(t, err, bookimport.ErrJobNotFound)
}

func TestImportJobRepository_UpdateUnknown(t *testing.T) {
	repo := NewImportJobRepository(setupDB(t))
	job := bookimport.NewJob(1, "books.csv", testNow)

	assert.ErrorIs(t, repo.Update(context.Background(), job), bookimport.ErrJobNotFound)
}

func TestImportJobRepository_UpdateUnchangedRow(t *testing.T) {
	db := setupDB(t)
	repo := NewImportJobRepository(db)
	ctx := context.Background()

	job := bookimport.NewJob(1, "books.csv", testNow)
	require.NoError(t, repo.Create(ctx, job))

	// 模拟MySQL未开启clientFoundRows时，值未变的更新返回0行
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:no_rows", func(tx *gorm.DB) {
		tx.RowsAffected = 0
	}))

	assert.NoError(t, repo.Update(ctx, job), "仍在进行中的任务不应被当成已结束")

	require.NoError(t, db.Model(&ImportJobModel{}).Where("id = ?", job.ID).
		UpdateColumn("status", string(bookimport.StatusCompleted)).Error)
	assert.ErrorIs(t, repo.Update(ctx, job), bookimport.ErrJobFinalized)

	other := bookimport.NewJob(1, "other.csv", testNow)
	assert.ErrorIs(t, repo.Update(ctx, other), bookimport.ErrJobNotFound)
}

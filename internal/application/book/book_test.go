package book

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/mysql"
)

func setup(t *testing.T) (*gorm.DB, book.Service) {
	t.Helper()
	db, err := mysql.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db, book.NewService(mysql.NewBookRepository(db), mysql.NewGenreRepository(db))
}

func duneRequest(owner uint) CreateBookRequest {
	return CreateBookRequest{
		OwnerID:       owner,
		Title:         " Dune ",
		Author:        "Frank Herbert",
		Genres:        []string{"Science Fiction", "science fiction", "Classics"},
		PublishedDate: "1965-08-01",
		Rating:        5,
	}
}

func TestCreateBook(t *testing.T) {
	db, svc := setup(t)
	uc := NewCreateBookUseCase(mysql.NewTxManager(db), svc)
	ctx := context.Background()

	resp, err := uc.Execute(ctx, duneRequest(1))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Dune", resp.Title)
	assert.Equal(t, []string{"Science Fiction", "Classics"}, resp.Genres)

	got, err := NewGetBookUseCase(svc).Execute(ctx, 1, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", got.Author)

	_, err = NewGetBookUseCase(svc).Execute(ctx, 2, resp.ID)
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestCreateBook_Duplicate(t *testing.T) {
	db, svc := setup(t)
	uc := NewCreateBookUseCase(mysql.NewTxManager(db), svc)
	ctx := context.Background()

	_, err := uc.Execute(ctx, duneRequest(1))
	require.NoError(t, err)

	req := duneRequest(1)
	req.Title = "DUNE"
	_, err = uc.Execute(ctx, req)
	assert.ErrorIs(t, err, book.ErrBookExists)
}

func TestCreateBook_Invalid(t *testing.T) {
	db, svc := setup(t)
	uc := NewCreateBookUseCase(mysql.NewTxManager(db), svc)

	req := duneRequest(1)
	req.Title = ""
	req.Rating = 9
	_, err := uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, book.ErrInvalidBook)

	var n int64
	require.NoError(t, db.Model(&mysql.GenreModel{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestListBooks(t *testing.T) {
	db, svc := setup(t)
	create := NewCreateBookUseCase(mysql.NewTxManager(db), svc)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		req := duneRequest(1)
		req.Title = title
		_, err := create.Execute(ctx, req)
		require.NoError(t, err)
	}

	resp, err := NewListBooksUseCase(svc).Execute(ctx, ListBooksRequest{OwnerID: 1, PageSize: 2, SortBy: "title_asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 1, resp.Page)
	require.Len(t, resp.List, 2)
	assert.Equal(t, "A", resp.List[0].Title)

	resp, err = NewListBooksUseCase(svc).Execute(ctx, ListBooksRequest{OwnerID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Total)
	assert.Empty(t, resp.List)
}

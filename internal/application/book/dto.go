package book

import (
	"time"

	"github.com/xiebiao/bookshelf/internal/domain/book"
)

// BookResponse 图书详情DTO
type BookResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Genres        []string `json:"genres"`
	PublishedDate string   `json:"published_date"`
	Rating        int      `json:"rating"`
	Edition       string   `json:"edition,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	ExternalID    string   `json:"external_id,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Description   string   `json:"description,omitempty"`
	PageCount     int      `json:"page_count,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// NewBookResponse 实体转DTO
func NewBookResponse(b *book.Book) *BookResponse {
	genres := b.Genres
	if genres == nil {
		genres = []string{}
	}
	return &BookResponse{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		Genres:        genres,
		PublishedDate: b.PublishedDate,
		Rating:        b.Rating,
		Edition:       b.Edition,
		ISBN:          b.ISBN,
		ExternalID:    b.ExternalID,
		CoverURL:      b.CoverURL,
		Description:   b.Description,
		PageCount:     b.PageCount,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
	}
}

package bookimport

import (
	"time"

	"github.com/xiebiao/bookshelf/internal/domain/book"
)

// Candidate 导入候选(已解析、未持久化的一行)
// 解析阶段创建,补全阶段修改,写入阶段只读
type Candidate struct {
	Row           int // 文件中的行号,表头为第1行
	Title         string
	Author        string
	Genres        []string
	PublishedDate string
	Rating        int
	Edition       string
	ISBN          string

	// 补全字段
	ExternalID  string
	CoverURL    string
	Description string
	PageCount   int

	Valid  bool
	Errors []ValidationError
}

// Metadata 外部元数据
type Metadata struct {
	ExternalID  string
	CoverURL    string
	Description string
	PageCount   int
	ISBN        string
}

// Key 查重键
func (c *Candidate) Key() book.TitleAuthor {
	return book.NewTitleAuthor(c.Title, c.Author)
}

// Apply 用外部元数据补全,只填充空字段,不覆盖文件中的值
func (c *Candidate) Apply(m Metadata) {
	if c.ExternalID == "" {
		c.ExternalID = m.ExternalID
	}
	if c.CoverURL == "" {
		c.CoverURL = m.CoverURL
	}
	if c.Description == "" {
		c.Description = m.Description
	}
	if c.PageCount == 0 {
		c.PageCount = m.PageCount
	}
	if c.ISBN == "" && len(m.ISBN) <= book.MaxISBNLen {
		c.ISBN = m.ISBN
	}
}

// ToBook 构造待写入的图书记录
func (c *Candidate) ToBook(ownerID uint, now time.Time) *book.Book {
	b := book.NewBook(ownerID, book.Input{
		Title:         c.Title,
		Author:        c.Author,
		Genres:        c.Genres,
		PublishedDate: c.PublishedDate,
		Rating:        c.Rating,
		Edition:       c.Edition,
		ISBN:          c.ISBN,
	}, now)
	b.ExternalID = c.ExternalID
	b.CoverURL = c.CoverURL
	b.Description = c.Description
	b.PageCount = c.PageCount
	return b
}

package book

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Book 图书实体(聚合根)
// DDD设计说明:
// 1. ID使用UUID字符串,批量导入时由应用生成,不依赖数据库自增
// 2. OwnerID是图书集合的所有者,所有查询都必须按OwnerID隔离
// 3. 补全字段(ExternalID/CoverURL/Description/PageCount)来自外部元数据,可以为空
type Book struct {
	ID            string
	OwnerID       uint
	Title         string
	Author        string
	Genres        []string // 类型名称,已去重
	PublishedDate string   // 原始日期文本(导入文件中的写法)
	Rating        int      // 评分 1-5
	Edition       string
	ISBN          string
	ExternalID    string // 外部元数据ID(如OpenLibrary的work key)
	CoverURL      string
	Description   string
	PageCount     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewBook 创建新图书(工厂方法)
// 调用方需要先用ValidateInput校验,这里不再重复校验
func NewBook(ownerID uint, in Input, now time.Time) *Book {
	return &Book{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Title:         in.Title,
		Author:        in.Author,
		Genres:        in.Genres,
		PublishedDate: in.PublishedDate,
		Rating:        in.Rating,
		Edition:       in.Edition,
		ISBN:          in.ISBN,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsOwnedBy 检查图书是否属于指定用户
func (b *Book) IsOwnedBy(ownerID uint) bool {
	return b.OwnerID == ownerID
}

// Key 查重键
func (b *Book) Key() TitleAuthor {
	return NewTitleAuthor(b.Title, b.Author)
}

// TitleAuthor 查重键:规范化后的(书名,作者)
// 同一所有者下,书名和作者都相同(忽略大小写和首尾空白)即视为同一本书
type TitleAuthor struct {
	Title  string
	Author string
}

// NewTitleAuthor 构造规范化的查重键
func NewTitleAuthor(title, author string) TitleAuthor {
	return TitleAuthor{
		Title:  NormalizeKey(title),
		Author: NormalizeKey(author),
	}
}

// NormalizeKey 规范化比较键:去首尾空白+小写
// 只处理大小写和空白,不做Unicode等价归一
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Genre 图书类型
// Name保留第一次出现时的写法,Key用于忽略大小写匹配
type Genre struct {
	ID   uint
	Name string
}

// Key 类型匹配键
func (g *Genre) Key() string {
	return NormalizeKey(g.Name)
}

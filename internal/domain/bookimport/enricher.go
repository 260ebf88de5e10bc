package bookimport

import (
	"context"

	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// ErrNoMatch 外部服务中找不到对应图书
var ErrNoMatch = apperrors.New(apperrors.ErrCodeNotFound, "未找到图书元数据")

// LookupQuery 元数据查询条件,ISBN优先,其次书名+作者
type LookupQuery struct {
	ISBN   string
	Title  string
	Author string
}

// Query 由候选构造查询条件
func (c *Candidate) Query() LookupQuery {
	return LookupQuery{ISBN: c.ISBN, Title: c.Title, Author: c.Author}
}

// Enricher 外部元数据补全接口
// 实现方负责限流和熔断;找不到时返回ErrNoMatch
type Enricher interface {
	Lookup(ctx context.Context, q LookupQuery) (*Metadata, error)
}

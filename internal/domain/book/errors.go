package book

import (
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在")

	// ErrBookExists 同一所有者下已有相同书名和作者的图书
	ErrBookExists = apperrors.New(apperrors.ErrCodeDuplicateEntry, "已存在相同书名和作者的图书")

	// ErrInvalidBook 图书字段校验失败,具体字段错误见Err(ValidationErrors)
	ErrInvalidBook = apperrors.New(apperrors.ErrCodeInvalidParams, "图书数据校验失败")
)

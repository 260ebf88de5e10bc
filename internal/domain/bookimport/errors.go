package bookimport

import (
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// 导入领域错误定义
var (
	// ErrJobNotFound 导入任务不存在(或不属于当前用户)
	ErrJobNotFound = apperrors.New(apperrors.ErrCodeJobNotFound, "导入任务不存在")

	// ErrJobFinalized 任务已处于终态,不允许再修改
	ErrJobFinalized = apperrors.New(apperrors.ErrCodeJobFinalized, "导入任务已结束")

	// ErrInvalidImportFile 文件结构错误(缺少必需表头、空文件)
	ErrInvalidImportFile = apperrors.New(apperrors.ErrCodeInvalidImportFile, "导入文件格式错误")

	// ErrDuplicateConflict 重复策略为fail时发现已存在的图书
	ErrDuplicateConflict = apperrors.New(apperrors.ErrCodeDuplicateConflict, "导入数据与已有图书重复")

	// ErrInvalidUpload 上传文件不合法(扩展名、类型、大小)
	ErrInvalidUpload = apperrors.New(apperrors.ErrCodeInvalidUpload, "上传文件不合法")

	// ErrInvalidOptions 导入参数不合法
	ErrInvalidOptions = apperrors.New(apperrors.ErrCodeInvalidParams, "导入参数不合法")
)

package bookimport

import (
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
)

// PhaseResult 单个阶段的结果
// Continue: 阶段成功，Data交给下一阶段，Errors为本阶段产生的非致命错误
// Abort:    阶段失败，编排器停止后续阶段并把任务置为Failed
type PhaseResult[T any] struct {
	Data   T
	Errors bookimport.ErrorSummary
	Err    error
}

// Continue 阶段成功
func Continue[T any](data T, errs bookimport.ErrorSummary) PhaseResult[T] {
	return PhaseResult[T]{Data: data, Errors: errs}
}

// Abort 阶段失败
func Abort[T any](err error) PhaseResult[T] {
	return PhaseResult[T]{Err: err}
}

// Aborted 是否失败
func (r PhaseResult[T]) Aborted() bool {
	return r.Err != nil
}

// StructuralError 文件结构错误(缺少表头、空文件)
// 与其他阶段错误不同：它本身就是错误汇总中唯一的一条，不再追加General错误
type StructuralError struct {
	Detail bookimport.ValidationError
}

func (e *StructuralError) Error() string {
	return e.Detail.Field + ": " + e.Detail.Message
}

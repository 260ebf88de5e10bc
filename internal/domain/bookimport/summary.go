package bookimport

import (
	"context"
	"encoding/json"
	"errors"

	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// 非字段类错误使用的字段名
const (
	FieldGeneral = "General" // 阶段失败(查重冲突、写入失败等)
	FieldHeader  = "Header"  // 缺少必需表头
	FieldFile    = "File"    // 空文件、无法读取
	FieldRow     = "Row"     // 行格式错误(引号不匹配等)
)

// ValidationError 导入错误条目,创建后不再修改
// Row从1开始计数,表头为第1行;阶段级错误Row为0
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// GeneralError 阶段失败时追加的汇总错误
// 服务端错误只保留提示信息，内部原因(SQL、网络错误)不进入汇总
func GeneralError(err error) ValidationError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ValidationError{Field: FieldGeneral, Message: "导入已取消: " + err.Error()}
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return ValidationError{Field: FieldGeneral, Message: "系统内部错误"}
	}
	msg := appErr.Message
	if appErr.Code < apperrors.ErrCodeInternal && appErr.Err != nil {
		msg += ": " + appErr.Err.Error()
	}
	return ValidationError{Field: FieldGeneral, Message: msg}
}

// ErrorSummary 错误汇总(不可变值)
// 各阶段返回自己的ErrorSummary,由编排器Merge,不共享可变切片
type ErrorSummary struct {
	items []ValidationError
}

// NewErrorSummary 创建错误汇总
func NewErrorSummary(errs ...ValidationError) ErrorSummary {
	return ErrorSummary{items: append([]ValidationError(nil), errs...)}
}

// Append 返回追加errs后的新汇总,原值不变
func (s ErrorSummary) Append(errs ...ValidationError) ErrorSummary {
	if len(errs) == 0 {
		return s
	}
	items := make([]ValidationError, 0, len(s.items)+len(errs))
	items = append(items, s.items...)
	items = append(items, errs...)
	return ErrorSummary{items: items}
}

// Merge 合并两个汇总
func (s ErrorSummary) Merge(other ErrorSummary) ErrorSummary {
	return s.Append(other.items...)
}

// Len 错误条目数
func (s ErrorSummary) Len() int {
	return len(s.items)
}

// Items 返回条目副本
func (s ErrorSummary) Items() []ValidationError {
	return append([]ValidationError(nil), s.items...)
}

// MarshalJSON 序列化为数组,空汇总输出[]
func (s ErrorSummary) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON 从数组反序列化
func (s *ErrorSummary) UnmarshalJSON(data []byte) error {
	var items []ValidationError
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = items
	return nil
}

package bookimport

import (
	"fmt"
	"strings"
	"time"
)

// DuplicatePolicy 重复处理策略
type DuplicatePolicy string

const (
	DuplicateSkip  DuplicatePolicy = "skip"  // 跳过已存在的图书
	DuplicateFail  DuplicatePolicy = "fail"  // 发现重复则整个任务失败
	DuplicateAllow DuplicatePolicy = "allow" // 不查重
)

// ParseDuplicatePolicy 解析策略(忽略大小写),空字符串返回skip
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DuplicateSkip, nil
	case DuplicateSkip, DuplicateFail, DuplicateAllow:
		return p, nil
	default:
		return "", ErrInvalidOptions.WithCause(fmt.Errorf("unknown duplicate policy %q", s))
	}
}

// Options 导入选项
type Options struct {
	Duplicates DuplicatePolicy
	Enrich     bool          // 是否调用外部元数据补全
	BatchSize  int           // 补全批大小(同时也是并发上限)
	BatchDelay time.Duration // 补全批之间的等待
}

// WithDefaults 用def填充未设置的策略和批大小
// BatchDelay为0是合法取值(不等待),不做填充
func (o Options) WithDefaults(def Options) Options {
	if o.Duplicates == "" {
		o.Duplicates = def.Duplicates
	}
	if o.Duplicates == "" {
		o.Duplicates = DuplicateSkip
	}
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 1
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	}
	return o
}

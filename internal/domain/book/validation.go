package book

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// 校验规则
// 单本创建(POST /books)和批量导入共用同一套规则
const (
	MaxTitleLen   = 200
	MaxAuthorLen  = 100
	MaxGenreLen   = 50
	MaxEditionLen = 50
	MaxISBNLen    = 20
	MinRating     = 1
	MaxRating     = 5

	// DefaultRating 评分无法解析为数字时的默认值
	DefaultRating = 1
)

// 字段名,出现在导入任务的错误汇总中
const (
	FieldTitle         = "Title"
	FieldAuthor        = "Author"
	FieldGenres        = "Genres"
	FieldPublishedDate = "PublishedDate"
	FieldRating        = "Rating"
	FieldEdition       = "Edition"
	FieldISBN          = "ISBN"
)

// Input 图书输入(校验前)
type Input struct {
	Title         string
	Author        string
	Genres        []string
	PublishedDate string
	Rating        int
	Edition       string
	ISBN          string
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors 一条记录的全部字段错误
type ValidationErrors []FieldError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateInput 规范化并校验输入
// 返回规范化后的Input(去首尾空白、类型去重);errs为空表示校验通过
// now用于判断出版日期是否在未来,由调用方传入便于测试
func ValidateInput(in Input, now time.Time) (Input, ValidationErrors) {
	out := Input{
		Title:         strings.TrimSpace(in.Title),
		Author:        strings.TrimSpace(in.Author),
		Genres:        NormalizeGenres(in.Genres),
		PublishedDate: strings.TrimSpace(in.PublishedDate),
		Rating:        in.Rating,
		Edition:       strings.TrimSpace(in.Edition),
		ISBN:          strings.TrimSpace(in.ISBN),
	}

	var errs ValidationErrors
	add := func(field, msg, value string) {
		errs = append(errs, FieldError{Field: field, Message: msg, Value: value})
	}

	switch {
	case out.Title == "":
		add(FieldTitle, "书名不能为空", in.Title)
	case utf8.RuneCountInString(out.Title) > MaxTitleLen:
		add(FieldTitle, fmt.Sprintf("书名不能超过%d个字符", MaxTitleLen), in.Title)
	}

	switch {
	case out.Author == "":
		add(FieldAuthor, "作者不能为空", in.Author)
	case utf8.RuneCountInString(out.Author) > MaxAuthorLen:
		add(FieldAuthor, fmt.Sprintf("作者不能超过%d个字符", MaxAuthorLen), in.Author)
	}

	if len(out.Genres) == 0 {
		add(FieldGenres, "至少需要一个类型", strings.Join(in.Genres, ","))
	}
	for _, g := range out.Genres {
		if utf8.RuneCountInString(g) > MaxGenreLen {
			add(FieldGenres, fmt.Sprintf("类型名称不能超过%d个字符", MaxGenreLen), g)
		}
	}

	if out.PublishedDate == "" {
		add(FieldPublishedDate, "出版日期不能为空", in.PublishedDate)
	} else if t, err := ParsePublishedDate(out.PublishedDate); err != nil {
		add(FieldPublishedDate, "无法识别的出版日期", in.PublishedDate)
	} else if t.After(now) {
		add(FieldPublishedDate, "出版日期不能晚于今天", in.PublishedDate)
	}

	if out.Rating < MinRating || out.Rating > MaxRating {
		add(FieldRating, fmt.Sprintf("评分必须在%d到%d之间", MinRating, MaxRating), strconv.Itoa(in.Rating))
	}

	if utf8.RuneCountInString(out.Edition) > MaxEditionLen {
		add(FieldEdition, fmt.Sprintf("版本不能超过%d个字符", MaxEditionLen), in.Edition)
	}
	if utf8.RuneCountInString(out.ISBN) > MaxISBNLen {
		add(FieldISBN, fmt.Sprintf("ISBN不能超过%d个字符", MaxISBNLen), in.ISBN)
	}

	return out, errs
}

// SplitGenres 拆分类型字段,支持 , ; | 三种分隔符
func SplitGenres(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
}

// NormalizeGenres 去首尾空白、去空值、忽略大小写去重
// 保留第一次出现的写法和原始顺序
func NormalizeGenres(genres []string) []string {
	seen := make(map[string]struct{}, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		key := NormalizeKey(g)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out
}

// ParseRating 解析评分文本
// 无法解析时返回(DefaultRating, false),由调用方决定是否记录
// "4.0"这类整数值的小数写法可以接受
func ParseRating(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return DefaultRating, false
}

// dateLayouts 支持的出版日期写法,按常见程度排序
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006-01",
	"2006",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
	time.RFC3339,
}

// ParsePublishedDate 解析出版日期文本
// 只有年份或年月时取该时段的第一天
func ParsePublishedDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

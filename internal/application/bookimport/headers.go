package bookimport

import (
	"strings"
	"unicode"
)

// 规范列名
const (
	colTitle         = "title"
	colAuthor        = "author"
	colGenres        = "genres"
	colPublishedDate = "publisheddate"
	colRating        = "rating"
	colEdition       = "edition"
	colISBN          = "isbn"
)

// requiredColumns 缺少任一列时整个文件视为结构错误
var requiredColumns = []string{colTitle, colAuthor, colGenres, colPublishedDate, colRating}

// headerAliases 规范列名 -> 可接受的写法
// 比较前统一经过normalizeHeader，所以这里只需列出不同的单词组合
var headerAliases = map[string][]string{
	colTitle:         {"title", "book title", "name"},
	colAuthor:        {"author", "authors", "author name", "writer"},
	colGenres:        {"genres", "genre", "categories", "category", "tags"},
	colPublishedDate: {"publisheddate", "published date", "published_date", "publication date", "date published", "published", "year"},
	colRating:        {"rating", "stars", "score", "my rating"},
	colEdition:       {"edition", "version"},
	colISBN:          {"isbn", "isbn13", "isbn10", "isbn 13"},
}

// aliasLookup 规范化写法 -> 规范列名，init时构建一次
var aliasLookup = func() map[string]string {
	m := make(map[string]string)
	for canonical, aliases := range headerAliases {
		for _, a := range aliases {
			m[normalizeHeader(a)] = canonical
		}
	}
	return m
}()

// normalizeHeader 忽略大小写、空白、下划线和连字符(以及UTF-8 BOM)
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// columnIndex 规范列名 -> 列下标
type columnIndex map[string]int

// resolveHeader 解析表头，返回列下标和缺少的必需列
// 同一规范列出现多次时取第一次出现的位置，无法识别的列忽略
func resolveHeader(header []string) (columnIndex, []string) {
	idx := make(columnIndex, len(headerAliases))
	for i, h := range header {
		canonical, ok := aliasLookup[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := idx[canonical]; !seen {
			idx[canonical] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	return idx, missing
}

// get 取记录中某列的值，列不存在或记录较短时返回空串
func (idx columnIndex) get(record []string, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

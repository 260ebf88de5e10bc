package bookimport

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// exportHeader 导出列，与导入格式一致
var exportHeader = []string{colTitle, colAuthor, colGenres, colPublishedDate, colRating, colEdition, colISBN}

// templateLines 集合为空时输出的模板
// 注释和示例都在表头之前，原样重新导入不会产生任何数据
var templateLines = []string{
	"# 图书导入模板",
	"# 必需列: title, author, genres, publisheddate, rating; 可选列: edition, isbn",
	"# genres 多个类型用逗号分隔，整个字段需加双引号",
	"# rating 取值 1-5; publisheddate 支持 1965-08-01 / 1965-08 / 1965 / August 1, 1965 等写法",
	"# 示例行需移到表头之后并删除行首的#才会导入",
}

var templateExamples = [][]string{
	{"Dune", "Frank Herbert", "Science Fiction, Classics", "1965-08-01", "5", "1st", "9780441013593"},
	{"Pride and Prejudice", "Jane Austen", "Romance", "1813", "4", "", ""},
}

// ExportBooksUseCase 导出所有者的全部图书(CSV)
type ExportBooksUseCase struct {
	books book.Service
}

// NewExportBooksUseCase 创建导出用例
func NewExportBooksUseCase(books book.Service) *ExportBooksUseCase {
	return &ExportBooksUseCase{books: books}
}

// Execute 把图书写入w，返回导出数量；没有图书时写入模板并返回0
func (uc *ExportBooksUseCase) Execute(ctx context.Context, ownerID uint, w io.Writer) (int, error) {
	books, err := uc.books.ListAll(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	if len(books) == 0 {
		return 0, writeTemplate(w)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(encodeRecord(exportHeader)); err != nil {
		return 0, apperrors.Wrap(err, "导出失败")
	}
	for _, b := range books {
		if _, err := bw.WriteString(encodeRecord(bookRecord(b))); err != nil {
			return 0, apperrors.Wrap(err, "导出失败")
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, apperrors.Wrap(err, "导出失败")
	}
	return len(books), nil
}

func bookRecord(b *book.Book) []string {
	return []string{
		b.Title,
		b.Author,
		strings.Join(b.Genres, ", "),
		b.PublishedDate,
		strconv.Itoa(b.Rating),
		b.Edition,
		b.ISBN,
	}
}

// encodeRecord 编码一行CSV
// csv.Writer不会给#开头的字段加引号，这里补上，保证重新导入时按数据读取
func encodeRecord(rec []string) string {
	var sb strings.Builder
	cw := csv.NewWriter(&sb)
	_ = cw.Write(rec)
	cw.Flush()

	line := sb.String()
	if len(rec) > 0 && strings.HasPrefix(rec[0], "#") && strings.HasPrefix(line, rec[0]) {
		line = `"` + strings.ReplaceAll(rec[0], `"`, `""`) + `"` + line[len(rec[0]):]
	}
	return line
}

// writeTemplate 注释行 + 注释掉的示例行 + 表头
func writeTemplate(w io.Writer) error {
	var sb strings.Builder
	for _, line := range templateLines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	for _, ex := range templateExamples {
		sb.WriteString("#")
		sb.WriteString(encodeRecord(ex))
	}
	sb.WriteString(encodeRecord(exportHeader))

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return apperrors.Wrap(err, "导出失败")
	}
	return nil
}

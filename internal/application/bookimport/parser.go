package bookimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
)

// ParseOutput 解析阶段输出
// Candidates按文件顺序排列，包含校验失败的行(Valid=false)
type ParseOutput struct {
	Candidates []*bookimport.Candidate
}

// Valid 校验通过的候选
func (o ParseOutput) Valid() []*bookimport.Candidate {
	out := make([]*bookimport.Candidate, 0, len(o.Candidates))
	for _, c := range o.Candidates {
		if c.Valid {
			out = append(out, c)
		}
	}
	return out
}

// Counts 有效行数和错误行数
func (o ParseOutput) Counts() (valid, invalid int) {
	for _, c := range o.Candidates {
		if c.Valid {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}

// Parser CSV解析+逐行校验
// 只读取输入流，不做其他I/O
type Parser struct {
	now func() time.Time
}

// NewParser 创建解析器
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// Parse 解析导入文件
//
// 规则：
//   - 第一条非空记录是表头，缺少必需列时直接Abort(StructuralError)，不读取数据行
//   - 表头之前以#开头的行是注释；表头之后#开头的行按数据处理
//   - 只有空行(全空白的单列记录)跳过，不计入行号；",,,,"这类行按数据校验
//   - 行号从1开始，表头为第1行
//   - 引号不匹配的行记为Row错误
//   - 每行之间检查ctx
func (p *Parser) Parse(ctx context.Context, r io.Reader) PhaseResult[ParseOutput] {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.ReuseRecord = false

	header, err := readHeader(reader)
	if err != nil {
		return Abort[ParseOutput](err)
	}
	// 注释只允许出现在表头之前
	reader.Comment = 0

	cols, missing := resolveHeader(header)
	if len(missing) > 0 {
		return Abort[ParseOutput](&StructuralError{Detail: bookimport.ValidationError{
			Row:     1,
			Field:   bookimport.FieldHeader,
			Message: fmt.Sprintf("缺少必需的列: %s", strings.Join(missing, ", ")),
			Value:   strings.Join(header, ","),
		}})
	}

	now := p.now()
	var (
		out  ParseOutput
		errs bookimport.ErrorSummary
		row  = 1
	)
	for {
		if err := ctx.Err(); err != nil {
			return Abort[ParseOutput](err)
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return Abort[ParseOutput](err)
		}
		if err == nil && isBlank(record) {
			continue
		}

		row++
		if parseErr != nil {
			e := bookimport.ValidationError{
				Row:     row,
				Field:   bookimport.FieldRow,
				Message: fmt.Sprintf("行格式错误: %v", parseErr.Err),
			}
			out.Candidates = append(out.Candidates, &bookimport.Candidate{Row: row, Errors: []bookimport.ValidationError{e}})
			errs = errs.Append(e)
			continue
		}

		c := parseRow(row, cols, record, now)
		out.Candidates = append(out.Candidates, c)
		errs = errs.Append(c.Errors...)
	}

	return Continue(out, errs)
}

// readHeader 读取第一条非空记录
func readHeader(reader *csv.Reader) ([]string, error) {
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, &StructuralError{Detail: bookimport.ValidationError{
				Row:     1,
				Field:   bookimport.FieldFile,
				Message: "文件为空或缺少表头",
			}}
		}
		if err != nil {
			return nil, &StructuralError{Detail: bookimport.ValidationError{
				Row:     1,
				Field:   bookimport.FieldFile,
				Message: fmt.Sprintf("无法读取表头: %v", err),
			}}
		}
		if !isBlank(record) {
			return record, nil
		}
	}
}

// parseRow 把一条记录转换为候选并校验
func parseRow(row int, cols columnIndex, record []string, now time.Time) *bookimport.Candidate {
	rawRating := cols.get(record, colRating)
	rating, ok := book.ParseRating(rawRating)
	if !ok {
		zap.L().Warn("unparseable rating, using default",
			zap.Int("row", row),
			zap.String("value", rawRating),
			zap.Int("default", book.DefaultRating),
		)
	}

	in, fieldErrs := book.ValidateInput(book.Input{
		Title:         cols.get(record, colTitle),
		Author:        cols.get(record, colAuthor),
		Genres:        book.SplitGenres(cols.get(record, colGenres)),
		PublishedDate: cols.get(record, colPublishedDate),
		Rating:        rating,
		Edition:       cols.get(record, colEdition),
		ISBN:          cols.get(record, colISBN),
	}, now)

	c := &bookimport.Candidate{
		Row:           row,
		Title:         in.Title,
		Author:        in.Author,
		Genres:        in.Genres,
		PublishedDate: in.PublishedDate,
		Rating:        in.Rating,
		Edition:       in.Edition,
		ISBN:          in.ISBN,
		Valid:         len(fieldErrs) == 0,
	}
	for _, fe := range fieldErrs {
		c.Errors = append(c.Errors, bookimport.ValidationError{
			Row:     row,
			Field:   fe.Field,
			Message: fe.Message,
			Value:   fe.Value,
		})
	}
	return c
}

func isBlank(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

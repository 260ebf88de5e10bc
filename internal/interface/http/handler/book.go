package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/bookshelf/internal/application/book"
	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/interface/http/dto"
	"github.com/xiebiao/bookshelf/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
	"github.com/xiebiao/bookshelf/pkg/response"
)

// BookHandler 图书HTTP处理器
type BookHandler struct {
	createBookUseCase *appbook.CreateBookUseCase
	getBookUseCase    *appbook.GetBookUseCase
	listBooksUseCase  *appbook.ListBooksUseCase
}

// NewBookHandler 创建图书处理器
func NewBookHandler(
	createBookUseCase *appbook.CreateBookUseCase,
	getBookUseCase *appbook.GetBookUseCase,
	listBooksUseCase *appbook.ListBooksUseCase,
) *BookHandler {
	return &BookHandler{
		createBookUseCase: createBookUseCase,
		getBookUseCase:    getBookUseCase,
		listBooksUseCase:  listBooksUseCase,
	}
}

// CreateBook 创建单本图书
// @Summary      创建图书
// @Description  校验规则与批量导入相同
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateBookRequest true "图书信息"
// @Success      200 {object} response.Response{data=appbook.BookResponse}
// @Router       /api/v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	result, err := h.createBookUseCase.Execute(c.Request.Context(), appbook.CreateBookRequest{
		OwnerID:       middleware.MustGetOwnerID(c),
		Title:         req.Title,
		Author:        req.Author,
		Genres:        req.Genres,
		PublishedDate: req.PublishedDate,
		Rating:        req.Rating,
		Edition:       req.Edition,
		ISBN:          req.ISBN,
	})
	if err != nil {
		// 字段级错误随data返回
		var fieldErrs book.ValidationErrors
		if errors.As(err, &fieldErrs) {
			response.ErrorWithData(c, err, gin.H{"errors": fieldErrs})
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetBook 图书详情
// @Summary      图书详情
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "图书ID"
// @Success      200 {object} response.Response{data=appbook.BookResponse}
// @Router       /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	result, err := h.getBookUseCase.Execute(c.Request.Context(), middleware.MustGetOwnerID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListBooks 图书列表
// @Summary      图书列表
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Param        keyword   query string false "书名/作者关键词"
// @Param        genre     query string false "类型"
// @Param        sort_by   query string false "created_at_desc | title_asc | rating_desc"
// @Success      200 {object} response.Response{data=appbook.ListBooksResponse}
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var req dto.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	result, err := h.listBooksUseCase.Execute(c.Request.Context(), appbook.ListBooksRequest{
		OwnerID:  middleware.MustGetOwnerID(c),
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
		Genre:    req.Genre,
		SortBy:   req.SortBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

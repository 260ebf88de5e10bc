package handler

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appimport "github.com/xiebiao/bookshelf/internal/application/bookimport"
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/interface/http/dto"
	"github.com/xiebiao/bookshelf/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
	"github.com/xiebiao/bookshelf/pkg/response"
)

// multipartOverhead 表单其他字段和边界占用的空间
const multipartOverhead = 1 << 20

// ImportHandler 批量导入HTTP处理器
type ImportHandler struct {
	importUseCase *appimport.ImportBooksUseCase
	statusUseCase *appimport.GetImportStatusUseCase
	exportUseCase *appimport.ExportBooksUseCase
	importCfg     config.ImportConfig
	enrichDefault bool
}

// NewImportHandler 创建导入处理器
func NewImportHandler(
	importUseCase *appimport.ImportBooksUseCase,
	statusUseCase *appimport.GetImportStatusUseCase,
	exportUseCase *appimport.ExportBooksUseCase,
	cfg *config.Config,
) *ImportHandler {
	return &ImportHandler{
		importUseCase: importUseCase,
		statusUseCase: statusUseCase,
		exportUseCase: exportUseCase,
		importCfg:     cfg.Import,
		enrichDefault: cfg.Enrichment.Enabled,
	}
}

// Import 上传CSV批量导入
// @Summary      批量导入图书
// @Description  上传CSV文件，同步执行导入并返回任务信息；失败时data中仍然包含任务
// @Tags         导入
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file                formData file   true  "CSV文件"
// @Param        duplicate_handling  formData string false "skip | fail | allow"
// @Param        enrich              formData bool   false "是否补全外部元数据"
// @Param        batch_size          formData int    false "补全批大小"
// @Param        batch_delay_ms      formData int    false "补全批间隔(毫秒)"
// @Success      200 {object} response.Response{data=appimport.JobResponse}
// @Router       /api/v1/imports [post]
func (h *ImportHandler) Import(c *gin.Context) {
	if h.importCfg.MaxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.importCfg.MaxFileSize+multipartOverhead)
	}

	// 1. 参数绑定
	var form dto.ImportForm
	if err := c.ShouldBind(&form); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}
	// 未传时留空，由用例使用配置的默认策略
	var policy bookimport.DuplicatePolicy
	if form.DuplicateHandling != "" {
		p, err := bookimport.ParseDuplicatePolicy(form.DuplicateHandling)
		if err != nil {
			response.Error(c, err)
			return
		}
		policy = p
	}

	// 2. 文件校验
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, bookimport.ErrInvalidUpload.WithCause(err))
		return
	}
	if err := h.validateUpload(fh); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidUpload, err.Error())
		return
	}

	file, err := fh.Open()
	if err != nil {
		response.Error(c, bookimport.ErrInvalidUpload.WithCause(err))
		return
	}
	defer file.Close()

	// 3. 组装选项，未传的使用配置默认值
	opts := bookimport.Options{
		Duplicates: policy,
		Enrich:     h.enrichDefault,
		BatchSize:  form.BatchSize,
		BatchDelay: h.importCfg.BatchDelay,
	}
	if form.Enrich != nil {
		opts.Enrich = *form.Enrich
	}
	if form.BatchDelayMs != nil {
		opts.BatchDelay = time.Duration(*form.BatchDelayMs) * time.Millisecond
	}

	// 4. 执行导入
	result, err := h.importUseCase.Execute(c.Request.Context(), appimport.ImportRequest{
		OwnerID:  middleware.MustGetOwnerID(c),
		Filename: filepath.Base(fh.Filename),
		File:     file,
		Options:  opts,
	})
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// validateUpload 扩展名、大小、Content-Type
func (h *ImportHandler) validateUpload(fh *multipart.FileHeader) error {
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return fmt.Errorf("只支持.csv文件: %s", fh.Filename)
	}
	if fh.Size == 0 {
		return fmt.Errorf("文件为空")
	}
	if h.importCfg.MaxFileSize > 0 && fh.Size > h.importCfg.MaxFileSize {
		return fmt.Errorf("文件大小不能超过%dMB", h.importCfg.MaxFileSize>>20)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("无法识别的文件类型: %s", contentType)
	}
	for _, allowed := range h.importCfg.AllowedContentTypes {
		if strings.EqualFold(mediaType, allowed) {
			return nil
		}
	}
	return fmt.Errorf("不支持的文件类型: %s", mediaType)
}

// GetStatus 查询导入任务
// @Summary      查询导入任务
// @Tags         导入
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "任务ID"
// @Success      200 {object} response.Response{data=appimport.JobResponse}
// @Router       /api/v1/imports/{id} [get]
func (h *ImportHandler) GetStatus(c *gin.Context) {
	result, err := h.statusUseCase.Execute(c.Request.Context(), appimport.GetImportStatusRequest{
		OwnerID: middleware.MustGetOwnerID(c),
		JobID:   c.Param("id"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Export 导出CSV
// @Summary      导出图书
// @Description  导出为导入格式的CSV；没有图书时返回带注释的模板
// @Tags         导入
// @Produce      text/csv
// @Security     BearerAuth
// @Router       /api/v1/books/export [get]
func (h *ImportHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := h.exportUseCase.Execute(c.Request.Context(), middleware.MustGetOwnerID(c), &buf); err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="books.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

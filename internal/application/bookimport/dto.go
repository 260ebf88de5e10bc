package bookimport

import (
	"io"
	"time"

	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
)

// ImportRequest 导入请求DTO
type ImportRequest struct {
	OwnerID  uint      // 所有者ID(从认证中间件获取)
	Filename string    // 原始文件名
	File     io.Reader // 文件内容，只顺序读取一次
	Options  bookimport.Options
}

// JobResponse 导入任务响应DTO
// 导入和状态查询返回同一结构
type JobResponse struct {
	JobID         string                       `json:"jobId"`
	Filename      string                       `json:"filename"`
	Status        string                       `json:"status"`
	TotalRows     int                          `json:"totalRows"`
	ValidRows     int                          `json:"validRows"`
	ErrorRows     int                          `json:"errorRows"`
	ProcessedRows int                          `json:"processedRows"`
	ErrorSummary  []bookimport.ValidationError `json:"errorSummary"`
	CreatedAt     string                       `json:"createdAt"`
	CompletedAt   string                       `json:"completedAt,omitempty"`
}

// NewJobResponse 由任务实体构造响应
func NewJobResponse(job *bookimport.Job) *JobResponse {
	resp := &JobResponse{
		JobID:         job.ID,
		Filename:      job.Filename,
		Status:        string(job.Status),
		TotalRows:     job.TotalRows,
		ValidRows:     job.ValidRows,
		ErrorRows:     job.ErrorRows,
		ProcessedRows: job.ProcessedRows,
		ErrorSummary:  job.Errors.Items(),
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
	}
	if resp.ErrorSummary == nil {
		resp.ErrorSummary = []bookimport.ValidationError{}
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

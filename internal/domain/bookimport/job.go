package bookimport

import (
	"time"

	"github.com/google/uuid"
)

// Status 导入任务状态
type Status string

const (
	StatusInProgress          Status = "InProgress"
	StatusCompleted           Status = "Completed"
	StatusCompletedWithErrors Status = "CompletedWithErrors"
	StatusFailed              Status = "Failed"
)

// IsTerminal 是否为终态
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCompletedWithErrors || s == StatusFailed
}

// Job 导入任务(聚合根)
// 状态机:
//
//	InProgress --(全部阶段成功, ErrorRows==0)--> Completed
//	InProgress --(全部阶段成功, ErrorRows>0)---> CompletedWithErrors
//	InProgress --(任一阶段失败)----------------> Failed
//
// 终态只能进入一次,进入终态后所有修改方法返回ErrJobFinalized
type Job struct {
	ID            string       `json:"id"`
	OwnerID       uint         `json:"owner_id"`
	Filename      string       `json:"filename"`
	Status        Status       `json:"status"`
	TotalRows     int          `json:"total_rows"`
	ValidRows     int          `json:"valid_rows"`
	ErrorRows     int          `json:"error_rows"`
	ProcessedRows int          `json:"processed_rows"`
	Errors        ErrorSummary `json:"errors"`
	CreatedAt     time.Time    `json:"created_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// NewJob 创建进行中的导入任务
func NewJob(ownerID uint, filename string, now time.Time) *Job {
	return &Job{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Filename:  filename,
		Status:    StatusInProgress,
		CreatedAt: now,
	}
}

// IsOwnedBy 检查任务是否属于指定用户
func (j *Job) IsOwnedBy(ownerID uint) bool {
	return j.OwnerID == ownerID
}

// RecordParse 记录解析阶段结果
// 调用后满足 TotalRows == ValidRows + ErrorRows
func (j *Job) RecordParse(valid, invalid int, summary ErrorSummary) error {
	if j.Status.IsTerminal() {
		return ErrJobFinalized
	}
	j.ValidRows = valid
	j.ErrorRows = invalid
	j.TotalRows = valid + invalid
	j.Errors = summary
	return nil
}

// RecordProcessed 记录实际写入的行数
func (j *Job) RecordProcessed(n int) error {
	if j.Status.IsTerminal() {
		return ErrJobFinalized
	}
	j.ProcessedRows = n
	return nil
}

// Complete 全部阶段成功,按错误行数决定终态
func (j *Job) Complete(now time.Time) error {
	if j.Status.IsTerminal() {
		return ErrJobFinalized
	}
	j.Status = StatusCompleted
	if j.ErrorRows > 0 {
		j.Status = StatusCompletedWithErrors
	}
	j.CompletedAt = &now
	return nil
}

// Fail 阶段失败,summary为最终错误汇总
func (j *Job) Fail(summary ErrorSummary, now time.Time) error {
	if j.Status.IsTerminal() {
		return ErrJobFinalized
	}
	j.Status = StatusFailed
	j.Errors = summary
	j.CompletedAt = &now
	return nil
}

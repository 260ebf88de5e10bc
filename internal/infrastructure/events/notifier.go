// Package events 导入任务事件发布
package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
)

// RoutingKeyJobFinished 任务结束事件的路由键
const RoutingKeyJobFinished = "bookimport.job.finished"

// Publisher 消息发布接口(pkg/mq.Publisher实现)
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// JobFinishedEvent 任务结束事件
type JobFinishedEvent struct {
	JobID         string    `json:"job_id"`
	OwnerID       uint      `json:"owner_id"`
	Filename      string    `json:"filename"`
	Status        string    `json:"status"`
	TotalRows     int       `json:"total_rows"`
	ValidRows     int       `json:"valid_rows"`
	ErrorRows     int       `json:"error_rows"`
	ProcessedRows int       `json:"processed_rows"`
	FinishedAt    time.Time `json:"finished_at"`
}

// NewJobFinishedEvent 由终态任务构造事件
func NewJobFinishedEvent(job *bookimport.Job) JobFinishedEvent {
	e := JobFinishedEvent{
		JobID:         job.ID,
		OwnerID:       job.OwnerID,
		Filename:      job.Filename,
		Status:        string(job.Status),
		TotalRows:     job.TotalRows,
		ValidRows:     job.ValidRows,
		ErrorRows:     job.ErrorRows,
		ProcessedRows: job.ProcessedRows,
	}
	if job.CompletedAt != nil {
		e.FinishedAt = *job.CompletedAt
	}
	return e
}

// MQNotifier 通过RabbitMQ发布任务事件
type MQNotifier struct {
	publisher Publisher
}

// NewMQNotifier 创建通知器
func NewMQNotifier(publisher Publisher) *MQNotifier {
	return &MQNotifier{publisher: publisher}
}

// JobFinished 发布任务结束事件
func (n *MQNotifier) JobFinished(ctx context.Context, job *bookimport.Job) error {
	return n.publisher.Publish(ctx, RoutingKeyJobFinished, NewJobFinishedEvent(job))
}

// NopNotifier 未启用MQ时使用
type NopNotifier struct{}

// JobFinished 只记录调试日志
func (NopNotifier) JobFinished(_ context.Context, job *bookimport.Job) error {
	zap.L().Debug("job finished (mq disabled)",
		zap.String("job_id", job.ID),
		zap.String("status", string(job.Status)),
	)
	return nil
}

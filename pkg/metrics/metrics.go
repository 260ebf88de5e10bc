// Package metrics 基于Prometheus的指标收集
//
// 指标分三组：
//   - HTTP：请求数、耗时、处理中的请求数（由middleware.Metrics记录）
//   - 导入：任务数（按终态）、行数（按结果）、任务耗时、处理中的任务数
//   - 依赖：元数据补全结果、熔断器状态、消息发布数
//
// 命名规范：
//   - Counter以_total结尾
//   - Histogram以单位结尾（_seconds）
//
// 标签只使用有限取值（status、outcome、result），不要把job_id、owner_id放进标签
//
// 使用示例：
//
//	metrics.InitMetrics()
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	metrics.RecordImportRows(metrics.RowOutcomeValid, job.ValidRows)
//	metrics.RecordImportJob(string(job.Status), time.Since(start))
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 行结果标签取值
const (
	RowOutcomeValid     = "valid"
	RowOutcomeInvalid   = "invalid"
	RowOutcomeDuplicate = "duplicate"
	RowOutcomePersisted = "persisted"
)

// 补全结果标签取值
const (
	EnrichSuccess  = "success"
	EnrichMiss     = "miss"
	EnrichFailure  = "failure"
	EnrichRejected = "rejected" // 熔断器打开，请求被拒绝
)

var (
	initOnce sync.Once

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path（路由模板，不是原始URL）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// ImportJobsTotal 导入任务总数，标签：status（终态）
	ImportJobsTotal *prometheus.CounterVec

	// ImportRowsTotal 导入行数，标签：outcome
	ImportRowsTotal *prometheus.CounterVec

	// ImportDuration 单个导入任务耗时
	// 上传文件最大10MB，补全阶段受限流影响可能持续数十秒
	ImportDuration prometheus.Histogram

	// ImportsInProgress 正在执行的导入任务数
	ImportsInProgress prometheus.Gauge

	// EnrichmentRequestsTotal 元数据补全请求数，标签：result
	EnrichmentRequestsTotal *prometheus.CounterVec

	// CircuitBreakerState 熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）
	CircuitBreakerState *prometheus.GaugeVec

	// MessagesPublishedTotal 消息发布总数
	// 标签：exchange、routing_key、result（success/failure）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 注册所有指标到默认Registry
// 可以重复调用，只有第一次生效
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP请求总数",
			},
			[]string{"method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP请求耗时（秒）",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "path"},
		)

		HTTPRequestsInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_progress",
				Help: "正在处理的HTTP请求数",
			},
		)

		ImportJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "book_import_jobs_total",
				Help: "导入任务总数（按终态）",
			},
			[]string{"status"},
		)

		ImportRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "book_import_rows_total",
				Help: "导入行数（按处理结果）",
			},
			[]string{"outcome"},
		)

		ImportDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "book_import_duration_seconds",
				Help:    "导入任务耗时（秒）",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		)

		ImportsInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "book_imports_in_progress",
				Help: "正在执行的导入任务数",
			},
		)

		EnrichmentRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "book_enrichment_requests_total",
				Help: "元数据补全请求数",
			},
			[]string{"result"},
		)

		CircuitBreakerState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
			},
			[]string{"name"},
		)

		MessagesPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messages_published_total",
				Help: "消息发布总数",
			},
			[]string{"exchange", "routing_key", "result"},
		)
	})
}

// RecordImportJob 记录一个结束的导入任务
func RecordImportJob(status string, duration time.Duration) {
	InitMetrics()
	ImportJobsTotal.WithLabelValues(status).Inc()
	ImportDuration.Observe(duration.Seconds())
}

// RecordImportRows 按结果累加行数，n<=0时忽略
func RecordImportRows(outcome string, n int) {
	if n <= 0 {
		return
	}
	InitMetrics()
	ImportRowsTotal.WithLabelValues(outcome).Add(float64(n))
}

// TrackImport 处理中任务数+1，返回的函数用于-1
//
//	defer metrics.TrackImport()()
func TrackImport() func() {
	InitMetrics()
	ImportsInProgress.Inc()
	return ImportsInProgress.Dec
}

// RecordEnrichment 记录一次补全请求的结果
func RecordEnrichment(result string) {
	InitMetrics()
	EnrichmentRequestsTotal.WithLabelValues(result).Inc()
}

// SetCircuitBreakerState 更新熔断器状态
func SetCircuitBreakerState(name string, state int) {
	InitMetrics()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordMessagePublished 记录消息发布结果
func RecordMessagePublished(exchange, routingKey string, err error) {
	InitMetrics()
	result := "success"
	if err != nil {
		result = "failure"
	}
	MessagesPublishedTotal.WithLabelValues(exchange, routingKey, result).Inc()
}

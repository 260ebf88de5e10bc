// Package integration 针对运行中服务的端到端测试
//
// 运行方式：
//
//	go run ./cmd/api &
//	go test ./test/integration/...
//
// 服务不可达时全部跳过；BOOKSHELF_BASE_URL、BOOKSHELF_JWT_SECRET可覆盖默认值
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/pkg/jwt"
)

const (
	// DefaultBaseURL 服务地址
	DefaultBaseURL = "http://localhost:8080"
	// Timeout HTTP请求超时时间
	Timeout = 30 * time.Second
)

// Response 统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// JobData 导入任务
type JobData struct {
	JobID        string `json:"jobId"`
	Status       string `json:"status"`
	TotalRows    int    `json:"totalRows"`
	ValidRows    int    `json:"validRows"`
	ErrorRows    int    `json:"errorRows"`
	ErrorSummary []struct {
		Row     int    `json:"row"`
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errorSummary"`
}

var ownerSeq = uint32(time.Now().Unix() % 1_000_000)

func baseURL() string {
	if u := os.Getenv("BOOKSHELF_BASE_URL"); u != "" {
		return u
	}
	return DefaultBaseURL
}

var client = &http.Client{Timeout: Timeout}

// RequireServer 服务未启动时跳过
func RequireServer(t *testing.T) {
	t.Helper()
	resp, err := client.Get(baseURL() + "/ping")
	if err != nil {
		t.Skipf("服务未启动(%s): %v", baseURL(), err)
	}
	resp.Body.Close()
}

// NewOwner 分配一个新的所有者并签发Token
// 每个测试使用独立的所有者，避免数据互相影响
func NewOwner(t *testing.T) (uint, string) {
	t.Helper()
	secret := os.Getenv("BOOKSHELF_JWT_SECRET")
	if secret == "" {
		secret = config.DefaultJWTSecret
	}
	owner := uint(atomic.AddUint32(&ownerSeq, 1))
	token, err := jwt.NewManager(secret, time.Hour).Issue(owner, fmt.Sprintf("owner%d@example.com", owner))
	require.NoError(t, err)
	return owner, token
}

// DoRequest 发送请求并解析统一响应
func DoRequest(t *testing.T, method, path string, body io.Reader, contentType, token string) *Response {
	t.Helper()
	req, err := http.NewRequest(method, baseURL()+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return &result
}

// GetRaw 获取非JSON响应(导出)
func GetRaw(t *testing.T, path, token string) (string, http.Header) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL()+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data), resp.Header
}

// Upload 上传CSV
func Upload(t *testing.T, token, filename, content string, fields map[string]string) *Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return DoRequest(t, http.MethodPost, "/api/v1/imports", &body, mw.FormDataContentType(), token)
}

// ParseJob 解析任务数据
func ParseJob(t *testing.T, resp *Response) JobData {
	t.Helper()
	var job JobData
	require.NoError(t, json.Unmarshal(resp.Data, &job))
	return job
}

package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Title,Author,Genres,PublishedDate,Rating,Edition,ISBN\n" +
	`"Dune","Frank Herbert","Science Fiction, Classic","1965-08-01",5,"1st","9780441013593"` + "\n" +
	`"Neuromancer","William Gibson","Cyberpunk","1984-07-01",4,,` + "\n" +
	`"","Nobody","Drama","2001-01-01",3,,` + "\n"

// TestImportLifecycle 导入 → 查询任务 → 重复导入 → 导出
func TestImportLifecycle(t *testing.T) {
	RequireServer(t)
	_, token := NewOwner(t)

	t.Run("首次导入", func(t *testing.T) {
		resp := Upload(t, token, "books.csv", sampleCSV, map[string]string{"enrich": "false"})
		require.Equal(t, 0, resp.Code, resp.Message)

		job := ParseJob(t, resp)
		assert.Equal(t, "CompletedWithErrors", job.Status)
		assert.Equal(t, 3, job.TotalRows)
		assert.Equal(t, 2, job.ValidRows)
		assert.Equal(t, 1, job.ErrorRows)
		require.Len(t, job.ErrorSummary, 1)
		assert.Equal(t, 4, job.ErrorSummary[0].Row)
		assert.Equal(t, "Title", job.ErrorSummary[0].Field)

		status := DoRequest(t, http.MethodGet, "/api/v1/imports/"+job.JobID, nil, "", token)
		require.Equal(t, 0, status.Code)
		assert.Equal(t, job.Status, ParseJob(t, status).Status)
	})

	t.Run("重复导入跳过", func(t *testing.T) {
		resp := Upload(t, token, "books.csv", sampleCSV, map[string]string{"enrich": "false", "duplicate_handling": "skip"})
		require.Equal(t, 0, resp.Code)

		list := DoRequest(t, http.MethodGet, "/api/v1/books?page_size=100", nil, "", token)
		require.Equal(t, 0, list.Code)
		assert.Contains(t, string(list.Data), `"total":2`)
	})

	t.Run("重复导入失败", func(t *testing.T) {
		resp := Upload(t, token, "books.csv", sampleCSV, map[string]string{"enrich": "false", "duplicate_handling": "fail"})
		assert.Equal(t, 40010, resp.Code)
		assert.Equal(t, "Failed", ParseJob(t, resp).Status)
	})

	t.Run("导出", func(t *testing.T) {
		body, header := GetRaw(t, "/api/v1/books/export", token)
		assert.Contains(t, header.Get("Content-Type"), "text/csv")
		assert.True(t, strings.HasPrefix(body, "title,author,genres,publisheddate,rating,edition,isbn"))
		assert.Contains(t, body, "Dune,Frank Herbert")
	})
}

// TestImportRejected 结构错误和非法上传
func TestImportRejected(t *testing.T) {
	RequireServer(t)
	_, token := NewOwner(t)

	resp := Upload(t, token, "books.csv", "title,author\nDune,Frank Herbert\n", nil)
	assert.Equal(t, 40906, resp.Code)
	assert.Equal(t, "Failed", ParseJob(t, resp).Status)

	resp = Upload(t, token, "books.txt", sampleCSV, nil)
	assert.Equal(t, 40907, resp.Code)

	resp = DoRequest(t, http.MethodGet, "/api/v1/imports/does-not-exist", nil, "", token)
	assert.Equal(t, 40405, resp.Code)

	resp = DoRequest(t, http.MethodGet, "/api/v1/books", nil, "", "")
	assert.Equal(t, 40100, resp.Code)
}

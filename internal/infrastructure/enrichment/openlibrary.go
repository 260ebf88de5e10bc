// Package enrichment 外部图书元数据补全(OpenLibrary)
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
	"github.com/xiebiao/bookshelf/pkg/metrics"
)

const breakerName = "openlibrary"

// ErrUpstream 外部服务返回非预期状态
var ErrUpstream = apperrors.New(apperrors.ErrCodeUpstreamError, "元数据服务调用失败")

// OpenLibraryClient OpenLibrary元数据客户端
// 设计说明：
// 1. 先按ISBN查询版本信息，查不到再按书名+作者搜索
// 2. 所有请求先经过令牌桶限流，再经过熔断器
// 3. 404/无结果不算失败，不会触发熔断
type OpenLibraryClient struct {
	baseURL    string
	coverURL   string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
}

// Option 客户端选项
type Option func(*OpenLibraryClient)

// WithHTTPClient 替换HTTP客户端(测试使用)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OpenLibraryClient) {
		c.httpClient = hc
	}
}

// NewOpenLibraryClient 创建客户端
func NewOpenLibraryClient(cfg config.EnrichmentConfig, opts ...Option) *OpenLibraryClient {
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &OpenLibraryClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		coverURL:   strings.TrimRight(cfg.CoverURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		breaker: circuitbreaker.New(breakerName, circuitbreaker.Config{
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				zap.L().Warn("circuit breaker state changed",
					zap.String("name", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
				metrics.SetCircuitBreakerState(name, int(to))
			},
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup 查询图书元数据
func (c *OpenLibraryClient) Lookup(ctx context.Context, q bookimport.LookupQuery) (*bookimport.Metadata, error) {
	meta, err := c.lookup(ctx, q)
	switch {
	case err == nil:
		metrics.RecordEnrichment(metrics.EnrichSuccess)
	case errors.Is(err, bookimport.ErrNoMatch):
		metrics.RecordEnrichment(metrics.EnrichMiss)
	case errors.Is(err, circuitbreaker.ErrOpenState):
		metrics.RecordEnrichment(metrics.EnrichRejected)
	default:
		metrics.RecordEnrichment(metrics.EnrichFailure)
	}
	return meta, err
}

func (c *OpenLibraryClient) lookup(ctx context.Context, q bookimport.LookupQuery) (*bookimport.Metadata, error) {
	if isbn := normalizeISBN(q.ISBN); isbn != "" {
		meta, err := c.byISBN(ctx, isbn)
		if err == nil || !errors.Is(err, bookimport.ErrNoMatch) {
			return meta, err
		}
	}
	if strings.TrimSpace(q.Title) == "" {
		return nil, bookimport.ErrNoMatch
	}
	return c.search(ctx, q.Title, q.Author)
}

// editionResponse /isbn/{isbn}.json 返回的版本信息(只取用到的字段)
type editionResponse struct {
	Key           string          `json:"key"`
	NumberOfPages int             `json:"number_of_pages"`
	Covers        []int           `json:"covers"`
	ISBN13        []string        `json:"isbn_13"`
	ISBN10        []string        `json:"isbn_10"`
	Description   json.RawMessage `json:"description"`
}

func (c *OpenLibraryClient) byISBN(ctx context.Context, isbn string) (*bookimport.Metadata, error) {
	var resp editionResponse
	found, err := c.getJSON(ctx, c.baseURL+"/isbn/"+url.PathEscape(isbn)+".json", &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, bookimport.ErrNoMatch
	}

	meta := &bookimport.Metadata{
		ExternalID:  resp.Key,
		PageCount:   resp.NumberOfPages,
		Description: parseDescription(resp.Description),
		ISBN:        firstOf(resp.ISBN13, resp.ISBN10),
	}
	if len(resp.Covers) > 0 && resp.Covers[0] > 0 {
		meta.CoverURL = c.coverByID(resp.Covers[0])
	}
	return meta, nil
}

// searchResponse /search.json 返回结果
type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key           string   `json:"key"`
		Title         string   `json:"title"`
		CoverID       int      `json:"cover_i"`
		ISBN          []string `json:"isbn"`
		Pages         int      `json:"number_of_pages_median"`
		FirstSentence []string `json:"first_sentence"`
	} `json:"docs"`
}

func (c *OpenLibraryClient) search(ctx context.Context, title, author string) (*bookimport.Metadata, error) {
	params := url.Values{}
	params.Set("title", strings.TrimSpace(title))
	if a := strings.TrimSpace(author); a != "" {
		params.Set("author", a)
	}
	params.Set("limit", "1")
	params.Set("fields", "key,title,cover_i,isbn,number_of_pages_median,first_sentence")

	var resp searchResponse
	found, err := c.getJSON(ctx, c.baseURL+"/search.json?"+params.Encode(), &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp.Docs) == 0 {
		return nil, bookimport.ErrNoMatch
	}

	doc := resp.Docs[0]
	meta := &bookimport.Metadata{
		ExternalID:  doc.Key,
		PageCount:   doc.Pages,
		Description: firstOf(doc.FirstSentence),
		ISBN:        firstOf(doc.ISBN),
	}
	if doc.CoverID > 0 {
		meta.CoverURL = c.coverByID(doc.CoverID)
	}
	return meta, nil
}

// getJSON 限流+熔断后发起GET请求，404时found=false
func (c *OpenLibraryClient) getJSON(ctx context.Context, rawURL string, out interface{}) (found bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		case resp.StatusCode != http.StatusOK:
			_, _ = io.Copy(io.Discard, resp.Body)
			return ErrUpstream.WithCause(fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return ErrUpstream.WithCause(fmt.Errorf("decode %s: %w", rawURL, err))
		}
		found = true
		return nil
	})
	return found, err
}

func (c *OpenLibraryClient) coverByID(id int) string {
	return c.coverURL + "/b/id/" + strconv.Itoa(id) + "-L.jpg"
}

// State 熔断器当前状态
func (c *OpenLibraryClient) State() circuitbreaker.State {
	return c.breaker.State()
}

// parseDescription description字段可能是字符串，也可能是{"type":..,"value":..}
func parseDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	return ""
}

// normalizeISBN 去掉连字符和空格
func normalizeISBN(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func firstOf(lists ...[]string) string {
	for _, l := range lists {
		for _, s := range l {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// New 按配置创建补全实现
// 未启用时返回nil，导入用例据此跳过补全阶段(包括批间延迟)
func New(cfg config.EnrichmentConfig) bookimport.Enricher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return NewOpenLibraryClient(cfg)
}

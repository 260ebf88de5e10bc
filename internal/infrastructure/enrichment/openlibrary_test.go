package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/pkg/circuitbreaker"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenLibraryClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default().Enrichment
	cfg.BaseURL = srv.URL
	cfg.CoverURL = "https://covers.example.org"
	cfg.RatePerSecond = 0
	cfg.BreakerFailures = 2
	cfg.BreakerTimeout = time.Minute
	return NewOpenLibraryClient(cfg, WithHTTPClient(srv.Client()))
}

func TestLookup_ByISBN(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/isbn/9780441013593.json", r.URL.Path)
		assert.Equal(t, "bookshelf-import/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"key": "/books/OL1M",
			"number_of_pages": 604,
			"covers": [12345],
			"isbn_13": ["9780441013593"],
			"description": {"type": "/type/text", "value": "Desert planet."}
		}`))
	})

	meta, err := client.Lookup(context.Background(), bookimport.LookupQuery{ISBN: "978-0441013593", Title: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, "/books/OL1M", meta.ExternalID)
	assert.Equal(t, 604, meta.PageCount)
	assert.Equal(t, "Desert planet.", meta.Description)
	assert.Equal(t, "https://covers.example.org/b/id/12345-L.jpg", meta.CoverURL)
	assert.Equal(t, "9780441013593", meta.ISBN)
}

func TestLookup_FallbackToSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/isbn/0000000000.json":
			http.NotFound(w, r)
		case "/search.json":
			assert.Equal(t, "Dune", r.URL.Query().Get("title"))
			assert.Equal(t, "Frank Herbert", r.URL.Query().Get("author"))
			_, _ = w.Write([]byte(`{"numFound":1,"docs":[{"key":"/works/OL2W","cover_i":7,"isbn":["0441013597"],"number_of_pages_median":500,"first_sentence":["A beginning."]}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	meta, err := client.Lookup(context.Background(), bookimport.LookupQuery{
		ISBN: "0000000000", Title: "Dune", Author: "Frank Herbert",
	})
	require.NoError(t, err)
	assert.Equal(t, "/works/OL2W", meta.ExternalID)
	assert.Equal(t, 500, meta.PageCount)
	assert.Equal(t, "A beginning.", meta.Description)
	assert.Equal(t, "0441013597", meta.ISBN)
}

func TestLookup_NoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"numFound":0,"docs":[]}`))
	})

	_, err := client.Lookup(context.Background(), bookimport.LookupQuery{Title: "Unknown"})
	assert.ErrorIs(t, err, bookimport.ErrNoMatch)

	_, err = client.Lookup(context.Background(), bookimport.LookupQuery{})
	assert.ErrorIs(t, err, bookimport.ErrNoMatch)
}

func TestLookup_NotFoundDoesNotTrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	for i := 0; i < 5; i++ {
		_, err := client.Lookup(context.Background(), bookimport.LookupQuery{Title: "Dune"})
		assert.ErrorIs(t, err, bookimport.ErrNoMatch)
	}
	assert.Equal(t, circuitbreaker.StateClosed, client.State())
}

func TestLookup_BreakerOpens(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.Lookup(ctx, bookimport.LookupQuery{Title: "Dune"})
		assert.ErrorIs(t, err, ErrUpstream)
	}

	_, err := client.Lookup(ctx, bookimport.LookupQuery{Title: "Dune"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "熔断后不再请求")
}

func TestLookup_Cancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Lookup(ctx, bookimport.LookupQuery{Title: "Dune"})
	assert.Error(t, err)
}

func TestNew_Disabled(t *testing.T) {
	// 必须是无类型的nil，用例才能识别为未启用
	assert.True(t, New(config.EnrichmentConfig{Enabled: false}) == nil)

	_, ok := New(config.EnrichmentConfig{Enabled: true}).(*OpenLibraryClient)
	assert.True(t, ok)
}

func TestParseDescription(t *testing.T) {
	assert.Equal(t, "plain", parseDescription([]byte(`"plain"`)))
	assert.Equal(t, "obj", parseDescription([]byte(`{"value":"obj"}`)))
	assert.Equal(t, "", parseDescription(nil))
	assert.Equal(t, "", parseDescription([]byte(`42`)))
}

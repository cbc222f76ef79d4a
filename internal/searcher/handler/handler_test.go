package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/proto"
	pkgredis "github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/redis"
)

type stubExecutor struct {
	mu        sync.Mutex
	calls     int
	lastLimit int
	err       error
}

func (s *stubExecutor) Execute(_ context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	result := &executor.SearchResult{
		Query: plan.RawQuery,
		Terms: plan.Terms,
		Results: []ranker.ScoredDoc{
			{DocID: "content/a.txt", Score: -0.1},
			{DocID: "content/b.txt", Score: -0.4},
		},
		TotalHits: 2,
		Scored:    len(plan.Terms) == 1,
	}
	if plan.RawQuery == "nothing" {
		result.Results = []ranker.ScoredDoc{}
		result.TotalHits = 0
	}
	return result, nil
}

func (s *stubExecutor) Normalize(terms []string) []string {
	out := make([]string, len(terms))
	for i, raw := range terms {
		out[i], _ = normalizer.Term(normalizer.Identity{}, raw)
	}
	return out
}

type stubCatalog struct {
	err error
}

func (c stubCatalog) Documents(context.Context) ([]index.Registration, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []index.Registration{{Name: "content/a.txt", Size: 2}, {Name: "content/b.txt", Size: 3}}, nil
}

func (c stubCatalog) DocumentTerms(_ context.Context, name string) ([]index.TermEntry, error) {
	if c.err != nil {
		return nil, c.err
	}
	if name != "content/a.txt" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, name)
	}
	return []index.TermEntry{{Term: "cat", Frequency: 2}, {Term: "dog", Frequency: 1}}, nil
}

func (c stubCatalog) CorpusTerms(_ context.Context, limit int) ([]index.TermEntry, error) {
	entries := []index.TermEntry{{Term: "cat", Frequency: 5}, {Term: "dog", Frequency: 2}}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

type memoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, pkgredis.ErrMiss
	}
	return v, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *memoryBackend) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func searchConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultLimit: 10,
		MaxResults:   50,
		Display:      config.DisplayConfig{StripPrefix: "content/", StripSuffix: ".txt"},
	}
}

func serve(t *testing.T, h *Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestSearchSingleTermShowsScores(t *testing.T) {
	h := New(&stubExecutor{}, searchConfig())
	rec := serve(t, h, http.MethodGet, "/api/v1/search?q=cat")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[proto.SearchResponse](t, rec)
	assert.Equal(t, "cat", resp.Query)
	assert.Equal(t, 2, resp.TotalHits)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "content/a.txt", resp.Results[0].DocID)
	assert.Equal(t, "a", resp.Results[0].Display)
	require.NotNil(t, resp.Results[0].Score)
	assert.InDelta(t, -0.1, *resp.Results[0].Score, 1e-12)
}

func TestSearchMultiTermHidesScores(t *testing.T) {
	h := New(&stubExecutor{}, searchConfig())
	rec := serve(t, h, http.MethodGet, "/api/v1/search?q=cat+dog")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[proto.SearchResponse](t, rec)
	assert.Equal(t, []string{"cat", "dog"}, resp.Terms)
	for _, hit := range resp.Results {
		assert.Nil(t, hit.Score)
	}
	assert.NotContains(t, rec.Body.String(), `"score"`)
}

func TestSearchValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing query", "/api/v1/search", http.StatusBadRequest},
		{"zero limit", "/api/v1/search?q=cat&limit=0", http.StatusBadRequest},
		{"non numeric limit", "/api/v1/search?q=cat&limit=ten", http.StatusBadRequest},
		{"negative limit", "/api/v1/search?q=cat&limit=-3", http.StatusBadRequest},
		{"whitespace query", "/api/v1/search?q=%20%20", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &stubExecutor{}
			rec := serve(t, New(exec, searchConfig()), http.MethodGet, tt.target)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, 0, exec.calls)
		})
	}
}

func TestSearchLimitIsCapped(t *testing.T) {
	exec := &stubExecutor{}
	h := New(exec, searchConfig())

	serve(t, h, http.MethodGet, "/api/v1/search?q=cat")
	assert.Equal(t, 10, exec.lastLimit)

	serve(t, h, http.MethodGet, "/api/v1/search?q=cat&limit=5000")
	assert.Equal(t, 50, exec.lastLimit)
}

func TestSearchStorageErrorMapsToStatus(t *testing.T) {
	exec := &stubExecutor{err: fmt.Errorf("loading postings: %w", apperrors.ErrStorageUnavailable)}
	rec := serve(t, New(exec, searchConfig()), http.MethodGet, "/api/v1/search?q=cat")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[proto.ErrorResponse](t, rec)
	assert.Equal(t, "search failed", resp.Error)
}

func TestSearchUsesCache(t *testing.T) {
	exec := &stubExecutor{}
	qc := cache.New(&memoryBackend{data: make(map[string][]byte)}, time.Minute, nil)
	h := New(exec, searchConfig(), WithCache(qc))

	first := serve(t, h, http.MethodGet, "/api/v1/search?q=cat")
	second := serve(t, h, http.MethodGet, "/api/v1/search?q=cat")

	assert.Equal(t, 1, exec.calls)
	assert.False(t, decode[proto.SearchResponse](t, first).Cached)
	assert.True(t, decode[proto.SearchResponse](t, second).Cached)

	stats := decode[map[string]any](t, serve(t, h, http.MethodGet, "/api/v1/cache/stats"))
	assert.Equal(t, float64(1), stats["hits"])
	assert.Equal(t, float64(1), stats["misses"])
	assert.Equal(t, "closed", stats["breaker"])

	rec := serve(t, h, http.MethodPost, "/api/v1/cache/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["keys_deleted"])

	serve(t, h, http.MethodGet, "/api/v1/search?q=cat")
	assert.Equal(t, 2, exec.calls)
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	h := New(&stubExecutor{}, searchConfig())

	stats := decode[map[string]any](t, serve(t, h, http.MethodGet, "/api/v1/cache/stats"))
	assert.Equal(t, "disabled", stats["status"])

	rec := serve(t, h, http.MethodPost, "/api/v1/cache/invalidate")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	h := New(&stubExecutor{}, searchConfig(), WithMetrics(m))

	serve(t, h, http.MethodGet, "/api/v1/search?q=cat")
	serve(t, h, http.MethodGet, "/api/v1/search?q=nothing")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
}

func TestStats(t *testing.T) {
	h := New(&stubExecutor{}, searchConfig(), WithCatalog(stubCatalog{}))
	rec := serve(t, h, http.MethodGet, "/api/v1/stats?top=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Documents int               `json:"documents"`
		TopTerms  []index.TermEntry `json:"top_terms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 2, body.Documents)
	assert.Equal(t, []index.TermEntry{{Term: "cat", Frequency: 5}}, body.TopTerms)
}

func TestStatsErrors(t *testing.T) {
	rec := serve(t, New(&stubExecutor{}, searchConfig()), http.MethodGet, "/api/v1/stats")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	broken := New(&stubExecutor{}, searchConfig(), WithCatalog(stubCatalog{err: errors.New("disk on fire")}))
	rec = serve(t, broken, http.MethodGet, "/api/v1/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearchLimitErrorMessage(t *testing.T) {
	rec := serve(t, New(&stubExecutor{}, searchConfig()), http.MethodGet, "/api/v1/search?q=cat&limit=0")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit must be a positive integer", decode[proto.ErrorResponse](t, rec).Error)
}

func TestSearchCacheKeyIgnoresPunctuation(t *testing.T) {
	exec := &stubExecutor{}
	qc := cache.New(&memoryBackend{data: make(map[string][]byte)}, time.Minute, nil)
	h := New(exec, searchConfig(), WithCache(qc))

	first := decode[proto.SearchResponse](t, serve(t, h, http.MethodGet, "/api/v1/search?q=cat%2C"))
	second := decode[proto.SearchResponse](t, serve(t, h, http.MethodGet, "/api/v1/search?q=cat"))

	assert.Equal(t, 1, exec.calls)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, "cat,", first.Query)
	assert.Equal(t, "cat", second.Query)

	serve(t, h, http.MethodGet, "/api/v1/search?q=cat+123")
	assert.Equal(t, 2, exec.calls, "a dropped term changes the query")
}

func TestDocument(t *testing.T) {
	h := New(&stubExecutor{}, searchConfig(), WithCatalog(stubCatalog{}))
	rec := serve(t, h, http.MethodGet, "/api/v1/documents/content/a.txt")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Document string            `json:"document"`
		Size     int               `json:"size"`
		Terms    []index.TermEntry `json:"terms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "content/a.txt", body.Document)
	assert.Equal(t, 2, body.Size)
	assert.Equal(t, []index.TermEntry{{Term: "cat", Frequency: 2}, {Term: "dog", Frequency: 1}}, body.Terms)
}

func TestDocumentErrors(t *testing.T) {
	rec := serve(t, New(&stubExecutor{}, searchConfig(), WithCatalog(stubCatalog{})), http.MethodGet, "/api/v1/documents/missing.txt")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, `document "missing.txt" is not indexed`, decode[proto.ErrorResponse](t, rec).Error)

	rec = serve(t, New(&stubExecutor{}, searchConfig()), http.MethodGet, "/api/v1/documents/a.txt")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	broken := New(&stubExecutor{}, searchConfig(), WithCatalog(stubCatalog{err: fmt.Errorf("reading terms: %w", apperrors.ErrStorageUnavailable)}))
	rec = serve(t, broken, http.MethodGet, "/api/v1/documents/content/a.txt")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

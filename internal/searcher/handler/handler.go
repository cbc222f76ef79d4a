// Package handler serves the search HTTP API on top of the query engine.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/tracing"
)

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
	Normalize(terms []string) []string
}

// Catalog exposes the registry and term tables kept by the term store.
type Catalog interface {
	Documents(ctx context.Context) ([]index.Registration, error)
	DocumentTerms(ctx context.Context, name string) ([]index.TermEntry, error)
	CorpusTerms(ctx context.Context, limit int) ([]index.TermEntry, error)
}

type Handler struct {
	executor SearchExecutor
	catalog  Catalog
	cache    *cache.QueryCache
	metrics  *metrics.Metrics
	search   config.SearchConfig
	logger   *slog.Logger
}

// Option configures optional collaborators of a Handler.
type Option func(*Handler)

// WithCache serves repeated queries from qc.
func WithCache(qc *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = qc }
}

// WithMetrics records search metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithCatalog enables the statistics and document endpoints.
func WithCatalog(c Catalog) Option {
	return func(h *Handler) { h.catalog = c }
}

func New(exec SearchExecutor, cfg config.SearchConfig, opts ...Option) *Handler {
	if cfg.DefaultLimit < 1 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxResults < cfg.DefaultLimit {
		cfg.MaxResults = cfg.DefaultLimit
	}
	h := &Handler{
		executor: exec,
		search:   cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/documents/{name...}", h.Document)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Routes lists the paths Register mounts, for metric labels.
func Routes() []string {
	return []string{"/api/v1/search", "/api/v1/stats", "/api/v1/cache/stats", "/api/v1/cache/invalidate"}
}

// Search answers GET /api/v1/search?q=<terms>&limit=<n>. A single-term query
// returns scores; a multi-term query returns the ordering only.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())
	ctx, span := tracing.Start(r.Context(), "search", logger.RequestID(r.Context()))
	defer span.Finish(log)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, r, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit, err := h.positiveParam(r, "limit", h.search.DefaultLimit)
	if err != nil {
		h.fail(w, r, err, "invalid limit")
		return
	}

	plan := parser.Parse(query)
	if len(plan.Terms) == 0 {
		h.writeJSON(w, http.StatusOK, proto.SearchResponse{
			Query:   query,
			Terms:   []string{},
			Results: []proto.SearchHit{},
		})
		return
	}

	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, cache.Key(h.executor.Normalize(plan.Terms), limit), func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit)
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.observe("error", cacheHit, start, 0)
		h.fail(w, r, err, "search failed")
		return
	}

	resp := h.toResponse(result)
	resp.Query = query
	resp.Cached = cacheHit
	span.SetAttr("cache_hit", cacheHit)
	resp.LatencyMs = time.Since(start).Milliseconds()

	outcome := "hit"
	if result.TotalHits == 0 {
		outcome = "zero_result"
	}
	h.observe(outcome, cacheHit, start, len(resp.Results))
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency_ms", resp.LatencyMs,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

// Stats reports the registry size and the most frequent corpus terms.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "statistics are not available")
		return
	}
	top, err := h.positiveParam(r, "top", min(10, h.search.MaxResults))
	if err != nil {
		h.fail(w, r, err, "invalid top")
		return
	}

	docs, err := h.catalog.Documents(r.Context())
	if err != nil {
		h.logger.Error("loading documents failed", "error", err)
		h.fail(w, r, err, "loading documents failed")
		return
	}
	terms, err := h.catalog.CorpusTerms(r.Context(), top)
	if err != nil {
		h.logger.Error("loading corpus terms failed", "error", err)
		h.fail(w, r, err, "loading corpus terms failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": len(docs),
		"top_terms": terms,
	})
}

// Document answers GET /api/v1/documents/{name} with the term table of one
// indexed document.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "documents are not available")
		return
	}
	name := r.PathValue("name")
	terms, err := h.catalog.DocumentTerms(r.Context(), name)
	if errors.Is(err, apperrors.ErrDocumentNotFound) {
		h.fail(w, r, apperrors.Newf(err, http.StatusNotFound, "document %q is not indexed", name), "")
		return
	}
	if err != nil {
		h.logger.Error("loading document failed", "document", name, "error", err)
		h.fail(w, r, err, "loading document failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"document": name,
		"size":     len(terms),
		"terms":    terms,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses, breaker := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  breaker,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) toResponse(result *executor.SearchResult) proto.SearchResponse {
	resp := proto.SearchResponse{
		Query:     result.Query,
		Terms:     result.Terms,
		TotalHits: result.TotalHits,
		Results:   make([]proto.SearchHit, 0, len(result.Results)),
	}
	for _, d := range result.Results {
		hit := proto.SearchHit{
			DocID:   d.DocID,
			Display: executor.DisplayName(d.DocID, h.search.Display),
		}
		if result.Scored {
			score := d.Score
			hit.Score = &score
		}
		resp.Results = append(resp.Results, hit)
	}
	return resp
}

func (h *Handler) observe(outcome string, cacheHit bool, start time.Time, returned int) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	h.metrics.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if outcome != "error" {
		h.metrics.SearchResultsCount.Observe(float64(returned))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// positiveParam reads a positive integer query parameter, capped at
// MaxResults. A missing parameter yields def.
func (h *Handler) positiveParam(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 1 {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "%s must be a positive integer", key)
	}
	return min(parsed, h.search.MaxResults), nil
}

// fail answers with the status derived from err. An AppError supplies its own
// message; anything else gets message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeError(w, r, apperrors.HTTPStatusCode(err), message)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, status, proto.ErrorResponse{
		Error:     message,
		RequestID: logger.RequestID(r.Context()),
	})
}

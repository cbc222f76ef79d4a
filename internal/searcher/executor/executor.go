package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/tracing"
)

// Reader is the read side of the term store.
type Reader interface {
	Documents(ctx context.Context) ([]index.Registration, error)
	Postings(ctx context.Context, term string) (index.PostingList, error)
}

// SearchResult is the outcome of Execute. Scored is true for single-term
// queries, the only ones whose scores are shown to callers.
type SearchResult struct {
	Query     string             `json:"query"`
	Terms     []string           `json:"terms"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	Scored    bool               `json:"scored"`
}

// Engine answers queries from the term store. The normalizer must be the one
// the index was built with.
type Engine struct {
	store      Reader
	normalizer normalizer.Normalizer
	logger     *slog.Logger
}

func New(store Reader, n normalizer.Normalizer) *Engine {
	return &Engine{
		store:      store,
		normalizer: n,
		logger:     slog.Default().With("component", "query-executor"),
	}
}

// registry is the document registry loaded once per query.
type registry struct {
	sizes map[string]int
	total int
}

// Score ranks the documents containing term, best first. A term that does
// not survive normalization matches nothing.
func (e *Engine) Score(ctx context.Context, term string) ([]ranker.ScoredDoc, error) {
	reg, err := e.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	return e.scoreTerm(ctx, reg, term)
}

// ScoreMany ranks the documents containing every term by the product of
// their per-term scores and returns their identifiers, best first. No terms
// means no documents.
func (e *Engine) ScoreMany(ctx context.Context, terms []string) ([]string, error) {
	if len(terms) == 0 {
		return []string{}, nil
	}
	reg, err := e.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	combined, err := e.combine(ctx, reg, terms)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(combined))
	for _, d := range combined {
		ids = append(ids, d.DocID)
	}
	return ids, nil
}

// Execute runs plan and keeps at most limit results (limit <= 0 keeps all).
// TotalHits counts the results before the limit is applied.
func (e *Engine) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	ctx, span := tracing.StartChild(ctx, "execute_query")
	defer span.End()

	result := &SearchResult{
		Query:   plan.RawQuery,
		Terms:   make([]string, 0, len(plan.Terms)),
		Results: []ranker.ScoredDoc{},
	}
	if len(plan.Terms) == 0 {
		return result, nil
	}
	for _, term := range e.Normalize(plan.Terms) {
		if term != "" {
			result.Terms = append(result.Terms, term)
		}
	}

	reg, err := e.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	var ranked []ranker.ScoredDoc
	if len(plan.Terms) == 1 {
		ranked, err = e.scoreTerm(ctx, reg, plan.Terms[0])
		result.Scored = true
	} else {
		ranked, err = e.combine(ctx, reg, plan.Terms)
	}
	if err != nil {
		return nil, err
	}

	result.TotalHits = len(ranked)
	result.Results = ranker.Limit(ranked, limit)
	span.SetAttr("terms", len(plan.Terms))
	span.SetAttr("hits", result.TotalHits)
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", result.Terms,
		"documents", reg.total,
		"hits", result.TotalHits,
	)
	return result, nil
}

// Normalize maps each query term to its indexed form, keeping positions. A
// term dropped by normalization becomes "".
func (e *Engine) Normalize(terms []string) []string {
	out := make([]string, len(terms))
	for i, raw := range terms {
		if term, ok := normalizer.Term(e.normalizer, raw); ok {
			out[i] = term
		}
	}
	return out
}

func (e *Engine) combine(ctx context.Context, reg *registry, terms []string) ([]ranker.ScoredDoc, error) {
	perTerm := make([][]ranker.ScoredDoc, 0, len(terms))
	for _, term := range terms {
		scored, err := e.scoreTerm(ctx, reg, term)
		if err != nil {
			return nil, err
		}
		perTerm = append(perTerm, scored)
	}
	return ranker.Combine(perTerm), nil
}

func (e *Engine) scoreTerm(ctx context.Context, reg *registry, raw string) ([]ranker.ScoredDoc, error) {
	term, ok := normalizer.Term(e.normalizer, raw)
	if !ok {
		e.logger.Debug("query term dropped by normalization", "term", raw)
		return []ranker.ScoredDoc{}, nil
	}
	postings, err := e.store.Postings(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("loading postings for %q: %w", term, err)
	}
	return ranker.ScoreTerm(postings, reg.sizes, reg.total), nil
}

func (e *Engine) loadRegistry(ctx context.Context) (*registry, error) {
	docs, err := e.store.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading document registry: %w", err)
	}
	reg := &registry{sizes: make(map[string]int, len(docs)), total: len(docs)}
	for _, d := range docs {
		reg.sizes[d.Name] = d.Size
	}
	return reg, nil
}

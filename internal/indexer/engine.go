// Package indexer runs an indexing pass over a directory: it fans document
// processing out over a worker pool, persists every document's term table
// and finally writes the corpus aggregate.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/processor"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/walker"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/tracing"
)

// DocumentWriter is the write side of the term store.
type DocumentWriter interface {
	SaveDocument(ctx context.Context, doc *index.Document) error
	SaveTerms(ctx context.Context, entries []index.TermEntry) error
}

// Publisher announces finished runs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Engine struct {
	writer     DocumentWriter
	normalizer normalizer.Normalizer
	cfg        config.IndexerConfig
	retry      resilience.RetryConfig
	metrics    *metrics.Metrics
	publisher  Publisher
	logger     *slog.Logger
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithNormalizer overrides the normalizer selected by the configuration.
func WithNormalizer(n normalizer.Normalizer) Option {
	return func(e *Engine) { e.normalizer = n }
}

func NewEngine(cfg config.IndexerConfig, writer DocumentWriter, opts ...Option) (*Engine, error) {
	n, err := normalizer.New(cfg.Normalizer)
	if err != nil {
		return nil, fmt.Errorf("creating normalizer: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	e := &Engine{
		writer:     writer,
		normalizer: n,
		cfg:        cfg,
		retry:      resilience.RetryFromConfig(cfg.Retry),
		logger:     slog.Default().With("component", "indexer"),
	}
	e.retry.Quiet = true
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run indexes every eligible file under root. A document that cannot be read
// is skipped; one that cannot be persisted is listed in Report.Failed. Neither
// stops the run. The returned error is set when discovery fails, when ctx is
// cancelled or when the corpus aggregate cannot be written; in the last two
// cases the report is still returned.
func (e *Engine) Run(ctx context.Context, root string) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Root: root}
	logger := e.logger.With("run_id", report.RunID)

	ctx, span := tracing.Start(ctx, "index_run", report.RunID)
	defer span.Finish(logger)

	files, err := walker.Discover(ctx, root, e.cfg.Extensions)
	if err != nil {
		e.observeRun("error", start)
		return nil, fmt.Errorf("discovering documents: %w", err)
	}
	report.Discovered = len(files)
	span.SetAttr("discovered", len(files))
	logger.Info("indexing started", "root", root, "documents", len(files), "workers", e.cfg.Workers)

	corpus := index.NewAggregate()
	var (
		indexed  atomic.Int64
		skipped  atomic.Int64
		failures failureList
	)

	// Documents already handed to a worker are written even after ctx is
	// cancelled; cancellation only stops new documents from being scheduled.
	writeCtx := context.WithoutCancel(ctx)
	paths := make(chan string)
	var g errgroup.Group
	for w := 0; w < e.cfg.Workers; w++ {
		g.Go(func() error {
			local := index.NewAggregate()
			for path := range paths {
				doc, ok := processor.Process(path, e.normalizer)
				if !ok {
					skipped.Add(1)
					e.countSkipped()
					logger.Debug("document skipped", "path", path)
					continue
				}
				local.Merge(doc.Terms)
				if err := e.persist(writeCtx, doc); err != nil {
					failures.add(doc.Path)
					e.countFailed()
					logger.Debug("document not persisted", "document", doc.Path, "error", err)
					continue
				}
				n := indexed.Add(1)
				e.countIndexed()
				logger.Debug("document indexed", "document", doc.Path, "size", doc.Size(), "indexed", n)
			}
			corpus.Combine(local)
			return nil
		})
	}

feed:
	for _, path := range files {
		select {
		case paths <- path:
		case <-ctx.Done():
			break feed
		}
	}
	close(paths)
	_ = g.Wait()

	report.Indexed = int(indexed.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = failures.sorted()
	report.Terms = corpus.Len()
	report.Aggregated = corpus.DocCount()
	span.SetAttr("indexed", report.Indexed)
	span.SetAttr("failed", len(report.Failed))

	if err := ctx.Err(); err != nil {
		report.Duration = time.Since(start)
		e.observeRun("cancelled", start)
		return report, fmt.Errorf("indexing cancelled: %w", err)
	}

	_, termsSpan := tracing.StartChild(ctx, "save_terms")
	err = e.writer.SaveTerms(ctx, corpus.Snapshot())
	termsSpan.SetAttr("terms", report.Terms)
	termsSpan.End()
	report.Duration = time.Since(start)
	if err != nil {
		e.observeRun("error", start)
		return report, fmt.Errorf("persisting corpus terms: %w", err)
	}

	if e.metrics != nil {
		e.metrics.CorpusTerms.Set(float64(report.Terms))
	}
	e.observeRun("success", start)
	e.publish(ctx, report)
	return report, nil
}

func (e *Engine) persist(ctx context.Context, doc *index.Document) error {
	err := resilience.Retry(ctx, "save_document", e.retry, func() error {
		return e.writer.SaveDocument(ctx, doc)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", apperrors.ErrPersistFailed, doc.Path, err)
	}
	return nil
}

// publish is best effort: the index is already written.
func (e *Engine) publish(ctx context.Context, report *Report) {
	if e.publisher == nil {
		return
	}
	event := proto.IndexCompleted{
		RunID:       report.RunID,
		Root:        report.Root,
		Discovered:  report.Discovered,
		Indexed:     report.Indexed,
		Failed:      report.Failed,
		Terms:       report.Terms,
		CompletedAt: time.Now().Unix(),
	}
	if err := e.publisher.Publish(ctx, kafka.Event{Key: report.RunID, Value: event}); err != nil {
		e.logger.Warn("failed to publish index completion", "run_id", report.RunID, "error", err)
	}
}

func (e *Engine) observeRun(status string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.IndexRunsTotal.WithLabelValues(status).Inc()
	e.metrics.IndexRunDuration.Observe(time.Since(start).Seconds())
}

func (e *Engine) countIndexed() {
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
}

func (e *Engine) countSkipped() {
	if e.metrics != nil {
		e.metrics.DocsSkippedTotal.Inc()
	}
}

func (e *Engine) countFailed() {
	if e.metrics != nil {
		e.metrics.DocsFailedTotal.Inc()
	}
}

// failureList collects the paths of documents that could not be persisted.
type failureList struct {
	mu    sync.Mutex
	paths []string
}

func (f *failureList) add(path string) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
}

func (f *failureList) sorted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.paths))
	copy(out, f.paths)
	sort.Strings(out)
	return out
}

// Package store persists the term index: a registry of documents with their
// distinct-term counts, one term table row per (document, term) pair and the
// corpus-wide term aggregate. Every write is an idempotent replace, so
// re-indexing a document always converges to the same rows.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/sqlite"
)

const defaultBatchSize = 500

// SQLStore implements the term store on top of database/sql.
type SQLStore struct {
	db        *sql.DB
	closer    io.Closer
	dialect   dialect
	batchSize int
	logger    *slog.Logger
}

// Open connects to the backend selected by cfg.Storage.Driver and makes sure
// the schema exists. Any failure here is fatal for the caller and wraps
// ErrStorageUnavailable.
func Open(ctx context.Context, cfg *config.Config) (*SQLStore, error) {
	var (
		db     *sql.DB
		closer io.Closer
	)
	switch cfg.Storage.Driver {
	case "sqlite":
		client, err := sqlite.New(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrStorageUnavailable, err)
		}
		db, closer = client.DB, client
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrStorageUnavailable, err)
		}
		db, closer = client.DB, client
	default:
		return nil, fmt.Errorf("%w: unsupported storage driver %q", apperrors.ErrInvalidInput, cfg.Storage.Driver)
	}

	s, err := New(ctx, db, cfg.Storage.Driver, cfg.Storage.BatchSize)
	if err != nil {
		closer.Close()
		return nil, err
	}
	s.closer = closer
	return s, nil
}

// New wraps an already-open database. driver is "sqlite" or "postgres".
func New(ctx context.Context, db *sql.DB, driver string, batchSize int) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: db is nil", apperrors.ErrStorageUnavailable)
	}
	d, ok := parseDialect(driver)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported storage driver %q", apperrors.ErrInvalidInput, driver)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrStorageUnavailable, err)
	}
	return &SQLStore{
		db:        db,
		closer:    db,
		dialect:   d,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "term-store", "driver", driver),
	}, nil
}

// SaveDocument replaces the registry row and term table of doc in a single
// transaction.
func (s *SQLStore) SaveDocument(ctx context.Context, doc *index.Document) error {
	if doc == nil || doc.Path == "" {
		return fmt.Errorf("%w: document without identifier", apperrors.ErrInvalidInput)
	}
	entries := doc.Entries()
	if err := validateEntries(entries); err != nil {
		return fmt.Errorf("document %s: %w", doc.Path, err)
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(
			`INSERT INTO documents (name, size) VALUES (?, ?)
ON CONFLICT (name) DO UPDATE SET size = excluded.size`),
			doc.Path, doc.Size(),
		); err != nil {
			return fmt.Errorf("upserting registry row: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(
			`DELETE FROM document_terms WHERE document = ?`), doc.Path,
		); err != nil {
			return fmt.Errorf("clearing term table: %w", err)
		}
		return s.insertBatches(ctx, tx, len(entries), 3,
			"INSERT INTO document_terms (document, term, frequency) VALUES ",
			func(i int) []any {
				return []any{doc.Path, entries[i].Term, entries[i].Frequency}
			},
		)
	})
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.Path, err)
	}
	s.logger.Debug("document saved", "document", doc.Path, "size", doc.Size())
	return nil
}

// SaveTerms rebuilds the corpus aggregate table from entries.
func (s *SQLStore) SaveTerms(ctx context.Context, entries []index.TermEntry) error {
	if err := validateEntries(entries); err != nil {
		return fmt.Errorf("corpus terms: %w", err)
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM terms`); err != nil {
			return fmt.Errorf("clearing terms: %w", err)
		}
		return s.insertBatches(ctx, tx, len(entries), 2,
			"INSERT INTO terms (term, frequency) VALUES ",
			func(i int) []any {
				return []any{entries[i].Term, entries[i].Frequency}
			},
		)
	})
	if err != nil {
		return fmt.Errorf("saving corpus terms: %w", err)
	}
	s.logger.Debug("corpus terms saved", "terms", len(entries))
	return nil
}

// Documents returns the registry ordered by name. The registry is the
// authoritative document list for queries.
func (s *SQLStore) Documents(ctx context.Context) ([]index.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, size FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	defer rows.Close()

	docs := make([]index.Registration, 0)
	for rows.Next() {
		var r index.Registration
		if err := rows.Scan(&r.Name, &r.Size); err != nil {
			return nil, fmt.Errorf("scanning registry row: %w", err)
		}
		docs = append(docs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	return docs, nil
}

// Postings returns every registered document containing term, ordered by
// document name. Term rows of unregistered documents are invisible.
func (s *SQLStore) Postings(ctx context.Context, term string) (index.PostingList, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT dt.document, dt.frequency
FROM document_terms dt
JOIN documents d ON d.name = dt.document
WHERE dt.term = ?
ORDER BY dt.document`), term)
	if err != nil {
		return nil, fmt.Errorf("loading postings for %q: %w", term, err)
	}
	defer rows.Close()

	postings := make(index.PostingList, 0)
	for rows.Next() {
		var p index.Posting
		if err := rows.Scan(&p.DocID, &p.Frequency); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading postings for %q: %w", term, err)
	}
	return postings, nil
}

// DocumentTerms returns the term table of a registered document, ordered by
// term.
func (s *SQLStore) DocumentTerms(ctx context.Context, name string) ([]index.TermEntry, error) {
	var size int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT size FROM documents WHERE name = ?`), name,
	).Scan(&size)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading registry row %s: %w", name, err)
	}
	return s.queryEntries(ctx, s.dialect.rebind(
		`SELECT term, frequency FROM document_terms WHERE document = ? ORDER BY term`), name)
}

// CorpusTerms returns the corpus aggregate, most frequent first. limit <= 0
// returns every term.
func (s *SQLStore) CorpusTerms(ctx context.Context, limit int) ([]index.TermEntry, error) {
	query := `SELECT term, frequency FROM terms ORDER BY frequency DESC, term`
	if limit > 0 {
		return s.queryEntries(ctx, s.dialect.rebind(query+` LIMIT ?`), limit)
	}
	return s.queryEntries(ctx, query)
}

// Ping checks that the backend is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.closer.Close()
}

func (s *SQLStore) queryEntries(ctx context.Context, query string, args ...any) ([]index.TermEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying term rows: %w", err)
	}
	defer rows.Close()

	entries := make([]index.TermEntry, 0)
	for rows.Next() {
		var e index.TermEntry
		if err := rows.Scan(&e.Term, &e.Frequency); err != nil {
			return nil, fmt.Errorf("scanning term row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading term rows: %w", err)
	}
	return entries, nil
}

// insertBatches inserts n rows of width cols using multi-row VALUES lists of
// at most batchSize rows.
func (s *SQLStore) insertBatches(ctx context.Context, tx *sql.Tx, n, cols int, prefix string, row func(i int) []any) error {
	for start := 0; start < n; start += s.batchSize {
		end := start + s.batchSize
		if end > n {
			end = n
		}
		args := make([]any, 0, (end-start)*cols)
		for i := start; i < end; i++ {
			args = append(args, row(i)...)
		}
		query := s.dialect.rebind(prefix + valuesList(end-start, cols))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func validateEntries(entries []index.TermEntry) error {
	for _, e := range entries {
		if e.Term == "" {
			return fmt.Errorf("%w: empty term", apperrors.ErrInvalidInput)
		}
		if e.Frequency < 1 {
			return fmt.Errorf("%w: term %q has frequency %d", apperrors.ErrInvalidInput, e.Term, e.Frequency)
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/errors"
)

// Older databases kept one table per document, named after the document
// path with its separators escaped. The registry stored those table names.
const (
	legacySlash = "_IN_"
	legacyDot   = "_DOT_"
)

// LegacyTableName escapes a document path the way table-per-document
// databases named their term tables.
func LegacyTableName(docPath string) string {
	name := strings.ReplaceAll(docPath, "/", legacySlash)
	return strings.ReplaceAll(name, ".", legacyDot)
}

// DocumentNameFromLegacy reverses LegacyTableName. Paths that contained a
// literal "_IN_" or "_DOT_" cannot be told apart and come back altered.
func DocumentNameFromLegacy(table string) string {
	name := strings.ReplaceAll(table, legacyDot, ".")
	return strings.ReplaceAll(name, legacySlash, "/")
}

// ImportReport summarises an ImportLegacy call.
type ImportReport struct {
	Documents int      `json:"documents"`
	Terms     int      `json:"terms"`
	Skipped   []string `json:"skipped,omitempty"`
}

// ImportLegacy copies a table-per-document database into the store. Registry
// rows whose term table is missing or unreadable are reported as skipped.
// The corpus aggregate is copied as is when src has one.
func ImportLegacy(ctx context.Context, s *SQLStore, src *sql.DB) (*ImportReport, error) {
	tables, err := legacyRegistry(ctx, src)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		doc, err := readLegacyDocument(ctx, src, table)
		if err != nil {
			s.logger.Warn("skipping legacy document", "table", table, "error", err)
			report.Skipped = append(report.Skipped, table)
			continue
		}
		if err := s.SaveDocument(ctx, doc); err != nil {
			return report, fmt.Errorf("importing %s: %w", table, err)
		}
		report.Documents++
	}

	terms, err := readLegacyEntries(ctx, src, "terms")
	if err != nil {
		s.logger.Warn("legacy database has no readable terms table", "error", err)
		return report, nil
	}
	if err := s.SaveTerms(ctx, terms); err != nil {
		return report, fmt.Errorf("importing corpus terms: %w", err)
	}
	report.Terms = len(terms)

	s.logger.Info("legacy import complete",
		"documents", report.Documents,
		"terms", report.Terms,
		"skipped", len(report.Skipped),
	)
	return report, nil
}

func legacyRegistry(ctx context.Context, src *sql.DB) ([]string, error) {
	rows, err := src.QueryContext(ctx, `SELECT name FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: reading legacy registry: %w", apperrors.ErrInvalidInput, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning legacy registry row: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading legacy registry: %w", err)
	}
	return tables, nil
}

func readLegacyDocument(ctx context.Context, src *sql.DB, table string) (*index.Document, error) {
	entries, err := readLegacyEntries(ctx, src, table)
	if err != nil {
		return nil, err
	}
	doc := index.NewDocument(path.Clean(DocumentNameFromLegacy(table)))
	for _, e := range entries {
		if e.Term == "" || e.Frequency < 1 {
			continue
		}
		doc.Terms[e.Term] += e.Frequency
	}
	return doc, nil
}

func readLegacyEntries(ctx context.Context, src *sql.DB, table string) ([]index.TermEntry, error) {
	if !validIdentifier(table) {
		return nil, fmt.Errorf("%w: invalid legacy table name %q", apperrors.ErrInvalidInput, table)
	}
	rows, err := src.QueryContext(ctx, fmt.Sprintf(`SELECT term, frequency FROM "%s"`, table))
	if err != nil {
		return nil, fmt.Errorf("reading legacy table %s: %w", table, err)
	}
	defer rows.Close()

	entries := make([]index.TermEntry, 0)
	for rows.Next() {
		var e index.TermEntry
		if err := rows.Scan(&e.Term, &e.Frequency); err != nil {
			return nil, fmt.Errorf("scanning legacy table %s: %w", table, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading legacy table %s: %w", table, err)
	}
	return entries, nil
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

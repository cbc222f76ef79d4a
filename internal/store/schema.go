package store

import (
	"context"
	"database/sql"
	"fmt"
)

// The statements are valid for both SQLite and PostgreSQL. The composite
// primary key of document_terms leads with document, which serves the
// per-document lookups; the term index serves queries.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
    name TEXT PRIMARY KEY,
    size INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS document_terms (
    document TEXT NOT NULL,
    term TEXT NOT NULL,
    frequency INTEGER NOT NULL,
    PRIMARY KEY (document, term)
)`,
	`CREATE INDEX IF NOT EXISTS document_terms_term ON document_terms (term)`,
	`CREATE TABLE IF NOT EXISTS terms (
    term TEXT PRIMARY KEY,
    frequency INTEGER NOT NULL
)`,
}

// EnsureSchema creates the registry, per-document term and corpus tables if
// they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

//go:build integration

package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/postgres"
)

// Run with:
//
//	go test -v -tags=integration ./internal/store/...
func newPostgresStore(t *testing.T) *SQLStore {
	t.Helper()
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "tfidf_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "tfidf"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
	client, err := postgres.New(cfg)
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	for _, table := range []string{"document_terms", "documents", "terms"} {
		_, err := client.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+table)
		require.NoError(t, err)
	}
	s, err := New(ctx, client.DB, "postgres", 2)
	require.NoError(t, err)
	return s
}

func TestPostgresRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(t)

	a := index.NewDocument("content/a.txt")
	for _, term := range []string{"cat", "dog", "cat"} {
		a.Add(term)
	}
	require.NoError(t, s.SaveDocument(ctx, a))
	require.NoError(t, s.SaveDocument(ctx, a))
	require.NoError(t, s.SaveTerms(ctx, []index.TermEntry{{Term: "cat", Frequency: 2}, {Term: "dog", Frequency: 1}}))

	postings, err := s.Postings(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{{DocID: "content/a.txt", Frequency: 2}}, postings)

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []index.Registration{{Name: "content/a.txt", Size: 2}}, docs)

	top, err := s.CorpusTerms(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []index.TermEntry{{Term: "cat", Frequency: 2}}, top)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

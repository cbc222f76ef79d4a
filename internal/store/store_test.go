package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/sqlite"
)

func newTestStore(t *testing.T, batchSize int) *SQLStore {
	t.Helper()
	client, err := sqlite.New(config.StorageConfig{Path: filepath.Join(t.TempDir(), "index.db")})
	require.NoError(t, err)
	s, err := New(context.Background(), client.DB, "sqlite", batchSize)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func document(path string, terms ...string) *index.Document {
	doc := index.NewDocument(path)
	for _, term := range terms {
		doc.Add(term)
	}
	return doc
}

func TestSaveDocumentAndRead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 2)

	require.NoError(t, s.SaveDocument(ctx, document("content/a.txt", "cat", "dog", "cat")))
	require.NoError(t, s.SaveDocument(ctx, document("content/b.txt", "dog", "bird")))

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []index.Registration{
		{Name: "content/a.txt", Size: 2},
		{Name: "content/b.txt", Size: 2},
	}, docs)

	postings, err := s.Postings(ctx, "dog")
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{
		{DocID: "content/a.txt", Frequency: 1},
		{DocID: "content/b.txt", Frequency: 1},
	}, postings)

	terms, err := s.DocumentTerms(ctx, "content/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []index.TermEntry{
		{Term: "cat", Frequency: 2},
		{Term: "dog", Frequency: 1},
	}, terms)
}

func TestSaveDocumentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	doc := document("a.txt", "alpha", "beta", "beta")
	require.NoError(t, s.SaveDocument(ctx, doc))
	require.NoError(t, s.SaveDocument(ctx, doc))

	terms, err := s.DocumentTerms(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []index.TermEntry{{Term: "alpha", Frequency: 1}, {Term: "beta", Frequency: 2}}, terms)

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSaveDocumentReplacesOldTerms(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	require.NoError(t, s.SaveDocument(ctx, document("a.txt", "old", "shared")))
	require.NoError(t, s.SaveDocument(ctx, document("a.txt", "shared", "new", "new")))

	postings, err := s.Postings(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, postings)

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, docs[0].Size)
}

func TestSaveDocumentEmptyTermTable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	require.NoError(t, s.SaveDocument(ctx, document("empty.txt")))

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []index.Registration{{Name: "empty.txt", Size: 0}}, docs)

	terms, err := s.DocumentTerms(ctx, "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestSaveDocumentRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	tests := []struct {
		name string
		doc  *index.Document
	}{
		{"nil document", nil},
		{"missing path", document("")},
		{"empty term", &index.Document{Path: "a.txt", Terms: map[string]int{"": 1}}},
		{"zero frequency", &index.Document{Path: "a.txt", Terms: map[string]int{"cat": 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SaveDocument(ctx, tt.doc)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestPostingsIgnoreUnregisteredDocuments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	require.NoError(t, s.SaveDocument(ctx, document("a.txt", "cat")))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_terms (document, term, frequency) VALUES ('ghost.txt', 'cat', 3)`)
	require.NoError(t, err)

	postings, err := s.Postings(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{{DocID: "a.txt", Frequency: 1}}, postings)
}

func TestPostingsUnknownTerm(t *testing.T) {
	s := newTestStore(t, 0)
	postings, err := s.Postings(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, postings)
	assert.Empty(t, postings)
}

func TestDocumentTermsNotFound(t *testing.T) {
	s := newTestStore(t, 0)
	_, err := s.DocumentTerms(context.Background(), "nope.txt")
	assert.True(t, errors.Is(err, apperrors.ErrDocumentNotFound), "got %v", err)
}

func TestSaveTermsRebuildsAggregate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 2)

	require.NoError(t, s.SaveTerms(ctx, []index.TermEntry{
		{Term: "stale", Frequency: 9},
	}))
	require.NoError(t, s.SaveTerms(ctx, []index.TermEntry{
		{Term: "bird", Frequency: 1},
		{Term: "cat", Frequency: 2},
		{Term: "dog", Frequency: 2},
	}))

	all, err := s.CorpusTerms(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []index.TermEntry{
		{Term: "cat", Frequency: 2},
		{Term: "dog", Frequency: 2},
		{Term: "bird", Frequency: 1},
	}, all)

	top, err := s.CorpusTerms(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []index.TermEntry{{Term: "cat", Frequency: 2}}, top)
}

func TestPing(t *testing.T) {
	s := newTestStore(t, 0)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	client, err := sqlite.New(config.StorageConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer client.Close()

	_, err = New(context.Background(), client.DB, "oracle", 0)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
}

func TestOpenSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "data", "data.db")

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "mysql"
	_, err := Open(context.Background(), cfg)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE b = ? AND c IN (?, ?)`
	assert.Equal(t, q, dialectSQLite.rebind(q))
	assert.Equal(t, `SELECT a FROM t WHERE b = $1 AND c IN ($2, $3)`, dialectPostgres.rebind(q))
}

func TestValuesList(t *testing.T) {
	assert.Equal(t, "(?, ?)", valuesList(1, 2))
	assert.Equal(t, "(?, ?, ?), (?, ?, ?)", valuesList(2, 3))
}

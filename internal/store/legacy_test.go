package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/sqlite"
)

func TestLegacyTableName(t *testing.T) {
	tests := []struct {
		path  string
		table string
	}{
		{"./content/a.txt", "_DOT__IN_content_IN_a_DOT_txt"},
		{"content/notes.md", "content_IN_notes_DOT_md"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.table, LegacyTableName(tt.path))
			assert.Equal(t, tt.path, DocumentNameFromLegacy(tt.table))
		})
	}
}

// legacyDatabase builds a table-per-document database holding the given
// documents plus one registry row whose table is missing.
func legacyDatabase(t *testing.T, docs map[string]map[string]int) *sql.DB {
	t.Helper()
	client, err := sqlite.New(config.StorageConfig{Path: filepath.Join(t.TempDir(), "legacy.db")})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	db := client.DB

	_, err = db.Exec(`CREATE TABLE documents (name TEXT PRIMARY KEY, size INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE terms (term TEXT PRIMARY KEY, frequency INTEGER NOT NULL)`)
	require.NoError(t, err)

	corpus := make(map[string]int)
	for path, terms := range docs {
		table := LegacyTableName(path)
		_, err = db.Exec(`INSERT INTO documents (name, size) VALUES (?, ?)`, table, len(terms))
		require.NoError(t, err)
		_, err = db.Exec(fmt.Sprintf(`CREATE TABLE "%s" (term TEXT PRIMARY KEY, frequency INTEGER NOT NULL)`, table))
		require.NoError(t, err)
		for term, freq := range terms {
			_, err = db.Exec(fmt.Sprintf(`INSERT INTO "%s" (term, frequency) VALUES (?, ?)`, table), term, freq)
			require.NoError(t, err)
			corpus[term] += freq
		}
	}
	for term, freq := range corpus {
		_, err = db.Exec(`INSERT INTO terms (term, frequency) VALUES (?, ?)`, term, freq)
		require.NoError(t, err)
	}
	_, err = db.Exec(`INSERT INTO documents (name, size) VALUES ('_DOT__IN_gone_DOT_txt', 4)`)
	require.NoError(t, err)
	return db
}

func TestImportLegacy(t *testing.T) {
	ctx := context.Background()
	src := legacyDatabase(t, map[string]map[string]int{
		"./content/a.txt": {"cat": 2, "dog": 1},
		"./content/b.txt": {"dog": 1, "bird": 1},
	})
	s := newTestStore(t, 0)

	report, err := ImportLegacy(ctx, s, src)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 3, report.Terms)
	assert.Equal(t, []string{"_DOT__IN_gone_DOT_txt"}, report.Skipped)

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []index.Registration{
		{Name: "content/a.txt", Size: 2},
		{Name: "content/b.txt", Size: 2},
	}, docs)

	postings, err := s.Postings(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{{DocID: "content/a.txt", Frequency: 2}}, postings)

	corpus, err := s.CorpusTerms(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []index.TermEntry{
		{Term: "cat", Frequency: 2},
		{Term: "dog", Frequency: 2},
		{Term: "bird", Frequency: 1},
	}, corpus)
}

func TestImportLegacyWithoutRegistry(t *testing.T) {
	client, err := sqlite.New(config.StorageConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer client.Close()

	_, err = ImportLegacy(context.Background(), newTestStore(t, 0), client.DB)
	assert.Error(t, err)
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, validIdentifier("_DOT__IN_content_IN_a_DOT_txt"))
	assert.False(t, validIdentifier(""))
	assert.False(t, validIdentifier(`a"; DROP TABLE documents; --`))
	assert.False(t, validIdentifier("with space"))
}

// Package processor turns one file into a per-document term table.
package processor

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/internal/indexer/normalizer"
)

// DocumentID is the canonical identifier of the file at path.
func DocumentID(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// Process reads path as UTF-8 text and counts its normalized terms. It
// returns false when the file cannot be read or is not valid text; such
// files are skipped, not reported as failures.
func Process(path string, n normalizer.Normalizer) (*index.Document, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	return ProcessReader(DocumentID(path), f, n)
}

// ProcessReader splits r on Unicode whitespace and counts every token that
// normalizes successfully. Tokens whose normalization fails are dropped.
// Tokens have no length limit. Any read error or invalid UTF-8 rejects the
// whole document.
func ProcessReader(id string, r io.Reader, n normalizer.Normalizer) (*index.Document, bool) {
	doc := index.NewDocument(id)
	br := bufio.NewReader(r)
	var token []byte
	flush := func() {
		if len(token) == 0 {
			return
		}
		if term, ok := normalizer.Term(n, string(token)); ok {
			doc.Add(term)
		}
		token = token[:0]
	}
	for {
		c, size, err := br.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false
		}
		if c == utf8.RuneError && size == 1 {
			return nil, false
		}
		if unicode.IsSpace(c) {
			flush()
			continue
		}
		token = utf8.AppendRune(token, c)
	}
	flush()
	return doc, true
}

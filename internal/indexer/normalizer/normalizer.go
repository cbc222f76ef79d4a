// Package normalizer maps raw whitespace-delimited tokens to canonical terms.
// Indexing and querying both go through Term, so a token that indexes to X
// always queries as X.
package normalizer

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/errors"
)

// Normalizer turns a sanitized token into a term. It reports false when the
// token has no canonical form.
type Normalizer interface {
	Normalize(token string) (string, bool)
}

// Kinds accepted by New.
const (
	KindIdentity = "identity"
	KindSnowball = "snowball"
	KindSuffix   = "suffix"
)

// New returns the Normalizer registered under kind.
func New(kind string) (Normalizer, error) {
	switch kind {
	case KindIdentity, "":
		return Identity{}, nil
	case KindSnowball:
		return Snowball{}, nil
	case KindSuffix:
		return Suffix{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown normalizer %q", apperrors.ErrInvalidInput, kind)
	}
}

// Sanitize drops every byte outside [a-zA-Z]. Terms end up inside SQL
// statements, so nothing else may reach the store.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Term sanitizes raw, normalizes it with n and sanitizes the result again.
// An empty result is a failed normalization and is never indexed.
func Term(n Normalizer, raw string) (string, bool) {
	token := Sanitize(raw)
	if token == "" {
		return "", false
	}
	term, ok := n.Normalize(token)
	if !ok {
		return "", false
	}
	term = Sanitize(term)
	if term == "" {
		return "", false
	}
	return term, true
}

// Identity keeps the sanitized token unchanged, case included.
type Identity struct{}

func (Identity) Normalize(token string) (string, bool) {
	return token, token != ""
}
